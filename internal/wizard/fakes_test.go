package wizard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"

	"pitchdesk/pkg/types"

	"github.com/sirupsen/logrus"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

type fakeRecordStore struct {
	mu      sync.Mutex
	pitches map[string]*types.Pitch
	nextID  int

	createErr error
	updateErr error
	deleteErr error

	created []*types.Pitch
	updated []*types.Pitch
}

func newFakeRecordStore() *fakeRecordStore {
	return &fakeRecordStore{pitches: make(map[string]*types.Pitch)}
}

func (f *fakeRecordStore) Pitch(ctx context.Context, id string) (*types.Pitch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	pitch, ok := f.pitches[id]
	if !ok {
		return nil, types.ErrPitchNotFound
	}
	copied := *pitch
	return &copied, nil
}

func (f *fakeRecordStore) CreatePitch(ctx context.Context, pitch *types.Pitch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	copied := *pitch
	f.pitches[pitch.ID] = &copied
	f.created = append(f.created, &copied)
	return nil
}

func (f *fakeRecordStore) UpdatePitch(ctx context.Context, id string, pitch *types.Pitch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	copied := *pitch
	f.pitches[id] = &copied
	f.updated = append(f.updated, &copied)
	return nil
}

func (f *fakeRecordStore) DeletePitch(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.pitches, id)
	return nil
}

func (f *fakeRecordStore) AllocateID() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	return fmt.Sprintf("pitch-%d", f.nextID)
}

func (f *fakeRecordStore) Watch(ctx context.Context, id string) (<-chan *types.Pitch, func()) {
	updates := make(chan *types.Pitch)
	var once sync.Once
	return updates, func() {
		once.Do(func() { close(updates) })
	}
}

type fakeBlobStore struct {
	mu   sync.Mutex
	keys []string

	failSubstr string

	// release, when set, blocks Put until it is closed; holdSubstr narrows
	// the blocking to keys containing it.
	release    chan struct{}
	holdSubstr string
}

func (f *fakeBlobStore) Put(ctx context.Context, key string, data []byte, contentType string, progress func(pct float64)) (string, error) {
	if f.release != nil && (f.holdSubstr == "" || strings.Contains(key, f.holdSubstr)) {
		<-f.release
	}
	if f.failSubstr != "" && strings.Contains(key, f.failSubstr) {
		return "", errors.New("blob store unavailable")
	}

	f.mu.Lock()
	f.keys = append(f.keys, key)
	f.mu.Unlock()

	if progress != nil {
		progress(50)
		progress(100)
	}
	return "https://blobs.test/" + key, nil
}

func (f *fakeBlobStore) Delete(ctx context.Context, key string) error {
	return nil
}

func (f *fakeBlobStore) storedKeys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.keys...)
}

type sentNotification struct {
	UserID  string
	Title   string
	Message string
	Route   string
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
	err  error
}

func (f *fakeNotifier) Notify(ctx context.Context, userID, title, message, actionRoute string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentNotification{UserID: userID, Title: title, Message: message, Route: actionRoute})
	return nil
}

type fakeActivityLog struct {
	mu      sync.Mutex
	entries []*types.ActivityEntry
	err     error
}

func (f *fakeActivityLog) LogActivity(ctx context.Context, entry *types.ActivityEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.entries = append(f.entries, entry)
	return nil
}

type acceptance struct {
	IssuerID string
	PitchID  string
}

type fakeTermsStore struct {
	mu       sync.Mutex
	accepted []acceptance
	err      error
}

func (f *fakeTermsStore) RecordAcceptance(ctx context.Context, issuerID, pitchID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.accepted = append(f.accepted, acceptance{IssuerID: issuerID, PitchID: pitchID})
	return nil
}

type fakeEngagementStore struct {
	investors []string
	err       error
}

func (f *fakeEngagementStore) InvestorIDs(ctx context.Context, pitchID string) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.investors, nil
}

type navigation struct {
	Path   string
	Query  url.Values
	Resume *ResumeToken
}

type fakeNavigator struct {
	mu    sync.Mutex
	moves []navigation
}

func (f *fakeNavigator) NavigateTo(path string, query url.Values, resume *ResumeToken) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.moves = append(f.moves, navigation{Path: path, Query: query, Resume: resume})
}

func (f *fakeNavigator) last() (navigation, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.moves) == 0 {
		return navigation{}, false
	}
	return f.moves[len(f.moves)-1], true
}

func issuerSession(group *types.Group) types.SessionContext {
	return types.SessionContext{
		User:       &types.User{ID: "issuer-1", Email: "issuer@example.com", Role: types.RoleIssuer},
		Group:      group,
		AuthReady:  true,
		GroupReady: group != nil,
	}
}

func adminSession() types.SessionContext {
	return types.SessionContext{
		User:       &types.User{ID: "admin-1", Email: "admin@example.com", Role: types.RoleAdmin},
		AuthReady:  true,
		GroupReady: true,
	}
}
