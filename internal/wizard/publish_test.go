package wizard

import (
	"context"
	"errors"
	"testing"

	"pitchdesk/internal/utils"
	"pitchdesk/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type publishFixture struct {
	records    *fakeRecordStore
	terms      *fakeTermsStore
	activity   *fakeActivityLog
	notifier   *fakeNotifier
	engagement *fakeEngagementStore
	coord      *PublishCoordinator
}

func newPublishFixture(t *testing.T) *publishFixture {
	t.Helper()
	f := &publishFixture{
		records:    newFakeRecordStore(),
		terms:      &fakeTermsStore{},
		activity:   &fakeActivityLog{},
		notifier:   &fakeNotifier{},
		engagement: &fakeEngagementStore{},
	}
	f.coord = NewPublishCoordinator(f.records, f.terms, f.activity, f.notifier, f.engagement, testLogger())
	return f
}

func publishableState() *State {
	return &State{
		ActiveStep: StepTerms,
		Fields: FormFields{
			Sector:        "fintech",
			ProjectName:   "Acme Robotics",
			Description:   "autonomous warehouse robots",
			ExpiryDate:    "2026-10-15",
			FundRequired:  "1,500,000",
			TargetGroupID: "grp-1",
			TermsAccepted: true,
		},
	}
}

func TestPublishCreatesDraft(t *testing.T) {
	f := newPublishFixture(t)
	sess := issuerSession(&types.Group{ID: "grp-1"})

	st := publishableState()
	st.ActiveStep = StepCover

	id, err := f.coord.Publish(context.Background(), st, &sess, nil, ModeDraft)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	require.Len(t, f.records.created, 1)
	pitch := f.records.created[0]
	assert.Equal(t, types.PitchStatusDraft, pitch.Status)
	assert.Equal(t, "issuer-1", pitch.IssuerID)
	assert.Equal(t, "grp-1", pitch.GroupID)
	assert.Equal(t, "cover", pitch.CurrentStep)
	assert.Nil(t, pitch.SubmittedAt)

	// Draft saves trigger no side effects.
	assert.Empty(t, f.terms.accepted)
	assert.Empty(t, f.notifier.sent)
	assert.Empty(t, f.activity.entries)
}

func TestPublishUsesPendingID(t *testing.T) {
	f := newPublishFixture(t)
	sess := issuerSession(nil)

	st := publishableState()
	st.pendingID = "preallocated-1"

	id, err := f.coord.Publish(context.Background(), st, &sess, nil, ModeDraft)
	require.NoError(t, err)
	assert.Equal(t, "preallocated-1", id)
}

func TestPublishIssuerEntersReview(t *testing.T) {
	f := newPublishFixture(t)
	sess := issuerSession(&types.Group{ID: "grp-1"})

	id, err := f.coord.Publish(context.Background(), publishableState(), &sess, nil, ModePublish)
	require.NoError(t, err)

	pitch, err := f.records.Pitch(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, types.PitchStatusBeingChecked, pitch.Status)
	require.NotNil(t, pitch.SubmittedAt)
	assert.Nil(t, pitch.PublishedAt)

	require.Len(t, f.terms.accepted, 1)
	assert.Equal(t, acceptance{IssuerID: "issuer-1", PitchID: id}, f.terms.accepted[0])

	require.Len(t, f.notifier.sent, 1)
	assert.Equal(t, "issuer-1", f.notifier.sent[0].UserID)
	assert.Equal(t, "Pitch submitted", f.notifier.sent[0].Title)

	require.Len(t, f.activity.entries, 1)
	assert.Equal(t, types.ActivityPitchCreated, f.activity.entries[0].Kind)
	assert.Equal(t, id, f.activity.entries[0].TargetID)
}

func TestPublishAdminGoesLive(t *testing.T) {
	f := newPublishFixture(t)
	sess := adminSession()

	st := publishableState()
	st.Fields.TargetGroupID = "grp-1"

	id, err := f.coord.Publish(context.Background(), st, &sess, nil, ModePublish)
	require.NoError(t, err)

	pitch, err := f.records.Pitch(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, types.PitchStatusLive, pitch.Status)
	require.NotNil(t, pitch.PublishedAt)
	assert.Nil(t, pitch.SubmittedAt)
}

func TestPublishEditPreservesStatus(t *testing.T) {
	f := newPublishFixture(t)
	sess := issuerSession(&types.Group{ID: "grp-1"})
	f.engagement.investors = []string{"inv-1", "inv-2", "inv-1"}

	existing := &types.Pitch{
		ID:          "p1",
		IssuerID:    "issuer-1",
		GroupID:     "grp-1",
		Status:      types.PitchStatusLive,
		ProjectName: utils.StringPtr("Acme Robotics"),
		CoverAssets: types.CoverAssets{{ID: "old-cover", Removed: true}},
	}
	require.NoError(t, f.records.CreatePitch(context.Background(), existing))
	f.records.created = nil

	st := publishableState()
	st.ActiveStep = StepSupportingDocs
	st.Record = existing

	manifests := &Manifests{Cover: []types.CoverAsset{{ID: "new-cover"}}}

	id, err := f.coord.Publish(context.Background(), st, &sess, manifests, ModePublish)
	require.NoError(t, err)
	assert.Equal(t, "p1", id)

	pitch, err := f.records.Pitch(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, types.PitchStatusLive, pitch.Status)
	require.NotNil(t, pitch.LastEditedAt)

	// Tombstoned history survives; the new manifest entry is appended.
	require.Len(t, pitch.CoverAssets, 2)
	assert.Equal(t, "old-cover", pitch.CoverAssets[0].ID)
	assert.True(t, pitch.CoverAssets[0].Removed)
	assert.Equal(t, "new-cover", pitch.CoverAssets[1].ID)

	// Engaged investors notified once each despite the duplicate id.
	require.Len(t, f.notifier.sent, 2)
	assert.Equal(t, "inv-1", f.notifier.sent[0].UserID)
	assert.Equal(t, "inv-2", f.notifier.sent[1].UserID)

	require.Len(t, f.activity.entries, 1)
	assert.Equal(t, types.ActivityPitchEdited, f.activity.entries[0].Kind)
}

func TestPublishSideEffectFailuresAreSwallowed(t *testing.T) {
	f := newPublishFixture(t)
	sess := issuerSession(&types.Group{ID: "grp-1"})

	f.terms.err = errors.New("terms table gone")
	f.notifier.err = errors.New("notification service down")
	f.activity.err = errors.New("activity table gone")

	id, err := f.coord.Publish(context.Background(), publishableState(), &sess, nil, ModePublish)
	require.NoError(t, err)
	assert.NotEmpty(t, id)
}

func TestPublishWriteFailure(t *testing.T) {
	f := newPublishFixture(t)
	sess := issuerSession(&types.Group{ID: "grp-1"})
	f.records.createErr = errors.New("connection reset")

	_, err := f.coord.Publish(context.Background(), publishableState(), &sess, nil, ModePublish)
	require.Error(t, err)

	// No side effects fire when the write fails.
	assert.Empty(t, f.terms.accepted)
	assert.Empty(t, f.notifier.sent)
	assert.Empty(t, f.activity.entries)
}

func TestPublishEngagementFailureSkipsInvestorNotifications(t *testing.T) {
	f := newPublishFixture(t)
	sess := issuerSession(&types.Group{ID: "grp-1"})
	f.engagement.err = errors.New("query timeout")

	existing := &types.Pitch{ID: "p1", Status: types.PitchStatusLive, ProjectName: utils.StringPtr("Acme")}
	require.NoError(t, f.records.CreatePitch(context.Background(), existing))

	st := publishableState()
	st.Record = existing

	_, err := f.coord.Publish(context.Background(), st, &sess, nil, ModePublish)
	require.NoError(t, err)
	assert.Empty(t, f.notifier.sent)
}
