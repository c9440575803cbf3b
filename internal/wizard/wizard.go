// Package wizard implements the pitch creation flow: a five step state
// machine over a draft pitch record, with per-step gating, a sequenced
// asset upload pipeline and draft/publish persistence.
package wizard

import (
	"context"
	"net/url"

	"pitchdesk/pkg/types"
)

// RecordStore is the persistence collaborator for pitch records.
type RecordStore interface {
	Pitch(ctx context.Context, id string) (*types.Pitch, error)
	CreatePitch(ctx context.Context, pitch *types.Pitch) error
	UpdatePitch(ctx context.Context, id string, pitch *types.Pitch) error
	DeletePitch(ctx context.Context, id string) error
	AllocateID() string
	// Watch emits fresh copies of a draft record as it changes remotely.
	// The returned stop func detaches the feed and closes the channel.
	Watch(ctx context.Context, id string) (<-chan *types.Pitch, func())
}

// BlobStore is the binary object storage collaborator. Put streams data to
// the given key and reports coarse progress through the optional callback.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string, progress func(pct float64)) (string, error)
	Delete(ctx context.Context, key string) error
}

type Notifier interface {
	Notify(ctx context.Context, userID, title, message, actionRoute string) error
}

type ActivityLog interface {
	LogActivity(ctx context.Context, entry *types.ActivityEntry) error
}

type TermsStore interface {
	RecordAcceptance(ctx context.Context, issuerID, pitchID string) error
}

// EngagementStore reports the investors holding a vote or pledge on a
// pitch.
type EngagementStore interface {
	InvestorIDs(ctx context.Context, pitchID string) ([]string, error)
}

// Navigator receives the page transition triggered when a record is first
// created: the wizard moves from the create URL shape to the edit URL shape
// once the record id is known.
type Navigator interface {
	NavigateTo(path string, query url.Values, resume *ResumeToken)
}

// ResumeToken travels with a navigation and is consumed exactly once by the
// controller on the next Mount, landing the user back on the correct step.
type ResumeToken struct {
	ActiveStep    Step   `json:"activeStep"`
	TargetGroupID string `json:"targetGroupId,omitempty"`
	ForceReload   bool   `json:"forceReload,omitempty"`
}

// PendingFile is a binary selection waiting on the upload pipeline.
type PendingFile struct {
	Name        string
	Size        int64
	ContentType string
	Data        []byte
}

// Manifests accumulate successfully uploaded asset entries for a single
// publish/save invocation. They are merged into the persisted record only
// on a successful write; a failed invocation discards them.
type Manifests struct {
	Cover        []types.CoverAsset
	Documents    []types.DocumentAsset
	Presentation []types.DocumentAsset
}
