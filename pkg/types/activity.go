package types

import "time"

type ActivityKind string

const (
	ActivityPitchCreated ActivityKind = "pitch_created"
	ActivityPitchEdited  ActivityKind = "pitch_edited"
	ActivityPitchDeleted ActivityKind = "pitch_deleted"
)

// ActivityEntry is one row in the append-only activity log. For edits the
// snapshot holds before/after copies of the record.
type ActivityEntry struct {
	ID        string       `db:"id"`
	Kind      ActivityKind `db:"kind"`
	ActorID   string       `db:"actor_id"`
	TargetID  string       `db:"target_id"`
	Summary   string       `db:"summary"`
	Snapshot  []byte       `db:"snapshot"`
	CreatedAt time.Time    `db:"created_at"`
}

type ActivitySnapshot struct {
	Before *Pitch `json:"before,omitempty"`
	After  *Pitch `json:"after,omitempty"`
}

type Notification struct {
	ID          string    `db:"id"`
	UserID      string    `db:"user_id"`
	Title       string    `db:"title"`
	Message     string    `db:"message"`
	ActionRoute string    `db:"action_route"`
	ReadAt      *time.Time `db:"read_at"`
	CreatedAt   time.Time `db:"created_at"`
}

// TermsAcceptance is the audit row written the first time a pitch leaves
// draft status, keyed by issuer + pitch.
type TermsAcceptance struct {
	ID         string    `db:"id"`
	IssuerID   string    `db:"issuer_id"`
	PitchID    string    `db:"pitch_id"`
	AcceptedAt time.Time `db:"accepted_at"`
}

type Sector struct {
	ID           string    `db:"id"`
	Slug         string    `db:"slug"`
	Name         string    `db:"name"`
	DisplayOrder int       `db:"display_order"`
	IsActive     bool      `db:"is_active"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}
