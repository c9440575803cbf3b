package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

type PitchStatus string

const (
	PitchStatusDraft        PitchStatus = "DRAFT"
	PitchStatusBeingChecked PitchStatus = "BEING_CHECKED"
	PitchStatusLive         PitchStatus = "LIVE"
	PitchStatusFunded       PitchStatus = "FUNDED"
	PitchStatusClosed       PitchStatus = "CLOSED"
)

// Pitch is the single persisted record the wizard builds up. While the
// status is DRAFT every pitch field may be null; the publish path requires
// the general-info and cover/deck fields to be set before the status moves.
type Pitch struct {
	ID       string      `db:"id"`
	GroupID  string      `db:"group_id"`
	IssuerID string      `db:"issuer_id"`
	Status   PitchStatus `db:"status"`

	Sector             *string    `db:"sector"`
	ProjectName        *string    `db:"project_name"`
	Description        *string    `db:"description"`
	SpecialNews        *string    `db:"special_news"`
	ExpiryDate         *time.Time `db:"expiry_date"`
	FundRequired       *int64     `db:"fund_required"`
	AmountRaised       *int64     `db:"amount_raised"`
	TotalRaise         *int64     `db:"total_raise"`
	PostMoneyValuation *int64     `db:"post_money_valuation"`

	// Rich-text presentation body as produced by the editor collaborator,
	// plus its plain-text projection.
	PresentationBody *string `db:"presentation_body"`
	PresentationText *string `db:"presentation_text"`

	CoverAssets      CoverAssets    `db:"cover_assets"`
	Documents        DocumentAssets `db:"documents"`
	PresentationDocs DocumentAssets `db:"presentation_docs"`

	CurrentStep  string     `db:"current_step"`
	SubmittedAt  *time.Time `db:"submitted_at"`
	PublishedAt  *time.Time `db:"published_at"`
	LastEditedAt *time.Time `db:"last_edited_at"`
	CreatedAt    time.Time  `db:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at"`
}

type AssetKind string

const (
	AssetKindImage    AssetKind = "IMAGE"
	AssetKindVideo    AssetKind = "VIDEO"
	AssetKindDocument AssetKind = "DOCUMENT"
)

// CoverAsset is one entry in the pitch cover history. Superseded entries are
// flagged removed rather than deleted; read sites filter on Active().
type CoverAsset struct {
	ID              string    `json:"id"`
	Kind            AssetKind `json:"kind"`
	URL             string    `json:"url"`
	StorageKey      string    `json:"storageKey,omitempty"`
	FileName        string    `json:"fileName,omitempty"`
	FileSize        string    `json:"fileSize,omitempty"`
	ExternalStorage bool      `json:"externalStorage,omitempty"`
	Removed         bool      `json:"removed,omitempty"`
}

type DocumentAsset struct {
	ID         string `json:"id"`
	URL        string `json:"url"`
	StorageKey string `json:"storageKey,omitempty"`
	FileName   string `json:"fileName,omitempty"`
	FileSize   string `json:"fileSize,omitempty"`
	Removed    bool   `json:"removed,omitempty"`
}

type CoverAssets []CoverAsset

func (a CoverAssets) Active() CoverAssets {
	out := make(CoverAssets, 0, len(a))
	for _, asset := range a {
		if !asset.Removed {
			out = append(out, asset)
		}
	}
	return out
}

func (a CoverAssets) Value() (driver.Value, error) {
	if a == nil {
		a = CoverAssets{}
	}
	return json.Marshal(a)
}

func (a *CoverAssets) Scan(src any) error {
	return scanJSON(src, a)
}

type DocumentAssets []DocumentAsset

func (a DocumentAssets) Active() DocumentAssets {
	out := make(DocumentAssets, 0, len(a))
	for _, asset := range a {
		if !asset.Removed {
			out = append(out, asset)
		}
	}
	return out
}

func (a DocumentAssets) Value() (driver.Value, error) {
	if a == nil {
		a = DocumentAssets{}
	}
	return json.Marshal(a)
}

func (a *DocumentAssets) Scan(src any) error {
	return scanJSON(src, a)
}

func scanJSON(src, dst any) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, dst)
	case string:
		return json.Unmarshal([]byte(v), dst)
	default:
		return fmt.Errorf("unsupported scan source %T", src)
	}
}
