package wizard

import "pitchdesk/pkg/types"

type Step int

const (
	StepGeneralInfo Step = iota
	StepCover
	StepDeck
	StepSupportingDocs
	StepTerms
)

var stepNames = [...]string{
	StepGeneralInfo:    "general_info",
	StepCover:          "cover",
	StepDeck:           "deck",
	StepSupportingDocs: "supporting_docs",
	StepTerms:          "terms",
}

func (s Step) String() string {
	if s < StepGeneralInfo || int(s) >= len(stepNames) {
		return "unknown"
	}
	return stepNames[s]
}

func ParseStep(v string) (Step, bool) {
	for i, name := range stepNames {
		if name == v {
			return Step(i), true
		}
	}
	return StepGeneralInfo, false
}

type UploadMode int

const (
	UploadNone UploadMode = iota
	UploadCover
	UploadSupportingDocs
	UploadPresentation
	UploadFinalizing
	UploadDone
)

func (m UploadMode) String() string {
	switch m {
	case UploadCover:
		return "cover"
	case UploadSupportingDocs:
		return "supporting_docs"
	case UploadPresentation:
		return "presentation"
	case UploadFinalizing:
		return "finalizing"
	case UploadDone:
		return "done"
	default:
		return "none"
	}
}

type CoverType string

const (
	CoverTypeNone     CoverType = ""
	CoverTypeFile     CoverType = "FILE"
	CoverTypeVideoURL CoverType = "VIDEO_URL"
)

// CheckReason identifies why a step refused to advance. CheckNone means the
// transition was allowed.
type CheckReason int

const (
	CheckNone CheckReason = iota
	CheckSectorMissing
	CheckNameMissing
	CheckDescriptionMissing
	CheckDateMissing
	CheckDateInvalid
	CheckFundInvalid
	CheckPriorRaiseMissing
	CheckSpecialNewsMissing
	CheckGroupMissing
	CheckCoverMissing
	CheckDeckMissing
	CheckTermsNotAccepted
	CheckUploadFailed
	CheckWriteFailed
)

var checkMessages = map[CheckReason]string{
	CheckNone:               "",
	CheckSectorMissing:      "choose a sector",
	CheckNameMissing:        "enter a project name",
	CheckDescriptionMissing: "enter a description",
	CheckDateMissing:        "set an expiry date",
	CheckDateInvalid:        "expiry date must be tomorrow or later",
	CheckFundInvalid:        "enter a whole number amount",
	CheckPriorRaiseMissing:  "enter the amount raised previously",
	CheckSpecialNewsMissing: "enter the special news item",
	CheckGroupMissing:       "choose a target group",
	CheckCoverMissing:       "add a cover image, file or video link",
	CheckDeckMissing:        "add a presentation document or body",
	CheckTermsNotAccepted:   "accept the terms to continue",
	CheckUploadFailed:       "a file failed to upload, please retry",
	CheckWriteFailed:        "saving failed, please retry",
}

func (r CheckReason) String() string {
	return checkMessages[r]
}

// FormFields holds the wizard's live form values as entered, before any
// projection to the persisted record. The form renderer decodes onto this
// struct.
type FormFields struct {
	Sector             string `form:"sector" json:"sector"`
	ProjectName        string `form:"project_name" json:"projectName"`
	Description        string `form:"description" json:"description"`
	SpecialNews        string `form:"special_news" json:"specialNews"`
	ExpiryDate         string `form:"expiry_date" json:"expiryDate"`
	FundRequired       string `form:"fund_required" json:"fundRequired"`
	HasRaisedBefore    string `form:"has_raised_before" json:"hasRaisedBefore"`
	AmountRaised       string `form:"amount_raised" json:"amountRaised"`
	PostMoneyValuation string `form:"post_money_valuation" json:"postMoneyValuation"`
	TargetGroupID      string `form:"target_group_id" json:"targetGroupId"`
	PresentationBody   string `form:"presentation_body" json:"presentationBody"`
	PresentationText   string `form:"presentation_text" json:"presentationText"`
	CoverVideoURL      string `form:"cover_video_url" json:"coverVideoUrl"`
	TermsAccepted      bool   `form:"terms_accepted" json:"termsAccepted"`
}

// State is the wizard's in-memory state, owned by the controller and
// mutated only under its lock.
type State struct {
	ActiveStep Step
	Fields     FormFields

	CoverType        CoverType
	CoverFile        *PendingFile
	DocumentFiles    []*PendingFile
	PresentationFile *PendingFile

	PublishCheck CheckReason

	UploadMode     UploadMode
	UploadProgress float64

	SaveProgress       bool
	ProgressBeingSaved bool

	// Record is the last-known persisted snapshot, refreshed by the draft
	// change feed. Remote updates replace it wholesale; they never touch
	// the live Fields.
	Record *types.Pitch

	// pendingID is the record id allocated for a first save, before the
	// record exists in storage.
	pendingID string
}

// SelectCoverType switches the cover branch. The two branches are mutually
// exclusive: switching clears whatever the other branch held.
func (st *State) SelectCoverType(t CoverType) {
	if st.CoverType == t {
		return
	}
	st.CoverType = t
	switch t {
	case CoverTypeFile:
		st.Fields.CoverVideoURL = ""
	case CoverTypeVideoURL:
		st.CoverFile = nil
	default:
		st.CoverFile = nil
		st.Fields.CoverVideoURL = ""
	}
}

func (st *State) clearPending() {
	st.CoverFile = nil
	st.DocumentFiles = nil
	st.PresentationFile = nil
	st.CoverType = CoverTypeNone
	st.Fields.CoverVideoURL = ""
}

func (st *State) clone() *State {
	copied := *st
	return &copied
}

// recordID resolves the id uploads and writes should address: the persisted
// record's id, or the one allocated for a first save.
func (st *State) recordID() string {
	if st.Record != nil {
		return st.Record.ID
	}
	return st.pendingID
}
