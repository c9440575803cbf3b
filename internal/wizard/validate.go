package wizard

import (
	"strings"
	"time"

	"pitchdesk/pkg/types"
)

// StepValidator gates forward navigation. Each step has an independent
// predicate; a failing predicate yields the reason code the controller
// records as the publish check.
type StepValidator struct {
	Now func() time.Time
}

func NewStepValidator() *StepValidator {
	return &StepValidator{Now: time.Now}
}

func (v *StepValidator) Check(st *State, sess *types.SessionContext) CheckReason {
	switch st.ActiveStep {
	case StepGeneralInfo:
		return v.checkGeneralInfo(st, sess)
	case StepCover:
		return v.checkCover(st)
	case StepDeck:
		return v.checkDeck(st, sess)
	case StepSupportingDocs:
		// Nothing to gate; a non-draft record publishes from here instead
		// of advancing, which the controller handles.
		return CheckNone
	case StepTerms:
		if !st.Fields.TermsAccepted {
			return CheckTermsNotAccepted
		}
		return CheckNone
	}
	return CheckNone
}

func (v *StepValidator) checkGeneralInfo(st *State, sess *types.SessionContext) CheckReason {
	fields := st.Fields

	if fields.Sector == "" || fields.Sector == SectorUnset {
		return CheckSectorMissing
	}
	if strings.TrimSpace(fields.ProjectName) == "" {
		return CheckNameMissing
	}
	if strings.TrimSpace(fields.Description) == "" {
		return CheckDescriptionMissing
	}

	if fields.ExpiryDate == "" {
		return CheckDateMissing
	}
	expiry, err := time.Parse(expiryDateLayout, fields.ExpiryDate)
	if err != nil {
		return CheckDateInvalid
	}
	if expiry.Before(startOfTomorrow(v.now().UTC())) {
		return CheckDateInvalid
	}

	if _, ok := ParseAmount(fields.FundRequired); !ok {
		return CheckFundInvalid
	}
	if fields.HasRaisedBefore == "true" {
		if _, ok := ParseAmount(fields.AmountRaised); !ok {
			return CheckPriorRaiseMissing
		}
	}
	// Post-money valuation is optional but shares the fund reason code when
	// filled in and non-numeric.
	if fields.PostMoneyValuation != "" {
		if _, ok := ParseAmount(fields.PostMoneyValuation); !ok {
			return CheckFundInvalid
		}
	}

	if sess != nil && sess.Group != nil && sess.Group.RequiresSpecialNews &&
		strings.TrimSpace(fields.SpecialNews) == "" {
		return CheckSpecialNewsMissing
	}

	// An issuer authoring a new pitch must pick the group it raises under;
	// editing an existing non-draft record keeps its group.
	if sess.IsIssuer() && creatingNew(st) && fields.TargetGroupID == "" {
		return CheckGroupMissing
	}

	return CheckNone
}

func (v *StepValidator) checkCover(st *State) CheckReason {
	if st.Record != nil && len(st.Record.CoverAssets.Active()) > 0 {
		return CheckNone
	}
	// A selected type with empty content fails.
	switch st.CoverType {
	case CoverTypeFile:
		if st.CoverFile != nil {
			return CheckNone
		}
	case CoverTypeVideoURL:
		if strings.TrimSpace(st.Fields.CoverVideoURL) != "" {
			return CheckNone
		}
	}
	return CheckCoverMissing
}

func (v *StepValidator) checkDeck(st *State, sess *types.SessionContext) CheckReason {
	if st.PresentationFile != nil {
		return CheckNone
	}
	// One-pager groups accept only an uploaded deck file; the rich-text
	// body does not count for them.
	onePager := sess != nil && sess.Group != nil && sess.Group.OnePager
	if !onePager && strings.TrimSpace(st.Fields.PresentationText) != "" {
		return CheckNone
	}
	if st.Record != nil && len(st.Record.PresentationDocs.Active()) > 0 {
		return CheckNone
	}
	return CheckDeckMissing
}

func (v *StepValidator) now() time.Time {
	if v.Now != nil {
		return v.Now()
	}
	return time.Now()
}

func creatingNew(st *State) bool {
	return st.Record == nil || st.Record.Status == types.PitchStatusDraft
}

func startOfTomorrow(now time.Time) time.Time {
	year, month, day := now.Date()
	return time.Date(year, month, day+1, 0, 0, 0, 0, now.Location())
}
