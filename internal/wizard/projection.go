package wizard

import (
	"time"

	"pitchdesk/internal/utils"
	"pitchdesk/pkg/types"
)

// SectorUnset is the sentinel the sector select renders before a choice is
// made.
const SectorUnset = "-"

const expiryDateLayout = "2006-01-02"

// LoadProjection maps a persisted record onto wizard form fields: present
// values pass through (numerics formatted with grouping separators), absent
// values become type-appropriate empty defaults. A nil record yields the
// fresh-wizard defaults.
func LoadProjection(pitch *types.Pitch) FormFields {
	fields := FormFields{Sector: SectorUnset}
	if pitch == nil {
		return fields
	}

	if pitch.Sector != nil {
		fields.Sector = *pitch.Sector
	}
	fields.ProjectName = utils.PtrString(pitch.ProjectName)
	fields.Description = utils.PtrString(pitch.Description)
	fields.SpecialNews = utils.PtrString(pitch.SpecialNews)
	if pitch.ExpiryDate != nil {
		fields.ExpiryDate = pitch.ExpiryDate.Format(expiryDateLayout)
	}
	if pitch.FundRequired != nil {
		fields.FundRequired = FormatAmount(*pitch.FundRequired)
	}
	if pitch.AmountRaised != nil {
		fields.AmountRaised = FormatAmount(*pitch.AmountRaised)
		if *pitch.AmountRaised > 0 {
			fields.HasRaisedBefore = "true"
		} else {
			fields.HasRaisedBefore = "false"
		}
	}
	if pitch.PostMoneyValuation != nil {
		fields.PostMoneyValuation = FormatAmount(*pitch.PostMoneyValuation)
	}
	fields.PresentationBody = utils.PtrString(pitch.PresentationBody)
	fields.PresentationText = utils.PtrString(pitch.PresentationText)
	fields.TargetGroupID = pitch.GroupID

	return fields
}

// SaveProjection shapes form fields into the outbound record. A draft save
// writes nil for every empty or sentinel input, an explicit unset that is
// distinguishable from not-yet-loaded; a publish writes the raw values
// directly, the validator having already rejected absent required fields.
// Total raise is computed, never stored verbatim.
func SaveProjection(fields FormFields, draftSave bool) *types.Pitch {
	pitch := new(types.Pitch)

	if draftSave {
		pitch.Sector = sentinelToNil(fields.Sector, SectorUnset)
		pitch.ProjectName = emptyToNil(fields.ProjectName)
		pitch.Description = emptyToNil(fields.Description)
		pitch.SpecialNews = emptyToNil(fields.SpecialNews)
		pitch.PresentationBody = emptyToNil(fields.PresentationBody)
		pitch.PresentationText = emptyToNil(fields.PresentationText)
	} else {
		pitch.Sector = utils.StringPtr(fields.Sector)
		pitch.ProjectName = utils.StringPtr(fields.ProjectName)
		pitch.Description = utils.StringPtr(fields.Description)
		pitch.SpecialNews = utils.StringPtr(fields.SpecialNews)
		pitch.PresentationBody = utils.StringPtr(fields.PresentationBody)
		pitch.PresentationText = utils.StringPtr(fields.PresentationText)
	}

	if expiry, err := time.Parse(expiryDateLayout, fields.ExpiryDate); err == nil {
		pitch.ExpiryDate = utils.TimePtr(expiry)
	}

	priorRaise := fields.HasRaisedBefore == "true"
	if priorRaise {
		if raised, ok := ParseAmount(fields.AmountRaised); ok {
			pitch.AmountRaised = utils.Int64Ptr(raised)
		}
	}

	if fund, ok := ParseAmount(fields.FundRequired); ok {
		pitch.FundRequired = utils.Int64Ptr(fund)
		total := fund
		if priorRaise && pitch.AmountRaised != nil {
			total += *pitch.AmountRaised
		}
		pitch.TotalRaise = utils.Int64Ptr(total)
	}

	if valuation, ok := ParseAmount(fields.PostMoneyValuation); ok {
		pitch.PostMoneyValuation = utils.Int64Ptr(valuation)
	}

	return pitch
}

func emptyToNil(v string) *string {
	if v == "" {
		return nil
	}
	return utils.StringPtr(v)
}

func sentinelToNil(v, sentinel string) *string {
	if v == "" || v == sentinel {
		return nil
	}
	return utils.StringPtr(v)
}
