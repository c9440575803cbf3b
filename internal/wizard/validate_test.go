package wizard

import (
	"testing"
	"time"

	"pitchdesk/pkg/types"

	"github.com/stretchr/testify/assert"
)

var testNow = time.Date(2026, 8, 30, 14, 0, 0, 0, time.UTC)

func testValidator() *StepValidator {
	return &StepValidator{Now: func() time.Time { return testNow }}
}

func validGeneralFields() FormFields {
	return FormFields{
		Sector:        "fintech",
		ProjectName:   "Acme Robotics",
		Description:   "autonomous warehouse robots",
		ExpiryDate:    "2026-10-15",
		FundRequired:  "1,500,000",
		TargetGroupID: "grp-1",
	}
}

func TestCheckGeneralInfo(t *testing.T) {
	sess := issuerSession(&types.Group{ID: "grp-1"})

	tests := []struct {
		name   string
		mutate func(*FormFields)
		want   CheckReason
	}{
		{name: "all valid", mutate: func(f *FormFields) {}, want: CheckNone},
		{name: "sector sentinel", mutate: func(f *FormFields) { f.Sector = SectorUnset }, want: CheckSectorMissing},
		{name: "sector empty", mutate: func(f *FormFields) { f.Sector = "" }, want: CheckSectorMissing},
		{name: "name whitespace", mutate: func(f *FormFields) { f.ProjectName = "   " }, want: CheckNameMissing},
		{name: "description empty", mutate: func(f *FormFields) { f.Description = "" }, want: CheckDescriptionMissing},
		{name: "date empty", mutate: func(f *FormFields) { f.ExpiryDate = "" }, want: CheckDateMissing},
		{name: "date garbage", mutate: func(f *FormFields) { f.ExpiryDate = "15/10/2026" }, want: CheckDateInvalid},
		{name: "date today", mutate: func(f *FormFields) { f.ExpiryDate = "2026-08-30" }, want: CheckDateInvalid},
		{name: "date tomorrow", mutate: func(f *FormFields) { f.ExpiryDate = "2026-08-31" }, want: CheckNone},
		{name: "fund empty", mutate: func(f *FormFields) { f.FundRequired = "" }, want: CheckFundInvalid},
		{name: "fund decimal", mutate: func(f *FormFields) { f.FundRequired = "1.5" }, want: CheckFundInvalid},
		{name: "prior raise unanswered amount", mutate: func(f *FormFields) {
			f.HasRaisedBefore = "true"
		}, want: CheckPriorRaiseMissing},
		{name: "prior raise with amount", mutate: func(f *FormFields) {
			f.HasRaisedBefore = "true"
			f.AmountRaised = "50,000"
		}, want: CheckNone},
		{name: "post money invalid", mutate: func(f *FormFields) { f.PostMoneyValuation = "five" }, want: CheckFundInvalid},
		{name: "post money empty is fine", mutate: func(f *FormFields) { f.PostMoneyValuation = "" }, want: CheckNone},
		{name: "group unpicked", mutate: func(f *FormFields) { f.TargetGroupID = "" }, want: CheckGroupMissing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := validGeneralFields()
			tt.mutate(&fields)
			st := &State{ActiveStep: StepGeneralInfo, Fields: fields}
			assert.Equal(t, tt.want, testValidator().Check(st, &sess))
		})
	}
}

func TestCheckGeneralInfoSpecialNews(t *testing.T) {
	group := &types.Group{ID: "grp-1", RequiresSpecialNews: true}
	sess := issuerSession(group)

	st := &State{ActiveStep: StepGeneralInfo, Fields: validGeneralFields()}
	assert.Equal(t, CheckSpecialNewsMissing, testValidator().Check(st, &sess))

	st.Fields.SpecialNews = "Series A closed last month"
	assert.Equal(t, CheckNone, testValidator().Check(st, &sess))
}

func TestCheckGeneralInfoGroupKeptOnPublishedEdit(t *testing.T) {
	sess := issuerSession(&types.Group{ID: "grp-1"})

	fields := validGeneralFields()
	fields.TargetGroupID = ""
	st := &State{
		ActiveStep: StepGeneralInfo,
		Fields:     fields,
		Record:     &types.Pitch{ID: "p1", Status: types.PitchStatusLive},
	}

	assert.Equal(t, CheckNone, testValidator().Check(st, &sess))
}

func TestCheckCover(t *testing.T) {
	sess := issuerSession(nil)

	t.Run("nothing selected", func(t *testing.T) {
		st := &State{ActiveStep: StepCover}
		assert.Equal(t, CheckCoverMissing, testValidator().Check(st, &sess))
	})

	t.Run("file branch selected with file", func(t *testing.T) {
		st := &State{ActiveStep: StepCover, CoverType: CoverTypeFile, CoverFile: &PendingFile{Name: "cover.png"}}
		assert.Equal(t, CheckNone, testValidator().Check(st, &sess))
	})

	t.Run("file branch selected without file", func(t *testing.T) {
		st := &State{ActiveStep: StepCover, CoverType: CoverTypeFile}
		assert.Equal(t, CheckCoverMissing, testValidator().Check(st, &sess))
	})

	t.Run("video branch with url", func(t *testing.T) {
		st := &State{ActiveStep: StepCover, CoverType: CoverTypeVideoURL}
		st.Fields.CoverVideoURL = "https://vimeo.com/123"
		assert.Equal(t, CheckNone, testValidator().Check(st, &sess))
	})

	t.Run("video branch with blank url", func(t *testing.T) {
		st := &State{ActiveStep: StepCover, CoverType: CoverTypeVideoURL}
		st.Fields.CoverVideoURL = "  "
		assert.Equal(t, CheckCoverMissing, testValidator().Check(st, &sess))
	})

	t.Run("existing active cover passes", func(t *testing.T) {
		st := &State{ActiveStep: StepCover, Record: &types.Pitch{
			CoverAssets: types.CoverAssets{{ID: "a1", URL: "https://x/y.png"}},
		}}
		assert.Equal(t, CheckNone, testValidator().Check(st, &sess))
	})

	t.Run("removed covers do not count", func(t *testing.T) {
		st := &State{ActiveStep: StepCover, Record: &types.Pitch{
			CoverAssets: types.CoverAssets{{ID: "a1", Removed: true}},
		}}
		assert.Equal(t, CheckCoverMissing, testValidator().Check(st, &sess))
	})
}

func TestCheckDeck(t *testing.T) {
	t.Run("pending file passes", func(t *testing.T) {
		sess := issuerSession(nil)
		st := &State{ActiveStep: StepDeck, PresentationFile: &PendingFile{Name: "deck.pdf"}}
		assert.Equal(t, CheckNone, testValidator().Check(st, &sess))
	})

	t.Run("rich text passes for regular group", func(t *testing.T) {
		sess := issuerSession(&types.Group{ID: "grp-1"})
		st := &State{ActiveStep: StepDeck}
		st.Fields.PresentationText = "our story"
		assert.Equal(t, CheckNone, testValidator().Check(st, &sess))
	})

	t.Run("rich text rejected for one pager group", func(t *testing.T) {
		sess := issuerSession(&types.Group{ID: "grp-1", OnePager: true})
		st := &State{ActiveStep: StepDeck}
		st.Fields.PresentationText = "our story"
		assert.Equal(t, CheckDeckMissing, testValidator().Check(st, &sess))
	})

	t.Run("existing active deck passes", func(t *testing.T) {
		sess := issuerSession(nil)
		st := &State{ActiveStep: StepDeck, Record: &types.Pitch{
			PresentationDocs: types.DocumentAssets{{ID: "d1"}},
		}}
		assert.Equal(t, CheckNone, testValidator().Check(st, &sess))
	})

	t.Run("nothing at all", func(t *testing.T) {
		sess := issuerSession(nil)
		st := &State{ActiveStep: StepDeck}
		assert.Equal(t, CheckDeckMissing, testValidator().Check(st, &sess))
	})
}

func TestCheckTermsStep(t *testing.T) {
	sess := issuerSession(nil)

	st := &State{ActiveStep: StepTerms}
	assert.Equal(t, CheckTermsNotAccepted, testValidator().Check(st, &sess))

	st.Fields.TermsAccepted = true
	assert.Equal(t, CheckNone, testValidator().Check(st, &sess))
}

func TestCheckSupportingDocsAlwaysPasses(t *testing.T) {
	sess := issuerSession(nil)
	st := &State{ActiveStep: StepSupportingDocs}
	assert.Equal(t, CheckNone, testValidator().Check(st, &sess))
}
