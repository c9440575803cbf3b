package wizard

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"github.com/sirupsen/logrus"

	"pitchdesk/internal/utils"
	"pitchdesk/pkg/types"
)

// Deps bundles the collaborators a Controller needs.
type Deps struct {
	Records   RecordStore
	Validator *StepValidator
	Uploads   *UploadPipeline
	Publisher *PublishCoordinator
	Nav       Navigator
	Logger    *logrus.Logger
}

// Controller is the single entry point for wizard events. It owns the
// wizard state; every transition happens under its lock, which is released
// across network calls so completions re-enter cleanly.
type Controller struct {
	mu sync.Mutex

	logger    *logrus.Logger
	records   RecordStore
	validator *StepValidator
	uploads   *UploadPipeline
	publisher *PublishCoordinator
	nav       Navigator

	sess  types.SessionContext
	state State

	stopWatch func()
	done      bool
}

func New(deps Deps, sess types.SessionContext) *Controller {
	validator := deps.Validator
	if validator == nil {
		validator = NewStepValidator()
	}

	return &Controller{
		logger:    deps.Logger,
		records:   deps.Records,
		validator: validator,
		uploads:   deps.Uploads,
		publisher: deps.Publisher,
		nav:       deps.Nav,
		sess:      sess,
		state:     State{Fields: LoadProjection(nil)},
	}
}

// UpdateSession refreshes the identity/group context. The controller never
// reaches into shared stores for it.
func (c *Controller) UpdateSession(sess types.SessionContext) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sess = sess
}

// Mount loads an existing record into wizard state and, for drafts,
// attaches the change listener. A resume token from a prior navigation is
// consumed here and wins over the record's saved step.
func (c *Controller) Mount(ctx context.Context, recordID string, resume *ResumeToken) error {
	if recordID != "" {
		pitch, err := c.records.Pitch(ctx, recordID)
		if err != nil {
			// Degraded but non-crashing: the wizard renders empty and the
			// surface shows a generic problem-loading message.
			c.logger.WithError(err).WithField("pitch_id", recordID).Error("failed to load pitch record")
			return fmt.Errorf("load pitch %s: %w", recordID, err)
		}

		c.mu.Lock()
		c.state.Record = pitch
		c.state.Fields = LoadProjection(pitch)
		if step, ok := ParseStep(pitch.CurrentStep); ok {
			c.state.ActiveStep = step
		}
		c.mu.Unlock()

		if pitch.Status == types.PitchStatusDraft {
			c.attachWatch(ctx, recordID)
		}
	}

	if resume != nil {
		c.mu.Lock()
		c.state.ActiveStep = resume.ActiveStep
		if resume.TargetGroupID != "" {
			c.state.Fields.TargetGroupID = resume.TargetGroupID
		}
		c.mu.Unlock()
	}

	return nil
}

// Unmount detaches the change listener. Safe to call repeatedly.
func (c *Controller) Unmount() {
	c.detachWatch()
}

func (c *Controller) attachWatch(ctx context.Context, recordID string) {
	updates, stop := c.records.Watch(ctx, recordID)

	c.mu.Lock()
	c.stopWatch = stop
	c.mu.Unlock()

	go func() {
		for pitch := range updates {
			// Remote edits refresh the diffing snapshot only; in-progress
			// form values always win for live fields.
			c.mu.Lock()
			c.state.Record = pitch
			c.mu.Unlock()
		}
	}()
}

func (c *Controller) detachWatch() {
	c.mu.Lock()
	stop := c.stopWatch
	c.stopWatch = nil
	c.mu.Unlock()

	if stop != nil {
		stop()
	}
}

// Next validates the active step and advances on success. A validation
// failure is local state, not an error: the reason lands in PublishCheck
// and the step stays put.
func (c *Controller) Next(ctx context.Context) error {
	c.mu.Lock()
	reason := c.validator.Check(&c.state, &c.sess)
	if reason != CheckNone {
		c.state.PublishCheck = reason
		c.mu.Unlock()
		return nil
	}
	c.state.PublishCheck = CheckNone
	step := c.state.ActiveStep
	creating := c.state.Record == nil
	nonDraft := c.state.Record != nil && c.state.Record.Status != types.PitchStatusDraft
	c.mu.Unlock()

	switch {
	case step == StepGeneralInfo && creating:
		// Saving the record for the first time requires a page transition
		// from the create URL shape into edit mode; the resume token lands
		// the user on the cover step afterwards.
		return c.saveAndRoute(ctx)
	case step == StepSupportingDocs && nonDraft:
		// Non-draft records have no terms step to revisit: advancing from
		// here publishes the edit immediately.
		_, err := c.Publish(ctx)
		return err
	case step == StepTerms:
		// Terminal step; the publish action leaves it, Next does not.
		return nil
	}

	c.mu.Lock()
	if c.state.ActiveStep < StepTerms {
		c.state.ActiveStep++
	}
	c.mu.Unlock()
	return nil
}

// Back navigates backward unconditionally; it is disabled at the first
// step.
func (c *Controller) Back() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.ActiveStep > StepGeneralInfo {
		c.state.ActiveStep--
		c.state.PublishCheck = CheckNone
	}
}

// SetFields replaces the live form values.
func (c *Controller) SetFields(fields FormFields) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Fields = fields
}

func (c *Controller) Fields() FormFields {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Fields
}

func (c *Controller) SelectCoverType(t CoverType) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.SelectCoverType(t)
}

func (c *Controller) SetCoverFile(file *PendingFile) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.SelectCoverType(CoverTypeFile)
	c.state.CoverFile = file
}

func (c *Controller) SetCoverVideoURL(videoURL string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.SelectCoverType(CoverTypeVideoURL)
	c.state.Fields.CoverVideoURL = videoURL
}

func (c *Controller) AddDocuments(files ...*PendingFile) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.DocumentFiles = append(c.state.DocumentFiles, files...)
}

func (c *Controller) SetPresentationFile(file *PendingFile) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.PresentationFile = file
}

// RemoveCoverAsset tombstones a previously uploaded cover entry. The flag
// is persisted on the next save; the entry itself stays for audit.
func (c *Controller) RemoveCoverAsset(assetID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Record == nil {
		return
	}
	for i := range c.state.Record.CoverAssets {
		if c.state.Record.CoverAssets[i].ID == assetID {
			c.state.Record.CoverAssets[i].Removed = true
		}
	}
}

func (c *Controller) RemoveDocumentAsset(assetID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Record == nil {
		return
	}
	removeDocument(c.state.Record.Documents, assetID)
	removeDocument(c.state.Record.PresentationDocs, assetID)
}

func removeDocument(assets types.DocumentAssets, assetID string) {
	for i := range assets {
		if assets[i].ID == assetID {
			assets[i].Removed = true
		}
	}
}

// SaveDraft persists the current state as a draft. On a first save it also
// navigates to the edit view addressed by the newly known record id.
func (c *Controller) SaveDraft(ctx context.Context) (string, error) {
	c.mu.Lock()
	created := c.state.Record == nil
	step := c.state.ActiveStep
	c.mu.Unlock()

	id, err := c.save(ctx, ModeDraft)
	if err != nil {
		return "", err
	}

	if created && c.nav != nil {
		c.navigateToEdit(id, step)
	}
	return id, nil
}

// Publish runs the upload pipeline then the publish coordinator. The
// wizard is done once it returns successfully from the terms step.
func (c *Controller) Publish(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.state.ActiveStep == StepTerms && !c.state.Fields.TermsAccepted {
		c.state.PublishCheck = CheckTermsNotAccepted
		c.mu.Unlock()
		return "", fmt.Errorf("terms not accepted")
	}
	c.mu.Unlock()

	// Publishing a draft no longer needs the live-update feed; detach it
	// before anything irreversible starts.
	c.detachWatch()

	id, err := c.save(ctx, ModePublish)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	c.done = true
	c.mu.Unlock()
	return id, nil
}

// save is the single in-flight-guarded persistence path shared by draft
// saves and publishes.
func (c *Controller) save(ctx context.Context, mode PublishMode) (string, error) {
	c.mu.Lock()
	if c.state.ProgressBeingSaved {
		c.mu.Unlock()
		return "", types.ErrSaveInFlight
	}
	c.state.ProgressBeingSaved = true
	c.state.SaveProgress = mode == ModeDraft
	if c.state.Record == nil && c.state.pendingID == "" {
		c.state.pendingID = c.records.AllocateID()
	}
	snapshot := c.state.clone()
	sess := c.sess
	c.mu.Unlock()

	manifests, err := c.uploads.Run(ctx, snapshot.recordID(), snapshot, c.reportUpload)
	if err != nil {
		c.logger.WithError(err).WithField("pitch_id", snapshot.recordID()).Error("upload pipeline failed")
		c.resetAfterFailure(CheckUploadFailed)
		return "", err
	}

	id, err := c.publisher.Publish(ctx, snapshot, &sess, manifests, mode)
	if err != nil {
		c.logger.WithError(err).WithField("pitch_id", snapshot.recordID()).Error("pitch write failed")
		c.resetAfterFailure(CheckWriteFailed)
		return "", err
	}

	c.mu.Lock()
	c.state.clearPending()
	c.state.pendingID = ""
	c.state.ProgressBeingSaved = false
	c.state.SaveProgress = false
	c.state.UploadMode = UploadDone
	c.state.UploadProgress = 100
	c.mu.Unlock()

	if mode == ModeDraft {
		c.refreshRecord(ctx, id)
	}
	return id, nil
}

// resetAfterFailure returns the wizard to idle so the user can retry. The
// reason is recorded for the retry surface; completed uploads from earlier
// phases stay in blob storage as accepted orphans.
func (c *Controller) resetAfterFailure(reason CheckReason) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.UploadMode = UploadNone
	c.state.UploadProgress = 0
	c.state.ProgressBeingSaved = false
	c.state.SaveProgress = false
	if reason != CheckNone {
		c.state.PublishCheck = reason
	}
}

// refreshRecord reloads the persisted draft so subsequent edits diff
// against what storage actually holds.
func (c *Controller) refreshRecord(ctx context.Context, id string) {
	pitch, err := c.records.Pitch(ctx, id)
	if err != nil {
		c.logger.WithError(err).WithField("pitch_id", id).Warn("failed to refresh pitch snapshot after save")
		return
	}
	c.mu.Lock()
	c.state.Record = pitch
	c.mu.Unlock()
}

func (c *Controller) saveAndRoute(ctx context.Context) error {
	c.mu.Lock()
	targetGroup := c.state.Fields.TargetGroupID
	c.mu.Unlock()

	id, err := c.save(ctx, ModeDraft)
	if err != nil {
		return err
	}

	if c.nav != nil {
		query := url.Values{}
		query.Set("pitch", id)
		c.nav.NavigateTo("/pitch/"+id+"/wizard", query, &ResumeToken{
			ActiveStep:    StepCover,
			TargetGroupID: targetGroup,
			ForceReload:   true,
		})
	}
	return nil
}

func (c *Controller) navigateToEdit(id string, step Step) {
	query := url.Values{}
	query.Set("pitch", id)
	c.nav.NavigateTo("/pitch/"+id+"/wizard", query, &ResumeToken{ActiveStep: step})
}

// DeleteDraft removes the draft record. Local state resets only once
// storage confirms the delete.
func (c *Controller) DeleteDraft(ctx context.Context) error {
	c.mu.Lock()
	if c.state.Record == nil || c.state.Record.Status != types.PitchStatusDraft {
		c.mu.Unlock()
		return fmt.Errorf("no draft to delete")
	}
	id := c.state.Record.ID
	c.mu.Unlock()

	if err := c.records.DeletePitch(ctx, id); err != nil {
		return utils.WrapError(err, "delete draft")
	}

	c.detachWatch()

	c.mu.Lock()
	c.state = State{Fields: LoadProjection(nil)}
	c.mu.Unlock()
	return nil
}

func (c *Controller) reportUpload(mode UploadMode, pct float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.UploadMode = mode
	c.state.UploadProgress = pct
}

// Snapshot returns a copy of the current wizard state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) Done() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done
}
