package wizard

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"pitchdesk/internal/utils"
	"pitchdesk/pkg/types"
)

type PublishMode int

const (
	ModeDraft PublishMode = iota
	ModePublish
)

// PublishCoordinator decides draft-vs-publish semantics, assembles the
// outbound record, performs the persistence write and triggers the
// post-publish side effects. Side-effect failures are logged, never
// surfaced: only the record write can fail a publish.
type PublishCoordinator struct {
	records    RecordStore
	terms      TermsStore
	activity   ActivityLog
	notifier   Notifier
	engagement EngagementStore
	logger     *logrus.Logger
}

func NewPublishCoordinator(
	records RecordStore,
	terms TermsStore,
	activity ActivityLog,
	notifier Notifier,
	engagement EngagementStore,
	logger *logrus.Logger,
) *PublishCoordinator {
	return &PublishCoordinator{
		records:    records,
		terms:      terms,
		activity:   activity,
		notifier:   notifier,
		engagement: engagement,
		logger:     logger,
	}
}

// Publish writes the record shaped from the wizard state, appending the
// uploaded manifests to the tombstone asset arrays, and returns the record
// id. The controller guarantees at most one invocation is in flight per
// wizard instance.
func (c *PublishCoordinator) Publish(ctx context.Context, st *State, sess *types.SessionContext, manifests *Manifests, mode PublishMode) (string, error) {
	outbound := SaveProjection(st.Fields, mode == ModeDraft)

	var before *types.Pitch
	creating := st.Record == nil

	var pitch *types.Pitch
	if creating {
		pitch = outbound
		pitch.ID = st.pendingID
		if pitch.ID == "" {
			pitch.ID = c.records.AllocateID()
		}
		if sess.User != nil {
			pitch.IssuerID = sess.User.ID
		}
		pitch.GroupID = st.Fields.TargetGroupID
		if pitch.GroupID == "" && sess.Group != nil {
			pitch.GroupID = sess.Group.ID
		}
	} else {
		before = st.Record
		pitch = mergePitch(before, outbound)
	}

	if manifests != nil {
		appendManifests(pitch, manifests)
	}

	wasDraft := creating || before.Status == types.PitchStatusDraft
	now := time.Now()
	switch {
	case mode == ModeDraft:
		pitch.Status = types.PitchStatusDraft
	case wasDraft && sess.IsAdmin():
		// Admin-authored pitches skip the review queue.
		pitch.Status = types.PitchStatusLive
		pitch.PublishedAt = utils.TimePtr(now)
	case wasDraft:
		pitch.Status = types.PitchStatusBeingChecked
		pitch.SubmittedAt = utils.TimePtr(now)
	default:
		// Pure edit of an already-published record: status untouched.
		pitch.Status = before.Status
		pitch.LastEditedAt = utils.TimePtr(now)
	}

	pitch.CurrentStep = st.ActiveStep.String()

	var err error
	if creating {
		err = c.records.CreatePitch(ctx, pitch)
	} else {
		err = c.records.UpdatePitch(ctx, pitch.ID, pitch)
	}
	if err != nil {
		return "", fmt.Errorf("write pitch record: %w", err)
	}

	if mode == ModePublish {
		if wasDraft {
			c.firstPublishEffects(ctx, pitch, sess)
		} else {
			c.editEffects(ctx, before, pitch, sess)
		}
	}

	return pitch.ID, nil
}

// mergePitch lays the outbound projection over a copy of the persisted
// record, keeping identity, status and the accumulated asset history.
func mergePitch(base, outbound *types.Pitch) *types.Pitch {
	merged := *base

	merged.Sector = outbound.Sector
	merged.ProjectName = outbound.ProjectName
	merged.Description = outbound.Description
	merged.SpecialNews = outbound.SpecialNews
	merged.ExpiryDate = outbound.ExpiryDate
	merged.FundRequired = outbound.FundRequired
	merged.AmountRaised = outbound.AmountRaised
	merged.TotalRaise = outbound.TotalRaise
	merged.PostMoneyValuation = outbound.PostMoneyValuation
	merged.PresentationBody = outbound.PresentationBody
	merged.PresentationText = outbound.PresentationText

	return &merged
}

// appendManifests adds uploaded entries to the asset arrays. Entries are
// appended, never replacing what is there: removed entries stay for audit
// and read sites filter them out.
func appendManifests(pitch *types.Pitch, manifests *Manifests) {
	pitch.CoverAssets = append(pitch.CoverAssets, manifests.Cover...)
	pitch.Documents = append(pitch.Documents, manifests.Documents...)
	pitch.PresentationDocs = append(pitch.PresentationDocs, manifests.Presentation...)
}

func (c *PublishCoordinator) firstPublishEffects(ctx context.Context, pitch *types.Pitch, sess *types.SessionContext) {
	if err := c.terms.RecordAcceptance(ctx, pitch.IssuerID, pitch.ID); err != nil {
		c.logger.WithError(err).WithField("pitch_id", pitch.ID).Warn("failed to record terms acceptance")
	}

	name := utils.PtrString(pitch.ProjectName)
	if err := c.notifier.Notify(ctx, pitch.IssuerID,
		"Pitch submitted",
		fmt.Sprintf("Your pitch %q has been submitted.", name),
		"/pitch/"+pitch.ID,
	); err != nil {
		c.logger.WithError(err).WithField("pitch_id", pitch.ID).Warn("failed to send submission confirmation")
	}

	c.logActivity(ctx, types.ActivityPitchCreated, sess, pitch.ID,
		fmt.Sprintf("pitch %q created", name),
		&types.ActivitySnapshot{After: pitch})
}

func (c *PublishCoordinator) editEffects(ctx context.Context, before, after *types.Pitch, sess *types.SessionContext) {
	name := utils.PtrString(after.ProjectName)

	c.logActivity(ctx, types.ActivityPitchEdited, sess, after.ID,
		fmt.Sprintf("pitch %q edited", name),
		&types.ActivitySnapshot{Before: before, After: after})

	investors, err := c.engagement.InvestorIDs(ctx, after.ID)
	if err != nil {
		c.logger.WithError(err).WithField("pitch_id", after.ID).Warn("failed to load engaged investors")
		return
	}

	seen := make(map[string]struct{}, len(investors))
	for _, investorID := range investors {
		if _, ok := seen[investorID]; ok {
			continue
		}
		seen[investorID] = struct{}{}

		err := c.notifier.Notify(ctx, investorID,
			"Pitch updated",
			fmt.Sprintf("The pitch %q you follow has been updated.", name),
			"/pitch/"+after.ID,
		)
		if err != nil {
			// Best effort: delivery failures never fail the publish.
			c.logger.WithError(err).WithFields(logrus.Fields{
				"pitch_id":    after.ID,
				"investor_id": investorID,
			}).Warn("failed to notify investor")
		}
	}
}

func (c *PublishCoordinator) logActivity(ctx context.Context, kind types.ActivityKind, sess *types.SessionContext, targetID, summary string, snapshot *types.ActivitySnapshot) {
	data, err := json.Marshal(snapshot)
	if err != nil {
		c.logger.WithError(err).Warn("failed to marshal activity snapshot")
		data = nil
	}

	actorID := ""
	if sess.User != nil {
		actorID = sess.User.ID
	}

	entry := &types.ActivityEntry{
		Kind:     kind,
		ActorID:  actorID,
		TargetID: targetID,
		Summary:  summary,
		Snapshot: data,
	}
	if err := c.activity.LogActivity(ctx, entry); err != nil {
		c.logger.WithError(err).WithField("pitch_id", targetID).Warn("failed to log activity")
	}
}
