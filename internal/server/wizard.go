package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"sync"

	"pitchdesk/internal/wizard"
	"pitchdesk/pkg/types"

	"github.com/alexedwards/flow"
)

const newPitchKey = "new"

// maxUploadBytes caps a single multipart upload request.
const maxUploadBytes = 64 << 20

// redirectSink captures the page transition a wizard controller requests
// when a record is first created. The handler drains it into the response
// so the caller can follow the redirect and carry the resume token along.
type redirectSink struct {
	mu       sync.Mutex
	path     string
	query    url.Values
	resume   *wizard.ResumeToken
	captured bool
}

func (r *redirectSink) NavigateTo(path string, query url.Values, resume *wizard.ResumeToken) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.path = path
	r.query = query
	r.resume = resume
	r.captured = true
}

func (r *redirectSink) pending() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.captured
}

func (r *redirectSink) drain() (string, *wizard.ResumeToken, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.captured {
		return "", nil, false
	}
	path := r.path
	if len(r.query) > 0 {
		path += "?" + r.query.Encode()
	}
	resume := r.resume
	r.path = ""
	r.query = nil
	r.resume = nil
	r.captured = false
	return path, resume, true
}

type wizardSession struct {
	ctl *wizard.Controller
	nav *redirectSink
}

// wizardSessions holds the live wizard controllers, one per user and pitch.
type wizardSessions struct {
	mu       sync.Mutex
	sessions map[string]*wizardSession
}

func newWizardSessions() *wizardSessions {
	return &wizardSessions{sessions: make(map[string]*wizardSession)}
}

func sessionKey(userID, pitchKey string) string {
	return userID + "/" + pitchKey
}

func (ws *wizardSessions) lookup(userID, pitchKey string) (*wizardSession, bool) {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	sess, ok := ws.sessions[sessionKey(userID, pitchKey)]
	return sess, ok
}

func (ws *wizardSessions) put(userID, pitchKey string, sess *wizardSession) {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	ws.sessions[sessionKey(userID, pitchKey)] = sess
}

func (ws *wizardSessions) drop(userID, pitchKey string) {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	if sess, ok := ws.sessions[sessionKey(userID, pitchKey)]; ok {
		sess.ctl.Unmount()
		delete(ws.sessions, sessionKey(userID, pitchKey))
	}
}

// sessionFromRequest builds the wizard's identity/group context from the
// authenticated claims on the request context.
func (s *Service) sessionFromRequest(r *http.Request) (types.SessionContext, error) {
	ctx := r.Context()

	userID, err := s.userIDFromContext(ctx)
	if err != nil {
		return types.SessionContext{}, err
	}

	email, _ := ctx.Value(contextKeyEmail).(string)
	role, _ := ctx.Value(contextKeyRole).(string)
	groupIDs, _ := ctx.Value(contextKeyGroups).([]string)

	sess := types.SessionContext{
		User: &types.User{
			ID:       userID,
			Email:    email,
			Role:     types.Role(role),
			GroupIDs: groupIDs,
		},
		AuthReady: true,
	}

	// The group context can come from an explicit query/form value, falling
	// back to the caller's first group membership.
	groupID := r.FormValue("group")
	if groupID == "" && len(groupIDs) > 0 {
		groupID = groupIDs[0]
	}
	if groupID != "" {
		group, err := s.groupRepo.Group(ctx, groupID)
		if err != nil {
			if !errors.Is(err, types.ErrGroupNotFound) {
				return types.SessionContext{}, err
			}
			s.logger.WithField("group_id", groupID).Warn("unknown group in session context")
		} else {
			sess.Group = group
			sess.GroupReady = true
		}
	}
	if sess.User.Role == types.RoleAdmin {
		// Admins operate across groups; the wizard does not block on one.
		sess.GroupReady = true
	}

	return sess, nil
}

// controllerFor returns the wizard controller addressed by the request,
// creating and mounting one when the user has no live session for the pitch.
func (s *Service) controllerFor(r *http.Request, resume *wizard.ResumeToken) (*wizardSession, error) {
	userID, err := s.userIDFromContext(r.Context())
	if err != nil {
		return nil, err
	}
	pitchKey := flow.Param(r.Context(), "pitchID")

	if sess, ok := s.wizards.lookup(userID, pitchKey); ok {
		authSess, err := s.sessionFromRequest(r)
		if err != nil {
			return nil, err
		}
		sess.ctl.UpdateSession(authSess)
		return sess, nil
	}

	authSess, err := s.sessionFromRequest(r)
	if err != nil {
		return nil, err
	}

	nav := &redirectSink{}
	ctl := wizard.New(wizard.Deps{
		Records: s.pitchRepo,
		Uploads: wizard.NewUploadPipeline(s.assets, s.logger),
		Publisher: wizard.NewPublishCoordinator(
			s.pitchRepo,
			s.termsRepo,
			s.activityRepo,
			s.notificationRepo,
			s.engagementRepo,
			s.logger,
		),
		Nav:    nav,
		Logger: s.logger,
	}, authSess)

	recordID := pitchKey
	if pitchKey == newPitchKey {
		recordID = ""
	}
	// The watch feed outlives the request; it stops with the controller.
	if err := ctl.Mount(context.WithoutCancel(r.Context()), recordID, resume); err != nil {
		return nil, err
	}

	sess := &wizardSession{ctl: ctl, nav: nav}
	s.wizards.put(userID, pitchKey, sess)
	return sess, nil
}

// wizardView is the JSON shape the wizard surface renders from.
type wizardView struct {
	ActiveStep     string             `json:"activeStep"`
	Fields         wizard.FormFields  `json:"fields"`
	CoverType      string             `json:"coverType"`
	PublishCheck   string             `json:"publishCheck,omitempty"`
	UploadMode     string             `json:"uploadMode"`
	UploadProgress float64            `json:"uploadProgress"`
	Saving         bool               `json:"saving"`
	Done           bool               `json:"done"`
	Record         *types.Pitch       `json:"record,omitempty"`
	Redirect       string             `json:"redirect,omitempty"`
	Resume         string             `json:"resume,omitempty"`
	PendingCover   string             `json:"pendingCover,omitempty"`
	PendingDocs    []string           `json:"pendingDocs,omitempty"`
	PendingDeck    string             `json:"pendingDeck,omitempty"`
}

func (s *Service) renderWizard(w http.ResponseWriter, sess *wizardSession) {
	st := sess.ctl.Snapshot()

	view := wizardView{
		ActiveStep:     st.ActiveStep.String(),
		Fields:         st.Fields,
		CoverType:      string(st.CoverType),
		PublishCheck:   st.PublishCheck.String(),
		UploadMode:     st.UploadMode.String(),
		UploadProgress: st.UploadProgress,
		Saving:         st.ProgressBeingSaved,
		Done:           sess.ctl.Done(),
		Record:         st.Record,
	}

	if st.CoverFile != nil {
		view.PendingCover = st.CoverFile.Name
	}
	for _, f := range st.DocumentFiles {
		view.PendingDocs = append(view.PendingDocs, f.Name)
	}
	if st.PresentationFile != nil {
		view.PendingDeck = st.PresentationFile.Name
	}

	if path, resume, ok := sess.nav.drain(); ok {
		view.Redirect = path
		if resume != nil {
			view.Resume = encodeResumeToken(resume)
		}
	}

	s.writeJSON(w, http.StatusOK, view)
}

func encodeResumeToken(token *wizard.ResumeToken) string {
	data, err := json.Marshal(token)
	if err != nil {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(data)
}

func decodeResumeToken(raw string) *wizard.ResumeToken {
	if raw == "" {
		return nil
	}
	data, err := base64.RawURLEncoding.DecodeString(raw)
	if err != nil {
		return nil
	}
	var token wizard.ResumeToken
	if err := json.Unmarshal(data, &token); err != nil {
		return nil
	}
	return &token
}

func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Service) handleGetSectors(w http.ResponseWriter, r *http.Request) {
	sectors, err := s.sectorRepo.AllSectors(r.Context())
	if err != nil {
		s.internalError(w, err, "failed to fetch sectors")
		return
	}
	s.writeJSON(w, http.StatusOK, sectors)
}

func (s *Service) handleGetGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := s.groupRepo.AllGroups(r.Context())
	if err != nil {
		s.internalError(w, err, "failed to fetch groups")
		return
	}
	s.writeJSON(w, http.StatusOK, groups)
}

// handleGetWizard mounts (or resumes) the wizard for the addressed pitch.
// A resume query parameter carries the token issued by a prior redirect.
func (s *Service) handleGetWizard(w http.ResponseWriter, r *http.Request) {
	resume := decodeResumeToken(r.URL.Query().Get("resume"))

	sess, err := s.controllerFor(r, resume)
	if err != nil {
		s.internalError(w, err, "failed to load wizard")
		return
	}

	s.renderWizard(w, sess)
}

func (s *Service) handlePostFields(w http.ResponseWriter, r *http.Request) {
	sess, err := s.controllerFor(r, nil)
	if err != nil {
		s.internalError(w, err, "failed to load wizard")
		return
	}

	if err := r.ParseForm(); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid form body")
		return
	}

	// Decode over the current values so a partial form update does not blank
	// untouched fields.
	fields := sess.ctl.Fields()
	if err := decoder.Decode(&fields, r.PostForm); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid form values")
		return
	}

	// A chosen sector must exist in the catalog; the unset sentinel passes
	// through so the step validator can report it as missing instead.
	if fields.Sector != "" && fields.Sector != wizard.SectorUnset {
		sector, err := s.sectorRepo.SectorBySlug(r.Context(), fields.Sector)
		if err != nil {
			s.internalError(w, err, "failed to check sector")
			return
		}
		if sector == nil {
			s.writeError(w, http.StatusBadRequest, "unknown sector")
			return
		}
	}

	sess.ctl.SetFields(fields)

	s.renderWizard(w, sess)
}

func (s *Service) handlePostNext(w http.ResponseWriter, r *http.Request) {
	sess, err := s.controllerFor(r, nil)
	if err != nil {
		s.internalError(w, err, "failed to load wizard")
		return
	}

	if err := sess.ctl.Next(r.Context()); err != nil {
		if errors.Is(err, types.ErrSaveInFlight) {
			s.writeError(w, http.StatusConflict, "a save is already in progress")
			return
		}
		s.internalError(w, err, "failed to advance wizard")
		return
	}

	// A successful first save retires the create-mode session; the follow-up
	// mount at the edit URL consumes the resume token.
	s.retireIfRedirected(r, sess)

	s.renderWizard(w, sess)
}

func (s *Service) handlePostBack(w http.ResponseWriter, r *http.Request) {
	sess, err := s.controllerFor(r, nil)
	if err != nil {
		s.internalError(w, err, "failed to load wizard")
		return
	}

	sess.ctl.Back()
	s.renderWizard(w, sess)
}

func (s *Service) handlePostCover(w http.ResponseWriter, r *http.Request) {
	sess, err := s.controllerFor(r, nil)
	if err != nil {
		s.internalError(w, err, "failed to load wizard")
		return
	}

	if videoURL := r.FormValue("video_url"); videoURL != "" {
		sess.ctl.SetCoverVideoURL(videoURL)
		s.renderWizard(w, sess)
		return
	}

	file, err := singleUpload(r, "cover")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "cover file or video_url required")
		return
	}
	sess.ctl.SetCoverFile(file)

	s.renderWizard(w, sess)
}

func (s *Service) handlePostDocuments(w http.ResponseWriter, r *http.Request) {
	sess, err := s.controllerFor(r, nil)
	if err != nil {
		s.internalError(w, err, "failed to load wizard")
		return
	}

	files, err := multiUpload(r, "documents")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "at least one document is required")
		return
	}
	sess.ctl.AddDocuments(files...)

	s.renderWizard(w, sess)
}

func (s *Service) handlePostPresentation(w http.ResponseWriter, r *http.Request) {
	sess, err := s.controllerFor(r, nil)
	if err != nil {
		s.internalError(w, err, "failed to load wizard")
		return
	}

	file, err := singleUpload(r, "presentation")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "presentation file required")
		return
	}
	sess.ctl.SetPresentationFile(file)

	s.renderWizard(w, sess)
}

func (s *Service) handlePostRemoveAsset(w http.ResponseWriter, r *http.Request) {
	sess, err := s.controllerFor(r, nil)
	if err != nil {
		s.internalError(w, err, "failed to load wizard")
		return
	}

	assetID := flow.Param(r.Context(), "assetID")
	sess.ctl.RemoveCoverAsset(assetID)
	sess.ctl.RemoveDocumentAsset(assetID)

	s.renderWizard(w, sess)
}

func (s *Service) handlePostSave(w http.ResponseWriter, r *http.Request) {
	sess, err := s.controllerFor(r, nil)
	if err != nil {
		s.internalError(w, err, "failed to load wizard")
		return
	}

	if _, err := sess.ctl.SaveDraft(r.Context()); err != nil {
		if errors.Is(err, types.ErrSaveInFlight) {
			s.writeError(w, http.StatusConflict, "a save is already in progress")
			return
		}
		s.internalError(w, err, "failed to save draft")
		return
	}

	s.retireIfRedirected(r, sess)

	s.renderWizard(w, sess)
}

func (s *Service) handlePostPublish(w http.ResponseWriter, r *http.Request) {
	sess, err := s.controllerFor(r, nil)
	if err != nil {
		s.internalError(w, err, "failed to load wizard")
		return
	}

	id, err := sess.ctl.Publish(r.Context())
	if err != nil {
		if errors.Is(err, types.ErrSaveInFlight) {
			s.writeError(w, http.StatusConflict, "a save is already in progress")
			return
		}
		// Validation refusals, upload failures and write failures all land in
		// the state's publish check; surface the current view rather than a
		// bare error so the caller renders the reason.
		s.logger.WithError(err).Warn("publish refused")
		s.renderWizard(w, sess)
		return
	}

	userID, _ := s.userIDFromContext(r.Context())
	s.wizards.drop(userID, flow.Param(r.Context(), "pitchID"))

	s.writeJSON(w, http.StatusOK, map[string]string{"pitch_id": id, "status": "published"})
}

// handlePostClose tears the wizard session down without persisting anything.
func (s *Service) handlePostClose(w http.ResponseWriter, r *http.Request) {
	userID, err := s.userIDFromContext(r.Context())
	if err != nil {
		s.unauthorized(w)
		return
	}

	s.wizards.drop(userID, flow.Param(r.Context(), "pitchID"))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Service) handleDeletePitch(w http.ResponseWriter, r *http.Request) {
	sess, err := s.controllerFor(r, nil)
	if err != nil {
		s.internalError(w, err, "failed to load wizard")
		return
	}

	if err := sess.ctl.DeleteDraft(r.Context()); err != nil {
		s.writeError(w, http.StatusConflict, err.Error())
		return
	}

	userID, _ := s.userIDFromContext(r.Context())
	s.wizards.drop(userID, flow.Param(r.Context(), "pitchID"))

	w.WriteHeader(http.StatusNoContent)
}

const activityPageSize = 50

func (s *Service) handleGetActivity(w http.ResponseWriter, r *http.Request) {
	pitchID := flow.Param(r.Context(), "pitchID")

	entries, err := s.activityRepo.EntriesByTarget(r.Context(), pitchID, activityPageSize)
	if err != nil {
		s.internalError(w, err, "failed to fetch activity")
		return
	}
	s.writeJSON(w, http.StatusOK, entries)
}

// retireIfRedirected drops a create-mode session once its record exists and
// the controller has issued the transition to the edit URL. The redirect
// stays queued on the session for the response in flight.
func (s *Service) retireIfRedirected(r *http.Request, sess *wizardSession) {
	if !sess.nav.pending() {
		return
	}

	pitchKey := flow.Param(r.Context(), "pitchID")
	if pitchKey != newPitchKey {
		return
	}

	userID, err := s.userIDFromContext(r.Context())
	if err != nil {
		return
	}

	s.wizards.drop(userID, pitchKey)
}

func singleUpload(r *http.Request, field string) (*wizard.PendingFile, error) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return nil, err
	}

	file, header, err := r.FormFile(field)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, err
	}

	return &wizard.PendingFile{
		Name:        header.Filename,
		Size:        header.Size,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

func multiUpload(r *http.Request, field string) ([]*wizard.PendingFile, error) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return nil, err
	}

	headers := r.MultipartForm.File[field]
	if len(headers) == 0 {
		return nil, errors.New("no files in request")
	}

	files := make([]*wizard.PendingFile, 0, len(headers))
	for _, header := range headers {
		f, err := header.Open()
		if err != nil {
			return nil, err
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, err
		}
		files = append(files, &wizard.PendingFile{
			Name:        header.Filename,
			Size:        header.Size,
			ContentType: header.Header.Get("Content-Type"),
			Data:        data,
		})
	}

	return files, nil
}
