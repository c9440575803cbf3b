package server

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"time"

	"pitchdesk/internal/storage"
	"pitchdesk/internal/store"
	"pitchdesk/pkg/types"

	"github.com/alexedwards/flow"
	"github.com/go-playground/form/v4"
	"github.com/gorilla/securecookie"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/sirupsen/logrus"
)

var decoder = form.NewDecoder()

type Service struct {
	logger *logrus.Logger
	config *types.Config

	pitchRepo        *store.PitchRepository
	termsRepo        *store.TermsRepository
	activityRepo     *store.ActivityRepository
	notificationRepo *store.NotificationRepository
	engagementRepo   *store.EngagementRepository
	sectorRepo       *store.SectorRepository
	groupRepo        *store.GroupRepository

	assets *storage.S3Storage

	cookie *securecookie.SecureCookie

	jwksCache *jwk.Cache
	jwksURL   string

	wizards *wizardSessions

	server *http.Server
}

func New(
	config *types.Config,
	logger *logrus.Logger,
	pitchRepo *store.PitchRepository,
	termsRepo *store.TermsRepository,
	activityRepo *store.ActivityRepository,
	notificationRepo *store.NotificationRepository,
	engagementRepo *store.EngagementRepository,
	sectorRepo *store.SectorRepository,
	groupRepo *store.GroupRepository,
	assets *storage.S3Storage,
	jwkCache *jwk.Cache,
	jwksURL string,
) (*Service, error) {
	mux := flow.New()

	hashKey, _ := base64.StdEncoding.DecodeString(config.CookieHashKey)
	blockKey, _ := base64.StdEncoding.DecodeString(config.CookieBlockKey)

	s := &Service{
		logger: logger,
		config: config,
		cookie: securecookie.New(hashKey, blockKey),

		pitchRepo:        pitchRepo,
		termsRepo:        termsRepo,
		activityRepo:     activityRepo,
		notificationRepo: notificationRepo,
		engagementRepo:   engagementRepo,
		sectorRepo:       sectorRepo,
		groupRepo:        groupRepo,

		assets: assets,

		jwksCache: jwkCache,
		jwksURL:   jwksURL,

		wizards: newWizardSessions(),

		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", config.ServerPort),
			Handler:           mux,
			ReadTimeout:       time.Duration(config.ReadTimeoutSec) * time.Second,
			ReadHeaderTimeout: time.Duration(config.ReadTimeoutSec) * time.Second,
			WriteTimeout:      time.Duration(config.WriteTimeoutSec) * time.Second,
			MaxHeaderBytes:    1 << 20,
		},
	}

	s.buildRouter(mux)

	return s, nil
}

func (s *Service) Start() error {
	return s.server.ListenAndServe()
}

func (s *Service) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Service) buildRouter(r *flow.Mux) {
	r.Use(s.StripTrailingSlash)
	r.Use(s.LoggingMiddleware)

	r.HandleFunc("/healthz", s.handleHealth, http.MethodGet)

	r.HandleFunc("/session", s.handlePostSession, http.MethodPost)
	r.HandleFunc("/session", s.handleDeleteSession, http.MethodDelete)

	r.Group(func(r *flow.Mux) {
		r.Use(s.RequireAuth)

		r.HandleFunc("/sectors", s.handleGetSectors, http.MethodGet)
		r.HandleFunc("/sectors/:slug", s.handleGetSector, http.MethodGet)
		r.HandleFunc("/groups", s.handleGetGroups, http.MethodGet)
		r.HandleFunc("/notifications", s.handleGetNotifications, http.MethodGet)

		r.HandleFunc("/pitches", s.handleGetPitches, http.MethodGet)

		// Wizard surface. The pitch id "new" addresses a wizard instance
		// whose record has not been created yet; the first draft save
		// transitions it to the edit URL shape.
		r.HandleFunc("/pitch/:pitchID/wizard", s.handleGetWizard, http.MethodGet)
		r.HandleFunc("/pitch/:pitchID/wizard/fields", s.handlePostFields, http.MethodPost)
		r.HandleFunc("/pitch/:pitchID/wizard/next", s.handlePostNext, http.MethodPost)
		r.HandleFunc("/pitch/:pitchID/wizard/back", s.handlePostBack, http.MethodPost)
		r.HandleFunc("/pitch/:pitchID/wizard/cover", s.handlePostCover, http.MethodPost)
		r.HandleFunc("/pitch/:pitchID/wizard/documents", s.handlePostDocuments, http.MethodPost)
		r.HandleFunc("/pitch/:pitchID/wizard/presentation", s.handlePostPresentation, http.MethodPost)
		r.HandleFunc("/pitch/:pitchID/wizard/assets/:assetID/remove", s.handlePostRemoveAsset, http.MethodPost)
		r.HandleFunc("/pitch/:pitchID/wizard/save", s.handlePostSave, http.MethodPost)
		r.HandleFunc("/pitch/:pitchID/wizard/publish", s.handlePostPublish, http.MethodPost)
		r.HandleFunc("/pitch/:pitchID/wizard/close", s.handlePostClose, http.MethodPost)

		r.HandleFunc("/pitch/:pitchID", s.handleDeletePitch, http.MethodDelete)
		r.HandleFunc("/pitch/:pitchID/activity", s.handleGetActivity, http.MethodGet)
		r.HandleFunc("/pitch/:pitchID/terms", s.handleGetTermsAcceptances, http.MethodGet)
	})
}

func (s *Service) userIDFromContext(ctx context.Context) (string, error) {
	userID, ok := ctx.Value(contextKeyUserID).(string)
	if !ok {
		return "", fmt.Errorf("user id not found in context")
	}
	return userID, nil
}
