package server

import (
	"net/http"
	"time"

	"pitchdesk/internal"

	"github.com/lestrrat-go/jwx/v3/jwt"
)

type sessionRequest struct {
	AccessToken string `json:"access_token" form:"access_token"`
}

// handlePostSession exchanges a platform-issued access token for the
// encrypted session cookie the rest of the API authenticates with.
func (s *Service) handlePostSession(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest

	switch r.Header.Get("Content-Type") {
	case "application/json":
		if err := decodeJSONBody(r, &req); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	default:
		if err := r.ParseForm(); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid form body")
			return
		}
		if err := decoder.Decode(&req, r.PostForm); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid form body")
			return
		}
	}

	if req.AccessToken == "" {
		s.writeError(w, http.StatusBadRequest, "access_token is required")
		return
	}

	set, err := s.jwksCache.Lookup(r.Context(), s.jwksURL)
	if err != nil {
		s.internalError(w, err, "failed to fetch signing keys")
		return
	}

	token, err := jwt.Parse(
		[]byte(req.AccessToken),
		jwt.WithKeySet(set),
		jwt.WithValidate(true),
	)
	if err != nil {
		s.logger.WithError(err).Warn("rejected access token at session creation")
		s.unauthorized(w)
		return
	}

	userID, ok := token.Subject()
	if !ok || userID == "" {
		s.unauthorized(w)
		return
	}

	encoded, err := s.cookie.Encode(internal.COOKIE_ACCESS_TOKEN_NAME, req.AccessToken)
	if err != nil {
		s.internalError(w, err, "failed to encrypt session cookie")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     internal.COOKIE_ACCESS_TOKEN_NAME,
		Value:    encoded,
		Path:     "/",
		MaxAge:   s.config.SessionMaxAgeSec,
		HttpOnly: true,
		Secure:   s.config.Environment == "production",
		SameSite: http.SameSiteLaxMode,
	})

	s.logger.WithField("user_id", userID).Info("session created")
	s.writeJSON(w, http.StatusCreated, map[string]string{"user_id": userID})
}

func (s *Service) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     internal.COOKIE_ACCESS_TOKEN_NAME,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
	})

	w.WriteHeader(http.StatusNoContent)
}
