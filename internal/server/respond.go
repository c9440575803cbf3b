package server

import (
	"encoding/json"
	"net/http"
)

func decodeJSONBody(r *http.Request, dst any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func (s *Service) writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.WithError(err).Error("failed to encode response body")
	}
}

func (s *Service) writeError(w http.ResponseWriter, statusCode int, message string) {
	s.writeJSON(w, statusCode, map[string]string{"error": message})
}

func (s *Service) unauthorized(w http.ResponseWriter) {
	s.writeError(w, http.StatusUnauthorized, "unauthorized")
}

func (s *Service) internalError(w http.ResponseWriter, err error, message string) {
	s.logger.WithError(err).Error(message)
	s.writeError(w, http.StatusInternalServerError, message)
}
