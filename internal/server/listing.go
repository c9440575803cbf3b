package server

import (
	"net/http"

	"pitchdesk/pkg/types"

	"github.com/alexedwards/flow"
)

func (s *Service) handleGetSector(w http.ResponseWriter, r *http.Request) {
	slug := flow.Param(r.Context(), "slug")

	sector, err := s.sectorRepo.SectorBySlug(r.Context(), slug)
	if err != nil {
		s.internalError(w, err, "failed to fetch sector")
		return
	}
	if sector == nil {
		s.writeError(w, http.StatusNotFound, "sector not found")
		return
	}

	s.writeJSON(w, http.StatusOK, sector)
}

func (s *Service) handleGetNotifications(w http.ResponseWriter, r *http.Request) {
	userID, err := s.userIDFromContext(r.Context())
	if err != nil {
		s.unauthorized(w)
		return
	}

	notifications, err := s.notificationRepo.UnreadByUser(r.Context(), userID)
	if err != nil {
		s.internalError(w, err, "failed to fetch notifications")
		return
	}

	s.writeJSON(w, http.StatusOK, notifications)
}

// handleGetPitches lists the caller's pitches. Admins may instead filter by
// status across all issuers with the status query parameter.
func (s *Service) handleGetPitches(w http.ResponseWriter, r *http.Request) {
	userID, err := s.userIDFromContext(r.Context())
	if err != nil {
		s.unauthorized(w)
		return
	}

	if status := r.URL.Query().Get("status"); status != "" {
		role, _ := r.Context().Value(contextKeyRole).(string)
		if types.Role(role) != types.RoleAdmin {
			s.writeError(w, http.StatusForbidden, "status filter is admin only")
			return
		}

		pitches, err := s.pitchRepo.PitchesByStatus(r.Context(), types.PitchStatus(status))
		if err != nil {
			s.internalError(w, err, "failed to fetch pitches")
			return
		}
		s.writeJSON(w, http.StatusOK, pitches)
		return
	}

	pitches, err := s.pitchRepo.PitchesByIssuer(r.Context(), userID)
	if err != nil {
		s.internalError(w, err, "failed to fetch pitches")
		return
	}

	s.writeJSON(w, http.StatusOK, pitches)
}

func (s *Service) handleGetTermsAcceptances(w http.ResponseWriter, r *http.Request) {
	pitchID := flow.Param(r.Context(), "pitchID")

	acceptances, err := s.termsRepo.AcceptancesByPitch(r.Context(), pitchID)
	if err != nil {
		s.internalError(w, err, "failed to fetch terms acceptances")
		return
	}

	s.writeJSON(w, http.StatusOK, acceptances)
}
