package server

import (
	"log"
	"net/http"
)

// handleDashboardStats returns aggregate counts for the caller's exams
func (s *Server) handleDashboardStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.db.GetStats(r.Context(), s.owner(r))
	if err != nil {
		log.Printf("Failed to load dashboard stats: %v", err)
		s.errorResponse(w, http.StatusInternalServerError, "Failed to load stats")
		return
	}

	s.jsonResponse(w, http.StatusOK, stats)
}
