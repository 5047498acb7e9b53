package server

import (
	"net/http"

	"mission-control/internal/models"
)

// GetAllPlanetsHandler lists every candidate planet.
func (s *Server) GetAllPlanetsHandler(w http.ResponseWriter, r *http.Request) {
	planets, err := s.db.GetAllPlanets(r.Context())
	if err != nil {
		s.log.WithError(err).Error("Error retrieving planets")
		respondWithError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	if planets == nil {
		planets = []models.Planet{}
	}

	respondWithJSON(w, http.StatusOK, planets)
}
