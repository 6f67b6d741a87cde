package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

func (s *Server) handleListRejected(w http.ResponseWriter, r *http.Request) {
	files, err := s.app.Store.ListRejected()
	if err != nil {
		s.logger.Error("Failed to list rejected files", "error", err)
		RespondWithError(w, http.StatusInternalServerError, "Failed to list rejected files")
		return
	}
	RespondWithJSON(w, http.StatusOK, files)
}

// handleDeleteRejected dismisses a rejection entry. The file itself is left
// in the inbox.
func (s *Server) handleDeleteRejected(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "rejectedID"), 10, 64)
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid id")
		return
	}
	found, err := s.app.Store.DeleteRejected(id)
	if err != nil {
		s.logger.Error("Failed to delete rejected file", "id", id, "error", err)
		RespondWithError(w, http.StatusInternalServerError, "Failed to delete rejected file")
		return
	}
	if !found {
		RespondWithError(w, http.StatusNotFound, "Rejected file not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
