package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"teamboard/internal/models"
)

type fileRequest struct {
	Name              string    `json:"name"`
	Type              string    `json:"type"`
	Size              int64     `json:"size"`
	UploadedBy        string    `json:"uploadedBy"`
	UploadedDate      time.Time `json:"uploadedDate"`
	URL               string    `json:"url"`
	SharedWithMembers []string  `json:"sharedWithMembers"`
	SharedWithGroups  []string  `json:"sharedWithGroups"`
}

func (s *Server) handleListFiles(c *gin.Context) {
	respondSuccess(c, http.StatusOK, gin.H{"files": s.app.Files.All()})
}

// handleCreateFile records file metadata. An uploader is taken from the
// bearer token when the body names none.
func (s *Server) handleCreateFile(c *gin.Context) {
	var req fileRequest
	if !s.bindJSON(c, &req) {
		return
	}
	if req.UploadedBy == "" {
		req.UploadedBy = c.GetString(ctxUserID)
	}

	f, err := s.app.Files.Add(c.Request.Context(), models.SharedFile{
		Name:              req.Name,
		Type:              req.Type,
		Size:              req.Size,
		UploadedBy:        req.UploadedBy,
		UploadedDate:      req.UploadedDate,
		URL:               req.URL,
		SharedWithMembers: req.SharedWithMembers,
		SharedWithGroups:  req.SharedWithGroups,
	})
	if err != nil {
		s.respondStoreError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"file": f})
}

func (s *Server) handleDeleteFile(c *gin.Context) {
	found, err := s.app.Files.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondStoreError(c, err)
		return
	}
	if !found {
		respondNotFound(c, "file")
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"status": "deleted"})
}
