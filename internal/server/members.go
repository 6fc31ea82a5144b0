package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"teamboard/internal/models"
	"teamboard/internal/team"
)

type memberRequest struct {
	ID       string     `json:"id"`
	Name     *string    `json:"name"`
	Email    *string    `json:"email"`
	Role     *string    `json:"role"`
	Avatar   *string    `json:"avatar"`
	JoinDate *time.Time `json:"joinDate"`
	Color    *string    `json:"color"`
}

type colorRequest struct {
	Color string `json:"color"`
}

func (s *Server) handleListMembers(c *gin.Context) {
	members := s.app.Members.All()
	respondSuccess(c, http.StatusOK, gin.H{"members": members, "count": len(members)})
}

func (s *Server) handleCreateMember(c *gin.Context) {
	var req memberRequest
	if !s.bindJSON(c, &req) {
		return
	}

	member, err := s.app.Members.Add(c.Request.Context(), models.Member{
		ID:       req.ID,
		Name:     getString(req.Name),
		Email:    getString(req.Email),
		Role:     getString(req.Role),
		Avatar:   getString(req.Avatar),
		JoinDate: req.JoinDate,
		Color:    getString(req.Color),
	})
	if err != nil {
		s.respondStoreError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"member": member})
}

func (s *Server) handleGetMember(c *gin.Context) {
	member, ok := s.app.Members.Get(c.Param("id"))
	if !ok {
		respondNotFound(c, "member")
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"member": member})
}

func (s *Server) handleUpdateMember(c *gin.Context) {
	var req memberRequest
	if !s.bindJSON(c, &req) {
		return
	}

	member, found, err := s.app.Members.Update(c.Request.Context(), c.Param("id"), team.Patch{
		Name:     req.Name,
		Email:    req.Email,
		Role:     req.Role,
		Avatar:   req.Avatar,
		JoinDate: req.JoinDate,
		Color:    req.Color,
	})
	if err != nil {
		s.respondStoreError(c, err)
		return
	}
	if !found {
		respondNotFound(c, "member")
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"member": member})
}

func (s *Server) handleDeleteMember(c *gin.Context) {
	found, err := s.app.Members.Remove(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondStoreError(c, err)
		return
	}
	if !found {
		respondNotFound(c, "member")
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"status": "deleted"})
}

// handleDeleteMembersByName removes every member with the given name.
func (s *Server) handleDeleteMembersByName(c *gin.Context) {
	name := strings.TrimSpace(c.Query("name"))
	if name == "" {
		s.respondError(c, http.StatusBadRequest, errors.New("name query parameter is required"))
		return
	}
	removed, err := s.app.Members.RemoveByName(c.Request.Context(), name)
	if err != nil {
		s.respondStoreError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"removed": removed})
}

// handleGetMemberColor returns the member's pinned colour, falling back to
// the name-derived palette colour.
func (s *Server) handleGetMemberColor(c *gin.Context) {
	member, ok := s.app.Members.Get(c.Param("id"))
	if !ok {
		respondNotFound(c, "member")
		return
	}
	color := member.Color
	if color == "" {
		color = s.app.MemberColors.Color(member.Name)
	}
	respondSuccess(c, http.StatusOK, gin.H{"color": color})
}

func (s *Server) handleSetMemberColor(c *gin.Context) {
	color, ok := s.bindColor(c)
	if !ok {
		return
	}
	member, found, err := s.app.Members.Update(c.Request.Context(), c.Param("id"), team.Patch{Color: &color})
	if err != nil {
		s.respondStoreError(c, err)
		return
	}
	if !found {
		respondNotFound(c, "member")
		return
	}
	s.app.MemberColors.Set(member.Name, color)
	respondSuccess(c, http.StatusOK, gin.H{"color": color})
}

var errBlankColor = errors.New("color must not be empty")

// bindColor decodes a colour body and rejects a blank colour.
func (s *Server) bindColor(c *gin.Context) (string, bool) {
	var req colorRequest
	if !s.bindJSON(c, &req) {
		return "", false
	}
	color := strings.TrimSpace(req.Color)
	if color == "" {
		s.respondError(c, http.StatusBadRequest, errBlankColor)
		return "", false
	}
	return color, true
}

func (s *Server) handleMemberStats(c *gin.Context) {
	member, ok := s.app.Members.Get(c.Param("id"))
	if !ok {
		respondNotFound(c, "member")
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"stats": s.app.Tracker.StatsFor(member)})
}

// handleMemberAchievements lists a member's achievements; ?new=true keeps
// only the unseen ones.
func (s *Server) handleMemberAchievements(c *gin.Context) {
	id := c.Param("id")
	if _, ok := s.app.Members.Get(id); !ok {
		respondNotFound(c, "member")
		return
	}
	var list []models.Achievement
	if c.Query("new") == "true" {
		list = s.app.Achievements.NewAchievements(id)
	} else {
		list = s.app.Achievements.UserAchievements(id)
	}
	respondSuccess(c, http.StatusOK, gin.H{"achievements": list})
}

// handleMemberFiles lists files visible to a member directly or through a
// group.
func (s *Server) handleMemberFiles(c *gin.Context) {
	id := c.Param("id")
	if _, ok := s.app.Members.Get(id); !ok {
		respondNotFound(c, "member")
		return
	}
	var groupIDs []string
	for _, g := range s.app.Groups.ForMember(id) {
		groupIDs = append(groupIDs, g.ID)
	}
	respondSuccess(c, http.StatusOK, gin.H{"files": s.app.Files.SharedWith(id, groupIDs)})
}
