package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Evermishka/notes-app/internal/common"
	"github.com/Evermishka/notes-app/internal/server/models"
)

type credentialsRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginResponse struct {
	UserID       string `json:"user_id"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type tokenPairResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type noteDTO struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func noteToDTO(n *models.Note) noteDTO {
	return noteDTO{
		ID:        n.ID,
		Title:     n.Title,
		Content:   n.Content,
		CreatedAt: n.CreatedAt,
		UpdatedAt: n.UpdatedAt,
	}
}

func (s *Server) handlePing(c *gin.Context) {
	c.Status(http.StatusOK)
}

func (s *Server) handleRegister(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if _, err := s.users.Register(c.Request.Context(), req.Email, req.Password); err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			c.JSON(http.StatusConflict, gin.H{"error": common.ErrorAlreadyExists.Error()})
			return
		}
		s.internalError(c, "register failed", err)
		return
	}

	c.Status(http.StatusOK)
}

func (s *Server) handleLogin(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	userID, pair, err := s.users.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, common.ErrorUnauthorized) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": common.ErrorUnauthorized.Error()})
			return
		}
		s.internalError(c, "login failed", err)
		return
	}

	c.JSON(http.StatusOK, loginResponse{
		UserID:       userID,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

func (s *Server) handleRefresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	pair, err := s.users.RefreshToken(c.Request.Context(), req.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrInvalidToken), errors.Is(err, common.ErrRefreshTokenExpired):
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		default:
			s.internalError(c, "token refresh failed", err)
		}
		return
	}

	c.JSON(http.StatusOK, tokenPairResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

func (s *Server) handleListNotes(c *gin.Context) {
	notes, err := s.notes.List(c.Request.Context(), currentUserID(c))
	if err != nil {
		s.internalError(c, "list notes failed", err)
		return
	}

	out := make([]noteDTO, 0, len(notes))
	for i := range notes {
		out = append(out, noteToDTO(&notes[i]))
	}
	c.JSON(http.StatusOK, out)
}

// handleUpsertNote serves both POST /notes and PUT /notes/:id. Note ids are
// client-assigned, so both verbs resolve to the same idempotent write.
func (s *Server) handleUpsertNote(c *gin.Context) {
	var req noteDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if id := c.Param("id"); id != "" {
		req.ID = id
	}
	if req.ID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "note id is required"})
		return
	}

	note := &models.Note{
		ID:        req.ID,
		Title:     req.Title,
		Content:   req.Content,
		CreatedAt: req.CreatedAt,
		UpdatedAt: req.UpdatedAt,
	}

	saved, err := s.notes.Upsert(c.Request.Context(), currentUserID(c), note)
	if err != nil {
		if errors.Is(err, common.ErrOwnershipConflict) {
			c.JSON(http.StatusConflict, gin.H{"error": common.ErrOwnershipConflict.Error()})
			return
		}
		s.internalError(c, "upsert note failed", err)
		return
	}

	c.JSON(http.StatusOK, noteToDTO(saved))
}

func (s *Server) handleDeleteNote(c *gin.Context) {
	err := s.notes.Delete(c.Request.Context(), currentUserID(c), c.Param("id"))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": common.ErrorNotFound.Error()})
			return
		}
		s.internalError(c, "delete note failed", err)
		return
	}

	c.Status(http.StatusOK)
}

func (s *Server) internalError(c *gin.Context, msg string, err error) {
	s.logger.Error(c.Request.Context(), msg, "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": common.ErrorInternal.Error()})
}
