// internal/server/server.go
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"imgedit/internal/auth"
	"imgedit/internal/editor"
	"imgedit/internal/models"
	"imgedit/internal/pipeline"
)

const ownerKey = "owner_id"

// EditService runs one full edit cycle.
type EditService interface {
	Edit(ctx context.Context, in pipeline.EditInput) (*models.EditRecord, error)
}

// HistoryService reads and prunes the per-user edit history.
type HistoryService interface {
	List(ctx context.Context, owner *uuid.UUID, limit int) []models.EditRecord
	Delete(ctx context.Context, id string, owner *uuid.UUID) (bool, error)
}

// Generator backs the hosted edit-function endpoint.
type Generator interface {
	Generate(ctx context.Context, imageURL, prompt string) (json.RawMessage, error)
}

type Server struct {
	cfg       *models.Config
	router    *gin.Engine
	edits     EditService
	history   HistoryService
	generator Generator
	verifier  *auth.Verifier
}

func NewServer(cfg *models.Config, edits EditService, history HistoryService, generator Generator, verifier *auth.Verifier) *Server {
	r := gin.Default()

	s := &Server{cfg: cfg, router: r, edits: edits, history: history, generator: generator, verifier: verifier}

	api := r.Group("/api", s.requireAuth)
	api.POST("/edit", s.handleEdit)
	api.GET("/history", s.handleListHistory)
	api.DELETE("/history/:id", s.handleDeleteHistory)

	r.POST("/functions/v1/edit-image", s.handleEditFunction)
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	return s
}

func (s *Server) Start() error {
	return s.router.Run(s.cfg.ServerAddr)
}

func (s *Server) Stop() {
	// No shutdown needed for gin
}

// requireAuth resolves the caller's principal in tenant-scoped mode. In
// single-tenant mode every request passes through anonymously.
func (s *Server) requireAuth(c *gin.Context) {
	if !s.cfg.TenantScoped {
		c.Next()
		return
	}

	header := c.GetHeader("Authorization")
	token := strings.TrimPrefix(header, "Bearer ")
	if token == "" || token == header {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": models.UserMessage(models.ErrAuthRequired)})
		return
	}

	userID, err := s.verifier.Verify(token)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": models.UserMessage(models.ErrAuthRequired)})
		return
	}
	c.Set(ownerKey, userID)
	c.Next()
}

func ownerFrom(c *gin.Context) *uuid.UUID {
	v, ok := c.Get(ownerKey)
	if !ok {
		return nil
	}
	id, ok := v.(uuid.UUID)
	if !ok {
		return nil
	}
	return &id
}

func (s *Server) handleEdit(c *gin.Context) {
	const op = "server.handleEdit"

	file, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": models.UserMessage(models.ErrEmptyFile)})
		return
	}
	prompt := c.PostForm("prompt")

	src, err := file.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("%s: %v", op, err)})
		return
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("%s: %v", op, err)})
		return
	}

	rec, err := s.edits.Edit(c.Request.Context(), pipeline.EditInput{
		Data:     data,
		FileName: file.Filename,
		Prompt:   prompt,
		Owner:    ownerFrom(c),
	})
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": models.UserMessage(err)})
		return
	}

	c.JSON(http.StatusOK, rec)
}

func (s *Server) handleListHistory(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	records := s.history.List(c.Request.Context(), ownerFrom(c), limit)
	c.JSON(http.StatusOK, gin.H{"records": records})
}

func (s *Server) handleDeleteHistory(c *gin.Context) {
	const op = "server.handleDeleteHistory"

	deleted, err := s.history.Delete(c.Request.Context(), c.Param("id"), ownerFrom(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("%s: %v", op, err)})
		return
	}
	if !deleted {
		c.JSON(http.StatusNotFound, gin.H{"error": "record not found"})
		return
	}
	c.Status(http.StatusNoContent)
}

// handleEditFunction is the hosted edit function: it accepts an image URL
// plus a prompt and proxies the upstream generation call. An upstream AI
// failure is reported as HTTP 200 with a null message; callers distinguish
// it from transport errors by the body, not the status.
func (s *Server) handleEditFunction(c *gin.Context) {
	var req struct {
		ImageURL string `json:"image_url"`
		Prompt   string `json:"prompt"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.ImageURL == "" || req.Prompt == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image_url and prompt are required"})
		return
	}

	message, err := s.generator.Generate(c.Request.Context(), req.ImageURL, req.Prompt)
	if err != nil {
		if errors.Is(err, editor.ErrUpstream) {
			c.JSON(http.StatusOK, gin.H{"message": nil})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "edit generation failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": message})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrValidation), errors.Is(err, models.ErrEmptyFile):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, models.ErrAuthRequired):
		return http.StatusUnauthorized
	case errors.Is(err, models.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, models.ErrEditTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, models.ErrNetwork),
		errors.Is(err, models.ErrUploadExhausted),
		errors.Is(err, models.ErrEditConnection),
		errors.Is(err, models.ErrEditEndpointNotFound),
		errors.Is(err, models.ErrEditInternal),
		errors.Is(err, models.ErrResponseShape):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
