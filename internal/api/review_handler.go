package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/nazm-contest-api/internal/auth"
	"github.com/nazm-contest-api/internal/models"
	"github.com/nazm-contest-api/internal/service"
	"github.com/rs/zerolog"
)

// ReviewHandler handles the administrator workflow endpoints
type ReviewHandler struct {
	services *service.Services
	log      zerolog.Logger
}

// NewReviewHandler creates a new ReviewHandler
func NewReviewHandler(services *service.Services, log zerolog.Logger) *ReviewHandler {
	return &ReviewHandler{
		services: services,
		log:      log.With().Str("handler", "review").Logger(),
	}
}

// Approve handles PUT /v1/entries/:id/approve
func (h *ReviewHandler) Approve(c *gin.Context) {
	h.respond(c)(h.services.Review.Approve(c.Request.Context(), principalFrom(c), c.Param("id")))
}

// Reject handles DELETE /v1/entries/:id
func (h *ReviewHandler) Reject(c *gin.Context) {
	id := c.Param("id")
	if err := h.services.Review.Reject(c.Request.Context(), principalFrom(c), id); err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

// SetStatus handles PUT /v1/entries/:id/status
func (h *ReviewHandler) SetStatus(c *gin.Context) {
	if !requireRole(c, h.log, auth.RoleAdmin) {
		return
	}

	var req struct {
		Status models.CorrectionStatus `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "status", "status is required")
		return
	}

	ctx, p, id := c.Request.Context(), principalFrom(c), c.Param("id")
	switch req.Status {
	case models.StatusCorrectionPending:
		h.respond(c)(h.services.Review.MarkPending(ctx, p, id))
	case models.StatusCorrectionDone:
		h.respond(c)(h.services.Review.MarkCorrected(ctx, p, id))
	default:
		badRequest(c, "status", "status must be one of: correction_pending, correction_done")
	}
}

// Rate handles PUT /v1/entries/:id/rating
func (h *ReviewHandler) Rate(c *gin.Context) {
	if !requireRole(c, h.log, auth.RoleAdmin) {
		return
	}

	var req struct {
		Rating *float64 `json:"rating" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "rating", "rating is required")
		return
	}
	h.respond(c)(h.services.Review.Rate(c.Request.Context(), principalFrom(c), c.Param("id"), *req.Rating))
}

// Feature handles PUT /v1/entries/:id/feature
func (h *ReviewHandler) Feature(c *gin.Context) {
	h.respond(c)(h.services.Review.Feature(c.Request.Context(), principalFrom(c), c.Param("id")))
}

// Unfeature handles DELETE /v1/entries/:id/feature
func (h *ReviewHandler) Unfeature(c *gin.Context) {
	h.respond(c)(h.services.Review.Unfeature(c.Request.Context(), principalFrom(c), c.Param("id")))
}

// RecordCorrection handles POST /v1/entries/:id/correction.
// JSON carries text; multipart carries a corrected file plus optional correctedContent.
func (h *ReviewHandler) RecordCorrection(c *gin.Context) {
	if !requireRole(c, h.log, auth.RoleAdmin) {
		return
	}

	ctx, p, id := c.Request.Context(), principalFrom(c), c.Param("id")

	if strings.HasPrefix(c.ContentType(), "multipart/") {
		file, header, err := c.Request.FormFile("file")
		if err != nil {
			badRequest(c, "file", "file upload is required")
			return
		}
		defer file.Close()

		upload := &service.Upload{Filename: header.Filename, Size: header.Size, Body: file}
		h.respond(c)(h.services.Review.RecordCorrectionFile(ctx, p, id, c.PostForm("correctedContent"), upload))
		return
	}

	var correction models.Correction
	if err := c.ShouldBindJSON(&correction); err != nil {
		badRequest(c, "body", "invalid request body")
		return
	}
	h.respond(c)(h.services.Review.RecordCorrection(ctx, p, id, &correction))
}

// respond writes the entry returned by a workflow operation, or its error
func (h *ReviewHandler) respond(c *gin.Context) func(*models.Entry, error) {
	return func(entry *models.Entry, err error) {
		if err != nil {
			writeError(c, h.log, err)
			return
		}
		c.JSON(http.StatusOK, entry)
	}
}
