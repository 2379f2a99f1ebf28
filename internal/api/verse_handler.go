package api

import (
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/nazm-contest-api/internal/auth"
	"github.com/nazm-contest-api/internal/models"
	"github.com/nazm-contest-api/internal/service"
	"github.com/rs/zerolog"
)

// VerseHandler handles verse catalog endpoints
type VerseHandler struct {
	services *service.Services
	log      zerolog.Logger
}

// NewVerseHandler creates a new VerseHandler
func NewVerseHandler(services *service.Services, log zerolog.Logger) *VerseHandler {
	return &VerseHandler{
		services: services,
		log:      log.With().Str("handler", "verse").Logger(),
	}
}

// List handles GET /v1/verses?language=...&day=...
func (h *VerseHandler) List(c *gin.Context) {
	day := 0
	if raw := c.Query("day"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			badRequest(c, "day", "day must be an integer")
			return
		}
		day = n
	}

	verses, err := h.services.Catalog.ListVerses(c.Request.Context(), c.Query("language"), day)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"verses": verses, "count": len(verses)})
}

// Get handles GET /v1/verses/:id
func (h *VerseHandler) Get(c *gin.Context) {
	verse, err := h.services.Catalog.GetVerse(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, verse)
}

// Create handles POST /v1/verses
func (h *VerseHandler) Create(c *gin.Context) {
	if !requireRole(c, h.log, auth.RoleAdmin) {
		return
	}

	var in models.VerseInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "body", "invalid request body")
		return
	}

	verse, err := h.services.Catalog.CreateVerse(c.Request.Context(), principalFrom(c), &in)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, verse)
}

// Update handles PATCH /v1/verses/:id
func (h *VerseHandler) Update(c *gin.Context) {
	if !requireRole(c, h.log, auth.RoleAdmin) {
		return
	}

	var patch models.VersePatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		badRequest(c, "body", "invalid request body")
		return
	}

	verse, err := h.services.Catalog.UpdateVerse(c.Request.Context(), principalFrom(c), c.Param("id"), &patch)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, verse)
}

// Delete handles DELETE /v1/verses/:id
func (h *VerseHandler) Delete(c *gin.Context) {
	id := c.Param("id")
	if err := h.services.Catalog.DeleteVerse(c.Request.Context(), principalFrom(c), id); err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

// Import handles POST /v1/verses/import
// Accepts a multipart "file" (format from its extension) or a raw body with ?format=ndjson|toml
func (h *VerseHandler) Import(c *gin.Context) {
	if !requireRole(c, h.log, auth.RoleAdmin) {
		return
	}

	format := c.Query("format")

	var body io.Reader = c.Request.Body
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		file, header, err := c.Request.FormFile("file")
		if err != nil {
			badRequest(c, "file", "file upload is required")
			return
		}
		defer file.Close()
		body = file

		if format == "" {
			switch strings.ToLower(filepath.Ext(header.Filename)) {
			case ".toml":
				format = service.ImportFormatTOML
			case ".ndjson", ".jsonl":
				format = service.ImportFormatNDJSON
			}
		}
	}
	if format == "" {
		format = service.ImportFormatNDJSON
	}

	result, err := h.services.Catalog.ImportVerses(c.Request.Context(), principalFrom(c), body, format)
	if err != nil {
		if result != nil && result.Inserted > 0 {
			c.Header("X-Inserted-Count", strconv.Itoa(result.Inserted))
		}
		writeError(c, h.log, err)
		return
	}

	h.log.Info().
		Str("format", format).
		Int("inserted", result.Inserted).
		Int("failed", result.Failed).
		Msg("Verse import finished")
	c.JSON(http.StatusOK, result)
}
