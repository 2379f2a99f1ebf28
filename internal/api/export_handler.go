package api

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nazm-contest-api/internal/models"
	"github.com/nazm-contest-api/internal/service"
	"github.com/rs/zerolog"
)

var exportContentTypes = map[string]string{
	service.FormatNDJSON: "application/x-ndjson",
	service.FormatJSON:   "application/json",
	service.FormatCSV:    "text/csv",
}

// ExportHandler handles export endpoints
type ExportHandler struct {
	services *service.Services
	log      zerolog.Logger
}

// NewExportHandler creates a new ExportHandler
func NewExportHandler(services *service.Services, log zerolog.Logger) *ExportHandler {
	return &ExportHandler{
		services: services,
		log:      log.With().Str("handler", "export").Logger(),
	}
}

// StreamEntries handles GET /v1/exports/entries?format=...
// Streams the export directly to the response
func (h *ExportHandler) StreamEntries(c *gin.Context) {
	format := c.DefaultQuery("format", service.FormatNDJSON)
	if ct, ok := exportContentTypes[format]; ok {
		c.Header("Content-Type", ct)
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=entries_%s.%s", time.Now().Format("20060102"), format))
	}

	count, err := h.services.Export.StreamEntries(c.Request.Context(), principalFrom(c), c.Writer, format)
	if err != nil {
		h.fail(c, err, "entries")
		return
	}
	h.log.Info().Str("format", format).Int("count", count).Msg("Entries streamed")
}

// StreamLeaderboard handles GET /v1/exports/leaderboard?kind=...
func (h *ExportHandler) StreamLeaderboard(c *gin.Context) {
	kind := models.EntryKind(c.Query("kind"))
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=leaderboard_%s.csv", kind))

	if _, err := h.services.Export.StreamLeaderboard(c.Request.Context(), principalFrom(c), c.Writer, kind); err != nil {
		h.fail(c, err, "leaderboard")
	}
}

func (h *ExportHandler) fail(c *gin.Context, err error, resource string) {
	if c.Writer.Written() {
		// Can't return error JSON after streaming has started
		h.log.Error().Err(err).Str("resource", resource).Msg("Export failed mid-stream")
		return
	}
	c.Header("Content-Type", "")
	c.Header("Content-Disposition", "")
	writeError(c, h.log, err)
}
