package api

import (
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/nazm-contest-api/internal/auth"
	"github.com/nazm-contest-api/internal/models"
	"github.com/nazm-contest-api/internal/service"
	"github.com/rs/zerolog"
)

// EntryHandler handles submission and entry query endpoints
type EntryHandler struct {
	services *service.Services
	log      zerolog.Logger
}

// NewEntryHandler creates a new EntryHandler
func NewEntryHandler(services *service.Services, log zerolog.Logger) *EntryHandler {
	return &EntryHandler{
		services: services,
		log:      log.With().Str("handler", "entry").Logger(),
	}
}

// SubmitManual handles POST /v1/entries with a JSON body
func (h *EntryHandler) SubmitManual(c *gin.Context) {
	if !requireRole(c, h.log, auth.RoleUser) {
		return
	}

	var req models.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "body", "invalid request body")
		return
	}
	if req.Method == "" {
		req.Method = models.MethodManual
	}

	entry, err := h.services.Intake.Submit(c.Request.Context(), principalFrom(c), &req)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": entry.ID, "entry": entry})
}

// SubmitFile handles POST /v1/entries/upload (multipart: kind, language,
// submissionMethod, inspiredByVerseId, file)
func (h *EntryHandler) SubmitFile(c *gin.Context) {
	if !requireRole(c, h.log, auth.RoleUser) {
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		badRequest(c, "file", "file upload is required")
		return
	}
	defer file.Close()

	req := &models.SubmitRequest{
		Kind:              models.EntryKind(c.PostForm("kind")),
		Language:          c.PostForm("language"),
		Method:            models.SubmissionMethod(c.DefaultPostForm("submissionMethod", string(models.MethodUpload))),
		InspiredByVerseID: c.PostForm("inspiredByVerseId"),
	}
	upload := &service.Upload{Filename: header.Filename, Size: header.Size, Body: file}

	entry, err := h.services.Intake.SubmitFile(c.Request.Context(), principalFrom(c), req, upload)
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	h.log.Info().
		Str("entry_id", entry.ID).
		Str("file", header.Filename).
		Int64("size_bytes", header.Size).
		Msg("File submission stored")
	c.JSON(http.StatusCreated, gin.H{"id": entry.ID, "entry": entry})
}

// List handles GET /v1/entries
func (h *EntryHandler) List(c *gin.Context) {
	filter, ok := parseFilter(c)
	if !ok {
		return
	}

	page, err := h.services.Review.List(c.Request.Context(), principalFrom(c), filter)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// Get handles GET /v1/entries/:id
func (h *EntryHandler) Get(c *gin.Context) {
	entry, err := h.services.Review.Get(c.Request.Context(), principalFrom(c), c.Param("id"))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

// Best handles GET /v1/entries/best?kind=...&limit=...
func (h *EntryHandler) Best(c *gin.Context) {
	limit, ok := queryInt(c, "limit")
	if !ok {
		return
	}

	entries, err := h.services.Review.Best(c.Request.Context(), principalFrom(c), models.EntryKind(c.Query("kind")), limit)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries, "count": len(entries)})
}

// Featured handles GET /v1/entries/featured
func (h *EntryHandler) Featured(c *gin.Context) {
	entry, err := h.services.Review.Featured(c.Request.Context(), principalFrom(c))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entry": entry})
}

// Download handles GET /v1/entries/:id/file
func (h *EntryHandler) Download(c *gin.Context) {
	rc, name, err := h.services.Review.OpenFile(c.Request.Context(), principalFrom(c), c.Param("id"))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	defer rc.Close()

	c.Header("Content-Type", "application/octet-stream")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, rc); err != nil {
		h.log.Error().Err(err).Str("file", name).Msg("Download interrupted")
	}
}

// Leaderboard handles GET /v1/leaderboard?kind=...
func (h *EntryHandler) Leaderboard(c *gin.Context) {
	kind := models.EntryKind(c.Query("kind"))

	rows, err := h.services.Rank.Leaderboard(c.Request.Context(), principalFrom(c), kind)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"kind": kind, "leaderboard": rows})
}

// parseFilter reads the entry filter from the query string. It writes a 400
// and returns false when a value is malformed.
func parseFilter(c *gin.Context) (models.EntryFilter, bool) {
	f := models.EntryFilter{
		Kind:     models.EntryKind(c.Query("kind")),
		Language: c.Query("language"),
		Status:   models.CorrectionStatus(c.Query("status")),
		AuthorID: c.Query("authorId"),
		Search:   c.Query("search"),
		Sort:     models.EntrySort(c.Query("sort")),
	}

	for key, dst := range map[string]**bool{
		"approved": &f.Approved,
		"featured": &f.Featured,
		"rated":    &f.Rated,
	} {
		raw := c.Query(key)
		if raw == "" {
			continue
		}
		b, err := strconv.ParseBool(raw)
		if err != nil {
			badRequest(c, key, key+" must be true or false")
			return f, false
		}
		*dst = models.BoolPtr(b)
	}

	var ok bool
	if f.Page, ok = queryInt(c, "page"); !ok {
		return f, false
	}
	if f.PerPage, ok = queryInt(c, "perPage"); !ok {
		return f, false
	}
	return f, true
}

func queryInt(c *gin.Context, key string) (int, bool) {
	raw := c.Query(key)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		badRequest(c, key, key+" must be an integer")
		return 0, false
	}
	return n, true
}
