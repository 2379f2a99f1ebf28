package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nazm-contest-api/internal/apperror"
	"github.com/nazm-contest-api/internal/auth"
	"github.com/nazm-contest-api/internal/config"
	"github.com/nazm-contest-api/internal/models"
	"github.com/nazm-contest-api/internal/repository"
	"github.com/nazm-contest-api/internal/storage"
	"github.com/nazm-contest-api/internal/validation"
	"github.com/rs/zerolog"
)

// Allowed file extensions per payload type
var (
	TextExtensions  = map[string]bool{".txt": true, ".doc": true, ".docx": true, ".pdf": true}
	AudioExtensions = map[string]bool{".mp3": true, ".wav": true, ".m4a": true, ".ogg": true}
)

// Upload is a file received alongside a submission or correction
type Upload struct {
	Filename string
	Size     int64
	Body     io.Reader
}

// intakeService is the concrete implementation of IntakeService
type intakeService struct {
	repos *repository.Repositories
	blobs storage.BlobStore
	cfg   *config.Config
	log   zerolog.Logger
}

func newIntakeService(repos *repository.Repositories, blobs storage.BlobStore, cfg *config.Config, log zerolog.Logger) *intakeService {
	return &intakeService{
		repos: repos,
		blobs: blobs,
		cfg:   cfg,
		log:   log.With().Str("service", "intake").Logger(),
	}
}

// Submit creates a new entry for the calling author. The entry starts
// unapproved, unrated, unfeatured and pending correction.
func (s *intakeService) Submit(ctx context.Context, p auth.Principal, req *models.SubmitRequest) (*models.Entry, error) {
	if err := auth.Authorize(p, auth.RoleUser); err != nil {
		return nil, err
	}
	if errs := validation.NewValidator().ValidateSubmission(req); len(errs) > 0 {
		return nil, apperror.ValidationFields(errs)
	}

	exists, err := s.repos.Verse.Exists(ctx, req.InspiredByVerseID)
	if err != nil {
		return nil, storeErr(err)
	}
	if !exists {
		return nil, apperror.NotFound("verse", req.InspiredByVerseID)
	}

	entry := newEntry(p, req)
	err = s.repos.Entry.Create(ctx, entry)
	if errors.Is(err, repository.ErrUnknownVerse) {
		return nil, apperror.NotFound("verse", req.InspiredByVerseID)
	}
	if err != nil {
		return nil, storeErr(err)
	}

	s.log.Info().
		Str("entry_id", entry.ID).
		Str("author_id", entry.AuthorID).
		Str("kind", string(entry.Kind)).
		Str("method", string(entry.SubmissionMethod)).
		Msg("Entry submitted")
	return entry, nil
}

// SubmitFile stores the uploaded file, then submits with its reference.
// The stored file is removed again when the submission is rejected.
func (s *intakeService) SubmitFile(ctx context.Context, p auth.Principal, req *models.SubmitRequest, upload *Upload) (*models.Entry, error) {
	if err := auth.Authorize(p, auth.RoleUser); err != nil {
		return nil, err
	}

	var ref string
	var err error
	switch req.Method {
	case models.MethodUpload:
		ref, err = saveUpload(ctx, s.blobs, "upload", upload, TextExtensions, s.cfg.Upload.MaxTextSize)
		req.FileRef = ref
	case models.MethodRecording:
		ref, err = saveUpload(ctx, s.blobs, "recording", upload, AudioExtensions, s.cfg.Upload.MaxAudioSize)
		req.AudioRef = ref
	default:
		return nil, apperror.Validation("submissionMethod", "file submissions must use method upload or recording")
	}
	if err != nil {
		return nil, err
	}

	entry, err := s.Submit(ctx, p, req)
	if err != nil {
		discardBlob(ctx, s.blobs, s.log, ref)
		return nil, err
	}
	return entry, nil
}

func newEntry(p auth.Principal, req *models.SubmitRequest) *models.Entry {
	now := time.Now().UTC()
	name := strings.TrimSpace(p.Name)
	if name == "" {
		name = p.UserID
	}

	entry := &models.Entry{
		ID:                uuid.New().String(),
		AuthorID:          p.UserID,
		AuthorName:        name,
		Kind:              req.Kind,
		Language:          req.Language,
		SubmissionMethod:  req.Method,
		InspiredByVerseID: req.InspiredByVerseID,
		Status:            models.StatusCorrectionPending,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	switch req.Method {
	case models.MethodManual:
		entry.Content = models.StringPtr(strings.TrimSpace(req.Content))
	case models.MethodUpload:
		entry.FileRef = models.StringPtr(req.FileRef)
	case models.MethodRecording:
		entry.AudioRef = models.StringPtr(req.AudioRef)
	}
	return entry
}

// saveUpload checks the extension and size of upload before storing it
func saveUpload(ctx context.Context, blobs storage.BlobStore, prefix string, upload *Upload, allowed map[string]bool, maxSize int64) (string, error) {
	if upload == nil || upload.Body == nil {
		return "", apperror.Validation("file", "file is required")
	}

	ext := strings.ToLower(filepath.Ext(upload.Filename))
	if !allowed[ext] {
		return "", apperror.Validation("file", "invalid file type, allowed: "+extensionList(allowed))
	}
	if upload.Size > maxSize {
		return "", apperror.Validation("file", fmt.Sprintf("file too large, max size is %d MB", maxSize/(1024*1024)))
	}

	ref, err := blobs.Save(ctx, prefix, ext, &cappedReader{r: upload.Body, remaining: maxSize})
	if errors.Is(err, errFileTooLarge) {
		return "", apperror.Validation("file", fmt.Sprintf("file too large, max size is %d MB", maxSize/(1024*1024)))
	}
	if err != nil {
		return "", apperror.Transport("blob store", err)
	}
	return ref, nil
}

var errFileTooLarge = errors.New("file too large")

// cappedReader fails once more than remaining bytes have been read
type cappedReader struct {
	r         io.Reader
	remaining int64
}

func (c *cappedReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.remaining -= int64(n)
	if c.remaining < 0 {
		return n, errFileTooLarge
	}
	return n, err
}

// discardBlob removes a blob whose owning write failed
func discardBlob(ctx context.Context, blobs storage.BlobStore, log zerolog.Logger, ref string) {
	if ref == "" {
		return
	}
	if err := blobs.Delete(ctx, ref); err != nil {
		log.Warn().Err(err).Str("ref", ref).Msg("Failed to remove orphaned blob")
	}
}

func extensionList(allowed map[string]bool) string {
	var order []string
	for _, ext := range []string{".txt", ".doc", ".docx", ".pdf", ".mp3", ".wav", ".m4a", ".ogg"} {
		if allowed[ext] {
			order = append(order, ext)
		}
	}
	return strings.Join(order, ", ")
}
