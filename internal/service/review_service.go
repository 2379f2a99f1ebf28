package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/nazm-contest-api/internal/apperror"
	"github.com/nazm-contest-api/internal/auth"
	"github.com/nazm-contest-api/internal/config"
	"github.com/nazm-contest-api/internal/models"
	"github.com/nazm-contest-api/internal/repository"
	"github.com/nazm-contest-api/internal/storage"
	"github.com/nazm-contest-api/internal/validation"
	"github.com/rs/zerolog"
)

// DefaultBestLimit is the number of entries Best returns when no limit is given
const DefaultBestLimit = 3

// reviewService is the concrete implementation of ReviewService.
// Every mutation checks the administrator role before anything else and
// runs its precondition inside the repository's per-entry transaction.
type reviewService struct {
	repos *repository.Repositories
	blobs storage.BlobStore
	cfg   *config.Config
	log   zerolog.Logger
}

func newReviewService(repos *repository.Repositories, blobs storage.BlobStore, cfg *config.Config, log zerolog.Logger) *reviewService {
	return &reviewService{
		repos: repos,
		blobs: blobs,
		cfg:   cfg,
		log:   log.With().Str("service", "review").Logger(),
	}
}

// Approve marks an entry approved; approving twice is a no-op
func (s *reviewService) Approve(ctx context.Context, p auth.Principal, id string) (*models.Entry, error) {
	if err := auth.Authorize(p, auth.RoleAdmin); err != nil {
		return nil, err
	}
	entry, err := s.mutate(ctx, id, func(e *models.Entry) error {
		if e.Approved {
			return errUnchanged
		}
		e.Approved = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("entry_id", id).Str("by", p.UserID).Msg("Entry approved")
	return entry, nil
}

// Reject removes the entry. There is no approval rollback; rejection deletes.
func (s *reviewService) Reject(ctx context.Context, p auth.Principal, id string) error {
	if err := auth.Authorize(p, auth.RoleAdmin); err != nil {
		return err
	}

	entry, err := s.repos.Entry.Delete(ctx, id)
	if err != nil {
		return storeErr(err)
	}
	if entry == nil {
		return apperror.NotFound("entry", id)
	}

	for _, ref := range []*string{entry.FileRef, entry.AudioRef, entry.CorrectedFileRef} {
		if ref != nil {
			discardBlob(ctx, s.blobs, s.log, *ref)
		}
	}

	s.log.Info().Str("entry_id", id).Str("author_id", entry.AuthorID).Str("by", p.UserID).Msg("Entry rejected and deleted")
	return nil
}

// RecordCorrection stores the araz result and marks the correction done.
// Fields left empty in c keep their previous value.
func (s *reviewService) RecordCorrection(ctx context.Context, p auth.Principal, id string, c *models.Correction) (*models.Entry, error) {
	if err := auth.Authorize(p, auth.RoleAdmin); err != nil {
		return nil, err
	}
	content := strings.TrimSpace(c.Content)
	fileRef := strings.TrimSpace(c.FileRef)
	if content == "" && fileRef == "" {
		return nil, apperror.Validation("correctedContent", "corrected content or file is required")
	}

	entry, err := s.mutate(ctx, id, func(e *models.Entry) error {
		if !e.Approved {
			return apperror.Conflict("approved", "entry must be approved before correction")
		}
		if content != "" {
			e.CorrectedContent = models.StringPtr(content)
		}
		if fileRef != "" {
			e.CorrectedFileRef = models.StringPtr(fileRef)
		}
		e.Status = models.StatusCorrectionDone
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("entry_id", id).Str("by", p.UserID).Msg("Correction recorded")
	return entry, nil
}

// RecordCorrectionFile stores a corrected file and records it with optional text
func (s *reviewService) RecordCorrectionFile(ctx context.Context, p auth.Principal, id string, content string, upload *Upload) (*models.Entry, error) {
	if err := auth.Authorize(p, auth.RoleAdmin); err != nil {
		return nil, err
	}

	ref, err := saveUpload(ctx, s.blobs, "correction", upload, TextExtensions, s.cfg.Upload.MaxTextSize)
	if err != nil {
		return nil, err
	}

	entry, err := s.RecordCorrection(ctx, p, id, &models.Correction{Content: content, FileRef: ref})
	if err != nil {
		discardBlob(ctx, s.blobs, s.log, ref)
		return nil, err
	}
	return entry, nil
}

// MarkPending returns the entry to correction_pending; the recorded correction is kept
func (s *reviewService) MarkPending(ctx context.Context, p auth.Principal, id string) (*models.Entry, error) {
	if err := auth.Authorize(p, auth.RoleAdmin); err != nil {
		return nil, err
	}
	return s.mutate(ctx, id, func(e *models.Entry) error {
		if e.Status == models.StatusCorrectionPending {
			return errUnchanged
		}
		e.Status = models.StatusCorrectionPending
		return nil
	})
}

// MarkCorrected sets correction_done again for an entry that already has a correction
func (s *reviewService) MarkCorrected(ctx context.Context, p auth.Principal, id string) (*models.Entry, error) {
	if err := auth.Authorize(p, auth.RoleAdmin); err != nil {
		return nil, err
	}
	return s.mutate(ctx, id, func(e *models.Entry) error {
		if e.CorrectedContent == nil && e.CorrectedFileRef == nil {
			return apperror.Conflict("status", "no correction has been recorded for this entry")
		}
		if e.Status == models.StatusCorrectionDone {
			return errUnchanged
		}
		e.Status = models.StatusCorrectionDone
		return nil
	})
}

// Rate sets or overwrites the star rating of an approved entry
func (s *reviewService) Rate(ctx context.Context, p auth.Principal, id string, value float64) (*models.Entry, error) {
	if err := auth.Authorize(p, auth.RoleAdmin); err != nil {
		return nil, err
	}
	if err := validation.ValidateRating(value); err != nil {
		return nil, err
	}

	entry, err := s.mutate(ctx, id, func(e *models.Entry) error {
		if !e.Approved {
			return apperror.Conflict("approved", "entry must be approved before rating")
		}
		e.Rating = &value
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("entry_id", id).Float64("rating", value).Str("by", p.UserID).Msg("Entry rated")
	return entry, nil
}

// Feature makes the entry the single featured pick, clearing any previous one
func (s *reviewService) Feature(ctx context.Context, p auth.Principal, id string) (*models.Entry, error) {
	if err := auth.Authorize(p, auth.RoleAdmin); err != nil {
		return nil, err
	}

	entry, err := s.repos.Entry.Feature(ctx, id, func(e *models.Entry) error {
		if !e.Approved {
			return apperror.Conflict("approved", "entry must be approved before featuring")
		}
		now := time.Now().UTC()
		e.Featured = true
		e.FeaturedAt = &now
		return nil
	})
	if err != nil {
		return nil, storeErr(err)
	}
	if entry == nil {
		return nil, apperror.NotFound("entry", id)
	}

	s.log.Info().Str("entry_id", id).Str("by", p.UserID).Msg("Entry featured")
	return entry, nil
}

// Unfeature clears the featured flag unconditionally
func (s *reviewService) Unfeature(ctx context.Context, p auth.Principal, id string) (*models.Entry, error) {
	if err := auth.Authorize(p, auth.RoleAdmin); err != nil {
		return nil, err
	}
	return s.mutate(ctx, id, func(e *models.Entry) error {
		if !e.Featured {
			return errUnchanged
		}
		e.Featured = false
		e.FeaturedAt = nil
		return nil
	})
}

// List returns one page of entries. Callers without the administrator role
// cannot filter by status or approval; those predicates are dropped.
func (s *reviewService) List(ctx context.Context, p auth.Principal, filter models.EntryFilter) (*models.EntryPage, error) {
	if err := auth.Authorize(p, auth.RoleUser); err != nil {
		return nil, err
	}
	if !p.IsAdmin() {
		filter.Status = ""
		filter.Approved = nil
	}
	if err := validateFilter(filter); err != nil {
		return nil, err
	}

	page, err := s.repos.Entry.List(ctx, filter)
	if err != nil {
		return nil, storeErr(err)
	}
	return page, nil
}

// Get returns a single entry to an administrator or its author
func (s *reviewService) Get(ctx context.Context, p auth.Principal, id string) (*models.Entry, error) {
	if err := auth.Authorize(p, auth.RoleUser); err != nil {
		return nil, err
	}

	entry, err := s.repos.Entry.GetByID(ctx, id)
	if err != nil {
		return nil, storeErr(err)
	}
	if entry == nil {
		return nil, apperror.NotFound("entry", id)
	}
	if !p.IsAdmin() && entry.AuthorID != p.UserID {
		return nil, apperror.PermissionDenied("access denied")
	}
	return entry, nil
}

// Best returns the highest-rated approved entries, optionally of one kind
func (s *reviewService) Best(ctx context.Context, p auth.Principal, kind models.EntryKind, limit int) ([]*models.Entry, error) {
	if err := auth.Authorize(p, auth.RoleUser); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultBestLimit
	}

	filter := models.EntryFilter{
		Kind:     kind,
		Approved: models.BoolPtr(true),
		Rated:    models.BoolPtr(true),
		Sort:     models.SortRatingDesc,
		PerPage:  limit,
	}
	if err := validateFilter(filter); err != nil {
		return nil, err
	}

	page, err := s.repos.Entry.List(ctx, filter)
	if err != nil {
		return nil, storeErr(err)
	}
	return page.Entries, nil
}

// Featured returns the current featured entry, or nil when there is none
func (s *reviewService) Featured(ctx context.Context, p auth.Principal) (*models.Entry, error) {
	if err := auth.Authorize(p, auth.RoleUser); err != nil {
		return nil, err
	}

	page, err := s.repos.Entry.List(ctx, models.EntryFilter{Featured: models.BoolPtr(true), PerPage: 1})
	if err != nil {
		return nil, storeErr(err)
	}
	if len(page.Entries) == 0 {
		return nil, nil
	}
	return page.Entries[0], nil
}

// OpenFile opens the stored file of an entry for an administrator or its author.
// The returned name is the blob reference.
func (s *reviewService) OpenFile(ctx context.Context, p auth.Principal, id string) (io.ReadCloser, string, error) {
	entry, err := s.Get(ctx, p, id)
	if err != nil {
		return nil, "", err
	}

	ref := entry.StoredFileRef()
	if ref == "" {
		return nil, "", apperror.NotFound("file for entry", id)
	}

	rc, err := s.blobs.Open(ctx, ref)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, "", apperror.NotFound("file", ref)
	}
	if err != nil {
		return nil, "", apperror.Transport("blob store", err)
	}
	return rc, ref, nil
}

// mutate runs fn against the locked entry. errUnchanged skips the write and
// returns the entry as read.
func (s *reviewService) mutate(ctx context.Context, id string, fn func(*models.Entry) error) (*models.Entry, error) {
	var current *models.Entry
	entry, err := s.repos.Entry.Update(ctx, id, func(e *models.Entry) error {
		if err := fn(e); err != nil {
			if errors.Is(err, errUnchanged) {
				current = e.Clone()
			}
			return err
		}
		return nil
	})
	if errors.Is(err, errUnchanged) {
		return current, nil
	}
	if errors.Is(err, repository.ErrFeaturedElsewhere) {
		return nil, apperror.Conflict("featured", "another entry is already featured")
	}
	if err != nil {
		return nil, storeErr(err)
	}
	if entry == nil {
		return nil, apperror.NotFound("entry", id)
	}
	return entry, nil
}

func validateFilter(f models.EntryFilter) error {
	if f.Kind != "" && !models.ValidKinds[f.Kind] {
		return apperror.Validation("kind", "kind must be one of: individual, full")
	}
	if f.Language != "" && !models.ValidLanguages[f.Language] {
		return apperror.Validation("language", "unsupported language")
	}
	if f.Status != "" && !models.ValidStatuses[f.Status] {
		return apperror.Validation("status", "status must be one of: correction_pending, correction_done")
	}
	if !models.ValidSorts[f.Sort] {
		return apperror.Validation("sort", "sort must be one of: rating_desc, created_desc")
	}
	return nil
}
