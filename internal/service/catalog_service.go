package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/nazm-contest-api/internal/apperror"
	"github.com/nazm-contest-api/internal/auth"
	"github.com/nazm-contest-api/internal/models"
	"github.com/nazm-contest-api/internal/repository"
	"github.com/nazm-contest-api/internal/validation"
	"github.com/rs/zerolog"
)

// catalogService is the concrete implementation of CatalogService
type catalogService struct {
	repos *repository.Repositories
	log   zerolog.Logger
}

func newCatalogService(repos *repository.Repositories, log zerolog.Logger) *catalogService {
	return &catalogService{
		repos: repos,
		log:   log.With().Str("service", "catalog").Logger(),
	}
}

// ListVerses returns verses ordered by day; zero-valued filters match everything
func (s *catalogService) ListVerses(ctx context.Context, language string, day int) ([]*models.Verse, error) {
	if language != "" && !models.ValidLanguages[language] {
		return nil, apperror.Validation("language", "unsupported language")
	}
	if day != 0 && (day < models.FirstContestDay || day > models.LastContestDay) {
		return nil, apperror.Validation("day", "day must be between 1 and 10")
	}

	verses, err := s.repos.Verse.List(ctx, language, day)
	if err != nil {
		return nil, storeErr(err)
	}
	return verses, nil
}

func (s *catalogService) GetVerse(ctx context.Context, id string) (*models.Verse, error) {
	verse, err := s.repos.Verse.GetByID(ctx, id)
	if err != nil {
		return nil, storeErr(err)
	}
	if verse == nil {
		return nil, apperror.NotFound("verse", id)
	}
	return verse, nil
}

// CreateVerse adds a verse to the catalog (admin only)
func (s *catalogService) CreateVerse(ctx context.Context, p auth.Principal, in *models.VerseInput) (*models.Verse, error) {
	if err := auth.Authorize(p, auth.RoleAdmin); err != nil {
		return nil, err
	}
	if errs := validation.NewValidator().ValidateVerse(in); len(errs) > 0 {
		return nil, apperror.ValidationFields(errs)
	}
	if err := validation.CheckDay(in.Day); err != nil {
		return nil, err
	}

	verse := newVerse(in)
	if err := s.repos.Verse.Create(ctx, verse); err != nil {
		return nil, storeErr(err)
	}

	s.log.Info().
		Str("verse_id", verse.ID).
		Str("language", verse.Language).
		Int("day", verse.Day).
		Str("by", p.UserID).
		Msg("Verse created")
	return verse, nil
}

// UpdateVerse applies a partial update (admin only)
func (s *catalogService) UpdateVerse(ctx context.Context, p auth.Principal, id string, patch *models.VersePatch) (*models.Verse, error) {
	if err := auth.Authorize(p, auth.RoleAdmin); err != nil {
		return nil, err
	}
	if errs := validation.NewValidator().ValidateVersePatch(patch); len(errs) > 0 {
		return nil, apperror.ValidationFields(errs)
	}
	if patch.Day != nil {
		if err := validation.CheckDay(*patch.Day); err != nil {
			return nil, err
		}
	}

	verse, err := s.repos.Verse.Update(ctx, id, func(v *models.Verse) error {
		patch.Apply(v)
		return nil
	})
	if err != nil {
		return nil, storeErr(err)
	}
	if verse == nil {
		return nil, apperror.NotFound("verse", id)
	}

	s.log.Info().Str("verse_id", id).Str("by", p.UserID).Msg("Verse updated")
	return verse, nil
}

// DeleteVerse removes a verse that no entry references (admin only)
func (s *catalogService) DeleteVerse(ctx context.Context, p auth.Principal, id string) error {
	if err := auth.Authorize(p, auth.RoleAdmin); err != nil {
		return err
	}

	deleted, err := s.repos.Verse.Delete(ctx, id)
	if errors.Is(err, repository.ErrVerseInUse) {
		return apperror.Conflict("id", "verse is referenced by existing entries")
	}
	if err != nil {
		return storeErr(err)
	}
	if !deleted {
		return apperror.NotFound("verse", id)
	}

	s.log.Info().Str("verse_id", id).Str("by", p.UserID).Msg("Verse deleted")
	return nil
}

func newVerse(in *models.VerseInput) *models.Verse {
	now := time.Now().UTC()
	return &models.Verse{
		ID:          uuid.New().String(),
		Text:        in.Text,
		Attribution: in.Attribution,
		Language:    in.Language,
		Day:         in.Day,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
