package service

import (
	"context"
	"errors"
	"io"

	"github.com/nazm-contest-api/internal/apperror"
	"github.com/nazm-contest-api/internal/auth"
	"github.com/nazm-contest-api/internal/config"
	"github.com/nazm-contest-api/internal/models"
	"github.com/nazm-contest-api/internal/repository"
	"github.com/nazm-contest-api/internal/storage"
	"github.com/rs/zerolog"
)

// CatalogService defines the interface for verse catalog operations
type CatalogService interface {
	ListVerses(ctx context.Context, language string, day int) ([]*models.Verse, error)
	GetVerse(ctx context.Context, id string) (*models.Verse, error)
	CreateVerse(ctx context.Context, p auth.Principal, in *models.VerseInput) (*models.Verse, error)
	UpdateVerse(ctx context.Context, p auth.Principal, id string, patch *models.VersePatch) (*models.Verse, error)
	DeleteVerse(ctx context.Context, p auth.Principal, id string) error
	ImportVerses(ctx context.Context, p auth.Principal, r io.Reader, format string) (*models.VerseImportResult, error)
}

// IntakeService defines the interface for entry submission
type IntakeService interface {
	Submit(ctx context.Context, p auth.Principal, req *models.SubmitRequest) (*models.Entry, error)
	SubmitFile(ctx context.Context, p auth.Principal, req *models.SubmitRequest, upload *Upload) (*models.Entry, error)
}

// ReviewService defines the interface for the administrator workflow and entry queries
type ReviewService interface {
	Approve(ctx context.Context, p auth.Principal, id string) (*models.Entry, error)
	Reject(ctx context.Context, p auth.Principal, id string) error
	RecordCorrection(ctx context.Context, p auth.Principal, id string, c *models.Correction) (*models.Entry, error)
	RecordCorrectionFile(ctx context.Context, p auth.Principal, id string, content string, upload *Upload) (*models.Entry, error)
	MarkPending(ctx context.Context, p auth.Principal, id string) (*models.Entry, error)
	MarkCorrected(ctx context.Context, p auth.Principal, id string) (*models.Entry, error)
	Rate(ctx context.Context, p auth.Principal, id string, value float64) (*models.Entry, error)
	Feature(ctx context.Context, p auth.Principal, id string) (*models.Entry, error)
	Unfeature(ctx context.Context, p auth.Principal, id string) (*models.Entry, error)

	List(ctx context.Context, p auth.Principal, filter models.EntryFilter) (*models.EntryPage, error)
	Get(ctx context.Context, p auth.Principal, id string) (*models.Entry, error)
	Best(ctx context.Context, p auth.Principal, kind models.EntryKind, limit int) ([]*models.Entry, error)
	Featured(ctx context.Context, p auth.Principal) (*models.Entry, error)
	OpenFile(ctx context.Context, p auth.Principal, id string) (io.ReadCloser, string, error)
}

// RankService defines the interface for leaderboard computation
type RankService interface {
	Leaderboard(ctx context.Context, p auth.Principal, kind models.EntryKind) ([]models.RankEntry, error)
}

// ExportService defines the interface for export operations
type ExportService interface {
	StreamEntries(ctx context.Context, p auth.Principal, w io.Writer, format string) (int, error)
	StreamLeaderboard(ctx context.Context, p auth.Principal, w io.Writer, kind models.EntryKind) (int, error)
	GetCount(ctx context.Context, resource string) (int, error)
}

// Services holds all service interfaces
type Services struct {
	Catalog CatalogService
	Intake  IntakeService
	Review  ReviewService
	Rank    RankService
	Export  ExportService
}

// NewServices creates all services
func NewServices(repos *repository.Repositories, blobs storage.BlobStore, cfg *config.Config, log zerolog.Logger) *Services {
	rankSvc := newRankService(repos, log)

	return &Services{
		Catalog: newCatalogService(repos, log),
		Intake:  newIntakeService(repos, blobs, cfg, log),
		Review:  newReviewService(repos, blobs, cfg, log),
		Rank:    rankSvc,
		Export:  newExportService(repos, rankSvc, log),
	}
}

// errUnchanged aborts a mutation that would not change the entry
var errUnchanged = errors.New("unchanged")

// storeErr passes taxonomy errors through and wraps everything else as a
// database transport failure
func storeErr(err error) error {
	if err == nil || apperror.IsKnown(err) {
		return err
	}
	return apperror.Transport("database", err)
}
