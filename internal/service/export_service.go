package service

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/nazm-contest-api/internal/apperror"
	"github.com/nazm-contest-api/internal/auth"
	"github.com/nazm-contest-api/internal/models"
	"github.com/nazm-contest-api/internal/repository"
	"github.com/rs/zerolog"
)

// Export formats
const (
	FormatNDJSON = "ndjson"
	FormatJSON   = "json"
	FormatCSV    = "csv"
)

// ValidExportFormats defines allowed entry export formats
var ValidExportFormats = map[string]bool{
	FormatNDJSON: true,
	FormatJSON:   true,
	FormatCSV:    true,
}

// exportService is the concrete implementation of ExportService
type exportService struct {
	repos *repository.Repositories
	rank  *rankService
	log   zerolog.Logger
}

// newExportService creates a new ExportService
func newExportService(repos *repository.Repositories, rank *rankService, log zerolog.Logger) *exportService {
	return &exportService{
		repos: repos,
		rank:  rank,
		log:   log.With().Str("service", "export").Logger(),
	}
}

// StreamEntries writes every entry in insertion order (admin only)
func (s *exportService) StreamEntries(ctx context.Context, p auth.Principal, w io.Writer, format string) (int, error) {
	if err := auth.Authorize(p, auth.RoleAdmin); err != nil {
		return 0, err
	}
	if !ValidExportFormats[format] {
		return 0, apperror.Validation("format", "format must be one of: ndjson, json, csv")
	}

	s.log.Info().Str("format", format).Str("by", p.UserID).Msg("Starting entries export")

	var count int
	var err error
	switch format {
	case FormatNDJSON:
		count, err = s.streamEntriesNDJSON(ctx, w)
	case FormatJSON:
		count, err = s.streamEntriesJSON(ctx, w)
	case FormatCSV:
		count, err = s.streamEntriesCSV(ctx, w)
	}
	if err != nil {
		return count, storeErr(err)
	}

	s.log.Info().Int("count", count).Msg("Entries export completed")
	return count, nil
}

// StreamLeaderboard writes the leaderboard of kind as CSV
func (s *exportService) StreamLeaderboard(ctx context.Context, p auth.Principal, w io.Writer, kind models.EntryKind) (int, error) {
	if err := auth.Authorize(p, auth.RoleAdmin); err != nil {
		return 0, err
	}

	rows, err := s.rank.compute(ctx, kind)
	if err != nil {
		return 0, err
	}

	writer := csv.NewWriter(w)
	writer.Write([]string{"rank", "author_id", "author_name", "total_stars", "submission_count"})
	for i, row := range rows {
		writer.Write([]string{
			strconv.Itoa(i + 1),
			row.AuthorID,
			row.AuthorName,
			strconv.FormatFloat(row.TotalStars, 'f', 1, 64),
			strconv.Itoa(row.SubmissionCount),
		})
	}
	writer.Flush()
	return len(rows), writer.Error()
}

func (s *exportService) streamEntriesNDJSON(ctx context.Context, w io.Writer) (int, error) {
	flusher, _ := w.(http.Flusher)
	count := 0

	err := s.repos.Entry.StreamAll(ctx, func(entry *models.Entry) error {
		data, err := json.Marshal(entry)
		if err != nil {
			return err
		}
		w.Write(data)
		w.Write([]byte("\n"))
		count++

		// Flush every 100 records for streaming
		if count%100 == 0 && flusher != nil {
			flusher.Flush()
		}
		return nil
	})
	return count, err
}

func (s *exportService) streamEntriesJSON(ctx context.Context, w io.Writer) (int, error) {
	w.Write([]byte("["))
	count := 0

	err := s.repos.Entry.StreamAll(ctx, func(entry *models.Entry) error {
		if count > 0 {
			w.Write([]byte(","))
		}
		count++

		data, err := json.Marshal(entry)
		if err != nil {
			return err
		}
		w.Write(data)
		return nil
	})

	w.Write([]byte("]"))
	return count, err
}

func (s *exportService) streamEntriesCSV(ctx context.Context, w io.Writer) (int, error) {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	writer.Write([]string{
		"id", "author_id", "author_name", "kind", "language", "submission_method",
		"inspired_by_verse_id", "status", "approved", "rating", "featured", "created_at", "updated_at",
	})

	count := 0
	err := s.repos.Entry.StreamAll(ctx, func(entry *models.Entry) error {
		rating := ""
		if entry.Rating != nil {
			rating = strconv.FormatFloat(*entry.Rating, 'f', 1, 64)
		}
		count++
		return writer.Write([]string{
			entry.ID,
			entry.AuthorID,
			entry.AuthorName,
			string(entry.Kind),
			entry.Language,
			string(entry.SubmissionMethod),
			entry.InspiredByVerseID,
			string(entry.Status),
			strconv.FormatBool(entry.Approved),
			rating,
			strconv.FormatBool(entry.Featured),
			entry.CreatedAt.Format(time.RFC3339),
			entry.UpdatedAt.Format(time.RFC3339),
		})
	})
	return count, err
}

// GetCount returns count for a resource
func (s *exportService) GetCount(ctx context.Context, resource string) (int, error) {
	switch resource {
	case "entries":
		return s.repos.Entry.Count(ctx)
	case "verses":
		return s.repos.Verse.Count(ctx)
	default:
		return 0, apperror.Validation("resource", "unknown resource: "+resource)
	}
}
