package service

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/nazm-contest-api/internal/apperror"
	"github.com/nazm-contest-api/internal/auth"
	"github.com/nazm-contest-api/internal/models"
	"github.com/nazm-contest-api/internal/validation"
)

// Verse import formats
const (
	ImportFormatNDJSON = "ndjson"
	ImportFormatTOML   = "toml"
)

const importBatchSize = 500

// verseFile is the TOML seed layout: one [[verse]] table per verse
type verseFile struct {
	Verses []models.VerseInput `toml:"verse"`
}

// ImportVerses reads verses from r, inserts every valid one in batches and
// reports the rejected rows. Line numbers are NDJSON lines or TOML table
// positions (1-based). Batches are committed independently: when a later
// batch fails, the error comes back with a result whose Inserted counts the
// verses already committed.
func (s *catalogService) ImportVerses(ctx context.Context, p auth.Principal, r io.Reader, format string) (*models.VerseImportResult, error) {
	if err := auth.Authorize(p, auth.RoleAdmin); err != nil {
		return nil, err
	}

	startTime := time.Now()
	result := &models.VerseImportResult{Errors: make([]models.ImportError, 0)}

	var err error
	switch format {
	case ImportFormatNDJSON:
		err = s.importNDJSON(ctx, r, result)
	case ImportFormatTOML:
		err = s.importTOML(ctx, r, result)
	default:
		return nil, apperror.Validation("format", "format must be one of: ndjson, toml")
	}
	if err != nil {
		s.log.Error().Err(err).
			Str("format", format).
			Int("inserted", result.Inserted).
			Msg("Verse import failed")
		return result, err
	}

	s.log.Info().
		Str("format", format).
		Int("total", result.Total).
		Int("inserted", result.Inserted).
		Int("failed", result.Failed).
		Int64("duration_ms", time.Since(startTime).Milliseconds()).
		Str("by", p.UserID).
		Msg("Verse import completed")
	return result, nil
}

func (s *catalogService) importNDJSON(ctx context.Context, r io.Reader, result *models.VerseImportResult) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	b := newVerseBatch(s, result)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		result.Total++

		var in models.VerseInput
		if err := json.Unmarshal([]byte(line), &in); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, models.ImportError{Line: lineNum, Message: "invalid JSON: " + err.Error()})
			continue
		}
		if err := b.add(ctx, lineNum, &in); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return apperror.Validation("file", fmt.Sprintf("read failed: %v", err))
	}
	return b.flush(ctx)
}

func (s *catalogService) importTOML(ctx context.Context, r io.Reader, result *models.VerseImportResult) error {
	var file verseFile
	if _, err := toml.NewDecoder(r).Decode(&file); err != nil {
		return apperror.Validation("file", fmt.Sprintf("invalid TOML: %v", err))
	}

	b := newVerseBatch(s, result)
	for i := range file.Verses {
		result.Total++
		if err := b.add(ctx, i+1, &file.Verses[i]); err != nil {
			return err
		}
	}
	return b.flush(ctx)
}

// verseBatch validates rows and buffers the valid ones for BatchInsert
type verseBatch struct {
	svc       *catalogService
	result    *models.VerseImportResult
	validator *validation.Validator
	pending   []*models.Verse
}

func newVerseBatch(svc *catalogService, result *models.VerseImportResult) *verseBatch {
	return &verseBatch{
		svc:       svc,
		result:    result,
		validator: validation.NewValidator(),
	}
}

func (b *verseBatch) add(ctx context.Context, line int, in *models.VerseInput) error {
	errs := b.validator.ValidateVerse(in)
	if validation.CheckDay(in.Day) != nil {
		errs = append(errs, apperror.FieldError{Field: "day", Message: "day must be between 1 and 10", Value: in.Day})
	}
	if len(errs) > 0 {
		b.result.Failed++
		for _, e := range errs {
			b.result.Errors = append(b.result.Errors, models.ImportError{
				Line:    line,
				Field:   e.Field,
				Message: e.Message,
				Value:   e.Value,
			})
		}
		return nil
	}

	b.validator.AddVerse(in)
	b.pending = append(b.pending, newVerse(in))
	if len(b.pending) >= importBatchSize {
		return b.flush(ctx)
	}
	return nil
}

func (b *verseBatch) flush(ctx context.Context) error {
	if len(b.pending) == 0 {
		return nil
	}
	inserted, err := b.svc.repos.Verse.BatchInsert(ctx, b.pending)
	if err != nil {
		return storeErr(err)
	}
	b.result.Inserted += inserted
	b.svc.log.Debug().Int("batch_size", len(b.pending)).Msg("Verse batch inserted")
	b.pending = b.pending[:0]
	return nil
}
