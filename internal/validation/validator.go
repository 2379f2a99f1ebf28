package validation

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/nazm-contest-api/internal/apperror"
	"github.com/nazm-contest-api/internal/models"
)

// Rating bounds, in stars
const (
	MinRating  = 0.5
	MaxRating  = 5.0
	RatingStep = 0.5
)

// Validator provides validation methods
type Validator struct {
	verseCache map[string]bool
}

// NewValidator creates a new validator instance
func NewValidator() *Validator {
	return &Validator{
		verseCache: make(map[string]bool),
	}
}

// AddVerse records a verse in the batch duplicate cache
func (v *Validator) AddVerse(in *models.VerseInput) {
	v.verseCache[verseKey(in)] = true
}

// ValidateSubmission validates a new entry payload against the
// method-specific intake rules. Verse existence is checked by the caller.
func (v *Validator) ValidateSubmission(req *models.SubmitRequest) []apperror.FieldError {
	var errors []apperror.FieldError

	// Validate kind
	if req.Kind == "" {
		errors = append(errors, apperror.FieldError{Field: "kind", Message: "kind is required"})
	} else if !models.ValidKinds[req.Kind] {
		errors = append(errors, apperror.FieldError{Field: "kind", Message: "kind must be one of: individual, full", Value: string(req.Kind)})
	}

	// Validate language
	if req.Language == "" {
		errors = append(errors, apperror.FieldError{Field: "language", Message: "language is required"})
	} else if !models.ValidLanguages[req.Language] {
		errors = append(errors, apperror.FieldError{Field: "language", Message: "unsupported language", Value: req.Language})
	}

	// Validate inspiredByVerseId presence; resolution happens against the catalog
	if strings.TrimSpace(req.InspiredByVerseID) == "" {
		errors = append(errors, apperror.FieldError{Field: "inspiredByVerseId", Message: "inspiredByVerseId is required"})
	}

	// Validate method-specific payload
	switch req.Method {
	case "":
		errors = append(errors, apperror.FieldError{Field: "submissionMethod", Message: "submissionMethod is required"})
	case models.MethodManual:
		if n := utf8.RuneCountInString(strings.TrimSpace(req.Content)); n < models.MinManualContentLength {
			errors = append(errors, apperror.FieldError{
				Field:   "content",
				Message: fmt.Sprintf("content must be at least %d characters (has %d)", models.MinManualContentLength, n),
			})
		}
		errors = appendUnexpected(errors, "fileRef", req.FileRef)
		errors = appendUnexpected(errors, "audioRef", req.AudioRef)
	case models.MethodUpload:
		if strings.TrimSpace(req.FileRef) == "" {
			errors = append(errors, apperror.FieldError{Field: "fileRef", Message: "file is required for upload submissions"})
		}
		errors = appendUnexpected(errors, "content", req.Content)
		errors = appendUnexpected(errors, "audioRef", req.AudioRef)
	case models.MethodRecording:
		if req.Kind == models.KindFull {
			errors = append(errors, apperror.FieldError{Field: "kind", Message: "recordings are only accepted for individual entries", Value: string(req.Kind)})
		}
		if strings.TrimSpace(req.AudioRef) == "" {
			errors = append(errors, apperror.FieldError{Field: "audioRef", Message: "audio is required for recording submissions"})
		}
		errors = appendUnexpected(errors, "content", req.Content)
		errors = appendUnexpected(errors, "fileRef", req.FileRef)
	default:
		errors = append(errors, apperror.FieldError{
			Field:   "submissionMethod",
			Message: "submissionMethod must be one of: manual, upload, recording",
			Value:   string(req.Method),
		})
	}

	return errors
}

// ValidateVerse validates a verse payload. The day range is reported
// separately by CheckDay because it is a catalog invariant, not malformed input.
func (v *Validator) ValidateVerse(in *models.VerseInput) []apperror.FieldError {
	var errors []apperror.FieldError

	if strings.TrimSpace(in.Text) == "" {
		errors = append(errors, apperror.FieldError{Field: "text", Message: "text is required"})
	}
	if strings.TrimSpace(in.Attribution) == "" {
		errors = append(errors, apperror.FieldError{Field: "attribution", Message: "attribution is required"})
	}
	if in.Language == "" {
		errors = append(errors, apperror.FieldError{Field: "language", Message: "language is required"})
	} else if !models.ValidLanguages[in.Language] {
		errors = append(errors, apperror.FieldError{Field: "language", Message: "unsupported language", Value: in.Language})
	}
	if v.verseCache[verseKey(in)] {
		errors = append(errors, apperror.FieldError{Field: "text", Message: "duplicate verse in batch", Value: in.Text})
	}

	return errors
}

// ValidateVersePatch validates the fields present in a partial update
func (v *Validator) ValidateVersePatch(p *models.VersePatch) []apperror.FieldError {
	var errors []apperror.FieldError

	if p.Text != nil && strings.TrimSpace(*p.Text) == "" {
		errors = append(errors, apperror.FieldError{Field: "text", Message: "text must not be empty"})
	}
	if p.Attribution != nil && strings.TrimSpace(*p.Attribution) == "" {
		errors = append(errors, apperror.FieldError{Field: "attribution", Message: "attribution must not be empty"})
	}
	if p.Language != nil && !models.ValidLanguages[*p.Language] {
		errors = append(errors, apperror.FieldError{Field: "language", Message: "unsupported language", Value: *p.Language})
	}

	return errors
}

// CheckDay enforces the 10-day contest calendar
func CheckDay(day int) error {
	if day < models.FirstContestDay || day > models.LastContestDay {
		return apperror.Conflict("day", fmt.Sprintf("day must be between %d and %d", models.FirstContestDay, models.LastContestDay))
	}
	return nil
}

// ValidateRating checks value is within 0.5..5.0 in 0.5 steps
func ValidateRating(value float64) error {
	if math.IsNaN(value) || value < MinRating || value > MaxRating || math.Mod(value/RatingStep, 1) != 0 {
		return apperror.Validation("rating", "rating must be between 0.5 and 5.0 in 0.5 increments")
	}
	return nil
}

// IsValidID reports whether s is a well-formed entry or verse id
func IsValidID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

func appendUnexpected(errors []apperror.FieldError, field, value string) []apperror.FieldError {
	if strings.TrimSpace(value) == "" {
		return errors
	}
	return append(errors, apperror.FieldError{Field: field, Message: field + " is not accepted for this submission method"})
}

func verseKey(in *models.VerseInput) string {
	return fmt.Sprintf("%s|%d|%s", in.Language, in.Day, strings.TrimSpace(in.Text))
}
