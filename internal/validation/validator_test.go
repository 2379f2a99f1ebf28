package validation

import (
	"errors"
	"strings"
	"testing"

	"github.com/nazm-contest-api/internal/apperror"
	"github.com/nazm-contest-api/internal/models"
)

const testVerseID = "550e8400-e29b-41d4-a716-446655440000"

func TestValidateSubmission(t *testing.T) {
	validator := NewValidator()

	tests := []struct {
		name       string
		req        *models.SubmitRequest
		wantErrors int
		wantFields []string
	}{
		{
			name: "valid manual individual",
			req: &models.SubmitRequest{
				Kind:              models.KindIndividual,
				Language:          models.LanguageEnglish,
				Method:            models.MethodManual,
				Content:           strings.Repeat("a", 20),
				InspiredByVerseID: testVerseID,
			},
			wantErrors: 0,
		},
		{
			name: "manual content of 19 characters",
			req: &models.SubmitRequest{
				Kind:              models.KindIndividual,
				Language:          models.LanguageEnglish,
				Method:            models.MethodManual,
				Content:           strings.Repeat("a", 19),
				InspiredByVerseID: testVerseID,
			},
			wantErrors: 1,
			wantFields: []string{"content"},
		},
		{
			name: "manual content padded with whitespace is trimmed",
			req: &models.SubmitRequest{
				Kind:              models.KindFull,
				Language:          models.LanguageFrench,
				Method:            models.MethodManual,
				Content:           "   " + strings.Repeat("b", 19) + "\n\n",
				InspiredByVerseID: testVerseID,
			},
			wantErrors: 1,
			wantFields: []string{"content"},
		},
		{
			name: "manual content counted in characters not bytes",
			req: &models.SubmitRequest{
				Kind:              models.KindIndividual,
				Language:          models.LanguageUrdu,
				Method:            models.MethodManual,
				Content:           strings.Repeat("ش", 20),
				InspiredByVerseID: testVerseID,
			},
			wantErrors: 0,
		},
		{
			name: "manual with stray file reference",
			req: &models.SubmitRequest{
				Kind:              models.KindIndividual,
				Language:          models.LanguageEnglish,
				Method:            models.MethodManual,
				Content:           strings.Repeat("a", 25),
				FileRef:           "entries/x.pdf",
				InspiredByVerseID: testVerseID,
			},
			wantErrors: 1,
			wantFields: []string{"fileRef"},
		},
		{
			name: "upload without file",
			req: &models.SubmitRequest{
				Kind:              models.KindFull,
				Language:          models.LanguageArabic,
				Method:            models.MethodUpload,
				InspiredByVerseID: testVerseID,
			},
			wantErrors: 1,
			wantFields: []string{"fileRef"},
		},
		{
			name: "valid upload of full work",
			req: &models.SubmitRequest{
				Kind:              models.KindFull,
				Language:          models.LanguageArabic,
				Method:            models.MethodUpload,
				FileRef:           "entries/abc_poem.pdf",
				InspiredByVerseID: testVerseID,
			},
			wantErrors: 0,
		},
		{
			name: "recording of a full work is rejected",
			req: &models.SubmitRequest{
				Kind:              models.KindFull,
				Language:          models.LanguageUrdu,
				Method:            models.MethodRecording,
				AudioRef:          "entries/abc_poem.mp3",
				InspiredByVerseID: testVerseID,
			},
			wantErrors: 1,
			wantFields: []string{"kind"},
		},
		{
			name: "recording without audio",
			req: &models.SubmitRequest{
				Kind:              models.KindIndividual,
				Language:          models.LanguageLisanAlDawah,
				Method:            models.MethodRecording,
				InspiredByVerseID: testVerseID,
			},
			wantErrors: 1,
			wantFields: []string{"audioRef"},
		},
		{
			name: "missing verse reference",
			req: &models.SubmitRequest{
				Kind:     models.KindIndividual,
				Language: models.LanguageEnglish,
				Method:   models.MethodManual,
				Content:  strings.Repeat("a", 30),
			},
			wantErrors: 1,
			wantFields: []string{"inspiredByVerseId"},
		},
		{
			name: "multiple validation errors",
			req: &models.SubmitRequest{
				Kind:     "epic",
				Language: "Klingon",
				Method:   "fax",
			},
			wantErrors: 4,
			wantFields: []string{"kind", "language", "inspiredByVerseId", "submissionMethod"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := validator.ValidateSubmission(tt.req)
			if len(errs) != tt.wantErrors {
				t.Errorf("ValidateSubmission() got %d errors, want %d. Errors: %v", len(errs), tt.wantErrors, errs)
			}

			for _, wantField := range tt.wantFields {
				found := false
				for _, err := range errs {
					if err.Field == wantField {
						found = true
						break
					}
				}
				if !found {
					t.Errorf("Expected error for field '%s' but not found", wantField)
				}
			}
		})
	}
}

func TestValidateVerse(t *testing.T) {
	tests := []struct {
		name       string
		in         *models.VerseInput
		wantFields []string
	}{
		{
			name: "valid verse",
			in:   &models.VerseInput{Text: "A line to begin", Attribution: "Anon", Language: models.LanguageEnglish, Day: 3},
		},
		{
			name:       "empty text and attribution",
			in:         &models.VerseInput{Text: "  ", Attribution: "", Language: models.LanguageEnglish, Day: 1},
			wantFields: []string{"text", "attribution"},
		},
		{
			name:       "unsupported language",
			in:         &models.VerseInput{Text: "x", Attribution: "y", Language: "German", Day: 1},
			wantFields: []string{"language"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := NewValidator().ValidateVerse(tt.in)
			if len(errs) != len(tt.wantFields) {
				t.Fatalf("ValidateVerse() got %d errors, want %d: %v", len(errs), len(tt.wantFields), errs)
			}
			for i, f := range tt.wantFields {
				if errs[i].Field != f {
					t.Errorf("error %d: got field %q, want %q", i, errs[i].Field, f)
				}
			}
		})
	}
}

func TestValidateVerse_DuplicateInBatch(t *testing.T) {
	validator := NewValidator()
	in := &models.VerseInput{Text: "Same line", Attribution: "Poet", Language: models.LanguageUrdu, Day: 2}

	if errs := validator.ValidateVerse(in); len(errs) != 0 {
		t.Fatalf("first occurrence should be valid, got %v", errs)
	}
	validator.AddVerse(in)

	errs := validator.ValidateVerse(in)
	if len(errs) != 1 || errs[0].Field != "text" {
		t.Errorf("Expected duplicate error on text, got %v", errs)
	}

	other := *in
	other.Day = 3
	if errs := validator.ValidateVerse(&other); len(errs) != 0 {
		t.Errorf("same text on another day is allowed, got %v", errs)
	}
}

func TestValidateVersePatch(t *testing.T) {
	empty := ""
	lang := "Latin"
	ok := "Fine text"

	errs := NewValidator().ValidateVersePatch(&models.VersePatch{Text: &empty, Language: &lang})
	if len(errs) != 2 {
		t.Errorf("Expected 2 errors, got %v", errs)
	}

	errs = NewValidator().ValidateVersePatch(&models.VersePatch{Text: &ok})
	if len(errs) != 0 {
		t.Errorf("Expected no errors, got %v", errs)
	}
}

func TestCheckDay(t *testing.T) {
	for day := -1; day <= 12; day++ {
		err := CheckDay(day)
		inRange := day >= 1 && day <= 10
		if inRange && err != nil {
			t.Errorf("day %d should be accepted, got %v", day, err)
		}
		if !inRange && !errors.Is(err, apperror.ErrConflict) {
			t.Errorf("day %d should be a conflict, got %v", day, err)
		}
	}
}

func TestValidateRating(t *testing.T) {
	valid := []float64{0.5, 1, 1.5, 2, 2.5, 3, 3.5, 4, 4.5, 5}
	for _, v := range valid {
		if err := ValidateRating(v); err != nil {
			t.Errorf("rating %v should be valid: %v", v, err)
		}
	}

	invalid := []float64{0, -0.5, 0.25, 1.2, 5.5, 10}
	for _, v := range invalid {
		err := ValidateRating(v)
		if !errors.Is(err, apperror.ErrValidation) {
			t.Errorf("rating %v should be a validation error, got %v", v, err)
		}
	}
}

func TestIsValidID(t *testing.T) {
	if !IsValidID(testVerseID) {
		t.Error("uuid should be valid")
	}
	if IsValidID("not-a-uuid") {
		t.Error("garbage should be invalid")
	}
}
