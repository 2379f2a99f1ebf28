package models

import (
	"time"
)

// Contest calendar bounds for reference verses
const (
	FirstContestDay = 1
	LastContestDay  = 10
)

// Supported contest languages
const (
	LanguageEnglish      = "English"
	LanguageArabic       = "Arabic"
	LanguageUrdu         = "Urdu"
	LanguageLisanAlDawah = "Lisan al-Dawah"
	LanguageFrench       = "French"
)

// ValidLanguages defines the fixed language set shared by verses and entries
var ValidLanguages = map[string]bool{
	LanguageEnglish:      true,
	LanguageArabic:       true,
	LanguageUrdu:         true,
	LanguageLisanAlDawah: true,
	LanguageFrench:       true,
}

// Verse is an administrator-curated daily reference prompt (matla)
type Verse struct {
	ID          string    `json:"id" db:"id"`
	Text        string    `json:"text" db:"text"`
	Attribution string    `json:"attribution" db:"attribution"`
	Language    string    `json:"language" db:"language"`
	Day         int       `json:"day" db:"day"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
}

// VerseInput is the payload for creating a verse
type VerseInput struct {
	Text        string `json:"text" toml:"text"`
	Attribution string `json:"attribution" toml:"attribution"`
	Language    string `json:"language" toml:"language"`
	Day         int    `json:"day" toml:"day"`
}

// VersePatch is a partial verse update; nil fields are left unchanged
type VersePatch struct {
	Text        *string `json:"text,omitempty"`
	Attribution *string `json:"attribution,omitempty"`
	Language    *string `json:"language,omitempty"`
	Day         *int    `json:"day,omitempty"`
}

// Apply copies the set fields of p onto v
func (p VersePatch) Apply(v *Verse) {
	if p.Text != nil {
		v.Text = *p.Text
	}
	if p.Attribution != nil {
		v.Attribution = *p.Attribution
	}
	if p.Language != nil {
		v.Language = *p.Language
	}
	if p.Day != nil {
		v.Day = *p.Day
	}
}

// ImportError describes a rejected row of a verse import
type ImportError struct {
	Line    int         `json:"line"`
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
}

// VerseImportResult summarizes a bulk verse import
type VerseImportResult struct {
	Total    int           `json:"total"`
	Inserted int           `json:"inserted"`
	Failed   int           `json:"failed"`
	Errors   []ImportError `json:"errors"`
}
