package models

import (
	"time"
)

// EntryKind distinguishes a short couplet from a complete work
type EntryKind string

const (
	KindIndividual EntryKind = "individual"
	KindFull       EntryKind = "full"
)

// ValidKinds defines allowed entry kinds
var ValidKinds = map[EntryKind]bool{
	KindIndividual: true,
	KindFull:       true,
}

// SubmissionMethod determines which content field of an entry is authoritative
type SubmissionMethod string

const (
	MethodManual    SubmissionMethod = "manual"
	MethodUpload    SubmissionMethod = "upload"
	MethodRecording SubmissionMethod = "recording"
)

// ValidMethods defines allowed submission methods
var ValidMethods = map[SubmissionMethod]bool{
	MethodManual:    true,
	MethodUpload:    true,
	MethodRecording: true,
}

// CorrectionStatus tracks the araz pass, independent of approval
type CorrectionStatus string

const (
	StatusCorrectionPending CorrectionStatus = "correction_pending"
	StatusCorrectionDone    CorrectionStatus = "correction_done"
)

// ValidStatuses defines allowed correction statuses
var ValidStatuses = map[CorrectionStatus]bool{
	StatusCorrectionPending: true,
	StatusCorrectionDone:    true,
}

// MinManualContentLength is the minimum trimmed length, in characters, of manual content
const MinManualContentLength = 20

// Entry is a submitted poetic work
type Entry struct {
	ID                string           `json:"id" db:"id"`
	AuthorID          string           `json:"authorId" db:"author_id"`
	AuthorName        string           `json:"authorName" db:"author_name"`
	Kind              EntryKind        `json:"kind" db:"kind"`
	Language          string           `json:"language" db:"language"`
	SubmissionMethod  SubmissionMethod `json:"submissionMethod" db:"submission_method"`
	Content           *string          `json:"content" db:"content"`
	FileRef           *string          `json:"fileRef" db:"file_ref"`
	AudioRef          *string          `json:"audioRef" db:"audio_ref"`
	InspiredByVerseID string           `json:"inspiredByVerseId" db:"inspired_by_verse_id"`
	Status            CorrectionStatus `json:"status" db:"status"`
	Approved          bool             `json:"approved" db:"approved"`
	Rating            *float64         `json:"rating" db:"rating"`
	CorrectedContent  *string          `json:"correctedContent" db:"corrected_content"`
	CorrectedFileRef  *string          `json:"correctedFileRef" db:"corrected_file_ref"`
	Featured          bool             `json:"featured" db:"featured"`
	FeaturedAt        *time.Time       `json:"featuredAt" db:"featured_at"`
	CreatedAt         time.Time        `json:"createdAt" db:"created_at"`
	UpdatedAt         time.Time        `json:"updatedAt" db:"updated_at"`
}

// Clone returns a deep copy so callers never share pointer fields
func (e *Entry) Clone() *Entry {
	if e == nil {
		return nil
	}
	c := *e
	c.Content = cloneString(e.Content)
	c.FileRef = cloneString(e.FileRef)
	c.AudioRef = cloneString(e.AudioRef)
	c.CorrectedContent = cloneString(e.CorrectedContent)
	c.CorrectedFileRef = cloneString(e.CorrectedFileRef)
	if e.Rating != nil {
		r := *e.Rating
		c.Rating = &r
	}
	if e.FeaturedAt != nil {
		t := *e.FeaturedAt
		c.FeaturedAt = &t
	}
	return &c
}

// StoredFileRef returns the first blob reference attached to the entry, if any
func (e *Entry) StoredFileRef() string {
	for _, ref := range []*string{e.FileRef, e.AudioRef, e.CorrectedFileRef} {
		if ref != nil && *ref != "" {
			return *ref
		}
	}
	return ""
}

// SubmitRequest carries the payload of a new submission
type SubmitRequest struct {
	Kind              EntryKind        `json:"kind"`
	Language          string           `json:"language"`
	Method            SubmissionMethod `json:"submissionMethod"`
	Content           string           `json:"content,omitempty"`
	FileRef           string           `json:"fileRef,omitempty"`
	AudioRef          string           `json:"audioRef,omitempty"`
	InspiredByVerseID string           `json:"inspiredByVerseId"`
}

// Correction is the araz payload; at least one field must be set
type Correction struct {
	Content string `json:"correctedContent,omitempty"`
	FileRef string `json:"correctedFileRef,omitempty"`
}

// EntrySort selects result ordering for entry listings
type EntrySort string

const (
	SortInsertion  EntrySort = ""
	SortRatingDesc EntrySort = "rating_desc"
	SortNewest     EntrySort = "created_desc"
)

// ValidSorts defines allowed sort keys
var ValidSorts = map[EntrySort]bool{
	SortInsertion:  true,
	SortRatingDesc: true,
	SortNewest:     true,
}

const (
	DefaultPerPage = 20
	MaxPerPage     = 100
)

// EntryFilter holds independently optional predicates, combined with AND.
// Zero values match everything.
type EntryFilter struct {
	Kind     EntryKind
	Language string
	Status   CorrectionStatus
	Approved *bool
	Featured *bool
	Rated    *bool
	AuthorID string
	Search   string
	Sort     EntrySort
	Page     int
	PerPage  int
}

// Normalize applies pagination defaults and bounds
func (f *EntryFilter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PerPage < 1 {
		f.PerPage = DefaultPerPage
	}
	if f.PerPage > MaxPerPage {
		f.PerPage = MaxPerPage
	}
}

// Offset returns the number of rows to skip for the current page
func (f EntryFilter) Offset() int {
	return (f.Page - 1) * f.PerPage
}

// EntryPage is one page of a filtered listing
type EntryPage struct {
	Entries []*Entry `json:"entries"`
	Total   int      `json:"total"`
	Page    int      `json:"page"`
	PerPage int      `json:"perPage"`
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// StringPtr returns a pointer to s
func StringPtr(s string) *string {
	return &s
}

// BoolPtr returns a pointer to b
func BoolPtr(b bool) *bool {
	return &b
}
