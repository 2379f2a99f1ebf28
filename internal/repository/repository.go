package repository

import (
	"context"
	"errors"

	"github.com/lib/pq"
	"github.com/nazm-contest-api/internal/database"
	"github.com/nazm-contest-api/internal/models"
)

var (
	// ErrUnknownVerse is returned when an entry references a verse that does not exist
	ErrUnknownVerse = errors.New("referenced verse does not exist")
	// ErrVerseInUse is returned when deleting a verse that entries still reference
	ErrVerseInUse = errors.New("verse is referenced by entries")
	// ErrFeaturedElsewhere is returned when a plain Update would create a second featured entry
	ErrFeaturedElsewhere = errors.New("another entry is already featured")
)

// EntryRepository defines the interface for entry data operations.
//
// Lookups by an id that does not exist (or is not a well-formed id) return
// a nil entry and a nil error.
type EntryRepository interface {
	Create(ctx context.Context, entry *models.Entry) error
	GetByID(ctx context.Context, id string) (*models.Entry, error)
	List(ctx context.Context, filter models.EntryFilter) (*models.EntryPage, error)
	// Update applies mutate to the stored entry as one atomic read-modify-write.
	// An error from mutate aborts the write and is returned unchanged.
	Update(ctx context.Context, id string, mutate func(*models.Entry) error) (*models.Entry, error)
	// Feature is Update serialized against every other Feature call; after
	// mutate succeeds, any other featured entry is cleared in the same transaction.
	Feature(ctx context.Context, id string, mutate func(*models.Entry) error) (*models.Entry, error)
	// Delete removes an entry and returns the row as it was deleted, or nil if absent
	Delete(ctx context.Context, id string) (*models.Entry, error)
	Count(ctx context.Context) (int, error)
	StreamAll(ctx context.Context, callback func(*models.Entry) error) error
	// StreamRated streams approved, rated entries of kind in insertion order
	StreamRated(ctx context.Context, kind models.EntryKind, callback func(*models.Entry) error) error
}

// VerseRepository defines the interface for verse catalog operations
type VerseRepository interface {
	Create(ctx context.Context, verse *models.Verse) error
	BatchInsert(ctx context.Context, verses []*models.Verse) (int, error)
	GetByID(ctx context.Context, id string) (*models.Verse, error)
	Exists(ctx context.Context, id string) (bool, error)
	// List returns verses ordered by day, then creation; empty language or zero day match all
	List(ctx context.Context, language string, day int) ([]*models.Verse, error)
	Update(ctx context.Context, id string, mutate func(*models.Verse) error) (*models.Verse, error)
	Delete(ctx context.Context, id string) (bool, error)
	Count(ctx context.Context) (int, error)
}

// Repositories holds all repository interfaces
type Repositories struct {
	Entry EntryRepository
	Verse VerseRepository
}

// New creates all repositories with the given database connection
func New(db *database.DB) *Repositories {
	return &Repositories{
		Entry: NewEntryRepo(db),
		Verse: NewVerseRepo(db),
	}
}

// PostgreSQL error codes mapped onto repository errors
const (
	codeForeignKeyViolation pq.ErrorCode = "23503"
	codeUniqueViolation     pq.ErrorCode = "23505"
)

func pqCode(err error) pq.ErrorCode {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code
	}
	return ""
}
