package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/nazm-contest-api/internal/database"
	"github.com/nazm-contest-api/internal/models"
	"github.com/nazm-contest-api/internal/validation"
)

// featureLockKey is the advisory lock serializing Feature transactions
const featureLockKey int64 = 0x6e617a6d // "nazm"

// entryRepo is the concrete implementation of EntryRepository
type entryRepo struct {
	db *database.DB
}

// NewEntryRepo creates a new entry repository
func NewEntryRepo(db *database.DB) EntryRepository {
	return &entryRepo{db: db}
}

// Create inserts a new entry
func (r *entryRepo) Create(ctx context.Context, entry *models.Entry) error {
	query := `
		INSERT INTO entries (` + entryColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`
	_, err := r.db.ExecContext(ctx, query,
		entry.ID, entry.AuthorID, entry.AuthorName, string(entry.Kind), entry.Language,
		string(entry.SubmissionMethod), nullString(entry.Content), nullString(entry.FileRef),
		nullString(entry.AudioRef), entry.InspiredByVerseID, string(entry.Status), entry.Approved,
		nullFloat(entry.Rating), nullString(entry.CorrectedContent), nullString(entry.CorrectedFileRef),
		entry.Featured, nullTime(entry.FeaturedAt), entry.CreatedAt, entry.UpdatedAt,
	)
	if pqCode(err) == codeForeignKeyViolation {
		return ErrUnknownVerse
	}
	return err
}

// GetByID retrieves an entry by ID
func (r *entryRepo) GetByID(ctx context.Context, id string) (*models.Entry, error) {
	if !validation.IsValidID(id) {
		return nil, nil
	}

	row := r.db.QueryRowContext(ctx, "SELECT "+entryColumns+" FROM entries WHERE id = $1", id)
	entry, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// List returns one page of entries matching filter, with the total match count.
// Both statements read from the same snapshot.
func (r *entryRepo) List(ctx context.Context, filter models.EntryFilter) (*models.EntryPage, error) {
	filter.Normalize()
	listSQL, countSQL, args := buildEntryListQuery(filter)

	page := &models.EntryPage{
		Entries: make([]*models.Entry, 0),
		Page:    filter.Page,
		PerPage: filter.PerPage,
	}

	opts := &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}
	err := r.db.WithTx(ctx, opts, func(tx *sql.Tx) error {
		if err := tx.QueryRowContext(ctx, countSQL, args...).Scan(&page.Total); err != nil {
			return err
		}

		rows, err := tx.QueryContext(ctx, listSQL, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			entry, err := scanEntry(rows)
			if err != nil {
				return err
			}
			page.Entries = append(page.Entries, entry)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}

	return page, nil
}

// Update locks the entry row, applies mutate and writes the result back
func (r *entryRepo) Update(ctx context.Context, id string, mutate func(*models.Entry) error) (*models.Entry, error) {
	if !validation.IsValidID(id) {
		return nil, nil
	}

	var updated *models.Entry
	err := r.db.WithTx(ctx, nil, func(tx *sql.Tx) error {
		entry, err := lockEntry(ctx, tx, id)
		if err != nil || entry == nil {
			return err
		}
		if err := mutate(entry); err != nil {
			return err
		}
		entry.UpdatedAt = time.Now().UTC()
		if err := writeEntry(ctx, tx, entry); err != nil {
			return err
		}
		updated = entry
		return nil
	})
	if pqCode(err) == codeUniqueViolation {
		return nil, ErrFeaturedElsewhere
	}
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Feature applies mutate under the global feature lock and clears every
// other featured entry in the same transaction
func (r *entryRepo) Feature(ctx context.Context, id string, mutate func(*models.Entry) error) (*models.Entry, error) {
	if !validation.IsValidID(id) {
		return nil, nil
	}

	var updated *models.Entry
	err := r.db.WithTx(ctx, nil, func(tx *sql.Tx) error {
		if err := database.AdvisoryXactLock(ctx, tx, featureLockKey); err != nil {
			return err
		}

		entry, err := lockEntry(ctx, tx, id)
		if err != nil || entry == nil {
			return err
		}
		if err := mutate(entry); err != nil {
			return err
		}

		now := time.Now().UTC()
		_, err = tx.ExecContext(ctx, `
			UPDATE entries SET featured = FALSE, featured_at = NULL, updated_at = $2
			WHERE featured AND id <> $1
		`, id, now)
		if err != nil {
			return err
		}

		entry.UpdatedAt = now
		if err := writeEntry(ctx, tx, entry); err != nil {
			return err
		}
		updated = entry
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes an entry and returns the deleted row
func (r *entryRepo) Delete(ctx context.Context, id string) (*models.Entry, error) {
	if !validation.IsValidID(id) {
		return nil, nil
	}

	row := r.db.QueryRowContext(ctx, "DELETE FROM entries WHERE id = $1 RETURNING "+entryColumns, id)
	entry, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// Count returns the total number of entries
func (r *entryRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM entries").Scan(&count)
	return count, err
}

// StreamAll streams all entries in insertion order (memory efficient)
func (r *entryRepo) StreamAll(ctx context.Context, callback func(*models.Entry) error) error {
	return r.stream(ctx, "SELECT "+entryColumns+" FROM entries ORDER BY seq", callback)
}

// StreamRated streams the approved, rated entries of kind
func (r *entryRepo) StreamRated(ctx context.Context, kind models.EntryKind, callback func(*models.Entry) error) error {
	query := "SELECT " + entryColumns + ` FROM entries
		WHERE kind = $1 AND approved AND rating IS NOT NULL
		ORDER BY seq`
	return r.stream(ctx, query, callback, string(kind))
}

func (r *entryRepo) stream(ctx context.Context, query string, callback func(*models.Entry) error, args ...interface{}) error {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return err
		}
		if err := callback(entry); err != nil {
			return err
		}
	}

	return rows.Err()
}

// lockEntry selects an entry FOR UPDATE; a missing row yields nil, nil
func lockEntry(ctx context.Context, tx *sql.Tx, id string) (*models.Entry, error) {
	row := tx.QueryRowContext(ctx, "SELECT "+entryColumns+" FROM entries WHERE id = $1 FOR UPDATE", id)
	entry, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return entry, err
}

// writeEntry persists the mutable workflow columns of entry
func writeEntry(ctx context.Context, tx *sql.Tx, entry *models.Entry) error {
	query := `
		UPDATE entries SET
			status = $1, approved = $2, rating = $3, corrected_content = $4,
			corrected_file_ref = $5, featured = $6, featured_at = $7, updated_at = $8
		WHERE id = $9
	`
	_, err := tx.ExecContext(ctx, query,
		string(entry.Status), entry.Approved, nullFloat(entry.Rating),
		nullString(entry.CorrectedContent), nullString(entry.CorrectedFileRef),
		entry.Featured, nullTime(entry.FeaturedAt), entry.UpdatedAt, entry.ID,
	)
	return err
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEntry(row rowScanner) (*models.Entry, error) {
	var entry models.Entry
	var kind, method, status string
	var content, fileRef, audioRef, correctedContent, correctedFileRef sql.NullString
	var rating sql.NullFloat64
	var featuredAt sql.NullTime

	err := row.Scan(
		&entry.ID, &entry.AuthorID, &entry.AuthorName, &kind, &entry.Language, &method,
		&content, &fileRef, &audioRef, &entry.InspiredByVerseID, &status, &entry.Approved, &rating,
		&correctedContent, &correctedFileRef, &entry.Featured, &featuredAt, &entry.CreatedAt, &entry.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	entry.Kind = models.EntryKind(kind)
	entry.SubmissionMethod = models.SubmissionMethod(method)
	entry.Status = models.CorrectionStatus(status)
	entry.Content = stringPtr(content)
	entry.FileRef = stringPtr(fileRef)
	entry.AudioRef = stringPtr(audioRef)
	entry.CorrectedContent = stringPtr(correctedContent)
	entry.CorrectedFileRef = stringPtr(correctedFileRef)
	if rating.Valid {
		entry.Rating = &rating.Float64
	}
	if featuredAt.Valid {
		entry.FeaturedAt = &featuredAt.Time
	}

	return &entry, nil
}

// helpers to convert optional fields to and from NULL

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func stringPtr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}
