package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/nazm-contest-api/internal/database"
	"github.com/nazm-contest-api/internal/models"
	"github.com/nazm-contest-api/internal/validation"
)

const verseColumns = "id, text, attribution, language, day, created_at, updated_at"

// verseRepo is the concrete implementation of VerseRepository
type verseRepo struct {
	db *database.DB
}

// NewVerseRepo creates a new verse repository
func NewVerseRepo(db *database.DB) VerseRepository {
	return &verseRepo{db: db}
}

// Create inserts a new verse
func (r *verseRepo) Create(ctx context.Context, verse *models.Verse) error {
	query := `
		INSERT INTO verses (` + verseColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.ExecContext(ctx, query,
		verse.ID, verse.Text, verse.Attribution, verse.Language, verse.Day,
		verse.CreatedAt, verse.UpdatedAt,
	)
	return err
}

// BatchInsert inserts multiple verses using PostgreSQL COPY
func (r *verseRepo) BatchInsert(ctx context.Context, verses []*models.Verse) (int, error) {
	if len(verses) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, pq.CopyIn("verses",
		"id", "text", "attribution", "language", "day", "created_at", "updated_at",
	))
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	for _, verse := range verses {
		_, err := stmt.ExecContext(ctx,
			verse.ID, verse.Text, verse.Attribution, verse.Language, verse.Day,
			verse.CreatedAt, verse.UpdatedAt,
		)
		if err != nil {
			return 0, fmt.Errorf("copy verse %s: %w", verse.ID, err)
		}
	}

	// Flush the COPY buffer
	if _, err := stmt.ExecContext(ctx); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}

	return len(verses), nil
}

// GetByID retrieves a verse by ID
func (r *verseRepo) GetByID(ctx context.Context, id string) (*models.Verse, error) {
	if !validation.IsValidID(id) {
		return nil, nil
	}

	row := r.db.QueryRowContext(ctx, "SELECT "+verseColumns+" FROM verses WHERE id = $1", id)
	verse, err := scanVerse(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return verse, nil
}

// Exists checks if a verse with the given ID exists
func (r *verseRepo) Exists(ctx context.Context, id string) (bool, error) {
	if !validation.IsValidID(id) {
		return false, nil
	}

	var exists bool
	err := r.db.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM verses WHERE id = $1)", id).Scan(&exists)
	return exists, err
}

// List retrieves verses filtered by language and day, ordered by day
func (r *verseRepo) List(ctx context.Context, language string, day int) ([]*models.Verse, error) {
	var conds []string
	var args []interface{}
	if language != "" {
		args = append(args, language)
		conds = append(conds, fmt.Sprintf("language = $%d", len(args)))
	}
	if day != 0 {
		args = append(args, day)
		conds = append(conds, fmt.Sprintf("day = $%d", len(args)))
	}

	query := "SELECT " + verseColumns + " FROM verses"
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY day, created_at, id"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	verses := make([]*models.Verse, 0)
	for rows.Next() {
		verse, err := scanVerse(rows)
		if err != nil {
			return nil, err
		}
		verses = append(verses, verse)
	}
	return verses, rows.Err()
}

// Update locks the verse row, applies mutate and writes the result back
func (r *verseRepo) Update(ctx context.Context, id string, mutate func(*models.Verse) error) (*models.Verse, error) {
	if !validation.IsValidID(id) {
		return nil, nil
	}

	var updated *models.Verse
	err := r.db.WithTx(ctx, nil, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, "SELECT "+verseColumns+" FROM verses WHERE id = $1 FOR UPDATE", id)
		verse, err := scanVerse(row)
		if err == sql.ErrNoRows {
			return nil
		}
		if err != nil {
			return err
		}
		if err := mutate(verse); err != nil {
			return err
		}

		verse.UpdatedAt = time.Now().UTC()
		_, err = tx.ExecContext(ctx, `
			UPDATE verses SET text = $1, attribution = $2, language = $3, day = $4, updated_at = $5
			WHERE id = $6
		`, verse.Text, verse.Attribution, verse.Language, verse.Day, verse.UpdatedAt, verse.ID)
		if err != nil {
			return err
		}
		updated = verse
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes a verse. Referenced verses are protected by the entries
// foreign key and yield ErrVerseInUse.
func (r *verseRepo) Delete(ctx context.Context, id string) (bool, error) {
	if !validation.IsValidID(id) {
		return false, nil
	}

	result, err := r.db.ExecContext(ctx, "DELETE FROM verses WHERE id = $1", id)
	if pqCode(err) == codeForeignKeyViolation {
		return false, ErrVerseInUse
	}
	if err != nil {
		return false, err
	}
	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

// Count returns the total number of verses
func (r *verseRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM verses").Scan(&count)
	return count, err
}

func scanVerse(row rowScanner) (*models.Verse, error) {
	var verse models.Verse
	err := row.Scan(
		&verse.ID, &verse.Text, &verse.Attribution, &verse.Language, &verse.Day,
		&verse.CreatedAt, &verse.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &verse, nil
}
