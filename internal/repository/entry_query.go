package repository

import (
	"fmt"
	"strings"

	"github.com/nazm-contest-api/internal/models"
)

const entryColumns = `id, author_id, author_name, kind, language, submission_method,
	content, file_ref, audio_ref, inspired_by_verse_id, status, approved, rating,
	corrected_content, corrected_file_ref, featured, featured_at, created_at, updated_at`

// entryWhere builds the WHERE clause and positional args for filter.
// Absent predicates are omitted; present ones are combined with AND.
func entryWhere(filter models.EntryFilter) (string, []interface{}) {
	var conds []string
	var args []interface{}

	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if filter.Kind != "" {
		add("kind = $%d", string(filter.Kind))
	}
	if filter.Language != "" {
		add("language = $%d", filter.Language)
	}
	if filter.Status != "" {
		add("status = $%d", string(filter.Status))
	}
	if filter.Approved != nil {
		add("approved = $%d", *filter.Approved)
	}
	if filter.Featured != nil {
		add("featured = $%d", *filter.Featured)
	}
	if filter.Rated != nil {
		if *filter.Rated {
			conds = append(conds, "rating IS NOT NULL")
		} else {
			conds = append(conds, "rating IS NULL")
		}
	}
	if filter.AuthorID != "" {
		add("author_id = $%d", filter.AuthorID)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		add(`content ILIKE $%d ESCAPE '\'`, "%"+escapeLike(search)+"%")
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// entryOrder returns the ORDER BY clause for sort; seq preserves insertion order
func entryOrder(sort models.EntrySort) string {
	switch sort {
	case models.SortRatingDesc:
		return " ORDER BY rating DESC NULLS LAST, seq ASC"
	case models.SortNewest:
		return " ORDER BY created_at DESC, seq DESC"
	default:
		return " ORDER BY seq ASC"
	}
}

// buildEntryListQuery returns the page query and the matching count query
func buildEntryListQuery(filter models.EntryFilter) (listSQL string, countSQL string, args []interface{}) {
	where, args := entryWhere(filter)

	countSQL = "SELECT COUNT(*) FROM entries" + where

	listSQL = "SELECT " + entryColumns + " FROM entries" + where + entryOrder(filter.Sort) +
		fmt.Sprintf(" LIMIT %d OFFSET %d", filter.PerPage, filter.Offset())

	return listSQL, countSQL, args
}

// escapeLike escapes LIKE metacharacters so search terms match literally
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
