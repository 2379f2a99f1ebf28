package service

import (
	"context"
	"sort"

	"github.com/nazm-contest-api/internal/apperror"
	"github.com/nazm-contest-api/internal/auth"
	"github.com/nazm-contest-api/internal/models"
	"github.com/nazm-contest-api/internal/repository"
	"github.com/rs/zerolog"
)

// rankService is the concrete implementation of RankService
type rankService struct {
	repos *repository.Repositories
	log   zerolog.Logger
}

func newRankService(repos *repository.Repositories, log zerolog.Logger) *rankService {
	return &rankService{
		repos: repos,
		log:   log.With().Str("service", "rank").Logger(),
	}
}

// Leaderboard sums the ratings of approved, rated entries of kind per author.
// Rows are ordered by total stars descending, then author name, then author id.
func (s *rankService) Leaderboard(ctx context.Context, p auth.Principal, kind models.EntryKind) ([]models.RankEntry, error) {
	if err := auth.Authorize(p, auth.RoleUser); err != nil {
		return nil, err
	}
	return s.compute(ctx, kind)
}

func (s *rankService) compute(ctx context.Context, kind models.EntryKind) ([]models.RankEntry, error) {
	if !models.ValidKinds[kind] {
		return nil, apperror.Validation("kind", "kind must be one of: individual, full")
	}

	byAuthor := make(map[string]*models.RankEntry)
	err := s.repos.Entry.StreamRated(ctx, kind, func(e *models.Entry) error {
		if !e.Approved || e.Rating == nil {
			return nil
		}
		row, ok := byAuthor[e.AuthorID]
		if !ok {
			row = &models.RankEntry{AuthorID: e.AuthorID, AuthorName: e.AuthorName}
			byAuthor[e.AuthorID] = row
		}
		row.TotalStars += *e.Rating
		row.SubmissionCount++
		return nil
	})
	if err != nil {
		return nil, storeErr(err)
	}

	rows := make([]models.RankEntry, 0, len(byAuthor))
	for _, row := range byAuthor {
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].TotalStars != rows[j].TotalStars {
			return rows[i].TotalStars > rows[j].TotalStars
		}
		if rows[i].AuthorName != rows[j].AuthorName {
			return rows[i].AuthorName < rows[j].AuthorName
		}
		return rows[i].AuthorID < rows[j].AuthorID
	})

	s.log.Debug().Str("kind", string(kind)).Int("authors", len(rows)).Msg("Leaderboard computed")
	return rows, nil
}
