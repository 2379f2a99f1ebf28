package models

// RankEntry is one leaderboard row. It is derived on demand and never persisted.
type RankEntry struct {
	AuthorID        string  `json:"authorId"`
	AuthorName      string  `json:"authorName"`
	TotalStars      float64 `json:"totalStars"`
	SubmissionCount int     `json:"submissionCount"`
}
