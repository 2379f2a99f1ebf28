package mocks

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/nazm-contest-api/internal/models"
	"github.com/nazm-contest-api/internal/repository"
)

// Store is an in-memory stand-in for the Postgres schema. Entries and verses
// share one lock so the referential checks behave like the foreign key.
type Store struct {
	mu         sync.RWMutex
	entries    map[string]*models.Entry
	entryOrder []string
	verses     map[string]*models.Verse
	verseOrder []string
	failWith   error
	calls      map[string]int
	failAfter  map[string]callFailure
}

type callFailure struct {
	after int
	err   error
}

// Verify interface compliance
var (
	_ repository.EntryRepository = (*MockEntryRepository)(nil)
	_ repository.VerseRepository = (*MockVerseRepository)(nil)
)

func NewStore() *Store {
	return &Store{
		entries:   make(map[string]*models.Entry),
		verses:    make(map[string]*models.Verse),
		calls:     make(map[string]int),
		failAfter: make(map[string]callFailure),
	}
}

// Repositories returns repository views over the store
func (s *Store) Repositories() *repository.Repositories {
	return &repository.Repositories{
		Entry: &MockEntryRepository{store: s},
		Verse: &MockVerseRepository{store: s},
	}
}

// FailWith makes every subsequent call return err; nil restores normal operation
func (s *Store) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failWith = err
}

// FailCallAfter lets the named method succeed n times, then return err
func (s *Store) FailCallAfter(call string, n int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failAfter[call] = callFailure{after: n, err: err}
}

// SeedVerse stores v directly, bypassing validation
func (s *Store) SeedVerse(v *models.Verse) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.putVerse(v)
}

// SeedEntry stores e directly, bypassing validation and the verse check
func (s *Store) SeedEntry(e *models.Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.putEntry(e)
}

// Snapshot returns copies of all entries in insertion order
func (s *Store) Snapshot() []*models.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.entrySnapshot()
}

// CallCount returns how many times the named repository method ran, e.g. "Entry.Update"
func (s *Store) CallCount(call string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.calls[call]
}

// begin takes the write lock and records the call; the returned error is the injected failure
func (s *Store) begin(call string) error {
	s.mu.Lock()
	return s.record(call)
}

func (s *Store) beginRead(call string) error {
	s.mu.Lock()
	err := s.record(call)
	s.mu.Unlock()
	s.mu.RLock()
	return err
}

// record counts the call and returns the injected failure, if any; callers hold mu
func (s *Store) record(call string) error {
	s.calls[call]++
	if f, ok := s.failAfter[call]; ok && s.calls[call] > f.after {
		return f.err
	}
	return s.failWith
}

func (s *Store) putEntry(e *models.Entry) {
	if _, exists := s.entries[e.ID]; !exists {
		s.entryOrder = append(s.entryOrder, e.ID)
	}
	s.entries[e.ID] = e.Clone()
}

func (s *Store) putVerse(v *models.Verse) {
	if _, exists := s.verses[v.ID]; !exists {
		s.verseOrder = append(s.verseOrder, v.ID)
	}
	c := *v
	s.verses[v.ID] = &c
}

func (s *Store) entrySnapshot() []*models.Entry {
	out := make([]*models.Entry, 0, len(s.entryOrder))
	for _, id := range s.entryOrder {
		out = append(out, s.entries[id].Clone())
	}
	return out
}

// MockEntryRepository is an in-memory implementation of EntryRepository
type MockEntryRepository struct {
	store *Store
}

func (m *MockEntryRepository) Create(ctx context.Context, entry *models.Entry) error {
	s := m.store
	if err := s.begin("Entry.Create"); err != nil {
		s.mu.Unlock()
		return err
	}
	defer s.mu.Unlock()

	if _, ok := s.verses[entry.InspiredByVerseID]; !ok {
		return repository.ErrUnknownVerse
	}
	if _, exists := s.entries[entry.ID]; exists {
		return fmt.Errorf("duplicate entry id %s", entry.ID)
	}
	s.putEntry(entry)
	return nil
}

func (m *MockEntryRepository) GetByID(ctx context.Context, id string) (*models.Entry, error) {
	s := m.store
	if err := s.beginRead("Entry.GetByID"); err != nil {
		s.mu.RUnlock()
		return nil, err
	}
	defer s.mu.RUnlock()

	return s.entries[id].Clone(), nil
}

func (m *MockEntryRepository) List(ctx context.Context, filter models.EntryFilter) (*models.EntryPage, error) {
	s := m.store
	if err := s.beginRead("Entry.List"); err != nil {
		s.mu.RUnlock()
		return nil, err
	}
	matched := make([]*models.Entry, 0)
	for _, e := range s.entrySnapshot() {
		if matchesFilter(e, filter) {
			matched = append(matched, e)
		}
	}
	s.mu.RUnlock()

	sortEntries(matched, filter.Sort)

	filter.Normalize()
	page := &models.EntryPage{
		Entries: make([]*models.Entry, 0),
		Total:   len(matched),
		Page:    filter.Page,
		PerPage: filter.PerPage,
	}
	start := filter.Offset()
	if start < len(matched) {
		end := start + filter.PerPage
		if end > len(matched) {
			end = len(matched)
		}
		page.Entries = matched[start:end]
	}
	return page, nil
}

func (m *MockEntryRepository) Update(ctx context.Context, id string, mutate func(*models.Entry) error) (*models.Entry, error) {
	s := m.store
	if err := s.begin("Entry.Update"); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	defer s.mu.Unlock()

	current, ok := s.entries[id]
	if !ok {
		return nil, nil
	}
	entry := current.Clone()
	if err := mutate(entry); err != nil {
		return nil, err
	}
	if entry.Featured && !current.Featured {
		for otherID, other := range s.entries {
			if otherID != id && other.Featured {
				return nil, repository.ErrFeaturedElsewhere
			}
		}
	}
	entry.UpdatedAt = time.Now().UTC()
	s.putEntry(entry)
	return entry.Clone(), nil
}

func (m *MockEntryRepository) Feature(ctx context.Context, id string, mutate func(*models.Entry) error) (*models.Entry, error) {
	s := m.store
	if err := s.begin("Entry.Feature"); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	defer s.mu.Unlock()

	current, ok := s.entries[id]
	if !ok {
		return nil, nil
	}
	entry := current.Clone()
	if err := mutate(entry); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	for otherID, other := range s.entries {
		if otherID != id && other.Featured {
			other.Featured = false
			other.FeaturedAt = nil
			other.UpdatedAt = now
		}
	}
	entry.UpdatedAt = now
	s.putEntry(entry)
	return entry.Clone(), nil
}

func (m *MockEntryRepository) Delete(ctx context.Context, id string) (*models.Entry, error) {
	s := m.store
	if err := s.begin("Entry.Delete"); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	defer s.mu.Unlock()

	entry, ok := s.entries[id]
	if !ok {
		return nil, nil
	}
	delete(s.entries, id)
	for i, eid := range s.entryOrder {
		if eid == id {
			s.entryOrder = append(s.entryOrder[:i], s.entryOrder[i+1:]...)
			break
		}
	}
	return entry, nil
}

func (m *MockEntryRepository) Count(ctx context.Context) (int, error) {
	s := m.store
	if err := s.beginRead("Entry.Count"); err != nil {
		s.mu.RUnlock()
		return 0, err
	}
	defer s.mu.RUnlock()
	return len(s.entries), nil
}

func (m *MockEntryRepository) StreamAll(ctx context.Context, callback func(*models.Entry) error) error {
	s := m.store
	if err := s.beginRead("Entry.StreamAll"); err != nil {
		s.mu.RUnlock()
		return err
	}
	snapshot := s.entrySnapshot()
	s.mu.RUnlock()

	for _, e := range snapshot {
		if err := callback(e); err != nil {
			return err
		}
	}
	return nil
}

func (m *MockEntryRepository) StreamRated(ctx context.Context, kind models.EntryKind, callback func(*models.Entry) error) error {
	s := m.store
	if err := s.beginRead("Entry.StreamRated"); err != nil {
		s.mu.RUnlock()
		return err
	}
	snapshot := s.entrySnapshot()
	s.mu.RUnlock()

	for _, e := range snapshot {
		if e.Kind != kind || !e.Approved || e.Rating == nil {
			continue
		}
		if err := callback(e); err != nil {
			return err
		}
	}
	return nil
}

// matchesFilter reports whether e satisfies every predicate present in f
func matchesFilter(e *models.Entry, f models.EntryFilter) bool {
	if f.Kind != "" && e.Kind != f.Kind {
		return false
	}
	if f.Language != "" && e.Language != f.Language {
		return false
	}
	if f.Status != "" && e.Status != f.Status {
		return false
	}
	if f.Approved != nil && e.Approved != *f.Approved {
		return false
	}
	if f.Featured != nil && e.Featured != *f.Featured {
		return false
	}
	if f.Rated != nil && (e.Rating != nil) != *f.Rated {
		return false
	}
	if f.AuthorID != "" && e.AuthorID != f.AuthorID {
		return false
	}
	if search := strings.TrimSpace(f.Search); search != "" {
		if e.Content == nil || !strings.Contains(strings.ToLower(*e.Content), strings.ToLower(search)) {
			return false
		}
	}
	return true
}

// sortEntries orders entries that are already in insertion order
func sortEntries(entries []*models.Entry, key models.EntrySort) {
	switch key {
	case models.SortRatingDesc:
		sort.SliceStable(entries, func(i, j int) bool {
			ri, rj := entries[i].Rating, entries[j].Rating
			if ri == nil || rj == nil {
				return ri != nil && rj == nil
			}
			return *ri > *rj
		})
	case models.SortNewest:
		// reverse first so equal timestamps fall back to newest insertion
		for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
			entries[i], entries[j] = entries[j], entries[i]
		}
		sort.SliceStable(entries, func(i, j int) bool {
			return entries[i].CreatedAt.After(entries[j].CreatedAt)
		})
	}
}

// MockVerseRepository is an in-memory implementation of VerseRepository
type MockVerseRepository struct {
	store *Store
}

func (m *MockVerseRepository) Create(ctx context.Context, verse *models.Verse) error {
	s := m.store
	if err := s.begin("Verse.Create"); err != nil {
		s.mu.Unlock()
		return err
	}
	defer s.mu.Unlock()

	if _, exists := s.verses[verse.ID]; exists {
		return fmt.Errorf("duplicate verse id %s", verse.ID)
	}
	s.putVerse(verse)
	return nil
}

func (m *MockVerseRepository) BatchInsert(ctx context.Context, verses []*models.Verse) (int, error) {
	s := m.store
	if err := s.begin("Verse.BatchInsert"); err != nil {
		s.mu.Unlock()
		return 0, err
	}
	defer s.mu.Unlock()

	for _, v := range verses {
		if _, exists := s.verses[v.ID]; exists {
			return 0, fmt.Errorf("duplicate verse id %s", v.ID)
		}
	}
	for _, v := range verses {
		s.putVerse(v)
	}
	return len(verses), nil
}

func (m *MockVerseRepository) GetByID(ctx context.Context, id string) (*models.Verse, error) {
	s := m.store
	if err := s.beginRead("Verse.GetByID"); err != nil {
		s.mu.RUnlock()
		return nil, err
	}
	defer s.mu.RUnlock()

	v, ok := s.verses[id]
	if !ok {
		return nil, nil
	}
	c := *v
	return &c, nil
}

func (m *MockVerseRepository) Exists(ctx context.Context, id string) (bool, error) {
	s := m.store
	if err := s.beginRead("Verse.Exists"); err != nil {
		s.mu.RUnlock()
		return false, err
	}
	defer s.mu.RUnlock()

	_, ok := s.verses[id]
	return ok, nil
}

func (m *MockVerseRepository) List(ctx context.Context, language string, day int) ([]*models.Verse, error) {
	s := m.store
	if err := s.beginRead("Verse.List"); err != nil {
		s.mu.RUnlock()
		return nil, err
	}
	defer s.mu.RUnlock()

	out := make([]*models.Verse, 0)
	for _, id := range s.verseOrder {
		v := s.verses[id]
		if language != "" && v.Language != language {
			continue
		}
		if day != 0 && v.Day != day {
			continue
		}
		c := *v
		out = append(out, &c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Day != out[j].Day {
			return out[i].Day < out[j].Day
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (m *MockVerseRepository) Update(ctx context.Context, id string, mutate func(*models.Verse) error) (*models.Verse, error) {
	s := m.store
	if err := s.begin("Verse.Update"); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	defer s.mu.Unlock()

	current, ok := s.verses[id]
	if !ok {
		return nil, nil
	}
	verse := *current
	if err := mutate(&verse); err != nil {
		return nil, err
	}
	verse.UpdatedAt = time.Now().UTC()
	s.putVerse(&verse)
	return &verse, nil
}

func (m *MockVerseRepository) Delete(ctx context.Context, id string) (bool, error) {
	s := m.store
	if err := s.begin("Verse.Delete"); err != nil {
		s.mu.Unlock()
		return false, err
	}
	defer s.mu.Unlock()

	if _, ok := s.verses[id]; !ok {
		return false, nil
	}
	for _, e := range s.entries {
		if e.InspiredByVerseID == id {
			return false, repository.ErrVerseInUse
		}
	}
	delete(s.verses, id)
	for i, vid := range s.verseOrder {
		if vid == id {
			s.verseOrder = append(s.verseOrder[:i], s.verseOrder[i+1:]...)
			break
		}
	}
	return true, nil
}

func (m *MockVerseRepository) Count(ctx context.Context) (int, error) {
	s := m.store
	if err := s.beginRead("Verse.Count"); err != nil {
		s.mu.RUnlock()
		return 0, err
	}
	defer s.mu.RUnlock()
	return len(s.verses), nil
}
