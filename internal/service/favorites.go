package service

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"xof_converter/internal/domain"

	"github.com/shopspring/decimal"
)

// DefaultMaxFavorites is the list cap when none is configured
const DefaultMaxFavorites = 5

// FavoritesStore keeps the bookmarked conversions, most recent first.
// It is the only component that reads or writes the favorites key.
type FavoritesStore struct {
	mu       sync.RWMutex
	store    domain.LocalStore
	max      int
	entries  []domain.FavoriteEntry
	lastID   int64
	watchers []func([]domain.FavoriteEntry)
	logger   *slog.Logger
	now      func() time.Time
}

// NewFavoritesStore creates a store capped at max entries and loads the persisted list
func NewFavoritesStore(store domain.LocalStore, max int) *FavoritesStore {
	if max <= 0 {
		max = DefaultMaxFavorites
	}
	s := &FavoritesStore{
		store:  store,
		max:    max,
		logger: slog.Default().With("module", "favorites"),
		now:    time.Now,
	}
	s.Load()
	return s
}

// Load rehydrates the list from the local store. Absent or malformed data
// yields an empty list; it never fails.
func (s *FavoritesStore) Load() []domain.FavoriteEntry {
	s.mu.Lock()
	s.entries = s.readPersisted()
	s.lastID = 0
	for _, e := range s.entries {
		if e.ID > s.lastID {
			s.lastID = e.ID
		}
	}
	out := s.snapshot()
	s.mu.Unlock()

	return out
}

func (s *FavoritesStore) readPersisted() []domain.FavoriteEntry {
	raw, ok, err := s.store.Get(domain.FavoritesKey)
	if err != nil {
		s.logger.Warn("Failed to read favorites", slog.Any("error", err))
		return nil
	}
	if !ok || raw == "" {
		return nil
	}

	var entries []domain.FavoriteEntry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		s.logger.Warn("Malformed favorites, starting empty", slog.Any("error", err))
		return nil
	}

	seen := make(map[int64]bool, len(entries))
	for i := range entries {
		e := &entries[i]
		if !e.WellFormed() || seen[e.ID] {
			s.logger.Warn("Malformed favorite entry, starting empty", slog.Int("index", i))
			return nil
		}
		seen[e.ID] = true
		e.From = domain.NormalizeCode(e.From)
		e.To = domain.NormalizeCode(e.To)
	}

	if len(entries) > s.max {
		entries = entries[:s.max]
	}
	return entries
}

// Save bookmarks a conversion. The new entry is prepended and the list is
// truncated to the cap before being persisted.
func (s *FavoritesStore) Save(amount decimal.Decimal, from, to string, rate decimal.Decimal) (domain.FavoriteEntry, error) {
	if !amount.IsPositive() {
		return domain.FavoriteEntry{}, &domain.ValidationError{Field: "amount", Reason: "must be a positive number"}
	}
	if !rate.IsPositive() {
		return domain.FavoriteEntry{}, &domain.ValidationError{Field: "rate", Reason: "no resolved rate"}
	}
	from = domain.NormalizeCode(from)
	to = domain.NormalizeCode(to)
	if from == "" || to == "" {
		return domain.FavoriteEntry{}, &domain.ValidationError{Field: "currency", Reason: "from and to are required"}
	}

	s.mu.Lock()
	entry := domain.FavoriteEntry{
		ID:     s.nextID(),
		Amount: amount,
		From:   from,
		To:     to,
		Rate:   rate,
	}

	next := make([]domain.FavoriteEntry, 0, len(s.entries)+1)
	next = append(next, entry)
	next = append(next, s.entries...)
	if len(next) > s.max {
		next = next[:s.max]
	}

	if err := s.persist(next); err != nil {
		s.mu.Unlock()
		return domain.FavoriteEntry{}, err
	}
	s.entries = next
	out := s.snapshot()
	s.mu.Unlock()

	s.logger.Info("Favorite saved",
		slog.Int64("id", entry.ID),
		slog.String("pair", from+"/"+to),
		slog.Int("count", len(out)),
	)
	s.notify(out)
	return entry, nil
}

// Remove deletes the entry with the given id. Unknown ids are a no-op.
func (s *FavoritesStore) Remove(id int64) error {
	s.mu.Lock()
	idx := -1
	for i, e := range s.entries {
		if e.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return nil
	}

	next := make([]domain.FavoriteEntry, 0, len(s.entries)-1)
	next = append(next, s.entries[:idx]...)
	next = append(next, s.entries[idx+1:]...)

	if err := s.persist(next); err != nil {
		s.mu.Unlock()
		return err
	}
	s.entries = next
	out := s.snapshot()
	s.mu.Unlock()

	s.logger.Info("Favorite removed", slog.Int64("id", id), slog.Int("count", len(out)))
	s.notify(out)
	return nil
}

// List returns a copy of the current entries, most recent first
func (s *FavoritesStore) List() []domain.FavoriteEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot()
}

// Max returns the list cap
func (s *FavoritesStore) Max() int {
	return s.max
}

// Subscribe registers fn to receive the list after every change
func (s *FavoritesStore) Subscribe(fn func([]domain.FavoriteEntry)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watchers = append(s.watchers, fn)
}

// persist writes the whole list, or removes the key once the list is empty.
// Must be called with lock held.
func (s *FavoritesStore) persist(entries []domain.FavoriteEntry) error {
	if len(entries) == 0 {
		if err := s.store.Delete(domain.FavoritesKey); err != nil {
			return fmt.Errorf("clear favorites: %w", err)
		}
		return nil
	}

	b, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("encode favorites: %w", err)
	}
	if err := s.store.Set(domain.FavoritesKey, string(b)); err != nil {
		return fmt.Errorf("write favorites: %w", err)
	}
	return nil
}

// nextID derives the id from the creation time, bumped past the last one
// so that two saves in the same millisecond stay distinct.
// Must be called with lock held.
func (s *FavoritesStore) nextID() int64 {
	id := s.now().UnixMilli()
	if id <= s.lastID {
		id = s.lastID + 1
	}
	s.lastID = id
	return id
}

// Must be called with lock held
func (s *FavoritesStore) snapshot() []domain.FavoriteEntry {
	out := make([]domain.FavoriteEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

func (s *FavoritesStore) notify(entries []domain.FavoriteEntry) {
	s.mu.RLock()
	watchers := make([]func([]domain.FavoriteEntry), len(s.watchers))
	copy(watchers, s.watchers)
	s.mu.RUnlock()

	for _, fn := range watchers {
		fn(entries)
	}
}
