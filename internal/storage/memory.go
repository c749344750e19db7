package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"lathe/internal/model"
)

type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	favorites   []model.Favorite
	generations map[string]model.Generation
	genOrder    []string
	lineage     map[string][]model.LineageRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.favorites = nil
	s.generations = make(map[string]model.Generation)
	s.genOrder = nil
	s.lineage = make(map[string][]model.LineageRecord)
	return nil
}

func (s *MemoryStore) SaveFavorite(_ context.Context, f model.Favorite) (model.Favorite, error) {
	if err := validateFavorite(f); err != nil {
		return model.Favorite{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return model.Favorite{}, ErrNotInitialized
	}

	key := FavoriteKey(f.ObjectType, f.Parameters)
	for i, existing := range s.favorites {
		if FavoriteKey(existing.ObjectType, existing.Parameters) == key {
			existing.Rating = copyRating(f.Rating)
			if f.SavedAtUTC != "" {
				existing.SavedAtUTC = f.SavedAtUTC
			}
			s.favorites[i] = existing
			return existing, nil
		}
	}

	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	stamp(&f.VersionedRecord)
	f.Rating = copyRating(f.Rating)
	s.favorites = append(s.favorites, f)
	return f, nil
}

func (s *MemoryStore) ListFavorites(_ context.Context, objectType string) ([]model.Favorite, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.initialized {
		return nil, ErrNotInitialized
	}

	out := make([]model.Favorite, 0, len(s.favorites))
	for _, f := range s.favorites {
		if objectType != "" && f.ObjectType != objectType {
			continue
		}
		f.Rating = copyRating(f.Rating)
		out = append(out, f)
	}
	return out, nil
}

func (s *MemoryStore) DeleteFavorite(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return false, ErrNotInitialized
	}

	for i, f := range s.favorites {
		if f.ID == id {
			s.favorites = append(s.favorites[:i], s.favorites[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryStore) SaveGeneration(_ context.Context, generation model.Generation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return ErrNotInitialized
	}

	stamp(&generation.VersionedRecord)
	generation.Designs = append([]model.Design(nil), generation.Designs...)
	if _, ok := s.generations[generation.ID]; !ok {
		s.genOrder = append(s.genOrder, generation.ID)
	}
	s.generations[generation.ID] = generation
	return nil
}

func (s *MemoryStore) GetGeneration(_ context.Context, id string) (model.Generation, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.initialized {
		return model.Generation{}, false, ErrNotInitialized
	}

	generation, ok := s.generations[id]
	if !ok {
		return model.Generation{}, false, nil
	}
	generation.Designs = append([]model.Design(nil), generation.Designs...)
	return generation, true, nil
}

func (s *MemoryStore) ListGenerations(_ context.Context) ([]model.GenerationSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.initialized {
		return nil, ErrNotInitialized
	}

	out := make([]model.GenerationSummary, 0, len(s.genOrder))
	for i := len(s.genOrder) - 1; i >= 0; i-- {
		g := s.generations[s.genOrder[i]]
		out = append(out, model.GenerationSummary{ID: g.ID, CreatedAtUTC: g.CreatedAtUTC, Designs: len(g.Designs)})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAtUTC > out[j].CreatedAtUTC
	})
	return out, nil
}

func (s *MemoryStore) SaveLineage(_ context.Context, generationID string, lineage []model.LineageRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return ErrNotInitialized
	}

	copied := make([]model.LineageRecord, len(lineage))
	for i, record := range lineage {
		stamp(&record.VersionedRecord)
		record.ParentIDs = append([]string(nil), record.ParentIDs...)
		copied[i] = record
	}
	s.lineage[generationID] = copied
	return nil
}

func (s *MemoryStore) GetLineage(_ context.Context, generationID string) ([]model.LineageRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.initialized {
		return nil, false, ErrNotInitialized
	}

	lineage, ok := s.lineage[generationID]
	if !ok {
		return nil, false, nil
	}
	return append([]model.LineageRecord(nil), lineage...), true, nil
}

func copyRating(r *int) *int {
	if r == nil {
		return nil
	}
	v := *r
	return &v
}
