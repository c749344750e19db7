package storage

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"lathe/internal/model"
)

var (
	ErrNotInitialized = errors.New("store is not initialized")
	ErrInvalidRating  = errors.New("rating must be within [0, 5]")
)

const MaxRating = 5

// Store persists favorites, generations and their lineage.
type Store interface {
	Init(ctx context.Context) error
	// SaveFavorite inserts f, or updates the rating of the favorite with the
	// same object type and parameters. It returns the stored favorite.
	SaveFavorite(ctx context.Context, f model.Favorite) (model.Favorite, error)
	// ListFavorites returns favorites in insertion order; an empty objectType
	// lists every type.
	ListFavorites(ctx context.Context, objectType string) ([]model.Favorite, error)
	DeleteFavorite(ctx context.Context, id string) (bool, error)
	SaveGeneration(ctx context.Context, generation model.Generation) error
	GetGeneration(ctx context.Context, id string) (model.Generation, bool, error)
	// ListGenerations returns summaries, newest first.
	ListGenerations(ctx context.Context) ([]model.GenerationSummary, error)
	SaveLineage(ctx context.Context, generationID string, lineage []model.LineageRecord) error
	GetLineage(ctx context.Context, generationID string) ([]model.LineageRecord, bool, error)
}

// FavoriteKey identifies a favorite by object type and exact parameters.
func FavoriteKey(objectType string, p model.DesignParameters) string {
	parts := make([]string, 0, len(model.Fields)+1)
	parts = append(parts, objectType)
	for _, f := range model.Fields {
		parts = append(parts, strconv.FormatFloat(p.Value(f), 'g', -1, 64))
	}
	return strings.Join(parts, "|")
}

func stamp(v *model.VersionedRecord) {
	v.SchemaVersion = CurrentSchemaVersion
	v.CodecVersion = CurrentCodecVersion
}

func validateFavorite(f model.Favorite) error {
	if f.ObjectType == "" {
		return fmt.Errorf("favorite object type is required")
	}
	if f.Rating != nil && (*f.Rating < 0 || *f.Rating > MaxRating) {
		return fmt.Errorf("%w: %d", ErrInvalidRating, *f.Rating)
	}
	return nil
}
