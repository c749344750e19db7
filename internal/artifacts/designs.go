package artifacts

import (
	"encoding/json"
	"fmt"
	"os"

	"lathe/internal/model"
)

// FavoriteRecord is one entry of a favorites file. Both the lowercase and the
// capitalized rating keys are accepted on read.
type FavoriteRecord struct {
	ObjectType string             `json:"object_type"`
	Rating     *int               `json:"rating,omitempty"`
	LegacyRate *int               `json:"Rating,omitempty"`
	Timestamp  string             `json:"timestamp,omitempty"`
	Parameters map[string]float64 `json:"parameters"`
}

// ReadDesigns loads a JSON array of labeled design records.
func ReadDesigns(path string) ([]model.DesignRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var records []model.DesignRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse designs %s: %w", path, err)
	}
	for i, rec := range records {
		if _, err := model.FromRecord(rec); err != nil {
			return nil, fmt.Errorf("design %d in %s: %w", i, path, err)
		}
	}
	return records, nil
}

// WriteDesigns writes labeled design records as an indented JSON array.
func WriteDesigns(path string, records []model.DesignRecord) error {
	if records == nil {
		records = []model.DesignRecord{}
	}
	return writeJSON(path, records)
}

// ReadFavorites loads a favorites file. IDs are left empty for the store to
// assign.
func ReadFavorites(path string) ([]model.Favorite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var raw []FavoriteRecord
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse favorites %s: %w", path, err)
	}

	out := make([]model.Favorite, 0, len(raw))
	for i, fav := range raw {
		rating := fav.Rating
		if rating == nil {
			rating = fav.LegacyRate
		}
		params, err := model.FromRecord(model.DesignRecord{ObjectType: fav.ObjectType, Parameters: fav.Parameters})
		if err != nil {
			return nil, fmt.Errorf("favorite %d in %s: %w", i, path, err)
		}
		out = append(out, model.Favorite{
			ObjectType: fav.ObjectType,
			Parameters: params,
			Rating:     rating,
			SavedAtUTC: fav.Timestamp,
		})
	}
	return out, nil
}
