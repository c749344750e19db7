package storage

import (
	"encoding/json"
	"errors"
	"fmt"

	"lathe/internal/model"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var ErrVersionMismatch = errors.New("record version mismatch")

// Payloads carry parameters under their human labels.
type favoritePayload struct {
	model.VersionedRecord
	ID         string             `json:"id"`
	ObjectType string             `json:"object_type"`
	Parameters map[string]float64 `json:"parameters"`
	Rating     *int               `json:"rating,omitempty"`
	SavedAtUTC string             `json:"saved_at_utc"`
}

type designPayload struct {
	ID         string             `json:"id"`
	ObjectType string             `json:"object_type"`
	Parameters map[string]float64 `json:"parameters"`
	Operation  string             `json:"operation"`
	ParentIDs  []string           `json:"parent_ids,omitempty"`
	CutPoint   int                `json:"cut_point,omitempty"`
}

type generationPayload struct {
	model.VersionedRecord
	ID           string          `json:"id"`
	CreatedAtUTC string          `json:"created_at_utc"`
	Seed         int64           `json:"seed"`
	Designs      []designPayload `json:"designs"`
}

func labeled(objectType string, p model.DesignParameters) map[string]float64 {
	return model.ToRecord(objectType, p).Parameters
}

func unlabeled(objectType string, params map[string]float64) (model.DesignParameters, error) {
	return model.FromRecord(model.DesignRecord{ObjectType: objectType, Parameters: params})
}

func EncodeFavorite(f model.Favorite) ([]byte, error) {
	return json.Marshal(favoritePayload{
		VersionedRecord: f.VersionedRecord,
		ID:              f.ID,
		ObjectType:      f.ObjectType,
		Parameters:      labeled(f.ObjectType, f.Parameters),
		Rating:          f.Rating,
		SavedAtUTC:      f.SavedAtUTC,
	})
}

func DecodeFavorite(data []byte) (model.Favorite, error) {
	var payload favoritePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return model.Favorite{}, err
	}
	if err := checkVersion(payload.VersionedRecord); err != nil {
		return model.Favorite{}, err
	}
	params, err := unlabeled(payload.ObjectType, payload.Parameters)
	if err != nil {
		return model.Favorite{}, fmt.Errorf("favorite %s: %w", payload.ID, err)
	}
	return model.Favorite{
		VersionedRecord: payload.VersionedRecord,
		ID:              payload.ID,
		ObjectType:      payload.ObjectType,
		Parameters:      params,
		Rating:          payload.Rating,
		SavedAtUTC:      payload.SavedAtUTC,
	}, nil
}

func EncodeGeneration(g model.Generation) ([]byte, error) {
	payload := generationPayload{
		VersionedRecord: g.VersionedRecord,
		ID:              g.ID,
		CreatedAtUTC:    g.CreatedAtUTC,
		Seed:            g.Seed,
		Designs:         make([]designPayload, 0, len(g.Designs)),
	}
	for _, d := range g.Designs {
		payload.Designs = append(payload.Designs, designPayload{
			ID:         d.ID,
			ObjectType: d.ObjectType,
			Parameters: labeled(d.ObjectType, d.Parameters),
			Operation:  d.Operation,
			ParentIDs:  d.ParentIDs,
			CutPoint:   d.CutPoint,
		})
	}
	return json.Marshal(payload)
}

func DecodeGeneration(data []byte) (model.Generation, error) {
	var payload generationPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return model.Generation{}, err
	}
	if err := checkVersion(payload.VersionedRecord); err != nil {
		return model.Generation{}, err
	}
	g := model.Generation{
		VersionedRecord: payload.VersionedRecord,
		ID:              payload.ID,
		CreatedAtUTC:    payload.CreatedAtUTC,
		Seed:            payload.Seed,
		Designs:         make([]model.Design, 0, len(payload.Designs)),
	}
	for _, d := range payload.Designs {
		params, err := unlabeled(d.ObjectType, d.Parameters)
		if err != nil {
			return model.Generation{}, fmt.Errorf("design %s: %w", d.ID, err)
		}
		g.Designs = append(g.Designs, model.Design{
			ID:         d.ID,
			ObjectType: d.ObjectType,
			Parameters: params,
			Operation:  d.Operation,
			ParentIDs:  d.ParentIDs,
			CutPoint:   d.CutPoint,
		})
	}
	return g, nil
}

func EncodeLineage(records []model.LineageRecord) ([]byte, error) {
	return json.Marshal(records)
}

func DecodeLineage(data []byte) ([]model.LineageRecord, error) {
	var records []model.LineageRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, err
	}
	for _, record := range records {
		if err := checkVersion(record.VersionedRecord); err != nil {
			return nil, err
		}
	}
	return records, nil
}

func checkVersion(v model.VersionedRecord) error {
	if v.SchemaVersion != CurrentSchemaVersion || v.CodecVersion != CurrentCodecVersion {
		return fmt.Errorf("%w: schema %d codec %d", ErrVersionMismatch, v.SchemaVersion, v.CodecVersion)
	}
	return nil
}
