package model

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// DesignParameters is the six-field parameter set of a solid of revolution.
// Wall thickness is not part of it; it is fixed per object class.
type DesignParameters struct {
	SegmentCount      int     `json:"segment_count"`
	ObjectWidth       float64 `json:"object_width"`
	TwistAngle        float64 `json:"twist_angle"`
	TwistGrooveDepth  float64 `json:"twist_groove_depth"`
	VerticalWaveFreq  int     `json:"vertical_wave_freq"`
	VerticalWaveDepth float64 `json:"vertical_wave_depth"`
}

type Favorite struct {
	VersionedRecord
	ID         string           `json:"id"`
	ObjectType string           `json:"object_type"`
	Parameters DesignParameters `json:"parameters"`
	Rating     *int             `json:"rating,omitempty"`
	SavedAtUTC string           `json:"saved_at_utc"`
}

// Design is one GA child tagged with its object type and provenance.
type Design struct {
	ID         string           `json:"id"`
	ObjectType string           `json:"object_type"`
	Parameters DesignParameters `json:"parameters"`
	Operation  string           `json:"operation"`
	ParentIDs  []string         `json:"parent_ids,omitempty"`
	CutPoint   int              `json:"cut_point,omitempty"`
}

type Generation struct {
	VersionedRecord
	ID           string   `json:"id"`
	CreatedAtUTC string   `json:"created_at_utc"`
	Seed         int64    `json:"seed"`
	Designs      []Design `json:"designs"`
}

type LineageRecord struct {
	VersionedRecord
	DesignID     string   `json:"design_id"`
	GenerationID string   `json:"generation_id"`
	ObjectType   string   `json:"object_type"`
	ParentIDs    []string `json:"parent_ids"`
	Operation    string   `json:"operation"`
	CutPoint     int      `json:"cut_point,omitempty"`
}

// Lineage derives one provenance record per design of the generation.
func (g Generation) Lineage() []LineageRecord {
	out := make([]LineageRecord, 0, len(g.Designs))
	for _, d := range g.Designs {
		out = append(out, LineageRecord{
			DesignID:     d.ID,
			GenerationID: g.ID,
			ObjectType:   d.ObjectType,
			ParentIDs:    d.ParentIDs,
			Operation:    d.Operation,
			CutPoint:     d.CutPoint,
		})
	}
	return out
}

// GenerationSummary is the listing view of a stored generation.
type GenerationSummary struct {
	ID           string `json:"id"`
	CreatedAtUTC string `json:"created_at_utc"`
	Designs      int    `json:"designs"`
}
