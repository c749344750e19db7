package artifacts

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"lathe/internal/model"
)

const (
	runIndexFile = "run_index.json"
	designsFile  = "designs.json"
	reportFile   = "report.json"
	lineageFile  = "lineage.json"
	configFile   = "config.json"
)

// GenerationConfig records how a generation was bred.
type GenerationConfig struct {
	GenerationID         string   `json:"generation_id"`
	CreatedAtUTC         string   `json:"created_at_utc"`
	Seed                 int64    `json:"seed"`
	Favorites            int      `json:"favorites"`
	ObjectTypes          []string `json:"object_types"`
	BitsPerField         int      `json:"bits_per_field"`
	MutationProbability  float64  `json:"mutation_probability"`
	CrossoverProbability float64  `json:"crossover_probability"`
	MaxOverhangAngle     float64  `json:"max_overhang_angle"`
	Analyzer             string   `json:"analyzer"`
}

// ReportEntry is the printability outcome of one design.
type ReportEntry struct {
	DesignID    string             `json:"design_id"`
	ObjectType  string             `json:"object_type"`
	HasOverhang bool               `json:"has_overhang"`
	WorstTilt   float64            `json:"worst_overhang_deg"`
	Status      string             `json:"status"`
	Changed     string             `json:"changed_field,omitempty"`
	Repaired    map[string]float64 `json:"repaired_parameters,omitempty"`
	Error       string             `json:"error,omitempty"`
}

type GenerationArtifacts struct {
	Config     GenerationConfig
	Generation model.Generation
	Reports    []ReportEntry
}

type RunIndexEntry struct {
	GenerationID string  `json:"generation_id"`
	Seed         int64   `json:"seed"`
	Designs      int     `json:"designs"`
	Repaired     int     `json:"repaired"`
	Infeasible   int     `json:"infeasible"`
	MaxOverhang  float64 `json:"max_overhang_angle"`
	CreatedAtUTC string  `json:"created_at_utc"`
}

// WriteGeneration writes one directory per generation: config.json holds the
// breeding settings, designs.json the labeled designs, report.json the check
// outcomes and lineage.json provenance.
func WriteGeneration(baseDir string, a GenerationArtifacts) (string, error) {
	id := strings.TrimSpace(a.Generation.ID)
	if id == "" {
		return "", fmt.Errorf("generation id is required")
	}
	if a.Config.GenerationID == "" {
		a.Config.GenerationID = id
	}
	if a.Config.GenerationID != id {
		return "", fmt.Errorf("generation config id mismatch: got=%s want=%s", a.Config.GenerationID, id)
	}
	if a.Config.CreatedAtUTC == "" {
		a.Config.CreatedAtUTC = a.Generation.CreatedAtUTC
	}

	dir := filepath.Join(baseDir, id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	records := make([]model.DesignRecord, 0, len(a.Generation.Designs))
	for _, d := range a.Generation.Designs {
		records = append(records, model.ToRecord(d.ObjectType, d.Parameters))
	}
	generation := a.Generation
	generation.ID = id
	lineage := generation.Lineage()

	if err := writeJSON(filepath.Join(dir, configFile), a.Config); err != nil {
		return "", err
	}
	if err := WriteDesigns(filepath.Join(dir, designsFile), records); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(dir, reportFile), nonNil(a.Reports)); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(dir, lineageFile), lineage); err != nil {
		return "", err
	}
	return dir, nil
}

func nonNil(reports []ReportEntry) []ReportEntry {
	if reports == nil {
		return []ReportEntry{}
	}
	return reports
}

// ReadGenerationConfig loads the config.json of a written generation.
func ReadGenerationConfig(baseDir, generationID string) (GenerationConfig, bool, error) {
	var cfg GenerationConfig
	ok, err := readJSON(filepath.Join(baseDir, generationID, configFile), &cfg)
	if err != nil || !ok {
		return GenerationConfig{}, false, err
	}
	return cfg, true, nil
}

// ReadLineage loads the lineage.json of a written generation.
func ReadLineage(baseDir, generationID string) ([]model.LineageRecord, bool, error) {
	var lineage []model.LineageRecord
	ok, err := readJSON(filepath.Join(baseDir, generationID, lineageFile), &lineage)
	if err != nil || !ok {
		return nil, false, err
	}
	return lineage, true, nil
}

// ReadGeneration rebuilds a generation from its directory. Design ids and
// provenance come from lineage.json, which lists designs in the same order as
// designs.json.
func ReadGeneration(baseDir, generationID string) (model.Generation, bool, error) {
	cfg, ok, err := ReadGenerationConfig(baseDir, generationID)
	if err != nil || !ok {
		return model.Generation{}, false, err
	}
	records, err := ReadDesigns(GenerationDesignsPath(baseDir, generationID))
	if err != nil {
		return model.Generation{}, false, err
	}
	lineage, _, err := ReadLineage(baseDir, generationID)
	if err != nil {
		return model.Generation{}, false, err
	}
	if len(lineage) != 0 && len(lineage) != len(records) {
		return model.Generation{}, false, fmt.Errorf("generation %s: %d designs but %d lineage records", generationID, len(records), len(lineage))
	}

	gen := model.Generation{
		ID:           generationID,
		CreatedAtUTC: cfg.CreatedAtUTC,
		Seed:         cfg.Seed,
		Designs:      make([]model.Design, len(records)),
	}
	for i, rec := range records {
		params, err := model.FromRecord(rec)
		if err != nil {
			return model.Generation{}, false, fmt.Errorf("design %d: %w", i, err)
		}
		d := model.Design{ObjectType: rec.ObjectType, Parameters: params}
		if len(lineage) != 0 {
			d.ID = lineage[i].DesignID
			d.Operation = lineage[i].Operation
			d.ParentIDs = lineage[i].ParentIDs
			d.CutPoint = lineage[i].CutPoint
		}
		gen.Designs[i] = d
	}
	return gen, true, nil
}

// ReadReport loads the report.json of a written generation.
func ReadReport(baseDir, generationID string) ([]ReportEntry, bool, error) {
	var entries []ReportEntry
	ok, err := readJSON(filepath.Join(baseDir, generationID, reportFile), &entries)
	if err != nil || !ok {
		return nil, false, err
	}
	return entries, true, nil
}

// GenerationDesignsPath is where WriteGeneration puts the labeled designs.
func GenerationDesignsPath(baseDir, generationID string) string {
	return filepath.Join(baseDir, generationID, designsFile)
}

func AppendRunIndex(baseDir string, entry RunIndexEntry) error {
	if entry.GenerationID == "" {
		return fmt.Errorf("generation id is required")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return err
	}

	index, err := ListRunIndex(baseDir)
	if err != nil {
		return err
	}
	for i := range index {
		if index[i].GenerationID == entry.GenerationID {
			index[i] = entry
			return writeJSON(filepath.Join(baseDir, runIndexFile), index)
		}
	}
	index = append(index, entry)
	return writeJSON(filepath.Join(baseDir, runIndexFile), index)
}

// ListRunIndex returns entries newest first; equal timestamps keep the later
// appended entry first.
func ListRunIndex(baseDir string) ([]RunIndexEntry, error) {
	data, err := os.ReadFile(filepath.Join(baseDir, runIndexFile))
	if err != nil {
		if os.IsNotExist(err) {
			return []RunIndexEntry{}, nil
		}
		return nil, err
	}

	var entries []RunIndexEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}

	type indexedEntry struct {
		entry RunIndexEntry
		idx   int
	}
	indexed := make([]indexedEntry, len(entries))
	for i := range entries {
		indexed[i] = indexedEntry{entry: entries[i], idx: i}
	}
	sort.Slice(indexed, func(i, j int) bool {
		if indexed[i].entry.CreatedAtUTC == indexed[j].entry.CreatedAtUTC {
			return indexed[i].idx > indexed[j].idx
		}
		return indexed[i].entry.CreatedAtUTC > indexed[j].entry.CreatedAtUTC
	})

	sorted := make([]RunIndexEntry, 0, len(indexed))
	for _, item := range indexed {
		sorted = append(sorted, item.entry)
	}
	return sorted, nil
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644)
}

func readJSON(path string, dst any) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("parse %s: %w", path, err)
	}
	return true, nil
}
