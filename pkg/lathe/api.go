package lathe

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"lathe/internal/artifacts"
	"lathe/internal/batch"
	"lathe/internal/classid"
	"lathe/internal/config"
	"lathe/internal/geometry"
	"lathe/internal/logging"
	"lathe/internal/model"
	"lathe/internal/overhang"
	"lathe/internal/repair"
	"lathe/internal/storage"
)

var (
	ErrNoFavorites        = errors.New("no favorites to evolve from")
	ErrGenerationNotFound = errors.New("generation not found")
)

type Options struct {
	// Config defaults to config.DefaultConfig when nil.
	Config *config.Config
	// StoreKind, DBPath and ArtifactsDir override the config when set.
	StoreKind    string
	DBPath       string
	ArtifactsDir string
	Logger       *zap.Logger
}

type Client struct {
	cfg       *config.Config
	store     storage.Store
	storeKind string
	dbPath    string
	logger    *zap.Logger

	artifactsDir string
	now          func() time.Time

	initMu      sync.Mutex
	initialized bool
}

type ClassItem struct {
	Name          string
	Height        float64
	WallThickness float64
	CapThickness  float64
	CapEnd        geometry.CapEnd
	Bounds        model.Bounds
}

type CheckRequest struct {
	ObjectType string
	Parameters model.DesignParameters
	// FullMesh selects the mesh path instead of the configured one.
	FullMesh bool
}

type CheckResult struct {
	ObjectType  string
	Analyzer    string
	HasOverhang bool
	WorstTilt   float64
}

type RepairRequest struct {
	ObjectType string
	Parameters model.DesignParameters
}

type MeshRequest struct {
	ObjectType string
	Parameters model.DesignParameters
	// Colorize overrides the class default when set.
	Colorize *bool
	Density  float64
}

type MeshSummary struct {
	Mesh    geometry.Mesh
	Metrics geometry.Metrics
}

type ExportRequest struct {
	MeshRequest
	Path string
}

type ExportSummary struct {
	Path        string
	Bytes       int64
	Triangles   int
	HasOverhang bool
	Metrics     geometry.Metrics
}

type FavoriteRequest struct {
	ObjectType string
	Parameters model.DesignParameters
	Rating     *int
}

type EvolveRequest struct {
	// ObjectType restricts breeding to one class; empty breeds every class.
	ObjectType string
	// FavoritesPath reads favorites from a JSON file instead of the store.
	FavoritesPath string
	Seed          int64
	Workers       int
	// KeepViolations leaves overhanging children unrepaired.
	KeepViolations bool
}

type SampleRequest struct {
	ObjectType     string
	Count          int
	Seed           int64
	Workers        int
	KeepViolations bool
}

// DesignReport is a design after validation. Original holds the parameters
// before repair and Suggested the repaired ones, which replace the design's
// parameters unless violations are kept.
type DesignReport struct {
	Design      model.Design
	Original    model.DesignParameters
	Suggested   model.DesignParameters
	HasOverhang bool
	WorstTilt   float64
	Status      repair.Status
	Changed     string
	Err         error
}

type EvolveSummary struct {
	GenerationID string
	ArtifactsDir string
	Seed         int64
	Favorites    int
	Designs      []DesignReport
	Repaired     int
	Infeasible   int
}

type GenerationDetail struct {
	Generation model.Generation
	Lineage    []model.LineageRecord
	Reports    []artifacts.ReportEntry
	// Config is nil when the generation has no artifacts directory.
	Config *artifacts.GenerationConfig
}

func New(opts Options) (*Client, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	storeKind := opts.StoreKind
	if storeKind == "" {
		storeKind = cfg.Storage.Kind
	}
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = cfg.Storage.Path
	}
	artifactsDir := opts.ArtifactsDir
	if artifactsDir == "" {
		artifactsDir = cfg.ArtifactsDir
	}
	switch strings.ToLower(strings.TrimSpace(storeKind)) {
	case "", "memory", "sqlite":
	default:
		return nil, fmt.Errorf("unsupported store backend: %s", storeKind)
	}

	return &Client{
		cfg:          cfg,
		storeKind:    storeKind,
		dbPath:       dbPath,
		logger:       logging.OrNop(opts.Logger),
		artifactsDir: artifactsDir,
		now:          time.Now,
	}, nil
}

func (c *Client) Close() error {
	c.initMu.Lock()
	defer c.initMu.Unlock()
	if c.store == nil {
		return nil
	}
	err := storage.CloseIfSupported(c.store)
	c.store = nil
	c.initialized = false
	return err
}

// Init opens the store. Every store-backed call runs it on first use.
func (c *Client) Init(ctx context.Context) error {
	c.initMu.Lock()
	defer c.initMu.Unlock()
	if c.initialized {
		return nil
	}
	store, err := storage.Open(ctx, c.storeKind, c.dbPath)
	if err != nil {
		return err
	}
	c.store = store
	c.initialized = true
	return nil
}

func (c *Client) Config() *config.Config {
	return c.cfg
}

func (c *Client) Classes() []ClassItem {
	out := make([]ClassItem, 0, len(c.cfg.Classes))
	for _, class := range c.cfg.Classes {
		bounds, err := class.ModelBounds()
		if err != nil {
			continue
		}
		out = append(out, ClassItem{
			Name:          classid.Normalize(class.Name),
			Height:        class.Height,
			WallThickness: class.WallThickness,
			CapThickness:  class.CapThickness,
			CapEnd:        class.CapEnd,
			Bounds:        bounds,
		})
	}
	return out
}

// Defaults returns the default design of a class.
func (c *Client) Defaults(objectType string) (model.DesignParameters, error) {
	class, err := c.cfg.Class(objectType)
	if err != nil {
		return model.DesignParameters{}, err
	}
	bounds, err := class.ModelBounds()
	if err != nil {
		return model.DesignParameters{}, err
	}
	return bounds.Defaults(), nil
}

func (c *Client) Check(_ context.Context, req CheckRequest) (CheckResult, error) {
	class, err := c.cfg.Class(req.ObjectType)
	if err != nil {
		return CheckResult{}, err
	}
	cfg := c.cfg.Overhang(class)
	analyzer := c.cfg.Analyzer(class)
	if req.FullMesh {
		analyzer = overhang.MeshPath{Config: cfg}
	}
	return CheckResult{
		ObjectType:  classid.Normalize(class.Name),
		Analyzer:    analyzer.Name(),
		HasOverhang: analyzer.HasOverhang(req.Parameters),
		WorstTilt:   overhang.Worst(cfg, req.Parameters),
	}, nil
}

// Repair returns repair.ErrInfeasible alongside the result when no single
// field removes the overhang.
func (c *Client) Repair(_ context.Context, req RepairRequest) (repair.Result, error) {
	class, err := c.cfg.Class(req.ObjectType)
	if err != nil {
		return repair.Result{}, err
	}
	sweeper, err := c.cfg.Sweeper(class)
	if err != nil {
		return repair.Result{}, err
	}
	sweeper.Logger = c.logger.With(zap.String("object_type", classid.Normalize(class.Name)))
	return sweeper.Repair(req.Parameters)
}

func (c *Client) Mesh(_ context.Context, req MeshRequest) (MeshSummary, error) {
	class, err := c.cfg.Class(req.ObjectType)
	if err != nil {
		return MeshSummary{}, err
	}
	profile := class.Shell(c.cfg.Resolution)
	if err := profile.Validate(); err != nil {
		return MeshSummary{}, err
	}
	colorize := class.Colorize
	if req.Colorize != nil {
		colorize = *req.Colorize
	}
	surface := geometry.Surface{Params: req.Parameters, WallThickness: profile.WallThickness}
	mesh := geometry.Build(surface, profile, geometry.BuildOptions{
		Colorize:         colorize,
		MaxOverhangAngle: c.cfg.MaxOverhangAngle,
	})
	return MeshSummary{Mesh: mesh, Metrics: geometry.Measure(mesh, req.Density)}, nil
}

func (c *Client) ExportSTL(ctx context.Context, req ExportRequest) (ExportSummary, error) {
	if req.Path == "" {
		return ExportSummary{}, errors.New("export path is required")
	}
	summary, err := c.Mesh(ctx, req.MeshRequest)
	if err != nil {
		return ExportSummary{}, err
	}
	if dir := filepath.Dir(req.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return ExportSummary{}, err
		}
	}
	f, err := os.Create(req.Path)
	if err != nil {
		return ExportSummary{}, err
	}
	n, err := geometry.WriteSTL(f, summary.Mesh, "lathe "+classid.Normalize(req.ObjectType))
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return ExportSummary{}, fmt.Errorf("write %s: %w", req.Path, err)
	}
	return ExportSummary{
		Path:        req.Path,
		Bytes:       n,
		Triangles:   summary.Mesh.TriangleCount(),
		HasOverhang: summary.Mesh.HasOverhang,
		Metrics:     summary.Metrics,
	}, nil
}

func (c *Client) AddFavorite(ctx context.Context, req FavoriteRequest) (model.Favorite, error) {
	if err := c.Init(ctx); err != nil {
		return model.Favorite{}, err
	}
	class, err := c.cfg.Class(req.ObjectType)
	if err != nil {
		return model.Favorite{}, err
	}
	return c.store.SaveFavorite(ctx, model.Favorite{
		ObjectType: classid.Normalize(class.Name),
		Parameters: req.Parameters,
		Rating:     req.Rating,
		SavedAtUTC: c.now().UTC().Format(time.RFC3339),
	})
}

// ImportFavorites saves every entry of a favorites file and returns how many
// were stored.
func (c *Client) ImportFavorites(ctx context.Context, path string) (int, error) {
	if err := c.Init(ctx); err != nil {
		return 0, err
	}
	favorites, err := artifacts.ReadFavorites(path)
	if err != nil {
		return 0, err
	}
	for i, fav := range favorites {
		fav.ObjectType = classid.Normalize(fav.ObjectType)
		if fav.SavedAtUTC == "" {
			fav.SavedAtUTC = c.now().UTC().Format(time.RFC3339)
		}
		if _, err := c.store.SaveFavorite(ctx, fav); err != nil {
			return i, fmt.Errorf("import favorite %d: %w", i, err)
		}
	}
	return len(favorites), nil
}

func (c *Client) Favorites(ctx context.Context, objectType string) ([]model.Favorite, error) {
	if err := c.Init(ctx); err != nil {
		return nil, err
	}
	if objectType != "" {
		objectType = classid.Normalize(objectType)
	}
	return c.store.ListFavorites(ctx, objectType)
}

func (c *Client) RemoveFavorite(ctx context.Context, id string) (bool, error) {
	if err := c.Init(ctx); err != nil {
		return false, err
	}
	return c.store.DeleteFavorite(ctx, id)
}

// Generations lists stored generations merged with the artifacts run index,
// newest first. Generations bred by an earlier process with the memory store
// are only found through the index.
func (c *Client) Generations(ctx context.Context, limit int) ([]model.GenerationSummary, error) {
	if err := c.Init(ctx); err != nil {
		return nil, err
	}
	items, err := c.store.ListGenerations(ctx)
	if err != nil {
		return nil, err
	}
	index, err := artifacts.ListRunIndex(c.artifactsDir)
	if err != nil {
		return nil, fmt.Errorf("read run index: %w", err)
	}
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		seen[item.ID] = true
	}
	for _, entry := range index {
		if seen[entry.GenerationID] {
			continue
		}
		seen[entry.GenerationID] = true
		items = append(items, model.GenerationSummary{
			ID:           entry.GenerationID,
			CreatedAtUTC: entry.CreatedAtUTC,
			Designs:      entry.Designs,
		})
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAtUTC > items[j].CreatedAtUTC
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

// Generation returns a generation with its lineage, check reports and
// breeding settings. The store is consulted first, then the artifacts
// directory.
func (c *Client) Generation(ctx context.Context, id string) (GenerationDetail, error) {
	if err := c.Init(ctx); err != nil {
		return GenerationDetail{}, err
	}
	gen, ok, err := c.store.GetGeneration(ctx, id)
	if err != nil {
		return GenerationDetail{}, err
	}
	var lineage []model.LineageRecord
	if ok {
		lineage, _, err = c.store.GetLineage(ctx, id)
		if err != nil {
			return GenerationDetail{}, err
		}
	} else {
		gen, ok, err = artifacts.ReadGeneration(c.artifactsDir, id)
		if err != nil {
			return GenerationDetail{}, err
		}
		if !ok {
			return GenerationDetail{}, fmt.Errorf("%w: %s", ErrGenerationNotFound, id)
		}
		lineage = gen.Lineage()
	}

	detail := GenerationDetail{Generation: gen, Lineage: lineage}
	cfg, ok, err := artifacts.ReadGenerationConfig(c.artifactsDir, id)
	if err != nil {
		return GenerationDetail{}, err
	}
	if ok {
		detail.Config = &cfg
	}
	detail.Reports, _, err = artifacts.ReadReport(c.artifactsDir, id)
	if err != nil {
		return GenerationDetail{}, err
	}
	return detail, nil
}

// Sample draws a Latin-hypercube batch within the class bounds and validates
// it like a generation.
func (c *Client) Sample(ctx context.Context, req SampleRequest) ([]DesignReport, error) {
	class, err := c.cfg.Class(req.ObjectType)
	if err != nil {
		return nil, err
	}
	bounds, err := class.ModelBounds()
	if err != nil {
		return nil, err
	}
	if req.Count <= 0 {
		req.Count = 8
	}
	seed := c.seed(req.Seed)
	samples, err := batch.LatinHypercube(rand.New(rand.NewSource(seed)), bounds, req.Count)
	if err != nil {
		return nil, err
	}
	objectType := classid.Normalize(class.Name)
	designs := make([]model.Design, len(samples))
	for i, p := range samples {
		designs[i] = model.Design{ID: uuid.NewString(), ObjectType: objectType, Parameters: p, Operation: "sample"}
	}
	reports, err := c.validate(ctx, designs, req.Workers, req.KeepViolations)
	if err != nil {
		return nil, err
	}
	c.logger.Info("sampled designs",
		zap.String("object_type", objectType),
		zap.Int64("seed", seed),
		zap.Int("designs", len(reports)),
	)
	return reports, nil
}

func (c *Client) seed(seed int64) int64 {
	if seed == 0 {
		return c.now().UnixNano()
	}
	return seed
}

func (c *Client) checker(objectType string) (batch.Checker, error) {
	class, err := c.cfg.Class(objectType)
	if err != nil {
		return batch.Checker{}, err
	}
	sweeper, err := c.cfg.Sweeper(class)
	if err != nil {
		return batch.Checker{}, err
	}
	sweeper.Logger = c.logger.With(zap.String("object_type", classid.Normalize(class.Name)))
	return batch.Checker{
		Analyzer: c.cfg.Analyzer(class),
		Overhang: c.cfg.Overhang(class),
		Sweeper:  sweeper,
	}, nil
}

func (c *Client) validate(ctx context.Context, designs []model.Design, workers int, keepViolations bool) ([]DesignReport, error) {
	if workers <= 0 {
		workers = c.cfg.Batch.Workers
	}
	validator := batch.Validator{Workers: workers, Logger: c.logger, Resolve: c.checker}
	outcomes, err := validator.Validate(ctx, designs)
	if err != nil {
		return nil, err
	}
	reports := make([]DesignReport, len(outcomes))
	for i, o := range outcomes {
		report := DesignReport{
			Design:      o.Design,
			Original:    o.Design.Parameters,
			Suggested:   o.Repair.Parameters,
			HasOverhang: o.HasOverhang,
			WorstTilt:   o.WorstTilt,
			Status:      o.Repair.Status,
			Changed:     o.Repair.ChangedLabel(),
			Err:         o.Err,
		}
		if o.Repair.Status == repair.StatusRepaired && !keepViolations {
			report.Design.Parameters = o.Repair.Parameters
		}
		reports[i] = report
	}
	return reports, nil
}
