package lathe

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"lathe/internal/artifacts"
	"lathe/internal/batch"
	"lathe/internal/classid"
	"lathe/internal/evo"
	"lathe/internal/model"
	"lathe/internal/repair"
)

// Evolve breeds one generation from the favorites, checks and repairs every
// child, records the generation and its lineage, and writes the generation
// artifacts.
func (c *Client) Evolve(ctx context.Context, req EvolveRequest) (EvolveSummary, error) {
	if err := c.Init(ctx); err != nil {
		return EvolveSummary{}, err
	}
	favorites, err := c.evolveFavorites(ctx, req)
	if err != nil {
		return EvolveSummary{}, err
	}
	if len(favorites) == 0 {
		return EvolveSummary{}, ErrNoFavorites
	}

	layouts, err := c.cfg.Layouts()
	if err != nil {
		return EvolveSummary{}, err
	}
	seed := c.seed(req.Seed)
	policy, err := evo.NewPopulationPolicy(evo.PolicyConfig{
		Rand:                 rand.New(rand.NewSource(seed)),
		Layouts:              layouts,
		MutationProbability:  c.cfg.Evolution.MutationProbability,
		CrossoverProbability: c.cfg.Evolution.CrossoverProbability,
		Logger:               c.logger,
	})
	if err != nil {
		return EvolveSummary{}, err
	}
	children, err := policy.Generate(favorites)
	if err != nil {
		return EvolveSummary{}, err
	}
	if len(children) == 0 {
		return EvolveSummary{}, fmt.Errorf("%w: no favorite matches a configured class", ErrNoFavorites)
	}

	reports, err := c.validate(ctx, children, req.Workers, req.KeepViolations)
	if err != nil {
		return EvolveSummary{}, err
	}

	now := c.now().UTC()
	gen := model.Generation{
		ID:           fmt.Sprintf("gen-%d-%s", now.Unix(), uuid.NewString()[:8]),
		CreatedAtUTC: now.Format(time.RFC3339),
		Seed:         seed,
		Designs:      make([]model.Design, len(reports)),
	}
	entries := make([]artifacts.ReportEntry, len(reports))
	summary := EvolveSummary{
		GenerationID: gen.ID,
		Seed:         seed,
		Favorites:    len(favorites),
		Designs:      reports,
	}
	for i, r := range reports {
		gen.Designs[i] = r.Design
		entries[i] = reportEntry(r)
	}
	summary.Repaired, summary.Infeasible = Tally(reports)

	if err := c.store.SaveGeneration(ctx, gen); err != nil {
		return EvolveSummary{}, fmt.Errorf("save generation: %w", err)
	}
	if err := c.store.SaveLineage(ctx, gen.ID, gen.Lineage()); err != nil {
		return EvolveSummary{}, fmt.Errorf("save lineage: %w", err)
	}

	dir, err := artifacts.WriteGeneration(c.artifactsDir, artifacts.GenerationArtifacts{
		Config: artifacts.GenerationConfig{
			Seed:                 seed,
			Favorites:            len(favorites),
			ObjectTypes:          objectTypes(gen.Designs),
			BitsPerField:         c.cfg.Evolution.BitsPerField,
			MutationProbability:  c.cfg.Evolution.MutationProbability,
			CrossoverProbability: c.cfg.Evolution.CrossoverProbability,
			MaxOverhangAngle:     c.cfg.MaxOverhangAngle,
			Analyzer:             c.analyzerName(),
		},
		Generation: gen,
		Reports:    entries,
	})
	if err != nil {
		return EvolveSummary{}, fmt.Errorf("write generation artifacts: %w", err)
	}
	summary.ArtifactsDir = dir
	if err := artifacts.AppendRunIndex(c.artifactsDir, artifacts.RunIndexEntry{
		GenerationID: gen.ID,
		Seed:         seed,
		Designs:      len(gen.Designs),
		Repaired:     summary.Repaired,
		Infeasible:   summary.Infeasible,
		MaxOverhang:  c.cfg.MaxOverhangAngle,
		CreatedAtUTC: gen.CreatedAtUTC,
	}); err != nil {
		return EvolveSummary{}, fmt.Errorf("update run index: %w", err)
	}

	c.logger.Info("evolved generation",
		zap.String("generation_id", gen.ID),
		zap.Int64("seed", seed),
		zap.Int("favorites", len(favorites)),
		zap.Int("designs", len(gen.Designs)),
		zap.Int("repaired", summary.Repaired),
		zap.Int("infeasible", summary.Infeasible),
	)
	return summary, nil
}

func (c *Client) evolveFavorites(ctx context.Context, req EvolveRequest) ([]model.Favorite, error) {
	want := ""
	if req.ObjectType != "" {
		class, err := c.cfg.Class(req.ObjectType)
		if err != nil {
			return nil, err
		}
		want = classid.Normalize(class.Name)
	}

	var favorites []model.Favorite
	if req.FavoritesPath != "" {
		loaded, err := artifacts.ReadFavorites(req.FavoritesPath)
		if err != nil {
			return nil, err
		}
		for i := range loaded {
			if loaded[i].ID == "" {
				loaded[i].ID = fmt.Sprintf("file-%d", i)
			}
		}
		favorites = loaded
	} else {
		stored, err := c.store.ListFavorites(ctx, "")
		if err != nil {
			return nil, err
		}
		favorites = stored
	}

	out := make([]model.Favorite, 0, len(favorites))
	for _, f := range favorites {
		f.ObjectType = classid.Normalize(f.ObjectType)
		if want != "" && f.ObjectType != want {
			continue
		}
		out = append(out, f)
	}
	return out, nil
}

func (c *Client) analyzerName() string {
	if c.cfg.Repair.Lightweight {
		return "light"
	}
	return "mesh"
}

func reportEntry(r DesignReport) artifacts.ReportEntry {
	entry := artifacts.ReportEntry{
		DesignID:    r.Design.ID,
		ObjectType:  r.Design.ObjectType,
		HasOverhang: r.HasOverhang,
		WorstTilt:   r.WorstTilt,
		Status:      string(r.Status),
		Changed:     r.Changed,
	}
	if r.Status == repair.StatusRepaired {
		entry.Repaired = model.ToRecord(r.Design.ObjectType, r.Suggested).Parameters
	}
	if r.Err != nil {
		entry.Error = r.Err.Error()
	}
	return entry
}

func objectTypes(designs []model.Design) []string {
	seen := make(map[string]bool)
	out := []string{}
	for _, d := range designs {
		if !seen[d.ObjectType] {
			seen[d.ObjectType] = true
			out = append(out, d.ObjectType)
		}
	}
	return out
}

// Tally reports repaired and infeasible counts of a validated batch.
func Tally(reports []DesignReport) (repaired, infeasible int) {
	outcomes := make([]batch.Outcome, len(reports))
	for i, r := range reports {
		outcomes[i].Repair.Status = r.Status
	}
	return batch.Tally(outcomes)
}
