package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"lathe/internal/model"
	"lathe/internal/repair"
	"lathe/pkg/lathe"
)

func newClassesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "classes",
		Short: "List object classes and their parameter bounds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			classes := a.client.Classes()
			if a.jsonOutput {
				type boundView struct {
					Label   string  `json:"label"`
					Min     float64 `json:"min"`
					Max     float64 `json:"max"`
					Default float64 `json:"default"`
				}
				type classView struct {
					Name   string      `json:"name"`
					Height float64     `json:"height"`
					Wall   float64     `json:"wall_thickness"`
					CapEnd string      `json:"cap_end"`
					Bounds []boundView `json:"bounds"`
				}
				out := make([]classView, 0, len(classes))
				for _, c := range classes {
					view := classView{Name: c.Name, Height: c.Height, Wall: c.WallThickness, CapEnd: string(c.CapEnd)}
					for _, b := range c.Bounds {
						view.Bounds = append(view.Bounds, boundView{Label: b.Label(), Min: b.Min, Max: b.Max, Default: b.Default})
					}
					out = append(out, view)
				}
				return a.printJSON(out)
			}
			for _, c := range classes {
				t := newTable(fmt.Sprintf("%s  height=%g wall=%g cap=%s", c.Name, c.Height, c.WallThickness, c.CapEnd),
					"parameter", "flag", "min", "max", "default")
				for _, b := range c.Bounds {
					t.add(b.Label(), "--"+flagName(b.Field), fmt.Sprint(b.Min), fmt.Sprint(b.Max), fmt.Sprint(b.Default))
				}
				a.printf("%s\n", t)
			}
			return nil
		},
	}
}

func newCheckCmd(a *app) *cobra.Command {
	var fullMesh bool
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Report whether a design has unsupported overhangs",
		Args:  cobra.NoArgs,
	}
	design := addDesignFlags(cmd)
	cmd.Flags().BoolVar(&fullMesh, "full-mesh", false, "build the full mesh instead of the configured analyzer path")
	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		p, err := design.resolve(cmd, a)
		if err != nil {
			return err
		}
		res, err := a.client.Check(cmd.Context(), lathe.CheckRequest{ObjectType: design.objectType, Parameters: p, FullMesh: fullMesh})
		if err != nil {
			return err
		}
		if a.jsonOutput {
			return a.printJSON(struct {
				ObjectType  string             `json:"object_type"`
				Analyzer    string             `json:"analyzer"`
				HasOverhang bool               `json:"has_overhang"`
				WorstTilt   float64            `json:"worst_overhang_deg"`
				Parameters  map[string]float64 `json:"parameters"`
			}{res.ObjectType, res.Analyzer, res.HasOverhang, res.WorstTilt, model.ToRecord(res.ObjectType, p).Parameters})
		}
		a.printf("%s %s (analyzer=%s, worst overhang %.1f deg, limit %g deg)\n",
			res.ObjectType, overhangText(res.HasOverhang), res.Analyzer, res.WorstTilt, a.cfg.MaxOverhangAngle)
		a.printf("%s\n", mutedStyle.Render(formatParameters(p)))
		return nil
	}
	return cmd
}

func newRepairCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "repair",
		Short: "Remove an overhang by reducing the single cheapest field",
		Args:  cobra.NoArgs,
	}
	design := addDesignFlags(cmd)
	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		p, err := design.resolve(cmd, a)
		if err != nil {
			return err
		}
		res, err := a.client.Repair(cmd.Context(), lathe.RepairRequest{ObjectType: design.objectType, Parameters: p})
		if err != nil && !errors.Is(err, repair.ErrInfeasible) {
			return err
		}
		if a.jsonOutput {
			if jsonErr := a.printJSON(struct {
				Status     repair.Status       `json:"status"`
				Changed    string              `json:"changed_field,omitempty"`
				Parameters map[string]float64  `json:"parameters"`
				Axes       []repair.AxisResult `json:"axes,omitempty"`
			}{res.Status, res.ChangedLabel(), model.ToRecord(design.objectType, res.Parameters).Parameters, res.Axes}); jsonErr != nil {
				return jsonErr
			}
			return err
		}

		a.printf("%s %s\n", statusText(string(res.Status)), repair.Describe(res))
		if len(res.Axes) > 0 {
			t := newTable("", "field", "start", "feasible at", "du", "evaluations")
			for _, axis := range res.Axes {
				at := mutedStyle.Render("-")
				du := mutedStyle.Render("-")
				if axis.Feasible {
					at = strconv.FormatFloat(axis.Value, 'g', 6, 64)
					du = fmt.Sprintf("%.3f", axis.Displacement)
				} else if !axis.Searchable {
					at = mutedStyle.Render("at minimum")
				}
				t.add(axis.Label, fmt.Sprint(axis.Start), at, du, strconv.Itoa(axis.Evaluations))
			}
			a.printf("%s", t)
		}
		a.printf("%s\n", mutedStyle.Render(formatParameters(res.Parameters)))
		return err
	}
	return cmd
}

func newMeshCmd(a *app) *cobra.Command {
	var (
		outPath string
		noColor bool
		density float64
	)
	cmd := &cobra.Command{
		Use:   "mesh",
		Short: "Build a design's shell and write it as binary STL",
		Args:  cobra.NoArgs,
	}
	design := addDesignFlags(cmd)
	cmd.Flags().StringVar(&outPath, "out", "", "STL output path (required)")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "skip overhang coloring")
	cmd.Flags().Float64Var(&density, "density", 0, "filament density in g/cm^3 (default PLA)")
	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		if outPath == "" {
			return usageError("mesh --out <file.stl>")
		}
		p, err := design.resolve(cmd, a)
		if err != nil {
			return err
		}
		req := lathe.ExportRequest{
			MeshRequest: lathe.MeshRequest{ObjectType: design.objectType, Parameters: p, Density: density},
			Path:        outPath,
		}
		if noColor {
			colorize := false
			req.Colorize = &colorize
		}
		res, err := a.client.ExportSTL(cmd.Context(), req)
		if err != nil {
			return err
		}
		if a.jsonOutput {
			return a.printJSON(struct {
				Path        string  `json:"path"`
				Bytes       int64   `json:"bytes"`
				Triangles   int     `json:"triangles"`
				HasOverhang bool    `json:"has_overhang"`
				Metrics     any     `json:"metrics"`
				Density     float64 `json:"density,omitempty"`
			}{res.Path, res.Bytes, res.Triangles, res.HasOverhang, res.Metrics, density})
		}
		m := res.Metrics
		a.printf("wrote %s (%s, %s triangles) %s\n", res.Path, humanize.Bytes(uint64(res.Bytes)), humanize.Comma(int64(res.Triangles)), overhangText(res.HasOverhang))
		t := newTable("", "diameter", "height", "volume", "mass", "water", "trash", "toyota", "ford")
		t.add(
			fmt.Sprintf("%.2f in", m.Diameter),
			fmt.Sprintf("%.2f in", m.Height),
			fmt.Sprintf("%.2f in^3", m.Volume),
			fmt.Sprintf("%s g", humanize.CommafWithDigits(m.MassGrams, 1)),
			fmt.Sprintf("%.2f", m.WaterMetric),
			fmt.Sprintf("%.2f", m.TrashMetric),
			fmt.Sprintf("%.2f", m.ToyotaMetric),
			fmt.Sprintf("%.2f", m.FordMetric),
		)
		a.printf("%s", t)
		return nil
	}
	return cmd
}

type batchFlags struct {
	objectType     string
	seed           int64
	workers        int
	keepViolations bool
}

func (b *batchFlags) bind(cmd *cobra.Command, defaultType string) {
	cmd.Flags().StringVar(&b.objectType, "type", defaultType, "object class")
	cmd.Flags().Int64Var(&b.seed, "seed", 0, "random seed (0 picks one from the clock)")
	cmd.Flags().IntVar(&b.workers, "workers", 0, "parallel validators (0 uses config)")
	cmd.Flags().BoolVar(&b.keepViolations, "keep-violations", false, "report overhangs without applying repairs")
}

func newSampleCmd(a *app) *cobra.Command {
	var (
		flags batchFlags
		count int
	)
	cmd := &cobra.Command{
		Use:   "sample",
		Short: "Draw a Latin-hypercube batch of designs and repair violations",
		Args:  cobra.NoArgs,
	}
	flags.bind(cmd, "vase")
	cmd.Flags().IntVar(&count, "count", 8, "number of designs")
	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		reports, err := a.client.Sample(cmd.Context(), lathe.SampleRequest{
			ObjectType:     flags.objectType,
			Count:          count,
			Seed:           flags.seed,
			Workers:        flags.workers,
			KeepViolations: flags.keepViolations,
		})
		if err != nil {
			return err
		}
		return a.printReports("samples", reports)
	}
	return cmd
}

func newEvolveCmd(a *app) *cobra.Command {
	var (
		flags         batchFlags
		favoritesPath string
	)
	cmd := &cobra.Command{
		Use:   "evolve",
		Short: "Breed a generation from favorites, then check and repair it",
		Args:  cobra.NoArgs,
	}
	flags.bind(cmd, "")
	cmd.Flags().StringVar(&favoritesPath, "favorites", "", "read favorites from a JSON file instead of the store")
	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		summary, err := a.client.Evolve(cmd.Context(), lathe.EvolveRequest{
			ObjectType:     flags.objectType,
			FavoritesPath:  favoritesPath,
			Seed:           flags.seed,
			Workers:        flags.workers,
			KeepViolations: flags.keepViolations,
		})
		if err != nil {
			return err
		}
		if a.jsonOutput {
			return a.printJSON(struct {
				GenerationID string `json:"generation_id"`
				ArtifactsDir string `json:"artifacts_dir"`
				Seed         int64  `json:"seed"`
				Favorites    int    `json:"favorites"`
				Designs      int    `json:"designs"`
				Repaired     int    `json:"repaired"`
				Infeasible   int    `json:"infeasible"`
			}{summary.GenerationID, summary.ArtifactsDir, summary.Seed, summary.Favorites, len(summary.Designs), summary.Repaired, summary.Infeasible})
		}
		a.printf("generation %s from %d favorites (seed %d)\n", titleStyle.Render(summary.GenerationID), summary.Favorites, summary.Seed)
		if err := a.printReports("", summary.Designs); err != nil {
			return err
		}
		a.printf("%d repaired, %d infeasible; artifacts in %s\n", summary.Repaired, summary.Infeasible, summary.ArtifactsDir)
		return nil
	}
	return cmd
}

func (a *app) printReports(title string, reports []lathe.DesignReport) error {
	if a.jsonOutput {
		type reportView struct {
			ID          string             `json:"id"`
			ObjectType  string             `json:"object_type"`
			Operation   string             `json:"operation"`
			HasOverhang bool               `json:"has_overhang"`
			WorstTilt   float64            `json:"worst_overhang_deg"`
			Status      string             `json:"status"`
			Changed     string             `json:"changed_field,omitempty"`
			Parameters  map[string]float64 `json:"parameters"`
			Error       string             `json:"error,omitempty"`
		}
		out := make([]reportView, 0, len(reports))
		for _, r := range reports {
			view := reportView{
				ID:          r.Design.ID,
				ObjectType:  r.Design.ObjectType,
				Operation:   r.Design.Operation,
				HasOverhang: r.HasOverhang,
				WorstTilt:   r.WorstTilt,
				Status:      string(r.Status),
				Changed:     r.Changed,
				Parameters:  model.ToRecord(r.Design.ObjectType, r.Design.Parameters).Parameters,
			}
			if r.Err != nil {
				view.Error = r.Err.Error()
			}
			out = append(out, view)
		}
		return a.printJSON(out)
	}

	t := newTable(title, "#", "type", "operation", "worst", "status", "changed")
	for i, r := range reports {
		status := string(r.Status)
		if r.Err != nil {
			status = "error"
		}
		t.add(strconv.Itoa(i+1), r.Design.ObjectType, r.Design.Operation,
			fmt.Sprintf("%.1f", r.WorstTilt), statusText(status), r.Changed)
	}
	a.printf("%s", t)
	return nil
}
