package repair

import (
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"

	"lathe/internal/logging"
	"lathe/internal/model"
	"lathe/internal/overhang"
)

// DefaultStepFraction is the normalized decrement of the continuous sweep.
const DefaultStepFraction = 0.05

var ErrInfeasible = errors.New("no single-field change removes the overhang")

type Status string

const (
	StatusFeasible   Status = "feasible"
	StatusRepaired   Status = "repaired"
	StatusInfeasible Status = "infeasible"
)

// AxisResult is the outcome of sweeping one field with the others held fixed.
type AxisResult struct {
	Field      model.Field `json:"-"`
	Label      string      `json:"field"`
	Searchable bool        `json:"searchable"`
	Feasible   bool        `json:"feasible"`
	Start      float64     `json:"start"`
	Value      float64     `json:"value,omitempty"`
	// Displacement is the normalized distance travelled, u_start - u_feasible.
	Displacement float64 `json:"displacement,omitempty"`
	Evaluations  int     `json:"evaluations"`
}

type Result struct {
	Status     Status                 `json:"status"`
	Original   model.DesignParameters `json:"original"`
	Parameters model.DesignParameters `json:"parameters"`
	// Changed is the repaired axis; only meaningful for StatusRepaired.
	Changed model.Field  `json:"-"`
	Axes    []AxisResult `json:"axes,omitempty"`
}

// ChangedLabel is the label of the repaired field, or "" when nothing changed.
func (r Result) ChangedLabel() string {
	if r.Status != StatusRepaired {
		return ""
	}
	return r.Changed.Label()
}

// Sweeper repairs an overhanging design by moving the single field that needs
// the smallest normalized reduction. Fields are searched in Bounds order and
// ties go to the earlier field. Each axis is assumed to relieve overhang
// monotonically as it decreases, which phase-dependent fields such as twist
// angle do not guarantee.
type Sweeper struct {
	Analyzer     overhang.Analyzer
	Bounds       model.Bounds
	StepFraction float64
	Logger       *zap.Logger
}

func (s Sweeper) step() float64 {
	if s.StepFraction <= 0 {
		return DefaultStepFraction
	}
	return s.StepFraction
}

func (s Sweeper) logger() *zap.Logger {
	return logging.OrNop(s.Logger)
}

// Repair returns p unchanged when it is already printable, the repaired
// parameters otherwise, or ErrInfeasible with p unchanged when no axis helps.
func (s Sweeper) Repair(p model.DesignParameters) (Result, error) {
	if s.Analyzer == nil {
		return Result{}, errors.New("repair requires an analyzer")
	}
	result := Result{Status: StatusFeasible, Original: p, Parameters: p}
	if !s.Analyzer.HasOverhang(p) {
		return result, nil
	}

	log := s.logger()
	best := -1
	result.Axes = make([]AxisResult, 0, len(s.Bounds))
	for _, b := range s.Bounds {
		axis := s.sweep(p, b)
		log.Debug("swept axis",
			zap.String("field", axis.Label),
			zap.Bool("searchable", axis.Searchable),
			zap.Bool("feasible", axis.Feasible),
			zap.Float64("value", axis.Value),
			zap.Float64("displacement", axis.Displacement),
			zap.Int("evaluations", axis.Evaluations),
		)
		result.Axes = append(result.Axes, axis)
		if !axis.Feasible {
			continue
		}
		if best < 0 || axis.Displacement < result.Axes[best].Displacement {
			best = len(result.Axes) - 1
		}
	}

	if best < 0 {
		result.Status = StatusInfeasible
		log.Info("design is infeasible", zap.Int("axes", len(result.Axes)))
		return result, ErrInfeasible
	}
	chosen := result.Axes[best]
	result.Status = StatusRepaired
	result.Changed = chosen.Field
	result.Parameters = p.With(chosen.Field, chosen.Value)
	log.Info("repaired design",
		zap.String("field", chosen.Label),
		zap.Float64("from", chosen.Start),
		zap.Float64("to", chosen.Value),
		zap.Float64("displacement", chosen.Displacement),
	)
	return result, nil
}

func (s Sweeper) sweep(p model.DesignParameters, b model.ParameterBound) AxisResult {
	start := p.Value(b.Field)
	axis := AxisResult{Field: b.Field, Label: b.Label(), Start: start}
	if b.Span() <= 0 {
		return axis
	}
	uStart := b.Normalize(start)

	if b.Field.Integer() {
		axis.Searchable = start > b.Min
		for v := start - 1; v >= b.Min; v-- {
			axis.Evaluations++
			if !s.Analyzer.HasOverhang(p.With(b.Field, v)) {
				axis.Feasible = true
				axis.Value = v
				axis.Displacement = uStart - b.Normalize(v)
				return axis
			}
		}
		return axis
	}

	if uStart <= 0 {
		return axis
	}
	axis.Searchable = true
	step := s.step()
	for k := 1; ; k++ {
		u := math.Max(0, uStart-float64(k)*step)
		v := b.Denormalize(u)
		axis.Evaluations++
		if !s.Analyzer.HasOverhang(p.With(b.Field, v)) {
			axis.Feasible = true
			axis.Value = v
			axis.Displacement = uStart - u
			return axis
		}
		if u == 0 {
			return axis
		}
	}
}

// Describe renders a one-line summary of a result.
func Describe(r Result) string {
	switch r.Status {
	case StatusRepaired:
		for _, a := range r.Axes {
			if a.Field == r.Changed {
				return fmt.Sprintf("repaired %s: %g -> %g (du=%.3f)", a.Label, a.Start, a.Value, a.Displacement)
			}
		}
		return "repaired"
	case StatusInfeasible:
		return "infeasible: no single field removes the overhang"
	default:
		return "feasible"
	}
}
