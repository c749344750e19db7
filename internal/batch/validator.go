package batch

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"lathe/internal/logging"
	"lathe/internal/model"
	"lathe/internal/overhang"
	"lathe/internal/repair"
)

var ErrNoResolver = errors.New("batch validator requires a checker resolver")

// Checker bundles what is needed to check and repair designs of one class.
type Checker struct {
	Analyzer overhang.Analyzer
	Overhang overhang.Config
	Sweeper  repair.Sweeper
}

// Resolver maps an object type to its checker.
type Resolver func(objectType string) (Checker, error)

// Outcome is the validation result of one design. Err holds per-design
// failures such as an unknown object type; it does not abort the batch.
type Outcome struct {
	Design      model.Design
	HasOverhang bool
	WorstTilt   float64
	Repair      repair.Result
	Err         error
}

// Printable reports whether the design, possibly after repair, has no overhang.
func (o Outcome) Printable() bool {
	return o.Err == nil && o.Repair.Status != repair.StatusInfeasible
}

// Validator checks a batch of designs concurrently. Workers <= 0 uses
// GOMAXPROCS.
type Validator struct {
	Workers int
	Logger  *zap.Logger
	Resolve Resolver
}

func (v Validator) workers() int {
	if v.Workers <= 0 {
		return runtime.GOMAXPROCS(0)
	}
	return v.Workers
}

// Validate returns one outcome per design in input order. Only context
// cancellation fails the whole batch.
func (v Validator) Validate(ctx context.Context, designs []model.Design) ([]Outcome, error) {
	if v.Resolve == nil {
		return nil, ErrNoResolver
	}
	log := logging.OrNop(v.Logger)

	out := make([]Outcome, len(designs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(v.workers())
	for i := range designs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out[i] = v.check(designs[i])
			if out[i].Err != nil {
				log.Warn("design check failed", zap.String("design_id", designs[i].ID), zap.Error(out[i].Err))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	repaired, infeasible := Tally(out)
	log.Debug("validated batch",
		zap.Int("designs", len(out)),
		zap.Int("repaired", repaired),
		zap.Int("infeasible", infeasible),
	)
	return out, nil
}

func (v Validator) check(d model.Design) Outcome {
	o := Outcome{Design: d}
	checker, err := v.Resolve(d.ObjectType)
	if err != nil {
		o.Err = err
		return o
	}
	if checker.Analyzer == nil {
		o.Err = fmt.Errorf("no analyzer for %q", d.ObjectType)
		return o
	}
	o.HasOverhang = checker.Analyzer.HasOverhang(d.Parameters)
	o.WorstTilt = overhang.Worst(checker.Overhang, d.Parameters)
	if !o.HasOverhang {
		o.Repair = repair.Result{Status: repair.StatusFeasible, Original: d.Parameters, Parameters: d.Parameters}
		return o
	}
	res, err := checker.Sweeper.Repair(d.Parameters)
	o.Repair = res
	if err != nil && !errors.Is(err, repair.ErrInfeasible) {
		o.Err = err
	}
	return o
}

// Tally counts repaired and infeasible outcomes.
func Tally(outcomes []Outcome) (repaired, infeasible int) {
	for _, o := range outcomes {
		switch o.Repair.Status {
		case repair.StatusRepaired:
			repaired++
		case repair.StatusInfeasible:
			infeasible++
		}
	}
	return repaired, infeasible
}
