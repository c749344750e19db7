package evo

import (
	"errors"
	"fmt"
	"math/rand"
)

const (
	DefaultMutationProbability  = 0.1
	DefaultCrossoverProbability = 1.0
)

var (
	ErrNoRandomSource = errors.New("random source is required")
	ErrProbability    = errors.New("probability must be within [0, 1]")
)

func checkProbability(p float64) error {
	if p < 0 || p > 1 {
		return fmt.Errorf("%w: %v", ErrProbability, p)
	}
	return nil
}

// Mutation flips each bit independently with Probability.
type Mutation struct {
	Rand        *rand.Rand
	Probability float64
}

func (Mutation) Name() string {
	return "mutation"
}

func (o Mutation) Apply(code Code) (Code, error) {
	if o.Rand == nil {
		return "", ErrNoRandomSource
	}
	if err := checkProbability(o.Probability); err != nil {
		return "", err
	}
	if err := code.validate(); err != nil {
		return "", err
	}
	out := []byte(code)
	for i := range out {
		if o.Rand.Float64() < o.Probability {
			out[i] ^= '0' ^ '1'
		}
	}
	return Code(out), nil
}

// Crossover performs a single-point tail swap. Cuts holds the candidate cut
// positions; when empty any interior bit may be chosen.
type Crossover struct {
	Rand        *rand.Rand
	Probability float64
	Cuts        []int
}

func (Crossover) Name() string {
	return "crossover"
}

// Apply returns both children and the cut used. A cut of 0 means the parents
// were returned unchanged.
func (o Crossover) Apply(a, b Code) (Code, Code, int, error) {
	if o.Rand == nil {
		return "", "", 0, ErrNoRandomSource
	}
	if err := checkProbability(o.Probability); err != nil {
		return "", "", 0, err
	}
	if len(a) != len(b) {
		return "", "", 0, fmt.Errorf("%w: parents differ (%d vs %d)", ErrCodeLength, len(a), len(b))
	}
	if err := a.validate(); err != nil {
		return "", "", 0, err
	}
	if err := b.validate(); err != nil {
		return "", "", 0, err
	}

	if o.Rand.Float64() >= o.Probability {
		return a, b, 0, nil
	}
	cuts := o.validCuts(len(a))
	if len(cuts) == 0 {
		return a, b, 0, nil
	}
	cut := cuts[o.Rand.Intn(len(cuts))]
	return a[:cut] + b[cut:], b[:cut] + a[cut:], cut, nil
}

func (o Crossover) validCuts(width int) []int {
	cuts := make([]int, 0, len(o.Cuts))
	for _, c := range o.Cuts {
		if c > 0 && c < width {
			cuts = append(cuts, c)
		}
	}
	if len(cuts) == 0 {
		return CandidateCuts(nil, width)
	}
	return cuts
}
