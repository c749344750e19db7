package batch

import (
	"errors"
	"math/rand"

	"lathe/internal/model"
)

// LatinHypercube draws n designs so that every bounded field has exactly one
// sample in each of n equal strata. Integer fields are rounded to the nearest
// whole value. Fields without a bound keep their zero value.
func LatinHypercube(rng *rand.Rand, bounds model.Bounds, n int) ([]model.DesignParameters, error) {
	if rng == nil {
		return nil, errors.New("latin hypercube requires a random source")
	}
	if n <= 0 {
		return []model.DesignParameters{}, nil
	}
	out := make([]model.DesignParameters, n)
	for i := range out {
		out[i] = bounds.Defaults()
	}
	for _, b := range bounds {
		strata := rng.Perm(n)
		for i := range out {
			u := (float64(strata[i]) + rng.Float64()) / float64(n)
			out[i] = out[i].With(b.Field, b.Clamp(b.Denormalize(u)))
		}
	}
	return out, nil
}
