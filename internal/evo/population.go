package evo

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"lathe/internal/logging"
	"lathe/internal/model"
)

// ChildrenPerType is the brood size for an object type with two or more
// favorites.
const ChildrenPerType = 4

var ErrNoLayouts = errors.New("population policy requires at least one layout")

type PolicyConfig struct {
	Rand *rand.Rand
	// Layouts maps object type to its gene layout. Favorites of other types
	// are skipped.
	Layouts              map[string]Layout
	MutationProbability  float64
	CrossoverProbability float64
	Logger               *zap.Logger
	// NewID names children; defaults to random UUIDs.
	NewID func() string
}

// PopulationPolicy turns favorited designs into the next batch of children.
type PopulationPolicy struct {
	rng       *rand.Rand
	layouts   map[string]Layout
	mutation  Mutation
	crossover Crossover
	logger    *zap.Logger
	newID     func() string
}

func NewPopulationPolicy(cfg PolicyConfig) (*PopulationPolicy, error) {
	if cfg.Rand == nil {
		return nil, ErrNoRandomSource
	}
	if len(cfg.Layouts) == 0 {
		return nil, ErrNoLayouts
	}
	if err := checkProbability(cfg.MutationProbability); err != nil {
		return nil, fmt.Errorf("mutation: %w", err)
	}
	if err := checkProbability(cfg.CrossoverProbability); err != nil {
		return nil, fmt.Errorf("crossover: %w", err)
	}
	newID := cfg.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	return &PopulationPolicy{
		rng:       cfg.Rand,
		layouts:   cfg.Layouts,
		mutation:  Mutation{Rand: cfg.Rand, Probability: cfg.MutationProbability},
		crossover: Crossover{Rand: cfg.Rand, Probability: cfg.CrossoverProbability},
		logger:    logging.OrNop(cfg.Logger),
		newID:     newID,
	}, nil
}

// Generate produces children for every object type present in favorites:
// none for zero favorites, two mutations for one, and four children for two or
// more. Output is grouped by object type in first-seen order.
func (p *PopulationPolicy) Generate(favorites []model.Favorite) ([]model.Design, error) {
	order := make([]string, 0, len(p.layouts))
	groups := make(map[string][]model.Favorite, len(p.layouts))
	for _, f := range favorites {
		if _, ok := groups[f.ObjectType]; !ok {
			order = append(order, f.ObjectType)
		}
		groups[f.ObjectType] = append(groups[f.ObjectType], f)
	}

	out := make([]model.Design, 0, ChildrenPerType*len(order))
	for _, objectType := range order {
		layout, ok := p.layouts[objectType]
		if !ok {
			p.logger.Warn("skipping favorites of unknown object type",
				zap.String("object_type", objectType),
				zap.Int("favorites", len(groups[objectType])),
			)
			continue
		}
		children, err := p.breed(objectType, layout, groups[objectType])
		if err != nil {
			return nil, fmt.Errorf("breed %s: %w", objectType, err)
		}
		p.logger.Debug("bred object type",
			zap.String("object_type", objectType),
			zap.Int("favorites", len(groups[objectType])),
			zap.Int("children", len(children)),
		)
		out = append(out, children...)
	}
	return out, nil
}

type parent struct {
	id   string
	code Code
}

func (p *PopulationPolicy) breed(objectType string, layout Layout, favorites []model.Favorite) ([]model.Design, error) {
	parents := make([]parent, len(favorites))
	for i, f := range favorites {
		parents[i] = parent{id: f.ID, code: layout.EncodeDesign(f.Parameters)}
	}
	crossover := p.crossover
	crossover.Cuts = layout.Cuts()

	var children []model.Design
	emit := func(code Code, operation string, cut int, from ...parent) error {
		params, err := layout.DecodeDesign(code)
		if err != nil {
			return err
		}
		ids := make([]string, 0, len(from))
		for _, f := range from {
			ids = append(ids, f.id)
		}
		children = append(children, model.Design{
			ID:         p.newID(),
			ObjectType: objectType,
			Parameters: params,
			Operation:  operation,
			ParentIDs:  ids,
			CutPoint:   cut,
		})
		return nil
	}
	mutate := func(src parent) error {
		code, err := p.mutation.Apply(src.code)
		if err != nil {
			return err
		}
		return emit(code, p.mutation.Name(), 0, src)
	}

	switch n := len(parents); {
	case n == 0:
		return nil, nil
	case n == 1:
		for i := 0; i < 2; i++ {
			if err := mutate(parents[0]); err != nil {
				return nil, err
			}
		}
	case n == 2:
		a, b := parents[0], parents[1]
		c1, c2, cut, err := crossover.Apply(a.code, b.code)
		if err != nil {
			return nil, err
		}
		if err := emit(c1, crossover.Name(), cut, a, b); err != nil {
			return nil, err
		}
		if err := emit(c2, crossover.Name(), cut, a, b); err != nil {
			return nil, err
		}
		if err := mutate(a); err != nil {
			return nil, err
		}
		if err := mutate(b); err != nil {
			return nil, err
		}
	default:
		for k := 0; k < ChildrenPerType; k++ {
			if p.rng.Float64() < 0.5 {
				pick := p.rng.Perm(n)
				a, b := parents[pick[0]], parents[pick[1]]
				c1, c2, cut, err := crossover.Apply(a.code, b.code)
				if err != nil {
					return nil, err
				}
				child := c1
				if k%2 == 1 {
					child = c2
				}
				if err := emit(child, crossover.Name(), cut, a, b); err != nil {
					return nil, err
				}
				continue
			}
			if err := mutate(parents[p.rng.Intn(n)]); err != nil {
				return nil, err
			}
		}
	}
	return children, nil
}
