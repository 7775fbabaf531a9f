// Package gridsearch sweeps each model family's hyperparameter space and
// picks the combination with the lowest backtested MAE.
package gridsearch

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/runrate-dev/runrate/pkg/backtest"
	"github.com/runrate-dev/runrate/pkg/models"
	"github.com/runrate-dev/runrate/pkg/timeseries"
)

// Params is one fully specified hyperparameter assignment for a model
// family. An empty map is the sole combination of a family with no
// declared hyperparameters.
type Params map[string]any

// Int returns the integer value for key, or def when absent.
func (p Params) Int(key string, def int) int {
	if v, ok := p[key]; ok {
		if i, ok := v.(int); ok {
			return i
		}
		if f, ok := v.(float64); ok {
			return int(f)
		}
	}
	return def
}

// String returns the string value for key, or def when absent.
func (p Params) String(key, def string) string {
	if v, ok := p[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

// gridParam is one hyperparameter with its ordered candidate values.
// Declaration order drives the Cartesian enumeration order, which in turn
// fixes how ties resolve.
type gridParam struct {
	name   string
	values []any
}

// grids declares the static hyperparameter space per family. Unset
// sentinels ("" for component types, 0 for the seasonal period) are real
// candidates, not placeholders.
var grids = map[models.Family][]gridParam{
	models.FamilyMovingAverage: {
		{name: "window", values: []any{3, 5, 7, 14, 30}},
	},
	models.FamilyExponentialSmoothing: {
		{name: "trend", values: []any{
			string(models.TrendAdditive), string(models.TrendMultiplicative), string(models.TrendNone),
		}},
		{name: "seasonal", values: []any{
			string(models.SeasonalNone), string(models.SeasonalAdditive), string(models.SeasonalMultiplicative),
		}},
		{name: "period", values: []any{0, 7, 12, 30}},
	},
	models.FamilyNaive:         {},
	models.FamilySeasonalNaive: {
		{name: "period", values: []any{3, 5, 7, 12, 30}},
	},
	models.FamilyLinearRegression: {},
}

// families lists the searched model families in a fixed order, so
// OptimizeAll output and cross-family tie-breaks are deterministic.
var families = []models.Family{
	models.FamilyMovingAverage,
	models.FamilyExponentialSmoothing,
	models.FamilyNaive,
	models.FamilySeasonalNaive,
	models.FamilyLinearRegression,
}

// Families returns the model families covered by the optimizer, in
// evaluation order.
func Families() []models.Family {
	out := make([]models.Family, len(families))
	copy(out, families)
	return out
}

// Combinations enumerates the Cartesian product of a family's declared
// hyperparameter candidates, in declaration order. A family with no
// declared hyperparameters yields exactly one empty combination. Returns
// an error for a family outside the declared set.
func Combinations(family models.Family) ([]Params, error) {
	grid, ok := grids[family]
	if !ok {
		return nil, fmt.Errorf("gridsearch: unknown model family %q", family)
	}

	combos := []Params{{}}
	for _, param := range grid {
		next := make([]Params, 0, len(combos)*len(param.values))
		for _, combo := range combos {
			for _, value := range param.values {
				expanded := make(Params, len(combo)+1)
				for k, v := range combo {
					expanded[k] = v
				}
				expanded[param.name] = value
				next = append(next, expanded)
			}
		}
		combos = next
	}
	return combos, nil
}

// NewModel instantiates a model variant from its family tag and parameter
// assignment, substituting documented defaults for absent hyperparameters
// (window=7, period=7). An unknown family is a configuration error and is
// returned to the caller rather than swallowed.
func NewModel(family models.Family, p Params) (models.Model, error) {
	switch family {
	case models.FamilyNaive:
		return models.NewNaiveModel(), nil
	case models.FamilySeasonalNaive:
		return models.NewSeasonalNaiveModel(p.Int("period", 7)), nil
	case models.FamilyMovingAverage:
		return models.NewMovingAverageModel(p.Int("window", 7)), nil
	case models.FamilyLinearRegression:
		return models.NewLinearRegressionModel(), nil
	case models.FamilyExponentialSmoothing:
		return models.NewExponentialSmoothingModel(
			models.TrendType(p.String("trend", "")),
			models.SeasonalType(p.String("seasonal", "")),
			p.Int("period", 0),
		), nil
	default:
		return nil, fmt.Errorf("gridsearch: unknown model family %q", family)
	}
}

// SearchResult is the outcome of a grid search over one model family.
type SearchResult struct {
	Family    models.Family
	Params    Params
	MAE       float64
	Evaluated int // combinations that produced a scoreable backtest
}

// Optimizer runs grid searches against a backtesting harness.
type Optimizer struct {
	backtester *backtest.Backtester
	logger     *slog.Logger
	limit      int
}

// New creates a grid search optimizer.
func New(logger *slog.Logger) *Optimizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Optimizer{
		backtester: backtest.New(nil, logger),
		logger:     logger,
		limit:      runtime.GOMAXPROCS(0),
	}
}

// Search backtests every parameter combination of the family and returns
// the one with the lowest MAE. Ties keep the first combination in
// enumeration order. Failed combinations are logged and skipped; when all
// of them fail the result carries an empty parameter set and +Inf MAE.
//
// Combinations are evaluated concurrently on a bounded pool, then scanned
// in enumeration order so that first-found tie-breaking stays
// deterministic.
func (o *Optimizer) Search(ctx context.Context, s *timeseries.Series, family models.Family, trainSize float64, horizon int) (SearchResult, error) {
	combos, err := Combinations(family)
	if err != nil {
		return SearchResult{}, err
	}

	o.logger.Info("grid searching model family",
		"family", family.String(),
		"combinations", len(combos),
	)

	results := make([]backtest.Result, len(combos))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.limit)
	for i, params := range combos {
		g.Go(func() error {
			model, err := NewModel(family, params)
			if err != nil {
				// Unknown family is caught before enumeration, so this is
				// a per-combination construction failure: skip it.
				o.logger.Warn("failed to construct model for parameters",
					"family", family.String(), "params", fmt.Sprint(params), "error", err)
				results[i] = backtest.Result{MAE: math.Inf(1), MAPE: math.Inf(1), Err: err.Error()}
				return nil
			}
			results[i] = o.backtester.Single(gctx, model, s, trainSize, horizon)
			return nil
		})
	}
	_ = g.Wait()

	best := SearchResult{Family: family, Params: Params{}, MAE: math.Inf(1)}
	for i, res := range results {
		if res.Failed() {
			o.logger.Warn("grid search combination failed",
				"family", family.String(),
				"params", fmt.Sprint(combos[i]),
				"error", res.Err,
			)
			continue
		}
		best.Evaluated++
		if res.MAE < best.MAE {
			best.MAE = res.MAE
			best.Params = combos[i]
		}
		o.logger.Debug("grid search combination scored",
			"family", family.String(),
			"params", fmt.Sprint(combos[i]),
			"mae", res.MAE,
		)
	}
	return best, nil
}

// OptimizeAll grid searches every declared family in fixed order. A
// family-level failure records an empty result with +Inf MAE and never
// blocks the remaining families.
func (o *Optimizer) OptimizeAll(ctx context.Context, s *timeseries.Series, trainSize float64, horizon int) []SearchResult {
	out := make([]SearchResult, 0, len(families))
	for _, family := range families {
		res, err := o.Search(ctx, s, family, trainSize, horizon)
		if err != nil {
			o.logger.Error("grid search failed for family", "family", family.String(), "error", err)
			res = SearchResult{Family: family, Params: Params{}, MAE: math.Inf(1)}
		}
		out = append(out, res)
	}
	return out
}

// SelectBest returns the family result with the strictly lowest MAE, first
// wins on ties. The boolean is false only for an empty input.
func SelectBest(results []SearchResult) (SearchResult, bool) {
	if len(results) == 0 {
		return SearchResult{}, false
	}
	best := 0
	for i := 1; i < len(results); i++ {
		if results[i].MAE < results[best].MAE {
			best = i
		}
	}
	return results[best], true
}
