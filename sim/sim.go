// Package sim replays an address trace through OrderedCache instances and
// collects per-run statistics.
package sim

import (
	"context"
	"fmt"
	"math"

	"github.com/VividCortex/ewma"
	"github.com/evanjt06/pagesim/cache"
	"go.uber.org/zap"
)

// Result holds the counters of one (policy, capacity) replay.
type Result struct {
	Policy    cache.Policy
	Capacity  int
	Misses    uint64
	Hits      uint64
	Evictions uint64
	// RecentFaultRate is a moving average of the miss indicator, weighted
	// towards the end of the trace. NaN for an empty trace.
	RecentFaultRate float64
}

// FaultRatio is misses / (misses + hits), or NaN when nothing was accessed.
func (r Result) FaultRatio() float64 {
	total := r.Misses + r.Hits
	if total == 0 {
		return math.NaN()
	}
	return float64(r.Misses) / float64(total)
}

type Runner struct {
	// Index names the KeyIndex implementation, see cache.NewIndex.
	Index string
	// TrendAge is the EWMA age in accesses for RecentFaultRate.
	TrendAge float64
	Logger   *zap.SugaredLogger
}

// Run replays records through a fresh cache of the given policy and capacity.
func (r *Runner) Run(records []Record, policy cache.Policy, capacity int) (Result, error) {
	logger := r.logger()

	index, err := cache.NewIndex(r.Index)
	if err != nil {
		return Result{}, err
	}
	c, err := cache.New(capacity, policy, cache.WithIndex(index), cache.WithLogger(logger))
	if err != nil {
		return Result{}, err
	}
	defer c.Clear()

	trend := ewma.NewMovingAverage(r.trendAge())
	res := Result{Policy: policy, Capacity: capacity}
	for _, rec := range records {
		if c.Access(rec.Addr) == cache.Hit {
			res.Hits++
			trend.Add(0)
		} else {
			res.Misses++
			trend.Add(1)
		}
	}
	res.Evictions = c.Stats().Evictions
	res.RecentFaultRate = recentFaultRate(trend, len(records), res.FaultRatio())

	logger.Infow("Finished run",
		"policy", policy,
		"capacity", capacity,
		"misses", res.Misses,
		"hits", res.Hits,
		"evictions", res.Evictions,
		"faultRatio", res.FaultRatio(),
	)
	return res, nil
}

// Sweep runs every policy against every capacity, in that nesting order.
// ctx is checked between runs only.
func (r *Runner) Sweep(ctx context.Context, records []Record, policies []cache.Policy, capacities []int) ([]Result, error) {
	results := make([]Result, 0, len(policies)*len(capacities))
	for _, policy := range policies {
		for _, capacity := range capacities {
			if err := ctx.Err(); err != nil {
				return results, err
			}
			res, err := r.Run(records, policy, capacity)
			if err != nil {
				return results, fmt.Errorf("run %s/%d: %w", policy, capacity, err)
			}
			results = append(results, res)
		}
	}
	return results, nil
}

// recentFaultRate reads the moving average. A variable-age average reads 0
// until it has seen more than ewma.WARMUP_SAMPLES values, so shorter runs
// report the plain ratio instead.
func recentFaultRate(trend ewma.MovingAverage, samples int, ratio float64) float64 {
	if samples == 0 {
		return math.NaN()
	}
	if _, ok := trend.(*ewma.VariableEWMA); ok && samples <= int(ewma.WARMUP_SAMPLES) {
		return ratio
	}
	return trend.Value()
}

func (r *Runner) logger() *zap.SugaredLogger {
	if r.Logger == nil {
		return zap.NewNop().Sugar()
	}
	return r.Logger
}

func (r *Runner) trendAge() float64 {
	if r.TrendAge < 1 {
		return ewma.AVG_METRIC_AGE
	}
	return r.TrendAge
}
