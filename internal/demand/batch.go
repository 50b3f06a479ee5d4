package demand

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// Defaults applied to zero Options fields.
const (
	DefaultMaxMonitors    = 50
	DefaultMonitorTimeout = 10 * time.Second
	DefaultDetailLookback = 2 * time.Hour
)

// Options tune an Aggregator.
type Options struct {
	MaxMonitors    int
	MonitorTimeout time.Duration
	DetailLookback time.Duration
	CacheTTL       time.Duration
	CacheCapacity  int
	// Now overrides the clock, mainly for tests.
	Now func() time.Time
}

// Request is one batch call. Zero bucket or horizon values select the
// defaults.
type Request struct {
	Monitors      []MonitorSpec
	BucketMinutes int
	HorizonHours  int
}

// Result is one monitor's outcome. Err is set when the count failed, in
// which case Series is zero-filled.
type Result struct {
	Index    int
	Monitor  *Monitor
	Series   Series
	Summary  Summary
	Geometry *Geometry
	Err      error
}

// Response holds results in request order plus the failures among them.
type Response struct {
	GeneratedAt   time.Time
	BucketMinutes int
	HorizonHours  int
	Schedule      Schedule
	Results       []Result
	Errors        []MonitorError
}

// Aggregator evaluates batches of monitors concurrently.
type Aggregator struct {
	counter  *Counter
	geometry *GeometryResolver
	opts     Options
	cache    *ResponseCache
	group    singleflight.Group
	logger   *zap.SugaredLogger
}

// NewAggregator wires a counter and a geometry resolver. geometry may be
// nil, in which case no result carries geometry.
func NewAggregator(counter *Counter, geometry *GeometryResolver, opts Options, logger *zap.SugaredLogger) *Aggregator {
	if opts.MaxMonitors <= 0 {
		opts.MaxMonitors = DefaultMaxMonitors
	}
	if opts.MonitorTimeout <= 0 {
		opts.MonitorTimeout = DefaultMonitorTimeout
	}
	if opts.DetailLookback <= 0 {
		opts.DetailLookback = DefaultDetailLookback
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Aggregator{
		counter:  counter,
		geometry: geometry,
		opts:     opts,
		cache:    NewResponseCache(opts.CacheCapacity, opts.CacheTTL),
		logger:   logger,
	}
}

// MaxMonitors is the largest batch Run accepts.
func (a *Aggregator) MaxMonitors() int {
	return a.opts.MaxMonitors
}

// Run validates the whole request, then evaluates every monitor. Per-monitor
// failures are reported inside the response; the returned error is either a
// *ValidationError or the caller's context error.
func (a *Aggregator) Run(ctx context.Context, req Request) (*Response, error) {
	if req.BucketMinutes == 0 {
		req.BucketMinutes = DefaultBucketMinutes
	}
	if req.HorizonHours == 0 {
		req.HorizonHours = DefaultHorizonHours
	}
	if err := ValidateBounds(req.BucketMinutes, req.HorizonHours); err != nil {
		return nil, err
	}
	monitors, err := ParseMonitors(req.Monitors, a.opts.MaxMonitors)
	if err != nil {
		return nil, err
	}

	key := requestKey(monitors, req.BucketMinutes, req.HorizonHours)
	if resp, ok := a.cache.Get(key); ok {
		return resp, nil
	}

	ch := a.group.DoChan(key, func() (interface{}, error) {
		resp, err := a.evaluate(ctx, monitors, req.BucketMinutes, req.HorizonHours)
		if err != nil {
			return nil, err
		}
		if len(resp.Errors) == 0 {
			a.cache.Put(key, resp)
		}
		return resp, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			// The shared call belonged to a caller that went away.
			if errors.Is(res.Err, context.Canceled) || errors.Is(res.Err, context.DeadlineExceeded) {
				if ctx.Err() == nil {
					return a.evaluate(ctx, monitors, req.BucketMinutes, req.HorizonHours)
				}
				return nil, ctx.Err()
			}
			return nil, res.Err
		}
		return res.Val.(*Response), nil
	}
}

func (a *Aggregator) evaluate(ctx context.Context, monitors []*Monitor, bucketMinutes, horizonHours int) (*Response, error) {
	now := a.opts.Now()
	schedule := NewSchedule(now, bucketMinutes, horizonHours)

	resp := &Response{
		GeneratedAt:   now,
		BucketMinutes: bucketMinutes,
		HorizonHours:  horizonHours,
		Schedule:      schedule,
		Results:       make([]Result, len(monitors)),
	}

	var g errgroup.Group
	g.SetLimit(min(len(monitors), a.opts.MaxMonitors))
	for i, m := range monitors {
		i, m := i, m
		g.Go(func() error {
			resp.Results[i] = a.evaluateOne(ctx, i, m, schedule)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for _, r := range resp.Results {
		if r.Err != nil {
			resp.Errors = append(resp.Errors, MonitorError{
				Index:     r.Index,
				MonitorID: r.Monitor.Key(),
				Message:   r.Err.Error(),
			})
		}
	}
	return resp, nil
}

func (a *Aggregator) evaluateOne(ctx context.Context, index int, m *Monitor, schedule Schedule) Result {
	mctx, cancel := context.WithTimeout(ctx, a.opts.MonitorTimeout)
	defer cancel()

	result := Result{Index: index, Monitor: m}

	series, err := a.counter.Count(mctx, m, schedule)
	if err != nil {
		if errors.Is(mctx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			err = fmt.Errorf("monitor %s timed out after %s", m.Key(), a.opts.MonitorTimeout)
		}
		a.logger.Warnw("monitor evaluation failed", "index", index, "monitor", m.Key(), "error", err)
		result.Err = err
		series = Series{Counts: make([]int, schedule.Len())}
	}
	result.Series = series
	result.Summary = Summarize(series)

	if a.geometry != nil && mctx.Err() == nil {
		result.Geometry = a.geometry.Resolve(mctx, m)
	}
	return result
}

// Details validates spec and lists the flights it captures over the next
// ahead duration.
func (a *Aggregator) Details(ctx context.Context, spec MonitorSpec, ahead time.Duration) (*Monitor, []FlightDetail, error) {
	m, err := ParseMonitor(spec)
	if err != nil {
		return nil, nil, &ValidationError{Index: -1, Reason: err.Error()}
	}

	mctx, cancel := context.WithTimeout(ctx, a.opts.MonitorTimeout)
	defer cancel()

	details, err := a.counter.Details(mctx, m, a.opts.Now(), ahead, a.opts.DetailLookback)
	if err != nil {
		return m, nil, err
	}
	return m, details, nil
}
