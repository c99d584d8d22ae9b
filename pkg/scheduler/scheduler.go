// Package scheduler drives the production engine on a fixed period.
//
// A cycle captures one timestamp, lists every farm and ticks each of them.
// Cycles never overlap: the loop sleeps only after a cycle has finished and
// manual triggers that arrive while a cycle is running share its result.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/barncase/barn/pkg/cache"
	ledgersvc "github.com/barncase/barn/pkg/service/ledger"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// ErrAlreadyRunning is returned by Start when the loop is already active.
var ErrAlreadyRunning = errors.New("scheduler already running")

// Ticker advances one farm to now.
type Ticker interface {
	Tick(ctx context.Context, farmID uuid.UUID, now time.Time) (int, error)
}

// FarmLister enumerates the farms to tick.
type FarmLister interface {
	ListFarmIDs(ctx context.Context) ([]uuid.UUID, error)
}

// Reconciler audits balances against the ledger.
type Reconciler interface {
	ReconcileAll(ctx context.Context, repair bool) (*ledgersvc.Report, error)
}

// CycleResult summarises one pass over all farms.
type CycleResult struct {
	At       time.Time     `json:"at"`
	Farms    int           `json:"farms"`
	Created  int           `json:"created"`
	Failed   int           `json:"failed"`
	Duration time.Duration `json:"duration"`
}

type Option func(*Scheduler)

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// WithConcurrency ticks up to n farms at once. Values below 2 mean sequential.
func WithConcurrency(n int) Option {
	return func(s *Scheduler) { s.concurrency = n }
}

// WithReconciler runs a detect-only reconcile after every nth cycle.
func WithReconciler(r Reconciler, every int) Option {
	return func(s *Scheduler) {
		s.reconciler = r
		s.reconcileEvery = every
	}
}

// WithStatusStore publishes every cycle result to c so other processes can
// read it back with LastCycle.
func WithStatusStore(c cache.Cache) Option {
	return func(s *Scheduler) { s.status = c }
}

// LastCycleKey is where the latest cycle result is stored.
const LastCycleKey = "scheduler:last_cycle"

type Scheduler struct {
	ticker   Ticker
	farms    FarmLister
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time

	concurrency    int
	reconciler     Reconciler
	reconcileEvery int
	status         cache.Cache

	group  singleflight.Group
	cycles atomic.Int64

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func New(ticker Ticker, farms FarmLister, interval time.Duration, logger *slog.Logger, opts ...Option) *Scheduler {
	s := &Scheduler{
		ticker:      ticker,
		farms:       farms,
		interval:    interval,
		logger:      logger.With("component", "scheduler"),
		now:         func() time.Time { return time.Now().UTC() },
		concurrency: 1,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start runs a cycle immediately and then one per interval until ctx is
// cancelled or Stop is called. It returns without waiting.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return ErrAlreadyRunning
	}
	if s.interval <= 0 {
		return fmt.Errorf("scheduler interval must be positive, got %s", s.interval)
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.loop(ctx, s.done)
	s.logger.Info("Scheduler started", "interval", s.interval, "concurrency", s.concurrency)
	return nil
}

// Stop signals the loop and waits for an in-flight cycle to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
	s.logger.Info("Scheduler stopped")
}

func (s *Scheduler) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
		if _, err := s.RunCycle(ctx); err != nil {
			s.logger.Error("Cycle failed", "error", err)
		}
		timer.Reset(s.interval)
	}
}

// RunCycle ticks every farm once. A call made while a cycle is running
// waits for it and returns its result. The cycle itself ignores
// cancellation of ctx so no farm is left half ticked.
func (s *Scheduler) RunCycle(ctx context.Context) (*CycleResult, error) {
	v, err, _ := s.group.Do("cycle", func() (any, error) {
		return s.runCycle(context.WithoutCancel(ctx))
	})
	if err != nil {
		return nil, err
	}
	return v.(*CycleResult), nil
}

func (s *Scheduler) runCycle(ctx context.Context) (*CycleResult, error) {
	start := time.Now()
	now := s.now()
	log := s.logger.With("context", "RunCycle", "now", now)
	log.Debug("RunCycle called")

	ids, err := s.farms.ListFarmIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list farms: %w", err)
	}

	result := &CycleResult{At: now, Farms: len(ids)}
	var mu sync.Mutex
	tickOne := func(id uuid.UUID) {
		n, err := s.tick(ctx, id, now)
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			result.Failed++
			log.Error("Tick failed", "farmID", id, "error", err)
			return
		}
		result.Created += n
	}

	if s.concurrency < 2 {
		for _, id := range ids {
			tickOne(id)
		}
	} else {
		var g errgroup.Group
		g.SetLimit(s.concurrency)
		for _, id := range ids {
			g.Go(func() error {
				tickOne(id)
				return nil
			})
		}
		_ = g.Wait()
	}
	result.Duration = time.Since(start)

	if n := s.cycles.Add(1); s.reconciler != nil && s.reconcileEvery > 0 && n%int64(s.reconcileEvery) == 0 {
		s.reconcile(ctx)
	}

	if s.status != nil {
		if err := s.status.Set(ctx, LastCycleKey, result, 0); err != nil {
			log.Warn("Failed to store cycle result", "error", err)
		}
	}

	log.Info("RunCycle successful",
		"farms", result.Farms,
		"created", result.Created,
		"failed", result.Failed,
		"duration", result.Duration)
	return result, nil
}

// LastCycle returns the most recent stored result. ok is false when no
// status store is configured or no cycle has completed yet.
func (s *Scheduler) LastCycle(ctx context.Context) (res *CycleResult, ok bool, err error) {
	if s.status == nil {
		return nil, false, nil
	}
	res = &CycleResult{}
	ok, err = s.status.Get(ctx, LastCycleKey, res)
	if err != nil || !ok {
		return nil, false, err
	}
	return res, true, nil
}

func (s *Scheduler) tick(ctx context.Context, id uuid.UUID, now time.Time) (n int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tick panicked: %v", r)
		}
	}()
	return s.ticker.Tick(ctx, id, now)
}

func (s *Scheduler) reconcile(ctx context.Context) {
	report, err := s.reconciler.ReconcileAll(ctx, false)
	if err != nil {
		s.logger.Error("Reconcile failed", "error", err)
		return
	}
	if len(report.Drifts) > 0 {
		s.logger.Warn("Ledger drift detected", "users", len(report.Drifts), "checked", report.Checked)
	}
}
