package core

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/user/vpn-watchdog/internal/config"
	"github.com/user/vpn-watchdog/internal/guard"
)

// schedulerGranularity is how often the scheduler wakes up to check which
// guards are due. Guard cadences come from configuration; this only bounds
// how quickly a due poll or an elapsed pause is noticed.
const schedulerGranularity = time.Second

// Monitor drives all enabled guards on their configured cadences, folds the
// results into one AggregateState, and handles pause/resume.
//
// Per guard the poll lifecycle is Idle -> Polling -> {Completed, TimedOut}.
// Guards may poll concurrently with each other, but a guard never has two
// polls in flight: a tick that fires while a poll is outstanding is skipped
// for that guard.
type Monitor struct {
	cfg guard.ConfigSource
	log *zap.Logger

	mu          sync.Mutex
	guards      []guard.Guard
	running     bool
	stopCh      chan struct{}
	inFlight    map[string]bool
	lastStart   map[string]time.Time
	results     map[string]guardRecord
	pausedUntil time.Time
	resumeTimer *time.Timer
	onUpdate    func(AggregateState)

	// deliverMu serializes publish: snapshot construction, the swap, and
	// the callback happen as one unit, so consumers see updates in snapshot
	// order even when several folds race.
	deliverMu sync.Mutex
	snapshot  atomic.Pointer[AggregateState]
}

// guardRecord tracks a guard's latest result plus the bookkeeping needed to
// escalate a persistent Unknown.
type guardRecord struct {
	result       guard.Result
	unknownSince time.Time
}

// NewMonitor creates a monitor polling the given guards.
func NewMonitor(cfg guard.ConfigSource, guards []guard.Guard, log *zap.Logger) *Monitor {
	if log == nil {
		log = zap.NewNop()
	}
	m := &Monitor{
		cfg:       cfg,
		log:       log,
		guards:    guards,
		stopCh:    make(chan struct{}),
		inFlight:  make(map[string]bool),
		lastStart: make(map[string]time.Time),
		results:   make(map[string]guardRecord),
	}
	initial := m.buildState(time.Now())
	m.snapshot.Store(&initial)
	return m
}

// SetOnUpdate sets a callback fired whenever the published state changes.
// The callback receives a private copy; invocations arrive one at a time in
// publish order. It must not call back into Pause or Resume.
func (m *Monitor) SetOnUpdate(fn func(AggregateState)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onUpdate = fn
}

// Start begins the polling loop.
func (m *Monitor) Start() {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return
	}
	m.running = true
	m.stopCh = make(chan struct{})
	m.mu.Unlock()

	go func() {
		defer func() {
			if r := recover(); r != nil {
				m.log.Error("monitor loop panicked", zap.Any("panic", r))
			}
		}()
		m.loop()
	}()
}

// Stop stops the polling loop. In-flight polls finish on their own; their
// results are still folded in but no new polls start.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		return
	}
	m.running = false
	if m.resumeTimer != nil {
		m.resumeTimer.Stop()
		m.resumeTimer = nil
	}
	close(m.stopCh)
}

// Snapshot returns the current aggregate state. The returned value is a
// copy; callers may retain it without locking.
func (m *Monitor) Snapshot() AggregateState {
	return m.snapshot.Load().clone()
}

// Pause suspends polling for the given duration. While paused the published
// overall status is the distinct paused indicator. Resume happens as soon
// as the duration elapses, not at the next natural interval boundary.
func (m *Monitor) Pause(d time.Duration) {
	m.mu.Lock()
	m.pausedUntil = time.Now().Add(d)
	if m.resumeTimer != nil {
		m.resumeTimer.Stop()
	}
	m.resumeTimer = time.AfterFunc(d, m.Resume)
	m.mu.Unlock()

	m.log.Info("monitoring paused", zap.Duration("duration", d))
	m.publish()
}

// Resume cancels an active pause and polls every due guard immediately.
func (m *Monitor) Resume() {
	m.mu.Lock()
	if m.pausedUntil.IsZero() {
		m.mu.Unlock()
		return
	}
	m.pausedUntil = time.Time{}
	if m.resumeTimer != nil {
		m.resumeTimer.Stop()
		m.resumeTimer = nil
	}
	// Forget poll history so every guard fires on the immediate poll below
	// instead of waiting out the remainder of its interval.
	m.lastStart = make(map[string]time.Time)
	running := m.running
	m.mu.Unlock()

	m.log.Info("monitoring resumed")
	m.publish()
	if running {
		m.pollDue(time.Now())
	}
}

// Paused reports whether monitoring is currently paused.
func (m *Monitor) Paused() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.pausedUntil.IsZero() && time.Now().Before(m.pausedUntil)
}

func (m *Monitor) loop() {
	ticker := time.NewTicker(schedulerGranularity)
	defer ticker.Stop()

	m.pollDue(time.Now())

	for {
		select {
		case <-m.stopCh:
			return
		case now := <-ticker.C:
			m.pollDue(now)
		}
	}
}

// pollDue launches a poll for every enabled guard whose interval elapsed
// and which has no poll in flight.
func (m *Monitor) pollDue(now time.Time) {
	cfg := m.cfg.Get()

	m.mu.Lock()
	if !m.pausedUntil.IsZero() && now.Before(m.pausedUntil) {
		m.mu.Unlock()
		return
	}

	for _, g := range m.guards {
		sched := scheduleFor(cfg, g.Name())
		if !sched.enabled {
			// A disabled guard is excluded from the aggregate entirely.
			delete(m.results, g.Name())
			continue
		}
		if m.inFlight[g.Name()] {
			continue // previous poll still outstanding, skip this tick
		}
		if last, ok := m.lastStart[g.Name()]; ok && now.Sub(last) < sched.interval {
			continue
		}

		m.inFlight[g.Name()] = true
		m.lastStart[g.Name()] = now
		go m.poll(g, sched.budget)
	}
	m.mu.Unlock()

	m.publish()
}

// poll runs a single guard check bounded by its time budget. A guard that
// overruns the budget is recorded as Unsafe/timeout and its late result, if
// any, is discarded.
func (m *Monitor) poll(g guard.Guard, budget time.Duration) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Error("guard poll panicked",
				zap.String("guard", g.Name()), zap.Any("panic", r))
			m.fold(guard.Result{
				Guard:      g.Name(),
				Status:     guard.StatusUnsafe,
				Reason:     "internal guard failure",
				ObservedAt: time.Now(),
			})
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), budget)
	defer cancel()

	resCh := make(chan guard.Result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				m.log.Error("guard check panicked",
					zap.String("guard", g.Name()), zap.Any("panic", r))
				resCh <- guard.Result{
					Guard:      g.Name(),
					Status:     guard.StatusUnsafe,
					Reason:     "internal guard failure",
					ObservedAt: time.Now(),
				}
			}
		}()
		resCh <- g.Check(ctx)
	}()

	var res guard.Result
	select {
	case res = <-resCh:
	case <-ctx.Done():
		res = guard.Result{
			Guard:      g.Name(),
			Status:     guard.StatusUnsafe,
			Reason:     "timeout",
			ObservedAt: time.Now(),
		}
	}

	m.fold(res)
}

// fold records a guard result, escalating a persistent Unknown to Unsafe.
func (m *Monitor) fold(res guard.Result) {
	cfg := m.cfg.Get()

	m.mu.Lock()
	rec := m.results[res.Guard]
	prev := rec.result

	if res.Status == guard.StatusUnknown {
		if rec.unknownSince.IsZero() {
			rec.unknownSince = res.ObservedAt
		}
		// Unknown is transient. Once it has persisted past one full poll
		// interval the fail-safe bias takes over.
		window := scheduleFor(cfg, res.Guard).interval
		if res.ObservedAt.Sub(rec.unknownSince) >= window {
			res.Status = guard.StatusUnsafe
			res.Reason = "probe unavailable: " + res.Reason
		}
	} else {
		rec.unknownSince = time.Time{}
	}

	rec.result = res
	m.results[res.Guard] = rec
	m.inFlight[res.Guard] = false
	m.mu.Unlock()

	if prev.Status != res.Status {
		m.log.Info("guard transition",
			zap.String("guard", res.Guard),
			zap.String("from", prev.Status.String()),
			zap.String("to", res.Status.String()),
			zap.String("reason", res.Reason))
	}

	m.publish()
}

// publish atomically swaps in a fresh snapshot and notifies the update
// callback when the visible state changed. Deliveries are serialized in
// snapshot order; the callback must not call back into Pause or Resume.
func (m *Monitor) publish() {
	m.deliverMu.Lock()
	defer m.deliverMu.Unlock()

	m.mu.Lock()
	state := m.buildState(time.Now())
	onUpdate := m.onUpdate
	old := m.snapshot.Load()
	m.snapshot.Store(&state)
	m.mu.Unlock()

	if onUpdate != nil && (old == nil || !old.equal(&state)) {
		onUpdate(state.clone())
	}
}

// buildState computes the aggregate. Callers hold m.mu.
func (m *Monitor) buildState(now time.Time) AggregateState {
	cfg := m.cfg.Get()

	state := AggregateState{
		PerGuard:   make(map[string]guard.Result, len(m.results)),
		Advisories: cfg.Advisories(),
		UpdatedAt:  now,
	}

	if !m.pausedUntil.IsZero() && now.Before(m.pausedUntil) {
		state.Overall = OverallPaused
		state.PausedUntil = m.pausedUntil
		for _, g := range m.guards {
			if rec, ok := m.results[g.Name()]; ok {
				state.PerGuard[g.Name()] = rec.result
			}
		}
		return state
	}

	anyUnsafe := false
	pending := false
	enabled := 0
	for _, g := range m.guards {
		if !scheduleFor(cfg, g.Name()).enabled {
			continue
		}
		enabled++
		rec, ok := m.results[g.Name()]
		if !ok {
			pending = true
			continue
		}
		state.PerGuard[g.Name()] = rec.result
		switch rec.result.Status {
		case guard.StatusUnsafe:
			anyUnsafe = true
		case guard.StatusUnknown:
			pending = true
		}
	}

	switch {
	case anyUnsafe:
		state.Overall = OverallUnsafe
	case enabled == 0 || pending:
		state.Overall = OverallInitializing
	default:
		state.Overall = OverallSafe
	}
	return state
}

// schedule is one guard's scheduling parameters for the current config.
type schedule struct {
	enabled  bool
	interval time.Duration
	budget   time.Duration
}

// scheduleFor maps a guard name to its configured cadence and time budget.
// The budget is the hard deadline for one poll; a guard exceeding it is
// recorded as timed out.
func scheduleFor(cfg *config.Config, name string) schedule {
	base := cfg.TickInterval()
	switch name {
	case guard.RoutingName:
		return schedule{
			enabled:  cfg.Routing.Enabled,
			interval: cfg.Routing.PollInterval(base),
			// one probe per family plus slack
			budget: 2*cfg.Routing.ProbeTimeout() + time.Second,
		}
	case guard.ConnectivityName:
		return schedule{
			enabled:  cfg.Connectivity.Enabled,
			interval: cfg.Connectivity.PollInterval(),
			// provider fetch plus a possible DynDNS resolution
			budget: cfg.Connectivity.RequestTimeout() + 5*time.Second,
		}
	case guard.DNSName:
		return schedule{
			enabled:  cfg.DNS.Enabled,
			interval: cfg.DNS.PollInterval(),
			budget:   cfg.DNS.ProbeTimeout() + 2*time.Second,
		}
	default:
		return schedule{enabled: true, interval: base, budget: base}
	}
}
