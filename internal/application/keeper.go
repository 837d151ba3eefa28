package application

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/bnema/boxtoplay-keeper/internal/domain"
	"github.com/bnema/boxtoplay-keeper/internal/logging"
	"github.com/bnema/boxtoplay-keeper/internal/metrics"
	"github.com/bnema/boxtoplay-keeper/internal/ports"
	"github.com/bnema/boxtoplay-keeper/internal/schedule"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

type KeeperState string

const (
	StateUninitialized KeeperState = "uninitialized"
	StateLoading       KeeperState = "loading"
	StateReady         KeeperState = "ready"
	StateProbing       KeeperState = "probing"
	StatePersisting    KeeperState = "persisting"
	StateShutdown      KeeperState = "shutdown"
)

type PersistTrigger string

const (
	TriggerRotation  PersistTrigger = "rotation"
	TriggerSafetyNet PersistTrigger = "safety_net"
	TriggerCommand   PersistTrigger = "command"
	TriggerReload    PersistTrigger = "reload"
)

const (
	DefaultProbeInterval = 5 * time.Minute
	DefaultSyncInterval  = 60 * time.Minute
	DefaultProbeTimeout  = 20 * time.Second
)

type KeeperOptions struct {
	ProbeInterval time.Duration
	SyncInterval  time.Duration
	ProbeTimeout  time.Duration
	// Pacing is the minimum delay between two probe launches in one cycle.
	Pacing time.Duration
	// MaxInFlight caps concurrent probes; zero means no cap.
	MaxInFlight int
}

func (o KeeperOptions) withDefaults() KeeperOptions {
	if o.ProbeInterval <= 0 {
		o.ProbeInterval = DefaultProbeInterval
	}
	if o.SyncInterval <= 0 {
		o.SyncInterval = DefaultSyncInterval
	}
	if o.ProbeTimeout <= 0 {
		o.ProbeTimeout = DefaultProbeTimeout
	}
	return o
}

// CycleReport describes one probe cycle.
type CycleReport struct {
	ID               string
	StartedAt        time.Time
	FinishedAt       time.Time
	Skipped          bool
	Outcomes         []domain.ProbeOutcome
	Rotated          int
	Dead             int
	Failed           int
	PersistTriggered bool
	PersistErr       error
}

// CycleProgress is reported as probes of one cycle finish.
type CycleProgress struct {
	CycleID string
	Done    int
	Total   int
}

type Keeper struct {
	cache  *StateCache
	prober ports.Prober
	events ports.EventPublisher
	clock  ports.Clock
	log    logging.Logger
	opts   KeeperOptions

	// cycleMu allows one mutation pass (probe cycle or reload) at a time.
	cycleMu sync.Mutex

	mu         sync.Mutex
	state      KeeperState
	probing    int
	persisting int
	health     map[int]domain.AccountHealth
	lastCycle  *CycleReport
	loadErr    error
}

func NewKeeper(cache *StateCache, prober ports.Prober, events ports.EventPublisher, clock ports.Clock, log logging.Logger, opts KeeperOptions) *Keeper {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if log == nil {
		log = logging.NewNop()
	}

	return &Keeper{
		cache:  cache,
		prober: prober,
		events: events,
		clock:  clock,
		log:    log,
		opts:   opts.withDefaults(),
		state:  StateUninitialized,
		health: map[int]domain.AccountHealth{},
	}
}

// Start performs the initial load. A failed load leaves the keeper Ready with
// no document so the liveness surface stays up; probing is skipped until
// Reload succeeds. The error is returned so the caller can choose to abort.
func (k *Keeper) Start(ctx context.Context) error {
	k.setState(StateLoading)

	err := k.cache.Load(ctx)

	k.mu.Lock()
	k.loadErr = err
	k.mu.Unlock()
	k.setState(StateReady)

	if err != nil {
		k.log.Error(ctx, "initial document load failed, running degraded", "error", err)
		return err
	}

	k.publish(ctx, domain.Event{Kind: domain.EventDocumentLoaded, AccountIndex: -1, Detail: k.cache.Name()})
	return nil
}

// Run drives the probe cycle and the safety-net sync until ctx is done.
func (k *Keeper) Run(ctx context.Context) error {
	defer k.setState(StateShutdown)

	return schedule.Run(ctx,
		schedule.Task{
			Name:      "probe",
			Interval:  k.opts.ProbeInterval,
			Immediate: true,
			Run: func(ctx context.Context) {
				k.RefreshCycle(ctx)
			},
		},
		schedule.Task{
			Name:     "safety-net-sync",
			Interval: k.opts.SyncInterval,
			Run: func(ctx context.Context) {
				_, _ = k.SafetyNetSync(ctx)
			},
		},
	)
}

// Reload replaces the in-memory document from the store. It waits for any
// running cycle so indexes never shift under one. Rotated cookies the store
// has not accepted yet are written first; if that write fails the reload is
// refused so they are not lost.
func (k *Keeper) Reload(ctx context.Context) error {
	k.cycleMu.Lock()
	defer k.cycleMu.Unlock()

	if k.cache.Dirty() {
		if _, err := k.persist(ctx, TriggerReload); err != nil {
			k.log.Warn(ctx, "document reload refused, unsaved cookies", "error", err)
			return fmt.Errorf("%w: %w", domain.ErrUnsavedChanges, err)
		}
	}

	if err := k.cache.Load(ctx); err != nil {
		k.log.Error(ctx, "document reload failed", "error", err)
		return err
	}

	k.mu.Lock()
	k.loadErr = nil
	k.health = map[int]domain.AccountHealth{}
	k.mu.Unlock()
	metrics.DeadAccounts.Set(0)

	k.publish(ctx, domain.Event{Kind: domain.EventDocumentLoaded, AccountIndex: -1, Detail: k.cache.Name()})
	return nil
}

// RefreshCycle probes every account once, applies the outcomes and persists
// immediately if at least one cookie rotated.
func (k *Keeper) RefreshCycle(ctx context.Context) CycleReport {
	return k.RefreshCycleWithProgress(ctx, nil)
}

// RefreshCycleWithProgress is RefreshCycle calling progress once before the
// first probe and once per finished probe. Calls may come from several
// goroutines but never overlap.
func (k *Keeper) RefreshCycleWithProgress(ctx context.Context, progress func(CycleProgress)) CycleReport {
	k.cycleMu.Lock()
	defer k.cycleMu.Unlock()

	report := CycleReport{ID: uuid.NewString(), StartedAt: k.clock.Now()}
	log := k.log.With("cycle_id", report.ID)

	doc, loaded := k.cache.Snapshot()
	if !loaded {
		report.Skipped = true
		report.FinishedAt = k.clock.Now()
		log.Warn(ctx, "probe cycle skipped, no document loaded")
		k.recordCycle(report)
		return report
	}

	k.enterProbing()
	targets := make([]domain.ProbeTarget, 0, len(doc.Accounts))
	for i, account := range doc.Accounts {
		targets = append(targets, domain.ProbeTarget{Index: i, Account: account, ServerID: doc.TargetServerID(i)})
	}
	report.Outcomes = k.probeAll(ctx, targets, k.progressReporter(report.ID, len(targets), progress))
	k.leaveProbing()

	for _, outcome := range report.Outcomes {
		switch outcome.Kind {
		case domain.OutcomeDead:
			report.Dead++
		case domain.OutcomeFailed:
			report.Failed++
		}
	}
	report.Rotated = k.applyOutcomes(ctx, log, report.ID, report.Outcomes)

	if report.Rotated > 0 {
		report.PersistTriggered = true
		if _, err := k.persist(ctx, TriggerRotation); err != nil {
			report.PersistErr = err
		}
	}

	report.FinishedAt = k.clock.Now()
	log.Info(ctx, "probe cycle finished",
		"accounts", len(targets),
		"rotated", report.Rotated,
		"dead", report.Dead,
		"failed", report.Failed,
		"persisted", report.PersistTriggered && report.PersistErr == nil,
	)
	k.recordCycle(report)

	return report
}

// SafetyNetSync persists unconditionally, whether or not anything changed.
func (k *Keeper) SafetyNetSync(ctx context.Context) (time.Time, error) {
	if !k.cache.Loaded() {
		k.log.Debug(ctx, "safety-net sync skipped, no document loaded")
		return time.Time{}, domain.ErrDocumentNotLoaded
	}
	return k.persist(ctx, TriggerSafetyNet)
}

// ForceSync persists now on operator request.
func (k *Keeper) ForceSync(ctx context.Context) (time.Time, error) {
	return k.persist(ctx, TriggerCommand)
}

func (k *Keeper) State() KeeperState {
	k.mu.Lock()
	defer k.mu.Unlock()

	switch {
	case k.state != StateReady:
		return k.state
	case k.persisting > 0:
		return StatePersisting
	case k.probing > 0:
		return StateProbing
	default:
		return StateReady
	}
}

// LoadError is the error of the last failed load, nil once a load succeeds.
func (k *Keeper) LoadError() error {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.loadErr
}

func (k *Keeper) Health() []domain.AccountHealth {
	k.mu.Lock()
	defer k.mu.Unlock()

	out := make([]domain.AccountHealth, 0, len(k.health))
	for _, h := range k.health {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

func (k *Keeper) LastCycle() (CycleReport, bool) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.lastCycle == nil {
		return CycleReport{}, false
	}
	return *k.lastCycle, true
}

func (k *Keeper) Cache() *StateCache {
	return k.cache
}

func (k *Keeper) progressReporter(cycleID string, total int, progress func(CycleProgress)) func() {
	if progress == nil {
		return func() {}
	}

	var mu sync.Mutex
	done := 0
	progress(CycleProgress{CycleID: cycleID, Total: total})

	return func() {
		mu.Lock()
		defer mu.Unlock()
		done++
		progress(CycleProgress{CycleID: cycleID, Done: done, Total: total})
	}
}

func (k *Keeper) probeAll(ctx context.Context, targets []domain.ProbeTarget, probed func()) []domain.ProbeOutcome {
	outcomes := make([]domain.ProbeOutcome, len(targets))

	var g errgroup.Group
	if k.opts.MaxInFlight > 0 {
		g.SetLimit(k.opts.MaxInFlight)
	}

	var pacer *rate.Limiter
	if k.opts.Pacing > 0 {
		pacer = rate.NewLimiter(rate.Every(k.opts.Pacing), 1)
	}

	for i, target := range targets {
		if pacer != nil {
			if err := pacer.Wait(ctx); err != nil {
				for j := i; j < len(targets); j++ {
					outcomes[j] = k.stamp(domain.Failed(0, fmt.Errorf("probe not started: %w", err)), targets[j], 0)
				}
				break
			}
		}

		g.Go(func() error {
			outcomes[i] = k.probeOne(ctx, target)
			probed()
			return nil
		})
	}

	_ = g.Wait()
	return outcomes
}

// probeOne bounds a probe by the probe timeout even if the prober ignores
// its context.
func (k *Keeper) probeOne(ctx context.Context, target domain.ProbeTarget) domain.ProbeOutcome {
	probeCtx, cancel := context.WithTimeout(ctx, k.opts.ProbeTimeout)
	defer cancel()

	started := time.Now()
	result := make(chan domain.ProbeOutcome, 1)
	go func() {
		result <- k.prober.Probe(probeCtx, target)
	}()

	var outcome domain.ProbeOutcome
	select {
	case outcome = <-result:
	case <-probeCtx.Done():
		outcome = domain.Failed(0, fmt.Errorf("probe timed out after %s: %w", k.opts.ProbeTimeout, probeCtx.Err()))
	}
	if outcome.Kind == "" {
		outcome = domain.Failed(outcome.StatusCode, errors.New("prober returned no outcome"))
	}

	elapsed := time.Since(started)
	metrics.ProbesTotal.WithLabelValues(string(outcome.Kind)).Inc()
	metrics.ProbeDuration.Observe(elapsed.Seconds())

	return k.stamp(outcome, target, elapsed)
}

func (k *Keeper) stamp(outcome domain.ProbeOutcome, target domain.ProbeTarget, elapsed time.Duration) domain.ProbeOutcome {
	outcome.Index = target.Index
	outcome.Email = target.Account.Email
	outcome.Duration = elapsed
	return outcome
}

// applyOutcomes is the single place probe results turn into state changes.
// It returns the number of cookies that actually changed.
func (k *Keeper) applyOutcomes(ctx context.Context, log logging.Logger, cycleID string, outcomes []domain.ProbeOutcome) int {
	now := k.clock.Now()
	changed := 0

	for _, outcome := range outcomes {
		wasDead := k.observe(outcome, now)
		accountLog := log.With("account", outcome.Index, "email", outcome.Email)

		switch outcome.Kind {
		case domain.OutcomeAliveUnchanged:
			accountLog.Debug(ctx, "session alive", "status", outcome.StatusCode)

		case domain.OutcomeAliveRotated:
			updated, err := k.cache.MutateAccountCookie(outcome.Index, outcome.CookieName, outcome.NewValue)
			if err != nil {
				accountLog.Error(ctx, "apply rotated cookie", "error", err)
				continue
			}
			if !updated {
				accountLog.Debug(ctx, "rotated cookie already current", "cookie", outcome.CookieName)
				continue
			}
			changed++
			accountLog.Info(ctx, "session cookie rotated",
				"cookie", outcome.CookieName,
				"fingerprint", logging.Fingerprint(outcome.NewValue),
			)
			k.publish(ctx, domain.Event{
				Kind:         domain.EventSessionRotated,
				AccountIndex: outcome.Index,
				Email:        outcome.Email,
				Detail:       outcome.CookieName,
				CycleID:      cycleID,
			})

		case domain.OutcomeDead:
			accountLog.Error(ctx, "session dead, a new cookie must be supplied",
				"location", outcome.Location,
				"status", outcome.StatusCode,
			)
			if !wasDead {
				k.publish(ctx, domain.Event{
					Kind:         domain.EventSessionDead,
					AccountIndex: outcome.Index,
					Email:        outcome.Email,
					Detail:       outcome.Location,
					CycleID:      cycleID,
				})
			}

		case domain.OutcomeFailed:
			accountLog.Warn(ctx, "probe failed", "error", outcome.Error(), "status", outcome.StatusCode)
		}
	}

	return changed
}

// observe records the outcome and reports whether the account was already dead.
func (k *Keeper) observe(outcome domain.ProbeOutcome, at time.Time) bool {
	k.mu.Lock()
	defer k.mu.Unlock()

	previous := k.health[outcome.Index]
	k.health[outcome.Index] = previous.Observe(outcome, at)

	dead := 0
	for _, h := range k.health {
		if h.Dead() {
			dead++
		}
	}
	metrics.DeadAccounts.Set(float64(dead))

	return previous.Dead()
}

func (k *Keeper) persist(ctx context.Context, trigger PersistTrigger) (time.Time, error) {
	k.mu.Lock()
	k.persisting++
	k.mu.Unlock()
	defer func() {
		k.mu.Lock()
		k.persisting--
		k.mu.Unlock()
	}()

	syncAt, err := k.cache.Save(ctx)
	if err != nil {
		metrics.PersistTotal.WithLabelValues(string(trigger), "error").Inc()
		k.log.Error(ctx, "persist document failed", "trigger", trigger, "error", err)
		return time.Time{}, err
	}

	metrics.PersistTotal.WithLabelValues(string(trigger), "ok").Inc()
	k.log.Info(ctx, "document persisted", "trigger", trigger, "last_sync_time", syncAt)
	k.publish(ctx, domain.Event{Kind: domain.EventDocumentPersisted, AccountIndex: -1, Detail: string(trigger)})

	return syncAt, nil
}

func (k *Keeper) publish(ctx context.Context, event domain.Event) {
	if k.events == nil {
		return
	}
	if event.At.IsZero() {
		event.At = k.clock.Now()
	}
	if err := k.events.Publish(ctx, event); err != nil {
		k.log.Warn(ctx, "publish event", "kind", event.Kind, "error", err)
	}
}

func (k *Keeper) setState(state KeeperState) {
	k.mu.Lock()
	k.state = state
	k.mu.Unlock()
}

func (k *Keeper) enterProbing() {
	k.mu.Lock()
	k.probing++
	k.mu.Unlock()
}

func (k *Keeper) leaveProbing() {
	k.mu.Lock()
	k.probing--
	k.mu.Unlock()
}

func (k *Keeper) recordCycle(report CycleReport) {
	k.mu.Lock()
	k.lastCycle = &report
	k.mu.Unlock()
}
