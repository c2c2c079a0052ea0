// Package engine is the sync orchestrator: it mediates the cache, the
// remote store and the change feed so consumers observe one reactive
// state object that is never blank, never blocks on the network, and
// always converges on the server-accepted value.
package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/HighTechnologyAI/ironbrain-sub001/internal/auth"
	"github.com/HighTechnologyAI/ironbrain-sub001/internal/cache"
	"github.com/HighTechnologyAI/ironbrain-sub001/internal/changefeed"
	"github.com/HighTechnologyAI/ironbrain-sub001/internal/model"
	"github.com/HighTechnologyAI/ironbrain-sub001/internal/remotestore"
	"github.com/HighTechnologyAI/ironbrain-sub001/internal/snapshot"
	"github.com/HighTechnologyAI/ironbrain-sub001/pkg/circuitbreaker"
	"github.com/HighTechnologyAI/ironbrain-sub001/pkg/logger"
	"github.com/HighTechnologyAI/ironbrain-sub001/pkg/metrics"
	"github.com/HighTechnologyAI/ironbrain-sub001/pkg/syncerr"
	"github.com/HighTechnologyAI/ironbrain-sub001/pkg/trace"
)

// ErrObjectiveMissing is surfaced when no objective exists remotely and
// the session is not authorized to seed one.
var ErrObjectiveMissing = errors.New("no active objective exists and session cannot seed")

// ErrNotBooted is returned by UpdateObjective before Boot has published
// an objective.
var ErrNotBooted = errors.New("engine holds no objective yet")

var errEmptyPatch = errors.New("patch sets no fields")

// Deps are the injected collaborators. All of them have in-memory fakes
// in the tests; none is reached through package-level state.
type Deps struct {
	Store    remotestore.Store
	Cache    cache.Cache
	Feed     changefeed.Subscriber
	Snapshot snapshot.Manager
	Logger   *zap.Logger
}

// Options tune the engine.
type Options struct {
	// Ref locates the shared objective. After boot the engine always
	// carries the stable id, whatever the ref started with.
	Ref model.ObjectiveRef

	// Session is the acting user; only sessions with seed permission
	// may run the seeding procedure.
	Session auth.Session

	// Seed is the aggregate created when none exists remotely. Nil
	// disables seeding.
	Seed *SeedSpec

	// RetryBaseDelay is multiplied by the attempt number between write
	// retries (base, 2x base). Zero defaults to one second.
	RetryBaseDelay time.Duration

	// MaxWriteAttempts bounds the write retry loop. Zero defaults to 3.
	MaxWriteAttempts int

	// AutoSaveInterval is the periodic flush cadence. Zero defaults to
	// 30 seconds.
	AutoSaveInterval time.Duration

	// Breaker optionally guards remote calls so a dead backend fails
	// fast instead of waiting out every timeout.
	Breaker *circuitbreaker.CircuitBreaker
}

// Engine is the orchestrator. Construct with New, start with Boot, stop
// with Close. All exported methods are safe for concurrent use.
type Engine struct {
	store remotestore.Store
	cache cache.Cache
	feed  changefeed.Subscriber
	snaps snapshot.Manager
	log   *zap.Logger

	session auth.Session
	seed    *SeedSpec
	breaker *circuitbreaker.CircuitBreaker

	retryBaseDelay   time.Duration
	maxWriteAttempts int
	autoSaveInterval time.Duration

	// sleep is swapped out by tests to avoid real backoff delays.
	sleep func(ctx context.Context, d time.Duration) error

	mu        sync.Mutex
	state     State
	ref       model.ObjectiveRef
	listeners map[int]func(State)
	nextSub   int

	// lastLocalEdit drives auto-save debouncing.
	lastLocalEdit time.Time

	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closeOnce sync.Once
}

func New(deps Deps, opts Options) *Engine {
	if opts.RetryBaseDelay == 0 {
		opts.RetryBaseDelay = time.Second
	}
	if opts.MaxWriteAttempts == 0 {
		opts.MaxWriteAttempts = 3
	}
	if opts.AutoSaveInterval == 0 {
		opts.AutoSaveInterval = 30 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Engine{
		store:            deps.Store,
		cache:            deps.Cache,
		feed:             deps.Feed,
		snaps:            deps.Snapshot,
		log:              deps.Logger,
		session:          opts.Session,
		seed:             opts.Seed,
		breaker:          opts.Breaker,
		retryBaseDelay:   opts.RetryBaseDelay,
		maxWriteAttempts: opts.MaxWriteAttempts,
		autoSaveInterval: opts.AutoSaveInterval,
		sleep:            sleepCtx,
		ref:              opts.Ref,
		state: State{
			Loading:    true,
			SyncStatus: SyncConnecting,
			SaveStatus: SaveSaved,
		},
		listeners: make(map[int]func(State)),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// State returns a copy of the current reactive state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.clone()
}

// Subscribe registers fn to run after every state transition. The
// returned function removes the subscription.
func (e *Engine) Subscribe(fn func(State)) func() {
	e.mu.Lock()
	id := e.nextSub
	e.nextSub++
	e.listeners[id] = fn
	e.mu.Unlock()

	return func() {
		e.mu.Lock()
		delete(e.listeners, id)
		e.mu.Unlock()
	}
}

// publish mutates state under the lock and notifies listeners with a
// copy after releasing it.
func (e *Engine) publish(mutate func(*State)) {
	e.mu.Lock()
	before := e.state.SaveStatus
	mutate(&e.state)
	if e.state.SaveStatus != before {
		metrics.SaveStatusTransitions.WithLabelValues(string(e.state.SaveStatus)).Inc()
	}
	snapshot := e.state.clone()
	fns := make([]func(State), 0, len(e.listeners))
	for _, fn := range e.listeners {
		fns = append(fns, fn)
	}
	e.mu.Unlock()

	for _, fn := range fns {
		fn(snapshot)
	}
}

// Boot runs the boot sequence and starts the feed pump and auto-save
// loop. It blocks until the authoritative state is resolved or the
// engine has degraded onto a cached copy.
func (e *Engine) Boot(ctx context.Context) error {
	start := time.Now()
	defer func() {
		metrics.BootDuration.Observe(time.Since(start).Seconds())
	}()

	if trace.FromContext(ctx) == "" {
		ctx = trace.WithContext(ctx, trace.New())
	}
	log := logger.WithTrace(ctx, e.log)

	hasLocal := e.recoverLocal(ctx, log)

	agg, err := e.resolveAuthoritative(ctx, log)
	if err != nil {
		if syncerr.IsRetryable(err) && hasLocal {
			// Degrade onto the local copy rather than erroring out.
			log.Warn("Remote fetch failed, staying on cached copy", zap.Error(err))
			e.publish(func(st *State) {
				st.Loading = false
				st.SyncStatus = SyncDisconnected
			})
			return nil
		}
		log.Error("Boot failed", zap.Error(err))
		e.publish(func(st *State) {
			st.Loading = false
			st.Err = err
			st.SyncStatus = SyncDisconnected
		})
		return err
	}

	e.mu.Lock()
	e.ref.ID = agg.Objective.ID
	e.mu.Unlock()

	e.cache.Put(ctx, agg)
	e.publish(func(st *State) {
		st.Loading = false
		st.Err = nil
		st.Objective = agg.Objective
		st.KeyResults = agg.KeyResults
		st.SyncStatus = SyncConnected
		st.SaveStatus = SaveSaved
	})

	if err := e.openFeed(); err != nil {
		// The record is live; a dead feed only means no push updates.
		log.Warn("Change feed unavailable", zap.Error(err))
		e.publish(func(st *State) {
			st.SyncStatus = SyncDisconnected
		})
	}

	e.wg.Add(1)
	go e.autoSaveLoop()

	log.Info("Engine booted",
		zap.String("objective_id", agg.Objective.ID.String()),
		zap.Duration("took", time.Since(start)),
	)
	return nil
}

// recoverLocal publishes whatever local copy exists so the consumer is
// never blank. The emergency snapshot takes precedence over the cache:
// it exists only when a previous run went down with unsaved edits.
func (e *Engine) recoverLocal(ctx context.Context, log *zap.Logger) bool {
	if agg, ok := e.snaps.Load(); ok {
		log.Warn("Adopting emergency snapshot from previous run")
		e.cache.Put(ctx, agg)
		e.snaps.Clear()
		e.publish(func(st *State) {
			st.Loading = false
			st.Objective = agg.Objective
			st.KeyResults = agg.KeyResults
			st.SaveStatus = SaveLocalOnly
		})
		return true
	}

	if agg, ok := e.cache.Get(ctx); ok {
		e.publish(func(st *State) {
			st.Loading = false
			st.Objective = agg.Objective
			st.KeyResults = agg.KeyResults
			st.SaveStatus = SaveLocalOnly
		})
		return true
	}
	return false
}

// resolveAuthoritative fetches the remote aggregate, seeding it first
// when absent and the session is allowed to.
func (e *Engine) resolveAuthoritative(ctx context.Context, log *zap.Logger) (*model.Aggregate, error) {
	e.mu.Lock()
	ref := e.ref
	e.mu.Unlock()

	obj, err := e.fetchObjective(ctx, ref)
	if err != nil {
		if !syncerr.IsNotFound(err) {
			return nil, err
		}
		return e.seedAggregate(ctx, log)
	}

	obj, err = e.normalizeRemote(ctx, log, obj)
	if err != nil {
		return nil, err
	}

	krs, err := e.fetchKeyResults(ctx, obj.ID)
	if err != nil {
		return nil, err
	}

	return &model.Aggregate{Objective: obj, KeyResults: krs}, nil
}

// normalizeRemote issues a corrective update when a denormalized field
// drifted from its canonical form (dates written by older clients).
func (e *Engine) normalizeRemote(ctx context.Context, log *zap.Logger, obj *model.Objective) (*model.Objective, error) {
	normalized, err := model.NormalizeDate(obj.TargetDate)
	if err != nil || normalized == obj.TargetDate {
		// An unparseable remote date is left alone; rewriting a value
		// we do not understand would destroy information.
		return obj, nil
	}

	log.Info("Correcting denormalized target date",
		zap.String("from", obj.TargetDate),
		zap.String("to", normalized),
	)
	patch := &model.ObjectivePatch{TargetDate: &normalized}
	fixed, err := e.updateRemote(ctx, obj.ID, patch)
	if err != nil {
		// Non-fatal: the record is still usable as-is.
		log.Warn("Corrective update failed", zap.Error(err))
		return obj, nil
	}
	return fixed, nil
}

// openFeed starts the change-feed pump (boot step 7).
func (e *Engine) openFeed() error {
	sub, err := e.feed.Subscribe(e.ctx)
	if err != nil {
		return err
	}

	e.wg.Add(1)
	go e.pumpFeed(sub)
	return nil
}

// pumpFeed applies feed events and connection status until the
// subscription closes. Remote always wins: a feed event reflects a
// write the server already accepted, so it overwrites any provisional
// local state unconditionally.
func (e *Engine) pumpFeed(sub *changefeed.Subscription) {
	defer e.wg.Done()

	events, status := sub.Events, sub.Status
	for events != nil || status != nil {
		select {
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			e.applyFeedEvent(ev)
		case st, ok := <-status:
			if !ok {
				status = nil
				continue
			}
			e.applyFeedStatus(st)
		}
	}
}

func (e *Engine) applyFeedEvent(ev changefeed.Event) {
	e.mu.Lock()
	ref := e.ref
	e.mu.Unlock()

	if ev.Table != "objectives" || !ref.Matches(ev.New) {
		metrics.CountFeedEvent(ev.Type, "filtered")
		return
	}

	metrics.CountFeedEvent(ev.Type, "applied")
	e.log.Debug("Applying change feed event",
		zap.String("event_id", ev.ID.String()),
		zap.String("event_type", ev.Type),
	)

	e.publish(func(st *State) {
		st.Objective = ev.New
		st.SaveStatus = SaveSaved
		st.Err = nil
	})

	e.mu.Lock()
	agg := e.state.aggregate().Clone()
	e.mu.Unlock()
	e.cache.Put(e.ctx, agg)
}

func (e *Engine) applyFeedStatus(st changefeed.Status) {
	var mapped SyncStatus
	switch st {
	case changefeed.StatusConnecting:
		mapped = SyncConnecting
	case changefeed.StatusConnected:
		mapped = SyncConnected
	case changefeed.StatusDisconnected:
		mapped = SyncDisconnected
	default:
		return
	}
	e.publish(func(s *State) {
		s.SyncStatus = mapped
	})
}

// Close tears the engine down: the feed is unsubscribed exactly once,
// the auto-save loop stops, and unsaved state is written to the
// emergency snapshot synchronously before returning.
func (e *Engine) Close() {
	e.closeOnce.Do(func() {
		e.cancel()
		e.feed.Unsubscribe()
		e.wg.Wait()

		e.mu.Lock()
		dirty := e.state.Objective != nil && e.state.SaveStatus != SaveSaved
		agg := e.state.aggregate().Clone()
		e.mu.Unlock()

		if dirty {
			if err := e.snaps.Save(agg); err != nil {
				e.log.Error("Failed to write emergency snapshot", zap.Error(err))
			}
		}
		e.log.Info("Engine closed", zap.Bool("snapshot_written", dirty))
	})
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
