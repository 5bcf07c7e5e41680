// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package session keeps one authoritative "current user" consistent between the
identity provider's event stream, explicit login/signup calls, and a persisted
cache.

# Architecture

The [Store] is the reconciler. It subscribes once to the provider, and for each
identity change decides whether a backend profile sync is needed:

  - Signed out: drop the user and the cache, unconditionally.
  - Same subject as the in-memory user: nothing to do (an explicit login or a
    token refresh already covered it).
  - Same subject as the cached user: restore from cache without a sync.
  - Anything else: sync, showing a loading state only when no user is rendered.

Network calls run outside the lock. Every sync result is checked against the
subject the store currently expects and against the sign-out epoch before it
is applied, so a slow response can never resurrect a session that has since
ended or changed hands.
*/
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/taibuivan/lexdesk/internal/identity"
	"github.com/taibuivan/lexdesk/internal/platform/apperr"
	"github.com/taibuivan/lexdesk/internal/profile"
)

// # Lifecycle Phases

// Phase is the reconciler's position in its state machine.
type Phase uint8

const (
	// PhaseCold means no cache and no identity event yet. Loading is true.
	PhaseCold Phase = iota
	// PhaseOptimistic means a cached user is trusted pending confirmation.
	PhaseOptimistic
	// PhaseSyncing means a profile sync is in flight.
	PhaseSyncing
	// PhaseReady means a confirmed user is set.
	PhaseReady
	// PhaseSignedOut means there is no user and nothing is pending.
	PhaseSignedOut
)

// String returns a lowercase phase name for logs.
func (p Phase) String() string {
	switch p {
	case PhaseCold:
		return "cold"
	case PhaseOptimistic:
		return "optimistic"
	case PhaseSyncing:
		return "syncing"
	case PhaseReady:
		return "ready"
	case PhaseSignedOut:
		return "signed_out"
	default:
		return fmt.Sprintf("phase(%d)", uint8(p))
	}
}

// State is a snapshot of the session as seen by consumers.
type State struct {
	User    *profile.UserProfile
	Loading bool
	Phase   Phase
}

// # Errors

var (
	// ErrDisposed is returned by calls made after [Store.Dispose].
	ErrDisposed = errors.New("session: store disposed")

	// ErrNoSession is returned when an operation needs a signed-in user.
	ErrNoSession = apperr.Unauthorized("You are not signed in")

	// ErrSuperseded is returned when a sign-out or another sign-in happened
	// while an explicit call was waiting for its sync.
	ErrSuperseded = apperr.Conflict("Your session changed while this request was in progress")
)

// # Metrics Hooks

// Sync outcomes and dedup rule labels reported to a [Recorder].
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"

	DedupMemory = "memory"
	DedupCache  = "cache"
)

// Recorder observes reconciliation decisions.
type Recorder interface {
	ObserveSync(outcome string, elapsed time.Duration)
	ObserveDedup(rule string)
	ObserveStale()
}

type nopRecorder struct{}

func (nopRecorder) ObserveSync(string, time.Duration) {}
func (nopRecorder) ObserveDedup(string)               {}
func (nopRecorder) ObserveStale()                     {}

// # Store

const defaultSyncTimeout = 10 * time.Second

// Options wires a [Store] to its collaborators.
type Options struct {
	Provider identity.Provider
	Profiles profile.SyncClient
	Cache    *Cache

	// SyncTimeout bounds each profile sync. A timeout counts as a failure.
	SyncTimeout time.Duration

	Logger   *slog.Logger
	Recorder Recorder
}

// Store is the session reconciler. Create it with [Create], attach it to the
// provider with [Store.Start] and release it with [Store.Dispose].
type Store struct {
	provider identity.Provider
	profiles profile.SyncClient
	cache    *Cache
	timeout  time.Duration
	logger   *slog.Logger
	recorder Recorder

	root    context.Context
	cancel  context.CancelFunc
	group   singleflight.Group
	workers sync.WaitGroup

	// dispatch serializes watcher notifications.
	dispatch sync.Mutex

	mu       sync.Mutex
	user     *profile.UserProfile
	token    string
	loading  bool
	phase    Phase
	target   string
	epoch    uint64
	inflight int
	idle     chan struct{}

	explicit    int
	deferred    *identity.Identity
	hasDeferred bool

	started      bool
	disposed     bool
	subscription identity.Subscription
	watchers     map[uint64]func(State)
	nextWatcher  uint64
}

// syncJob is one profile sync, tagged with the epoch it started in.
type syncJob struct {
	hints   profile.Hints
	epoch   uint64
	started time.Time
}

// Create builds a store and seeds it from the cache.
//
// A cached user makes the store start Optimistic with loading=false;
// otherwise it starts Cold with loading=true until the first identity event.
func Create(ctx context.Context, opts Options) (*Store, error) {
	if opts.Provider == nil || opts.Profiles == nil || opts.Cache == nil {
		return nil, errors.New("session: provider, profiles and cache are required")
	}

	timeout := opts.SyncTimeout
	if timeout <= 0 {
		timeout = defaultSyncTimeout
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	recorder := opts.Recorder
	if recorder == nil {
		recorder = nopRecorder{}
	}

	idle := make(chan struct{})
	close(idle)

	root, cancel := context.WithCancel(context.WithoutCancel(ctx))

	store := &Store{
		provider: opts.Provider,
		profiles: opts.Profiles,
		cache:    opts.Cache,
		timeout:  timeout,
		logger:   logger,
		recorder: recorder,
		root:     root,
		cancel:   cancel,
		loading:  true,
		phase:    PhaseCold,
		idle:     idle,
		watchers: map[uint64]func(State){},
	}

	if entry := opts.Cache.Load(ctx); entry != nil {
		store.user = entry.User
		store.token = entry.Token
		store.target = entry.User.SubjectID
		store.loading = false
		store.phase = PhaseOptimistic
	}

	return store, nil
}

// Start subscribes to the provider. Calling it again is a no-op.
//
// The provider delivers its current identity synchronously, so the first
// reconciliation has been decided when Start returns.
func (s *Store) Start() error {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return ErrDisposed
	}
	if s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = true
	s.mu.Unlock()

	subscription := s.provider.Subscribe(s.onIdentity)

	s.mu.Lock()
	s.subscription = subscription
	s.mu.Unlock()
	return nil
}

// Dispose unsubscribes, cancels background syncs and waits for them to settle.
func (s *Store) Dispose() {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return
	}
	s.disposed = true
	subscription := s.subscription
	s.mu.Unlock()

	if subscription != nil {
		subscription.Unsubscribe()
	}
	s.cancel()
	s.workers.Wait()
}

// State returns a snapshot. The user is a copy.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Token returns the credential of the current session, or "".
func (s *Store) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return ""
	}
	return s.token
}

// Wait blocks until no sync is in flight or ctx ends.
func (s *Store) Wait(ctx context.Context) error {
	s.mu.Lock()
	idle := s.idle
	s.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Watch registers fn for every state change and calls it once with the
// current state. fn must not call mutating Store methods synchronously.
func (s *Store) Watch(fn func(State)) identity.Subscription {
	s.dispatch.Lock()
	defer s.dispatch.Unlock()

	s.mu.Lock()
	id := s.nextWatcher
	s.nextWatcher++
	s.watchers[id] = fn
	state := s.snapshotLocked()
	s.mu.Unlock()

	fn(state)
	return &watch{store: s, id: id}
}

type watch struct {
	store *Store
	id    uint64
	once  sync.Once
}

func (w *watch) Unsubscribe() {
	w.once.Do(func() {
		w.store.mu.Lock()
		delete(w.store.watchers, w.id)
		w.store.mu.Unlock()
	})
}

// # Explicit Actions

// Login signs in with the provider and syncs the profile before returning.
//
// Provider and sync errors are returned unchanged. The provider's own event
// for the same subject is absorbed and never triggers a second sync.
func (s *Store) Login(ctx context.Context, email, password string) (user *profile.UserProfile, err error) {
	if err := s.beginExplicit(); err != nil {
		return nil, err
	}

	subject := ""
	defer func() { s.endExplicit(subject, err == nil) }()

	signedIn, err := s.provider.SignInWithPassword(ctx, email, password)
	if err != nil {
		return nil, err
	}
	subject = signedIn.SubjectID

	return s.adopt(ctx, hintsFrom(signedIn))
}

// Register creates a provider account and then upserts its profile.
func (s *Store) Register(ctx context.Context, name, email, password string) (user *profile.UserProfile, err error) {
	if err := s.beginExplicit(); err != nil {
		return nil, err
	}

	subject := ""
	defer func() { s.endExplicit(subject, err == nil) }()

	created, err := s.provider.CreateAccount(ctx, email, password, name)
	if err != nil {
		return nil, err
	}
	subject = created.SubjectID

	hints := hintsFrom(created)
	if hints.Name == "" {
		hints.Name = name
	}
	return s.adopt(ctx, hints)
}

// SignupOrSync upserts the profile described by hints and adopts it.
//
// The backend creates the profile on the first call for a subject and returns
// the existing one afterwards. Errors are returned unchanged; there is no retry.
func (s *Store) SignupOrSync(ctx context.Context, hints profile.Hints) (user *profile.UserProfile, err error) {
	if hints.SubjectID == "" {
		return nil, apperr.ValidationError("A subject identifier is required")
	}
	if err := s.beginExplicit(); err != nil {
		return nil, err
	}
	defer func() { s.endExplicit(hints.SubjectID, err == nil) }()

	if hints.Token == "" {
		s.mu.Lock()
		if s.user != nil && s.user.SubjectID == hints.SubjectID {
			hints.Token = s.token
		}
		s.mu.Unlock()
	}

	return s.adopt(ctx, hints)
}

// Logout signs out with the provider and always clears the session.
//
// The provider error, if any, is returned after the user and the cache have
// been dropped.
func (s *Store) Logout(ctx context.Context) error {
	providerErr := s.provider.SignOut(ctx)
	if providerErr != nil {
		s.logger.Warn("session_provider_signout_failed", slog.Any("error", providerErr))
	}

	s.mu.Lock()
	s.signOutLocked()
	s.mu.Unlock()
	s.notify()

	return providerErr
}

// UpdateLocalProfile merges patch into the in-memory user and the cache
// without contacting the backend.
func (s *Store) UpdateLocalProfile(ctx context.Context, patch profile.Patch) (*profile.UserProfile, error) {
	s.mu.Lock()
	if s.user == nil {
		s.mu.Unlock()
		return nil, ErrNoSession
	}

	s.user = s.user.Apply(patch)
	updated := s.user.Clone()
	err := s.cache.SaveUser(ctx, s.user)
	s.mu.Unlock()

	s.notify()
	return updated, err
}

// # Event Handling

// onIdentity is the provider listener.
func (s *Store) onIdentity(event *identity.Identity) {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return
	}

	// An explicit call owns the session until it settles; keep the latest event.
	if s.explicit > 0 {
		s.deferred = event.Clone()
		s.hasDeferred = true
		s.mu.Unlock()
		return
	}

	job := s.reconcileLocked(event)
	s.mu.Unlock()

	s.notify()
	if job != nil {
		s.runBackground(job)
	}
}

// reconcileLocked applies the event rules and returns a sync to run, if any.
func (s *Store) reconcileLocked(event *identity.Identity) *syncJob {
	if event == nil {
		s.signOutLocked()
		return nil
	}

	subject := event.SubjectID

	if s.user != nil && s.user.SubjectID == subject {
		s.recorder.ObserveDedup(DedupMemory)
		s.target = subject
		s.adoptTokenLocked(event.Token)
		s.loading = false
		s.phase = PhaseReady
		return nil
	}

	if s.user == nil {
		if entry := s.cache.Load(s.root); entry != nil && entry.User.SubjectID == subject {
			s.recorder.ObserveDedup(DedupCache)
			s.user = entry.User
			s.token = entry.Token
			s.target = subject
			s.adoptTokenLocked(event.Token)
			s.loading = false
			s.phase = PhaseReady
			s.logger.Info("session_restored_from_cache", slog.String("subject", subject))
			return nil
		}
	}

	return s.beginLocked(hintsFrom(event))
}

// adoptTokenLocked records a refreshed credential for the current subject.
func (s *Store) adoptTokenLocked(token string) {
	if token == "" || token == s.token {
		return
	}
	s.token = token
	if err := s.cache.SaveToken(s.root, token); err != nil {
		s.logger.Warn("session_cache_token_write_failed", slog.Any("error", err))
	}
}

// signOutLocked drops the session and invalidates every in-flight sync.
func (s *Store) signOutLocked() {
	s.epoch++
	s.user = nil
	s.token = ""
	s.target = ""
	s.deferred = nil
	s.hasDeferred = false
	s.loading = false
	s.phase = PhaseSignedOut

	if err := s.cache.Clear(s.root); err != nil {
		s.logger.Warn("session_cache_clear_failed", slog.Any("error", err))
	}
}

// # Sync Pipeline

// beginLocked registers a sync for hints and makes its subject the target.
func (s *Store) beginLocked(hints profile.Hints) *syncJob {
	s.target = hints.SubjectID
	if s.user == nil {
		s.loading = true
	}
	s.phase = PhaseSyncing

	if s.inflight == 0 {
		s.idle = make(chan struct{})
	}
	s.inflight++
	s.workers.Add(1)

	return &syncJob{hints: hints, epoch: s.epoch, started: time.Now()}
}

// runBackground performs an event-triggered sync.
func (s *Store) runBackground(job *syncJob) {
	go func() {
		synced, err := s.fetch(s.root, job.hints)
		_ = s.finish(job, synced, err)
	}()
}

// adopt runs a sync on behalf of an explicit call.
func (s *Store) adopt(ctx context.Context, hints profile.Hints) (*profile.UserProfile, error) {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return nil, ErrDisposed
	}
	job := s.beginLocked(hints)
	s.mu.Unlock()
	s.notify()

	synced, err := s.fetch(ctx, hints)
	if err := s.finish(job, synced, err); err != nil {
		return nil, err
	}
	return synced.Clone(), nil
}

// fetch calls the backend once per subject and role, however many callers
// are waiting for the same answer.
func (s *Store) fetch(ctx context.Context, hints profile.Hints) (*profile.UserProfile, error) {
	key := hints.SubjectID
	if hints.Role != nil {
		key += "|" + hints.Role.String()
	}

	result := s.group.DoChan(key, func() (any, error) {
		callCtx, cancel := context.WithTimeout(s.root, s.timeout)
		defer cancel()
		return s.profiles.Sync(callCtx, hints)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case outcome := <-result:
		if outcome.Err != nil {
			return nil, outcome.Err
		}
		synced, _ := outcome.Val.(*profile.UserProfile)
		if synced == nil {
			return nil, apperr.Upstream("The server returned an empty profile", nil)
		}
		return synced.Clone(), nil
	}
}

// finish applies a sync result if it is still wanted.
//
// It returns nil when a successful result was applied, the sync error on
// failure, and [ErrSuperseded] when the result arrived too late.
func (s *Store) finish(job *syncJob, synced *profile.UserProfile, syncErr error) error {
	subject := job.hints.SubjectID
	elapsed := time.Since(job.started)

	// The backend must answer for the requested subject.
	if syncErr == nil && synced.SubjectID != subject {
		syncErr = apperr.Upstream("The server returned a profile for another account", nil)
		s.logger.Warn("session_sync_subject_mismatch",
			slog.String("subject", subject),
			slog.String("returned", synced.SubjectID),
		)
	}

	s.mu.Lock()

	var result error
	switch {
	case job.epoch != s.epoch || subject != s.target:
		s.recorder.ObserveStale()
		s.logger.Info("session_sync_discarded", slog.String("subject", subject))
		result = ErrSuperseded
		if syncErr != nil {
			result = syncErr
		}

	case syncErr != nil:
		s.recorder.ObserveSync(OutcomeFailure, elapsed)
		s.logger.Warn("session_sync_failed", slog.String("subject", subject), slog.Any("error", syncErr))

		if s.user == nil {
			s.target = ""
			s.phase = PhaseSignedOut
			if err := s.cache.Clear(s.root); err != nil {
				s.logger.Warn("session_cache_clear_failed", slog.Any("error", err))
			}
		} else {
			s.target = s.user.SubjectID
			s.phase = PhaseReady
		}
		result = syncErr

	default:
		s.recorder.ObserveSync(OutcomeSuccess, elapsed)
		// The credential belongs to one subject; never carry it over to another.
		if job.hints.Token != "" || s.user == nil || s.user.SubjectID != synced.SubjectID {
			s.token = job.hints.Token
		}
		s.user = synced.Clone()
		s.phase = PhaseReady
		if err := s.cache.Save(s.root, s.user, s.token); err != nil {
			s.logger.Warn("session_cache_write_failed", slog.Any("error", err))
		}
		s.logger.Info("session_synced",
			slog.String("subject", subject),
			slog.String("role", s.user.Role.String()),
			slog.Duration("elapsed", elapsed),
		)
	}

	s.inflight--
	if s.inflight == 0 {
		s.loading = false
		close(s.idle)
	}
	s.workers.Done()
	s.mu.Unlock()

	s.notify()
	return result
}

// # Explicit Call Bookkeeping

func (s *Store) beginExplicit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return ErrDisposed
	}
	s.explicit++
	return nil
}

// endExplicit replays the last deferred event once no explicit call is left.
//
// An event for the subject of a failed explicit call is dropped; the caller
// has already been told about the failure.
func (s *Store) endExplicit(subject string, succeeded bool) {
	s.mu.Lock()
	s.explicit--

	var job *syncJob
	if s.explicit == 0 && s.hasDeferred && !s.disposed {
		event := s.deferred
		s.deferred = nil
		s.hasDeferred = false

		if event != nil && subject != "" && event.SubjectID == subject && !succeeded {
			s.logger.Info("session_event_absorbed", slog.String("subject", subject))
		} else {
			job = s.reconcileLocked(event)
		}
	}
	s.mu.Unlock()

	s.notify()
	if job != nil {
		s.runBackground(job)
	}
}

// # Helpers

func (s *Store) snapshotLocked() State {
	return State{User: s.user.Clone(), Loading: s.loading, Phase: s.phase}
}

// notify delivers the latest snapshot to every watcher.
func (s *Store) notify() {
	s.dispatch.Lock()
	defer s.dispatch.Unlock()

	s.mu.Lock()
	state := s.snapshotLocked()
	watchers := make([]func(State), 0, len(s.watchers))
	for _, fn := range s.watchers {
		watchers = append(watchers, fn)
	}
	s.mu.Unlock()

	for _, fn := range watchers {
		fn(state)
	}
}

func hintsFrom(signedIn *identity.Identity) profile.Hints {
	return profile.Hints{
		SubjectID: signedIn.SubjectID,
		Name:      signedIn.DisplayName,
		Email:     signedIn.Email,
		PhotoURL:  signedIn.PhotoURL,
		Token:     signedIn.Token,
	}
}
