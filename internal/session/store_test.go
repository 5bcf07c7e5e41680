// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package session_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/lexdesk/internal/identity"
	"github.com/taibuivan/lexdesk/internal/platform/apperr"
	"github.com/taibuivan/lexdesk/internal/platform/sec"
	"github.com/taibuivan/lexdesk/internal/profile"
	"github.com/taibuivan/lexdesk/internal/session"
	"github.com/taibuivan/lexdesk/pkg/pointer"
)

// # Fakes

// fakeProvider emits identity changes synchronously, like the real provider.
type fakeProvider struct {
	*identity.Emitter

	mu         sync.Mutex
	next       *identity.Identity
	signInErr  error
	signOutErr error
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{Emitter: identity.NewEmitter()}
}

func (f *fakeProvider) SignInWithPassword(_ context.Context, _, _ string) (*identity.Identity, error) {
	f.mu.Lock()
	next, err := f.next.Clone(), f.signInErr
	f.mu.Unlock()

	if err != nil {
		return nil, err
	}
	f.Emit(next)
	return next.Clone(), nil
}

func (f *fakeProvider) CreateAccount(ctx context.Context, email, password, _ string) (*identity.Identity, error) {
	return f.SignInWithPassword(ctx, email, password)
}

func (f *fakeProvider) SignOut(context.Context) error {
	f.mu.Lock()
	err := f.signOutErr
	f.mu.Unlock()

	f.Emit(nil)
	return err
}

func (f *fakeProvider) Refresh(context.Context) (*identity.Identity, error) {
	return f.Current(), nil
}

// fakeProfiles counts syncs and can hold them until released.
type fakeProfiles struct {
	mu    sync.Mutex
	calls int
	err   error
	gate  chan struct{}

	// answerAs replaces the subject of every returned profile when set.
	answerAs string
}

func (f *fakeProfiles) Sync(ctx context.Context, hints profile.Hints) (*profile.UserProfile, error) {
	f.mu.Lock()
	f.calls++
	gate, err, answerAs := f.gate, f.err, f.answerAs
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}

	role := sec.RoleAuthor
	if hints.Role != nil {
		role = *hints.Role
	}
	subjectID := hints.SubjectID
	if answerAs != "" {
		subjectID = answerAs
	}
	return &profile.UserProfile{
		ID:        "user-" + subjectID,
		SubjectID: subjectID,
		Name:      hints.Name,
		Email:     hints.Email,
		Role:      role,
	}, nil
}

func (f *fakeProfiles) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeProfiles) hold() chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gate = make(chan struct{})
	return f.gate
}

func (f *fakeProfiles) fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

// countingRecorder tallies reconciliation decisions.
type countingRecorder struct {
	mu      sync.Mutex
	syncs   map[string]int
	dedups  map[string]int
	discard int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{syncs: map[string]int{}, dedups: map[string]int{}}
}

func (r *countingRecorder) ObserveSync(outcome string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.syncs[outcome]++
}

func (r *countingRecorder) ObserveDedup(rule string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dedups[rule]++
}

func (r *countingRecorder) ObserveStale() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.discard++
}

func (r *countingRecorder) dedup(rule string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dedups[rule]
}

func (r *countingRecorder) stale() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.discard
}

// # Harness

type harness struct {
	provider *fakeProvider
	profiles *fakeProfiles
	recorder *countingRecorder
	cache    *session.Cache
	timeout  time.Duration
}

func newHarness() *harness {
	kv := session.NewMemoryKV(0)
	return &harness{
		provider: newFakeProvider(),
		profiles: &fakeProfiles{},
		recorder: newCountingRecorder(),
		cache:    session.NewCache(kv, quietLogger()),
		timeout:  time.Second,
	}
}

func (h *harness) store(t *testing.T) *session.Store {
	t.Helper()
	store, err := session.Create(context.Background(), session.Options{
		Provider:    h.provider,
		Profiles:    h.profiles,
		Cache:       h.cache,
		SyncTimeout: h.timeout,
		Logger:      quietLogger(),
		Recorder:    h.recorder,
	})
	require.NoError(t, err)
	t.Cleanup(store.Dispose)
	return store
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func settle(t *testing.T, store *session.Store) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, store.Wait(ctx))
}

func subject(id string) *identity.Identity {
	return &identity.Identity{SubjectID: id, DisplayName: "Name " + id, Email: id + "@example.com", Token: "token-" + id}
}

func cachedUser(id string) *profile.UserProfile {
	return &profile.UserProfile{ID: "user-" + id, SubjectID: id, Name: "Cached " + id, Role: sec.RoleReader}
}

// # Lifecycle

/*
TestStore_ColdStart starts loading and resolves to signed out on the first event.
*/
func TestStore_ColdStart(t *testing.T) {
	h := newHarness()
	store := h.store(t)

	state := store.State()
	assert.True(t, state.Loading)
	assert.Equal(t, session.PhaseCold, state.Phase)
	assert.Nil(t, state.User)

	require.NoError(t, store.Start())
	require.NoError(t, store.Start())
	assert.Equal(t, 1, h.provider.Len())

	state = store.State()
	assert.False(t, state.Loading)
	assert.Equal(t, session.PhaseSignedOut, state.Phase)
}

/*
TestStore_OptimisticStart trusts the cache before any event arrives.
*/
func TestStore_OptimisticStart(t *testing.T) {
	h := newHarness()
	require.NoError(t, h.cache.Save(context.Background(), cachedUser("s-1"), "token-old"))

	store := h.store(t)
	state := store.State()
	assert.False(t, state.Loading)
	assert.Equal(t, session.PhaseOptimistic, state.Phase)
	require.NotNil(t, state.User)
	assert.Equal(t, "s-1", state.User.SubjectID)
	assert.Equal(t, "token-old", store.Token())
}

/*
TestStore_Dispose unsubscribes and rejects further explicit calls.
*/
func TestStore_Dispose(t *testing.T) {
	h := newHarness()
	store := h.store(t)
	require.NoError(t, store.Start())

	store.Dispose()
	store.Dispose()
	assert.Zero(t, h.provider.Len())

	_, err := store.Login(context.Background(), "a@example.com", "pw")
	assert.ErrorIs(t, err, session.ErrDisposed)
	assert.ErrorIs(t, store.Start(), session.ErrDisposed)

	h.provider.Emit(subject("s-1"))
	assert.Zero(t, h.profiles.Calls())
}

// # Event Rules

/*
TestStore_ReloadTrustsCache restores a cached subject without syncing.
*/
func TestStore_ReloadTrustsCache(t *testing.T) {
	h := newHarness()
	require.NoError(t, h.cache.Save(context.Background(), cachedUser("s-1"), "token-s-1"))
	h.provider.Emit(subject("s-1"))

	store := h.store(t)
	require.NoError(t, store.Start())
	settle(t, store)

	state := store.State()
	require.NotNil(t, state.User)
	assert.Equal(t, "Cached s-1", state.User.Name)
	assert.False(t, state.Loading)
	assert.Equal(t, session.PhaseReady, state.Phase)
	assert.Zero(t, h.profiles.Calls())
}

/*
TestStore_CacheRestore restores a user written to the cache after creation.
*/
func TestStore_CacheRestore(t *testing.T) {
	h := newHarness()
	store := h.store(t)
	require.NoError(t, store.Start())
	require.Nil(t, store.State().User)

	// Another process signs in and writes the shared cache.
	require.NoError(t, h.cache.Save(context.Background(), cachedUser("s-2"), "token-s-2"))
	h.provider.Emit(subject("s-2"))
	settle(t, store)

	state := store.State()
	require.NotNil(t, state.User)
	assert.Equal(t, "Cached s-2", state.User.Name)
	assert.Zero(t, h.profiles.Calls())
	assert.Equal(t, 1, h.recorder.dedup(session.DedupCache))
}

/*
TestStore_NewSubjectSyncs shows a loading state only while the first sync runs.
*/
func TestStore_NewSubjectSyncs(t *testing.T) {
	h := newHarness()
	store := h.store(t)
	require.NoError(t, store.Start())

	gate := h.profiles.hold()
	h.provider.Emit(subject("s-1"))

	state := store.State()
	assert.True(t, state.Loading)
	assert.Equal(t, session.PhaseSyncing, state.Phase)

	close(gate)
	settle(t, store)

	state = store.State()
	assert.False(t, state.Loading)
	assert.Equal(t, session.PhaseReady, state.Phase)
	require.NotNil(t, state.User)
	assert.Equal(t, "s-1", state.User.SubjectID)
	assert.Equal(t, "token-s-1", store.Token())

	entry := h.cache.Load(context.Background())
	require.NotNil(t, entry)
	assert.Equal(t, "s-1", entry.User.SubjectID)
	assert.Equal(t, "token-s-1", entry.Token)
}

/*
TestStore_SignOutEvent clears the user and the cache unconditionally.
*/
func TestStore_SignOutEvent(t *testing.T) {
	h := newHarness()
	require.NoError(t, h.cache.Save(context.Background(), cachedUser("s-1"), "t"))
	h.provider.Emit(subject("s-1"))

	store := h.store(t)
	require.NoError(t, store.Start())

	h.provider.Emit(nil)

	state := store.State()
	assert.Nil(t, state.User)
	assert.False(t, state.Loading)
	assert.Equal(t, session.PhaseSignedOut, state.Phase)
	assert.Nil(t, h.cache.Load(context.Background()))
	assert.Empty(t, store.Token())
}

/*
TestStore_TokenRefresh keeps the session and records the new credential.
*/
func TestStore_TokenRefresh(t *testing.T) {
	h := newHarness()
	require.NoError(t, h.cache.Save(context.Background(), cachedUser("s-1"), "token-s-1"))
	h.provider.Emit(subject("s-1"))

	store := h.store(t)
	require.NoError(t, store.Start())

	refreshed := subject("s-1")
	refreshed.Token = "token-2"
	h.provider.Emit(refreshed)

	assert.Zero(t, h.profiles.Calls())
	assert.Equal(t, "token-2", store.Token())
	assert.Equal(t, "token-2", h.cache.Load(context.Background()).Token)
}

// # Failures

/*
TestStore_SyncFailure_NoPriorUser forces re-authentication.
*/
func TestStore_SyncFailure_NoPriorUser(t *testing.T) {
	h := newHarness()
	store := h.store(t)
	require.NoError(t, store.Start())

	h.profiles.fail(apperr.Upstream("backend down", nil))
	h.provider.Emit(subject("s-1"))
	settle(t, store)

	state := store.State()
	assert.Nil(t, state.User)
	assert.False(t, state.Loading)
	assert.Equal(t, session.PhaseSignedOut, state.Phase)
	assert.Nil(t, h.cache.Load(context.Background()))
}

/*
TestStore_SyncFailure_KeepsPriorUser never spins or logs out an authenticated UI.
*/
func TestStore_SyncFailure_KeepsPriorUser(t *testing.T) {
	h := newHarness()
	require.NoError(t, h.cache.Save(context.Background(), cachedUser("s-1"), "t"))
	h.provider.Emit(subject("s-1"))

	store := h.store(t)
	require.NoError(t, store.Start())

	var mu sync.Mutex
	sawLoading := false
	watch := store.Watch(func(state session.State) {
		mu.Lock()
		defer mu.Unlock()
		sawLoading = sawLoading || state.Loading
	})
	defer watch.Unsubscribe()

	h.profiles.fail(errors.New("connection reset"))
	h.provider.Emit(subject("s-2"))
	settle(t, store)

	state := store.State()
	require.NotNil(t, state.User)
	assert.Equal(t, "s-1", state.User.SubjectID)
	assert.False(t, state.Loading)
	assert.Equal(t, session.PhaseReady, state.Phase)
	assert.NotNil(t, h.cache.Load(context.Background()))

	mu.Lock()
	defer mu.Unlock()
	assert.False(t, sawLoading)
}

/*
TestStore_SyncTimeout turns a hung backend into a failed sync.
*/
func TestStore_SyncTimeout(t *testing.T) {
	h := newHarness()
	h.timeout = 20 * time.Millisecond
	store := h.store(t)
	require.NoError(t, store.Start())

	h.profiles.hold()
	h.provider.Emit(subject("s-1"))
	settle(t, store)

	state := store.State()
	assert.Nil(t, state.User)
	assert.False(t, state.Loading)
}

/*
TestStore_LoadingNeverSticks settles loading for mixed outcomes.
*/
func TestStore_LoadingNeverSticks(t *testing.T) {
	tests := []struct {
		name     string
		failWith error
		subjects []string
	}{
		{"single success", nil, []string{"a"}},
		{"single failure", errors.New("boom"), []string{"a"}},
		{"overlapping successes", nil, []string{"a", "b", "c"}},
		{"overlapping failures", apperr.Timeout("slow", nil), []string{"a", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness()
			store := h.store(t)
			require.NoError(t, store.Start())

			gate := h.profiles.hold()
			h.profiles.fail(tt.failWith)
			for _, id := range tt.subjects {
				h.provider.Emit(subject(id))
			}
			assert.True(t, store.State().Loading)

			close(gate)
			settle(t, store)
			assert.False(t, store.State().Loading)
		})
	}
}

/*
TestStore_StaleResponseDiscarded ignores a sync that resolves after sign-out.
*/
func TestStore_StaleResponseDiscarded(t *testing.T) {
	h := newHarness()
	store := h.store(t)
	require.NoError(t, store.Start())

	gate := h.profiles.hold()
	h.provider.Emit(subject("s-1"))
	h.provider.Emit(nil)

	close(gate)
	settle(t, store)

	state := store.State()
	assert.Nil(t, state.User)
	assert.False(t, state.Loading)
	assert.Nil(t, h.cache.Load(context.Background()))
	assert.Equal(t, 1, h.recorder.stale())
}

/*
TestStore_StaleResponseAfterSubjectChange keeps only the newest subject.
*/
func TestStore_StaleResponseAfterSubjectChange(t *testing.T) {
	h := newHarness()
	store := h.store(t)
	require.NoError(t, store.Start())

	gate := h.profiles.hold()
	h.provider.Emit(subject("s-1"))
	h.provider.Emit(subject("s-2"))

	close(gate)
	settle(t, store)

	state := store.State()
	require.NotNil(t, state.User)
	assert.Equal(t, "s-2", state.User.SubjectID)
	assert.Equal(t, 1, h.recorder.stale())
}

// # Explicit Actions

/*
TestStore_Login_NoDoubleSync syncs once for the login and its provider events.
*/
func TestStore_Login_NoDoubleSync(t *testing.T) {
	h := newHarness()
	h.provider.next = subject("s-1")
	store := h.store(t)
	require.NoError(t, store.Start())

	user, err := store.Login(context.Background(), "s-1@example.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, "s-1", user.SubjectID)
	assert.Equal(t, 1, h.profiles.Calls())

	h.provider.Emit(subject("s-1"))
	settle(t, store)

	assert.Equal(t, 1, h.profiles.Calls())
	assert.Equal(t, 2, h.recorder.dedup(session.DedupMemory))

	state := store.State()
	assert.False(t, state.Loading)
	assert.Equal(t, session.PhaseReady, state.Phase)
	assert.Equal(t, "s-1", h.cache.Load(context.Background()).User.SubjectID)
}

/*
TestStore_Login_ProviderError returns the provider failure unchanged.
*/
func TestStore_Login_ProviderError(t *testing.T) {
	h := newHarness()
	providerErr := &identity.ProviderError{Code: identity.CodeInvalidCredential}
	h.provider.signInErr = providerErr
	store := h.store(t)
	require.NoError(t, store.Start())

	_, err := store.Login(context.Background(), "a@example.com", "wrong")
	assert.Same(t, providerErr, err)
	assert.Zero(t, h.profiles.Calls())
	assert.False(t, store.State().Loading)
}

/*
TestStore_Login_SyncError reports the sync failure and does not retry it.
*/
func TestStore_Login_SyncError(t *testing.T) {
	h := newHarness()
	h.provider.next = subject("s-1")
	syncErr := apperr.ValidationError("Email is invalid")
	h.profiles.fail(syncErr)
	store := h.store(t)
	require.NoError(t, store.Start())

	_, err := store.Login(context.Background(), "s-1@example.com", "pw")
	assert.ErrorIs(t, err, syncErr)
	settle(t, store)

	state := store.State()
	assert.Nil(t, state.User)
	assert.False(t, state.Loading)
	assert.Equal(t, 1, h.profiles.Calls())
	assert.Nil(t, h.cache.Load(context.Background()))
}

/*
TestStore_Login_Superseded reports a login cancelled by a concurrent logout.
*/
func TestStore_Login_Superseded(t *testing.T) {
	h := newHarness()
	h.provider.next = subject("s-1")
	store := h.store(t)
	require.NoError(t, store.Start())

	gate := h.profiles.hold()
	result := make(chan error, 1)
	go func() {
		_, err := store.Login(context.Background(), "s-1@example.com", "pw")
		result <- err
	}()

	require.Eventually(t, func() bool { return h.profiles.Calls() == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, store.Logout(context.Background()))
	close(gate)

	assert.ErrorIs(t, <-result, session.ErrSuperseded)
	assert.Nil(t, store.State().User)
	assert.Nil(t, h.cache.Load(context.Background()))
}

/*
TestStore_Register uses the supplied name when the provider has none.
*/
func TestStore_Register(t *testing.T) {
	h := newHarness()
	h.provider.next = &identity.Identity{SubjectID: "s-9", Email: "new@example.com", Token: "t"}
	store := h.store(t)
	require.NoError(t, store.Start())

	user, err := store.Register(context.Background(), "Grace Hopper", "new@example.com", "long-password")
	require.NoError(t, err)
	assert.Equal(t, "Grace Hopper", user.Name)
	assert.Equal(t, 1, h.profiles.Calls())
}

/*
TestStore_SignupOrSync_Idempotent stores the same profile on repeated calls.
*/
func TestStore_SignupOrSync_Idempotent(t *testing.T) {
	h := newHarness()
	store := h.store(t)
	require.NoError(t, store.Start())

	hints := profile.Hints{
		SubjectID: "s-3",
		Name:      "Ada",
		Email:     "ada@example.com",
		Role:      pointer.To(sec.RoleReader),
		Token:     "token-s-3",
	}

	first, err := store.SignupOrSync(context.Background(), hints)
	require.NoError(t, err)
	second, err := store.SignupOrSync(context.Background(), hints)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, second, store.State().User)
	assert.Equal(t, sec.RoleReader, second.Role)
	assert.Equal(t, second, h.cache.Load(context.Background()).User)

	_, err = store.SignupOrSync(context.Background(), profile.Hints{})
	assert.True(t, apperr.HasCode(err, apperr.CodeValidation))
}

/*
TestStore_TokenFollowsSubject never pairs a new subject with the previous credential.
*/
func TestStore_TokenFollowsSubject(t *testing.T) {
	h := newHarness()
	store := h.store(t)
	require.NoError(t, store.Start())

	h.provider.Emit(subject("a"))
	settle(t, store)
	require.Equal(t, "token-a", store.Token())

	user, err := store.SignupOrSync(context.Background(), profile.Hints{SubjectID: "b"})
	require.NoError(t, err)
	assert.Equal(t, "b", user.SubjectID)
	assert.Empty(t, store.Token())
	entry := h.cache.Load(context.Background())
	require.NotNil(t, entry)
	assert.Equal(t, "b", entry.User.SubjectID)
	assert.Empty(t, entry.Token)

	h.provider.Emit(subject("a"))
	settle(t, store)
	require.Equal(t, "token-a", store.Token())

	tokenless := subject("c")
	tokenless.Token = ""
	h.provider.Emit(tokenless)
	settle(t, store)

	assert.Equal(t, "c", store.State().User.SubjectID)
	assert.Empty(t, store.Token())
	assert.Empty(t, h.cache.Load(context.Background()).Token)
}

/*
TestStore_SyncSubjectMismatch rejects a profile that belongs to another subject.
*/
func TestStore_SyncSubjectMismatch(t *testing.T) {
	h := newHarness()
	store := h.store(t)
	require.NoError(t, store.Start())

	h.profiles.mu.Lock()
	h.profiles.answerAs = "other"
	h.profiles.mu.Unlock()

	_, err := store.SignupOrSync(context.Background(), profile.Hints{SubjectID: "s-1", Token: "token-s-1"})
	assert.True(t, apperr.HasCode(err, apperr.CodeUpstream), "got %v", err)

	state := store.State()
	assert.Nil(t, state.User)
	assert.Equal(t, session.PhaseSignedOut, state.Phase)
	assert.Nil(t, h.cache.Load(context.Background()))

	h.profiles.mu.Lock()
	h.profiles.answerAs = ""
	h.profiles.mu.Unlock()

	h.provider.Emit(subject("s-1"))
	settle(t, store)
	h.provider.Emit(subject("s-1"))
	h.provider.Emit(subject("s-1"))

	require.NotNil(t, store.State().User)
	assert.Equal(t, "s-1", store.State().User.SubjectID)
	assert.Equal(t, 2, h.profiles.Calls())
	assert.Equal(t, 2, h.recorder.dedup(session.DedupMemory))
}

/*
TestStore_Logout_ProviderFailure still drops the session and the cache.
*/
func TestStore_Logout_ProviderFailure(t *testing.T) {
	h := newHarness()
	require.NoError(t, h.cache.Save(context.Background(), cachedUser("s-1"), "t"))
	h.provider.Emit(subject("s-1"))
	providerErr := &identity.ProviderError{Code: identity.CodeNetworkFailure}
	h.provider.signOutErr = providerErr

	store := h.store(t)
	require.NoError(t, store.Start())

	err := store.Logout(context.Background())
	assert.Same(t, providerErr, err)

	state := store.State()
	assert.Nil(t, state.User)
	assert.False(t, state.Loading)
	assert.Nil(t, h.cache.Load(context.Background()))
	assert.Empty(t, store.Token())
}

/*
TestStore_UpdateLocalProfile merges a patch without a network call.
*/
func TestStore_UpdateLocalProfile(t *testing.T) {
	h := newHarness()
	store := h.store(t)
	require.NoError(t, store.Start())

	_, err := store.UpdateLocalProfile(context.Background(), profile.Patch{Bio: pointer.To("x")})
	assert.ErrorIs(t, err, session.ErrNoSession)

	require.NoError(t, h.cache.Save(context.Background(), cachedUser("s-1"), "t"))
	h.provider.Emit(subject("s-1"))

	updated, err := store.UpdateLocalProfile(context.Background(), profile.Patch{
		Bio:         pointer.To("Litigator"),
		Designation: pointer.To("Partner"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Litigator", updated.Bio)
	assert.Equal(t, "Cached s-1", updated.Name)

	assert.Equal(t, "Partner", store.State().User.Designation)
	assert.Equal(t, "Litigator", h.cache.Load(context.Background()).User.Bio)
	assert.Zero(t, h.profiles.Calls())
}

/*
TestStore_Watch delivers the current state and every change until unsubscribed.
*/
func TestStore_Watch(t *testing.T) {
	h := newHarness()
	store := h.store(t)

	var mu sync.Mutex
	var phases []session.Phase
	watch := store.Watch(func(state session.State) {
		mu.Lock()
		defer mu.Unlock()
		phases = append(phases, state.Phase)
	})

	require.NoError(t, store.Start())
	watch.Unsubscribe()
	watch.Unsubscribe()
	h.provider.Emit(nil)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []session.Phase{session.PhaseCold, session.PhaseSignedOut}, phases)
}
