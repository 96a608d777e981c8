package coordinator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"testing/synctest"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/require"

	domain "github.com/oshokin/alarm-panel/internal/domain/alarm"
	repo "github.com/oshokin/alarm-panel/internal/repository/state"
)

var (
	errTestLoad    = errors.New("test load error")
	errTestOffline = errors.New("panel offline")
)

// goExecutor runs every function on a fresh goroutine.
type goExecutor struct{}

func (goExecutor) Go(_ context.Context, fn func()) error {
	go fn()

	return nil
}

// fakeClient answers status requests from a script.
type fakeClient struct {
	mu sync.Mutex
	// statuses are returned in order; the last one repeats.
	statuses []string
	// failures is the number of leading calls that fail.
	failures int
	calls    atomic.Int32
}

func (f *fakeClient) GetStatus() (string, error) {
	n := int(f.calls.Add(1))

	f.mu.Lock()
	defer f.mu.Unlock()

	if n <= f.failures {
		return "", errTestOffline
	}

	i := min(n-f.failures-1, len(f.statuses)-1)

	return f.statuses[i], nil
}

func (f *fakeClient) ArmFull() (bool, error)    { return true, nil }
func (f *fakeClient) ArmPartial() (bool, error) { return true, nil }
func (f *fakeClient) Disarm() (bool, error)     { return true, nil }

// memoryRepository is a minimal in-memory Repository implementation for tests.
type memoryRepository struct {
	mu      sync.Mutex
	status  domain.Status
	loadErr error
	saved   []domain.Status
}

func (m *memoryRepository) Load(context.Context, string) (domain.Status, error) {
	return m.status, m.loadErr
}

func (m *memoryRepository) Save(_ context.Context, _ string, s domain.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.saved = append(m.saved, s)

	return nil
}

func (m *memoryRepository) savedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.saved)
}

var testEntry = Entry{ID: "hallway", Name: "Hallway", Code: "1234"}

// TestNew_RestoresStatus asserts New behavior on existing, missing, and unreadable snapshots.
func TestNew_RestoresStatus(t *testing.T) {
	t.Parallel()

	old := domain.Status{Keyword: "arm", ChangedAt: time.Unix(100, 0)}

	c := New(context.Background(), testEntry, new(fakeClient), goExecutor{}, WithRepository(&memoryRepository{status: old}))
	require.Equal(t, old, c.Status())
	require.False(t, c.LastUpdateSuccess())

	// Not found -> empty.
	c = New(context.Background(), testEntry, new(fakeClient), goExecutor{}, WithRepository(&memoryRepository{loadErr: repo.ErrNotFound}))
	require.True(t, c.Status().IsZero())

	// Other error -> empty.
	c = New(context.Background(), testEntry, new(fakeClient), goExecutor{}, WithRepository(&memoryRepository{loadErr: errTestLoad}))
	require.True(t, c.Status().IsZero())
}

// TestNew_MalformedSnapshot starts empty and overwrites a corrupt state file.
func TestNew_MalformedSnapshot(t *testing.T) {
	t.Parallel()

	file := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(file, []byte(`{"entry_id":"hallw`), 0o600))

	repository := repo.NewFileRepository(file)

	c := New(
		context.Background(),
		testEntry,
		&fakeClient{statuses: []string{"home"}},
		goExecutor{},
		WithRepository(repository),
	)
	require.True(t, c.Status().IsZero())
	require.False(t, c.LastUpdateSuccess())

	require.NoError(t, c.Refresh(context.Background()))
	require.Equal(t, "home", c.Status().Keyword)

	saved, err := repository.Load(context.Background(), testEntry.ID)
	require.NoError(t, err)
	require.Equal(t, "home", saved.Keyword)
}

// TestRefresh_Success stores, persists, observes and notifies.
func TestRefresh_Success(t *testing.T) {
	t.Parallel()

	repository := new(memoryRepository)

	var observed []error

	c := New(
		context.Background(),
		testEntry,
		&fakeClient{statuses: []string{"home"}},
		goExecutor{},
		WithRepository(repository),
		WithRefreshObserver(func(err error) { observed = append(observed, err) }),
	)

	var notified []domain.Status

	c.AddListener(func(_ context.Context, s domain.Status) { notified = append(notified, s) })

	require.NoError(t, c.Refresh(context.Background()))
	require.True(t, c.LastUpdateSuccess())
	require.Equal(t, "home", c.Status().Keyword)
	require.Equal(t, 1, repository.savedCount())
	require.Equal(t, []error{nil}, observed)
	require.Len(t, notified, 1)
	require.Equal(t, "home", notified[0].Keyword)
	require.Equal(t, testEntry, c.Entry())
}

// TestRefresh_Failure keeps the previous status and marks the update failed.
func TestRefresh_Failure(t *testing.T) {
	t.Parallel()

	client := &fakeClient{statuses: []string{"disarm"}}
	c := New(context.Background(), testEntry, client, goExecutor{})

	require.NoError(t, c.Refresh(context.Background()))
	require.True(t, c.LastUpdateSuccess())

	client.mu.Lock()
	client.failures = 10
	client.mu.Unlock()

	notified := 0

	c.AddListener(func(context.Context, domain.Status) { notified++ })

	err := c.Refresh(context.Background())
	require.ErrorIs(t, err, errTestOffline)
	require.False(t, c.LastUpdateSuccess())
	require.Equal(t, "disarm", c.Status().Keyword)
	require.Equal(t, 1, notified)
}

// TestSetStatus writes through and persists without notifying.
func TestSetStatus(t *testing.T) {
	t.Parallel()

	repository := new(memoryRepository)
	c := New(context.Background(), testEntry, new(fakeClient), goExecutor{}, WithRepository(repository))

	notified := 0

	c.AddListener(func(context.Context, domain.Status) { notified++ })

	status := c.SetStatus(context.Background(), "arm")
	require.Equal(t, "arm", status.Keyword)
	require.Equal(t, status, c.Status())
	require.Equal(t, 1, repository.savedCount())
	require.Zero(t, notified)

	// Same keyword: nothing to persist.
	c.SetStatus(context.Background(), "arm")
	require.Equal(t, 1, repository.savedCount())

	c.SetStatus(context.Background(), "disarm")
	require.Equal(t, 2, repository.savedCount())
}

// TestRefresh_PersistsOnlyChanges skips writes for repeated polls of the same status.
func TestRefresh_PersistsOnlyChanges(t *testing.T) {
	t.Parallel()

	repository := new(memoryRepository)
	client := &fakeClient{statuses: []string{"disarm", "disarm", "disarm", "arm"}}
	c := New(context.Background(), testEntry, client, goExecutor{}, WithRepository(repository))

	for range 3 {
		require.NoError(t, c.Refresh(context.Background()))
	}

	require.Equal(t, 1, repository.savedCount())

	require.NoError(t, c.Refresh(context.Background()))
	require.Equal(t, 2, repository.savedCount())
}

// TestStatusCell_Store only moves ChangedAt when the keyword changes.
func TestStatusCell_Store(t *testing.T) {
	t.Parallel()

	var cell StatusCell

	first := time.Unix(1_700_000_000, 0)

	s, changed := cell.Store("disarm", first)
	require.True(t, changed)
	require.Equal(t, first, s.ChangedAt)

	s, changed = cell.Store("disarm", first.Add(time.Minute))
	require.False(t, changed)
	require.Equal(t, first, s.ChangedAt)

	s, changed = cell.Store("arm", first.Add(2*time.Minute))
	require.True(t, changed)
	require.Equal(t, first.Add(2*time.Minute), s.ChangedAt)
	require.Equal(t, s, cell.Load())
}

// TestRun_RetriesWithBackOff polls on the interval and backs off after failures.
func TestRun_RetriesWithBackOff(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		client := &fakeClient{statuses: []string{"disarm"}, failures: 2}

		c := New(
			context.Background(),
			testEntry,
			client,
			goExecutor{},
			WithPollInterval(10*time.Second),
			WithBackOff(func() backoff.BackOff { return backoff.NewConstantBackOff(time.Second) }),
		)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)

		go func() { done <- c.Run(ctx) }()

		// Immediate first attempt fails.
		synctest.Wait()
		require.EqualValues(t, 1, client.calls.Load())
		require.False(t, c.LastUpdateSuccess())

		// Second attempt after the back-off delay fails too.
		time.Sleep(time.Second)
		synctest.Wait()
		require.EqualValues(t, 2, client.calls.Load())

		// Third attempt succeeds.
		time.Sleep(time.Second)
		synctest.Wait()
		require.EqualValues(t, 3, client.calls.Load())
		require.True(t, c.LastUpdateSuccess())

		// Then the poll interval applies.
		time.Sleep(5 * time.Second)
		synctest.Wait()
		require.EqualValues(t, 3, client.calls.Load())

		time.Sleep(5 * time.Second)
		synctest.Wait()
		require.EqualValues(t, 4, client.calls.Load())

		cancel()
		require.NoError(t, <-done)
	})
}
