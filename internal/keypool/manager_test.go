package keypool

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	state *PoolState
	saves int
}

func (s *memStore) LoadPoolState() (*PoolState, error) { return s.state, nil }

func (s *memStore) SavePoolState(st *PoolState) error {
	clone := st.Clone()
	s.state = &clone
	s.saves++
	return nil
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

var t0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestManager(t *testing.T, keys ...string) (*Manager, *memStore) {
	t.Helper()
	store := &memStore{}
	m, err := NewManager(store, keys, 24*time.Hour, fixedClock(t0))
	require.NoError(t, err)
	return m, store
}

func TestNewManagerRejectsEmptyKeyList(t *testing.T) {
	t.Parallel()

	_, err := NewManager(&memStore{}, nil, 24*time.Hour, fixedClock(t0))
	assert.ErrorIs(t, err, ErrNoKeys)
}

func TestNewManagerActivatesFirstKey(t *testing.T) {
	t.Parallel()

	for _, keys := range [][]string{
		{"k1"},
		{"k1", "k2"},
		{"k1", "k2", "k3", "k4", "k5"},
	} {
		m, _ := newTestManager(t, keys...)
		st := m.Snapshot()

		assert.Equal(t, 0, st.CurrentIndex)
		active := 0
		for _, c := range st.Credentials {
			if c.IsActive {
				active++
			}
		}
		assert.Equal(t, 1, active)
		assert.True(t, st.Credentials[0].IsActive)
	}
}

func TestSwitchToNextAdvancesUntilWrap(t *testing.T) {
	t.Parallel()

	m, _ := newTestManager(t, "k1", "k2", "k3")

	require.NoError(t, m.SwitchToNext())
	assert.Equal(t, 1, m.Snapshot().CurrentIndex)

	require.NoError(t, m.SwitchToNext())
	assert.Equal(t, 2, m.Snapshot().CurrentIndex)

	// Wrapping back to 0 means every key has been tried: exhausted, index
	// unchanged, pool-level error set.
	err := m.SwitchToNext()
	assert.ErrorIs(t, err, ErrExhausted)

	st := m.Snapshot()
	assert.Equal(t, 2, st.CurrentIndex)
	assert.NotEmpty(t, st.Error)
}

func TestSwitchToNextSingleKeyPoolIsImmediatelyExhausted(t *testing.T) {
	t.Parallel()

	m, _ := newTestManager(t, "only")
	assert.ErrorIs(t, m.SwitchToNext(), ErrExhausted)
	assert.Equal(t, 0, m.Snapshot().CurrentIndex)
}

func TestTotalRequestsEqualsSumOfCounts(t *testing.T) {
	t.Parallel()

	m, _ := newTestManager(t, "k1", "k2", "k3")

	require.NoError(t, m.RecordSuccess(0))
	require.NoError(t, m.RecordSuccess(0))
	require.NoError(t, m.SwitchToNext())
	require.NoError(t, m.RecordSuccess(1))

	st := m.Snapshot()
	sum := 0
	for _, c := range st.Credentials {
		sum += c.RequestCount
	}
	assert.Equal(t, sum, st.TotalRequests)
	assert.Equal(t, 3, st.TotalRequests)
}

func TestRecordSuccessBookkeeping(t *testing.T) {
	t.Parallel()

	m, _ := newTestManager(t, "k1")
	require.NoError(t, m.RecordFailure(0, "500 boom", false))
	require.NoError(t, m.RecordSuccess(0))

	c := m.Snapshot().Credentials[0]
	assert.Equal(t, 1, c.RequestCount)
	assert.Equal(t, defaultEstimatedQuota-1, c.EstimatedRemaining)
	assert.Empty(t, c.LastError)
	require.NotNil(t, c.LastUsedAt)
	assert.Equal(t, t0, *c.LastUsedAt)
}

func TestRecordFailureOnlyRateLimitMarksCredential(t *testing.T) {
	t.Parallel()

	m, _ := newTestManager(t, "k1", "k2")

	require.NoError(t, m.RecordFailure(0, "server error", false))
	c := m.Snapshot().Credentials[0]
	assert.False(t, c.IsRateLimited)
	assert.Equal(t, "server error", c.LastError)

	require.NoError(t, m.RecordFailure(0, "429 quota exceeded", true))
	c = m.Snapshot().Credentials[0]
	assert.True(t, c.IsRateLimited)
}

func TestResetAllClearsFlagsAndReactivatesFirstKey(t *testing.T) {
	t.Parallel()

	store := &memStore{}
	clock := t0
	m, err := NewManager(store, []string{"k1", "k2", "k3"}, 24*time.Hour, func() time.Time { return clock })
	require.NoError(t, err)

	require.NoError(t, m.RecordFailure(0, "429", true))
	require.NoError(t, m.SwitchToNext())
	require.NoError(t, m.RecordFailure(1, "429", true))

	clock = t0.Add(2 * time.Hour)
	require.NoError(t, m.ResetAll())

	st := m.Snapshot()
	assert.Equal(t, 0, st.CurrentIndex)
	assert.True(t, st.Credentials[0].IsActive)
	assert.Empty(t, st.Error)
	assert.Equal(t, t0.Add(2*time.Hour), st.LastResetAt)
	for _, c := range st.Credentials {
		assert.False(t, c.IsRateLimited)
		assert.Empty(t, c.LastError)
	}
}

func TestReinitializeWithinIntervalMergesByKeyValue(t *testing.T) {
	t.Parallel()

	store := &memStore{}
	m, err := NewManager(store, []string{"a", "b", "c"}, 24*time.Hour, fixedClock(t0))
	require.NoError(t, err)
	require.NoError(t, m.RecordSuccess(0))
	require.NoError(t, m.RecordFailure(0, "429", true))
	require.NoError(t, m.SwitchToNext())
	require.NoError(t, m.RecordSuccess(1))

	// Same store, one hour later, keys reordered and one replaced.
	m2, err := NewManager(store, []string{"b", "a", "d"}, 24*time.Hour, fixedClock(t0.Add(time.Hour)))
	require.NoError(t, err)

	st := m2.Snapshot()
	assert.Equal(t, 1, st.CurrentIndex)
	assert.Equal(t, 2, st.TotalRequests)

	// "b" moved to position 0 and kept its count; "a" kept its rate-limit
	// flag; "d" is brand new.
	assert.Equal(t, 1, st.Credentials[0].RequestCount)
	assert.True(t, st.Credentials[1].IsRateLimited)
	assert.Equal(t, 1, st.Credentials[1].RequestCount)
	assert.Equal(t, 0, st.Credentials[2].RequestCount)
	assert.False(t, st.Credentials[2].IsRateLimited)
}

func TestReinitializeAfterIntervalRebuildsFresh(t *testing.T) {
	t.Parallel()

	store := &memStore{}
	m, err := NewManager(store, []string{"a", "b"}, 24*time.Hour, fixedClock(t0))
	require.NoError(t, err)
	require.NoError(t, m.RecordFailure(0, "429", true))
	require.NoError(t, m.SwitchToNext())
	require.NoError(t, m.RecordSuccess(1))

	m2, err := NewManager(store, []string{"a", "b"}, 24*time.Hour, fixedClock(t0.Add(25*time.Hour)))
	require.NoError(t, err)

	st := m2.Snapshot()
	assert.Equal(t, 0, st.CurrentIndex)
	assert.Equal(t, 0, st.TotalRequests)
	for _, c := range st.Credentials {
		assert.False(t, c.IsRateLimited)
		assert.Equal(t, 0, c.RequestCount)
	}
	assert.Equal(t, t0.Add(25*time.Hour), st.LastResetAt)
}

func TestEveryMutationPersists(t *testing.T) {
	t.Parallel()

	m, store := newTestManager(t, "k1", "k2")
	base := store.saves

	require.NoError(t, m.RecordSuccess(0))
	require.NoError(t, m.RecordFailure(0, "429", true))
	require.NoError(t, m.SwitchToNext())
	require.NoError(t, m.ResetAll())

	assert.Equal(t, base+4, store.saves)
}

func TestNewManagerToleratesCorruptPersistedState(t *testing.T) {
	t.Parallel()

	store := &failingLoadStore{}
	m, err := NewManager(store, []string{"k1"}, 24*time.Hour, fixedClock(t0))
	require.NoError(t, err)
	assert.Equal(t, 0, m.Snapshot().CurrentIndex)
}

type failingLoadStore struct{ memStore }

func (s *failingLoadStore) LoadPoolState() (*PoolState, error) {
	return nil, errors.New("corrupt record")
}
