package cache

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type record struct {
	Score    float64  `json:"score"`
	Findings []string `json:"findings"`
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
}

func TestKey(t *testing.T) {
	k1 := Key("analyze", "code", "context")
	k2 := Key("analyze", "code", "context")
	assert.Equal(t, k1, k2)
	assert.Len(t, k1, 64)

	assert.NotEqual(t, k1, Key("verify", "code", "context"), "operation is part of the key")
	assert.NotEqual(t, Key("analyze", "ab", "c"), Key("analyze", "a", "bc"), "fields are delimited")
	assert.NotEqual(t, k1, Key("analyze", "context", "code"), "argument order matters")
}

func TestPutThenGet(t *testing.T) {
	clock := newClock()
	c := New(t.TempDir(), time.Hour).WithClock(clock.Now)

	want := record{Score: 0.8, Findings: []string{"uses torch"}}
	key := Key("analyze", "x")
	require.NoError(t, c.Put(key, want))

	var got record
	require.True(t, c.Get(key, &got))
	assert.Equal(t, want, got)
}

func TestGetExpires(t *testing.T) {
	clock := newClock()
	c := New(t.TempDir(), time.Hour).WithClock(clock.Now)

	key := Key("analyze", "x")
	require.NoError(t, c.Put(key, record{Score: 0.1}))

	clock.Advance(59 * time.Minute)
	var got record
	assert.True(t, c.Get(key, &got))

	clock.Advance(time.Minute)
	assert.False(t, c.Get(key, &got), "entry at exactly ttl is stale")

	// Lazy expiry: the file is still there.
	_, err := os.Stat(filepath.Join(c.Dir(), key+".json"))
	assert.NoError(t, err)
}

func TestPutOverwritesAndRefreshes(t *testing.T) {
	clock := newClock()
	c := New(t.TempDir(), time.Hour).WithClock(clock.Now)
	key := Key("analyze", "x")

	require.NoError(t, c.Put(key, record{Score: 0.1}))
	clock.Advance(50 * time.Minute)
	require.NoError(t, c.Put(key, record{Score: 0.9}))
	clock.Advance(50 * time.Minute)

	var got record
	require.True(t, c.Get(key, &got))
	assert.Equal(t, 0.9, got.Score)
}

func TestCorruptEntryIsMiss(t *testing.T) {
	c := New(t.TempDir(), time.Hour)
	key := Key("analyze", "x")
	require.NoError(t, os.MkdirAll(c.Dir(), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(c.Dir(), key+".json"), []byte("{not json"), 0o644))

	var got record
	assert.False(t, c.Get(key, &got))

	// A valid envelope with the wrong value shape is also a miss.
	require.NoError(t, os.WriteFile(filepath.Join(c.Dir(), key+".json"),
		[]byte(`{"key":"`+key+`","written_at":"2999-01-01T00:00:00Z","value":"oops"}`), 0o644))
	assert.False(t, c.Get(key, &got))
}

func TestDisabledCache(t *testing.T) {
	c := New("", time.Hour)
	assert.False(t, c.Enabled())
	require.NoError(t, c.Put("k", record{Score: 1}))

	var got record
	assert.False(t, c.Get("k", &got))
	assert.NoError(t, c.Clear())

	ns := c.Namespace("analyze")
	assert.False(t, ns.Enabled())
}

func TestNamespacesArePartitioned(t *testing.T) {
	root := New(t.TempDir(), time.Hour)
	a := root.Namespace("analyze")
	v := root.Namespace("verify")

	require.NoError(t, a.Put("same", record{Score: 0.2}))

	var got record
	assert.False(t, v.Get("same", &got))
	assert.True(t, a.Get("same", &got))
	assert.Equal(t, filepath.Join(root.Dir(), "analyze"), a.Dir())
}

func TestSurvivesNewInstance(t *testing.T) {
	dir := t.TempDir()
	key := Key("analyze", "code")
	require.NoError(t, New(dir, time.Hour).Put(key, record{Score: 0.4}))

	var got record
	assert.True(t, New(dir, time.Hour).Get(key, &got))
	assert.Equal(t, 0.4, got.Score)
}

func TestConcurrentPutSameKey(t *testing.T) {
	c := New(t.TempDir(), time.Hour)
	key := Key("analyze", "x")

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, c.Put(key, record{Score: float64(i) / 16}))
		}(i)
	}
	wg.Wait()

	var got record
	require.True(t, c.Get(key, &got))
	assert.GreaterOrEqual(t, got.Score, 0.0)

	entries, err := os.ReadDir(c.Dir())
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestClear(t *testing.T) {
	root := New(filepath.Join(t.TempDir(), "cache"), time.Hour)
	require.NoError(t, root.Namespace("analyze").Put("k", record{}))
	require.NoError(t, root.Clear())

	_, err := os.Stat(root.Dir())
	assert.True(t, os.IsNotExist(err))
}

func TestClearRefusesForeignFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("keep me"), 0o644))

	err := New(dir, time.Hour).Clear()
	require.Error(t, err)
	_, statErr := os.Stat(filepath.Join(dir, "notes.txt"))
	assert.NoError(t, statErr)
}
