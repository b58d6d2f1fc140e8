package store

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T, port int) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(dir, port, 4)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestPutGetRoundTrip(t *testing.T) {
	s := openTestStore(t, 9001)

	require.NoError(t, s.Put("foo", "bar"))
	val, ok := s.Get("foo")
	require.True(t, ok)
	assert.Equal(t, "bar", val)
}

func TestGetMissingKey(t *testing.T) {
	s := openTestStore(t, 9002)
	_, ok := s.Get("nope")
	assert.False(t, ok)
}

func TestDeleteThenGetMisses(t *testing.T) {
	s := openTestStore(t, 9003)

	require.NoError(t, s.Put("k", "v"))
	require.NoError(t, s.Delete("k"))

	_, ok := s.Get("k")
	assert.False(t, ok)
}

func TestDeleteOfAbsentKeyDoesNotError(t *testing.T) {
	s := openTestStore(t, 9004)
	assert.NoError(t, s.Delete("never-existed"))
}

func TestLastWriteWins(t *testing.T) {
	s := openTestStore(t, 9005)

	require.NoError(t, s.Put("k", "v1"))
	require.NoError(t, s.Put("k", "v2"))
	require.NoError(t, s.Delete("k"))
	require.NoError(t, s.Put("k", "v3"))

	val, ok := s.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v3", val)
}

func TestAllReturnsEveryEntry(t *testing.T) {
	s := openTestStore(t, 9006)

	want := map[string]string{"a": "1", "b": "2", "c": "3"}
	for k, v := range want {
		require.NoError(t, s.Put(k, v))
	}

	got := map[string]string{}
	for _, e := range s.All() {
		got[e.Key] = e.Value
	}
	assert.Equal(t, want, got)
}

func TestRangeScanFullCircleReturnsAll(t *testing.T) {
	s := openTestStore(t, 9007)

	for i := 0; i < 50; i++ {
		require.NoError(t, s.Put(string(rune('a'+i%26))+string(rune(i)), "v"))
	}

	all := s.All()
	require.NotEmpty(t, all)

	// A full-circle range must return exactly what All() returns.
	full := s.RangeScan(^uint64(0), ^uint64(0))
	assert.Len(t, full, len(all))
}

func TestResetClearsShardsAndWAL(t *testing.T) {
	s := openTestStore(t, 9008)

	require.NoError(t, s.Put("k", "v"))
	require.NoError(t, s.Reset())

	_, ok := s.Get("k")
	assert.False(t, ok)
	assert.Empty(t, s.All())
}

func TestReplayRebuildsStateAfterRestart(t *testing.T) {
	dir := t.TempDir()

	s1, err := Open(dir, 9009, 4)
	require.NoError(t, err)
	require.NoError(t, s1.Put("a", "1"))
	require.NoError(t, s1.Put("b", "2"))
	require.NoError(t, s1.Delete("a"))
	require.NoError(t, s1.Close())

	s2, err := Open(dir, 9009, 4)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s2.Close() })

	_, ok := s2.Get("a")
	assert.False(t, ok)

	v, ok := s2.Get("b")
	require.True(t, ok)
	assert.Equal(t, "2", v)
}

func TestWALFileNamedByPort(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir, 8081, 2)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Put("foo", "bar"))

	_, err = os.Stat(dir + "/wal_8081.log")
	assert.NoError(t, err)
}
