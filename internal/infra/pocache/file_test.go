package pocache

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFile_PutGet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "cache.json")
	c := New(path, time.Hour)

	_, ok, err := c.Get("CVE-2025-0001|2")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Put("CVE-2025-0001|2", []string{"https://github.com/a/b"}))
	require.NoError(t, c.Put("empty|2", nil))

	urls, ok, err := c.Get("CVE-2025-0001|2")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"https://github.com/a/b"}, urls)

	// an empty result is cached too
	urls, ok, err = c.Get("empty|2")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, urls)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"CVE-2025-0001|2": ["https://github.com/a/b"], "empty|2": []}`, string(raw))
}

func TestFile_ExpiredFileReadsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	c := New(path, time.Hour)
	require.NoError(t, c.Put("old", []string{"u1"}))

	stale := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(path, stale, stale))

	_, ok, err := c.Get("old")
	require.NoError(t, err)
	assert.False(t, ok)

	// writing after expiry starts a fresh file
	require.NoError(t, c.Put("new", []string{"u2"}))
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"new": ["u2"]}`, string(raw))
}

func TestFile_CorruptFileReadsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	c := New(path, 0)
	_, ok, err := c.Get("k")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Put("k", []string{"u"}))
	urls, ok, err := c.Get("k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"u"}, urls)
}

func TestFile_ConcurrentPuts(t *testing.T) {
	c := New(filepath.Join(t.TempDir(), "cache.json"), time.Hour)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, c.Put(string(rune('a'+i)), []string{"u"}))
		}(i)
	}
	wg.Wait()

	for i := 0; i < 20; i++ {
		_, ok, err := c.Get(string(rune('a' + i)))
		require.NoError(t, err)
		assert.True(t, ok)
	}
}

func TestDefaultPath(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	p, err := DefaultPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(os.Getenv("HOME"), ".vuln_crawler_cache", "github_poc_cache.json"), p)
}
