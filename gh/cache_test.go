package gh

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGitBlobSHA(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		content string
		want    string
	}{
		{content: "", want: "e69de29bb2d1d6434b8b29ae775ad8c2e48c5391"},
		{content: "hello\n", want: "ce013625030ba8dba906f756967f9e9ca394464a"},
	}

	for i, tt := range tests {
		path := filepath.Join(dir, "f"+string(rune('0'+i)))
		require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))

		got, err := GitBlobSHA(path)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestBlobCachePutGet(t *testing.T) {
	cache, err := NewBlobCache(t.TempDir())
	require.NoError(t, err)

	src := filepath.Join(t.TempDir(), "src.txt")
	require.NoError(t, os.WriteFile(src, []byte("hello\n"), 0o644))
	sha := "ce013625030ba8dba906f756967f9e9ca394464a"

	hit, _, err := cache.Get(sha, filepath.Join(t.TempDir(), "miss.txt"))
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, cache.Put(sha, src))

	dst := filepath.Join(t.TempDir(), "nested", "dst.txt")
	hit, n, err := cache.Get(sha, dst)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, int64(6), n)

	// Editing the downloaded copy must not leak into the cache.
	require.NoError(t, os.WriteFile(dst, []byte("changed"), 0o644))
	again := filepath.Join(t.TempDir(), "again.txt")
	hit, _, err = cache.Get(sha, again)
	require.NoError(t, err)
	require.True(t, hit)
	content, err := os.ReadFile(again)
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(content))
}

func TestBlobCacheRejectsMismatchedContent(t *testing.T) {
	cache, err := NewBlobCache(t.TempDir())
	require.NoError(t, err)

	src := filepath.Join(t.TempDir(), "src.txt")
	require.NoError(t, os.WriteFile(src, []byte("not hello"), 0o644))
	sha := "ce013625030ba8dba906f756967f9e9ca394464a"

	err = cache.Put(sha, src)
	require.ErrorIs(t, err, errBlobMismatch)

	hit, _, err := cache.Get(sha, filepath.Join(t.TempDir(), "dst.txt"))
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestBlobCacheMalformedSHA(t *testing.T) {
	cache, err := NewBlobCache(t.TempDir())
	require.NoError(t, err)

	for _, sha := range []string{"", "ab", "zzzzzz", "abc"} {
		hit, _, err := cache.Get(sha, filepath.Join(t.TempDir(), "x"))
		require.NoError(t, err)
		assert.False(t, hit, sha)
		assert.Error(t, cache.Put(sha, "unused"), sha)
	}
}
