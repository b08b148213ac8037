package storage

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorageRoundTrip(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	key, err := store.SaveStream("submissions/stu-1/notes.txt", strings.NewReader("hello"))
	require.NoError(t, err)
	assert.True(t, store.Exists(key))

	f, err := store.Open(key)
	require.NoError(t, err)
	body, err := io.ReadAll(f)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	assert.Equal(t, "hello", string(body))

	_, err = store.SaveStream(key, strings.NewReader("again"))
	assert.Error(t, err)

	require.NoError(t, store.Delete(key))
	assert.False(t, store.Exists(key))
	require.NoError(t, store.Delete(key))
}

func TestLocalStorageRejectsEscapingKeys(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	for _, key := range []string{"../secret", "/etc/passwd", "a/../../b", ""} {
		_, err := store.SaveStream(key, strings.NewReader("x"))
		assert.ErrorIs(t, err, ErrInvalidKey, key)
	}
}
