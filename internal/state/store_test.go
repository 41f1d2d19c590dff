package state

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dokzlo13/stripd/internal/db"
)

type patternDef struct {
	Kind  string `json:"kind"`
	Color string `json:"color,omitempty"`
}

func openStore(t *testing.T) *Store {
	t.Helper()
	database, err := db.Open(filepath.Join(t.TempDir(), "state.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return NewStore(database.DB)
}

func TestStore_Versioning(t *testing.T) {
	s := openStore(t)
	s.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }

	_, ok, err := s.Load("pattern", "default")
	require.NoError(t, err)
	assert.False(t, ok)

	v, err := s.Save("pattern", "default", []byte(`{"kind":"blink"}`))
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)
	v, err = s.Save("pattern", "default", []byte(`{"kind":"rainbow"}`))
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)

	rec, ok, err := s.Load("pattern", "default")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"kind":"rainbow"}`, string(rec.Payload))
	assert.Equal(t, int64(2), rec.Version)
	assert.Equal(t, s.now(), rec.UpdatedAt)

	require.NoError(t, s.Delete("pattern", "default"))
	require.NoError(t, s.Delete("pattern", "default"), "missing record")
	_, ok, err = s.Load("pattern", "default")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_Reset(t *testing.T) {
	s := openStore(t)
	for _, key := range [][2]string{{"pattern", "default"}, {"pattern", "spare"}, {"other", "x"}} {
		_, err := s.Save(key[0], key[1], []byte(`{}`))
		require.NoError(t, err)
	}

	n, err := s.Reset("pattern")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	_, ok, err := s.Load("other", "x")
	require.NoError(t, err)
	assert.True(t, ok, "other kinds survive")

	n, err = s.Reset()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestTypedStore(t *testing.T) {
	s := openStore(t)
	typed := NewTypedStore[patternDef](s, KindPattern)
	assert.Equal(t, KindPattern, typed.Kind())

	_, ok, err := typed.Get(IDDefaultPattern)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, typed.Set(IDDefaultPattern, patternDef{Kind: "blink", Color: "#ff0000"}))

	got, ok, err := typed.Get(IDDefaultPattern)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, patternDef{Kind: "blink", Color: "#ff0000"}, got)

	saved, ok, err := typed.Load(IDDefaultPattern)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(1), saved.Version)

	_, err = s.Save(KindPattern, "broken", []byte("not json"))
	require.NoError(t, err)
	_, _, err = typed.Get("broken")
	assert.Error(t, err)

	require.NoError(t, typed.Clear())
	_, ok, err = typed.Get(IDDefaultPattern)
	require.NoError(t, err)
	assert.False(t, ok)
}
