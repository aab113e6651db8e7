package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/ribosome/action"
)

func TestStore_Backends(t *testing.T) {
	tests := []struct {
		name    string
		backend Backend
		dir     func(t *testing.T) string
	}{
		{"memdb", BackendMemDB, func(*testing.T) string { return "" }},
		{"default", "", func(*testing.T) string { return "" }},
		{"goleveldb", BackendGoLevelDB, func(t *testing.T) string { return t.TempDir() }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewStore(tt.backend, tt.dir(t))
			require.NoError(t, err)
			defer s.Close()

			e := action.Entry{Type: "post", Content: "hello"}
			addr, err := s.Put(e)
			require.NoError(t, err)

			want, err := e.Address()
			require.NoError(t, err)
			assert.Equal(t, want, addr)

			got, ok, err := s.Get(addr)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, e, got)

			has, err := s.Has(addr)
			require.NoError(t, err)
			assert.True(t, has)
		})
	}
}

func TestStore_Errors(t *testing.T) {
	_, err := NewStore("rocksdb", "")
	assert.Error(t, err)

	_, err = NewStore(BackendGoLevelDB, "")
	assert.Error(t, err)
}

func TestStore_Missing(t *testing.T) {
	s, err := NewStore(BackendMemDB, "")
	require.NoError(t, err)

	_, ok, err := s.Get(42)
	require.NoError(t, err)
	assert.False(t, ok)

	has, err := s.Has(42)
	require.NoError(t, err)
	assert.False(t, has)
}

func TestStore_Entries(t *testing.T) {
	s, err := NewStore(BackendMemDB, "")
	require.NoError(t, err)

	entries, err := s.Entries()
	require.NoError(t, err)
	assert.Empty(t, entries)

	var want []action.Address
	for _, c := range []string{"a", "b", "c"} {
		addr, err := s.Put(action.Entry{Type: "note", Content: c})
		require.NoError(t, err)
		want = append(want, addr)
	}
	// duplicate content does not add a key
	_, err = s.Put(action.Entry{Type: "note", Content: "a"})
	require.NoError(t, err)

	entries, err = s.Entries()
	require.NoError(t, err)
	assert.ElementsMatch(t, want, entries)
	for i := 1; i < len(entries); i++ {
		assert.Less(t, uint64(entries[i-1]), uint64(entries[i]))
	}
}

func TestStore_Reopen(t *testing.T) {
	dir := t.TempDir()

	s, err := NewStore(BackendGoLevelDB, dir)
	require.NoError(t, err)
	addr, err := s.Put(action.Entry{Type: "post", Content: "durable"})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = NewStore(BackendGoLevelDB, dir)
	require.NoError(t, err)
	defer s.Close()

	got, ok, err := s.Get(addr)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "durable", got.Content)
}
