package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyIndexContract(t *testing.T) {
	for _, name := range []string{"map", "critbit"} {
		t.Run(name, func(t *testing.T) {
			idx, err := NewIndex(name)
			require.NoError(t, err)

			_, ok := idx.Lookup("abcde")
			assert.False(t, ok)

			idx.Insert("abcde", 3)
			idx.Insert("abc\x00\x00", 0)
			assert.Equal(t, 2, idx.Len())

			h, ok := idx.Lookup("abcde")
			require.True(t, ok)
			assert.Equal(t, 3, h)

			h, ok = idx.Lookup("abc\x00\x00")
			require.True(t, ok)
			assert.Equal(t, 0, h)

			assert.Panics(t, func() { idx.Insert("abcde", 9) })

			idx.Remove("abcde")
			_, ok = idx.Lookup("abcde")
			assert.False(t, ok)
			assert.Equal(t, 1, idx.Len())

			idx.Clear()
			assert.Equal(t, 0, idx.Len())
			_, ok = idx.Lookup("abc\x00\x00")
			assert.False(t, ok)
		})
	}
}

func TestNewIndexUnknown(t *testing.T) {
	_, err := NewIndex("btree")
	assert.Error(t, err)
}
