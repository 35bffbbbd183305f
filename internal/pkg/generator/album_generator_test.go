package generator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlbumGenerator_GenerateCart(t *testing.T) {
	gen := NewAlbumGenerator(42)

	for i := 0; i < 50; i++ {
		albums := gen.GenerateCart(1000, 4)
		require.NotEmpty(t, albums)
		assert.LessOrEqual(t, len(albums), 4)

		seen := map[string]bool{}
		for _, album := range albums {
			assert.False(t, seen[album.ID], "duplicate %s", album.ID)
			seen[album.ID] = true
			assert.GreaterOrEqual(t, album.Price, int64(10000))
			assert.LessOrEqual(t, album.Price, int64(49000))
			assert.NotEmpty(t, album.Name)
		}
	}
}

func TestAlbumGenerator_SameSeedSameCatalog(t *testing.T) {
	a := NewAlbumGenerator(7).GenerateCart(500, 3)
	b := NewAlbumGenerator(7).GenerateCart(500, 3)
	assert.Equal(t, a, b)
}
