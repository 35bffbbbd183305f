package generator

import (
	"fmt"
	"math/rand"
	"sync"
	"time"
)

type Album struct {
	ID    string
	Name  string
	Price int64
}

// AlbumGenerator produces synthetic catalog lines for seeding carts.
type AlbumGenerator struct {
	mu     sync.Mutex
	random *rand.Rand
}

func NewAlbumGenerator(seed int64) *AlbumGenerator {
	if seed == 0 {
		seed = time.Now().UTC().UnixNano()
	}
	return &AlbumGenerator{
		random: rand.New(rand.NewSource(seed)),
	}
}

var (
	albumAdjectives = []string{
		"Blue", "Electric", "Silent", "Golden", "Midnight",
		"Velvet", "Broken", "Endless", "Wild", "Neon",
	}
	albumNouns = []string{
		"Train", "Horizon", "Sessions", "Dreams", "Highway",
		"Echoes", "Garden", "Radio", "Tides", "Cumbia",
	}
)

func (g *AlbumGenerator) GenerateName() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	adjective := albumAdjectives[g.random.Intn(len(albumAdjectives))]
	noun := albumNouns[g.random.Intn(len(albumNouns))]
	return fmt.Sprintf("%s %s", adjective, noun)
}

// GenerateAlbum picks one of catalogSize albums priced between 10,000 and 49,000 minor units.
func (g *AlbumGenerator) GenerateAlbum(catalogSize int) Album {
	if catalogSize <= 0 {
		catalogSize = 1
	}
	name := g.GenerateName()

	g.mu.Lock()
	n := g.random.Intn(catalogSize)
	price := int64(g.random.Intn(40)+10) * 1000
	g.mu.Unlock()

	return Album{
		ID:    fmt.Sprintf("album-%05d", n),
		Name:  name,
		Price: price,
	}
}

// GenerateCart returns between 1 and maxLines distinct albums.
func (g *AlbumGenerator) GenerateCart(catalogSize, maxLines int) []Album {
	if maxLines <= 0 {
		maxLines = 1
	}
	g.mu.Lock()
	count := g.random.Intn(maxLines) + 1
	g.mu.Unlock()

	seen := make(map[string]bool, count)
	albums := make([]Album, 0, count)
	for attempts := 0; len(albums) < count && attempts < count*4; attempts++ {
		album := g.GenerateAlbum(catalogSize)
		if seen[album.ID] {
			continue
		}
		seen[album.ID] = true
		albums = append(albums, album)
	}
	return albums
}
