package interpolate

import (
	"strconv"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/kacper-wojtaszczyk/jackfruit/extraction-go/internal/grid"
)

// Cache keeps one Mesh per grid geometry. Concurrent requests for the same
// geometry triangulate once. A limited cache evicts the oldest mesh first.
type Cache struct {
	mu     sync.RWMutex
	meshes map[uint64]*Mesh
	order  []uint64 // insertion order
	limit  int      // 0 means unlimited
	group  singleflight.Group
}

// NewCache returns an empty, unlimited Cache.
func NewCache() *Cache {
	return &Cache{meshes: make(map[uint64]*Mesh)}
}

// NewLimitedCache returns an empty Cache holding at most limit meshes.
func NewLimitedCache(limit int) *Cache {
	if limit < 1 {
		limit = 1
	}
	return &Cache{meshes: make(map[uint64]*Mesh), limit: limit}
}

// Mesh returns the mesh for g's axes, building it on first use.
func (c *Cache) Mesh(g *grid.Grid) (*Mesh, error) {
	key := g.Fingerprint()

	c.mu.RLock()
	m, ok := c.meshes[key]
	c.mu.RUnlock()
	if ok {
		return m, nil
	}

	v, err, _ := c.group.Do(strconv.FormatUint(key, 16), func() (any, error) {
		c.mu.RLock()
		m, ok := c.meshes[key]
		c.mu.RUnlock()
		if ok {
			return m, nil
		}

		m, err := NewMesh(g)
		if err != nil {
			return nil, err
		}
		c.store(key, m)
		return m, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Mesh), nil
}

func (c *Cache) store(key uint64, m *Mesh) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.meshes[key]; !ok {
		c.order = append(c.order, key)
	}
	c.meshes[key] = m
	for c.limit > 0 && len(c.order) > c.limit {
		delete(c.meshes, c.order[0])
		c.order = c.order[1:]
	}
}

// Len returns the number of cached meshes.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.meshes)
}

// Interpolate evaluates g's field at points using a freshly built mesh.
func Interpolate(g *grid.Grid, points []grid.Point) ([]float64, error) {
	m, err := NewMesh(g)
	if err != nil {
		return nil, err
	}
	return m.Interpolate(g.Flatten(), points)
}
