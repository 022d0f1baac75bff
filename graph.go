package archecs

import "sync"

// archetypeGraph is the cached transition graph between archetypes: "add
// component X" and "remove component X" edges, plus a lookup from an exact
// component set to its archetype index. It mirrors the teacher's
// archetype-edge caching in archetype.go, generalized from single-component
// edges to the single- and bundle-width transitions spec.md requires.
type archetypeGraph struct {
	mu sync.RWMutex

	byKey  map[string]uint32 // componentMask.key() -> archetype index
	addOne map[edgeKey]uint32
	subOne map[edgeKey]uint32
	addSet map[bundleEdgeKey]uint32
	subSet map[bundleEdgeKey]uint32
}

type edgeKey struct {
	from uint32
	comp ComponentID
}

type bundleEdgeKey struct {
	from uint32
	key  string
}

func newArchetypeGraph() *archetypeGraph {
	return &archetypeGraph{
		byKey:  make(map[string]uint32, 16),
		addOne: make(map[edgeKey]uint32),
		subOne: make(map[edgeKey]uint32),
		addSet: make(map[bundleEdgeKey]uint32),
		subSet: make(map[bundleEdgeKey]uint32),
	}
}

// lookup returns the archetype index whose exact component set is key, if
// one has already been created.
func (g *archetypeGraph) lookup(key string) (uint32, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	idx, ok := g.byKey[key]
	return idx, ok
}

// register records that key now identifies archetype idx.
func (g *archetypeGraph) register(key string, idx uint32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.byKey[key] = idx
}

// cachedAddOne returns the archetype reached from `from` by adding comp, if
// that edge has already been resolved.
func (g *archetypeGraph) cachedAddOne(from uint32, comp ComponentID) (uint32, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	idx, ok := g.addOne[edgeKey{from, comp}]
	return idx, ok
}

func (g *archetypeGraph) cacheAddOne(from uint32, comp ComponentID, to uint32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.addOne[edgeKey{from, comp}] = to
}

func (g *archetypeGraph) cachedSubOne(from uint32, comp ComponentID) (uint32, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	idx, ok := g.subOne[edgeKey{from, comp}]
	return idx, ok
}

func (g *archetypeGraph) cacheSubOne(from uint32, comp ComponentID, to uint32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.subOne[edgeKey{from, comp}] = to
}

// cachedAddSet/cacheAddSet and cachedSubSet/cacheSubSet cache the wider
// "insert/remove a whole bundle at once" transitions (spec.md's
// insert_bundle / drop_bundle), keyed by the bundle's own component set so
// that two different dynamic bundles with the same shape share a cache
// entry.
func (g *archetypeGraph) cachedAddSet(from uint32, setKey string) (uint32, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	idx, ok := g.addSet[bundleEdgeKey{from, setKey}]
	return idx, ok
}

func (g *archetypeGraph) cacheAddSet(from uint32, setKey string, to uint32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.addSet[bundleEdgeKey{from, setKey}] = to
}

func (g *archetypeGraph) cachedSubSet(from uint32, setKey string) (uint32, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	idx, ok := g.subSet[bundleEdgeKey{from, setKey}]
	return idx, ok
}

func (g *archetypeGraph) cacheSubSet(from uint32, setKey string, to uint32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.subSet[bundleEdgeKey{from, setKey}] = to
}
