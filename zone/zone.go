// Package zone implements the ZoneRegistry: named UI slots populated
// by ordered blocks with add/replace/extend/wrap composition (spec
// §4.4).
//
// New code -- no teacher package renders UI zones. Modeled
// structurally on the "registration table" shape shared by
// forbearing-gst's config package (map + mutation bumping a version
// counter) since no closer analog exists in the pack; resolution
// follows spec's own REDESIGN FLAGS guidance ("store blocks as a list
// plus an operations log resolved on read").
package zone

import (
	"sort"
	"sync"

	"github.com/forbearing/admincore/types"
	"github.com/samber/lo"
)

// Operation is one of the four block composition verbs.
type Operation string

const (
	OpAdd     Operation = "add"
	OpReplace Operation = "replace"
	OpExtend  Operation = "extend"
	OpWrap    Operation = "wrap"
)

// defaultWeight is applied when Block.Weight is nil.
const defaultWeight = 50

// Block is a single registration. Weight is a pointer so "unset" can
// be distinguished from an explicit 0/50 (needed by replace's
// "preserving weight unless overridden" rule).
type Block struct {
	ID        string
	Component any
	Weight    *int
	Props     any
	Operation Operation // defaults to OpAdd
	Replaces  string    // OpReplace
	Before    string    // OpExtend
	After     string    // OpExtend
	Wraps     string    // OpWrap
}

func weightOf(b *Block) int {
	if b.Weight != nil {
		return *b.Weight
	}
	return defaultWeight
}

// EffectiveBlock is a resolved entry returned by GetBlocks: the main
// block plus any wrappers that envelope it, ordered innermost first.
type EffectiveBlock struct {
	Block
	Wrappers []Block
}

type zoneState struct {
	defaultComponent any
	hasDefault       bool
	mainByID         map[string]*Block
	mainOrder        []string // insertion order, ties broken by this
	extends          []*Block
	wraps            []*Block
	version          uint64
}

func newZoneState() *zoneState {
	return &zoneState{mainByID: make(map[string]*Block)}
}

// Registry is the ZoneRegistry.
type Registry struct {
	mu    sync.RWMutex
	zones map[string]*zoneState
	log   types.Logger
}

// New creates an empty Registry. log may be nil.
func New(log types.Logger) *Registry {
	if log == nil {
		log = types.NopLogger{}
	}
	return &Registry{zones: make(map[string]*zoneState), log: log}
}

// DefineZone declares a zone, optionally with a fallback component
// rendered when GetBlocks is empty.
func (r *Registry) DefineZone(name string, defaultComponent ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	z := r.zoneOrCreate(name)
	if len(defaultComponent) > 0 {
		z.defaultComponent = defaultComponent[0]
		z.hasDefault = true
	}
	z.version++
}

func (r *Registry) zoneOrCreate(name string) *zoneState {
	z, ok := r.zones[name]
	if !ok {
		z = newZoneState()
		r.zones[name] = z
	}
	return z
}

// RegisterBlock registers block into zoneName, auto-defining the zone
// if DefineZone was never called for it.
func (r *Registry) RegisterBlock(zoneName string, block Block) {
	r.mu.Lock()
	defer r.mu.Unlock()
	z := r.zoneOrCreate(zoneName)

	op := block.Operation
	if op == "" {
		op = OpAdd
	}
	b := block
	b.Operation = op

	switch op {
	case OpAdd:
		if _, exists := z.mainByID[b.ID]; exists {
			r.log.Debugf("zone: duplicate block id %q in zone %q, later registration wins", b.ID, zoneName)
		} else {
			z.mainOrder = append(z.mainOrder, b.ID)
		}
		z.mainByID[b.ID] = &b
	case OpReplace:
		target, ok := z.mainByID[b.Replaces]
		if b.Weight == nil && ok {
			b.Weight = target.Weight
		}
		if !ok {
			z.mainOrder = append(z.mainOrder, b.Replaces)
		}
		z.mainByID[b.Replaces] = &b
	case OpExtend:
		z.extends = append(z.extends, &b)
	case OpWrap:
		z.wraps = append(z.wraps, &b)
	}
	z.version++
}

// RemoveBlock removes every registration identified by blockID: a
// main add/replace slot, or an extend/wrap registered under that id.
func (r *Registry) RemoveBlock(zoneName, blockID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	z, ok := r.zones[zoneName]
	if !ok {
		return
	}
	delete(z.mainByID, blockID)
	for i, id := range z.mainOrder {
		if id == blockID {
			z.mainOrder = append(z.mainOrder[:i:i], z.mainOrder[i+1:]...)
			break
		}
	}
	z.extends = filterOut(z.extends, blockID)
	z.wraps = filterOut(z.wraps, blockID)
	z.version++
}

func filterOut(list []*Block, id string) []*Block {
	return lo.Reject(list, func(b *Block, _ int) bool { return b.ID == id })
}

// ClearZone removes every block registered in zoneName, keeping its
// default component.
func (r *Registry) ClearZone(zoneName string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	z, ok := r.zones[zoneName]
	if !ok {
		return
	}
	z.mainByID = make(map[string]*Block)
	z.mainOrder = nil
	z.extends = nil
	z.wraps = nil
	z.version++
}

// GetBlocks returns the ordered effective list for zoneName after
// resolving add/replace/extend/wrap operations.
func (r *Registry) GetBlocks(zoneName string) []EffectiveBlock {
	r.mu.RLock()
	defer r.mu.RUnlock()
	z, ok := r.zones[zoneName]
	if !ok {
		return nil
	}

	main := make([]*Block, 0, len(z.mainOrder))
	for _, id := range z.mainOrder {
		if b, ok := z.mainByID[id]; ok {
			main = append(main, b)
		}
	}
	sort.SliceStable(main, func(i, j int) bool { return weightOf(main[i]) < weightOf(main[j]) })

	indexOf := func(id string) int {
		for i, b := range main {
			if b.ID == id {
				return i
			}
		}
		return -1
	}
	for _, ext := range z.extends {
		var target string
		before := ext.Before != ""
		if before {
			target = ext.Before
		} else {
			target = ext.After
		}
		idx := indexOf(target)
		if idx < 0 {
			r.log.Debugf("zone: extend target %q not found in zone %q, skipping", target, zoneName)
			continue
		}
		insertAt := idx
		if !before {
			insertAt = idx + 1
		}
		main = append(main[:insertAt], append([]*Block{ext}, main[insertAt:]...)...)
	}

	wrapsByTarget := make(map[string][]*Block, len(z.wraps))
	for _, w := range z.wraps {
		wrapsByTarget[w.Wraps] = append(wrapsByTarget[w.Wraps], w)
	}

	out := make([]EffectiveBlock, len(main))
	for i, b := range main {
		eb := EffectiveBlock{Block: *b}
		if chain, ok := wrapsByTarget[b.ID]; ok {
			sorted := append([]*Block(nil), chain...)
			sort.SliceStable(sorted, func(i, j int) bool { return weightOf(sorted[i]) > weightOf(sorted[j]) })
			eb.Wrappers = make([]Block, len(sorted))
			for j, w := range sorted {
				eb.Wrappers[j] = *w
			}
		}
		out[i] = eb
	}
	return out
}

// GetDefault returns zoneName's fallback component and whether one was
// set via DefineZone.
func (r *Registry) GetDefault(zoneName string) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	z, ok := r.zones[zoneName]
	if !ok {
		return nil, false
	}
	return z.defaultComponent, z.hasDefault
}

// Version returns the zone's mutation counter, incremented on every
// DefineZone/RegisterBlock/RemoveBlock/ClearZone call, so reactive
// consumers can detect changes.
func (r *Registry) Version(zoneName string) uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	z, ok := r.zones[zoneName]
	if !ok {
		return 0
	}
	return z.version
}
