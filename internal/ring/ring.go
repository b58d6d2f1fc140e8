// Package ring implements the consistent hash ring that decides which
// storage node owns a given key.
//
// Big idea:
//
// In a distributed key-value store we must answer one question cheaply and
// deterministically:
//
//	"Which node is responsible for this key?"
//
// Plain `hash(key) % N` answers it, but adding or removing a node changes N
// and remaps almost every key — massive, unnecessary data movement.
// Consistent hashing instead places nodes and keys on the same circular
// hash space; a key belongs to the first node clockwise from its position.
// Removing or adding one node only disturbs the keys in its immediate
// neighborhood on the circle.
//
// Virtual nodes: a single position per physical node concentrates load
// unevenly (some nodes get a much bigger arc than others by chance). So
// each physical node is hashed into V distinct positions ("virtual nodes"),
// spreading its share of the keyspace more evenly across the circle.
//
// This package is deliberately a pure data structure: no I/O, no internal
// locking. The proxy is the sole owner of a Ring and is responsible for
// serializing mutations against lookups (see internal/proxy).
package ring

import (
	"errors"
	"fmt"
	"slices"
	"sort"

	"ringstore/internal/hashutil"
)

// DefaultVirtualNodes is the number of ring positions synthesized per
// physical node address when none is configured explicitly.
const DefaultVirtualNodes = 100

// ErrEmptyRing is returned by GetNode when the ring has no entries.
var ErrEmptyRing = errors.New("ring: empty")

// Task describes a migration unit produced by RebalancingTasks: the arc
// (StartHash, EndHash] used to belong to Source and has just moved to the
// node that was inserted.
type Task struct {
	Source    string
	StartHash uint64
	EndHash   uint64
}

// Ring is an ordered mapping from 64-bit hash positions to node addresses.
//
// Invariants maintained by AddNode/RemoveNode:
//   - every address present has exactly Vnodes entries
//   - collisions between two virtual-node hashes are resolved last-writer-wins
//     (negligible at FNV-1a scale, but never left ambiguous)
//   - the ring is logically circular: the successor of the maximum position
//     is the minimum position
type Ring struct {
	vnodes   int
	points   map[uint64]string // hash position -> node address
	sorted   []uint64          // sorted positions, kept in sync with points
	addrSeen map[string]bool   // distinct addresses currently in the ring
}

// New creates an empty ring. vnodes <= 0 selects DefaultVirtualNodes.
func New(vnodes int) *Ring {
	if vnodes <= 0 {
		vnodes = DefaultVirtualNodes
	}
	return &Ring{
		vnodes:   vnodes,
		points:   make(map[uint64]string),
		addrSeen: make(map[string]bool),
	}
}

// vnodeHash computes the hash position of the i-th virtual node of addr,
// per spec: hash(addr + "#" + i).
func vnodeHash(addr string, i int) uint64 {
	return hashutil.FNV1aString(fmt.Sprintf("%s#%d", addr, i))
}

// AddNode inserts Vnodes virtual nodes for addr. Calling AddNode twice for
// the same address is idempotent: it overwrites the same Vnodes positions
// and leaves the ring structurally identical to a single call.
func (r *Ring) AddNode(addr string) {
	for i := 0; i < r.vnodes; i++ {
		pos := vnodeHash(addr, i)
		r.points[pos] = addr
	}
	r.addrSeen[addr] = true
	r.rebuild()
}

// RemoveNode deletes every ring entry belonging to addr.
func (r *Ring) RemoveNode(addr string) {
	for i := 0; i < r.vnodes; i++ {
		pos := vnodeHash(addr, i)
		// Only remove if this position still belongs to addr: a hash
		// collision from another node's virtual node may have
		// overwritten it, and we must not delete that node's entry.
		if owner, ok := r.points[pos]; ok && owner == addr {
			delete(r.points, pos)
		}
	}
	delete(r.addrSeen, addr)
	r.rebuild()
}

// GetNode returns the node address owning key: the node at the smallest
// ring position >= hash(key), wrapping to the smallest position overall.
func (r *Ring) GetNode(key []byte) (string, error) {
	if len(r.sorted) == 0 {
		return "", ErrEmptyRing
	}
	pos := hashutil.FNV1a(key)
	idx := r.search(pos)
	return r.points[r.sorted[idx]], nil
}

// NodeCount returns the number of distinct physical node addresses.
func (r *Ring) NodeCount() int {
	return len(r.addrSeen)
}

// Nodes returns all distinct node addresses currently in the ring.
func (r *Ring) Nodes() []string {
	out := make([]string, 0, len(r.addrSeen))
	for addr := range r.addrSeen {
		out = append(out, addr)
	}
	sort.Strings(out)
	return out
}

// RebalancingTasks computes the migration plan for inserting newNode.
//
// For each virtual node e belonging to newNode:
//   - endHash is e's position.
//   - startHash is the position of e's predecessor in ring order, wrapping
//     to the maximum position when e is the minimum. When that predecessor
//     is itself one of newNode's virtual nodes, startHash steps further back
//     to the nearest position owned by another node, so a run of adjacent
//     newNode entries is covered by the one task of its last entry.
//   - source is the owner of e's successor in ring order, wrapping to the
//     minimum when e is the maximum.
//   - the task is suppressed when source == newNode: the successor is
//     itself a virtual node of newNode, whose own task covers e's arc (this
//     happens once the ring contains only newNode's own entries, and
//     whenever two of newNode's virtual nodes are ring-adjacent).
//
// newNode must already be present in the ring (call AddNode first); an
// empty ring before the insertion produces no tasks, since the new node
// starts owning everything by virtue of being the only node.
func (r *Ring) RebalancingTasks(newNode string) []Task {
	n := len(r.sorted)
	if n == 0 {
		return nil
	}

	var tasks []Task
	for i, pos := range r.sorted {
		if r.points[pos] != newNode {
			continue
		}

		predIdx := (i - 1 + n) % n
		succIdx := (i + 1) % n

		source := r.points[r.sorted[succIdx]]

		if source == newNode {
			continue
		}

		for r.points[r.sorted[predIdx]] == newNode {
			predIdx = (predIdx - 1 + n) % n
		}
		startHash := r.sorted[predIdx]
		endHash := pos

		tasks = append(tasks, Task{
			Source:    source,
			StartHash: startHash,
			EndHash:   endHash,
		})
	}
	return tasks
}

// rebuild reconstructs the sorted position slice after a mutation. Binary
// search in search() requires the slice to stay sorted.
func (r *Ring) rebuild() {
	r.sorted = make([]uint64, 0, len(r.points))
	for pos := range r.points {
		r.sorted = append(r.sorted, pos)
	}
	slices.Sort(r.sorted)
}

// search finds the index of the first sorted position >= pos, wrapping to
// index 0 when pos is greater than every position in the ring (circular
// successor lookup).
func (r *Ring) search(pos uint64) int {
	idx := sort.Search(len(r.sorted), func(i int) bool {
		return r.sorted[i] >= pos
	})
	if idx == len(r.sorted) {
		idx = 0
	}
	return idx
}
