// Package store contains a storage node's sharded, persistent key-value
// engine.
//
// Big idea:
//
//  1. Sharding. The key space is split into S independent partitions, each
//     with its own lock. A PUT to one shard never blocks a PUT to another,
//     which is the whole point of sharding — it exists purely to raise
//     write concurrency and has nothing to do with how keys are routed
//     between nodes (that is the ring's job, one layer up).
//
//  2. Write-ahead log. Every mutation is appended to a line-oriented WAL
//     before the caller's request returns. If the process crashes, restart
//     replays the WAL and rebuilds the exact in-memory state.
//
//  3. Range scan. Migration needs to ask a node "give me everything whose
//     key-hash falls in this arc" — RangeScan answers that using the same
//     FNV-1a hash the ring uses, so the proxy and the node can never
//     disagree about which keys a migration task covers.
package store

import (
	"fmt"
	"path/filepath"

	"ringstore/internal/hashutil"
)

// DefaultShardCount is S from the data model: the number of independent
// partitions a Store splits its key space into.
const DefaultShardCount = 16

// Entry is one key/value pair, returned by RangeScan/All.
type Entry struct {
	Key   string
	Value string
}

// Store is a storage node's in-memory, WAL-backed key-value engine. It owns
// its shards and its WAL and is constructed once at process startup, then
// passed by reference to every HTTP handler — there is no package-level
// mutable state.
type Store struct {
	shards []*shard
	wal    *WAL
}

// Open creates or reopens a Store backed by a WAL file named wal_<port>.log
// inside dir, replaying any existing WAL into memory before returning.
func Open(dir string, port int, shardCount int) (*Store, error) {
	if shardCount <= 0 {
		shardCount = DefaultShardCount
	}

	s := &Store{shards: make([]*shard, shardCount)}
	for i := range s.shards {
		s.shards[i] = newShard()
	}

	walPath := filepath.Join(dir, fmt.Sprintf("wal_%d.log", port))
	wal, err := OpenWAL(walPath)
	if err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}
	s.wal = wal

	if err := s.replay(); err != nil {
		return nil, fmt.Errorf("store: replay: %w", err)
	}
	return s, nil
}

// shardOf picks the shard a key belongs to. This hash is purely internal
// plumbing for lock granularity — it does not need to be, and is not, the
// FNV-1a hash the ring and RangeScan use.
func (s *Store) shardOf(key string) *shard {
	return s.shards[internalHash(key)%uint32(len(s.shards))]
}

func internalHash(key string) uint32 {
	var h uint32 = 2166136261
	for i := 0; i < len(key); i++ {
		h ^= uint32(key[i])
		h *= 16777619
	}
	return h
}

// Put commits key=val in memory, then durably records it in the WAL, then
// returns.
//
// Durability ordering: the in-memory mutation is committed under the shard
// lock first; the WAL append happens after releasing the shard lock but
// before responding to the caller. This narrows the shard lock's critical
// section (the shard is never held while doing file I/O) at the cost of a
// narrow window where a reader between the two steps can observe a value
// that a crash immediately afterward would lose, and where two concurrent
// writers to the same key can append WAL records in an order that does not
// match their in-memory resolution. If the WAL append fails, the mutation
// is rolled back so a client that got an error never has to wonder whether
// it actually took effect.
func (s *Store) Put(key, val string) error {
	sh := s.shardOf(key)
	prev, hadPrev := sh.get(key)
	sh.put(key, val)

	if err := s.wal.AppendSet(key, val); err != nil {
		if hadPrev {
			sh.put(key, prev)
		} else {
			sh.del(key)
		}
		return fmt.Errorf("put %q: %w", key, err)
	}
	return nil
}

// Delete removes key. An absent key is not an error, matching the wire
// contract: DEL replies 200 regardless of prior presence. An error is
// returned only when the WAL append fails, after the prior value is restored.
func (s *Store) Delete(key string) error {
	sh := s.shardOf(key)
	prev, hadPrev := sh.get(key)
	sh.del(key)

	if err := s.wal.AppendDel(key); err != nil {
		if hadPrev {
			sh.put(key, prev)
		}
		return fmt.Errorf("del %q: %w", key, err)
	}
	return nil
}

// Get returns the value for key and whether it was present.
func (s *Store) Get(key string) (string, bool) {
	return s.shardOf(key).get(key)
}

// RangeScan scans every shard and returns the entries whose FNV-1a key hash
// falls in (start, end] (wrap-aware, matching ring.Task semantics). Each
// shard is snapshotted under its own lock; the result is NOT a globally
// consistent snapshot across shards, since no single lock is ever held
// across more than one shard.
func (s *Store) RangeScan(start, end uint64) []Entry {
	var out []Entry
	for _, sh := range s.shards {
		for k, v := range sh.snapshot() {
			if hashutil.InRange(hashutil.FNV1aString(k), start, end) {
				out = append(out, Entry{Key: k, Value: v})
			}
		}
	}
	return out
}

// All returns every entry in the store, with no hash filter. Used for node
// evacuation, where the proxy needs the victim's entire contents rather
// than one arc of it.
func (s *Store) All() []Entry {
	var out []Entry
	for _, sh := range s.shards {
		for k, v := range sh.snapshot() {
			out = append(out, Entry{Key: k, Value: v})
		}
	}
	return out
}

// Reset clears every shard and truncates the WAL. Test/debug only.
func (s *Store) Reset() error {
	for _, sh := range s.shards {
		sh.reset()
	}
	return s.wal.Reset()
}

// Close closes the WAL file handle. Call during shutdown.
func (s *Store) Close() error {
	return s.wal.Close()
}

// replay reads the WAL sequentially and applies every well-formed record to
// the in-memory shards, using the same shardOf a live mutation would use.
// This is called once, at Open, before the store is handed to any handler.
func (s *Store) replay() error {
	entries, err := s.wal.ReadAll()
	if err != nil {
		return err
	}
	for _, e := range entries {
		switch e.Op {
		case opSet:
			s.shardOf(e.Key).put(e.Key, e.Value)
		case opDel:
			s.shardOf(e.Key).del(e.Key)
		}
	}
	return nil
}
