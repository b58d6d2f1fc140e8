// Package proxy implements the stateless routing proxy: it holds the one
// authoritative Ring, forwards PUT/GET/DEL to the owning storage node, and
// orchestrates ADD/REMOVE membership changes including the online
// migration that follows them.
//
// The proxy is the only component that mutates the ring; storage nodes
// never see it and never talk to each other. Keeping that dependency
// one-directional (proxy -> ring, proxy -> nodeclient -> storage node) is
// what lets the ring package in particular stay free of any HTTP
// knowledge.
package proxy

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"ringstore/internal/nodeclient"
	"ringstore/internal/ring"
)

// ErrRingEmpty is surfaced as 503 by the HTTP layer: no node owns any key
// yet.
var ErrRingEmpty = ring.ErrEmptyRing

// ErrHealthCheckFailed is returned by AddNode when the candidate's /status
// probe did not come back 200. The ring is left untouched.
var ErrHealthCheckFailed = errors.New("proxy: health check failed")

// Cluster holds the proxy's one piece of state: the ring, guarded by a
// reader/writer lock so that data forwarders (readers) never block behind
// each other, while an ADD/REMOVE's ring mutation step (the only part that
// needs exclusivity) briefly takes the writer lock.
//
// adminMu serializes ADD/REMOVE end-to-end, per the design note that
// concurrent admin operations against overlapping membership are not
// addressed by this system: only one membership change (mutation +
// migration) runs at a time. It is a separate lock from mu specifically so
// that a long-running migration never blocks PUT/GET/DEL, which only ever
// need mu.
type Cluster struct {
	mu   sync.RWMutex
	ring *ring.Ring

	adminMu sync.Mutex

	log          *zap.Logger
	metrics      *metrics
	nodeTimeout  time.Duration
	probeTimeout time.Duration

	clientsMu sync.Mutex
	clients   map[string]*nodeclient.Client
}

// New creates an empty Cluster with vnodes virtual nodes per node address
// (ring.DefaultVirtualNodes if vnodes <= 0).
func New(vnodes int, log *zap.Logger, reg *prometheus.Registry) *Cluster {
	c := &Cluster{
		ring:         ring.New(vnodes),
		log:          log,
		nodeTimeout:  nodeclient.DefaultTimeout,
		probeTimeout: 2 * time.Second,
		clients:      make(map[string]*nodeclient.Client),
	}
	c.metrics = newMetrics(reg, func() int {
		c.mu.RLock()
		defer c.mu.RUnlock()
		return c.ring.NodeCount()
	})
	return c
}

// canonicalize applies the one normalization rule spec.md §3 requires:
// "localhost" and "127.0.0.1" must never produce two ring entries.
func canonicalize(addr string) string {
	return strings.Replace(addr, "localhost", "127.0.0.1", 1)
}

// clientFor returns (creating if necessary) the cached nodeclient.Client
// for addr. HTTP client connections are per-request per spec.md §5, but
// reusing one *http.Client (and hence its connection pool) per node address
// across requests is an implementation detail the design explicitly leaves
// open ("an implementer may add one without altering semantics").
func (c *Cluster) clientFor(addr string) *nodeclient.Client {
	c.clientsMu.Lock()
	defer c.clientsMu.Unlock()

	if cl, ok := c.clients[addr]; ok {
		return cl
	}
	cl := nodeclient.New(addr, c.nodeTimeout)
	c.clients[addr] = cl
	return cl
}

// Put routes key to its owning node and forwards the write.
func (c *Cluster) Put(ctx context.Context, key, val string) error {
	c.metrics.puts.Inc()
	owner, err := c.ownerOf(key)
	if err != nil {
		return err
	}
	if err := c.clientFor(owner).Put(ctx, key, val); err != nil {
		c.metrics.upstreamErrors.Inc()
		return fmt.Errorf("proxy: put %q on %s: %w", key, owner, err)
	}
	return nil
}

// Get routes key to its owning node and forwards the read. ok is false
// when the owning node returned 404.
func (c *Cluster) Get(ctx context.Context, key string) (val string, ok bool, err error) {
	c.metrics.gets.Inc()
	owner, err := c.ownerOf(key)
	if err != nil {
		return "", false, err
	}
	val, err = c.clientFor(owner).Get(ctx, key)
	if errors.Is(err, nodeclient.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		c.metrics.upstreamErrors.Inc()
		return "", false, fmt.Errorf("proxy: get %q from %s: %w", key, owner, err)
	}
	return val, true, nil
}

// Delete routes key to its owning node and forwards the delete.
func (c *Cluster) Delete(ctx context.Context, key string) error {
	c.metrics.dels.Inc()
	owner, err := c.ownerOf(key)
	if err != nil {
		return err
	}
	if err := c.clientFor(owner).Delete(ctx, key); err != nil {
		c.metrics.upstreamErrors.Inc()
		return fmt.Errorf("proxy: del %q on %s: %w", key, owner, err)
	}
	return nil
}

func (c *Cluster) ownerOf(key string) (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	owner, err := c.ring.GetNode([]byte(key))
	if err != nil {
		c.metrics.ringEmpty.Inc()
		return "", err
	}
	return owner, nil
}

// Status reports the current node count for the proxy's own /status
// endpoint, an additive self-health endpoint alongside the /status probes
// the proxy sends to storage nodes.
func (c *Cluster) Status() (nodeCount int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ring.NodeCount()
}

// AddNode health-probes host, and if it answers, inserts it into the ring
// and runs the add-rebalance migration. The whole procedure (probe,
// mutation, migration) is serialized against any other admin operation by
// adminMu.
func (c *Cluster) AddNode(ctx context.Context, host string) error {
	addr := canonicalize(host)

	c.adminMu.Lock()
	defer c.adminMu.Unlock()

	probeCtx, cancel := context.WithTimeout(ctx, c.probeTimeout)
	defer cancel()
	if err := c.clientFor(addr).Status(probeCtx); err != nil {
		c.metrics.healthCheckFails.Inc()
		c.log.Info("add_node refused: health check failed", zap.String("addr", addr), zap.Error(err))
		return ErrHealthCheckFailed
	}

	c.mu.Lock()
	c.ring.AddNode(addr)
	tasks := c.ring.RebalancingTasks(addr)
	c.mu.Unlock()

	c.log.Info("node added", zap.String("addr", addr), zap.Int("migration_tasks", len(tasks)))
	c.addRebalance(ctx, addr, tasks)
	return nil
}

// RemoveNode evacuates host: snapshots its contents, removes it from the
// ring (so new routing immediately stops sending it writes), then copies
// every entry it held to its new owner.
func (c *Cluster) RemoveNode(ctx context.Context, host string) error {
	addr := canonicalize(host)

	c.adminMu.Lock()
	defer c.adminMu.Unlock()

	entries, err := c.clientFor(addr).All(ctx)
	if err != nil {
		return fmt.Errorf("proxy: snapshot %s before removal: %w", addr, err)
	}

	c.mu.Lock()
	c.ring.RemoveNode(addr)
	c.mu.Unlock()

	c.log.Info("node removed", zap.String("addr", addr), zap.Int("keys_to_evacuate", len(entries)))
	c.removeRebalance(ctx, addr, entries)
	return nil
}
