package proxy

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"ringstore/internal/nodeclient"
	"ringstore/internal/ring"
)

// migrationConcurrency bounds each errgroup in this file: the arcs migrated
// at once by addRebalance, the keys copied at once within one arc, and the
// keys copied at once by removeRebalance. The add-rebalance groups are
// nested, so up to migrationConcurrency*migrationConcurrency keys can be in
// flight during an add. A plain errgroup.Group (not errgroup.WithContext) is
// used throughout this file: one key's copy or delete failure must not
// cancel the rest of the batch, matching spec.md §7's
// MigrationCopyFailed/MigrationDeleteFailed policy of "logged, not
// retried" rather than "abort the migration".
const migrationConcurrency = 8

// addRebalance executes the migration plan produced by Ring.RebalancingTasks
// after newNode has already been inserted into the ring: for every task, it
// asks the source node for the arc's entries and copies them to newNode,
// then deletes them from source.
func (c *Cluster) addRebalance(ctx context.Context, newNode string, tasks []ring.Task) {
	var g errgroup.Group
	g.SetLimit(migrationConcurrency)

	for _, task := range tasks {
		task := task
		g.Go(func() error {
			c.migrateArc(ctx, task.Source, newNode, task.StartHash, task.EndHash)
			return nil
		})
	}
	_ = g.Wait()
}

// migrateArc copies every key in (start, end] from source to dest, deleting
// each from source only after it is confirmed written to dest. Failures on
// individual keys are logged and counted, never retried.
func (c *Cluster) migrateArc(ctx context.Context, source, dest string, start, end uint64) {
	entries, err := c.clientFor(source).Range(ctx, start, end)
	if err != nil {
		c.log.Warn("migration: range scan failed",
			zap.String("source", source), zap.String("dest", dest), zap.Error(err))
		return
	}

	var g errgroup.Group
	g.SetLimit(migrationConcurrency)
	for _, e := range entries {
		e := e
		g.Go(func() error {
			c.migrateOne(ctx, source, dest, e)
			return nil
		})
	}
	_ = g.Wait()
}

func (c *Cluster) migrateOne(ctx context.Context, source, dest string, e nodeclient.Entry) {
	if err := c.clientFor(dest).Put(ctx, e.Key, e.Value); err != nil {
		c.metrics.migrationsFailed.Inc()
		c.log.Warn("migration: copy failed",
			zap.String("key", e.Key), zap.String("source", source), zap.String("dest", dest), zap.Error(err))
		return
	}
	if err := c.clientFor(source).Delete(ctx, e.Key); err != nil {
		c.metrics.migrationsFailed.Inc()
		c.log.Warn("migration: delete of migrated key failed",
			zap.String("key", e.Key), zap.String("source", source), zap.Error(err))
		return
	}
	c.metrics.migrationsCopied.Inc()
}

// removeRebalance copies every entry a departing node held (already
// snapshotted by RemoveNode before the ring mutation) to its new owner, then
// deletes it from the departing node. The node has already been removed
// from the ring by the time this runs, so GetNode always resolves to a
// surviving node.
func (c *Cluster) removeRebalance(ctx context.Context, victim string, entries []nodeclient.Entry) {
	var g errgroup.Group
	g.SetLimit(migrationConcurrency)

	for _, e := range entries {
		e := e
		g.Go(func() error {
			owner, err := c.ownerOf(e.Key)
			if err != nil {
				c.metrics.migrationsFailed.Inc()
				c.log.Warn("evacuation: no owner for key", zap.String("key", e.Key), zap.Error(err))
				return nil
			}
			if err := c.clientFor(owner).Put(ctx, e.Key, e.Value); err != nil {
				c.metrics.migrationsFailed.Inc()
				c.log.Warn("evacuation: copy failed",
					zap.String("key", e.Key), zap.String("dest", owner), zap.Error(err))
				return nil
			}
			if err := c.clientFor(victim).Delete(ctx, e.Key); err != nil {
				c.metrics.migrationsFailed.Inc()
				c.log.Warn("evacuation: delete on departing node failed",
					zap.String("key", e.Key), zap.String("victim", victim), zap.Error(err))
				return nil
			}
			c.metrics.migrationsCopied.Inc()
			return nil
		})
	}
	_ = g.Wait()
}
