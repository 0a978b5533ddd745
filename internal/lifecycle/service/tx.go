package service

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	id "certflow/pkg/domain"
	dErrors "certflow/pkg/domain-errors"
)

// StoreTx provides the per-application transactional boundary. Everything fn
// does through the stores (state change, certificate, audit entry) commits
// together or not at all, and concurrent actions on one application are
// serialized.
type StoreTx interface {
	RunInTx(ctx context.Context, applicationID id.ApplicationID, fn func(ctx context.Context) error) error
}

// numShards spreads applications over a fixed set of mutexes so unrelated
// applications rarely contend.
const numShards = 128

// defaultTxTimeout is the maximum duration for a lifecycle transaction.
const defaultTxTimeout = 5 * time.Second

// ShardedTx is the in-memory StoreTx. Stores have no rollback, so every
// operation validates its guards before its first write and in-memory audit
// appends cannot fail.
type ShardedTx struct {
	shards  [numShards]sync.Mutex
	timeout time.Duration
}

func NewShardedTx(timeout time.Duration) *ShardedTx {
	return &ShardedTx{timeout: timeout}
}

func (t *ShardedTx) RunInTx(ctx context.Context, applicationID id.ApplicationID, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	shard := shardFor(applicationID)
	t.shards[shard].Lock()
	defer t.shards[shard].Unlock()

	// Check again after acquiring lock
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	return fn(ctx)
}

// shardFor hashes the application id with FNV-1a.
func shardFor(applicationID id.ApplicationID) int {
	h := fnv.New32a()
	_, _ = h.Write(applicationID[:])
	return int(h.Sum32() % numShards)
}
