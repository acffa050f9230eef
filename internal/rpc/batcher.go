package rpc

import (
	"context"
	"sync"
	"time"

	gethRpc "github.com/ethereum/go-ethereum/rpc"
	"github.com/rs/zerolog/log"

	"github.com/ledgerlens/defi-insight/internal/common"
)

type RPCFetchBatchResult[K any, T any] struct {
	Key    K
	Error  error
	Result T
}

// BatchCaller is the subset of the go-ethereum rpc client used for batching.
type BatchCaller interface {
	BatchCallContext(ctx context.Context, b []gethRpc.BatchElem) error
}

func RPCFetchInBatches[K any, T any](caller BatchCaller, ctx context.Context, keys []K, batchSize int, batchDelay time.Duration, method string, argsFunc func(K) []interface{}) []RPCFetchBatchResult[K, T] {
	if len(keys) <= batchSize {
		return RPCFetchSingleBatch[K, T](caller, ctx, keys, method, argsFunc)
	}
	chunks := common.SliceToChunks[K](keys, batchSize)

	log.Debug().Msgf("Fetching %s for %d keys in %d chunks of max %d requests", method, len(keys), len(chunks), batchSize)

	var wg sync.WaitGroup
	chunkResults := make([][]RPCFetchBatchResult[K, T], len(chunks))

	for i, chunk := range chunks {
		wg.Add(1)
		go func(i int, chunk []K) {
			defer wg.Done()
			chunkResults[i] = RPCFetchSingleBatch[K, T](caller, ctx, chunk, method, argsFunc)
			if batchDelay > 0 {
				time.Sleep(batchDelay)
			}
		}(i, chunk)
	}
	wg.Wait()

	results := make([]RPCFetchBatchResult[K, T], 0, len(keys))
	for _, batchResults := range chunkResults {
		results = append(results, batchResults...)
	}
	return results
}

func RPCFetchSingleBatch[K any, T any](caller BatchCaller, ctx context.Context, keys []K, method string, argsFunc func(K) []interface{}) []RPCFetchBatchResult[K, T] {
	batch := make([]gethRpc.BatchElem, len(keys))
	results := make([]RPCFetchBatchResult[K, T], len(keys))

	for i, key := range keys {
		results[i] = RPCFetchBatchResult[K, T]{Key: key}
		batch[i] = gethRpc.BatchElem{
			Method: method,
			Args:   argsFunc(key),
			Result: new(T),
		}
	}
	if len(batch) == 0 {
		return results
	}

	err := caller.BatchCallContext(ctx, batch)
	if err != nil {
		for i := range results {
			results[i].Error = err
		}
		return results
	}

	for i, elem := range batch {
		if elem.Error != nil {
			results[i].Error = elem.Error
		} else {
			results[i].Result = *elem.Result.(*T)
		}
	}

	return results
}
