// Package fanout runs the same query independently against many keys (nodes,
// node/storage pairs, ...) with bounded concurrency.
//
// A failing key never cancels its siblings: each key gets its own Result and
// the caller decides what a failure means. This is how cluster-wide listings
// keep availability over completeness.
package fanout

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency bounds in-flight requests per fan-out when no limit is configured.
const DefaultConcurrency = 8

// Result is the outcome for one key.
type Result[T any] struct {
	Value T
	Err   error
}

// Failure describes one key whose contribution was dropped from a merged result.
type Failure struct {
	Node    string `json:"node"`
	Kind    string `json:"kind,omitempty"`
	Storage string `json:"storage,omitempty"`
	Reason  string `json:"reason"`
}

// Run calls fn once per key with at most limit calls in flight, and returns
// the results in key order. A limit <= 0 means DefaultConcurrency. Panics in
// fn are recovered into that key's error.
func Run[K, T any](ctx context.Context, limit int, keys []K, fn func(context.Context, K) (T, error)) []Result[T] {
	if limit <= 0 {
		limit = DefaultConcurrency
	}

	results := make([]Result[T], len(keys))

	var g errgroup.Group
	g.SetLimit(limit)
	for i, key := range keys {
		g.Go(func() error {
			results[i] = call(ctx, key, fn)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func call[K, T any](ctx context.Context, key K, fn func(context.Context, K) (T, error)) (res Result[T]) {
	defer func() {
		if r := recover(); r != nil {
			res = Result[T]{Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	v, err := fn(ctx, key)
	return Result[T]{Value: v, Err: err}
}
