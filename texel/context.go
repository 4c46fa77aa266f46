package texel

import (
	"runtime"
	"sync"
)

// Context carries per-dispatch services: scratch buffer pooling and the
// data-parallel row scheduler. A Context is not safe for concurrent use
// by multiple dispatches; the graph executor owns one and issues
// dispatches sequentially, which is also what upholds the
// producer/consumer barrier invariant between passes.
type Context struct {
	Pool    Pool
	workers int
}

// NewContext returns a context running fn shards on up to workers
// goroutines. workers <= 0 selects GOMAXPROCS.
func NewContext(workers int) *Context {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Context{workers: workers}
}

// Workers returns the configured parallelism.
func (ctx *Context) Workers() int { return ctx.workers }

// ParallelRange splits [0,n) into contiguous shards and runs fn on each
// shard concurrently. Shards are disjoint so fn may write freely to
// per-index data without synchronization. Used both for per-pixel
// operators (n = rows of the output) and row/column pass operators
// (n = number of scanlines, each work item owning a whole line).
func (ctx *Context) ParallelRange(n int, fn func(start, end int)) {
	ctx.ParallelShards(n, func(_, start, end int) { fn(start, end) })
}

// Shards returns how many shards ParallelShards will split n items into.
// Operators that need per-shard scratch (e.g. the distance transform's
// lower-envelope stacks) size their buffers with this before dispatching.
func (ctx *Context) Shards(n int) int {
	if n <= 0 {
		return 0
	}
	workers := ctx.workers
	if workers > n {
		workers = n
	}
	if workers <= 1 {
		return 1
	}
	chunk := (n + workers - 1) / workers
	return (n + chunk - 1) / chunk
}

// ParallelShards is ParallelRange with the shard index exposed, so that
// fn can address preallocated per-shard scratch without synchronization.
func (ctx *Context) ParallelShards(n int, fn func(shard, start, end int)) {
	if n <= 0 {
		return
	}
	workers := ctx.workers
	if workers > n {
		workers = n
	}
	if workers <= 1 {
		fn(0, 0, n)
		return
	}
	var wg sync.WaitGroup
	chunk := (n + workers - 1) / workers
	shard := 0
	for start := 0; start < n; start += chunk {
		end := start + chunk
		if end > n {
			end = n
		}
		wg.Add(1)
		go func(i, s, e int) {
			defer wg.Done()
			fn(i, s, e)
		}(shard, start, end)
		shard++
	}
	wg.Wait()
}
