// Package batch fans a set of independent IL fragments across a worker
// pool, embedding and extracting each on its own goroutine. Adapted from
// the z80 optimizer's WorkerPool (pkg/search/worker.go): a buffered
// channel of tasks, a fixed number of workers, sync/atomic counters, and
// a ticker-driven progress line when verbose.
//
// Each worker constructs its own pkg/embed.Embedder, since an Embedder's
// scope graph is not safe for concurrent use (spec.md §5: "one embedder
// per thread").
package batch

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oisee/x86-symbolic-embedder/pkg/embed"
	"github.com/oisee/x86-symbolic-embedder/pkg/extract"
	"github.com/oisee/x86-symbolic-embedder/pkg/il"
)

// Fragment is one independent unit of work: a named sequence of IL
// statements to embed and extract.
type Fragment struct {
	Name  string
	Stmts []il.Stmt
}

// Result is one fragment's outcome. Err is set (and Assertions nil) if
// embedding or extraction failed.
type Result struct {
	Name       string
	Assertions []extract.Assertion
	Err        error
}

// Pool runs fragments against a fixed Arch using a pool of workers.
type Pool struct {
	Arch       embed.Arch
	NumWorkers int

	succeeded atomic.Int64
	failed    atomic.Int64
	completed atomic.Int64
}

// NewPool builds a pool for arch. numWorkers <= 0 uses runtime.NumCPU().
func NewPool(arch embed.Arch, numWorkers int) *Pool {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	return &Pool{Arch: arch, NumWorkers: numWorkers}
}

// Stats returns the number of fragments embedded successfully and
// unsuccessfully so far.
func (p *Pool) Stats() (succeeded, failed int64) {
	return p.succeeded.Load(), p.failed.Load()
}

// Run embeds and extracts every fragment, preserving input order in the
// returned slice. If verbose, a progress line is printed every 2 seconds.
func (p *Pool) Run(fragments []Fragment, verbose bool) []Result {
	total := int64(len(fragments))
	results := make([]Result, len(fragments))

	type indexed struct {
		idx int
		f   Fragment
	}
	ch := make(chan indexed, len(fragments))
	for i, f := range fragments {
		ch <- indexed{i, f}
	}
	close(ch)

	done := make(chan struct{})
	start := time.Now()
	if verbose {
		go func() {
			ticker := time.NewTicker(2 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-done:
					return
				case <-ticker.C:
					comp := p.completed.Load()
					elapsed := time.Since(start).Round(time.Second)
					pct := float64(comp) / float64(total) * 100
					fmt.Printf("  [%s] %d/%d fragments (%.1f%%) | %d ok | %d failed\n",
						elapsed, comp, total, pct, p.succeeded.Load(), p.failed.Load())
				}
			}
		}()
	}

	var wg sync.WaitGroup
	for w := 0; w < p.NumWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for it := range ch {
				results[it.idx] = p.processOne(it.f)
				p.completed.Add(1)
			}
		}()
	}
	wg.Wait()
	close(done)

	if verbose {
		elapsed := time.Since(start).Round(time.Second)
		fmt.Printf("  [%s] %d/%d fragments (100.0%%) | %d ok | %d failed | DONE\n",
			elapsed, total, total, p.succeeded.Load(), p.failed.Load())
	}
	return results
}

func (p *Pool) processOne(f Fragment) Result {
	e := embed.New(p.Arch)
	if err := e.Embed(f.Stmts); err != nil {
		p.failed.Add(1)
		return Result{Name: f.Name, Err: fmt.Errorf("embedding %q: %w", f.Name, err)}
	}
	asserts, err := extract.Extract(e)
	if err != nil {
		p.failed.Add(1)
		return Result{Name: f.Name, Err: fmt.Errorf("extracting %q: %w", f.Name, err)}
	}
	p.succeeded.Add(1)
	return Result{Name: f.Name, Assertions: asserts}
}
