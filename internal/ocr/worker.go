package ocr

import "sync"

// Gate serializes work onto a single goroutine. Engines keep native state
// that must never see two requests at once, and batch runs must not
// interleave, so every HTTP handler routes its recognition work through
// one of these.
type Gate struct {
	jobs chan func()
	wg   sync.WaitGroup
	once sync.Once
}

// NewGate starts the worker goroutine.
func NewGate() *Gate {
	g := &Gate{jobs: make(chan func())}
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		for job := range g.jobs {
			job()
		}
	}()
	return g
}

// Run executes fn on the worker goroutine and waits for it to finish.
// Run must not be called after Close.
func (g *Gate) Run(fn func()) {
	done := make(chan struct{})
	g.jobs <- func() {
		defer close(done)
		fn()
	}
	<-done
}

// Close stops the worker after pending jobs drain.
func (g *Gate) Close() {
	g.once.Do(func() {
		close(g.jobs)
	})
	g.wg.Wait()
}
