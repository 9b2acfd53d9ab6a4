/*
scheduler.go - Automated delinquency evaluation scheduler

PURPOSE:
  Periodically re-evaluates every disbursed credit's delinquency state:
  penalties accrue, tiers move, and credits past the write-off threshold
  are written off. Guarantee execution stays a manual step - liquidating
  member savings is a committee decision, not a timer's.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Evaluates as of the current date (day granularity)
  - Re-runs are idempotent: penalties are recomputed, never accumulated
  - Skips nothing; an evaluation of a current credit is a cheap no-op

CONFIGURATION:
  - CheckInterval: How often to run (default: 6 hours)
  - Enabled: Whether scheduler is active (default: true)

USAGE:
  scheduler := NewDelinquencyScheduler(store, handler)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: Reevaluate endpoint (manual pass for one credit)
  - credit/service.go: Reevaluate implementation
*/
package api

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/coopfin/credit-engine/credit"
	"github.com/coopfin/credit-engine/engine"
)

// DelinquencyScheduler runs the periodic evaluation pass.
type DelinquencyScheduler struct {
	Store         credit.TxStore
	Handler       *Handler
	CheckInterval time.Duration
	Enabled       bool

	ticker *time.Ticker
	stop   chan bool
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewDelinquencyScheduler creates a new scheduler.
func NewDelinquencyScheduler(store credit.TxStore, handler *Handler) *DelinquencyScheduler {
	return &DelinquencyScheduler{
		Store:         store,
		Handler:       handler,
		CheckInterval: 6 * time.Hour,
		Enabled:       true,
		stop:          make(chan bool),
	}
}

// Start begins the scheduler.
func (ds *DelinquencyScheduler) Start() {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	if !ds.Enabled {
		log.Println("[Scheduler] Disabled, not starting")
		return
	}

	ds.ticker = time.NewTicker(ds.CheckInterval)
	ds.wg.Add(1)

	go ds.run()

	log.Printf("[Scheduler] Started with check interval: %v", ds.CheckInterval)
}

// Stop stops the scheduler.
func (ds *DelinquencyScheduler) Stop() {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	if ds.ticker != nil {
		ds.ticker.Stop()
		close(ds.stop)
		ds.wg.Wait()
		log.Println("[Scheduler] Stopped")
	}
}

func (ds *DelinquencyScheduler) run() {
	defer ds.wg.Done()

	// Run immediately on start
	ds.evaluateAll()

	for {
		select {
		case <-ds.ticker.C:
			ds.evaluateAll()
		case <-ds.stop:
			return
		}
	}
}

func (ds *DelinquencyScheduler) evaluateAll() {
	ctx := context.Background()
	asOf := engine.DateOf(time.Now())

	credits, err := ds.Store.ListCreditsByState(ctx, credit.StateDisbursed)
	if err != nil {
		log.Printf("[Scheduler] Error listing credits: %v", err)
		return
	}

	evaluated := 0
	writtenOff := 0
	for _, c := range credits {
		report, err := ds.Handler.Service.Reevaluate(ctx, c.ID, asOf, ds.Handler.params(c))
		if err != nil {
			log.Printf("[Scheduler] Error evaluating credit %s: %v", c.ID, err)
			continue
		}
		evaluated++
		if report.WrittenOff {
			writtenOff++
			log.Printf("[Scheduler] Credit %s written off at %d elapsed days", c.ID, report.ElapsedDays)
		}
	}

	if evaluated > 0 {
		log.Printf("[Scheduler] Completed: %d evaluated, %d written off", evaluated, writtenOff)
	}
}

// RunNow triggers an immediate pass (for testing/admin).
func (ds *DelinquencyScheduler) RunNow() {
	ds.evaluateAll()
}

// GetNextRunTime returns when the next scheduled pass will occur.
func (ds *DelinquencyScheduler) GetNextRunTime() time.Time {
	return time.Now().Add(ds.CheckInterval)
}
