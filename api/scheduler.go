/*
scheduler.go - Rate table file reloader

PURPOSE:
  Fuel tax rates are republished every quarter. When the server was started
  with a rate table file, this background job watches the file and
  publishes and activates the new table as soon as it changes, without a
  restart.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Compares the file's modification time and size with the last load
  - An invalid file is logged and skipped; the previous table stays active
  - Every successful load is stored (rate table version is bumped)

CONFIGURATION:
  - CheckInterval: How often to check (default: 1 minute)
  - Enabled: Whether the reloader runs (default: true)

USAGE:
  reloader := NewRateTableReloader(handler, path)
  reloader.Start()
  // ... later
  reloader.Stop()

SEE ALSO:
  - handlers.go: PublishRateTable, SetActive
  - factory/ratetable.go: LoadFile
*/
package api

import (
	"context"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
)

// RateTableReloader republishes a rate table file when it changes.
type RateTableReloader struct {
	Handler       *Handler
	Path          string
	CheckInterval time.Duration
	Enabled       bool

	stateMu  sync.Mutex // guards lastMod, lastSize
	lastMod  time.Time
	lastSize int64

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex // guards ticker, stop
}

func NewRateTableReloader(handler *Handler, path string) *RateTableReloader {
	return &RateTableReloader{
		Handler:       handler,
		Path:          path,
		CheckInterval: time.Minute,
		Enabled:       true,
	}
}

// Start records the current file state and begins watching. Calling Start
// while running is a no-op; a stopped reloader can be started again.
func (rr *RateTableReloader) Start() {
	rr.mu.Lock()
	defer rr.mu.Unlock()

	if rr.ticker != nil {
		return
	}
	if !rr.Enabled || rr.Path == "" || rr.CheckInterval <= 0 {
		rr.Handler.Logger.Info("rate table reloader disabled")
		return
	}

	if fi, err := os.Stat(rr.Path); err == nil {
		rr.stateMu.Lock()
		rr.lastMod, rr.lastSize = fi.ModTime(), fi.Size()
		rr.stateMu.Unlock()
	}

	rr.ticker = time.NewTicker(rr.CheckInterval)
	rr.stop = make(chan struct{})
	rr.wg.Add(1)
	go rr.run(rr.ticker.C, rr.stop)

	rr.Handler.Logger.Info("rate table reloader started",
		zap.String("path", rr.Path), zap.Duration("interval", rr.CheckInterval))
}

// Stop stops the reloader and waits for an in-flight check.
func (rr *RateTableReloader) Stop() {
	rr.mu.Lock()
	defer rr.mu.Unlock()

	if rr.ticker != nil {
		rr.ticker.Stop()
		close(rr.stop)
		rr.wg.Wait()
		rr.ticker, rr.stop = nil, nil
		rr.Handler.Logger.Info("rate table reloader stopped")
	}
}

func (rr *RateTableReloader) run(tick <-chan time.Time, stop <-chan struct{}) {
	defer rr.wg.Done()

	for {
		select {
		case <-tick:
			rr.CheckNow(context.Background())
		case <-stop:
			return
		}
	}
}

// CheckNow reloads the file if it changed since the last check. It reports
// whether a new table was activated.
func (rr *RateTableReloader) CheckNow(ctx context.Context) bool {
	log := rr.Handler.Logger.With(zap.String("path", rr.Path))

	fi, err := os.Stat(rr.Path)
	if err != nil {
		log.Warn("rate table file not readable", zap.Error(err))
		return false
	}
	rr.stateMu.Lock()
	unchanged := fi.ModTime().Equal(rr.lastMod) && fi.Size() == rr.lastSize
	rr.lastMod, rr.lastSize = fi.ModTime(), fi.Size()
	rr.stateMu.Unlock()
	if unchanged {
		return false
	}

	table, err := rr.Handler.RateFactory.LoadFile(rr.Path)
	if err != nil {
		log.Error("rate table file changed but is invalid; keeping current table", zap.Error(err))
		return false
	}
	if err := rr.Handler.PublishRateTable(ctx, table); err != nil {
		log.Error("failed to store reloaded rate table", zap.Error(err))
		return false
	}
	rr.Handler.SetActive(table)

	log.Info("rate table reloaded",
		zap.String("rate_table_id", string(table.ID())),
		zap.String("quarter", table.Quarter()),
		zap.Int("jurisdictions", table.Len()),
	)
	return true
}
