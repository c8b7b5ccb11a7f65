package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/lazypower/echocloset/internal/logging"
	"github.com/lazypower/echocloset/internal/metrics"
	"github.com/lazypower/echocloset/internal/notify"
	"github.com/lazypower/echocloset/internal/store"
)

// ScanResult summarizes one expiry scan.
type ScanResult struct {
	Due     int `json:"due"`
	Failed  int `json:"failed"`
	Expired int `json:"expired"`
}

// ScanOnce notifies the owner of every pending hoard whose cooldown has
// elapsed and marks the delivered ones expired in a single write.
//
// Scans are serialized. Notifier calls run without the store lock held; the
// status flip re-checks Pending under the lock so a hoard expires at most
// once. A hoard whose notification failed stays pending for the next scan.
func (e *Engine) ScanOnce(ctx context.Context) (ScanResult, error) {
	e.scanMu.Lock()
	defer e.scanMu.Unlock()

	now := e.clock.Now()
	var due []store.Entry
	for en := range e.Store.Query(func(en store.Entry) bool { return en.Due(now) }) {
		due = append(due, en)
	}

	res := ScanResult{Due: len(due)}
	delivered := make(map[string]bool, len(due))
	for _, h := range due {
		if ctx.Err() != nil {
			break
		}
		log := logging.WithOwner(h.OwnerID).With("entry_id", h.ID)

		err := e.Notifier.Notify(ctx, h.OwnerID, notify.Message(h.Description))
		switch {
		case err == nil:
			metrics.Notifications.WithLabelValues("sent").Inc()
			delivered[h.ID] = true
		case notify.IsRetryable(err):
			metrics.Notifications.WithLabelValues("retryable").Inc()
			log.Warn("hoard notification failed, will retry", "error", err)
			res.Failed++
		default:
			metrics.Notifications.WithLabelValues("permanent").Inc()
			log.Error("hoard notification rejected", "error", err)
			res.Failed++
		}
	}

	if len(delivered) > 0 {
		n, err := e.Store.Mutate(
			func(en store.Entry) bool {
				return delivered[en.ID] && en.Kind == store.KindHoard && en.Status == store.StatusPending
			},
			func(en store.Entry) store.Entry {
				en.Status = store.StatusExpired
				return en
			},
		)
		if err != nil {
			metrics.PersistFailures.WithLabelValues("mutate").Inc()
			metrics.Scans.WithLabelValues("failed").Inc()
			return res, err
		}
		res.Expired = n
		metrics.HoardsExpired.Add(float64(n))
	}

	metrics.Scans.WithLabelValues("ok").Inc()
	if res.Due > 0 {
		slog.Info("expiry scan", "due", res.Due, "expired", res.Expired, "failed", res.Failed)
	}
	return res, nil
}

// Start runs a scan now and then every ScanInterval until Stop or ctx ends.
func (e *Engine) Start(ctx context.Context) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()

		ticker := e.clock.NewTicker(e.opts.ScanInterval)
		defer ticker.Stop()

		e.scan(ctx)
		for {
			select {
			case <-ticker.Chan():
				e.scan(ctx)
			case <-e.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
	slog.Info("expiry scanner started", "interval", e.opts.ScanInterval.String())
}

func (e *Engine) scan(ctx context.Context) {
	start := time.Now()
	if _, err := e.ScanOnce(ctx); err != nil {
		slog.Error("expiry scan failed, retrying next tick", "error", err, "elapsed", time.Since(start).String())
	}
}

// Stop ends the scanner loop and waits for an in-flight scan to finish its
// write. It is safe to call more than once.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() { close(e.stopCh) })
	e.wg.Wait()
}
