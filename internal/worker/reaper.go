// Package worker runs the gateway's background loops.
package worker

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"time"

	"github.com/aretechltd/mospay/internal/core/domain"
	"github.com/aretechltd/mospay/internal/core/ports"
	"github.com/aretechltd/mospay/internal/wire"
)

// Reaper advances transactions stuck in a non-terminal state to FAILED. A
// dispatch that died mid-pipeline (process crash, database outage) leaves
// its row stranded; until someone settles it, every replay of that unique
// id answers ConflictInProgress. The reaper is that someone.
type Reaper struct {
	ledger    ports.TransactionLedger
	interval  time.Duration
	staleAge  time.Duration
	batchSize int
	logger    *slog.Logger
}

func NewReaper(
	ledger ports.TransactionLedger,
	interval time.Duration,
	staleAge time.Duration,
	batchSize int,
	logger *slog.Logger,
) *Reaper {
	return &Reaper{
		ledger:    ledger,
		interval:  interval,
		staleAge:  staleAge,
		batchSize: batchSize,
		logger:    logger,
	}
}

// Start runs the sweep loop until ctx is cancelled.
func (w *Reaper) Start(ctx context.Context) {
	w.logger.Info("reaper started", "interval", w.interval, "stale_age", w.staleAge)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	if err := w.sweep(ctx); err != nil {
		w.logger.Error("reaper sweep failed", "error", err)
	}

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("reaper stopping")
			return
		case <-ticker.C:
			if err := w.sweep(ctx); err != nil {
				w.logger.Error("reaper sweep failed", "error", err)
			}
		}
	}
}

func (w *Reaper) sweep(ctx context.Context) error {
	cutoff := time.Now().Add(-w.staleAge)

	stale, err := w.ledger.FindStale(ctx, cutoff, w.batchSize)
	if err != nil {
		return err
	}
	if len(stale) == 0 {
		return nil
	}

	var failed, raced int
	for _, txn := range stale {
		if err := w.reap(ctx, txn); err != nil {
			// Losing the CAS to a still-live pipeline means the row is in
			// good hands after all.
			if domain.IsKind(err, domain.KindConflictInProgress) {
				raced++
				continue
			}
			w.logger.Error("failed to reap transaction",
				"unique_id", txn.UniqueID,
				"status", txn.Status,
				"error", err)
			continue
		}
		failed++
	}

	w.logger.Info("reaper sweep done",
		"scanned", len(stale),
		"failed", failed,
		"raced", raced)
	return nil
}

func (w *Reaper) reap(ctx context.Context, txn *domain.Transaction) error {
	kind := stuckKind(txn.Status)

	env := wire.NewErrorEnvelope(
		strconv.Itoa(kind.HTTPStatus()),
		"Transaction timed out during processing",
		routeOf(txn.RequestPayload),
		"",
	)
	payload, err := env.Encode()
	if err != nil {
		return err
	}

	_, err = w.ledger.Advance(ctx, txn.UniqueID, txn.Status, domain.StatusFailed, domain.TransactionUpdate{
		ResponsePayload: payload,
		FailureKind:     &kind,
	})
	return err
}

// stuckKind names the failure by the stage the transaction never left.
func stuckKind(status domain.TransactionStatus) domain.ErrorKind {
	switch status {
	case domain.StatusReceived:
		return domain.KindProcedureError
	case domain.StatusProcedureResolved:
		return domain.KindUpstreamUnavailable
	default:
		return domain.KindNormalizationError
	}
}

// routeOf recovers f002 from the stored request for the error envelope's
// command field. Best effort; an empty command is acceptable.
func routeOf(requestPayload json.RawMessage) string {
	var fields map[string]string
	if err := json.Unmarshal(requestPayload, &fields); err != nil {
		return ""
	}
	return fields[wire.FieldRoute]
}
