package emission

import (
	"context"
	"log/slog"

	coreemission "agourmet/ms_dte_bridge/internal/core/emission"
)

// Guard keeps at most one document per order and namespace, on a best-effort
// basis. Store failures never block an emission: a failed lookup counts as
// "not emitted" and a failed write is only logged.
type Guard struct {
	store coreemission.Store
	log   *slog.Logger
}

// NewGuard creates a guard. A nil store disables it.
func NewGuard(store coreemission.Store, log *slog.Logger) *Guard {
	return &Guard{store: store, log: log}
}

// Lookup returns the record of a previous emission, or nil.
func (g *Guard) Lookup(ctx context.Context, orderID, namespace string) *coreemission.Record {
	if g == nil || g.store == nil {
		return nil
	}

	rec, err := g.store.Get(ctx, orderID, namespace)
	if err != nil {
		g.log.Warn("emission lookup failed, proceeding as not emitted",
			"order_id", orderID,
			"namespace", namespace,
			"error", err,
		)
		return nil
	}
	if rec == nil || rec.Folio == "" {
		return nil
	}
	return rec
}

// Remember records a successful emission.
func (g *Guard) Remember(ctx context.Context, orderID, namespace string, rec coreemission.Record) {
	if g == nil || g.store == nil {
		return
	}

	if err := g.store.Put(ctx, orderID, namespace, rec); err != nil {
		g.log.Error("failed to record emission",
			"order_id", orderID,
			"namespace", namespace,
			"folio", rec.Folio,
			"error", err,
		)
		return
	}

	g.log.Debug("emission recorded",
		"order_id", orderID,
		"namespace", namespace,
		"folio", rec.Folio,
	)
}
