package usecase

import (
	"context"
	"fmt"

	"FinFuzz/internal/domain/models"
	domrepo "FinFuzz/internal/domain/repository"
	xlogger "FinFuzz/pkg/logger"
)

// SignalRefresher recomputes a symbol's latest signal after new candles land and
// pushes it to every configured sink. Persist, publish and broadcast are best effort
// once the signal itself has been computed.
type SignalRefresher struct {
	ed      *ExcessDemandUseCase
	store   domrepo.SignalStore
	pub     domrepo.SignalPublisher
	hub     domrepo.SignalBroadcaster
	metrics domrepo.Metrics
	l       *xlogger.Logger
}

func NewSignalRefresher(ed *ExcessDemandUseCase, store domrepo.SignalStore, pub domrepo.SignalPublisher, hub domrepo.SignalBroadcaster, metrics domrepo.Metrics, l *xlogger.Logger) *SignalRefresher {
	return &SignalRefresher{ed: ed, store: store, pub: pub, hub: hub, metrics: metrics, l: l}
}

func (r *SignalRefresher) Refresh(ctx context.Context, symbol string, period domrepo.Period) (models.Signal, error) {
	sig, err := r.ed.Latest(ctx, SeriesParams{Symbol: symbol, Period: period})
	if err != nil {
		return models.Signal{}, fmt.Errorf("refresh %s: %w", symbol, err)
	}
	if r.store != nil {
		if err := r.store.SaveSignal(ctx, sig); err != nil {
			r.fail("signal_store", symbol, err)
		}
	}
	if r.pub != nil {
		if err := r.pub.PublishSignal(ctx, sig); err != nil {
			r.fail("signal_publish", symbol, err)
		}
	}
	if r.hub != nil {
		r.hub.Broadcast(sig)
	}
	if r.l != nil {
		r.l.Debug("signal refreshed",
			xlogger.String("symbol", symbol),
			xlogger.String("period", string(period)),
			xlogger.Float64("x", sig.X),
			xlogger.Float64("signal", sig.Signal),
		)
	}
	return sig, nil
}

func (r *SignalRefresher) fail(kind, symbol string, err error) {
	if r.metrics != nil {
		r.metrics.RecordError(kind)
	}
	if r.l != nil {
		r.l.Warn("signal sink failed", xlogger.String("sink", kind), xlogger.String("symbol", symbol), xlogger.Error(err))
	}
}
