package lifecycle

import (
	"context"
	"log/slog"
	"time"

	"github.com/fieldcert/fieldcert/internal/cert"
)

// BatchParams are the producer-supplied attributes of a new batch.
type BatchParams struct {
	ProducerID  string
	Product     string
	Quantity    int64
	Unit        string
	Origin      string
	HarvestDate time.Time
}

// Registrar registers new batches and submits them into the claimable pool.
type Registrar struct {
	store   cert.Store
	machine *Machine
	ids     cert.TokenGenerator
	now     func() time.Time
	logger  *slog.Logger
}

// NewRegistrar creates a Registrar driving the given machine.
func NewRegistrar(store cert.Store, machine *Machine, ids cert.TokenGenerator, now func() time.Time, logger *slog.Logger) *Registrar {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Registrar{store: store, machine: machine, ids: ids, now: now, logger: logger}
}

// SubmitBatch registers a draft batch and immediately submits it.
// The tracking token is derived from the batch id and is the handle producers
// share with buyers.
func (r *Registrar) SubmitBatch(ctx context.Context, p BatchParams) (cert.Batch, error) {
	id := r.ids.Generate()
	b := cert.Batch{
		ID:            id,
		ProducerID:    p.ProducerID,
		Product:       p.Product,
		Quantity:      p.Quantity,
		Unit:          p.Unit,
		Origin:        p.Origin,
		HarvestDate:   p.HarvestDate,
		TrackingToken: cert.TrackingToken(id),
		Status:        cert.BatchDraft,
		CreatedAt:     r.now(),
	}

	if err := r.store.InsertBatch(ctx, b); err != nil {
		return cert.Batch{}, err
	}
	if err := r.machine.Apply(ctx, b.ID, EventSubmit); err != nil {
		return cert.Batch{}, err
	}
	b.Status = cert.BatchSubmitted

	r.logger.Info("batch submitted",
		"batch", b.ID, "token", b.TrackingToken, "producer", p.ProducerID)
	return b, nil
}
