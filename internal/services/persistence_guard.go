package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pulseesg/backend/internal/logger"
	"github.com/pulseesg/backend/internal/metrics"
	"github.com/pulseesg/backend/internal/models"
	"github.com/pulseesg/backend/internal/repository"
	"github.com/sirupsen/logrus"
)

// AuditStore saves audit records. Save must return an error wrapping
// repository.ErrPayloadColumnUnavailable when the failure is caused by the
// payload column.
type AuditStore interface {
	Save(ctx context.Context, rec *models.ESGAnalysis) error
}

// PersistenceGuard writes audit records without ever failing the caller.
// Whether the payload column is written at all is decided once, at
// construction, from the startup probe.
type PersistenceGuard struct {
	store          AuditStore
	payloadEnabled bool
	clock          func() time.Time
	metrics        *metrics.Metrics
}

type GuardOption func(*PersistenceGuard)

func WithClock(clock func() time.Time) GuardOption {
	return func(g *PersistenceGuard) { g.clock = clock }
}

func WithGuardMetrics(m *metrics.Metrics) GuardOption {
	return func(g *PersistenceGuard) { g.metrics = m }
}

func NewPersistenceGuard(store AuditStore, payloadEnabled bool, opts ...GuardOption) *PersistenceGuard {
	g := &PersistenceGuard{
		store:          store,
		payloadEnabled: payloadEnabled,
		clock:          time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	if !payloadEnabled {
		logger.Warn("Audit payload column not provisioned; analyses are stored without payload", map[string]interface{}{
			"component": "persistence_guard",
			"column":    models.PayloadColumn,
		})
	}
	return g
}

// PayloadEnabled reports the startup probe result.
func (g *PersistenceGuard) PayloadEnabled() bool {
	return g.payloadEnabled
}

// Persist saves a copy of draft. On success it returns the store-assigned
// creation time. If only the payload column is at fault the record is saved
// once more without payload. Any other failure, including a panic in the
// store, yields saved=false and the current time.
func (g *PersistenceGuard) Persist(ctx context.Context, draft *models.ESGAnalysis) (bool, time.Time) {
	log := logger.WithCompany(draft.CompanyID, "").WithField("component", "persistence_guard")

	rec := *draft
	rec.ID = 0
	rec.CreatedAt = time.Time{}
	if !g.payloadEnabled {
		rec.AnalysisPayload = nil
	}

	err := g.save(ctx, &rec)
	if err == nil {
		if rec.AnalysisPayload == nil {
			g.metrics.RecordPersist(metrics.PersistNoPayload)
		} else {
			g.metrics.RecordPersist(metrics.PersistSaved)
		}
		draft.ID = rec.ID
		return true, g.stamp(rec.CreatedAt)
	}

	if errors.Is(err, repository.ErrPayloadColumnUnavailable) && rec.AnalysisPayload != nil {
		log.WithError(err).Warn("Payload column unavailable, saving analysis without payload")

		retry := *draft
		retry.ID = 0
		retry.CreatedAt = time.Time{}
		retry.AnalysisPayload = nil

		if err = g.save(ctx, &retry); err == nil {
			g.metrics.RecordPersist(metrics.PersistNoPayload)
			draft.ID = retry.ID
			return true, g.stamp(retry.CreatedAt)
		}
	}

	g.metrics.RecordPersist(metrics.PersistDegraded)
	log.WithFields(logrus.Fields{
		"kind":  KindPersistenceDegraded,
		"error": err.Error(),
	}).Error("Could not save analysis; returning result without audit record")
	return false, g.clock()
}

func (g *PersistenceGuard) save(ctx context.Context, rec *models.ESGAnalysis) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("audit store panicked: %v", r)
		}
	}()
	return g.store.Save(ctx, rec)
}

func (g *PersistenceGuard) stamp(ts time.Time) time.Time {
	if ts.IsZero() {
		return g.clock()
	}
	return ts
}
