package service

import (
	"errors"

	"github.com/sitekit/nudge/internal/domain"
	"github.com/sitekit/nudge/internal/logging"
)

// Migrator rewrites legacy task identities to the canonical encoding. It is
// an explicit one-way pass, never run lazily during evaluation; identities
// that cannot be decoded at all are left untouched as opaque history.
type Migrator struct {
	store  TaskStore
	logger logging.Logger
}

func NewMigrator(store TaskStore, logger logging.Logger) *Migrator {
	return &Migrator{store: store, logger: logger.WithComponent("migrator")}
}

type MigrationReport struct {
	Scanned   int `json:"scanned"`
	Rewritten int `json:"rewritten"`
	Opaque    int `json:"opaque"`
}

func (m *Migrator) Run() (MigrationReport, error) {
	var report MigrationReport

	records, err := m.store.List(domain.TaskFilter{})
	if err != nil {
		return report, err
	}

	for _, rec := range records {
		report.Scanned++
		if rec.ID.Canonical() {
			continue
		}

		providerID, tctx, err := domain.DecodeIdentity(rec.ID)
		if err != nil {
			report.Opaque++
			m.logger.Warn("identity not decodable, left as history", "id", rec.ID)
			continue
		}
		canonical, err := domain.EncodeIdentity(providerID, tctx)
		if err != nil {
			report.Opaque++
			m.logger.Warn("identity not re-encodable, left as history", "id", rec.ID, "error", err)
			continue
		}

		rewritten := *rec
		rewritten.ID = canonical
		if err := m.store.Create(&rewritten); err != nil {
			if !errors.Is(err, domain.ErrTaskExists) {
				return report, err
			}
			// Canonical twin already exists (an earlier partial run);
			// drop the legacy duplicate.
		}
		if err := m.store.Delete(rec.ID); err != nil && !errors.Is(err, domain.ErrTaskNotFound) {
			return report, err
		}
		report.Rewritten++
		m.logger.Info("identity rewritten", "from", rec.ID, "to", canonical)
	}
	return report, nil
}
