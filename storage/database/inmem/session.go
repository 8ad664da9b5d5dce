package inmemdb

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/confradar/core/wizard"
)

type sessionRepository struct {
	db *sessionTable
}

func NewSessionRepository(db *DB) wizard.Repository {
	return &sessionRepository{db: db.session}
}

func (repo *sessionRepository) Save(_ context.Context, snap wizard.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return errors.Wrap(err, "encoding snapshot")
	}

	repo.db.Lock()
	defer repo.db.Unlock()
	repo.db.table[snap.ID] = sessionRow{data: data, updatedAt: snap.UpdatedAt}
	return nil
}

func (repo *sessionRepository) Get(_ context.Context, id string) (wizard.Snapshot, error) {
	repo.db.RLock()
	row, ok := repo.db.table[id]
	repo.db.RUnlock()
	if !ok {
		return wizard.Snapshot{}, wizard.ErrSessionNotFound
	}
	return decode(row)
}

func decode(row sessionRow) (wizard.Snapshot, error) {
	var snap wizard.Snapshot
	if err := json.Unmarshal(row.data, &snap); err != nil {
		return wizard.Snapshot{}, errors.Wrap(err, "decoding snapshot")
	}
	return snap, nil
}

func (repo *sessionRepository) Delete(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	delete(repo.db.table, id)
	return nil
}

// List returns the snapshots, most recently updated first.
func (repo *sessionRepository) List(_ context.Context) ([]wizard.Snapshot, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	snaps := make([]wizard.Snapshot, 0, len(repo.db.table))
	for _, row := range repo.db.table {
		snap, err := decode(row)
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, snap)
	}
	sort.Slice(snaps, func(i, j int) bool { return snaps[i].UpdatedAt.After(snaps[j].UpdatedAt) })
	return snaps, nil
}

func (repo *sessionRepository) DeleteIdle(_ context.Context, before time.Time) (int, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	var count int
	for id, row := range repo.db.table {
		if row.updatedAt.Before(before) {
			delete(repo.db.table, id)
			count++
		}
	}
	return count, nil
}
