package sqlxrepos

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/confradar/core/wizard"
)

// sessionRow is a row of the wizard_sessions table. The snapshot column is authoritative,
// the other columns exist for listing and purging.
type sessionRow struct {
	ID           string      `db:"id"`
	Owner        string      `db:"owner"`
	Mode         string      `db:"mode"`
	ConferenceID null.String `db:"conference_id"`
	Snapshot     []byte      `db:"snapshot"`
	CreatedAt    time.Time   `db:"created_at"`
	UpdatedAt    time.Time   `db:"updated_at"`
}

const (
	upsertSession = `
INSERT INTO wizard_sessions (id, owner, mode, conference_id, snapshot, created_at, updated_at)
VALUES (:id, :owner, :mode, :conference_id, :snapshot, :created_at, :updated_at)
ON CONFLICT (id) DO UPDATE SET
    conference_id = EXCLUDED.conference_id,
    snapshot = EXCLUDED.snapshot,
    updated_at = EXCLUDED.updated_at`

	selectSessions = `SELECT id, owner, mode, conference_id, snapshot, created_at, updated_at FROM wizard_sessions`
)

type sessionRepository struct {
	db *sqlx.DB
}

func NewSessionRepository(db *sqlx.DB) wizard.Repository {
	return &sessionRepository{db: db}
}

func (repo *sessionRepository) Save(ctx context.Context, snap wizard.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return errors.Wrap(err, "encoding snapshot")
	}
	row := sessionRow{
		ID:           snap.ID,
		Owner:        snap.Owner,
		Mode:         string(snap.Mode),
		ConferenceID: null.NewString(snap.ConferenceID, snap.ConferenceID != ""),
		Snapshot:     data,
		CreatedAt:    snap.CreatedAt,
		UpdatedAt:    snap.UpdatedAt,
	}
	if _, err = repo.db.NamedExecContext(ctx, upsertSession, row); err != nil {
		return errors.Wrap(err, "saving session")
	}
	return nil
}

func (repo *sessionRepository) Get(ctx context.Context, id string) (wizard.Snapshot, error) {
	var row sessionRow
	if err := repo.db.GetContext(ctx, &row, selectSessions+` WHERE id = $1`, id); err != nil {
		if errors.Cause(err) == sql.ErrNoRows {
			return wizard.Snapshot{}, wizard.ErrSessionNotFound
		}
		return wizard.Snapshot{}, errors.Wrap(err, "selecting session")
	}
	return row.decode()
}

func (row sessionRow) decode() (wizard.Snapshot, error) {
	var snap wizard.Snapshot
	if err := json.Unmarshal(row.Snapshot, &snap); err != nil {
		return wizard.Snapshot{}, errors.Wrapf(err, "decoding session %s", row.ID)
	}
	snap.ConferenceID = row.ConferenceID.String
	return snap, nil
}

func (repo *sessionRepository) Delete(ctx context.Context, id string) error {
	if _, err := repo.db.ExecContext(ctx, `DELETE FROM wizard_sessions WHERE id = $1`, id); err != nil {
		return errors.Wrap(err, "deleting session")
	}
	return nil
}

// List returns the snapshots, most recently updated first.
func (repo *sessionRepository) List(ctx context.Context) ([]wizard.Snapshot, error) {
	var rows []sessionRow
	if err := repo.db.SelectContext(ctx, &rows, selectSessions+` ORDER BY updated_at DESC`); err != nil {
		return nil, errors.Wrap(err, "selecting sessions")
	}
	snaps := make([]wizard.Snapshot, 0, len(rows))
	for _, row := range rows {
		snap, err := row.decode()
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, snap)
	}
	return snaps, nil
}

func (repo *sessionRepository) DeleteIdle(ctx context.Context, before time.Time) (int, error) {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM wizard_sessions WHERE updated_at < $1`, before)
	if err != nil {
		return 0, errors.Wrap(err, "deleting idle sessions")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "counting deleted sessions")
	}
	return int(n), nil
}
