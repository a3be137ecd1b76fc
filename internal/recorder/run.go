package recorder

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"citygrid/internal/model"
)

type RunRow struct {
	ID        string               `json:"id"`
	StartedAt time.Time            `json:"started_at"`
	Seed      uint64               `json:"seed"`
	Config    model.CapacityConfig `json:"config"`
}

func NewRun(seed uint64, cfg model.CapacityConfig) RunRow {
	return RunRow{
		ID:        uuid.NewString(),
		StartedAt: time.Now().UTC(),
		Seed:      seed,
		Config:    cfg,
	}
}

func (d *Database) SaveRun(ctx context.Context, r RunRow) error {
	cfg, err := json.Marshal(r.Config)
	if err != nil {
		return fmt.Errorf("encoding run config: %w", err)
	}
	_, err = d.write.ExecContext(ctx, `
		INSERT INTO run (id, started_at, seed, config)
		VALUES (?, ?, ?, ?)`,
		r.ID,
		r.StartedAt.UTC().Format(time.RFC3339),
		int64(r.Seed),
		string(cfg))
	if err != nil {
		return fmt.Errorf("saving run %s: %w", r.ID, err)
	}
	return nil
}

// GetRuns returns every recorded run, newest first.
func (d *Database) GetRuns(ctx context.Context) ([]RunRow, error) {
	rows, err := d.read.QueryContext(ctx, `
		SELECT id, started_at, seed, config
		FROM run
		ORDER BY started_at DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("fetching runs: %w", err)
	}
	defer rows.Close()

	var runs []RunRow
	for rows.Next() {
		var r RunRow
		var startedAt, cfg string
		var seed int64
		if err := rows.Scan(&r.ID, &startedAt, &seed, &cfg); err != nil {
			return nil, err
		}
		r.Seed = uint64(seed)
		if r.StartedAt, err = time.Parse(time.RFC3339, startedAt); err != nil {
			return nil, fmt.Errorf("parsing started_at: %w", err)
		}
		if err := json.Unmarshal([]byte(cfg), &r.Config); err != nil {
			return nil, fmt.Errorf("decoding run config: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
