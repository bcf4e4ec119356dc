package kvstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/safar/stockbook/internal/database"
)

// Postgres stores entries in the kv_entries table (see migrations/).
type Postgres struct {
	db     *sql.DB
	prefix string
	opts   database.TxOptions
}

func NewPostgres(db *sql.DB, prefix string) *Postgres {
	return &Postgres{
		db:     db,
		prefix: prefix,
		opts:   database.BatchTxOptions(),
	}
}

func (p *Postgres) Load(ctx context.Context, key string) ([]byte, error) {
	var value []byte

	err := p.db.QueryRowContext(ctx,
		`SELECT value FROM kv_entries WHERE key = $1`,
		p.prefix+key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load %s: %w", key, err)
	}

	return value, nil
}

func (p *Postgres) SaveAll(ctx context.Context, entries map[string][]byte) error {
	// fixed key order keeps row locks ordered across concurrent writers
	keys := make([]string, 0, len(entries))
	for key := range entries {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	return database.WithRetry(ctx, p.db, p.opts, func(tx *sql.Tx) error {
		for _, key := range keys {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO kv_entries (key, value, updated_at)
				 VALUES ($1, $2::jsonb, NOW())
				 ON CONFLICT (key) DO UPDATE
				 SET value = EXCLUDED.value,
				     updated_at = NOW()`,
				p.prefix+key, string(entries[key]))
			if err != nil {
				return fmt.Errorf("save %s: %w", key, err)
			}
		}
		return nil
	})
}

func (p *Postgres) Close() error {
	return p.db.Close()
}
