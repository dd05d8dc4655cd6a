package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// LoadBlob returns the value stored under key. The bool is false when the key
// is absent.
func (d *Database) LoadBlob(ctx context.Context, key string) ([]byte, bool, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, false, errors.New("blob key is empty")
	}

	query := "select value from blobs where key = ?"

	var value []byte
	err := d.db.QueryRowContext(ctx, query, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to scan row: %w", err)
	}

	return value, true, nil
}

func (d *Database) SaveBlob(ctx context.Context, key string, value []byte) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("blob key is empty")
	}

	if value == nil {
		value = []byte{}
	}

	query := `insert into blobs (key, value, updated_at)
	values (?, ?, current_timestamp)
	on conflict (key) do update
	set value = excluded.value,
	updated_at = excluded.updated_at`

	_, err := d.db.ExecContext(ctx, query, key, value)

	return err
}
