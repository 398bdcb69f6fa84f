package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
)

const cursorKey = "bsky_cursor"

// GetCursor returns the last checkpointed firehose sequence number. ok is
// false when no cursor has ever been saved, in which case consumption
// starts from the relay's current head.
func (d *DB) GetCursor(ctx context.Context) (seq int64, ok bool, err error) {
	var value string
	err = d.QueryRowContext(
		ctx,
		`select value from app_state where key = ?`,
		cursorKey,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to get cursor: %w", err)
	}

	seq, err = strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("malformed cursor value %q: %w", value, err)
	}
	return seq, true, nil
}

// SaveCursor checkpoints the firehose sequence number.
func (d *DB) SaveCursor(ctx context.Context, seq int64) error {
	_, err := d.ExecContext(
		ctx,
		`insert into app_state (key, value)
		values (?, ?)
		on conflict (key) do update set value = excluded.value`,
		cursorKey,
		strconv.FormatInt(seq, 10),
	)
	if err != nil {
		return fmt.Errorf("failed to save cursor: %w", err)
	}
	return nil
}
