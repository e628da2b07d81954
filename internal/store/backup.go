package store

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// BackupTables lists every backed up table, parents before children.
var BackupTables = []string{
	"camps",
	"delegates",
	"families",
	"individuals",
	"aid_parcels",
	"aid_deliveries",
	"notifications",
}

type BackupRepository struct {
	pool *pgxpool.Pool
}

func NewBackupRepository(pool *pgxpool.Pool) *BackupRepository {
	return &BackupRepository{pool: pool}
}

// Dump returns every row of tableName as column -> value maps.
func (r *BackupRepository) Dump(ctx context.Context, tableName string) ([]map[string]any, error) {
	if !slices.Contains(BackupTables, tableName) {
		return nil, fmt.Errorf("table %s is not part of the backup set", tableName)
	}

	query, args, err := psql().Select("*").From(table(tableName)).OrderBy("created_at ASC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate dump query for %s: %w", tableName, err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to dump %s: %w", tableName, err)
	}

	out, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return nil, fmt.Errorf("failed to collect %s rows: %w", tableName, err)
	}

	return out, nil
}

// Replace swaps the content of every backed up table for data inside one
// transaction: children are emptied first and parents are filled first.
// Tables missing from data end up empty.
func (r *BackupRepository) Replace(ctx context.Context, data map[string][]map[string]any) error {

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin restore transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for i := len(BackupTables) - 1; i >= 0; i-- {
		query, args, err := psql().Delete(table(BackupTables[i])).ToSql()
		if err != nil {
			return fmt.Errorf("failed to generate delete query for %s: %w", BackupTables[i], err)
		}
		if _, err := tx.Exec(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to clear %s: %w", BackupTables[i], err)
		}
	}

	for _, name := range BackupTables {
		rows := data[name]
		if len(rows) == 0 {
			continue
		}

		payload, err := json.Marshal(rows)
		if err != nil {
			return fmt.Errorf("failed to encode %s rows: %w", name, err)
		}

		// Postgres coerces each JSON value to the column's own type.
		query := fmt.Sprintf(
			"INSERT INTO %[1]s SELECT * FROM jsonb_populate_recordset(NULL::%[1]s, $1::jsonb)",
			table(name),
		)
		if _, err := tx.Exec(ctx, query, payload); err != nil {
			return fmt.Errorf("failed to restore %s: %w", name, err)
		}
	}

	return tx.Commit(ctx)
}
