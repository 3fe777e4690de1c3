package db

import (
	"context"
	"database/sql"
	"errors"

	"github.com/uptrace/bun"

	"ms-payanyway/internal/models"
)

type DB struct {
	Bun *bun.DB
}

// LoadAll → every setting row of one store scope as a name/value map
func (d *DB) LoadAll(ctx context.Context, storeID int) (map[string]string, error) {
	var rows []models.Setting
	err := d.Bun.NewSelect().
		Model(&rows).
		Where("store_id = ?", storeID).
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	out := make(map[string]string, len(rows))
	for _, row := range rows {
		out[row.Name] = row.Value
	}
	return out, nil
}

// Exists → whether a setting is present at the given store scope
func (d *DB) Exists(ctx context.Context, storeID int, name string) (bool, error) {
	count, err := d.Bun.NewSelect().
		Model((*models.Setting)(nil)).
		Where("store_id = ? AND name = ?", storeID, name).
		Count(ctx)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Upsert → update the row in place or insert it. Update-then-insert keeps the
// query portable between the postgres runtime and the sqlite test dialect.
func (d *DB) Upsert(ctx context.Context, storeID int, name, value string) error {
	res, err := d.Bun.NewUpdate().
		Model((*models.Setting)(nil)).
		Set("value = ?", value).
		Where("store_id = ? AND name = ?", storeID, name).
		Exec(ctx)
	if err != nil {
		return err
	}
	if affected, err := res.RowsAffected(); err == nil && affected > 0 {
		return nil
	}

	setting := models.Setting{StoreID: storeID, Name: name, Value: value}
	_, err = d.Bun.NewInsert().Model(&setting).Exec(ctx)
	return err
}

// Delete → remove one setting at one store scope; absent rows are fine
func (d *DB) Delete(ctx context.Context, storeID int, name string) error {
	_, err := d.Bun.NewDelete().
		Model((*models.Setting)(nil)).
		Where("store_id = ? AND name = ?", storeID, name).
		Exec(ctx)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return err
	}
	return nil
}

// DeleteByPrefix → remove a setting family across all store scopes
func (d *DB) DeleteByPrefix(ctx context.Context, prefix string) error {
	_, err := d.Bun.NewDelete().
		Model((*models.Setting)(nil)).
		Where("name LIKE ?", prefix+"%").
		Exec(ctx)
	return err
}
