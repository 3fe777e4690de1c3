package db

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/uptrace/bun"

	"ms-payanyway/internal/models"
)

type DB struct {
	Bun *bun.DB
}

// GetOrderByGUID → fetch one order by its correlation identifier. The GUID is
// stored lowercase, so the lookup normalizes first.
func (d *DB) GetOrderByGUID(ctx context.Context, guid string) (*models.Order, error) {
	var order models.Order
	err := d.Bun.NewSelect().
		Model(&order).
		Where("order_id = ?", strings.ToLower(guid)).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// UpdateOrder → update the payment transition fields
func (d *DB) UpdateOrder(ctx context.Context, order models.Order) error {
	_, err := d.Bun.NewUpdate().
		Model(&order).
		Column("status", "payment_status", "paid_at").
		Where("order_id = ?", order.OrderID).
		Exec(ctx)
	return err
}

// CreateOrder → insert new order
func (d *DB) CreateOrder(ctx context.Context, order models.Order) error {
	_, err := d.Bun.NewInsert().Model(&order).Exec(ctx)
	return err
}

// InsertOrderNote → append one audit note to an order
func (d *DB) InsertOrderNote(ctx context.Context, note models.OrderNote) error {
	_, err := d.Bun.NewInsert().Model(&note).Exec(ctx)
	return err
}

// GetOrderNotes → fetch all notes for an order, oldest first
func (d *DB) GetOrderNotes(ctx context.Context, orderID string) ([]models.OrderNote, error) {
	var notes []models.OrderNote
	err := d.Bun.NewSelect().
		Model(&notes).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return notes, nil
}
