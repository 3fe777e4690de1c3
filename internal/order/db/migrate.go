package db

import (
	"context"
	"log"

	"github.com/uptrace/bun"

	"ms-payanyway/internal/models"
)

// Migrate creates the tables this service owns. Dev convenience; production
// deployments run the file-based migrations instead.
func Migrate(db *bun.DB) {
	ctx := context.Background()

	tables := []interface{}{
		(*models.Order)(nil),
		(*models.OrderNote)(nil),
		(*models.Setting)(nil),
	}

	for _, model := range tables {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			log.Fatalf("create table failed: %v", err)
		}
	}

	log.Println("orders, order_notes and settings tables ready")
}
