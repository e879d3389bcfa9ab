package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/atelierdevis/devis-gateway/internal/model"
)

// OrdersRepository defines persistence for the orders table (insert-only).
type OrdersRepository interface {
	Insert(ctx context.Context, o model.Order) error
}

type OrdersRepositoryImpl struct {
	db *sqlx.DB
}

func NewOrdersRepository(db *sqlx.DB) *OrdersRepositoryImpl {
	return &OrdersRepositoryImpl{db: db}
}

// Insert creates one pending order row. Empty optional fields are stored as
// NULL; an empty attachment list is stored as NULL, not "[]".
func (r *OrdersRepositoryImpl) Insert(ctx context.Context, o model.Order) error {
	const q = `
		INSERT INTO orders
		    (id, name, address, zip_code, city, message, attachements, status, created_at)
		VALUES
		    (?,  ?,    ?,       ?,        ?,    ?,       ?,            ?,      NOW())
	`
	_, err := r.db.ExecContext(ctx, q,
		o.ID, o.Name, o.Address, o.ZipCode, o.City, o.Message, o.Attachements, o.Status.String(),
	)
	return err
}
