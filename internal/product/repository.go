package product

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("product not found")

// DBPool matches the methods from *pgxpool.Pool and *pgxpool.Conn that we use.
// This allows us to mock the database in tests.
type DBPool interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Repository interface {
	Get(ctx context.Context, productID int) (Product, error)
	ApplyStockUpdate(ctx context.Context, productID, newQuantity int) (Product, error)
}

type PostgresRepository struct {
	pool DBPool
}

func NewPostgresRepository(pool DBPool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const productColumns = `id, name, image_url, price, description, quantity, created_at, last_updated_at`

func (r *PostgresRepository) Get(ctx context.Context, productID int) (Product, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id=$1`, productID)
	return scanProduct(row)
}

// ApplyStockUpdate sets the absolute stock quantity of a product. Applying the
// same quantity twice leaves the row in the same state.
func (r *PostgresRepository) ApplyStockUpdate(ctx context.Context, productID, newQuantity int) (Product, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE products
		SET quantity=$2, last_updated_at=now()
		WHERE id=$1
		RETURNING `+productColumns,
		productID, newQuantity,
	)
	return scanProduct(row)
}

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Name, &p.ImageURL, &p.Price, &p.Description, &p.Quantity, &p.CreatedAt, &p.LastUpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, ErrNotFound
		}
		return Product{}, err
	}
	return p, nil
}

// AcquireRepository checks a dedicated connection out of the pool and returns a
// repository bound to it. The caller must invoke release when done.
func AcquireRepository(ctx context.Context, pool *pgxpool.Pool) (*PostgresRepository, func(), error) {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("acquire connection: %w", err)
	}
	return NewPostgresRepository(conn), conn.Release, nil
}
