package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/rl1809/storefront/internal/core/domain"
)

//go:embed migrations/*.sql
var migrations embed.FS

// SQLAdapter serves the catalog and records orders. The statements are
// portable between the mysql and sqlite drivers.
type SQLAdapter struct {
	db     *sql.DB
	driver string
}

// NewSQLAdapter wraps db opened with driver, either "mysql" or "sqlite".
func NewSQLAdapter(db *sql.DB, driver string) *SQLAdapter {
	return &SQLAdapter{db: db, driver: driver}
}

// Migrate applies the embedded migrations. Running it on an up-to-date
// database is a no-op.
func (m *SQLAdapter) Migrate() error {
	var (
		target database.Driver
		err    error
	)
	switch m.driver {
	case "mysql":
		target, err = mysql.WithInstance(m.db, &mysql.Config{})
	case "sqlite":
		target, err = sqlite.WithInstance(m.db, &sqlite.Config{})
	default:
		return fmt.Errorf("migrate: unsupported driver %q", m.driver)
	}
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	source, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("could not open migrations: %w", err)
	}

	mg, err := migrate.NewWithInstance("iofs", source, m.driver, target)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if err := mg.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}
	return nil
}

// SeedCatalog inserts products and stock when the products table is empty.
// It reports whether anything was inserted.
func (m *SQLAdapter) SeedCatalog(ctx context.Context, products []domain.Product, stock []domain.Stock) (bool, error) {
	var count int
	if err := m.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`).Scan(&count); err != nil {
		return false, fmt.Errorf("count products: %w", err)
	}
	if count > 0 {
		return false, nil
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, p := range products {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO products (id, title, price, image) VALUES (?, ?, ?, ?)`,
			p.ID, p.Title, p.Price.StringFixed(2), p.Image,
		)
		if err != nil {
			return false, fmt.Errorf("insert product %d: %w", p.ID, err)
		}
	}
	for _, s := range stock {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO stock (product_id, amount) VALUES (?, ?)`,
			s.ID, s.Amount,
		)
		if err != nil {
			return false, fmt.Errorf("insert stock %d: %w", s.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit seed: %w", err)
	}
	return true, nil
}

func (m *SQLAdapter) ListProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT id, title, price, image FROM products ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Title, &p.Price, &p.Image); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (m *SQLAdapter) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	var p domain.Product
	err := m.db.QueryRowContext(ctx, `
		SELECT id, title, price, image FROM products WHERE id = ?`, id,
	).Scan(&p.ID, &p.Title, &p.Price, &p.Image)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query product: %w", err)
	}
	return &p, nil
}

func (m *SQLAdapter) ListStock(ctx context.Context) ([]domain.Stock, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT product_id, amount FROM stock ORDER BY product_id`)
	if err != nil {
		return nil, fmt.Errorf("query stock: %w", err)
	}
	defer rows.Close()

	var stocks []domain.Stock
	for rows.Next() {
		var s domain.Stock
		if err := rows.Scan(&s.ID, &s.Amount); err != nil {
			return nil, fmt.Errorf("scan stock: %w", err)
		}
		stocks = append(stocks, s)
	}
	return stocks, rows.Err()
}

func (m *SQLAdapter) GetStock(ctx context.Context, productID int64) (*domain.Stock, error) {
	var s domain.Stock
	err := m.db.QueryRowContext(ctx, `
		SELECT product_id, amount FROM stock WHERE product_id = ?`, productID,
	).Scan(&s.ID, &s.Amount)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query stock: %w", err)
	}
	return &s, nil
}

func (m *SQLAdapter) SetStock(ctx context.Context, productID int64, amount int) error {
	var query string
	switch m.driver {
	case "mysql":
		query = `INSERT INTO stock (product_id, amount) VALUES (?, ?)
			ON DUPLICATE KEY UPDATE amount = VALUES(amount)`
	case "sqlite":
		query = `INSERT INTO stock (product_id, amount) VALUES (?, ?)
			ON CONFLICT(product_id) DO UPDATE SET amount = excluded.amount`
	default:
		return fmt.Errorf("set stock: unsupported driver %q", m.driver)
	}

	if _, err := m.db.ExecContext(ctx, query, productID, amount); err != nil {
		return fmt.Errorf("upsert stock: %w", err)
	}
	return nil
}

// CreateOrder writes the order and its items in one transaction.
func (m *SQLAdapter) CreateOrder(ctx context.Context, order domain.Order) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (id, total, status, created_at)
		VALUES (?, ?, ?, ?)`,
		order.ID, order.Total.StringFixed(2), string(domain.OrderStatusPersisted), order.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for _, item := range order.Items {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_items (order_id, product_id, title, price, amount)
			VALUES (?, ?, ?, ?, ?)`,
			order.ID, item.ID, item.Title, item.Price.StringFixed(2), item.Amount,
		)
		if err != nil {
			return fmt.Errorf("insert order item %d: %w", item.ID, err)
		}
	}

	return tx.Commit()
}
