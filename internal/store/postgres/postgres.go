// Package postgres implements the Store contract on PostgreSQL using a
// pgx connection pool. Sale line items, payments, and courtesy items are
// stored as JSONB documents on the sale row; money columns are NUMERIC.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/mercurio-pos/api/internal/domain"
	"github.com/mercurio-pos/api/internal/store"
)

type Store struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, category, reference, serial, cost, price, stock, created_at
		FROM products
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 64)
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Category, &p.Reference, &p.Serial, &p.Cost, &p.Price, &p.Stock, &p.CreatedAt); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (s *Store) GetProduct(ctx context.Context, id uuid.UUID) (domain.Product, error) {
	var p domain.Product
	err := s.pool.QueryRow(ctx, `
		SELECT id, name, category, reference, serial, cost, price, stock, created_at
		FROM products
		WHERE id = $1
	`, id).Scan(&p.ID, &p.Name, &p.Category, &p.Reference, &p.Serial, &p.Cost, &p.Price, &p.Stock, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Product{}, store.ErrNotFound
		}
		return domain.Product{}, err
	}
	return p, nil
}

func (s *Store) CreateProduct(ctx context.Context, p domain.Product) (domain.Product, error) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO products (id, name, category, reference, serial, cost, price, stock)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`, p.ID, p.Name, p.Category, p.Reference, p.Serial, p.Cost, p.Price, p.Stock).Scan(&p.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Product{}, store.ErrDuplicate
		}
		return domain.Product{}, err
	}
	return p, nil
}

func (s *Store) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, phone, credit, created_at
		FROM customers
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	customers := make([]domain.Customer, 0, 64)
	for rows.Next() {
		var c domain.Customer
		if err := rows.Scan(&c.ID, &c.Name, &c.Phone, &c.Credit, &c.CreatedAt); err != nil {
			return nil, err
		}
		customers = append(customers, c)
	}
	return customers, rows.Err()
}

func (s *Store) GetCustomer(ctx context.Context, id uuid.UUID) (domain.Customer, error) {
	var c domain.Customer
	err := s.pool.QueryRow(ctx, `
		SELECT id, name, phone, credit, created_at
		FROM customers
		WHERE id = $1
	`, id).Scan(&c.ID, &c.Name, &c.Phone, &c.Credit, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Customer{}, store.ErrNotFound
		}
		return domain.Customer{}, err
	}
	return c, nil
}

func (s *Store) CreateCustomer(ctx context.Context, c domain.Customer) (domain.Customer, error) {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO customers (id, name, phone, credit)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`, c.ID, c.Name, c.Phone, c.Credit).Scan(&c.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Customer{}, store.ErrDuplicate
		}
		return domain.Customer{}, err
	}
	return c, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (domain.UserAccount, error) {
	var u domain.UserAccount
	err := s.pool.QueryRow(ctx, `
		SELECT id, email, name, password_hash, role, created_at
		FROM users
		WHERE lower(email) = lower($1)
	`, email).Scan(&u.ID, &u.Email, &u.Name, &u.Password, &u.Role, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.UserAccount{}, store.ErrNotFound
		}
		return domain.UserAccount{}, err
	}
	return u, nil
}

func (s *Store) GetUserByID(ctx context.Context, id uuid.UUID) (domain.UserAccount, error) {
	var u domain.UserAccount
	err := s.pool.QueryRow(ctx, `
		SELECT id, email, name, password_hash, role, created_at
		FROM users
		WHERE id = $1
	`, id).Scan(&u.ID, &u.Email, &u.Name, &u.Password, &u.Role, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.UserAccount{}, store.ErrNotFound
		}
		return domain.UserAccount{}, err
	}
	return u, nil
}

func (s *Store) CreateUser(ctx context.Context, u domain.UserAccount) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (id, email, name, password_hash, role)
		VALUES ($1, $2, $3, $4, $5)
	`, u.ID, u.Email, u.Name, u.Password, u.Role)
	if isUniqueViolation(err) {
		return store.ErrDuplicate
	}
	return err
}

// CreateSale runs the insert, the stock decrements, and the credit
// deduction in a single transaction. Stock and credit checks happen in
// the UPDATE predicates so concurrent finalizations cannot oversell.
func (s *Store) CreateSale(ctx context.Context, sale domain.Sale) (domain.Sale, error) {
	if sale.ID == uuid.Nil {
		sale.ID = uuid.New()
	}
	if sale.CreatedAt.IsZero() {
		sale.CreatedAt = time.Now()
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return domain.Sale{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	deltas := make(map[uuid.UUID]int32)
	for _, it := range sale.Items {
		deltas[it.ProductID] += it.Quantity
	}
	for _, ci := range sale.CourtesyItems {
		deltas[ci.ProductID] += ci.Quantity
	}
	for id, qty := range deltas {
		tag, err := tx.Exec(ctx, `
			UPDATE products SET stock = stock - $2
			WHERE id = $1 AND stock >= $2
		`, id, qty)
		if err != nil {
			return domain.Sale{}, fmt.Errorf("decrement stock: %w", err)
		}
		if tag.RowsAffected() == 0 {
			var exists bool
			if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM products WHERE id = $1)`, id).Scan(&exists); err != nil {
				return domain.Sale{}, err
			}
			if !exists {
				return domain.Sale{}, store.ErrNotFound
			}
			return domain.Sale{}, store.ErrInsufficientStock
		}
	}

	if sale.CreditApplied.IsPositive() {
		tag, err := tx.Exec(ctx, `
			UPDATE customers SET credit = credit - $2
			WHERE id = $1 AND credit >= $2
		`, sale.CustomerID, sale.CreditApplied)
		if err != nil {
			return domain.Sale{}, fmt.Errorf("deduct credit: %w", err)
		}
		if tag.RowsAffected() == 0 {
			var exists bool
			if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM customers WHERE id = $1)`, sale.CustomerID).Scan(&exists); err != nil {
				return domain.Sale{}, err
			}
			if !exists {
				return domain.Sale{}, store.ErrNotFound
			}
			return domain.Sale{}, store.ErrInsufficientCredit
		}
	}

	items, err := json.Marshal(sale.Items)
	if err != nil {
		return domain.Sale{}, fmt.Errorf("encode items: %w", err)
	}
	payments, err := json.Marshal(sale.Payments)
	if err != nil {
		return domain.Sale{}, fmt.Errorf("encode payments: %w", err)
	}
	courtesy, err := json.Marshal(sale.CourtesyItems)
	if err != nil {
		return domain.Sale{}, fmt.Errorf("encode courtesy: %w", err)
	}

	var customerID any
	if sale.CustomerID != uuid.Nil {
		customerID = sale.CustomerID
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO sales (
			id, sale_type, customer_id, items, payments, courtesy_items,
			subtotal, discount, total, total_cost, total_commissions,
			customer_surcharge, final_total, total_profit, profit_margin,
			credit_applied, real_profit, real_total_cost, created_at, created_by
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)
	`,
		sale.ID, sale.Type, customerID, items, payments, courtesy,
		sale.Subtotal, sale.Discount, sale.Total, sale.TotalCost, sale.TotalCommissions,
		sale.CustomerSurcharge, sale.FinalTotal, sale.TotalProfit, sale.ProfitMargin,
		sale.CreditApplied, sale.RealProfit, sale.RealTotalCost, sale.CreatedAt, sale.CreatedBy,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Sale{}, store.ErrDuplicate
		}
		return domain.Sale{}, fmt.Errorf("insert sale: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Sale{}, fmt.Errorf("commit: %w", err)
	}
	return sale, nil
}

const saleColumns = `
	id, sale_type, customer_id, items, payments, courtesy_items,
	subtotal, discount, total, total_cost, total_commissions,
	customer_surcharge, final_total, total_profit, profit_margin,
	credit_applied, real_profit, real_total_cost, created_at, created_by
`

type saleScanner interface {
	Scan(dest ...any) error
}

func scanSale(row saleScanner) (domain.Sale, error) {
	var (
		sale       domain.Sale
		customerID *uuid.UUID
		items      []byte
		payments   []byte
		courtesy   []byte
		realProfit sql.NullString
		realCost   sql.NullString
	)

	err := row.Scan(
		&sale.ID, &sale.Type, &customerID, &items, &payments, &courtesy,
		&sale.Subtotal, &sale.Discount, &sale.Total, &sale.TotalCost, &sale.TotalCommissions,
		&sale.CustomerSurcharge, &sale.FinalTotal, &sale.TotalProfit, &sale.ProfitMargin,
		&sale.CreditApplied, &realProfit, &realCost, &sale.CreatedAt, &sale.CreatedBy,
	)
	if err != nil {
		return domain.Sale{}, err
	}

	if customerID != nil {
		sale.CustomerID = *customerID
	}
	if err := json.Unmarshal(items, &sale.Items); err != nil {
		return domain.Sale{}, fmt.Errorf("decode items: %w", err)
	}
	if err := json.Unmarshal(payments, &sale.Payments); err != nil {
		return domain.Sale{}, fmt.Errorf("decode payments: %w", err)
	}
	if err := json.Unmarshal(courtesy, &sale.CourtesyItems); err != nil {
		return domain.Sale{}, fmt.Errorf("decode courtesy: %w", err)
	}
	if realProfit.Valid {
		d, err := decimal.NewFromString(realProfit.String)
		if err != nil {
			return domain.Sale{}, fmt.Errorf("decode real profit: %w", err)
		}
		sale.RealProfit = &d
	}
	if realCost.Valid {
		d, err := decimal.NewFromString(realCost.String)
		if err != nil {
			return domain.Sale{}, fmt.Errorf("decode real cost: %w", err)
		}
		sale.RealTotalCost = &d
	}
	return sale, nil
}

func (s *Store) GetSale(ctx context.Context, id uuid.UUID) (domain.Sale, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+saleColumns+` FROM sales WHERE id = $1`, id)
	sale, err := scanSale(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Sale{}, store.ErrNotFound
		}
		return domain.Sale{}, err
	}
	return sale, nil
}

func (s *Store) ListSales(ctx context.Context) ([]domain.Sale, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+saleColumns+` FROM sales ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sales := make([]domain.Sale, 0, 256)
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			return nil, err
		}
		sales = append(sales, sale)
	}
	return sales, rows.Err()
}
