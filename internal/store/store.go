// Package store defines the persistence contract shared by the postgres
// and in-memory implementations.
package store

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/mercurio-pos/api/internal/domain"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrDuplicate          = errors.New("already exists")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrInsufficientCredit = errors.New("insufficient credit")
)

// Store is the full persistence surface. CreateSale is atomic: the sale
// row, the stock decrements for sold and gifted items, and the customer
// credit deduction commit together or not at all.
type Store interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
	GetProduct(ctx context.Context, id uuid.UUID) (domain.Product, error)
	CreateProduct(ctx context.Context, p domain.Product) (domain.Product, error)

	ListCustomers(ctx context.Context) ([]domain.Customer, error)
	GetCustomer(ctx context.Context, id uuid.UUID) (domain.Customer, error)
	CreateCustomer(ctx context.Context, c domain.Customer) (domain.Customer, error)

	GetUserByEmail(ctx context.Context, email string) (domain.UserAccount, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (domain.UserAccount, error)
	CreateUser(ctx context.Context, u domain.UserAccount) error

	CreateSale(ctx context.Context, s domain.Sale) (domain.Sale, error)
	GetSale(ctx context.Context, id uuid.UUID) (domain.Sale, error)
	ListSales(ctx context.Context) ([]domain.Sale, error)
}
