// Package memory is an in-process Store used for development without a
// database and as the backing store in tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mercurio-pos/api/internal/domain"
	"github.com/mercurio-pos/api/internal/store"
)

type Store struct {
	mu        sync.RWMutex
	products  map[uuid.UUID]domain.Product
	customers map[uuid.UUID]domain.Customer
	users     map[string]domain.UserAccount
	sales     map[uuid.UUID]domain.Sale
}

func New() *Store {
	return &Store{
		products:  make(map[uuid.UUID]domain.Product),
		customers: make(map[uuid.UUID]domain.Customer),
		users:     make(map[string]domain.UserAccount),
		sales:     make(map[uuid.UUID]domain.Sale),
	}
}

func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) GetProduct(ctx context.Context, id uuid.UUID) (domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok {
		return domain.Product{}, store.ErrNotFound
	}
	return p, nil
}

func (s *Store) CreateProduct(ctx context.Context, p domain.Product) (domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	if _, ok := s.products[p.ID]; ok {
		return domain.Product{}, store.ErrDuplicate
	}
	s.products[p.ID] = p
	return p, nil
}

func (s *Store) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Customer, 0, len(s.customers))
	for _, c := range s.customers {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) GetCustomer(ctx context.Context, id uuid.UUID) (domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.customers[id]
	if !ok {
		return domain.Customer{}, store.ErrNotFound
	}
	return c, nil
}

func (s *Store) CreateCustomer(ctx context.Context, c domain.Customer) (domain.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	if _, ok := s.customers[c.ID]; ok {
		return domain.Customer{}, store.ErrDuplicate
	}
	s.customers[c.ID] = c
	return c, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[strings.ToLower(email)]
	if !ok {
		return domain.UserAccount{}, store.ErrNotFound
	}
	return u, nil
}

func (s *Store) GetUserByID(ctx context.Context, id uuid.UUID) (domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.ID == id {
			return u, nil
		}
	}
	return domain.UserAccount{}, store.ErrNotFound
}

func (s *Store) CreateUser(ctx context.Context, u domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(u.Email)
	if _, ok := s.users[key]; ok {
		return store.ErrDuplicate
	}
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}
	s.users[key] = u
	return nil
}

// CreateSale applies the stock decrements and the credit deduction under
// one lock so a failed check leaves everything untouched.
func (s *Store) CreateSale(ctx context.Context, sale domain.Sale) (domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sale.ID == uuid.Nil {
		sale.ID = uuid.New()
	}
	if sale.CreatedAt.IsZero() {
		sale.CreatedAt = time.Now()
	}
	if _, ok := s.sales[sale.ID]; ok {
		return domain.Sale{}, store.ErrDuplicate
	}

	deltas := make(map[uuid.UUID]int32)
	for _, it := range sale.Items {
		deltas[it.ProductID] += it.Quantity
	}
	for _, ci := range sale.CourtesyItems {
		deltas[ci.ProductID] += ci.Quantity
	}
	for id, qty := range deltas {
		p, ok := s.products[id]
		if !ok {
			return domain.Sale{}, store.ErrNotFound
		}
		if p.Stock < qty {
			return domain.Sale{}, store.ErrInsufficientStock
		}
	}

	if sale.CreditApplied.IsPositive() {
		c, ok := s.customers[sale.CustomerID]
		if !ok {
			return domain.Sale{}, store.ErrNotFound
		}
		if c.Credit.LessThan(sale.CreditApplied) {
			return domain.Sale{}, store.ErrInsufficientCredit
		}
		c.Credit = c.Credit.Sub(sale.CreditApplied)
		s.customers[sale.CustomerID] = c
	}

	for id, qty := range deltas {
		p := s.products[id]
		p.Stock -= qty
		s.products[id] = p
	}

	s.sales[sale.ID] = sale
	return sale, nil
}

func (s *Store) GetSale(ctx context.Context, id uuid.UUID) (domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sale, ok := s.sales[id]
	if !ok {
		return domain.Sale{}, store.ErrNotFound
	}
	return sale, nil
}

func (s *Store) ListSales(ctx context.Context) ([]domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Sale, 0, len(s.sales))
	for _, sale := range s.sales {
		out = append(out, sale)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
