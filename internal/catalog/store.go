// internal/catalog/store.go
package catalog

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/infonomu/bni/internal/models"
	"github.com/infonomu/bni/internal/query"
)

// ErrorKind classifies a failed fetch for the consumer to render or retry.
type ErrorKind int

const (
	ErrorNone ErrorKind = iota
	ErrorAuth
	ErrorGeneric
)

// Filter is the current catalog query state.
type Filter struct {
	Category string
	Search   string
	SortBy   string
	SortAsc  bool
}

var allowedSortFields = map[string]bool{
	"created_at":  true,
	"price":       true,
	"name":        true,
	"view_count":  true,
	"order_count": true,
}

// FetchFunc issues one catalog query for the given filter.
type FetchFunc func(ctx context.Context, f Filter) ([]models.Product, error)

// Store holds the visible product set for one consumer. Each overlapping
// FetchProducts call captures its own epoch; a resolved call applies its
// result only while it is still the newest issued fetch, so a slow earlier
// request can never overwrite a faster later one. One store per logical
// session; the store is the only writer of its epoch and product set.
type Store struct {
	db    *gorm.DB
	fetch FetchFunc
	epoch atomic.Uint64

	mu       sync.Mutex
	filter   Filter
	products []models.Product
	loading  bool
	errKind  ErrorKind
	lastErr  error
}

func NewStore(db *gorm.DB, exec *query.Executor) *Store {
	s := &Store{
		db:     db,
		filter: Filter{Category: "all", SortBy: "created_at", SortAsc: false},
	}
	s.fetch = s.gormFetch(exec)
	return s
}

// NewStoreWithFetch builds a store over a caller-supplied fetch function.
func NewStoreWithFetch(fetch FetchFunc) *Store {
	return &Store{
		fetch:  fetch,
		filter: Filter{Category: "all", SortBy: "created_at", SortAsc: false},
	}
}

func (s *Store) SetCategory(category string) {
	s.mu.Lock()
	s.filter.Category = category
	s.mu.Unlock()
}

func (s *Store) SetSearchQuery(q string) {
	s.mu.Lock()
	s.filter.Search = q
	s.mu.Unlock()
}

func (s *Store) SetSort(field string, ascending bool) {
	s.mu.Lock()
	s.filter.SortBy = field
	s.filter.SortAsc = ascending
	s.mu.Unlock()
}

func (s *Store) Filter() Filter {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter
}

// FetchProducts issues one query for the current filter state and replaces
// the visible set when it is still the most recent fetch.
func (s *Store) FetchProducts(ctx context.Context) error {
	id := s.epoch.Add(1)

	s.mu.Lock()
	f := s.filter
	s.loading = true
	s.mu.Unlock()

	products, err := s.fetch(ctx, f)

	// A newer fetch was issued while this one was in flight; its result
	// wins regardless of resolution order.
	if id != s.epoch.Load() {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false

	if err != nil {
		s.products = nil
		if query.IsAuthError(err) {
			s.errKind = ErrorAuth
		} else {
			s.errKind = ErrorGeneric
		}
		s.lastErr = err
		return err
	}

	// A nil slice with a nil error is a swallowed cancellation; leave the
	// visible set untouched.
	if products == nil {
		return nil
	}

	s.products = products
	s.errKind = ErrorNone
	s.lastErr = nil
	return nil
}

// List runs one query for an explicit filter without touching the store's
// own filter or visible set. Stateless callers use this directly.
func (s *Store) List(ctx context.Context, f Filter) ([]models.Product, error) {
	products, err := s.fetch(ctx, f)
	if err != nil {
		return nil, err
	}
	if products == nil {
		products = []models.Product{}
	}
	return products, nil
}

// Products returns a snapshot of the visible set.
func (s *Store) Products() []models.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Product, len(s.products))
	copy(out, s.products)
	return out
}

func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

func (s *Store) LastError() (ErrorKind, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errKind, s.lastErr
}

// GetProduct fetches a single product with joined seller fields and then
// bumps the view counter best-effort; a failed increment never fails the
// fetch.
func (s *Store) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	if s.db == nil {
		return nil, gorm.ErrRecordNotFound
	}

	var product models.Product
	if err := s.db.WithContext(ctx).Preload("Seller").First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}

	go s.incrementViewCount(id)

	return &product, nil
}

func (s *Store) incrementViewCount(id uuid.UUID) {
	if s.db == nil {
		return
	}
	if err := s.db.Model(&models.Product{}).Where("id = ?", id).
		UpdateColumn("view_count", gorm.Expr("view_count + 1")).Error; err != nil {
		logrus.WithError(err).WithField("product_id", id).Debug("view count increment failed")
	}
}

// gormFetch builds the default database-backed fetch, routed through the
// resilient executor.
func (s *Store) gormFetch(exec *query.Executor) FetchFunc {
	return func(ctx context.Context, f Filter) ([]models.Product, error) {
		thunk := func(ctx context.Context) (interface{}, error) {
			q := s.db.WithContext(ctx).Model(&models.Product{}).
				Preload("Seller").
				Where("is_active = ?", true)

			if f.Category != "" && f.Category != "all" {
				q = q.Where("category = ?", f.Category)
			}

			if f.Search != "" {
				term := "%" + strings.ToLower(f.Search) + "%"
				q = q.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", term, term)
			}

			sortField := f.SortBy
			if !allowedSortFields[sortField] {
				sortField = "created_at"
			}
			dir := "DESC"
			if f.SortAsc {
				dir = "ASC"
			}
			q = q.Order(sortField + " " + dir)

			var products []models.Product
			if err := q.Find(&products).Error; err != nil {
				return nil, &query.QueryError{Message: err.Error()}
			}
			if products == nil {
				products = []models.Product{}
			}
			return products, nil
		}

		data, err := exec.Execute(ctx, thunk, nil)
		if err != nil {
			return nil, err
		}
		if data == nil {
			// Swallowed cancellation.
			return nil, nil
		}
		return data.([]models.Product), nil
	}
}
