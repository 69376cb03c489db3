package repository

import (
	"context"
	"time"

	"commerce-service/internal/entity"

	"github.com/shopspring/decimal"
)

type ProductStore interface {
	CreateProduct(ctx context.Context, product *entity.Product) error
	GetProduct(ctx context.Context, id string) (*entity.Product, error)
	// GetProductForUpdate reads the product and holds its row lock until the transaction ends.
	GetProductForUpdate(ctx context.Context, id string) (*entity.Product, error)
	ListProducts(ctx context.Context, filter ProductFilter) ([]entity.Product, int, error)
	// UpdateProduct writes every column except stock_quantity.
	UpdateProduct(ctx context.Context, product *entity.Product) error
	DeleteProduct(ctx context.Context, id string) error
	// AdjustStock applies delta atomically and refuses to take stock below zero.
	AdjustStock(ctx context.Context, id string, delta int) (*entity.Product, error)
}

type CartStore interface {
	GetCart(ctx context.Context, userID string) (*entity.Cart, error)
	GetOrCreateCart(ctx context.Context, userID string) (*entity.Cart, error)
	// ListCartItems returns the user's items oldest first.
	ListCartItems(ctx context.Context, userID string) ([]entity.CartItem, error)
	SaveCartItem(ctx context.Context, item *entity.CartItem) error
	DeleteCartItem(ctx context.Context, userID, itemID string) error
	// DeleteCartItems removes the listed items and leaves anything else in the cart alone.
	DeleteCartItems(ctx context.Context, userID string, itemIDs []string) error
	ClearCart(ctx context.Context, userID string) error
}

type OrderStore interface {
	CreateOrder(ctx context.Context, order *entity.Order) error
	GetOrder(ctx context.Context, id string) (*entity.Order, error)
	GetOrderForUpdate(ctx context.Context, id string) (*entity.Order, error)
	ListOrders(ctx context.Context, filter OrderFilter) ([]entity.Order, int, error)
	// UpdateOrderStatus moves the order from one status to another and reports
	// false when the stored status no longer equals from.
	UpdateOrderStatus(ctx context.Context, id string, from, to entity.OrderStatus, paymentRef *string) (bool, error)
}

type UserStore interface {
	CreateUser(ctx context.Context, user *entity.User) error
	GetUserByID(ctx context.Context, id string) (*entity.User, error)
	GetUserByEmail(ctx context.Context, email string) (*entity.User, error)
	ListUsers(ctx context.Context, page Page) ([]entity.User, int, error)
	// UpdateUser writes every column; PasswordHash must already be hashed.
	UpdateUser(ctx context.Context, user *entity.User) error
	// DeleteUser refuses users that still own orders.
	DeleteUser(ctx context.Context, id string) error
}

type CategoryStore interface {
	CreateCategory(ctx context.Context, category *entity.Category) error
	GetCategory(ctx context.Context, id string) (*entity.Category, error)
	GetCategoryBySlug(ctx context.Context, slug string) (*entity.Category, error)
	ListCategories(ctx context.Context) ([]entity.Category, error)
	UpdateCategory(ctx context.Context, category *entity.Category) error
	// DeleteCategory leaves its products in place without a category.
	DeleteCategory(ctx context.Context, id string) error
}

type ReviewStore interface {
	CreateReview(ctx context.Context, review *entity.Review) error
	GetReview(ctx context.Context, id string) (*entity.Review, error)
	ListReviews(ctx context.Context, filter ReviewFilter) ([]entity.Review, int, error)
	UpdateReview(ctx context.Context, review *entity.Review) error
	DeleteReview(ctx context.Context, id string) error
	RatingSummary(ctx context.Context, productID string) (entity.RatingSummary, error)
}

type TodoStore interface {
	CreateTodos(ctx context.Context, todos []*entity.Todo) error
	GetTodo(ctx context.Context, userID, id string) (*entity.Todo, error)
	ListTodos(ctx context.Context, userID string) ([]entity.Todo, error)
	UpdateTodo(ctx context.Context, todo *entity.Todo) error
	DeleteTodo(ctx context.Context, userID, id string) error
}

// Scope hands out stores bound to one unit of work: the database itself or an open transaction.
type Scope interface {
	Products() ProductStore
	Carts() CartStore
	Orders() OrderStore
	Users() UserStore
	Todos() TodoStore
	Categories() CategoryStore
	Reviews() ReviewStore
}

// Store is a Scope that can also open transactions. fn sees a Scope whose
// writes commit together when fn returns nil and roll back otherwise.
type Store interface {
	Scope
	ExecTx(ctx context.Context, fn func(tx Scope) error) error
}

type Page struct {
	Page  int
	Limit int
}

const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100
)

// Normalize clamps the page to sane bounds.
func (p Page) Normalize() Page {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	return p
}

func (p Page) Offset() int {
	return (p.Page - 1) * p.Limit
}

type SortOrder string

const (
	SortAsc  SortOrder = "ASC"
	SortDesc SortOrder = "DESC"
)

func (o SortOrder) Valid() bool { return o == SortAsc || o == SortDesc }

type ProductFilter struct {
	Page
	CategoryID string
	Search     string
	MinPrice   *decimal.Decimal
	MaxPrice   *decimal.Decimal
	SortBy     string
	Order      SortOrder
}

var productSortColumns = map[string]string{
	"name":           "name",
	"price":          "price",
	"created_at":     "created_at",
	"stock_quantity": "stock_quantity",
}

type OrderFilter struct {
	Page
	UserID    string
	Status    entity.OrderStatus
	StartDate *time.Time
	// EndDate is inclusive of the whole day.
	EndDate *time.Time
	SortBy  string
	Order   SortOrder
}

var orderSortColumns = map[string]string{
	"order_date":   "order_date",
	"total_amount": "total_amount",
	"status":       "status",
	"created_at":   "created_at",
}

type ReviewFilter struct {
	Page
	ProductID string
	UserID    string
	MinRating int
}

// MaxReviewLimit caps review pages below the general maximum.
const MaxReviewLimit = 50

func (f ReviewFilter) Normalize() ReviewFilter {
	f.Page = f.Page.Normalize()
	if f.Limit > MaxReviewLimit {
		f.Limit = MaxReviewLimit
	}
	return f
}

func ValidProductSort(field string) bool {
	_, ok := productSortColumns[field]
	return ok
}

func ValidOrderSort(field string) bool {
	_, ok := orderSortColumns[field]
	return ok
}

// Normalize fills defaults and drops unknown sort fields.
func (f ProductFilter) Normalize() ProductFilter {
	f.Page = f.Page.Normalize()
	if !ValidProductSort(f.SortBy) {
		f.SortBy = "created_at"
	}
	if !f.Order.Valid() {
		f.Order = SortDesc
	}
	return f
}

func (f OrderFilter) Normalize() OrderFilter {
	f.Page = f.Page.Normalize()
	if !ValidOrderSort(f.SortBy) {
		f.SortBy = "order_date"
	}
	if !f.Order.Valid() {
		f.Order = SortDesc
	}
	return f
}

// EndExclusive returns the first instant after EndDate's day.
func (f OrderFilter) EndExclusive() *time.Time {
	if f.EndDate == nil {
		return nil
	}
	y, m, d := f.EndDate.Date()
	end := time.Date(y, m, d, 0, 0, 0, 0, f.EndDate.Location()).AddDate(0, 0, 1)
	return &end
}
