// Package memstore keeps every table in process memory. Transactions are
// serialized: ExecTx works on a private copy of the data and swaps it in
// only when the callback succeeds.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"commerce-service/internal/apperror"
	"commerce-service/internal/entity"
	"commerce-service/internal/repository"

	"github.com/google/uuid"
)

type state struct {
	products   map[string]entity.Product
	carts      map[string]entity.Cart // keyed by user id
	cartItems  map[string]entity.CartItem
	orders     map[string]entity.Order
	users      map[string]entity.User
	todos      map[string]entity.Todo
	categories map[string]entity.Category
	reviews    map[string]entity.Review
	seq        int64
}

func newState() *state {
	return &state{
		products:   map[string]entity.Product{},
		carts:      map[string]entity.Cart{},
		cartItems:  map[string]entity.CartItem{},
		orders:     map[string]entity.Order{},
		users:      map[string]entity.User{},
		todos:      map[string]entity.Todo{},
		categories: map[string]entity.Category{},
		reviews:    map[string]entity.Review{},
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.products {
		c.products[k] = v
	}
	for k, v := range s.carts {
		c.carts[k] = v
	}
	for k, v := range s.cartItems {
		c.cartItems[k] = v
	}
	for k, v := range s.orders {
		v.Items = append([]entity.OrderItem(nil), v.Items...)
		c.orders[k] = v
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.todos {
		c.todos[k] = v
	}
	for k, v := range s.categories {
		c.categories[k] = v
	}
	for k, v := range s.reviews {
		c.reviews[k] = v
	}
	c.seq = s.seq
	return c
}

// next returns a strictly increasing timestamp so insertion order survives sorting.
func (s *state) next() time.Time {
	s.seq++
	return time.Now().UTC().Add(time.Duration(s.seq))
}

type Store struct {
	mu sync.Mutex
	st *state
	scope
}

func New() *Store {
	s := &Store{st: newState()}
	s.scope = scope{store: s}
	return s
}

func (s *Store) ExecTx(ctx context.Context, fn func(tx repository.Scope) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	work := s.st.clone()
	if err := fn(scope{store: s, tx: work}); err != nil {
		return err
	}
	s.st = work
	return nil
}

// scope runs operations either against an open transaction copy or, when
// tx is nil, against the live data under the store lock.
type scope struct {
	store *Store
	tx    *state
}

func (sc scope) run(fn func(st *state) error) error {
	if sc.tx != nil {
		return fn(sc.tx)
	}
	sc.store.mu.Lock()
	defer sc.store.mu.Unlock()
	return fn(sc.store.st)
}

func (sc scope) Products() repository.ProductStore    { return products{sc} }
func (sc scope) Carts() repository.CartStore          { return carts{sc} }
func (sc scope) Orders() repository.OrderStore        { return orders{sc} }
func (sc scope) Users() repository.UserStore          { return users{sc} }
func (sc scope) Todos() repository.TodoStore          { return todos{sc} }
func (sc scope) Categories() repository.CategoryStore { return categories{sc} }
func (sc scope) Reviews() repository.ReviewStore      { return reviews{sc} }

// checkCategory mirrors the products.category_id foreign key.
func checkCategory(st *state, id *string) error {
	if id == nil {
		return nil
	}
	if _, ok := st.categories[*id]; !ok {
		return apperror.ErrCategoryNotFound.WithMessagef("category with id %s not found", *id)
	}
	return nil
}

type products struct{ scope }

func (p products) CreateProduct(ctx context.Context, product *entity.Product) error {
	return p.run(func(st *state) error {
		for _, existing := range st.products {
			if existing.SKU == product.SKU {
				return apperror.ErrSKUTaken
			}
		}
		if err := checkCategory(st, product.CategoryID); err != nil {
			return err
		}
		if product.ID == "" {
			product.ID = uuid.NewString()
		}
		now := st.next()
		product.CreatedAt, product.UpdatedAt = now, now
		st.products[product.ID] = *product
		return nil
	})
}

func (p products) GetProduct(ctx context.Context, id string) (*entity.Product, error) {
	var out *entity.Product
	err := p.run(func(st *state) error {
		product, ok := st.products[id]
		if !ok {
			return apperror.ErrProductNotFound.WithMessagef("product with id %s not found", id)
		}
		out = &product
		return nil
	})
	return out, err
}

func (p products) GetProductForUpdate(ctx context.Context, id string) (*entity.Product, error) {
	return p.GetProduct(ctx, id)
}

func (p products) ListProducts(ctx context.Context, filter repository.ProductFilter) ([]entity.Product, int, error) {
	filter = filter.Normalize()
	var matched []entity.Product
	err := p.run(func(st *state) error {
		search := strings.ToLower(filter.Search)
		for _, product := range st.products {
			if filter.CategoryID != "" && (product.CategoryID == nil || *product.CategoryID != filter.CategoryID) {
				continue
			}
			if search != "" && !strings.Contains(strings.ToLower(product.Name), search) &&
				!strings.Contains(strings.ToLower(product.Description), search) {
				continue
			}
			if filter.MinPrice != nil && product.Price.LessThan(*filter.MinPrice) {
				continue
			}
			if filter.MaxPrice != nil && product.Price.GreaterThan(*filter.MaxPrice) {
				continue
			}
			matched = append(matched, product)
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	sort.SliceStable(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		var less bool
		switch filter.SortBy {
		case "name":
			less = a.Name < b.Name
		case "price":
			less = a.Price.LessThan(b.Price)
		case "stock_quantity":
			less = a.StockQuantity < b.StockQuantity
		default:
			less = a.CreatedAt.Before(b.CreatedAt)
		}
		if filter.Order == repository.SortDesc {
			return !less && !equalProducts(filter.SortBy, a, b)
		}
		return less
	})
	return paginate(matched, filter.Page), len(matched), nil
}

func equalProducts(field string, a, b entity.Product) bool {
	switch field {
	case "name":
		return a.Name == b.Name
	case "price":
		return a.Price.Equal(b.Price)
	case "stock_quantity":
		return a.StockQuantity == b.StockQuantity
	}
	return a.CreatedAt.Equal(b.CreatedAt)
}

func (p products) UpdateProduct(ctx context.Context, product *entity.Product) error {
	return p.run(func(st *state) error {
		current, ok := st.products[product.ID]
		if !ok {
			return apperror.ErrProductNotFound.WithMessagef("product with id %s not found", product.ID)
		}
		for id, existing := range st.products {
			if id != product.ID && existing.SKU == product.SKU {
				return apperror.ErrSKUTaken
			}
		}
		if err := checkCategory(st, product.CategoryID); err != nil {
			return err
		}
		current.Name = product.Name
		current.Description = product.Description
		current.Price = product.Price
		current.SKU = product.SKU
		current.ImageURL = product.ImageURL
		current.CategoryID = product.CategoryID
		current.UpdatedAt = st.next()
		st.products[product.ID] = current
		*product = current
		return nil
	})
}

func (p products) DeleteProduct(ctx context.Context, id string) error {
	return p.run(func(st *state) error {
		if _, ok := st.products[id]; !ok {
			return apperror.ErrProductNotFound.WithMessagef("product with id %s not found", id)
		}
		delete(st.products, id)
		for itemID, item := range st.cartItems {
			if item.ProductID == id {
				delete(st.cartItems, itemID)
			}
		}
		for reviewID, review := range st.reviews {
			if review.ProductID == id {
				delete(st.reviews, reviewID)
			}
		}
		for orderID, order := range st.orders {
			for i, item := range order.Items {
				if item.ProductID != nil && *item.ProductID == id {
					order.Items[i].ProductID = nil
				}
			}
			st.orders[orderID] = order
		}
		return nil
	})
}

func (p products) AdjustStock(ctx context.Context, id string, delta int) (*entity.Product, error) {
	var out *entity.Product
	err := p.run(func(st *state) error {
		product, ok := st.products[id]
		if !ok {
			return apperror.ErrProductNotFound.WithMessagef("product with id %s not found", id)
		}
		if product.StockQuantity+delta < 0 {
			return apperror.ErrInsufficientStock.WithMessagef(
				"insufficient stock for product %s, available: %d, requested: %d", product.Name, product.StockQuantity, -delta)
		}
		if delta != 0 {
			product.StockQuantity += delta
			product.UpdatedAt = st.next()
			st.products[id] = product
		}
		out = &product
		return nil
	})
	return out, err
}

type carts struct{ scope }

func (c carts) GetCart(ctx context.Context, userID string) (*entity.Cart, error) {
	var out *entity.Cart
	err := c.run(func(st *state) error {
		cart, ok := st.carts[userID]
		if !ok {
			return apperror.ErrCartNotFound
		}
		cart.Items = itemsOf(st, cart.ID)
		out = &cart
		return nil
	})
	return out, err
}

func (c carts) GetOrCreateCart(ctx context.Context, userID string) (*entity.Cart, error) {
	var out *entity.Cart
	err := c.run(func(st *state) error {
		cart, ok := st.carts[userID]
		if !ok {
			now := st.next()
			cart = entity.Cart{ID: uuid.NewString(), UserID: userID, CreatedAt: now, UpdatedAt: now}
			st.carts[userID] = cart
		}
		cart.Items = itemsOf(st, cart.ID)
		out = &cart
		return nil
	})
	return out, err
}

func (c carts) ListCartItems(ctx context.Context, userID string) ([]entity.CartItem, error) {
	items := []entity.CartItem{}
	err := c.run(func(st *state) error {
		if cart, ok := st.carts[userID]; ok {
			items = itemsOf(st, cart.ID)
		}
		return nil
	})
	return items, err
}

func itemsOf(st *state, cartID string) []entity.CartItem {
	items := []entity.CartItem{}
	for _, item := range st.cartItems {
		if item.CartID != cartID {
			continue
		}
		if product, ok := st.products[item.ProductID]; ok {
			item.ProductName = product.Name
		}
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].CreatedAt.Before(items[j].CreatedAt) })
	return items
}

func (c carts) SaveCartItem(ctx context.Context, item *entity.CartItem) error {
	return c.run(func(st *state) error {
		if item.ID == "" {
			item.ID = uuid.NewString()
			item.CreatedAt = st.next()
			st.cartItems[item.ID] = *item
			return nil
		}
		current, ok := st.cartItems[item.ID]
		if !ok || current.CartID != item.CartID {
			return apperror.ErrCartItemNotFound
		}
		current.Quantity = item.Quantity
		current.PriceAtTimeOfAddition = item.PriceAtTimeOfAddition
		st.cartItems[item.ID] = current
		return nil
	})
}

func (c carts) DeleteCartItem(ctx context.Context, userID, itemID string) error {
	return c.run(func(st *state) error {
		cart, ok := st.carts[userID]
		item, found := st.cartItems[itemID]
		if !ok || !found || item.CartID != cart.ID {
			return apperror.ErrCartItemNotFound.WithMessagef("cart item with id %s not found in your cart", itemID)
		}
		delete(st.cartItems, itemID)
		return nil
	})
}

func (c carts) DeleteCartItems(ctx context.Context, userID string, itemIDs []string) error {
	return c.run(func(st *state) error {
		cart, ok := st.carts[userID]
		if !ok {
			return nil
		}
		for _, id := range itemIDs {
			if item, ok := st.cartItems[id]; ok && item.CartID == cart.ID {
				delete(st.cartItems, id)
			}
		}
		return nil
	})
}

func (c carts) ClearCart(ctx context.Context, userID string) error {
	return c.run(func(st *state) error {
		cart, ok := st.carts[userID]
		if !ok {
			return nil
		}
		for id, item := range st.cartItems {
			if item.CartID == cart.ID {
				delete(st.cartItems, id)
			}
		}
		return nil
	})
}

type orders struct{ scope }

func (o orders) CreateOrder(ctx context.Context, order *entity.Order) error {
	return o.run(func(st *state) error {
		if order.ID == "" {
			order.ID = uuid.NewString()
		}
		now := st.next()
		order.CreatedAt, order.UpdatedAt = now, now
		if order.OrderDate.IsZero() {
			order.OrderDate = now
		}
		for i := range order.Items {
			if order.Items[i].ID == "" {
				order.Items[i].ID = uuid.NewString()
			}
			order.Items[i].OrderID = order.ID
		}
		stored := *order
		stored.Items = append([]entity.OrderItem(nil), order.Items...)
		st.orders[order.ID] = stored
		return nil
	})
}

func (o orders) GetOrder(ctx context.Context, id string) (*entity.Order, error) {
	var out *entity.Order
	err := o.run(func(st *state) error {
		order, ok := st.orders[id]
		if !ok {
			return apperror.ErrOrderNotFound.WithMessagef("order with id %s not found", id)
		}
		order.Items = append([]entity.OrderItem{}, order.Items...)
		out = &order
		return nil
	})
	return out, err
}

func (o orders) GetOrderForUpdate(ctx context.Context, id string) (*entity.Order, error) {
	return o.GetOrder(ctx, id)
}

func (o orders) ListOrders(ctx context.Context, filter repository.OrderFilter) ([]entity.Order, int, error) {
	filter = filter.Normalize()
	end := filter.EndExclusive()
	var matched []entity.Order
	err := o.run(func(st *state) error {
		for _, order := range st.orders {
			if filter.UserID != "" && order.UserID != filter.UserID {
				continue
			}
			if filter.Status != "" && order.Status != filter.Status {
				continue
			}
			if filter.StartDate != nil && order.OrderDate.Before(*filter.StartDate) {
				continue
			}
			if end != nil && !order.OrderDate.Before(*end) {
				continue
			}
			order.Items = append([]entity.OrderItem{}, order.Items...)
			matched = append(matched, order)
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	sort.SliceStable(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if filter.Order == repository.SortAsc {
			a, b = b, a
		}
		switch filter.SortBy {
		case "total_amount":
			return a.TotalAmount.GreaterThan(b.TotalAmount)
		case "status":
			return a.Status > b.Status
		case "created_at":
			return a.CreatedAt.After(b.CreatedAt)
		}
		if a.OrderDate.Equal(b.OrderDate) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.OrderDate.After(b.OrderDate)
	})
	return paginate(matched, filter.Page), len(matched), nil
}

func (o orders) UpdateOrderStatus(ctx context.Context, id string, from, to entity.OrderStatus, paymentRef *string) (bool, error) {
	updated := false
	err := o.run(func(st *state) error {
		order, ok := st.orders[id]
		if !ok || order.Status != from {
			return nil
		}
		order.Status = to
		if paymentRef != nil {
			ref := *paymentRef
			order.PaymentRef = &ref
		}
		order.UpdatedAt = st.next()
		st.orders[id] = order
		updated = true
		return nil
	})
	return updated, err
}

type users struct{ scope }

func (u users) CreateUser(ctx context.Context, user *entity.User) error {
	return u.run(func(st *state) error {
		user.Email = strings.ToLower(user.Email)
		for _, existing := range st.users {
			if existing.Email == user.Email {
				return apperror.ErrEmailTaken
			}
		}
		if user.ID == "" {
			user.ID = uuid.NewString()
		}
		now := st.next()
		user.CreatedAt, user.UpdatedAt = now, now
		st.users[user.ID] = *user
		return nil
	})
}

func (u users) GetUserByID(ctx context.Context, id string) (*entity.User, error) {
	var out *entity.User
	err := u.run(func(st *state) error {
		user, ok := st.users[id]
		if !ok {
			return apperror.ErrUserNotFound
		}
		out = &user
		return nil
	})
	return out, err
}

func (u users) GetUserByEmail(ctx context.Context, email string) (*entity.User, error) {
	var out *entity.User
	err := u.run(func(st *state) error {
		for _, user := range st.users {
			if user.Email == strings.ToLower(email) {
				out = &user
				return nil
			}
		}
		return apperror.ErrUserNotFound
	})
	return out, err
}

func (u users) ListUsers(ctx context.Context, page repository.Page) ([]entity.User, int, error) {
	page = page.Normalize()
	var list []entity.User
	err := u.run(func(st *state) error {
		for _, user := range st.users {
			list = append(list, user)
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
	return paginate(list, page), len(list), nil
}

func (u users) UpdateUser(ctx context.Context, user *entity.User) error {
	return u.run(func(st *state) error {
		current, ok := st.users[user.ID]
		if !ok {
			return apperror.ErrUserNotFound
		}
		user.Email = strings.ToLower(user.Email)
		for id, existing := range st.users {
			if id != user.ID && existing.Email == user.Email {
				return apperror.ErrEmailTaken
			}
		}
		user.CreatedAt = current.CreatedAt
		user.UpdatedAt = st.next()
		st.users[user.ID] = *user
		return nil
	})
}

func (u users) DeleteUser(ctx context.Context, id string) error {
	return u.run(func(st *state) error {
		if _, ok := st.users[id]; !ok {
			return apperror.ErrUserNotFound
		}
		for _, order := range st.orders {
			if order.UserID == id {
				return apperror.ErrUserHasOrders
			}
		}
		if cart, ok := st.carts[id]; ok {
			for itemID, item := range st.cartItems {
				if item.CartID == cart.ID {
					delete(st.cartItems, itemID)
				}
			}
			delete(st.carts, id)
		}
		for todoID, todo := range st.todos {
			if todo.UserID == id {
				delete(st.todos, todoID)
			}
		}
		for reviewID, review := range st.reviews {
			if review.UserID == id {
				delete(st.reviews, reviewID)
			}
		}
		delete(st.users, id)
		return nil
	})
}

type categories struct{ scope }

func (c categories) CreateCategory(ctx context.Context, category *entity.Category) error {
	return c.run(func(st *state) error {
		for _, existing := range st.categories {
			if existing.Name == category.Name || existing.Slug == category.Slug {
				return apperror.ErrCategoryTaken
			}
		}
		if category.ID == "" {
			category.ID = uuid.NewString()
		}
		now := st.next()
		category.CreatedAt, category.UpdatedAt = now, now
		st.categories[category.ID] = *category
		return nil
	})
}

func (c categories) GetCategory(ctx context.Context, id string) (*entity.Category, error) {
	var out *entity.Category
	err := c.run(func(st *state) error {
		category, ok := st.categories[id]
		if !ok {
			return apperror.ErrCategoryNotFound.WithMessagef("category with id %s not found", id)
		}
		out = &category
		return nil
	})
	return out, err
}

func (c categories) GetCategoryBySlug(ctx context.Context, slug string) (*entity.Category, error) {
	var out *entity.Category
	err := c.run(func(st *state) error {
		for _, category := range st.categories {
			if category.Slug == slug {
				out = &category
				return nil
			}
		}
		return apperror.ErrCategoryNotFound.WithMessagef("category with slug %s not found", slug)
	})
	return out, err
}

func (c categories) ListCategories(ctx context.Context) ([]entity.Category, error) {
	list := []entity.Category{}
	err := c.run(func(st *state) error {
		for _, category := range st.categories {
			list = append(list, category)
		}
		return nil
	})
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list, err
}

func (c categories) UpdateCategory(ctx context.Context, category *entity.Category) error {
	return c.run(func(st *state) error {
		current, ok := st.categories[category.ID]
		if !ok {
			return apperror.ErrCategoryNotFound.WithMessagef("category with id %s not found", category.ID)
		}
		for id, existing := range st.categories {
			if id != category.ID && (existing.Name == category.Name || existing.Slug == category.Slug) {
				return apperror.ErrCategoryTaken
			}
		}
		category.CreatedAt = current.CreatedAt
		category.UpdatedAt = st.next()
		st.categories[category.ID] = *category
		return nil
	})
}

func (c categories) DeleteCategory(ctx context.Context, id string) error {
	return c.run(func(st *state) error {
		if _, ok := st.categories[id]; !ok {
			return apperror.ErrCategoryNotFound.WithMessagef("category with id %s not found", id)
		}
		delete(st.categories, id)
		for productID, product := range st.products {
			if product.CategoryID != nil && *product.CategoryID == id {
				product.CategoryID = nil
				st.products[productID] = product
			}
		}
		return nil
	})
}

type reviews struct{ scope }

func (r reviews) CreateReview(ctx context.Context, review *entity.Review) error {
	return r.run(func(st *state) error {
		if _, ok := st.products[review.ProductID]; !ok {
			return apperror.ErrProductNotFound.WithMessagef("product with id %s not found", review.ProductID)
		}
		for _, existing := range st.reviews {
			if existing.UserID == review.UserID && existing.ProductID == review.ProductID {
				return apperror.ErrAlreadyReviewed
			}
		}
		if review.ID == "" {
			review.ID = uuid.NewString()
		}
		now := st.next()
		review.CreatedAt, review.UpdatedAt = now, now
		st.reviews[review.ID] = *review
		return nil
	})
}

func (r reviews) GetReview(ctx context.Context, id string) (*entity.Review, error) {
	var out *entity.Review
	err := r.run(func(st *state) error {
		review, ok := st.reviews[id]
		if !ok {
			return apperror.ErrReviewNotFound.WithMessagef("review with id %s not found", id)
		}
		out = &review
		return nil
	})
	return out, err
}

func (r reviews) ListReviews(ctx context.Context, filter repository.ReviewFilter) ([]entity.Review, int, error) {
	filter = filter.Normalize()
	var matched []entity.Review
	err := r.run(func(st *state) error {
		for _, review := range st.reviews {
			if filter.ProductID != "" && review.ProductID != filter.ProductID {
				continue
			}
			if filter.UserID != "" && review.UserID != filter.UserID {
				continue
			}
			if review.Rating < filter.MinRating {
				continue
			}
			matched = append(matched, review)
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })
	return paginate(matched, filter.Page), len(matched), nil
}

func (r reviews) UpdateReview(ctx context.Context, review *entity.Review) error {
	return r.run(func(st *state) error {
		current, ok := st.reviews[review.ID]
		if !ok {
			return apperror.ErrReviewNotFound.WithMessagef("review with id %s not found", review.ID)
		}
		current.Rating = review.Rating
		current.Comment = review.Comment
		current.UpdatedAt = st.next()
		st.reviews[review.ID] = current
		*review = current
		return nil
	})
}

func (r reviews) DeleteReview(ctx context.Context, id string) error {
	return r.run(func(st *state) error {
		if _, ok := st.reviews[id]; !ok {
			return apperror.ErrReviewNotFound.WithMessagef("review with id %s not found", id)
		}
		delete(st.reviews, id)
		return nil
	})
}

func (r reviews) RatingSummary(ctx context.Context, productID string) (entity.RatingSummary, error) {
	var sum, count int
	err := r.run(func(st *state) error {
		for _, review := range st.reviews {
			if review.ProductID == productID {
				sum += review.Rating
				count++
			}
		}
		return nil
	})
	return entity.NewRatingSummary(productID, sum, count), err
}

type todos struct{ scope }

func (t todos) CreateTodos(ctx context.Context, list []*entity.Todo) error {
	return t.run(func(st *state) error {
		for _, todo := range list {
			if todo.ID == "" {
				todo.ID = uuid.NewString()
			}
			now := st.next()
			todo.CreatedAt, todo.UpdatedAt = now, now
			st.todos[todo.ID] = *todo
		}
		return nil
	})
}

func (t todos) GetTodo(ctx context.Context, userID, id string) (*entity.Todo, error) {
	var out *entity.Todo
	err := t.run(func(st *state) error {
		todo, ok := st.todos[id]
		if !ok || todo.UserID != userID {
			return apperror.ErrTodoNotFound.WithMessagef("todo with id %s not found", id)
		}
		out = &todo
		return nil
	})
	return out, err
}

func (t todos) ListTodos(ctx context.Context, userID string) ([]entity.Todo, error) {
	list := []entity.Todo{}
	err := t.run(func(st *state) error {
		for _, todo := range st.todos {
			if todo.UserID == userID {
				list = append(list, todo)
			}
		}
		return nil
	})
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
	return list, err
}

func (t todos) UpdateTodo(ctx context.Context, todo *entity.Todo) error {
	return t.run(func(st *state) error {
		current, ok := st.todos[todo.ID]
		if !ok || current.UserID != todo.UserID {
			return apperror.ErrTodoNotFound.WithMessagef("todo with id %s not found", todo.ID)
		}
		todo.CreatedAt = current.CreatedAt
		todo.UpdatedAt = st.next()
		st.todos[todo.ID] = *todo
		return nil
	})
}

func (t todos) DeleteTodo(ctx context.Context, userID, id string) error {
	return t.run(func(st *state) error {
		todo, ok := st.todos[id]
		if !ok || todo.UserID != userID {
			return apperror.ErrTodoNotFound.WithMessagef("todo with id %s not found", id)
		}
		delete(st.todos, id)
		return nil
	})
}

func paginate[T any](items []T, page repository.Page) []T {
	start := page.Offset()
	if start >= len(items) {
		return []T{}
	}
	end := start + page.Limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
