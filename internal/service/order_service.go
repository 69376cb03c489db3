package service

import (
	"context"
	"sort"
	"time"

	"commerce-service/internal/apperror"
	"commerce-service/internal/entity"
	"commerce-service/internal/events"
	"commerce-service/internal/metrics"
	"commerce-service/internal/repository"
)

// OrderService turns carts into orders and drives order status changes.
type OrderService struct {
	store       repository.Store
	carts       *CartService
	ledger      *InventoryLedger
	publisher   OrderEventPublisher
	idempotency IdempotencyGuard
}

// NewOrderService creates a new instance of OrderService. publisher and
// idempotency may be nil.
func NewOrderService(store repository.Store, carts *CartService, ledger *InventoryLedger, publisher OrderEventPublisher, idempotency IdempotencyGuard) *OrderService {
	return &OrderService{
		store:       store,
		carts:       carts,
		ledger:      ledger,
		publisher:   publisher,
		idempotency: idempotency,
	}
}

type CreateOrderInput struct {
	ShippingAddress entity.Address
	// BillingAddress defaults to ShippingAddress.
	BillingAddress  *entity.Address
	PaymentMethodID string
	IdempotencyKey  string
}

// CreateOrder checks out the user's cart. Stock decrements, the order with
// its items and the cart clearing commit together or not at all.
func (s *OrderService) CreateOrder(ctx context.Context, userID string, input CreateOrderInput) (*entity.Order, error) {
	if input.IdempotencyKey != "" && s.idempotency != nil {
		claimed, err := s.idempotency.ClaimIdempotencyKey(ctx, input.IdempotencyKey)
		if err != nil {
			logger.Error().Err(err).Msgf("Error claiming idempotent key %s", input.IdempotencyKey)
			return nil, apperror.Internal(err)
		}
		if !claimed {
			return nil, apperror.ErrDuplicateRequest
		}
	}

	order, err := s.createOrder(ctx, userID, input)
	if err != nil {
		if input.IdempotencyKey != "" && s.idempotency != nil {
			if relErr := s.idempotency.ReleaseIdempotencyKey(ctx, input.IdempotencyKey); relErr != nil {
				logger.Error().Err(relErr).Msgf("Error releasing idempotent key %s", input.IdempotencyKey)
			}
		}
		return nil, err
	}
	return order, nil
}

func (s *OrderService) createOrder(ctx context.Context, userID string, input CreateOrderInput) (*entity.Order, error) {
	lines, err := s.carts.Snapshot(ctx, userID)
	if err != nil {
		logger.Error().Err(err).Msgf("Error reading cart of user %s", userID)
		return nil, apperror.Internal(err)
	}
	if len(lines) == 0 {
		return nil, apperror.ErrEmptyCart
	}

	var orderID string
	err = s.store.ExecTx(ctx, func(tx repository.Scope) error {
		// the cart may have changed since the first read; order what it holds now
		lines, err := snapshot(ctx, tx.Carts(), userID)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return apperror.ErrEmptyCart
		}
		order, err := s.placeOrder(ctx, tx, userID, lines, input)
		if err != nil {
			return err
		}
		orderID = order.ID
		return nil
	})
	if err != nil {
		if apperror.IsKnown(err) {
			return nil, err
		}
		logger.Error().Err(err).Msgf("Error creating order for user %s", userID)
		return nil, apperror.Internal(err)
	}

	created, err := s.store.Orders().GetOrder(ctx, orderID)
	if err != nil {
		logger.Error().Err(err).Msgf("Error reading order %s after commit", orderID)
		return nil, apperror.Internal(err)
	}

	metrics.OrdersTotal.WithLabelValues(string(created.Status)).Inc()
	s.publish(ctx, events.OrderCreated, created)
	return created, nil
}

func (s *OrderService) placeOrder(ctx context.Context, tx repository.Scope, userID string, lines []entity.CartLine, input CreateOrderInput) (*entity.Order, error) {
	// lock rows in a stable order so concurrent checkouts cannot deadlock
	locking := append([]entity.CartLine(nil), lines...)
	sort.SliceStable(locking, func(i, j int) bool { return locking[i].ProductID < locking[j].ProductID })

	products := make(map[string]*entity.Product, len(lines))
	for _, line := range locking {
		product, err := tx.Products().GetProductForUpdate(ctx, line.ProductID)
		if err != nil {
			return nil, err
		}
		if product.StockQuantity < line.Quantity {
			return nil, apperror.ErrInsufficientStock.WithMessagef(
				"insufficient stock for product %s, available: %d, requested: %d", product.Name, product.StockQuantity, line.Quantity)
		}
		if _, err := s.ledger.AdjustStock(ctx, tx.Products(), product.ID, -line.Quantity); err != nil {
			return nil, err
		}
		products[product.ID] = product
	}

	billing := input.ShippingAddress
	if input.BillingAddress != nil {
		billing = *input.BillingAddress
	}
	order := &entity.Order{
		UserID:          userID,
		Status:          entity.OrderStatusPending,
		ShippingAddress: input.ShippingAddress,
		BillingAddress:  billing,
		OrderDate:       time.Now().UTC(),
		Items:           make([]entity.OrderItem, 0, len(lines)),
	}
	if input.PaymentMethodID != "" {
		ref := input.PaymentMethodID
		order.PaymentRef = &ref
	}

	// the current product row wins over the price captured in the cart
	for _, line := range lines {
		product := products[line.ProductID]
		productID := product.ID
		order.Items = append(order.Items, entity.OrderItem{
			ProductID:           &productID,
			ProductNameSnapshot: product.Name,
			Quantity:            line.Quantity,
			PriceAtTimeOfOrder:  product.Price,
		})
	}
	order.TotalAmount = order.ItemsTotal()

	if err := tx.Orders().CreateOrder(ctx, order); err != nil {
		return nil, err
	}
	ordered := make([]string, 0, len(lines))
	for _, line := range lines {
		ordered = append(ordered, line.ItemID)
	}
	if err := tx.Carts().DeleteCartItems(ctx, userID, ordered); err != nil {
		return nil, err
	}
	return order, nil
}

// UpdateStatus is the admin entry point to the order state machine.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID string, status entity.OrderStatus) (*entity.Order, error) {
	if !status.Valid() {
		return nil, apperror.ErrInvalidInput.WithMessagef("unknown order status %q", status)
	}
	return s.transition(ctx, orderID, status, nil, nil)
}

// Cancel lets the owner, or an admin, cancel an order that has not shipped.
// Cancelling an already cancelled order returns it unchanged.
func (s *OrderService) Cancel(ctx context.Context, orderID string, actor Actor) (*entity.Order, error) {
	guard := func(order *entity.Order) error {
		if order.UserID != actor.UserID && !actor.IsAdmin() {
			return apperror.ErrForbidden.WithMessagef("you are not allowed to cancel this order")
		}
		if order.Status != entity.OrderStatusCancelled && !order.Status.Cancellable() {
			return apperror.ErrNotCancellable.WithMessagef("order cannot be cancelled in status %s", order.Status)
		}
		return nil
	}
	return s.transition(ctx, orderID, entity.OrderStatusCancelled, nil, guard)
}

// UpdateAfterPayment records the payment provider's outcome for an order.
func (s *OrderService) UpdateAfterPayment(ctx context.Context, orderID, paymentRef string, status entity.OrderStatus) (*entity.Order, error) {
	ref := paymentRef
	return s.transition(ctx, orderID, status, &ref, nil)
}

// transition moves the order to target inside one transaction. Leaving for
// CANCELLED or FAILED hands every item back to inventory in that same
// transaction. Asking for the status the order already has is a no-op.
func (s *OrderService) transition(ctx context.Context, orderID string, target entity.OrderStatus, paymentRef *string, guard func(*entity.Order) error) (*entity.Order, error) {
	changed := false
	var updated *entity.Order

	err := s.store.ExecTx(ctx, func(tx repository.Scope) error {
		order, err := tx.Orders().GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if guard != nil {
			if err := guard(order); err != nil {
				return err
			}
		}
		if order.Status == target {
			updated = order
			return nil
		}
		if !order.Status.CanTransitionTo(target) {
			return apperror.ErrInvalidTransition.WithMessagef("cannot change order status from %s to %s", order.Status, target)
		}

		ok, err := tx.Orders().UpdateOrderStatus(ctx, order.ID, order.Status, target, paymentRef)
		if err != nil {
			return err
		}
		if !ok {
			return apperror.ErrConcurrentUpdate
		}

		if target.ReleasesStock() {
			for _, item := range order.Items {
				if item.ProductID == nil {
					continue
				}
				if _, err := s.ledger.AdjustStock(ctx, tx.Products(), *item.ProductID, item.Quantity); err != nil {
					return err
				}
			}
		}
		changed = true
		return nil
	})
	if err != nil {
		if apperror.IsKnown(err) {
			return nil, err
		}
		logger.Error().Err(err).Msgf("Error moving order %s to %s", orderID, target)
		return nil, apperror.Internal(err)
	}
	if !changed {
		return updated, nil
	}

	order, err := s.store.Orders().GetOrder(ctx, orderID)
	if err != nil {
		logger.Error().Err(err).Msgf("Error reading order %s after commit", orderID)
		return nil, apperror.Internal(err)
	}

	metrics.OrdersTotal.WithLabelValues(string(order.Status)).Inc()
	switch order.Status {
	case entity.OrderStatusCancelled:
		s.publish(ctx, events.OrderCancelled, order)
	case entity.OrderStatusFailed:
		s.publish(ctx, events.OrderFailed, order)
	default:
		s.publish(ctx, events.OrderStatusChanged, order)
	}
	return order, nil
}

// GetOrder returns the order to its owner or to an admin.
func (s *OrderService) GetOrder(ctx context.Context, orderID string, actor Actor) (*entity.Order, error) {
	order, err := s.store.Orders().GetOrder(ctx, orderID)
	if err != nil {
		if apperror.IsKnown(err) {
			return nil, err
		}
		logger.Error().Err(err).Msgf("Error getting order %s", orderID)
		return nil, apperror.Internal(err)
	}
	if order.UserID != actor.UserID && !actor.IsAdmin() {
		return nil, apperror.ErrForbidden.WithMessagef("you are not allowed to view this order")
	}
	return order, nil
}

// ListUserOrders lists the user's own orders; any UserID in filter is ignored.
func (s *OrderService) ListUserOrders(ctx context.Context, userID string, filter repository.OrderFilter) (Page[entity.Order], error) {
	filter.UserID = userID
	return s.ListAllOrders(ctx, filter)
}

func (s *OrderService) ListAllOrders(ctx context.Context, filter repository.OrderFilter) (Page[entity.Order], error) {
	filter = filter.Normalize()
	orders, total, err := s.store.Orders().ListOrders(ctx, filter)
	if err != nil {
		logger.Error().Err(err).Msg("Error listing orders")
		return Page[entity.Order]{}, apperror.Internal(err)
	}
	return newPage(orders, total, filter.Page.Page, filter.Limit), nil
}

// publish runs after commit. A failure is logged and never undoes the order.
func (s *OrderService) publish(ctx context.Context, eventType string, order *entity.Order) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishOrderEvent(ctx, eventType, order); err != nil {
		logger.Error().Err(err).Msgf("Error publishing %s event for order %s", eventType, order.ID)
	}
}
