package apperror

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindConflict
	KindBadRequest
	KindUnauthorized
	KindForbidden
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindBadRequest:
		return "bad_request"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	}
	return "internal"
}

// Error carries a stable machine-readable Code next to a human-readable Message.
// Two errors match under errors.Is when their codes match.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// WithMessagef returns a copy of e with a more specific message.
func (e *Error) WithMessagef(format string, args ...interface{}) *Error {
	cp := *e
	cp.Message = fmt.Sprintf(format, args...)
	return &cp
}

// Wrap returns a copy of e that records cause.
func (e *Error) Wrap(cause error) *Error {
	cp := *e
	cp.Err = cause
	return &cp
}

var (
	ErrEmptyCart         = New(KindBadRequest, "EMPTY_CART", "your cart is empty, add items before placing an order")
	ErrInsufficientStock = New(KindBadRequest, "INSUFFICIENT_STOCK", "insufficient stock")
	ErrNotCancellable    = New(KindBadRequest, "NOT_CANCELLABLE", "order can no longer be cancelled")
	ErrInvalidTransition = New(KindBadRequest, "INVALID_TRANSITION", "invalid order status transition")
	ErrInvalidInput      = New(KindBadRequest, "VALIDATION_FAILED", "invalid input")
	ErrInvalidSignature  = New(KindBadRequest, "INVALID_SIGNATURE", "webhook signature verification failed")

	ErrProductNotFound  = New(KindNotFound, "PRODUCT_NOT_FOUND", "product not found")
	ErrOrderNotFound    = New(KindNotFound, "ORDER_NOT_FOUND", "order not found")
	ErrCartNotFound     = New(KindNotFound, "CART_NOT_FOUND", "cart not found")
	ErrCartItemNotFound = New(KindNotFound, "CART_ITEM_NOT_FOUND", "cart item not found")
	ErrUserNotFound     = New(KindNotFound, "USER_NOT_FOUND", "user not found")
	ErrTodoNotFound     = New(KindNotFound, "TODO_NOT_FOUND", "todo not found")
	ErrCategoryNotFound = New(KindNotFound, "CATEGORY_NOT_FOUND", "category not found")
	ErrReviewNotFound   = New(KindNotFound, "REVIEW_NOT_FOUND", "review not found")

	ErrEmailTaken       = New(KindConflict, "EMAIL_TAKEN", "email is already registered")
	ErrSKUTaken         = New(KindConflict, "SKU_TAKEN", "a product with this sku already exists")
	ErrDuplicateRequest = New(KindConflict, "DUPLICATE_REQUEST", "a request with this idempotency key was already processed")
	ErrConcurrentUpdate = New(KindConflict, "CONCURRENT_UPDATE", "the resource was modified concurrently, retry the request")
	ErrCategoryTaken    = New(KindConflict, "CATEGORY_TAKEN", "a category with this name or slug already exists")
	ErrAlreadyReviewed  = New(KindConflict, "ALREADY_REVIEWED", "you have already reviewed this product")
	ErrUserHasOrders    = New(KindConflict, "USER_HAS_ORDERS", "a user with orders cannot be deleted")

	ErrInvalidCredentials = New(KindUnauthorized, "INVALID_CREDENTIALS", "invalid email or password")
	ErrInvalidToken       = New(KindUnauthorized, "INVALID_TOKEN", "token is invalid or expired")

	ErrForbidden = New(KindForbidden, "FORBIDDEN", "you are not allowed to access this resource")
)

// Internal hides err behind a generic message.
func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Code: "INTERNAL", Message: "internal server error", Err: err}
}

func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return KindInternal
}

// IsKnown reports whether err is a business error that should reach the caller unchanged.
func IsKnown(err error) bool {
	e, ok := As(err)
	return ok && e.Kind != KindInternal
}
