package api

import (
	"commerce-service/internal/entity"

	"github.com/labstack/echo/v4"
)

type CommerceHandlers struct {
	Auth       *AuthHandler
	Products   *ProductHandler
	Carts      *CartHandler
	Orders     *OrderHandler
	Payments   *PaymentHandler
	Categories *CategoryHandler
	Reviews    *ReviewHandler
	Users      *UserHandler
}

func RegisterAuthRoutes(e *echo.Echo, h *AuthHandler, authenticated echo.MiddlewareFunc) {
	e.POST("/auth/register", h.Register)
	e.POST("/auth/login", h.Login)
	e.POST("/auth/refresh", h.Refresh)
	e.POST("/auth/logout", h.Logout, authenticated)
	e.GET("/users/me", h.Me, authenticated)
}

func RegisterCommerceRoutes(e *echo.Echo, h CommerceHandlers, tokens TokenParser) {
	authenticated := JWT(tokens)
	admin := RequireRole(entity.RoleAdmin)

	RegisterAuthRoutes(e, h.Auth, authenticated)

	e.GET("/products", h.Products.List)
	e.GET("/products/:id", h.Products.Get)
	products := e.Group("/products", authenticated, admin)
	products.POST("", h.Products.Create)
	products.PATCH("/:id", h.Products.Update)
	products.DELETE("/:id", h.Products.Delete)
	products.PATCH("/:id/stock", h.Products.AdjustStock)

	e.GET("/products/:id/reviews", h.Reviews.ListForProduct)
	e.GET("/products/:id/reviews/average", h.Reviews.Average)
	e.GET("/reviews", h.Reviews.List)
	e.GET("/reviews/:id", h.Reviews.Get)
	reviews := e.Group("/reviews", authenticated)
	reviews.POST("", h.Reviews.Create)
	reviews.PATCH("/:id", h.Reviews.Update)
	reviews.DELETE("/:id", h.Reviews.Delete)

	e.GET("/categories", h.Categories.List)
	e.GET("/categories/slug/:slug", h.Categories.GetBySlug)
	e.GET("/categories/:id", h.Categories.Get)
	categories := e.Group("/categories", authenticated, admin)
	categories.POST("", h.Categories.Create)
	categories.PATCH("/:id", h.Categories.Update)
	categories.DELETE("/:id", h.Categories.Delete)

	// /users/me stays reachable for every role; the rest is admin only
	users := e.Group("/users", authenticated, admin)
	users.POST("", h.Users.Create)
	users.GET("", h.Users.List)
	users.GET("/:id", h.Users.Get)
	users.PATCH("/:id", h.Users.Update)
	users.DELETE("/:id", h.Users.Delete)

	cart := e.Group("/cart", authenticated)
	cart.GET("", h.Carts.Get)
	cart.DELETE("", h.Carts.Clear)
	cart.POST("/items", h.Carts.AddItem)
	cart.PATCH("/items/:itemId", h.Carts.UpdateItem)
	cart.DELETE("/items/:itemId", h.Carts.RemoveItem)

	orders := e.Group("/orders", authenticated)
	orders.POST("", h.Orders.Create)
	orders.GET("", h.Orders.ListMine)
	orders.GET("/all", h.Orders.ListAll, admin)
	orders.GET("/:id", h.Orders.Get)
	orders.PATCH("/:id/status", h.Orders.UpdateStatus, admin)
	orders.PATCH("/:id/cancel", h.Orders.Cancel)

	e.POST("/payments/webhooks", h.Payments.Webhook)
}

func RegisterTodoRoutes(e *echo.Echo, auth *AuthHandler, todos *TodoHandler, tokens TokenParser) {
	authenticated := JWT(tokens)
	RegisterAuthRoutes(e, auth, authenticated)

	g := e.Group("/todos", authenticated)
	g.POST("", todos.Create)
	g.POST("/bulk", todos.CreateBulk)
	g.GET("", todos.List)
	g.GET("/:id", todos.Get)
	g.PATCH("/:id", todos.Update)
	g.DELETE("/:id", todos.Delete)
}
