package handler

import (
	"github.com/go-chi/chi/v5"
	"github.com/rookgm/brewtrack/internal/middleware"
	"go.uber.org/zap"
)

// Deps holds services the router binds to
type Deps struct {
	Orders      OrderService
	Transitions TransitionService
	Events      EventService
	Sessions    SessionService
	Tokens      TokenService
	Stream      *StreamHandler
	Log         *zap.Logger
}

// NewRouter creates router with every API route
func NewRouter(d Deps) chi.Router {
	orderHandler := NewOrderHandler(d.Orders)
	staffHandler := NewStaffHandler(d.Orders, d.Transitions, d.Events)
	sessionHandler := NewSessionHandler(d.Sessions)

	router := chi.NewRouter()

	if d.Log != nil {
		router.Use(middleware.Logging(d.Log))
	}

	router.Post("/api/session", sessionHandler.SignIn())

	// routes that require authentication
	router.Group(func(group chi.Router) {
		group.Use(AuthMiddleware(d.Tokens))
		group.Post("/api/orders", orderHandler.PlaceOrder())
		group.Get("/api/orders", orderHandler.ListOrders())
		group.Get("/api/orders/{id}", orderHandler.GetOrder())
		if d.Stream != nil {
			group.Get("/api/stream", d.Stream.Customer())
		}

		// staff board
		group.Route("/api/staff", func(staff chi.Router) {
			staff.Use(RequireStaff)
			staff.Get("/orders", staffHandler.ListOrders())
			staff.Get("/orders/code/{code}", staffHandler.GetOrderByCode())
			staff.Get("/orders/{id}", staffHandler.GetOrder())
			staff.Get("/orders/{id}/events", staffHandler.ListEvents())
			staff.Patch("/orders/{id}/status", staffHandler.UpdateOrderStatus())
			staff.Patch("/orders/{id}/items/{itemID}/status", staffHandler.UpdateItemStatus())
			staff.Delete("/orders/{id}", staffHandler.DeleteOrder())
			if d.Stream != nil {
				staff.Get("/stream", d.Stream.Staff())
			}
		})
	})

	return router
}
