package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/SamCourtneyTech/Summoner-x-Serum-2/app/controllers"
)

// HttpRouter serves the routes that do not take a bearer token: account
// lifecycle, the payment webhook and health.
type HttpRouter struct {
	svc *Services
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	handlers := h.svc.Handlers

	app.Get("/health", controllers.HandleHealth)

	app.Post("/signup", handlers.HandleSignup)
	app.Post("/confirm-signup", handlers.HandleConfirmSignup)
	app.Post("/login", handlers.HandleLogin)
	app.Post("/refresh", handlers.HandleRefresh)

	// signed by the payment processor, never rate limited
	app.Post("/webhook", handlers.HandleStripeWebhook)
}

func NewHttpRouter(svc *Services) *HttpRouter {
	return &HttpRouter{svc: svc}
}
