package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/SamCourtneyTech/Summoner-x-Serum-2/app/controllers"
	"github.com/SamCourtneyTech/Summoner-x-Serum-2/internal/pkg/middleware"
)

// ApiRouter serves the bearer-authenticated routes. The limiter runs after
// authentication and counts per account.
type ApiRouter struct {
	svc *Services
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	handlers := h.svc.Handlers

	limit := newLimiter(h.svc.Limiter)
	requireAuth := middleware.RequireBearer(h.svc.Tokens, controllers.HandleError)

	app.Post("/get-credits", requireAuth, limit, handlers.HandleGetCredits)
	app.Post("/purchase-credits", requireAuth, limit, handlers.HandlePurchaseCredits)
	app.Post("/generate-parameters", requireAuth, limit, handlers.HandleGenerateParameters)
}

func NewApiRouter(svc *Services) *ApiRouter {
	return &ApiRouter{svc: svc}
}
