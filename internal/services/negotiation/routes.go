package negotiation

import (
	"github.com/gofiber/fiber/v3"
	"github.com/rajivgeraev/domio-api/internal/middleware"
)

// SetupRoutes настраивает маршруты для API переговоров
func (s *NegotiationService) SetupRoutes(app *fiber.App) {
	// Группа для API переговоров
	api := app.Group("/api/negotiations")

	// Защищенные маршруты (требуют авторизации)
	api.Use(middleware.AuthMiddleware(s.jwtService))

	// Маршрут для создания предложения
	api.Post("/", s.CreateNegotiation)

	// Маршрут для получения списка переговоров по объявлению
	api.Get("/", s.GetNegotiations)

	// Маршрут для каталога сортировок и фильтров
	api.Get("/filters", s.GetFilters)

	// Маршрут для истории контрпредложений
	api.Get("/:id/history", s.GetHistory)

	// Маршрут для изменения статуса переговоров
	api.Put("/:id/status", s.UpdateStatus)

	// Маршрут для создания контрпредложения
	api.Post("/:id/counter", s.CreateCounter)

	// Маршрут для создания договора аренды из принятого предложения
	api.Post("/:id/lease", s.CreateLease)
}
