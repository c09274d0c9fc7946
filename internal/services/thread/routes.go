package thread

import (
	"github.com/gofiber/fiber/v3"
	"github.com/rajivgeraev/domio-api/internal/middleware"
)

// SetupRoutes настраивает маршруты для API чатов переговоров
func (s *ThreadService) SetupRoutes(app *fiber.App) {
	// Группа для API чатов
	api := app.Group("/api/threads")

	// Защищенные маршруты (требуют авторизации)
	api.Use(middleware.AuthMiddleware(s.jwtService))

	// Маршрут для получения списка чатов
	api.Get("/", s.GetThreads)

	// Маршрут для получения сообщений чата
	api.Get("/:id/messages", s.GetThreadMessages)

	// Маршрут для отправки сообщения
	api.Post("/:id/messages", s.SendMessage)
}
