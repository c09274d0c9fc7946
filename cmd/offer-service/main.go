package main

import (
	"log"
	"net/http"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"

	"github.com/rajivgeraev/domio-api/internal/config"
	"github.com/rajivgeraev/domio-api/internal/db"
	"github.com/rajivgeraev/domio-api/internal/services/listing"
	"github.com/rajivgeraev/domio-api/internal/services/negotiation"
	"github.com/rajivgeraev/domio-api/internal/services/thread"
	"github.com/rajivgeraev/domio-api/internal/utils"
	"github.com/rajivgeraev/domio-api/internal/websocket"
)

func main() {
	// Загружаем конфигурацию
	cfg := config.LoadConfig()

	// Инициализируем базу данных
	if err := db.InitDB(cfg); err != nil {
		log.Fatalf("❌ Ошибка при инициализации базы данных: %v", err)
	}
	defer db.CloseDB()

	// Создаём хаб websocket-уведомлений
	hub := websocket.NewHub()
	defer hub.Shutdown()

	// Создаём экземпляр Fiber
	app := fiber.New(fiber.Config{
		AppName:      "Domio API",
		ErrorHandler: errorHandler,
	})

	// Добавляем middleware
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowCredentials: false,
	}))

	// Создаём сервисы
	listingService := listing.NewListingService(cfg)
	negotiationService := negotiation.NewNegotiationService(cfg, hub)
	threadService := thread.NewThreadService(cfg, hub)

	// Регистрируем маршруты
	listingService.SetupRoutes(app)
	listingService.SetupPublicRoutes(app)
	negotiationService.SetupRoutes(app)
	threadService.SetupRoutes(app)

	// Websocket живёт на отдельном net/http сервере: gorilla/websocket
	// требует стандартный ResponseWriter, которого fasthttp не даёт
	jwtService := utils.NewJWTService(cfg.JWTSecret)
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/ws", websocket.Handler(hub, jwtService))
		log.Printf("✅ Websocket сервер запущен на %s", cfg.WSListenAddr)
		if err := http.ListenAndServe(cfg.WSListenAddr, mux); err != nil {
			log.Fatalf("❌ Ошибка websocket сервера: %v", err)
		}
	}()

	// Запускаем сервер
	log.Printf("✅ Domio API запущен на %s", cfg.ListenAddr)
	log.Fatal(app.Listen(cfg.ListenAddr))
}

// errorHandler обрабатывает ошибки Fiber
func errorHandler(c fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	// Проверяем, является ли ошибка из Fiber
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	// Отправляем ошибку в JSON
	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
	})
}
