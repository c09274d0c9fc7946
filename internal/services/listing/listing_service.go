package listing

import (
	"context"
	"log"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/rajivgeraev/domio-api/internal/config"
	"github.com/rajivgeraev/domio-api/internal/db"
	"github.com/rajivgeraev/domio-api/internal/models"
	"github.com/rajivgeraev/domio-api/internal/utils"
)

// ListingService представляет сервис для работы с объявлениями
type ListingService struct {
	cfg        *config.Config
	jwtService *utils.JWTService
}

// NewListingService создает новый экземпляр ListingService
func NewListingService(cfg *config.Config) *ListingService {
	return &ListingService{
		cfg:        cfg,
		jwtService: utils.NewJWTService(cfg.JWTSecret),
	}
}

// CreateListing обрабатывает создание нового объявления
func (s *ListingService) CreateListing(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Пользователь не авторизован"})
	}

	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID пользователя"})
	}

	// Извлекаем данные из запроса
	var requestData struct {
		Title       string  `json:"title"`
		Description string  `json:"description"`
		Kind        string  `json:"kind"` // lease, sale
		City        string  `json:"city"`
		Address     string  `json:"address"`
		Currency    string  `json:"currency"`
		Status      string  `json:"status"`
		LeaseTerm   *struct {
			MonthlyRent     float64    `json:"monthly_rent"`
			SecurityDeposit float64    `json:"security_deposit"`
			LeasePeriod     int        `json:"lease_period"`
			MinLockInPeriod int        `json:"min_lock_in_period"`
			AvailableFrom   *time.Time `json:"available_from"`
		} `json:"lease_term"`
		SaleTerm *struct {
			AskingPrice   float64 `json:"asking_price"`
			BookingAmount float64 `json:"booking_amount"`
		} `json:"sale_term"`
	}

	if err := c.Bind().Body(&requestData); err != nil {
		log.Printf("Ошибка декодирования тела запроса: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат данных"})
	}

	// Валидация обязательных полей
	if requestData.Title == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Название обязательно"})
	}

	if requestData.Kind != models.ListingKindLease && requestData.Kind != models.ListingKindSale {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Тип объявления должен быть lease или sale"})
	}

	// Условия должны соответствовать типу объявления
	if requestData.Kind == models.ListingKindLease && requestData.LeaseTerm == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Для аренды необходимо указать условия аренды"})
	}
	if requestData.Kind == models.ListingKindSale && requestData.SaleTerm == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Для продажи необходимо указать условия продажи"})
	}

	// Проверка валидности status
	if requestData.Status != "active" && requestData.Status != "draft" {
		requestData.Status = "draft" // По умолчанию - черновик
	}

	if requestData.Currency == "" {
		requestData.Currency = "INR"
	}

	// Создаем ID для нового объявления
	listingID := uuid.New()

	// Начинаем транзакцию
	ctx, cancel := db.GetContext()
	defer cancel()

	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		log.Printf("Ошибка начала транзакции: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка базы данных"})
	}
	defer tx.Rollback(ctx)

	// Вставляем объявление
	_, err = tx.Exec(ctx, `
        INSERT INTO listings (id, user_id, title, description, kind, city, address, currency, status)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
    `, listingID, userUUID, requestData.Title, requestData.Description,
		requestData.Kind, requestData.City, requestData.Address,
		requestData.Currency, requestData.Status)

	if err != nil {
		log.Printf("Ошибка создания объявления: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка сохранения объявления"})
	}

	// Вставляем условия аренды или продажи
	if requestData.LeaseTerm != nil {
		_, err = tx.Exec(ctx, `
            INSERT INTO lease_terms (listing_id, monthly_rent, security_deposit, lease_period, min_lock_in_period, available_from)
            VALUES ($1, $2, $3, $4, $5, $6)
        `, listingID, requestData.LeaseTerm.MonthlyRent, requestData.LeaseTerm.SecurityDeposit,
			requestData.LeaseTerm.LeasePeriod, requestData.LeaseTerm.MinLockInPeriod,
			requestData.LeaseTerm.AvailableFrom)
	} else if requestData.SaleTerm != nil {
		_, err = tx.Exec(ctx, `
            INSERT INTO sale_terms (listing_id, asking_price, booking_amount)
            VALUES ($1, $2, $3)
        `, listingID, requestData.SaleTerm.AskingPrice, requestData.SaleTerm.BookingAmount)
	}

	if err != nil {
		log.Printf("Ошибка сохранения условий объявления: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка сохранения условий"})
	}

	if err = tx.Commit(ctx); err != nil {
		log.Printf("Ошибка фиксации транзакции: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка базы данных"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success":    true,
		"listing_id": listingID,
	})
}

// GetMyListings возвращает список объявлений пользователя
func (s *ListingService) GetMyListings(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Пользователь не авторизован"})
	}

	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID пользователя"})
	}

	status := c.Query("status", "all") // all, active, draft, archived

	offsetStr := c.Query("offset", "0")
	offset, err := strconv.Atoi(offsetStr)
	if err != nil || offset < 0 {
		offset = 0
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	var rows pgx.Rows
	if status == "all" {
		rows, err = db.Pool.Query(ctx, `
            SELECT id, user_id, title, description, kind, city, address, currency, status, created_at, updated_at
            FROM listings
            WHERE user_id = $1
            ORDER BY created_at DESC
            LIMIT 20 OFFSET $2
        `, userUUID, offset)
	} else {
		rows, err = db.Pool.Query(ctx, `
            SELECT id, user_id, title, description, kind, city, address, currency, status, created_at, updated_at
            FROM listings
            WHERE user_id = $1 AND status = $2
            ORDER BY created_at DESC
            LIMIT 20 OFFSET $3
        `, userUUID, status, offset)
	}

	if err != nil {
		log.Printf("Ошибка запроса объявлений: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка получения объявлений"})
	}
	defer rows.Close()

	listings := scanListings(ctx, rows)

	return c.JSON(fiber.Map{
		"listings": listings,
		"count":    len(listings),
	})
}

// GetListing возвращает одно объявление по ID вместе с условиями
func (s *ListingService) GetListing(c fiber.Ctx) error {
	listingID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID объявления"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	var listing models.Listing
	err = db.Pool.QueryRow(ctx, `
        SELECT id, user_id, title, description, kind, city, address, currency, status, created_at, updated_at
        FROM listings
        WHERE id = $1
    `, listingID).Scan(
		&listing.ID, &listing.UserID, &listing.Title, &listing.Description,
		&listing.Kind, &listing.City, &listing.Address, &listing.Currency,
		&listing.Status, &listing.CreatedAt, &listing.UpdatedAt,
	)

	if err != nil {
		if err == pgx.ErrNoRows {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Объявление не найдено"})
		}
		log.Printf("Ошибка запроса объявления: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка получения объявления"})
	}

	attachTerms(ctx, &listing)

	if owner, err := db.GetUserByID(ctx, listing.UserID); err == nil {
		listing.Owner = owner
	}

	return c.JSON(fiber.Map{"listing": listing})
}

// GetPublicListings возвращает публичный список активных объявлений
func (s *ListingService) GetPublicListings(c fiber.Ctx) error {
	offsetStr := c.Query("offset", "0")
	offset, err := strconv.Atoi(offsetStr)
	if err != nil || offset < 0 {
		offset = 0
	}

	kind := c.Query("kind", "") // lease, sale или пусто

	ctx, cancel := db.GetContext()
	defer cancel()

	var rows pgx.Rows
	if kind == models.ListingKindLease || kind == models.ListingKindSale {
		rows, err = db.Pool.Query(ctx, `
            SELECT id, user_id, title, description, kind, city, address, currency, status, created_at, updated_at
            FROM listings
            WHERE status = 'active' AND kind = $1
            ORDER BY created_at DESC
            LIMIT 20 OFFSET $2
        `, kind, offset)
	} else {
		rows, err = db.Pool.Query(ctx, `
            SELECT id, user_id, title, description, kind, city, address, currency, status, created_at, updated_at
            FROM listings
            WHERE status = 'active'
            ORDER BY created_at DESC
            LIMIT 20 OFFSET $1
        `, offset)
	}

	if err != nil {
		log.Printf("Ошибка запроса объявлений: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка получения объявлений"})
	}
	defer rows.Close()

	listings := scanListings(ctx, rows)

	return c.JSON(fiber.Map{
		"listings": listings,
		"count":    len(listings),
	})
}

// DeleteListing архивирует объявление владельца
func (s *ListingService) DeleteListing(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Пользователь не авторизован"})
	}

	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID пользователя"})
	}

	listingID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID объявления"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	tag, err := db.Pool.Exec(ctx, `
        UPDATE listings
        SET status = 'archived', updated_at = NOW()
        WHERE id = $1 AND user_id = $2
    `, listingID, userUUID)

	if err != nil {
		log.Printf("Ошибка архивирования объявления: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка удаления объявления"})
	}

	if tag.RowsAffected() == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Объявление не найдено"})
	}

	return c.JSON(fiber.Map{"success": true})
}

// scanListings сканирует строки выборки объявлений и подгружает условия
func scanListings(ctx context.Context, rows pgx.Rows) []models.Listing {
	listings := []models.Listing{}
	for rows.Next() {
		var listing models.Listing
		if err := rows.Scan(
			&listing.ID, &listing.UserID, &listing.Title, &listing.Description,
			&listing.Kind, &listing.City, &listing.Address, &listing.Currency,
			&listing.Status, &listing.CreatedAt, &listing.UpdatedAt,
		); err != nil {
			log.Printf("Ошибка сканирования строки: %v", err)
			continue
		}
		attachTerms(ctx, &listing)
		listings = append(listings, listing)
	}
	return listings
}

// attachTerms подгружает условия аренды или продажи объявления
func attachTerms(ctx context.Context, listing *models.Listing) {
	switch listing.Kind {
	case models.ListingKindLease:
		var term models.LeaseTerm
		err := db.Pool.QueryRow(ctx, `
            SELECT id, monthly_rent, security_deposit, lease_period, min_lock_in_period, available_from
            FROM lease_terms
            WHERE listing_id = $1
        `, listing.ID).Scan(&term.ID, &term.MonthlyRent, &term.SecurityDeposit,
			&term.LeasePeriod, &term.MinLockInPeriod, &term.AvailableFrom)
		if err == nil {
			listing.LeaseTerm = &term
		} else if err != pgx.ErrNoRows {
			log.Printf("Ошибка получения условий аренды: %v", err)
		}
	case models.ListingKindSale:
		var term models.SaleTerm
		err := db.Pool.QueryRow(ctx, `
            SELECT id, asking_price, booking_amount
            FROM sale_terms
            WHERE listing_id = $1
        `, listing.ID).Scan(&term.ID, &term.AskingPrice, &term.BookingAmount)
		if err == nil {
			listing.SaleTerm = &term
		} else if err != pgx.ErrNoRows {
			log.Printf("Ошибка получения условий продажи: %v", err)
		}
	}
}
