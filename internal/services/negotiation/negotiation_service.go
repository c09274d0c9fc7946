package negotiation

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
	"github.com/rajivgeraev/domio-api/internal/offers"
	"github.com/rajivgeraev/domio-api/internal/utils"
	"github.com/rajivgeraev/domio-api/internal/websocket"
)

// NegotiationService представляет сервис переговоров по объявлениям
type NegotiationService struct {
	cfg        *config.Config
	jwtService *utils.JWTService
	hub        *websocket.Hub
}

// NewNegotiationService создает новый экземпляр NegotiationService
func NewNegotiationService(cfg *config.Config, hub *websocket.Hub) *NegotiationService {
	return &NegotiationService{
		cfg:        cfg,
		jwtService: utils.NewJWTService(cfg.JWTSecret),
		hub:        hub,
	}
}

// negotiationRow — строка таблицы negotiations вместе с контекстом,
// необходимым для проверки прав
type negotiationRow struct {
	offer    models.Offer
	rootID   int64
	tenantID uuid.UUID
	ownerID  uuid.UUID
	kind     string
}

const offerColumns = `
        n.id, n.root_id, n.listing_id, n.tenant_id, n.owner_id, n.kind,
        n.status, n.created_at, n.expires_at,
        n.proposed_rent, n.proposed_price, n.security_deposit, n.booking_amount,
        n.annual_rent_increment_percentage, n.move_in_date, n.lease_period,
        n.min_lock_in_period, COALESCE(n.tenant_preferences, '{}'),
        n.status_updated_at, n.status_updated_by, n.status_updated_by_role,
        COALESCE(n.status_change_comment, ''), COALESCE(n.status_change_reason, ''),
        n.thread_id,
        (SELECT COUNT(*) FROM negotiations p WHERE p.root_id = n.root_id AND p.id <> n.id) AS counter_offers_count,
        COALESCE((SELECT COUNT(*) FROM thread_messages m WHERE m.thread_id = n.thread_id), 0) AS comments_count`

// scanNegotiation сканирует одну строку выборки с offerColumns
func scanNegotiation(row pgx.Row) (*negotiationRow, error) {
	var n negotiationRow
	err := row.Scan(
		&n.offer.ID,
		&n.rootID,
		&n.offer.ListingID,
		&n.tenantID,
		&n.ownerID,
		&n.kind,
		&n.offer.Status,
		&n.offer.CreatedAt,
		&n.offer.ExpiresAt,
		&n.offer.ProposedRent,
		&n.offer.ProposedPrice,
		&n.offer.SecurityDeposit,
		&n.offer.BookingAmount,
		&n.offer.AnnualRentIncrementPercentage,
		&n.offer.MoveInDate,
		&n.offer.LeasePeriod,
		&n.offer.MinLockInPeriod,
		&n.offer.TenantPreferences,
		&n.offer.StatusUpdatedAt,
		&n.offer.StatusUpdatedBy,
		&n.offer.StatusUpdatedByRole,
		&n.offer.StatusChangeComment,
		&n.offer.StatusChangeReason,
		&n.offer.ThreadID,
		&n.offer.CounterOffersCount,
		&n.offer.CommentsCount,
	)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// decorate заполняет поля снапшота, зависящие от наблюдателя: роль,
// флаги, подсказку доступных действий и контрагента
func (s *NegotiationService) decorate(ctx context.Context, n *negotiationRow, viewerID uuid.UUID, listing *models.ListingDetail) models.Offer {
	offer := n.offer

	offer.IsAssetOwner = viewerID == n.ownerID
	offer.Role = ViewerRole(offer.IsAssetOwner, n.kind)
	offer.CanCounter = offer.Status == models.OfferStatusPending &&
		offer.CounterOffersCount < maxCounterRounds
	offer.CanCreateLease = offer.Status == models.OfferStatusAccepted &&
		n.kind == models.ListingKindLease && offer.IsAssetOwner

	// Подсказка сервера — то же вычисление, что и на клиенте
	gate := offers.AvailableActions(&offer, offer.Role, listing)
	offer.Actions = nil
	for _, a := range gate.List() {
		offer.Actions = append(offer.Actions, string(a))
	}

	// Контрагент: владелец видит арендатора/покупателя и наоборот
	counterpartyID := n.tenantID
	if !offer.IsAssetOwner {
		counterpartyID = n.ownerID
	}
	user, err := db.GetUserByID(ctx, counterpartyID)
	if err != nil {
		log.Printf("Ошибка получения пользователя %s: %v", counterpartyID, err)
	} else {
		offer.User = user
	}

	return offer
}

// loadListingDetail загружает контекст объявления для гейта действий
func loadListingDetail(ctx context.Context, listingID uuid.UUID) (*models.ListingDetail, error) {
	var d models.ListingDetail
	d.ListingID = listingID

	err := db.Pool.QueryRow(ctx, `
        SELECT l.user_id, l.kind, l.currency, lt.id, st.id
        FROM listings l
        LEFT JOIN lease_terms lt ON lt.listing_id = l.id
        LEFT JOIN sale_terms st ON st.listing_id = l.id
        WHERE l.id = $1
    `, listingID).Scan(&d.OwnerID, &d.Kind, &d.Currency, &d.LeaseTermID, &d.SaleTermID)

	if err != nil {
		return nil, err
	}
	return &d, nil
}

// CreateNegotiation создает новое предложение по объявлению
func (s *NegotiationService) CreateNegotiation(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Пользователь не авторизован"})
	}

	tenantID, err := uuid.Parse(userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID пользователя"})
	}

	// Извлекаем данные из запроса
	var requestData struct {
		ListingID                     string     `json:"listing_id"`
		ProposedRent                  *float64   `json:"proposed_rent"`
		ProposedPrice                 *float64   `json:"proposed_price"`
		SecurityDeposit               *float64   `json:"security_deposit"`
		BookingAmount                 *float64   `json:"booking_amount"`
		AnnualRentIncrementPercentage *float64   `json:"annual_rent_increment_percentage"`
		MoveInDate                    *time.Time `json:"move_in_date"`
		LeasePeriod                   *int       `json:"lease_period"`
		MinLockInPeriod               *int       `json:"min_lock_in_period"`
		TenantPreferences             []string   `json:"tenant_preferences"`
	}

	if err := c.Bind().Body(&requestData); err != nil {
		log.Printf("Ошибка декодирования тела запроса: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат данных"})
	}

	listingID, err := uuid.Parse(requestData.ListingID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID объявления"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	// Загружаем контекст объявления
	listing, err := loadListingDetail(ctx, listingID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Объявление не найдено"})
		}
		log.Printf("Ошибка запроса объявления: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка проверки объявления"})
	}

	// Нельзя делать предложение по собственному объявлению
	if listing.OwnerID == tenantID {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Нельзя сделать предложение по собственному объявлению"})
	}

	// Условия должны соответствовать типу объявления
	if listing.Kind == models.ListingKindLease && requestData.ProposedRent == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Для аренды необходимо указать арендную ставку"})
	}
	if listing.Kind == models.ListingKindSale && requestData.ProposedPrice == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Для продажи необходимо указать цену"})
	}
	if requestData.ProposedRent != nil && requestData.ProposedPrice != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Арендная ставка и цена взаимоисключающие"})
	}

	// Проверяем, нет ли уже активных переговоров этого пользователя
	var existingCount int
	err = db.Pool.QueryRow(ctx, `
        SELECT COUNT(*) FROM negotiations
        WHERE listing_id = $1 AND tenant_id = $2 AND status = 'pending'
    `, listingID, tenantID).Scan(&existingCount)

	if err != nil {
		log.Printf("Ошибка проверки существующих переговоров: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка проверки существующих переговоров"})
	}

	if existingCount > 0 {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "По этому объявлению уже есть активное предложение"})
	}

	// Начинаем транзакцию
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		log.Printf("Ошибка начала транзакции: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка базы данных"})
	}
	defer tx.Rollback(ctx)

	expiresAt := time.Now().Add(offerValidityHours * time.Hour)

	var negotiationID int64
	err = tx.QueryRow(ctx, `
        INSERT INTO negotiations (listing_id, tenant_id, owner_id, kind, status,
            proposed_rent, proposed_price, security_deposit, booking_amount,
            annual_rent_increment_percentage, move_in_date, lease_period,
            min_lock_in_period, tenant_preferences, expires_at)
        VALUES ($1, $2, $3, $4, 'pending', $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
        RETURNING id
    `, listingID, tenantID, listing.OwnerID, listing.Kind,
		requestData.ProposedRent, requestData.ProposedPrice,
		requestData.SecurityDeposit, requestData.BookingAmount,
		requestData.AnnualRentIncrementPercentage, requestData.MoveInDate,
		requestData.LeasePeriod, requestData.MinLockInPeriod,
		requestData.TenantPreferences, expiresAt).Scan(&negotiationID)

	if err != nil {
		log.Printf("Ошибка создания предложения: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка сохранения предложения"})
	}

	// Первый раунд является корнем собственной цепочки
	_, err = tx.Exec(ctx, `UPDATE negotiations SET root_id = id WHERE id = $1`, negotiationID)
	if err != nil {
		log.Printf("Ошибка инициализации цепочки переговоров: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка сохранения предложения"})
	}

	if err = tx.Commit(ctx); err != nil {
		log.Printf("Ошибка фиксации транзакции: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка базы данных"})
	}

	// Уведомляем владельца объявления
	s.hub.NotifyOfferUpdated(listing.OwnerID.String(), negotiationID)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success":        true,
		"negotiation_id": negotiationID,
		"expires_at":     expiresAt,
	})
}

// GetNegotiations возвращает список переговоров по объявлению.
// filter_by — серверный ключ фильтрации; неизвестный ключ трактуется
// как отсутствие фильтра.
func (s *NegotiationService) GetNegotiations(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Пользователь не авторизован"})
	}

	viewerID, err := uuid.Parse(userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID пользователя"})
	}

	listingID, err := uuid.Parse(c.Query("listing_id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID объявления"})
	}

	filterBy := c.Query("filter_by", "all")

	ctx, cancel := db.GetContext()
	defer cancel()

	listing, err := loadListingDetail(ctx, listingID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Объявление не найдено"})
		}
		log.Printf("Ошибка запроса объявления: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка проверки объявления"})
	}

	// Владелец видит все переговоры по объявлению, остальные — только свои
	query := `
        SELECT ` + offerColumns + `
        FROM negotiations n
        WHERE n.listing_id = $1
          AND n.id = (SELECT MAX(x.id) FROM negotiations x WHERE x.root_id = n.root_id)`
	args := []interface{}{listingID}

	if listing.OwnerID != viewerID {
		query += ` AND n.tenant_id = $2`
		args = append(args, viewerID)
	}

	query += filterCondition(filterBy)
	query += ` ORDER BY n.created_at DESC`

	rows, err := db.Pool.Query(ctx, query, args...)
	if err != nil {
		log.Printf("Ошибка запроса переговоров: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка получения переговоров"})
	}
	defer rows.Close()

	negotiations := []models.Offer{}
	for rows.Next() {
		n, err := scanNegotiation(rows)
		if err != nil {
			log.Printf("Ошибка сканирования строки: %v", err)
			continue
		}
		negotiations = append(negotiations, s.decorate(ctx, n, viewerID, listing))
	}

	return c.JSON(fiber.Map{
		"negotiations": negotiations,
		"count":        len(negotiations),
	})
}

// filterCondition переводит серверный ключ фильтрации в условие выборки.
// Ключи определяются здесь же (см. GetFilters); неизвестный ключ —
// отсутствие фильтра.
func filterCondition(filterBy string) string {
	switch filterBy {
	case "pending":
		return ` AND n.status = 'pending'`
	case "accepted":
		return ` AND n.status = 'accepted'`
	case "rejected":
		return ` AND n.status = 'rejected'`
	case "cancelled":
		return ` AND n.status = 'cancelled'`
	case "expired":
		return ` AND n.status = 'pending' AND n.expires_at < NOW()`
	default:
		return ``
	}
}

// GetFilters возвращает каталог вариантов сортировки и фильтрации
func (s *NegotiationService) GetFilters(c fiber.Ctx) error {
	filter := models.OfferFilter{
		SortOptions: []models.FilterOption{
			{Key: "newest", Label: "Сначала новые"},
			{Key: "oldest", Label: "Сначала старые"},
			{Key: "amount_high", Label: "Сумма по убыванию"},
			{Key: "amount_low", Label: "Сумма по возрастанию"},
		},
		FilterOptions: []models.FilterOption{
			{Key: "all", Label: "Все"},
			{Key: "pending", Label: "В ожидании"},
			{Key: "accepted", Label: "Принятые"},
			{Key: "rejected", Label: "Отклонённые"},
			{Key: "cancelled", Label: "Отменённые"},
			{Key: "expired", Label: "Истёкшие"},
		},
	}

	return c.JSON(filter)
}

// GetHistory возвращает предыдущие раунды конкретных переговоров
func (s *NegotiationService) GetHistory(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Пользователь не авторизован"})
	}

	viewerID, err := uuid.Parse(userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID пользователя"})
	}

	negotiationID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID переговоров"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	current, listing, err := s.loadRow(ctx, negotiationID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Переговоры не найдены"})
		}
		log.Printf("Ошибка запроса переговоров: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка получения переговоров"})
	}

	// История доступна только участникам
	if viewerID != current.tenantID && viewerID != current.ownerID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Нет доступа к этим переговорам"})
	}

	rows, err := db.Pool.Query(ctx, `
        SELECT `+offerColumns+`
        FROM negotiations n
        WHERE n.root_id = $1 AND n.id <> $2
        ORDER BY n.created_at DESC
    `, current.rootID, negotiationID)

	if err != nil {
		log.Printf("Ошибка запроса истории переговоров: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка получения истории"})
	}
	defer rows.Close()

	negotiations := []models.Offer{}
	for rows.Next() {
		n, err := scanNegotiation(rows)
		if err != nil {
			log.Printf("Ошибка сканирования строки: %v", err)
			continue
		}
		negotiations = append(negotiations, s.decorate(ctx, n, viewerID, listing))
	}

	return c.JSON(fiber.Map{
		"negotiations": negotiations,
		"count":        len(negotiations),
	})
}

// loadRow загружает раунд переговоров вместе с контекстом объявления
func (s *NegotiationService) loadRow(ctx context.Context, negotiationID int64) (*negotiationRow, *models.ListingDetail, error) {
	row := db.Pool.QueryRow(ctx, `
        SELECT `+offerColumns+`
        FROM negotiations n
        WHERE n.id = $1
    `, negotiationID)

	n, err := scanNegotiation(row)
	if err != nil {
		return nil, nil, err
	}

	listing, err := loadListingDetail(ctx, n.offer.ListingID)
	if err != nil {
		return nil, nil, err
	}
	return n, listing, nil
}
