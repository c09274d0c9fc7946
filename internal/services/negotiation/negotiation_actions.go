package negotiation

import (
	"log"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/rajivgeraev/domio-api/internal/db"
	"github.com/rajivgeraev/domio-api/internal/models"
	"github.com/rajivgeraev/domio-api/internal/offers"
)

// UpdateStatus изменяет статус переговоров (принятие/отклонение/отмена).
// Переход разрешается тем же гейтом, что показывает кнопки на клиенте.
func (s *NegotiationService) UpdateStatus(c fiber.Ctx) error {
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

	// Получаем новый статус из запроса
	var requestData struct {
		Status  string `json:"status"` // accepted, rejected, cancelled
		Comment string `json:"comment"`
		Reason  string `json:"reason"`
	}

	if err := c.Bind().Body(&requestData); err != nil {
		log.Printf("Ошибка декодирования тела запроса: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат данных"})
	}

	target, err := ParseTargetStatus(requestData.Status)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Недопустимый статус переговоров"})
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

	if viewerID != current.tenantID && viewerID != current.ownerID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Нет доступа к этим переговорам"})
	}

	offer := s.decorate(ctx, current, viewerID, listing)
	if err := AuthorizeTransition(&offer, offer.Role, listing, target); err != nil {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": err.Error()})
	}

	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		log.Printf("Ошибка начала транзакции: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка базы данных"})
	}
	defer tx.Rollback(ctx)

	// Обновляем статус вместе с аудитом перехода. Условие по статусу
	// защищает от гонки двух одновременных переходов.
	tag, err := tx.Exec(ctx, `
        UPDATE negotiations
        SET status = $1, status_updated_at = NOW(), status_updated_by = $2,
            status_updated_by_role = $3, status_change_comment = $4,
            status_change_reason = $5
        WHERE id = $6 AND status = 'pending'
    `, string(target), viewerID, offer.Role, requestData.Comment, requestData.Reason, negotiationID)

	if err != nil {
		log.Printf("Ошибка обновления статуса переговоров: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка обновления статуса"})
	}

	if tag.RowsAffected() == 0 {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Статус переговоров уже изменён"})
	}

	// Если предложение принято и чата ещё нет — создаем чат переговоров
	var threadID *int64
	if target == models.OfferStatusAccepted && current.offer.ThreadID == nil {
		now := time.Now()
		initialMessage := "Предложение принято. Детали можно обсудить здесь."

		var newThreadID int64
		err = tx.QueryRow(ctx, `
            INSERT INTO threads (negotiation_id, owner_id, counterparty_id, created_at, updated_at,
                last_message_text, last_message_time, is_active)
            VALUES ($1, $2, $3, $4, $5, $6, $7, true)
            RETURNING id
        `, current.rootID, current.ownerID, current.tenantID, now, now, initialMessage, now).Scan(&newThreadID)

		if err != nil {
			log.Printf("Ошибка создания чата переговоров: %v", err)
			// Не прерываемся: основная операция выполнена
		} else {
			threadID = &newThreadID

			_, err = tx.Exec(ctx, `
                INSERT INTO thread_messages (thread_id, sender_id, text, is_read, created_at, updated_at)
                VALUES ($1, $2, $3, false, $4, $5)
            `, newThreadID, viewerID, initialMessage, now, now)
			if err != nil {
				log.Printf("Ошибка создания системного сообщения: %v", err)
			}

			// Чат привязывается ко всей цепочке раундов
			_, err = tx.Exec(ctx, `UPDATE negotiations SET thread_id = $1 WHERE root_id = $2`, newThreadID, current.rootID)
			if err != nil {
				log.Printf("Ошибка привязки чата к переговорам: %v", err)
			}
		}
	}

	if err = tx.Commit(ctx); err != nil {
		log.Printf("Ошибка фиксации транзакции: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка базы данных"})
	}

	// Обе стороны узнают об изменении и перезагружают списки
	s.hub.NotifyOfferUpdated(current.tenantID.String(), negotiationID)
	s.hub.NotifyOfferUpdated(current.ownerID.String(), negotiationID)

	response := fiber.Map{
		"success":        true,
		"negotiation_id": negotiationID,
		"status":         string(target),
	}
	if threadID != nil {
		response["thread_id"] = *threadID
	}

	return c.JSON(response)
}

// CreateCounter создает контрпредложение: новый pending-раунд той же
// цепочки переговоров с новыми условиями. Родительский раунд при этом
// переводится в superseded и больше не допускает переходов.
func (s *NegotiationService) CreateCounter(c fiber.Ctx) error {
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

	var requestData struct {
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

	if viewerID != current.tenantID && viewerID != current.ownerID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Нет доступа к этим переговорам"})
	}

	offer := s.decorate(ctx, current, viewerID, listing)
	gate := offers.AvailableActions(&offer, offer.Role, listing)
	if !gate.Has(offers.ActionCounter) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Контрпредложение сейчас недоступно"})
	}

	// Условия контрпредложения должны соответствовать типу объявления
	if current.kind == models.ListingKindLease && requestData.ProposedRent == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Для аренды необходимо указать арендную ставку"})
	}
	if current.kind == models.ListingKindSale && requestData.ProposedPrice == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Для продажи необходимо указать цену"})
	}

	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		log.Printf("Ошибка начала транзакции: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка базы данных"})
	}
	defer tx.Rollback(ctx)

	// Родительский раунд закрывается контрпредложением: остаться в
	// pending он не может, иначе контрагент примет устаревшие условия.
	// Условие по статусу защищает от гонки с параллельным переходом.
	tag, err := tx.Exec(ctx, `
        UPDATE negotiations
        SET status = 'superseded', status_updated_at = NOW(),
            status_updated_by = $1, status_updated_by_role = $2
        WHERE id = $3 AND status = 'pending'
    `, viewerID, offer.Role, negotiationID)

	if err != nil {
		log.Printf("Ошибка закрытия предыдущего раунда: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка сохранения контрпредложения"})
	}

	if tag.RowsAffected() == 0 {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Статус переговоров уже изменён"})
	}

	expiresAt := time.Now().Add(offerValidityHours * time.Hour)

	var counterID int64
	err = tx.QueryRow(ctx, `
        INSERT INTO negotiations (root_id, listing_id, tenant_id, owner_id, kind, status,
            proposed_rent, proposed_price, security_deposit, booking_amount,
            annual_rent_increment_percentage, move_in_date, lease_period,
            min_lock_in_period, tenant_preferences, expires_at, thread_id,
            status_updated_at, status_updated_by, status_updated_by_role)
        VALUES ($1, $2, $3, $4, $5, 'pending', $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, NOW(), $17, $18)
        RETURNING id
    `, current.rootID, current.offer.ListingID, current.tenantID, current.ownerID, current.kind,
		requestData.ProposedRent, requestData.ProposedPrice,
		requestData.SecurityDeposit, requestData.BookingAmount,
		requestData.AnnualRentIncrementPercentage, requestData.MoveInDate,
		requestData.LeasePeriod, requestData.MinLockInPeriod,
		requestData.TenantPreferences, expiresAt, current.offer.ThreadID,
		viewerID, offer.Role).Scan(&counterID)

	if err != nil {
		log.Printf("Ошибка создания контрпредложения: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка сохранения контрпредложения"})
	}

	if err = tx.Commit(ctx); err != nil {
		log.Printf("Ошибка фиксации транзакции: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка базы данных"})
	}

	// Контрагент узнаёт о новом раунде
	counterpartyID := current.tenantID
	if viewerID == current.tenantID {
		counterpartyID = current.ownerID
	}
	s.hub.NotifyOfferUpdated(counterpartyID.String(), counterID)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success":        true,
		"negotiation_id": counterID,
		"expires_at":     expiresAt,
	})
}

// CreateLease создает договор аренды из принятого предложения
func (s *NegotiationService) CreateLease(c fiber.Ctx) error {
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

	if viewerID != current.tenantID && viewerID != current.ownerID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Нет доступа к этим переговорам"})
	}

	offer := s.decorate(ctx, current, viewerID, listing)
	gate := offers.AvailableActions(&offer, offer.Role, listing)
	if !gate.Has(offers.ActionCreateLease) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Создание договора сейчас недоступно"})
	}

	// Один договор на цепочку переговоров
	var existing int
	err = db.Pool.QueryRow(ctx, `
        SELECT COUNT(*) FROM leases WHERE negotiation_id = $1
    `, current.rootID).Scan(&existing)

	if err != nil {
		log.Printf("Ошибка проверки существующего договора: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка проверки договора"})
	}

	if existing > 0 {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Договор по этим переговорам уже создан"})
	}

	startsAt := time.Now()
	if current.offer.MoveInDate != nil {
		startsAt = *current.offer.MoveInDate
	}

	var leaseID int64
	err = db.Pool.QueryRow(ctx, `
        INSERT INTO leases (negotiation_id, listing_id, owner_id, tenant_id,
            monthly_rent, security_deposit, lease_period, min_lock_in_period,
            annual_rent_increment_percentage, starts_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
        RETURNING id
    `, current.rootID, current.offer.ListingID, current.ownerID, current.tenantID,
		current.offer.ProposedRent, current.offer.SecurityDeposit,
		current.offer.LeasePeriod, current.offer.MinLockInPeriod,
		current.offer.AnnualRentIncrementPercentage, startsAt).Scan(&leaseID)

	if err != nil {
		log.Printf("Ошибка создания договора аренды: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка создания договора"})
	}

	s.hub.NotifyOfferUpdated(current.tenantID.String(), negotiationID)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success":  true,
		"lease_id": leaseID,
	})
}
