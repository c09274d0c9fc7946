package thread

import (
	"context"
	"encoding/json"
	"errors"
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
	"github.com/rajivgeraev/domio-api/internal/websocket"
)

// errNotParticipant возвращается, когда пользователь не участвует в чате
var errNotParticipant = errors.New("пользователь не является участником чата")

// ThreadService представляет сервис чатов переговоров
type ThreadService struct {
	cfg        *config.Config
	jwtService *utils.JWTService
	hub        *websocket.Hub
}

// NewThreadService создает новый экземпляр ThreadService
func NewThreadService(cfg *config.Config, hub *websocket.Hub) *ThreadService {
	return &ThreadService{
		cfg:        cfg,
		jwtService: utils.NewJWTService(cfg.JWTSecret),
		hub:        hub,
	}
}

// GetThreads возвращает список чатов пользователя
func (s *ThreadService) GetThreads(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Пользователь не авторизован"})
	}

	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID пользователя"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	// Запрос списка чатов с количеством непрочитанных сообщений
	query := `
        SELECT t.id, t.negotiation_id, t.owner_id, t.counterparty_id, t.created_at, t.updated_at,
               COALESCE(t.last_message_text, ''), t.last_message_time, t.is_active,
               COUNT(m.id) FILTER (WHERE m.sender_id != $1 AND m.is_read = false) AS unread_count
        FROM threads t
        LEFT JOIN thread_messages m ON t.id = m.thread_id
        WHERE t.owner_id = $1 OR t.counterparty_id = $1
        GROUP BY t.id
        ORDER BY t.last_message_time DESC NULLS LAST, t.created_at DESC
    `

	rows, err := db.Pool.Query(ctx, query, userUUID)
	if err != nil {
		log.Printf("Ошибка запроса чатов: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка получения чатов"})
	}
	defer rows.Close()

	threads := []models.Thread{}
	for rows.Next() {
		var thread models.Thread

		if err := rows.Scan(
			&thread.ID,
			&thread.NegotiationID,
			&thread.OwnerID,
			&thread.CounterpartyID,
			&thread.CreatedAt,
			&thread.UpdatedAt,
			&thread.LastMessageText,
			&thread.LastMessageTime,
			&thread.IsActive,
			&thread.UnreadCount,
		); err != nil {
			log.Printf("Ошибка сканирования строки: %v", err)
			continue
		}

		// Загружаем контрагента чата
		otherID := thread.OwnerID
		if thread.OwnerID == userUUID {
			otherID = thread.CounterpartyID
		}
		if other, err := db.GetUserByID(ctx, otherID); err == nil {
			if thread.OwnerID == userUUID {
				thread.Counterparty = other
			} else {
				thread.Owner = other
			}
		}

		threads = append(threads, thread)
	}

	return c.JSON(fiber.Map{
		"threads": threads,
		"count":   len(threads),
	})
}

// GetThreadMessages возвращает сообщения чата и помечает входящие прочитанными
func (s *ThreadService) GetThreadMessages(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Пользователь не авторизован"})
	}

	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID пользователя"})
	}

	threadID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID чата"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	// Проверяем, что пользователь является участником чата
	if err := s.ensureParticipant(ctx, threadID, userUUID); err != nil {
		if err == pgx.ErrNoRows {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Чат не найден"})
		}
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Нет доступа к этому чату"})
	}

	offsetStr := c.Query("offset", "0")
	offset, err := strconv.Atoi(offsetStr)
	if err != nil || offset < 0 {
		offset = 0
	}

	rows, err := db.Pool.Query(ctx, `
        SELECT id, thread_id, sender_id, text, is_read, created_at, updated_at
        FROM thread_messages
        WHERE thread_id = $1
        ORDER BY created_at DESC
        LIMIT 50 OFFSET $2
    `, threadID, offset)

	if err != nil {
		log.Printf("Ошибка запроса сообщений: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка получения сообщений"})
	}
	defer rows.Close()

	messages := []models.ThreadMessage{}
	for rows.Next() {
		var msg models.ThreadMessage
		if err := rows.Scan(
			&msg.ID,
			&msg.ThreadID,
			&msg.SenderID,
			&msg.Text,
			&msg.IsRead,
			&msg.CreatedAt,
			&msg.UpdatedAt,
		); err != nil {
			log.Printf("Ошибка сканирования сообщения: %v", err)
			continue
		}
		messages = append(messages, msg)
	}

	// Помечаем входящие сообщения прочитанными
	_, err = db.Pool.Exec(ctx, `
        UPDATE thread_messages
        SET is_read = true, updated_at = NOW()
        WHERE thread_id = $1 AND sender_id != $2 AND is_read = false
    `, threadID, userUUID)
	if err != nil {
		log.Printf("Ошибка пометки сообщений прочитанными: %v", err)
	}

	return c.JSON(fiber.Map{
		"messages": messages,
		"count":    len(messages),
	})
}

// SendMessage отправляет сообщение в чат переговоров
func (s *ThreadService) SendMessage(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Пользователь не авторизован"})
	}

	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID пользователя"})
	}

	threadID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID чата"})
	}

	var requestData struct {
		Text string `json:"text"`
	}

	if err := c.Bind().Body(&requestData); err != nil {
		log.Printf("Ошибка декодирования тела запроса: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат данных"})
	}

	if requestData.Text == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Текст сообщения обязателен"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	// Загружаем чат и проверяем участие
	var ownerID, counterpartyID uuid.UUID
	var isActive bool
	err = db.Pool.QueryRow(ctx, `
        SELECT owner_id, counterparty_id, is_active FROM threads WHERE id = $1
    `, threadID).Scan(&ownerID, &counterpartyID, &isActive)

	if err != nil {
		if err == pgx.ErrNoRows {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Чат не найден"})
		}
		log.Printf("Ошибка запроса чата: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка получения чата"})
	}

	if userUUID != ownerID && userUUID != counterpartyID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Нет доступа к этому чату"})
	}

	if !isActive {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Чат закрыт"})
	}

	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		log.Printf("Ошибка начала транзакции: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка базы данных"})
	}
	defer tx.Rollback(ctx)

	now := time.Now()

	var message models.ThreadMessage
	message.ThreadID = threadID
	message.SenderID = userUUID
	message.Text = requestData.Text
	message.CreatedAt = now
	message.UpdatedAt = now

	err = tx.QueryRow(ctx, `
        INSERT INTO thread_messages (thread_id, sender_id, text, is_read, created_at, updated_at)
        VALUES ($1, $2, $3, false, $4, $5)
        RETURNING id
    `, threadID, userUUID, requestData.Text, now, now).Scan(&message.ID)

	if err != nil {
		log.Printf("Ошибка сохранения сообщения: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка отправки сообщения"})
	}

	_, err = tx.Exec(ctx, `
        UPDATE threads
        SET last_message_text = $1, last_message_time = $2, updated_at = $2
        WHERE id = $3
    `, requestData.Text, now, threadID)

	if err != nil {
		log.Printf("Ошибка обновления чата: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка отправки сообщения"})
	}

	if err = tx.Commit(ctx); err != nil {
		log.Printf("Ошибка фиксации транзакции: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка базы данных"})
	}

	// Уведомляем контрагента о новом сообщении
	recipientID := ownerID
	if userUUID == ownerID {
		recipientID = counterpartyID
	}
	if payload, err := json.Marshal(message); err == nil {
		s.hub.NotifyNewMessage(recipientID.String(), threadID, payload)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": message,
	})
}

// ensureParticipant проверяет, что пользователь — участник чата
func (s *ThreadService) ensureParticipant(ctx context.Context, threadID int64, userID uuid.UUID) error {
	var ownerID, counterpartyID uuid.UUID
	err := db.Pool.QueryRow(ctx, `
        SELECT owner_id, counterparty_id FROM threads WHERE id = $1
    `, threadID).Scan(&ownerID, &counterpartyID)
	if err != nil {
		return err
	}
	if userID != ownerID && userID != counterpartyID {
		return errNotParticipant
	}
	return nil
}
