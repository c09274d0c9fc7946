package websocket

import (
	"context"
	"encoding/json"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Hub представляет центральный реестр всех WebSocket соединений
type Hub struct {
	clients      map[uuid.UUID]*Client
	clientsMutex sync.RWMutex
	userClients  map[string]map[uuid.UUID]bool // userID -> map[clientID]bool
	userMutex    sync.RWMutex
	ctx          context.Context
	cancel       context.CancelFunc
}

// EventType определяет тип события WebSocket
type EventType string

const (
	// Статус переговоров изменился или появился новый раунд: клиент
	// должен перезагрузить список предложений, локально ничего не меняя
	EventOfferUpdated EventType = "offer_updated"

	EventNewMessage   EventType = "new_message"
	EventMessageRead  EventType = "message_read"
	EventConnected    EventType = "connected"
	EventDisconnected EventType = "disconnected"
	EventTyping       EventType = "typing"
	EventStopTyping   EventType = "stop_typing"
	EventUnreadCount  EventType = "unread_count"
)

// Event представляет структуру сообщения для WebSocket
type Event struct {
	Type          EventType       `json:"type"`
	NegotiationID string          `json:"negotiation_id,omitempty"`
	ThreadID      string          `json:"thread_id,omitempty"`
	MessageID     string          `json:"message_id,omitempty"`
	UserID        string          `json:"user_id,omitempty"`
	Timestamp     time.Time       `json:"timestamp"`
	Payload       json.RawMessage `json:"payload,omitempty"`
}

// NewHub создает новый экземпляр Hub
func NewHub() *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:     make(map[uuid.UUID]*Client),
		userClients: make(map[string]map[uuid.UUID]bool),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// AddClient регистрирует нового клиента
func (h *Hub) AddClient(client *Client) {
	h.clientsMutex.Lock()
	h.clients[client.ID] = client
	h.clientsMutex.Unlock()

	// Связываем клиент с пользователем
	h.userMutex.Lock()
	if _, exists := h.userClients[client.UserID]; !exists {
		h.userClients[client.UserID] = make(map[uuid.UUID]bool)
	}
	h.userClients[client.UserID][client.ID] = true
	h.userMutex.Unlock()

	log.Printf("WebSocket client %s connected for user %s", client.ID, client.UserID)
}

// RemoveClient удаляет клиента
func (h *Hub) RemoveClient(clientID uuid.UUID) {
	h.clientsMutex.RLock()
	client, exists := h.clients[clientID]
	h.clientsMutex.RUnlock()

	if !exists {
		return
	}

	userID := client.UserID

	// Удаляем клиент из связи с пользователем
	h.userMutex.Lock()
	if clients, ok := h.userClients[userID]; ok {
		delete(clients, clientID)
		// Если это был последний клиент пользователя, удаляем запись пользователя
		if len(clients) == 0 {
			delete(h.userClients, userID)
		}
	}
	h.userMutex.Unlock()

	// Удаляем клиент из общего списка
	h.clientsMutex.Lock()
	delete(h.clients, clientID)
	h.clientsMutex.Unlock()

	log.Printf("WebSocket client %s disconnected for user %s", clientID, userID)
}

// SendToUser отправляет событие всем соединениям конкретного пользователя
func (h *Hub) SendToUser(userID string, event Event) {
	if userID == "" {
		return
	}

	// Снимаем копию идентификаторов под блокировкой: саму map нельзя
	// итерировать после RUnlock, её меняют AddClient/RemoveClient
	h.userMutex.RLock()
	clientIDs := make([]uuid.UUID, 0, len(h.userClients[userID]))
	for clientID := range h.userClients[userID] {
		clientIDs = append(clientIDs, clientID)
	}
	h.userMutex.RUnlock()

	if len(clientIDs) == 0 {
		// Пользователь не онлайн; состояние в БД уже сохранено
		return
	}

	// Устанавливаем время события, если не установлено
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	eventJSON, err := json.Marshal(event)
	if err != nil {
		log.Printf("Error marshaling event: %v", err)
		return
	}

	for _, clientID := range clientIDs {
		h.clientsMutex.RLock()
		client, exists := h.clients[clientID]
		h.clientsMutex.RUnlock()

		if !exists {
			continue
		}

		// Отправляем в неблокирующем режиме через горутину
		go func(c *Client) {
			select {
			case c.send <- eventJSON:
				// Сообщение успешно добавлено в очередь отправки
			default:
				// Канал заполнен, клиент слишком медленный - закрываем соединение
				log.Printf("Send channel full for client %s, closing connection", c.ID)
				c.conn.Close()
				h.RemoveClient(c.ID)
			}
		}(client)
	}
}

// NotifyOfferUpdated сообщает пользователю об изменении переговоров.
// Hub может быть nil в тестах — тогда уведомление просто пропускается.
func (h *Hub) NotifyOfferUpdated(userID string, negotiationID int64) {
	if h == nil {
		return
	}
	h.SendToUser(userID, Event{
		Type:          EventOfferUpdated,
		NegotiationID: strconv.FormatInt(negotiationID, 10),
		Timestamp:     time.Now(),
	})
}

// NotifyNewMessage сообщает пользователю о новом сообщении в чате
func (h *Hub) NotifyNewMessage(userID string, threadID int64, payload json.RawMessage) {
	if h == nil {
		return
	}
	h.SendToUser(userID, Event{
		Type:      EventNewMessage,
		ThreadID:  strconv.FormatInt(threadID, 10),
		Timestamp: time.Now(),
		Payload:   payload,
	})
}

// BroadcastUnreadCounts отправляет обновленное количество непрочитанных чатов пользователю
func (h *Hub) BroadcastUnreadCounts(userID string, unreadCount int) {
	if h == nil {
		return
	}
	payload, _ := json.Marshal(map[string]int{"count": unreadCount})

	h.SendToUser(userID, Event{
		Type:      EventUnreadCount,
		UserID:    userID,
		Timestamp: time.Now(),
		Payload:   payload,
	})
}

// Shutdown корректно завершает работу Hub
func (h *Hub) Shutdown() {
	h.cancel()

	h.clientsMutex.Lock()
	for _, client := range h.clients {
		client.conn.Close()
	}
	h.clients = make(map[uuid.UUID]*Client)
	h.clientsMutex.Unlock()

	h.userMutex.Lock()
	h.userClients = make(map[string]map[uuid.UUID]bool)
	h.userMutex.Unlock()
}
