package websocket

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_SendToUserDeliversToAllConnections(t *testing.T) {
	hub := NewHub()
	userID := uuid.New().String()

	first := NewClient(userID, nil, hub)
	second := NewClient(userID, nil, hub)
	hub.AddClient(first)
	hub.AddClient(second)

	hub.NotifyOfferUpdated(userID, 42)

	for _, client := range []*Client{first, second} {
		select {
		case raw := <-client.send:
			var event Event
			require.NoError(t, json.Unmarshal(raw, &event))
			assert.Equal(t, EventOfferUpdated, event.Type)
			assert.Equal(t, "42", event.NegotiationID)
		case <-time.After(time.Second):
			t.Fatalf("событие не доставлено клиенту %s", client.ID)
		}
	}
}

func TestHub_SendToUserOfflineUserIsNoop(t *testing.T) {
	hub := NewHub()

	// Не должно паниковать и не должно ничего регистрировать
	hub.NotifyOfferUpdated(uuid.New().String(), 1)

	hub.clientsMutex.RLock()
	defer hub.clientsMutex.RUnlock()
	assert.Empty(t, hub.clients)
}

// Рассылка во время переподключений клиента: AddClient/RemoveClient меняют
// userClients, SendToUser не должен итерировать эту map вне блокировки
func TestHub_SendToUserDuringClientChurn(t *testing.T) {
	hub := NewHub()
	userID := uuid.New().String()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			client := NewClient(userID, nil, hub)
			hub.AddClient(client)
			hub.RemoveClient(client.ID)
		}
	}()

	for i := 0; i < 200; i++ {
		hub.NotifyOfferUpdated(userID, int64(i))
	}

	<-done
}
