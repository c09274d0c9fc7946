package offerview

import (
	"context"

	"github.com/google/uuid"

	"github.com/rajivgeraev/domio-api/internal/models"
)

// NegotiationParams описывает параметры запроса списка переговоров.
// FilterBy — непрозрачный серверный ключ фильтрации: клиент передаёт
// его как есть и не интерпретирует.
type NegotiationParams struct {
	ListingID       uuid.UUID
	ListingKind     string // lease, sale
	NegotiationType string // received, sent
	FilterBy        string
}

// Repository определяет операции бэкенда, которые потребляет контроллер
// списка предложений. Реализация по HTTP — в этом же пакете; в тестах
// подменяется фейком.
type Repository interface {
	GetNegotiations(ctx context.Context, params NegotiationParams) ([]models.Offer, error)
	GetOfferFilters(ctx context.Context, scope string) (models.OfferFilter, error)
	GetCounterOffers(ctx context.Context, offerID int64) ([]models.Offer, error)
}
