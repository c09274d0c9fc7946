package models

import (
	"time"

	"github.com/google/uuid"
)

// OfferStatus представляет статус переговоров. Источник истины — сервер,
// клиентский код статус никогда не вычисляет и не изменяет.
type OfferStatus string

const (
	OfferStatusPending   OfferStatus = "pending"
	OfferStatusAccepted  OfferStatus = "accepted"
	OfferStatusRejected  OfferStatus = "rejected"
	OfferStatusCancelled OfferStatus = "cancelled"

	// Раунд закрыт контрпредложением; активен только новый раунд
	OfferStatusSuperseded OfferStatus = "superseded"
)

// Роли участников переговоров
const (
	RoleOwner  = "owner"
	RoleTenant = "tenant"
	RoleBuyer  = "buyer"
	RoleSeller = "seller"
)

// Offer представляет одно предложение (раунд переговоров) по объявлению.
// Каждый снапшот, полученный от сервера, целиком заменяет предыдущий
// снапшот того же id.
type Offer struct {
	ID        int64       `json:"id"`
	ListingID uuid.UUID   `json:"listing_id"`
	Status    OfferStatus `json:"status"`
	CreatedAt time.Time   `json:"created_at"`
	ExpiresAt time.Time   `json:"expires_at"`

	// Условия предложения. Rent и Price взаимоисключающие:
	// аренда либо продажа, в зависимости от типа объявления.
	ProposedRent                  *float64   `json:"proposed_rent,omitempty"`
	ProposedPrice                 *float64   `json:"proposed_price,omitempty"`
	SecurityDeposit               *float64   `json:"security_deposit,omitempty"`
	BookingAmount                 *float64   `json:"booking_amount,omitempty"`
	AnnualRentIncrementPercentage *float64   `json:"annual_rent_increment_percentage,omitempty"`
	MoveInDate                    *time.Time `json:"move_in_date,omitempty"`
	LeasePeriod                   *int       `json:"lease_period,omitempty"`      // месяцы
	MinLockInPeriod               *int       `json:"min_lock_in_period,omitempty"` // месяцы
	TenantPreferences             []string   `json:"tenant_preferences,omitempty"`

	// Подсказки сервера о доступных действиях. Клиент пересекает их
	// с локальным вычислением, а не доверяет напрямую.
	Actions        []string `json:"actions,omitempty"`
	CanCounter     bool     `json:"can_counter"`
	CanCreateLease bool     `json:"can_create_lease"`

	CounterOffersCount int    `json:"counter_offers_count"`
	Role               string `json:"role"`
	IsAssetOwner       bool   `json:"is_asset_owner"`

	// Аудит последнего изменения статуса
	StatusUpdatedAt     *time.Time `json:"status_updated_at,omitempty"`
	StatusUpdatedBy     *uuid.UUID `json:"status_updated_by,omitempty"`
	StatusUpdatedByRole string     `json:"status_updated_by_role,omitempty"`
	StatusChangeComment string     `json:"status_change_comment,omitempty"`
	StatusChangeReason  string     `json:"status_change_reason,omitempty"`

	// Связь с чатом переговоров
	ThreadID      *int64 `json:"thread_id,omitempty"`
	CommentsCount int    `json:"comments_count"`

	// Контрагент по переговорам
	User *User `json:"user,omitempty"`
}

// IsLease сообщает, относится ли предложение к аренде
func (o *Offer) IsLease() bool {
	return o.ProposedRent != nil
}

// Amount возвращает денежную сумму предложения: арендную ставку для
// аренды, цену для продажи. Ноль, если условия не заполнены.
func (o *Offer) Amount() float64 {
	if o.ProposedRent != nil {
		return *o.ProposedRent
	}
	if o.ProposedPrice != nil {
		return *o.ProposedPrice
	}
	return 0
}
