package models

import (
	"time"

	"github.com/google/uuid"
)

// Типы объявлений
const (
	ListingKindLease = "lease"
	ListingKindSale  = "sale"
)

// Listing представляет объявление о сдаче или продаже недвижимости
type Listing struct {
	ID          uuid.UUID  `json:"id"`
	UserID      uuid.UUID  `json:"user_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Kind        string     `json:"kind"` // lease, sale
	City        string     `json:"city"`
	Address     string     `json:"address,omitempty"`
	Currency    string     `json:"currency"`
	Status      string     `json:"status"` // active, draft, archived
	LeaseTerm   *LeaseTerm `json:"lease_term,omitempty"`
	SaleTerm    *SaleTerm  `json:"sale_term,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	// Дополнительные поля для API
	Owner *User `json:"owner,omitempty"`
}

// LeaseTerm содержит условия аренды объявления
type LeaseTerm struct {
	ID              int64      `json:"id"`
	MonthlyRent     float64    `json:"monthly_rent"`
	SecurityDeposit float64    `json:"security_deposit"`
	LeasePeriod     int        `json:"lease_period"`       // месяцы
	MinLockInPeriod int        `json:"min_lock_in_period"` // месяцы
	AvailableFrom   *time.Time `json:"available_from,omitempty"`
}

// SaleTerm содержит условия продажи объявления
type SaleTerm struct {
	ID            int64   `json:"id"`
	AskingPrice   float64 `json:"asking_price"`
	BookingAmount float64 `json:"booking_amount"`
}

// ListingDetail представляет контекст объявления, необходимый для
// вычисления доступных действий по предложению. Read-only агрегат.
type ListingDetail struct {
	ListingID   uuid.UUID `json:"listing_id"`
	OwnerID     uuid.UUID `json:"owner_id"`
	Kind        string    `json:"kind"`
	Currency    string    `json:"currency"`
	LeaseTermID *int64    `json:"lease_term_id,omitempty"`
	SaleTermID  *int64    `json:"sale_term_id,omitempty"`
}

// Detail возвращает контекст объявления для гейта действий
func (l *Listing) Detail() *ListingDetail {
	d := &ListingDetail{
		ListingID: l.ID,
		OwnerID:   l.UserID,
		Kind:      l.Kind,
		Currency:  l.Currency,
	}
	if l.LeaseTerm != nil {
		d.LeaseTermID = &l.LeaseTerm.ID
	}
	if l.SaleTerm != nil {
		d.SaleTermID = &l.SaleTerm.ID
	}
	return d
}
