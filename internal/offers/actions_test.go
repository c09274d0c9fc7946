package offers

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rajivgeraev/domio-api/internal/models"
)

func leaseListing() *models.ListingDetail {
	termID := int64(77)
	return &models.ListingDetail{Kind: models.ListingKindLease, Currency: "INR", LeaseTermID: &termID}
}

func leaseOffer(status models.OfferStatus) *models.Offer {
	rent := 25000.0
	return &models.Offer{
		ID:           1,
		Status:       status,
		ProposedRent: &rent,
	}
}

func actionList(s ActionSet) []Action {
	return s.List()
}

// TestAvailableActions_CreateLeaseExclusive: принятое предложение с
// can_create_lease даёт ровно одно действие — create_lease
func TestAvailableActions_CreateLeaseExclusive(t *testing.T) {
	offer := leaseOffer(models.OfferStatusAccepted)
	offer.CanCreateLease = true
	offer.StatusUpdatedByRole = models.RoleOwner

	set := AvailableActions(offer, models.RoleTenant, leaseListing())

	assert.Equal(t, []Action{ActionCreateLease}, actionList(set))
	assert.False(t, set.Has(ActionAccept))
	assert.False(t, set.Has(ActionReject))
	assert.False(t, set.Has(ActionCancel))
}

// TestAvailableActions_ServerHintIntersection: локально вычисленные
// accept/reject урезаются подсказкой сервера до одного accept
func TestAvailableActions_ServerHintIntersection(t *testing.T) {
	offer := leaseOffer(models.OfferStatusPending)
	offer.StatusUpdatedByRole = models.RoleTenant
	offer.Actions = []string{"accept"}

	set := AvailableActions(offer, models.RoleOwner, leaseListing())

	assert.Equal(t, []Action{ActionAccept}, actionList(set))
}

// TestAvailableActions_NonPending: по завершённым переговорам
// изменяющие действия недоступны, cancel — никогда
func TestAvailableActions_NonPending(t *testing.T) {
	for _, status := range []models.OfferStatus{
		models.OfferStatusRejected,
		models.OfferStatusCancelled,
		models.OfferStatusSuperseded,
	} {
		offer := leaseOffer(status)
		offer.CanCounter = true
		offer.StatusUpdatedByRole = models.RoleTenant

		set := AvailableActions(offer, models.RoleOwner, leaseListing())
		assert.Empty(t, actionList(set), "status %s", status)
	}
}

// TestAvailableActions_CounterRequiresFlagAndPending
func TestAvailableActions_CounterRequiresFlagAndPending(t *testing.T) {
	offer := leaseOffer(models.OfferStatusPending)
	offer.StatusUpdatedByRole = models.RoleTenant
	offer.CanCounter = false

	set := AvailableActions(offer, models.RoleOwner, leaseListing())
	assert.False(t, set.Has(ActionCounter))

	offer.CanCounter = true
	set = AvailableActions(offer, models.RoleOwner, leaseListing())
	assert.True(t, set.Has(ActionCounter))

	offer.Status = models.OfferStatusAccepted
	set = AvailableActions(offer, models.RoleOwner, leaseListing())
	assert.False(t, set.Has(ActionCounter))
}

// TestAvailableActions_RoleSides: сторона последнего хода может только
// отменить, противоположная — принять или отклонить
func TestAvailableActions_RoleSides(t *testing.T) {
	offer := leaseOffer(models.OfferStatusPending)
	offer.StatusUpdatedByRole = models.RoleTenant

	// Владелец отвечает на ход арендатора
	ownerSet := AvailableActions(offer, models.RoleOwner, leaseListing())
	assert.True(t, ownerSet.Has(ActionAccept))
	assert.True(t, ownerSet.Has(ActionReject))
	assert.False(t, ownerSet.Has(ActionCancel))

	// Арендатор сделал последний ход — ему доступна только отмена
	tenantSet := AvailableActions(offer, models.RoleTenant, leaseListing())
	assert.False(t, tenantSet.Has(ActionAccept))
	assert.False(t, tenantSet.Has(ActionReject))
	assert.True(t, tenantSet.Has(ActionCancel))
}

// TestAvailableActions_InitialOfferBeforeAnyTransition: до первого
// изменения статуса отвечает владелец объекта
func TestAvailableActions_InitialOfferBeforeAnyTransition(t *testing.T) {
	offer := leaseOffer(models.OfferStatusPending)
	offer.IsAssetOwner = true

	set := AvailableActions(offer, models.RoleOwner, leaseListing())
	assert.True(t, set.Has(ActionAccept))
	assert.True(t, set.Has(ActionReject))
	assert.False(t, set.Has(ActionCancel))

	// Та же запись глазами автора предложения
	offer.IsAssetOwner = false
	set = AvailableActions(offer, models.RoleTenant, leaseListing())
	assert.False(t, set.Has(ActionAccept))
	assert.True(t, set.Has(ActionCancel))
}

// TestAvailableActions_MissingListingContext: без контекста объявления
// гейт отдаёт пустое множество, а не ошибку
func TestAvailableActions_MissingListingContext(t *testing.T) {
	offer := leaseOffer(models.OfferStatusPending)
	offer.StatusUpdatedByRole = models.RoleTenant
	offer.CanCounter = true

	assert.Empty(t, AvailableActions(offer, models.RoleOwner, nil))

	// Объявление есть, но нет условий аренды для арендного предложения
	saleOnly := &models.ListingDetail{Kind: models.ListingKindLease, Currency: "INR"}
	assert.Empty(t, AvailableActions(offer, models.RoleOwner, saleOnly))

	assert.Empty(t, AvailableActions(nil, models.RoleOwner, leaseListing()))
}
