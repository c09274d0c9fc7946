package negotiation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rajivgeraev/domio-api/internal/models"
)

func leaseContext() (*models.Offer, *models.ListingDetail) {
	rent := 45000.0
	termID := int64(7)
	offer := &models.Offer{
		ID:           10,
		Status:       models.OfferStatusPending,
		ProposedRent: &rent,
	}
	listing := &models.ListingDetail{
		Kind:        models.ListingKindLease,
		LeaseTermID: &termID,
	}
	return offer, listing
}

func TestParseTargetStatus(t *testing.T) {
	tests := []struct {
		raw     string
		want    models.OfferStatus
		wantErr bool
	}{
		{raw: "accepted", want: models.OfferStatusAccepted},
		{raw: "rejected", want: models.OfferStatusRejected},
		{raw: "cancelled", want: models.OfferStatusCancelled},
		{raw: "pending", wantErr: true},
		{raw: "expired", wantErr: true},
		{raw: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseTargetStatus(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAuthorizeTransition_OwnerAcceptsInitialOffer(t *testing.T) {
	offer, listing := leaseContext()
	offer.IsAssetOwner = true

	err := AuthorizeTransition(offer, models.RoleOwner, listing, models.OfferStatusAccepted)
	assert.NoError(t, err)

	err = AuthorizeTransition(offer, models.RoleOwner, listing, models.OfferStatusRejected)
	assert.NoError(t, err)

	// Владелец не совершал последнего хода и не может отозвать предложение
	err = AuthorizeTransition(offer, models.RoleOwner, listing, models.OfferStatusCancelled)
	assert.Error(t, err)
}

func TestAuthorizeTransition_TenantCancelsOwnOffer(t *testing.T) {
	offer, listing := leaseContext()
	offer.IsAssetOwner = false

	err := AuthorizeTransition(offer, models.RoleTenant, listing, models.OfferStatusCancelled)
	assert.NoError(t, err)

	err = AuthorizeTransition(offer, models.RoleTenant, listing, models.OfferStatusAccepted)
	assert.Error(t, err)
}

func TestAuthorizeTransition_RespondentFollowsLastMove(t *testing.T) {
	offer, listing := leaseContext()
	offer.IsAssetOwner = false
	offer.StatusUpdatedByRole = models.RoleOwner // владелец сделал контрпредложение

	// Теперь отвечает арендатор
	err := AuthorizeTransition(offer, models.RoleTenant, listing, models.OfferStatusAccepted)
	assert.NoError(t, err)

	err = AuthorizeTransition(offer, models.RoleTenant, listing, models.OfferStatusCancelled)
	assert.Error(t, err)
}

// Раунд, закрытый контрпредложением, не допускает переходов: принять можно
// только условия активного (последнего) раунда цепочки
func TestAuthorizeTransition_SupersededRoundLocked(t *testing.T) {
	offer, listing := leaseContext()
	offer.Status = models.OfferStatusSuperseded
	offer.StatusUpdatedByRole = models.RoleTenant // арендатор сделал контрпредложение

	targets := []models.OfferStatus{
		models.OfferStatusAccepted,
		models.OfferStatusRejected,
		models.OfferStatusCancelled,
	}

	// Ни одна из сторон не может действовать над закрытым раундом
	for _, viewerRole := range []string{models.RoleOwner, models.RoleTenant} {
		offer.IsAssetOwner = viewerRole == models.RoleOwner
		for _, target := range targets {
			err := AuthorizeTransition(offer, viewerRole, listing, target)
			assert.Error(t, err, "роль %s, целевой статус %s", viewerRole, target)
		}
	}
}

func TestAuthorizeTransition_NonPendingRejected(t *testing.T) {
	offer, listing := leaseContext()
	offer.Status = models.OfferStatusAccepted
	offer.IsAssetOwner = true

	err := AuthorizeTransition(offer, models.RoleOwner, listing, models.OfferStatusRejected)
	assert.Error(t, err)
}

func TestAuthorizeTransition_MissingListingContext(t *testing.T) {
	offer, _ := leaseContext()
	offer.IsAssetOwner = true

	err := AuthorizeTransition(offer, models.RoleOwner, nil, models.OfferStatusAccepted)
	assert.Error(t, err)
}

func TestViewerRole(t *testing.T) {
	assert.Equal(t, models.RoleOwner, ViewerRole(true, models.ListingKindLease))
	assert.Equal(t, models.RoleOwner, ViewerRole(true, models.ListingKindSale))
	assert.Equal(t, models.RoleTenant, ViewerRole(false, models.ListingKindLease))
	assert.Equal(t, models.RoleBuyer, ViewerRole(false, models.ListingKindSale))
}
