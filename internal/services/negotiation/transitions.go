package negotiation

import (
	"fmt"

	"github.com/rajivgeraev/domio-api/internal/models"
	"github.com/rajivgeraev/domio-api/internal/offers"
)

// Срок действия нового предложения
const offerValidityHours = 48

// Максимальное число раундов контрпредложений по одним переговорам
const maxCounterRounds = 5

// statusActions сопоставляет целевой статус действию гейта.
// Авторизация переходов идёт через offers.AvailableActions — та же
// проверка, что показывает кнопки на клиенте.
var statusActions = map[models.OfferStatus]offers.Action{
	models.OfferStatusAccepted:  offers.ActionAccept,
	models.OfferStatusRejected:  offers.ActionReject,
	models.OfferStatusCancelled: offers.ActionCancel,
}

// ParseTargetStatus проверяет целевой статус запроса на смену статуса.
// Допустимы только accepted, rejected и cancelled: pending назначается
// системой при создании раунда и недостижим через API.
func ParseTargetStatus(raw string) (models.OfferStatus, error) {
	status := models.OfferStatus(raw)
	if _, ok := statusActions[status]; !ok {
		return "", fmt.Errorf("недопустимый целевой статус %q", raw)
	}
	return status, nil
}

// AuthorizeTransition проверяет, разрешён ли наблюдателю перевод
// предложения в целевой статус. Ошибка описывает причину отказа.
func AuthorizeTransition(offer *models.Offer, viewerRole string, listing *models.ListingDetail, target models.OfferStatus) error {
	if offer.Status != models.OfferStatusPending {
		return fmt.Errorf("статус можно изменить только у предложения в ожидании")
	}

	action := statusActions[target]
	gate := offers.AvailableActions(offer, viewerRole, listing)
	if !gate.Has(action) {
		return fmt.Errorf("действие %s недоступно для роли %s", action, viewerRole)
	}
	return nil
}

// ViewerRole возвращает роль наблюдателя в переговорах по объявлению:
// владелец объекта либо арендатор/покупатель в зависимости от типа
func ViewerRole(isAssetOwner bool, kind string) string {
	if isAssetOwner {
		return models.RoleOwner
	}
	if kind == models.ListingKindSale {
		return models.RoleBuyer
	}
	return models.RoleTenant
}
