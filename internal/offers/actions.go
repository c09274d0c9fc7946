package offers

import (
	"github.com/rajivgeraev/domio-api/internal/models"
)

// Action представляет операцию над предложением, доступную участнику
type Action string

const (
	ActionAccept      Action = "accept"
	ActionReject      Action = "reject"
	ActionCancel      Action = "cancel"
	ActionCounter     Action = "counter"
	ActionCreateLease Action = "create_lease"
)

// ActionSet представляет множество доступных действий
type ActionSet map[Action]struct{}

// Has сообщает, входит ли действие в множество
func (s ActionSet) Has(a Action) bool {
	_, ok := s[a]
	return ok
}

// List возвращает действия множества в фиксированном порядке
func (s ActionSet) List() []Action {
	order := []Action{ActionAccept, ActionReject, ActionCancel, ActionCounter, ActionCreateLease}
	var out []Action
	for _, a := range order {
		if s.Has(a) {
			out = append(out, a)
		}
	}
	return out
}

func (s ActionSet) add(a Action) {
	s[a] = struct{}{}
}

// AvailableActions вычисляет множество действий, доступных наблюдателю
// с ролью viewerRole над предложением offer в контексте объявления
// listing. Единственный источник решения о том, какие кнопки показывать:
// подсказка сервера offer.Actions и флаги can_counter/can_create_lease
// учитываются здесь и нигде больше.
//
// Без контекста объявления (nil listing или отсутствующий id условий
// аренды/продажи, соответствующих типу предложения) возвращается пустое
// множество: отсутствие контекста — это «нет действий», а не ошибка.
func AvailableActions(offer *models.Offer, viewerRole string, listing *models.ListingDetail) ActionSet {
	set := make(ActionSet)

	if offer == nil || !hasTermContext(offer, listing) {
		return set
	}

	pending := offer.Status == models.OfferStatusPending

	// accept/reject доступны стороне, не совершившей последний ход;
	// до первого изменения статуса ход за владельцем объекта,
	// поскольку первое предложение делает арендатор/покупатель.
	// cancel — зеркально, стороне последнего хода.
	respondent := viewerRole != offer.StatusUpdatedByRole
	if offer.StatusUpdatedByRole == "" {
		respondent = offer.IsAssetOwner
	}

	if pending {
		if respondent {
			set.add(ActionAccept)
			set.add(ActionReject)
		} else {
			set.add(ActionCancel)
		}
		if offer.CanCounter {
			set.add(ActionCounter)
		}
	}

	if offer.Status == models.OfferStatusAccepted && offer.CanCreateLease {
		set.add(ActionCreateLease)
	}

	// Пересечение с подсказкой сервера: действие, отсутствующее в
	// offer.Actions, не показывается даже если вычислено локально
	if len(offer.Actions) > 0 {
		hinted := make(map[Action]struct{}, len(offer.Actions))
		for _, a := range offer.Actions {
			hinted[Action(a)] = struct{}{}
		}
		for a := range set {
			if _, ok := hinted[a]; !ok {
				delete(set, a)
			}
		}
	}

	return set
}

// hasTermContext проверяет наличие id условий аренды/продажи,
// соответствующих типу предложения
func hasTermContext(offer *models.Offer, listing *models.ListingDetail) bool {
	if listing == nil {
		return false
	}
	if offer.IsLease() {
		return listing.LeaseTermID != nil
	}
	return listing.SaleTermID != nil
}
