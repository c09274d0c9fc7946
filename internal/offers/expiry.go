package offers

import "time"

// Метки оставшегося срока действия
const (
	LabelHour    = "hour"
	LabelHours   = "hours"
	LabelExpired = "expired"
)

// Validity описывает оставшийся срок действия предложения в виде,
// готовом для отображения
type Validity struct {
	Count int    `json:"count"`
	Label string `json:"label"`
}

// RemainingValidity вычисляет оставшийся срок действия предложения в
// целых часах между now и expiresAt. Срок ровно в момент now ещё не
// истёк: ноль часов возвращается как {0, "hours"}, а не "expired".
// Час во множественном числе для любого количества, кроме ровно одного.
func RemainingValidity(expiresAt, now time.Time) Validity {
	remaining := expiresAt.Sub(now)
	if remaining < 0 {
		return Validity{Label: LabelExpired}
	}

	hours := int(remaining.Hours())
	label := LabelHours
	if hours == 1 {
		label = LabelHour
	}

	return Validity{Count: hours, Label: label}
}
