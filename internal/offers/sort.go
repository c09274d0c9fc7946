package offers

import (
	"sort"

	"github.com/rajivgeraev/domio-api/internal/models"
)

// SortKey определяет порядок сортировки списка предложений.
// Ключи приходят от сервера; неизвестный ключ трактуется как SortNewest.
type SortKey string

const (
	SortNewest     SortKey = "newest"
	SortOldest     SortKey = "oldest"
	SortAmountHigh SortKey = "amount_high"
	SortAmountLow  SortKey = "amount_low"
)

// DefaultSortKey — порядок по умолчанию: новые предложения первыми
const DefaultSortKey = SortNewest

// SortOffers возвращает новый срез предложений, отсортированный по ключу.
// Сортировка стабильная: предложения с равным значением ключа сохраняют
// исходный относительный порядок. Входной срез не изменяется.
func SortOffers(offers []models.Offer, key SortKey) []models.Offer {
	sorted := make([]models.Offer, len(offers))
	copy(sorted, offers)

	var less func(a, b *models.Offer) bool

	switch key {
	case SortOldest:
		less = func(a, b *models.Offer) bool {
			return a.CreatedAt.Before(b.CreatedAt)
		}
	case SortAmountHigh:
		less = func(a, b *models.Offer) bool {
			return a.Amount() > b.Amount()
		}
	case SortAmountLow:
		less = func(a, b *models.Offer) bool {
			return a.Amount() < b.Amount()
		}
	default:
		// SortNewest и любой неизвестный ключ
		less = func(a, b *models.Offer) bool {
			return a.CreatedAt.After(b.CreatedAt)
		}
	}

	sort.SliceStable(sorted, func(i, j int) bool {
		return less(&sorted[i], &sorted[j])
	})

	return sorted
}
