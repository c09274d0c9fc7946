package offers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rajivgeraev/domio-api/internal/models"
)

func makeOffer(id int64, createdAt string, amount float64) models.Offer {
	t, _ := time.Parse(time.RFC3339, createdAt)
	rent := amount
	return models.Offer{
		ID:           id,
		Status:       models.OfferStatusPending,
		CreatedAt:    t,
		ProposedRent: &rent,
	}
}

func ids(offers []models.Offer) []int64 {
	out := make([]int64, len(offers))
	for i, o := range offers {
		out[i] = o.ID
	}
	return out
}

// TestSortOffers_Newest проверяет сквозной сценарий: сортировка NEWEST
// ставит более позднее предложение первым
func TestSortOffers_Newest(t *testing.T) {
	offers := []models.Offer{
		makeOffer(1, "2024-01-01T00:00:00Z", 100),
		makeOffer(2, "2024-01-03T00:00:00Z", 200),
	}

	sorted := SortOffers(offers, SortNewest)

	require.Len(t, sorted, 2)
	assert.Equal(t, []int64{2, 1}, ids(sorted))
}

// TestSortOffers_UnknownKeyFallback проверяет, что неизвестный ключ
// даёт тот же порядок, что и ключ по умолчанию
func TestSortOffers_UnknownKeyFallback(t *testing.T) {
	offers := []models.Offer{
		makeOffer(1, "2024-01-01T00:00:00Z", 100),
		makeOffer(2, "2024-01-05T00:00:00Z", 300),
		makeOffer(3, "2024-01-03T00:00:00Z", 200),
	}

	byDefault := SortOffers(offers, DefaultSortKey)
	byBogus := SortOffers(offers, SortKey("bogus-key"))

	assert.Equal(t, ids(byDefault), ids(byBogus))
	assert.Equal(t, []int64{2, 3, 1}, ids(byBogus))
}

// TestSortOffers_StableAndIdempotent проверяет, что равные значения ключа
// сохраняют исходный относительный порядок и что повторная сортировка
// не меняет результат
func TestSortOffers_StableAndIdempotent(t *testing.T) {
	same := "2024-02-01T12:00:00Z"
	offers := []models.Offer{
		makeOffer(10, same, 500),
		makeOffer(11, same, 400),
		makeOffer(12, same, 600),
		makeOffer(13, "2024-02-02T12:00:00Z", 100),
	}

	once := SortOffers(offers, SortNewest)
	twice := SortOffers(once, SortNewest)

	// Новое предложение первым, тройка с равным created_at — в исходном порядке
	assert.Equal(t, []int64{13, 10, 11, 12}, ids(once))
	assert.Equal(t, ids(once), ids(twice))
}

// TestSortOffers_DoesNotMutateInput проверяет, что входной срез
// остаётся нетронутым
func TestSortOffers_DoesNotMutateInput(t *testing.T) {
	offers := []models.Offer{
		makeOffer(1, "2024-01-01T00:00:00Z", 100),
		makeOffer(2, "2024-01-03T00:00:00Z", 200),
	}

	_ = SortOffers(offers, SortNewest)

	assert.Equal(t, []int64{1, 2}, ids(offers))
}

// TestSortOffers_AmountKeys проверяет порядок по денежной сумме
func TestSortOffers_AmountKeys(t *testing.T) {
	offers := []models.Offer{
		makeOffer(1, "2024-01-01T00:00:00Z", 200),
		makeOffer(2, "2024-01-02T00:00:00Z", 100),
		makeOffer(3, "2024-01-03T00:00:00Z", 300),
	}

	assert.Equal(t, []int64{3, 1, 2}, ids(SortOffers(offers, SortAmountHigh)))
	assert.Equal(t, []int64{2, 1, 3}, ids(SortOffers(offers, SortAmountLow)))
}
