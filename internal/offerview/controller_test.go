package offerview

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rajivgeraev/domio-api/internal/models"
	"github.com/rajivgeraev/domio-api/internal/offers"
)

// fakeRepo — управляемая из теста реализация Repository
type fakeRepo struct {
	negotiations  func(ctx context.Context, params NegotiationParams) ([]models.Offer, error)
	filterCatalog func(ctx context.Context, scope string) (models.OfferFilter, error)
	counterOffers func(ctx context.Context, offerID int64) ([]models.Offer, error)
}

func (f *fakeRepo) GetNegotiations(ctx context.Context, params NegotiationParams) ([]models.Offer, error) {
	return f.negotiations(ctx, params)
}

func (f *fakeRepo) GetOfferFilters(ctx context.Context, scope string) (models.OfferFilter, error) {
	if f.filterCatalog == nil {
		return models.OfferFilter{}, nil
	}
	return f.filterCatalog(ctx, scope)
}

func (f *fakeRepo) GetCounterOffers(ctx context.Context, offerID int64) ([]models.Offer, error) {
	return f.counterOffers(ctx, offerID)
}

func testListing() *models.ListingDetail {
	termID := int64(5)
	return &models.ListingDetail{
		ListingID:   uuid.New(),
		Kind:        models.ListingKindLease,
		Currency:    "INR",
		LeaseTermID: &termID,
	}
}

func pendingOffer(id int64, createdAt string) models.Offer {
	ts, _ := time.Parse(time.RFC3339, createdAt)
	rent := 10000.0
	return models.Offer{
		ID:           id,
		Status:       models.OfferStatusPending,
		CreatedAt:    ts,
		ExpiresAt:    ts.Add(48 * time.Hour),
		ProposedRent: &rent,
	}
}

func rowIDs(snap Snapshot) []int64 {
	out := make([]int64, len(snap.Offers))
	for i, row := range snap.Offers {
		out[i] = row.Offer.ID
	}
	return out
}

// TestController_StaleResponseDiscarded: фетч A с фильтром X выдан раньше
// фетча B с фильтром Y, но завершился позже — итоговый список должен
// отражать Y, а не X
func TestController_StaleResponseDiscarded(t *testing.T) {
	staleStarted := make(chan struct{})
	releaseStale := make(chan struct{})

	offersX := []models.Offer{pendingOffer(1, "2024-01-01T00:00:00Z")}
	offersY := []models.Offer{pendingOffer(2, "2024-01-02T00:00:00Z")}

	repo := &fakeRepo{
		negotiations: func(ctx context.Context, params NegotiationParams) ([]models.Offer, error) {
			if params.FilterBy == "x" {
				close(staleStarted)
				<-releaseStale
				return offersX, nil
			}
			return offersY, nil
		},
	}

	c := NewController(repo, testListing(), models.RoleOwner, nil)
	defer c.Close()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.SetFilter("x")
	}()

	// Ждём, пока запрос A окажется в полёте, затем выдаём запрос B
	<-staleStarted
	c.SetFilter("y")

	// Отпускаем устаревший ответ A уже после применения B
	close(releaseStale)
	wg.Wait()

	snap := c.Snapshot()
	assert.Equal(t, StateLoaded, snap.State)
	assert.Equal(t, []int64{2}, rowIDs(snap))
	assert.Equal(t, "y", snap.Filters.FilterBy)
}

// TestController_ErrorRetainsPreviousOffers: неудачный фетч переводит
// состояние в Error, но прежний список не очищается
func TestController_ErrorRetainsPreviousOffers(t *testing.T) {
	fail := false
	repo := &fakeRepo{
		negotiations: func(ctx context.Context, params NegotiationParams) ([]models.Offer, error) {
			if fail {
				return nil, errors.New("сеть недоступна")
			}
			return []models.Offer{pendingOffer(7, "2024-03-01T00:00:00Z")}, nil
		},
	}

	c := NewController(repo, testListing(), models.RoleOwner, nil)
	defer c.Close()

	c.Refresh()
	require.Equal(t, StateLoaded, c.Snapshot().State)

	fail = true
	c.Refresh()

	snap := c.Snapshot()
	assert.Equal(t, StateError, snap.State)
	assert.Error(t, snap.Err)
	assert.Equal(t, []int64{7}, rowIDs(snap), "прежний список должен сохраниться")
}

// TestController_EndToEndNewestOrder: сквозной сценарий из двух
// предложений — сортировка NEWEST ставит более позднее первым,
// строки содержат действия и срок действия
func TestController_EndToEndNewestOrder(t *testing.T) {
	repo := &fakeRepo{
		negotiations: func(ctx context.Context, params NegotiationParams) ([]models.Offer, error) {
			return []models.Offer{
				pendingOffer(1, "2024-01-01T00:00:00Z"),
				pendingOffer(2, "2024-01-03T00:00:00Z"),
			}, nil
		},
	}

	c := NewController(repo, testListing(), models.RoleOwner, nil)
	defer c.Close()
	c.SetClock(func() time.Time {
		return time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)
	})

	c.Refresh()

	snap := c.Snapshot()
	require.Equal(t, StateLoaded, snap.State)
	assert.Equal(t, []int64{2, 1}, rowIDs(snap))

	// У второго (более нового) предложения срок 48 часов
	assert.Equal(t, offers.Validity{Count: 48, Label: offers.LabelHours}, snap.Offers[0].Validity)
	// Первое предложение к этому моменту уже истекло
	assert.Equal(t, offers.Validity{Label: offers.LabelExpired}, snap.Offers[1].Validity)
}

// TestController_HistoryFailureIsolated: ошибка загрузки истории не
// трогает состояние основного списка
func TestController_HistoryFailureIsolated(t *testing.T) {
	repo := &fakeRepo{
		negotiations: func(ctx context.Context, params NegotiationParams) ([]models.Offer, error) {
			return []models.Offer{pendingOffer(3, "2024-02-01T00:00:00Z")}, nil
		},
		counterOffers: func(ctx context.Context, offerID int64) ([]models.Offer, error) {
			return nil, errors.New("история недоступна")
		},
	}

	c := NewController(repo, testListing(), models.RoleOwner, nil)
	defer c.Close()

	c.Refresh()
	c.LoadHistory(3)

	assert.Equal(t, StateLoaded, c.Snapshot().State)

	hist := c.History(3)
	assert.Equal(t, HistoryError, hist.State)
	assert.Error(t, hist.Err)

	// Неизвестное предложение — пустой под-снапшот, а не ошибка
	assert.Equal(t, HistorySnapshot{}, c.History(999))
}

// TestController_HistoryLoaded
func TestController_HistoryLoaded(t *testing.T) {
	repo := &fakeRepo{
		negotiations: func(ctx context.Context, params NegotiationParams) ([]models.Offer, error) {
			return nil, nil
		},
		counterOffers: func(ctx context.Context, offerID int64) ([]models.Offer, error) {
			return []models.Offer{
				pendingOffer(offerID, "2024-02-01T00:00:00Z"),
				pendingOffer(offerID, "2024-01-20T00:00:00Z"),
			}, nil
		},
	}

	c := NewController(repo, testListing(), models.RoleOwner, nil)
	defer c.Close()

	c.LoadHistory(42)

	hist := c.History(42)
	assert.Equal(t, HistoryLoaded, hist.State)
	assert.Len(t, hist.Rounds, 2)
}

// TestController_NoListingContextIsNoop: без контекста объявления фетч
// не выдаётся вовсе
func TestController_NoListingContextIsNoop(t *testing.T) {
	called := false
	repo := &fakeRepo{
		negotiations: func(ctx context.Context, params NegotiationParams) ([]models.Offer, error) {
			called = true
			return nil, nil
		},
	}

	c := NewController(repo, nil, models.RoleOwner, nil)
	defer c.Close()

	c.Refresh()

	assert.False(t, called)
	assert.Equal(t, StateIdle, c.Snapshot().State)
}

// TestController_CloseDropsInflightResult: результат запроса,
// завершившегося после закрытия представления, отбрасывается молча
func TestController_CloseDropsInflightResult(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})

	repo := &fakeRepo{
		negotiations: func(ctx context.Context, params NegotiationParams) ([]models.Offer, error) {
			close(started)
			<-release
			return []models.Offer{pendingOffer(5, "2024-04-01T00:00:00Z")}, nil
		},
	}

	c := NewController(repo, testListing(), models.RoleOwner, nil)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.Refresh()
	}()

	<-started
	c.Close()
	close(release)
	wg.Wait()

	snap := c.Snapshot()
	assert.Empty(t, snap.Offers)
	assert.NotEqual(t, StateLoaded, snap.State)
}

// TestController_DispatchForwardsToSink: действие передаётся приёмнику
// как есть, статус предложения локально не меняется
func TestController_DispatchForwardsToSink(t *testing.T) {
	repo := &fakeRepo{
		negotiations: func(ctx context.Context, params NegotiationParams) ([]models.Offer, error) {
			return nil, nil
		},
	}

	var got []Dispatch
	c := NewController(repo, testListing(), models.RoleOwner, func(d Dispatch) {
		got = append(got, d)
	})
	defer c.Close()

	offer := pendingOffer(9, "2024-05-01T00:00:00Z")
	c.DispatchAction(offers.ActionAccept, offer)

	require.Len(t, got, 1)
	assert.Equal(t, offers.ActionAccept, got[0].Action)
	assert.Equal(t, models.OfferStatusPending, got[0].Offer.Status)
}

// TestController_LoadFilters
func TestController_LoadFilters(t *testing.T) {
	repo := &fakeRepo{
		negotiations: func(ctx context.Context, params NegotiationParams) ([]models.Offer, error) {
			return nil, nil
		},
		filterCatalog: func(ctx context.Context, scope string) (models.OfferFilter, error) {
			return models.OfferFilter{
				SortOptions: []models.FilterOption{{Key: "newest", Label: "Сначала новые"}},
			}, nil
		},
	}

	c := NewController(repo, testListing(), models.RoleOwner, nil)
	defer c.Close()

	c.LoadFilters("lease")

	snap := c.Snapshot()
	require.Len(t, snap.Catalog.SortOptions, 1)
	assert.Equal(t, "newest", snap.Catalog.SortOptions[0].Key)
}
