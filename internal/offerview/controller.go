package offerview

import (
	"context"
	"sync"
	"time"

	"github.com/rajivgeraev/domio-api/internal/models"
	"github.com/rajivgeraev/domio-api/internal/offers"
)

// State представляет состояние загрузки списка предложений
type State string

const (
	StateIdle    State = "idle"
	StateLoading State = "loading"
	StateLoaded  State = "loaded"
	StateError   State = "error"
)

// HistoryState представляет состояние загрузки истории контрпредложений
// одного предложения. Независимо от состояния основного списка.
type HistoryState string

const (
	HistoryLoading HistoryState = "loading"
	HistoryLoaded  HistoryState = "loaded"
	HistoryError   HistoryState = "error"
)

// Filters — выбор пользователя в выпадающих списках. Фиксированная
// запись с именованными полями: обновляется только именованными
// сеттерами, без динамических ключей.
type Filters struct {
	SortBy   string `json:"sort_by"`
	FilterBy string `json:"filter_by"`
}

// Dispatch представляет команду пользователя над предложением,
// передаваемую наружу. Контроллер не выполняет изменяющий вызов сам и
// не мутирует статус локально: обновление придёт со следующим фетчем.
type Dispatch struct {
	Action offers.Action `json:"action"`
	Offer  models.Offer  `json:"offer"`
}

// DispatchFunc — приёмник команд, поставляемый хост-экраном
type DispatchFunc func(Dispatch)

// OfferRow — готовая к отображению строка списка: снапшот предложения,
// доступные действия и оставшийся срок действия
type OfferRow struct {
	Offer    models.Offer    `json:"offer"`
	Actions  []offers.Action `json:"actions"`
	Validity offers.Validity `json:"validity"`
}

// Snapshot — готовое к отображению состояние контроллера
type Snapshot struct {
	State   State              `json:"state"`
	Offers  []OfferRow         `json:"offers"`
	Filters Filters            `json:"filters"`
	Catalog models.OfferFilter `json:"catalog"`
	Err     error              `json:"-"`
}

// HistorySnapshot — состояние истории контрпредложений одного предложения
type HistorySnapshot struct {
	State  HistoryState   `json:"state"`
	Rounds []models.Offer `json:"rounds,omitempty"`
	Err    error          `json:"-"`
}

type historyEntry struct {
	gen    uint64
	state  HistoryState
	rounds []models.Offer
	err    error
}

// Controller управляет списком предложений одного открытого объявления:
// загрузка, выбор сортировки/фильтра, история контрпредложений и
// передача действий пользователя наружу. Контекст объявления и роль
// наблюдателя передаются при создании — никакого глобального состояния.
//
// Контроллер терпим к завершению конкурентных запросов не по порядку:
// каждый фетч несёт номер поколения, и устаревший ответ отбрасывается,
// а не затирает более новое состояние.
type Controller struct {
	mu sync.Mutex

	repo       Repository
	listing    *models.ListingDetail
	viewerRole string
	dispatch   DispatchFunc
	now        func() time.Time

	state   State
	offers  []models.Offer
	lastErr error
	filters Filters
	catalog models.OfferFilter
	gen     uint64

	histories map[int64]*historyEntry

	ctx    context.Context
	cancel context.CancelFunc
}

// NewController создает контроллер для одного представления объявления
func NewController(repo Repository, listing *models.ListingDetail, viewerRole string, dispatch DispatchFunc) *Controller {
	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		repo:       repo,
		listing:    listing,
		viewerRole: viewerRole,
		dispatch:   dispatch,
		now:        time.Now,
		state:      StateIdle,
		filters:    Filters{SortBy: string(offers.DefaultSortKey)},
		histories:  make(map[int64]*historyEntry),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// SetClock подменяет источник времени. Используется в тестах.
func (c *Controller) SetClock(now func() time.Time) {
	c.mu.Lock()
	c.now = now
	c.mu.Unlock()
}

// Refresh загружает список переговоров с текущим фильтром. Блокирует
// вызывающую горутину до завершения запроса; конкурентные вызовы
// безопасны — применяется только результат последнего выданного запроса.
// Без контекста объявления запрос не выдаётся вовсе.
func (c *Controller) Refresh() {
	c.mu.Lock()
	if c.listing == nil || c.ctx.Err() != nil {
		c.mu.Unlock()
		return
	}
	c.gen++
	gen := c.gen
	c.state = StateLoading
	params := NegotiationParams{
		ListingID:   c.listing.ListingID,
		ListingKind: c.listing.Kind,
		FilterBy:    c.filters.FilterBy,
	}
	ctx := c.ctx
	c.mu.Unlock()

	fetched, err := c.repo.GetNegotiations(ctx, params)
	c.applyList(gen, fetched, err)
}

// applyList применяет результат фетча, отбрасывая устаревшие ответы
func (c *Controller) applyList(gen uint64, fetched []models.Offer, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.gen || c.ctx.Err() != nil {
		// Ответ устарел или представление закрыто — молча отбрасываем
		return
	}

	if err != nil {
		// Прежний список сохраняется, чтобы представление не мигало пустым
		c.state = StateError
		c.lastErr = err
		return
	}

	c.offers = fetched
	c.state = StateLoaded
	c.lastErr = nil
}

// SetSort обновляет ключ сортировки и перезагружает список
func (c *Controller) SetSort(sortBy string) {
	c.mu.Lock()
	c.filters.SortBy = sortBy
	c.mu.Unlock()
	c.Refresh()
}

// SetFilter обновляет серверный ключ фильтрации и перезагружает список
func (c *Controller) SetFilter(filterBy string) {
	c.mu.Lock()
	c.filters.FilterBy = filterBy
	c.mu.Unlock()
	c.Refresh()
}

// LoadFilters загружает каталог вариантов сортировки и фильтрации.
// Ошибка не влияет на состояние списка: выпадающий список просто
// остаётся прежним.
func (c *Controller) LoadFilters(scope string) {
	c.mu.Lock()
	if c.ctx.Err() != nil {
		c.mu.Unlock()
		return
	}
	ctx := c.ctx
	c.mu.Unlock()

	catalog, err := c.repo.GetOfferFilters(ctx, scope)
	if err != nil {
		return
	}

	c.mu.Lock()
	c.catalog = catalog
	c.mu.Unlock()
}

// LoadHistory загружает предыдущие раунды одного предложения.
// Под-состояние истории изолировано от основного списка: его ошибка
// основное состояние не трогает.
func (c *Controller) LoadHistory(offerID int64) {
	c.mu.Lock()
	if c.ctx.Err() != nil {
		c.mu.Unlock()
		return
	}
	entry, ok := c.histories[offerID]
	if !ok {
		entry = &historyEntry{}
		c.histories[offerID] = entry
	}
	entry.gen++
	gen := entry.gen
	entry.state = HistoryLoading
	ctx := c.ctx
	c.mu.Unlock()

	rounds, err := c.repo.GetCounterOffers(ctx, offerID)

	c.mu.Lock()
	defer c.mu.Unlock()
	if entry.gen != gen || c.ctx.Err() != nil {
		return
	}
	if err != nil {
		entry.state = HistoryError
		entry.err = err
		return
	}
	entry.state = HistoryLoaded
	entry.rounds = rounds
	entry.err = nil
}

// DispatchAction передаёт выбранное действие хост-экрану. Fire-and-forget:
// контроллер не ждёт результата и не мутирует статус предложения,
// доверяя последующей перезагрузке списка.
func (c *Controller) DispatchAction(action offers.Action, offer models.Offer) {
	c.mu.Lock()
	sink := c.dispatch
	c.mu.Unlock()

	if sink == nil {
		return
	}
	sink(Dispatch{Action: action, Offer: offer})
}

// Snapshot возвращает готовую к отображению копию состояния: предложения,
// отсортированные текущим ключом, с доступными действиями и сроком
// действия каждого
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	sorted := offers.SortOffers(c.offers, offers.SortKey(c.filters.SortBy))
	now := c.now()

	rows := make([]OfferRow, len(sorted))
	for i := range sorted {
		o := sorted[i]
		set := offers.AvailableActions(&o, c.viewerRole, c.listing)
		rows[i] = OfferRow{
			Offer:    o,
			Actions:  set.List(),
			Validity: offers.RemainingValidity(o.ExpiresAt, now),
		}
	}

	return Snapshot{
		State:   c.state,
		Offers:  rows,
		Filters: c.filters,
		Catalog: c.catalog,
		Err:     c.lastErr,
	}
}

// History возвращает состояние истории контрпредложений предложения
func (c *Controller) History(offerID int64) HistorySnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.histories[offerID]
	if !ok {
		return HistorySnapshot{}
	}
	rounds := make([]models.Offer, len(entry.rounds))
	copy(rounds, entry.rounds)
	return HistorySnapshot{State: entry.state, Rounds: rounds, Err: entry.err}
}

// Close закрывает представление. Результаты запросов, находящихся в
// полёте, после закрытия молча отбрасываются.
func (c *Controller) Close() {
	c.cancel()
}
