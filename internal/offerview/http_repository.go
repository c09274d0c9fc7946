package offerview

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rajivgeraev/domio-api/internal/models"
)

// HTTPRepository реализует Repository поверх REST API сервиса переговоров
type HTTPRepository struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewHTTPRepository создает новый экземпляр HTTPRepository.
// token — bearer-токен текущего пользователя.
func NewHTTPRepository(baseURL, token string) *HTTPRepository {
	return &HTTPRepository{
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

// GetNegotiations запрашивает список переговоров по объявлению
func (r *HTTPRepository) GetNegotiations(ctx context.Context, params NegotiationParams) ([]models.Offer, error) {
	q := url.Values{}
	q.Set("listing_id", params.ListingID.String())
	if params.ListingKind != "" {
		q.Set("kind", params.ListingKind)
	}
	if params.NegotiationType != "" {
		q.Set("type", params.NegotiationType)
	}
	if params.FilterBy != "" {
		q.Set("filter_by", params.FilterBy)
	}

	var payload struct {
		Negotiations []models.Offer `json:"negotiations"`
	}
	if err := r.getJSON(ctx, "/api/negotiations?"+q.Encode(), &payload); err != nil {
		return nil, err
	}
	return payload.Negotiations, nil
}

// GetOfferFilters запрашивает каталог вариантов сортировки и фильтрации
func (r *HTTPRepository) GetOfferFilters(ctx context.Context, scope string) (models.OfferFilter, error) {
	path := "/api/negotiations/filters"
	if scope != "" {
		path += "?scope=" + url.QueryEscape(scope)
	}

	var filter models.OfferFilter
	if err := r.getJSON(ctx, path, &filter); err != nil {
		return models.OfferFilter{}, err
	}
	return filter, nil
}

// GetCounterOffers запрашивает предыдущие раунды конкретных переговоров
func (r *HTTPRepository) GetCounterOffers(ctx context.Context, offerID int64) ([]models.Offer, error) {
	var payload struct {
		Negotiations []models.Offer `json:"negotiations"`
	}
	path := fmt.Sprintf("/api/negotiations/%d/history", offerID)
	if err := r.getJSON(ctx, path, &payload); err != nil {
		return nil, err
	}
	return payload.Negotiations, nil
}

// getJSON выполняет GET запрос и декодирует JSON ответ
func (r *HTTPRepository) getJSON(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("ошибка создания запроса: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("ошибка запроса %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("неожиданный статус %d от %s", resp.StatusCode, path)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("ошибка декодирования ответа %s: %w", path, err)
	}
	return nil
}
