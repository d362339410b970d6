// Package nexarda is the client for the NEXARDA price aggregation API. It
// caches raw responses per endpoint and filters offers to an allow-list of
// storefronts.
package nexarda

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/quest4deals/quest4deals/internal/cache"
	"github.com/quest4deals/quest4deals/pkg/logger"
)

// ErrUpstream marks failures of the aggregator itself (bad status or
// malformed payload) so handlers can map them to a gateway error.
var ErrUpstream = errors.New("nexarda upstream error")

// Config configures the client. TTLs of zero disable caching for that
// endpoint.
type Config struct {
	BaseURL       string
	Timeout       time.Duration
	Cache         *cache.Cache
	SearchTTL     time.Duration
	ProductTTL    time.Duration
	PricesTTL     time.Duration
	AllowedStores []string
	Logger        *logger.Logger
}

// Client issues requests against the aggregator.
type Client struct {
	httpClient *http.Client
	baseURL    string
	cache      *cache.Cache
	searchTTL  time.Duration
	productTTL time.Duration
	pricesTTL  time.Duration
	allowed    map[string]bool
	log        *logger.Logger
}

// NewClient creates a client from configuration.
func NewClient(cfg Config) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("nexarda base URL is required")
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	log := cfg.Logger
	if log == nil {
		log = logger.NewDefault("nexarda")
	}
	store := cfg.Cache
	if store == nil {
		store = cache.New()
	}

	allowed := make(map[string]bool, len(cfg.AllowedStores))
	for _, name := range cfg.AllowedStores {
		allowed[strings.ToLower(strings.TrimSpace(name))] = true
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    base,
		cache:      store,
		searchTTL:  cfg.SearchTTL,
		productTTL: cfg.ProductTTL,
		pricesTTL:  cfg.PricesTTL,
		allowed:    allowed,
		log:        log,
	}, nil
}

// GameSummary is one title in a listing or search result.
type GameSummary struct {
	ID        int64    `json:"id"`
	Title     string   `json:"title"`
	Genre     string   `json:"genre"`
	Type      string   `json:"type"`
	Platforms []string `json:"platforms"`
	CoverURL  string   `json:"cover"`
}

// SearchResults carries paged listing items.
type SearchResults struct {
	Count int           `json:"count"`
	Pages int           `json:"pages"`
	Items []GameSummary `json:"items"`
}

// SearchResponse is the payload of the games and search endpoints.
type SearchResponse struct {
	Success bool          `json:"success"`
	Message string        `json:"message"`
	Results SearchResults `json:"results"`
}

// ProductResponse is the payload of the product detail endpoint.
type ProductResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Info    GameSummary `json:"info"`
}

// StoreInfo identifies a storefront in an offer.
type StoreInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Offer is one storefront's price for a product.
type Offer struct {
	Store     StoreInfo `json:"store"`
	Platform  string    `json:"platform"`
	Edition   string    `json:"edition"`
	Price     float64   `json:"price"`
	Available bool      `json:"available"`
	URL       string    `json:"url"`
}

// PriceList carries the offers for a product.
type PriceList struct {
	Currency string  `json:"currency"`
	Lowest   float64 `json:"lowest"`
	Highest  float64 `json:"highest"`
	List     []Offer `json:"list"`
}

// PricesResponse is the payload of the prices endpoint.
type PricesResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Game    GameSummary `json:"game"`
	Prices  PriceList   `json:"prices"`
}

// Observation is the reduced tuple the rest of the system consumes.
type Observation struct {
	ExternalID string
	Title      string
	Genre      string
	Platform   string
	Price      float64
}

// Games returns a page of the aggregator's game catalog.
func (c *Client) Games(ctx context.Context, page int) (SearchResponse, error) {
	if page < 1 {
		page = 1
	}
	query := url.Values{"page": {fmt.Sprint(page)}}
	var out SearchResponse
	if err := c.getJSON(ctx, "/games", query, c.searchTTL, &out); err != nil {
		return SearchResponse{}, err
	}
	return out, nil
}

// Search looks up games matching the query string.
func (c *Client) Search(ctx context.Context, q string) (SearchResponse, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return SearchResponse{}, fmt.Errorf("search query is required")
	}
	query := url.Values{"type": {"games"}, "q": {q}}
	var out SearchResponse
	if err := c.getJSON(ctx, "/search", query, c.searchTTL, &out); err != nil {
		return SearchResponse{}, err
	}
	return out, nil
}

// Product fetches detail for one game.
func (c *Client) Product(ctx context.Context, externalID string) (ProductResponse, error) {
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return ProductResponse{}, fmt.Errorf("product id is required")
	}
	query := url.Values{"type": {"game"}, "id": {externalID}}
	var out ProductResponse
	if err := c.getJSON(ctx, "/product", query, c.productTTL, &out); err != nil {
		return ProductResponse{}, err
	}
	return out, nil
}

// Prices fetches store offers for one game, filtered to allowed
// storefronts.
func (c *Client) Prices(ctx context.Context, externalID string) (PricesResponse, error) {
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return PricesResponse{}, fmt.Errorf("product id is required")
	}
	query := url.Values{"type": {"game"}, "id": {externalID}}
	var out PricesResponse
	if err := c.getJSON(ctx, "/prices", query, c.pricesTTL, &out); err != nil {
		return PricesResponse{}, err
	}
	out.Prices.List = c.filterOffers(out.Prices.List)
	return out, nil
}

// Observe reduces the offers for a game to per-platform observations,
// keeping the lowest available allowed offer for each platform.
func (c *Client) Observe(ctx context.Context, externalID string) ([]Observation, error) {
	resp, err := c.Prices(ctx, externalID)
	if err != nil {
		return nil, err
	}

	lowest := make(map[string]Offer)
	for _, offer := range resp.Prices.List {
		if !offer.Available {
			continue
		}
		platform := strings.TrimSpace(offer.Platform)
		if platform == "" {
			platform = "PC"
		}
		key := strings.ToLower(platform)
		if current, ok := lowest[key]; !ok || offer.Price < current.Price {
			offer.Platform = platform
			lowest[key] = offer
		}
	}

	result := make([]Observation, 0, len(lowest))
	for _, offer := range lowest {
		result = append(result, Observation{
			ExternalID: externalID,
			Title:      resp.Game.Title,
			Genre:      resp.Game.Genre,
			Platform:   offer.Platform,
			Price:      offer.Price,
		})
	}
	return result, nil
}

func (c *Client) filterOffers(offers []Offer) []Offer {
	if len(c.allowed) == 0 {
		return offers
	}
	filtered := make([]Offer, 0, len(offers))
	for _, offer := range offers {
		if c.allowed[strings.ToLower(offer.Store.Name)] {
			filtered = append(filtered, offer)
		}
	}
	return filtered
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, ttl time.Duration, target any) error {
	key := path + "?" + query.Encode()

	if ttl > 0 {
		if cached, ok := c.cache.Get(key); ok {
			if raw, isRaw := cached.([]byte); isRaw {
				if err := json.Unmarshal(raw, target); err == nil {
					return nil
				}
			}
		}
	}

	endpoint := c.baseURL + path + "?" + query.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		c.log.WithField("path", path).
			WithField("status", resp.StatusCode).
			Warn("aggregator request failed")
		return fmt.Errorf("%w: status %d: %s", ErrUpstream, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return fmt.Errorf("%w: read body: %v", ErrUpstream, err)
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("%w: decode: %v", ErrUpstream, err)
	}

	if ttl > 0 {
		c.cache.Set(key, raw, ttl)
	}
	return nil
}
