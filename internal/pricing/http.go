package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

type cachedQuote struct {
	price   decimal.Decimal
	fetched time.Time
}

// quoteResponse is the body expected from the quote endpoint. Price may be
// a JSON number or a string.
type quoteResponse struct {
	Symbol string          `json:"symbol"`
	Price  decimal.Decimal `json:"price"`
}

// HTTPSource fetches quotes from GET {baseURL}/{symbol} and caches each
// successful quote for ttl.
type HTTPSource struct {
	baseURL string
	client  *http.Client
	ttl     time.Duration
	now     func() time.Time

	mu    sync.RWMutex
	cache map[string]cachedQuote
}

// NewHTTPSource creates an HTTPSource with the given request timeout and
// cache TTL. A zero ttl disables caching.
func NewHTTPSource(baseURL string, timeout, ttl time.Duration) *HTTPSource {
	return &HTTPSource{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		ttl:     ttl,
		now:     time.Now,
		cache:   make(map[string]cachedQuote),
	}
}

func (s *HTTPSource) PriceOf(ctx context.Context, symbol string) (decimal.Decimal, error) {
	s.mu.RLock()
	if c, ok := s.cache[symbol]; ok && s.now().Sub(c.fetched) < s.ttl {
		s.mu.RUnlock()
		return c.price, nil
	}
	s.mu.RUnlock()

	endpoint := fmt.Sprintf("%s/%s", s.baseURL, url.PathEscape(symbol))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return decimal.Zero, unavailable(symbol, err.Error())
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return decimal.Zero, unavailable(symbol, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, unavailable(symbol, fmt.Sprintf("quote http %d", resp.StatusCode))
	}

	var body quoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return decimal.Zero, unavailable(symbol, "malformed quote: "+err.Error())
	}
	if !body.Price.IsPositive() {
		return decimal.Zero, unavailable(symbol, "non-positive quote")
	}

	s.mu.Lock()
	s.cache[symbol] = cachedQuote{price: body.Price, fetched: s.now()}
	s.mu.Unlock()

	return body.Price, nil
}
