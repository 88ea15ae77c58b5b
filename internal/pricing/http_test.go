package pricing

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/efreitasn/portfolioledger/internal/domain"
)

func newQuoteServer(t *testing.T, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/quotes/ACME":
			_, _ = w.Write([]byte(`{"symbol":"ACME","price":55.25}`))
		case "/quotes/STR":
			_, _ = w.Write([]byte(`{"symbol":"STR","price":"12.50"}`))
		case "/quotes/ZERO":
			_, _ = w.Write([]byte(`{"symbol":"ZERO","price":0}`))
		case "/quotes/BAD":
			_, _ = w.Write([]byte(`not json`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPSource_PriceOf(t *testing.T) {
	var hits atomic.Int32
	srv := newQuoteServer(t, &hits)
	s := NewHTTPSource(srv.URL+"/quotes/", time.Second, time.Minute)

	tests := []struct {
		symbol  string
		want    string
		wantErr bool
	}{
		{"ACME", "55.25", false},
		{"STR", "12.5", false},
		{"ZERO", "", true},
		{"BAD", "", true},
		{"MISSING", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.symbol, func(t *testing.T) {
			got, err := s.PriceOf(context.Background(), tt.symbol)
			if tt.wantErr {
				if !errors.Is(err, domain.ErrPriceUnavailable) {
					t.Fatalf("got %v, want ErrPriceUnavailable", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(decimal.RequireFromString(tt.want)) {
				t.Errorf("price = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestHTTPSource_CachesWithinTTL(t *testing.T) {
	var hits atomic.Int32
	srv := newQuoteServer(t, &hits)
	s := NewHTTPSource(srv.URL+"/quotes", time.Second, time.Minute)

	now := time.Now()
	s.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		if _, err := s.PriceOf(context.Background(), "ACME"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if hits.Load() != 1 {
		t.Fatalf("expected 1 upstream request within TTL, got %d", hits.Load())
	}

	now = now.Add(2 * time.Minute)
	if _, err := s.PriceOf(context.Background(), "ACME"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hits.Load() != 2 {
		t.Fatalf("expected a refetch after TTL, got %d requests", hits.Load())
	}
}
