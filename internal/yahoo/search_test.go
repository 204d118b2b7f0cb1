package yahoo

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/adityap2202/portfolios/internal/quotes"
)

func TestSearchParsesCandidates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("q"); got != "INE002A01018" {
			t.Errorf("expected q=INE002A01018, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"quotes": [
				{"symbol": "RELIANCE.BO", "exchange": "BSE", "quoteType": "EQUITY"},
				{"symbol": "RELIANCE.NS", "exchange": "NSI", "quoteType": "EQUITY"},
				{"symbol": "RELIANCE240125C", "exchange": "NSI", "quoteType": "OPTION"}
			]
		}`))
	}))
	defer server.Close()

	client := NewSearchClientWithBaseURL(server.URL)
	candidates, err := client.Search(context.Background(), "INE002A01018")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(candidates) != 2 {
		t.Fatalf("expected 2 equity candidates, got %d", len(candidates))
	}
	if candidates[0].Symbol != "RELIANCE.BO" || candidates[0].Exchange != quotes.ExchangeBSE {
		t.Errorf("unexpected first candidate: %+v", candidates[0])
	}
	if candidates[1].Symbol != "RELIANCE.NS" || candidates[1].Exchange != quotes.ExchangeNSE {
		t.Errorf("unexpected second candidate: %+v", candidates[1])
	}
}

func TestSearchEmptyResult(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"quotes": []}`))
	}))
	defer server.Close()

	client := NewSearchClientWithBaseURL(server.URL)
	candidates, err := client.Search(context.Background(), "INE999Z09999")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(candidates) != 0 {
		t.Errorf("expected no candidates, got %d", len(candidates))
	}
}

func TestSearchRateLimitClassification(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewSearchClientWithBaseURL(server.URL)
	_, err := client.Search(context.Background(), "INE002A01018")
	if !errors.Is(err, quotes.ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
}

func TestSearchServerErrorIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewSearchClientWithBaseURL(server.URL)
	_, err := client.Search(context.Background(), "INE002A01018")
	if !errors.Is(err, quotes.ErrTransient) {
		t.Fatalf("expected ErrTransient, got %v", err)
	}
}

func TestSearchNetworkErrorIsTransient(t *testing.T) {
	// Point at a closed server to force a connection error.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client := NewSearchClientWithBaseURL(server.URL)
	_, err := client.Search(context.Background(), "INE002A01018")
	if !errors.Is(err, quotes.ErrTransient) {
		t.Fatalf("expected ErrTransient, got %v", err)
	}
}

func TestParseExchange(t *testing.T) {
	cases := map[string]quotes.Exchange{
		"NSI": quotes.ExchangeNSE,
		"nse": quotes.ExchangeNSE,
		"BSE": quotes.ExchangeBSE,
		"BOM": quotes.ExchangeBSE,
		"NYQ": quotes.ExchangeUnknown,
		"":    quotes.ExchangeUnknown,
	}
	for code, want := range cases {
		if got := parseExchange(code); got != want {
			t.Errorf("parseExchange(%q) = %q, want %q", code, got, want)
		}
	}
}
