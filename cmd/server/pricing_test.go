package main

import (
	"net/http"
	"testing"

	"github.com/Simplici0/goldsmith/internal/reprice"
	"github.com/Simplici0/goldsmith/internal/store"
)

func TestCalculatePriceWithStoredRates(t *testing.T) {
	h := newTestServer(t).routes()

	rr := doJSON(t, h, http.MethodPost, "/api/pricing/calculate", priceRequest{
		Weight:        25,
		Category:      "Silver",
		Purity:        "925 Silver",
		MakingCharges: 800,
	})
	expectStatus(t, rr, http.StatusOK)

	got := decodeBody[priceResponse](t, rr)
	if got.BasePrice != 2125 || got.PurityAdjustedPrice != 1965.63 || got.CostPrice != 2765.63 || got.SalePrice != 3318.75 {
		t.Fatalf("unexpected breakdown: %+v", got.Breakdown)
	}
	if got.SilverRate != 85 {
		t.Fatalf("expected stored silver rate, got %v", got.SilverRate)
	}
}

func TestCalculatePriceRateOverrideAndMargin(t *testing.T) {
	h := newTestServer(t).routes()

	gold := 6800.0
	margin := 0.0
	rr := doJSON(t, h, http.MethodPost, "/api/pricing/calculate", priceRequest{
		Weight:       10,
		Category:     "Gold",
		Purity:       "unknown-key",
		GoldRate:     &gold,
		ProfitMargin: &margin,
	})
	expectStatus(t, rr, http.StatusOK)

	got := decodeBody[priceResponse](t, rr)
	if got.PurityAdjustedPrice != 68000 || got.SalePrice != 68000 || got.Parts.Profit != 0 {
		t.Fatalf("unexpected breakdown: %+v", got.Breakdown)
	}

	bad := -1.0
	rr = doJSON(t, h, http.MethodPost, "/api/pricing/calculate", priceRequest{Weight: 1, Category: "Gold", GoldRate: &bad})
	expectError(t, rr, http.StatusBadRequest, "invalid_input")
}

func TestPurityOptions(t *testing.T) {
	h := newTestServer(t).routes()

	rr := doJSON(t, h, http.MethodGet, "/api/pricing/purities?category=silver", nil)
	expectStatus(t, rr, http.StatusOK)
	got := decodeBody[struct {
		Purities []purityOption
	}](t, rr)
	if len(got.Purities) != 2 || got.Purities[0].Purity != "925 Silver" || got.Purities[0].Multiplier != 0.925 {
		t.Fatalf("unexpected silver purities: %+v", got.Purities)
	}

	expectError(t, doJSON(t, h, http.MethodGet, "/api/pricing/purities?category=", nil), http.StatusBadRequest, "invalid_input")
}

func TestRepriceEndpointUpdatesItemsPastThreshold(t *testing.T) {
	h := newTestServer(t).routes()
	ring := createItem(t, h, goldRingRequest())

	expectStatus(t, doJSON(t, h, http.MethodPut, "/api/rates", ratesRequest{GoldRate: 6850, SilverRate: 85}), http.StatusOK)
	rr := doJSON(t, h, http.MethodPost, "/api/reprice", nil)
	expectStatus(t, rr, http.StatusOK)
	if report := decodeBody[reprice.Report](t, rr); report.Processed != 1 || report.Unchanged != 1 {
		t.Fatalf("small move should be absorbed: %+v", report)
	}

	expectStatus(t, doJSON(t, h, http.MethodPut, "/api/rates", ratesRequest{GoldRate: 7500, SilverRate: 85}), http.StatusOK)
	rr = doJSON(t, h, http.MethodPost, "/api/reprice", nil)
	expectStatus(t, rr, http.StatusOK)
	if report := decodeBody[reprice.Report](t, rr); report.Updated != 1 {
		t.Fatalf("large move should reprice: %+v", report)
	}

	rr = doJSON(t, h, http.MethodGet, "/api/inventory/"+ring.ID, nil)
	if got := decodeBody[store.Item](t, rr); got.LastGoldRate != 7500 || got.SalePrice <= ring.SalePrice {
		t.Fatalf("item not repriced: %+v", got)
	}
}
