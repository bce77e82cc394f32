package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/Simplici0/goldsmith/internal/billing"
	"github.com/Simplici0/goldsmith/internal/store"
)

func billFor(customer string, lines ...lineRequest) billRequest {
	return billRequest{
		Customer: customerRequest{Name: customer, Phone: "9876543210", Address: "123 Main Street, Mumbai"},
		Items:    lines,
	}
}

func createBill(t *testing.T, h http.Handler, req billRequest) store.Bill {
	t.Helper()
	rr := doJSON(t, h, http.MethodPost, "/api/bills", req)
	expectStatus(t, rr, http.StatusCreated)
	return decodeBody[store.Bill](t, rr)
}

func TestCreateBillComputesTotalsAndDecrementsStock(t *testing.T) {
	h := newTestServer(t).routes()
	ring := createItem(t, h, goldRingRequest())

	bill := createBill(t, h, billFor("Rajesh Kumar", lineRequest{InventoryID: ring.ID, Pieces: 2, Rate: 44140, OtherCharges: 500}))

	if bill.BillNumber == "" || bill.Status != billing.StatusPending {
		t.Fatalf("unexpected bill header: %+v", bill)
	}
	if len(bill.Lines) != 1 || bill.Lines[0].Name != "Gold Wedding Ring" || bill.Lines[0].HSNCode != billing.DefaultHSNCode {
		t.Fatalf("unexpected lines: %+v", bill.Lines)
	}
	// 2 × 44140 + 500 = 88780; GST 3% + 1.5% + 1.5%
	want := billing.Totals{NetAmount: 88780, IGSTAmount: 2663.4, CGSTAmount: 1331.7, SGSTAmount: 1331.7, TotalAmount: 94106.8}
	if bill.Totals != want {
		t.Fatalf("totals = %+v, want %+v", bill.Totals, want)
	}
	if bill.GoldRate != 6800 {
		t.Fatalf("expected rates snapshot on bill, got %v", bill.GoldRate)
	}

	rr := doJSON(t, h, http.MethodGet, "/api/inventory/"+ring.ID, nil)
	expectStatus(t, rr, http.StatusOK)
	if got := decodeBody[store.Item](t, rr); got.Quantity != 13 {
		t.Fatalf("expected quantity 13 after sale, got %d", got.Quantity)
	}
}

func TestCreateBillErrors(t *testing.T) {
	h := newTestServer(t).routes()
	scarce := goldRingRequest()
	scarce.Quantity = 1
	ring := createItem(t, h, scarce)

	expectError(t, doJSON(t, h, http.MethodPost, "/api/bills", billFor("Anita", lineRequest{InventoryID: ring.ID, Pieces: 2, Rate: 10})), http.StatusConflict, "insufficient_stock")
	expectError(t, doJSON(t, h, http.MethodPost, "/api/bills", billFor("Anita", lineRequest{InventoryID: "missing", Pieces: 1, Rate: 10})), http.StatusNotFound, "not_found")
	expectError(t, doJSON(t, h, http.MethodPost, "/api/bills", billFor("", lineRequest{InventoryID: ring.ID, Pieces: 1})), http.StatusBadRequest, "validation_error")
	expectError(t, doJSON(t, h, http.MethodPost, "/api/bills", billFor("Anita")), http.StatusBadRequest, "validation_error")
	expectError(t, doJSON(t, h, http.MethodPost, "/api/bills", billFor("Anita", lineRequest{InventoryID: ring.ID, Pieces: 0})), http.StatusBadRequest, "validation_error")

	rr := doJSON(t, h, http.MethodGet, "/api/inventory/"+ring.ID, nil)
	if got := decodeBody[store.Item](t, rr); got.Quantity != 1 {
		t.Fatalf("failed bills must not change stock, quantity=%d", got.Quantity)
	}
}

func TestListBillsOrdersByDateDescAndFilters(t *testing.T) {
	h := newTestServer(t).routes()
	ring := createItem(t, h, goldRingRequest())

	createBill(t, h, billFor("Primera Cliente", lineRequest{InventoryID: ring.ID, Pieces: 1, Rate: 100}))
	createBill(t, h, billFor("Segunda Cliente", lineRequest{InventoryID: ring.ID, Pieces: 1, Rate: 200.25}))
	createBill(t, h, billFor("Tercera Cliente", lineRequest{InventoryID: ring.ID, Pieces: 1, Rate: 300}))

	rr := doJSON(t, h, http.MethodGet, "/api/bills", nil)
	expectStatus(t, rr, http.StatusOK)
	list := decodeBody[struct{ Bills []store.Bill }](t, rr)
	if len(list.Bills) != 3 {
		t.Fatalf("expected 3 bills, got %d", len(list.Bills))
	}
	if list.Bills[0].Customer.Name != "Tercera Cliente" || list.Bills[2].Customer.Name != "Primera Cliente" {
		t.Fatalf("bills are not sorted desc by created_at: %+v", list.Bills)
	}
	if list.Bills[1].Totals.NetAmount != 200.25 {
		t.Fatalf("unexpected totals: %+v", list.Bills[1].Totals)
	}

	rr = doJSON(t, h, http.MethodGet, "/api/bills?q=segunda&limit=5", nil)
	filtered := decodeBody[struct{ Bills []store.Bill }](t, rr)
	if len(filtered.Bills) != 1 || filtered.Bills[0].Customer.Name != "Segunda Cliente" {
		t.Fatalf("expected 1 bill filtered by customer, got %+v", filtered.Bills)
	}

	rr = doJSON(t, h, http.MethodGet, "/api/bills?limit=1", nil)
	limited := decodeBody[struct{ Bills []store.Bill }](t, rr)
	if len(limited.Bills) != 1 {
		t.Fatalf("expected limit to apply, got %d", len(limited.Bills))
	}

	expectError(t, doJSON(t, h, http.MethodGet, "/api/bills?limit=-1", nil), http.StatusBadRequest, "bad_request")
}

func TestGetBillReadsSnapshotWithoutRecalculation(t *testing.T) {
	srv := newTestServer(t)
	h := srv.routes()
	ring := createItem(t, h, goldRingRequest())
	bill := createBill(t, h, billFor("Rajesh Kumar", lineRequest{InventoryID: ring.ID, Pieces: 1, Rate: 44140}))

	// neither new rates nor new tax settings may leak into a saved bill
	expectStatus(t, doJSON(t, h, http.MethodPut, "/api/rates", ratesRequest{GoldRate: 9000, SilverRate: 100}), http.StatusOK)
	expectStatus(t, doJSON(t, h, http.MethodPut, "/api/settings", settingsRequest{Tax: taxRequest{IGST: 18}}), http.StatusOK)

	req := httptest.NewRequest(http.MethodGet, "/api/bills/"+bill.ID, nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", bill.ID)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

	rr := httptest.NewRecorder()
	srv.handleGetBill(rr, req)

	expectStatus(t, rr, http.StatusOK)
	got := decodeBody[store.Bill](t, rr)
	if got.Totals != bill.Totals || got.Lines[0].Rate != 44140 || got.GoldRate != 6800 || got.Tax != billing.DefaultTax {
		t.Fatalf("snapshot changed: got %+v, want %+v", got, bill)
	}

	expectError(t, doJSON(t, h, http.MethodGet, "/api/bills/missing", nil), http.StatusNotFound, "not_found")
}

func TestUpdateBillKeepsNumberAndRecomputesTotals(t *testing.T) {
	h := newTestServer(t).routes()
	ring := createItem(t, h, goldRingRequest())
	bill := createBill(t, h, billFor("Rajesh Kumar", lineRequest{InventoryID: ring.ID, Pieces: 1, Rate: 1000}))

	edit := billFor("Rajesh K.", lineRequest{InventoryID: ring.ID, Pieces: 3, Rate: 1000, OtherCharges: 100})
	edit.Status = "paid"
	edit.Tax = &taxRequest{IGST: 3}
	rr := doJSON(t, h, http.MethodPut, "/api/bills/"+bill.ID, edit)
	expectStatus(t, rr, http.StatusOK)

	updated := decodeBody[store.Bill](t, rr)
	if updated.BillNumber != bill.BillNumber || updated.Status != billing.StatusPaid || updated.Customer.Name != "Rajesh K." {
		t.Fatalf("unexpected updated bill: %+v", updated)
	}
	want := billing.Totals{NetAmount: 3100, IGSTAmount: 93, TotalAmount: 3193}
	if updated.Totals != want {
		t.Fatalf("totals = %+v, want %+v", updated.Totals, want)
	}

	rr = doJSON(t, h, http.MethodGet, "/api/inventory/"+ring.ID, nil)
	if got := decodeBody[store.Item](t, rr); got.Quantity != 14 {
		t.Fatalf("editing a bill must not readjust stock, quantity=%d", got.Quantity)
	}

	edit.Status = "refunded"
	expectError(t, doJSON(t, h, http.MethodPut, "/api/bills/"+bill.ID, edit), http.StatusBadRequest, "validation_error")
}

func TestPriceBillLineUsesSameEngineAsInventory(t *testing.T) {
	h := newTestServer(t).routes()
	ring := createItem(t, h, goldRingRequest())

	rr := doJSON(t, h, http.MethodPost, "/api/bills/lines", billLineRequest{InventoryID: ring.ID})
	expectStatus(t, rr, http.StatusOK)

	line := decodeBody[billing.Line](t, rr)
	if line.Rate != ring.SalePrice || line.Total != ring.SalePrice || line.Pieces != 1 || line.NetWeight != 5.5 {
		t.Fatalf("bill line %+v does not match inventory sale price %v", line, ring.SalePrice)
	}

	expectError(t, doJSON(t, h, http.MethodPost, "/api/bills/lines", billLineRequest{InventoryID: "missing"}), http.StatusNotFound, "not_found")
}
