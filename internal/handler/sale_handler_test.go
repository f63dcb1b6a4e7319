package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/nexesmission/ardhi-backend/internal/service"
	"github.com/nexesmission/ardhi-backend/internal/testutil"
)

func setupSaleHandler() (*SaleHandler, *testutil.MockSaleRepository, *testutil.MockInstallmentRepository) {
	installmentRepo := testutil.NewMockInstallmentRepository()
	saleRepo := testutil.NewMockSaleRepository(installmentRepo)
	saleService := service.NewSaleService(saleRepo, installmentRepo)
	return NewSaleHandler(saleService), saleRepo, installmentRepo
}

func TestCreateSale_Success(t *testing.T) {
	e := echo.New()
	handler, _, installmentRepo := setupSaleHandler()

	reqBody := `{"reference": "PLOT-A-017", "clientName": "Amina Wanjiru", "basePrice": "100000.00", "feePercent": "5", "advance": "5000.00", "months": 10, "startDate": "2024-01-01"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sales", strings.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := handler.CreateSale(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d", rec.Code)
	}

	var response SaleResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}

	if response.Reference != "PLOT-A-017" {
		t.Errorf("Expected reference 'PLOT-A-017', got %s", response.Reference)
	}
	if response.TotalPayable != "105000.00" {
		t.Errorf("Expected totalPayable '105000.00', got %s", response.TotalPayable)
	}
	if response.FinancedAmount != "100000.00" {
		t.Errorf("Expected financedAmount '100000.00', got %s", response.FinancedAmount)
	}

	installments, err := installmentRepo.GetBySaleID(response.ID)
	if err != nil {
		t.Fatalf("Failed to load installments: %v", err)
	}
	if len(installments) != 10 {
		t.Errorf("Expected 10 installments, got %d", len(installments))
	}
}

func TestCreateSale_ValidationError_BadPrice(t *testing.T) {
	e := echo.New()
	handler, _, _ := setupSaleHandler()

	reqBody := `{"reference": "PLOT-A-018", "basePrice": "-100", "months": 10, "startDate": "2024-01-01"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sales", strings.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	_ = handler.CreateSale(c)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rec.Code)
	}
}

func TestCreateSale_ValidationError_BothTargets(t *testing.T) {
	e := echo.New()
	handler, saleRepo, _ := setupSaleHandler()

	reqBody := `{"reference": "PLOT-A-019", "basePrice": "1000", "months": 10, "monthlyAmount": "100", "startDate": "2024-01-01"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sales", strings.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	_ = handler.CreateSale(c)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rec.Code)
	}
	if len(saleRepo.Sales) != 0 {
		t.Error("Expected no sale to be persisted")
	}
}

func TestPreviewSale_Success(t *testing.T) {
	e := echo.New()
	handler, saleRepo, _ := setupSaleHandler()

	reqBody := `{"reference": "PLOT-A-020", "basePrice": "1000.00", "monthlyAmount": "300.00", "startDate": "2024-01-15"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sales/preview", strings.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := handler.PreviewSale(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}

	var response service.PreviewSaleResult
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}

	if len(response.Installments) != 4 {
		t.Errorf("Expected 4 planned installments, got %d", len(response.Installments))
	}
	if len(saleRepo.Sales) != 0 {
		t.Error("Preview must not persist a sale")
	}
}

func TestGetSale_NotFound(t *testing.T) {
	e := echo.New()
	handler, _, _ := setupSaleHandler()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sales/404", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("404")

	_ = handler.GetSale(c)

	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", rec.Code)
	}
}

func TestGetSale_InvalidID(t *testing.T) {
	e := echo.New()
	handler, _, _ := setupSaleHandler()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sales/abc", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("abc")

	_ = handler.GetSale(c)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rec.Code)
	}
}
