package server

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"nz_propper/config"
	"nz_propper/models"
	"nz_propper/pricing"
)

const header = "Date (GMT),Job Link,Origin URL,Auckland Property Listings Limit,Position,Open Home Status,Agent Name,Agency Name,Listing Date,Property Title,Property Address,Bedrooms,Bathrooms,Area,Price,Property Link\n"

const calcCSV = header +
	`2024-01-15,job1,https://origin.example,500,1,Open,Jane Smith,Acme Realty,2024-01-10,Sunny family home,"12 Example Street, Auckland",3,2,120m2,"Asking price $600,000",` + "\n" +
	`2024-01-15,job1,https://origin.example,500,2,,John Doe,Acme Realty,2024-01-11,Must sell - mortgagee auction,"34 Sample Road, Auckland",4,2.5,,"Asking price $400,000",` + "\n" +
	`2024-01-15,job1,https://origin.example,500,3,,John Doe,Acme Realty,2024-01-11,Must sell - mortgagee auction,"34 Sample Road, Auckland",4,2.5,,"Asking price $400,000",` + "\n"

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := &config.ServerConfig{Addr: ":0", MaxUploadMB: 8, CalcConcurrency: 4}
	srv := New(cfg, pricing.NewEngine(nil), nil)
	return srv.Router()
}

func multipartBody(t *testing.T, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	part.Write([]byte(content))
	w.Close()
	return &buf, w.FormDataContentType()
}

func TestHealth(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["status"] != "healthy" || body["service"] != "NZ PROPPER API" {
		t.Errorf("body = %v", body)
	}
}

func TestCalculate(t *testing.T) {
	router := newTestRouter(t)

	buf, contentType := multipartBody(t, "listings.csv", calcCSV)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/calculate", buf)
	req.Header.Set("Content-Type", contentType)
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var resp models.ProcessResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode body: %v", err)
	}

	// Row 3 is an exact re-listing of row 2.
	if resp.DuplicatesRemoved != 1 {
		t.Errorf("duplicates_removed = %d, want 1", resp.DuplicatesRemoved)
	}
	if resp.TotalProperties != 2 || len(resp.Results) != 2 {
		t.Fatalf("total_properties = %d with %d results, want 2", resp.TotalProperties, len(resp.Results))
	}
	if resp.StressSalesCount != 1 {
		t.Errorf("stress_sales_count = %d, want 1", resp.StressSalesCount)
	}
	// $400,000 purchase against the default $730,000 sale clears the 20%
	// margin; $600,000 does not.
	if resp.GoodDealsCount != 1 {
		t.Errorf("good_deals_count = %d, want 1", resp.GoodDealsCount)
	}

	first := resp.Results[0]
	if first.PotentialPurchasePrice != 600000 {
		t.Errorf("purchase price = %v, want 600000", first.PotentialPurchasePrice)
	}
	if first.PotentialSalePrice != 730000 {
		t.Errorf("sale price = %v, want 730000", first.PotentialSalePrice)
	}
	if first.Position == nil || *first.Position != "1" {
		t.Errorf("position = %v, want \"1\"", first.Position)
	}
}

func TestCalculatePreservesOrder(t *testing.T) {
	router := newTestRouter(t)

	csv := header
	rows := []string{"alpha", "bravo", "charlie", "delta", "echo"}
	for i, title := range rows {
		csv += `2024-01-15,job1,,,` + string(rune('1'+i)) + `,,,,,"` + title + ` house","` + title + ` street",,,,,` + "\n"
	}

	buf, contentType := multipartBody(t, "listings.csv", csv)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/calculate", buf)
	req.Header.Set("Content-Type", contentType)
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var resp models.ProcessResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(resp.Results) != len(rows) {
		t.Fatalf("results = %d, want %d", len(resp.Results), len(rows))
	}
	for i, title := range rows {
		got := resp.Results[i].PropertyTitle
		if got == nil || *got != title+" house" {
			t.Errorf("result %d title = %v, want %q", i, got, title+" house")
		}
	}
}

func TestUploadPreview(t *testing.T) {
	router := newTestRouter(t)

	csv := header
	for i := 0; i < 15; i++ {
		csv += `2024-01-15,job1,,,,,,,,"Home","Street",,,,,` + "\n"
	}

	buf, contentType := multipartBody(t, "listings.csv", csv)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/upload", buf)
	req.Header.Set("Content-Type", contentType)
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var body struct {
		Filename  string                 `json:"filename"`
		TotalRows int                    `json:"total_rows"`
		Preview   []models.ListingRecord `json:"preview"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Filename != "listings.csv" {
		t.Errorf("filename = %q", body.Filename)
	}
	if body.TotalRows != 15 {
		t.Errorf("total_rows = %d, want 15", body.TotalRows)
	}
	if len(body.Preview) != 10 {
		t.Errorf("preview rows = %d, want 10", len(body.Preview))
	}
}

func TestUploadRejectsMissingFile(t *testing.T) {
	router := newTestRouter(t)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	w.WriteField("other", "value")
	w.Close()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/upload", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestUploadRejectsUnknownFileType(t *testing.T) {
	router := newTestRouter(t)

	buf, contentType := multipartBody(t, "listings.pdf", "not a spreadsheet")
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/upload", buf)
	req.Header.Set("Content-Type", contentType)
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}
