package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/pricegrid/pricegrid/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeSearch struct {
	resp *models.SearchResponse
	err  error
	loc  *models.Location
}

func (f *fakeSearch) Search(_ context.Context, _ *models.SearchRequest, loc *models.Location) (*models.SearchResponse, error) {
	f.loc = loc
	return f.resp, f.err
}

type fakeGeo struct {
	loc *models.Location
	err error
}

func (f fakeGeo) Resolve(context.Context, string) (*models.Location, error) {
	return f.loc, f.err
}

func postSearch(h gin.HandlerFunc, body string) *httptest.ResponseRecorder {
	r := gin.New()
	r.POST("/search", h)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/search", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestSearchHandler_OK(t *testing.T) {
	svc := &fakeSearch{resp: &models.SearchResponse{TotalResults: 2, Products: []models.Listing{}}}
	w := postSearch(Search(svc, nil), `{"query":"usb-c cable"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", w.Code, w.Body.String())
	}
	var resp models.SearchResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad body: %v", err)
	}
	if resp.TotalResults != 2 {
		t.Errorf("TotalResults = %d, want 2", resp.TotalResults)
	}
}

func TestSearchHandler_MalformedJSON(t *testing.T) {
	w := postSearch(Search(&fakeSearch{}, nil), `{"query":`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestSearchHandler_InvalidQuery(t *testing.T) {
	svc := &fakeSearch{err: models.NewAppError(models.ErrCodeInvalidQuery, "query or barcode is required", nil)}
	w := postSearch(Search(svc, nil), `{"query":""}`)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	var resp models.ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad body: %v", err)
	}
	if resp.Error == nil || resp.Error.Code != models.ErrCodeInvalidQuery {
		t.Errorf("error = %+v, want INVALID_QUERY", resp.Error)
	}
}

func TestSearchHandler_AllMerchantsFailedIs502(t *testing.T) {
	svc := &fakeSearch{resp: &models.SearchResponse{
		Products: []models.Listing{},
		Error: &models.ErrorDetail{
			Code:    models.ErrCodeAllMerchantsFailed,
			Message: "all merchants failed",
		},
		Merchants: []models.MerchantStatus{{Name: "m", Status: models.MerchantStatusError}},
	}}
	w := postSearch(Search(svc, nil), `{"query":"x"}`)

	if w.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", w.Code)
	}
	// The body still carries the per-merchant breakdown.
	var resp models.SearchResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad body: %v", err)
	}
	if len(resp.Merchants) != 1 {
		t.Errorf("merchant statuses lost on failure response: %+v", resp.Merchants)
	}
}

func TestSearchHandler_GeoFailureIsSoft(t *testing.T) {
	svc := &fakeSearch{resp: &models.SearchResponse{Products: []models.Listing{}}}
	w := postSearch(Search(svc, fakeGeo{err: context.DeadlineExceeded}), `{"query":"x"}`)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 despite geo failure", w.Code)
	}
	if svc.loc != nil {
		t.Errorf("location = %+v, want nil after failed lookup", svc.loc)
	}
}

func TestSearchHandler_PassesLocation(t *testing.T) {
	svc := &fakeSearch{resp: &models.SearchResponse{Products: []models.Listing{}}}
	postSearch(Search(svc, fakeGeo{loc: &models.Location{State: "CA"}}), `{"query":"x"}`)

	if svc.loc == nil || svc.loc.State != "CA" {
		t.Errorf("location = %+v, want CA", svc.loc)
	}
}

func TestStatusForCode(t *testing.T) {
	cases := map[string]int{
		models.ErrCodeInvalidQuery:       http.StatusBadRequest,
		models.ErrCodeAllMerchantsFailed: http.StatusBadGateway,
		models.ErrCodeFetch:              http.StatusBadGateway,
		models.ErrCodeTimeout:            http.StatusGatewayTimeout,
		models.ErrCodeRateLimited:        http.StatusTooManyRequests,
		models.ErrCodeUnauthorized:       http.StatusUnauthorized,
		models.ErrCodeInternal:           http.StatusInternalServerError,
	}
	for code, want := range cases {
		if got := statusForCode(code); got != want {
			t.Errorf("statusForCode(%s) = %d, want %d", code, got, want)
		}
	}
}
