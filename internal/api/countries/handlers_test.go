package countries

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/travelog/travelog/internal/countries"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// ---------------------------------------------------------------------------
// Test setup helpers
// ---------------------------------------------------------------------------

// stubService is a canned countries.Service for handler tests.
type stubService struct {
	countries []countries.Country
	err       error
}

func (s *stubService) GetAll(ctx context.Context) ([]countries.Country, error) {
	return s.countries, s.err
}

func (s *stubService) GetByName(ctx context.Context, name string) ([]countries.Country, error) {
	return s.countries, s.err
}

func (s *stubService) GetByRegion(ctx context.Context, region string) ([]countries.Country, error) {
	return s.countries, s.err
}

func newCountriesRouter(svc countries.Service) *gin.Engine {
	r := gin.New()
	r.GET("/countries", ListHandler(svc))
	r.GET("/countries/name/:name", ByNameHandler(svc))
	r.GET("/countries/region/:region", ByRegionHandler(svc))
	return r
}

func getJSON(resp *httptest.ResponseRecorder) map[string]interface{} {
	var m map[string]interface{}
	json.Unmarshal(resp.Body.Bytes(), &m)
	return m
}

func franceAndSpain() []countries.Country {
	return []countries.Country{
		{Name: "France", Capital: "Paris"},
		{Name: "Spain", Capital: "Madrid"},
	}
}

// ---------------------------------------------------------------------------
// ListHandler
// ---------------------------------------------------------------------------

func TestListHandler_Success(t *testing.T) {
	r := newCountriesRouter(&stubService{countries: franceAndSpain()})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/countries", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: body=%s", w.Code, w.Body.String())
	}
	resp := getJSON(w)
	data, _ := resp["data"].([]interface{})
	if len(data) != 2 {
		t.Errorf("len(data) = %d, want 2", len(data))
	}
}

func TestListHandler_UpstreamDown(t *testing.T) {
	r := newCountriesRouter(&stubService{err: countries.ErrUpstream})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/countries", nil))

	if w.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", w.Code)
	}
	resp := getJSON(w)
	if resp["error"] != "UpstreamUnavailable" {
		t.Errorf("error = %v, want UpstreamUnavailable", resp["error"])
	}
}

// ---------------------------------------------------------------------------
// ByNameHandler
// ---------------------------------------------------------------------------

func TestByNameHandler_Success(t *testing.T) {
	r := newCountriesRouter(&stubService{countries: franceAndSpain()[:1]})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/countries/name/france", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: body=%s", w.Code, w.Body.String())
	}
	resp := getJSON(w)
	data, _ := resp["data"].([]interface{})
	first, _ := data[0].(map[string]interface{})
	if first["capital"] != "Paris" {
		t.Errorf("capital = %v, want Paris", first["capital"])
	}
}

func TestByNameHandler_UnknownCountry(t *testing.T) {
	r := newCountriesRouter(&stubService{err: countries.ErrNotFound})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/countries/name/atlantis", nil))

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	resp := getJSON(w)
	if resp["error"] != "InvalidCountry" {
		t.Errorf("error = %v, want InvalidCountry", resp["error"])
	}
	if resp["message"] != "No country matches that query" {
		t.Errorf("message = %v", resp["message"])
	}
}

// ---------------------------------------------------------------------------
// ByRegionHandler
// ---------------------------------------------------------------------------

func TestByRegionHandler_Success(t *testing.T) {
	r := newCountriesRouter(&stubService{countries: franceAndSpain()})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/countries/region/europe", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: body=%s", w.Code, w.Body.String())
	}
}

func TestByRegionHandler_UnknownRegion(t *testing.T) {
	r := newCountriesRouter(&stubService{err: countries.ErrNotFound})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/countries/region/nowhere", nil))

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}
