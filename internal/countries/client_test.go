package countries

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const franceJSON = `[{
	"name": {"common": "France", "official": "French Republic"},
	"currencies": {"EUR": {"name": "Euro", "symbol": "€"}},
	"capital": ["Paris"],
	"languages": {"fra": "French"},
	"flags": {"png": "https://flagcdn.com/w320/fr.png", "svg": "https://flagcdn.com/fr.svg", "alt": "The flag of France"}
}]`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(server.URL, 5*time.Second)
}

func TestGetByName_Reshape(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/name/France" {
			t.Errorf("path = %s, want /name/France", r.URL.Path)
		}
		if r.URL.Query().Get("fields") == "" {
			t.Error("expected fields query parameter")
		}
		w.Write([]byte(franceJSON))
	})

	found, err := client.GetByName(context.Background(), "France")
	if err != nil {
		t.Fatalf("GetByName() error: %v", err)
	}
	if len(found) != 1 {
		t.Fatalf("len(found) = %d, want 1", len(found))
	}

	c := found[0]
	if c.Name != "France" {
		t.Errorf("Name = %s, want France", c.Name)
	}
	if c.Capital != "Paris" {
		t.Errorf("Capital = %s, want Paris", c.Capital)
	}
	if len(c.Currencies) != 1 || c.Currencies[0].Code != "EUR" || c.Currencies[0].Symbol != "€" {
		t.Errorf("Currencies = %+v, want one EUR entry", c.Currencies)
	}
	if len(c.Languages) != 1 || c.Languages[0] != "French" {
		t.Errorf("Languages = %v, want [French]", c.Languages)
	}
	if c.Flag.PNG == "" || c.Flag.SVG == "" {
		t.Errorf("Flag = %+v, want both URLs", c.Flag)
	}
}

func TestGetByName_NotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := client.GetByName(context.Background(), "Atlantis")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestGetAll_UpstreamError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := client.GetAll(context.Background())
	if !errors.Is(err, ErrUpstream) {
		t.Errorf("error = %v, want ErrUpstream", err)
	}
}

func TestGetAll_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	server.Close() // Connections now refused
	client := NewClient(server.URL, time.Second)

	_, err := client.GetAll(context.Background())
	if !errors.Is(err, ErrUpstream) {
		t.Errorf("error = %v, want ErrUpstream", err)
	}
}

func TestGetByRegion_EscapesPath(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/region/europe" {
			t.Errorf("path = %s, want /region/europe", r.URL.Path)
		}
		w.Write([]byte(`[]`))
	})

	found, err := client.GetByRegion(context.Background(), "europe")
	if err != nil {
		t.Fatalf("GetByRegion() error: %v", err)
	}
	if len(found) != 0 {
		t.Errorf("len(found) = %d, want 0", len(found))
	}
}

func TestReshape_SortsCurrenciesAndLanguages(t *testing.T) {
	u := upstreamCountry{}
	u.Name.Common = "Switzerland"
	u.Currencies = map[string]struct {
		Name   string `json:"name"`
		Symbol string `json:"symbol"`
	}{
		"EUR": {Name: "Euro"},
		"CHF": {Name: "Swiss franc", Symbol: "Fr."},
	}
	u.Languages = map[string]string{"gsw": "Swiss German", "fra": "French", "ita": "Italian"}

	c := reshape(u)
	if c.Currencies[0].Code != "CHF" || c.Currencies[1].Code != "EUR" {
		t.Errorf("currency order = %+v, want CHF first", c.Currencies)
	}
	if c.Languages[0] != "French" {
		t.Errorf("language order = %v, want French first", c.Languages)
	}
	if c.Capital != "" {
		t.Errorf("Capital = %q, want empty for missing capital", c.Capital)
	}
}
