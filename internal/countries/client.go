// Package countries implements a client for the REST Countries API
// (restcountries.com v3.1), reshaping its verbose payload into the compact
// country representation served by the lookup endpoints. A Redis-backed cache
// can be layered on top of the client; see cache.go.
package countries

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/travelog/travelog/internal/telemetry"
)

// ErrNotFound is returned when the upstream has no country matching the query
var ErrNotFound = errors.New("country not found")

// ErrUpstream is returned when the upstream API is unreachable or misbehaving
var ErrUpstream = errors.New("country data source unavailable")

// fields trims the upstream payload to what the reshaped representation needs
const fields = "name,currencies,capital,languages,flags"

// Country is the compact representation served to clients
type Country struct {
	Name       string     `json:"name"`
	Currencies []Currency `json:"currencies"`
	Capital    string     `json:"capital"`
	Languages  []string   `json:"languages"`
	Flag       Flag       `json:"flag"`
}

// Currency is one currency of a country
type Currency struct {
	Code   string `json:"code"`
	Name   string `json:"name"`
	Symbol string `json:"symbol,omitempty"`
}

// Flag holds flag image URLs and alt text
type Flag struct {
	PNG string `json:"png"`
	SVG string `json:"svg"`
	Alt string `json:"alt,omitempty"`
}

// upstreamCountry mirrors the REST Countries v3.1 response shape
type upstreamCountry struct {
	Name struct {
		Common   string `json:"common"`
		Official string `json:"official"`
	} `json:"name"`
	Currencies map[string]struct {
		Name   string `json:"name"`
		Symbol string `json:"symbol"`
	} `json:"currencies"`
	Capital   []string          `json:"capital"`
	Languages map[string]string `json:"languages"`
	Flags     struct {
		PNG string `json:"png"`
		SVG string `json:"svg"`
		Alt string `json:"alt"`
	} `json:"flags"`
}

// Client fetches country data from the upstream REST Countries API
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient creates an upstream client. timeout guards every request; the
// upstream is a third party, so a hung connection must not hold a handler open.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// GetAll fetches every country
func (c *Client) GetAll(ctx context.Context) ([]Country, error) {
	return c.fetch(ctx, "/all")
}

// GetByName fetches countries matching a name (common or official, partial match)
func (c *Client) GetByName(ctx context.Context, name string) ([]Country, error) {
	return c.fetch(ctx, "/name/"+url.PathEscape(name))
}

// GetByRegion fetches countries in a region (e.g. "europe")
func (c *Client) GetByRegion(ctx context.Context, region string) ([]Country, error) {
	return c.fetch(ctx, "/region/"+url.PathEscape(region))
}

func (c *Client) fetch(ctx context.Context, path string) ([]Country, error) {
	requestURL := fmt.Sprintf("%s%s?fields=%s", c.BaseURL, path, fields)

	req, err := http.NewRequestWithContext(ctx, "GET", requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		telemetry.RecordCountryUpstreamError()
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}

	if resp.StatusCode != http.StatusOK {
		telemetry.RecordCountryUpstreamError()
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: status %d: %s", ErrUpstream, resp.StatusCode, string(body))
	}

	var raw []upstreamCountry
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", ErrUpstream, err)
	}

	countries := make([]Country, 0, len(raw))
	for _, u := range raw {
		countries = append(countries, reshape(u))
	}

	return countries, nil
}

// reshape flattens the upstream maps into stable, sorted slices
func reshape(u upstreamCountry) Country {
	currencies := make([]Currency, 0, len(u.Currencies))
	for code, cur := range u.Currencies {
		currencies = append(currencies, Currency{Code: code, Name: cur.Name, Symbol: cur.Symbol})
	}
	sort.Slice(currencies, func(i, j int) bool { return currencies[i].Code < currencies[j].Code })

	languages := make([]string, 0, len(u.Languages))
	for _, lang := range u.Languages {
		languages = append(languages, lang)
	}
	sort.Strings(languages)

	capital := ""
	if len(u.Capital) > 0 {
		capital = u.Capital[0]
	}

	return Country{
		Name:       u.Name.Common,
		Currencies: currencies,
		Capital:    capital,
		Languages:  languages,
		Flag: Flag{
			PNG: u.Flags.PNG,
			SVG: u.Flags.SVG,
			Alt: u.Flags.Alt,
		},
	}
}
