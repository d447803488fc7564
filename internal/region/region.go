// Package region derives the administrative district ("Landkreis") of a postal code.
package region

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Lookup resolves a postal code to a region name. An unknown postal code
// yields an empty name and no error.
type Lookup interface {
	Region(ctx context.Context, country, postalCode string) (string, error)
}

// OpenPLZClient queries an OpenPLZ compatible API
// (GET {base}/{country}/Localities?postalCode=...).
type OpenPLZClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewOpenPLZClient(baseURL string, httpClient *http.Client) *OpenPLZClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Second}
	}
	return &OpenPLZClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

type locality struct {
	PostalCode string `json:"postalCode"`
	Name       string `json:"name"`
	District   struct {
		Key  string `json:"key"`
		Name string `json:"name"`
	} `json:"district"`
}

func (c *OpenPLZClient) Region(ctx context.Context, country, postalCode string) (string, error) {
	postalCode = strings.TrimSpace(postalCode)
	if postalCode == "" {
		return "", nil
	}

	endpoint := fmt.Sprintf("%s/%s/Localities?postalCode=%s",
		c.baseURL, url.PathEscape(strings.ToLower(country)), url.QueryEscape(postalCode))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("postal code lookup: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", nil
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("postal code lookup: unexpected status %d", resp.StatusCode)
	}

	var localities []locality
	if err := json.NewDecoder(resp.Body).Decode(&localities); err != nil {
		return "", fmt.Errorf("postal code lookup: decode response: %w", err)
	}

	for _, l := range localities {
		if name := strings.TrimSpace(l.District.Name); name != "" {
			return name, nil
		}
	}
	return "", nil
}
