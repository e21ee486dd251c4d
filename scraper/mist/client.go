package mist

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/goccy/go-json"

	"mist-map-backup/config"
	"mist-map-backup/models"
	"mist-map-backup/utils"
)

// Client issues authenticated read-only calls against the controller REST API
type Client struct {
	baseURL     string
	token       string
	orgID       string
	httpClient  *http.Client
	rateLimiter *utils.RateLimiter
	logger      *utils.Logger
}

// NewClient creates a Client from configuration. rateLimiter may be nil.
func NewClient(cfg *config.Config, rateLimiter *utils.RateLimiter, logger *utils.Logger) *Client {
	return &Client{
		baseURL:     config.NormalizeBaseURL(cfg.APIBaseURL),
		token:       cfg.APIToken,
		orgID:       cfg.OrgID,
		httpClient:  &http.Client{Timeout: cfg.HTTPTimeout},
		rateLimiter: rateLimiter,
		logger:      logger,
	}
}

type siteSearchResponse struct {
	Total   int `json:"total"`
	Results []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"results"`
}

type mapEntry struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	URL    string  `json:"url"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type apStat struct {
	Name        string   `json:"name"`
	MAC         string   `json:"mac"`
	Model       string   `json:"model"`
	MapID       *string  `json:"map_id"`
	Mount       *string  `json:"mount"`
	Height      *float64 `json:"height"`
	Orientation *float64 `json:"orientation"`
	X           *float64 `json:"x"`
	Y           *float64 `json:"y"`
	Image1URL   string   `json:"image1_url"`
	Image2URL   string   `json:"image2_url"`
	Image3URL   string   `json:"image3_url"`
}

// ResolveSiteID looks a site up by exact name. Exactly one match is required.
func (c *Client) ResolveSiteID(ctx context.Context, siteName string) (models.Site, error) {
	path := fmt.Sprintf("orgs/%s/sites/search?name=%s", url.PathEscape(c.orgID), url.QueryEscape(siteName))

	var resp siteSearchResponse
	if err := c.getJSON(ctx, path, &resp); err != nil {
		return models.Site{}, err
	}

	switch {
	case resp.Total == 0 || len(resp.Results) == 0:
		return models.Site{}, fmt.Errorf("%w: site with name '%s' was not found", ErrSiteNotFound, siteName)
	case resp.Total > 1 || len(resp.Results) > 1:
		candidates := make([]string, 0, len(resp.Results))
		for _, r := range resp.Results {
			candidates = append(candidates, fmt.Sprintf("%s (%s)", r.Name, r.ID))
		}
		return models.Site{}, fmt.Errorf("%w: '%s' matched %d sites: %s",
			ErrAmbiguousSite, siteName, resp.Total, strings.Join(candidates, ", "))
	}

	site := models.Site{ID: resp.Results[0].ID, Name: siteName}
	c.logger.Info("Resolved site '%s' to ID %s", siteName, site.ID)
	return site, nil
}

// ListMaps returns every floor map uploaded to the site. An empty slice is not an error.
func (c *Client) ListMaps(ctx context.Context, siteID string) ([]models.Map, error) {
	var entries []mapEntry
	if err := c.getJSON(ctx, fmt.Sprintf("sites/%s/maps", url.PathEscape(siteID)), &entries); err != nil {
		return nil, err
	}

	maps := make([]models.Map, 0, len(entries))
	for _, e := range entries {
		maps = append(maps, models.Map{
			ID:     e.ID,
			Name:   e.Name,
			URL:    e.URL,
			Width:  int(e.Width),
			Height: int(e.Height),
		})
	}
	c.logger.Debug("Site %s has %d maps", siteID, len(maps))
	return maps, nil
}

// ListAccessPoints returns the site's APs that are placed on a map, in API order,
// plus the names of the APs that are not placed yet.
func (c *Client) ListAccessPoints(ctx context.Context, siteID string) ([]*models.AccessPoint, []string, error) {
	var stats []apStat
	if err := c.getJSON(ctx, fmt.Sprintf("sites/%s/stats/devices?type=ap", url.PathEscape(siteID)), &stats); err != nil {
		return nil, nil, err
	}

	var placed []*models.AccessPoint
	var unplaced []string
	for _, s := range stats {
		name := strings.TrimSpace(s.Name)
		if name == "" {
			name = s.MAC
		}
		if s.MapID == nil || strings.TrimSpace(*s.MapID) == "" {
			c.logger.Info("%s has not been added to a map yet.", name)
			unplaced = append(unplaced, name)
			continue
		}

		ap := &models.AccessPoint{
			Name:        name,
			MAC:         s.MAC,
			Model:       s.Model,
			MapID:       *s.MapID,
			Mount:       s.Mount,
			Height:      s.Height,
			Orientation: s.Orientation,
			X:           s.X,
			Y:           s.Y,
		}
		for _, u := range []string{s.Image1URL, s.Image2URL, s.Image3URL} {
			if u != "" {
				ap.ImageURLs = append(ap.ImageURLs, u)
			}
		}
		placed = append(placed, ap)
	}

	c.logger.Debug("Site %s: %d placed APs, %d unplaced", siteID, len(placed), len(unplaced))
	return placed, unplaced, nil
}

// getJSON performs an authenticated GET and decodes a 2xx body into out
func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return err
	}

	reqURL := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to build request for %s: %w", reqURL, err)
	}
	req.Header.Set("Authorization", "Token "+c.token)
	req.Header.Set("Content-Type", "application/json")

	c.logger.Debug("GET %s", reqURL)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", reqURL, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == StatusRateLimited:
		return fmt.Errorf("%w (%s)", ErrRateLimited, reqURL)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return &APIError{StatusCode: resp.StatusCode, URL: reqURL}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to parse response from %s: %w", reqURL, err)
	}
	return nil
}
