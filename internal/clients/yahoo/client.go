// Package yahoo provides a client for the Yahoo Finance chart API,
// the market-data provider behind the price oracle. Only two facts are
// read from it: the latest close (with its date) and the previous
// session's close.
package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/avasseur/folio/internal/domain"
)

const (
	defaultBaseURL = "https://query1.finance.yahoo.com"
	// Unauthenticated chart requests are throttled upstream; stay
	// comfortably below the observed limit.
	requestsPerSecond = 5
)

// chartMeta is the subset of the chart payload the oracle needs.
type chartMeta struct {
	RegularMarketPrice float64 `json:"regularMarketPrice"`
	RegularMarketTime  int64   `json:"regularMarketTime"`
	PreviousClose      float64 `json:"chartPreviousClose"`
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta chartMeta `json:"meta"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// Client is the Yahoo Finance chart API client.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	log        zerolog.Logger
}

// NewClient creates a Yahoo Finance client. baseURL is overridable for
// tests; pass "" for the production endpoint.
func NewClient(baseURL string, log zerolog.Logger) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond),
		log:     log.With().Str("component", "yahoo").Logger(),
	}
}

// Quote returns the latest close price and its date for an identifier.
func (c *Client) Quote(ctx context.Context, identifier string) (domain.Quote, error) {
	meta, err := c.chart(ctx, identifier)
	if err != nil {
		return domain.Quote{}, err
	}
	return domain.Quote{
		Price: meta.RegularMarketPrice,
		AsOf:  time.Unix(meta.RegularMarketTime, 0).UTC(),
	}, nil
}

// PreviousClose returns the previous session's close price.
func (c *Client) PreviousClose(ctx context.Context, identifier string) (float64, error) {
	meta, err := c.chart(ctx, identifier)
	if err != nil {
		return 0, err
	}
	return meta.PreviousClose, nil
}

func (c *Client) chart(ctx context.Context, identifier string) (*chartMeta, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnavailable, err)
	}

	endpoint := fmt.Sprintf("%s/v8/finance/chart/%s?range=5d&interval=1d",
		c.baseURL, url.PathEscape(identifier))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnavailable, err)
	}
	req.Header.Set("User-Agent", "folio/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Warn().Err(err).Str("identifier", identifier).Msg("Chart request failed")
		return nil, fmt.Errorf("%w: %v", domain.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("identifier %q: %w", identifier, domain.ErrSecurityNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: chart API returned %d", domain.ErrUnavailable, resp.StatusCode)
	}

	var payload chartResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: malformed chart payload: %v", domain.ErrUnavailable, err)
	}
	if payload.Chart.Error != nil {
		return nil, fmt.Errorf("identifier %q (%s): %w",
			identifier, payload.Chart.Error.Code, domain.ErrSecurityNotFound)
	}
	if len(payload.Chart.Result) == 0 {
		return nil, fmt.Errorf("identifier %q: %w", identifier, domain.ErrSecurityNotFound)
	}
	return &payload.Chart.Result[0].Meta, nil
}
