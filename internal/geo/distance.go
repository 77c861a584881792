// Package geo computes drive distance between stop addresses through an
// external distance-matrix service.
package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DistanceLookup is the interface the ingestion pipeline depends on.
// ok=false means the distance is legitimately unknown (no route found,
// service declined) — a missing-data state, not an error.
type DistanceLookup interface {
	DriveMiles(ctx context.Context, origin, dest string) (miles int, ok bool, err error)
}

type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

type Client struct {
	cfg        Config
	httpClient *http.Client
	log        *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		log:        logger,
	}
}

const metersPerMile = 1609.344

// DriveMiles queries the distance-matrix endpoint for one origin/destination
// pair. A well-formed zero-result response returns (0, false, nil), never an
// error; callers degrade miles/RPM to "missing data".
func (c *Client) DriveMiles(ctx context.Context, origin, dest string) (int, bool, error) {
	if strings.TrimSpace(origin) == "" || strings.TrimSpace(dest) == "" {
		return 0, false, nil
	}

	start := time.Now()
	q := url.Values{}
	q.Set("origins", origin)
	q.Set("destinations", dest)
	q.Set("units", "imperial")
	if c.cfg.APIKey != "" {
		q.Set("key", c.cfg.APIKey)
	}
	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/distancematrix/json?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, false, fmt.Errorf("geo: build request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Warn("geo.distance.send_error", "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return 0, false, err
	}
	defer func(Body io.ReadCloser) {
		if cerr := Body.Close(); cerr != nil {
			c.log.Warn("geo.distance.body_close_error", "error", cerr)
		}
	}(resp.Body)

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode/100 != 2 {
		c.log.Warn("geo.distance.bad_status", "status", resp.StatusCode, "elapsed_ms", time.Since(start).Milliseconds())
		return 0, false, fmt.Errorf("geo: non-2xx status: %d", resp.StatusCode)
	}

	var body struct {
		Status string `json:"status"`
		Rows   []struct {
			Elements []struct {
				Status   string `json:"status"`
				Distance struct {
					Value int64 `json:"value"` // meters
				} `json:"distance"`
			} `json:"elements"`
		} `json:"rows"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return 0, false, fmt.Errorf("geo: decode response: %w", err)
	}

	if body.Status != "OK" || len(body.Rows) == 0 || len(body.Rows[0].Elements) == 0 {
		c.log.Warn("geo.distance.unavailable", "api_status", body.Status)
		return 0, false, nil
	}
	el := body.Rows[0].Elements[0]
	if el.Status != "OK" || el.Distance.Value <= 0 {
		// ZERO_RESULTS / NOT_FOUND: legitimate missing data
		c.log.Info("geo.distance.no_route", "element_status", el.Status, "origin", origin, "dest", dest)
		return 0, false, nil
	}

	miles := int(math.Round(float64(el.Distance.Value) / metersPerMile))
	c.log.Info("geo.distance.ok",
		"miles", miles,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return miles, true, nil
}
