package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/custodia-labs/catalog-delta/internal/core/domain"
	"github.com/custodia-labs/catalog-delta/internal/core/ports/driven"
	"github.com/custodia-labs/catalog-delta/internal/logger"
)

// Ensure Client implements the interface.
var _ driven.CatalogClient = (*Client)(nil)

// Client fetches raw catalog data over HTTP.
type Client struct {
	http     *resty.Client
	throttle *Throttle
	cfg      Config
}

// NewClient creates a catalog client with its own throttle.
func NewClient(cfg Config) *Client {
	return NewClientWithThrottle(cfg, NewThrottle(cfg.HTTP))
}

// NewClientWithThrottle creates a catalog client sharing an existing throttle.
func NewClientWithThrottle(cfg Config, throttle *Throttle) *Client {
	client := resty.New()
	client.SetTimeout(cfg.HTTP.Timeout)
	client.SetHeader("Accept", "application/json")
	if cfg.HTTP.UserAgent != "" {
		client.SetHeader("User-Agent", cfg.HTTP.UserAgent)
	}
	if cfg.HTTP.Cookie != "" {
		client.SetHeader("Cookie", cfg.HTTP.Cookie)
	}

	return &Client{
		http:     client,
		throttle: throttle,
		cfg:      cfg,
	}
}

// Throttle returns the shared throttle.
func (c *Client) Throttle() *Throttle {
	return c.throttle
}

// Strikes returns the number of ban signals received so far.
func (c *Client) Strikes() int {
	return c.throttle.Strikes()
}

// Fetch performs every request of one unit of work.
func (c *Client) Fetch(ctx context.Context, kind domain.EntityKind, productID int64) (*domain.RawPayload, error) {
	raw := &domain.RawPayload{
		Kind:      kind,
		ProductID: productID,
		Parts:     make(map[string][]byte),
	}

	var err error
	switch kind {
	case domain.KindProduct:
		err = c.fetchProduct(ctx, raw)
	case domain.KindBuild:
		err = c.fetchBuilds(ctx, raw)
	case domain.KindPrice:
		err = c.fetchPrices(ctx, raw)
	case domain.KindRating:
		err = c.fetchRatings(ctx, raw)
	default:
		return nil, fmt.Errorf("%w: %s is not fetched remotely", domain.ErrUnsupportedKind, kind)
	}
	if err != nil {
		return nil, err
	}
	return raw, nil
}

func (c *Client) fetchProduct(ctx context.Context, raw *domain.RawPayload) error {
	url := fmt.Sprintf("%s/products/%d", c.cfg.Endpoints.API, raw.ProductID)
	body, err := c.get(ctx, url, map[string]string{"expand": "downloads,description,changelog"}, http.StatusNotFound)
	if err != nil {
		return err
	}
	raw.Parts[domain.PartProduct] = body
	return nil
}

// fetchBuilds queries every OS. An OS without builds answers with an empty
// listing; the normaliser decides whether the product has builds at all.
func (c *Client) fetchBuilds(ctx context.Context, raw *domain.RawPayload) error {
	for _, os := range c.cfg.OSes {
		url := fmt.Sprintf("%s/products/%d/os/%s/builds", c.cfg.Endpoints.ContentSystem, raw.ProductID, os)
		body, err := c.get(ctx, url, map[string]string{"generation": "2"}, http.StatusNotFound)
		if IsNotFound(err) {
			continue
		}
		if err != nil {
			return err
		}
		raw.Parts[os] = body
	}
	return nil
}

// fetchPrices quotes prices in the configured country. The endpoint answers
// 400 for IDs that are not purchasable products.
func (c *Client) fetchPrices(ctx context.Context, raw *domain.RawPayload) error {
	url := fmt.Sprintf("%s/products/%d/prices", c.cfg.Endpoints.API, raw.ProductID)
	body, err := c.get(ctx, url, map[string]string{"countryCode": c.cfg.Country},
		http.StatusBadRequest, http.StatusNotFound)
	if err != nil {
		return err
	}
	raw.Country = strings.ToUpper(c.cfg.Country)
	raw.Parts[domain.PartPrices] = body
	return nil
}

// fetchRatings queries the review summary first. Averages are only
// requested for products that have reviews at all; a missing average is
// tolerated.
func (c *Client) fetchRatings(ctx context.Context, raw *domain.RawPayload) error {
	base := fmt.Sprintf("%s/v1/products/%d", c.cfg.Endpoints.Reviews, raw.ProductID)
	reviews, err := c.get(ctx, base+"/reviews", map[string]string{
		"language": "in:en-US",
		"limit":    "1",
		"order":    "desc:votes",
	}, http.StatusNotFound)
	if err != nil {
		return err
	}
	raw.Parts[domain.PartReviews] = reviews

	var summary struct {
		Pages int `json:"pages"`
	}
	if err := json.Unmarshal(reviews, &summary); err != nil || summary.Pages == 0 {
		return nil
	}

	avg, err := c.get(ctx, base+"/averageRating", nil, http.StatusNotFound)
	switch {
	case err == nil:
		raw.Parts[domain.PartAverage] = avg
	case !IsNotFound(err):
		return err
	}

	verified, err := c.get(ctx, base+"/averageRating", map[string]string{"reviewer": "verified_owner"}, http.StatusNotFound)
	switch {
	case err == nil:
		raw.Parts[domain.PartVerified] = verified
	case !IsNotFound(err):
		return err
	}
	return nil
}

// ProbeProducts returns the subset of ids that exist remotely, using the
// bulk products endpoint in chunks of ProbeChunkSize.
func (c *Client) ProbeProducts(ctx context.Context, ids []int64) ([]int64, error) {
	var found []int64
	for chunk := range slices.Chunk(ids, ProbeChunkSize) {
		parts := make([]string, len(chunk))
		for i, id := range chunk {
			parts[i] = strconv.FormatInt(id, 10)
		}

		body, err := c.get(ctx, c.cfg.Endpoints.API+"/products", map[string]string{"ids": strings.Join(parts, ",")})
		if err != nil {
			return nil, fmt.Errorf("probe %d-%d: %w", chunk[0], chunk[len(chunk)-1], err)
		}

		var listed []struct {
			ID int64 `json:"id"`
		}
		if err := json.Unmarshal(body, &listed); err != nil {
			return nil, fmt.Errorf("%w: probe response: %w", domain.ErrTransient, err)
		}
		if len(listed) > 0 {
			logger.Info("BQ >>> Found something in the %d <-> %d range...", chunk[0], chunk[len(chunk)-1])
		}
		for _, p := range listed {
			found = append(found, p.ID)
		}
	}

	slices.Sort(found)
	return slices.Compact(found), nil
}

// NewArrivals walks the new-arrival and upcoming listings page by page.
func (c *Client) NewArrivals(ctx context.Context) ([]int64, error) {
	var ids []int64
	for _, status := range []string{"new-arrival", "upcoming"} {
		for page, pages := 1, 1; page <= pages; page++ {
			body, err := c.get(ctx, c.cfg.Endpoints.Catalog+"/v1/catalog", map[string]string{
				"limit":           strconv.Itoa(ListingPageSize),
				"releaseStatuses": "in:" + status,
				"order":           "desc:releaseDate",
				"productType":     "in:game,pack,dlc,extras",
				"page":            strconv.Itoa(page),
			})
			if err != nil {
				return nil, fmt.Errorf("list %s page %d: %w", status, page, err)
			}

			var listing struct {
				Pages    int `json:"pages"`
				Products []struct {
					ID json.Number `json:"id"`
				} `json:"products"`
			}
			if err := json.Unmarshal(body, &listing); err != nil {
				return nil, fmt.Errorf("%w: %s listing: %w", domain.ErrTransient, status, err)
			}
			pages = listing.Pages
			for _, p := range listing.Products {
				if id, err := p.ID.Int64(); err == nil {
					ids = append(ids, id)
				}
			}
		}
	}

	slices.Sort(ids)
	return slices.Compact(ids), nil
}

// get issues one throttled GET. Statuses listed in notFound are reported as
// definitive absence; ban statuses and block pages are recorded on the
// throttle.
func (c *Client) get(ctx context.Context, url string, query map[string]string, notFound ...int) ([]byte, error) {
	if err := c.throttle.Wait(ctx); err != nil {
		return nil, err
	}

	logger.Debug("Querying url: %s", url)
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(query).
		Get(url)
	if err != nil {
		return nil, fmt.Errorf("%w: GET %s: %w", domain.ErrTransient, url, err)
	}

	status := resp.StatusCode()
	switch {
	case banStatuses[status]:
		rlErr := c.throttle.RecordBan(status, url)
		logger.Warn("HTTP %d received for %s, strike %d", status, url, rlErr.Strikes)
		return nil, rlErr
	case slices.Contains(notFound, status):
		return nil, &APIError{StatusCode: status, Message: http.StatusText(status), URL: url, NotFound: true}
	case status != http.StatusOK:
		return nil, &APIError{StatusCode: status, Message: http.StatusText(status), URL: url}
	}

	if IsBlockPage(resp.Header().Get("Content-Type"), resp.Body()) {
		rlErr := c.throttle.RecordBan(status, url)
		logger.Warn("Block page received for %s, strike %d", url, rlErr.Strikes)
		return nil, rlErr
	}
	return resp.Body(), nil
}
