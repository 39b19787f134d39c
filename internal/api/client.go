package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/ALT-F4-LLC/spacerestore/internal/logging"
	"github.com/ALT-F4-LLC/spacerestore/internal/model"
)

// PerPage is the page size requested by GetAll.
const PerPage = 100

// Regions maps a region code to its management API root.
var Regions = map[string]string{
	"eu": "https://mapi.storyblok.com/v1",
	"us": "https://api-us.storyblok.com/v1",
	"ca": "https://api-ca.storyblok.com/v1",
	"ap": "https://api-ap.storyblok.com/v1",
	"cn": "https://app.storyblokchina.cn/v1",
}

// BaseURLForRegion returns the API root for region. An empty region means
// "eu".
func BaseURLForRegion(region string) (string, error) {
	if region == "" {
		region = "eu"
	}
	base, ok := Regions[strings.ToLower(region)]
	if !ok {
		return "", fmt.Errorf("unknown region %q", region)
	}
	return base, nil
}

// Config configures a Client.
type Config struct {
	Token             string
	BaseURL           string
	RequestsPerSecond float64 // <= 0 disables client-side limiting
	Retry             Retry
	HTTPClient        *http.Client
}

// Client is the HTTP Transport. Requests are rate limited and retried on
// 429 responses.
type Client struct {
	token   string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	retry   Retry
}

var (
	_ Transport = (*Client)(nil)
	_ Uploader  = (*Client)(nil)
)

// NewClient returns a Client for cfg.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("management API token is required")
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("API base URL is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	r := cfg.Retry
	if r.Tries == 0 {
		r = DefaultRetry
	}

	return &Client{
		token:   cfg.Token,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    httpClient,
		limiter: rate.NewLimiter(limit, 1),
		retry:   r,
	}, nil
}

// Get fetches a single object.
func (c *Client) Get(ctx context.Context, p string, query url.Values) (map[string]any, error) {
	body, _, err := c.do(ctx, http.MethodGet, p, query, nil)
	if err != nil {
		return nil, err
	}
	return decodeObject(http.MethodGet, p, body)
}

// Post creates an object.
func (c *Client) Post(ctx context.Context, p string, payload map[string]any) (map[string]any, error) {
	body, _, err := c.do(ctx, http.MethodPost, p, nil, payload)
	if err != nil {
		return nil, err
	}
	return decodeObject(http.MethodPost, p, body)
}

// Put updates an object.
func (c *Client) Put(ctx context.Context, p string, payload map[string]any) (map[string]any, error) {
	body, _, err := c.do(ctx, http.MethodPut, p, nil, payload)
	if err != nil {
		return nil, err
	}
	return decodeObject(http.MethodPut, p, body)
}

// GetAll pages through a collection. The response envelope key is the last
// segment of p ("spaces/1/stories" reads "stories"). Paging stops once the
// Total header is reached or a short page arrives.
func (c *Client) GetAll(ctx context.Context, p string, query url.Values) ([]model.Resource, error) {
	envelope := path.Base(strings.TrimRight(p, "/"))

	var all []model.Resource
	for page := 1; ; page++ {
		q := url.Values{}
		for k, v := range query {
			q[k] = append([]string(nil), v...)
		}
		q.Set("per_page", strconv.Itoa(PerPage))
		q.Set("page", strconv.Itoa(page))

		body, header, err := c.do(ctx, http.MethodGet, p, q, nil)
		if err != nil {
			return nil, err
		}

		decoded, err := decodeObject(http.MethodGet, p, body)
		if err != nil {
			return nil, err
		}

		items, _ := decoded[envelope].([]any)
		for i, item := range items {
			fields, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("decoding %s page %d: item %d is not an object", p, page, i)
			}
			all = append(all, model.NewResource(fields))
		}

		total, err := strconv.Atoi(header.Get("Total"))
		if err != nil {
			total = -1
		}
		if len(items) < PerPage || (total >= 0 && len(all) >= total) {
			break
		}
	}

	if all == nil {
		all = []model.Resource{}
	}
	return all, nil
}

// Upload posts file as multipart form data to a pre-signed URL. fields are
// written before the file part, as storage backends require.
func (c *Client) Upload(ctx context.Context, postURL string, fields map[string]string, fileName string, file io.Reader) error {
	data, err := io.ReadAll(file)
	if err != nil {
		return fmt.Errorf("reading %s: %w", fileName, err)
	}

	body, contentType, err := multipartBody(fields, fileName, data)
	if err != nil {
		return err
	}

	return c.retry.Do(ctx, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, postURL, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", contentType)

		resp, err := c.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		respBody, _ := io.ReadAll(resp.Body)
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return newAPIError(http.MethodPost, "upload "+fileName, resp.StatusCode, respBody)
		}
		return nil
	}, isRateLimited)
}

func (c *Client) do(ctx context.Context, method, p string, query url.Values, payload map[string]any) ([]byte, http.Header, error) {
	endpoint := c.baseURL + "/" + strings.TrimLeft(p, "/")
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reqBody []byte
	if payload != nil {
		var err error
		reqBody, err = json.Marshal(payload)
		if err != nil {
			return nil, nil, fmt.Errorf("encoding %s %s: %w", method, p, err)
		}
	}

	log := logging.For(ctx).WithFields(logrus.Fields{"method": method, "path": p})

	var (
		respBody []byte
		header   http.Header
	)
	err := c.retry.Do(ctx, func(ctx context.Context) error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		var bodyReader io.Reader
		if reqBody != nil {
			bodyReader = bytes.NewReader(reqBody)
		}
		req, err := http.NewRequestWithContext(ctx, method, endpoint, bodyReader)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", c.token)
		req.Header.Set("Accept", "application/json")
		if reqBody != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		start := time.Now()
		resp, err := c.http.Do(req)
		if err != nil {
			return fmt.Errorf("%s %s: %w", method, p, err)
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("reading %s %s response: %w", method, p, err)
		}
		log.WithFields(logrus.Fields{
			"status":  resp.StatusCode,
			"elapsed": time.Since(start).String(),
		}).Debug("api request")

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return newAPIError(method, p, resp.StatusCode, data)
		}
		respBody, header = data, resp.Header
		return nil
	}, isRateLimited)
	if err != nil {
		return nil, nil, err
	}
	return respBody, header, nil
}

func isRateLimited(err error) bool {
	return StatusOf(err) == http.StatusTooManyRequests
}

func decodeObject(method, p string, body []byte) (map[string]any, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return map[string]any{}, nil
	}

	var out map[string]any
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding %s %s response: %w", method, p, err)
	}
	if out == nil {
		out = map[string]any{}
	}
	return out, nil
}
