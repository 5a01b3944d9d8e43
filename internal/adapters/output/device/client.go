package device

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"lpd8806-bridge/internal/domain/model"
)

const defaultTimeout = 5 * time.Second

// Client is the remote command client for the strip controller. It keeps no
// device state: every call is one JSON round trip against the base URL.
type Client struct {
	url         string
	httpClient  *http.Client
	limiter     *rate.Limiter
	checkStatus bool
}

type Option func(*Client)

// WithTimeout bounds every request. This is the only timeout on device I/O.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// WithRateLimit paces outbound requests. Zero or less disables pacing.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		if rps > 0 {
			burst := int(rps)
			if burst < 1 {
				burst = 1
			}
			c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
		}
	}
}

// WithStatusCheck makes a non-zero "status" in POST answers an error.
func WithStatusCheck(enabled bool) Option {
	return func(c *Client) {
		c.checkStatus = enabled
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

func NewClient(url string, opts ...Option) (*Client, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, model.ErrMissingDeviceURL
	}

	c := &Client{
		url:        url,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

func (c *Client) FetchState(ctx context.Context) (*model.DeviceSnapshot, error) {
	resp, err := c.do(ctx, http.MethodGet, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var snapshot model.DeviceSnapshot
	if err := json.NewDecoder(resp.Body).Decode(&snapshot); err != nil {
		return nil, fmt.Errorf("decode device state: %w", err)
	}
	return &snapshot, nil
}

func (c *Client) SetPower(ctx context.Context, on bool) error {
	return c.post(ctx, model.PowerCommand(on))
}

func (c *Client) SetHue(ctx context.Context, hue float64) error {
	return c.post(ctx, model.HueCommand(hue))
}

func (c *Client) SetSaturation(ctx context.Context, saturation float64) error {
	return c.post(ctx, model.SaturationCommand(saturation))
}

func (c *Client) SetBrightness(ctx context.Context, brightness float64) error {
	return c.post(ctx, model.BrightnessCommand(brightness))
}

// postResponse is the device answer to a command. Status is a number or a string;
// the number 0 means success.
type postResponse struct {
	Status interface{} `json:"status"`
}

func (c *Client) post(ctx context.Context, cmd model.Command) error {
	body, err := json.Marshal(cmd)
	if err != nil {
		return err
	}

	resp, err := c.do(ctx, http.MethodPost, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if !c.checkStatus {
		// drain so the connection can be reused
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	var pr postResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return fmt.Errorf("decode device answer: %w", err)
	}
	if code, ok := pr.Status.(float64); !ok || code != 0 {
		return &model.DeviceStatusError{Status: pr.Status}
	}
	return nil
}

func (c *Client) do(ctx context.Context, method string, body []byte) (*http.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	log.Debug().Str("method", method).Str("url", c.url).RawJSON("body", bodyOrNull(body)).Msg("Device request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, &model.HTTPStatusError{Method: method, Code: resp.StatusCode}
	}
	return resp, nil
}

func bodyOrNull(body []byte) []byte {
	if body == nil {
		return []byte("null")
	}
	return body
}
