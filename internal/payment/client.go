package payment

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
)

// Client is a thin HTTP client for the payment gateway's authorization API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a gateway Client for the given API base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

var _ Gateway = (*Client)(nil)

// CreateAuthorization requests a single payment authorization. The secret
// key comes from runtime settings; an Idempotency-Key header is attached
// only when the caller supplied one.
func (c *Client) CreateAuthorization(ctx context.Context, settings Settings, req AuthorizationRequest) (*Authorization, error) {
	if !settings.Enabled || settings.SecretKey == "" {
		return nil, ErrNotConfigured
	}

	form := url.Values{}
	form.Set("amount", strconv.FormatInt(req.AmountMinor, 10))
	form.Set("currency", req.Currency)
	for k, v := range req.Metadata {
		form.Set("metadata["+k+"]", v)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/payment_intents", bytes.NewBufferString(form.Encode()))
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Authorization", "Bearer "+settings.SecretKey)
	if req.IdempotencyKey != "" {
		httpReq.Header.Set("Idempotency-Key", req.IdempotencyKey)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, errors.Wrap(err, "gateway request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, errors.Wrap(err, "read gateway response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("gateway returned status %d", resp.StatusCode)
	}

	auth, err := decodeAuthorization(body)
	if err != nil {
		return nil, errors.Wrap(err, "decode gateway response")
	}
	return auth, nil
}

func decodeAuthorization(body []byte) (*Authorization, error) {
	var auth Authorization
	d := jx.DecodeBytes(body)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "id":
			v, err := d.Str()
			if err != nil {
				return err
			}
			auth.Reference = v
		case "client_secret":
			v, err := d.Str()
			if err != nil {
				return err
			}
			auth.ClientSecret = v
		default:
			return d.Skip()
		}
		return nil
	}); err != nil {
		return nil, err
	}
	if auth.Reference == "" || auth.ClientSecret == "" {
		return nil, errors.New("gateway response missing id or client_secret")
	}
	return &auth, nil
}

// ParseEvent decodes a webhook event payload. Unknown fields are skipped so
// gateway payload additions do not break parsing.
func ParseEvent(payload []byte) (*Event, error) {
	var ev Event
	d := jx.DecodeBytes(payload)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "id":
			v, err := d.Str()
			if err != nil {
				return err
			}
			ev.ID = v
		case "type":
			v, err := d.Str()
			if err != nil {
				return err
			}
			ev.Type = v
		case "data":
			return d.Obj(func(d *jx.Decoder, key string) error {
				if key != "object" {
					return d.Skip()
				}
				return d.Obj(func(d *jx.Decoder, key string) error {
					if key != "id" {
						return d.Skip()
					}
					v, err := d.Str()
					if err != nil {
						return err
					}
					ev.Reference = v
					return nil
				})
			})
		default:
			return d.Skip()
		}
		return nil
	}); err != nil {
		return nil, errors.Wrap(err, "parse event")
	}
	if ev.Type == "" {
		return nil, errors.New("event missing type")
	}
	return &ev, nil
}
