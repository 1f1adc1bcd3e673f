package ledger

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/Unagi-Games/evm-whitelabel/internal/domain"
	"github.com/Unagi-Games/evm-whitelabel/pkg/errcodes"
	"github.com/Unagi-Games/evm-whitelabel/pkg/httpx"
	"github.com/Unagi-Games/evm-whitelabel/pkg/logx"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary //nolint:gochecknoglobals

// Config points a client at one asset-ledger gateway.
type Config struct {
	BaseURL       string
	Token         string
	Timeout       time.Duration
	LogBodyMaxLen int
}

// staticTokenAuthenticator satisfies the bearer round tripper with a
// preconfigured API token.
type staticTokenAuthenticator struct {
	token string
}

func (a staticTokenAuthenticator) Authenticate(context.Context) error {
	return nil
}

func (a staticTokenAuthenticator) BearerToken() string {
	return a.token
}

type client struct {
	http    *http.Client
	baseURL string
}

func newClient(cfg Config) client {
	transport := http.RoundTripper(http.DefaultTransport)
	transport = httpx.NewLoggingRoundTripper(
		transport,
		httpx.WithLogFieldMaxLen(cfg.LogBodyMaxLen),
		httpx.WithSensitiveDataMasker(logx.NewSensitiveDataMasker()),
	)
	if cfg.Token != "" {
		transport = httpx.NewAuthBearerRoundTripper(transport, staticTokenAuthenticator{token: cfg.Token})
	}

	return client{
		http: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
		baseURL: cfg.BaseURL,
	}
}

func (c client) get(ctx context.Context, path string, query url.Values, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("http.NewRequestWithContext: %w", err)
	}

	return c.do(req, out)
}

func (c client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("json.Marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("http.NewRequestWithContext: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, out)
}

func (c client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return domain.WrapError(err, errcodes.KindInternal, errcodes.LedgerError, "ledger request failed")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.WrapError(err, errcodes.KindInternal, errcodes.LedgerError, "failed to read ledger response")
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return domain.NewError(
			errcodes.KindInternal,
			errcodes.LedgerError,
			fmt.Sprintf("ledger %s %s returned status %d", req.Method, req.URL.Path, resp.StatusCode),
		)
	}

	if out == nil {
		return nil
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return domain.WrapError(err, errcodes.KindInternal, errcodes.LedgerError, "failed to decode ledger response")
	}

	return nil
}
