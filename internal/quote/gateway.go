// Package quote fetches current stock prices from the KIS open API.
//
// Gateway never fails: any error (transport, status, payload) is logged and the zero price
// is returned so callers can render a degraded view.
package quote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PaesslerAG/jsonpath"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	tokenPath = "/oauth2/tokenP"
	pricePath = "/uapi/domestic-stock/v1/quotations/inquire-price"
	priceTRID = "FHKST01010100"
	pricePtr  = "$.output.stck_prpr"
)

// errAuth marks a rejected credential.
var errAuth = errors.New("quote credential rejected")

// Config configures the gateway.
type Config struct {
	BaseURL   string
	AppKey    string
	AppSecret string
	Timeout   time.Duration // per outbound call, default 3s
	RPS       float64       // outbound calls per second, default 15
}

// Gateway is the cached-credential quote client.
type Gateway struct {
	cfg     Config
	client  *http.Client
	limiter *rate.Limiter
	log     *zap.Logger

	mu   sync.RWMutex
	cred string
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithHTTPClient replaces the HTTP client. Its Timeout is overwritten by Config.Timeout.
func WithHTTPClient(c *http.Client) Option { return func(g *Gateway) { g.client = c } }

// New constructs a gateway. An empty BaseURL disables outbound calls.
func New(cfg Config, log *zap.Logger, opts ...Option) *Gateway {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 3 * time.Second
	}
	if cfg.RPS <= 0 {
		cfg.RPS = 15
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	g := &Gateway{
		cfg:     cfg,
		client:  &http.Client{},
		limiter: rate.NewLimiter(rate.Limit(cfg.RPS), max(int(cfg.RPS), 1)),
		log:     log,
	}
	for _, o := range opts {
		o(g)
	}
	g.client.Timeout = cfg.Timeout
	return g
}

// CurrentPrice returns the last traded price of symbol, or zero if it cannot be fetched.
func (g *Gateway) CurrentPrice(ctx context.Context, symbol string) decimal.Decimal {
	if g.cfg.BaseURL == "" {
		return decimal.Zero
	}
	p, cred, err := g.fetchPrice(ctx, symbol)
	if err != nil {
		if errors.Is(err, errAuth) {
			g.invalidate(cred)
		}
		g.log.Warn("quote unavailable", zap.String("symbol", symbol), zap.Error(err))
		return decimal.Zero
	}
	return p
}

// Invalidate drops the cached credential; the next call fetches a new one.
func (g *Gateway) Invalidate() {
	g.mu.Lock()
	g.cred = ""
	g.mu.Unlock()
}

// invalidate drops the cached credential only if it is still cred, so a late
// rejection of an old credential keeps a newer one.
func (g *Gateway) invalidate(cred string) {
	g.mu.Lock()
	if g.cred == cred {
		g.cred = ""
	}
	g.mu.Unlock()
}

// credential returns the cached credential, fetching it on first use.
func (g *Gateway) credential(ctx context.Context) (string, error) {
	g.mu.RLock()
	c := g.cred
	g.mu.RUnlock()
	if c != "" {
		return c, nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.cred != "" {
		return g.cred, nil
	}
	c, err := g.fetchCredential(ctx)
	if err != nil {
		return "", err
	}
	g.cred = c
	g.log.Info("quote credential issued")
	return c, nil
}

func (g *Gateway) fetchCredential(ctx context.Context) (string, error) {
	body, err := json.Marshal(map[string]string{
		"grant_type": "client_credentials",
		"appkey":     g.cfg.AppKey,
		"appsecret":  g.cfg.AppSecret,
	})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.BaseURL+tokenPath, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	var out struct {
		AccessToken string `json:"access_token"`
	}
	if err := g.doJSON(req, &out); err != nil {
		return "", fmt.Errorf("token: %w", err)
	}
	if out.AccessToken == "" {
		return "", errors.New("token: empty access_token")
	}
	return out.AccessToken, nil
}

func (g *Gateway) fetchPrice(ctx context.Context, symbol string) (decimal.Decimal, string, error) {
	cred, err := g.credential(ctx)
	if err != nil {
		return decimal.Zero, "", err
	}

	q := url.Values{}
	q.Set("fid_cond_mrkt_div_code", "J")
	q.Set("fid_input_iscd", symbol)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.cfg.BaseURL+pricePath+"?"+q.Encode(), nil)
	if err != nil {
		return decimal.Zero, cred, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("authorization", "Bearer "+cred)
	req.Header.Set("appkey", g.cfg.AppKey)
	req.Header.Set("appsecret", g.cfg.AppSecret)
	req.Header.Set("tr_id", priceTRID)

	var doc any
	if err := g.doJSON(req, &doc); err != nil {
		return decimal.Zero, cred, err
	}
	v, err := jsonpath.Get(pricePtr, doc)
	if err != nil {
		return decimal.Zero, cred, fmt.Errorf("price %s: %w", pricePtr, err)
	}
	switch p := v.(type) {
	case string:
		d, err := decimal.NewFromString(p)
		return d, cred, err
	case float64:
		return decimal.NewFromFloat(p), cred, nil
	default:
		return decimal.Zero, cred, fmt.Errorf("price %s: unexpected %T", pricePtr, v)
	}
}

// doJSON waits for the rate limiter, performs req and decodes a 200 JSON body into out.
func (g *Gateway) doJSON(req *http.Request, out any) error {
	if err := g.limiter.Wait(req.Context()); err != nil {
		return err
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, errAuth)
	case resp.StatusCode != http.StatusOK:
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("%s %s: %s", req.Method, req.URL.Path, resp.Status)
	}
	return json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(out)
}
