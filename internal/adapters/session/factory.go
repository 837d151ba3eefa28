package session

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/bnema/boxtoplay-keeper/internal/domain"
)

const (
	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
	maxDrainBytes    = 1 << 20
)

// browserHeaders is attached to every probe request.
var browserHeaders = map[string]string{
	"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8",
	"Accept-Language":           "fr-FR,fr;q=0.9,en-US;q=0.8,en;q=0.7",
	"Cache-Control":             "no-cache",
	"Pragma":                    "no-cache",
	"Sec-Fetch-Dest":            "document",
	"Sec-Fetch-Mode":            "navigate",
	"Sec-Fetch-Site":            "none",
	"Sec-Fetch-User":            "?1",
	"Upgrade-Insecure-Requests": "1",
}

type FactoryConfig struct {
	BaseURL      string
	CookieName   string
	LoginMarkers []string
	UserAgent    string
	Timeout      time.Duration
}

// Factory builds per-account clients that share one transport.
type Factory struct {
	cfg       FactoryConfig
	transport http.RoundTripper
}

func NewFactory(cfg FactoryConfig, transport http.RoundTripper) *Factory {
	if cfg.CookieName == "" {
		cfg.CookieName = domain.DefaultSessionCookie
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if len(cfg.LoginMarkers) == 0 {
		cfg.LoginMarkers = DefaultLoginMarkers
	}
	if transport == nil {
		transport = http.DefaultTransport
	}

	return &Factory{cfg: cfg, transport: transport}
}

// Client issues requests as one account. The cookies are copied when the
// client is built; later changes to the account are not seen.
type Client struct {
	http         *http.Client
	baseURL      string
	userAgent    string
	cookieName   string
	session      string
	cookies      []*http.Cookie
	loginMarkers []string
}

func (f *Factory) ClientFor(account domain.Account) *Client {
	names := make([]string, 0, len(account.Cookies))
	for name := range account.Cookies {
		names = append(names, name)
	}
	sort.Strings(names)

	cookies := make([]*http.Cookie, 0, len(names))
	for _, name := range names {
		cookies = append(cookies, &http.Cookie{Name: name, Value: account.Cookies[name]})
	}

	return &Client{
		http: &http.Client{
			Transport: f.transport,
			Timeout:   f.cfg.Timeout,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		baseURL:      strings.TrimRight(f.cfg.BaseURL, "/"),
		userAgent:    f.cfg.UserAgent,
		cookieName:   f.cfg.CookieName,
		session:      account.Cookie(f.cfg.CookieName),
		cookies:      cookies,
		loginMarkers: f.cfg.LoginMarkers,
	}
}

// Get requests path and classifies the response.
func (c *Client) Get(ctx context.Context, path string) domain.ProbeOutcome {
	if c.session == "" {
		return domain.Failed(0, fmt.Errorf("account has no %s cookie", c.cookieName))
	}

	endpoint := c.baseURL + "/" + strings.TrimLeft(path, "/")
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return domain.Failed(0, fmt.Errorf("create request: %w", err))
	}
	for name, value := range browserHeaders {
		request.Header.Set(name, value)
	}
	request.Header.Set("User-Agent", c.userAgent)
	for _, cookie := range c.cookies {
		request.AddCookie(cookie)
	}

	response, err := c.http.Do(request)
	if err != nil {
		return domain.Failed(0, fmt.Errorf("perform request: %w", err))
	}
	defer response.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(response.Body, maxDrainBytes))

	return Classify(response, c.cookieName, c.session, c.loginMarkers)
}
