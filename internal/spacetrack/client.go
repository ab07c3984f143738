// Package spacetrack is a minimal Space-Track REST client for element
// set catalogs and conjunction data messages. The screening core never
// requires it; binaries wire it in when a live source is configured.
package spacetrack

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/orb/orbscreen/internal/cdm"
	"github.com/orb/orbscreen/internal/metrics"
)

const (
	defaultBaseURL = "https://www.space-track.org"

	// maxBodyBytes caps response reads; full catalogs run tens of MB.
	maxBodyBytes = 64 << 20
)

// Client talks to the Space-Track REST API using session-cookie
// authentication. Calls are blocking and serialized per client.
type Client struct {
	baseURL    string
	identity   string
	password   string
	httpClient *http.Client
	logger     *slog.Logger

	mu       sync.Mutex
	loggedIn bool
}

// NewClient creates a client for the given credentials. An empty
// baseURL selects the public Space-Track endpoint.
func NewClient(baseURL, identity, password string, logger *slog.Logger) (*Client, error) {
	if identity == "" || password == "" {
		return nil, fmt.Errorf("spacetrack credentials are required")
	}
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("creating cookie jar: %w", err)
	}
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		identity: identity,
		password: password,
		httpClient: &http.Client{
			Jar:     jar,
			Timeout: 60 * time.Second,
		},
		logger: logger,
	}, nil
}

// login establishes the session cookie. Caller holds the mutex.
func (c *Client) login(ctx context.Context) error {
	form := url.Values{
		"identity": {c.identity},
		"password": {c.password},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/ajaxauth/login", strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("creating login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("logging in: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("login rejected with status %d", resp.StatusCode)
	}
	c.loggedIn = true
	c.logger.Info("spacetrack session established")
	return nil
}

// query performs an authenticated GET, re-authenticating once when the
// session has expired.
func (c *Client) query(ctx context.Context, path string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.loggedIn {
		if err := c.login(ctx); err != nil {
			return nil, err
		}
	}

	body, status, err := c.get(ctx, path)
	if err != nil {
		return nil, err
	}
	if status == http.StatusUnauthorized {
		c.loggedIn = false
		c.logger.Warn("spacetrack session expired, re-authenticating")
		if err := c.login(ctx); err != nil {
			return nil, err
		}
		body, status, err = c.get(ctx, path)
		if err != nil {
			return nil, err
		}
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code %d from %s", status, path)
	}
	return body, nil
}

func (c *Client) get(ctx context.Context, path string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("creating request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("querying %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, 0, fmt.Errorf("reading response body: %w", err)
	}
	return body, resp.StatusCode, nil
}

// FetchTLE retrieves the latest element set for one object in 3-line
// form.
func (c *Client) FetchTLE(ctx context.Context, noradID int) ([]byte, error) {
	path := fmt.Sprintf("/basicspacedata/query/class/gp/NORAD_CAT_ID/%d/orderby/EPOCH%%20desc/limit/1/format/3le", noradID)
	return c.query(ctx, path)
}

// FetchCatalog retrieves the on-orbit catalog with epochs within the
// given number of days, in 3-line form.
func (c *Client) FetchCatalog(ctx context.Context, epochWithinDays int) ([]byte, error) {
	if epochWithinDays <= 0 {
		epochWithinDays = 30
	}
	path := fmt.Sprintf("/basicspacedata/query/class/gp/DECAY_DATE/null-val/EPOCH/%%3Enow-%d/orderby/NORAD_CAT_ID/format/3le", epochWithinDays)
	return c.query(ctx, path)
}

// FetchCDMs retrieves up to limit recent conjunction messages naming
// the object, splitting the concatenated KVN response into individual
// messages. Messages that fail to parse are logged and skipped.
func (c *Client) FetchCDMs(ctx context.Context, noradID, limit int) ([]*cdm.CDM, error) {
	if limit <= 0 {
		limit = 10
	}
	path := fmt.Sprintf("/basicspacedata/query/class/cdm_public/SAT_1_ID/%d/orderby/CREATION_DATE%%20desc/limit/%d/format/kvn", noradID, limit)
	body, err := c.query(ctx, path)
	if err != nil {
		return nil, err
	}

	var out []*cdm.CDM
	for _, msg := range SplitKVN(string(body)) {
		parsed, err := cdm.ParseKVN(strings.NewReader(msg))
		if err != nil {
			c.logger.Warn("skipping unparseable conjunction message", "error", err)
			metrics.RecordParseWarning("cdm")
			continue
		}
		out = append(out, parsed)
	}
	return out, nil
}

// SplitKVN splits concatenated KVN messages on the version marker that
// opens each message.
func SplitKVN(text string) []string {
	const marker = "CCSDS_CDM_VERS"
	var out []string
	idx := strings.Index(text, marker)
	for idx >= 0 {
		next := strings.Index(text[idx+len(marker):], marker)
		if next < 0 {
			out = append(out, strings.TrimSpace(text[idx:]))
			break
		}
		end := idx + len(marker) + next
		out = append(out, strings.TrimSpace(text[idx:end]))
		idx = end
	}
	return out
}
