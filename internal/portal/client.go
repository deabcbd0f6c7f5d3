package portal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"schulmanager-sync/internal/config"
	"schulmanager-sync/internal/logger"
	"schulmanager-sync/internal/model"
	"schulmanager-sync/pkg/errors"
)

const DefaultBaseURL = "https://login.schulmanager-online.de"

const chromeUA = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// Client talks to the Schulmanager Online portal: salt fetch, login,
// bundle-version discovery and the batched /api/calls endpoint. The session
// token and bundle version are the only shared mutable state; both are
// guarded by one mutex so concurrent callers cannot race into redundant
// logins or discoveries.
type Client struct {
	cfg        *config.Config
	httpClient *http.Client
	dumper     *Dumper
	log        zerolog.Logger

	baseURL  string
	username string
	password string

	mu               sync.Mutex
	token            string
	bundleVersion    string
	institutionID    *int64
	schoolName       string
	students         []model.Student
	subjectsCache    map[int64]model.SubjectInfo
	multipleAccounts []model.SchoolAccount

	now func() time.Time
}

func NewClient(cfg *config.Config) *Client {
	baseURL := cfg.Portal.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.PortalTimeout(),
		},
		dumper:        NewDumper(cfg.Diagnostics.DebugDumps, cfg.Diagnostics.DumpDir),
		log:           logger.Component("portal"),
		baseURL:       strings.TrimRight(baseURL, "/"),
		username:      cfg.Portal.Username,
		password:      cfg.Portal.Password,
		institutionID: cfg.Portal.InstitutionID,
		now:           time.Now,
	}
}

// newSchoolClient builds a per-school client of a multi-school account.
func newSchoolClient(cfg *config.Config, institutionID int64, schoolName string) *Client {
	c := NewClient(cfg)
	c.institutionID = &institutionID
	c.schoolName = schoolName
	return c
}

func (c *Client) saltURL() string  { return c.baseURL + "/api/get-salt" }
func (c *Client) loginURL() string { return c.baseURL + "/api/login" }
func (c *Client) callsURL() string { return c.baseURL + "/api/calls" }
func (c *Client) indexURL() string { return c.baseURL + "/" }

func commonHeaders() http.Header {
	h := http.Header{}
	h.Set("User-Agent", chromeUA)
	h.Set("Accept-Language", "de-DE,de;q=0.9")
	h.Set("Accept", "application/json, text/plain, */*")
	h.Set("Cache-Control", "no-cache")
	h.Set("Pragma", "no-cache")
	return h
}

// Students returns a copy of the roster discovered at login.
func (c *Client) Students() []model.Student {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]model.Student, len(c.students))
	copy(out, c.students)
	return out
}

// MultipleAccounts returns the school choice list of the last login, if the
// account spans several schools.
func (c *Client) MultipleAccounts() []model.SchoolAccount {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]model.SchoolAccount, len(c.multipleAccounts))
	copy(out, c.multipleAccounts)
	return out
}

// ClearAuthCache drops the session token and the cached bundle version
// together. The next call re-authenticates and re-discovers.
func (c *Client) ClearAuthCache() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = ""
	c.bundleVersion = ""
}

func (c *Client) HasToken() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token != ""
}

func (c *Client) InstitutionID() *int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.institutionID
}

// ensureAuthenticated is the idempotent check-then-act gate in front of
// every portal call: log in when no token is cached, then discover the
// bundle version when missing. Discovery failure is tolerated here; it only
// becomes a hard error at endpoints that require the version.
func (c *Client) ensureAuthenticated(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token == "" {
		if err := c.loginLocked(ctx); err != nil {
			return err
		}
		if len(c.multipleAccounts) > 0 {
			return errors.ErrMultipleAccounts
		}
	}
	if c.bundleVersion == "" {
		version, err := c.discoverBundleVersionLocked(ctx)
		if err != nil || version == "" {
			c.log.Warn().Err(err).Msg("Bundle version not discovered, proceeding without it")
		} else {
			c.bundleVersion = version
		}
	}
	return nil
}

// sessionState snapshots token and bundle version under the lock.
func (c *Client) sessionState() (token, bundleVersion string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token, c.bundleVersion
}

// requireBundleVersion ensures authentication and returns the cached bundle
// version, failing hard when discovery never produced one.
func (c *Client) requireBundleVersion(ctx context.Context) (string, error) {
	if err := c.ensureAuthenticated(ctx); err != nil {
		return "", err
	}
	_, version := c.sessionState()
	if version == "" {
		return "", errors.ErrBundleVersionNotFound
	}
	return version, nil
}

// Call posts a single named sub-request to the batched calls endpoint and
// unwraps the results envelope. A 200 response with an empty results array
// or a failing sub-status yields an empty result rather than an error;
// upstream produces those for transient reasons and callers must tolerate
// them.
func (c *Client) Call(ctx context.Context, module, endpoint string, parameters any) (json.RawMessage, error) {
	if err := c.ensureAuthenticated(ctx); err != nil {
		return nil, err
	}
	token, bundleVersion := c.sessionState()

	payload := model.BatchPayload{
		BundleVersion: bundleVersion,
		Requests: []model.CallRequest{
			{ModuleName: module, EndpointName: endpoint, Parameters: parameters},
		},
	}

	tag := module + "_" + endpoint
	resp, err := c.postBatch(ctx, token, payload, tag)
	if err != nil {
		return nil, err
	}

	if len(resp.Results) == 0 {
		c.log.Warn().Str("module", module).Str("endpoint", endpoint).
			Msg("No results in API response")
		return nil, nil
	}

	result := resp.Results[0]
	if !result.OK() {
		c.log.Warn().Str("module", module).Str("endpoint", endpoint).
			Int("sub_status", *result.Status).
			Msg("API sub-request failed")
		return nil, nil
	}
	return result.Data, nil
}

// postBatch posts a prepared batch payload with auth headers and decodes
// the envelope. Dedicated fetchers use it directly when they need to embed
// the bundle version themselves.
func (c *Client) postBatch(ctx context.Context, token string, payload model.BatchPayload, tag string) (*model.BatchResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal batch payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.callsURL(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header = commonHeaders()
	req.Header.Set("Content-Type", "application/json;charset=UTF-8")
	req.Header.Set("Authorization", "Bearer "+token)

	c.dumpRequest(tag+"_request", payload)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.NewTransportError("calls "+tag, 0, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.NewTransportError("calls "+tag, resp.StatusCode, err)
	}

	c.dumpResponse(tag+"_response", resp.StatusCode, raw)

	if resp.StatusCode != http.StatusOK {
		c.log.Warn().Str("tag", tag).Int("status", resp.StatusCode).
			Msg("API call failed")
		return nil, errors.NewTransportError("calls "+tag, resp.StatusCode, nil)
	}

	var batch model.BatchResponse
	if err := json.Unmarshal(raw, &batch); err != nil {
		return nil, errors.NewTransportError("calls "+tag, resp.StatusCode, err)
	}
	return &batch, nil
}

func (c *Client) dumpRequest(name string, payload any) {
	if !c.dumper.Enabled() {
		return
	}
	buf, err := json.Marshal(payload)
	if err != nil {
		return
	}
	var generic any
	if err := json.Unmarshal(buf, &generic); err != nil {
		return
	}
	c.dumper.Dump(name, generic)
}

func (c *Client) dumpResponse(name string, status int, raw []byte) {
	if !c.dumper.Enabled() {
		return
	}
	var body any
	if err := json.Unmarshal(raw, &body); err != nil {
		limit := len(raw)
		if limit > 500 {
			limit = 500
		}
		body = string(raw[:limit])
	}
	c.dumper.Dump(name, map[string]any{"status": status, "body": body})
}
