// Package transport wraps the remote wallet API with bearer authentication,
// request timeouts, outbound rate limiting and structured error
// classification. Retry is the fetch coordinator's job; this layer surfaces
// one clean error per call.
package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/time/rate"

	"github.com/wallet-sync/internal/clock"
	"github.com/wallet-sync/internal/config"
	"github.com/wallet-sync/internal/errors"
	"github.com/wallet-sync/internal/logging"
	"github.com/wallet-sync/internal/models"
	"github.com/wallet-sync/internal/types"
)

// SessionProvider supplies the current auth session; validity is re-checked
// immediately before every call, not just at construction, because a
// session may expire mid-sequence.
type SessionProvider interface {
	Session() *models.AuthSession
}

// Client is the authenticated HTTP client for the remote wallet service
type Client struct {
	baseURL        string
	http           *http.Client
	limiter        *rate.Limiter
	sessions       SessionProvider
	onUnauthorized func()
	clock          clock.Clock
	logger         *logging.Logger
}

// NewClient creates a transport client. onUnauthorized fires when the
// server reports the session invalid (401) and is expected to trigger a
// global logout.
func NewClient(cfg *config.APIConfig, sessions SessionProvider, onUnauthorized func(), clk clock.Clock, logger *logging.Logger) *Client {
	return &Client{
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		http:           &http.Client{Timeout: cfg.RequestTimeout},
		limiter:        rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst),
		sessions:       sessions,
		onUnauthorized: onUnauthorized,
		clock:          clk,
		logger:         logger.WithField("component", "transport"),
	}
}

// apiEnvelope is the common wrapper the service puts around every response.
// Application failures arrive as the embedded ServiceError fields.
type apiEnvelope struct {
	Status string `json:"status,omitempty"`
	types.ServiceError
	Data json.RawMessage `json:"data,omitempty"`
}

// noData reports whether an application error body means "this collection
// is empty", which counts as a successful empty result.
func noData(env *apiEnvelope) bool {
	if env.Code == "NO_DATA_FOUND" {
		return true
	}
	msg := strings.ToLower(env.Message)
	return strings.Contains(msg, "no data found") || strings.Contains(msg, "no records found")
}

// get performs one authenticated GET. A nil payload with a nil error means
// the service reported an empty collection (or the session was rejected and
// logout has been triggered); callers map it to their empty value.
func (c *Client) get(ctx context.Context, path string) (json.RawMessage, error) {
	logger := logging.FromContext(ctx).WithField("component", "transport")
	logger.Debugf("GET %s", path)

	session := c.sessions.Session()
	if !session.Valid(c.clock.Now()) {
		return nil, errors.NewAuthError("no valid session")
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, errors.Classify(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+session.IDToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Classify(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.NewNetworkError(err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		logger.Warn("session rejected by server, triggering logout")
		if c.onUnauthorized != nil {
			c.onUnauthorized()
		}
		return nil, nil
	}

	var env apiEnvelope
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		terr := errors.NewTransportError(resp.StatusCode, string(body))
		if json.Unmarshal(body, &env) == nil {
			if noData(&env) {
				return nil, nil
			}
			if env.Code != "" || env.Message != "" {
				// Keep the structured service error reachable via Unwrap.
				serr := env.ServiceError
				terr.Cause = &serr
			}
		}
		return nil, terr
	}

	if err := json.Unmarshal(body, &env); err != nil {
		return nil, errors.NewParseError("response body", err)
	}
	if env.Data == nil && noData(&env) {
		return nil, nil
	}
	return env.Data, nil
}
