// Package trackingclient fetches application tracking records from the
// portal's tracking endpoint.
package trackingclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/iwvelando/loan-leads/pkg/constants"
	"github.com/iwvelando/loan-leads/pkg/tracking"
	"go.uber.org/zap"
)

// maxResponseBytes bounds how much of a response body is read.
const maxResponseBytes = 1 << 20

// Client talks to GET {baseURL}/api/tracking/{uuid}.
type Client struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// New creates a Client. A zero timeout uses the default HTTP timeout and a
// nil logger disables logging.
func New(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = constants.DefaultHTTPTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// FetchStatus returns the tracking record for uuid. Every failure is a
// *tracking.Error: the backend's own error when it sent one, INVALID_UUID for
// a malformed reference, and NETWORK_ERROR for transport or decoding
// problems.
func (c *Client) FetchStatus(ctx context.Context, uuid string) (*tracking.ApplicationTracking, error) {
	uuid = strings.TrimSpace(uuid)
	if err := tracking.ValidateUUID(uuid); err != nil {
		return nil, tracking.NewError(tracking.CodeInvalidUUID, err.Error())
	}

	endpoint := fmt.Sprintf("%s/api/tracking/%s", c.baseURL, url.PathEscape(uuid))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, tracking.NewError(tracking.CodeNetworkError, fmt.Sprintf("failed to build request: %v", err))
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-store")

	c.logger.Debug("fetching tracking status",
		zap.String("op", "trackingclient.FetchStatus"),
		zap.String("url", endpoint),
	)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, tracking.NewError(tracking.CodeNetworkError, fmt.Sprintf("request failed: %v", err))
	}
	defer resp.Body.Close()

	var envelope tracking.Response
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&envelope); err != nil {
		e := tracking.NewError(tracking.CodeNetworkError, fmt.Sprintf("failed to parse response: %v", err))
		e.HTTPStatus = resp.StatusCode
		return nil, e
	}

	if resp.StatusCode >= http.StatusBadRequest || !envelope.Success || envelope.Data == nil {
		e := envelope.Error
		if envelope.Success || e == nil {
			e = tracking.NewError(tracking.CodeNetworkError, "Network error")
		}
		if e.UserMessage == "" {
			e.UserMessage = tracking.DefaultUserMessage(e.Code)
		}
		e.HTTPStatus = resp.StatusCode
		c.logger.Debug("tracking endpoint returned an error",
			zap.String("op", "trackingclient.FetchStatus"),
			zap.Int("status", resp.StatusCode),
			zap.String("code", string(e.Code)),
		)
		return nil, e
	}

	return envelope.Data, nil
}
