package prospect

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/iwvelando/loan-leads/pkg/constants"
	"go.uber.org/zap"
)

const (
	mockChannelID = 3508
	mockStatus    = "PENDING"
	mockMessage   = "Pengajuan berhasil (Mock API - Development Mode)"

	defaultUserMessage = "Terjadi kesalahan saat mengirim pengajuan"
)

// Config configures the loan-prospect API client.
type Config struct {
	BaseURL        string        `mapstructure:"base_url" yaml:"base_url"`
	ClientID       string        `mapstructure:"client_id" yaml:"client_id"`
	ClientPassword string        `mapstructure:"client_password" yaml:"client_password"`
	Mock           bool          `mapstructure:"mock" yaml:"mock"`
	Timeout        time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// ProspectData is the created prospect returned by the API.
type ProspectData struct {
	UUID      string `json:"prpect_uuid"`
	ChannelID int    `json:"prpect_channel_id,omitempty"`
	Status    string `json:"prpect_status,omitempty"`
	BPType    string `json:"prpect_bp_type,omitempty"`
	FullName  string `json:"prpect_bp_fullname,omitempty"`
}

// Response is the API's success body.
type Response struct {
	Message string        `json:"message,omitempty"`
	Status  int           `json:"status,omitempty"`
	Data    *ProspectData `json:"data,omitempty"`
}

// Error is a failed submission. Status is the HTTP status returned by the
// API, or 500 for local failures.
type Error struct {
	Status      int    `json:"status"`
	Message     string `json:"message"`
	UserMessage string `json:"userMessage"`
	Code        string `json:"responseCode,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("loan prospect API returned %d: %s", e.Status, e.Message)
}

// UserMessageForStatus maps an API status code to the message shown to the
// applicant. For 400 the API's own message is preferred.
func UserMessageForStatus(status int, apiMessage string) string {
	switch status {
	case http.StatusBadRequest:
		if apiMessage != "" {
			return apiMessage
		}
		return "Data yang dikirim tidak valid. Silakan periksa kembali."
	case http.StatusUnauthorized:
		return "Autentikasi gagal. Silakan coba lagi."
	case http.StatusForbidden:
		return "Akses ditolak. Silakan hubungi administrator."
	case http.StatusNotFound:
		return "Endpoint tidak ditemukan."
	case http.StatusConflict:
		return "Data dengan NIK ini sudah terdaftar."
	case http.StatusInternalServerError:
		return "Terjadi kesalahan pada server. Silakan coba lagi nanti."
	}
	return defaultUserMessage
}

// Sign returns the base64 HMAC-SHA256 of timestamp keyed with password.
func Sign(timestamp, password string) string {
	mac := hmac.New(sha256.New, []byte(password))
	mac.Write([]byte(timestamp))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// Client submits prospects to {BaseURL}/api/external/loanprospects.
type Client struct {
	config Config
	client *http.Client
	logger *zap.Logger
	now    func() time.Time
}

// NewClient creates a Client. A nil logger disables logging.
func NewClient(config Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.ClientID == "" {
		config.ClientID = constants.DefaultClientID
	}
	if config.Timeout <= 0 {
		config.Timeout = constants.DefaultHTTPTimeout
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	return &Client{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
		logger: logger,
		now:    time.Now,
	}
}

// Submit sends payload to the API. In mock mode no request is made and a
// fresh prospect UUID is returned. Failures are *Error values.
func (c *Client) Submit(ctx context.Context, payload Payload) (*Response, error) {
	if c.config.Mock {
		resp := &Response{
			Message: mockMessage,
			Status:  http.StatusCreated,
			Data: &ProspectData{
				UUID:      uuid.NewString(),
				ChannelID: mockChannelID,
				Status:    mockStatus,
				FullName:  payload.FullName,
			},
		}
		c.logger.Info("submitted loan prospect to mock API",
			zap.String("op", "prospect.Submit"),
			zap.String("uuid", resp.Data.UUID),
			zap.String("product", payload.ProductShortName),
		)
		return resp, nil
	}

	if c.config.BaseURL == "" {
		return nil, localError("API base URL tidak dikonfigurasi")
	}
	if c.config.ClientPassword == "" {
		return nil, localError("Client password tidak dikonfigurasi")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, localError(fmt.Sprintf("failed to encode payload: %v", err))
	}

	endpoint := c.config.BaseURL + "/api/external/loanprospects"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, localError(fmt.Sprintf("failed to build request: %v", err))
	}
	timestamp := strconv.FormatInt(c.now().UnixMilli(), 10)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Access-Type", "external")
	req.Header.Set("X-TimeStamp", timestamp)
	req.Header.Set("X-Signature", Sign(timestamp, c.config.ClientPassword))
	req.Header.Set("Client-ID", c.config.ClientID)

	c.logger.Debug("submitting loan prospect",
		zap.String("op", "prospect.Submit"),
		zap.String("url", endpoint),
		zap.String("clientID", c.config.ClientID),
		zap.String("product", payload.ProductShortName),
	)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, localError(fmt.Sprintf("request failed: %v", err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, localError(fmt.Sprintf("failed to read response: %v", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &Error{}
		_ = json.Unmarshal(raw, apiErr)
		apiErr.Status = resp.StatusCode
		apiErr.UserMessage = UserMessageForStatus(resp.StatusCode, apiErr.Message)
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		c.logger.Warn("loan prospect API rejected submission",
			zap.String("op", "prospect.Submit"),
			zap.Int("status", resp.StatusCode),
			zap.String("message", apiErr.Message),
		)
		return nil, apiErr
	}

	var out Response
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, localError(fmt.Sprintf("failed to parse response: %v", err))
	}
	if out.Data == nil || out.Data.UUID == "" {
		return nil, localError("response carries no prospect uuid")
	}

	c.logger.Info("submitted loan prospect",
		zap.String("op", "prospect.Submit"),
		zap.String("uuid", out.Data.UUID),
		zap.Int("status", resp.StatusCode),
	)
	return &out, nil
}

func localError(message string) *Error {
	return &Error{
		Status:      http.StatusInternalServerError,
		Message:     message,
		UserMessage: defaultUserMessage,
	}
}
