package prospect

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/iwvelando/loan-leads/pkg/tracking"
)

func TestSign(t *testing.T) {
	mac := hmac.New(sha256.New, []byte("secret"))
	mac.Write([]byte("1700000000000"))
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	if got := Sign("1700000000000", "secret"); got != expected {
		t.Errorf("Sign() = %q, expected %q", got, expected)
	}
	if Sign("1700000000000", "other") == expected {
		t.Error("signature should depend on the password")
	}
}

func TestSubmitSignsRequest(t *testing.T) {
	fixed := time.UnixMilli(1700000000000)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/external/loanprospects" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		headers := map[string]string{
			"X-Access-Type": "external",
			"X-TimeStamp":   "1700000000000",
			"X-Signature":   Sign("1700000000000", "s3cret"),
			"Client-ID":     "1003",
		}
		for k, v := range headers {
			if got := r.Header.Get(k); got != v {
				t.Errorf("header %s = %q, expected %q", k, got, v)
			}
		}

		var payload Payload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(Response{Data: &ProspectData{UUID: "abc-123", FullName: payload.FullName}})
	}))
	defer server.Close()

	c := NewClient(Config{BaseURL: server.URL + "/", ClientPassword: "s3cret"}, nil)
	c.now = func() time.Time { return fixed }

	resp, err := c.Submit(context.Background(), Payload{FullName: "Siti Rahmawati"})
	if err != nil {
		t.Fatalf("Submit() error: %v", err)
	}
	if resp.Data.UUID != "abc-123" || resp.Data.FullName != "Siti Rahmawati" {
		t.Errorf("unexpected response %+v", resp.Data)
	}
}

func TestSubmitErrorMapping(t *testing.T) {
	tests := []struct {
		name         string
		status       int
		body         string
		expectedUser string
	}{
		{"Bad request with message", http.StatusBadRequest, `{"message":"NIK tidak valid"}`, "NIK tidak valid"},
		{"Bad request without message", http.StatusBadRequest, `{}`, "Data yang dikirim tidak valid. Silakan periksa kembali."},
		{"Unauthorized", http.StatusUnauthorized, `{}`, "Autentikasi gagal. Silakan coba lagi."},
		{"Forbidden", http.StatusForbidden, `{}`, "Akses ditolak. Silakan hubungi administrator."},
		{"Not found", http.StatusNotFound, `not json`, "Endpoint tidak ditemukan."},
		{"Conflict", http.StatusConflict, `{"message":"duplicate"}`, "Data dengan NIK ini sudah terdaftar."},
		{"Server error", http.StatusInternalServerError, `{}`, "Terjadi kesalahan pada server. Silakan coba lagi nanti."},
		{"Bad gateway", http.StatusBadGateway, `{}`, "Terjadi kesalahan saat mengirim pengajuan"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := NewClient(Config{BaseURL: server.URL, ClientPassword: "pw"}, nil).Submit(context.Background(), Payload{})
			var apiErr *Error
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected *Error, got %v", err)
			}
			if apiErr.Status != tt.status {
				t.Errorf("Status = %d, expected %d", apiErr.Status, tt.status)
			}
			if apiErr.UserMessage != tt.expectedUser {
				t.Errorf("UserMessage = %q, expected %q", apiErr.UserMessage, tt.expectedUser)
			}
		})
	}
}

func TestSubmitMock(t *testing.T) {
	c := NewClient(Config{Mock: true}, nil)
	resp, err := c.Submit(context.Background(), Payload{FullName: "Andi"})
	if err != nil {
		t.Fatalf("Submit() error: %v", err)
	}
	if resp.Data.Status != "PENDING" || resp.Data.ChannelID != 3508 || resp.Data.FullName != "Andi" {
		t.Errorf("unexpected mock data %+v", resp.Data)
	}
	if err := tracking.ValidateUUID(resp.Data.UUID); err != nil {
		t.Errorf("mock UUID %q is not trackable: %v", resp.Data.UUID, err)
	}

	other, _ := c.Submit(context.Background(), Payload{FullName: "Andi"})
	if other.Data.UUID == resp.Data.UUID {
		t.Error("mock UUIDs should be unique")
	}
}

func TestSubmitMisconfigured(t *testing.T) {
	tests := []struct {
		name   string
		config Config
	}{
		{"No base URL", Config{ClientPassword: "pw"}},
		{"No password", Config{BaseURL: "http://127.0.0.1:1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewClient(tt.config, nil).Submit(context.Background(), Payload{})
			var apiErr *Error
			if !errors.As(err, &apiErr) || apiErr.Status != http.StatusInternalServerError {
				t.Errorf("expected a local 500 error, got %v", err)
			}
		})
	}
}

func TestSubmitMissingUUID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"message":"ok"}`))
	}))
	defer server.Close()

	if _, err := NewClient(Config{BaseURL: server.URL, ClientPassword: "pw"}, nil).Submit(context.Background(), Payload{}); err == nil {
		t.Error("expected an error for a response without prospect uuid")
	}
}
