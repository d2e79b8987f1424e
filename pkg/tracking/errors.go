package tracking

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
)

// ErrorCode classifies a failed status fetch.
type ErrorCode string

const (
	CodeNotFound     ErrorCode = "NOT_FOUND"
	CodeInvalidUUID  ErrorCode = "INVALID_UUID"
	CodeServerError  ErrorCode = "SERVER_ERROR"
	CodeNetworkError ErrorCode = "NETWORK_ERROR"
)

var userMessages = map[ErrorCode]string{
	CodeNotFound:     "Pengajuan dengan nomor referensi tersebut tidak ditemukan. Silakan periksa kembali nomor referensi Anda.",
	CodeInvalidUUID:  "Format nomor referensi tidak valid. Silakan periksa kembali.",
	CodeServerError:  "Terjadi kesalahan saat mengambil data status. Silakan coba lagi nanti.",
	CodeNetworkError: "Terjadi kesalahan saat mengambil data. Silakan coba lagi.",
}

var httpStatuses = map[ErrorCode]int{
	CodeNotFound:     http.StatusNotFound,
	CodeInvalidUUID:  http.StatusBadRequest,
	CodeServerError:  http.StatusInternalServerError,
	CodeNetworkError: 0,
}

// Error is a classified tracking failure. Message is for diagnostics,
// UserMessage is what gets shown.
type Error struct {
	Code        ErrorCode `json:"code"`
	Message     string    `json:"message"`
	UserMessage string    `json:"userMessage"`
	HTTPStatus  int       `json:"-"`
}

// NewError builds an Error with the default user message and HTTP status for
// code.
func NewError(code ErrorCode, message string) *Error {
	return &Error{
		Code:        code,
		Message:     message,
		UserMessage: DefaultUserMessage(code),
		HTTPStatus:  httpStatuses[code],
	}
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Retryable reports whether the failure is transient. Bad references are
// not retried; anything unclassified is treated as transient.
func (e *Error) Retryable() bool {
	switch e.Code {
	case CodeNotFound, CodeInvalidUUID:
		return false
	}
	return true
}

// DefaultUserMessage returns the Indonesian message for code.
func DefaultUserMessage(code ErrorCode) string {
	if msg, ok := userMessages[code]; ok {
		return msg
	}
	return userMessages[CodeNetworkError]
}

// AsError returns err as a tracking Error, classifying unknown failures as
// NETWORK_ERROR. It returns nil for a nil err.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var te *Error
	if errors.As(err, &te) {
		return te
	}
	return NewError(CodeNetworkError, err.Error())
}

// Reference number validation failures.
var (
	ErrEmptyReference   = errors.New("Nomor referensi tidak boleh kosong")
	ErrInvalidReference = errors.New("Format nomor referensi tidak valid. Format yang benar: xxxx-xxxx-xxxx")
)

var referencePattern = regexp.MustCompile(`(?i)^[a-f0-9-]{36}$`)

// ValidateUUID performs the syntactic check on a reference number: non-empty
// after trimming and 36 hex digits or hyphens. It says nothing about whether
// the application exists.
func ValidateUUID(uuid string) error {
	trimmed := strings.TrimSpace(uuid)
	if trimmed == "" {
		return ErrEmptyReference
	}
	if !referencePattern.MatchString(trimmed) {
		return ErrInvalidReference
	}
	return nil
}
