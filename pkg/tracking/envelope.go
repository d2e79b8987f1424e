package tracking

// Response is the wire envelope of the fetch-status endpoint: either
// Success with Data, or an Error.
type Response struct {
	Success bool                 `json:"success"`
	Data    *ApplicationTracking `json:"data,omitempty"`
	Error   *Error               `json:"error,omitempty"`
}
