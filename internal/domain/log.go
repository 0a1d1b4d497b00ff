package domain

import "time"

// Login log error codes. Recorded for operators; the HTTP response never
// distinguishes among them.
const (
	LoginErrNoUser   = "NOUSER"
	LoginErrBadPwd   = "BADPWD"
	LoginErrInactive = "INACTIVE"
)

// LoginLogEntry is one append-only login attempt record.
// LogID is unique and time-orderable, at most 20 characters.
type LoginLogEntry struct {
	LogID         string    `json:"log_id"`
	UserID        string    `json:"user_id,omitempty"`
	SourceIP      string    `json:"source_ip,omitempty"`
	ConnectMethod string    `json:"connect_method,omitempty"`
	ErrorFlag     bool      `json:"error_flag"`
	ErrorCode     string    `json:"error_code,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// APIUsageLogEntry records one handled HTTP request
type APIUsageLogEntry struct {
	LogID          string    `json:"log_id"`
	UserID         string    `json:"user_id,omitempty"`
	Endpoint       string    `json:"endpoint"`
	Method         string    `json:"method"`
	SourceIP       string    `json:"source_ip,omitempty"`
	ResponseStatus int       `json:"response_status"`
	ResponseTimeMS int64     `json:"response_time_ms"`
	CreatedAt      time.Time `json:"created_at"`
}
