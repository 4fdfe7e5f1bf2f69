package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"github.com/mspacademy/labtrack/pkg/observability"
	"github.com/mspacademy/labtrack/pkg/storage"
)

const auditKeyPrefix = "audit:"

// AuditEvent is a security-relevant event record
type AuditEvent struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id,omitempty"`
	Action       string    `json:"action"`
	IPAddress    string    `json:"ip_address,omitempty"`
	UserAgent    string    `json:"user_agent,omitempty"`
	Status       string    `json:"status"`
	ErrorMessage string    `json:"error_message,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Audit action constants
const (
	ActionRegister          = "auth.register"
	ActionLoginSuccess      = "auth.login_success"
	ActionLoginFailure      = "auth.login_failure"
	ActionLogout            = "auth.logout"
	ActionSessionExpired    = "auth.session_expired"
	ActionCSRFInvalid       = "csrf.invalid"
	ActionRateLimitExceeded = "ratelimit.exceeded"
)

// Status constants
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
	StatusDenied  = "denied"
)

// AuditRecorder persists security events under audit:<id> with a retention
// TTL and mirrors them to the structured log.
type AuditRecorder struct {
	store     storage.Store
	logger    *observability.Logger
	retention time.Duration
	now       func() time.Time
}

// NewAuditRecorder creates a recorder. A zero retention selects 30 days.
func NewAuditRecorder(store storage.Store, logger *observability.Logger, retention time.Duration) *AuditRecorder {
	if retention <= 0 {
		retention = 30 * 24 * time.Hour
	}
	return &AuditRecorder{
		store:     store,
		logger:    logger,
		retention: retention,
		now:       time.Now,
	}
}

// Record persists and logs an event. Audit storage failures are logged but
// never fail the request that triggered the event.
func (ar *AuditRecorder) Record(ctx context.Context, event AuditEvent) {
	event.ID = NewID()
	event.CreatedAt = ar.now().UTC()

	entry := ar.logger.WithFields(map[string]interface{}{
		"action":  event.Action,
		"status":  event.Status,
		"user_id": event.UserID,
		"ip":      event.IPAddress,
	})
	if event.ErrorMessage != "" {
		entry = entry.WithField("reason", event.ErrorMessage)
	}
	if event.Status == StatusSuccess {
		entry.Info("security event")
	} else {
		entry.Warn("security event")
	}

	data, err := json.Marshal(event)
	if err != nil {
		ar.logger.WithError(err).Error("failed to marshal audit event")
		return
	}
	if err := ar.store.Put(ctx, auditKeyPrefix+event.ID, data, ar.retention); err != nil {
		ar.logger.WithError(err).Error("failed to persist audit event")
	}
}

// RecordRequest builds an event from an HTTP request and records it.
func (ar *AuditRecorder) RecordRequest(r *http.Request, action, status, userID string, cause error) {
	event := AuditEvent{
		UserID:    userID,
		Action:    action,
		IPAddress: ClientIP(r),
		UserAgent: r.UserAgent(),
		Status:    status,
	}
	if cause != nil {
		event.ErrorMessage = cause.Error()
	}
	ar.Record(r.Context(), event)
}

// List returns all retained audit events, newest first.
func (ar *AuditRecorder) List(ctx context.Context) ([]*AuditEvent, error) {
	keys, err := ar.store.List(ctx, auditKeyPrefix)
	if err != nil {
		return nil, err
	}

	events := make([]*AuditEvent, 0, len(keys))
	for _, key := range keys {
		data, err := ar.store.Get(ctx, key)
		if err != nil {
			continue
		}
		var event AuditEvent
		if err := json.Unmarshal(data, &event); err != nil {
			continue
		}
		events = append(events, &event)
	}

	sort.Slice(events, func(i, j int) bool {
		return events[i].CreatedAt.After(events[j].CreatedAt)
	})
	return events, nil
}

// ClientIP extracts the client address, honoring proxy headers.
func ClientIP(r *http.Request) string {
	// Check X-Forwarded-For header (if behind proxy)
	forwarded := r.Header.Get("X-Forwarded-For")
	if forwarded != "" {
		return forwarded
	}

	realIP := r.Header.Get("X-Real-IP")
	if realIP != "" {
		return realIP
	}

	return r.RemoteAddr
}
