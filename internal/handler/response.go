package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"hedgeback/internal/apperr"
	"hedgeback/internal/service"
)

type apiResponse struct {
	Code    int            `json:"code"`
	Message string         `json:"message"`
	Data    any            `json:"data,omitempty"`
	Meta    map[string]any `json:"meta,omitempty"`
}

func Ok(c *gin.Context, data any, meta map[string]any) {
	c.JSON(http.StatusOK, apiResponse{
		Code:    0,
		Message: "ok",
		Data:    data,
		Meta:    meta,
	})
}

func Error(c *gin.Context, status int, message string, meta map[string]any) {
	c.JSON(status, apiResponse{
		Code:    status,
		Message: message,
		Meta:    meta,
	})
}

// fail maps application error kinds onto HTTP statuses.
func fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		status = http.StatusBadRequest
	case apperr.KindNotFound:
		status = http.StatusNotFound
	case apperr.KindConflict:
		status = http.StatusConflict
	case apperr.KindFailedDependency:
		status = http.StatusFailedDependency
	case apperr.KindUnavailable:
		status = http.StatusBadGateway
	}
	Error(c, status, err.Error(), nil)
}

func intQuery(c *gin.Context, name string, fallback int) int {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

// dateQuery parses a required yyyy-mm-dd query parameter.
func dateQuery(c *gin.Context, name string) (time.Time, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return time.Time{}, apperr.Validation("query parameter %s is required", name)
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, apperr.Validation("query parameter %s must be yyyy-mm-dd, got %q", name, raw)
	}
	return t.UTC(), nil
}

func uuidParam(c *gin.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, apperr.Validation("path parameter %s must be a uuid", name)
	}
	return id, nil
}

// correlationID propagates the caller's X-Correlation-ID or mints one.
func correlationID(c *gin.Context) string {
	if id := strings.TrimSpace(c.GetHeader("X-Correlation-ID")); id != "" {
		return id
	}
	return uuid.New().String()
}

func userIDHeader(c *gin.Context) *string {
	if id := strings.TrimSpace(c.GetHeader("X-User-ID")); id != "" {
		return &id
	}
	return nil
}

// auditRecorder appends audit events after the audited operation has
// committed. Business success wins: a recording failure is logged and
// swallowed, never turned into a request failure.
type auditRecorder struct {
	Audit  *service.AuditService
	Logger *zap.Logger
}

// NewAuditRecorder builds the recorder shared by the write handlers.
func NewAuditRecorder(audit *service.AuditService, logger *zap.Logger) *auditRecorder {
	return &auditRecorder{Audit: audit, Logger: logger}
}

func (a *auditRecorder) record(c *gin.Context, eventType, objectType, objectID string, payload any) {
	if a == nil || a.Audit == nil {
		return
	}
	_, err := a.Audit.Record(c.Request.Context(), service.RecordAuditParams{
		EventID:       uuid.New(),
		EventType:     eventType,
		ObjectType:    objectType,
		ObjectID:      objectID,
		UserID:        userIDHeader(c),
		Payload:       payload,
		CorrelationID: correlationID(c),
	})
	if err != nil && a.Logger != nil {
		a.Logger.Warn("audit record failed",
			zap.String("event_type", eventType),
			zap.String("object_id", objectID),
			zap.Error(err))
	}
}
