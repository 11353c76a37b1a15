// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"

	"github.com/dalemusser/coursedesk/internal/app/store/audit"
	"go.uber.org/zap"
)

// Modes for Config.Mode.
const (
	ModeAll = "all" // store + zap
	ModeDB  = "db"  // store only
	ModeLog = "log" // zap only
	ModeOff = "off"
)

// Config holds audit logging configuration.
type Config struct {
	Mode string
}

// Logger records integrity and import events to the audit store and/or zap.
type Logger struct {
	store  *audit.Store
	zapLog *zap.Logger
	config Config
}

// New creates a new audit Logger.
func New(store *audit.Store, zapLog *zap.Logger, config Config) *Logger {
	if config.Mode == "" {
		config.Mode = ModeAll
	}
	return &Logger{
		store:  store,
		zapLog: zapLog,
		config: config,
	}
}

func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", event.Category),
		zap.String("event_type", event.EventType),
		zap.Bool("success", event.Success),
	}
	if event.Entity != "" {
		fields = append(fields, zap.String("entity", event.Entity))
	}
	if event.EntityID != "" {
		fields = append(fields, zap.String("entity_id", event.EntityID))
	}
	if event.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", event.FailureReason))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	if event.Success {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}

// Log records an event according to the configured mode.
// A nil Logger is a no-op so callers and tests can omit auditing.
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil || l.config.Mode == ModeOff {
		return
	}
	if l.config.Mode == ModeAll || l.config.Mode == ModeLog {
		l.logToZap(event)
	}
	if (l.config.Mode == ModeAll || l.config.Mode == ModeDB) && l.store != nil {
		if err := l.store.Log(ctx, event); err != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event_type", event.EventType),
			)
		}
	}
}

// Integrity records the outcome of a cascade, merge or sweep. A non-nil err
// marks the event failed.
func (l *Logger) Integrity(ctx context.Context, eventType, entity, entityID string, details map[string]string, err error) {
	ev := audit.Event{
		Category:  audit.CategoryIntegrity,
		EventType: eventType,
		Entity:    entity,
		EntityID:  entityID,
		Success:   err == nil,
		Details:   details,
	}
	if err != nil {
		ev.FailureReason = err.Error()
	}
	l.Log(ctx, ev)
}

// Import records a spreadsheet import.
func (l *Logger) Import(ctx context.Context, filename, courseID string, details map[string]string, err error) {
	if details == nil {
		details = map[string]string{}
	}
	details["filename"] = filename
	ev := audit.Event{
		Category:  audit.CategoryImport,
		EventType: audit.EventScheduleImported,
		Entity:    "courses",
		EntityID:  courseID,
		Success:   err == nil,
		Details:   details,
	}
	if err != nil {
		ev.FailureReason = err.Error()
	}
	l.Log(ctx, ev)
}
