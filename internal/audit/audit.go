package audit

import (
	"context"

	"github.com/weiawesome/wes-io-live/live-relay/pkg/log"
)

// Audit actions for the relay.
const (
	ActionStreamControl   = "live.control"
	ActionChatClear       = "chat.clear"
	ActionBroadcasterJoin = "signal.admin_join"
	ActionTakeover        = "signal.admin_takeover"
)

// Field constants for audit entries.
const (
	FieldAction   = "action"
	FieldTargetID = "target_id"
	FieldDetail   = "detail"
)

// Log emits a structured audit log entry via the context logger.
func Log(ctx context.Context, action string, actorID string, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(log.FieldUserID, actorID).
		Msg(msg)
}

// LogWithDetail emits an audit log with extra detail field.
func LogWithDetail(ctx context.Context, action string, actorID string, detail string, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(log.FieldUserID, actorID).
		Str(FieldDetail, detail).
		Msg(msg)
}

// LogTarget emits an audit log naming the affected entity.
func LogTarget(ctx context.Context, action string, actorID string, targetID string, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(log.FieldUserID, actorID).
		Str(FieldTargetID, targetID).
		Msg(msg)
}
