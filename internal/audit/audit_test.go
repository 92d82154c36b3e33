package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/weiawesome/wes-io-live/live-relay/pkg/log"
)

func TestLogTarget_WritesAuditEntry(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(log.Config{Level: "info", Output: &buf})
	ctx := log.WithLogger(context.Background(), logger)

	LogTarget(ctx, ActionTakeover, "conn-b", "conn-a", "broadcaster replaced")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, log.LogTypeAudit, entry[log.FieldLogType])
	assert.Equal(t, ActionTakeover, entry[FieldAction])
	assert.Equal(t, "conn-b", entry[log.FieldUserID])
	assert.Equal(t, "conn-a", entry[FieldTargetID])
}
