package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	pkgconfig "github.com/weiawesome/wes-io-live/live-relay/pkg/config"
	"github.com/weiawesome/wes-io-live/live-relay/pkg/pubsub"
)

func TestFromViper_Defaults(t *testing.T) {
	cfg, err := FromViper(viper.New())
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.WebSocket.PingInterval)
	assert.Equal(t, 60*time.Second, cfg.WebSocket.PongWait)
	assert.Equal(t, 300, cfg.Chat.HistorySize)
	assert.Equal(t, 500, cfg.Chat.MaxContent)
	assert.Equal(t, 50, cfg.Chat.MaxDisplayName)
	assert.Equal(t, "/stream/live", cfg.Live.StreamURL)
	assert.Equal(t, pubsub.DriverNone, cfg.Export.Driver)
	assert.Equal(t, "admin", cfg.Auth.AdminRole)
	require.Len(t, cfg.WebRTC.ICEServers, 1)
	assert.Equal(t, []string{"stun:stun.l.google.com:19302"}, cfg.WebRTC.ICEServers[0].URLs)
	assert.Equal(t, "live-relay", cfg.Log.ServiceName)
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	yaml := `
server:
  port: 9000
chat:
  history_size: 10
websocket:
  ping_interval: 5s
  pong_wait: 4s
webrtc:
  ice_servers:
    - urls: ["turn:turn.example.com:3478"]
      username: relay
      credential: secret
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o600))
	t.Setenv("AUTH_JWT_SECRET", "from-env")

	v, err := pkgconfig.Load(dir, "config")
	require.NoError(t, err)
	cfg, err := FromViper(v)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 10, cfg.Chat.HistorySize)
	assert.Equal(t, "from-env", cfg.Auth.JWTSecret)
	// ping must stay below pong wait
	assert.Less(t, cfg.WebSocket.PingInterval, cfg.WebSocket.PongWait)
	require.Len(t, cfg.WebRTC.ICEServers, 1)
	assert.Equal(t, "relay", cfg.WebRTC.ICEServers[0].Username)
}
