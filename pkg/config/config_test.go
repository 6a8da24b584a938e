package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
listen: ":9090"
log:
  level: debug
  format: json
sse:
  eventType: update
  retry: 3000
webhook:
  source: urn:acceptevents:test
  allowedHosts: [hooks.example.com]
  timeout: 5s
websocket:
  subprotocols: [events.v1]
mqtt:
  brokerUrl: tcp://localhost:1883
  clientId: acceptevents-test
  publishTimeout: 2s
  topicPrefix: events/
  qos: 1
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadFromFile_YAML(t *testing.T) {
	cfg, err := LoadFromFile(writeFile(t, "server.yaml", sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Listen)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)

	require.NotNil(t, cfg.SSE)
	assert.Equal(t, "update", cfg.SSE.EventType)
	assert.Equal(t, 3000, cfg.SSE.Retry)

	require.NotNil(t, cfg.Webhook)
	assert.Equal(t, "urn:acceptevents:test", cfg.Webhook.Source)
	assert.Equal(t, []string{"hooks.example.com"}, cfg.Webhook.AllowedHosts)
	assert.Equal(t, 5*time.Second, cfg.Webhook.Timeout)

	require.NotNil(t, cfg.WebSocket)
	assert.Equal(t, []string{"events.v1"}, cfg.WebSocket.Subprotocols)

	require.NotNil(t, cfg.MQTT)
	assert.Equal(t, "tcp://localhost:1883", cfg.MQTT.Broker.BrokerURL)
	assert.Equal(t, "acceptevents-test", cfg.MQTT.Broker.ClientID)
	assert.Equal(t, 2*time.Second, cfg.MQTT.Broker.PublishTimeout)
	assert.Equal(t, "events/", cfg.MQTT.Protocol.TopicPrefix)
	assert.Equal(t, byte(1), cfg.MQTT.Protocol.QoS)

	assert.Equal(t, []string{"sse", "webhook", "websocket", "mqtt"}, cfg.Protocols())
}

func TestLoadFromFile_JSON(t *testing.T) {
	path := writeFile(t, "server.json", `{
		"log": {"level": "warn"},
		"webhook": {"source": "urn:json", "timeout": "1500ms"}
	}`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, DefaultListen, cfg.Listen, "missing listen keeps the default")
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Nil(t, cfg.SSE)
	require.NotNil(t, cfg.Webhook)
	assert.Equal(t, 1500*time.Millisecond, cfg.Webhook.Timeout)
	assert.Equal(t, []string{"webhook"}, cfg.Protocols())
}

func TestLoadFromFile_Errors(t *testing.T) {
	tests := []struct {
		name    string
		path    func(t *testing.T) string
		wantErr error
	}{
		{
			name:    "missing file",
			path:    func(t *testing.T) string { return filepath.Join(t.TempDir(), "nope.yaml") },
			wantErr: ErrFileNotFound,
		},
		{
			name:    "empty file",
			path:    func(t *testing.T) string { return writeFile(t, "empty.yaml", "") },
			wantErr: ErrEmptyFile,
		},
		{
			name:    "bad yaml",
			path:    func(t *testing.T) string { return writeFile(t, "bad.yml", "sse: [unclosed") },
			wantErr: ErrInvalidYAML,
		},
		{
			name:    "bad json",
			path:    func(t *testing.T) string { return writeFile(t, "bad.json", `{"sse": `) },
			wantErr: ErrInvalidJSON,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromFile(tt.path(t))
			require.ErrorIs(t, err, tt.wantErr)
		})
	}

	t.Run("directory", func(t *testing.T) {
		_, err := LoadFromFile(t.TempDir())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "directory")
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *ServerConfig)
		field  string
	}{
		{"empty listen", func(c *ServerConfig) { c.Listen = " " }, "listen"},
		{"unknown level", func(c *ServerConfig) { c.Log.Level = "loud" }, "log.level"},
		{"unknown format", func(c *ServerConfig) { c.Log.Format = "xml" }, "log.format"},
		{"negative retry", func(c *ServerConfig) { c.SSE.Retry = -1 }, "sse.retry"},
		{"webhook without source", func(c *ServerConfig) { c.Webhook.Source = "" }, "webhook.source"},
		{"negative timeout", func(c *ServerConfig) { c.Webhook.Timeout = -time.Second }, "webhook.timeout"},
		{"mqtt without broker", func(c *ServerConfig) { c.MQTT = &MQTTConfig{} }, "mqtt.brokerUrl"},
		{"mqtt bad qos", func(c *ServerConfig) {
			c.MQTT = &MQTTConfig{}
			c.MQTT.Broker.BrokerURL = "tcp://localhost:1883"
			c.MQTT.Protocol.QoS = 3
		}, "mqtt.qos"},
		{"no protocols", func(c *ServerConfig) {
			c.SSE, c.Webhook, c.WebSocket = nil, nil, nil
		}, "protocols"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
		})
	}

	require.NoError(t, Default().Validate())
}

func TestToYAML_RoundTrip(t *testing.T) {
	cfg, err := ParseYAML([]byte(sampleYAML))
	require.NoError(t, err)

	data, err := ToYAML(cfg)
	require.NoError(t, err)

	again, err := ParseYAML(data)
	require.NoError(t, err)
	assert.Equal(t, cfg, again)

	_, err = ToYAML(nil)
	assert.Error(t, err)
}
