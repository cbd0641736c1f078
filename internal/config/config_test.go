package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 9090, cfg.Metrics.Port)
	assert.Equal(t, "none", cfg.Transport.Kind)
	assert.Equal(t, "demo", cfg.Bootstrap.Source)
	assert.Equal(t, 15*time.Minute, cfg.Kitchen.LateAfter)
	assert.Equal(t, 0.05, cfg.Billing.TaxRate)
}

func TestFileEnvAndFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
peer_id: kitchen-1
server:
  port: 8181
transport:
  kind: kafka
  kafka:
    brokers: kafka-1:9092,kafka-2:9092
bootstrap:
  source: fixture
  path: floor.yaml
kitchen:
  late_after: 20m
`), 0o644))
	t.Setenv("TABLESYNC_BILLING_TAX_RATE", "0.18")

	cfg, err := Load(path, func(v *viper.Viper) error {
		v.Set("server.port", 9000)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, "kitchen-1", cfg.PeerID)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "kafka", cfg.Transport.Kind)
	assert.Equal(t, "kafka-1:9092,kafka-2:9092", cfg.Transport.Kafka.Brokers)
	assert.Equal(t, "tablesync.deltas", cfg.Transport.Kafka.Topic)
	assert.Equal(t, "fixture", cfg.Bootstrap.Source)
	assert.Equal(t, "floor.yaml", cfg.Bootstrap.Path)
	assert.Equal(t, 20*time.Minute, cfg.Kitchen.LateAfter)
	assert.Equal(t, 0.18, cfg.Billing.TaxRate)
}

func TestInvalidConfig(t *testing.T) {
	t.Setenv("TABLESYNC_TRANSPORT_KIND", "carrier-pigeon")
	_, err := Load("", nil)
	assert.ErrorContains(t, err, "carrier-pigeon")

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	assert.Error(t, err)
}
