package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	assert.Equal(t, Config{
		ReceiveMethod:    ReceiveBasicGet,
		QosPrefetchSize:  0,
		QosPrefetchCount: 1,
		QosGlobal:        false,
	}, DefaultConfig())
}

func TestParseConfigOverlaysRecognizedKeys(t *testing.T) {
	cfg, err := ParseConfig(map[string]interface{}{
		"receive_method":     "basic_consume",
		"qos_prefetch_count": float64(20),
		"qos_global":         true,
		"unrelated":          "ignored",
	})
	require.NoError(t, err)

	assert.Equal(t, ReceiveBasicConsume, cfg.ReceiveMethod)
	assert.Equal(t, 0, cfg.QosPrefetchSize)
	assert.Equal(t, 20, cfg.QosPrefetchCount)
	assert.True(t, cfg.QosGlobal)
}

func TestParseConfigNilMap(t *testing.T) {
	cfg, err := ParseConfig(nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestParseConfigRejectsBadValues(t *testing.T) {
	tests := map[string]map[string]interface{}{
		"method type":    {"receive_method": 1},
		"unknown method": {"receive_method": "basic_poll"},
		"size type":      {"qos_prefetch_size": "big"},
		"fractional":     {"qos_prefetch_count": 1.5},
		"negative count": {"qos_prefetch_count": -1},
		"global type":    {"qos_global": "yes"},
	}
	for name, values := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseConfig(values)
			assert.ErrorIs(t, err, ErrConfiguration)
		})
	}
}

func TestConfigMapParsesBack(t *testing.T) {
	cfg := Config{ReceiveMethod: ReceiveBasicConsume, QosPrefetchSize: 0, QosPrefetchCount: 7, QosGlobal: true}
	parsed, err := ParseConfig(cfg.Map())
	require.NoError(t, err)
	assert.Equal(t, cfg, parsed)
}
