package session

import (
	"fmt"
	"math"
)

// ReceiveMethod selects how a consumer pulls messages from its queue.
type ReceiveMethod string

const (
	// ReceiveBasicGet polls the queue with basic.get.
	ReceiveBasicGet ReceiveMethod = "basic_get"
	// ReceiveBasicConsume subscribes with basic.consume and reads pushed deliveries.
	ReceiveBasicConsume ReceiveMethod = "basic_consume"
)

// Recognized configuration keys.
const (
	KeyReceiveMethod    = "receive_method"
	KeyQosPrefetchSize  = "qos_prefetch_size"
	KeyQosPrefetchCount = "qos_prefetch_count"
	KeyQosGlobal        = "qos_global"
)

// Config is fixed when the context is constructed.
type Config struct {
	ReceiveMethod    ReceiveMethod
	QosPrefetchSize  int
	QosPrefetchCount int
	QosGlobal        bool
}

// DefaultConfig returns {basic_get, 0, 1, false}.
func DefaultConfig() Config {
	return Config{
		ReceiveMethod:    ReceiveBasicGet,
		QosPrefetchSize:  0,
		QosPrefetchCount: 1,
		QosGlobal:        false,
	}
}

// ParseConfig overlays the recognized keys of values onto DefaultConfig.
// Unknown keys are ignored; a recognized key with a value of the wrong type
// fails with ErrConfiguration.
func ParseConfig(values map[string]interface{}) (Config, error) {
	cfg := DefaultConfig()

	if v, ok := values[KeyReceiveMethod]; ok {
		switch m := v.(type) {
		case string:
			cfg.ReceiveMethod = ReceiveMethod(m)
		case ReceiveMethod:
			cfg.ReceiveMethod = m
		default:
			return Config{}, fmt.Errorf("%w: %s must be a string, got %T", ErrConfiguration, KeyReceiveMethod, v)
		}
	}
	if v, ok := values[KeyQosPrefetchSize]; ok {
		n, ok := intValue(v)
		if !ok {
			return Config{}, fmt.Errorf("%w: %s must be an integer, got %T", ErrConfiguration, KeyQosPrefetchSize, v)
		}
		cfg.QosPrefetchSize = n
	}
	if v, ok := values[KeyQosPrefetchCount]; ok {
		n, ok := intValue(v)
		if !ok {
			return Config{}, fmt.Errorf("%w: %s must be an integer, got %T", ErrConfiguration, KeyQosPrefetchCount, v)
		}
		cfg.QosPrefetchCount = n
	}
	if v, ok := values[KeyQosGlobal]; ok {
		b, ok := v.(bool)
		if !ok {
			return Config{}, fmt.Errorf("%w: %s must be a bool, got %T", ErrConfiguration, KeyQosGlobal, v)
		}
		cfg.QosGlobal = b
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that all config values are acceptable.
func (c Config) Validate() error {
	switch c.ReceiveMethod {
	case ReceiveBasicGet, ReceiveBasicConsume:
	default:
		return fmt.Errorf("%w: unknown receive method %q", ErrConfiguration, c.ReceiveMethod)
	}
	if c.QosPrefetchSize < 0 {
		return fmt.Errorf("%w: qos prefetch size must be >= 0, got %d", ErrConfiguration, c.QosPrefetchSize)
	}
	if c.QosPrefetchCount < 0 {
		return fmt.Errorf("%w: qos prefetch count must be >= 0, got %d", ErrConfiguration, c.QosPrefetchCount)
	}
	return nil
}

// Map renders the config with the recognized keys.
func (c Config) Map() map[string]interface{} {
	return map[string]interface{}{
		KeyReceiveMethod:    string(c.ReceiveMethod),
		KeyQosPrefetchSize:  c.QosPrefetchSize,
		KeyQosPrefetchCount: c.QosPrefetchCount,
		KeyQosGlobal:        c.QosGlobal,
	}
}

func intValue(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int8:
		return int(n), true
	case int16:
		return int(n), true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case uint8:
		return int(n), true
	case uint16:
		return int(n), true
	case uint32:
		return int(n), true
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int(n), true
	default:
		return 0, false
	}
}
