package obs

import "time"

type Config struct {
	ServiceName        string
	ServiceVersion     string
	Environment        string
	OTLPEndpoint       string
	OTLPInsecure       bool
	OTLPTimeout        time.Duration
	TracingSampleRatio float64
	MetricsEnabled     bool
	LogLevel           string
	LogPretty          bool
	LogRedactPII       bool
}

func DefaultConfig() Config {
	return Config{
		ServiceName:        "kuduq-backend",
		ServiceVersion:     "dev",
		Environment:        "development",
		OTLPTimeout:        30 * time.Second,
		TracingSampleRatio: 1.0,
		MetricsEnabled:     true,
		LogLevel:           "info",
		LogRedactPII:       true,
	}
}

func (c Config) Validate() error {
	if c.ServiceName == "" {
		return ErrInvalidServiceName
	}
	if c.TracingSampleRatio < 0 || c.TracingSampleRatio > 1 {
		return ErrInvalidSampleRatio
	}
	return nil
}
