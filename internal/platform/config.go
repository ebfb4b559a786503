package platform

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// FlagsConfig holds all boolean or string flags for the app.
type FlagsConfig struct {
	// Headless disables the HTTP server when true.
	Headless bool
}

// ServiceConfig points at the transcript-analysis service.
type ServiceConfig struct {
	BaseURL string
	Timeout time.Duration
	// MaxUploadBytes caps a single transcript upload; the service enforces
	// the same limit, this one just fails fast.
	MaxUploadBytes int64
}

// AppConfig contains the configuration for the app.
type AppConfig struct {
	Flags      *FlagsConfig
	NatsCfg    *EmbeddedServerConfig
	HTTPSrvCfg *HTTPServerConfig
	ServiceCfg *ServiceConfig
}

// LoadAppConfig loads application configuration from the environment,
// reading a .env file first when one is present.
func LoadAppConfig() *AppConfig {
	_ = godotenv.Load()

	return &AppConfig{
		Flags:      defaultFlagsCfg(),
		NatsCfg:    defaultNatsCfg(),
		HTTPSrvCfg: defaultHTTPServerCfg(),
		ServiceCfg: defaultServiceCfg(),
	}
}

func defaultFlagsCfg() *FlagsConfig {
	return &FlagsConfig{
		Headless: envBool("CHABENCH_HEADLESS", false),
	}
}

func defaultHTTPServerCfg() *HTTPServerConfig {
	return &HTTPServerConfig{
		Port:         envInt("CHABENCH_PORT", 8080),
		ReadTimeout:  envDuration("CHABENCH_READ_TIMEOUT", -1),
		WriteTimeout: envDuration("CHABENCH_WRITE_TIMEOUT", -1),
		IdleTimeout:  envDuration("CHABENCH_IDLE_TIMEOUT", -1),
		EnableTLS:    envBool("CHABENCH_TLS", false),
		CertFile:     envStr("CHABENCH_TLS_CERT", "./local_certs/localhost+2.pem"),
		KeyFile:      envStr("CHABENCH_TLS_KEY", "./local_certs/localhost+2-key.pem"),
		CookieKey:    envStr("CHABENCH_COOKIE_KEY", "very-secret-key-change-me"),
	}
}

func defaultNatsCfg() *EmbeddedServerConfig {
	return &EmbeddedServerConfig{
		InProcess:     envBool("CHABENCH_NATS_IN_PROCESS", false),
		EnableLogging: true,
		JetStream:     true,
		StoreDir:      envStr("CHABENCH_STORE_DIR", "./store/js"),
	}
}

func defaultServiceCfg() *ServiceConfig {
	return &ServiceConfig{
		BaseURL:        envStr("CHABENCH_SERVICE_URL", "http://localhost:8000"),
		Timeout:        envDuration("CHABENCH_SERVICE_TIMEOUT", 6*time.Minute),
		MaxUploadBytes: envInt64("CHABENCH_MAX_UPLOAD_BYTES", 100<<20),
	}
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envInt64(key string, def int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return def
	}
	return n
}

func envDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
