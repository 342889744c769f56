package config

import (
	"flag"
	"net"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultPort = 8000
	MinPort     = 80
	MaxPort     = 65535
)

type Config struct {
	Host string
	// Port is already clamped to [MinPort, MaxPort].
	Port int
	// DefaultModel is used when a request names no model.
	DefaultModel string
	HistorySize  int
	// CumulativeDelta makes structured stream events carry the whole reply
	// so far in delta instead of the increment.
	CumulativeDelta bool
	ShutdownTimeout time.Duration
	// Gradio
	Transport       string
	APIName         string
	FnIndex         int
	BackendProxyURL string
	// Logging
	LogLevel  string
	LogFormat string
	LogFile   string
	// A2A
	A2AEnabled bool
	A2APort    int
	A2AModel   string
	AgentName  string
	AgentDesc  string
}

func Load() *Config {
	cfg := &Config{}

	var port int
	flag.StringVar(&cfg.Host, "host", getEnv("HOST", "0.0.0.0"), "Listen host")
	flag.IntVar(&port, "port", PortFromEnv(os.Getenv("PORT")), "Listen port, clamped to [80, 65535]")
	flag.StringVar(&cfg.DefaultModel, "default-model", getEnv("DEFAULT_MODEL", "0"), "Model used when a request names none (built-in index, space URL or owner/name)")
	flag.IntVar(&cfg.HistorySize, "history-size", getEnvInt("HISTORY_SIZE", 20), "Prior turns sent to the backend")
	flag.BoolVar(&cfg.CumulativeDelta, "cumulative-delta", getEnvBool("CUMULATIVE_DELTA", false), "Send the cumulative reply as delta in structured stream events")
	flag.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout", getEnvDuration("SHUTDOWN_TIMEOUT", 30*time.Second), "Graceful shutdown deadline")

	flag.StringVar(&cfg.Transport, "transport", getEnv("GRADIO_TRANSPORT", "sse"), "Gradio transport for URL models: sse or ws")
	flag.StringVar(&cfg.APIName, "api-name", getEnv("GRADIO_API_NAME", "/chat"), "Gradio API name for URL models (sse transport)")
	flag.IntVar(&cfg.FnIndex, "fn-index", getEnvInt("GRADIO_FN_INDEX", 0), "Gradio fn_index for URL models (ws transport)")
	flag.StringVar(&cfg.BackendProxyURL, "backend-proxy-url", getEnv("BACKEND_PROXY_URL", ""), "HTTP/HTTPS proxy URL for Gradio requests (e.g. http://proxy:8080)")

	flag.StringVar(&cfg.LogLevel, "log-level", getEnv("LOG_LEVEL", "info"), "debug, info, warn or error")
	flag.StringVar(&cfg.LogFormat, "log-format", getEnv("LOG_FORMAT", "text"), "text or json")
	flag.StringVar(&cfg.LogFile, "log-file", getEnv("LOG_FILE", ""), "Rotating log file; empty logs to stderr")

	flag.BoolVar(&cfg.A2AEnabled, "a2a", getEnvBool("A2A_ENABLED", false), "Enable A2A server alongside the adapter")
	flag.IntVar(&cfg.A2APort, "a2a-port", getEnvInt("A2A_PORT", 8001), "A2A server listen port")
	flag.StringVar(&cfg.A2AModel, "a2a-model", getEnv("A2A_MODEL", "0"), "Model served over A2A")
	flag.StringVar(&cfg.AgentName, "agent-name", getEnv("AGENT_NAME", "gradio-agent"), "A2A AgentCard name")
	flag.StringVar(&cfg.AgentDesc, "agent-desc", getEnv("AGENT_DESC", "Gradio-hosted chat model exposed via A2A protocol"), "A2A AgentCard description")

	flag.Parse()
	cfg.Port = ClampPort(port)
	return cfg
}

// ListenAddr is the host:port the adapter binds.
func (c *Config) ListenAddr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// ClampPort limits port to [MinPort, MaxPort].
func ClampPort(port int) int {
	return max(MinPort, min(MaxPort, port))
}

// PortFromEnv parses a raw PORT value: leading whitespace is skipped and the
// leading integer is used, so "8080abc" is 8080. A value with no leading
// digits falls back to DefaultPort. The result is clamped.
func PortFromEnv(v string) int {
	n, err := leadingInt(v)
	if err != nil {
		n = DefaultPort
	}
	return ClampPort(n)
}

func leadingInt(v string) (int, error) {
	v = strings.TrimLeft(v, " \t\r\n")
	end := 0
	if end < len(v) && (v[end] == '+' || v[end] == '-') {
		end++
	}
	for end < len(v) && v[end] >= '0' && v[end] <= '9' {
		end++
	}
	return strconv.Atoi(v[:end])
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	switch v {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(key))
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
