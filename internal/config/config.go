package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hamed0406/airqmon/internal/domain"
)

type Config struct {
	APIAddr         string // query API bind address
	APIRateLimit    int    // requests per minute per caller IP, 0 disables
	LogDir          string // logs directory

	DatabaseURL string // empty means in-memory store

	Host        string   // default device host[:port]
	Password    string   // shared decryption secret
	SensorPaths []string // from AIRQ_SENSORS, comma-separated
	SensorsFile string   // optional YAML endpoint list
	Scheme      string   // http or https (devices default to https)
	InsecureTLS bool     // accept self-signed device certificates

	PollInterval        time.Duration
	FetchTimeout        time.Duration
	StoreTimeout        time.Duration
	HealthThreshold     int
	AlertCooldown       time.Duration
	MinConsecutivePolls int
	MaxConcurrentPolls  int

	TelegramBotToken string
	TelegramChatID   string
	SlackWebhook     string
}

func FromEnv() Config {
	addr := os.Getenv("API_ADDR")
	if addr == "" {
		addr = "127.0.0.1:8080"
	}

	logDir := os.Getenv("LOG_DIR")
	if logDir == "" {
		logDir = "logs"
	}

	scheme := strings.TrimSpace(os.Getenv("AIRQ_SCHEME"))
	if scheme == "" {
		scheme = "https"
	}

	var paths []string
	for _, p := range strings.Split(os.Getenv("AIRQ_SENSORS"), ",") {
		if p = strings.TrimSpace(p); p != "" {
			paths = append(paths, p)
		}
	}

	pollInterval := 1500 * time.Millisecond
	if v := os.Getenv("POLL_INTERVAL_SECONDS"); v != "" {
		if s, err := strconv.ParseFloat(v, 64); err == nil && s > 0 {
			pollInterval = time.Duration(s * float64(time.Second))
		}
	}

	fetchTimeout := 3 * time.Second
	if v := os.Getenv("FETCH_TIMEOUT_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			fetchTimeout = time.Duration(ms) * time.Millisecond
		}
	}

	storeTimeout := 5 * time.Second
	if v := os.Getenv("STORE_TIMEOUT_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			storeTimeout = time.Duration(ms) * time.Millisecond
		}
	}

	threshold := 600
	if v := os.Getenv("HEALTH_ALERT_THRESHOLD"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			threshold = n
		}
	}

	cooldown := 30 * time.Minute
	if v := os.Getenv("ALERT_COOLDOWN_MINUTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cooldown = time.Duration(n) * time.Minute
		}
	}

	minConsecutive := 10
	if v := os.Getenv("MIN_CONSECUTIVE_POLLS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			minConsecutive = n
		}
	}

	maxConcurrent := 8
	if v := os.Getenv("MAX_CONCURRENT_POLLS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			maxConcurrent = n
		}
	}

	rateLimit := 240
	if v := os.Getenv("API_RATE_LIMIT_PER_MIN"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			rateLimit = n
		}
	}

	return Config{
		APIAddr:             addr,
		APIRateLimit:        rateLimit,
		LogDir:              logDir,
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		Host:                strings.TrimSpace(os.Getenv("AIRQ_HOST")),
		Password:            strings.TrimSpace(os.Getenv("AIRQ_PASSWORD")),
		SensorPaths:         paths,
		SensorsFile:         os.Getenv("SENSORS_FILE"),
		Scheme:              scheme,
		InsecureTLS:         os.Getenv("INSECURE_TLS") == "true",
		PollInterval:        pollInterval,
		FetchTimeout:        fetchTimeout,
		StoreTimeout:        storeTimeout,
		HealthThreshold:     threshold,
		AlertCooldown:       cooldown,
		MinConsecutivePolls: minConsecutive,
		MaxConcurrentPolls:  maxConcurrent,
		TelegramBotToken:    os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramChatID:      os.Getenv("TELEGRAM_CHAT_ID"),
		SlackWebhook:        os.Getenv("SLACK_WEBHOOK"),
	}
}

type sensorsFile struct {
	Sensors []struct {
		Host   string `yaml:"host"`
		Path   string `yaml:"path"`
		Secret string `yaml:"secret"`
	} `yaml:"sensors"`
}

// Endpoints resolves the configured sensor list: AIRQ_SENSORS entries on the
// default host plus entries from the optional YAML file. File entries fall
// back to AIRQ_HOST and AIRQ_PASSWORD when host or secret are omitted.
func (c Config) Endpoints() ([]domain.SensorEndpoint, error) {
	var out []domain.SensorEndpoint

	for _, p := range c.SensorPaths {
		out = append(out, domain.SensorEndpoint{
			Host:   c.Host,
			Path:   domain.SensorPath(normalizePath(p)),
			Secret: c.Password,
		})
	}

	if c.SensorsFile != "" {
		raw, err := os.ReadFile(c.SensorsFile)
		if err != nil {
			return nil, fmt.Errorf("read sensors file: %w", err)
		}
		var f sensorsFile
		if err := yaml.Unmarshal(raw, &f); err != nil {
			return nil, fmt.Errorf("parse sensors file: %w", err)
		}
		for _, s := range f.Sensors {
			ep := domain.SensorEndpoint{
				Host:   strings.TrimSpace(s.Host),
				Path:   domain.SensorPath(normalizePath(s.Path)),
				Secret: s.Secret,
			}
			if ep.Host == "" {
				ep.Host = c.Host
			}
			if ep.Secret == "" {
				ep.Secret = c.Password
			}
			out = append(out, ep)
		}
	}

	return out, nil
}

// Validate is the only fatal configuration path: it must pass before the
// first tick or the process may not start.
func (c Config) Validate() error {
	eps, err := c.Endpoints()
	if err != nil {
		return err
	}
	if len(eps) == 0 {
		return fmt.Errorf("no sensors configured (set AIRQ_SENSORS or SENSORS_FILE)")
	}
	for _, ep := range eps {
		if ep.Host == "" {
			return fmt.Errorf("sensor %q has no host (set AIRQ_HOST)", ep.Path)
		}
		if ep.Secret == "" {
			return fmt.Errorf("sensor %q has no secret (set AIRQ_PASSWORD)", ep.Path)
		}
		if ep.Path == "" || ep.Path == "/" {
			return fmt.Errorf("sensor on host %q has an empty path", ep.Host)
		}
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %s", c.PollInterval)
	}
	if c.HealthThreshold < 0 || c.HealthThreshold > 1000 {
		return fmt.Errorf("health threshold must be within 0-1000, got %d", c.HealthThreshold)
	}
	if c.Scheme != "http" && c.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got %q", c.Scheme)
	}
	return nil
}

func normalizePath(p string) string {
	p = strings.TrimSpace(p)
	if p != "" && !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return strings.TrimSuffix(p, "/")
}
