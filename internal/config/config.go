package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. AROGYA_DB_HOST.
const EnvPrefix = "AROGYA"

// Config holds the configuration for the application.
type Config struct {
	Environment   string `mapstructure:"environment"`
	DevModeBypass bool   `mapstructure:"dev_mode_bypass"`
	Log           struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"log"`
	Server struct {
		Addr string `mapstructure:"addr"`
	} `mapstructure:"server"`
	DB struct {
		Host     string `mapstructure:"host"`
		Port     int    `mapstructure:"port"`
		User     string `mapstructure:"user"`
		Password string `mapstructure:"password"`
		Name     string `mapstructure:"name"`
		SSLMode  string `mapstructure:"sslmode"`
	} `mapstructure:"db"`
	Gemini struct {
		APIKey      string  `mapstructure:"api_key"`
		Model       string  `mapstructure:"model"`
		Temperature float32 `mapstructure:"temperature"`
	} `mapstructure:"gemini"`
	Forecaster struct {
		// URL of the forecasting sidecar. Empty selects the local seasonal forecaster.
		URL         string `mapstructure:"url"`
		HorizonDays int    `mapstructure:"horizon_days"`
		HistoryDays int    `mapstructure:"history_days"`
	} `mapstructure:"forecaster"`
	Workflow  WorkflowConfig `mapstructure:"workflow"`
	Scheduler struct {
		Enabled  bool          `mapstructure:"enabled"`
		Interval time.Duration `mapstructure:"interval"`
		Scenario string        `mapstructure:"scenario"`
	} `mapstructure:"scheduler"`
	Hospital struct {
		Name string `mapstructure:"name"`
		City string `mapstructure:"city"`
	} `mapstructure:"hospital"`
	Auth struct {
		OktaDomain   string `mapstructure:"okta_domain"`
		ClientID     string `mapstructure:"client_id"`
		ClientSecret string `mapstructure:"client_secret"`
		RedirectURL  string `mapstructure:"redirect_url"`
		// SwaggerClientID is a public PKCE client used by the docs page.
		SwaggerClientID string   `mapstructure:"swagger_client_id"`
		AllowedDomains  []string `mapstructure:"allowed_domains"`
	} `mapstructure:"auth"`
	TLS struct {
		Enable    bool     `mapstructure:"enable"`
		CertFile  string   `mapstructure:"cert_file"`
		KeyFile   string   `mapstructure:"key_file"`
		Hostnames []string `mapstructure:"hostnames"`
	} `mapstructure:"tls"`
}

// WorkflowConfig tunes the surge workflow.
type WorkflowConfig struct {
	CallTimeout          time.Duration `mapstructure:"call_timeout"`
	RetryAttempts        int           `mapstructure:"retry_attempts"`
	RetryInitialInterval time.Duration `mapstructure:"retry_initial_interval"`
	RetryMaxInterval     time.Duration `mapstructure:"retry_max_interval"`
	RunTimeout           time.Duration `mapstructure:"run_timeout"`
	AgreementThreshold   float64       `mapstructure:"agreement_threshold"`
	AgreementBonus       int           `mapstructure:"agreement_bonus"`
	ConfidenceCap        int           `mapstructure:"confidence_cap"`
	FatigueThreshold     int           `mapstructure:"fatigue_threshold"`
	PatientsPerStaff     int           `mapstructure:"patients_per_staff"`
	RatioDepartments     []string      `mapstructure:"ratio_departments"`
	DispatchConcurrency  int           `mapstructure:"dispatch_concurrency"`
}

var defaults = map[string]any{
	"environment":                     "development",
	"dev_mode_bypass":                 false,
	"log.level":                       "info",
	"log.format":                      "text",
	"server.addr":                     ":8080",
	"db.host":                         "localhost",
	"db.port":                         5432,
	"db.user":                         "arogya",
	"db.password":                     "",
	"db.name":                         "arogya",
	"db.sslmode":                      "disable",
	"gemini.api_key":                  "",
	"gemini.model":                    "gemini-2.0-flash-lite",
	"gemini.temperature":              0.3,
	"forecaster.url":                  "",
	"forecaster.horizon_days":         2,
	"forecaster.history_days":         30,
	"workflow.call_timeout":           "8s",
	"workflow.retry_attempts":         3,
	"workflow.retry_initial_interval": "500ms",
	"workflow.retry_max_interval":     "4s",
	"workflow.run_timeout":            "2m",
	"workflow.agreement_threshold":    10,
	"workflow.agreement_bonus":        15,
	"workflow.confidence_cap":         95,
	"workflow.fatigue_threshold":      70,
	"workflow.patients_per_staff":     4,
	"workflow.ratio_departments":      []string{"ER", "Emergency"},
	"workflow.dispatch_concurrency":   3,
	"scheduler.enabled":               false,
	"scheduler.interval":              "5m",
	"scheduler.scenario":              "pollution",
	"hospital.name":                   "Arogya General Hospital",
	"hospital.city":                   "Mumbai",
	"auth.okta_domain":                "",
	"auth.client_id":                  "",
	"auth.client_secret":              "",
	"auth.redirect_url":               "",
	"auth.swagger_client_id":          "",
	"auth.allowed_domains":            []string{},
	"tls.enable":                      false,
	"tls.cert_file":                   "",
	"tls.key_file":                    "",
	"tls.hostnames":                   []string{"localhost"},
}

// LoadConfig loads the configuration from a file and the environment. An
// empty file searches for config.yaml in . and ./config; a missing search
// result is not an error so the service can be configured from the
// environment alone.
func LoadConfig(file string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	// normalize OKTA issuer url (strip trailing slash if any)
	config.Auth.OktaDomain = normalizeOktaIssuer(config.Auth.OktaDomain)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate rejects values the workflow cannot run with.
func (c *Config) Validate() error {
	var errs []error
	w := c.Workflow
	if w.RetryAttempts < 1 {
		errs = append(errs, fmt.Errorf("workflow.retry_attempts must be at least 1, got %d", w.RetryAttempts))
	}
	if w.CallTimeout <= 0 || w.RunTimeout <= 0 {
		errs = append(errs, errors.New("workflow timeouts must be positive"))
	}
	if w.AgreementThreshold <= 0 {
		errs = append(errs, errors.New("workflow.agreement_threshold must be positive"))
	}
	if w.AgreementBonus < 0 {
		errs = append(errs, errors.New("workflow.agreement_bonus cannot be negative"))
	}
	if w.ConfidenceCap < 0 || w.ConfidenceCap > 100 {
		errs = append(errs, fmt.Errorf("workflow.confidence_cap %d outside 0..100", w.ConfidenceCap))
	}
	if w.FatigueThreshold <= 0 || w.FatigueThreshold > 100 {
		errs = append(errs, fmt.Errorf("workflow.fatigue_threshold %d outside 1..100", w.FatigueThreshold))
	}
	if w.PatientsPerStaff <= 0 {
		errs = append(errs, errors.New("workflow.patients_per_staff must be positive"))
	}
	if w.DispatchConcurrency <= 0 {
		errs = append(errs, errors.New("workflow.dispatch_concurrency must be positive"))
	}
	if c.Forecaster.HistoryDays < 7 {
		errs = append(errs, fmt.Errorf("forecaster.history_days must cover a week, got %d", c.Forecaster.HistoryDays))
	}
	if c.Forecaster.HorizonDays < 1 {
		errs = append(errs, errors.New("forecaster.horizon_days must be positive"))
	}
	if c.Scheduler.Enabled && c.Scheduler.Interval <= 0 {
		errs = append(errs, errors.New("scheduler.interval must be positive"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

// DSN builds the PostgreSQL connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host, c.DB.Port, c.DB.User, c.DB.Password, c.DB.Name, c.DB.SSLMode,
	)
}

// normalizeOktaIssuer strips surrounding space and any trailing slash so
// the issuer can be pasted straight from the Okta admin console.
func normalizeOktaIssuer(input string) string {
	return strings.TrimRight(strings.TrimSpace(input), "/")
}
