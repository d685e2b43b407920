package config

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"class_monitor/internal/domain/course"
	"class_monitor/internal/domain/notification"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DefaultFile        = "class_monitor.conf"
	MinCheckInterval   = 10 * time.Minute
	DisabledHistory    = "none"
	classSectionPrefix = "class"
)

// AppConfig holds all configuration for the application
type AppConfig struct {
	CheckInterval   time.Duration
	OperationDelay  time.Duration
	NotifyOnFull    bool
	SuppressRepeats bool
	AdminNotify     notification.AdminPolicy
	DatabaseURL     string // empty when history is disabled
	HeartbeatSpec   string // cron spec, empty disables
	LogLevel        string
	Environment     string

	Registration RegistrationConfig
	Notification NotificationConfig
	Telegram     TelegramConfig

	Courses []*course.TrackedCourse
}

type RegistrationConfig struct {
	Username        string
	Password        string
	PortalURL       string
	CourseSearchURL string
}

type NotificationConfig struct {
	Username   string
	Password   string
	FromEmail  string
	AdminEmail string
	SMTPServer string
	SMTPPort   int
}

type TelegramConfig struct {
	Token   string
	AdminID int64
}

// Enabled reports whether the operator bot should be started.
func (t TelegramConfig) Enabled() bool {
	return t.Token != "" && t.AdminID != 0
}

// Load reads the INI file at path. Secrets may come from the environment or
// a .env file instead.
func Load(path string) (*AppConfig, error) {
	// godotenv.Load will not override existing env variables.
	_ = godotenv.Load()

	v := New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return FromViper(v)
}

// New returns a viper instance with the INI format, defaults and env bindings set.
func New() *viper.Viper {
	v := viper.New()
	v.SetConfigType("ini")

	v.SetDefault("general.check_interval", "10")
	v.SetDefault("general.operation_delay", "2")
	v.SetDefault("general.notify_on_full", "false")
	v.SetDefault("general.suppress_repeats", "false")
	v.SetDefault("general.admin_notify", string(notification.AdminErrors))
	v.SetDefault("general.database", "class_monitor.db")
	v.SetDefault("general.heartbeat", "")
	v.SetDefault("general.log_level", "info")
	v.SetDefault("general.environment", "development")
	v.SetDefault("mymru.portal_url", "https://mymru.ca")
	v.SetDefault("mymru.course_search_url", "http://www.mru.ca/rp-look-up-courses")
	v.SetDefault("notification.smtp_server", "smtp.gmail.com")
	v.SetDefault("notification.smtp_port", "587")

	envs := map[string]string{
		"mymru.username":        "MRU_USERNAME",
		"mymru.password":        "MRU_PASSWORD",
		"notification.username": "SMTP_USERNAME",
		"notification.password": "SMTP_PASSWORD",
		"telegram.token":        "TELEGRAM_TOKEN",
		"general.database":      "DATABASE_URL",
		"general.log_level":     "LOG_LEVEL",
		"general.environment":   "ENVIRONMENT",
	}
	for key, env := range envs {
		_ = v.BindEnv(key, env)
	}
	return v
}

// FromViper validates and converts everything viper has read.
func FromViper(v *viper.Viper) (*AppConfig, error) {
	cfg := &AppConfig{
		HeartbeatSpec: strings.TrimSpace(v.GetString("general.heartbeat")),
		LogLevel:      strings.ToLower(v.GetString("general.log_level")),
		Environment:   strings.ToLower(v.GetString("general.environment")),
		Registration: RegistrationConfig{
			Username:        v.GetString("mymru.username"),
			Password:        v.GetString("mymru.password"),
			PortalURL:       v.GetString("mymru.portal_url"),
			CourseSearchURL: v.GetString("mymru.course_search_url"),
		},
		Notification: NotificationConfig{
			Username:   v.GetString("notification.username"),
			Password:   v.GetString("notification.password"),
			FromEmail:  v.GetString("notification.from_email"),
			AdminEmail: v.GetString("notification.admin_email"),
			SMTPServer: v.GetString("notification.smtp_server"),
		},
		Telegram: TelegramConfig{Token: v.GetString("telegram.token")},
	}
	var err error

	interval, err := intValue(v, "general.check_interval")
	if err != nil {
		return nil, err
	}
	cfg.CheckInterval = max(time.Duration(interval)*time.Minute, MinCheckInterval)

	delay, err := intValue(v, "general.operation_delay")
	if err != nil {
		return nil, err
	}
	if delay < 0 {
		return nil, &course.ConfigError{Field: "general.operation_delay", Reason: "must not be negative"}
	}
	cfg.OperationDelay = time.Duration(delay) * time.Second

	if cfg.NotifyOnFull, err = boolValue(v, "general.notify_on_full"); err != nil {
		return nil, err
	}
	if cfg.SuppressRepeats, err = boolValue(v, "general.suppress_repeats"); err != nil {
		return nil, err
	}

	cfg.AdminNotify, err = notification.ParseAdminPolicy(strings.ToLower(v.GetString("general.admin_notify")))
	if err != nil {
		return nil, &course.ConfigError{Field: "general.admin_notify", Reason: err.Error()}
	}

	cfg.DatabaseURL = strings.TrimSpace(v.GetString("general.database"))
	if strings.EqualFold(cfg.DatabaseURL, DisabledHistory) {
		cfg.DatabaseURL = ""
	}

	if cfg.Notification.SMTPPort, err = intValue(v, "notification.smtp_port"); err != nil {
		return nil, err
	}

	if raw := v.GetString("telegram.admin_id"); raw != "" {
		cfg.Telegram.AdminID, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, &course.ConfigError{Field: "telegram.admin_id", Reason: "must be a numeric chat id"}
		}
	}

	cfg.Courses, err = course.Merge(classEntries(v))
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// ValidateForRun checks the settings only needed to actually poll and notify.
func (c *AppConfig) ValidateForRun() error {
	required := []struct {
		field string
		value string
	}{
		{"mymru.username", c.Registration.Username},
		{"mymru.password", c.Registration.Password},
		{"mymru.portal_url", c.Registration.PortalURL},
		{"mymru.course_search_url", c.Registration.CourseSearchURL},
		{"notification.from_email", c.Notification.FromEmail},
		{"notification.smtp_server", c.Notification.SMTPServer},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return &course.ConfigError{Field: r.field, Reason: "must not be empty"}
		}
	}
	if c.AdminNotify != notification.AdminNone && c.Notification.AdminEmail == "" && !c.Telegram.Enabled() {
		return &course.ConfigError{Field: "notification.admin_email", Reason: "required unless admin_notify is none"}
	}
	if len(c.Courses) == 0 {
		return &course.ConfigError{Field: "class", Reason: "no [Class] sections configured"}
	}
	return nil
}

// classEntries returns one entry per [Class...] section. Sections are ordered
// so that Class2 comes before Class10.
func classEntries(v *viper.Viper) []course.Entry {
	seen := make(map[string]bool)
	var names []string
	for _, key := range v.AllKeys() {
		section, _, ok := strings.Cut(key, ".")
		if !ok || !strings.HasPrefix(section, classSectionPrefix) || seen[section] {
			continue
		}
		seen[section] = true
		names = append(names, section)
	}
	sort.Slice(names, func(i, j int) bool {
		if len(names[i]) != len(names[j]) {
			return len(names[i]) < len(names[j])
		}
		return names[i] < names[j]
	})

	entries := make([]course.Entry, 0, len(names))
	for _, name := range names {
		get := func(key string) string {
			return strings.TrimSpace(v.GetString(name + "." + key))
		}
		entries = append(entries, course.Entry{
			Name:        name,
			ClientEmail: get("client_email"),
			Subject:     get("subject"),
			Number:      get("number"),
			Title:       get("name"),
			Term:        get("term"),
			Section:     get("section"),
		})
	}
	return entries
}

func intValue(v *viper.Viper, key string) (int, error) {
	raw := strings.TrimSpace(v.GetString(key))
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &course.ConfigError{Field: key, Reason: fmt.Sprintf("%q is not a whole number", raw)}
	}
	return n, nil
}

// boolValue accepts only true and false. Anything else is an error rather
// than a silent default.
func boolValue(v *viper.Viper, key string) (bool, error) {
	switch raw := strings.ToLower(strings.TrimSpace(v.GetString(key))); raw {
	case "true":
		return true, nil
	case "false":
		return false, nil
	default:
		return false, &course.ConfigError{Field: key, Reason: fmt.Sprintf("%q must be true or false", raw)}
	}
}
