package config

import (
	"fmt"
	"os"
	"path"
	"strings"
	"time"

	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
)

// SysConfig system configuration
type SysConfig struct {
	Appid    string `yaml:"appid"`
	Location string `yaml:"location"`
	Workdir  string `yaml:"workdir"`
	Debug    bool   `yaml:"debug"`
}

// WebConfig portal web server configuration
type WebConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DBConfig database configuration
type DBConfig struct {
	Type     string `yaml:"type"` // postgres or sqlite
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Passwd   string `yaml:"passwd"`
	MaxConn  int    `yaml:"max_conn"`
	IdleConn int    `yaml:"idle_conn"`
	Debug    bool   `yaml:"debug"`
}

// LogConfig logging configuration
type LogConfig struct {
	Mode       string `yaml:"mode"`
	FileEnable bool   `yaml:"file_enable"`
	Filename   string `yaml:"filename"`
}

// DeviceConfig MikroTik access-control device configuration
type DeviceConfig struct {
	Transport     string        `yaml:"transport"` // rest or api
	BaseURL       string        `yaml:"base_url"`  // REST base, e.g. http://10.0.0.1:85/rest/ip
	Host          string        `yaml:"host"`      // API host
	Port          int           `yaml:"port"`      // API port
	Username      string        `yaml:"username"`
	Password      string        `yaml:"password"`
	Timeout       time.Duration `yaml:"timeout"`
	ExistsPattern string        `yaml:"exists_pattern"`
}

// PortalConfig registration workflow configuration
type PortalConfig struct {
	RequiredFields       []string      `yaml:"required_fields"` // preset name or field list
	IdentityOrder        []string      `yaml:"identity_order"`
	PasswordRule         string        `yaml:"password_rule"`
	FallbackPassword     string        `yaml:"fallback_password"`
	LowercaseEmail       bool          `yaml:"lowercase_email"`
	AllowedNetworks      []string      `yaml:"allowed_networks"`
	ContactWriteMode     string        `yaml:"contact_write_mode"` // insert or upsert
	ProvisionStrategy    string        `yaml:"provision_strategy"` // optimistic or check-first
	ActivateSession      bool          `yaml:"activate_session"`
	ResponseMode         string        `yaml:"response_mode"` // redirect or form
	Popup                bool          `yaml:"popup"`
	Profile              string        `yaml:"profile"`
	CommentPrefix        string        `yaml:"comment_prefix"`
	StoreTimeout         time.Duration `yaml:"store_timeout"`
	ContactRetentionDays int           `yaml:"contact_retention_days"`
}

type AppConfig struct {
	System   SysConfig    `yaml:"system"`
	Web      WebConfig    `yaml:"web"`
	Database DBConfig     `yaml:"database"`
	Logger   LogConfig    `yaml:"logger"`
	Device   DeviceConfig `yaml:"device"`
	Portal   PortalConfig `yaml:"portal"`
}

func (c *AppConfig) GetLogDir() string {
	return path.Join(c.System.Workdir, "logs")
}

func (c *AppConfig) GetDataDir() string {
	return path.Join(c.System.Workdir, "data")
}

func (c *AppConfig) initDirs() {
	_ = os.MkdirAll(c.GetLogDir(), 0o700)
	_ = os.MkdirAll(c.GetDataDir(), 0o700)
}

var DefaultAppConfig = &AppConfig{
	System: SysConfig{
		Appid:    "ToughPortal",
		Location: "Asia/Shanghai",
		Workdir:  "/var/toughportal",
		Debug:    true,
	},
	Web: WebConfig{
		Host: "0.0.0.0",
		Port: 1816,
	},
	Database: DBConfig{
		Type:     "postgres",
		Host:     "127.0.0.1",
		Port:     5432,
		Name:     "toughportal",
		User:     "postgres",
		Passwd:   "myroot",
		MaxConn:  20,
		IdleConn: 5,
	},
	Logger: LogConfig{
		Mode:       "development",
		FileEnable: true,
		Filename:   "/var/toughportal/toughportal.log",
	},
	Device: DeviceConfig{
		Transport:     "rest",
		BaseURL:       "http://192.168.88.1:85/rest/ip",
		Host:          "192.168.88.1",
		Port:          8728,
		Username:      "admin",
		Timeout:       10 * time.Second,
		ExistsPattern: "already have user",
	},
	Portal: PortalConfig{
		RequiredFields:    []string{"minimal"},
		IdentityOrder:     []string{"email", "whatsapp", "mac"},
		PasswordRule:      "mac",
		FallbackPassword:  "hotspot",
		LowercaseEmail:    true,
		ContactWriteMode:  "upsert",
		ProvisionStrategy: "optimistic",
		ActivateSession:   true,
		ResponseMode:      "form",
		Popup:             true,
		Profile:           "default",
		CommentPrefix:     "AutoReg",
		StoreTimeout:      5 * time.Second,
	},
}

// LoadConfig reads the YAML file when present, then applies environment overrides.
// An empty or missing cfile yields the defaults.
func LoadConfig(cfile string) (*AppConfig, error) {
	cfg := *DefaultAppConfig
	if cfile != "" {
		data, err := os.ReadFile(cfile)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config %s: %w", cfile, err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", cfile, err)
			}
		}
	}

	applyEnv(&cfg)
	cfg.initDirs()
	return &cfg, nil
}

func applyEnv(cfg *AppConfig) {
	setEnvValue("TOUGHPORTAL_SYSTEM_WORKER_DIR", &cfg.System.Workdir)
	setEnvValue("TOUGHPORTAL_SYSTEM_LOCATION", &cfg.System.Location)
	setEnvBoolValue("TOUGHPORTAL_SYSTEM_DEBUG", &cfg.System.Debug)

	setEnvValue("TOUGHPORTAL_WEB_HOST", &cfg.Web.Host)
	setEnvIntValue("TOUGHPORTAL_WEB_PORT", &cfg.Web.Port)

	setEnvValue("TOUGHPORTAL_DB_TYPE", &cfg.Database.Type)
	setEnvValue("TOUGHPORTAL_DB_HOST", &cfg.Database.Host)
	setEnvIntValue("TOUGHPORTAL_DB_PORT", &cfg.Database.Port)
	setEnvValue("TOUGHPORTAL_DB_NAME", &cfg.Database.Name)
	setEnvValue("TOUGHPORTAL_DB_USER", &cfg.Database.User)
	setEnvValue("TOUGHPORTAL_DB_PWD", &cfg.Database.Passwd)
	setEnvBoolValue("TOUGHPORTAL_DB_DEBUG", &cfg.Database.Debug)

	setEnvValue("TOUGHPORTAL_LOGGER_MODE", &cfg.Logger.Mode)
	setEnvBoolValue("TOUGHPORTAL_LOGGER_FILE_ENABLE", &cfg.Logger.FileEnable)

	// MIKROTIK_* names are what existing portal deployments export.
	setEnvValue("MIKROTIK_HOST", &cfg.Device.Host)
	setEnvValue("MIKROTIK_USER", &cfg.Device.Username)
	setEnvValue("MIKROTIK_PASS", &cfg.Device.Password)
	setEnvValue("TOUGHPORTAL_DEVICE_TRANSPORT", &cfg.Device.Transport)
	setEnvValue("TOUGHPORTAL_DEVICE_BASE_URL", &cfg.Device.BaseURL)
	setEnvIntValue("TOUGHPORTAL_DEVICE_PORT", &cfg.Device.Port)
	setEnvDurationValue("TOUGHPORTAL_DEVICE_TIMEOUT", &cfg.Device.Timeout)

	setEnvListValue("TOUGHPORTAL_PORTAL_REQUIRED_FIELDS", &cfg.Portal.RequiredFields)
	setEnvListValue("TOUGHPORTAL_PORTAL_IDENTITY_ORDER", &cfg.Portal.IdentityOrder)
	setEnvListValue("TOUGHPORTAL_PORTAL_ALLOWED_NETWORKS", &cfg.Portal.AllowedNetworks)
	setEnvValue("TOUGHPORTAL_PORTAL_PASSWORD_RULE", &cfg.Portal.PasswordRule)
	setEnvValue("TOUGHPORTAL_PORTAL_FALLBACK_PASSWORD", &cfg.Portal.FallbackPassword)
	setEnvValue("TOUGHPORTAL_PORTAL_CONTACT_WRITE_MODE", &cfg.Portal.ContactWriteMode)
	setEnvValue("TOUGHPORTAL_PORTAL_PROVISION_STRATEGY", &cfg.Portal.ProvisionStrategy)
	setEnvValue("TOUGHPORTAL_PORTAL_RESPONSE_MODE", &cfg.Portal.ResponseMode)
	setEnvValue("TOUGHPORTAL_PORTAL_PROFILE", &cfg.Portal.Profile)
	setEnvBoolValue("TOUGHPORTAL_PORTAL_ACTIVATE_SESSION", &cfg.Portal.ActivateSession)
	setEnvBoolValue("TOUGHPORTAL_PORTAL_POPUP", &cfg.Portal.Popup)
	setEnvIntValue("TOUGHPORTAL_PORTAL_CONTACT_RETENTION_DAYS", &cfg.Portal.ContactRetentionDays)

	// Existing deployments expose RouterOS REST on port 85 of MIKROTIK_HOST.
	if host := os.Getenv("MIKROTIK_HOST"); host != "" && os.Getenv("TOUGHPORTAL_DEVICE_BASE_URL") == "" {
		cfg.Device.BaseURL = fmt.Sprintf("http://%s:85/rest/ip", host)
	}
}

func setEnvValue(name string, val *string) {
	if v := os.Getenv(name); v != "" {
		*val = v
	}
}

func setEnvBoolValue(name string, val *bool) {
	if v := os.Getenv(name); v != "" {
		*val = cast.ToBool(v)
	}
}

func setEnvIntValue(name string, val *int) {
	if v := os.Getenv(name); v != "" {
		*val = cast.ToInt(v)
	}
}

func setEnvDurationValue(name string, val *time.Duration) {
	if v := os.Getenv(name); v != "" {
		if d, err := cast.ToDurationE(v); err == nil {
			*val = d
		}
	}
}

func setEnvListValue(name string, val *[]string) {
	v := os.Getenv(name)
	if v == "" {
		return
	}
	var items []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	*val = items
}
