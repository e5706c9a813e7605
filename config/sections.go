package config

import "time"

// AppInfo carries basic identification for the embedding host
// application. Trimmed from forbearing-gst's AppInfo (which also
// carried gin server fields this core has no use for).
type AppInfo struct {
	Name string `json:"name" mapstructure:"name" ini:"name" yaml:"name"`
	Mode string `json:"mode" mapstructure:"mode" ini:"mode" yaml:"mode"` // dev|prod|test
	Dir  string `json:"dir" mapstructure:"dir" ini:"dir" yaml:"dir"`
}

func (a *AppInfo) setDefault() {
	cv.SetDefault("app.name", "admincore")
	cv.SetDefault("app.mode", "dev")
	cv.SetDefault("app.dir", ".")
}

// LoggerConfig configures the zap-backed logger (ambient stack).
type LoggerConfig struct {
	File       string `json:"file" mapstructure:"file" ini:"file" yaml:"file" default:"/dev/stdout"`
	Level      string `json:"level" mapstructure:"level" ini:"level" yaml:"level" default:"info"`
	Format     string `json:"format" mapstructure:"format" ini:"format" yaml:"format" default:"json"`
	MaxAge     int    `json:"max_age" mapstructure:"max_age" ini:"max_age" yaml:"max_age" default:"7"`
	MaxSize    int    `json:"max_size" mapstructure:"max_size" ini:"max_size" yaml:"max_size" default:"100"`
	MaxBackups int    `json:"max_backups" mapstructure:"max_backups" ini:"max_backups" yaml:"max_backups" default:"10"`
}

func (l *LoggerConfig) setDefault() {
	cv.SetDefault("logger.file", "/dev/stdout")
	cv.SetDefault("logger.level", "info")
	cv.SetDefault("logger.format", "json")
	cv.SetDefault("logger.max_age", 7)
	cv.SetDefault("logger.max_size", 100)
	cv.SetDefault("logger.max_backups", 10)
}

// Kernel configures the KernelContext boot sequence (spec §4.9).
type Kernel struct {
	Warmup          bool          `json:"warmup" mapstructure:"warmup" ini:"warmup" yaml:"warmup"`
	BootStepTimeout time.Duration `json:"boot_step_timeout" mapstructure:"boot_step_timeout" ini:"boot_step_timeout" yaml:"boot_step_timeout" default:"10s"`
}

func (k *Kernel) setDefault() {
	cv.SetDefault("kernel.warmup", true)
	cv.SetDefault("kernel.boot_step_timeout", "10s")
}

// Permission configures the casbin-backed PermissionSubsystem.
type Permission struct {
	Enable       bool   `json:"enable" mapstructure:"enable" ini:"enable" yaml:"enable"`
	ModelPath    string `json:"model_path" mapstructure:"model_path" ini:"model_path" yaml:"model_path" default:"rbac_model.conf"`
	SqlitePath   string `json:"sqlite_path" mapstructure:"sqlite_path" ini:"sqlite_path" yaml:"sqlite_path" default:"casbin.db"`
	AnonymousRole string `json:"anonymous_role" mapstructure:"anonymous_role" ini:"anonymous_role" yaml:"anonymous_role" default:"anonymous"`
}

func (p *Permission) setDefault() {
	cv.SetDefault("permission.enable", false)
	cv.SetDefault("permission.model_path", "rbac_model.conf")
	cv.SetDefault("permission.sqlite_path", "casbin.db")
	cv.SetDefault("permission.anonymous_role", "anonymous")
}

// StorageConfig holds storage settings: the MockApiStorage persistence
// backend and its redis address/db, and the API request timeout and
// rate limit. None of the storage packages reads it; adapters take
// their settings through their own options.
type StorageConfig struct {
	MockPersistBackend string        `json:"mock_persist_backend" mapstructure:"mock_persist_backend" ini:"mock_persist_backend" yaml:"mock_persist_backend" default:"memory"` // memory|redis
	RedisAddr          string        `json:"redis_addr" mapstructure:"redis_addr" ini:"redis_addr" yaml:"redis_addr" default:"127.0.0.1:6379"`
	RedisDB            int           `json:"redis_db" mapstructure:"redis_db" ini:"redis_db" yaml:"redis_db"`
	APITimeout         time.Duration `json:"api_timeout" mapstructure:"api_timeout" ini:"api_timeout" yaml:"api_timeout" default:"10s"`
	APIRateLimitQPS    float64       `json:"api_rate_limit_qps" mapstructure:"api_rate_limit_qps" ini:"api_rate_limit_qps" yaml:"api_rate_limit_qps" default:"20"`
}

func (s *StorageConfig) setDefault() {
	cv.SetDefault("storageconfig.mock_persist_backend", "memory")
	cv.SetDefault("storageconfig.redis_addr", "127.0.0.1:6379")
	cv.SetDefault("storageconfig.redis_db", 0)
	cv.SetDefault("storageconfig.api_timeout", "10s")
	cv.SetDefault("storageconfig.api_rate_limit_qps", 20)
}
