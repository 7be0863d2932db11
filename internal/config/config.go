package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"   validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Auth     AuthConfig     `mapstructure:"auth"     validate:"required"`
	Sweep    SweepConfig    `mapstructure:"sweep"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port                   int    `mapstructure:"port"                     validate:"required,gt=0,lt=65536"`
	LogLevel               string `mapstructure:"log_level"                validate:"required,oneof=debug info warn error"`
	ShutdownTimeoutSeconds int    `mapstructure:"shutdown_timeout_seconds" validate:"required,gte=1"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL          string `mapstructure:"url"            validate:"required,url"`
	MaxOpenConns int    `mapstructure:"max_open_conns" validate:"gte=1"`
	MaxIdleConns int    `mapstructure:"max_idle_conns" validate:"gte=0"`
	// AutoMigrate applies pending migrations during startup.
	AutoMigrate bool `mapstructure:"auto_migrate"`
}

// AuthConfig controls how callers are identified.
// Identity is taken as-is from a request header set by an upstream gateway.
type AuthConfig struct {
	UserIDHeader string `mapstructure:"user_id_header" validate:"required"`
	AdminUserID  string `mapstructure:"admin_user_id"  validate:"required"`
}

// SweepConfig schedules the overdue recalculation inside the server process.
type SweepConfig struct {
	// IntervalSeconds between sweeps; 0 disables the scheduler and leaves
	// recalculation to the admin endpoint and the -recalculate-overdue flag.
	IntervalSeconds int `mapstructure:"interval_seconds" validate:"gte=0"`
}
