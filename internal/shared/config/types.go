// Package config defines the typed configuration structures shared by
// the infrastructure layer.
package config

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host      string `mapstructure:"host"`
	Port      int    `mapstructure:"port"`
	Mode      string `mapstructure:"mode"`
	SiteName  string `mapstructure:"site_name"`
	URLPrefix string `mapstructure:"url_prefix"`
	// CORSOrigins lists the allowed origins; "*" allows any.
	CORSOrigins []string `mapstructure:"cors_origins"`
}

// DatabaseConfig holds the relational store settings.
type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Username        string `mapstructure:"username"`
	Password        string `mapstructure:"password"`
	Database        string `mapstructure:"database"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
}

// LoggerConfig holds logging settings.
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// JWTConfig holds token signing settings.
type JWTConfig struct {
	Secret           string `mapstructure:"secret"`
	AccessExpMinutes int    `mapstructure:"access_exp_minutes"`
}

// AuthConfig holds authentication settings.
type AuthConfig struct {
	JWT        JWTConfig `mapstructure:"jwt"`
	BcryptCost int       `mapstructure:"bcrypt_cost"`
}

// RedisConfig holds permission/session cache settings.
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// IDConfig holds the snowflake shard identity.
type IDConfig struct {
	ServerID     int64 `mapstructure:"server_id"`
	DatacenterID int64 `mapstructure:"datacenter_id"`
}

// CRUDConfig holds cross-resource CRUD pipeline settings.
type CRUDConfig struct {
	// HardDelete switches delete operations from the soft-delete state
	// flip to physical row removal.
	HardDelete bool `mapstructure:"hard_delete"`
	// MaxPageSize caps the per-resource page size when a resource does
	// not configure its own.
	MaxPageSize int `mapstructure:"max_page_size"`
}
