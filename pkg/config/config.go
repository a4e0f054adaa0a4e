package config

import "time"

// Messaging definition messaging_service YAML structure
type Messaging struct {
	Port      string         `mapstructure:"port"`
	JWTSecret string         `mapstructure:"jwt_secret"`
	MongoSQL  DatabaseConfig `mapstructure:"mongo"`
	Redis     RedisConfig    `mapstructure:"redis"`
	MinIO     MinIOConfig    `mapstructure:"minio"`
	View      ViewConfig     `mapstructure:"view"`
	Upload    UploadConfig   `mapstructure:"upload"`
}

// ViewConfig definition live view tuning
type ViewConfig struct {
	// ProfileCacheTTL how long a resolved profile name stays in redis
	ProfileCacheTTL time.Duration `mapstructure:"profile_cache_ttl"`
	// ReadMarkParallel max concurrent read-mark writes per view
	ReadMarkParallel int `mapstructure:"read_mark_parallel"`
	// WriteTimeout per store write issued in the background
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// UploadConfig definition audio upload limits
type UploadConfig struct {
	MaxAudioBytes int64 `mapstructure:"max_audio_bytes"`
}

// RedisConfig definition redis setting
type RedisConfig struct {
	Addr          string `mapstructure:"addr"`
	RedisDB       int    `mapstructure:"redis_db"`
	ChangeChannel string `mapstructure:"change_channel"`
}

// MinIOConfig definition media host setting
type MinIOConfig struct {
	Endpoint      string `mapstructure:"endpoint"`
	User          string `mapstructure:"user"`
	Password      string `mapstructure:"password"`
	Bucket        string `mapstructure:"bucket"`
	UseSSL        bool   `mapstructure:"use_ssl"`
	PublicBaseURL string `mapstructure:"public_base_url"`
	RetryInterval int    `mapstructure:"retry_interval"`
	RetryCount    int    `mapstructure:"retry_count"`
}

// DatabaseConfig definition db setting
type DatabaseConfig struct {
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	User          string `mapstructure:"user"`
	Password      string `mapstructure:"password"`
	Database      string `mapstructure:"database"`
	RetryInterval int    `mapstructure:"retry_interval"`
	RetryCount    int    `mapstructure:"retry_count"`
}

// WithDefaults fill zero values
func (m Messaging) WithDefaults() Messaging {
	if m.Port == "" {
		m.Port = "8083"
	}
	if m.Redis.ChangeChannel == "" {
		m.Redis.ChangeChannel = "messages:changed"
	}
	if m.View.ProfileCacheTTL == 0 {
		m.View.ProfileCacheTTL = 10 * time.Minute
	}
	if m.View.ReadMarkParallel == 0 {
		m.View.ReadMarkParallel = 8
	}
	if m.View.WriteTimeout == 0 {
		m.View.WriteTimeout = 5 * time.Second
	}
	if m.Upload.MaxAudioBytes == 0 {
		m.Upload.MaxAudioBytes = 10 << 20
	}
	return m
}
