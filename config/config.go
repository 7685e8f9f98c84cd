package config

import (
	"log"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Database struct {
		Host     string `mapstructure:"host"`
		Port     string `mapstructure:"port"`
		User     string `mapstructure:"user"`
		Password string `mapstructure:"password"`
		Name     string `mapstructure:"name"`
	} `mapstructure:"database"`
	Redis struct {
		Host     string `mapstructure:"host"`
		Port     string `mapstructure:"port"`
		Password string `mapstructure:"password"`
	} `mapstructure:"redis"`
	Server struct {
		Port string `mapstructure:"port"`
	} `mapstructure:"server"`
	OAuth struct {
		ClientID         string        `mapstructure:"client_id"`
		ClientSecretHash string        `mapstructure:"client_secret_hash"`
		RedirectURI      string        `mapstructure:"redirect_uri"`
		Issuer           string        `mapstructure:"issuer"`
		Audience         string        `mapstructure:"audience"`
		SigningKeyPath   string        `mapstructure:"signing_key_path"`
		AccessTokenTTL   time.Duration `mapstructure:"access_token_ttl"`
		RefreshTokenTTL  time.Duration `mapstructure:"refresh_token_ttl"`
		CodeTTL          time.Duration `mapstructure:"code_ttl"`
		MaxSessions      int           `mapstructure:"max_sessions_per_user"`
	} `mapstructure:"oauth"`
	Audit struct {
		Stream   string `mapstructure:"stream"`
		Group    string `mapstructure:"group"`
		Consumer string `mapstructure:"consumer"`
	} `mapstructure:"audit"`
}

var AppConfig Config

func LoadConfig(path string) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yml")

	viper.SetDefault("oauth.access_token_ttl", 15*time.Minute)
	viper.SetDefault("oauth.refresh_token_ttl", 30*24*time.Hour)
	viper.SetDefault("oauth.code_ttl", 5*time.Minute)
	viper.SetDefault("oauth.max_sessions_per_user", 5)
	viper.SetDefault("audit.stream", "auth:events")
	viper.SetDefault("audit.group", "audit-writers")
	viper.SetDefault("audit.consumer", "audit-worker-1")

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		log.Fatalf("Error reading config file, %s", err)
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("Unable to decode into struct, %v", err)
	}
}
