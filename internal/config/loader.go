package config

import (
	"fmt"

	"github.com/restforge/restforge/internal/db"
	"github.com/spf13/viper"
)

// Config is the process-wide registration configuration, read once at startup
// and treated as immutable afterwards.
type Config struct {
	Server   ServerConfig
	Database db.Config
	App      AppConfig
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Port int
}

// AppConfig holds pipeline defaults. Query is the default page size applied
// to filterable list operations before any query key is inspected.
type AppConfig struct {
	Query int
}

// Load reads config.yaml from configPath with environment overrides.
func Load(configPath string) (Config, error) {
	cfg := Config{
		Server:   ServerConfig{Port: 8080},
		Database: db.DefaultConfig(),
		App:      AppConfig{Query: 50},
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AutomaticEnv()           // allow environment overrides
	v.SetEnvPrefix("RESTFORGE") // map env vars like RESTFORGE_DATABASE.HOST

	// Optional: Map nested keys to flat env vars
	v.BindEnv("server.port")
	v.BindEnv("database.host")
	v.BindEnv("database.port")
	v.BindEnv("database.user")
	v.BindEnv("database.password")
	v.BindEnv("database.dbname")
	v.BindEnv("database.sslmode")
	v.BindEnv("app.query")

	if err := v.ReadInConfig(); err != nil {
		// Config file not found? Just log it, use defaults + env
		fmt.Println("No config.yaml found, using defaults and env vars")
	} else {
		fmt.Println("Loaded config.yaml")
	}

	// Override defaults if values exist
	if v.IsSet("server.port") {
		cfg.Server.Port = v.GetInt("server.port")
	}
	if v.IsSet("database.host") {
		cfg.Database.Host = v.GetString("database.host")
	}
	if v.IsSet("database.port") {
		cfg.Database.Port = v.GetInt("database.port")
	}
	if v.IsSet("database.user") {
		cfg.Database.User = v.GetString("database.user")
	}
	if v.IsSet("database.password") {
		cfg.Database.Password = v.GetString("database.password")
	}
	if v.IsSet("database.dbname") {
		cfg.Database.DBName = v.GetString("database.dbname")
	}
	if v.IsSet("database.sslmode") {
		cfg.Database.SSLMode = v.GetString("database.sslmode")
	}
	if v.IsSet("app.query") {
		cfg.App.Query = v.GetInt("app.query")
	}
	if cfg.App.Query <= 0 {
		return Config{}, fmt.Errorf("app.query must be positive, got %d", cfg.App.Query)
	}

	return cfg, nil
}
