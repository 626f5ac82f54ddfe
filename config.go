package fleettracker

import (
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type ServerConfig struct {
	Port int `yaml:"port" validate:"gt=0"`
}

type DatabaseConfig struct {
	DSN          string `yaml:"dsn" validate:"required"`
	MaxOpenConns int    `yaml:"maxOpenConns" validate:"gte=0"`
	MaxIdleConns int    `yaml:"maxIdleConns" validate:"gte=0"`
}

type AuthUser struct {
	Email    string `yaml:"email" validate:"required,email"`
	Password string `yaml:"password" validate:"required"`
}

type AuthConfig struct {
	Secret          string     `yaml:"secret" validate:"required"`
	TokenTTLMinutes int        `yaml:"tokenTTLMinutes" validate:"gte=0"`
	Users           []AuthUser `yaml:"users"`
}

// GTFSRTConfig configures the optional vehicle-position feeder. An empty URL
// disables it.
type GTFSRTConfig struct {
	VehiclePositionsURL string `yaml:"vehiclePositionsURL" validate:"omitempty,url"`
	ReadIntervalMS      int    `yaml:"readIntervalMS" validate:"gte=0"`
	TimeoutMS           int    `yaml:"timeoutMS" validate:"gte=0"`
}

type AppConfig struct {
	Server   ServerConfig   `yaml:"server" validate:"required"`
	Database DatabaseConfig `yaml:"database" validate:"required"`
	Auth     AuthConfig     `yaml:"auth" validate:"required"`
	GTFSRT   GTFSRTConfig   `yaml:"gtfsrt"`
}

// Config is the global application configuration
var Config AppConfig

// LoadAppConfig loads and validates the application configuration from config.yml
func LoadAppConfig() error {
	paths := []string{"config.yml", "./config/config.yml"}
	var data []byte
	var err error
	for _, p := range paths {
		data, err = os.ReadFile(p)
		if err == nil {
			break
		}
	}
	if err != nil {
		return err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return err
	}
	v := validator.New()
	if err := v.Struct(cfg.Server); err != nil {
		return err
	}
	if err := v.Struct(cfg.Database); err != nil {
		return err
	}
	if err := v.Struct(cfg.Auth); err != nil {
		return err
	}
	for _, u := range cfg.Auth.Users {
		if err := v.Struct(u); err != nil {
			return err
		}
	}
	if err := v.Struct(cfg.GTFSRT); err != nil {
		return err
	}
	Config = cfg
	if Config.Server.Port == 0 {
		Config.Server.Port = 8081
	}
	if Config.Auth.TokenTTLMinutes == 0 {
		Config.Auth.TokenTTLMinutes = 60
	}
	if Config.GTFSRT.ReadIntervalMS == 0 {
		Config.GTFSRT.ReadIntervalMS = 15000
	}
	if Config.GTFSRT.TimeoutMS == 0 {
		Config.GTFSRT.TimeoutMS = 10000
	}
	return nil
}
