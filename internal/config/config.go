package config

import (
	"fmt"
	"net"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	LogLevel   string `yaml:"log-level" env:"LOG_LEVEL" env-default:"info"`
	HTTPPort   string `yaml:"http-port" env:"HTTP_PORT" env-default:"9090"`
	SocketPort string `yaml:"socket-port" env:"SOCKET_PORT" env-default:"8080"`
	Redis      Redis  `yaml:"redis" env-prefix:"REDIS_"`
	Game       Game   `yaml:"game" env-prefix:"GAME_"`
}

type Redis struct {
	Enabled bool   `yaml:"enabled" env:"ENABLED" env-default:"false"`
	Host    string `yaml:"host" env:"HOST" env-default:"localhost"`
	Port    string `yaml:"port" env:"PORT" env-default:"6379"`
}

type Game struct {
	RoomID       string        `yaml:"room-id" env:"ROOM_ID" env-default:"main"`
	ResetDelay   time.Duration `yaml:"reset-delay" env:"RESET_DELAY" env-default:"5s"`
	OutboxSize   int           `yaml:"outbox-size" env:"OUTBOX_SIZE" env-default:"16"`
	WriteTimeout time.Duration `yaml:"write-timeout" env:"WRITE_TIMEOUT" env-default:"10s"`
	PongWait     time.Duration `yaml:"pong-wait" env:"PONG_WAIT" env-default:"60s"`
}

// MustLoad - load all configurations in config.yml file, environment variables take precedence.
func MustLoad(path string) *Config {
	config, err := Load(path)
	if err != nil {
		panic(err)
	}

	return config
}

func Load(path string) (*Config, error) {
	config := &Config{}

	if err := cleanenv.ReadConfig(path, config); err != nil {
		return nil, fmt.Errorf("unable to load config file: %w", err)
	}

	return config, nil
}

func (that *Redis) GetRedisAddr() string {
	return net.JoinHostPort(that.Host, that.Port)
}
