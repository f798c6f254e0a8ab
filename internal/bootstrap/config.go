package bootstrap

import (
	"github.com/spf13/viper"
)

type Config struct {
	ServerPort       string `mapstructure:"SERVER_PORT"`
	RedisUrl         string `mapstructure:"REDIS_URL"`
	MongoUri         string `mapstructure:"MONGO_URI"`
	JwtSecret        string `mapstructure:"JWT_SECRET"`
	IsLocalCors      bool   `mapstructure:"LOCAL_CORS"`
	WsIdleTimeoutSec int    `mapstructure:"WS_IDLE_TIMEOUT_SEC"`
}

func Setup(cfgPath string) (*Config, error) {
	viper.SetConfigFile(cfgPath)

	err := viper.ReadInConfig()
	if err != nil {
		return nil, err
	}

	var cfg Config

	err = viper.Unmarshal(&cfg)
	if err != nil {
		return nil, err
	}

	if cfg.WsIdleTimeoutSec <= 0 {
		cfg.WsIdleTimeoutSec = 300
	}

	return &cfg, nil
}
