package config

import (
	"errors"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	Server      struct {
		Port            string `env:"PORT" envDefault:"3000"`
		ReadTimeout     int    `env:"READ_TIMEOUT" envDefault:"10"`
		WriteTimeout    int    `env:"WRITE_TIMEOUT" envDefault:"15"`
		IdleTimeout     int    `env:"IDLE_TIMEOUT" envDefault:"60"`
		ShutdownTimeout int    `env:"SHUTDOWN_TIMEOUT" envDefault:"10"`
	} `envPrefix:"SERVER_"`
	Database struct {
		DSN                string `env:"DSN,required"`
		ConnectTimeout     int    `env:"CONNECT_TIMEOUT" envDefault:"10"`
		QueryTimeout       int    `env:"QUERY_TIMEOUT" envDefault:"10"`
		TransactionTimeout int    `env:"TRANSACTION_TIMEOUT" envDefault:"20"`
		MaxOpenConns       int    `env:"MAX_OPEN_CONNS" envDefault:"10"`
		MaxIdleConns       int    `env:"MAX_IDLE_CONNS" envDefault:"10"`
		MaxIdleTime        int    `env:"MAX_IDLE_TIME" envDefault:"60"`
	} `envPrefix:"DATABASE_"`
	InitialAdmin struct {
		Username string `env:"USERNAME" envDefault:"admin"`
		Password string `env:"PASSWORD,required"`
		FullName string `env:"FULL_NAME" envDefault:"平台管理员"`
		Email    string `env:"EMAIL,required"`
	} `envPrefix:"INITIAL_ADMIN_"`
	JWT struct {
		Expiration int    `env:"EXPIRATION" envDefault:"336"` // 小时，14 天
		Secret     string `env:"SECRET,required"`
	} `envPrefix:"JWT_"`
	Seed struct {
		EmailDomain     string `env:"EMAIL_DOMAIN" envDefault:"example.com"`
		ManagerPassword string `env:"MANAGER_PASSWORD" envDefault:"shiftdesk@test"`
	} `envPrefix:"SEED_"`
	Email struct {
		SMTP struct {
			Username    string `env:"USERNAME,required"`
			Password    string `env:"PASSWORD,required"`
			Host        string `env:"HOST,required"`
			Port        int    `env:"PORT" envDefault:"465"`
			DialTimeout int    `env:"DIAL_TIMEOUT" envDefault:"10"`
		} `envPrefix:"SMTP_"`
		TemplateDir string `env:"TEMPLATE_DIR" envDefault:"./templates"`
	} `envPrefix:"EMAIL_"`
	RabbitMQ struct {
		DSN            string `env:"DSN,required"`
		Queue          string `env:"QUEUE" envDefault:"notification_queue"`
		PublishTimeout int    `env:"PUBLISH_TIMEOUT" envDefault:"10"`
	} `envPrefix:"RABBITMQ_"`
	Redis struct {
		Host             string `env:"HOST" envDefault:"localhost"`
		Port             int    `env:"PORT" envDefault:"6379"`
		Password         string `env:"PASSWORD,required"`
		ConnectTimeout   int    `env:"CONNECT_TIMEOUT" envDefault:"10"`
		OperationTimeout int    `env:"OPERATION_TIMEOUT" envDefault:"5"`
	} `envPrefix:"REDIS_"`
	Token struct {
		WeeklyTTL        int `env:"WEEKLY_TTL" envDefault:"168"`      // 小时
		PermanentTTL     int `env:"PERMANENT_TTL" envDefault:"8760"`  // 小时，一年
		RegistrationTTL  int `env:"REGISTRATION_TTL" envDefault:"72"` // 小时
		MaxIssueAttempts int `env:"MAX_ISSUE_ATTEMPTS" envDefault:"3"`
	} `envPrefix:"TOKEN_"`
	Override struct {
		ManagerCode       string `env:"MANAGER_CODE,required,notEmpty"`
		PendingExpiration int    `env:"PENDING_EXPIRATION" envDefault:"600"` // 秒
	} `envPrefix:"OVERRIDE_"`
	Public struct {
		Origin string `env:"ORIGIN" envDefault:"http://localhost:5173"`
	} `envPrefix:"PUBLIC_"`
}

func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		aggErr := env.AggregateError{}
		if ok := errors.As(err, &aggErr); ok {
			// 只返回第一个错误使得日志更清晰
			return nil, aggErr.Errors[0]
		}
		return nil, err
	}

	return cfg, nil
}

func (c *Config) QueryTimeout() time.Duration {
	return time.Duration(c.Database.QueryTimeout) * time.Second
}

func (c *Config) TransactionTimeout() time.Duration {
	return time.Duration(c.Database.TransactionTimeout) * time.Second
}

func (c *Config) OverridePendingExpiration() time.Duration {
	return time.Duration(c.Override.PendingExpiration) * time.Second
}
