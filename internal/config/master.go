package config

import "os"

type AppConfig struct {
	DebugMode        bool
	ServerConfig     *ServerConfig
	MaintenanceCfg   *MaintenanceCfg
	RedisConfig      *RedisConfig
	PostgresConfig   *PostgresConfig
	JwtConfig        *JwtConfig
	DispatchConfig   *DispatchConfig
	SubmissionConfig *SubmissionConfig
	EphemeralConfig  *EphemeralConfig
	WebhookConfig    *WebhookConfig
}

func NewSystemConfig() *AppConfig {
	return &AppConfig{
		DebugMode:        os.Getenv("DEBUG_MODE") == "true",
		ServerConfig:     NewServerConfig(),
		MaintenanceCfg:   NewMaintenanceCfg(),
		RedisConfig:      NewRedisConfig(),
		PostgresConfig:   NewPostgresConfig(),
		JwtConfig:        NewJwtConfig(),
		DispatchConfig:   NewDispatchConfig(),
		SubmissionConfig: NewSubmissionConfig(),
		EphemeralConfig:  NewEphemeralConfig(),
		WebhookConfig:    NewWebhookConfig(),
	}
}
