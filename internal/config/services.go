package config

import (
	"time"

	"gitlab.com/judge-relay.net/internal/domain"
)

// MaintenanceCfg drives the background loops of the scheduler engine.
type MaintenanceCfg struct {
	WorkerCleanupInterval time.Duration
	StalePendingInterval  time.Duration
	StalePendingAfter     time.Duration
}

func NewMaintenanceCfg() *MaintenanceCfg {
	return &MaintenanceCfg{
		WorkerCleanupInterval: getSecondsEnv("WORKER_CLEANUP_INTERVAL_SEC", 60),
		StalePendingInterval:  getSecondsEnv("STALE_PENDING_INTERVAL_SEC", 60),
		StalePendingAfter:     getSecondsEnv("STALE_PENDING_AFTER_SEC", 600),
	}
}

type ServerConfig struct {
	HttpPort int
	TcpAddr  string
}

func NewServerConfig() *ServerConfig {
	return &ServerConfig{
		HttpPort: getIntEnv("HTTP_PORT", 8082),
		TcpAddr:  getEnv("TCP_ADDR", ":8080"),
	}
}

const (
	DispatchBackendRedis = "redis"
	DispatchBackendTCP   = "tcp"
	DispatchBackendHTTP  = "http"
)

type DispatchConfig struct {
	Backend         string
	Timeout         time.Duration
	ExecutionApiUrl string
	Queues          map[domain.TaskClass]string
}

func NewDispatchConfig() *DispatchConfig {
	return &DispatchConfig{
		Backend:         getEnv("DISPATCH_BACKEND", DispatchBackendRedis),
		Timeout:         time.Duration(getIntEnv("DISPATCH_TIMEOUT_MS", 3000)) * time.Millisecond,
		ExecutionApiUrl: getEnv("EXECUTION_API_URL", "http://localhost:5000"),
		Queues: map[domain.TaskClass]string{
			domain.TaskClassSubmit:    getEnv("SUBMIT_QUEUE", "submitQueue"),
			domain.TaskClassRun:       getEnv("RUN_QUEUE", "runQueue"),
			domain.TaskClassReference: getEnv("SYSTEM_QUEUE", "systemQueue"),
		},
	}
}

type SubmissionConfig struct {
	OwnerKind          domain.OwnerKind
	SupportedLanguages []string
	HistoryLimit       int
}

func NewSubmissionConfig() *SubmissionConfig {
	kind, err := domain.ParseOwnerKind(getEnv("OWNER_MODE", string(domain.OwnerKindTeam)))
	if err != nil {
		kind = domain.OwnerKindTeam
	}
	return &SubmissionConfig{
		OwnerKind:          kind,
		SupportedLanguages: getListEnv("SUPPORTED_LANGUAGES", []string{"python", "cpp", "java"}),
		HistoryLimit:       getIntEnv("HISTORY_LIMIT", 100),
	}
}

type EphemeralConfig struct {
	TTL time.Duration
}

func NewEphemeralConfig() *EphemeralConfig {
	return &EphemeralConfig{
		TTL: getSecondsEnv("EPHEMERAL_TTL_SEC", 600),
	}
}

// WebhookConfig holds the optional shared secret expected in X-Webhook-Secret.
type WebhookConfig struct {
	Secret string
}

func NewWebhookConfig() *WebhookConfig {
	return &WebhookConfig{
		Secret: getEnv("WEBHOOK_SECRET", ""),
	}
}
