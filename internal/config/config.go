package config

import (
	"time"

	"github.com/caarlos0/env/v10"
)

// Config centraliza la configuración del servicio.
type Config struct {
	HTTPPort string `env:"HTTP_PORT" envDefault:"8080"`

	LLMAPIKey  string `env:"LLM_API_KEY,required"`
	LLMBaseURL string `env:"LLM_BASE_URL" envDefault:"https://api.openai.com/v1"`
	LLMModel   string `env:"LLM_MODEL" envDefault:"gpt-5-mini"`

	// Timeouts por call site: el flujo por pasos tolera llamadas largas, el
	// modo multi-agente corta antes para mantener el chat agil.
	LLMTimeoutSeconds      int `env:"LLM_TIMEOUT_SECONDS" envDefault:"60"`
	LLMAgentTimeoutSeconds int `env:"LLM_AGENT_TIMEOUT_SECONDS" envDefault:"30"`

	LLMMaxAttempts         int `env:"LLM_MAX_ATTEMPTS" envDefault:"2"`
	LLMRetryBackoffSeconds int `env:"LLM_RETRY_BACKOFF_SECONDS" envDefault:"2"`

	DatabaseURL string `env:"DATABASE_URL"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	JWTSecret       string `env:"JWT_SECRET,required"`
	SessionTTLHours int    `env:"SESSION_TTL_HOURS" envDefault:"24"`
}

// LoadConfig carga la configuración desde variables de entorno.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LLMTimeout devuelve el timeout del flujo por pasos.
func (c *Config) LLMTimeout() time.Duration {
	return time.Duration(c.LLMTimeoutSeconds) * time.Second
}

// LLMAgentTimeout devuelve el timeout del modo multi-agente.
func (c *Config) LLMAgentTimeout() time.Duration {
	return time.Duration(c.LLMAgentTimeoutSeconds) * time.Second
}

// LLMRetryBackoff devuelve la espera fija entre reintentos.
func (c *Config) LLMRetryBackoff() time.Duration {
	return time.Duration(c.LLMRetryBackoffSeconds) * time.Second
}

// SessionTTL devuelve la vida util de una sesion.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLHours) * time.Hour
}
