package config

import "time"

type GatewayConfig struct {
	WebSocket        WebSocketConfig
	MaxLoginAttempts int
}

type WebSocketConfig struct {
	PingInterval   time.Duration
	WriteWait      time.Duration
	PongWait       time.Duration
	IdleTimeout    time.Duration // no client command for this long ends the session
	MaxMessageSize int64
	SendBuffer     int
}

// LoadGatewayConfig loads configuration for the WebSocket gateway
func LoadGatewayConfig() *GatewayConfig {
	return &GatewayConfig{
		WebSocket: WebSocketConfig{
			PingInterval:   54 * time.Second,
			WriteWait:      10 * time.Second,
			PongWait:       60 * time.Second,
			IdleTimeout:    getEnvDuration("SESSION_IDLE_TIMEOUT", 5*time.Minute),
			MaxMessageSize: 512,
			SendBuffer:     getEnvInt("WS_SEND_BUFFER", 64),
		},
		MaxLoginAttempts: getEnvInt("MAX_LOGIN_ATTEMPTS", 3),
	}
}
