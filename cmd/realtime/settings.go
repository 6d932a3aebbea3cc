package main

import (
	"strings"
	"time"
)

type Settings struct {
	Port        int    `env:"PORT,default=8000"`
	BasePath    string `env:"BASE_PATH,default=/"`
	LogEncoding string `env:"LOG_ENCODING,default=console"`
	LogLevel    string `env:"LOG_LEVEL,default=debug"`

	JWTSecret      string `env:"JWT_SECRET,required=true"`
	APIKeys        string `env:"API_KEYS"`
	AllowedOrigins string `env:"ALLOWED_ORIGINS"`

	MongoURI      string `env:"MONGO_URI,required=true"`
	MongoDatabase string `env:"MONGO_DATABASE,default=greasemonkey"`

	// Zero keeps notifications until the backend deletes them.
	NotificationRetentionDays int `env:"NOTIFICATION_RETENTION_DAYS,default=0"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB,default=0"`

	NATSURL     string `env:"NATS_URL"`
	NATSSubject string `env:"NATS_SUBJECT,default=greasemonkey.events.>"`
	NATSQueue   string `env:"NATS_QUEUE,default=realtime"`

	PresenceScope       string `env:"PRESENCE_SCOPE,default=social"`
	SendBufferSize      int    `env:"SEND_BUFFER_SIZE,default=64"`
	WriteTimeoutSeconds int    `env:"WRITE_TIMEOUT_SECONDS,default=10"`
	PongTimeoutSeconds  int    `env:"PONG_TIMEOUT_SECONDS,default=60"`
}

func (s Settings) APIKeyList() []string {
	return splitList(s.APIKeys)
}

func (s Settings) AllowedOriginList() []string {
	return splitList(s.AllowedOrigins)
}

func (s Settings) WriteTimeout() time.Duration {
	return time.Duration(s.WriteTimeoutSeconds) * time.Second
}

func (s Settings) PongTimeout() time.Duration {
	return time.Duration(s.PongTimeoutSeconds) * time.Second
}

func (s Settings) NotificationRetention() time.Duration {
	return time.Duration(s.NotificationRetentionDays) * 24 * time.Hour
}

func splitList(value string) []string {
	var items []string

	for _, item := range strings.Split(value, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			items = append(items, item)
		}
	}

	return items
}
