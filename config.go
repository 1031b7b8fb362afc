// config.go
package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"
)

type Config struct {
	Host            string        `env:"HOST"`
	Port            int           `env:"PORT,default=5000"`
	LogLevel        string        `env:"LOG_LEVEL,default=INFO"`
	AllowedOrigins  string        `env:"ALLOWED_ORIGINS,default=http://localhost:5173"`
	SendBufferSize  int           `env:"SEND_BUFFER_SIZE,default=256"`
	MaxMessageSize  int           `env:"MAX_MESSAGE_SIZE,default=65536"`
	WriteWait       time.Duration `env:"WRITE_WAIT,default=10s"`
	PongWait        time.Duration `env:"PONG_WAIT,default=60s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT,default=30s"`
}

func (c Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func (c Config) Limits() Limits {
	return Limits{
		SendBuffer:     c.SendBufferSize,
		MaxMessageSize: int64(c.MaxMessageSize),
		WriteWait:      c.WriteWait,
		PongWait:       c.PongWait,
	}
}

// Origins splits ALLOWED_ORIGINS on commas. "*" allows any origin.
func (c Config) Origins() []string {
	origins := lo.Map(strings.Split(c.AllowedOrigins, ","), func(o string, _ int) string {
		return strings.TrimSpace(o)
	})
	return lo.Compact(origins)
}

func (c Config) Validate() error {
	if c.SendBufferSize <= 0 {
		return fmt.Errorf("SEND_BUFFER_SIZE must be positive, got %d", c.SendBufferSize)
	}
	if c.MaxMessageSize <= 0 {
		return fmt.Errorf("MAX_MESSAGE_SIZE must be positive, got %d", c.MaxMessageSize)
	}
	if c.PongWait <= 0 || c.WriteWait <= 0 {
		return fmt.Errorf("PONG_WAIT and WRITE_WAIT must be positive")
	}
	return nil
}
