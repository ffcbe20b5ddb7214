// Package config содержит логику чтения конфигурации сервиса.
package config

import (
	"flag"
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config содержит параметры конфигурации сервиса.
type Config struct {
	RunAddress  string `env:"RUN_ADDRESS"`
	DatabaseURI string `env:"DATABASE_URI"`

	CardGatewayAddress string `env:"CARD_GATEWAY_ADDRESS"`
	CardGatewayKey     string `env:"CARD_GATEWAY_KEY"`

	InstantGatewayAddress   string `env:"INSTANT_GATEWAY_ADDRESS"`
	InstantGatewayKeyID     string `env:"INSTANT_GATEWAY_KEY_ID"`
	InstantGatewayKeySecret string `env:"INSTANT_GATEWAY_KEY_SECRET"`

	// PaymentCeilingCents ограничивает сумму одного платёжного намерения
	// в минорных единицах валюты.
	PaymentCeilingCents int64 `env:"PAYMENT_CEILING"`

	AdminSecret   string `env:"ADMIN_SECRET"`
	AdminPassword string `env:"ADMIN_PASSWORD"`
}

// DefaultPaymentCeilingCents применяется, если потолок платежа не задан.
const DefaultPaymentCeilingCents = 50_000_000

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
func Parse() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envRunAddress := cfg.RunAddress
	envDatabaseURI := cfg.DatabaseURI
	envCardAddress := cfg.CardGatewayAddress
	envInstantAddress := cfg.InstantGatewayAddress

	flag.StringVar(&cfg.RunAddress, "a", "localhost:8080", "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI")
	flag.StringVar(&cfg.CardGatewayAddress, "card", "", "card gateway base address")
	flag.StringVar(&cfg.InstantGatewayAddress, "instant", "", "instant payment gateway base address")

	flag.Parse()

	if envRunAddress != "" {
		cfg.RunAddress = envRunAddress
	}
	if envDatabaseURI != "" {
		cfg.DatabaseURI = envDatabaseURI
	}
	if envCardAddress != "" {
		cfg.CardGatewayAddress = envCardAddress
	}
	if envInstantAddress != "" {
		cfg.InstantGatewayAddress = envInstantAddress
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = "localhost:8080"
	}
	if cfg.PaymentCeilingCents <= 0 {
		cfg.PaymentCeilingCents = DefaultPaymentCeilingCents
	}

	return cfg, nil
}
