package payment

import (
	"fmt"

	"auction-marketplace/internal/config"
	"auction-marketplace/internal/domain"
	"auction-marketplace/pkg/logger"
)

// NewGateway selects the gateway named by cfg.Mode.
func NewGateway(cfg config.PaymentConfig, log logger.Logger) (domain.PaymentGateway, error) {
	switch cfg.Mode {
	case "sandbox":
		return NewSandboxGateway(log), nil
	case "http":
		return NewHTTPGateway(cfg.Endpoint, cfg.APIKey, cfg.Currency, cfg.Timeout), nil
	default:
		return nil, fmt.Errorf("unsupported payment mode %q", cfg.Mode)
	}
}
