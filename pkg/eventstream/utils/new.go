// Package eventstreamutils builds the configured event publisher.
package eventstreamutils

import (
	"fmt"
	"log/slog"

	"github.com/Sakibyash/infinoz-bot1/pkg/config"
	"github.com/Sakibyash/infinoz-bot1/pkg/eventstream"
	"github.com/Sakibyash/infinoz-bot1/pkg/eventstream/async"
	"github.com/Sakibyash/infinoz-bot1/pkg/eventstream/kafka"
	"github.com/Sakibyash/infinoz-bot1/pkg/eventstream/nop"
)

// NewPublisher returns the publisher named by cfg.Provider.
func NewPublisher(cfg config.EventsConfig, logger *slog.Logger) (eventstream.Publisher, error) {
	switch cfg.Provider {
	case "", "nop", "none":
		return nop.NewPublisher(), nil
	case "kafka":
		p, err := kafka.NewPublisher(kafka.Config{
			Brokers: cfg.Brokers,
			Topic:   cfg.Topic,
		}, logger)
		if err != nil {
			return nil, err
		}
		if !cfg.Async {
			return p, nil
		}
		return async.NewPool(p, async.Config{Logger: logger})
	default:
		return nil, fmt.Errorf("unsupported events provider: %s", cfg.Provider)
	}
}
