package wizard

import (
	"time"

	"nicepods-server/creation-service/internal/draft"
	"nicepods-server/creation-service/internal/flow"
)

// Config - настройки мастера.
type Config struct {
	Flow              flow.Options
	AutosaveDelay     time.Duration
	GenerationTimeout time.Duration
	FrameInterval     time.Duration
}

func (c Config) withDefaults() Config {
	if c.AutosaveDelay <= 0 {
		c.AutosaveDelay = 1500 * time.Millisecond
	}
	if c.GenerationTimeout <= 0 {
		c.GenerationTimeout = draft.DefaultGenerationTimeout
	}
	return c
}
