package app

import (
	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/stripd/internal/config"
	"github.com/dokzlo13/stripd/internal/hue"
)

// HueService wraps the Hue mirror output. Mirror is nil unless the "hue"
// output is enabled.
type HueService struct {
	cfg    *config.Config
	Mirror *hue.Mirror
}

// NewHueService creates the mirror if enabled. The bridge is not contacted
// until the first frame is sent.
func NewHueService(cfg *config.Config) *HueService {
	s := &HueService{cfg: cfg}
	if !cfg.HasOutput(config.OutputHue) {
		log.Debug().Msg("Hue mirror disabled")
		return s
	}

	bridge := hue.Connect(cfg.Hue.Bridge, cfg.Hue.Token)
	s.Mirror = hue.NewMirror(bridge, cfg.Hue.LightID, cfg.Hue.RateLimitRPS)
	log.Info().Str("bridge", cfg.Hue.Bridge).Int("light_id", cfg.Hue.LightID).Msg("Hue mirror enabled")
	return s
}
