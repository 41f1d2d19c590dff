package strip

import (
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/stripd/internal/color"
)

// Discard is an Output that drops every frame.
var Discard Output = discard{}

type discard struct{}

func (discard) Show([]color.Color) error { return nil }
func (discard) Close() error             { return nil }

// LogOutput logs a short summary of every frame at trace level.
type LogOutput struct{}

// Show logs the frame length and the first pixel.
func (LogOutput) Show(frame []color.Color) error {
	if len(frame) == 0 {
		return nil
	}
	log.Trace().
		Int("pixels", len(frame)).
		Str("first", frame[0].String()).
		Msg("Frame")
	return nil
}

// Close is a no-op.
func (LogOutput) Close() error { return nil }

// MultiOutput fans a frame out to several outputs. Every output receives the
// frame even if an earlier one fails; errors are joined.
type MultiOutput []Output

// Show forwards the frame to every output.
func (m MultiOutput) Show(frame []color.Color) error {
	var errs []error
	for _, out := range m {
		if err := out.Show(frame); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every output.
func (m MultiOutput) Close() error {
	var errs []error
	for _, out := range m {
		if err := out.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
