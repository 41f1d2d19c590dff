// Package hue mirrors strip frames onto a Philips Hue light.
package hue

import (
	"math"
	"sync"

	"github.com/amimof/huego"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/dokzlo13/stripd/internal/color"
	"github.com/dokzlo13/stripd/internal/metrics"
)

// LightSetter is the part of the bridge API the mirror needs.
// *huego.Bridge implements it.
type LightSetter interface {
	SetLightState(id int, state huego.State) (*huego.Response, error)
}

// Connect returns a bridge client for host authenticated with token.
func Connect(host, token string) *huego.Bridge {
	return huego.New(host, token)
}

// LightState is a light state in Hue units.
type LightState struct {
	On  bool
	Hue uint16 // 0..65535
	Sat uint8  // 0..254
	Bri uint8  // 1..254
}

// State converts to the bridge representation.
func (s LightState) State() huego.State {
	if !s.On {
		return huego.State{On: false}
	}
	return huego.State{On: true, Hue: s.Hue, Sat: s.Sat, Bri: s.Bri}
}

// StateFor averages the frame to a single color and converts it to Hue units.
// A black frame turns the light off.
func StateFor(frame []color.Color) LightState {
	if len(frame) == 0 {
		return LightState{}
	}

	var sr, sg, sb int
	for _, c := range frame {
		r, g, b := c.RGB()
		sr += int(r)
		sg += int(g)
		sb += int(b)
	}
	n := len(frame)
	avg := color.MustRGB(sr/n, sg/n, sb/n)

	h, s, v := avg.ToHSV().Values()
	if v == 0 {
		return LightState{}
	}
	return LightState{
		On:  true,
		Hue: uint16(math.Round(h / 360 * 65535)),
		Sat: uint8(math.Round(s * 254)),
		Bri: uint8(max(1, math.Round(v*254))),
	}
}

// Mirror is a strip output that keeps one Hue light showing the average
// frame color. Show never blocks on the network: states are handed to a
// sender goroutine through a one-slot mailbox that keeps only the newest.
type Mirror struct {
	setter  LightSetter
	lightID int
	limiter *rate.Limiter

	// Owned by the goroutine calling Show.
	last    LightState
	hasLast bool

	pending   chan LightState
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewMirror starts a mirror sending at most rps updates per second.
func NewMirror(setter LightSetter, lightID int, rps float64) *Mirror {
	if rps <= 0 {
		rps = 5
	}
	m := &Mirror{
		setter:  setter,
		lightID: lightID,
		limiter: rate.NewLimiter(rate.Limit(rps), max(1, int(rps))),
		pending: make(chan LightState, 1),
		done:    make(chan struct{}),
	}

	m.wg.Add(1)
	go m.sender()

	log.Info().Int("light_id", lightID).Float64("rate_limit_rps", rps).Msg("Hue mirror started")
	return m
}

// Show queues the frame's light state if it changed and the rate limit allows.
func (m *Mirror) Show(frame []color.Color) error {
	st := StateFor(frame)
	if m.hasLast && st == m.last {
		metrics.IncHueUpdate(metrics.HueSkipped)
		return nil
	}
	if !m.limiter.Allow() {
		metrics.IncHueUpdate(metrics.HueLimited)
		return nil
	}

	m.last, m.hasLast = st, true
	m.offer(st)
	return nil
}

func (m *Mirror) offer(st LightState) {
	select {
	case m.pending <- st:
		return
	default:
	}

	// Replace the stale state still waiting in the mailbox.
	select {
	case <-m.pending:
	default:
	}
	select {
	case m.pending <- st:
	default:
	}
}

func (m *Mirror) sender() {
	defer m.wg.Done()

	for {
		select {
		case <-m.done:
			return
		case st := <-m.pending:
			if _, err := m.setter.SetLightState(m.lightID, st.State()); err != nil {
				metrics.IncHueUpdate(metrics.HueFailed)
				log.Warn().Err(err).Int("light_id", m.lightID).Msg("Failed to update Hue light")
				continue
			}
			metrics.IncHueUpdate(metrics.HueSent)
		}
	}
}

// Close stops the sender goroutine and waits for an in-flight request.
func (m *Mirror) Close() error {
	m.closeOnce.Do(func() {
		close(m.done)
	})
	m.wg.Wait()
	return nil
}
