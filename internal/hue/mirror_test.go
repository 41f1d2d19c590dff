package hue

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/amimof/huego"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dokzlo13/stripd/internal/color"
)

type fakeSetter struct {
	mu     sync.Mutex
	states []huego.State
	err    error
}

func (f *fakeSetter) SetLightState(id int, st huego.State) (*huego.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.states = append(f.states, st)
	return &huego.Response{}, f.err
}

func (f *fakeSetter) sent() []huego.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]huego.State(nil), f.states...)
}

func frameOf(n int, c color.Color) []color.Color {
	frame := make([]color.Color, n)
	for i := range frame {
		frame[i] = c
	}
	return frame
}

func TestStateFor(t *testing.T) {
	tests := []struct {
		name  string
		frame []color.Color
		want  LightState
	}{
		{"empty", nil, LightState{}},
		{"black turns off", frameOf(4, color.Black), LightState{}},
		{"red", frameOf(4, color.Red), LightState{On: true, Hue: 0, Sat: 254, Bri: 254}},
		{"blue", frameOf(4, color.Blue), LightState{On: true, Hue: 43690, Sat: 254, Bri: 254}},
		{"white", frameOf(2, color.White), LightState{On: true, Hue: 0, Sat: 0, Bri: 254}},
		{"half lit averages", []color.Color{color.White, color.Black}, LightState{On: true, Hue: 0, Sat: 0, Bri: 127}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StateFor(tt.frame))
		})
	}
}

func TestLightState_State(t *testing.T) {
	st := LightState{On: true, Hue: 100, Sat: 200, Bri: 50}.State()
	assert.True(t, st.On)
	assert.Equal(t, uint16(100), st.Hue)
	assert.Equal(t, uint8(200), st.Sat)
	assert.Equal(t, uint8(50), st.Bri)

	assert.False(t, LightState{}.State().On)
}

func TestMirror_SendsOnlyChanges(t *testing.T) {
	setter := &fakeSetter{}
	m := NewMirror(setter, 7, 1000)

	require.NoError(t, m.Show(frameOf(3, color.Red)))
	assert.Eventually(t, func() bool { return len(setter.sent()) == 1 }, time.Second, time.Millisecond)

	require.NoError(t, m.Show(frameOf(3, color.Red)))
	require.NoError(t, m.Show(frameOf(3, color.Blue)))
	assert.Eventually(t, func() bool { return len(setter.sent()) == 2 }, time.Second, time.Millisecond)

	require.NoError(t, m.Close())
	sent := setter.sent()
	assert.Equal(t, uint16(43690), sent[1].Hue)
}

func TestMirror_RateLimited(t *testing.T) {
	setter := &fakeSetter{}
	m := NewMirror(setter, 1, 1)
	defer m.Close()

	require.NoError(t, m.Show(frameOf(3, color.Red)))
	require.NoError(t, m.Show(frameOf(3, color.Blue)))
	require.NoError(t, m.Show(frameOf(3, color.Green)))

	assert.Eventually(t, func() bool { return len(setter.sent()) == 1 }, time.Second, time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Len(t, setter.sent(), 1, "burst of one per second")
}

func TestMirror_SendErrorsAreSwallowed(t *testing.T) {
	setter := &fakeSetter{err: errors.New("bridge unreachable")}
	m := NewMirror(setter, 1, 1000)

	assert.NoError(t, m.Show(frameOf(3, color.Red)))
	assert.Eventually(t, func() bool { return len(setter.sent()) == 1 }, time.Second, time.Millisecond)
	assert.NoError(t, m.Close())
	assert.NoError(t, m.Close())
}
