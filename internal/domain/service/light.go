package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/olebedev/emitter"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"lpd8806-bridge/internal/domain/model"
	"lpd8806-bridge/internal/ports"
)

const (
	topicState = "state"
	refreshKey = "device"

	defaultSetTimeout     = 10 * time.Second
	defaultRefreshTimeout = 10 * time.Second
)

// LightService owns the local mirror of the strip. Reads are answered from the
// mirror and trigger a background refresh; writes land locally first and reach
// the device asynchronously.
//
// The mutex only guards the mirror and is never held across device I/O.
type LightService struct {
	device ports.DevicePort

	mu          sync.RWMutex
	state       model.DeviceState
	unconfirmed map[model.Field]bool
	setSeq      map[model.Field]uint64 // latest set per field

	events    emitter.Emitter
	refreshes singleflight.Group
	coalesce  bool

	setTimeout     time.Duration
	refreshTimeout time.Duration

	wg sync.WaitGroup
}

func NewLightService(device ports.DevicePort, cfg model.ControllerConfig) (*LightService, error) {
	if device == nil {
		return nil, model.ErrMissingDevice
	}

	s := &LightService{
		device:         device,
		unconfirmed:    make(map[model.Field]bool),
		setSeq:         make(map[model.Field]uint64),
		coalesce:       cfg.Coalesce(),
		setTimeout:     cfg.SetTimeout.Duration(),
		refreshTimeout: cfg.RefreshTimeout.Duration(),
	}
	if s.setTimeout <= 0 {
		s.setTimeout = defaultSetTimeout
	}
	if s.refreshTimeout <= 0 {
		s.refreshTimeout = defaultRefreshTimeout
	}
	// flat callbacks
	s.events.Use("*", emitter.Void)

	return s, nil
}

// State returns a copy of the mirror without touching the device.
func (s *LightService) State() model.DeviceState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Current returns a copy of the mirror and schedules a refresh.
func (s *LightService) Current() model.DeviceState {
	st := s.State()
	s.scheduleRefresh()
	return st
}

func (s *LightService) On() bool {
	return s.Current().On
}

func (s *LightService) Hue() float64 {
	return s.Current().Hue
}

func (s *LightService) Saturation() float64 {
	return s.Current().Saturation
}

func (s *LightService) Brightness() float64 {
	return s.Current().Brightness
}

func (s *LightService) SetOn(ctx context.Context, on bool) <-chan model.Result[bool] {
	return set(s, ctx, model.FieldOn, on, func(st *model.DeviceState) { st.On = on }, s.device.SetPower)
}

func (s *LightService) SetHue(ctx context.Context, hue float64) <-chan model.Result[float64] {
	return set(s, ctx, model.FieldHue, hue, func(st *model.DeviceState) { st.Hue = hue }, s.device.SetHue)
}

func (s *LightService) SetSaturation(ctx context.Context, saturation float64) <-chan model.Result[float64] {
	return set(s, ctx, model.FieldSaturation, saturation, func(st *model.DeviceState) { st.Saturation = saturation }, s.device.SetSaturation)
}

func (s *LightService) SetBrightness(ctx context.Context, brightness float64) <-chan model.Result[float64] {
	return set(s, ctx, model.FieldBrightness, brightness, func(st *model.DeviceState) { st.Brightness = brightness }, s.device.SetBrightness)
}

// set writes the value into the mirror, then sends it to the device in the
// background. A failed send keeps the written value and leaves the field
// unconfirmed until a later set or refresh succeeds. An older set finishing
// after a newer one does not change the flag.
func set[T any](s *LightService, ctx context.Context, field model.Field, value T,
	write func(*model.DeviceState), send func(context.Context, T) error) <-chan model.Result[T] {

	s.mu.Lock()
	write(&s.state)
	s.unconfirmed[field] = true
	s.setSeq[field]++
	seq := s.setSeq[field]
	s.mu.Unlock()

	log.Debug().Str("field", string(field)).Interface("value", value).Msg("Local state updated")

	done := make(chan model.Result[T], 1)
	// The hub may drop its request as soon as we return; the device call must outlive it.
	ctx = context.WithoutCancel(ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer close(done)

		ctx, cancel := context.WithTimeout(ctx, s.setTimeout)
		defer cancel()

		err := send(ctx, value)

		// Only the newest set for the field decides whether the mirror is confirmed.
		s.mu.Lock()
		if s.setSeq[field] == seq {
			s.unconfirmed[field] = err != nil
		}
		s.mu.Unlock()

		if err != nil {
			log.Error().Err(err).Str("field", string(field)).Interface("value", value).Msg("Error setting light strip state")
		}
		done <- model.Result[T]{Value: value, Err: err}
	}()

	return done
}

// Refresh fetches the device state, applies it and publishes it.
// Unlike the refresh triggered by getters, failures reach the caller.
func (s *LightService) Refresh(ctx context.Context) error {
	return s.refresh(ctx)
}

// Unconfirmed lists the fields whose last write was not acknowledged by the device.
func (s *LightService) Unconfirmed() []model.Field {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var fields []model.Field
	for _, f := range model.Fields {
		if s.unconfirmed[f] {
			fields = append(fields, f)
		}
	}
	return fields
}

// Subscribe calls fn with every state applied by a successful refresh.
func (s *LightService) Subscribe(fn func(model.DeviceState)) func() {
	ch := s.events.On(topicState, func(e *emitter.Event) {
		if len(e.Args) == 0 {
			return
		}
		if st, ok := e.Args[0].(model.DeviceState); ok {
			fn(st)
		}
	})
	return func() {
		s.events.Off(topicState, ch)
	}
}

// Wait blocks until every background set and refresh has finished.
func (s *LightService) Wait() {
	s.wg.Wait()
}

func (s *LightService) scheduleRefresh() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), s.refreshTimeout)
		defer cancel()

		// failures are already logged by fetch; the reader has its answer
		_ = s.refresh(ctx)
	}()
}

func (s *LightService) refresh(ctx context.Context) error {
	if !s.coalesce {
		return s.fetch(ctx)
	}

	// The shared fetch must not die with whichever caller started it.
	ch := s.refreshes.DoChan(refreshKey, func() (interface{}, error) {
		ctx, cancel := context.WithTimeout(context.Background(), s.refreshTimeout)
		defer cancel()
		return nil, s.fetch(ctx)
	})

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *LightService) fetch(ctx context.Context) error {
	snapshot, err := s.device.FetchState(ctx)
	if err == nil && snapshot == nil {
		err = errors.New("empty device state")
	}
	if err != nil {
		log.Warn().Err(err).Msg("Error getting state for light strip")
		return err
	}

	st := snapshot.State()

	s.mu.Lock()
	s.state = st
	clear(s.unconfirmed)
	s.mu.Unlock()

	log.Debug().
		Bool("on", st.On).
		Float64("hue", st.Hue).
		Float64("saturation", st.Saturation).
		Float64("brightness", st.Brightness).
		Str("mode", snapshot.Mode).
		Msg("Device state refreshed")

	<-s.events.Emit(topicState, st)
	return nil
}
