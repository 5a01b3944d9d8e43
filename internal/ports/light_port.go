package ports

import (
	"context"

	"lpd8806-bridge/internal/domain/model"
)

// LightPort is the caller-facing contract consumed by hub adapters.
//
// Getters return the cached value immediately and schedule a background refresh.
// Setters write the value locally before the device answers and report the outcome
// on the returned channel, which receives exactly one Result and is then closed.
type LightPort interface {
	On() bool
	Hue() float64
	Saturation() float64
	Brightness() float64
	Current() model.DeviceState

	SetOn(ctx context.Context, on bool) <-chan model.Result[bool]
	SetHue(ctx context.Context, hue float64) <-chan model.Result[float64]
	SetSaturation(ctx context.Context, saturation float64) <-chan model.Result[float64]
	SetBrightness(ctx context.Context, brightness float64) <-chan model.Result[float64]

	// Refresh fetches the device state now and returns any failure.
	Refresh(ctx context.Context) error
	// Subscribe registers fn for every state published after a refresh.
	Subscribe(fn func(model.DeviceState)) (unsubscribe func())
	Unconfirmed() []model.Field
}
