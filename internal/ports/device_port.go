package ports

import (
	"context"

	"lpd8806-bridge/internal/domain/model"
)

// DevicePort talks to the light strip controller. One call is one round trip;
// nothing is retried.
type DevicePort interface {
	FetchState(ctx context.Context) (*model.DeviceSnapshot, error)
	SetPower(ctx context.Context, on bool) error
	SetHue(ctx context.Context, hue float64) error
	SetSaturation(ctx context.Context, saturation float64) error
	SetBrightness(ctx context.Context, brightness float64) error
}
