package translator

import (
	"math"

	"github.com/amimof/huego"

	"lpd8806-bridge/internal/domain/model"
)

// Hue API ranges.
const (
	hueMax = 65535
	satMax = 254
	briMin = 1
	briMax = 254
)

// LightStrategy scales between Hue API units (hue 0-65535, sat 0-254, bri 1-254)
// and the strip units (degrees and percent). Values are otherwise passed through.
type LightStrategy struct{}

func NewLightStrategy() *LightStrategy {
	return &LightStrategy{}
}

func (s *LightStrategy) ToHue(state model.DeviceState) *huego.State {
	return &huego.State{
		On:        state.On,
		Hue:       uint16(clamp(math.Round(state.Hue/360*hueMax), 0, hueMax)),
		Sat:       uint8(clamp(math.Round(state.Saturation*satMax/100), 0, satMax)),
		Bri:       uint8(clamp(math.Round(state.Brightness*briMax/100), briMin, briMax)),
		ColorMode: "hs",
		Reachable: true,
	}
}

func (s *LightStrategy) FromHue(hueState map[string]interface{}) model.Update {
	var u model.Update
	if on, ok := hueState["on"].(bool); ok {
		u.On = &on
	}
	if hue, ok := hueState["hue"].(float64); ok {
		deg := math.Mod(math.Round(clamp(hue, 0, hueMax)*360/hueMax), 360)
		u.Hue = &deg
	}
	if sat, ok := hueState["sat"].(float64); ok {
		pct := math.Round(clamp(sat, 0, satMax) * 100 / satMax)
		u.Saturation = &pct
	}
	if bri, ok := hueState["bri"].(float64); ok {
		pct := math.Round(clamp(bri, briMin, briMax) * 100 / briMax)
		u.Brightness = &pct
	}
	return u
}

func (s *LightStrategy) GetMetadata() Metadata {
	return Metadata{
		Type:             "Extended color light",
		ModelID:          "LCT001",
		ManufacturerName: "Philips",
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
