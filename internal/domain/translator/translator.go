package translator

import (
	"github.com/amimof/huego"

	"lpd8806-bridge/internal/domain/model"
)

// Metadata describes how a light presents itself on the Hue API.
type Metadata struct {
	Type             string
	ModelID          string
	ManufacturerName string
}

// Translator defines the interface for translating between Hue API state and the strip state
type Translator interface {
	ToHue(state model.DeviceState) *huego.State
	FromHue(hueState map[string]interface{}) model.Update
	GetMetadata() Metadata
}
