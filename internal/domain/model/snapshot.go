package model

// DeviceSnapshot is the body returned by GET on the device endpoint.
// Color is positional: hue, saturation, brightness. Elements may be missing.
type DeviceSnapshot struct {
	Mode  string    `json:"mode"`
	On    bool      `json:"on"`
	Color []float64 `json:"color"`
}

// State maps the snapshot onto a DeviceState. Missing color elements become 0.
func (s DeviceSnapshot) State() DeviceState {
	return DeviceState{
		On:         s.On,
		Hue:        s.color(0),
		Saturation: s.color(1),
		Brightness: s.color(2),
	}
}

func (s DeviceSnapshot) color(i int) float64 {
	if i < len(s.Color) {
		return s.Color[i]
	}
	return 0
}

// Command is the sparse body POSTed to the device. Each setter fills exactly one field.
// On is an integer on the wire: 1 for on, 0 for off.
type Command struct {
	On         *int     `json:"on,omitempty"`
	Hue        *float64 `json:"hue,omitempty"`
	Saturation *float64 `json:"saturation,omitempty"`
	Brightness *float64 `json:"brightness,omitempty"`
}

// PowerCommand builds the command switching the strip on or off.
func PowerCommand(on bool) Command {
	v := 0
	if on {
		v = 1
	}
	return Command{On: &v}
}

func HueCommand(hue float64) Command { return Command{Hue: &hue} }

func SaturationCommand(saturation float64) Command { return Command{Saturation: &saturation} }

func BrightnessCommand(brightness float64) Command { return Command{Brightness: &brightness} }
