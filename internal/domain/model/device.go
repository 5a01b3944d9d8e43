package model

// Field names one of the four controllable properties of the strip.
type Field string

const (
	FieldOn         Field = "on"
	FieldHue        Field = "hue"
	FieldSaturation Field = "saturation"
	FieldBrightness Field = "brightness"
)

// Fields lists every Field in a stable order.
var Fields = []Field{FieldOn, FieldHue, FieldSaturation, FieldBrightness}

// DeviceState is the local mirror of the light strip.
// Hue is in degrees [0, 360), Saturation and Brightness in percent [0, 100].
// No cross-field validation happens here; the device decides what is legal.
type DeviceState struct {
	On         bool    `json:"on"`
	Hue        float64 `json:"hue"`
	Saturation float64 `json:"saturation"`
	Brightness float64 `json:"brightness"`
}

// Update is a sparse set of changes. Nil fields are left untouched.
type Update struct {
	On         *bool
	Hue        *float64
	Saturation *float64
	Brightness *float64
}

// Empty reports whether the update carries no change at all.
func (u Update) Empty() bool {
	return u.On == nil && u.Hue == nil && u.Saturation == nil && u.Brightness == nil
}

// Result is the completion of an asynchronous set: the echoed value, or the error
// returned by the device.
type Result[T any] struct {
	Value T
	Err   error
}
