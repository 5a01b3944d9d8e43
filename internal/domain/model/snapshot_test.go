package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeviceSnapshot_State(t *testing.T) {
	tests := []struct {
		name     string
		snapshot DeviceSnapshot
		expected DeviceState
	}{
		{
			name:     "full_color",
			snapshot: DeviceSnapshot{On: true, Color: []float64{30, 50, 70}},
			expected: DeviceState{On: true, Hue: 30, Saturation: 50, Brightness: 70},
		},
		{
			name:     "short_color",
			snapshot: DeviceSnapshot{On: false, Color: []float64{10}},
			expected: DeviceState{On: false, Hue: 10},
		},
		{
			name:     "two_elements",
			snapshot: DeviceSnapshot{On: true, Color: []float64{200, 40}},
			expected: DeviceState{On: true, Hue: 200, Saturation: 40},
		},
		{
			name:     "no_color",
			snapshot: DeviceSnapshot{On: true},
			expected: DeviceState{On: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.snapshot.State())
		})
	}
}

func TestDeviceSnapshot_DecodeMissingColor(t *testing.T) {
	var s DeviceSnapshot
	require.NoError(t, json.Unmarshal([]byte(`{"mode":"solid","on":true}`), &s))
	assert.Equal(t, "solid", s.Mode)
	assert.Equal(t, DeviceState{On: true}, s.State())
}

func TestCommand_Encoding(t *testing.T) {
	tests := []struct {
		name    string
		command Command
		want    string
	}{
		{"power_on", PowerCommand(true), `{"on":1}`},
		{"power_off", PowerCommand(false), `{"on":0}`},
		{"hue", HueCommand(120), `{"hue":120}`},
		{"hue_zero", HueCommand(0), `{"hue":0}`},
		{"saturation", SaturationCommand(55.5), `{"saturation":55.5}`},
		{"brightness", BrightnessCommand(80), `{"brightness":80}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.command)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(data))
		})
	}
}

func TestUpdate_Empty(t *testing.T) {
	assert.True(t, Update{}.Empty())
	on := true
	assert.False(t, Update{On: &on}.Empty())
}

func TestControllerConfig_Coalesce(t *testing.T) {
	assert.True(t, ControllerConfig{}.Coalesce())
	off := false
	assert.False(t, ControllerConfig{CoalesceRefresh: &off}.Coalesce())
}
