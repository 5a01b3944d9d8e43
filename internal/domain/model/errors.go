package model

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingDeviceURL is returned when no device base URL was configured.
	ErrMissingDeviceURL = errors.New("device URL not supplied")
	// ErrMissingDevice is returned when a controller is built without a device port.
	ErrMissingDevice = errors.New("device port not supplied")
)

// HTTPStatusError is a non-success HTTP answer from the device.
type HTTPStatusError struct {
	Method string
	Code   int
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("device %s error: HTTP %d", e.Method, e.Code)
}

// DeviceStatusError is a device-reported failure: the "status" field of a POST
// answer was something other than the number 0.
type DeviceStatusError struct {
	Status interface{}
}

func (e *DeviceStatusError) Error() string {
	return fmt.Sprintf("device reported status %v", e.Status)
}
