package printing

import (
	"errors"
	"fmt"
)

var (
	ErrNoDevices       = errors.New("no output devices found")
	ErrNoDefaultDevice = errors.New("no default output device")
	ErrDeviceNotFound  = errors.New("output device not found")
	ErrJobState        = errors.New("invalid print job state")
)

// DeviceQueryError reports that the print subsystem could not be queried or
// returned no usable default device.
type DeviceQueryError struct {
	Op  string
	Err error
}

func (e *DeviceQueryError) Error() string {
	return fmt.Sprintf("device query %s: %v", e.Op, e.Err)
}

func (e *DeviceQueryError) Unwrap() error { return e.Err }

// SubmissionError reports a failure while opening a device, running the job
// lifecycle or transferring bytes.
type SubmissionError struct {
	Device string
	Stage  string
	Err    error
}

func (e *SubmissionError) Error() string {
	if e.Device == "" {
		return fmt.Sprintf("print submission failed at %s: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("print submission to %q failed at %s: %v", e.Device, e.Stage, e.Err)
}

func (e *SubmissionError) Unwrap() error { return e.Err }
