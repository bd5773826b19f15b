package entity

import (
	"errors"
	"fmt"
)

var (
	ErrNotConnected    = errors.New("lighting device is not connected")
	ErrNoDevice        = errors.New("no lighting device found")
	ErrDisconnected    = errors.New("lighting device disconnected")
	ErrAckTimeout      = errors.New("acknowledgement timed out")
	ErrCaptureTimeout  = errors.New("camera capture timed out")
	ErrUnexpectedAck   = errors.New("unexpected acknowledgement")
	ErrCommandInFlight = errors.New("another lighting command is in flight")
	ErrBusy            = errors.New("capture run already in progress")
	ErrReportNotFound  = errors.New("report not found")
)

// DeviceError сбой связи с контроллером подсветки.
type DeviceError struct {
	Op  string
	Err error
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("device %s: %v", e.Op, e.Err)
}

func (e *DeviceError) Unwrap() error { return e.Err }

// CaptureError сбой последовательности съёмки. Прогон прерывается целиком.
type CaptureError struct {
	Step string
	Err  error
}

func (e *CaptureError) Error() string {
	return fmt.Sprintf("capture %s: %v", e.Step, e.Err)
}

func (e *CaptureError) Unwrap() error { return e.Err }

// ValidationError входные изображения не согласованы.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation: " + e.Reason
}

// InferenceError сбой загрузки или запуска модели.
type InferenceError struct {
	Err error
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("inference: %v", e.Err)
}

func (e *InferenceError) Unwrap() error { return e.Err }
