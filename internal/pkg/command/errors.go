package command

import "errors"

var (
	// ErrCapabilityMissing is returned when no device on the widget supports a command.
	ErrCapabilityMissing = errors.New("capability not supported by any device")

	// ErrNoDevices is returned for widgets without an associated device.
	ErrNoDevices = errors.New("no device connected")
)
