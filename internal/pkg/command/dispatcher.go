// Package command translates user gestures into capability execution calls.
package command

import (
	"context"
	"fmt"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/anicoll/homedash/internal/pkg/model"
)

type executor interface {
	ExecuteWidget(ctx context.Context, widgetID string, req model.ExecuteRequest) (*model.ExecuteResult, error)
}

type refresher interface {
	Refresh(ctx context.Context) error
}

// Command is a single capability execution together with the device
// capability it needs.
type Command struct {
	Capability string
	Params     map[string]any
	Requires   string
}

func Toggle(desired bool) Command {
	return Command{
		Capability: model.CapabilityToggle,
		Params:     map[string]any{"desiredState": desired},
		Requires:   model.CapabilityToggle,
	}
}

// Switch is the explicit on/off command used by action buttons.
func Switch(on bool) Command {
	return Command{
		Capability: lo.Ternary(on, "on", "off"),
		Requires:   model.CapabilitySwitch,
	}
}

// SwitchViaToggle is the on/off command of switch widgets, derived from toggle.
func SwitchViaToggle(on bool) Command {
	return Toggle(on)
}

func Brightness(value int) Command {
	return Command{
		Capability: model.CapabilityDim,
		Params:     map[string]any{"brightness": clamp(value, 0, 100)},
		Requires:   model.CapabilityDim,
	}
}

func WhiteTemperature(kelvin int) Command {
	return Command{
		Capability: model.CapabilityTemperature,
		Params:     map[string]any{"kelvin": clamp(kelvin, MinKelvin, MaxKelvin)},
		Requires:   model.CapabilityTemperature,
	}
}

func Color(hex string) Command {
	return Command{
		Capability: model.CapabilityColor,
		Params:     map[string]any{"color": hex},
		Requires:   model.CapabilityColor,
	}
}

// Dispatcher issues commands for the devices of one widget instance.
type Dispatcher struct {
	exec      executor
	refresher refresher
	widget    model.DashboardWidget
	logger    *zap.Logger
}

func NewDispatcher(exec executor, refresher refresher, widget model.DashboardWidget) *Dispatcher {
	return &Dispatcher{
		exec:      exec,
		refresher: refresher,
		widget:    widget,
		logger:    zap.L(),
	}
}

// Supports reports whether at least one device has the capability.
func (d *Dispatcher) Supports(capability string) bool {
	return lo.SomeBy(d.widget.Devices, func(dev model.Device) bool {
		return dev.Capabilities.Has(capability)
	})
}

// Execute validates and sends a command, then waits for a state refresh.
func (d *Dispatcher) Execute(ctx context.Context, cmd Command) (*model.ExecuteResult, error) {
	if err := d.check(cmd); err != nil {
		return nil, err
	}
	res, err := d.exec.ExecuteWidget(ctx, d.widget.ID, model.ExecuteRequest{
		Capability: cmd.Capability,
		Params:     cmd.Params,
	})
	if err != nil {
		d.logger.Error("command failed",
			zap.String("widget_id", d.widget.ID),
			zap.String("capability", cmd.Capability),
			zap.Error(err))
		return nil, err
	}
	d.logFailures(cmd, res)
	if d.refresher != nil {
		if err := d.refresher.Refresh(ctx); err != nil {
			d.logger.Warn("refresh after command failed", zap.String("widget_id", d.widget.ID), zap.Error(err))
		}
	}
	return res, nil
}

// Toggle sets every device of the widget to the desired state.
func (d *Dispatcher) Toggle(ctx context.Context, desired bool) error {
	_, err := d.Execute(ctx, Toggle(desired))
	return err
}

func (d *Dispatcher) check(cmd Command) error {
	if len(d.widget.Devices) == 0 {
		return ErrNoDevices
	}
	if cmd.Requires == "" || d.Supports(cmd.Requires) {
		return nil
	}
	d.logger.Warn("command refused, capability missing",
		zap.String("widget_id", d.widget.ID),
		zap.String("capability", cmd.Requires),
		zap.Strings("device_ids", lo.Map(d.widget.Devices, func(dev model.Device, _ int) string { return dev.ID })),
		zap.Strings("device_names", lo.Map(d.widget.Devices, func(dev model.Device, _ int) string { return dev.Name })),
		zap.Strings("device_types", lo.Map(d.widget.Devices, func(dev model.Device, _ int) string { return dev.Type })),
		zap.Any("capabilities", lo.Map(d.widget.Devices, func(dev model.Device, _ int) model.Capabilities { return dev.Capabilities })),
	)
	return fmt.Errorf("%s: %w", cmd.Requires, ErrCapabilityMissing)
}

func (d *Dispatcher) logFailures(cmd Command, res *model.ExecuteResult) {
	if res == nil {
		return
	}
	for _, r := range res.Results {
		if r.Success {
			continue
		}
		d.logger.Warn("device rejected command",
			zap.String("widget_id", d.widget.ID),
			zap.String("device_id", r.DeviceID),
			zap.String("capability", cmd.Capability),
			zap.String("error", r.Error))
	}
}

func clamp(v, low, high int) int {
	return max(low, min(v, high))
}
