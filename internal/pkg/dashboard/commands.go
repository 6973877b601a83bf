package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/anicoll/homedash/internal/pkg/command"
	"github.com/anicoll/homedash/internal/pkg/model"
	"github.com/anicoll/homedash/internal/pkg/widget"
)

// requirement returns the device capability a raw capability call needs.
func requirement(capability string) string {
	switch capability {
	case "on", "off":
		return model.CapabilitySwitch
	case model.CapabilityToggle, model.CapabilityDim, model.CapabilityColor, model.CapabilityTemperature:
		return capability
	}
	return ""
}

func (s *Service) execute(ctx context.Context, widgetID string, cmd command.Command) error {
	inst, err := s.instance(widgetID)
	if err != nil {
		return err
	}
	d, err := s.dispatcher(widgetID)
	if err != nil {
		return err
	}
	inst.busy.Add(1)
	defer inst.busy.Add(-1)
	_, err = d.Execute(ctx, cmd)
	return err
}

// Toggle sets every device of the widget to desired and waits for the
// following state refresh.
func (s *Service) Toggle(ctx context.Context, widgetID string, desired bool) error {
	return s.execute(ctx, widgetID, command.Toggle(desired))
}

// SetPower switches the widget on or off. Action buttons use the explicit
// switch capability, other widgets derive it from toggle.
func (s *Service) SetPower(ctx context.Context, widgetID string, on bool) error {
	inst, err := s.instance(widgetID)
	if err != nil {
		return err
	}
	s.mu.RLock()
	kind := inst.spec.Kind
	s.mu.RUnlock()
	if kind == widget.KindActionButton {
		return s.execute(ctx, widgetID, command.Switch(on))
	}
	return s.execute(ctx, widgetID, command.SwitchViaToggle(on))
}

// Execute runs a raw capability call against every device of the widget.
func (s *Service) Execute(ctx context.Context, widgetID, capability string, params map[string]any) error {
	return s.execute(ctx, widgetID, command.Command{
		Capability: capability,
		Params:     params,
		Requires:   requirement(capability),
	})
}

// OnChildCommand runs a command raised by a widget rendered inside a
// section. A device id targets that single device, otherwise the whole
// child widget.
func (s *Service) OnChildCommand(ctx context.Context, childID, capability string, params map[string]any, deviceID string) error {
	if deviceID == "" {
		return s.Execute(ctx, childID, capability, params)
	}

	inst, err := s.instance(childID)
	if err != nil {
		return err
	}
	s.mu.RLock()
	dev, found := lo.Find(inst.widget.Devices, func(d model.Device) bool { return d.ID == deviceID })
	s.mu.RUnlock()
	if !found {
		return fmt.Errorf("%w: %s", ErrDeviceNotFound, deviceID)
	}
	if req := requirement(capability); req != "" && !dev.Capabilities.Has(req) {
		s.logger.Warn("command refused, capability missing",
			zap.String("widget_id", childID),
			zap.String("device_id", dev.ID),
			zap.String("device_name", dev.Name),
			zap.String("device_type", dev.Type),
			zap.Any("capabilities", dev.Capabilities),
			zap.String("capability", req))
		return fmt.Errorf("%s: %w", req, command.ErrCapabilityMissing)
	}

	inst.busy.Add(1)
	defer inst.busy.Add(-1)
	res, err := s.api.ExecuteDevice(ctx, deviceID, model.ExecuteRequest{Capability: capability, Params: params})
	if err != nil {
		s.logger.Error("device command failed",
			zap.String("widget_id", childID),
			zap.String("device_id", deviceID),
			zap.String("capability", capability),
			zap.Error(err))
		return err
	}
	if res != nil && !res.Success {
		s.logger.Warn("device rejected command", zap.String("device_id", deviceID), zap.String("capability", capability))
	}
	if err := inst.poller.Refresh(ctx); err != nil {
		s.logger.Warn("refresh after command failed", zap.String("widget_id", childID), zap.Error(err))
	}
	return nil
}

func (s *Service) control(widgetID, capability string, pick func(*instance) *command.Control[int]) (*command.Control[int], error) {
	d, err := s.dispatcher(widgetID)
	if err != nil {
		return nil, err
	}
	if !d.Supports(capability) {
		return nil, fmt.Errorf("%s: %w", capability, command.ErrCapabilityMissing)
	}
	inst, err := s.instance(widgetID)
	if err != nil {
		return nil, err
	}
	return pick(inst), nil
}

// SetBrightness updates the brightness optimistically and commits it
// after the debounce quiet period.
func (s *Service) SetBrightness(widgetID string, value int) error {
	c, err := s.control(widgetID, model.CapabilityDim, func(i *instance) *command.Control[int] { return i.brightness })
	if err != nil {
		return err
	}
	c.Set(max(0, min(value, 100)))
	return nil
}

func (s *Service) SetWhiteTemperature(widgetID string, kelvin int) error {
	c, err := s.control(widgetID, model.CapabilityTemperature, func(i *instance) *command.Control[int] { return i.temperature })
	if err != nil {
		return err
	}
	c.Set(max(command.MinKelvin, min(kelvin, command.MaxKelvin)))
	return nil
}

// SetHue commits a colour wheel hue. Widgets without colour support fall
// back to a white temperature derived from the hue.
func (s *Service) SetHue(widgetID string, hue int) error {
	d, err := s.dispatcher(widgetID)
	if err != nil {
		return err
	}
	if !d.Supports(model.CapabilityColor) && !d.Supports(model.CapabilityTemperature) {
		return fmt.Errorf("%s: %w", model.CapabilityColor, command.ErrCapabilityMissing)
	}
	inst, err := s.instance(widgetID)
	if err != nil {
		return err
	}
	inst.hue.Set(((hue % 360) + 360) % 360)
	return nil
}

// SetWheelPointer converts a pointer offset from the wheel centre into a
// hue and commits it.
func (s *Service) SetWheelPointer(widgetID string, dx, dy float64) (int, error) {
	hue := command.HueFromAngle(command.AngleFromPointer(dx, dy))
	return hue, s.SetHue(widgetID, hue)
}

// stateNumber returns the first numeric value found under one of keys in
// the device state maps, looking one level into a nested "state" map.
func stateNumber(devices []model.DeviceState, keys ...string) (int, bool) {
	for _, d := range devices {
		m, ok := d.State.(map[string]any)
		if !ok {
			continue
		}
		for _, candidate := range []map[string]any{m, nested(m, "state")} {
			for _, k := range keys {
				if v, ok := number(candidate[k]); ok {
					return v, true
				}
			}
		}
	}
	return 0, false
}

func nested(m map[string]any, key string) map[string]any {
	n, _ := m[key].(map[string]any)
	return n
}

func number(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return int(math.Round(n)), true
	case int:
		return n, true
	case int64:
		return int(n), true
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return int(math.Round(f)), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return int(math.Round(f)), true
	}
	return 0, false
}
