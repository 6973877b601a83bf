package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gosimple/slug"
	"go.uber.org/zap"

	"github.com/anicoll/homedash/internal/pkg/model"
)

const (
	payloadOn  = "ON"
	payloadOff = "OFF"
)

func widgetSlug(widgetID, name string) string {
	return slug.Make(fmt.Sprintf("%s %s", name, widgetID))
}

func (s *service) stateTopic(widgetID, name string) string {
	return fmt.Sprintf("%s/binary_sensor/%s", s.topicPrefix, widgetSlug(widgetID, name))
}

// Write publishes the retained on/off state of each widget.
func (s *service) Write(ctx context.Context, states []model.WidgetState) error {
	for _, st := range states {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.publishState(st); err != nil {
			return err
		}
	}
	return nil
}

func (s *service) publishState(st model.WidgetState) error {
	payload := map[string]any{
		"state":   payloadOff,
		"devices": len(st.Devices),
	}
	if st.AnyOn {
		payload["state"] = payloadOn
	}
	if st.Warning != "" {
		payload["warning"] = st.Warning
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	token := s.client.Publish(s.stateTopic(st.WidgetID, st.Name)+"/state", 0, true, data)
	if res := token.WaitTimeout(time.Second * 10); !res {
		s.logger.Warn("mqtt publish timed out", zap.String("widget", st.WidgetID))
	}
	return token.Error()
}

// RegisterWidget announces the widget as a Home Assistant binary sensor.
func (s *service) RegisterWidget(widget model.DashboardWidget) error {
	s.mu.Lock()
	_, exists := s.configuredWidgets[widget.ID]
	s.mu.Unlock()
	if exists {
		return nil
	}

	msg := s.registerMsg(widget)
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	topic := fmt.Sprintf("%s/binary_sensor/%s/config", s.discoveryPrefix, msg.ID)
	token := s.client.Publish(topic, 1, true, payload)
	if res := token.WaitTimeout(time.Second * 5); !res {
		return fmt.Errorf("register widget %s: %w", widget.ID, ErrConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return err
	}

	s.mu.Lock()
	s.configuredWidgets[widget.ID] = struct{}{}
	s.mu.Unlock()
	return nil
}

func (s *service) registerMsg(widget model.DashboardWidget) model.RegisterMessage {
	name := widget.DisplayName()
	id := widgetSlug(widget.ID, name)

	return model.RegisterMessage{
		Tilda:         s.stateTopic(widget.ID, name),
		Name:          name,
		ID:            id,
		StateTopic:    "~/state",
		ValueTemplate: "{{ value_json.state }}",
		PayloadOn:     payloadOn,
		PayloadOff:    payloadOff,
		Device: model.RegisterDevice{
			Name:         name,
			Identifiers:  []string{id},
			Model:        widget.Widget.Component,
			Manufacturer: "homedash",
		},
	}
}
