package model

import "time"

// Capabilities is the set of named operation classes a device supports.
type Capabilities map[string]bool

func (c Capabilities) Has(name string) bool {
	return c[name]
}

const (
	CapabilityToggle      = "toggle"
	CapabilitySwitch      = "switch"
	CapabilityDim         = "dim"
	CapabilityColor       = "color"
	CapabilityTemperature = "temperature"
)

type Device struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Type         string       `json:"type"`
	ProviderID   string       `json:"providerId,omitempty"`
	ExternalID   string       `json:"externalId,omitempty"`
	Capabilities Capabilities `json:"capabilities"`
}

// DeviceState is one entry of a widget state payload. State carries the
// provider specific snapshot, usually {isOn, value, rawValue, state}.
type DeviceState struct {
	Device
	State any `json:"state"`
}

type WidgetStateResponse struct {
	Devices []DeviceState `json:"devices"`
}

// Widget is a catalogue definition.
type Widget struct {
	ID        string `json:"id"`
	Component string `json:"component"`
	Libelle   string `json:"libelle"`
	Category  string `json:"category"`
}

type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// DashboardWidget is one placed widget instance.
type DashboardWidget struct {
	ID       string         `json:"id"`
	Name     *string        `json:"name,omitempty"`
	Widget   Widget         `json:"widget"`
	Config   map[string]any `json:"config"`
	Position *Position      `json:"position,omitempty"`
	Devices  []Device       `json:"devices"`
}

// DisplayName returns the custom name, falling back to the catalogue label.
func (w DashboardWidget) DisplayName() string {
	if w.Name != nil && *w.Name != "" {
		return *w.Name
	}
	return w.Widget.Libelle
}

type LayoutItem struct {
	ID string `json:"i"`
	X  int    `json:"x"`
	Y  int    `json:"y"`
	W  int    `json:"w"`
	H  int    `json:"h"`
}

// Layouts maps a breakpoint name to its ordered layout entries.
type Layouts map[string][]LayoutItem

// Clone returns a deep copy.
func (l Layouts) Clone() Layouts {
	if l == nil {
		return nil
	}
	out := make(Layouts, len(l))
	for bp, items := range l {
		out[bp] = append([]LayoutItem(nil), items...)
	}
	return out
}

type DashboardSummary struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	IsDefault bool   `json:"isDefault"`
}

type Dashboard struct {
	DashboardSummary
	Layouts Layouts           `json:"layouts"`
	Widgets []DashboardWidget `json:"widgets"`
}

// Widget returns the widget instance with the given id.
func (d *Dashboard) Widget(id string) (DashboardWidget, bool) {
	for _, w := range d.Widgets {
		if w.ID == id {
			return w, true
		}
	}
	return DashboardWidget{}, false
}

type CreateWidgetRequest struct {
	WidgetID         string         `json:"widgetId"`
	GenericDeviceIDs []string       `json:"genericDeviceIds"`
	Config           map[string]any `json:"config,omitempty"`
	Position         *Position      `json:"position,omitempty"`
}

type UpdateWidgetRequest struct {
	Name     *string        `json:"name,omitempty"`
	Config   map[string]any `json:"config,omitempty"`
	Position *Position      `json:"position,omitempty"`
}

type ExecuteRequest struct {
	Capability string         `json:"capability"`
	Params     map[string]any `json:"params,omitempty"`
}

type DeviceExecuteResult struct {
	DeviceID string `json:"deviceId"`
	Success  bool   `json:"success"`
	Error    string `json:"error,omitempty"`
}

// ExecuteResult is the per-device breakdown of a widget execute call.
type ExecuteResult struct {
	Success bool                  `json:"success"`
	Results []DeviceExecuteResult `json:"results"`
}

type Provider struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

type AvailableDevice struct {
	ExternalID   string       `json:"externalId"`
	Name         string       `json:"name"`
	Type         string       `json:"type"`
	Capabilities Capabilities `json:"capabilities"`
}

type CreateDeviceRequest struct {
	ProviderID   string       `json:"providerId"`
	ExternalID   string       `json:"externalId"`
	Name         string       `json:"name"`
	Type         string       `json:"type"`
	Capabilities Capabilities `json:"capabilities,omitempty"`
}

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name,omitempty"`
}

type AuthResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// WidgetState is the aggregated live state of one widget instance.
type WidgetState struct {
	WidgetID  string        `json:"widgetId"`
	Name      string        `json:"name"`
	AnyOn     bool          `json:"anyOn"`
	Devices   []DeviceState `json:"devices"`
	Warning   string        `json:"warning,omitempty"`
	UpdatedAt time.Time     `json:"updatedAt"`
}
