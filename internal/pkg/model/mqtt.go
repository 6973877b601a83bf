package model

type RegisterDevice struct {
	Name         string   `json:"name"`
	Identifiers  []string `json:"identifiers"`
	Model        string   `json:"model"`
	Manufacturer string   `json:"manufacturer"`
}

// RegisterMessage is a Home Assistant MQTT discovery payload.
type RegisterMessage struct {
	Tilda         string         `json:"~"`
	Name          string         `json:"name"`
	ID            string         `json:"unique_id"`
	StateTopic    string         `json:"state_topic"`
	ValueTemplate string         `json:"value_template,omitempty"`
	PayloadOn     string         `json:"payload_on"`
	PayloadOff    string         `json:"payload_off"`
	Device        RegisterDevice `json:"device"`
}
