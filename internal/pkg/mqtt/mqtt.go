package mqtt

import (
	"errors"
	"sync"
	"time"

	paho_mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

const (
	DefaultDiscoveryPrefix = "homeassistant"
	DefaultTopicPrefix     = "homedash"
)

var ErrConnectTimeout = errors.New("unable to connect in time")

type service struct {
	client          paho_mqtt.Client
	discoveryPrefix string
	topicPrefix     string
	logger          *zap.Logger

	mu                sync.Mutex
	configuredWidgets map[string]struct{}
}

func New(client paho_mqtt.Client, topicPrefix string) *service {
	if topicPrefix == "" {
		topicPrefix = DefaultTopicPrefix
	}
	return &service{
		client:            client,
		discoveryPrefix:   DefaultDiscoveryPrefix,
		topicPrefix:       topicPrefix,
		logger:            zap.L(),
		configuredWidgets: make(map[string]struct{}),
	}
}

// NewClient builds a paho client with auto reconnect enabled.
func NewClient(host, username, password, clientID string) paho_mqtt.Client {
	opts := paho_mqtt.NewClientOptions().
		AddBroker(host).
		SetClientID(clientID).
		SetUsername(username).
		SetPassword(password).
		SetAutoReconnect(true).
		SetConnectRetry(true)
	return paho_mqtt.NewClient(opts)
}

func (s *service) Connect() error {
	token := s.client.Connect()
	res := token.WaitTimeout(time.Second * 5)
	if err := token.Error(); err != nil {
		return err
	}
	if res {
		return nil
	}
	return ErrConnectTimeout
}

func (s *service) Close() error {
	s.client.Disconnect(250)
	return nil
}
