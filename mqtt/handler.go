// Package mqtt adapts the protocol layer to an MQTT broker using paho. The
// inverter consumes request frames on its data_transmission topic and
// publishes response frames on data_transmission_rsp; this handler owns both
// topics and the broker session.
package mqtt

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rwirdemann/sajmqtt"
	"github.com/rwirdemann/sajmqtt/config"
	"github.com/rwirdemann/sajmqtt/message"
	"github.com/rwirdemann/sajmqtt/registers"
)

// FrameCallback receives every raw frame arriving on the response topic.
type FrameCallback func(frame []byte)

type Handler struct {
	cfg          config.MQTT
	qos          byte
	protocolPort sajmqtt.ProtocolPort
	client       pahomqtt.Client

	requestTopic  string
	responseTopic string
	statusTopic   string
	topicPrefix   string
	serialNumber  string
}

// NewHandler creates a handler for the inverter identified by serialNumber.
// Topics follow the firmware's fixed scheme <prefix>/<serial>/data_transmission
// and <prefix>/<serial>/data_transmission_rsp.
func NewHandler(cfg config.MQTT, topicPrefix, serialNumber string, protocolPort sajmqtt.ProtocolPort) *Handler {
	base := topicPrefix + "/" + serialNumber
	return &Handler{
		cfg:           cfg,
		qos:           cfg.Qos(),
		protocolPort:  protocolPort,
		requestTopic:  base + "/data_transmission",
		responseTopic: base + "/data_transmission_rsp",
		statusTopic:   base + "/status",
		topicPrefix:   topicPrefix,
		serialNumber:  serialNumber,
	}
}

// NewSimulatorHandler mirrors NewHandler for the device side of the
// exchange: it subscribes to the data_transmission topic and publishes on
// data_transmission_rsp. Used by the inverter simulator.
func NewSimulatorHandler(cfg config.MQTT, topicPrefix, serialNumber string, protocolPort sajmqtt.ProtocolPort) *Handler {
	h := NewHandler(cfg, topicPrefix, serialNumber, protocolPort)
	h.requestTopic, h.responseTopic = h.responseTopic, h.requestTopic
	return h
}

// Start connects to the broker and subscribes to the response topic. The
// subscription is installed from the on-connect hook so it survives
// reconnects. onFrame is invoked for every inbound payload; it must not
// block for long and must not panic.
func (h *Handler) Start(ctx context.Context, onFrame FrameCallback) error {
	opts := pahomqtt.NewClientOptions().
		AddBroker(h.cfg.Broker).
		SetClientID(h.cfg.ClientID)
	if h.cfg.Username != "" {
		opts.SetUsername(h.cfg.Username)
		opts.SetPassword(h.cfg.Password)
	}
	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(5 * time.Second)
	opts.SetAutoReconnect(true)
	opts.SetWill(h.statusTopic, "offline", h.qos, true)
	opts.OnConnect = func(client pahomqtt.Client) {
		slog.Info("MQTT connected", "broker", h.cfg.Broker)
		token := client.Subscribe(h.responseTopic, h.qos, func(_ pahomqtt.Client, msg pahomqtt.Message) {
			h.traffic(message.NewRaw(fmt.Sprintf("RX % X", msg.Payload())))
			onFrame(msg.Payload())
		})
		if token.Wait() && token.Error() != nil {
			slog.Error("failed to subscribe to response topic", "topic", h.responseTopic, "error", token.Error())
		}
	}
	opts.OnConnectionLost = func(_ pahomqtt.Client, err error) {
		slog.Warn("MQTT connection lost", "error", err)
	}

	h.client = pahomqtt.NewClient(opts)
	token := h.client.Connect()
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to connect to %s: %w", h.cfg.Broker, err)
	}
	slog.Debug("subscribed", "topic", h.responseTopic)
	return nil
}

// Stop announces unavailability and disconnects.
func (h *Handler) Stop() error {
	if h.client == nil || !h.client.IsConnected() {
		return nil
	}
	h.client.Publish(h.statusTopic, h.qos, true, "offline").Wait()
	h.client.Disconnect(250)
	return nil
}

func (h *Handler) Description() string {
	return fmt.Sprintf("mqtt://%s (%s)", h.cfg.Broker, h.requestTopic)
}

// Publish sends one request frame to the inverter. It implements
// sajmqtt.TransportPort.
func (h *Handler) Publish(ctx context.Context, frame []byte) error {
	if h.client == nil {
		return fmt.Errorf("mqtt: not connected")
	}
	h.traffic(message.NewRaw(fmt.Sprintf("TX % X", frame)))
	token := h.client.Publish(h.requestTopic, h.qos, false, frame)
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PublishMeasurement publishes one decoded measurement, retained, to
// <prefix>/<serial>/measurements/<name>.
func (h *Handler) PublishMeasurement(ctx context.Context, m registers.Measurement) error {
	topic := h.topicPrefix + "/" + h.serialNumber + "/measurements/" + m.Name
	payload := strconv.FormatFloat(m.Value, 'f', -1, 64)
	token := h.client.Publish(topic, h.qos, true, payload)
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PublishAvailability publishes the retained online/offline status the
// discovery config points at.
func (h *Handler) PublishAvailability(online bool) {
	state := "offline"
	if online {
		state = "online"
	}
	h.client.Publish(h.statusTopic, h.qos, true, state)
}

func (h *Handler) traffic(m message.Message) {
	if h.protocolPort != nil {
		h.protocolPort.InfoX(m)
	}
}
