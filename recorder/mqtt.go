package recorder

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/envilink/canair/connector"
	"github.com/envilink/canair/internal"
	"github.com/envilink/canair/protocol"
	"github.com/envilink/canair/responder"
)

type MQTTConfig struct {
	BrokerURL string
	ClientID  string
	Topic     string
	QoS       byte
}

func NewDefaultMQTTConfig() *MQTTConfig {
	return &MQTTConfig{
		BrokerURL: "tcp://localhost:1883",
		ClientID:  "canair",
		Topic:     "canair/readouts",
		QoS:       0,
	}
}

// readoutMessage is the JSON shape published for each served request.
type readoutMessage struct {
	Time       time.Time          `json:"time"`
	Selector   string             `json:"selector"`
	Readings   map[string]float64 `json:"readings"`
	Frame2Sent bool               `json:"frame2_sent"`
	ReadErrors int                `json:"read_errors"`
	ServeUs    int64              `json:"serve_us"`
}

func newReadoutMessage(record *responder.Record) *readoutMessage {
	readings := make(map[string]float64, protocol.SlotCount)
	for slot := protocol.SlotMethane; slot <= protocol.SlotPressure; slot++ {
		if value, ok := slotReading(record, slot); ok {
			readings[slot.String()] = value
		}
	}

	return &readoutMessage{
		Time:       record.GetReceiveTime(),
		Selector:   hex.EncodeToString(record.Selector),
		Readings:   readings,
		Frame2Sent: record.Frame2Sent,
		ReadErrors: record.ReadErrors,
		ServeUs:    record.Elapsed.Microseconds(),
	}
}

// MQTT publishes one JSON message per served request.
type MQTT struct {
	cfg *MQTTConfig

	tel *internal.Telemetry

	input connector.Connector[*responder.Record]

	client mqtt.Client

	// Telemetry metrics
	publishedMessages atomic.Int64
	publishErrors     atomic.Int64
}

func NewMQTT(input connector.Connector[*responder.Record], cfg *MQTTConfig) *MQTT {
	return &MQTT{
		cfg: cfg,

		tel: internal.NewTelemetry("egress", "mqtt"),

		input: input,
	}
}

func (s *MQTT) initMetrics() {
	s.tel.NewCounter("published_messages", func() int64 { return s.publishedMessages.Load() })
	s.tel.NewCounter("publish_errors", func() int64 { return s.publishErrors.Load() })
}

func (s *MQTT) Init(_ context.Context) error {
	defer s.tel.LogInfo("initialized")

	opts := mqtt.NewClientOptions().
		AddBroker(s.cfg.BrokerURL).
		SetClientID(s.cfg.ClientID).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetKeepAlive(60 * time.Second).
		SetPingTimeout(10 * time.Second)

	client := mqtt.NewClient(opts)

	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return errors.New("mqtt: connect timeout")
	}
	if err := token.Error(); err != nil {
		return err
	}

	s.client = client

	s.initMetrics()

	return nil
}

func (s *MQTT) Run(ctx context.Context) {
	s.tel.LogInfo("running")
	defer s.tel.LogInfo("stopped")

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		record, err := s.input.Read()
		if err != nil {
			if errors.Is(err, connector.ErrClosed) {
				s.tel.LogInfo("input connector is closed, stopping")
				return
			}

			s.tel.LogError("failed to read from input connector", err)
			continue
		}

		if err := s.publish(ctx, record); err != nil {
			s.tel.LogError("failed to publish readout", err)
			s.publishErrors.Add(1)
		}
	}
}

func (s *MQTT) publish(ctx context.Context, record *responder.Record) error {
	_, span := s.tel.NewTrace(record.LoadSpanContext(ctx), "publish readout message")
	defer span.End()

	buf, err := json.Marshal(newReadoutMessage(record))
	if err != nil {
		return err
	}

	token := s.client.Publish(s.cfg.Topic, s.cfg.QoS, false, buf)
	if !token.WaitTimeout(5 * time.Second) {
		return errors.New("mqtt: publish timeout")
	}
	if err := token.Error(); err != nil {
		return err
	}

	s.publishedMessages.Add(1)

	return nil
}

func (s *MQTT) Stop() {
	s.tel.LogInfo("closing")

	if s.client != nil {
		s.client.Disconnect(250)
	}
}
