package main

import (
	"time"

	"github.com/BurntSushi/toml"
)

type config struct {
	Bus       busConfig       `toml:"bus"`
	Responder responderConfig `toml:"responder"`
	Sensors   sensorsConfig   `toml:"sensors"`
	QuestDB   questDBConfig   `toml:"questdb"`
	MQTT      mqttConfig      `toml:"mqtt"`
	Telemetry telemetryConfig `toml:"telemetry"`
}

type busConfig struct {
	// LocalAddr is the UDP address the cannelloni tunnel listens on.
	LocalAddr string `toml:"local_addr"`
	// PeerAddr is the UDP address response datagrams are sent to.
	PeerAddr string `toml:"peer_addr"`
}

type responderConfig struct {
	PollIntervalUs      int  `toml:"poll_interval_us"`
	StrictPressureFrame bool `toml:"strict_pressure_frame"`
	RecordChannelSize   int  `toml:"record_channel_size"`
}

type sensorsConfig struct {
	ReadTimeoutMs int `toml:"read_timeout_ms"`
	Retries       int `toml:"retries"`
}

type questDBConfig struct {
	Enabled bool   `toml:"enabled"`
	Address string `toml:"address"`
	Workers int    `toml:"workers"`
}

type mqttConfig struct {
	Enabled   bool   `toml:"enabled"`
	BrokerURL string `toml:"broker_url"`
	ClientID  string `toml:"client_id"`
	Topic     string `toml:"topic"`
	QoS       int    `toml:"qos"`
}

type telemetryConfig struct {
	Enabled     bool   `toml:"enabled"`
	ServiceName string `toml:"service_name"`
}

func newDefaultConfig() *config {
	return &config{
		Bus: busConfig{
			LocalAddr: "127.0.0.1:20000",
			PeerAddr:  "127.0.0.1:20001",
		},
		Responder: responderConfig{
			PollIntervalUs:    1_000,
			RecordChannelSize: 1024,
		},
		Sensors: sensorsConfig{
			ReadTimeoutMs: 250,
			Retries:       1,
		},
		QuestDB: questDBConfig{
			Address: "localhost:9000",
			Workers: 2,
		},
		MQTT: mqttConfig{
			BrokerURL: "tcp://localhost:1883",
			ClientID:  "canair",
			Topic:     "canair/readouts",
		},
		Telemetry: telemetryConfig{
			ServiceName: "canair",
		},
	}
}

// loadConfig returns the defaults overlaid with the TOML file at path,
// or the plain defaults when path is empty.
func loadConfig(path string) (*config, error) {
	cfg := newDefaultConfig()

	if path == "" {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *config) pollInterval() time.Duration {
	return time.Duration(c.Responder.PollIntervalUs) * time.Microsecond
}

func (c *config) readTimeout() time.Duration {
	return time.Duration(c.Sensors.ReadTimeoutMs) * time.Millisecond
}
