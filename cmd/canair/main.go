package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/envilink/canair"
	"github.com/envilink/canair/canbus"
	"github.com/envilink/canair/connector"
	"github.com/envilink/canair/recorder"
	"github.com/envilink/canair/responder"
	"github.com/envilink/canair/sensors"
	"github.com/envilink/canair/telemetry"
)

func main() {
	cfgPath := flag.String("config", "", "path to a TOML config file")
	flag.Parse()

	ctx, cancelCtx := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer cancelCtx()

	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		panic(err)
	}

	if cfg.Telemetry.Enabled {
		if err := telemetry.Init(ctx, cfg.Telemetry.ServiceName); err != nil {
			panic(err)
		}
		defer telemetry.Close(context.Background())
	}

	bus, err := canbus.DialCannelloni(&canbus.CannelloniConfig{
		LocalAddr: cfg.Bus.LocalAddr,
		PeerAddr:  cfg.Bus.PeerAddr,
	})
	if err != nil {
		panic(err)
	}
	defer bus.Close()

	bench := sensors.NewGuard(sensors.NewSimBench(), &sensors.GuardConfig{
		ReadTimeout: cfg.readTimeout(),
		Retries:     cfg.Sensors.Retries,
	})

	respCfg := responder.NewDefaultConfig()
	respCfg.PollInterval = cfg.pollInterval()
	respCfg.StrictPressureFrame = cfg.Responder.StrictPressureFrame
	respCfg.RecordChannelSize = cfg.Responder.RecordChannelSize

	resp := responder.NewStage(bus, bench, respCfg)

	pipeline := canair.NewPipeline()
	pipeline.AddStage(resp)

	if cfg.QuestDB.Enabled {
		respToQuestDB := connector.NewRingBuffer[*responder.Record](16_000)
		resp.AddOutput(respToQuestDB)

		questDB := recorder.NewQuestDB(respToQuestDB, &recorder.QuestDBConfig{
			Address: cfg.QuestDB.Address,
			Workers: cfg.QuestDB.Workers,
		})
		pipeline.AddStage(questDB)
	}

	if cfg.MQTT.Enabled {
		respToMQTT := connector.NewChannel[*responder.Record](1024)
		resp.AddOutput(respToMQTT)

		mqtt := recorder.NewMQTT(respToMQTT, &recorder.MQTTConfig{
			BrokerURL: cfg.MQTT.BrokerURL,
			ClientID:  cfg.MQTT.ClientID,
			Topic:     cfg.MQTT.Topic,
			QoS:       byte(cfg.MQTT.QoS),
		})
		pipeline.AddStage(mqtt)
	}

	if err := pipeline.Init(ctx); err != nil {
		panic(err)
	}

	go pipeline.Run(ctx)
	defer pipeline.Stop()

	<-ctx.Done()
}
