package responder

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/envilink/canair/canbus"
	"github.com/envilink/canair/connector"
	"github.com/envilink/canair/internal"
	"github.com/envilink/canair/protocol"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Stage is the request/response polling loop of the node. It polls the
// bus for selector frames, assembles the response payload from the
// sensors and dispatches one or two frames back. One request is served
// to completion before the next is looked at; no state survives across
// requests.
type Stage struct {
	cfg *Config

	tel   *internal.Telemetry
	stats *internal.Stats

	bus canbus.Bus
	asm *protocol.Assembler

	outputs  []connector.Connector[*Record]
	recordCh chan *Record
	writerWg *sync.WaitGroup

	// Telemetry metrics
	servedRequests    atomic.Int64
	transmittedFrames atomic.Int64
	ignoredFrames     atomic.Int64
	sensorReadErrors  atomic.Int64
	skippedRecords    atomic.Int64
	serveHistogram    *internal.Histogram
}

func NewStage(bus canbus.Bus, sensors protocol.Sensors, cfg *Config) *Stage {
	tel := internal.NewTelemetry("responder", "can")

	return &Stage{
		cfg: cfg,

		tel:   tel,
		stats: internal.NewStats(tel.Logger()),

		bus: bus,
		asm: protocol.NewAssembler(sensors),

		recordCh: make(chan *Record, cfg.RecordChannelSize),
		writerWg: &sync.WaitGroup{},
	}
}

// AddOutput connects a record egress. Every output receives every
// record. Without outputs, records are discarded.
func (s *Stage) AddOutput(output connector.Connector[*Record]) {
	s.outputs = append(s.outputs, output)
}

func (s *Stage) initMetrics() {
	s.tel.NewCounter("served_requests", func() int64 { return s.servedRequests.Load() })
	s.tel.NewCounter("transmitted_frames", func() int64 { return s.transmittedFrames.Load() })
	s.tel.NewCounter("ignored_frames", func() int64 { return s.ignoredFrames.Load() })
	s.tel.NewCounter("sensor_read_errors", func() int64 { return s.sensorReadErrors.Load() })
	s.tel.NewCounter("skipped_records", func() int64 { return s.skippedRecords.Load() })

	s.serveHistogram = s.tel.NewHistogram("serve_time", metric.WithUnit("us"))
}

func (s *Stage) Init(_ context.Context) error {
	defer s.tel.LogInfo("initialized")

	s.initMetrics()

	return nil
}

func (s *Stage) runWriter(ctx context.Context) {
	s.writerWg.Add(1)
	defer s.writerWg.Done()

	for {
		select {
		case <-ctx.Done():
			return

		case record := <-s.recordCh:
			for _, output := range s.outputs {
				if err := output.Write(record); err != nil {
					if errors.Is(err, connector.ErrClosed) {
						continue
					}

					s.tel.LogError("failed to write into output connector", err)
				}
			}
		}
	}
}

func (s *Stage) Run(ctx context.Context) {
	s.tel.LogInfo("running")
	defer s.tel.LogInfo("stopped")

	go s.stats.RunStats(ctx)

	if len(s.outputs) > 0 {
		go s.runWriter(ctx)
	}

	idle := time.NewTicker(s.cfg.PollInterval)
	defer idle.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		frame, ok, err := s.bus.TryReceive()
		if err != nil {
			s.tel.LogError("failed to receive from bus", err)
			ok = false
		}

		if !ok {
			select {
			case <-ctx.Done():
				return
			case <-idle.C:
			}
			continue
		}

		if frame.ID != protocol.RequestID {
			s.ignoredFrames.Add(1)
			continue
		}

		s.serve(ctx, &frame)
	}
}

func (s *Stage) serve(ctx context.Context, frame *canbus.Frame) {
	ctx, span := s.tel.NewTrace(ctx, "serve readout request")
	defer span.End()

	recvTime := time.Now()
	selector := frame.Payload()

	sel := protocol.DecodeSelector(selector)

	resp, readErrs := s.asm.Assemble(ctx, sel)
	for _, readErr := range readErrs {
		s.tel.LogError("sensor read failed", readErr.Err, "slot", readErr.Slot.String())
		s.sensorReadErrors.Add(1)
	}

	payload := resp.Encode()

	if err := s.bus.Transmit(payload.Frame1()); err != nil {
		s.tel.LogError("failed to transmit response frame 1", err)
		return
	}
	s.transmittedFrames.Add(1)
	s.stats.IncrementFrameCount()
	s.stats.IncrementByteCountBy(protocol.Frame1Len)

	sendFrame2 := payload.PressureByte() != 0
	if s.cfg.StrictPressureFrame {
		sendFrame2 = resp.Sampled(protocol.SlotPressure)
	}

	if sendFrame2 {
		if err := s.bus.Transmit(payload.Frame2()); err != nil {
			s.tel.LogError("failed to transmit response frame 2", err)
			return
		}
		s.transmittedFrames.Add(1)
		s.stats.IncrementFrameCount()
		s.stats.IncrementByteCountBy(protocol.Frame2Len)
	}

	elapsed := time.Since(recvTime)

	span.SetAttributes(
		attribute.Int("selector_len", len(selector)),
		attribute.Bool("frame2_sent", sendFrame2),
		attribute.Int("read_errors", len(readErrs)),
	)

	s.servedRequests.Add(1)
	s.serveHistogram.Record(ctx, elapsed.Microseconds())

	if len(s.outputs) > 0 {
		s.emitRecord(span, recvTime, selector, resp, &payload, sendFrame2, len(readErrs), elapsed)
	}
}

func (s *Stage) emitRecord(
	span trace.Span, recvTime time.Time, selector []byte,
	resp *protocol.Response, payload *protocol.Payload,
	frame2Sent bool, readErrors int, elapsed time.Duration,
) {
	record := &Record{
		Selector:   append([]byte(nil), selector...),
		Payload:    append([]byte(nil), payload.Bytes()...),
		Frame2Sent: frame2Sent,
		ReadErrors: readErrors,
		Elapsed:    elapsed,
	}

	for slot := protocol.SlotMethane; slot <= protocol.SlotPressure; slot++ {
		record.Sampled[slot] = resp.Sampled(slot)
	}

	record.SetReceiveTime(recvTime)
	record.SaveSpan(span)

	// Never wait on the egress path: a full record channel drops the
	// record, the request itself was already served.
	select {
	case s.recordCh <- record:
	default:
		s.skippedRecords.Add(1)
	}
}

func (s *Stage) Stop() {
	s.tel.LogInfo("closing")

	for _, output := range s.outputs {
		output.Close()
	}

	s.writerWg.Wait()
}
