package recorder

import (
	"context"
	"encoding/hex"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	qdb "github.com/questdb/go-questdb-client/v3"

	"github.com/envilink/canair/connector"
	"github.com/envilink/canair/internal"
	"github.com/envilink/canair/protocol"
	"github.com/envilink/canair/responder"
)

const questDBTable = "served_requests"

type QuestDBConfig struct {
	Address string
	Workers int
}

func NewDefaultQuestDBConfig() *QuestDBConfig {
	return &QuestDBConfig{
		Address: "localhost:9000",
		Workers: 2,
	}
}

// QuestDB writes one row per served request into QuestDB over ILP.
type QuestDB struct {
	cfg *QuestDBConfig

	tel *internal.Telemetry

	input connector.Connector[*responder.Record]

	senderPool *qdb.LineSenderPool

	wg *sync.WaitGroup

	// Telemetry metrics
	insertedRows   atomic.Int64
	deliveryErrors atomic.Int64
}

func NewQuestDB(input connector.Connector[*responder.Record], cfg *QuestDBConfig) *QuestDB {
	return &QuestDB{
		cfg: cfg,

		tel: internal.NewTelemetry("egress", "questdb"),

		input: input,

		wg: &sync.WaitGroup{},
	}
}

func (s *QuestDB) initMetrics() {
	s.tel.NewCounter("inserted_rows", func() int64 { return s.insertedRows.Load() })
	s.tel.NewCounter("delivery_errors", func() int64 { return s.deliveryErrors.Load() })
}

func (s *QuestDB) Init(_ context.Context) error {
	defer s.tel.LogInfo("initialized")

	senderPool, err := qdb.PoolFromOptions(
		qdb.WithAddress(s.cfg.Address),
		qdb.WithHttp(),
		qdb.WithAutoFlushRows(1_000),
		qdb.WithRetryTimeout(time.Second),
	)
	if err != nil {
		return err
	}
	s.senderPool = senderPool

	s.initMetrics()

	return nil
}

func (s *QuestDB) Run(ctx context.Context) {
	s.tel.LogInfo("running")
	defer s.tel.LogInfo("stopped")

	s.wg.Add(s.cfg.Workers)
	for workerID := range s.cfg.Workers {
		go s.runWorker(ctx, workerID)
	}

	s.wg.Wait()
}

func (s *QuestDB) runWorker(ctx context.Context, workerID int) {
	defer s.wg.Done()

	s.tel.LogInfo("starting worker", "worker_id", workerID)
	defer s.tel.LogInfo("stopping worker", "worker_id", workerID)

	sender, err := s.senderPool.Sender(ctx)
	if err != nil {
		s.tel.LogError("failed to acquire sender", err, "worker_id", workerID)
		return
	}
	defer func() {
		if err := sender.Close(context.Background()); err != nil {
			s.tel.LogError("failed to close sender", err, "worker_id", workerID)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		record, err := s.input.Read()
		if err != nil {
			if errors.Is(err, connector.ErrClosed) {
				s.tel.LogInfo("input connector is closed, stopping", "worker_id", workerID)
				return
			}

			s.tel.LogError("failed to read from input connector", err, "worker_id", workerID)
			continue
		}

		if err := s.deliver(ctx, sender, record); err != nil {
			s.tel.LogError("failed to deliver row", err, "worker_id", workerID)
			s.deliveryErrors.Add(1)
		}
	}
}

func (s *QuestDB) deliver(ctx context.Context, sender qdb.LineSender, record *responder.Record) error {
	ctx, span := s.tel.NewTrace(record.LoadSpanContext(ctx), "deliver QuestDB row")
	defer span.End()

	query := sender.Table(questDBTable)

	for slot := protocol.SlotMethane; slot <= protocol.SlotPressure; slot++ {
		if value, ok := slotReading(record, slot); ok {
			query.Float64Column(slot.String(), value)
		}
	}

	query.
		StringColumn("selector", hex.EncodeToString(record.Selector)).
		BoolColumn("frame2_sent", record.Frame2Sent).
		Int64Column("read_errors", int64(record.ReadErrors)).
		Int64Column("serve_us", record.Elapsed.Microseconds())

	if err := query.At(ctx, record.GetReceiveTime()); err != nil {
		return err
	}

	s.insertedRows.Add(1)

	return nil
}

func (s *QuestDB) Stop() {
	s.tel.LogInfo("closing")

	s.wg.Wait()

	if err := s.senderPool.Close(context.Background()); err != nil {
		s.tel.LogError("failed to close sender pool", err)
	}
}
