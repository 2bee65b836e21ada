package pgsink

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"

	"logpipe/envelope"
	"logpipe/level"
)

var eventColumns = []string{"message_id", "ts", "level", "logger_name", "message", "context", "data"}

func sampleEvent() *envelope.Event {
	reg := level.NewRegistry()
	reg.Freeze()
	info, _ := reg.Lookup("info")
	b := envelope.NewBuilder("test", envelope.OriginNative)
	return b.Build(info, "hello", nil, envelope.Map{"k": "v"}, nil)
}

func setupMockSink(t *testing.T) (pgxmock.PgxPoolIface, *Sink) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	s := New("postgres", Config{Table: "logpipe_events"}).WithPool(mock)
	return mock, s
}

func TestWrite_CopiesOneEventRow(t *testing.T) {
	mock, s := setupMockSink(t)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"logpipe_events"}, eventColumns).WillReturnResult(1)

	ok, err := s.Write(context.Background(), sampleEvent())
	if err != nil || !ok {
		t.Fatalf("Write() = %v, %v; want true, nil", ok, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestWriteBatch_CopiesEveryEventInOneRoundTrip(t *testing.T) {
	mock, s := setupMockSink(t)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"logpipe_events"}, eventColumns).WillReturnResult(3)

	n, err := s.WriteBatch(context.Background(), []*envelope.Event{sampleEvent(), sampleEvent(), sampleEvent()})
	if err != nil {
		t.Fatalf("WriteBatch: %v", err)
	}
	if n != 3 {
		t.Errorf("WriteBatch() = %d, want 3", n)
	}
}
