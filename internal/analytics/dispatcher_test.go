package analytics

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hitoshi/portalx/internal/model"
)

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

// mockSink はSinkのモック実装。
type mockSink struct {
	mu     sync.Mutex
	events []model.Event
	err    error
	block  chan struct{}
}

func (m *mockSink) Save(ctx context.Context, event *model.Event) error {
	if m.block != nil {
		<-m.block
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, *event)
	return m.err
}

func (m *mockSink) saved() []model.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Event(nil), m.events...)
}

// mockRecorder はRecorderのモック実装。
type mockRecorder struct {
	mu       sync.Mutex
	tracked  int
	dropped  int
	failures int
}

func (m *mockRecorder) RecordAnalyticsEvent(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tracked++
}

func (m *mockRecorder) RecordAnalyticsDropped(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dropped++
}

func (m *mockRecorder) RecordAnalyticsSinkFailure() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures++
}

func TestDispatcher_DeliversEventsWithIDAndTime(t *testing.T) {
	var buf bytes.Buffer
	sink := &mockSink{}
	rec := &mockRecorder{}
	d := NewDispatcher(8, sink, rec, newTestLogger(&buf))
	fixed := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
	d.now = func() time.Time { return fixed }

	ctx, cancel := context.WithCancel(context.Background())
	go d.Run(ctx)

	d.Track(context.Background(), model.Event{Name: model.EventGroupAccess, ListingID: 3})
	d.Track(context.Background(), model.Event{Name: model.EventPageView, ID: "given"})
	cancel()
	d.Wait()

	events := sink.saved()
	if len(events) != 2 {
		t.Fatalf("保存されたイベント数 = %d, want 2", len(events))
	}
	if events[0].ID == "" {
		t.Error("IDが補完されるべき")
	}
	if !events[0].OccurredAt.Equal(fixed) {
		t.Errorf("OccurredAt = %v, want %v", events[0].OccurredAt, fixed)
	}
	if events[1].ID != "given" {
		t.Errorf("指定されたIDは維持されるべき: %q", events[1].ID)
	}
	if rec.tracked != 2 {
		t.Errorf("RecordAnalyticsEvent の回数 = %d, want 2", rec.tracked)
	}
}

func TestDispatcher_DropsWhenQueueFull(t *testing.T) {
	var buf bytes.Buffer
	rec := &mockRecorder{}
	d := NewDispatcher(1, &mockSink{}, rec, newTestLogger(&buf))

	// Runを開始していないのでキューは1件で満杯になる
	d.Track(context.Background(), model.Event{Name: model.EventClick})
	d.Track(context.Background(), model.Event{Name: model.EventClick})
	d.Track(context.Background(), model.Event{Name: model.EventClick})

	if d.Pending() != 1 {
		t.Errorf("Pending() = %d, want 1", d.Pending())
	}
	if rec.dropped != 2 {
		t.Errorf("破棄数 = %d, want 2", rec.dropped)
	}
	if !strings.Contains(buf.String(), "queue_full") {
		t.Errorf("破棄理由がログに記録されるべき: %s", buf.String())
	}
}

func TestDispatcher_TrackNeverBlocksOnSlowSink(t *testing.T) {
	var buf bytes.Buffer
	sink := &mockSink{block: make(chan struct{})}
	d := NewDispatcher(2, sink, nil, newTestLogger(&buf))
	ctx, cancel := context.WithCancel(context.Background())
	go d.Run(ctx)

	done := make(chan struct{})
	go func() {
		for range 100 {
			d.Track(context.Background(), model.Event{Name: model.EventScrollDepth})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Sinkが遅くてもTrackはブロックしてはならない")
	}
	close(sink.block)
	cancel()
	d.Wait()
}

func TestDispatcher_SinkFailureIsLoggedNotReturned(t *testing.T) {
	var buf bytes.Buffer
	rec := &mockRecorder{}
	d := NewDispatcher(4, &mockSink{err: errors.New("db down")}, rec, newTestLogger(&buf))
	ctx, cancel := context.WithCancel(context.Background())
	go d.Run(ctx)

	d.Track(context.Background(), model.Event{Name: model.EventGroupAccess})
	cancel()
	d.Wait()

	if rec.failures != 1 {
		t.Errorf("Sink失敗の記録数 = %d, want 1", rec.failures)
	}
	if !strings.Contains(buf.String(), "db down") {
		t.Errorf("Sink失敗がログに記録されるべき: %s", buf.String())
	}
}

func TestDispatcher_TrackAfterCloseIsDropped(t *testing.T) {
	var buf bytes.Buffer
	rec := &mockRecorder{}
	sink := &mockSink{}
	d := NewDispatcher(4, sink, rec, newTestLogger(&buf))
	go d.Run(context.Background())

	d.Close()
	d.Close()
	d.Wait()
	d.Track(context.Background(), model.Event{Name: model.EventClick})

	if rec.dropped != 1 {
		t.Errorf("Close後のイベントは破棄されるべき: dropped=%d", rec.dropped)
	}
	if len(sink.saved()) != 0 {
		t.Error("Close後のイベントは保存されないべき")
	}
}

func TestMultiSink_DeliversToAllAndJoinsErrors(t *testing.T) {
	ok := &mockSink{}
	failing := &mockSink{err: errors.New("fail")}
	m := MultiSink{failing, ok}

	err := m.Save(context.Background(), &model.Event{Name: model.EventClick})
	if err == nil {
		t.Error("失敗したSinkのエラーが返されるべき")
	}
	if len(ok.saved()) != 1 {
		t.Error("失敗したSinkの後のSinkにも配送されるべき")
	}
}

func TestLogSink_WritesEvent(t *testing.T) {
	var buf bytes.Buffer
	s := NewLogSink(newTestLogger(&buf))

	if err := s.Save(context.Background(), &model.Event{ID: "e1", Name: model.EventGroupAccess, ListingID: 42}); err != nil {
		t.Fatalf("Save がエラーを返した: %v", err)
	}
	if !strings.Contains(buf.String(), `"listing_id":42`) {
		t.Errorf("ログにlisting_idが含まれるべき: %s", buf.String())
	}
}

// mockEventWriter はEventWriterのモック実装。
type mockEventWriter struct {
	insertFn func(ctx context.Context, event *model.Event) error
}

func (m *mockEventWriter) Insert(ctx context.Context, event *model.Event) error {
	return m.insertFn(ctx, event)
}

func TestRepositorySink_Save(t *testing.T) {
	var got *model.Event
	s := NewRepositorySink(&mockEventWriter{insertFn: func(ctx context.Context, event *model.Event) error {
		got = event
		return nil
	}})

	e := &model.Event{ID: "x", Name: model.EventPageView}
	if err := s.Save(context.Background(), e); err != nil {
		t.Fatalf("Save がエラーを返した: %v", err)
	}
	if got != e {
		t.Error("リポジトリにイベントが渡されるべき")
	}
}
