package logger

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	mongoQueueSize = 4096
	mongoBatchSize = 50
	mongoFlushTick = 2 * time.Second
)

// LogEntry is the document shape stored in the log collection.
type LogEntry struct {
	Time      time.Time `bson:"time"`
	Level     string    `bson:"level"`
	Msg       string    `bson:"msg"`
	RequestID string    `bson:"request_id,omitempty"`
	Attrs     bson.M    `bson:"attrs,omitempty"`
}

// mongoSink owns the client and the background writer shared by every
// MongoHandler derived through WithAttrs/WithGroup.
type mongoSink struct {
	client *mongo.Client
	col    *mongo.Collection
	queue  chan LogEntry
	done   chan struct{}
	once   sync.Once
	wg     sync.WaitGroup
}

// MongoHandler is a slog.Handler that ships records to MongoDB in batches.
// Records are dropped when the queue is full; logging never blocks a request.
type MongoHandler struct {
	sink   *mongoSink
	attrs  []slog.Attr
	prefix string
}

// NewMongoHandler connects to uri and writes into db.collection.
// Call Close on shutdown to flush what is still queued.
func NewMongoHandler(ctx context.Context, uri, db, collection string) (*MongoHandler, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().
		ApplyURI(uri).
		SetConnectTimeout(5*time.Second).
		SetServerSelectionTimeout(5*time.Second).
		SetMaxPoolSize(4))
	if err != nil {
		return nil, fmt.Errorf("logger: mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("logger: mongo ping: %w", err)
	}

	col := client.Database(db).Collection(collection)
	_, _ = col.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: bson.D{{Key: "time", Value: -1}}})

	s := &mongoSink{
		client: client,
		col:    col,
		queue:  make(chan LogEntry, mongoQueueSize),
		done:   make(chan struct{}),
	}
	s.wg.Add(1)
	go s.run()

	return &MongoHandler{sink: s}, nil
}

func (h *MongoHandler) Enabled(_ context.Context, l slog.Level) bool { return l >= slog.LevelInfo }

func (h *MongoHandler) Handle(_ context.Context, r slog.Record) error {
	entry := LogEntry{Time: r.Time, Level: r.Level.String(), Msg: r.Message, Attrs: bson.M{}}

	add := func(a slog.Attr) bool {
		if a.Key == "request_id" {
			entry.RequestID = a.Value.String()
			return true
		}
		entry.Attrs[h.prefix+a.Key] = a.Value.Resolve().Any()
		return true
	}
	for _, a := range h.attrs {
		add(a)
	}
	r.Attrs(add)

	select {
	case h.sink.queue <- entry:
	default:
	}
	return nil
}

func (h *MongoHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	for _, a := range attrs {
		if a.Key != "request_id" {
			a.Key = h.prefix + a.Key
		}
		merged = append(merged, a)
	}
	return &MongoHandler{sink: h.sink, attrs: merged, prefix: h.prefix}
}

func (h *MongoHandler) WithGroup(name string) slog.Handler {
	return &MongoHandler{sink: h.sink, attrs: h.attrs, prefix: h.prefix + name + "."}
}

// Close flushes queued entries and disconnects. Safe to call twice.
func (h *MongoHandler) Close() {
	h.sink.once.Do(func() {
		close(h.sink.done)
		h.sink.wg.Wait()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = h.sink.client.Disconnect(ctx)
	})
}

func (s *mongoSink) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(mongoFlushTick)
	defer ticker.Stop()

	batch := make([]interface{}, 0, mongoBatchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_, _ = s.col.InsertMany(ctx, batch)
		cancel()
		batch = batch[:0]
	}

	for {
		select {
		case e := <-s.queue:
			batch = append(batch, e)
			if len(batch) >= mongoBatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-s.done:
			for {
				select {
				case e := <-s.queue:
					batch = append(batch, e)
				default:
					flush()
					return
				}
			}
		}
	}
}

// MultiHandler sends each record to every wrapped handler that accepts it.
type MultiHandler struct {
	handlers []slog.Handler
}

func NewMultiHandler(hs ...slog.Handler) *MultiHandler {
	return &MultiHandler{handlers: hs}
}

func (m *MultiHandler) Enabled(ctx context.Context, l slog.Level) bool {
	for _, h := range m.handlers {
		if h.Enabled(ctx, l) {
			return true
		}
	}
	return false
}

func (m *MultiHandler) Handle(ctx context.Context, r slog.Record) error {
	var first error
	for _, h := range m.handlers {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (m *MultiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	hs := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		hs[i] = h.WithAttrs(attrs)
	}
	return &MultiHandler{handlers: hs}
}

func (m *MultiHandler) WithGroup(name string) slog.Handler {
	hs := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		hs[i] = h.WithGroup(name)
	}
	return &MultiHandler{handlers: hs}
}
