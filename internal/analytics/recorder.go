package analytics

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/scmmishra/qrtrack/internal/geo"
	"github.com/scmmishra/qrtrack/internal/models"
	"github.com/scmmishra/qrtrack/internal/utm"
)

const defaultWriteTimeout = 10 * time.Second

// ScanStore is the append side of the event log.
type ScanStore interface {
	InsertScan(ctx context.Context, e *models.ScanEvent) error
	BatchInsertScans(ctx context.Context, events []models.ScanEvent) error
	IncrementScanCounts(ctx context.Context, counts map[string]int) error
}

// Enricher fills geolocation for an IP. geo.Reader implements it.
type Enricher interface {
	Lookup(ip string) geo.Result
}

// RequestContext is what the recorder reads from a scan request.
type RequestContext struct {
	UserAgent    string
	Referer      string
	ForwardedFor string
}

func RequestContextFrom(r *http.Request) RequestContext {
	return RequestContext{
		UserAgent:    r.UserAgent(),
		Referer:      r.Referer(),
		ForwardedFor: r.Header.Get("X-Forwarded-For"),
	}
}

// ClientIP returns the first hop of an X-Forwarded-For chain, or "" when the
// header is absent or its first entry is not an IP.
func ClientIP(forwardedFor string) string {
	first, _, _ := strings.Cut(forwardedFor, ",")
	ip := net.ParseIP(strings.TrimSpace(first))
	if ip == nil {
		return ""
	}
	return ip.String()
}

type rawScan struct {
	CodeID    string
	UTM       utm.Params
	ScannedAt time.Time
	Req       RequestContext
}

// Options configures a Recorder. WriteTimeout bounds each store call made by
// a flush.
type Options struct {
	BufferSize    int
	FlushInterval time.Duration
	WriteTimeout  time.Duration
	SkipBots      bool
	Enricher      Enricher
	Logger        *slog.Logger
}

// Recorder appends scan events without ever blocking or failing the caller.
// Record queues onto a bounded channel; a single background goroutine drains
// it in batches on every tick and once more on Shutdown.
type Recorder struct {
	store    ScanStore
	skipBots bool
	timeout  time.Duration
	enricher Enricher
	log      *slog.Logger

	ch       chan rawScan
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

func NewRecorder(store ScanStore, opts Options) *Recorder {
	if opts.BufferSize <= 0 {
		opts.BufferSize = 1000
	}
	if opts.FlushInterval <= 0 {
		opts.FlushInterval = 5 * time.Second
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = defaultWriteTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	r := &Recorder{
		store:    store,
		skipBots: opts.SkipBots,
		timeout:  opts.WriteTimeout,
		enricher: opts.Enricher,
		log:      opts.Logger.With(slog.String("component", "recorder")),
		ch:       make(chan rawScan, opts.BufferSize),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go r.run(opts.FlushInterval)
	return r
}

// Record queues a scan of code. It is a no-op when tracking is disabled and
// drops the event when the queue is full.
func (r *Recorder) Record(code *models.TrackedCode, rc RequestContext) {
	raw, ok := r.accept(code, rc)
	if !ok {
		return
	}
	select {
	case r.ch <- raw:
	default:
		scansDropped.Inc()
		r.log.Warn("scan queue full, dropping event", slog.String("code_id", code.ID))
	}
}

// RecordNow writes a scan synchronously and returns the event-log error, if
// any. The scan counter update stays best-effort.
func (r *Recorder) RecordNow(ctx context.Context, code *models.TrackedCode, rc RequestContext) error {
	raw, ok := r.accept(code, rc)
	if !ok {
		return nil
	}
	ev := r.enrich(raw)
	if err := r.store.InsertScan(ctx, &ev); err != nil {
		scanWriteErrors.Inc()
		return err
	}
	scansRecorded.Inc()
	if err := r.store.IncrementScanCounts(ctx, map[string]int{ev.CodeID: 1}); err != nil {
		r.log.Warn("scan counter update failed", slog.String("code_id", ev.CodeID), slog.Any("error", err))
	}
	return nil
}

// Shutdown flushes queued events and stops the worker. Safe to call twice.
func (r *Recorder) Shutdown() {
	r.stopOnce.Do(func() { close(r.stop) })
	<-r.done
}

func (r *Recorder) accept(code *models.TrackedCode, rc RequestContext) (rawScan, bool) {
	if code == nil || !code.EnableTracking {
		return rawScan{}, false
	}
	if r.skipBots && IsBot(rc.UserAgent) {
		return rawScan{}, false
	}
	return rawScan{
		CodeID:    code.ID,
		UTM:       code.UTM,
		ScannedAt: time.Now().UTC(),
		Req:       rc,
	}, true
}

func (r *Recorder) run(interval time.Duration) {
	defer close(r.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.flush()
		case <-r.stop:
			r.flush()
			return
		}
	}
}

func (r *Recorder) flush() {
	defer func() {
		if p := recover(); p != nil {
			r.log.Error("recorder flush panicked", slog.Any("panic", p))
		}
	}()

	var batch []rawScan
drain:
	for {
		select {
		case raw := <-r.ch:
			batch = append(batch, raw)
		default:
			break drain
		}
	}
	if len(batch) == 0 {
		return
	}

	events := make([]models.ScanEvent, 0, len(batch))
	for _, raw := range batch {
		events = append(events, r.enrich(raw))
	}

	written := r.insertBatch(events)
	if len(written) == 0 {
		return
	}
	scansRecorded.Add(float64(len(written)))

	counts := make(map[string]int)
	for _, ev := range written {
		counts[ev.CodeID]++
	}
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	if err := r.store.IncrementScanCounts(ctx, counts); err != nil {
		r.log.Warn("scan counter update failed", slog.Any("error", err))
	}
	r.log.Debug("flushed scans", slog.Int("events", len(written)))
}

// insertBatch returns the events that made it into the log. Each stage gets
// its own deadline so a batch that timed out still leaves the per-row
// fallback a full timeout.
func (r *Recorder) insertBatch(events []models.ScanEvent) []models.ScanEvent {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	err := r.store.BatchInsertScans(ctx, events)
	cancel()
	if err == nil {
		return events
	}
	// One bad row (e.g. its code was deleted meanwhile) must not sink the
	// rest of the batch.
	r.log.Warn("batch insert failed, writing individually", slog.Int("events", len(events)), slog.Any("error", err))
	return r.insertEach(events)
}

func (r *Recorder) insertEach(events []models.ScanEvent) []models.ScanEvent {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	var ok []models.ScanEvent
	for i := range events {
		if err := r.store.InsertScan(ctx, &events[i]); err != nil {
			scanWriteErrors.Inc()
			r.log.Warn("scan write failed", slog.String("code_id", events[i].CodeID), slog.Any("error", err))
			continue
		}
		ok = append(ok, events[i])
	}
	return ok
}

func (r *Recorder) enrich(raw rawScan) models.ScanEvent {
	client := Classify(raw.Req.UserAgent)
	ev := models.ScanEvent{
		CodeID:     raw.CodeID,
		ScannedAt:  raw.ScannedAt,
		UserAgent:  raw.Req.UserAgent,
		DeviceType: client.DeviceClass,
		OS:         client.OS,
		Browser:    client.Browser,
		Referrer:   raw.Req.Referer,
		IP:         ClientIP(raw.Req.ForwardedFor),
	}
	if !raw.UTM.IsEmpty() {
		snap := raw.UTM
		ev.UTMSnapshot = &snap
	}
	if r.enricher != nil && ev.IP != "" {
		g := r.enricher.Lookup(ev.IP)
		ev.Country = g.Country
		ev.City = g.City
	}
	return ev
}
