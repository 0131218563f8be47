// Package service contains application services orchestrating the domain
// and the outbound adapters: audit recording/querying and hook dispatch.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"

	"github.com/atlasgate/gatekeeper/internal/domain/audit"
)

// AuditService provides async audit logging with a buffered channel and a
// background worker, so recording a decision never blocks the hook
// evaluation path. Records fan out to the authoritative store (JSON Lines
// files) and, when configured, to the SQLite query index.
type AuditService struct {
	store         audit.Store
	index         audit.Store
	query         audit.QueryStore
	auditChan     chan audit.Record
	done          chan struct{}
	closeOnce     sync.Once
	wg            sync.WaitGroup
	logger        *slog.Logger
	batchSize     int
	flushInterval time.Duration

	channelSize int           // Track capacity for monitoring
	sendTimeout time.Duration // 0 = drop immediately, >0 = block up to this duration
	dropCount   atomic.Int64  // Lock-free drop counter

	warningThreshold int          // Percentage (0-100), e.g. 80
	lastWarning      atomic.Int64 // Rate-limit warning logs (Unix nanos)
}

// AuditOption configures AuditService.
type AuditOption func(*AuditService)

// WithBatchSize sets the number of records to batch before writing.
func WithBatchSize(size int) AuditOption {
	return func(s *AuditService) {
		s.batchSize = size
	}
}

// WithFlushInterval sets the interval to flush pending records.
func WithFlushInterval(interval time.Duration) AuditOption {
	return func(s *AuditService) {
		s.flushInterval = interval
	}
}

// WithChannelSize sets the size of the audit channel buffer.
func WithChannelSize(size int) AuditOption {
	return func(s *AuditService) {
		s.auditChan = make(chan audit.Record, size)
		s.channelSize = size
	}
}

// WithSendTimeout sets the backpressure timeout.
// 0 = drop immediately (no blocking), >0 = block up to this duration before dropping.
func WithSendTimeout(timeout time.Duration) AuditOption {
	return func(s *AuditService) {
		s.sendTimeout = timeout
	}
}

// WithIndex mirrors every record into a secondary store (the SQLite query
// index) and serves queries from the given QueryStore.
func WithIndex(index audit.Store, query audit.QueryStore) AuditOption {
	return func(s *AuditService) {
		s.index = index
		s.query = query
	}
}

// WithQueryStore serves queries from the given store without mirroring
// writes (used when the in-memory ring buffer both stores and queries).
func WithQueryStore(query audit.QueryStore) AuditOption {
	return func(s *AuditService) {
		s.query = query
	}
}

// NewAuditService creates a new AuditService with the given store and options.
func NewAuditService(store audit.Store, logger *slog.Logger, opts ...AuditOption) *AuditService {
	defaultChannelSize := 1000
	s := &AuditService{
		store:            store,
		auditChan:        make(chan audit.Record, defaultChannelSize),
		done:             make(chan struct{}),
		logger:           logger,
		batchSize:        100,
		flushInterval:    time.Second,
		channelSize:      defaultChannelSize,
		sendTimeout:      100 * time.Millisecond,
		warningThreshold: 80,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start begins the background worker that batches and writes audit records.
func (s *AuditService) Start(ctx context.Context) {
	s.wg.Add(1)
	go s.worker(ctx)
}

// Record sends an audit record to the background worker.
// Applies backpressure: attempts fast non-blocking send, then blocks up to
// sendTimeout. If the timeout expires the record is dropped and counted.
func (s *AuditService) Record(record audit.Record) {
	// Check channel depth for early warning (rate-limited)
	if s.warningThreshold > 0 {
		depth := len(s.auditChan)
		threshold := s.channelSize * s.warningThreshold / 100
		if depth >= threshold {
			s.warnChannelDepth(depth)
		}
	}

	// Fast path: non-blocking send
	select {
	case s.auditChan <- record:
		return
	default:
		// Channel full - apply backpressure
	}

	if s.sendTimeout <= 0 {
		s.recordDrop(record)
		return
	}

	// Slow path: block with timeout
	select {
	case s.auditChan <- record:
		return
	case <-time.After(s.sendTimeout):
		s.recordDrop(record)
	}
}

// recordDrop increments counter and logs drop.
func (s *AuditService) recordDrop(record audit.Record) {
	drops := s.dropCount.Add(1)
	s.logger.Warn("audit record dropped",
		"hook", record.HookName,
		"session", record.SessionID,
		"total_drops", drops,
	)
}

// warnChannelDepth logs warning about channel capacity (rate-limited to once per second).
func (s *AuditService) warnChannelDepth(depth int) {
	now := time.Now().UnixNano()
	last := s.lastWarning.Load()

	if now-last < int64(time.Second) {
		return
	}

	if s.lastWarning.CompareAndSwap(last, now) {
		s.logger.Warn("audit channel approaching capacity",
			"depth", depth,
			"capacity", s.channelSize,
			"percent", depth*100/s.channelSize,
		)
	}
}

// DroppedRecords returns total dropped records (for monitoring).
func (s *AuditService) DroppedRecords() int64 {
	return s.dropCount.Load()
}

// worker batches records from the channel and writes them on batch-size or
// flush-interval boundaries.
func (s *AuditService) worker(ctx context.Context) {
	defer s.wg.Done()

	batch := make([]audit.Record, 0, s.batchSize)
	ticker := time.NewTicker(s.flushInterval)
	defer ticker.Stop()

	writeBatch := func() {
		if len(batch) == 0 {
			return
		}
		if err := s.store.Append(ctx, batch...); err != nil {
			s.logger.Error("audit batch write failed", "count", len(batch), "error", err)
		}
		if s.index != nil {
			if err := s.index.Append(ctx, batch...); err != nil {
				s.logger.Error("audit index write failed", "count", len(batch), "error", err)
			}
		}
		batch = batch[:0]
	}

	for {
		select {
		case rec, ok := <-s.auditChan:
			if !ok {
				writeBatch()
				return
			}
			batch = append(batch, rec)
			if len(batch) >= s.batchSize {
				writeBatch()
			}
		case <-ticker.C:
			writeBatch()
		case <-s.done:
			// Drain whatever is still queued, then exit.
			for {
				select {
				case rec := <-s.auditChan:
					batch = append(batch, rec)
				default:
					writeBatch()
					return
				}
			}
		}
	}
}

// Close stops the worker, drains pending records, and flushes the stores.
// Every gatekeeper invocation must call this before exit. Safe to call
// more than once.
func (s *AuditService) Close(ctx context.Context) error {
	s.closeOnce.Do(func() { close(s.done) })
	s.wg.Wait()

	if err := s.store.Flush(ctx); err != nil {
		return fmt.Errorf("flush audit store: %w", err)
	}
	if s.index != nil {
		if err := s.index.Flush(ctx); err != nil {
			return fmt.Errorf("flush audit index: %w", err)
		}
	}
	return nil
}

// Query retrieves audit records through the configured query store.
func (s *AuditService) Query(ctx context.Context, filter audit.Filter) ([]audit.Record, error) {
	if s.query == nil {
		return nil, fmt.Errorf("no audit query store configured")
	}
	return s.query.Query(ctx, filter)
}

// QueryStats returns aggregated statistics for the time range.
func (s *AuditService) QueryStats(ctx context.Context, start, end time.Time) (*audit.Stats, error) {
	if s.query == nil {
		return nil, fmt.Errorf("no audit query store configured")
	}
	return s.query.QueryStats(ctx, start, end)
}

// statsCollector exposes an audit.Stats snapshot as constant Prometheus
// metrics. The gateway is a short-lived process, so counters derived from
// the persisted audit trail on demand stand in for a live /metrics
// endpoint.
type statsCollector struct {
	stats *audit.Stats

	total     *prometheus.Desc
	sessions  *prometheus.Desc
	decisions *prometheus.Desc
	hookEvals *prometheus.Desc
	hookBlock *prometheus.Desc
}

func newStatsCollector(stats *audit.Stats) *statsCollector {
	return &statsCollector{
		stats: stats,
		total: prometheus.NewDesc("gatekeeper_audit_evaluations_total",
			"Total hook evaluations in the queried range", nil, nil),
		sessions: prometheus.NewDesc("gatekeeper_audit_sessions",
			"Distinct sessions in the queried range", nil, nil),
		decisions: prometheus.NewDesc("gatekeeper_audit_decisions_total",
			"Hook evaluations by decision", []string{"decision"}, nil),
		hookEvals: prometheus.NewDesc("gatekeeper_audit_hook_evaluations_total",
			"Hook evaluations by hook", []string{"hook"}, nil),
		hookBlock: prometheus.NewDesc("gatekeeper_audit_hook_blocks_total",
			"Blocking decisions by hook", []string{"hook"}, nil),
	}
}

func (c *statsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.total
	ch <- c.sessions
	ch <- c.decisions
	ch <- c.hookEvals
	ch <- c.hookBlock
}

func (c *statsCollector) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(c.total, prometheus.CounterValue, float64(c.stats.TotalEvaluations))
	ch <- prometheus.MustNewConstMetric(c.sessions, prometheus.GaugeValue, float64(c.stats.UniqueSessions))
	for decision, count := range c.stats.ByDecision {
		ch <- prometheus.MustNewConstMetric(c.decisions, prometheus.CounterValue, float64(count), decision)
	}
	for hookName, hs := range c.stats.ByHook {
		ch <- prometheus.MustNewConstMetric(c.hookEvals, prometheus.CounterValue, float64(hs.Evaluations), hookName)
		ch <- prometheus.MustNewConstMetric(c.hookBlock, prometheus.CounterValue, float64(hs.Blocks), hookName)
	}
}

// RenderPrometheusText renders stats in the Prometheus text exposition
// format, sorted by metric family name for deterministic output.
func RenderPrometheusText(stats *audit.Stats) (string, error) {
	registry := prometheus.NewPedanticRegistry()
	if err := registry.Register(newStatsCollector(stats)); err != nil {
		return "", fmt.Errorf("register stats collector: %w", err)
	}

	families, err := registry.Gather()
	if err != nil {
		return "", fmt.Errorf("gather stats metrics: %w", err)
	}
	return renderFamilies(families)
}

// renderFamilies writes metric families in the text exposition format,
// sorted by family name so repeated queries diff cleanly.
func renderFamilies(families []*dto.MetricFamily) (string, error) {
	sort.Slice(families, func(i, j int) bool { return families[i].GetName() < families[j].GetName() })

	var sb strings.Builder
	for _, family := range families {
		if _, err := expfmt.MetricFamilyToText(&sb, family); err != nil {
			return "", fmt.Errorf("render metric family: %w", err)
		}
	}
	return sb.String(), nil
}
