// Package metrics collects runtime counters for the shopfront service:
// pricing evaluations, upstream calls, and cache behavior.
// Package metrics 采集shopfront服务的运行时计数：价格计算、上游调用和缓存行为。
//
// Counters are updated atomically on the request path and exported in
// Prometheus text format by PrometheusExporter.
//
// 计数器在请求路径上原子更新，并由PrometheusExporter以Prometheus文本格式导出。
package metrics

import (
	"encoding/json"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Level defines the metrics collection level.
// Level 定义指标采集级别。
type Level int

const (
	// Disabled means metrics collection is turned off.
	// Disabled 表示禁用指标采集。
	Disabled Level = iota

	// Basic collects counters only.
	// Basic 只采集计数器。
	Basic

	// Detailed also records the upstream latency histogram.
	// Detailed 还记录上游延迟直方图。
	Detailed
)

// Upstream call outcomes.
const (
	OutcomeOK           = "ok"
	OutcomeUnauthorized = "unauthorized"
	OutcomeNotFound     = "not_found"
	OutcomeError        = "error"
	OutcomeRejected     = "rejected"
)

// Metrics is the service metrics collector.
// It uses atomic operations to ensure thread safety in high-concurrency environments.
//
// Metrics 是服务指标收集器。
// 使用原子操作确保高并发环境下的线程安全。
type Metrics struct {
	level atomic.Int32

	// Pricing
	// 定价相关指标
	evaluations           atomic.Uint64 // Price evaluations / 价格计算次数
	discountedEvaluations atomic.Uint64 // Evaluations where a discount applied / 应用了折扣的次数
	quotes                atomic.Uint64 // Cart quotes / 购物车报价次数
	droppedCampaigns      atomic.Uint64 // Campaigns skipped while decoding / 解码时跳过的活动数

	// Upstream calls by resource and outcome
	// 按资源和结果统计的上游调用
	upstreamMu sync.RWMutex
	upstream   map[upstreamKey]*atomic.Uint64

	staleServed atomic.Uint64 // Responses served from the last good snapshot / 使用旧快照响应的次数
	cacheErrors atomic.Uint64 // Cache read/write failures / 缓存读写失败次数

	// Upstream latency histogram
	// 上游延迟直方图
	latency *Histogram

	startedAt time.Time
}

type upstreamKey struct {
	resource string
	outcome  string
}

// Config defines metrics configuration options.
// Config 定义指标配置选项。
type Config struct {
	// Level determines the detail level of metrics collection
	// Level 指定指标采集的详细程度
	Level Level

	// HistogramBucketsMs are the latency bucket upper bounds in milliseconds
	// HistogramBucketsMs 是延迟桶的上界（毫秒）
	HistogramBucketsMs []float64
}

// New creates a new metrics collector. A nil config collects detailed metrics
// with the default buckets.
//
// New 创建一个新的指标收集器。
func New(config *Config) *Metrics {
	if config == nil {
		config = &Config{Level: Detailed}
	}
	m := &Metrics{
		upstream:  make(map[upstreamKey]*atomic.Uint64),
		latency:   NewHistogram(config.HistogramBucketsMs),
		startedAt: time.Now(),
	}
	m.level.Store(int32(config.Level))
	return m
}

func (m *Metrics) enabled() bool {
	return m != nil && Level(m.level.Load()) != Disabled
}

// RecordEvaluation records one priced product.
//
// RecordEvaluation 记录一次商品价格计算。
func (m *Metrics) RecordEvaluation(discounted bool) {
	if !m.enabled() {
		return
	}
	m.evaluations.Add(1)
	if discounted {
		m.discountedEvaluations.Add(1)
	}
}

// RecordQuote records one cart quote.
func (m *Metrics) RecordQuote() {
	if !m.enabled() {
		return
	}
	m.quotes.Add(1)
}

// RecordDroppedCampaigns records campaigns skipped while decoding.
func (m *Metrics) RecordDroppedCampaigns(n int) {
	if !m.enabled() || n <= 0 {
		return
	}
	m.droppedCampaigns.Add(uint64(n))
}

// RecordUpstream records one upstream call for resource with its outcome and
// duration. The duration only feeds the histogram at the Detailed level.
//
// RecordUpstream 记录一次上游调用的资源、结果和耗时。
func (m *Metrics) RecordUpstream(resource, outcome string, d time.Duration) {
	if !m.enabled() {
		return
	}
	m.upstreamCounter(upstreamKey{resource, outcome}).Add(1)
	if Level(m.level.Load()) == Detailed && outcome != OutcomeRejected {
		m.latency.Observe(d)
	}
}

func (m *Metrics) upstreamCounter(k upstreamKey) *atomic.Uint64 {
	m.upstreamMu.RLock()
	c, ok := m.upstream[k]
	m.upstreamMu.RUnlock()
	if ok {
		return c
	}

	m.upstreamMu.Lock()
	defer m.upstreamMu.Unlock()
	if c, ok = m.upstream[k]; !ok {
		c = new(atomic.Uint64)
		m.upstream[k] = c
	}
	return c
}

// RecordStaleServed records a response built from a stale snapshot.
func (m *Metrics) RecordStaleServed() {
	if !m.enabled() {
		return
	}
	m.staleServed.Add(1)
}

// RecordCacheError records a failed cache read or write.
func (m *Metrics) RecordCacheError() {
	if !m.enabled() {
		return
	}
	m.cacheErrors.Add(1)
}

// SetLevel changes the collection level at runtime.
//
// SetLevel 在运行时修改采集级别。
func (m *Metrics) SetLevel(level Level) {
	m.level.Store(int32(level))
}

// GetLevel returns the current collection level.
func (m *Metrics) GetLevel() Level {
	return Level(m.level.Load())
}

// Reset zeroes every counter and the histogram.
//
// Reset 将所有计数器和直方图清零。
func (m *Metrics) Reset() {
	m.evaluations.Store(0)
	m.discountedEvaluations.Store(0)
	m.quotes.Store(0)
	m.droppedCampaigns.Store(0)
	m.staleServed.Store(0)
	m.cacheErrors.Store(0)

	m.upstreamMu.Lock()
	m.upstream = make(map[upstreamKey]*atomic.Uint64)
	m.upstreamMu.Unlock()

	m.latency.Reset()
}

// UpstreamCount is one (resource, outcome) counter in a Snapshot.
type UpstreamCount struct {
	Resource string `json:"resource"`
	Outcome  string `json:"outcome"`
	Count    uint64 `json:"count"`
}

// Snapshot is a point-in-time copy of all metrics.
//
// Snapshot 是所有指标的时间点副本。
type Snapshot struct {
	Evaluations           uint64             `json:"evaluations"`
	DiscountedEvaluations uint64             `json:"discounted_evaluations"`
	Quotes                uint64             `json:"quotes"`
	DroppedCampaigns      uint64             `json:"dropped_campaigns"`
	Upstream              []UpstreamCount    `json:"upstream"`
	StaleServed           uint64             `json:"stale_served"`
	CacheErrors           uint64             `json:"cache_errors"`
	UpstreamLatency       *HistogramSnapshot `json:"upstream_latency,omitempty"`
	Uptime                time.Duration      `json:"uptime"`
}

// GetSnapshot returns the current metrics. Upstream counters are sorted by
// resource, then outcome.
//
// GetSnapshot 返回当前指标。
func (m *Metrics) GetSnapshot() *Snapshot {
	s := &Snapshot{
		Evaluations:           m.evaluations.Load(),
		DiscountedEvaluations: m.discountedEvaluations.Load(),
		Quotes:                m.quotes.Load(),
		DroppedCampaigns:      m.droppedCampaigns.Load(),
		StaleServed:           m.staleServed.Load(),
		CacheErrors:           m.cacheErrors.Load(),
		Uptime:                time.Since(m.startedAt),
	}

	m.upstreamMu.RLock()
	for k, c := range m.upstream {
		s.Upstream = append(s.Upstream, UpstreamCount{Resource: k.resource, Outcome: k.outcome, Count: c.Load()})
	}
	m.upstreamMu.RUnlock()
	sort.Slice(s.Upstream, func(i, j int) bool {
		a, b := s.Upstream[i], s.Upstream[j]
		if a.Resource != b.Resource {
			return a.Resource < b.Resource
		}
		return a.Outcome < b.Outcome
	})

	if m.GetLevel() == Detailed {
		s.UpstreamLatency = m.latency.GetSnapshot()
	}
	return s
}

// String returns the snapshot as JSON.
func (s *Snapshot) String() string {
	data, err := json.Marshal(s)
	if err != nil {
		return "{}"
	}
	return string(data)
}
