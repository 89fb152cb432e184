package metrics

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/yourusername/shopfront/pkg/cache"
)

const (
	// 默认的Prometheus指标前缀
	defaultMetricPrefix = "shopfront"
)

// PrometheusExporter 将服务指标导出为Prometheus文本格式
type PrometheusExporter struct {
	metrics *Metrics

	// 可选的缓存，导出其命中、未命中等统计
	cache     cache.ICache
	cacheName string

	prefix string
	mu     sync.Mutex
}

// NewPrometheusExporter 创建一个新的Prometheus导出器，c可以为nil
func NewPrometheusExporter(metrics *Metrics, c cache.ICache, cacheName string) *PrometheusExporter {
	return &PrometheusExporter{
		metrics:   metrics,
		cache:     c,
		cacheName: cacheName,
		prefix:    defaultMetricPrefix,
	}
}

// SetPrefix 设置指标前缀
func (p *PrometheusExporter) SetPrefix(prefix string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prefix = prefix
}

// Export 导出Prometheus格式的指标
func (p *PrometheusExporter) Export(ctx context.Context) string {
	p.mu.Lock()
	defer p.mu.Unlock()

	snapshot := p.metrics.GetSnapshot()
	var buf bytes.Buffer

	p.addCounter(&buf, "price_evaluations_total", "Total number of priced products", snapshot.Evaluations, "")
	p.addCounter(&buf, "discounted_evaluations_total", "Total number of priced products with a discount", snapshot.DiscountedEvaluations, "")
	p.addCounter(&buf, "cart_quotes_total", "Total number of cart quotes", snapshot.Quotes, "")
	p.addCounter(&buf, "dropped_campaigns_total", "Total number of campaigns skipped while decoding", snapshot.DroppedCampaigns, "")
	p.addCounter(&buf, "stale_responses_total", "Total number of responses served from a stale snapshot", snapshot.StaleServed, "")
	p.addCounter(&buf, "cache_errors_total", "Total number of failed cache operations", snapshot.CacheErrors, "")

	if len(snapshot.Upstream) > 0 {
		name := p.prefix + "_upstream_requests_total"
		fmt.Fprintf(&buf, "# HELP %s Total number of upstream requests\n", name)
		fmt.Fprintf(&buf, "# TYPE %s counter\n", name)
		for _, u := range snapshot.Upstream {
			fmt.Fprintf(&buf, "%s{resource=%q,outcome=%q} %d\n", name, u.Resource, u.Outcome, u.Count)
		}
		buf.WriteString("\n")
	}

	if p.cache != nil {
		if stats, err := p.cache.Stats(ctx); err == nil {
			labels := fmt.Sprintf("cache=%q", p.cacheName)
			p.addCounter(&buf, "cache_hits_total", "Total number of cache hits", uint64(stats.Hits), labels)
			p.addCounter(&buf, "cache_misses_total", "Total number of cache misses", uint64(stats.Misses), labels)
			p.addCounter(&buf, "cache_evictions_total", "Total number of cache evictions", uint64(stats.Evictions), labels)
			p.addGauge(&buf, "cache_entries", "Number of entries in the cache", float64(stats.EntryCount), labels)
			p.addGauge(&buf, "cache_hit_ratio", "Cache hit ratio", stats.HitRatio(), labels)
		}
	}

	if snapshot.UpstreamLatency != nil {
		p.addHistogram(&buf, "upstream_latency_seconds", "Upstream request latency in seconds", snapshot.UpstreamLatency)
	}

	return buf.String()
}

// addCounter 添加计数器类型指标
func (p *PrometheusExporter) addCounter(buf *bytes.Buffer, name, help string, value uint64, labels string) {
	metricName := p.prefix + "_" + name
	fmt.Fprintf(buf, "# HELP %s %s\n", metricName, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", metricName)
	fmt.Fprintf(buf, "%s%s %d\n\n", metricName, braces(labels), value)
}

// addGauge 添加仪表类型指标
func (p *PrometheusExporter) addGauge(buf *bytes.Buffer, name, help string, value float64, labels string) {
	metricName := p.prefix + "_" + name
	fmt.Fprintf(buf, "# HELP %s %s\n", metricName, help)
	fmt.Fprintf(buf, "# TYPE %s gauge\n", metricName)
	fmt.Fprintf(buf, "%s%s %g\n\n", metricName, braces(labels), value)
}

// addHistogram 添加直方图类型指标，纳秒转换为秒
func (p *PrometheusExporter) addHistogram(buf *bytes.Buffer, name, help string, h *HistogramSnapshot) {
	metricName := p.prefix + "_" + name
	fmt.Fprintf(buf, "# HELP %s %s\n", metricName, help)
	fmt.Fprintf(buf, "# TYPE %s histogram\n", metricName)

	var cumulative uint64
	for i, bound := range h.BucketBounds {
		cumulative += h.BucketCounts[i]
		fmt.Fprintf(buf, "%s_bucket{le=\"%g\"} %d\n", metricName, float64(bound)/1e9, cumulative)
	}
	fmt.Fprintf(buf, "%s_bucket{le=\"+Inf\"} %d\n", metricName, h.Count)
	fmt.Fprintf(buf, "%s_sum %g\n", metricName, float64(h.Sum)/1e9)
	fmt.Fprintf(buf, "%s_count %d\n\n", metricName, h.Count)
}

func braces(labels string) string {
	if labels == "" {
		return ""
	}
	return "{" + labels + "}"
}

// ServeHTTP 实现http.Handler接口，用于提供Prometheus指标端点
func (p *PrometheusExporter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	w.Write([]byte(p.Export(r.Context())))
}
