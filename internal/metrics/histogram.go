package metrics

import (
	"math"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Histogram 延迟直方图，用于统计上游请求的延迟分布
// 使用原子操作确保高并发安全
type Histogram struct {
	// 桶上界，单位为纳秒，递增排列
	bucketBounds []int64
	// 桶计数，最后一个为+Inf桶
	bucketCounts []uint64
	count        uint64
	min          int64
	max          int64
	sum          int64
	mu           sync.RWMutex
}

// HistogramSnapshot 直方图快照
type HistogramSnapshot struct {
	BucketBounds []int64  `json:"bucket_bounds"`
	BucketCounts []uint64 `json:"bucket_counts"`
	Count        uint64   `json:"count"`
	Min          int64    `json:"min"`
	Max          int64    `json:"max"`
	Sum          int64    `json:"sum"`
	Mean         float64  `json:"mean"`
	P50          int64    `json:"p50"`
	P90          int64    `json:"p90"`
	P99          int64    `json:"p99"`
}

// DefaultBucketsMs 默认的桶上界（毫秒）
var DefaultBucketsMs = []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500}

// NewHistogram 使用毫秒单位的桶上界创建直方图
// 非正数和重复的上界会被忽略；为空时使用DefaultBucketsMs
func NewHistogram(boundsMs []float64) *Histogram {
	if len(boundsMs) == 0 {
		boundsMs = DefaultBucketsMs
	}

	bounds := make([]int64, 0, len(boundsMs))
	for _, ms := range boundsMs {
		if ms > 0 && !math.IsInf(ms, 0) && !math.IsNaN(ms) {
			bounds = append(bounds, int64(ms*float64(time.Millisecond)))
		}
	}
	sort.Slice(bounds, func(i, j int) bool { return bounds[i] < bounds[j] })
	uniq := bounds[:0]
	for i, b := range bounds {
		if i == 0 || b != bounds[i-1] {
			uniq = append(uniq, b)
		}
	}

	return &Histogram{
		bucketBounds: uniq,
		bucketCounts: make([]uint64, len(uniq)+1),
		min:          math.MaxInt64,
	}
}

// Observe 记录一个耗时
func (h *Histogram) Observe(d time.Duration) {
	h.RecordLatency(int64(d))
}

// RecordLatency 记录一个延迟值（纳秒）
func (h *Histogram) RecordLatency(latencyNs int64) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	h.updateStats(latencyNs)
	atomic.AddUint64(&h.bucketCounts[h.findBucket(latencyNs)], 1)
	atomic.AddUint64(&h.count, 1)
}

// updateStats 更新最小值、最大值和总和
func (h *Histogram) updateStats(latencyNs int64) {
	for {
		min := atomic.LoadInt64(&h.min)
		if latencyNs >= min || atomic.CompareAndSwapInt64(&h.min, min, latencyNs) {
			break
		}
	}
	for {
		max := atomic.LoadInt64(&h.max)
		if latencyNs <= max || atomic.CompareAndSwapInt64(&h.max, max, latencyNs) {
			break
		}
	}
	atomic.AddInt64(&h.sum, latencyNs)
}

// findBucket 找到第一个上界不小于延迟值的桶，超出所有上界时返回+Inf桶
func (h *Histogram) findBucket(latencyNs int64) int {
	return sort.Search(len(h.bucketBounds), func(i int) bool {
		return latencyNs <= h.bucketBounds[i]
	})
}

// Reset 重置直方图
func (h *Histogram) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for i := range h.bucketCounts {
		atomic.StoreUint64(&h.bucketCounts[i], 0)
	}
	atomic.StoreUint64(&h.count, 0)
	atomic.StoreInt64(&h.min, math.MaxInt64)
	atomic.StoreInt64(&h.max, 0)
	atomic.StoreInt64(&h.sum, 0)
}

// GetSnapshot 获取直方图快照
func (h *Histogram) GetSnapshot() *HistogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()

	bounds := make([]int64, len(h.bucketBounds))
	copy(bounds, h.bucketBounds)

	count := atomic.LoadUint64(&h.count)
	if count == 0 {
		return &HistogramSnapshot{
			BucketBounds: bounds,
			BucketCounts: make([]uint64, len(h.bucketCounts)),
		}
	}

	bucketCounts := make([]uint64, len(h.bucketCounts))
	for i := range h.bucketCounts {
		bucketCounts[i] = atomic.LoadUint64(&h.bucketCounts[i])
	}
	sum := atomic.LoadInt64(&h.sum)
	max := atomic.LoadInt64(&h.max)

	return &HistogramSnapshot{
		BucketBounds: bounds,
		BucketCounts: bucketCounts,
		Count:        count,
		Min:          atomic.LoadInt64(&h.min),
		Max:          max,
		Sum:          sum,
		Mean:         float64(sum) / float64(count),
		P50:          h.percentile(bucketCounts, count, max, 0.5),
		P90:          h.percentile(bucketCounts, count, max, 0.9),
		P99:          h.percentile(bucketCounts, count, max, 0.99),
	}
}

// percentile 在目标桶内线性插值估算百分位数，+Inf桶返回最大观测值
func (h *Histogram) percentile(bucketCounts []uint64, count uint64, max int64, p float64) int64 {
	target := uint64(math.Ceil(float64(count) * p))
	if target == 0 {
		target = 1
	}

	var cumulative uint64
	for i, c := range bucketCounts {
		cumulative += c
		if cumulative < target {
			continue
		}
		if i == len(h.bucketBounds) {
			return max
		}
		var lower int64
		if i > 0 {
			lower = h.bucketBounds[i-1]
		}
		upper := h.bucketBounds[i]
		pos := float64(target-(cumulative-c)) / float64(c)
		return lower + int64(float64(upper-lower)*pos)
	}
	return max
}
