package metrics

import (
	"sort"
	"sync"
	"time"
)

// Aggregator keeps hourly buckets of route and tool metrics in memory.
type Aggregator struct {
	mu sync.RWMutex

	// key = "hourBucket|route"
	routeMetrics map[string]*routeBucket

	// key = "hourBucket|toolName"
	toolMetrics map[string]*toolBucket

	now func() time.Time
}

type routeBucket struct {
	hourBucket   time.Time
	route        string
	requestCount int64
	successCount int64
	latencies    []int64 // in milliseconds
}

type toolBucket struct {
	hourBucket   time.Time
	toolName     string
	callCount    int64
	successCount int64
	latencySum   int64 // in milliseconds
}

// NewAggregator creates a new metrics aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{
		routeMetrics: make(map[string]*routeBucket),
		toolMetrics:  make(map[string]*toolBucket),
		now:          time.Now,
	}
}

// RecordRequest records a single route request.
func (a *Aggregator) RecordRequest(route string, latency time.Duration, success bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	hourBucket := truncateToHour(a.now())
	key := makeKey(hourBucket, route)

	bucket, exists := a.routeMetrics[key]
	if !exists {
		bucket = &routeBucket{
			hourBucket: hourBucket,
			route:      route,
			latencies:  make([]int64, 0, 64),
		}
		a.routeMetrics[key] = bucket
	}

	bucket.requestCount++
	if success {
		bucket.successCount++
	}
	bucket.latencies = append(bucket.latencies, latency.Milliseconds())
}

// RecordToolCall records a single tool call.
func (a *Aggregator) RecordToolCall(toolName string, latency time.Duration, success bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	hourBucket := truncateToHour(a.now())
	key := makeKey(hourBucket, toolName)

	bucket, exists := a.toolMetrics[key]
	if !exists {
		bucket = &toolBucket{
			hourBucket: hourBucket,
			toolName:   toolName,
		}
		a.toolMetrics[key] = bucket
	}

	bucket.callCount++
	if success {
		bucket.successCount++
	}
	bucket.latencySum += latency.Milliseconds()
}

// Stats aggregates the buckets whose hour overlaps [start, end].
func (a *Aggregator) Stats(start, end time.Time) *Stats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	stats := &Stats{
		Routes: make(map[string]*RouteStat),
		Tools:  make(map[string]*ToolStat),
	}
	inRange := func(hour time.Time) bool {
		return !hour.Add(time.Hour).Before(start) && !hour.After(end)
	}

	type routeAgg struct {
		count, success, latencySum int64
	}
	routes := map[string]*routeAgg{}
	allLatencies := make([]int64, 0)
	for _, bucket := range a.routeMetrics {
		if !inRange(bucket.hourBucket) {
			continue
		}
		stats.RequestCount += bucket.requestCount
		stats.SuccessCount += bucket.successCount
		allLatencies = append(allLatencies, bucket.latencies...)

		agg, ok := routes[bucket.route]
		if !ok {
			agg = &routeAgg{}
			routes[bucket.route] = agg
		}
		agg.count += bucket.requestCount
		agg.success += bucket.successCount
		agg.latencySum += sumLatencies(bucket.latencies)
	}
	for route, agg := range routes {
		stat := &RouteStat{Count: agg.count}
		if agg.count > 0 {
			stat.SuccessRate = float32(agg.success) / float32(agg.count)
			stat.AvgLatencyMs = agg.latencySum / agg.count
		}
		stats.Routes[route] = stat
	}

	type toolAgg struct {
		calls, success, latencySum int64
	}
	tools := map[string]*toolAgg{}
	for _, bucket := range a.toolMetrics {
		if !inRange(bucket.hourBucket) {
			continue
		}
		agg, ok := tools[bucket.toolName]
		if !ok {
			agg = &toolAgg{}
			tools[bucket.toolName] = agg
		}
		agg.calls += bucket.callCount
		agg.success += bucket.successCount
		agg.latencySum += bucket.latencySum
	}
	for name, agg := range tools {
		stat := &ToolStat{Calls: agg.calls}
		if agg.calls > 0 {
			stat.SuccessRate = float32(agg.success) / float32(agg.calls)
			stat.AvgLatencyMs = agg.latencySum / agg.calls
		}
		stats.Tools[name] = stat
	}

	stats.LatencyP50Ms = percentile(allLatencies, 50)
	stats.LatencyP95Ms = percentile(allLatencies, 95)
	return stats
}

// Prune drops buckets older than the given time.
func (a *Aggregator) Prune(before time.Time) int {
	a.mu.Lock()
	defer a.mu.Unlock()

	removed := 0
	for key, bucket := range a.routeMetrics {
		if bucket.hourBucket.Before(before) {
			delete(a.routeMetrics, key)
			removed++
		}
	}
	for key, bucket := range a.toolMetrics {
		if bucket.hourBucket.Before(before) {
			delete(a.toolMetrics, key)
			removed++
		}
	}
	return removed
}

func truncateToHour(t time.Time) time.Time {
	return t.Truncate(time.Hour)
}

func makeKey(hourBucket time.Time, name string) string {
	return hourBucket.Format(time.RFC3339) + "|" + name
}

func sumLatencies(latencies []int64) int64 {
	var sum int64
	for _, l := range latencies {
		sum += l
	}
	return sum
}

func percentile(latencies []int64, p int) int64 {
	if len(latencies) == 0 {
		return 0
	}

	sorted := make([]int64, len(latencies))
	copy(sorted, latencies)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	idx := (len(sorted) - 1) * p / 100
	return sorted[idx]
}
