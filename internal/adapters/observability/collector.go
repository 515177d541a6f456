package observability

import (
	"fmt"
	"io"
	"runtime"
	"sort"
	"sync"
	"time"
)

type MetricsResponse struct {
	Timestamp   time.Time                   `json:"timestamp"`
	Uptime      string                      `json:"uptime"`
	System      SystemMetrics               `json:"system"`
	Application map[string]map[string]int64 `json:"application"`
}

type SystemMetrics struct {
	Runtime RuntimeMetrics `json:"runtime"`
	Memory  MemoryMetrics  `json:"memory"`
}

type RuntimeMetrics struct {
	GoVersion    string `json:"go_version"`
	GOOS         string `json:"goos"`
	GOARCH       string `json:"goarch"`
	NumCPU       int    `json:"num_cpu"`
	NumGoroutine int    `json:"num_goroutine"`
}

type MemoryMetrics struct {
	Alloc        uint64 `json:"alloc_bytes"`
	HeapAlloc    uint64 `json:"heap_alloc_bytes"`
	HeapObjects  uint64 `json:"heap_objects"`
	NumGC        uint32 `json:"gc_cycles"`
	PauseTotalNs uint64 `json:"gc_pause_total_ns"`
}

// SourceFunc returns the current counter values of one component.
type SourceFunc func() map[string]int64

// Collector gathers runtime statistics and the counters of registered
// components, and renders them as JSON or Prometheus text.
type Collector struct {
	namespace string
	startTime time.Time

	mu      sync.RWMutex
	sources map[string]SourceFunc
}

func NewCollector(namespace string) *Collector {
	return &Collector{
		namespace: namespace,
		startTime: time.Now(),
		sources:   make(map[string]SourceFunc),
	}
}

func (c *Collector) Register(section string, source SourceFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sources[section] = source
}

func (c *Collector) Collect() MetricsResponse {
	c.mu.RLock()
	defer c.mu.RUnlock()

	app := make(map[string]map[string]int64, len(c.sources))
	for section, source := range c.sources {
		app[section] = source()
	}

	return MetricsResponse{
		Timestamp:   time.Now(),
		Uptime:      time.Since(c.startTime).String(),
		System:      collectSystemMetrics(),
		Application: app,
	}
}

// WritePrometheus writes the metrics in the Prometheus text exposition format.
func (c *Collector) WritePrometheus(w io.Writer) error {
	metrics := c.Collect()
	p := &promWriter{w: w}

	p.gauge(c.name("uptime_seconds"), "Time since the service started", float64(int64(time.Since(c.startTime).Seconds())))
	p.gauge(c.name("go_goroutines"), "Number of goroutines", float64(metrics.System.Runtime.NumGoroutine))
	p.gauge(c.name("go_memstats_alloc_bytes"), "Number of bytes allocated", float64(metrics.System.Memory.Alloc))
	p.gauge(c.name("go_memstats_heap_alloc_bytes"), "Number of heap bytes allocated", float64(metrics.System.Memory.HeapAlloc))
	p.gauge(c.name("go_memstats_heap_objects"), "Number of allocated objects", float64(metrics.System.Memory.HeapObjects))
	p.gauge(c.name("go_gc_duration_seconds"), "Time spent in garbage collection", float64(metrics.System.Memory.PauseTotalNs)/1e9)

	for _, section := range sortedKeys(metrics.Application) {
		values := metrics.Application[section]
		keys := make([]string, 0, len(values))
		for key := range values {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		for _, key := range keys {
			p.counter(c.name(section+"_"+key+"_total"), section+" "+key, values[key])
		}
	}
	return p.err
}

func (c *Collector) name(metric string) string {
	if c.namespace == "" {
		return metric
	}
	return c.namespace + "_" + metric
}

type promWriter struct {
	w   io.Writer
	err error
}

func (p *promWriter) gauge(name, help string, value float64) {
	p.printf("# HELP %s %s\n# TYPE %s gauge\n%s %g\n", name, help, name, name, value)
}

func (p *promWriter) counter(name, help string, value int64) {
	p.printf("# HELP %s %s\n# TYPE %s counter\n%s %d\n", name, help, name, name, value)
}

func (p *promWriter) printf(format string, args ...interface{}) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}

func sortedKeys(m map[string]map[string]int64) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func collectSystemMetrics() SystemMetrics {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return SystemMetrics{
		Runtime: RuntimeMetrics{
			GoVersion:    runtime.Version(),
			GOOS:         runtime.GOOS,
			GOARCH:       runtime.GOARCH,
			NumCPU:       runtime.NumCPU(),
			NumGoroutine: runtime.NumGoroutine(),
		},
		Memory: MemoryMetrics{
			Alloc:        m.Alloc,
			HeapAlloc:    m.HeapAlloc,
			HeapObjects:  m.HeapObjects,
			NumGC:        m.NumGC,
			PauseTotalNs: m.PauseTotalNs,
		},
	}
}
