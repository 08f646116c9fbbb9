package observability

import (
	"sort"
	"strconv"
	"sync"
	"time"
)

// Metrics provides basic in-memory counters.
type Metrics struct {
	mu               sync.Mutex
	requestCount     map[string]int64
	errorCount       map[string]int64
	interactionCount map[string]int64
	interactionTime  map[string]time.Duration
	eventCount       map[string]int64
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		requestCount:     make(map[string]int64),
		errorCount:       make(map[string]int64),
		interactionCount: make(map[string]int64),
		interactionTime:  make(map[string]time.Duration),
		eventCount:       make(map[string]int64),
	}
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	key := pathKey(path, method, status)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount[key]++
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	key := path + "|" + method + "|" + code
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCount[key]++
}

// RecordInteraction counts one handled chat interaction by route and outcome.
func (m *Metrics) RecordInteraction(name, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	key := interactionRoute(name) + "|" + outcome
	m.mu.Lock()
	defer m.mu.Unlock()
	m.interactionCount[key]++
	m.interactionTime[key] += duration
}

// RecordEvent counts a published ticket event.
func (m *Metrics) RecordEvent(eventType string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.eventCount[eventType]++
}

// Counter is one entry of a metrics snapshot.
type Counter struct {
	Key     string  `json:"key"`
	Count   int64   `json:"count"`
	AvgMsec float64 `json:"avg_ms,omitempty"`
}

// Snapshot is a point in time copy of all counters, sorted by key.
type Snapshot struct {
	Requests     []Counter `json:"requests"`
	Errors       []Counter `json:"errors"`
	Interactions []Counter `json:"interactions"`
	Events       []Counter `json:"events"`
}

// Snapshot copies the current counters.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	interactions := counters(m.interactionCount)
	for i := range interactions {
		total := m.interactionTime[interactions[i].Key]
		interactions[i].AvgMsec = float64(total.Milliseconds()) / float64(interactions[i].Count)
	}
	return Snapshot{
		Requests:     counters(m.requestCount),
		Errors:       counters(m.errorCount),
		Interactions: interactions,
		Events:       counters(m.eventCount),
	}
}

func counters(src map[string]int64) []Counter {
	out := make([]Counter, 0, len(src))
	for k, v := range src {
		out = append(out, Counter{Key: k, Count: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// interactionRoute drops per-prompt suffixes so rating clicks share one counter.
func interactionRoute(name string) string {
	for i := 0; i < len(name); i++ {
		if name[i] == ':' {
			return name[:i]
		}
	}
	return name
}

func pathKey(path, method string, status int) string {
	return path + "|" + method + "|" + strconv.Itoa(status)
}
