package observability

import (
	"strconv"
	"sync"
	"time"
)

// Metrics provides basic in-memory counters.
type Metrics struct {
	mu            sync.Mutex
	requestCount  map[string]int64
	errorCount    map[string]int64
	scanRuns      int64
	scanSkips     int64
	alertsUpserts int64
	alertsPruned  int64
	mailSent      int64
	mailFailed    int64
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		requestCount: make(map[string]int64),
		errorCount:   make(map[string]int64),
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

// RecordScan accounts one completed alert scan.
func (m *Metrics) RecordScan(upserted, pruned int) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scanRuns++
	m.alertsUpserts += int64(upserted)
	m.alertsPruned += int64(pruned)
}

// RecordScanSkip accounts a scan skipped because the run lock was held.
func (m *Metrics) RecordScanSkip() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scanSkips++
}

// RecordMail accounts one outbound mail attempt.
func (m *Metrics) RecordMail(ok bool) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if ok {
		m.mailSent++
	} else {
		m.mailFailed++
	}
}

// Snapshot returns current counter values for the health endpoint.
func (m *Metrics) Snapshot() map[string]int64 {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return map[string]int64{
		"scan_runs":      m.scanRuns,
		"scan_skips":     m.scanSkips,
		"alerts_upserts": m.alertsUpserts,
		"alerts_pruned":  m.alertsPruned,
		"mail_sent":      m.mailSent,
		"mail_failed":    m.mailFailed,
	}
}

func pathKey(path, method string, status int) string {
	return path + "|" + method + "|" + strconv.Itoa(status)
}
