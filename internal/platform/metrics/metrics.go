package metrics

import (
	"sync/atomic"
	"time"
)

type Collector struct {
	totalRequests     uint64
	errorRequests     uint64
	rateLimited       uint64
	totalDurationMs   uint64
	submissionsTotal  uint64
	approvedTotal     uint64
	escalatedTotal    uint64
	rejectedTotal     uint64
	evaluatorFailures uint64
	providerFailures  uint64
	auditWriteErrors  uint64
	notifyFailures    uint64
}

func New() *Collector {
	return &Collector{}
}

func (c *Collector) Record(status int, duration time.Duration) {
	atomic.AddUint64(&c.totalRequests, 1)
	if status >= 500 {
		atomic.AddUint64(&c.errorRequests, 1)
	}
	if status == 429 {
		atomic.AddUint64(&c.rateLimited, 1)
	}
	atomic.AddUint64(&c.totalDurationMs, uint64(duration.Milliseconds()))
}

func (c *Collector) RecordSubmission(outcome string) {
	atomic.AddUint64(&c.submissionsTotal, 1)
	switch outcome {
	case "approved":
		atomic.AddUint64(&c.approvedTotal, 1)
	case "escalated":
		atomic.AddUint64(&c.escalatedTotal, 1)
	case "rejected":
		atomic.AddUint64(&c.rejectedTotal, 1)
	}
}

func (c *Collector) RecordEvaluatorFailure() {
	atomic.AddUint64(&c.evaluatorFailures, 1)
}

func (c *Collector) RecordProviderFailure() {
	atomic.AddUint64(&c.providerFailures, 1)
}

func (c *Collector) RecordAuditWriteError() {
	atomic.AddUint64(&c.auditWriteErrors, 1)
}

func (c *Collector) RecordNotifyFailure() {
	atomic.AddUint64(&c.notifyFailures, 1)
}

func (c *Collector) Snapshot() map[string]any {
	total := atomic.LoadUint64(&c.totalRequests)
	totalMs := atomic.LoadUint64(&c.totalDurationMs)
	avg := float64(0)
	if total > 0 {
		avg = float64(totalMs) / float64(total)
	}
	return map[string]any{
		"requestsTotal":          total,
		"errorsTotal":            atomic.LoadUint64(&c.errorRequests),
		"rateLimitedTotal":       atomic.LoadUint64(&c.rateLimited),
		"avgDurationMs":          avg,
		"totalDurationMs":        totalMs,
		"submissionsTotal":       atomic.LoadUint64(&c.submissionsTotal),
		"submissionsApproved":    atomic.LoadUint64(&c.approvedTotal),
		"submissionsEscalated":   atomic.LoadUint64(&c.escalatedTotal),
		"submissionsRejected":    atomic.LoadUint64(&c.rejectedTotal),
		"evaluatorFailures":      atomic.LoadUint64(&c.evaluatorFailures),
		"calendarProviderErrors": atomic.LoadUint64(&c.providerFailures),
		"auditWriteErrors":       atomic.LoadUint64(&c.auditWriteErrors),
		"notifyFailures":         atomic.LoadUint64(&c.notifyFailures),
	}
}
