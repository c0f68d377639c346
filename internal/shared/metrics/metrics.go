package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/gin-gonic/gin"
)

var (
	jobSubmittedTotal atomic.Uint64
	jobCompletedTotal atomic.Uint64
	jobFailedTotal    atomic.Uint64
	jobTimeoutTotal   atomic.Uint64
	jobPollsTotal     atomic.Uint64

	jobDuration = newHistogram([]float64{1000, 3000, 10000, 30000, 60000, 120000, 180000, 300000})
)

// IncJobSubmitted counts a job accepted by the backend.
func IncJobSubmitted() {
	jobSubmittedTotal.Add(1)
}

// IncJobCompleted counts a job that reached completed.
func IncJobCompleted() {
	jobCompletedTotal.Add(1)
}

// IncJobFailed counts a job that failed or whose status fetch failed.
func IncJobFailed() {
	jobFailedTotal.Add(1)
}

// IncJobTimeout counts a poll loop that hit its deadline.
func IncJobTimeout() {
	jobTimeoutTotal.Add(1)
}

// IncJobPoll counts a single status fetch.
func IncJobPoll() {
	jobPollsTotal.Add(1)
}

// ObserveJobDurationMs records time from first poll to a terminal state.
func ObserveJobDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	jobDuration.Observe(value)
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/plain; version=0.0.4")
		c.String(http.StatusOK, Render())
	}
}

// Render renders metrics in Prometheus text format.
func Render() string {
	var buf bytes.Buffer
	writeCounter(&buf, "tailor_job_submitted_total", "Total tailoring jobs submitted", jobSubmittedTotal.Load())
	writeCounter(&buf, "tailor_job_completed_total", "Total tailoring jobs completed", jobCompletedTotal.Load())
	writeCounter(&buf, "tailor_job_failed_total", "Total tailoring jobs failed", jobFailedTotal.Load())
	writeCounter(&buf, "tailor_job_timeout_total", "Total tailoring jobs that timed out while polling", jobTimeoutTotal.Load())
	writeCounter(&buf, "tailor_job_polls_total", "Total job status fetches", jobPollsTotal.Load())
	writeHistogram(&buf, "tailor_job_duration_ms", "Job duration observed by the poller in milliseconds", jobDuration.Snapshot())
	return buf.String()
}

type histogram struct {
	mu      sync.Mutex
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

type histogramSnapshot struct {
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

func newHistogram(buckets []float64) *histogram {
	return &histogram{
		buckets: buckets,
		counts:  make([]uint64, len(buckets)),
	}
}

// Observe stores the value in the first bucket that fits; writeHistogram accumulates.
func (h *histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += value
	for i, bound := range h.buckets {
		if value <= bound {
			h.counts[i]++
			return
		}
	}
}

func (h *histogram) Snapshot() histogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return histogramSnapshot{
		buckets: append([]float64(nil), h.buckets...),
		counts:  append([]uint64(nil), h.counts...),
		sum:     h.sum,
		count:   h.count,
	}
}

func writeCounter(buf *bytes.Buffer, name, help string, value uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	fmt.Fprintf(buf, "%s %d\n", name, value)
}

func writeHistogram(buf *bytes.Buffer, name, help string, snap histogramSnapshot) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s histogram\n", name)
	var cumulative uint64
	for i, bound := range snap.buckets {
		cumulative += snap.counts[i]
		fmt.Fprintf(buf, "%s_bucket{le=\"%s\"} %d\n", name, formatFloat(bound), cumulative)
	}
	fmt.Fprintf(buf, "%s_bucket{le=\"+Inf\"} %d\n", name, snap.count)
	fmt.Fprintf(buf, "%s_sum %s\n", name, formatFloat(snap.sum))
	fmt.Fprintf(buf, "%s_count %d\n", name, snap.count)
}

func formatFloat(value float64) string {
	if value == float64(int64(value)) {
		return strconv.FormatInt(int64(value), 10)
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}
