// Package metrics collects per-run counters and writes them in the
// Prometheus text format for a node-exporter textfile collector.
package metrics

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	ResultSuccess  = "success"
	ResultAborted  = "aborted"
	ResultFailed   = "failed"
	ResultReverted = "reverted"
)

// Run holds the collectors for one tool invocation. The registry is private
// so a textfile only ever contains this run's series.
type Run struct {
	path string
	reg  *prometheus.Registry

	runs    *prometheus.CounterVec
	gasUsed *prometheus.GaugeVec
	feeWei  *prometheus.GaugeVec
	lastRun *prometheus.GaugeVec
}

// New returns a Run writing to path. A blank path still collects but Flush
// is a no-op.
func New(path string) *Run {
	r := &Run{
		path: strings.TrimSpace(path),
		reg:  prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "fli_runs_total", Help: "Tool runs by operation and result"},
			[]string{"op", "result"},
		),
		gasUsed: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{Name: "fli_gas_used", Help: "Gas used by the last mined transaction"},
			[]string{"op"},
		),
		feeWei: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{Name: "fli_tx_fee_wei", Help: "Fee paid by the last mined transaction, in wei"},
			[]string{"op"},
		),
		lastRun: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{Name: "fli_last_run_timestamp_seconds", Help: "Unix time the last run finished"},
			[]string{"op"},
		),
	}
	r.reg.MustRegister(r.runs, r.gasUsed, r.feeWei, r.lastRun)
	return r
}

func (r *Run) ObserveTx(op string, gasUsed uint64, fee *big.Int) {
	if r == nil {
		return
	}
	r.gasUsed.WithLabelValues(op).Set(float64(gasUsed))
	if fee != nil {
		f, _ := new(big.Float).SetInt(fee).Float64()
		r.feeWei.WithLabelValues(op).Set(f)
	}
}

func (r *Run) Finish(op, result string, at time.Time) {
	if r == nil {
		return
	}
	r.runs.WithLabelValues(op, result).Inc()
	r.lastRun.WithLabelValues(op).Set(float64(at.Unix()))
}

// Flush writes the registry atomically to the configured textfile.
func (r *Run) Flush() error {
	if r == nil || r.path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(r.path, r.reg); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
