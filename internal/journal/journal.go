// Package journal appends one JSON line per step of a run so an operator can
// reconstruct what a tool did after the fact.
package journal

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

type Kind string

const (
	KindPlan         Kind = "plan"
	KindApproveSent  Kind = "approve_sent"
	KindApproveMined Kind = "approve_mined"
	KindTxSent       Kind = "tx_sent"
	KindTxMined      Kind = "tx_mined"
	KindAborted      Kind = "aborted"
	KindFailed       Kind = "failed"
)

type Event struct {
	TsMs  int64  `json:"ts_ms"`
	RunID string `json:"run_id,omitempty"`
	Op    string `json:"op"`
	Event Kind   `json:"event"`

	From    string `json:"from,omitempty"`
	Token   string `json:"token,omitempty"`
	Spender string `json:"spender,omitempty"`
	Amount  string `json:"amount,omitempty"`

	TxHash   string `json:"tx_hash,omitempty"`
	Block    uint64 `json:"block,omitempty"`
	GasLimit uint64 `json:"gas_limit,omitempty"`
	GasUsed  uint64 `json:"gas_used,omitempty"`
	FeeWei   string `json:"fee_wei,omitempty"`

	Plan any    `json:"plan,omitempty"`
	Err  string `json:"err,omitempty"`
}

// ErrClosed is returned by Record once the run's journal has been closed.
var ErrClosed = errors.New("journal: closed")

// Writer appends events to a file. A nil *Writer discards everything, so
// callers never need to check whether journaling is enabled.
type Writer struct {
	mu     sync.Mutex
	path   string
	runID  string
	now    func() time.Time
	file   *os.File
	closed bool
}

// New returns a writer appending to path, or nil when path is blank.
func New(path, runID string) *Writer {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}
	return &Writer{path: path, runID: runID, now: time.Now}
}

// openLocked opens the file on the first event. A run that records nothing
// creates no file.
func (w *Writer) openLocked() error {
	if w.closed {
		return ErrClosed
	}
	if w.file != nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(w.path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("journal: open %s: %w", w.path, err)
	}
	w.file = f
	return nil
}

// Record stamps ev with the time and run id and appends it as one line in a
// single write.
func (w *Writer) Record(ev Event) error {
	if w == nil {
		return nil
	}
	if ev.Event == "" {
		return fmt.Errorf("journal: event kind required")
	}
	if ev.TsMs == 0 {
		ev.TsMs = w.now().UnixMilli()
	}
	if ev.RunID == "" {
		ev.RunID = w.runID
	}

	b, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("journal: marshal %s: %w", ev.Event, err)
	}
	b = append(b, '\n')

	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.openLocked(); err != nil {
		return err
	}
	_, err = w.file.Write(b)
	return err
}

// Close ends the run's journal. Later Record calls fail with ErrClosed.
func (w *Writer) Close() error {
	if w == nil {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}
