package intake

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/kendall-kelly/appraisal-orders-api/config"
	"github.com/kendall-kelly/appraisal-orders-api/services"
	"github.com/sirupsen/logrus"
)

// DuplicateChecker answers whether an address is already on file
type DuplicateChecker interface {
	CheckDuplicate(ctx context.Context, address string) (services.DuplicateResult, error)
}

// DuplicateWatcher debounces address edits and keeps the warning for the latest one only.
// Every observed address takes a sequence number; a result is applied only while its
// number is still the newest.
type DuplicateWatcher struct {
	checker DuplicateChecker
	delay   time.Duration
	logger  *logrus.Logger

	mu      sync.Mutex
	seq     uint64
	timer   *time.Timer
	cancel  context.CancelFunc
	warning string
	stopped bool
}

// NewDuplicateWatcher checks the latest observed address once it has been stable for delay
func NewDuplicateWatcher(checker DuplicateChecker, delay time.Duration, logger *logrus.Logger) *DuplicateWatcher {
	return &DuplicateWatcher{checker: checker, delay: delay, logger: logger}
}

// Observe records a new address value and schedules a check once it settles
func (w *DuplicateWatcher) Observe(address string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped || w.checker == nil {
		return
	}

	w.seq++
	seq := w.seq
	if w.timer != nil {
		w.timer.Stop()
	}
	if w.cancel != nil {
		w.cancel()
		w.cancel = nil
	}

	if strings.TrimSpace(address) == "" {
		w.warning = ""
		return
	}
	w.timer = time.AfterFunc(w.delay, func() { w.run(seq, address) })
}

func (w *DuplicateWatcher) run(seq uint64, address string) {
	w.mu.Lock()
	if w.stopped || seq != w.seq {
		w.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	w.mu.Unlock()

	res, err := w.checker.CheckDuplicate(ctx, address)
	cancel()

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped || seq != w.seq {
		return
	}
	w.cancel = nil
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			config.LogError(w.logger, "intake", "DuplicateWatcher.run", "duplicate check failed", address, err)
		}
		return
	}
	if res.HasDuplicate {
		w.warning = res.Message
	} else {
		w.warning = ""
	}
}

// Warning is the advisory message for the most recent address, empty when clear
func (w *DuplicateWatcher) Warning() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.warning
}

// Stop cancels any pending or in-flight check. Later results are discarded.
func (w *DuplicateWatcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stopped = true
	if w.timer != nil {
		w.timer.Stop()
	}
	if w.cancel != nil {
		w.cancel()
		w.cancel = nil
	}
}
