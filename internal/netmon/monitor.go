package netmon

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// Monitor is the Network Monitor contract (C1): an active polling
// probe against a well-known endpoint, optionally supplemented by a
// push-based beacon subscription (see beacon.go) that can shorten the
// time to detect a transition without waiting for the next poll tick.
// Grounded on the teacher's long-lived watch-loop-feeding-a-channel
// shape (internal/sync/observer_remote.go), replumbed from file deltas
// to connectivity.
type Monitor struct {
	probeURL     string
	pollInterval time.Duration
	httpClient   *http.Client
	logger       *slog.Logger

	mu      sync.Mutex
	current State
	subs    []chan State

	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a Monitor that polls probeURL with a HEAD request every
// pollInterval.
func New(probeURL string, pollInterval time.Duration, httpClient *http.Client, logger *slog.Logger) *Monitor {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if pollInterval <= 0 {
		pollInterval = 15 * time.Second
	}
	return &Monitor{
		probeURL:     probeURL,
		pollInterval: pollInterval,
		httpClient:   httpClient,
		logger:       logger,
		done:         make(chan struct{}),
	}
}

// Start begins polling in a background goroutine. Cancel via Stop.
func (m *Monitor) Start(ctx context.Context) {
	ctx, m.cancel = context.WithCancel(ctx)
	go m.run(ctx)
}

func (m *Monitor) run(ctx context.Context) {
	defer close(m.done)

	m.probeOnce(ctx)

	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.probeOnce(ctx)
		}
	}
}

func (m *Monitor) probeOnce(ctx context.Context) {
	online := m.probe(ctx)
	m.setState(State{Online: online})
}

func (m *Monitor) probe(ctx context.Context) bool {
	reqCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodHead, m.probeURL, nil)
	if err != nil {
		m.logger.Warn("network probe request construction failed", "error", err)
		return false
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode < http.StatusInternalServerError
}

// Current returns the last observed state.
func (m *Monitor) Current() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Observe returns a channel of state transitions. The channel is
// buffered (depth 16) so a slow consumer doesn't block the probe loop
// indefinitely, but is never silently dropped under normal load.
func (m *Monitor) Observe() <-chan State {
	ch := make(chan State, 16)
	m.mu.Lock()
	m.subs = append(m.subs, ch)
	m.mu.Unlock()
	return ch
}

// setState updates current and notifies subscribers only on an actual
// transition, never emitting the same state twice in a row.
func (m *Monitor) setState(s State) {
	m.mu.Lock()
	changed := !m.current.Equal(s)
	if changed {
		m.current = s
	}
	subs := m.subs
	m.mu.Unlock()

	if !changed {
		return
	}
	for _, ch := range subs {
		select {
		case ch <- s:
		default:
			m.logger.Warn("network monitor subscriber channel full, dropping transition")
		}
	}
}

// Stop halts the polling goroutine and waits for it to exit.
func (m *Monitor) Stop() {
	if m.cancel != nil {
		m.cancel()
	}
	<-m.done
}
