// Package scheduler runs one ticking state machine per (service, schedule
// index), periodically invoking a configured GET endpoint as a webhook.
//
// Each schedule counts its interval down in whole LoopTick steps and only
// checks the countdown on a tick, so runs land on tick boundaries: after a
// resume the next run can come up to one tick before a full interval has
// passed, and ticks that arrive while a webhook call is in flight are
// dropped, which can delay the following run.
package scheduler

import (
	"fmt"
	"net/http"
	"sync"
	"time"
)

// LoopTick is the interval between state-machine ticks.
const LoopTick = 1 * time.Second

// FireTimeout bounds a single webhook invocation.
const FireTimeout = 5 * time.Second

// State is the mutable state of one schedule.
type State struct {
	Endpoint        string
	IntervalSeconds int
	Paused          bool
	LastRun         *time.Time
	LastStatus      *int
	LastError       *string
}

// key identifies a schedule within the shared map.
type key struct {
	service string
	index   int
}

// Scheduler owns every service's schedule state and ticking goroutines.
type Scheduler struct {
	mu     sync.Mutex
	states map[key]*State
	client *http.Client
	stop   chan struct{}
	wg     sync.WaitGroup
}

// New creates a scheduler with no running schedules yet.
func New() *Scheduler {
	return &Scheduler{
		states: make(map[key]*State),
		client: &http.Client{Timeout: FireTimeout},
		stop:   make(chan struct{}),
	}
}

// Register adds one (service, index) schedule and starts its ticking
// goroutine against baseURL.
func (s *Scheduler) Register(service string, index int, endpoint string, intervalSeconds int, baseURL string) {
	k := key{service, index}

	s.mu.Lock()
	s.states[k] = &State{Endpoint: endpoint, IntervalSeconds: intervalSeconds}
	s.mu.Unlock()

	s.wg.Add(1)
	go s.run(k, baseURL)
}

// Stop halts every schedule's ticking goroutine.
func (s *Scheduler) Stop() {
	close(s.stop)
	s.wg.Wait()
}

func (s *Scheduler) run(k key, baseURL string) {
	defer s.wg.Done()

	ticker := time.NewTicker(LoopTick)
	defer ticker.Stop()

	remaining := s.intervalOf(k)

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.mu.Lock()
			st, ok := s.states[k]
			if !ok {
				s.mu.Unlock()
				return
			}
			if st.Paused {
				remaining = st.IntervalSeconds
				s.mu.Unlock()
				continue
			}
			remaining -= int(LoopTick.Seconds())
			fire := remaining <= 0
			if fire {
				remaining = st.IntervalSeconds
			}
			endpoint := st.Endpoint
			s.mu.Unlock()

			if fire {
				s.fire(k, baseURL, endpoint)
			}
		}
	}
}

func (s *Scheduler) intervalOf(k key) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.states[k].IntervalSeconds
}

func (s *Scheduler) fire(k key, baseURL, endpoint string) {
	url := fmt.Sprintf("%s/%s", baseURL, endpoint)
	now := time.Now()

	resp, err := s.client.Get(url)

	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[k]
	if !ok {
		return
	}
	st.LastRun = &now
	if err != nil {
		msg := err.Error()
		st.LastError = &msg
		st.LastStatus = nil
		return
	}
	defer resp.Body.Close()
	status := resp.StatusCode
	st.LastStatus = &status
	st.LastError = nil
}

// Toggle flips a schedule's paused flag and returns the new value.
func (s *Scheduler) Toggle(service string, index int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.states[key{service, index}]
	if !ok {
		return false, fmt.Errorf("schedule %s[%d] not found", service, index)
	}
	st.Paused = !st.Paused
	return st.Paused, nil
}

// RunNow performs the webhook synchronously, independent of the ticking
// timer, and stores its outcome exactly as a tick-fired run would.
func (s *Scheduler) RunNow(service string, index int, baseURL string) error {
	s.mu.Lock()
	st, ok := s.states[key{service, index}]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("schedule %s[%d] not found", service, index)
	}
	endpoint := st.Endpoint
	s.mu.Unlock()

	s.fire(key{service, index}, baseURL, endpoint)
	return nil
}

// Snapshot returns a copy of one schedule's state.
func (s *Scheduler) Snapshot(service string, index int) (State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.states[key{service, index}]
	if !ok {
		return State{}, false
	}
	return *st, true
}

// SnapshotAll returns every schedule's state for a service, indexed by
// schedule index.
func (s *Scheduler) SnapshotAll(service string) map[int]State {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[int]State)
	for k, st := range s.states {
		if k.service == service {
			out[k.index] = *st
		}
	}
	return out
}
