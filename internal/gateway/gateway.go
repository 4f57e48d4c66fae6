// Package gateway is the runner's single public HTTP listener: it routes
// the fixed "/__runner__/..." control endpoints, renders the dashboard,
// and reverse-proxies every other "/<prefix>/<endpoint>" request to the
// matching service, recording the status code of every forwarded request
// (or 502 when the upstream is unreachable) into the stats store.
package gateway

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/julienschmidt/httprouter"

	"github.com/kodflow/daemon/internal/config"
	"github.com/kodflow/daemon/internal/health"
	"github.com/kodflow/daemon/internal/logging"
	"github.com/kodflow/daemon/internal/logs"
	"github.com/kodflow/daemon/internal/memory"
	"github.com/kodflow/daemon/internal/queue"
	"github.com/kodflow/daemon/internal/scheduler"
	"github.com/kodflow/daemon/internal/stats"
)

// DefaultPort is the gateway's fixed public listening port.
const DefaultPort = 14000

// upstreamTimeout bounds a single reverse-proxied request.
const upstreamTimeout = 10 * time.Second

// Gateway wires every shared store into one HTTP router.
type Gateway struct {
	services   map[string]*config.Service // by prefix
	byName     map[string]*config.Service

	health    *health.Store
	logs      *logs.Store
	memory    *memory.Store
	queues    *queue.Registry
	schedules *scheduler.Scheduler
	stats     *stats.Store

	access *logging.Writer // optional access log, nil disables it

	client *http.Client

	// rrIndex holds one round-robin counter per service, populated once at
	// construction and never mutated afterward — safe for concurrent
	// atomic increments without a map-level lock.
	rrIndex map[string]*uint64
}

// Deps bundles every shared store the gateway dispatches against.
type Deps struct {
	Services  []*config.Service
	Health    *health.Store
	Logs      *logs.Store
	Memory    *memory.Store
	Queues    *queue.Registry
	Schedules *scheduler.Scheduler
	Stats     *stats.Store
	Access    *logging.Writer // may be nil
}

// New builds a Gateway and its http.Handler from the loaded services and
// shared stores. Returns an error if two services collide on prefix (the
// config loader already rejects this at load time, so this is defensive).
func New(deps Deps) (*Gateway, http.Handler, error) {
	g := &Gateway{
		services:  make(map[string]*config.Service, len(deps.Services)),
		byName:    make(map[string]*config.Service, len(deps.Services)),
		health:    deps.Health,
		logs:      deps.Logs,
		memory:    deps.Memory,
		queues:    deps.Queues,
		schedules: deps.Schedules,
		stats:     deps.Stats,
		access:    deps.Access,
		client:    &http.Client{Timeout: upstreamTimeout},
		rrIndex:   make(map[string]*uint64),
	}

	for _, svc := range deps.Services {
		if _, dup := g.services[svc.Prefix]; dup {
			return nil, nil, fmt.Errorf("prefix %q claimed by more than one service", svc.Prefix)
		}
		g.services[svc.Prefix] = svc
		g.byName[svc.Name] = svc
		var counter uint64
		g.rrIndex[svc.Name] = &counter
	}

	router := httprouter.New()
	router.GET("/health", g.handleHealth)
	router.GET("/", g.handleDashboard)
	router.GET("/__runner__/stats", g.handleStats)
	router.GET("/__runner__/services/:name/logs", g.handleServiceLogs)
	router.GET("/__runner__/services/:name/openapi", g.handleServiceOpenAPI)
	router.POST("/__runner__/services/:name/schedules/:index/toggle", g.handleScheduleToggle)
	router.POST("/__runner__/services/:name/schedules/:index/run", g.handleScheduleRun)
	router.POST("/__runner__/queues/:queue", g.handlePublish)
	// httprouter cannot register "/:prefix/*rest" beside the static routes
	// above, so every request no fixed route matches falls through to the
	// reverse proxy, which answers 404 for anything it does not forward.
	router.NotFound = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		prefix, rest, _ := strings.Cut(strings.TrimPrefix(r.URL.Path, "/"), "/")
		g.handleProxy(w, r, httprouter.Params{
			{Key: "prefix", Value: prefix},
			{Key: "rest", Value: "/" + rest},
		})
	})
	router.HandleMethodNotAllowed = true

	var handler http.Handler = router
	if g.access != nil {
		handler = g.withAccessLog(handler)
	}
	return g, handler, nil
}

func (g *Gateway) withAccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)
		g.access.WriteLine(fmt.Sprintf("[gateway] %s %s %d %s", r.Method, r.URL.Path, rec.status, time.Since(start)))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func notFound(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	w.Write([]byte("not found"))
}

func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("ok"))
}

// nextInstance returns the round-robin upstream base URL for svc and
// advances its counter atomically, so concurrent callers observe a
// monotonically rotating sequence of instances.
func (g *Gateway) nextInstance(svc *config.Service) string {
	if len(svc.RunnerURLs) == 1 {
		return svc.RunnerURLs[0]
	}
	counter := g.rrIndex[svc.Name]
	n := atomic.AddUint64(counter, 1)
	return svc.RunnerURLs[int(n-1)%len(svc.RunnerURLs)]
}

// sortedServiceNames returns every loaded service's name, ascending.
func (g *Gateway) sortedServiceNames() []string {
	names := make([]string, 0, len(g.byName))
	for name := range g.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
