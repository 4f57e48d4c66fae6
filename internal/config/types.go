// Package config discovers, parses, and validates the services this runner
// manages: one subdirectory per service under the configured services
// directory, each carrying a config/service.json manifest and an
// openapi.json endpoint surface.
package config

// Kind classifies a service's architectural role.
type Kind string

const (
	KindBFF      Kind = "bff"
	KindBusiness Kind = "business"
	KindAdapter  Kind = "adapter"
)

func (k Kind) valid() bool {
	switch k {
	case KindBFF, KindBusiness, KindAdapter:
		return true
	default:
		return false
	}
}

// Listener binds a queue name to the relative path a service wants
// published messages delivered to.
type Listener struct {
	Queue        string
	CallbackPath string
}

// Schedule binds a periodic webhook to one of a service's GET endpoints.
type Schedule struct {
	Endpoint        string
	IntervalSeconds int
}

// Service is the immutable, validated record produced by Load for one
// discovered service directory.
type Service struct {
	Name                string
	Dir                 string
	Domain              string
	Kind                Kind
	Prefix              string
	BaseURL             string
	RunnerURLs          []string
	AllowedGetEndpoints map[string]struct{}
	QueueListeners      []Listener
	Schedules           []Schedule
	MemoryLimitMB       int
}

// maxMemoryLimitMB bounds memory_limit_mb so that the Wasm page conversion
// (limit * 16) never overflows a uint32 page count.
const maxMemoryLimitMB = int(^uint32(0) / 16)
