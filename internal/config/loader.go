package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// Load walks servicesDir, one subdirectory per service, and returns the
// validated, name-sorted list of services it finds. A subdirectory missing
// config/service.json, openapi.json, or a build manifest (go.mod) is
// skipped with a logged warning; a present-but-malformed file aborts the
// load entirely.
func Load(servicesDir string) ([]*Service, error) {
	entries, err := os.ReadDir(servicesDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading services directory %s: %w", servicesDir, err)
	}

	var services []*Service
	prefixes := make(map[string]string)

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name := entry.Name()
		dir := filepath.Join(servicesDir, name)

		svc, skip, err := loadOne(name, dir)
		if err != nil {
			return nil, err
		}
		if skip != nil {
			fmt.Printf("[svc:%s][WARN] skipping: %s\n", name, skip.Reason)
			continue
		}

		if err := checkPrefixCollision(name, svc.Prefix, prefixes); err != nil {
			return nil, err
		}
		prefixes[svc.Prefix] = name

		services = append(services, svc)
	}

	sort.Slice(services, func(i, j int) bool { return services[i].Name < services[j].Name })
	return services, nil
}

func loadOne(name, dir string) (*Service, *SkippableError, error) {
	manifestPath := filepath.Join(dir, "config", "service.json")
	if _, err := os.Stat(manifestPath); err != nil {
		return nil, &SkippableError{Service: name, Reason: "config/service.json not found"}, nil
	}

	buildManifestPath := filepath.Join(dir, "go.mod")
	if _, err := os.Stat(buildManifestPath); err != nil {
		return nil, &SkippableError{Service: name, Reason: "go.mod not found"}, nil
	}

	manifestData, err := os.ReadFile(manifestPath)
	if err != nil {
		return nil, nil, &InvalidError{Service: name, File: manifestPath, Reason: err.Error()}
	}
	m, err := parseManifest(manifestData)
	if err != nil {
		return nil, nil, &InvalidError{Service: name, File: manifestPath, Reason: err.Error()}
	}

	if errs := validateManifest(name, m); len(errs) > 0 {
		return nil, nil, errors.Join(errs...)
	}

	openapiPath := filepath.Join(dir, "openapi.json")
	openapiData, err := os.ReadFile(openapiPath)
	if err != nil {
		return nil, &SkippableError{Service: name, Reason: "openapi.json not found"}, nil
	}
	allowed, err := parseOpenAPIGetEndpoints(openapiData)
	if err != nil {
		return nil, nil, &InvalidError{Service: name, File: openapiPath, Reason: err.Error()}
	}

	listeners := make([]Listener, 0, len(m.Listeners))
	for _, raw := range m.Listeners {
		l, err := parseListener(raw)
		if err != nil {
			return nil, nil, &InvalidError{Service: name, File: manifestPath, Reason: err.Error()}
		}
		if strings.TrimSpace(l.Queue) == "" {
			return nil, nil, &ValidationError{Service: name, Field: "listeners", Message: "declares an empty queue name"}
		}
		if strings.TrimSpace(l.CallbackPath) == "" {
			return nil, nil, &ValidationError{Service: name, Field: "listeners", Message: "declares an empty callback path"}
		}
		if !strings.HasPrefix(l.CallbackPath, "/") {
			return nil, nil, &ValidationError{Service: name, Field: "listeners", Message: "callback path must start with '/'"}
		}
		listeners = append(listeners, l)
	}

	schedules := make([]Schedule, 0, len(m.Schedules))
	for i, raw := range m.Schedules {
		sch, err := parseSchedule(raw)
		if err != nil {
			return nil, nil, &InvalidError{Service: name, File: manifestPath, Reason: fmt.Sprintf("schedule #%d: %v", i, err)}
		}
		endpoint := strings.Trim(strings.TrimSpace(sch.Endpoint), "/")
		if endpoint == "" {
			return nil, nil, &ValidationError{Service: name, Field: fmt.Sprintf("schedules[%d].endpoint", i), Message: "must not be empty"}
		}
		if sch.IntervalSeconds <= 0 {
			return nil, nil, &ValidationError{Service: name, Field: fmt.Sprintf("schedules[%d].interval", i), Message: "must be greater than zero"}
		}
		if _, ok := allowed[endpoint]; !ok {
			return nil, nil, &ValidationError{Service: name, Field: fmt.Sprintf("schedules[%d].endpoint", i), Message: "not declared in openapi.json GET endpoints"}
		}
		schedules = append(schedules, Schedule{Endpoint: endpoint, IntervalSeconds: sch.IntervalSeconds})
	}

	runners := m.Runners
	if runners == 0 {
		runners = 1
	}
	runnerURLs, err := buildRunnerURLs(name, m.URL, runners)
	if err != nil {
		return nil, nil, err
	}

	memLimit := 0
	if m.MemoryLimitMB != nil {
		memLimit = *m.MemoryLimitMB
	}

	return &Service{
		Name:                name,
		Dir:                 dir,
		Domain:              m.Domain,
		Kind:                Kind(strings.ToLower(m.Type)),
		Prefix:              m.Prefix,
		BaseURL:             runnerURLs[0],
		RunnerURLs:          runnerURLs,
		AllowedGetEndpoints: allowed,
		QueueListeners:      listeners,
		Schedules:           schedules,
		MemoryLimitMB:       memLimit,
	}, nil, nil
}

// buildRunnerURLs expands url into `runners` URLs with consecutive ports
// starting at url's own port, per the multi-runner URL expansion rule.
func buildRunnerURLs(name, rawURL string, runners int) ([]string, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(rawURL), "/")
	if trimmed == "" {
		return nil, &ValidationError{Service: name, Field: "url", Message: "must not be empty"}
	}
	if runners == 1 {
		return []string{trimmed}, nil
	}

	parsed, err := url.Parse(trimmed)
	if err != nil {
		return nil, &ValidationError{Service: name, Field: "url", Message: fmt.Sprintf("invalid URL: %v", err)}
	}
	if parsed.Port() == "" {
		return nil, &ValidationError{Service: name, Field: "url", Message: "must include a port to run multiple instances"}
	}
	startPort, err := strconv.Atoi(parsed.Port())
	if err != nil {
		return nil, &ValidationError{Service: name, Field: "url", Message: "invalid port"}
	}

	urls := make([]string, 0, runners)
	for i := 0; i < runners; i++ {
		port := startPort + i
		if port > 65535 {
			return nil, &ValidationError{Service: name, Field: "runners", Message: "would exceed TCP port range"}
		}
		clone := *parsed
		clone.Host = fmt.Sprintf("%s:%d", clone.Hostname(), port)
		urls = append(urls, strings.TrimRight(clone.String(), "/"))
	}
	return urls, nil
}
