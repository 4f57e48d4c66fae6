package config

import (
	"encoding/json"
	"fmt"
)

// manifest mirrors the raw config/service.json wire shape verbatim before
// normalization into a Service.
type manifest struct {
	Prefix        string            `json:"prefix"`
	URL           string            `json:"url"`
	Domain        string            `json:"domain"`
	Type          string            `json:"type"`
	Runners       int               `json:"runners"`
	MemoryLimitMB *int              `json:"memory_limit_mb"`
	Listeners     []json.RawMessage `json:"listeners"`
	Schedules     []json.RawMessage `json:"schedules"`
}

// parseManifest decodes a service.json payload.
func parseManifest(data []byte) (*manifest, error) {
	var m manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing service.json: %w", err)
	}
	return &m, nil
}

// parseListener normalizes a single-entry {queue: callback_path} map.
func parseListener(raw json.RawMessage) (Listener, error) {
	var m map[string]string
	if err := json.Unmarshal(raw, &m); err != nil {
		return Listener{}, fmt.Errorf("parsing listener: %w", err)
	}
	if len(m) != 1 {
		return Listener{}, fmt.Errorf("listener must have exactly one entry, got %d", len(m))
	}
	for queue, path := range m {
		return Listener{Queue: queue, CallbackPath: path}, nil
	}
	return Listener{}, fmt.Errorf("unreachable")
}

// reservedScheduleKeys are the field names recognized in the object form of
// a schedule entry; a single-entry map whose key is none of these is instead
// treated as the {endpoint: interval} shorthand.
var reservedScheduleKeys = map[string]struct{}{
	"endpoint": {}, "path": {},
	"interval": {}, "interval_secs": {}, "seconds": {}, "every_secs": {},
}

// parseSchedule accepts any of the three documented schedule shapes:
//
//	[endpoint, interval]
//	{endpoint|path, interval|interval_secs|seconds|every_secs}
//	{endpoint: interval}   (single key, not one of the reserved names)
func parseSchedule(raw json.RawMessage) (Schedule, error) {
	var asArray []json.RawMessage
	if err := json.Unmarshal(raw, &asArray); err == nil {
		if len(asArray) != 2 {
			return Schedule{}, fmt.Errorf("array schedule must have exactly 2 elements")
		}
		var endpoint string
		var interval int
		if err := json.Unmarshal(asArray[0], &endpoint); err != nil {
			return Schedule{}, fmt.Errorf("schedule endpoint: %w", err)
		}
		if err := json.Unmarshal(asArray[1], &interval); err != nil {
			return Schedule{}, fmt.Errorf("schedule interval: %w", err)
		}
		return Schedule{Endpoint: endpoint, IntervalSeconds: interval}, nil
	}

	var asMap map[string]json.RawMessage
	if err := json.Unmarshal(raw, &asMap); err != nil {
		return Schedule{}, fmt.Errorf("parsing schedule: %w", err)
	}

	if isShorthandSchedule(asMap) {
		for key, val := range asMap {
			var interval int
			if err := json.Unmarshal(val, &interval); err != nil {
				return Schedule{}, fmt.Errorf("schedule %q interval: %w", key, err)
			}
			return Schedule{Endpoint: key, IntervalSeconds: interval}, nil
		}
	}

	endpoint, err := firstString(asMap, "endpoint", "path")
	if err != nil {
		return Schedule{}, err
	}
	interval, err := firstInt(asMap, "interval", "interval_secs", "seconds", "every_secs")
	if err != nil {
		return Schedule{}, err
	}
	return Schedule{Endpoint: endpoint, IntervalSeconds: interval}, nil
}

func isShorthandSchedule(m map[string]json.RawMessage) bool {
	if len(m) != 1 {
		return false
	}
	for key := range m {
		_, reserved := reservedScheduleKeys[key]
		return !reserved
	}
	return false
}

func firstString(m map[string]json.RawMessage, keys ...string) (string, error) {
	for _, k := range keys {
		if raw, ok := m[k]; ok {
			var s string
			if err := json.Unmarshal(raw, &s); err != nil {
				return "", fmt.Errorf("schedule.%s: %w", k, err)
			}
			return s, nil
		}
	}
	return "", fmt.Errorf("schedule missing one of %v", keys)
}

func firstInt(m map[string]json.RawMessage, keys ...string) (int, error) {
	for _, k := range keys {
		if raw, ok := m[k]; ok {
			var n int
			if err := json.Unmarshal(raw, &n); err != nil {
				return 0, fmt.Errorf("schedule.%s: %w", k, err)
			}
			return n, nil
		}
	}
	return 0, fmt.Errorf("schedule missing one of %v", keys)
}
