package stats

import "sort"

// Snapshot produces the sorted, serializable view of the whole store: the
// per-service/per-endpoint minute series plus a global aggregate summing
// every service's counts per minute and status.
func (s *Store) Snapshot(nowUnix int64) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	global := make(map[int64]minuteBucket)
	serviceNames := make([]string, 0, len(s.services))
	for name := range s.services {
		serviceNames = append(serviceNames, name)
	}
	sort.Strings(serviceNames)

	services := make([]ServiceSnapshot, 0, len(serviceNames))
	for _, name := range serviceNames {
		endpoints := s.services[name]
		endpointNames := make([]string, 0, len(endpoints))
		for ep := range endpoints {
			endpointNames = append(endpointNames, ep)
		}
		sort.Strings(endpointNames)

		epSnaps := make([]EndpointSnapshot, 0, len(endpointNames))
		for _, ep := range endpointNames {
			minutes := endpoints[ep]
			epSnaps = append(epSnaps, EndpointSnapshot{
				Endpoint: ep,
				Minutes:  sortedAggregates(minutes),
			})
			for minute, bucket := range minutes {
				g, ok := global[minute]
				if !ok {
					g = make(minuteBucket)
					global[minute] = g
				}
				for status, count := range bucket {
					g[status] += count
				}
			}
		}

		services = append(services, ServiceSnapshot{Service: name, Endpoints: epSnaps})
	}

	return Snapshot{
		GeneratedAt:   nowUnix,
		WindowMinutes: WindowMinutes,
		Global:        sortedAggregates(global),
		Services:      services,
	}
}

func sortedAggregates(minutes map[int64]minuteBucket) []MinuteAggregate {
	keys := make([]int64, 0, len(minutes))
	for m := range minutes {
		keys = append(keys, m)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	out := make([]MinuteAggregate, 0, len(keys))
	for _, m := range keys {
		counts := make(map[int]int64, len(minutes[m]))
		for status, count := range minutes[m] {
			counts[status] = count
		}
		out = append(out, MinuteAggregate{Minute: m, Counts: counts})
	}
	return out
}
