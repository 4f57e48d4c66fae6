package config

import "strings"

// validateManifest checks a parsed manifest before normalization. Unlike
// SkippableError (missing files), every failure here is a ValidationError
// naming the offending field and aborts the whole load.
func validateManifest(name string, m *manifest) []error {
	var errs []error

	if strings.TrimSpace(m.Prefix) == "" {
		errs = append(errs, &ValidationError{Service: name, Field: "prefix", Message: "must not be empty"})
	}
	if strings.TrimSpace(m.URL) == "" {
		errs = append(errs, &ValidationError{Service: name, Field: "url", Message: "must not be empty"})
	}
	if strings.TrimSpace(m.Domain) == "" {
		errs = append(errs, &ValidationError{Service: name, Field: "domain", Message: "must not be empty"})
	}
	if !Kind(strings.ToLower(m.Type)).valid() {
		errs = append(errs, &ValidationError{Service: name, Field: "type", Message: "must be one of bff, business, adapter"})
	}
	if m.Runners < 0 {
		errs = append(errs, &ValidationError{Service: name, Field: "runners", Message: "must be at least 1"})
	}
	if m.MemoryLimitMB != nil {
		if *m.MemoryLimitMB <= 0 {
			errs = append(errs, &ValidationError{Service: name, Field: "memory_limit_mb", Message: "must be greater than zero"})
		} else if *m.MemoryLimitMB > maxMemoryLimitMB {
			errs = append(errs, &ValidationError{Service: name, Field: "memory_limit_mb", Message: "exceeds supported maximum"})
		}
	}

	return errs
}

// checkPrefixCollision reports whether prefix is already claimed by another
// loaded service.
func checkPrefixCollision(name, prefix string, seen map[string]string) error {
	if owner, ok := seen[prefix]; ok && owner != name {
		return &ValidationError{
			Service: name,
			Field:   "prefix",
			Message: "collides with service " + owner,
		}
	}
	return nil
}
