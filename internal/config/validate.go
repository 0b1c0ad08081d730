package config

import "fmt"

// ValidationError represents a single validation issue with a descriptor.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateStore checks cross-descriptor semantics that struct tags cannot
// express. It returns a slice of all validation errors found (empty if valid).
func ValidateStore(s *Store) []ValidationError {
	var errs []ValidationError

	if len(s.Environments.Environments) == 0 {
		errs = append(errs, ValidationError{
			Field:   "environments",
			Message: "at least one environment is required",
		})
	}

	for name, env := range s.Environments.Environments {
		if name == "" {
			errs = append(errs, ValidationError{
				Field:   "environments",
				Message: "environment name must not be empty",
			})
		}
		if env.Protocol == "https" && env.Port == 80 {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("environments.%s.port", name),
				Message: "https on port 80 — protocol and port disagree",
			})
		}
	}

	for _, platform := range []struct {
		name string
		m    PlatformManifest
	}{
		{"ANDROID", s.Manifest.Android},
		{"IOS", s.Manifest.IOS},
	} {
		if m := platform.m; m.Version == "" {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("app.%s.VERSION", platform.name),
				Message: "is required",
			})
		} else if m.Build < 0 {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("app.%s.BUILD", platform.name),
				Message: "must not be negative",
			})
		}
	}

	return errs
}
