package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validate checks the structural constraints declared on Config and
// returns a single readable error listing every violated field.
func Validate(cfg *Config) error {
	validate := validator.New()

	// sync-dir is optional, but when set it must point at a directory
	// (or at nothing yet; the first sync creates it).
	_ = validate.RegisterValidation("dirpath", func(fl validator.FieldLevel) bool {
		dirPath := fl.Field().String()
		if dirPath == "" {
			return true
		}
		info, err := os.Stat(dirPath)
		if os.IsNotExist(err) {
			return true
		}
		return err == nil && info.IsDir()
	})

	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return fmt.Errorf("config validation failed: %w", err)
	}

	var problems []string
	for _, fe := range verrs {
		problems = append(problems, describeFieldError(fe))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
}

func describeFieldError(fe validator.FieldError) string {
	key := tomlKey(fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("missing required field '%s'", key)
	case "url":
		return fmt.Sprintf("field '%s' must be a valid URL", key)
	case "gt":
		return fmt.Sprintf("field '%s' must be greater than %s", key, fe.Param())
	case "oneof":
		return fmt.Sprintf("field '%s' must be one of: %s", key, fe.Param())
	case "dirpath":
		return fmt.Sprintf("field '%s' must be a directory", key)
	default:
		return fmt.Sprintf("field '%s' failed '%s' validation", key, fe.Tag())
	}
}

// tomlKey maps a struct field name back to its config-file key so error
// messages speak the user's language.
func tomlKey(field string) string {
	keys := map[string]string{
		"Server":           "server",
		"Username":         "username",
		"Password":         "password",
		"Threads":          "threads",
		"SyncDir":          "sync-dir",
		"OSHeuristics":     "os-heuristics",
		"CacheDetails":     "cache-details",
		"SyncRetryLimit":   "sync-retry-limit",
		"SyncSinceLastDay": "sync-since-last-day",
		"SyncOS":           "sync-os",
		"SyncBefore":       "sync-before",
		"SyncAfter":        "sync-after",
		"SyncWhen":         "sync-when",
		"SyncUser":         "sync-user",
		"SyncAny":          "sync-any",
		"SyncUnsure":       "sync-unsure",
		"LogLevel":         "log-level",
		"LogFile":          "log-file",
	}
	if key, ok := keys[field]; ok {
		return key
	}
	return field
}
