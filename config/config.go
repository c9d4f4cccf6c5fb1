package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

func New() map[string]string {
	environ := os.Environ()
	envAsMap := make(map[string]string, len(environ))
	for _, entry := range environ {
		if entry != "" {
			key, value := split(entry)
			envAsMap[key] = value
		}
	}
	return envAsMap
}

// assumes entry is not the empty string
func split(entry string) (key, value string) {
	parts := strings.SplitN(entry, "=", 2)
	if len(parts) < 2 {
		return parts[0], ""
	}
	return parts[0], parts[1]
}

func GetString(config map[string]string, key string, defaultValue string) string {
	if config == nil {
		return defaultValue
	}

	if val, ok := config[key]; ok && val != "" {
		return val
	}
	return defaultValue
}

func GetInt(config map[string]string, key string, defaultValue int) int {
	if config == nil {
		return defaultValue
	}

	s, ok := config[key]
	if !ok {
		return defaultValue
	}

	asInt, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return defaultValue
	}

	return asInt
}

func GetBool(config map[string]string, key string, defaultValue bool) bool {
	if config == nil {
		return defaultValue
	}

	s, ok := config[key]
	if !ok {
		return defaultValue
	}

	asBool, err := strconv.ParseBool(strings.TrimSpace(s))
	if err != nil {
		return defaultValue
	}

	return asBool
}

// GetSeconds reads an integer number of seconds as a duration
func GetSeconds(config map[string]string, key string, defaultSeconds int) time.Duration {
	return time.Duration(GetInt(config, key, defaultSeconds)) * time.Second
}

// GetList splits a comma separated value, dropping blank entries
func GetList(config map[string]string, key string) []string {
	return getSeparated(config, key, ",")
}

func getSeparated(config map[string]string, key, sep string) []string {
	raw := GetString(config, key, "")
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, sep) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// GetPairs parses "name:value<sep>name:value" lists such as ADMIN_USERS.
// Only the first colon separates name from value, so values may contain colons.
func GetPairs(config map[string]string, key, sep string) map[string]string {
	entries := getSeparated(config, key, sep)
	if len(entries) == 0 {
		return nil
	}
	pairs := make(map[string]string, len(entries))
	for _, entry := range entries {
		name, value, ok := strings.Cut(entry, ":")
		if !ok || name == "" {
			continue
		}
		pairs[name] = value
	}
	return pairs
}
