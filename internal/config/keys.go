package config

import "os"

// APIKeySource represents where an API key comes from.
type APIKeySource string

const (
	KeySourceEnv    APIKeySource = "env"
	KeySourceConfig APIKeySource = "config"
	KeySourceNone   APIKeySource = "none"
)

// KeyStatus represents the status of an API key list.
type KeyStatus struct {
	Name   string       `json:"name"`
	Source APIKeySource `json:"source"`
	IsSet  bool         `json:"is_set"`
	Count  int          `json:"count"`
	Masked []string     `json:"masked,omitempty"` // e.g., "ded...661"
}

// CheckAPIKeys returns the status of all credential lists.
func CheckAPIKeys(cfg *Config) []KeyStatus {
	return []KeyStatus{
		checkKeys("OpenDART API Keys", cfg.DART.APIKeys, "KRFIN_DART_API_KEYS"),
		checkKeys("FMP API Keys", cfg.FMP.APIKeys, "KRFIN_FMP_API_KEYS"),
	}
}

// checkKeys checks if keys are set and where they came from.
func checkKeys(name string, values []string, envVar string) KeyStatus {
	status := KeyStatus{
		Name:  name,
		IsSet: len(values) > 0,
		Count: len(values),
	}

	if len(values) == 0 {
		status.Source = KeySourceNone
		return status
	}
	if os.Getenv(envVar) != "" {
		status.Source = KeySourceEnv
	} else {
		status.Source = KeySourceConfig
	}
	for _, v := range values {
		status.Masked = append(status.Masked, MaskKey(v))
	}
	return status
}

// MaskKey masks an API key for display, showing only first 3 and last 3 chars.
func MaskKey(key string) string {
	if len(key) <= 8 {
		return "***"
	}
	return key[:3] + "..." + key[len(key)-3:]
}
