package api

import (
	"net/http"

	"github.com/seenimoa/krfin/internal/config"
)

// handleGetConfig returns the running configuration with API keys masked.
func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    redactConfig(s.cfg),
	})
}

// handleGetConfigKeys returns the status of all sensitive API keys.
func (s *Server) handleGetConfigKeys(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    config.CheckAPIKeys(s.cfg),
	})
}

// redactConfig returns a copy of cfg safe to expose.
func redactConfig(cfg *config.Config) config.Config {
	out := *cfg
	out.DART.APIKeys = maskAll(cfg.DART.APIKeys)
	out.FMP.APIKeys = maskAll(cfg.FMP.APIKeys)
	return out
}

func maskAll(keys []string) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = config.MaskKey(k)
	}
	return out
}
