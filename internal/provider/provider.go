// Package provider implements the provider abstraction layer.
// It defines a Provider interface, a Fetcher interface, and a central registry
// that routes data requests to the appropriate provider based on model type.
package provider

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ProviderCredential describes a required credential for a provider.
type ProviderCredential struct {
	Name        string `json:"name"`        // e.g., "api_keys"
	Description string `json:"description"` // e.g., "OpenDART API keys (comma separated)"
	Required    bool   `json:"required"`
	EnvVar      string `json:"env_var"` // environment variable name, e.g., "KRFIN_DART_API_KEYS"
}

// ProviderInfo holds metadata about a registered provider.
type ProviderInfo struct {
	Name        string               `json:"name"`        // e.g., "dart", "krx"
	Description string               `json:"description"` // human-readable description
	Website     string               `json:"website"`     // e.g., "https://opendart.fss.or.kr"
	Credentials []ProviderCredential `json:"credentials"`
	Models      []ModelType          `json:"models"` // supported standard models
}

// Provider is the interface that all data providers must implement.
// Each provider registers one or more Fetcher implementations for specific
// standard model types (e.g., Directory, FinancialStatement, MarketCap).
type Provider interface {
	// Info returns metadata about this provider.
	Info() ProviderInfo

	// Init initializes the provider with credentials and configuration.
	// Called once during registration. Returns an error if required credentials
	// are missing or invalid.
	Init(credentials map[string]string) error

	// Fetcher returns the fetcher for the given model type, or nil if unsupported.
	Fetcher(model ModelType) Fetcher

	// SupportedModels returns all model types this provider can fetch.
	SupportedModels() []ModelType

	// Ping verifies the provider's connectivity and credentials.
	Ping(ctx context.Context) error
}

// QueryParams is the generic query parameter map passed to fetchers.
// Common keys include:
//   - "symbol"        : stock code or ticker (e.g., "005930", "AAPL")
//   - "corp_code"     : OpenDART corporation code
//   - "start_date"    : start date (YYYYMMDD or YYYY-MM-DD)
//   - "end_date"      : end date
//   - "market"        : directory market filter ("KOSPI", "US", "ALL")
//   - "fs_div"        : statement division ("CFS" or "OFS")
//   - "provider"      : override provider name
//
// Each fetcher defines which keys it requires/supports.
type QueryParams map[string]string

// QueryParamKey constants for commonly used query parameters.
const (
	ParamSymbol         = "symbol"
	ParamCorpCode       = "corp_code"
	ParamStartDate      = "start_date"
	ParamEndDate        = "end_date"
	ParamDate           = "date"
	ParamMarket         = "market"
	ParamPeriod         = "period"
	ParamIndex          = "index"
	ParamDisclosureType = "disclosure_type"
	ParamReceiptNo      = "rcept_no"
	ParamBusinessYear   = "bsns_year"
	ParamReportCode     = "reprt_code"
	ParamDivision       = "fs_div"
	ParamQuery          = "query"
	ParamProvider       = "provider"
)

// FetchResult wraps a fetcher result with metadata.
type FetchResult struct {
	Provider  string    `json:"provider"`          // which provider returned this data
	Model     ModelType `json:"model"`             // the standard model type
	Data      any       `json:"data"`              // the fetched data (typed per model)
	Variant   string    `json:"variant,omitempty"` // provider-internal variant used, e.g. "CFS"
	FetchedAt time.Time `json:"fetched_at"`        // when the data was fetched
	Cached    bool      `json:"cached"`            // whether this came from cache
}

// Fetcher is the interface for fetching a specific data type.
// Each Fetcher handles a single standard model type (e.g., EquityHistorical).
type Fetcher interface {
	// ModelType returns the standard model type this fetcher handles.
	ModelType() ModelType

	// Description returns a human-readable description of what this fetcher does.
	Description() string

	// RequiredParams returns the parameter keys this fetcher requires.
	RequiredParams() []string

	// OptionalParams returns the parameter keys this fetcher optionally accepts.
	OptionalParams() []string

	// Fetch retrieves data for the given query parameters.
	// The returned data type depends on the standard model:
	//   - Directory          → []models.DirectoryEntry
	//   - FinancialStatement → []models.StatementLine
	//   - EquityHistorical   → []models.OHLCV
	//   etc. An empty slice means the upstream answered with no records.
	Fetch(ctx context.Context, params QueryParams) (*FetchResult, error)
}

// ErrProviderNotFound is returned when a requested provider is not registered.
type ErrProviderNotFound struct {
	Name string
}

func (e *ErrProviderNotFound) Error() string {
	return fmt.Sprintf("provider %q not found", e.Name)
}

// ErrModelNotSupported is returned when a provider doesn't support a model type.
type ErrModelNotSupported struct {
	Provider string
	Model    ModelType
}

func (e *ErrModelNotSupported) Error() string {
	return fmt.Sprintf("provider %q does not support model %q", e.Provider, e.Model)
}

// ErrMissingParam is returned when a required query parameter is missing.
type ErrMissingParam struct {
	Param string
}

func (e *ErrMissingParam) Error() string {
	return fmt.Sprintf("missing required parameter %q", e.Param)
}

// ErrInvalidCredentials is returned when provider credentials are invalid.
type ErrInvalidCredentials struct {
	Provider string
	Detail   string
}

func (e *ErrInvalidCredentials) Error() string {
	return fmt.Sprintf("invalid credentials for provider %q: %s", e.Provider, e.Detail)
}

// ErrUpstreamUnavailable matches every *UpstreamError via errors.Is.
var ErrUpstreamUnavailable = errors.New("upstream unavailable")

// UpstreamError is a non-success answer from an upstream API: a transport
// failure, a non-2xx status, or an application-level status code.
type UpstreamError struct {
	Provider string
	Status   string // upstream status code, e.g. DART "020"
	Detail   string
	Err      error
}

func (e *UpstreamError) Error() string {
	msg := fmt.Sprintf("%s upstream unavailable", e.Provider)
	if e.Status != "" {
		msg += " (status " + e.Status + ")"
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *UpstreamError) Unwrap() error { return e.Err }

func (e *UpstreamError) Is(target error) bool { return target == ErrUpstreamUnavailable }

// ValidateParams checks that all required parameters are present in params.
func ValidateParams(params QueryParams, required []string) error {
	for _, key := range required {
		if v, ok := params[key]; !ok || v == "" {
			return &ErrMissingParam{Param: key}
		}
	}
	return nil
}
