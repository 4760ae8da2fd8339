// Package providers initializes and registers all concrete data providers
// with a provider registry.
package providers

import (
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/seenimoa/krfin/internal/config"
	"github.com/seenimoa/krfin/internal/provider"
	"github.com/seenimoa/krfin/internal/providers/dart"
	"github.com/seenimoa/krfin/internal/providers/fmp"
	"github.com/seenimoa/krfin/internal/providers/krx"
	"github.com/seenimoa/krfin/internal/providers/sec"
	"github.com/seenimoa/krfin/internal/providers/yfinance"
)

// RegisterAllTo registers all available providers to the given registry.
// Registration order is fallback priority: for the directory that is
// OpenDART, then KIND, then EDGAR; for price history KRX before Yahoo.
// Providers that require API keys are only registered when keys are set.
func RegisterAllTo(reg *provider.Registry, cfg *config.Config, logger zerolog.Logger) error {
	reg.SetLogger(logger)

	// --- OpenDART (requires API keys) ---
	if len(cfg.DART.APIKeys) > 0 {
		dp := dart.New(dart.Config{
			BaseURL: cfg.DART.BaseURL,
			RSSURL:  cfg.DART.RSSURL,
			Timeout: seconds(cfg.DART.TimeoutSec),
			Logger:  logger.With().Str("provider", "dart").Logger(),
		})
		if err := dp.Init(map[string]string{"api_keys": strings.Join(cfg.DART.APIKeys, ",")}); err != nil {
			return err
		}
		if err := reg.Register(dp); err != nil {
			return err
		}
	} else {
		logger.Warn().Msg("no OpenDART API keys configured; disclosures and statements are unavailable")
	}

	// --- KRX (free, no API key) ---
	kp := krx.New(krx.Config{
		DataURL: cfg.KRX.DataURL,
		KindURL: cfg.KRX.KindURL,
		Timeout: seconds(cfg.KRX.TimeoutSec),
	})
	if err := kp.Init(nil); err != nil {
		return err
	}
	if err := reg.Register(kp); err != nil {
		return err
	}

	// --- SEC EDGAR (free, User-Agent only) ---
	sp := sec.New(sec.Config{BaseURL: cfg.SEC.BaseURL, UserAgent: cfg.SEC.UserAgent})
	if err := sp.Init(nil); err != nil {
		return err
	}
	if err := reg.Register(sp); err != nil {
		return err
	}

	// --- FMP (requires API keys) ---
	if len(cfg.FMP.APIKeys) > 0 {
		fp := fmp.New(fmp.Config{
			BaseURL: cfg.FMP.BaseURL,
			Timeout: seconds(cfg.FMP.TimeoutSec),
			Logger:  logger.With().Str("provider", "fmp").Logger(),
		})
		if err := fp.Init(map[string]string{"api_keys": strings.Join(cfg.FMP.APIKeys, ",")}); err != nil {
			return err
		}
		if err := reg.Register(fp); err != nil {
			return err
		}
	}

	// --- YFinance (free, no API key) ---
	if cfg.YFinance.Enabled {
		yf := yfinance.New(yfinance.Config{BaseURL: cfg.YFinance.BaseURL})
		if err := yf.Init(nil); err != nil {
			return err
		}
		if err := reg.Register(yf); err != nil {
			return err
		}
	}

	return nil
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
