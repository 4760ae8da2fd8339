package dart

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/seenimoa/krfin/internal/provider"
	"github.com/seenimoa/krfin/pkg/models"
)

// --- Directory fetcher ---

type directoryFetcher struct {
	provider.BaseFetcher
	p *Provider
}

// Fetch returns listed corporations in corpCode.xml order. The file does not
// carry the KRX segment, so entries are tagged MarketKRX and a segment filter
// (KOSPI, KOSDAQ) yields nothing here. Every call downloads the file; the
// listing is held only by the calling session's directory cache.
func (f *directoryFetcher) Fetch(ctx context.Context, params provider.QueryParams) (*provider.FetchResult, error) {
	market, err := models.ParseMarket(params[provider.ParamMarket])
	if err != nil {
		return nil, err
	}
	if !market.Includes(models.MarketKRX) {
		return newResult([]models.DirectoryEntry{}, ""), nil
	}

	if err := f.RateLimit(ctx); err != nil {
		return nil, err
	}

	archive, key, err := f.p.getArchive(ctx, "/corpCode.xml")
	if err != nil {
		return nil, fmt.Errorf("dart corp codes: %w", err)
	}
	entries, err := parseCorpCodes(archive)
	if err != nil {
		return nil, fmt.Errorf("dart corp codes: %w", err)
	}

	return newResult(entries, key), nil
}

// parseCorpCodes reads the first file of the archive and keeps listed companies.
func parseCorpCodes(archive []byte) ([]models.DirectoryEntry, error) {
	zr, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	if len(zr.File) == 0 {
		return nil, fmt.Errorf("empty archive")
	}

	rc, err := zr.File[0].Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", zr.File[0].Name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", zr.File[0].Name, err)
	}

	var doc corpCodeFile
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse corp code xml: %w", err)
	}

	entries := make([]models.DirectoryEntry, 0, len(doc.List)/8)
	for _, c := range doc.List {
		code := strings.TrimSpace(c.StockCode)
		if code == "" {
			continue
		}
		entries = append(entries, models.DirectoryEntry{
			Code:     code,
			Name:     strings.TrimSpace(c.CorpName),
			Market:   models.MarketKRX,
			CorpCode: strings.TrimSpace(c.CorpCode),
		})
	}
	return entries, nil
}
