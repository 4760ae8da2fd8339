package krx

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/transform"

	"github.com/seenimoa/krfin/internal/provider"
	"github.com/seenimoa/krfin/pkg/models"
	"github.com/seenimoa/krfin/pkg/utils"
)

// kindMarketTypes maps a segment to the KIND download marketType.
var kindMarketTypes = map[models.Market]string{
	models.MarketKOSPI:  "stockMkt",
	models.MarketKOSDAQ: "kosdaqMkt",
	models.MarketKONEX:  "konexMkt",
}

var kindSegments = []models.Market{models.MarketKOSPI, models.MarketKOSDAQ, models.MarketKONEX}

// --- Directory fetcher ---

type directoryFetcher struct {
	provider.BaseFetcher
	p *Provider
}

// Fetch downloads the KIND list for each requested segment and returns the
// entries segment by segment in KIND order.
func (f *directoryFetcher) Fetch(ctx context.Context, params provider.QueryParams) (*provider.FetchResult, error) {
	market, err := models.ParseMarket(params[provider.ParamMarket])
	if err != nil {
		return nil, err
	}

	var segments []models.Market
	for _, seg := range kindSegments {
		if market.Includes(seg) {
			segments = append(segments, seg)
		}
	}
	if len(segments) == 0 {
		return newResult([]models.DirectoryEntry{}), nil
	}

	results := make([][]models.DirectoryEntry, len(segments))
	g, gctx := errgroup.WithContext(ctx)
	for i, seg := range segments {
		g.Go(func() error {
			entries, err := f.segment(gctx, seg)
			if err != nil {
				return err
			}
			results[i] = entries
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []models.DirectoryEntry
	for _, r := range results {
		all = append(all, r...)
	}
	if all == nil {
		all = []models.DirectoryEntry{}
	}
	return newResult(all), nil
}

func (f *directoryFetcher) segment(ctx context.Context, seg models.Market) ([]models.DirectoryEntry, error) {
	if err := f.RateLimit(ctx); err != nil {
		return nil, err
	}

	q := url.Values{
		"method":     {"download"},
		"searchType": {"13"},
		"marketType": {kindMarketTypes[seg]},
	}
	body, err := f.p.client.Get(ctx, f.p.kindURL+"?"+q.Encode(), map[string]string{"Accept": "text/html"})
	if err != nil {
		return nil, &provider.UpstreamError{Provider: providerName, Detail: "kind " + string(seg), Err: err}
	}

	entries, err := parseKindList(body, seg)
	if err != nil {
		return nil, fmt.Errorf("krx kind %s: %w", seg, err)
	}
	return entries, nil
}

// parseKindList reads the KIND download table. Columns are located by their
// header text; stock codes lose leading zeros in the sheet and are re-padded.
func parseKindList(body []byte, seg models.Market) ([]models.DirectoryEntry, error) {
	var r io.Reader = bytes.NewReader(body)
	if !utf8.Valid(body) {
		r = transform.NewReader(r, korean.EUCKR.NewDecoder())
	}
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	nameIdx, codeIdx, sectorIdx := -1, -1, -1
	doc.Find("tr").First().Find("th, td").Each(func(i int, s *goquery.Selection) {
		switch strings.TrimSpace(s.Text()) {
		case "회사명":
			nameIdx = i
		case "종목코드":
			codeIdx = i
		case "업종":
			sectorIdx = i
		}
	})
	if nameIdx < 0 || codeIdx < 0 {
		return nil, fmt.Errorf("header without 회사명/종목코드 columns")
	}

	var entries []models.DirectoryEntry
	doc.Find("tr").Each(func(i int, tr *goquery.Selection) {
		if i == 0 {
			return
		}
		tds := tr.Find("td")
		if tds.Length() <= nameIdx || tds.Length() <= codeIdx {
			return
		}
		code := utils.NormalizeStockCode(strings.TrimSpace(tds.Eq(codeIdx).Text()))
		name := strings.TrimSpace(tds.Eq(nameIdx).Text())
		if code == "" || name == "" {
			return
		}
		e := models.DirectoryEntry{Code: code, Name: name, Market: seg}
		if sectorIdx >= 0 && tds.Length() > sectorIdx {
			e.Sector = strings.TrimSpace(tds.Eq(sectorIdx).Text())
		}
		entries = append(entries, e)
	})
	if entries == nil {
		entries = []models.DirectoryEntry{}
	}
	return entries, nil
}
