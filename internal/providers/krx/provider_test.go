package krx

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"golang.org/x/text/encoding/korean"

	"github.com/seenimoa/krfin/internal/provider"
	"github.com/seenimoa/krfin/pkg/models"
)

func newTestProvider(t *testing.T, h http.HandlerFunc) *Provider {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(Config{DataURL: srv.URL + "/data", KindURL: srv.URL + "/kind"})
}

func eucKR(t *testing.T, s string) []byte {
	t.Helper()
	b, err := korean.EUCKR.NewEncoder().Bytes([]byte(s))
	if err != nil {
		t.Fatalf("encode euc-kr: %v", err)
	}
	return b
}

func TestProviderInfo(t *testing.T) {
	p := New(Config{})
	if p.Info().Name != "krx" {
		t.Errorf("expected name krx, got %s", p.Info().Name)
	}
	if err := p.Init(nil); err != nil {
		t.Errorf("Init with nil credentials should succeed: %v", err)
	}
	want := []provider.ModelType{
		provider.ModelDirectory,
		provider.ModelMarketCap,
		provider.ModelEquityHistorical,
		provider.ModelIndexHistorical,
	}
	got := p.SupportedModels()
	if len(got) != len(want) {
		t.Fatalf("SupportedModels: got %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("SupportedModels[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestDirectoryFromKind(t *testing.T) {
	tables := map[string]string{
		"stockMkt": `<table><tr><th>회사명</th><th>종목코드</th><th>업종</th></tr>
<tr><td>삼성전자</td><td>5930</td><td>통신 및 방송 장비 제조업</td></tr>
<tr><td>삼성전자우</td><td>005935</td><td>통신 및 방송 장비 제조업</td></tr></table>`,
		"kosdaqMkt": `<table><tr><th>회사명</th><th>종목코드</th><th>업종</th></tr>
<tr><td>에코프로비엠</td><td>247540</td><td>일차전지 및 축전지 제조업</td></tr></table>`,
		"konexMkt": `<table><tr><th>회사명</th><th>종목코드</th></tr></table>`,
	}
	var calls atomic.Int32
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		html, ok := tables[r.URL.Query().Get("marketType")]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=euc-kr")
		w.Write(eucKR(t, html))
	})

	f := p.Fetcher(provider.ModelDirectory)
	res, err := f.Fetch(context.Background(), provider.QueryParams{provider.ParamMarket: "ALL"})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	entries := res.Data.([]models.DirectoryEntry)
	if len(entries) != 3 {
		t.Fatalf("entries: got %d, want 3", len(entries))
	}
	if entries[0].Code != "005930" || entries[0].Name != "삼성전자" || entries[0].Market != models.MarketKOSPI {
		t.Errorf("entry 0: %+v", entries[0])
	}
	if entries[2].Market != models.MarketKOSDAQ || entries[2].Sector == "" {
		t.Errorf("entry 2: %+v", entries[2])
	}
	if calls.Load() != 3 {
		t.Errorf("calls: got %d, want 3", calls.Load())
	}

	// KOSDAQ only. Listings are never cached by the provider, so KIND is asked again.
	res, err = f.Fetch(context.Background(), provider.QueryParams{provider.ParamMarket: "KOSDAQ"})
	if err != nil || len(res.Data.([]models.DirectoryEntry)) != 1 {
		t.Errorf("KOSDAQ: %+v, %v", res, err)
	}
	if res.Cached || calls.Load() != 4 {
		t.Errorf("second fetch: cached=%v calls=%d, want fresh and 4", res.Cached, calls.Load())
	}

	res, err = f.Fetch(context.Background(), provider.QueryParams{provider.ParamMarket: "US"})
	if err != nil || !provider.IsEmptyData(res.Data) {
		t.Errorf("US: %+v, %v", res, err)
	}
}

func TestParseKindListUTF8AndMissingHeader(t *testing.T) {
	entries, err := parseKindList([]byte(`<table><tr><td>회사명</td><td>종목코드</td></tr><tr><td>카카오</td><td>35720</td></tr></table>`), models.MarketKOSPI)
	if err != nil {
		t.Fatalf("parseKindList: %v", err)
	}
	if len(entries) != 1 || entries[0].Code != "035720" {
		t.Errorf("entries: %+v", entries)
	}

	if _, err := parseKindList([]byte(`<table><tr><td>이름</td></tr></table>`), models.MarketKOSPI); err == nil {
		t.Error("expected error for missing columns")
	}
}

func TestMarketCapFetch(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatal(err)
		}
		if r.Header.Get("Referer") == "" {
			t.Error("missing Referer header")
		}
		if r.Form.Get("mktId") != "STK" || r.Form.Get("trdDd") != "20231228" {
			t.Errorf("form: %v", r.Form)
		}
		fmt.Fprint(w, `{"OutBlock_1":[
{"ISU_SRT_CD":"005930","ISU_ABBRV":"삼성전자","MKT_NM":"KOSPI","TDD_CLSPRC":"78,500","MKTCAP":"468,627,110,797,500","LIST_SHRS":"5,969,782,550"},
{"ISU_SRT_CD":"000660","ISU_ABBRV":"SK하이닉스","MKT_NM":"KOSPI","TDD_CLSPRC":"141,500","MKTCAP":"103,012,599,795,000","LIST_SHRS":"728,002,365"}]}`)
	})

	f := p.Fetcher(provider.ModelMarketCap)
	res, err := f.Fetch(context.Background(), provider.QueryParams{
		provider.ParamDate:   "2023-12-28",
		provider.ParamMarket: "KOSPI",
		provider.ParamSymbol: "000660",
	})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	rows := res.Data.([]models.MarketCap)
	if len(rows) != 1 || rows[0].Name != "SK하이닉스" || rows[0].ListedShares != "728,002,365" || rows[0].Date != "20231228" {
		t.Errorf("rows: %+v", rows)
	}

	res, err = f.Fetch(context.Background(), provider.QueryParams{provider.ParamDate: "20231228", provider.ParamMarket: "KOSPI"})
	if err != nil || !res.Cached || len(res.Data.([]models.MarketCap)) != 2 {
		t.Errorf("cached snapshot: %+v, %v", res, err)
	}
}

func TestMarketCapHolidayIsEmpty(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"OutBlock_1":[{"ISU_SRT_CD":"005930","ISU_ABBRV":"삼성전자","MKT_NM":"KOSPI","TDD_CLSPRC":"-","MKTCAP":"-","LIST_SHRS":"-"}]}`)
	})
	res, err := p.Fetcher(provider.ModelMarketCap).Fetch(context.Background(), provider.QueryParams{provider.ParamDate: "20231231"})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if !provider.IsEmptyData(res.Data) {
		t.Errorf("expected empty snapshot, got %v", res.Data)
	}
}

func TestMarketCapBadDate(t *testing.T) {
	p := New(Config{})
	if _, err := p.Fetcher(provider.ModelMarketCap).Fetch(context.Background(), provider.QueryParams{provider.ParamDate: "2023"}); err == nil {
		t.Error("expected error for short date")
	}
}

func TestEquityHistorical(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		switch r.Form.Get("bld") {
		case "dbms/comm/finder/finder_stkisu":
			fmt.Fprint(w, `{"block1":[{"full_code":"KR7005930003","short_code":"005930","codeName":"삼성전자"}]}`)
		case "dbms/MDC/STAT/standard/MDCSTAT01701":
			if r.Form.Get("isuCd") != "KR7005930003" {
				t.Errorf("isuCd: %q", r.Form.Get("isuCd"))
			}
			fmt.Fprint(w, `{"output":[
{"TRD_DD":"2023/01/03","TDD_CLSPRC":"55,400","TDD_OPNPRC":"55,400","TDD_HGPRC":"56,000","TDD_LWPRC":"54,500","ACC_TRDVOL":"13,547,030"},
{"TRD_DD":"2023/01/02","TDD_CLSPRC":"55,500","TDD_OPNPRC":"55,500","TDD_HGPRC":"56,100","TDD_LWPRC":"55,200","ACC_TRDVOL":"10,031,448"}]}`)
		default:
			t.Errorf("unexpected bld %q", r.Form.Get("bld"))
		}
	})

	res, err := p.Fetcher(provider.ModelEquityHistorical).Fetch(context.Background(), provider.QueryParams{
		provider.ParamSymbol:    "005930",
		provider.ParamStartDate: "20230101",
		provider.ParamEndDate:   "20230110",
	})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	bars := res.Data.([]models.OHLCV)
	if len(bars) != 2 {
		t.Fatalf("bars: got %d", len(bars))
	}
	if bars[0].Close != 55500 || bars[1].Volume != 13547030 {
		t.Errorf("bars not ascending or misparsed: %+v", bars)
	}
}

func TestIndexHistorical(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		if r.Form.Get("indIdx") != "2" || r.Form.Get("indIdx2") != "001" {
			t.Errorf("form: %v", r.Form)
		}
		fmt.Fprint(w, `{"output":[{"TRD_DD":"2023/01/02","CLSPRC_IDX":"671.55","OPNPRC_IDX":"678.56","HGPRC_IDX":"682.00","LWPRC_IDX":"669.82","ACC_TRDVOL":"1,000"}]}`)
	})

	res, err := p.Fetcher(provider.ModelIndexHistorical).Fetch(context.Background(), provider.QueryParams{
		provider.ParamIndex:     "KOSDAQ",
		provider.ParamStartDate: "20230101",
		provider.ParamEndDate:   "20230102",
	})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	bars := res.Data.([]models.OHLCV)
	if len(bars) != 1 || bars[0].Close != 671.55 {
		t.Errorf("bars: %+v", bars)
	}
}

func TestUpstreamFailure(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "LOGOUT", http.StatusBadRequest)
	})
	_, err := p.Fetcher(provider.ModelIndexHistorical).Fetch(context.Background(), provider.QueryParams{
		provider.ParamIndex: "KOSPI", provider.ParamStartDate: "20230101", provider.ParamEndDate: "20230102",
	})
	if !errors.Is(err, provider.ErrUpstreamUnavailable) {
		t.Errorf("expected ErrUpstreamUnavailable, got %v", err)
	}
}
