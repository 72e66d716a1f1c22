package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"marketdata-service/internal/application"
)

var _ application.Upstream = (*Fake)(nil)

// Fake serves canned payloads keyed by endpoint path. It backs PROVIDER=fake
// for local runs without an API key.
type Fake struct {
	payloads map[string]json.RawMessage
}

func NewFake() *Fake {
	p := make(map[string]json.RawMessage, 8)
	p["quote"] = json.RawMessage(`{"c":189.84,"h":191.05,"l":187.45,"o":188.15,"pc":187.44,"d":2.4,"dp":1.28,"t":1735689600}`)
	p["stock/profile2"] = json.RawMessage(`{"name":"Apple Inc","exchange":"NASDAQ NMS - GLOBAL MARKET","finnhubIndustry":"Technology","logo":"https://static.finnhub.io/logo/87cb30d8-80df-11ea-8951-00000000092a.png","ticker":"AAPL","country":"US","currency":"USD"}`)
	p["company-news"] = json.RawMessage(`[{"headline":"Apple unveils new devices","source":"Reuters","url":"https://example.com/apple-devices","datetime":1735689600,"summary":"","category":"company"}]`)
	p["calendar/earnings"] = json.RawMessage(`{"earningsCalendar":[{"symbol":"AAPL","date":"2025-01-30","epsEstimate":2.35,"epsActual":2.4,"revenueEstimate":124000000000,"revenueActual":124300000000,"hour":"amc","quarter":1,"year":2025}]}`)
	p["calendar/ipo"] = json.RawMessage(`{"ipoCalendar":[{"symbol":"NEWC","name":"New Co","date":"2025-02-14","exchange":"NYSE","price":"18.00-20.00","numberOfShares":10000000,"totalSharesValue":200000000,"status":"expected"}]}`)
	p["calendar/economic"] = json.RawMessage(`{"economicCalendar":[{"country":"US","event":"CPI MoM","time":"2025-02-12 13:30:00","impact":"high","actual":0.5,"estimate":0.3,"prev":0.4,"unit":"%"}]}`)
	p["country"] = json.RawMessage(`[{"code2":"US","code3":"USA","country":"United States","currency":"US Dollar","currencyCode":"USD","region":"Americas","subRegion":"Northern America"},{"code2":"DE","code3":"DEU","country":"Germany","currency":"Euro","currencyCode":"EUR","region":"Europe","subRegion":"Western Europe"}]`)
	p["stock/insider-transactions"] = json.RawMessage(`{"data":[{"name":"COOK TIMOTHY D","share":3280050,"change":-59162,"filingDate":"2025-04-03","transactionDate":"2025-04-01","transactionCode":"S","transactionPrice":223.19}],"symbol":"AAPL"}`)
	return &Fake{payloads: p}
}

func (f *Fake) Fetch(_ context.Context, endpoint string, _ url.Values) (json.RawMessage, error) {
	body, ok := f.payloads[strings.Trim(endpoint, "/")]
	if !ok {
		return nil, fmt.Errorf("fake: unknown endpoint %q", endpoint)
	}
	return body, nil
}
