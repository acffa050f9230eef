package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog/log"

	config "github.com/ledgerlens/defi-insight/configs"
	"github.com/ledgerlens/defi-insight/internal/metrics"
)

const (
	DefaultCoinGeckoURL = "https://api.coingecko.com/api/v3"
	DefaultTimeout      = 10 * time.Second
	DefaultNativePrice  = 4196.88

	currentPriceTTL = 5 * time.Minute
	cacheEntries    = 4096
	vsCurrency      = "usd"
)

// Oracle prices native coins and tokens in USD. Every lookup falls back to a
// default instead of failing: native prices to the configured default, token
// prices to zero.
type Oracle struct {
	httpClient   *http.Client
	baseURL      string
	networks     map[string]config.NetworkConfig
	defaultPrice float64
	disabled     bool

	current    *expirable.LRU[string, float64]
	historical *expirable.LRU[string, float64]
}

func NewOracle(cfg config.PricingConfig, networks map[string]config.NetworkConfig) *Oracle {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	o := &Oracle{
		httpClient:   &http.Client{Timeout: timeout},
		baseURL:      strings.TrimRight(cfg.CoinGeckoURL, "/"),
		networks:     networks,
		defaultPrice: cfg.DefaultNativePrice,
		disabled:     cfg.Disabled,
		current:      expirable.NewLRU[string, float64](cacheEntries, nil, currentPriceTTL),
		// historical prices do not change
		historical: expirable.NewLRU[string, float64](cacheEntries, nil, 0),
	}
	if o.baseURL == "" {
		o.baseURL = DefaultCoinGeckoURL
	}
	if o.defaultPrice <= 0 {
		o.defaultPrice = DefaultNativePrice
	}
	return o
}

// NativePrice is the current USD price of the network's native coin.
func (o *Oracle) NativePrice(ctx context.Context, network string) float64 {
	coinID := o.nativeCoinID(network)
	if o.disabled || coinID == "" {
		return o.defaultPrice
	}
	if p, ok := o.current.Get("native:" + coinID); ok {
		metrics.PriceLookups.WithLabelValues("native", "cache").Inc()
		return p
	}
	var body map[string]map[string]float64
	err := o.getJSON(ctx, "/simple/price", url.Values{"ids": {coinID}, "vs_currencies": {vsCurrency}}, &body)
	price := body[coinID][vsCurrency]
	if err != nil || price <= 0 {
		log.Debug().Err(err).Str("coin", coinID).Msg("native price lookup failed, using default")
		metrics.PriceLookups.WithLabelValues("native", "default").Inc()
		return o.defaultPrice
	}
	metrics.PriceLookups.WithLabelValues("native", "ok").Inc()
	o.current.Add("native:"+coinID, price)
	return price
}

// HistoricalNativePrice is the native coin price on the UTC day of ts. It
// falls back to the current price.
func (o *Oracle) HistoricalNativePrice(ctx context.Context, network string, ts time.Time) float64 {
	coinID := o.nativeCoinID(network)
	if o.disabled || coinID == "" || ts.IsZero() {
		return o.NativePrice(ctx, network)
	}
	date := ts.UTC().Format("02-01-2006")
	key := coinID + ":" + date
	if p, ok := o.historical.Get(key); ok {
		metrics.PriceLookups.WithLabelValues("historical", "cache").Inc()
		return p
	}
	var body struct {
		MarketData struct {
			CurrentPrice map[string]float64 `json:"current_price"`
		} `json:"market_data"`
	}
	err := o.getJSON(ctx, "/coins/"+url.PathEscape(coinID)+"/history", url.Values{"date": {date}, "localization": {"false"}}, &body)
	price := body.MarketData.CurrentPrice[vsCurrency]
	if err != nil || price <= 0 {
		log.Debug().Err(err).Str("coin", coinID).Str("date", date).Msg("historical price lookup failed")
		metrics.PriceLookups.WithLabelValues("historical", "default").Inc()
		return o.NativePrice(ctx, network)
	}
	metrics.PriceLookups.WithLabelValues("historical", "ok").Inc()
	o.historical.Add(key, price)
	return price
}

// TokenPrice looks a token up by contract on the network's CoinGecko
// platform. Unknown tokens price at zero.
func (o *Oracle) TokenPrice(ctx context.Context, contract, network string) float64 {
	contract = strings.ToLower(strings.TrimSpace(contract))
	platform := o.platform(network)
	if o.disabled || contract == "" || platform == "" {
		return 0
	}
	key := "token:" + platform + ":" + contract
	if p, ok := o.current.Get(key); ok {
		metrics.PriceLookups.WithLabelValues("token", "cache").Inc()
		return p
	}

	var simple map[string]map[string]float64
	err := o.getJSON(ctx, "/simple/token_price/"+url.PathEscape(platform), url.Values{"contract_addresses": {contract}, "vs_currencies": {vsCurrency}}, &simple)
	if price, ok := simple[contract][vsCurrency]; err == nil && ok {
		metrics.PriceLookups.WithLabelValues("token", "ok").Inc()
		o.current.Add(key, price)
		return price
	}

	var coin struct {
		MarketData struct {
			CurrentPrice map[string]float64 `json:"current_price"`
		} `json:"market_data"`
	}
	err = o.getJSON(ctx, "/coins/"+url.PathEscape(platform)+"/contract/"+contract, nil, &coin)
	price := coin.MarketData.CurrentPrice[vsCurrency]
	if err != nil {
		log.Debug().Err(err).Str("token", contract).Str("platform", platform).Msg("token price lookup failed")
		metrics.PriceLookups.WithLabelValues("token", "default").Inc()
	} else {
		metrics.PriceLookups.WithLabelValues("token", "ok").Inc()
	}
	o.current.Add(key, price)
	return price
}

func (o *Oracle) nativeCoinID(network string) string {
	return o.networks[strings.ToLower(network)].NativeCoinID
}

func (o *Oracle) platform(network string) string {
	return o.networks[strings.ToLower(network)].PricePlatform
}

func (o *Oracle) getJSON(ctx context.Context, path string, params url.Values, out any) error {
	reqURL := o.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := o.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("coingecko %s: status %d", path, resp.StatusCode)
	}
	return json.Unmarshal(body, out)
}
