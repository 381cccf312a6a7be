package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

type Server struct {
	Port              string `json:"port"`
	RequestTimeoutSec int    `json:"request_timeout_sec"`
}

type Update struct {
	IntervalSec int `json:"interval_sec"`
	// Assets is the tracked universe, entries of the form
	// "blockchain:symbol"; fiat pairs use "FIAT:<FROM>-<TO>".
	Assets []string `json:"assets"`
}

type Fiat struct {
	Enabled  bool   `json:"enabled"`
	Endpoint string `json:"endpoint"`
	APIKey   string `json:"api_key"`
}

type Market struct {
	Enabled  bool   `json:"enabled"`
	Endpoint string `json:"endpoint"`
	APIKey   string `json:"api_key"`
}

type Direct struct {
	Enabled              bool   `json:"enabled"`
	IndexAsset           string `json:"index_asset"`
	IndexEndpoint        string `json:"index_endpoint"`
	CrossRateAsset       string `json:"cross_rate_asset"`
	CrossRateTicker      string `json:"cross_rate_ticker"`
	CrossRateMarkdownBps int64  `json:"cross_rate_markdown_bps"`
	TickerEndpoint       string `json:"ticker_endpoint"`
}

type Config struct {
	Server Server `json:"server"`
	Update Update `json:"update"`
	Fiat   Fiat   `json:"fiat"`
	Market Market `json:"market"`
	Direct Direct `json:"direct"`
}

func Default() Config {
	return Config{
		Server: Server{Port: "8070", RequestTimeoutSec: 10},
		Update: Update{
			IntervalSec: 10,
			Assets: []string{
				"FIAT:USD-USD",
				"FIAT:EUR-USD",
				"FIAT:BRL-USD",
				"FIAT:AUD-USD",
				"FIAT:NGN-USD",
				"FIAT:TZS-USD",
				"Pendulum:PEN",
				"Amplitude:AMPE",
				"Polkadot:DOT",
				"Kusama:KSM",
				"Astar:ASTR",
				"Bifrost:BNC",
				"Bifrost:vDOT",
				"HydraDX:HDX",
				"Moonbeam:GLMR",
				"Polkadex:PDEX",
				"Stellar:XLM",
			},
		},
		Fiat: Fiat{
			Enabled:  true,
			Endpoint: "https://api.polygon.io",
		},
		Market: Market{
			Enabled:  true,
			Endpoint: "https://pro-api.coingecko.com",
		},
		Direct: Direct{
			Enabled:              true,
			IndexAsset:           "Amplitude:AMPE",
			IndexEndpoint:        "https://squid.subsquid.io/amplitude-squid/price",
			CrossRateAsset:       "FIAT:BRL-USD",
			CrossRateTicker:      "USDTBRL",
			CrossRateMarkdownBps: 5,
			TickerEndpoint:       "https://api.binance.com",
		},
	}
}

// Load reads JSON config from path. If path is empty or the file does not
// exist, it returns defaults. Environment variables override select fields
// for secrecy.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		if _, err := os.Stat("config.json"); err == nil {
			path = "config.json"
		}
	}
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err == nil {
			if err := json.Unmarshal(b, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config: %w", err)
			}
		}
	}
	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Port = v
	}
	if v := os.Getenv("REQUEST_TIMEOUT_SEC"); v != "" {
		var x int
		fmt.Sscanf(v, "%d", &x)
		if x > 0 {
			cfg.Server.RequestTimeoutSec = x
		}
	}
	if v := os.Getenv("UPDATE_INTERVAL_SEC"); v != "" {
		var x int
		fmt.Sscanf(v, "%d", &x)
		if x > 0 {
			cfg.Update.IntervalSec = x
		}
	}
	if v := os.Getenv("SUPPORTED_ASSETS"); v != "" {
		cfg.Update.Assets = splitCSV(v)
	}
	if v := os.Getenv("FIAT_ENDPOINT"); v != "" {
		cfg.Fiat.Endpoint = v
	}
	if v := os.Getenv("FIAT_API_KEY"); v != "" {
		cfg.Fiat.APIKey = v
	}
	if v := os.Getenv("MARKET_ENDPOINT"); v != "" {
		cfg.Market.Endpoint = v
	}
	if v := os.Getenv("MARKET_API_KEY"); v != "" {
		cfg.Market.APIKey = v
	}
	if v := os.Getenv("DIRECT_INDEX_ENDPOINT"); v != "" {
		cfg.Direct.IndexEndpoint = v
	}
	if v := os.Getenv("DIRECT_TICKER_ENDPOINT"); v != "" {
		cfg.Direct.TickerEndpoint = v
	}
	if v := os.Getenv("DIRECT_CROSS_RATE_MARKDOWN_BPS"); v != "" {
		var x int64
		fmt.Sscanf(v, "%d", &x)
		if x >= 0 {
			cfg.Direct.CrossRateMarkdownBps = x
		}
	}
	for _, e := range []struct {
		env     string
		enabled *bool
	}{
		{"FIAT_ENABLED", &cfg.Fiat.Enabled},
		{"MARKET_ENABLED", &cfg.Market.Enabled},
		{"DIRECT_ENABLED", &cfg.Direct.Enabled},
	} {
		if v := os.Getenv(e.env); v != "" {
			switch strings.ToLower(v) {
			case "1", "true", "yes", "y":
				*e.enabled = true
			case "0", "false", "no", "n":
				*e.enabled = false
			}
		}
	}
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
