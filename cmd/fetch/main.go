// Command fetch runs a single update cycle against the configured upstreams
// and prints the resulting records as JSON. Useful for checking credentials
// and the asset universe without starting the server.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"pricebatcher/internal/asset"
	"pricebatcher/internal/config"
	"pricebatcher/internal/httpx"
	"pricebatcher/internal/logger"
	"pricebatcher/internal/source"
	"pricebatcher/internal/source/direct"
	"pricebatcher/internal/source/fiat"
	"pricebatcher/internal/source/market"
	"pricebatcher/internal/storage"
	"pricebatcher/internal/updater"
)

func main() {
	var (
		cfgPath   = flag.String("config", os.Getenv("CONFIG_FILE"), "path to JSON config")
		assetsCSV = flag.String("assets", "", "comma-separated blockchain:symbol list overriding the configured universe")
		timeout   = flag.Duration("timeout", 30*time.Second, "overall fetch timeout")
	)
	flag.Parse()

	_ = godotenv.Load()

	log, err := logger.New()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatal("config", zap.Error(err))
	}

	entries := cfg.Update.Assets
	if *assetsCSV != "" {
		entries = splitCSV(*assetsCSV)
	}
	assets, err := asset.ParseAll(entries)
	if err != nil {
		log.Fatal("assets", zap.Error(err))
	}

	httpClient := httpx.New(time.Duration(cfg.Server.RequestTimeoutSec) * time.Second)

	var sources []source.Source
	if cfg.Direct.Enabled {
		var feeds []direct.Feed
		if cfg.Direct.IndexAsset != "" && cfg.Direct.IndexEndpoint != "" {
			indexAsset, err := asset.Parse(cfg.Direct.IndexAsset)
			if err != nil {
				log.Fatal("direct index asset", zap.Error(err))
			}
			feeds = append(feeds, direct.NewIndexFeed(indexAsset, cfg.Direct.IndexEndpoint, httpClient))
		}
		if cfg.Direct.CrossRateAsset != "" && cfg.Direct.CrossRateTicker != "" {
			crossAsset, err := asset.Parse(cfg.Direct.CrossRateAsset)
			if err != nil {
				log.Fatal("direct cross-rate asset", zap.Error(err))
			}
			ticker := direct.NewTickerClient(cfg.Direct.TickerEndpoint, httpClient)
			feeds = append(feeds, direct.NewCrossRateFeed(crossAsset, cfg.Direct.CrossRateTicker, cfg.Direct.CrossRateMarkdownBps, ticker))
		}
		if len(feeds) > 0 {
			sources = append(sources, direct.New(log, feeds...))
		}
	}
	if cfg.Fiat.Enabled {
		client, err := fiat.NewClient(cfg.Fiat.APIKey,
			fiat.WithBaseURL(cfg.Fiat.Endpoint),
			fiat.WithHTTPClient(httpClient.HTTP),
		)
		if err != nil {
			log.Fatal("fiat client", zap.Error(err))
		}
		sources = append(sources, fiat.New(client, log))
	}
	if cfg.Market.Enabled {
		client := market.NewClient(cfg.Market.Endpoint, cfg.Market.APIKey, httpClient)
		sources = append(sources, market.New(client, log))
	}

	dispatcher := source.NewDispatcher(log, nil, sources...)
	store := storage.New()
	upd := updater.New(store, dispatcher, assets, 0, log, nil)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	upd.RunOnce(ctx)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(store.Lookup(assets)); err != nil {
		log.Fatal("encode", zap.Error(err))
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
