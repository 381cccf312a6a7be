package main

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"pricebatcher/internal/asset"
	"pricebatcher/internal/config"
	"pricebatcher/internal/httpx"
	"pricebatcher/internal/logger"
	"pricebatcher/internal/metrics"
	"pricebatcher/internal/source"
	"pricebatcher/internal/source/direct"
	"pricebatcher/internal/source/fiat"
	"pricebatcher/internal/source/market"
	"pricebatcher/internal/storage"
	"pricebatcher/internal/updater"
)

func main() {
	_ = godotenv.Load()

	log, err := logger.New()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.Fatal("config", zap.Error(err))
	}

	assets, err := asset.ParseAll(cfg.Update.Assets)
	if err != nil {
		log.Fatal("assets", zap.Error(err))
	}

	httpClient := httpx.New(time.Duration(cfg.Server.RequestTimeoutSec) * time.Second)

	sources, err := buildSources(cfg, httpClient, log)
	if err != nil {
		log.Fatal("sources", zap.Error(err))
	}

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	dispatcher := source.NewDispatcher(log, m, sources...)
	store := storage.New()
	upd := updater.New(store, dispatcher, assets, time.Duration(cfg.Update.IntervalSec)*time.Second, log, m)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go upd.Run(ctx)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.HandleFunc("/currencies", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			handleGetCurrencies(w, r, store)
		case http.MethodPost:
			handlePostCurrencies(w, r, store)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           recoverPanic(limitBody(withGzip(mux))),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      20 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

// buildSources assembles the enabled source categories in priority order:
// direct feeds first, then fiat conversion, then the generic market source.
func buildSources(cfg config.Config, httpClient *httpx.Client, log *zap.Logger) ([]source.Source, error) {
	var sources []source.Source

	if cfg.Direct.Enabled {
		var feeds []direct.Feed
		if cfg.Direct.IndexAsset != "" && cfg.Direct.IndexEndpoint != "" {
			indexAsset, err := asset.Parse(cfg.Direct.IndexAsset)
			if err != nil {
				return nil, err
			}
			feeds = append(feeds, direct.NewIndexFeed(indexAsset, cfg.Direct.IndexEndpoint, httpClient))
		}
		if cfg.Direct.CrossRateAsset != "" && cfg.Direct.CrossRateTicker != "" {
			crossAsset, err := asset.Parse(cfg.Direct.CrossRateAsset)
			if err != nil {
				return nil, err
			}
			ticker := direct.NewTickerClient(cfg.Direct.TickerEndpoint, httpClient)
			feeds = append(feeds, direct.NewCrossRateFeed(crossAsset, cfg.Direct.CrossRateTicker, cfg.Direct.CrossRateMarkdownBps, ticker))
		}
		if len(feeds) > 0 {
			sources = append(sources, direct.New(log, feeds...))
		}
	}

	if cfg.Fiat.Enabled {
		if cfg.Fiat.APIKey == "" {
			log.Warn("fiat.enabled=true but FIAT_API_KEY not set")
		}
		client, err := fiat.NewClient(cfg.Fiat.APIKey,
			fiat.WithBaseURL(cfg.Fiat.Endpoint),
			fiat.WithHTTPClient(httpClient.HTTP),
		)
		if err != nil {
			return nil, err
		}
		sources = append(sources, fiat.New(client, log))
	}

	if cfg.Market.Enabled {
		if cfg.Market.APIKey == "" {
			log.Warn("market.enabled=true but MARKET_API_KEY not set")
		}
		client := market.NewClient(cfg.Market.Endpoint, cfg.Market.APIKey, httpClient)
		sources = append(sources, market.New(client, log))
	}

	return sources, nil
}

type currenciesResponse struct {
	Currencies []asset.CoinInfo `json:"currencies"`
}

func handleGetCurrencies(w http.ResponseWriter, r *http.Request, store *storage.CoinInfoStorage) {
	q := r.URL.Query().Get("assets")
	if strings.TrimSpace(q) == "" {
		http.Error(w, "missing assets query param", http.StatusBadRequest)
		return
	}
	specs, err := asset.ParseAll(splitCSV(q))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeCurrencies(w, store, specs)
}

type postBody struct {
	Currencies []asset.AssetSpecifier `json:"currencies"`
}

func handlePostCurrencies(w http.ResponseWriter, r *http.Request, store *storage.CoinInfoStorage) {
	var b postBody
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&b); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if len(b.Currencies) == 0 {
		http.Error(w, "currencies cannot be empty", http.StatusBadRequest)
		return
	}
	writeCurrencies(w, store, b.Currencies)
}

func writeCurrencies(w http.ResponseWriter, store *storage.CoinInfoStorage, specs []asset.AssetSpecifier) {
	records := store.Lookup(specs)
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(currenciesResponse{Currencies: records})
}

// limitBody caps request body size to avoid memory abuse.
func limitBody(next http.Handler) http.Handler {
	const maxBody = 1 << 20 // 1MB
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost && r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, maxBody)
		}
		next.ServeHTTP(w, r)
	})
}

// withGzip compresses the response when the client supports gzip.
func withGzip(next http.Handler) http.Handler {
	var gzPool = sync.Pool{New: func() any {
		w, _ := gzip.NewWriterLevel(io.Discard, gzip.BestSpeed)
		return w
	}}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
			next.ServeHTTP(w, r)
			return
		}
		gz := gzPool.Get().(*gzip.Writer)
		gz.Reset(w)
		defer func() {
			_ = gz.Close()
			gz.Reset(io.Discard)
			gzPool.Put(gz)
		}()
		w.Header().Set("Content-Encoding", "gzip")
		w.Header().Add("Vary", "Accept-Encoding")
		gw := gzipResponseWriter{ResponseWriter: w, Writer: gz}
		next.ServeHTTP(gw, r)
	})
}

type gzipResponseWriter struct {
	http.ResponseWriter
	Writer io.Writer
}

func (g gzipResponseWriter) Write(b []byte) (int, error) {
	return g.Writer.Write(b)
}

// recoverPanic protects handlers from panics.
func recoverPanic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				http.Error(w, "internal server error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
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
