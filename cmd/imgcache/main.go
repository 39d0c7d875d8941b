// Command imgcache resolves image keys through a configured two-tier cache.
//
//	imgcache -config imgcache.yaml -rounds 3 -interval 500ms \
//	    post/<owner>/<post> avatar/<user>/<user>
//
// Each round resolves all keys and prints where every key was answered from.
// With -seed, a placeholder blob is written for every key first, which makes
// the memory store usable for demos.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hupe1980/imgcache"
	"github.com/hupe1980/imgcache/config"
	"github.com/hupe1980/imgcache/metrics/prom"
	"github.com/hupe1980/imgcache/model"
	"github.com/hupe1980/imgcache/source"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, "imgcache:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("imgcache", flag.ContinueOnError)
	var (
		configPath = fs.String("config", "", "path to the YAML config (defaults when empty)")
		rounds     = fs.Int("rounds", 1, "number of resolve rounds")
		interval   = fs.Duration("interval", time.Second, "pause between rounds")
		seed       = fs.Bool("seed", false, "write a placeholder blob for every key before resolving")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			return err
		}
	}

	keys := make([]model.Key, 0, fs.NArg())
	for _, arg := range fs.Args() {
		k, err := model.ParseKey(arg)
		if err != nil {
			return err
		}
		keys = append(keys, k)
	}
	if len(keys) == 0 {
		return errors.New("no keys given")
	}

	logger := cfg.Log.Logger()

	stores, err := openStores(ctx, cfg.Store)
	if err != nil {
		return err
	}
	if *seed {
		if err := seedKeys(ctx, stores, keys); err != nil {
			return err
		}
	}

	opts := append(cfg.Options(),
		imgcache.WithLoader(stores.loader()),
		imgcache.WithLogger(logger),
	)

	var mc *prom.Collector
	var reg *prometheus.Registry
	if cfg.Metrics.Listen != "" {
		reg = prometheus.NewRegistry()
		mc = prom.NewCollector(reg)
		opts = append(opts, imgcache.WithMetricsCollector(mc))
	}

	c, err := imgcache.New(opts...)
	if err != nil {
		return err
	}
	defer c.Close()

	if mc != nil {
		mc.Watch(c)
		srv := &http.Server{
			Addr:              cfg.Metrics.Listen,
			Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", "error", err)
			}
		}()
		defer srv.Close()
		logger.Info("serving metrics", "addr", cfg.Metrics.Listen)
	}

	for round := 1; round <= *rounds; round++ {
		if round > 1 {
			select {
			case <-time.After(*interval):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		printRound(stdout, round, keys, c.ResolveMany(ctx, keys, nil))
	}

	printStats(stdout, c.Stats())
	return nil
}

func seedKeys(ctx context.Context, stores *stores, keys []model.Key) error {
	layout := source.DefaultLayout()
	for _, k := range keys {
		path, err := layout.Path(k)
		if err != nil {
			return err
		}
		if err := stores.forKind(k.Kind).Put(ctx, path, []byte(k.String())); err != nil {
			return fmt.Errorf("seed %s: %w", k, err)
		}
	}
	return nil
}

func printRound(w io.Writer, round int, keys []model.Key, results imgcache.Results) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "round %d\n", round)
	for _, k := range keys {
		r := results[k]
		if r.Err != nil {
			fmt.Fprintf(tw, "  %s\t%s\terror: %v\n", k, r.Source, r.Err)
			continue
		}
		fmt.Fprintf(tw, "  %s\t%s\t%d bytes\tv%d\n", k, r.Source, r.Entry.Size(), r.Entry.Version)
	}
	_ = tw.Flush()
}

func printStats(w io.Writer, s imgcache.Stats) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "tier\thits\tmisses\tentries\tbytes\tloads\tfailures")
	for _, t := range []struct {
		name                string
		hits, misses, bytes int64
		entries             int
		loads, failures     int64
	}{
		{s.Sync.Name, s.Sync.Hits, s.Sync.Misses, s.Sync.Bytes, s.Sync.Len, 0, 0},
		{s.Async.Name, s.Async.Hits, s.Async.Misses, s.Async.Bytes, s.Async.Len, s.Async.Loads, s.Async.LoadFailures},
	} {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\t%d\n", t.name, t.hits, t.misses, t.entries, t.bytes, t.loads, t.failures)
	}
	_ = tw.Flush()
}
