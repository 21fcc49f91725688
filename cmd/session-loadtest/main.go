package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/apitest"
	"github.com/MrEthical07/goSession/tasks"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func main() {
	var (
		concurrency = flag.Int("concurrency", 64, "number of concurrent workers sharing one session")
		ops         = flag.Int("ops", 20000, "requests per phase")
		expireEvery = flag.Duration("expire-every", 50*time.Millisecond, "how often the backend expires access tokens in the expiry phase")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "gs-load", "credential key prefix")
		rotate      = flag.Bool("rotate", false, "rotate refresh tokens on every renewal")
	)
	flag.Parse()

	if *concurrency <= 0 || *ops <= 0 || *expireEvery <= 0 {
		fmt.Fprintln(os.Stderr, "concurrency, ops, and expire-every must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		rdb     redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		rdb = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
		cleanup = func() {
			_ = rdb.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", mr.Addr())
	} else {
		rdb = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		cleanup = func() { _ = rdb.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	srv, err := apitest.Start(apitest.Options{Rotate: *rotate})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start backend: %v\n", err)
		os.Exit(1)
	}
	defer srv.Close()

	if _, err := srv.SeedUser("load@example.com", "load-test-password", "Load"); err != nil {
		fmt.Fprintf(os.Stderr, "seed user failed: %v\n", err)
		os.Exit(1)
	}

	cfg := goSession.DefaultConfig()
	cfg.API.BaseURL = srv.URL
	cfg.Storage.Backend = goSession.StorageRedis
	cfg.Storage.Redis.Prefix = *prefix
	if *rotate {
		cfg.Refresh.Rotation = "required"
	}
	client, err := goSession.New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithLatencyHistograms(true).
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "build client failed: %v\n", err)
		os.Exit(1)
	}
	defer client.Close()

	if _, err := client.SignIn(ctx, "load@example.com", "load-test-password"); err != nil {
		fmt.Fprintf(os.Stderr, "sign in failed: %v\n", err)
		os.Exit(1)
	}
	if _, err := client.Tasks().Create(ctx, tasks.Input{Title: "load"}); err != nil {
		fmt.Fprintf(os.Stderr, "create task failed: %v\n", err)
		os.Exit(1)
	}

	steady := runPhase(ctx, client, *ops, *concurrency, nil)
	refreshBefore := srv.RefreshCalls()

	var expirations atomic.Int64
	expiry := runPhase(ctx, client, *ops, *concurrency, func(stop <-chan struct{}) {
		ticker := time.NewTicker(*expireEvery)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				srv.ExpireAccessTokens()
				expirations.Add(1)
			}
		}
	})

	snap := client.MetricsSnapshot()
	fmt.Println("---- results ----")
	printStats("steady", steady)
	printStats("expiry", expiry)
	fmt.Printf("expirations=%d renewals=%d joined=%d retried=%d session=%s\n",
		expirations.Load(),
		srv.RefreshCalls()-refreshBefore,
		snap.Counters[goSession.MetricRenewalJoined],
		snap.Counters[goSession.MetricRequestRetried],
		client.State().Status,
	)
}

// runPhase issues ops task-list requests from concurrency workers. When
// background is set it runs alongside the workers until they finish.
func runPhase(ctx context.Context, client *goSession.Client, ops, concurrency int, background func(stop <-chan struct{})) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	stop := make(chan struct{})
	var bg sync.WaitGroup
	if background != nil {
		bg.Add(1)
		go func() {
			defer bg.Done()
			background(stop)
		}()
	}

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				t0 := time.Now()
				_, err := client.Tasks().List(ctx)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	total := time.Since(start)
	close(stop)
	bg.Wait()
	return computeStats(total, latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
