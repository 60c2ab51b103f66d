// Command paymentsvcd wires the payment core's daemon process: the
// persistence, cache, chain, crypto and policy layers, plus the
// scheduler that drives recurring and ad-hoc confirmation jobs. It
// exposes no HTTP surface of its own; a separate API binary imports
// internal/payment.Engine the same way this daemon does and drives it
// from request handlers; this process only needs the Engine wired so
// the Scheduler's Watcher callback path compiles end to end.
//
// File: cmd/paymentsvcd/main.go
package main

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awskms "github.com/aws/aws-sdk-go-v2/service/kms"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/keyvault/azkeys"

	"github.com/redis/go-redis/v9"

	"github.com/cedrosys/paymentcore/internal/balancecache"
	"github.com/cedrosys/paymentcore/internal/chain"
	"github.com/cedrosys/paymentcore/internal/config"
	"github.com/cedrosys/paymentcore/internal/kms"
	"github.com/cedrosys/paymentcore/internal/observe"
	"github.com/cedrosys/paymentcore/internal/payment"
	"github.com/cedrosys/paymentcore/internal/scheduler"
	"github.com/cedrosys/paymentcore/internal/store"
	"github.com/cedrosys/paymentcore/internal/walletcrypto"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "paymentsvcd:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.LoadConfig(ctx, config.NewYamlLoader(configPath()), config.NewEnvLoader())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := observe.NewZapLogger(cfg.Observability.Logging.Level, cfg.Observability.Logging.Format, cfg.Observability.Logging.Output)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer logger.Sync()

	metrics := observe.NewPrometheusMetrics("paymentcore", "")
	if cfg.Observability.Metrics.Enabled {
		go serveMetrics(logger, metrics, cfg.Observability.Metrics.Addr, cfg.Observability.Metrics.Path)
	}

	var tracer observe.Tracer = &observe.NoopTracer{}
	if cfg.Observability.Tracing.Enabled {
		otelTracer, err := observe.NewOTelTracer(ctx, cfg.Observability.Tracing.Exporter, cfg.Observability.Tracing.Endpoint, cfg.Observability.Tracing.ServiceName)
		if err != nil {
			return fmt.Errorf("build tracer: %w", err)
		}
		defer otelTracer.Shutdown(context.Background())
		tracer = otelTracer
	}

	pg, err := store.Open(ctx, cfg.Database.ConnectionString)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer pg.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.ConnectionString})
	defer redisClient.Close()

	provider, err := buildKMSProvider(ctx, cfg.KeyManagement)
	if err != nil {
		return fmt.Errorf("build kms provider: %w", err)
	}
	if cfg.KeyManagement.Provider == config.ProviderLocal {
		logger.Warn("paymentsvcd: local KMS provider in use; wallet keys are wrapped with a process-held master key")
	}
	crypto := walletcrypto.NewCrypto(provider)

	mints, err := chain.MintsFromConfig(cfg.Solana.UsdcMint, cfg.Solana.UsdtMint)
	if err != nil {
		return fmt.Errorf("resolve mint addresses: %w", err)
	}
	chainClient := chain.NewClient(cfg.Solana.RpcUrl, logger, &chain.DefaultRetryConfig)
	gateway := chain.NewGateway(chainClient, logger, mints)

	cache := balancecache.New(redisClient, gateway)

	monitor := &scheduler.Monitor{
		Users:   pg,
		Wallets: pg,
		Txns:    pg,
		Audit:   pg,
		Chain:   gateway,
		Cache:   cache,
		Crypto:  crypto,
		Logger:  logger,
		Metrics: metrics,
	}
	sched := scheduler.New(monitor, pg, logger, metrics)

	engine := payment.New(payment.Deps{
		Users:       pg,
		Wallets:     pg,
		Txns:        pg,
		Audit:       pg,
		Whitelist:   pg,
		Crypto:      crypto,
		Chain:       gateway,
		Cache:       cache,
		RateLimiter: localRateLimiter{},
		Watcher:     sched,
		Logger:      logger,
		Tracer:      tracer,
		Metrics:     metrics,
	})
	_ = engine // held alive for the HTTP binary's equivalent wiring; this daemon only runs the scheduler.

	if err := sched.RegisterRecurring(); err != nil {
		return fmt.Errorf("register recurring jobs: %w", err)
	}
	sched.Start()
	logger.Info("paymentsvcd: scheduler started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	sig := <-sigCh
	logger.Info("paymentsvcd: shutdown signal received", map[string]interface{}{"signal": sig.String()})

	<-sched.Stop().Done()
	logger.Info("paymentsvcd: shutdown complete")
	return nil
}

func configPath() string {
	if p := os.Getenv("PAYMENTSVCD_CONFIG"); p != "" {
		return p
	}
	return "config.yaml"
}

func serveMetrics(logger observe.Logger, metrics *observe.PrometheusMetrics, addr, path string) {
	mux := http.NewServeMux()
	mux.Handle(path, metrics.Handler())
	server := &http.Server{Addr: addr, Handler: mux, ReadTimeout: 10 * time.Second, WriteTimeout: 10 * time.Second}
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("paymentsvcd: metrics server error", map[string]interface{}{"error": err.Error()})
	}
}

// buildKMSProvider selects and constructs the concrete KMS adapter for
// the configured provider, wiring each SDK's own default credential
// chain rather than accepting raw keys through configuration.
func buildKMSProvider(ctx context.Context, cfg config.KeyManagementConfig) (kms.Provider, error) {
	switch cfg.Provider {
	case config.ProviderLocal:
		if cfg.LocalDevelopmentKey == "" {
			return kms.NewLocalProviderFromPassphrase(cfg.LocalDevelopmentPassphrase)
		}
		masterKey, err := decodeLocalKey(cfg.LocalDevelopmentKey)
		if err != nil {
			return nil, err
		}
		return kms.NewLocalProvider(masterKey)

	case config.ProviderAWS:
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AwsRegion))
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		return kms.NewAWSProvider(awskms.NewFromConfig(awsCfg), cfg.AwsKmsKeyId), nil

	case config.ProviderAzure:
		cred, err := azidentity.NewDefaultAzureCredential(nil)
		if err != nil {
			return nil, fmt.Errorf("build azure credential: %w", err)
		}
		client, err := azkeys.NewClient(cfg.AzureKeyVaultUri, cred, nil)
		if err != nil {
			return nil, fmt.Errorf("build azure keys client: %w", err)
		}
		return kms.NewAzureProvider(client, cfg.AzureKeyName, ""), nil

	default:
		return nil, fmt.Errorf("paymentsvcd: unknown key management provider %q", cfg.Provider)
	}
}

func decodeLocalKey(b64 string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, fmt.Errorf("decode keymanagement.localdevelopmentkey: %w", err)
	}
	return key, nil
}

// localRateLimiter is a fixed-allow stand-in for the external
// request-level rate limiter the HTTP layer owns; a
// real deployment wires an HTTP-layer limiter (e.g. Redis token
// bucket) in its place through the same RateLimiter interface.
type localRateLimiter struct{}

func (localRateLimiter) Allow(ctx context.Context, action, key string) (bool, error) {
	return true, nil
}

// EOF: cmd/paymentsvcd/main.go
