// Package config defines the configuration structures and loading logic
// for the payment core: database/cache connection strings, the Solana
// RPC endpoint, the KMS provider selection, and the passthrough JWT/
// rate-limit sections an external HTTP layer owns.
//
// File: internal/config/config.go

package config

import (
	"fmt"
	"time"
)

// Config holds the fully merged, validated configuration for a running
// paymentsvcd process.
type Config struct {
	Database      DatabaseConfig      `mapstructure:"database"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Solana        SolanaConfig        `mapstructure:"solana"`
	KeyManagement KeyManagementConfig `mapstructure:"keymanagement"`
	Jwt           JwtConfig           `mapstructure:"jwt"`
	RateLimit     RateLimitConfig     `mapstructure:"ratelimit"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

// DatabaseConfig holds the Postgres connection string
// (Database__ConnectionString).
type DatabaseConfig struct {
	ConnectionString string `mapstructure:"connectionstring"`
}

// RedisConfig holds the balance-cache backing store's connection string
// (Redis__ConnectionString).
type RedisConfig struct {
	ConnectionString string `mapstructure:"connectionstring"`
}

// SolanaConfig holds the chain client's RPC target and commitment
// level (Solana__RpcUrl/UseDevnet/Commitment), plus the two SPL mint
// addresses the chain gateway needs to resolve USDC/USDT transfers.
type SolanaConfig struct {
	RpcUrl     string `mapstructure:"rpcurl"`
	UseDevnet  bool   `mapstructure:"usedevnet"`
	Commitment string `mapstructure:"commitment"`
	UsdcMint   string `mapstructure:"usdcmint"`
	UsdtMint   string `mapstructure:"usdtmint"`
}

// KeyManagementProvider enumerates the KeyManagement__Provider
// values.
type KeyManagementProvider string

const (
	ProviderLocal KeyManagementProvider = "Local"
	ProviderAWS   KeyManagementProvider = "AwsKms"
	ProviderAzure KeyManagementProvider = "AzureKeyVault"
)

// KeyManagementConfig selects and parameterizes the KMS provider.
type KeyManagementConfig struct {
	Provider KeyManagementProvider `mapstructure:"provider"`

	// LocalDevelopmentKey is a base64-encoded 32-byte master key used
	// only when Provider == Local.
	LocalDevelopmentKey string `mapstructure:"localdevelopmentkey"`

	// LocalDevelopmentPassphrase derives the local master key via
	// scrypt when LocalDevelopmentKey is not set. Ignored otherwise.
	LocalDevelopmentPassphrase string `mapstructure:"localdevelopmentpassphrase"`

	// AzureKeyVaultUri/AzureKeyName select the wrapping key when
	// Provider == AzureKeyVault.
	AzureKeyVaultUri string `mapstructure:"azurekeyvaulturi"`
	AzureKeyName     string `mapstructure:"azurekeyname"`

	// AwsKmsKeyId/AwsRegion select the CMK when Provider == AwsKms.
	AwsKmsKeyId string `mapstructure:"awskmskeyid"`
	AwsRegion   string `mapstructure:"awsregion"`
}

// JwtConfig is passthrough configuration for the external HTTP
// layer's JWT issuance; this service only carries it.
type JwtConfig struct {
	Secret        string        `mapstructure:"secret"`
	Issuer        string        `mapstructure:"issuer"`
	Audience      string        `mapstructure:"audience"`
	ExpiryMinutes time.Duration `mapstructure:"expiryminutes"`
}

// RateLimitConfig is passthrough configuration for the external
// request-level rate limiter.
type RateLimitConfig struct {
	RequestsPerMinute int `mapstructure:"requestsperminute"`
	BurstSize         int `mapstructure:"burstsize"`
}

// ObservabilityConfig configures the logging/metrics/tracing stack.
type ObservabilityConfig struct {
	Logging LoggingConfig `mapstructure:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Tracing TracingConfig `mapstructure:"tracing"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, console
	Output string `mapstructure:"output"` // stdout, stderr (anything else also goes to stdout)
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
	Path    string `mapstructure:"path"`
}

type TracingConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Exporter    string `mapstructure:"exporter"` // otlp, jaeger, stdout
	Endpoint    string `mapstructure:"endpoint"`
	ServiceName string `mapstructure:"servicename"`
}

// Validate checks the invariants LoadConfig needs before the rest of
// the process wires up against this Config.
func (c *Config) Validate() error {
	if c.Database.ConnectionString == "" {
		return fmt.Errorf("config: database.connectionstring is required")
	}
	if c.Redis.ConnectionString == "" {
		return fmt.Errorf("config: redis.connectionstring is required")
	}
	if c.Solana.RpcUrl == "" {
		return fmt.Errorf("config: solana.rpcurl is required")
	}
	if c.Solana.UsdcMint == "" || c.Solana.UsdtMint == "" {
		return fmt.Errorf("config: solana.usdcmint and usdtmint are required")
	}
	switch c.KeyManagement.Provider {
	case ProviderLocal:
		if c.KeyManagement.LocalDevelopmentKey == "" && c.KeyManagement.LocalDevelopmentPassphrase == "" {
			return fmt.Errorf("config: keymanagement.localdevelopmentkey or localdevelopmentpassphrase is required for the Local provider")
		}
	case ProviderAWS:
		if c.KeyManagement.AwsKmsKeyId == "" || c.KeyManagement.AwsRegion == "" {
			return fmt.Errorf("config: keymanagement.awskmskeyid and awsregion are required for the AwsKms provider")
		}
	case ProviderAzure:
		if c.KeyManagement.AzureKeyVaultUri == "" || c.KeyManagement.AzureKeyName == "" {
			return fmt.Errorf("config: keymanagement.azurekeyvaulturi and azurekeyname are required for the AzureKeyVault provider")
		}
	default:
		return fmt.Errorf("config: keymanagement.provider %q is not one of Local, AwsKms, AzureKeyVault", c.KeyManagement.Provider)
	}
	return nil
}

// EOF: internal/config/config.go
