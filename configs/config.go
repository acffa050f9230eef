package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type LogConfig struct {
	Level    string `mapstructure:"level"`
	Prettify bool   `mapstructure:"prettify"`
}

type NetworkConfig struct {
	Name        string `mapstructure:"name"`
	ChainID     int64  `mapstructure:"chainId"`
	RPCURL      string `mapstructure:"rpcUrl"`
	ExplorerAPI string `mapstructure:"explorerApi"`
	// CoinGecko identifiers used for pricing
	NativeCoinID     string `mapstructure:"nativeCoinId"`
	PricePlatform    string `mapstructure:"pricePlatform"`
	NativeSymbol     string `mapstructure:"nativeSymbol"`
	RPCLookbackBlock int    `mapstructure:"rpcLookbackBlocks"`
}

type ExplorerConfig struct {
	EtherscanV2URL string `mapstructure:"etherscanV2Url"`
	APIKey         string `mapstructure:"apiKey"`
	PageSize       int    `mapstructure:"pageSize"`
	Timeout        int    `mapstructure:"timeout"`
	Retries        int    `mapstructure:"retries"`
	RetryDelay     int    `mapstructure:"retryDelay"`
	TokenTransfers bool   `mapstructure:"tokenTransfers"`
}

type ClassifierConfig struct {
	HighGasThreshold   uint64   `mapstructure:"highGasThreshold"`
	LiquiditySelectors []string `mapstructure:"liquiditySelectors"`
	LiquidityExchange  string   `mapstructure:"liquidityExchange"`
	Workers            int      `mapstructure:"workers"`
}

type MetadataConfig struct {
	CallTimeout     int                 `mapstructure:"callTimeout"`
	TTLSeconds      int                 `mapstructure:"ttlSeconds"`
	PrefetchWorkers int                 `mapstructure:"prefetchWorkers"`
	Cache           MetadataCacheConfig `mapstructure:"cache"`
}

type MetadataCacheConfig struct {
	Memory *MemoryConfig `mapstructure:"memory"`
	Badger *BadgerConfig `mapstructure:"badger"`
	Redis  *RedisConfig  `mapstructure:"redis"`
}

type MemoryConfig struct {
	MaxItems int `mapstructure:"maxItems"`
}

type BadgerConfig struct {
	Path string `mapstructure:"path"`
}

type RedisConfig struct {
	Addr      string `mapstructure:"addr"`
	Username  string `mapstructure:"username"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	PoolSize  int    `mapstructure:"poolSize"`
	EnableTLS bool   `mapstructure:"enableTLS"`
	KeyPrefix string `mapstructure:"keyPrefix"`
}

type PricingConfig struct {
	CoinGeckoURL       string  `mapstructure:"coingeckoUrl"`
	Timeout            int     `mapstructure:"timeout"`
	DefaultNativePrice float64 `mapstructure:"defaultNativePrice"`
	Disabled           bool    `mapstructure:"disabled"`
}

type StorageConfig struct {
	Main StorageConnectionConfig `mapstructure:"main"`
}

type StorageConnectionConfig struct {
	Postgres   *PostgresConfig   `mapstructure:"postgres"`
	Clickhouse *ClickhouseConfig `mapstructure:"clickhouse"`
	Memory     *MemoryConfig     `mapstructure:"memory"`
}

type PostgresConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Username        string `mapstructure:"username"`
	Password        string `mapstructure:"password"`
	Database        string `mapstructure:"database"`
	SSLMode         string `mapstructure:"sslMode"`
	MaxOpenConns    int    `mapstructure:"maxOpenConns"`
	MaxIdleConns    int    `mapstructure:"maxIdleConns"`
	MaxConnLifetime int    `mapstructure:"maxConnLifetime"`
	ConnectTimeout  int    `mapstructure:"connectTimeout"`
}

type ClickhouseConfig struct {
	Host      string `mapstructure:"host"`
	Port      int    `mapstructure:"port"`
	Username  string `mapstructure:"username"`
	Password  string `mapstructure:"password"`
	Database  string `mapstructure:"database"`
	EnableTLS bool   `mapstructure:"enableTLS"`
}

type ReportConfig struct {
	OutputDir string   `mapstructure:"outputDir"`
	S3        S3Config `mapstructure:"s3"`
}

type S3Config struct {
	Bucket          string `mapstructure:"bucket"`
	Region          string `mapstructure:"region"`
	Prefix          string `mapstructure:"prefix"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"accessKeyId"`
	SecretAccessKey string `mapstructure:"secretAccessKey"`
}

type JobConfig struct {
	MaxTransactionsPerNetwork int `mapstructure:"maxTransactionsPerNetwork"`
	RetentionMinutes          int `mapstructure:"retentionMinutes"`
}

type BasicAuthConfig struct {
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type APIConfig struct {
	Host        string          `mapstructure:"host"`
	Port        int             `mapstructure:"port"`
	MetricsPort int             `mapstructure:"metricsPort"`
	BasicAuth   BasicAuthConfig `mapstructure:"basicAuth"`
}

type Config struct {
	Log        LogConfig                `mapstructure:"log"`
	Networks   map[string]NetworkConfig `mapstructure:"networks"`
	Explorer   ExplorerConfig           `mapstructure:"explorer"`
	Classifier ClassifierConfig         `mapstructure:"classifier"`
	Metadata   MetadataConfig           `mapstructure:"metadata"`
	Pricing    PricingConfig            `mapstructure:"pricing"`
	Storage    StorageConfig            `mapstructure:"storage"`
	Report     ReportConfig             `mapstructure:"report"`
	Job        JobConfig                `mapstructure:"job"`
	API        APIConfig                `mapstructure:"api"`
}

var Cfg Config

// DefaultNetworks mirrors the two chains the catalog has rules for.
func DefaultNetworks() map[string]NetworkConfig {
	return map[string]NetworkConfig{
		"arbitrum": {
			Name:             "Arbitrum",
			ChainID:          42161,
			RPCURL:           "https://arb1.arbitrum.io/rpc",
			ExplorerAPI:      "https://api.arbiscan.io/api",
			NativeCoinID:     "ethereum",
			PricePlatform:    "arbitrum-one",
			NativeSymbol:     "ETH",
			RPCLookbackBlock: 500,
		},
		"flare": {
			Name:             "Flare",
			ChainID:          14,
			RPCURL:           "https://flare-api.flare.network/ext/bc/C/rpc",
			ExplorerAPI:      "https://flare-explorer.flare.network/api",
			NativeCoinID:     "flare-networks",
			PricePlatform:    "flare-network",
			NativeSymbol:     "FLR",
			RPCLookbackBlock: 500,
		},
	}
}

func setDefaults() {
	viper.SetDefault("log.level", "info")
	viper.SetDefault("explorer.etherscanV2Url", "https://api.etherscan.io/v2/api")
	viper.SetDefault("explorer.pageSize", 200)
	viper.SetDefault("explorer.timeout", 30)
	viper.SetDefault("explorer.retries", 3)
	viper.SetDefault("explorer.retryDelay", 500)
	viper.SetDefault("explorer.tokenTransfers", true)
	viper.SetDefault("classifier.highGasThreshold", 200000)
	viper.SetDefault("classifier.liquidityExchange", "SparkDEX V3")
	viper.SetDefault("classifier.workers", 8)
	viper.SetDefault("metadata.callTimeout", 6)
	viper.SetDefault("metadata.ttlSeconds", 7*24*60*60)
	viper.SetDefault("metadata.prefetchWorkers", 10)
	viper.SetDefault("pricing.coingeckoUrl", "https://api.coingecko.com/api/v3")
	viper.SetDefault("pricing.timeout", 10)
	viper.SetDefault("pricing.defaultNativePrice", 0)
	viper.SetDefault("job.maxTransactionsPerNetwork", 10000)
	viper.SetDefault("job.retentionMinutes", 60)
	viper.SetDefault("api.host", "0.0.0.0")
	viper.SetDefault("api.port", 3000)
	viper.SetDefault("api.metricsPort", 2112)
	viper.SetDefault("report.outputDir", ".")
}

func LoadConfig(cfgFile string) error {
	setDefaults()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("error reading config file, %s", err)
		}
	} else {
		viper.SetConfigName("config")
		viper.AddConfigPath("./configs")

		if err := viper.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return fmt.Errorf("error reading config file, %s", err)
			}
		}

		viper.SetConfigName("secrets")
		if err := viper.MergeInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return fmt.Errorf("error loading secrets file: %v", err)
			}
		}
	}

	// sets e.g. EXPLORER_APIKEY to explorer.apiKey
	replacer := strings.NewReplacer(".", "_")
	viper.SetEnvKeyReplacer(replacer)

	viper.AutomaticEnv()

	err := viper.Unmarshal(&Cfg)
	if err != nil {
		return fmt.Errorf("error unmarshalling config: %v", err)
	}

	Cfg.Networks = mergeNetworks(DefaultNetworks(), Cfg.Networks)
	return nil
}

// mergeNetworks fills unset fields of configured networks from the defaults.
// Networks that are not in the defaults are kept as configured.
func mergeNetworks(defaults, configured map[string]NetworkConfig) map[string]NetworkConfig {
	out := make(map[string]NetworkConfig, len(defaults))
	for key, def := range defaults {
		out[key] = def
	}
	for key, nc := range configured {
		key = strings.ToLower(key)
		def, ok := out[key]
		if !ok {
			out[key] = nc
			continue
		}
		if nc.Name != "" {
			def.Name = nc.Name
		}
		if nc.ChainID != 0 {
			def.ChainID = nc.ChainID
		}
		if nc.RPCURL != "" {
			def.RPCURL = nc.RPCURL
		}
		if nc.ExplorerAPI != "" {
			def.ExplorerAPI = nc.ExplorerAPI
		}
		if nc.NativeCoinID != "" {
			def.NativeCoinID = nc.NativeCoinID
		}
		if nc.PricePlatform != "" {
			def.PricePlatform = nc.PricePlatform
		}
		if nc.NativeSymbol != "" {
			def.NativeSymbol = nc.NativeSymbol
		}
		if nc.RPCLookbackBlock != 0 {
			def.RPCLookbackBlock = nc.RPCLookbackBlock
		}
		out[key] = def
	}
	return out
}
