package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the case graph service
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Elasticsearch ElasticsearchConfig
	Kafka         KafkaConfig
	NATS          NATSConfig `mapstructure:"nats"`
	Neo4j         Neo4jConfig
	S3            S3Config
	Encryption    EncryptionConfig
	Auth          AuthConfig
	Logging       LoggingConfig
	Providers     ProvidersConfig
	Cache         CacheConfig
	Network       NetworkConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"` // postgres or memory
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Migrate         bool          `mapstructure:"migrate"`
}

// DSN returns the database connection string
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// URL returns the connection string in URL form, as expected by the migrator
func (c DatabaseConfig) URL() string {
	return fmt.Sprintf(
		"pgx5://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

// ElasticsearchConfig holds Elasticsearch configuration
type ElasticsearchConfig struct {
	Enabled   bool     `mapstructure:"enabled"`
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	Index     string   `mapstructure:"index"`
}

// KafkaConfig holds Kafka configuration for bulk record ingestion
type KafkaConfig struct {
	Enabled       bool     `mapstructure:"enabled"`
	Brokers       []string `mapstructure:"brokers"`
	ConsumerGroup string   `mapstructure:"consumer_group"`
	CallTopic     string   `mapstructure:"call_topic"`
	CryptoTopic   string   `mapstructure:"crypto_topic"`
	LocationTopic string   `mapstructure:"location_topic"`
	MaxRetries    int      `mapstructure:"max_retries"`
}

// Topics returns every topic the ingestion consumer subscribes to
func (c KafkaConfig) Topics() []string {
	return []string{c.CallTopic, c.CryptoTopic, c.LocationTopic}
}

// NATSConfig holds NATS settings for outbound notifications
type NATSConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	URL               string        `mapstructure:"url"`
	SubjectPrefix     string        `mapstructure:"subject_prefix"`
	ConnectTimeout    time.Duration `mapstructure:"connect_timeout"`
	ReconnectDelay    time.Duration `mapstructure:"reconnect_delay"`
	ReconnectAttempts int           `mapstructure:"reconnect_attempts"`
}

// Neo4jConfig holds settings for the graph mirror
type Neo4jConfig struct {
	Enabled                      bool          `mapstructure:"enabled"`
	URI                          string        `mapstructure:"uri"`
	Username                     string        `mapstructure:"username"`
	Password                     string        `mapstructure:"password"`
	Database                     string        `mapstructure:"database"`
	MaxConnectionPoolSize        int           `mapstructure:"max_connection_pool_size"`
	ConnectionAcquisitionTimeout time.Duration `mapstructure:"connection_acquisition_timeout"`
}

// S3Config holds object storage settings for network snapshots
type S3Config struct {
	Enabled   bool   `mapstructure:"enabled"`
	Region    string `mapstructure:"region"`
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"` // For local testing with MinIO
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
}

// EncryptionConfig holds encryption settings
type EncryptionConfig struct {
	EncryptionKeysBase64 []string `mapstructure:"keys"`
	CurrentKeyVersion    int      `mapstructure:"current_key_version"`
	SigningSecret        string   `mapstructure:"signing_secret"`
}

// AuthConfig holds authentication settings
type AuthConfig struct {
	Enabled          bool   `mapstructure:"enabled"`
	JWTPublicKeyPath string `mapstructure:"jwt_public_key_path"`
	JWTIssuer        string `mapstructure:"jwt_issuer"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level         string `mapstructure:"level"`
	Format        string `mapstructure:"format"`
	EnablePIIMask bool   `mapstructure:"enable_pii_mask"`
}

// ProvidersConfig holds external blockchain and sanctions provider settings.
// API keys set here are the fallback when no key is stored in the credential vault.
type ProvidersConfig struct {
	ChainalysisAPIKey  string        `mapstructure:"chainalysis_api_key"`
	ChainalysisBaseURL string        `mapstructure:"chainalysis_base_url"`
	EtherscanAPIKey    string        `mapstructure:"etherscan_api_key"`
	EtherscanBaseURL   string        `mapstructure:"etherscan_base_url"`
	BlockchairAPIKey   string        `mapstructure:"blockchair_api_key"`
	BlockchairBaseURL  string        `mapstructure:"blockchair_base_url"`
	TronscanBaseURL    string        `mapstructure:"tronscan_base_url"`
	PriceBaseURL       string        `mapstructure:"price_base_url"`
	HTTPTimeout        time.Duration `mapstructure:"http_timeout"`
	GenericDelay       time.Duration `mapstructure:"generic_delay"`
	FreeDelay          time.Duration `mapstructure:"free_delay"`
	PremiumDelay       time.Duration `mapstructure:"premium_delay"`
}

// CacheConfig holds TTLs for the in-process caches
type CacheConfig struct {
	WalletTTL    time.Duration `mapstructure:"wallet_ttl"`
	SanctionsTTL time.Duration `mapstructure:"sanctions_ttl"`
	PriceTTL     time.Duration `mapstructure:"price_ttl"`
}

// NetworkConfig holds call network regeneration side effects
type NetworkConfig struct {
	SnapshotOnRegenerate bool `mapstructure:"snapshot_on_regenerate"`
	IndexOnRegenerate    bool `mapstructure:"index_on_regenerate"`
	MirrorOnRegenerate   bool `mapstructure:"mirror_on_regenerate"`
}

// Load loads configuration from environment and config files
func Load() (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Read from environment variables, e.g. INVESTIGATE_DATABASE_HOST
	v.SetEnvPrefix("INVESTIGATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file if exists
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Server
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8090)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "30s")

	// Database
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "investigate")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "5m")
	v.SetDefault("database.conn_max_idle_time", "5m")
	v.SetDefault("database.migrate", true)

	// Elasticsearch
	v.SetDefault("elasticsearch.enabled", false)
	v.SetDefault("elasticsearch.addresses", []string{"http://localhost:9200"})
	v.SetDefault("elasticsearch.username", "elastic")
	v.SetDefault("elasticsearch.password", "changeme")
	v.SetDefault("elasticsearch.index", "case-entities")

	// Kafka
	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.consumer_group", "case-graph-service")
	v.SetDefault("kafka.call_topic", "investigate.import.calls")
	v.SetDefault("kafka.crypto_topic", "investigate.import.crypto")
	v.SetDefault("kafka.location_topic", "investigate.import.locations")
	v.SetDefault("kafka.max_retries", 3)

	// NATS
	v.SetDefault("nats.enabled", false)
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.subject_prefix", "investigate")
	v.SetDefault("nats.connect_timeout", "5s")
	v.SetDefault("nats.reconnect_delay", "2s")
	v.SetDefault("nats.reconnect_attempts", 10)

	// Neo4j
	v.SetDefault("neo4j.enabled", false)
	v.SetDefault("neo4j.uri", "neo4j://localhost:7687")
	v.SetDefault("neo4j.username", "neo4j")
	v.SetDefault("neo4j.password", "")
	v.SetDefault("neo4j.database", "neo4j")
	v.SetDefault("neo4j.max_connection_pool_size", 50)
	v.SetDefault("neo4j.connection_acquisition_timeout", "30s")

	// S3
	v.SetDefault("s3.enabled", false)
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.bucket", "investigate-network-snapshots")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.access_key", "")
	v.SetDefault("s3.secret_key", "")

	// Encryption
	v.SetDefault("encryption.current_key_version", 1)
	v.SetDefault("encryption.keys", []string{})
	v.SetDefault("encryption.signing_secret", "")

	// Auth
	v.SetDefault("auth.enabled", true)
	v.SetDefault("auth.jwt_public_key_path", "./keys/jwt_public.pem")
	v.SetDefault("auth.jwt_issuer", "investigate-auth")

	// Logging
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.enable_pii_mask", true)

	// Providers. Empty keys are registered so env overrides reach Unmarshal.
	v.SetDefault("providers.chainalysis_api_key", "")
	v.SetDefault("providers.etherscan_api_key", "")
	v.SetDefault("providers.blockchair_api_key", "")
	v.SetDefault("providers.chainalysis_base_url", "https://public.chainalysis.com/api/v1")
	v.SetDefault("providers.etherscan_base_url", "https://api.etherscan.io/api")
	v.SetDefault("providers.blockchair_base_url", "https://api.blockchair.com")
	v.SetDefault("providers.tronscan_base_url", "https://apilist.tronscanapi.com/api")
	v.SetDefault("providers.price_base_url", "https://api.coingecko.com/api/v3")
	v.SetDefault("providers.http_timeout", "10s")
	v.SetDefault("providers.generic_delay", "500ms")
	v.SetDefault("providers.free_delay", "300ms")
	v.SetDefault("providers.premium_delay", "100ms")

	// Cache
	v.SetDefault("cache.wallet_ttl", "5m")
	v.SetDefault("cache.sanctions_ttl", "1h")
	v.SetDefault("cache.price_ttl", "5m")

	// Network
	v.SetDefault("network.snapshot_on_regenerate", true)
	v.SetDefault("network.index_on_regenerate", true)
	v.SetDefault("network.mirror_on_regenerate", true)
}
