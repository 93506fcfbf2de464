package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config アプリケーション全体の設定
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	OCR      OCRConfig      `yaml:"ocr"`
	Cache    CacheConfig    `yaml:"cache"`
	Redis    RedisConfig    `yaml:"redis"`
	MySQL    MySQLConfig    `yaml:"mysql"`
	Pinata   PinataConfig   `yaml:"pinata"`
	Ethereum EthereumConfig `yaml:"ethereum"`
}

// ServerConfig HTTPサーバーとアップロードの設定
type ServerConfig struct {
	UploadDir      string `yaml:"upload_dir"`
	MaxUploadBytes int64  `yaml:"max_upload_bytes"`
}

// OCRConfig OCRエンジンの設定
type OCRConfig struct {
	Languages []string      `yaml:"languages"`
	Timeout   time.Duration `yaml:"timeout"`
}

// CacheConfig 抽出結果キャッシュの設定
type CacheConfig struct {
	TTL time.Duration `yaml:"ttl"`
}

// RedisConfig Redisの設定
type RedisConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// MySQLConfig MySQLの設定
type MySQLConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// DSN go-sql-driver/mysql 用の接続文字列を返す
func (c *MySQLConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=true&loc=Local",
		c.User, c.Password, c.Host, c.Port, c.Database)
}

// PinataConfig Pinata (IPFSピンニング) の設定
type PinataConfig struct {
	APIKey     string `yaml:"api_key"`
	APISecret  string `yaml:"api_secret"`
	Endpoint   string `yaml:"endpoint"`
	GatewayURL string `yaml:"gateway_url"`
	// MaxDocumentBytes ゲートウェイから取得するドキュメントの上限
	MaxDocumentBytes int64 `yaml:"max_document_bytes"`
}

// EthereumConfig DocumentRegistryコントラクトの設定
type EthereumConfig struct {
	RPCURL          string `yaml:"rpc_url"`
	ContractAddress string `yaml:"contract_address"`
	PrivateKey      string `yaml:"private_key"`
	ChainID         int64  `yaml:"chain_id"`
}

// Load 設定ファイルを読み込む
func Load(configPath string) (*Config, error) {
	// 設定ファイルが存在しない場合はデフォルト設定を返す
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// 環境変数の展開
	dataStr := os.ExpandEnv(string(data))

	// ファイルに書かれていない項目はデフォルト値のまま残す
	cfg := DefaultConfig()
	if err := yaml.Unmarshal([]byte(dataStr), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// DefaultConfig デフォルト設定を返す
func DefaultConfig() *Config {
	// Redis/MySQL/ノードのホストはテスト環境では localhost を使用
	redisHost := "redis"
	mysqlHost := "mysql"
	if os.Getenv("GO_ENV") == "test" {
		redisHost = "localhost"
		mysqlHost = "localhost"
	}

	rpcURL := os.Getenv("WEB3_PROVIDER")
	if rpcURL == "" {
		rpcURL = "http://localhost:8545"
	}

	return &Config{
		Server: ServerConfig{
			UploadDir:      "uploads",
			MaxUploadBytes: 5_000_000,
		},
		OCR: OCRConfig{
			Languages: []string{"eng"},
			Timeout:   60 * time.Second,
		},
		Cache: CacheConfig{
			TTL: 24 * time.Hour,
		},
		Redis: RedisConfig{
			Host:     redisHost,
			Port:     6379,
			Password: "",
			DB:       0,
		},
		MySQL: MySQLConfig{
			Host:     mysqlHost,
			Port:     3306,
			User:     "root",
			Password: os.Getenv("MYSQL_ROOT_PASSWORD"),
			Database: "docchain",
		},
		Pinata: PinataConfig{
			APIKey:     os.Getenv("PINATA_API_KEY"),
			APISecret:  os.Getenv("PINATA_API_SECRET"),
			Endpoint:   "https://api.pinata.cloud/pinning/pinFileToIPFS",
			GatewayURL: "https://ipfs.io/ipfs",
			// アップロード上限より十分大きく取る
			MaxDocumentBytes: 50 << 20,
		},
		Ethereum: EthereumConfig{
			RPCURL:          rpcURL,
			ContractAddress: os.Getenv("CONTRACT_ADDRESS"),
			PrivateKey:      strings.TrimPrefix(os.Getenv("PRIVATE_KEY"), "0x"),
		},
	}
}

// Save 設定をファイルに保存する
func (c *Config) Save(configPath string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
