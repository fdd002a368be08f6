package config

import (
	"fmt"
	"math/big"
	"os"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"gopkg.in/yaml.v3"
)

// Config is the full application configuration. An optional YAML file
// (CONFIG_PATH) provides a base; environment variables always win.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Blockchain BlockchainConfig `yaml:"blockchain"`
	NATS       NATSConfig       `yaml:"nats"`
	Log        LogConfig        `yaml:"log"`
	CORS       CORSConfig       `yaml:"cors"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type BlockchainConfig struct {
	RPCURL          string `yaml:"rpcUrl"`
	ContractAddress string `yaml:"contractAddress"`
	// TxSigner is the hex-encoded signing key. Never logged.
	TxSigner string `yaml:"txSigner"`
	// GasPrice in wei; empty or "auto" asks the node.
	GasPrice string `yaml:"gasPrice"`
	// GasLimit of 0 estimates per call.
	GasLimit uint64 `yaml:"gasLimit"`
}

type NATSConfig struct {
	URL     string `yaml:"url"`
	Timeout int    `yaml:"timeout"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowedOrigins"`
}

// Load builds the configuration from the optional YAML file and the
// environment, then validates it. Validation is fail-fast: a service with a
// broken signing key or contract address must not come up.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{Host: "127.0.0.1", Port: 8080},
		Log:    LogConfig{Level: "info", Format: "text"},
		NATS:   NATSConfig{Timeout: 10},
	}

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnv(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	setString(&cfg.Server.Host, "HOST")
	setInt(&cfg.Server.Port, "PORT")
	setString(&cfg.Blockchain.RPCURL, "RPC_URL")
	setString(&cfg.Blockchain.ContractAddress, "CONTRACT_ADDRESS")
	setString(&cfg.Blockchain.TxSigner, "TX_SIGNER")
	setString(&cfg.Blockchain.GasPrice, "GAS_PRICE")
	setUint(&cfg.Blockchain.GasLimit, "GAS_LIMIT")
	setString(&cfg.NATS.URL, "NATS_URL")
	setInt(&cfg.NATS.Timeout, "NATS_TIMEOUT")
	setString(&cfg.Log.Level, "LOG_LEVEL")
	setString(&cfg.Log.Format, "LOG_FORMAT")

	if origins := os.Getenv("CORS_ALLOWED_ORIGINS"); origins != "" {
		cfg.CORS.AllowedOrigins = cfg.CORS.AllowedOrigins[:0]
		for _, o := range strings.Split(origins, ",") {
			if trimmed := strings.TrimSpace(o); trimmed != "" {
				cfg.CORS.AllowedOrigins = append(cfg.CORS.AllowedOrigins, trimmed)
			}
		}
	}
}

func (c *Config) validate() error {
	if c.Blockchain.RPCURL == "" {
		return fmt.Errorf("RPC_URL is required")
	}
	if !common.IsHexAddress(c.Blockchain.ContractAddress) {
		return fmt.Errorf("CONTRACT_ADDRESS is not a valid address: %q", c.Blockchain.ContractAddress)
	}
	if c.Blockchain.TxSigner == "" {
		return fmt.Errorf("TX_SIGNER is required")
	}
	if _, err := crypto.HexToECDSA(strings.TrimPrefix(c.Blockchain.TxSigner, "0x")); err != nil {
		return fmt.Errorf("TX_SIGNER is not a valid private key: %w", err)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("PORT out of range: %d", c.Server.Port)
	}
	if _, err := c.GasPrice(); err != nil {
		return err
	}
	return nil
}

// GasPrice returns the configured fixed gas price, or nil when the node
// should be asked.
func (c *Config) GasPrice() (*big.Int, error) {
	raw := strings.TrimSpace(c.Blockchain.GasPrice)
	if raw == "" || strings.EqualFold(raw, "auto") {
		return nil, nil
	}
	price, ok := new(big.Int).SetString(raw, 10)
	if !ok || price.Sign() < 0 {
		return nil, fmt.Errorf("GAS_PRICE is not a non-negative integer: %q", raw)
	}
	return price, nil
}

// ContractAddr returns the parsed deployed contract address. Valid after
// Load.
func (c *Config) ContractAddr() common.Address {
	return common.HexToAddress(c.Blockchain.ContractAddress)
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			*dst = parsed
		}
	}
}

func setUint(dst *uint64, key string) {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseUint(v, 10, 64); err == nil {
			*dst = parsed
		}
	}
}
