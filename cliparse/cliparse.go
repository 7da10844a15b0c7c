package cliparse

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"flag"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port         int
	DatabaseURL  string
	DatabaseType string
	AdminKey     string
	CronSecret   string
	IPHashSalt   string

	// Chain access (optional; stake verification is disabled without it)
	RPCURL          string
	StakingContract string
	TokenContract   string

	IPFSAPIURL     string
	IPFSGatewayURL string
	RedisURL       string

	// Zero disables the in-process resolver
	ResolveInterval time.Duration
}

// ParseFlags loads .env, then reads flags with environment fallback
func ParseFlags(args []string) (Config, error) {
	var cfg Config

	// A missing .env is fine; real environments set variables directly
	_ = godotenv.Load()

	fs := flag.NewFlagSet("bugdex", flag.ContinueOnError)

	fs.IntVar(&cfg.Port, "p", 0, "Server port")
	fs.StringVar(&cfg.DatabaseURL, "d", "", "Database URL")
	fs.StringVar(&cfg.DatabaseType, "t", "", "Database type (sqlite or postgres)")

	fs.StringVar(&cfg.AdminKey, "admin-key", "", "Admin API key (prefer env)")
	fs.StringVar(&cfg.CronSecret, "cron-secret", "", "Bearer secret for the batch resolver (prefer env)")

	fs.StringVar(&cfg.RPCURL, "rpc", "", "Ethereum RPC URL")
	fs.StringVar(&cfg.StakingContract, "staking-contract", "", "Staking contract address")
	fs.StringVar(&cfg.TokenContract, "token-contract", "", "BUG token contract address")

	fs.StringVar(&cfg.IPFSAPIURL, "ipfs", "", "IPFS API endpoint")
	fs.StringVar(&cfg.RedisURL, "redis", "", "Redis URL")
	fs.DurationVar(&cfg.ResolveInterval, "resolve-interval", -1, "Resolver interval (0 disables)")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if cfg.Port == 0 {
		if portStr := os.Getenv("PORT"); portStr != "" {
			port, err := strconv.Atoi(portStr)
			if err != nil {
				return Config{}, errors.New("invalid PORT env variable")
			}
			cfg.Port = port
		} else {
			cfg.Port = 3318
		}
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if cfg.DatabaseURL == "" {
		return Config{}, errors.New("database URL required (use -d or DATABASE_URL env)")
	}

	if cfg.DatabaseType == "" {
		cfg.DatabaseType = os.Getenv("DATABASE_TYPE")
		if cfg.DatabaseType == "" {
			cfg.DatabaseType = "sqlite"
		}
	}
	if cfg.DatabaseType != "sqlite" && cfg.DatabaseType != "postgres" {
		return Config{}, errors.New("database type must be sqlite or postgres")
	}

	if cfg.AdminKey == "" {
		cfg.AdminKey = os.Getenv("ADMIN_API_KEY")
	}
	if cfg.AdminKey == "" {
		return Config{}, errors.New("ADMIN_API_KEY required")
	}

	if cfg.CronSecret == "" {
		cfg.CronSecret = os.Getenv("CRON_SECRET")
	}
	cfg.IPHashSalt = os.Getenv("IP_HASH_SALT")
	if cfg.IPHashSalt == "" {
		slog.Warn("IP_HASH_SALT not set, deriving it from ADMIN_API_KEY; rotating the admin key will change voter IP hashes")
		cfg.IPHashSalt = deriveSalt(cfg.AdminKey, "ip-hash")
	}

	if cfg.RPCURL == "" {
		cfg.RPCURL = os.Getenv("RPC_URL")
	}
	if cfg.StakingContract == "" {
		cfg.StakingContract = os.Getenv("STAKING_CONTRACT_ADDRESS")
	}
	if cfg.TokenContract == "" {
		cfg.TokenContract = os.Getenv("BUG_TOKEN_ADDRESS")
	}

	if cfg.IPFSAPIURL == "" {
		cfg.IPFSAPIURL = os.Getenv("IPFS_API_URL")
	}
	cfg.IPFSGatewayURL = os.Getenv("IPFS_GATEWAY_URL")
	if cfg.IPFSGatewayURL == "" {
		cfg.IPFSGatewayURL = "https://ipfs.io/ipfs/"
	}
	if cfg.RedisURL == "" {
		cfg.RedisURL = os.Getenv("REDIS_URL")
	}

	if cfg.ResolveInterval < 0 {
		cfg.ResolveInterval = 0
		if v := os.Getenv("RESOLVE_INTERVAL"); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return Config{}, errors.New("invalid RESOLVE_INTERVAL env variable")
			}
			cfg.ResolveInterval = d
		}
	}

	return cfg, nil
}

// ChainEnabled reports whether an RPC endpoint and staking contract are configured
func (c Config) ChainEnabled() bool {
	return c.RPCURL != "" && c.StakingContract != ""
}

// deriveSalt derives a per-purpose key from a secret
func deriveSalt(secret, purpose string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte("bugdex:" + purpose))
	return hex.EncodeToString(mac.Sum(nil))
}
