// Package config loads wallet settings from the environment.
package config

import (
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	log "github.com/sirupsen/logrus"
)

const (
	DefaultRPID            = "localhost"
	DefaultRPName          = "Passkey Wallet"
	DefaultCeremonyTimeout = 60 * time.Second
	DefaultStoreType       = "file"
	DefaultBridgeAddr      = "localhost:8765"

	datadirName = ".passkey-wallet"
)

type Config struct {
	RPID            string        `env:"PASSKEY_WALLET_RP_ID"`
	RPName          string        `env:"PASSKEY_WALLET_RP_NAME"          envDefault:"Passkey Wallet"`
	Origin          string        `env:"PASSKEY_WALLET_ORIGIN"`
	CeremonyTimeout time.Duration `env:"PASSKEY_WALLET_CEREMONY_TIMEOUT" envDefault:"60s"`
	Datadir         string        `env:"PASSKEY_WALLET_DATADIR"`
	StoreType       string        `env:"PASSKEY_WALLET_STORE_TYPE"       envDefault:"file"`
	BridgeAddr      string        `env:"PASSKEY_WALLET_BRIDGE_ADDR"      envDefault:"localhost:8765"`
}

// LoadConfigFromEnv returns the configuration with defaults for anything unset or invalid.
func LoadConfigFromEnv() Config {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		log.WithError(err).Warn("invalid environment, falling back to defaults")
	}

	if cfg.RPName == "" {
		cfg.RPName = DefaultRPName
	}
	if cfg.CeremonyTimeout <= 0 {
		cfg.CeremonyTimeout = DefaultCeremonyTimeout
	}
	if cfg.Datadir == "" {
		cfg.Datadir = DefaultDatadir()
	}
	if cfg.StoreType == "" {
		cfg.StoreType = DefaultStoreType
	}
	if cfg.BridgeAddr == "" {
		cfg.BridgeAddr = DefaultBridgeAddr
	}
	return cfg
}

// RelyingPartyID resolves the effective relying party id of the config.
func (c Config) RelyingPartyID() string {
	return ResolveRPID(c.RPID, c.Origin)
}

// ResolveRPID prefers an explicit id, then the host of the origin, then localhost.
func ResolveRPID(explicit, origin string) string {
	if id := strings.TrimSpace(explicit); id != "" {
		return id
	}
	if origin = strings.TrimSpace(origin); origin != "" {
		if u, err := url.Parse(origin); err == nil && u.Hostname() != "" {
			return u.Hostname()
		}
	}
	return DefaultRPID
}

func DefaultDatadir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return datadirName
	}
	return filepath.Join(home, datadirName)
}
