package daemon

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/tailscale/hujson"

	budabit "github.com/Pleb5/flotilla-budabit-sub002"
)

// Config is the daemon/CLI configuration, read from
// <configDir>/config.json. The file is JSONC: comments and trailing commas
// are allowed.
type Config struct {
	Relays        []string `json:"relays"`
	DefaultRelays []string `json:"defaultRelays,omitempty"` // relay hints for unhinted repos
	DbFile        string   `json:"dbFile,omitempty"`
	SnapshotDir   string   `json:"snapshotDir,omitempty"` // cached ref snapshots per repo
	RoutePrefix   string   `json:"routePrefix,omitempty"`
	PubKey        string   `json:"pubkey,omitempty"`
	SecretKey     string   `json:"secretKey,omitempty"`
}

// DefaultConfigDir is where LoadConfig looks unless told otherwise.
const DefaultConfigDir = "~/.config/budabit"

func defaultConfig(dir string) Config {
	return Config{
		Relays:      []string{"wss://relay.damus.io", "wss://nos.lol"},
		DbFile:      filepath.Join(dir, "events.db"),
		SnapshotDir: filepath.Join(dir, "snapshots"),
		RoutePrefix: "/git",
	}
}

// LoadConfig reads and merges the config file over the defaults. A missing
// file yields the defaults; a malformed file is an error.
func LoadConfig(dir string) (Config, error) {
	resolved, err := budabit.ResolvePath(dir)
	if err != nil {
		return Config{}, err
	}
	cfg := defaultConfig(resolved)

	path := filepath.Join(resolved, "config.json")
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	standardized, err := hujson.Standardize(data)
	if err != nil {
		return Config{}, fmt.Errorf("invalid JSONC in %s: %w", path, err)
	}
	var fileCfg Config
	if err := json.Unmarshal(standardized, &fileCfg); err != nil {
		return Config{}, fmt.Errorf("invalid config %s: %w", path, err)
	}

	if len(fileCfg.Relays) > 0 {
		cfg.Relays = fileCfg.Relays
	}
	if len(fileCfg.DefaultRelays) > 0 {
		cfg.DefaultRelays = fileCfg.DefaultRelays
	}
	if fileCfg.DbFile != "" {
		cfg.DbFile = fileCfg.DbFile
	}
	if fileCfg.SnapshotDir != "" {
		cfg.SnapshotDir = fileCfg.SnapshotDir
	}
	if fileCfg.RoutePrefix != "" {
		cfg.RoutePrefix = fileCfg.RoutePrefix
	}
	if fileCfg.PubKey != "" {
		cfg.PubKey = fileCfg.PubKey
	}
	if fileCfg.SecretKey != "" {
		cfg.SecretKey = fileCfg.SecretKey
	}

	cfg.DbFile, err = budabit.ResolvePath(cfg.DbFile)
	if err != nil {
		return Config{}, err
	}
	cfg.SnapshotDir, err = budabit.ResolvePath(cfg.SnapshotDir)
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}
