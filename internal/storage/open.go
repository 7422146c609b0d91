package storage

import (
	"fmt"
	"strings"

	"nudged/pkg/logx"
)

// Open creates a Store for the configured driver.
func Open(cfg Config, log logx.Logger) (Store, error) {
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = DefaultHistoryLimit
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", "memory":
		return NewMemory(cfg.HistoryLimit), nil
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	default:
		return nil, fmt.Errorf("unknown storage.driver: %s", cfg.Driver)
	}
}
