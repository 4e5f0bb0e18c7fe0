package postgres

import (
	"fmt"
	"strings"

	"github.com/enjoysite/friendmap/config"
)

// DSN builds a lib/pq keyword/value connection string. Values are quoted so
// passwords with spaces or quotes survive.
func DSN(cfg *config.DatabaseConfig) string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		quote(cfg.Host), cfg.Port, quote(cfg.User), quote(cfg.Password), quote(cfg.Name),
	)
}

func quote(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}
