package container

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/klovaare/authgate/config"
	"github.com/klovaare/authgate/pkg/crypto"
)

// app-level container to share constructed components across packages
// Router can auto-wire modules from these singletons.

var (
	cfg    *config.Config
	logger *logrus.Logger
	pgPool *pgxpool.Pool
	hasher crypto.PasswordHasher
)

func SetConfig(c *config.Config) { cfg = c }
func GetConfig() *config.Config  { return cfg }
func SetLogger(l *logrus.Logger) { logger = l }
func GetLogger() *logrus.Logger  { return logger }
func SetPGPool(p *pgxpool.Pool)  { pgPool = p }
func GetPGPool() *pgxpool.Pool   { return pgPool }

func SetHasher(h crypto.PasswordHasher) { hasher = h }
func GetHasher() crypto.PasswordHasher {
	if hasher != nil {
		return hasher
	}
	return crypto.NewArgon2()
}
