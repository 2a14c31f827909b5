package app

import (
	"fmt"
	"log/slog"

	"github.com/gatewarden/gatewarden/pkg/jwtx"
)

// InitSigningKeys creates the KeyManager with the configured algorithm.
// Keys are ephemeral: generated on startup and held only in memory, so
// every access token is invalidated by a restart. Sessions and refresh
// tokens live in the database and survive; clients recover by refreshing.
//
// Supported algorithms: ES256, EdDSA.
func InitSigningKeys(cfg Config, logger *slog.Logger) (*jwtx.KeyManager, error) {
	logger.Info("initializing ephemeral key manager",
		"algorithm", cfg.Algorithm,
		"num_keys", cfg.NumKeys,
	)

	keyManager, err := jwtx.NewEphemeralKeyManager(jwtx.KeyManagerOptions{
		Algorithm: cfg.Algorithm,
		Issuer:    cfg.Issuer,
		Audience:  cfg.Audience,
		NumKeys:   cfg.NumKeys,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize ephemeral key manager: %w", err)
	}

	logger.Info("generated ephemeral signing keys",
		"algorithm", keyManager.Algorithm(),
		"num_keys", keyManager.NumSigners(),
		"issuer", cfg.Issuer,
	)
	logger.Warn("all existing access tokens are now invalid, clients must refresh")

	return keyManager, nil
}
