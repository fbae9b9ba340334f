package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/erazemk/zaloga/internal/pricing"
)

// Settings keys.
const (
	settingJWTSecret    = "jwt_secret"
	settingAdjustmentBP = "pricing.adjustment_bp"
	settingMinMargin    = "pricing.min_margin"
)

// GetJWTSecret retrieves the JWT secret from the database.
// If no secret exists, it generates one, stores it, and returns it.
// Uses INSERT OR IGNORE + re-SELECT so concurrent startups agree on one value.
func GetJWTSecret(ctx context.Context, db *sql.DB) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating jwt secret: %w", err)
	}

	_, err := db.ExecContext(ctx,
		`INSERT OR IGNORE INTO settings (key, value) VALUES (?, ?)`,
		settingJWTSecret, hex.EncodeToString(buf),
	)
	if err != nil {
		return "", fmt.Errorf("storing jwt secret: %w", err)
	}

	secret, _, err := getSetting(ctx, db, settingJWTSecret)
	if err != nil {
		return "", err
	}
	return secret, nil
}

// GetPricingPolicy returns the stored pricing policy. Values that were never
// stored come from fallback.
func GetPricingPolicy(ctx context.Context, db *sql.DB, fallback pricing.Policy) (pricing.Policy, error) {
	policy := fallback

	for key, dst := range map[string]*int64{
		settingAdjustmentBP: &policy.AdjustmentBP,
		settingMinMargin:    &policy.MinMargin,
	} {
		raw, ok, err := getSetting(ctx, db, key)
		if err != nil {
			return fallback, err
		}
		if !ok {
			continue
		}
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return fallback, fmt.Errorf("parsing setting %s: %w", key, err)
		}
		*dst = v
	}
	return policy, nil
}

// SetPricingPolicy stores the pricing policy.
func SetPricingPolicy(ctx context.Context, db *sql.DB, policy pricing.Policy) error {
	if err := policy.Validate(); err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	values := map[string]int64{
		settingAdjustmentBP: policy.AdjustmentBP,
		settingMinMargin:    policy.MinMargin,
	}
	for key, v := range values {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO settings (key, value) VALUES (?, ?)
			 ON CONFLICT (key) DO UPDATE SET value = excluded.value`,
			key, strconv.FormatInt(v, 10),
		)
		if err != nil {
			return fmt.Errorf("storing setting %s: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing pricing policy: %w", err)
	}
	return nil
}

func getSetting(ctx context.Context, db *sql.DB, key string) (string, bool, error) {
	var value string
	err := db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("querying setting %s: %w", key, err)
	}
	return value, true, nil
}
