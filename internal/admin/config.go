package admin

import (
	"context"
	"fmt"
	"log"
	"strconv"

	"github.com/jmoiron/sqlx"
	"github.com/playmatatu/plinko/internal/config"
	"github.com/playmatatu/plinko/internal/models"
)

// GetAllRuntimeConfig returns all runtime config entries
func GetAllRuntimeConfig(ctx context.Context, db *sqlx.DB) ([]models.RuntimeConfig, error) {
	configs := []models.RuntimeConfig{}
	err := db.SelectContext(ctx, &configs, `
		SELECT key, value, value_type, description, updated_by, updated_at
		FROM runtime_config
		ORDER BY key
	`)
	return configs, err
}

// GetRuntimeConfigValue returns a single runtime config value
func GetRuntimeConfigValue(ctx context.Context, db *sqlx.DB, key string) (*models.RuntimeConfig, error) {
	var cfg models.RuntimeConfig
	err := db.GetContext(ctx, &cfg, `SELECT key, value, value_type, description, updated_by, updated_at FROM runtime_config WHERE key=$1`, key)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ValidateValue checks value against a runtime config value type.
func ValidateValue(valueType, value string) error {
	switch valueType {
	case "int":
		if _, err := strconv.Atoi(value); err != nil {
			return fmt.Errorf("invalid integer value: %s", value)
		}
	case "float":
		if _, err := strconv.ParseFloat(value, 64); err != nil {
			return fmt.Errorf("invalid float value: %s", value)
		}
	case "bool":
		if value != "true" && value != "false" {
			return fmt.Errorf("invalid boolean value: %s (must be 'true' or 'false')", value)
		}
	}
	return nil
}

// UpdateRuntimeConfigValue updates a single runtime config value
func UpdateRuntimeConfigValue(ctx context.Context, db *sqlx.DB, key, value, adminUsername string) error {
	// Get existing config to validate type
	existing, err := GetRuntimeConfigValue(ctx, db, key)
	if err != nil {
		return fmt.Errorf("config key not found: %s", key)
	}
	if err := ValidateValue(existing.ValueType, value); err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		UPDATE runtime_config SET value=$1, updated_by=$2, updated_at=NOW() WHERE key=$3
	`, value, adminUsername, key)
	return err
}

// ApplyRuntimeConfig applies runtime overrides to cfg and returns how many
// keys were recognised. Unparseable values are skipped.
func ApplyRuntimeConfig(configs []models.RuntimeConfig, cfg *config.Config) int {
	applied := 0
	setFloat := func(dst *float64, v string) {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
			applied++
		}
	}
	setInt := func(dst *int, v string) {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
			applied++
		}
	}

	for _, c := range configs {
		switch c.Key {
		case "guided_bias":
			setFloat(&cfg.GuidedBias, c.Value)
		case "guided_gain":
			setFloat(&cfg.GuidedGain, c.Value)
		case "guided_deadband":
			setFloat(&cfg.GuidedDeadband, c.Value)
		case "guided_max_force":
			setFloat(&cfg.GuidedMaxForce, c.Value)
		case "guided_damping":
			setFloat(&cfg.GuidedDamping, c.Value)
		case "replay_speed":
			setFloat(&cfg.ReplaySpeed, c.Value)
		case "max_bet_amount":
			setFloat(&cfg.MaxBetAmount, c.Value)
		case "tick_rate":
			setInt(&cfg.TickRate, c.Value)
		case "samples_per_slot":
			setInt(&cfg.SamplesPerSlot, c.Value)
		case "max_record_attempts":
			setInt(&cfg.MaxRecordAttempts, c.Value)
		}
	}
	return applied
}

// ApplyRuntimeConfigToConfig loads runtime config from DB and applies overrides to the Config struct
func ApplyRuntimeConfigToConfig(ctx context.Context, db *sqlx.DB, cfg *config.Config) error {
	configs, err := GetAllRuntimeConfig(ctx, db)
	if err != nil {
		return err
	}

	var applied int
	cfg.Update(func(c *config.Config) { applied = ApplyRuntimeConfig(configs, c) })
	log.Printf("[CONFIG] Applied %d runtime config overrides from database", applied)
	return nil
}
