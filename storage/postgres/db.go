// Copyright (c) 2025 Darren Soothill
// Licensed under the MIT License

// Package postgres implements the repositories on PostgreSQL through the
// pgx driver behind database/sql.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver

	"github.com/soothill/smart-home-manager/pkg/interfaces"
	"github.com/soothill/smart-home-manager/pkg/logger"
)

const (
	defaultMaxOpenConns = 25
	defaultMaxIdleConns = 5
	defaultConnLifetime = time.Hour
	defaultConnIdleTime = 30 * time.Minute
	defaultPingTimeout  = 5 * time.Second
)

// Open creates a pgx backed *sql.DB pool and validates the connection.
func Open(dsn string) (*sql.DB, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("postgres: empty DSN")
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	db.SetMaxOpenConns(defaultMaxOpenConns)
	db.SetMaxIdleConns(defaultMaxIdleConns)
	db.SetConnMaxLifetime(defaultConnLifetime)
	db.SetConnMaxIdleTime(defaultConnIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), defaultPingTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}

	logger.Info().Msg("Connected to PostgreSQL")
	return db, nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS houses (
		id          TEXT PRIMARY KEY,
		name        TEXT NOT NULL,
		street      TEXT NOT NULL DEFAULT '',
		city        TEXT NOT NULL DEFAULT '',
		zip_code    TEXT NOT NULL DEFAULT '',
		country     TEXT NOT NULL DEFAULT '',
		latitude    DOUBLE PRECISION NOT NULL DEFAULT 0,
		longitude   DOUBLE PRECISION NOT NULL DEFAULT 0,
		altitude    DOUBLE PRECISION NOT NULL DEFAULT 0,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS rooms (
		id        TEXT PRIMARY KEY,
		house_id  TEXT NOT NULL REFERENCES houses(id) ON DELETE CASCADE,
		name      TEXT NOT NULL,
		floor     INTEGER NOT NULL DEFAULT 0,
		width     DOUBLE PRECISION NOT NULL,
		length    DOUBLE PRECISION NOT NULL,
		height    DOUBLE PRECISION NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS devices (
		id       TEXT PRIMARY KEY,
		room_id  TEXT NOT NULL REFERENCES rooms(id) ON DELETE CASCADE,
		name     TEXT NOT NULL,
		type     TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS sensors (
		id          TEXT PRIMARY KEY,
		device_id   TEXT NOT NULL REFERENCES devices(id) ON DELETE CASCADE,
		name        TEXT NOT NULL,
		model       TEXT NOT NULL,
		unit        TEXT NOT NULL DEFAULT '',
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS actuators (
		id               TEXT PRIMARY KEY,
		device_id        TEXT NOT NULL REFERENCES devices(id) ON DELETE CASCADE,
		name             TEXT NOT NULL,
		model            TEXT NOT NULL,
		value            DOUBLE PRECISION NOT NULL DEFAULT 0,
		min_value        DOUBLE PRECISION NOT NULL,
		max_value        DOUBLE PRECISION NOT NULL,
		value_precision  INTEGER NOT NULL DEFAULT 0,
		updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS readings (
		id           BIGSERIAL PRIMARY KEY,
		sensor_id    TEXT NOT NULL REFERENCES sensors(id) ON DELETE CASCADE,
		device_id    TEXT NOT NULL,
		value        DOUBLE PRECISION NOT NULL,
		recorded_at  TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS readings_device_time_idx ON readings (device_id, recorded_at)`,
	`CREATE INDEX IF NOT EXISTS readings_sensor_time_idx ON readings (sensor_id, recorded_at)`,
}

// Migrate creates the schema. It is safe to run on every start.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("postgres: migrate: %w", err)
		}
	}
	return nil
}

// New returns the PostgreSQL repositories for every aggregate.
func New(db *sql.DB) interfaces.Repositories {
	return interfaces.Repositories{
		Houses:    &HouseRepository{db: db},
		Rooms:     &RoomRepository{db: db},
		Devices:   &DeviceRepository{db: db},
		Sensors:   &SensorRepository{db: db},
		Actuators: &ActuatorRepository{db: db},
		Readings:  &ReadingRepository{db: db},
	}
}

// HealthChecker pings the database.
type HealthChecker struct {
	DB *sql.DB
}

// Health implements interfaces.HealthChecker.
func (h HealthChecker) Health(ctx context.Context) error {
	return h.DB.PingContext(ctx)
}
