// Copyright (c) 2025 Darren Soothill
// Licensed under the MIT License

//go:build integration
// +build integration

package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/soothill/smart-home-manager/domain"
	apperrors "github.com/soothill/smart-home-manager/pkg/errors"
)

func startPostgres(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "test",
				"POSTGRES_PASSWORD": "test",
				"POSTGRES_DB":       "smarthome",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("Failed to start PostgreSQL container: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	db, err := Open(fmt.Sprintf("postgres://test:test@%s:%s/smarthome?sslmode=disable", host, port.Port()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, Migrate(ctx, db))
	require.NoError(t, Migrate(ctx, db), "migrations must be idempotent")
	return db
}

func TestIntegration_RepositoriesRoundTrip(t *testing.T) {
	db := startPostgres(t)
	ctx := context.Background()
	repos := New(db)

	house := &domain.House{ID: "h-1", Name: "Cottage", Location: domain.Location{
		Address: domain.Address{City: "Porto", Country: "PT"},
		GPS:     domain.GPS{Latitude: 41.1, Longitude: -8.6},
	}}
	require.NoError(t, repos.Houses.Create(ctx, house))
	assert.ErrorIs(t, repos.Houses.Create(ctx, house), apperrors.ErrConflict)

	got, err := repos.Houses.Get(ctx, "h-1")
	require.NoError(t, err)
	assert.Equal(t, "Porto", got.Location.Address.City)

	room := &domain.Room{ID: "r-1", HouseID: "h-1", Name: "Kitchen", Dimensions: domain.Dimensions{Width: 3, Length: 4, Height: 2.5}}
	require.NoError(t, repos.Rooms.Create(ctx, room))
	device := &domain.Device{ID: "d-1", RoomID: "r-1", Name: "Fridge", Type: "Fridge"}
	require.NoError(t, repos.Devices.Create(ctx, device))
	s := &domain.Sensor{ID: "s-1", DeviceID: "d-1", Name: "meter", Model: "PowerConsumptionSensor", Unit: "W"}
	require.NoError(t, repos.Sensors.Create(ctx, s))
	a := &domain.Actuator{ID: "a-1", DeviceID: "d-1", Name: "plug", Model: "SwitchActuator", Bounds: domain.Bounds{Min: 0, Max: 1}}
	require.NoError(t, repos.Actuators.Create(ctx, a))

	a.Value = 1
	require.NoError(t, repos.Actuators.Update(ctx, a))
	gotA, err := repos.Actuators.Get(ctx, "a-1")
	require.NoError(t, err)
	assert.Equal(t, 1.0, gotA.Value)

	base := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	for i, v := range []float64{10, -5, 30} {
		require.NoError(t, repos.Readings.Add(ctx, domain.Reading{
			DeviceID: "d-1", SensorID: "s-1", Value: v, Timestamp: base.Add(time.Duration(i) * 15 * time.Minute),
		}))
	}

	readings, err := repos.Readings.ReadingsForDeviceInRange(ctx, "d-1", base, base.Add(30*time.Minute))
	require.NoError(t, err)
	require.Len(t, readings, 2)
	assert.Equal(t, -5.0, readings[1].Value)

	// deleting the house cascades through the foreign keys
	require.NoError(t, repos.Houses.Delete(ctx, "h-1"))
	_, err = repos.Sensors.Get(ctx, "s-1")
	assert.True(t, apperrors.IsNotFound(err))
	readings, err = repos.Readings.ListBySensor(ctx, "s-1", base, base.Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, readings)

	assert.True(t, apperrors.IsNotFound(repos.Houses.Delete(ctx, "h-1")))
	assert.NoError(t, HealthChecker{DB: db}.Health(ctx))
}
