// Copyright (c) 2025 Darren Soothill
// Licensed under the MIT License

package memory

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soothill/smart-home-manager/domain"
	apperrors "github.com/soothill/smart-home-manager/pkg/errors"
)

func TestTable_SingleWriterPerKey(t *testing.T) {
	table := NewTable[string, int]()

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func(v int) {
			defer wg.Done()
			if table.Insert("k", v) {
				wins.Add(1)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load(), "exactly one concurrent insert should win")
	assert.Equal(t, 1, table.Len())
}

func TestTable_InsertUpdateDelete(t *testing.T) {
	table := NewTable[string, string]()

	assert.False(t, table.Update("a", "x"), "update of a missing key should fail")
	assert.True(t, table.Insert("a", "x"))
	assert.False(t, table.Insert("a", "y"), "insert of an existing key should fail")
	assert.True(t, table.Update("a", "z"))

	v, ok := table.Get("a")
	assert.True(t, ok)
	assert.Equal(t, "z", v)
	assert.True(t, table.Contains("a"))

	assert.True(t, table.Delete("a"))
	assert.False(t, table.Delete("a"))
	assert.False(t, table.Contains("a"))
}

func TestTable_FilterOrders(t *testing.T) {
	table := NewTable[int, int]()
	for _, v := range []int{5, 3, 8, 1, 4} {
		table.Insert(v, v)
	}

	even := table.Filter(func(v int) bool { return v%2 == 0 }, func(a, b int) bool { return a < b })
	assert.Equal(t, []int{4, 8}, even)
	assert.Len(t, table.Filter(nil, nil), 5)
}

func TestHouseRepository(t *testing.T) {
	ctx := context.Background()
	repos := New()

	h := &domain.House{ID: "h-1", Name: "Cottage"}
	require.NoError(t, repos.Houses.Create(ctx, h))

	err := repos.Houses.Create(ctx, h)
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	got, err := repos.Houses.Get(ctx, "h-1")
	require.NoError(t, err)
	assert.Equal(t, "Cottage", got.Name)

	// the stored copy is not aliased to the caller's struct
	h.Name = "Changed"
	got, _ = repos.Houses.Get(ctx, "h-1")
	assert.Equal(t, "Cottage", got.Name)

	require.NoError(t, repos.Houses.Update(ctx, &domain.House{ID: "h-1", Name: "Villa"}))
	got, _ = repos.Houses.Get(ctx, "h-1")
	assert.Equal(t, "Villa", got.Name)

	assert.True(t, apperrors.IsNotFound(repos.Houses.Update(ctx, &domain.House{ID: "nope"})))
	require.NoError(t, repos.Houses.Delete(ctx, "h-1"))
	_, err = repos.Houses.Get(ctx, "h-1")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestChildRepositoriesListByParent(t *testing.T) {
	ctx := context.Background()
	repos := New()

	require.NoError(t, repos.Rooms.Create(ctx, &domain.Room{ID: "r2", HouseID: "h"}))
	require.NoError(t, repos.Rooms.Create(ctx, &domain.Room{ID: "r1", HouseID: "h"}))
	require.NoError(t, repos.Rooms.Create(ctx, &domain.Room{ID: "r3", HouseID: "other"}))

	rooms, err := repos.Rooms.ListByHouse(ctx, "h")
	require.NoError(t, err)
	require.Len(t, rooms, 2)
	assert.Equal(t, "r1", rooms[0].ID)

	require.NoError(t, repos.Devices.Create(ctx, &domain.Device{ID: "d1", RoomID: "r1"}))
	devices, _ := repos.Devices.ListByRoom(ctx, "r1")
	assert.Len(t, devices, 1)

	require.NoError(t, repos.Sensors.Create(ctx, &domain.Sensor{ID: "s1", DeviceID: "d1"}))
	require.NoError(t, repos.Sensors.Create(ctx, &domain.Sensor{ID: "s2", DeviceID: "d2"}))
	sensors, _ := repos.Sensors.ListByDevice(ctx, "d1")
	assert.Len(t, sensors, 1)
	all, _ := repos.Sensors.List(ctx)
	assert.Len(t, all, 2)

	require.NoError(t, repos.Actuators.Create(ctx, &domain.Actuator{ID: "a1", DeviceID: "d1"}))
	actuators, _ := repos.Actuators.ListByDevice(ctx, "d1")
	assert.Len(t, actuators, 1)
	assert.ErrorIs(t, repos.Actuators.Create(ctx, &domain.Actuator{ID: "a1"}), apperrors.ErrConflict)
}

func TestReadingRepository_RangeQueries(t *testing.T) {
	ctx := context.Background()
	repo := NewReadingRepository()
	base := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

	// inserted out of order on purpose
	for _, m := range []int{30, 0, 45, 15} {
		require.NoError(t, repo.Add(ctx, domain.Reading{
			DeviceID: "d1", SensorID: "s1", Value: float64(m), Timestamp: base.Add(time.Duration(m) * time.Minute),
		}))
	}
	require.NoError(t, repo.Add(ctx, domain.Reading{DeviceID: "d1", SensorID: "s2", Value: 99, Timestamp: base.Add(20 * time.Minute)}))
	require.NoError(t, repo.Add(ctx, domain.Reading{DeviceID: "d2", SensorID: "s3", Value: 7, Timestamp: base.Add(20 * time.Minute)}))

	got, err := repo.ListBySensor(ctx, "s1", base, base.Add(45*time.Minute))
	require.NoError(t, err)
	values := make([]float64, 0, len(got))
	for _, r := range got {
		values = append(values, r.Value)
	}
	assert.Equal(t, []float64{0, 15, 30}, values, "end of range is exclusive and results are time ordered")

	byDevice, err := repo.ReadingsForDeviceInRange(ctx, "d1", base, base.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, byDevice, 5)
	for i := 1; i < len(byDevice); i++ {
		assert.False(t, byDevice[i].Timestamp.Before(byDevice[i-1].Timestamp))
	}
	assert.Equal(t, 99.0, byDevice[2].Value)

	require.NoError(t, repo.DeleteBySensor(ctx, "s1"))
	got, _ = repo.ListBySensor(ctx, "s1", base, base.Add(time.Hour))
	assert.Empty(t, got)
}
