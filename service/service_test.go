// Copyright (c) 2025 Darren Soothill
// Licensed under the MIT License

package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soothill/smart-home-manager/actuator"
	"github.com/soothill/smart-home-manager/domain"
	"github.com/soothill/smart-home-manager/energy"
	apperrors "github.com/soothill/smart-home-manager/pkg/errors"
	"github.com/soothill/smart-home-manager/pkg/interfaces"
	"github.com/soothill/smart-home-manager/sensor"
	"github.com/soothill/smart-home-manager/storage/memory"
)

var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func at(hour, minute int) time.Time {
	return time.Date(2024, 6, 1, hour, minute, 0, 0, time.UTC)
}

func ptr[T any](v T) *T { return &v }

// sequentialIDs returns ids id-1, id-2, ...
func sequentialIDs() func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

type recordingMirror struct {
	mu      sync.Mutex
	written []*interfaces.TaggedReading
	err     error
}

func (m *recordingMirror) WriteReading(_ context.Context, r *interfaces.TaggedReading) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.written = append(m.written, r)
	return nil
}

func (m *recordingMirror) WriteBatch(ctx context.Context, rs []*interfaces.TaggedReading) error {
	for _, r := range rs {
		if err := m.WriteReading(ctx, r); err != nil {
			return err
		}
	}
	return nil
}

func (m *recordingMirror) Health(context.Context) error { return nil }
func (m *recordingMirror) Flush()                       {}
func (m *recordingMirror) Close()                       {}

type recordingPublisher struct {
	published []domain.Reading
}

func (p *recordingPublisher) Publish(r domain.Reading) {
	p.published = append(p.published, r)
}

type fixture struct {
	repos    interfaces.Repositories
	houses   *HouseService
	devices  *DeviceService
	readings *ReadingService
	energy   *EnergyService
	mirror   *recordingMirror
	pub      *recordingPublisher
}

func newFixture() *fixture {
	repos := memory.New()
	opts := []Option{WithIDGenerator(sequentialIDs()), WithClock(func() time.Time { return fixedNow })}
	mirror := &recordingMirror{}
	pub := &recordingPublisher{}
	return &fixture{
		repos:    repos,
		houses:   NewHouseService(repos, opts...),
		devices:  NewDeviceService(repos, nil, nil, opts...),
		readings: NewReadingService(repos, nil, mirror, pub, opts...),
		energy:   NewEnergyService(repos, nil, opts...),
		mirror:   mirror,
		pub:      pub,
	}
}

func (f *fixture) house(t *testing.T) *domain.House {
	t.Helper()
	h, err := f.houses.CreateHouse(context.Background(), HouseInput{Name: "Home"})
	require.NoError(t, err)
	return h
}

func (f *fixture) room(t *testing.T, houseID string) *domain.Room {
	t.Helper()
	r, err := f.houses.CreateRoom(context.Background(), houseID, RoomInput{
		Name: "Kitchen", Dimensions: domain.Dimensions{Width: 3, Length: 4, Height: 2.5},
	})
	require.NoError(t, err)
	return r
}

func (f *fixture) device(t *testing.T, roomID, name string) *domain.Device {
	t.Helper()
	d, err := f.devices.CreateDevice(context.Background(), roomID, DeviceInput{Name: name, Type: "Appliance"})
	require.NoError(t, err)
	return d
}

func (f *fixture) sensor(t *testing.T, deviceID, model string) *domain.Sensor {
	t.Helper()
	s, err := f.devices.CreateSensor(context.Background(), deviceID, SensorInput{Name: model, Model: model})
	require.NoError(t, err)
	return s
}

func (f *fixture) record(t *testing.T, sensorID string, value float64, ts time.Time) {
	t.Helper()
	_, err := f.readings.Record(context.Background(), sensorID, ReadingInput{Value: &value, Timestamp: &ts})
	require.NoError(t, err)
}

func TestHouseService_CreateAndGet(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	h, err := f.houses.CreateHouse(ctx, HouseInput{
		Name: "Home",
		Location: domain.Location{
			Address: domain.Address{City: "Lisbon"},
			GPS:     domain.GPS{Latitude: 38.7, Longitude: -9.1},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "id-1", h.ID)
	assert.Equal(t, fixedNow, h.CreatedAt)

	got, err := f.houses.GetHouse(ctx, h.ID)
	require.NoError(t, err)
	assert.Equal(t, "Lisbon", got.Location.Address.City)
}

func TestHouseService_ValidationErrors(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.houses.CreateHouse(ctx, HouseInput{Name: ""})
	assert.True(t, apperrors.IsValidationError(err))

	_, err = f.houses.CreateHouse(ctx, HouseInput{Name: "x", Location: domain.Location{GPS: domain.GPS{Latitude: 91}}})
	assert.True(t, apperrors.IsValidationError(err))

	h := f.house(t)
	_, err = f.houses.CreateRoom(ctx, h.ID, RoomInput{Name: "Hall"})
	assert.True(t, apperrors.IsValidationError(err), "zero dimensions are rejected")
}

func TestHouseService_UpdateUnknownHouse(t *testing.T) {
	f := newFixture()
	_, err := f.houses.UpdateHouse(context.Background(), "missing", HouseInput{Name: "x"})
	assert.True(t, apperrors.IsNotFound(err))
}

func TestHouseService_RoomsOfUnknownHouse(t *testing.T) {
	f := newFixture()
	_, err := f.houses.ListRooms(context.Background(), "missing")
	assert.True(t, apperrors.IsNotFound(err))

	_, err = f.houses.CreateRoom(context.Background(), "missing", RoomInput{Name: "x", Dimensions: domain.Dimensions{Width: 1, Length: 1, Height: 1}})
	assert.True(t, apperrors.IsNotFound(err))
}

func TestHouseService_DeleteCascades(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	h := f.house(t)
	r := f.room(t, h.ID)
	d := f.device(t, r.ID, "Fridge")
	s := f.sensor(t, d.ID, sensor.PowerConsumptionModel)
	a, err := f.devices.CreateActuator(ctx, d.ID, ActuatorInput{Name: "Power", Model: actuator.SwitchModel})
	require.NoError(t, err)
	f.record(t, s.ID, 120, at(10, 0))

	require.NoError(t, f.houses.DeleteHouse(ctx, h.ID))

	_, err = f.repos.Rooms.Get(ctx, r.ID)
	assert.True(t, apperrors.IsNotFound(err))
	_, err = f.repos.Devices.Get(ctx, d.ID)
	assert.True(t, apperrors.IsNotFound(err))
	_, err = f.repos.Sensors.Get(ctx, s.ID)
	assert.True(t, apperrors.IsNotFound(err))
	_, err = f.repos.Actuators.Get(ctx, a.ID)
	assert.True(t, apperrors.IsNotFound(err))
	left, err := f.repos.Readings.ListBySensor(ctx, s.ID, at(0, 0), at(23, 0))
	require.NoError(t, err)
	assert.Empty(t, left)

	assert.True(t, apperrors.IsNotFound(f.houses.DeleteHouse(ctx, h.ID)))
}

func TestDeviceService_CreateSensorUsesModelUnit(t *testing.T) {
	f := newFixture()
	d := f.device(t, f.room(t, f.house(t).ID).ID, "Thermometer")

	s := f.sensor(t, d.ID, sensor.TemperatureModel)
	assert.Equal(t, sensor.TemperatureModel, s.Model)
	assert.Equal(t, "°C", s.Unit)
}

func TestDeviceService_UnknownModels(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	d := f.device(t, f.room(t, f.house(t).ID).ID, "Gadget")

	_, err := f.devices.CreateSensor(ctx, d.ID, SensorInput{Name: "x", Model: "FluxCapacitor"})
	assert.True(t, apperrors.IsUnknownModelError(err))

	_, err = f.devices.CreateActuator(ctx, d.ID, ActuatorInput{Name: "x", Model: "Teleporter"})
	assert.True(t, apperrors.IsUnknownModelError(err))
}

func TestDeviceService_ActuatorCommands(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	d := f.device(t, f.room(t, f.house(t).ID).ID, "Blinds")

	blind, err := f.devices.CreateActuator(ctx, d.ID, ActuatorInput{Name: "Blind", Model: actuator.BlindRollerModel})
	require.NoError(t, err)
	assert.Equal(t, 0.0, blind.Value, "starts at the lower bound")

	blind, err = f.devices.CommandActuator(ctx, blind.ID, 150)
	require.NoError(t, err)
	assert.Equal(t, 100.0, blind.Value)

	stored, err := f.devices.GetActuator(ctx, blind.ID)
	require.NoError(t, err)
	assert.Equal(t, 100.0, stored.Value)

	sw, err := f.devices.CreateActuator(ctx, d.ID, ActuatorInput{Name: "Switch", Model: actuator.SwitchModel, Value: ptr(1.0)})
	require.NoError(t, err)
	_, err = f.devices.CommandActuator(ctx, sw.ID, 0.5)
	assert.True(t, apperrors.IsValidationError(err))

	_, err = f.devices.CreateActuator(ctx, d.ID, ActuatorInput{
		Name: "Dimmer", Model: actuator.SetIntegerModel, Bounds: &domain.Bounds{Min: 10, Max: 10},
	})
	assert.True(t, apperrors.IsValidationError(err), "empty bounds are rejected")
}

func TestReadingService_RecordMirrorsAndPublishes(t *testing.T) {
	f := newFixture()
	h := f.house(t)
	d := f.device(t, f.room(t, h.ID).ID, "Fridge")
	s := f.sensor(t, d.ID, sensor.PowerConsumptionModel)

	f.record(t, s.ID, 150, at(10, 0))

	require.Len(t, f.pub.published, 1)
	assert.Equal(t, d.ID, f.pub.published[0].DeviceID)
	require.Len(t, f.mirror.written, 1)
	assert.Equal(t, h.ID, f.mirror.written[0].HouseID)
	assert.Equal(t, "W", f.mirror.written[0].Unit)
}

func TestReadingService_MirrorFailureDoesNotFailRecord(t *testing.T) {
	f := newFixture()
	f.mirror.err = errors.New("influx down")
	d := f.device(t, f.room(t, f.house(t).ID).ID, "Fridge")
	s := f.sensor(t, d.ID, sensor.PowerConsumptionModel)

	f.record(t, s.ID, 150, at(10, 0))

	stored, err := f.readings.List(context.Background(), s.ID, at(9, 0), at(11, 0))
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}

func TestReadingService_ModelValidation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	d := f.device(t, f.room(t, f.house(t).ID).ID, "Hygrometer")
	s := f.sensor(t, d.ID, sensor.HumidityModel)

	_, err := f.readings.Record(ctx, s.ID, ReadingInput{Value: ptr(120.0)})
	assert.True(t, apperrors.IsValidationError(err))

	_, err = f.readings.Record(ctx, s.ID, ReadingInput{})
	assert.True(t, apperrors.IsValidationError(err))

	r, err := f.readings.Record(ctx, s.ID, ReadingInput{Value: ptr(55.0)})
	require.NoError(t, err)
	assert.Equal(t, fixedNow, r.Timestamp, "missing timestamp defaults to now")

	_, err = f.readings.Record(ctx, "missing", ReadingInput{Value: ptr(1.0)})
	assert.True(t, apperrors.IsNotFound(err))
}

func TestReadingService_ListRejectsInvertedRange(t *testing.T) {
	f := newFixture()
	_, err := f.readings.List(context.Background(), "any", at(11, 0), at(10, 0))
	require.Error(t, err)
	assert.Equal(t, energy.ErrMsgEndBeforeStart, err.Error())
}

func TestEnergyService_PeakPowerConsumption(t *testing.T) {
	f := newFixture()
	h := f.house(t)
	kitchen := f.room(t, h.ID)

	meters := map[string]*domain.Sensor{}
	for _, name := range []string{"AirConditioner", "Fridge", "Microwave"} {
		d := f.device(t, kitchen.ID, name)
		meters[name] = f.sensor(t, d.ID, sensor.PowerConsumptionModel)
	}
	lamp := f.device(t, kitchen.ID, "Lamp")
	lampSwitch := f.sensor(t, lamp.ID, sensor.SwitchModel)

	f.record(t, meters["AirConditioner"].ID, 10, at(10, 31))
	f.record(t, meters["AirConditioner"].ID, 3, at(10, 40))
	f.record(t, meters["Microwave"].ID, 7, at(10, 32))
	f.record(t, meters["Microwave"].ID, 30, at(10, 44))
	f.record(t, meters["Fridge"].ID, 10, at(9, 0))
	f.record(t, meters["Fridge"].ID, 30, at(9, 30))
	f.record(t, lampSwitch.ID, 1, at(10, 35))

	peak, err := f.energy.PeakPowerConsumption(context.Background(), h.ID, at(10, 30), at(16, 0), 15)
	require.NoError(t, err)
	assert.Equal(t, "25.0", peak.Formatted())
}

func TestEnergyService_PeakErrors(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	h := f.house(t)

	_, err := f.energy.PeakPowerConsumption(ctx, "missing", at(10, 0), at(11, 0), 15)
	assert.True(t, apperrors.IsNotFound(err))

	_, err = f.energy.PeakPowerConsumption(ctx, h.ID, at(11, 0), at(10, 0), 15)
	require.Error(t, err)
	assert.Equal(t, "end time can't be before start time", err.Error())

	_, err = f.energy.PeakPowerConsumption(ctx, h.ID, at(10, 0), at(11, 0), -5)
	require.Error(t, err)
	assert.Equal(t, "end time can't be negative", err.Error())

	d := f.device(t, f.room(t, h.ID).ID, "Lamp")
	f.sensor(t, d.ID, sensor.SwitchModel)
	_, err = f.energy.PeakPowerConsumption(ctx, h.ID, at(10, 0), at(11, 0), 15)
	assert.ErrorIs(t, err, apperrors.ErrNoPowerDevices)
}

func TestEnergyService_PeakIgnoresOtherHouses(t *testing.T) {
	f := newFixture()
	mine := f.house(t)
	other := f.house(t)

	d := f.device(t, f.room(t, mine.ID).ID, "Fridge")
	s := f.sensor(t, d.ID, sensor.PowerConsumptionModel)
	f.record(t, s.ID, 40, at(10, 5))

	od := f.device(t, f.room(t, other.ID).ID, "Oven")
	ovenMeter := f.sensor(t, od.ID, sensor.PowerConsumptionModel)
	f.record(t, ovenMeter.ID, 2000, at(10, 5))

	peak, err := f.energy.PeakPowerConsumption(context.Background(), mine.ID, at(10, 0), at(11, 0), 60)
	require.NoError(t, err)
	assert.Equal(t, "40.0", peak.Formatted())
}

func TestEnergyService_NoReadingsIsZero(t *testing.T) {
	f := newFixture()
	h := f.house(t)
	d := f.device(t, f.room(t, h.ID).ID, "Fridge")
	f.sensor(t, d.ID, sensor.PowerConsumptionModel)

	peak, err := f.energy.PeakPowerConsumption(context.Background(), h.ID, at(10, 0), at(11, 0), 15)
	require.NoError(t, err)
	assert.False(t, peak.Found)
	assert.Equal(t, "0.0", peak.Formatted())
}

func TestEnergyService_TemperatureDifference(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	h := f.house(t)
	room := f.room(t, h.ID)
	inside := f.sensor(t, f.device(t, room.ID, "Indoor").ID, sensor.TemperatureModel)
	outside := f.sensor(t, f.device(t, room.ID, "Outdoor").ID, sensor.TemperatureModel)
	power := f.sensor(t, f.device(t, room.ID, "Fridge").ID, sensor.PowerConsumptionModel)

	f.record(t, outside.ID, 2, at(10, 0))
	f.record(t, inside.ID, 21, at(10, 30))
	f.record(t, outside.ID, 8, at(11, 0))
	f.record(t, inside.ID, 22, at(11, 30))

	diff, err := f.energy.TemperatureDifference(ctx, h.ID, inside.ID, outside.ID, at(9, 0), at(12, 0))
	require.NoError(t, err)
	assert.InDelta(t, 19.0, diff.Value, 1e-9)
	assert.Equal(t, at(10, 30), diff.Timestamp)

	_, err = f.energy.TemperatureDifference(ctx, h.ID, power.ID, outside.ID, at(9, 0), at(12, 0))
	assert.True(t, apperrors.IsValidationError(err))

	_, err = f.energy.TemperatureDifference(ctx, h.ID, inside.ID, outside.ID, at(12, 0), at(13, 0))
	assert.ErrorIs(t, err, apperrors.ErrNoData)

	other := f.house(t)
	_, err = f.energy.TemperatureDifference(ctx, other.ID, inside.ID, outside.ID, at(9, 0), at(12, 0))
	assert.True(t, apperrors.IsNotFound(err), "sensors of another house are not visible")
}
