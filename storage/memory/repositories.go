// Copyright (c) 2025 Darren Soothill
// Licensed under the MIT License

package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/soothill/smart-home-manager/domain"
	apperrors "github.com/soothill/smart-home-manager/pkg/errors"
	"github.com/soothill/smart-home-manager/pkg/interfaces"
)

// New returns in-memory repositories for every aggregate.
func New() interfaces.Repositories {
	return interfaces.Repositories{
		Houses:    &HouseRepository{table: NewTable[string, domain.House]()},
		Rooms:     &RoomRepository{table: NewTable[string, domain.Room]()},
		Devices:   &DeviceRepository{table: NewTable[string, domain.Device]()},
		Sensors:   &SensorRepository{table: NewTable[string, domain.Sensor]()},
		Actuators: &ActuatorRepository{table: NewTable[string, domain.Actuator]()},
		Readings:  NewReadingRepository(),
	}
}

// HouseRepository stores houses in memory.
type HouseRepository struct {
	table *Table[string, domain.House]
}

func (r *HouseRepository) Create(_ context.Context, h *domain.House) error {
	if !r.table.Insert(h.ID, *h) {
		return apperrors.NewConflictError("house", h.ID)
	}
	return nil
}

func (r *HouseRepository) Get(_ context.Context, id string) (*domain.House, error) {
	h, ok := r.table.Get(id)
	if !ok {
		return nil, apperrors.NewNotFoundError("house", id)
	}
	return &h, nil
}

func (r *HouseRepository) List(_ context.Context) ([]domain.House, error) {
	return r.table.Filter(nil, func(a, b domain.House) bool { return a.ID < b.ID }), nil
}

func (r *HouseRepository) Update(_ context.Context, h *domain.House) error {
	if !r.table.Update(h.ID, *h) {
		return apperrors.NewNotFoundError("house", h.ID)
	}
	return nil
}

func (r *HouseRepository) Delete(_ context.Context, id string) error {
	if !r.table.Delete(id) {
		return apperrors.NewNotFoundError("house", id)
	}
	return nil
}

// RoomRepository stores rooms in memory.
type RoomRepository struct {
	table *Table[string, domain.Room]
}

func (r *RoomRepository) Create(_ context.Context, room *domain.Room) error {
	if !r.table.Insert(room.ID, *room) {
		return apperrors.NewConflictError("room", room.ID)
	}
	return nil
}

func (r *RoomRepository) Get(_ context.Context, id string) (*domain.Room, error) {
	room, ok := r.table.Get(id)
	if !ok {
		return nil, apperrors.NewNotFoundError("room", id)
	}
	return &room, nil
}

func (r *RoomRepository) ListByHouse(_ context.Context, houseID string) ([]domain.Room, error) {
	return r.table.Filter(
		func(room domain.Room) bool { return room.HouseID == houseID },
		func(a, b domain.Room) bool { return a.ID < b.ID },
	), nil
}

func (r *RoomRepository) Update(_ context.Context, room *domain.Room) error {
	if !r.table.Update(room.ID, *room) {
		return apperrors.NewNotFoundError("room", room.ID)
	}
	return nil
}

func (r *RoomRepository) Delete(_ context.Context, id string) error {
	if !r.table.Delete(id) {
		return apperrors.NewNotFoundError("room", id)
	}
	return nil
}

// DeviceRepository stores devices in memory.
type DeviceRepository struct {
	table *Table[string, domain.Device]
}

func (r *DeviceRepository) Create(_ context.Context, d *domain.Device) error {
	if !r.table.Insert(d.ID, *d) {
		return apperrors.NewConflictError("device", d.ID)
	}
	return nil
}

func (r *DeviceRepository) Get(_ context.Context, id string) (*domain.Device, error) {
	d, ok := r.table.Get(id)
	if !ok {
		return nil, apperrors.NewNotFoundError("device", id)
	}
	return &d, nil
}

func (r *DeviceRepository) ListByRoom(_ context.Context, roomID string) ([]domain.Device, error) {
	return r.table.Filter(
		func(d domain.Device) bool { return d.RoomID == roomID },
		func(a, b domain.Device) bool { return a.ID < b.ID },
	), nil
}

func (r *DeviceRepository) Update(_ context.Context, d *domain.Device) error {
	if !r.table.Update(d.ID, *d) {
		return apperrors.NewNotFoundError("device", d.ID)
	}
	return nil
}

func (r *DeviceRepository) Delete(_ context.Context, id string) error {
	if !r.table.Delete(id) {
		return apperrors.NewNotFoundError("device", id)
	}
	return nil
}

// SensorRepository stores sensors in memory.
type SensorRepository struct {
	table *Table[string, domain.Sensor]
}

func (r *SensorRepository) Create(_ context.Context, s *domain.Sensor) error {
	if !r.table.Insert(s.ID, *s) {
		return apperrors.NewConflictError("sensor", s.ID)
	}
	return nil
}

func (r *SensorRepository) Get(_ context.Context, id string) (*domain.Sensor, error) {
	s, ok := r.table.Get(id)
	if !ok {
		return nil, apperrors.NewNotFoundError("sensor", id)
	}
	return &s, nil
}

func (r *SensorRepository) List(_ context.Context) ([]domain.Sensor, error) {
	return r.table.Filter(nil, func(a, b domain.Sensor) bool { return a.ID < b.ID }), nil
}

func (r *SensorRepository) ListByDevice(_ context.Context, deviceID string) ([]domain.Sensor, error) {
	return r.table.Filter(
		func(s domain.Sensor) bool { return s.DeviceID == deviceID },
		func(a, b domain.Sensor) bool { return a.ID < b.ID },
	), nil
}

func (r *SensorRepository) Delete(_ context.Context, id string) error {
	if !r.table.Delete(id) {
		return apperrors.NewNotFoundError("sensor", id)
	}
	return nil
}

// ActuatorRepository stores actuators in memory.
type ActuatorRepository struct {
	table *Table[string, domain.Actuator]
}

func (r *ActuatorRepository) Create(_ context.Context, a *domain.Actuator) error {
	if !r.table.Insert(a.ID, *a) {
		return apperrors.NewConflictError("actuator", a.ID)
	}
	return nil
}

func (r *ActuatorRepository) Get(_ context.Context, id string) (*domain.Actuator, error) {
	a, ok := r.table.Get(id)
	if !ok {
		return nil, apperrors.NewNotFoundError("actuator", id)
	}
	return &a, nil
}

func (r *ActuatorRepository) ListByDevice(_ context.Context, deviceID string) ([]domain.Actuator, error) {
	return r.table.Filter(
		func(a domain.Actuator) bool { return a.DeviceID == deviceID },
		func(a, b domain.Actuator) bool { return a.ID < b.ID },
	), nil
}

func (r *ActuatorRepository) Update(_ context.Context, a *domain.Actuator) error {
	if !r.table.Update(a.ID, *a) {
		return apperrors.NewNotFoundError("actuator", a.ID)
	}
	return nil
}

func (r *ActuatorRepository) Delete(_ context.Context, id string) error {
	if !r.table.Delete(id) {
		return apperrors.NewNotFoundError("actuator", id)
	}
	return nil
}

// ReadingRepository keeps readings per sensor in timestamp order.
type ReadingRepository struct {
	mu       sync.RWMutex
	bySensor map[string][]domain.Reading
}

// NewReadingRepository creates an empty reading store.
func NewReadingRepository() *ReadingRepository {
	return &ReadingRepository{bySensor: make(map[string][]domain.Reading)}
}

// Add appends a reading, keeping the sensor's readings sorted by time.
func (r *ReadingRepository) Add(_ context.Context, reading domain.Reading) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows := r.bySensor[reading.SensorID]
	i := sort.Search(len(rows), func(i int) bool { return rows[i].Timestamp.After(reading.Timestamp) })
	rows = append(rows, domain.Reading{})
	copy(rows[i+1:], rows[i:])
	rows[i] = reading
	r.bySensor[reading.SensorID] = rows
	return nil
}

// ListBySensor returns the sensor's readings in [start, end).
func (r *ReadingRepository) ListBySensor(_ context.Context, sensorID string, start, end time.Time) ([]domain.Reading, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return inRange(r.bySensor[sensorID], start, end), nil
}

// ReadingsForDeviceInRange returns the readings of every sensor of the device in [start, end).
func (r *ReadingRepository) ReadingsForDeviceInRange(_ context.Context, deviceID string, start, end time.Time) ([]domain.Reading, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []domain.Reading
	for _, rows := range r.bySensor {
		if len(rows) == 0 || rows[0].DeviceID != deviceID {
			continue
		}
		out = append(out, inRange(rows, start, end)...)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

// DeleteBySensor drops every reading of a sensor.
func (r *ReadingRepository) DeleteBySensor(_ context.Context, sensorID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.bySensor, sensorID)
	return nil
}

func inRange(rows []domain.Reading, start, end time.Time) []domain.Reading {
	lo := sort.Search(len(rows), func(i int) bool { return !rows[i].Timestamp.Before(start) })
	hi := sort.Search(len(rows), func(i int) bool { return !rows[i].Timestamp.Before(end) })
	if lo >= hi {
		return []domain.Reading{}
	}
	out := make([]domain.Reading, hi-lo)
	copy(out, rows[lo:hi])
	return out
}
