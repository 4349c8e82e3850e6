// Copyright (c) 2025 Darren Soothill
// Licensed under the MIT License

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/soothill/smart-home-manager/domain"
	apperrors "github.com/soothill/smart-home-manager/pkg/errors"
)

// execOne runs a statement that must touch exactly one row. Zero rows is
// reported through onMissing.
func execOne(ctx context.Context, db *sql.DB, op, id string, onMissing error, query string, args ...any) error {
	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewStorageError(op, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return apperrors.NewStorageError(op, id, err)
	}
	if n == 0 {
		return onMissing
	}
	return nil
}

func notFound(kind, id string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return apperrors.NewNotFoundError(kind, id)
	}
	return apperrors.NewStorageError("get "+kind, id, err)
}

// HouseRepository persists houses.
type HouseRepository struct {
	db *sql.DB
}

func (r *HouseRepository) Create(ctx context.Context, h *domain.House) error {
	if h.CreatedAt.IsZero() {
		h.CreatedAt = time.Now().UTC()
	}
	const query = `
		INSERT INTO houses (id, name, street, city, zip_code, country, latitude, longitude, altitude, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO NOTHING
	`
	a, g := h.Location.Address, h.Location.GPS
	return execOne(ctx, r.db, "insert house", h.ID, apperrors.NewConflictError("house", h.ID), query,
		h.ID, h.Name, a.Street, a.City, a.ZipCode, a.Country, g.Latitude, g.Longitude, g.Altitude, h.CreatedAt)
}

const houseColumns = `id, name, street, city, zip_code, country, latitude, longitude, altitude, created_at`

func scanHouse(row interface{ Scan(...any) error }) (domain.House, error) {
	var h domain.House
	a, g := &h.Location.Address, &h.Location.GPS
	err := row.Scan(&h.ID, &h.Name, &a.Street, &a.City, &a.ZipCode, &a.Country, &g.Latitude, &g.Longitude, &g.Altitude, &h.CreatedAt)
	return h, err
}

func (r *HouseRepository) Get(ctx context.Context, id string) (*domain.House, error) {
	h, err := scanHouse(r.db.QueryRowContext(ctx, `SELECT `+houseColumns+` FROM houses WHERE id = $1`, id))
	if err != nil {
		return nil, notFound("house", id, err)
	}
	return &h, nil
}

func (r *HouseRepository) List(ctx context.Context) ([]domain.House, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+houseColumns+` FROM houses ORDER BY id`)
	if err != nil {
		return nil, apperrors.NewStorageError("list houses", "", err)
	}
	defer rows.Close()

	out := make([]domain.House, 0)
	for rows.Next() {
		h, err := scanHouse(rows)
		if err != nil {
			return nil, apperrors.NewStorageError("list houses", "", err)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func (r *HouseRepository) Update(ctx context.Context, h *domain.House) error {
	const query = `
		UPDATE houses
		SET name = $2, street = $3, city = $4, zip_code = $5, country = $6, latitude = $7, longitude = $8, altitude = $9
		WHERE id = $1
	`
	a, g := h.Location.Address, h.Location.GPS
	return execOne(ctx, r.db, "update house", h.ID, apperrors.NewNotFoundError("house", h.ID), query,
		h.ID, h.Name, a.Street, a.City, a.ZipCode, a.Country, g.Latitude, g.Longitude, g.Altitude)
}

func (r *HouseRepository) Delete(ctx context.Context, id string) error {
	return execOne(ctx, r.db, "delete house", id, apperrors.NewNotFoundError("house", id),
		`DELETE FROM houses WHERE id = $1`, id)
}

// RoomRepository persists rooms.
type RoomRepository struct {
	db *sql.DB
}

const roomColumns = `id, house_id, name, floor, width, length, height`

func scanRoom(row interface{ Scan(...any) error }) (domain.Room, error) {
	var room domain.Room
	d := &room.Dimensions
	err := row.Scan(&room.ID, &room.HouseID, &room.Name, &room.Floor, &d.Width, &d.Length, &d.Height)
	return room, err
}

func (r *RoomRepository) Create(ctx context.Context, room *domain.Room) error {
	const query = `
		INSERT INTO rooms (` + roomColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING
	`
	d := room.Dimensions
	return execOne(ctx, r.db, "insert room", room.ID, apperrors.NewConflictError("room", room.ID), query,
		room.ID, room.HouseID, room.Name, room.Floor, d.Width, d.Length, d.Height)
}

func (r *RoomRepository) Get(ctx context.Context, id string) (*domain.Room, error) {
	room, err := scanRoom(r.db.QueryRowContext(ctx, `SELECT `+roomColumns+` FROM rooms WHERE id = $1`, id))
	if err != nil {
		return nil, notFound("room", id, err)
	}
	return &room, nil
}

func (r *RoomRepository) ListByHouse(ctx context.Context, houseID string) ([]domain.Room, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+roomColumns+` FROM rooms WHERE house_id = $1 ORDER BY id`, houseID)
	if err != nil {
		return nil, apperrors.NewStorageError("list rooms", houseID, err)
	}
	defer rows.Close()

	out := make([]domain.Room, 0)
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, apperrors.NewStorageError("list rooms", houseID, err)
		}
		out = append(out, room)
	}
	return out, rows.Err()
}

func (r *RoomRepository) Update(ctx context.Context, room *domain.Room) error {
	const query = `
		UPDATE rooms SET name = $2, floor = $3, width = $4, length = $5, height = $6
		WHERE id = $1
	`
	d := room.Dimensions
	return execOne(ctx, r.db, "update room", room.ID, apperrors.NewNotFoundError("room", room.ID), query,
		room.ID, room.Name, room.Floor, d.Width, d.Length, d.Height)
}

func (r *RoomRepository) Delete(ctx context.Context, id string) error {
	return execOne(ctx, r.db, "delete room", id, apperrors.NewNotFoundError("room", id),
		`DELETE FROM rooms WHERE id = $1`, id)
}

// DeviceRepository persists devices.
type DeviceRepository struct {
	db *sql.DB
}

func (r *DeviceRepository) Create(ctx context.Context, d *domain.Device) error {
	const query = `
		INSERT INTO devices (id, room_id, name, type)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO NOTHING
	`
	return execOne(ctx, r.db, "insert device", d.ID, apperrors.NewConflictError("device", d.ID), query,
		d.ID, d.RoomID, d.Name, d.Type)
}

func (r *DeviceRepository) Get(ctx context.Context, id string) (*domain.Device, error) {
	var d domain.Device
	err := r.db.QueryRowContext(ctx, `SELECT id, room_id, name, type FROM devices WHERE id = $1`, id).
		Scan(&d.ID, &d.RoomID, &d.Name, &d.Type)
	if err != nil {
		return nil, notFound("device", id, err)
	}
	return &d, nil
}

func (r *DeviceRepository) ListByRoom(ctx context.Context, roomID string) ([]domain.Device, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, room_id, name, type FROM devices WHERE room_id = $1 ORDER BY id`, roomID)
	if err != nil {
		return nil, apperrors.NewStorageError("list devices", roomID, err)
	}
	defer rows.Close()

	out := make([]domain.Device, 0)
	for rows.Next() {
		var d domain.Device
		if err := rows.Scan(&d.ID, &d.RoomID, &d.Name, &d.Type); err != nil {
			return nil, apperrors.NewStorageError("list devices", roomID, err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *DeviceRepository) Update(ctx context.Context, d *domain.Device) error {
	return execOne(ctx, r.db, "update device", d.ID, apperrors.NewNotFoundError("device", d.ID),
		`UPDATE devices SET name = $2, type = $3 WHERE id = $1`, d.ID, d.Name, d.Type)
}

func (r *DeviceRepository) Delete(ctx context.Context, id string) error {
	return execOne(ctx, r.db, "delete device", id, apperrors.NewNotFoundError("device", id),
		`DELETE FROM devices WHERE id = $1`, id)
}

// SensorRepository persists sensors.
type SensorRepository struct {
	db *sql.DB
}

const sensorColumns = `id, device_id, name, model, unit, created_at`

func scanSensor(row interface{ Scan(...any) error }) (domain.Sensor, error) {
	var s domain.Sensor
	err := row.Scan(&s.ID, &s.DeviceID, &s.Name, &s.Model, &s.Unit, &s.CreatedAt)
	return s, err
}

func (r *SensorRepository) Create(ctx context.Context, s *domain.Sensor) error {
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	const query = `
		INSERT INTO sensors (` + sensorColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING
	`
	return execOne(ctx, r.db, "insert sensor", s.ID, apperrors.NewConflictError("sensor", s.ID), query,
		s.ID, s.DeviceID, s.Name, s.Model, s.Unit, s.CreatedAt)
}

func (r *SensorRepository) Get(ctx context.Context, id string) (*domain.Sensor, error) {
	s, err := scanSensor(r.db.QueryRowContext(ctx, `SELECT `+sensorColumns+` FROM sensors WHERE id = $1`, id))
	if err != nil {
		return nil, notFound("sensor", id, err)
	}
	return &s, nil
}

func (r *SensorRepository) list(ctx context.Context, op, query string, args ...any) ([]domain.Sensor, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewStorageError(op, "", err)
	}
	defer rows.Close()

	out := make([]domain.Sensor, 0)
	for rows.Next() {
		s, err := scanSensor(rows)
		if err != nil {
			return nil, apperrors.NewStorageError(op, "", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *SensorRepository) List(ctx context.Context) ([]domain.Sensor, error) {
	return r.list(ctx, "list sensors", `SELECT `+sensorColumns+` FROM sensors ORDER BY id`)
}

func (r *SensorRepository) ListByDevice(ctx context.Context, deviceID string) ([]domain.Sensor, error) {
	return r.list(ctx, "list device sensors",
		`SELECT `+sensorColumns+` FROM sensors WHERE device_id = $1 ORDER BY id`, deviceID)
}

func (r *SensorRepository) Delete(ctx context.Context, id string) error {
	return execOne(ctx, r.db, "delete sensor", id, apperrors.NewNotFoundError("sensor", id),
		`DELETE FROM sensors WHERE id = $1`, id)
}

// ActuatorRepository persists actuators.
type ActuatorRepository struct {
	db *sql.DB
}

const actuatorColumns = `id, device_id, name, model, value, min_value, max_value, value_precision, updated_at`

func scanActuator(row interface{ Scan(...any) error }) (domain.Actuator, error) {
	var a domain.Actuator
	b := &a.Bounds
	err := row.Scan(&a.ID, &a.DeviceID, &a.Name, &a.Model, &a.Value, &b.Min, &b.Max, &b.Precision, &a.UpdatedAt)
	return a, err
}

func (r *ActuatorRepository) Create(ctx context.Context, a *domain.Actuator) error {
	if a.UpdatedAt.IsZero() {
		a.UpdatedAt = time.Now().UTC()
	}
	const query = `
		INSERT INTO actuators (` + actuatorColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO NOTHING
	`
	b := a.Bounds
	return execOne(ctx, r.db, "insert actuator", a.ID, apperrors.NewConflictError("actuator", a.ID), query,
		a.ID, a.DeviceID, a.Name, a.Model, a.Value, b.Min, b.Max, b.Precision, a.UpdatedAt)
}

func (r *ActuatorRepository) Get(ctx context.Context, id string) (*domain.Actuator, error) {
	a, err := scanActuator(r.db.QueryRowContext(ctx, `SELECT `+actuatorColumns+` FROM actuators WHERE id = $1`, id))
	if err != nil {
		return nil, notFound("actuator", id, err)
	}
	return &a, nil
}

func (r *ActuatorRepository) ListByDevice(ctx context.Context, deviceID string) ([]domain.Actuator, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+actuatorColumns+` FROM actuators WHERE device_id = $1 ORDER BY id`, deviceID)
	if err != nil {
		return nil, apperrors.NewStorageError("list actuators", deviceID, err)
	}
	defer rows.Close()

	out := make([]domain.Actuator, 0)
	for rows.Next() {
		a, err := scanActuator(rows)
		if err != nil {
			return nil, apperrors.NewStorageError("list actuators", deviceID, err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *ActuatorRepository) Update(ctx context.Context, a *domain.Actuator) error {
	const query = `
		UPDATE actuators
		SET name = $2, value = $3, min_value = $4, max_value = $5, value_precision = $6, updated_at = $7
		WHERE id = $1
	`
	b := a.Bounds
	return execOne(ctx, r.db, "update actuator", a.ID, apperrors.NewNotFoundError("actuator", a.ID), query,
		a.ID, a.Name, a.Value, b.Min, b.Max, b.Precision, a.UpdatedAt)
}

func (r *ActuatorRepository) Delete(ctx context.Context, id string) error {
	return execOne(ctx, r.db, "delete actuator", id, apperrors.NewNotFoundError("actuator", id),
		`DELETE FROM actuators WHERE id = $1`, id)
}

// ReadingRepository persists readings.
type ReadingRepository struct {
	db *sql.DB
}

func (r *ReadingRepository) Add(ctx context.Context, reading domain.Reading) error {
	const query = `
		INSERT INTO readings (sensor_id, device_id, value, recorded_at)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := r.db.ExecContext(ctx, query, reading.SensorID, reading.DeviceID, reading.Value, reading.Timestamp); err != nil {
		return apperrors.NewStorageError("insert reading", reading.SensorID, err)
	}
	return nil
}

func (r *ReadingRepository) query(ctx context.Context, op, id, query string, args ...any) ([]domain.Reading, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewStorageError(op, id, err)
	}
	defer rows.Close()

	out := make([]domain.Reading, 0)
	for rows.Next() {
		var rd domain.Reading
		if err := rows.Scan(&rd.DeviceID, &rd.SensorID, &rd.Value, &rd.Timestamp); err != nil {
			return nil, apperrors.NewStorageError(op, id, err)
		}
		rd.Timestamp = rd.Timestamp.UTC()
		out = append(out, rd)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStorageError(op, id, err)
	}
	return out, nil
}

func (r *ReadingRepository) ListBySensor(ctx context.Context, sensorID string, start, end time.Time) ([]domain.Reading, error) {
	const query = `
		SELECT device_id, sensor_id, value, recorded_at
		FROM readings
		WHERE sensor_id = $1 AND recorded_at >= $2 AND recorded_at < $3
		ORDER BY recorded_at, id
	`
	return r.query(ctx, "list sensor readings", sensorID, query, sensorID, start, end)
}

func (r *ReadingRepository) ReadingsForDeviceInRange(ctx context.Context, deviceID string, start, end time.Time) ([]domain.Reading, error) {
	const query = `
		SELECT device_id, sensor_id, value, recorded_at
		FROM readings
		WHERE device_id = $1 AND recorded_at >= $2 AND recorded_at < $3
		ORDER BY recorded_at, id
	`
	return r.query(ctx, "list device readings", deviceID, query, deviceID, start, end)
}

func (r *ReadingRepository) DeleteBySensor(ctx context.Context, sensorID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM readings WHERE sensor_id = $1`, sensorID); err != nil {
		return apperrors.NewStorageError("delete readings", sensorID, err)
	}
	return nil
}
