// Copyright (c) 2025 Darren Soothill
// Licensed under the MIT License

// Package service holds the application operations on houses, rooms,
// devices, sensors, actuators and readings, and the energy queries over
// them. Handlers call services; services call repositories.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/soothill/smart-home-manager/pkg/interfaces"
	"github.com/soothill/smart-home-manager/pkg/logger"
)

// Option configures the shared dependencies of a service
type Option func(*base)

// WithIDGenerator replaces the UUID generator used for new aggregates
func WithIDGenerator(fn func() string) Option {
	return func(b *base) { b.newID = fn }
}

// WithClock replaces time.Now for creation and update timestamps
func WithClock(fn func() time.Time) Option {
	return func(b *base) { b.now = fn }
}

type base struct {
	repos interfaces.Repositories
	newID func() string
	now   func() time.Time
}

func newBase(repos interfaces.Repositories, opts []Option) base {
	b := base{
		repos: repos,
		newID: uuid.NewString,
		now:   func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

// deleteHouseTree deletes a house and everything below it, leaves first.
func (b *base) deleteHouseTree(ctx context.Context, houseID string) error {
	rooms, err := b.repos.Rooms.ListByHouse(ctx, houseID)
	if err != nil {
		return fmt.Errorf("list rooms of house %s: %w", houseID, err)
	}
	for _, room := range rooms {
		if err := b.deleteRoomTree(ctx, room.ID); err != nil {
			return err
		}
	}
	return b.repos.Houses.Delete(ctx, houseID)
}

func (b *base) deleteRoomTree(ctx context.Context, roomID string) error {
	devices, err := b.repos.Devices.ListByRoom(ctx, roomID)
	if err != nil {
		return fmt.Errorf("list devices of room %s: %w", roomID, err)
	}
	for _, device := range devices {
		if err := b.deleteDeviceTree(ctx, device.ID); err != nil {
			return err
		}
	}
	return b.repos.Rooms.Delete(ctx, roomID)
}

func (b *base) deleteDeviceTree(ctx context.Context, deviceID string) error {
	sensors, err := b.repos.Sensors.ListByDevice(ctx, deviceID)
	if err != nil {
		return fmt.Errorf("list sensors of device %s: %w", deviceID, err)
	}
	for _, s := range sensors {
		if err := b.deleteSensorTree(ctx, s.ID); err != nil {
			return err
		}
	}

	actuators, err := b.repos.Actuators.ListByDevice(ctx, deviceID)
	if err != nil {
		return fmt.Errorf("list actuators of device %s: %w", deviceID, err)
	}
	for _, a := range actuators {
		if err := b.repos.Actuators.Delete(ctx, a.ID); err != nil {
			return err
		}
	}

	logger.Debug().
		Str("device_id", deviceID).
		Int("sensors", len(sensors)).
		Int("actuators", len(actuators)).
		Msg("Deleting device")
	return b.repos.Devices.Delete(ctx, deviceID)
}

func (b *base) deleteSensorTree(ctx context.Context, sensorID string) error {
	if err := b.repos.Readings.DeleteBySensor(ctx, sensorID); err != nil {
		return fmt.Errorf("delete readings of sensor %s: %w", sensorID, err)
	}
	return b.repos.Sensors.Delete(ctx, sensorID)
}

// houseOfDevice resolves the house a device belongs to through its room
func (b *base) houseOfDevice(ctx context.Context, deviceID string) (string, error) {
	device, err := b.repos.Devices.Get(ctx, deviceID)
	if err != nil {
		return "", err
	}
	room, err := b.repos.Rooms.Get(ctx, device.RoomID)
	if err != nil {
		return "", err
	}
	return room.HouseID, nil
}
