// Copyright (c) 2025 Darren Soothill
// Licensed under the MIT License

package service

import (
	"context"

	"github.com/soothill/smart-home-manager/domain"
	"github.com/soothill/smart-home-manager/pkg/interfaces"
	"github.com/soothill/smart-home-manager/pkg/logger"
)

// HouseInput carries the client-settable fields of a house
type HouseInput struct {
	Name     string          `json:"name" validate:"required,max=200"`
	Location domain.Location `json:"location"`
}

// RoomInput carries the client-settable fields of a room
type RoomInput struct {
	Name       string            `json:"name" validate:"required,max=200"`
	Floor      int               `json:"floor"`
	Dimensions domain.Dimensions `json:"dimensions"`
}

// HouseService manages houses and their rooms
type HouseService struct {
	base
}

// NewHouseService creates a HouseService
func NewHouseService(repos interfaces.Repositories, opts ...Option) *HouseService {
	return &HouseService{base: newBase(repos, opts)}
}

// CreateHouse stores a new house with a generated id
func (s *HouseService) CreateHouse(ctx context.Context, in HouseInput) (*domain.House, error) {
	house := &domain.House{
		ID:        s.newID(),
		Name:      in.Name,
		Location:  in.Location,
		CreatedAt: s.now(),
	}
	if err := house.Validate(); err != nil {
		return nil, err
	}
	if err := s.repos.Houses.Create(ctx, house); err != nil {
		return nil, err
	}
	logger.Info().Str("house_id", house.ID).Str("name", house.Name).Msg("House created")
	return house, nil
}

// GetHouse returns a house by id
func (s *HouseService) GetHouse(ctx context.Context, id string) (*domain.House, error) {
	return s.repos.Houses.Get(ctx, id)
}

// ListHouses returns all houses
func (s *HouseService) ListHouses(ctx context.Context) ([]domain.House, error) {
	return s.repos.Houses.List(ctx)
}

// UpdateHouse replaces name and location of a house
func (s *HouseService) UpdateHouse(ctx context.Context, id string, in HouseInput) (*domain.House, error) {
	house, err := s.repos.Houses.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	house.Name = in.Name
	house.Location = in.Location
	if err := house.Validate(); err != nil {
		return nil, err
	}
	if err := s.repos.Houses.Update(ctx, house); err != nil {
		return nil, err
	}
	return house, nil
}

// DeleteHouse deletes a house with its rooms, devices, sensors, actuators
// and readings.
func (s *HouseService) DeleteHouse(ctx context.Context, id string) error {
	if _, err := s.repos.Houses.Get(ctx, id); err != nil {
		return err
	}
	if err := s.deleteHouseTree(ctx, id); err != nil {
		return err
	}
	logger.Info().Str("house_id", id).Msg("House deleted")
	return nil
}

// CreateRoom adds a room to an existing house
func (s *HouseService) CreateRoom(ctx context.Context, houseID string, in RoomInput) (*domain.Room, error) {
	if _, err := s.repos.Houses.Get(ctx, houseID); err != nil {
		return nil, err
	}
	room := &domain.Room{
		ID:         s.newID(),
		HouseID:    houseID,
		Name:       in.Name,
		Floor:      in.Floor,
		Dimensions: in.Dimensions,
	}
	if err := room.Validate(); err != nil {
		return nil, err
	}
	if err := s.repos.Rooms.Create(ctx, room); err != nil {
		return nil, err
	}
	logger.Info().Str("house_id", houseID).Str("room_id", room.ID).Msg("Room created")
	return room, nil
}

// GetRoom returns a room by id
func (s *HouseService) GetRoom(ctx context.Context, id string) (*domain.Room, error) {
	return s.repos.Rooms.Get(ctx, id)
}

// ListRooms returns the rooms of a house
func (s *HouseService) ListRooms(ctx context.Context, houseID string) ([]domain.Room, error) {
	if _, err := s.repos.Houses.Get(ctx, houseID); err != nil {
		return nil, err
	}
	return s.repos.Rooms.ListByHouse(ctx, houseID)
}

// UpdateRoom replaces the client-settable fields of a room
func (s *HouseService) UpdateRoom(ctx context.Context, id string, in RoomInput) (*domain.Room, error) {
	room, err := s.repos.Rooms.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	room.Name = in.Name
	room.Floor = in.Floor
	room.Dimensions = in.Dimensions
	if err := room.Validate(); err != nil {
		return nil, err
	}
	if err := s.repos.Rooms.Update(ctx, room); err != nil {
		return nil, err
	}
	return room, nil
}

// DeleteRoom deletes a room and its devices
func (s *HouseService) DeleteRoom(ctx context.Context, id string) error {
	if _, err := s.repos.Rooms.Get(ctx, id); err != nil {
		return err
	}
	return s.deleteRoomTree(ctx, id)
}
