// Copyright (c) 2025 Darren Soothill
// Licensed under the MIT License

package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/soothill/smart-home-manager/service"
)

func (s *Server) listHouses(w http.ResponseWriter, r *http.Request) {
	houses, err := s.svc.Houses.ListHouses(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeHAL(w, http.StatusOK, newCollection("/houses", "houses", mapAll(houses, houseRes)))
}

func (s *Server) createHouse(w http.ResponseWriter, r *http.Request) {
	var in service.HouseInput
	if err := decodeBody(r, &in); err != nil {
		writeServiceError(w, r, err)
		return
	}
	house, err := s.svc.Houses.CreateHouse(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Location", houseHref(house.ID))
	writeHAL(w, http.StatusCreated, houseRes(*house))
}

func (s *Server) getHouse(w http.ResponseWriter, r *http.Request) {
	house, err := s.svc.Houses.GetHouse(r.Context(), mux.Vars(r)["houseId"])
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeHAL(w, http.StatusOK, houseRes(*house))
}

func (s *Server) updateHouse(w http.ResponseWriter, r *http.Request) {
	var in service.HouseInput
	if err := decodeBody(r, &in); err != nil {
		writeServiceError(w, r, err)
		return
	}
	house, err := s.svc.Houses.UpdateHouse(r.Context(), mux.Vars(r)["houseId"], in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeHAL(w, http.StatusOK, houseRes(*house))
}

func (s *Server) deleteHouse(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Houses.DeleteHouse(r.Context(), mux.Vars(r)["houseId"]); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listRooms(w http.ResponseWriter, r *http.Request) {
	houseID := mux.Vars(r)["houseId"]
	rooms, err := s.svc.Houses.ListRooms(r.Context(), houseID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeHAL(w, http.StatusOK, newCollection(houseHref(houseID)+"/rooms", "rooms", mapAll(rooms, roomRes)))
}

func (s *Server) createRoom(w http.ResponseWriter, r *http.Request) {
	var in service.RoomInput
	if err := decodeBody(r, &in); err != nil {
		writeServiceError(w, r, err)
		return
	}
	room, err := s.svc.Houses.CreateRoom(r.Context(), mux.Vars(r)["houseId"], in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Location", roomHref(room.ID))
	writeHAL(w, http.StatusCreated, roomRes(*room))
}

func (s *Server) getRoom(w http.ResponseWriter, r *http.Request) {
	room, err := s.svc.Houses.GetRoom(r.Context(), mux.Vars(r)["roomId"])
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeHAL(w, http.StatusOK, roomRes(*room))
}

func (s *Server) updateRoom(w http.ResponseWriter, r *http.Request) {
	var in service.RoomInput
	if err := decodeBody(r, &in); err != nil {
		writeServiceError(w, r, err)
		return
	}
	room, err := s.svc.Houses.UpdateRoom(r.Context(), mux.Vars(r)["roomId"], in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeHAL(w, http.StatusOK, roomRes(*room))
}

func (s *Server) deleteRoom(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Houses.DeleteRoom(r.Context(), mux.Vars(r)["roomId"]); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
