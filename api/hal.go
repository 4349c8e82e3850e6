// Copyright (c) 2025 Darren Soothill
// Licensed under the MIT License

package api

import (
	"github.com/soothill/smart-home-manager/domain"
)

type link struct {
	Href string `json:"href"`
}

type links map[string]link

// collection is a HAL collection: items under _embedded.<name>
type collection struct {
	Embedded map[string]any `json:"_embedded"`
	Links    links          `json:"_links"`
}

func newCollection(self, name string, items any) collection {
	return collection{
		Embedded: map[string]any{name: items},
		Links:    links{"self": {Href: self}},
	}
}

func houseHref(id string) string    { return "/houses/" + id }
func roomHref(id string) string     { return "/rooms/" + id }
func deviceHref(id string) string   { return "/devices/" + id }
func sensorHref(id string) string   { return "/sensors/" + id }
func actuatorHref(id string) string { return "/actuators/" + id }

type houseResource struct {
	domain.House
	Links links `json:"_links"`
}

func houseRes(h domain.House) houseResource {
	self := houseHref(h.ID)
	return houseResource{House: h, Links: links{
		"self":                  {Href: self},
		"rooms":                 {Href: self + "/rooms"},
		"peakPowerConsumption":  {Href: self + "/peak-power-consumption"},
		"temperatureDifference": {Href: self + "/temperature-difference"},
	}}
}

type roomResource struct {
	domain.Room
	Links links `json:"_links"`
}

func roomRes(r domain.Room) roomResource {
	self := roomHref(r.ID)
	return roomResource{Room: r, Links: links{
		"self":    {Href: self},
		"house":   {Href: houseHref(r.HouseID)},
		"devices": {Href: self + "/devices"},
	}}
}

type deviceResource struct {
	domain.Device
	Links links `json:"_links"`
}

func deviceRes(d domain.Device) deviceResource {
	self := deviceHref(d.ID)
	return deviceResource{Device: d, Links: links{
		"self":      {Href: self},
		"room":      {Href: roomHref(d.RoomID)},
		"sensors":   {Href: self + "/sensors"},
		"actuators": {Href: self + "/actuators"},
	}}
}

type sensorResource struct {
	domain.Sensor
	Links links `json:"_links"`
}

func sensorRes(s domain.Sensor) sensorResource {
	self := sensorHref(s.ID)
	return sensorResource{Sensor: s, Links: links{
		"self":     {Href: self},
		"device":   {Href: deviceHref(s.DeviceID)},
		"readings": {Href: self + "/readings"},
	}}
}

type actuatorResource struct {
	domain.Actuator
	Links links `json:"_links"`
}

func actuatorRes(a domain.Actuator) actuatorResource {
	self := actuatorHref(a.ID)
	return actuatorResource{Actuator: a, Links: links{
		"self":     {Href: self},
		"device":   {Href: deviceHref(a.DeviceID)},
		"commands": {Href: self + "/commands"},
	}}
}

type readingResource struct {
	domain.Reading
	Links links `json:"_links"`
}

func readingRes(r domain.Reading) readingResource {
	return readingResource{Reading: r, Links: links{
		"sensor": {Href: sensorHref(r.SensorID)},
		"device": {Href: deviceHref(r.DeviceID)},
	}}
}

// mapAll converts a slice of domain values into resources
func mapAll[T, R any](items []T, fn func(T) R) []R {
	out := make([]R, 0, len(items))
	for _, item := range items {
		out = append(out, fn(item))
	}
	return out
}
