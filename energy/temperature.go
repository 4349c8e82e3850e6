// Copyright (c) 2025 Darren Soothill
// Licensed under the MIT License

package energy

import (
	"sort"
	"time"

	"github.com/soothill/smart-home-manager/domain"
	apperrors "github.com/soothill/smart-home-manager/pkg/errors"
	"github.com/soothill/smart-home-manager/sensor"
)

// Difference is the largest gap between an inside and an outside temperature.
type Difference struct {
	Value     float64   `json:"difference"`
	Inside    float64   `json:"inside"`
	Outside   float64   `json:"outside"`
	Timestamp time.Time `json:"timestamp"`
}

// MaxTemperatureDifference pairs every inside reading with the latest outside
// reading taken at or before it and returns the pair that differs the most.
// It fails with ErrNoData when no inside reading has a preceding outside one.
func MaxTemperatureDifference(inside, outside []domain.Reading) (Difference, error) {
	in := sortedByTime(inside)
	out := sortedByTime(outside)

	var (
		best  Difference
		found bool
		j     = -1
	)
	for _, r := range in {
		for j+1 < len(out) && !out[j+1].Timestamp.After(r.Timestamp) {
			j++
		}
		if j < 0 {
			continue
		}

		ti, err := sensor.FromCelsius(r.Value)
		if err != nil {
			return Difference{}, err
		}
		to, err := sensor.FromCelsius(out[j].Value)
		if err != nil {
			return Difference{}, err
		}

		d := ti.Difference(to)
		if !found || d > best.Value {
			best = Difference{Value: d, Inside: r.Value, Outside: out[j].Value, Timestamp: r.Timestamp}
			found = true
		}
	}

	if !found {
		return Difference{}, apperrors.ErrNoData
	}
	return best, nil
}

func sortedByTime(readings []domain.Reading) []domain.Reading {
	out := make([]domain.Reading, len(readings))
	copy(out, readings)
	sort.SliceStable(out, func(i, k int) bool { return out[i].Timestamp.Before(out[k].Timestamp) })
	return out
}
