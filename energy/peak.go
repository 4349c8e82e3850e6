// Copyright (c) 2025 Darren Soothill
// Licensed under the MIT License

package energy

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/soothill/smart-home-manager/domain"
	"github.com/soothill/smart-home-manager/pkg/interfaces"
)

// Peak is the highest summed power level over the intervals of a range.
// Found is false when no qualifying device had a reading in the range, in
// which case Value is zero.
type Peak struct {
	Value    float64
	Interval Interval
	Found    bool
}

// Formatted renders the peak with one fractional digit.
func (p Peak) Formatted() string {
	return FormatValue(p.Value)
}

// FormatValue renders v rounded to one fractional digit.
func FormatValue(v float64) string {
	r := math.Round(v*10) / 10
	if r == 0 {
		r = 0 // drop the sign of negative zero
	}
	return strconv.FormatFloat(r, 'f', 1, 64)
}

// PeakPowerConsumption computes the peak power consumption of devices over
// [start, end) split into intervalMinutes long intervals.
//
// Within an interval the level of a device is the mean of its readings
// inside that interval. A device without readings in an interval keeps its
// level from the previous one, and a device that has not reported yet
// contributes nothing. The peak is the largest signed sum of levels; on a
// tie the earliest interval wins. Generation readings are negative and may
// make the peak negative.
func PeakPowerConsumption(
	ctx context.Context,
	source interfaces.ReadingSource,
	devices []PowerDevice,
	start, end time.Time,
	intervalMinutes int,
) (Peak, error) {
	intervals, err := Partition(start, end, intervalMinutes)
	if err != nil {
		return Peak{}, err
	}

	series := make([][]domain.Reading, len(devices))
	for i, d := range devices {
		readings, err := source.ReadingsForDeviceInRange(ctx, d.DeviceID, start, end)
		if err != nil {
			return Peak{}, fmt.Errorf("read readings for device %s: %w", d.DeviceID, err)
		}
		series[i] = qualifyingReadings(readings, d.SensorIDs, start, end)
	}

	levels := make(map[string]float64, len(devices))
	cursors := make([]int, len(devices))
	var peak Peak

	for iv, ok := intervals.Next(); ok; iv, ok = intervals.Next() {
		for i, d := range devices {
			sum, n := 0.0, 0
			for cursors[i] < len(series[i]) && series[i][cursors[i]].Timestamp.Before(iv.End) {
				sum += series[i][cursors[i]].Value
				n++
				cursors[i]++
			}
			if n > 0 {
				levels[d.DeviceID] = sum / float64(n)
			}
		}

		if len(levels) == 0 {
			continue
		}

		total := 0.0
		for _, d := range devices {
			total += levels[d.DeviceID]
		}
		if !peak.Found || total > peak.Value {
			peak = Peak{Value: total, Interval: iv, Found: true}
		}
	}

	return peak, nil
}

// qualifyingReadings keeps the readings of sensorIDs inside [start, end), ordered by time.
func qualifyingReadings(readings []domain.Reading, sensorIDs []string, start, end time.Time) []domain.Reading {
	allowed := make(map[string]bool, len(sensorIDs))
	for _, id := range sensorIDs {
		allowed[id] = true
	}

	window := Interval{Start: start, End: end}
	out := make([]domain.Reading, 0, len(readings))
	for _, r := range readings {
		if allowed[r.SensorID] && window.Contains(r.Timestamp) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out
}
