// Copyright (c) 2025 Darren Soothill
// Licensed under the MIT License

package slacknotifier

import (
	"context"
	"fmt"
)

// MirrorAlerts formats the InfluxDB mirror alerts raised by the reading spool.
type MirrorAlerts struct {
	notifier *Notifier
}

// NewMirrorAlerts wraps a notifier.
func NewMirrorAlerts(notifier *Notifier) *MirrorAlerts {
	return &MirrorAlerts{notifier: notifier}
}

// SendMirrorFailure reports that InfluxDB stopped accepting readings.
func (a *MirrorAlerts) SendMirrorFailure(ctx context.Context, err error) error {
	return a.notifier.SendAlert(ctx, "danger", "InfluxDB mirror failure",
		fmt.Sprintf("Failed to write readings to InfluxDB: %v\nReadings are spooled locally until the connection is restored.", err))
}

// SendMirrorRecovery reports that spooled readings are being replayed.
func (a *MirrorAlerts) SendMirrorRecovery(ctx context.Context) error {
	return a.notifier.SendAlert(ctx, "good", "InfluxDB mirror restored",
		"Connection to InfluxDB has been restored. Spooled readings were replayed.")
}

// SendSpoolWarning reports that the local spool is close to full.
func (a *MirrorAlerts) SendSpoolWarning(ctx context.Context, size, maxSize int64) error {
	percentage := float64(size) / float64(maxSize) * 100
	return a.notifier.SendAlert(ctx, "warning", "Reading spool almost full",
		fmt.Sprintf("Spool size: %d bytes (%.1f%% of max %d bytes)\nInfluxDB may be unavailable for an extended period.",
			size, percentage, maxSize))
}

// IsEnabled returns whether Slack notifications are enabled
func (a *MirrorAlerts) IsEnabled() bool {
	return a.notifier.IsEnabled()
}

// SendDiscoveryFailure reports that an mDNS device scan failed.
func (a *MirrorAlerts) SendDiscoveryFailure(ctx context.Context, err error) error {
	return a.notifier.SendAlert(ctx, "warning", "Device discovery failure",
		fmt.Sprintf("Failed to discover Matter devices: %v", err))
}
