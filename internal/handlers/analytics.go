package handlers

import "kesurge.org/kesurge-web/internal/config"

// Analytics holds client-side analytics settings rendered into the layout.
type Analytics struct {
	GA4MeasurementID string
	Debug            bool
}

// AnalyticsFrom maps config to the view model.
func AnalyticsFrom(cfg config.AnalyticsConfig) Analytics {
	return Analytics{GA4MeasurementID: cfg.GA4MeasurementID, Debug: cfg.Debug}
}

// Enabled reports whether a measurement id is configured.
func (a Analytics) Enabled() bool { return a.GA4MeasurementID != "" }
