package entity

import "time"

// Stats holds the headline numbers of one reporting window
type Stats struct {
	Visitors          int     `json:"visitors"`
	WidgetOpens       int     `json:"widgetOpens"`
	UniqueWidgetOpens int     `json:"uniqueWidgetOpens"`
	UsersCreated      int     `json:"usersCreated"`
	FormSubmissions   int     `json:"formSubmissions"`
	ChatsInitiated    int     `json:"chatsInitiated"`
	ConversionRate    float64 `json:"conversionRate"` // percent, one decimal
}

// Changes holds period-over-period percentage deltas, one per stat
type Changes struct {
	Visitors          float64 `json:"visitors"`
	WidgetOpens       float64 `json:"widgetOpens"`
	UniqueWidgetOpens float64 `json:"uniqueWidgetOpens"`
	UsersCreated      float64 `json:"usersCreated"`
	FormSubmissions   float64 `json:"formSubmissions"`
	ChatsInitiated    float64 `json:"chatsInitiated"`
	ConversionRate    float64 `json:"conversionRate"`
}

// StatsWithChanges is the current window stats plus deltas against the previous window
type StatsWithChanges struct {
	Stats
	Changes Changes `json:"changes"`
}

// TimeSeriesPoint is one UTC day of the current window
type TimeSeriesPoint struct {
	Date              string  `json:"date"` // YYYY-MM-DD
	Visitors          int     `json:"visitors"`
	WidgetOpens       int     `json:"widgetOpens"`
	UniqueWidgetOpens int     `json:"uniqueWidgetOpens"`
	UsersCreated      int     `json:"usersCreated"`
	FormSubmissions   int     `json:"formSubmissions"`
	ChatsInitiated    int     `json:"chatsInitiated"`
	ConversionRate    float64 `json:"conversionRate"`
}

// GlanceStats is the per-widget breakdown of the current window
type GlanceStats struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	Visitors          int    `json:"visitors"`
	AvgSessionSeconds int64  `json:"avgSessionSeconds"`
}

// Report is the full analytics result for a workspace and period
type Report struct {
	Period      Period            `json:"period"`
	PeriodStart time.Time         `json:"periodStart"`
	PeriodEnd   time.Time         `json:"periodEnd"`
	Stats       StatsWithChanges  `json:"stats"`
	TimeSeries  []TimeSeriesPoint `json:"timeSeries"`
	Glances     []GlanceStats     `json:"glances"`
}

// UnknownGlanceName is shown for events whose widget cannot be resolved
const UnknownGlanceName = "Unknown"
