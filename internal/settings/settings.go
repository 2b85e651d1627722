// Package settings is the single source of truth for user-configurable
// behavior. Partial updates are deep-merged against the current settings so
// older persisted configs stay valid after schema evolution.
package settings

// SchemaVersion tags exported settings documents.
const SchemaVersion = 1

type Settings struct {
	Appointments  AppointmentSettings  `json:"appointments"`
	Backup        BackupSettings       `json:"backup"`
	Notifications NotificationSettings `json:"notifications"`
	Display       DisplaySettings      `json:"display"`
}

type AppointmentSettings struct {
	// DefaultDuration is in minutes.
	DefaultDuration int  `json:"defaultDuration" validate:"min=15,max=480"`
	ReminderHours   int  `json:"reminderHours" validate:"min=0,max=72"`
	AllowSameDay    bool `json:"allowSameDay"`
}

type BackupSettings struct {
	AutoEnabled bool `json:"autoEnabled"`
	// IntervalHours is how often the automatic snapshot runs.
	IntervalHours int `json:"intervalHours" validate:"min=1,max=168"`
	MaxBackups    int `json:"maxBackups" validate:"min=1,max=100"`
}

type NotificationSettings struct {
	WebhookEnabled  bool `json:"webhookEnabled"`
	CalendarEnabled bool `json:"calendarEnabled"`
}

type DisplaySettings struct {
	Theme    string `json:"theme" validate:"oneof=light dark system"`
	Language string `json:"language" validate:"oneof=pt-BR en"`
}

func Defaults() Settings {
	return Settings{
		Appointments: AppointmentSettings{
			DefaultDuration: 30,
			ReminderHours:   24,
			AllowSameDay:    true,
		},
		Backup: BackupSettings{
			AutoEnabled:   true,
			IntervalHours: 1,
			MaxBackups:    10,
		},
		Notifications: NotificationSettings{
			WebhookEnabled:  true,
			CalendarEnabled: false,
		},
		Display: DisplaySettings{
			Theme:    "system",
			Language: "pt-BR",
		},
	}
}
