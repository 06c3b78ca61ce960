package lifecycle

// NotificationImportance mirrors the platform notification channel importance levels.
type NotificationImportance int

const (
	ImportanceMin NotificationImportance = iota + 1
	ImportanceLow
	ImportanceDefault
	ImportanceHigh
)

type NotificationVisibility int

const (
	VisibilitySecret NotificationVisibility = iota - 1
	VisibilityPrivate
	VisibilityPublic
)

// Notification describes the persistent notification a foreground-style continuation service
// shows while it keeps step counting alive.
type Notification struct {
	ID          int                    `json:"id"`
	ChannelID   string                 `json:"channelId"`
	ChannelName string                 `json:"channelName"`
	Importance  NotificationImportance `json:"importance"`
	Visibility  NotificationVisibility `json:"visibility"`
	Ongoing     bool                   `json:"ongoing"`
}

var DefaultNotification = Notification{
	ID:          1,
	ChannelID:   "steps_channel",
	ChannelName: "My Background Service",
	Importance:  ImportanceLow,
	Visibility:  VisibilityPrivate,
	Ongoing:     true,
}
