package inspect

type SessionInspectResult struct {
	SessionId    string                      `json:"sessionId"`
	Name         string                      `json:"name"`
	Version      string                      `json:"version"`
	Bridge       string                      `json:"bridge"`
	Platform     string                      `json:"platform"`
	Closed       bool                        `json:"closed"`
	Capability   *SessionInspectCapability   `json:"capability,omitempty"`
	Subscription *SessionInspectSubscription `json:"subscription"`
	Listeners    []*SessionInspectListener   `json:"listeners"`
	Background   *SessionInspectBackground   `json:"background"`
}

type SessionInspectCapability struct {
	Supported bool `json:"supported"`
	Granted   bool `json:"granted"`
}

type SessionInspectSubscription struct {
	State                 string `json:"state"`
	From                  int64  `json:"from,omitempty"`
	UpstreamRegistrations uint64 `json:"upstreamRegistrations"`
	ListenerCount         int    `json:"listenerCount"`
}

type SessionInspectListener struct {
	Id      string `json:"id"`
	Channel string `json:"channel"`
}

type SessionInspectBackground struct {
	Enabled             bool   `json:"enabled"`
	State               string `json:"state"`
	Running             bool   `json:"running"`
	Starts              uint64 `json:"starts"`
	Stops               uint64 `json:"stops"`
	Failures            uint64 `json:"failures"`
	NotificationId      int    `json:"notificationId,omitempty"`
	NotificationChannel string `json:"notificationChannel,omitempty"`
}
