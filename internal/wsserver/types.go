package wsserver

// HealthStatus is the payload for /health.
type HealthStatus struct {
	Status        string  `json:"status"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

// ClientStatus describes one live subscriber in /stats.
type ClientStatus struct {
	ID          string  `json:"id"`
	Quality     int     `json:"quality"`
	RemoteAddr  string  `json:"remote_addr"`
	ConnectedAt float64 `json:"connected_at"`
	FramesSent  uint64  `json:"frames_sent"`
}

// CounterSnapshot mirrors the cumulative pipeline counters in /stats.
type CounterSnapshot struct {
	FramesCaptured      uint64 `json:"frames_captured"`
	CaptureFailures     uint64 `json:"capture_failures"`
	FramesEncoded       uint64 `json:"frames_encoded"`
	EncodeFailures      uint64 `json:"encode_failures"`
	Broadcasts          uint64 `json:"broadcasts"`
	BroadcastsCoalesced uint64 `json:"broadcasts_coalesced"`
	FramesSent          uint64 `json:"frames_sent"`
	SendFailures        uint64 `json:"send_failures"`
	ClientsConnected    uint64 `json:"clients_connected"`
	ClientsRejected     uint64 `json:"clients_rejected"`
}

// StatsSnapshot is the payload for /stats.
type StatsSnapshot struct {
	UptimeSeconds float64         `json:"uptime_seconds"`
	ActiveClients int             `json:"active_clients"`
	Demand        map[int]int     `json:"demand"`
	Clients       []ClientStatus  `json:"clients"`
	Counters      CounterSnapshot `json:"counters"`
}
