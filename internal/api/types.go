package api

// Resource is one gauge in the system stats payload. Only Percent is
// guaranteed; the rest are filled in by backends that report them.
type Resource struct {
	Percent float64 `json:"percent"`
	Count   int     `json:"count,omitempty"`
	Total   uint64  `json:"total,omitempty"`
	Used    uint64  `json:"used,omitempty"`
}

// SystemStats is the body of GET /api/stats/system.
type SystemStats struct {
	CPU    Resource `json:"cpu"`
	Memory Resource `json:"memory"`
	Disk   Resource `json:"disk"`
}

// Account is a provisioned proxy identity with its traffic counters.
// Byte counters are int64; a TrafficLimit of 0 means unlimited.
type Account struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	AlterID      int    `json:"alter_id"`
	TrafficLimit int64  `json:"traffic_limit"`
	TrafficUsed  int64  `json:"traffic_used"`
	Uplink       int64  `json:"uplink"`
	Downlink     int64  `json:"downlink"`
	CreatedAt    string `json:"created_at,omitempty"`
}

// CreateAccountRequest is the body of POST /api/users.
type CreateAccountRequest struct {
	Name         string `json:"name"`
	AlterID      int    `json:"alter_id"`
	TrafficLimit int64  `json:"traffic_limit"`
}

// Ack is the generic acknowledgement body, e.g. {"message": "User deleted successfully"}.
type Ack struct {
	Message string `json:"message,omitempty"`
}

// QRCode is the body of GET /api/users/{id}/qrcode. The value is a base64 PNG.
type QRCode struct {
	QRCode string `json:"qrcode"`
}

// Health is the body of GET /health.
type Health struct {
	Status string `json:"status"`
}

// ContainerStats is the body of GET /api/stats/v2ray. The backend reports
// Error instead of failing the request when the container is missing.
type ContainerStats struct {
	Status string                 `json:"status,omitempty"`
	Error  string                 `json:"error,omitempty"`
	Stats  map[string]interface{} `json:"stats,omitempty"`
}

// MemoryUsage digs the docker memory counters out of Stats.
func (c ContainerStats) MemoryUsage() (used, limit uint64, ok bool) {
	mem, isMap := c.Stats["memory_stats"].(map[string]interface{})
	if !isMap {
		return 0, 0, false
	}
	u, uok := mem["usage"].(float64)
	l, lok := mem["limit"].(float64)
	if !uok || !lok {
		return 0, 0, false
	}
	return uint64(u), uint64(l), true
}

// ServerConfig is the raw V2Ray configuration document managed by the backend.
type ServerConfig map[string]interface{}

// serverConfigUpdate is the body of PUT /api/config.
type serverConfigUpdate struct {
	Config ServerConfig `json:"config"`
}
