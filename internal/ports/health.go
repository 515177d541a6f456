package ports

import "context"

type HealthStatus struct {
	Healthy    bool   `json:"healthy"`
	Status     string `json:"status"`
	State      string `json:"state"`
	Drivers    int    `json:"drivers"`
	StoreError string `json:"store_error,omitempty"`
}

type HealthProvider interface {
	GetHealth(ctx context.Context) HealthStatus
	IsReady(ctx context.Context) bool
}

// Pinger is implemented by stores that can report whether they are usable.
type Pinger interface {
	Ping(ctx context.Context) error
}
