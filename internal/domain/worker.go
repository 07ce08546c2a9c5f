package domain

import "time"

// WorkerInfo represents an execution worker connected over TCP
type WorkerInfo struct {
	ID            string    `json:"id"`
	Language      string    `json:"language"`
	Capacity      int       `json:"capacity"`
	CurrentLoad   int       `json:"current_load"`
	LastHeartbeat time.Time `json:"last_heartbeat"`
	IpAddress     string    `json:"ip_address"`
	Version       string    `json:"version,omitempty"`
	IsActive      bool      `json:"is_active"`
}

// HasCapacity reports whether the worker can take another job.
func (w *WorkerInfo) HasCapacity() bool {
	return w.CurrentLoad < w.Capacity
}

// LoadRatio is CurrentLoad / Capacity; a worker without capacity is full.
func (w *WorkerInfo) LoadRatio() float64 {
	if w.Capacity <= 0 {
		return 1
	}
	return float64(w.CurrentLoad) / float64(w.Capacity)
}
