package rpcservice

import (
	"context"
	"time"

	"solana-token-sniper/internal/observability"
)

// HealthState classifies probe latency.
type HealthState string

const (
	Healthy   HealthState = "healthy"
	Degraded  HealthState = "degraded"
	Unhealthy HealthState = "unhealthy"
)

// HealthStatus is the result of one health probe.
type HealthStatus struct {
	Endpoint Endpoint      `json:"endpoint"`
	Status   HealthState   `json:"status"`
	Latency  time.Duration `json:"latency"`
	Slot     int64         `json:"slot"`
	Error    string        `json:"error,omitempty"`
	// Note carries the node's own getHealth complaint when the slot probe passed.
	Note string `json:"note,omitempty"`
}

// ClassifyLatency maps a round-trip time onto a health state.
func (s *Service) ClassifyLatency(d time.Duration) HealthState {
	switch {
	case d < s.cfg.HealthyLatency:
		return Healthy
	case d < s.cfg.DegradedLatency:
		return Degraded
	default:
		return Unhealthy
	}
}

// HealthCheck times a getSlot round trip against the active endpoint. A node
// that answers but reports itself behind via getHealth is at best degraded.
func (s *Service) HealthCheck(ctx context.Context) HealthStatus {
	client, kind := s.active()
	endpoint := Endpoint{Kind: kind, URL: redact(client.Endpoint())}

	probeCtx, cancel := context.WithTimeout(ctx, s.cfg.HealthTimeout)
	defer cancel()

	start := time.Now()
	slot, err := client.GetSlot(probeCtx)
	latency := time.Since(start)
	observability.RecordHealthLatency(string(kind), latency.Seconds())

	status := HealthStatus{
		Endpoint: endpoint,
		Latency:  latency,
		Slot:     slot,
	}
	if err != nil {
		status.Status = Unhealthy
		status.Error = err.Error()
		return status
	}
	status.Status = s.ClassifyLatency(latency)
	if err := client.GetHealth(probeCtx); err != nil {
		status.Note = err.Error()
		if status.Status == Healthy {
			status.Status = Degraded
		}
	}
	return status
}
