package storage

import (
	"context"
	"strings"
	"sync"
)

// SimulatorLog is the development stand-in for S3Log: it keeps records
// in memory and returns deterministic locations.
type SimulatorLog struct {
	mu      sync.Mutex
	bucket  string
	records []DeliveryRecord
}

func NewSimulatorLog(bucket string) *SimulatorLog {
	bucket = strings.TrimSpace(bucket)
	if bucket == "" {
		bucket = "reminder-bot"
	}
	return &SimulatorLog{bucket: bucket}
}

func (l *SimulatorLog) AppendDelivery(_ context.Context, rec DeliveryRecord) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, rec)
	return "sim://" + l.bucket + "/" + deliveryKey(rec), nil
}

// Records returns a copy of everything appended so far.
func (l *SimulatorLog) Records() []DeliveryRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]DeliveryRecord, len(l.records))
	copy(out, l.records)
	return out
}
