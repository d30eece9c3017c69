package storage

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestSimulatorLog_AppendAndRead(t *testing.T) {
	l := NewSimulatorLog("test-bucket")

	rec := DeliveryRecord{
		ReminderID:  7,
		OwnerID:     "u1",
		TargetID:    "u2",
		ChannelID:   "c1",
		Body:        "water the plants",
		DueAt:       time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC),
		DeliveredAt: time.Date(2025, 3, 15, 12, 0, 30, 0, time.UTC),
		MessageID:   "m1",
	}

	loc, err := l.AppendDelivery(context.Background(), rec)
	if err != nil {
		t.Fatalf("AppendDelivery: %v", err)
	}
	if !strings.HasPrefix(loc, "sim://test-bucket/deliveries/2025/03/15/") {
		t.Errorf("unexpected location: %q", loc)
	}
	if !strings.Contains(loc, "reminder-7-") {
		t.Errorf("key should embed the reminder id: %q", loc)
	}

	got := l.Records()
	if len(got) != 1 || got[0].ReminderID != 7 {
		t.Errorf("unexpected records: %+v", got)
	}
}

func TestSimulatorLog_DefaultBucket(t *testing.T) {
	l := NewSimulatorLog("  ")
	loc, _ := l.AppendDelivery(context.Background(), DeliveryRecord{ReminderID: 1, DeliveredAt: time.Now()})
	if !strings.HasPrefix(loc, "sim://reminder-bot/") {
		t.Errorf("empty bucket should default: %q", loc)
	}
}

func TestSimulatorLog_RecordsReturnsCopy(t *testing.T) {
	l := NewSimulatorLog("b")
	l.AppendDelivery(context.Background(), DeliveryRecord{ReminderID: 1, DeliveredAt: time.Now()})

	got := l.Records()
	got[0].ReminderID = 999

	if l.Records()[0].ReminderID != 1 {
		t.Error("Records() must not expose internal state")
	}
}

func TestSimulatorLog_ConcurrentAppend(t *testing.T) {
	l := NewSimulatorLog("b")
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			l.AppendDelivery(context.Background(), DeliveryRecord{ReminderID: int64(n), DeliveredAt: time.Now()})
		}(i)
	}
	wg.Wait()

	if len(l.Records()) != 20 {
		t.Errorf("got %d records, want 20", len(l.Records()))
	}
}
