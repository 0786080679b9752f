package mqtt

import (
	"context"
	"fmt"
	"sync"
	"time"

	coremetrics "github.com/zacharyweiss/demandscheduling/core/metrics"
	"github.com/zacharyweiss/demandscheduling/core/model"
	coremqtt "github.com/zacharyweiss/demandscheduling/core/mqtt"
)

// SchedulePublisher mirrors the core mqtt.SchedulePublisher interface.
type SchedulePublisher = coremqtt.SchedulePublisher

// MockPublisher is an in-memory publisher used in tests.
type MockPublisher struct {
	Messages   map[string][]float64 // cohort -> rates
	FailCohort map[string]bool
	AckResults map[string]bool
	Runs       []coremetrics.RunEvent // terminal run events, as sent on <prefix>/runs
	mu         sync.Mutex
}

// NewMockPublisher creates a new MockPublisher.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{
		Messages:   make(map[string][]float64),
		FailCohort: make(map[string]bool),
		AckResults: make(map[string]bool),
	}
}

// PublishSchedule records the rates per cohort or fails on configured cohorts.
func (m *MockPublisher) PublishSchedule(_ context.Context, s *model.Schedule) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []string
	for _, c := range s.Cohorts {
		if m.FailCohort[c.Name] {
			return ids, fmt.Errorf("publish %s failed", c.Name)
		}
		m.Messages[c.Name] = append([]float64(nil), c.Rate...)
		id := fmt.Sprintf("msg-%s-%s", s.RunID, c.Name)
		m.AckResults[id] = true
		ids = append(ids, id)
	}
	return ids, nil
}

// WaitForAck simulates an immediate acknowledgment based on the stored result.
func (m *MockPublisher) WaitForAck(messageID string, _ time.Duration) (bool, error) {
	m.mu.Lock()
	ok, exists := m.AckResults[messageID]
	m.mu.Unlock()
	if !exists {
		return false, coremqtt.ErrUnknownMessage
	}
	return ok, nil
}

// RecordRun keeps terminal run events like PahoClient publishes them.
func (m *MockPublisher) RecordRun(ev coremetrics.RunEvent) error {
	if !ev.Terminal() {
		return nil
	}
	m.mu.Lock()
	m.Runs = append(m.Runs, ev)
	m.mu.Unlock()
	return nil
}
