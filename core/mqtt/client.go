package mqtt

import (
	"context"
	"time"

	"github.com/zacharyweiss/demandscheduling/core/model"
)

// SchedulePublisher hands solved schedules to the controllers of each
// cohort.
type SchedulePublisher interface {
	// PublishSchedule sends one message per cohort and returns the message
	// identifiers in cohort order.
	PublishSchedule(ctx context.Context, s *model.Schedule) (messageIDs []string, err error)

	// WaitForAck waits until the controller acknowledges the message or the
	// timeout expires.
	WaitForAck(messageID string, timeout time.Duration) (bool, error)
}
