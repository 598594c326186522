package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/kilianp07/cpm/core/events"
	coremon "github.com/kilianp07/cpm/core/monitoring"
	coremqtt "github.com/kilianp07/cpm/core/mqtt"
	"github.com/kilianp07/cpm/core/scheduling"
	"github.com/kilianp07/cpm/infra/logger"
	"github.com/kilianp07/cpm/internal/eventbus"
)

// Summary is the JSON payload published after every scheduling run.
type Summary struct {
	RunID         string     `json:"run_id"`
	ProjectID     string     `json:"project_id"`
	Status        string     `json:"status"`
	ProjectFinish *time.Time `json:"project_finish,omitempty"`
	Activities    int        `json:"activities,omitempty"`
	Critical      int        `json:"critical,omitempty"`
	CriticalPath  []string   `json:"critical_path,omitempty"`
	Converged     bool       `json:"converged"`
	Stage         string     `json:"stage,omitempty"`
	Error         string     `json:"error,omitempty"`
	DurationMS    float64    `json:"duration_ms"`
	Timestamp     time.Time  `json:"timestamp"`
}

// Notifier forwards scheduling events from the bus to MQTT.
type Notifier struct {
	pub    coremqtt.Publisher
	prefix string
	log    logger.Logger
}

// NewNotifier returns a notifier publishing under prefix.
func NewNotifier(pub coremqtt.Publisher, prefix string, log logger.Logger) *Notifier {
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Notifier{pub: pub, prefix: strings.TrimSuffix(prefix, "/"), log: log}
}

// Topic returns the notification topic of a project.
func (n *Notifier) Topic(projectID string) string {
	return fmt.Sprintf("%s/%s/schedule", n.prefix, projectID)
}

// Start subscribes to bus and publishes a Summary for each run outcome until
// ctx is canceled or the bus is closed.
func (n *Notifier) Start(ctx context.Context, bus eventbus.EventBus) <-chan struct{} {
	done := make(chan struct{})
	if bus == nil || n.pub == nil {
		close(done)
		return done
	}
	sub := bus.Subscribe()
	go func() {
		defer close(done)
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				s, ok := summarize(ev)
				if !ok {
					continue
				}
				if err := n.Notify(s); err != nil {
					n.log.Errorf("notify %s: %v", s.ProjectID, err)
				}
			}
		}
	}()
	return done
}

// Notify publishes s on the project topic.
func (n *Notifier) Notify(s Summary) error {
	payload, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return n.pub.Publish(n.Topic(s.ProjectID), payload)
}

func summarize(ev eventbus.Event) (Summary, bool) {
	switch e := ev.(type) {
	case events.ScheduleCompleted:
		s := Summary{
			RunID:        e.RunID,
			ProjectID:    e.ProjectID,
			Status:       "completed",
			Activities:   e.Activities,
			Critical:     e.Critical,
			CriticalPath: e.CriticalPath,
			Converged:    e.Converged,
			DurationMS:   float64(e.Duration.Microseconds()) / 1000,
			Timestamp:    e.Time,
		}
		if !e.ProjectFinish.IsZero() {
			f := e.ProjectFinish
			s.ProjectFinish = &f
		}
		return s, true
	case events.ScheduleFailed:
		s := Summary{
			RunID:      e.RunID,
			ProjectID:  e.ProjectID,
			Status:     "failed",
			Stage:      e.Stage,
			DurationMS: float64(e.Duration.Microseconds()) / 1000,
			Timestamp:  e.Time,
		}
		if e.Err != nil {
			s.Error = e.Err.Error()
		}
		return s, true
	}
	return Summary{}, false
}

// ProjectScheduler runs the scheduler for one project.
type ProjectScheduler interface {
	ScheduleProject(ctx context.Context, projectID string) (*scheduling.Outcome, error)
}

// Request is the payload accepted on the request topic.
type Request struct {
	ProjectID string `json:"project_id"`
}

// ListenRequests subscribes to topic and schedules the project named in each
// request. Runs are tagged with the "mqtt" trigger and inherit ctx.
func ListenRequests(ctx context.Context, sub coremqtt.Subscriber, topic string, s ProjectScheduler, log logger.Logger) error {
	if log == nil {
		log = logger.NopLogger{}
	}
	return sub.Subscribe(topic, func(t string, payload []byte) {
		var req Request
		if err := json.Unmarshal(payload, &req); err != nil || req.ProjectID == "" {
			log.Warnf("ignoring malformed request on %s", t)
			return
		}
		coremon.Go(func() {
			runCtx := scheduling.WithTrigger(ctx, "mqtt")
			if _, err := s.ScheduleProject(runCtx, req.ProjectID); err != nil {
				log.Errorf("mqtt request for %s: %v", req.ProjectID, err)
			}
		})
	})
}
