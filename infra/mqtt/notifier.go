package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/dronecoord/core/events"
	"github.com/kilianp07/dronecoord/core/model"
	"github.com/kilianp07/dronecoord/core/monitoring"
	"github.com/kilianp07/dronecoord/infra/logger"
)

// QoS keys understood by the notifier.
const (
	QoSAssignment = "assignment"
	QoSConflicts  = "conflicts"
)

// AssignmentMessage is published on <prefix>/missions/<id>/assignment.
type AssignmentMessage struct {
	MessageID string `json:"message_id"`
	MissionID string `json:"project_id"`
	PilotID   string `json:"pilot_id,omitempty"`
	DroneID   string `json:"drone_id,omitempty"`
	Action    string `json:"action"`
	Reason    string `json:"reason,omitempty"`
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// ConflictMessage is published on <prefix>/conflicts after every scan.
type ConflictMessage struct {
	MessageID string           `json:"message_id"`
	Total     int              `json:"total"`
	Counts    map[string]int   `json:"counts"`
	Conflicts []model.Conflict `json:"conflicts"`
	Timestamp int64            `json:"timestamp"`
}

// Notifier publishes assignment outcomes and conflict scans to MQTT.
type Notifier struct {
	cli        pahoClient
	prefix     string
	qos        map[string]byte
	log        logger.Logger
	maxRetries int
	backoff    time.Duration
}

// NewNotifier connects to the broker described by cfg.
func NewNotifier(cfg Config) (*Notifier, error) {
	cfg.SetDefaults()
	log := logger.New("mqtt_notifier")
	cli, err := connect(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", cfg.Broker, err)
	}
	return &Notifier{
		cli:        cli,
		prefix:     cfg.TopicPrefix,
		qos:        cfg.QoS,
		log:        log,
		maxRetries: cfg.MaxRetries,
		backoff:    time.Duration(cfg.BackoffMS) * time.Millisecond,
	}, nil
}

// AssignmentTopic returns the topic for mission id.
func (n *Notifier) AssignmentTopic(id string) string {
	return fmt.Sprintf("%s/missions/%s/assignment", n.prefix, id)
}

// ConflictTopic returns the conflict scan topic.
func (n *Notifier) ConflictTopic() string {
	return n.prefix + "/conflicts"
}

// PublishAssignment sends ev to the mission topic.
func (n *Notifier) PublishAssignment(ev events.AssignmentEvent) error {
	msg := AssignmentMessage{
		MessageID: uuid.NewString(),
		MissionID: ev.MissionID,
		PilotID:   ev.PilotID,
		DroneID:   ev.DroneID,
		Action:    ev.Action,
		Reason:    ev.Reason,
		Success:   ev.Success,
		Timestamp: ev.Time.UnixMilli(),
	}
	if ev.Err != nil {
		msg.Error = ev.Err.Error()
	}
	return n.publish(n.AssignmentTopic(ev.MissionID), QoSAssignment, msg)
}

// PublishConflicts sends a scan summary with every conflict.
func (n *Notifier) PublishConflicts(ev events.ConflictScanEvent) error {
	counts := map[string]int{}
	for _, c := range ev.Conflicts {
		counts[string(c.Kind)]++
	}
	conflicts := ev.Conflicts
	if conflicts == nil {
		conflicts = []model.Conflict{}
	}
	msg := ConflictMessage{
		MessageID: uuid.NewString(),
		Total:     len(ev.Conflicts),
		Counts:    counts,
		Conflicts: conflicts,
		Timestamp: ev.Time.UnixMilli(),
	}
	return n.publish(n.ConflictTopic(), QoSConflicts, msg)
}

func (n *Notifier) publish(topic, qosKey string, msg any) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	qos := byte(0)
	if q, ok := n.qos[qosKey]; ok {
		qos = q
	}
	if err := publishWithRetry(n.cli, n.log, topic, qos, payload, n.maxRetries, n.backoff); err != nil {
		return err
	}
	n.log.Debugf("published %d bytes to %s", len(payload), topic)
	return nil
}

// Run forwards events until ctx is cancelled or both channels are closed.
// Publish failures are logged and do not stop the loop.
func (n *Notifier) Run(ctx context.Context, assignments <-chan events.AssignmentEvent, scans <-chan events.ConflictScanEvent) {
	for assignments != nil || scans != nil {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-assignments:
			if !ok {
				assignments = nil
				continue
			}
			if err := n.PublishAssignment(ev); err != nil {
				n.log.Errorf("assignment notification for %s: %v", ev.MissionID, err)
				monitoring.CaptureException(err, map[string]string{"module": "mqtt_notifier", "mission_id": ev.MissionID})
			}
		case ev, ok := <-scans:
			if !ok {
				scans = nil
				continue
			}
			if err := n.PublishConflicts(ev); err != nil {
				n.log.Errorf("conflict notification: %v", err)
				monitoring.CaptureException(err, map[string]string{"module": "mqtt_notifier", "topic": n.ConflictTopic()})
			}
		}
	}
}

// Disconnect gracefully closes the MQTT connection.
func (n *Notifier) Disconnect() {
	if n.cli != nil && n.cli.IsConnected() {
		n.cli.Disconnect(250)
	}
}
