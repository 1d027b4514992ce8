package publish

import (
	"encoding/json"
	"io"
	"sync"

	"github.com/pkg/errors"

	"go.viam.com/rrtstar/motionplan"
)

// Channels the messages are published on.
const (
	EnvironmentChannel = "ENVIRONMENT"
	GraphChannel       = "GRAPH"
	TrajectoryChannel  = "TRAJECTORY"
)

// Publisher sends a message on a named channel.
type Publisher interface {
	Publish(channel string, msg interface{}) error
}

type envelope struct {
	Channel string      `json:"channel"`
	Message interface{} `json:"message"`
}

// JSONPublisher writes each message as one line of JSON holding the channel and the message.
type JSONPublisher struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewJSONPublisher returns a publisher writing to w.
func NewJSONPublisher(w io.Writer) *JSONPublisher {
	return &JSONPublisher{enc: json.NewEncoder(w)}
}

// Publish writes msg on channel.
func (pub *JSONPublisher) Publish(channel string, msg interface{}) error {
	pub.mu.Lock()
	defer pub.mu.Unlock()
	return pub.enc.Encode(envelope{Channel: channel, Message: msg})
}

// PublishAll publishes the environment, then the tree, then the best trajectory.
func PublishAll(pub Publisher, world World, p *motionplan.Planner) error {
	env, err := NewEnvironment(world)
	if err != nil {
		return err
	}
	if err := pub.Publish(EnvironmentChannel, env); err != nil {
		return errors.Wrap(err, "cannot publish environment")
	}

	graph, err := NewGraph(p)
	if err != nil {
		return err
	}
	if err := pub.Publish(GraphChannel, graph); err != nil {
		return errors.Wrap(err, "cannot publish graph")
	}

	traj, err := NewTrajectory(p)
	if err != nil {
		return err
	}
	if err := pub.Publish(TrajectoryChannel, traj); err != nil {
		return errors.Wrap(err, "cannot publish trajectory")
	}
	return nil
}

// WriteJSON writes msg to w as indented JSON.
func WriteJSON(w io.Writer, msg interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(msg)
}
