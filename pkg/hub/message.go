package hub

import (
	"encoding/json"

	"github.com/pipesight/pipesight/pkg/types"
)

// MessageType identifies a stream message
type MessageType string

const (
	// Server → client
	MessageInitialState  MessageType = "initial_state"
	MessagePipelineEvent MessageType = "pipeline_event"
	MessageMetricsUpdate MessageType = "metrics_update"
	MessagePing          MessageType = "ping"

	// Client → server
	MessagePong      MessageType = "pong"
	MessageSubscribe MessageType = "subscribe"
)

// Message is the envelope for every frame on the stream
type Message struct {
	Type MessageType `json:"type"`
	Data any         `json:"data,omitempty"`
}

// InitialState is the payload of the first message every client
// receives: the complete state cache snapshot plus the fold sequence
// number it reflects.
type InitialState struct {
	Seq       uint64                        `json:"seq"`
	Pipelines map[string]*types.PipelineRun `json:"pipelines"`
}

// inboundMessage is the client → server envelope before payload decoding
type inboundMessage struct {
	Type MessageType     `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Filter restricts which deltas a client receives. Zero-value fields
// match everything.
type Filter struct {
	PipelineID string `json:"pipeline_id,omitempty"`
	Stage      string `json:"stage,omitempty"`
}

// Matches reports whether a delta passes the filter
func (f Filter) Matches(d *types.Delta) bool {
	if f.PipelineID != "" && f.PipelineID != d.PipelineID {
		return false
	}
	if f.Stage != "" && (d.Stage == nil || f.Stage != d.Stage.Stage) {
		return false
	}
	return true
}

// deltaMessageType picks the frame type for a delta: run/stage status
// transitions are pipeline events, metric refreshes on an already
// processing stage are metrics updates.
func deltaMessageType(d *types.Delta) MessageType {
	if d.Stage != nil && d.Stage.Status == types.StatusProcessing && len(d.Stage.Metrics) > 0 {
		return MessageMetricsUpdate
	}
	return MessagePipelineEvent
}
