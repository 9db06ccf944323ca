package remoteworker

import (
	"context"
	"time"

	remoteexecution "github.com/bazelbuild/remote-apis/build/bazel/remote/execution/v2"
	"github.com/buildbarn/bb-fleet/pkg/util"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
)

// Message embeds a Protobuf message into a JSON document, using the
// canonical JSON mapping of Protobuf.
type Message[T proto.Message] struct {
	Value T
}

// NewMessage wraps a Protobuf message, so that it can be embedded into
// a JSON document.
func NewMessage[T proto.Message](value T) Message[T] {
	return Message[T]{Value: value}
}

// MarshalJSON converts the message to JSON using protojson.
func (m Message[T]) MarshalJSON() ([]byte, error) {
	return protojson.Marshal(m.Value)
}

// UnmarshalJSON parses the message from JSON using protojson.
func (m *Message[T]) UnmarshalJSON(b []byte) error {
	var zero T
	value := zero.ProtoReflect().Type().New().Interface().(T)
	if err := protojson.Unmarshal(b, value); err != nil {
		return err
	}
	m.Value = value
	return nil
}

// WorkerState is the state in which a worker is, or the state in which
// the scheduler wants it to be.
type WorkerState string

const (
	// WorkerStateIdle indicates that the worker is not executing
	// anything and is able to accept a task.
	WorkerStateIdle WorkerState = "IDLE"
	// WorkerStateExecuting indicates that the worker is executing a
	// task. When returned by the scheduler, the worker should
	// continue executing it.
	WorkerStateExecuting WorkerState = "EXECUTING"
	// WorkerStateCompleted indicates that the worker finished
	// executing a task and is reporting its outcome. The scheduler
	// never requests this state.
	WorkerStateCompleted WorkerState = "COMPLETED"
)

// SynchronizeRequest is sent by a worker to the scheduler to report its
// current state. Every execution slot of a worker synchronizes
// independently, using its own worker ID. Synchronizing also renews the
// worker's lease.
type SynchronizeRequest struct {
	WorkerID string `json:"workerId"`
	// Only tasks whose instance name has this prefix are assigned
	// to the worker.
	InstanceNamePrefix string                             `json:"instanceNamePrefix"`
	Platform           Message[*remoteexecution.Platform] `json:"platform"`
	State              WorkerState                        `json:"state"`

	// Set when State is EXECUTING or COMPLETED.
	TaskID string `json:"taskId,omitempty"`
	// Set when State is COMPLETED. A status with code UNAVAILABLE
	// indicates an infrastructure failure, causing the task to be
	// retried. DEADLINE_EXCEEDED indicates that the action's
	// timeout was exceeded.
	ExecuteResponse *Message[*remoteexecution.ExecuteResponse] `json:"executeResponse,omitempty"`

	// Let the scheduler not assign a new task, even though the
	// worker is idle. Used when a worker shuts down.
	PreferBeingIdle bool `json:"preferBeingIdle,omitempty"`
}

// DesiredTask describes a task that the scheduler wants a worker to
// execute.
type DesiredTask struct {
	TaskID         string                               `json:"taskId"`
	InstanceName   string                               `json:"instanceName"`
	DigestFunction remoteexecution.DigestFunction_Value `json:"digestFunction"`
	ActionDigest   Message[*remoteexecution.Digest]     `json:"actionDigest"`
	Action         Message[*remoteexecution.Action]     `json:"action"`
	// Maximum amount of time the command may run.
	Timeout util.Duration `json:"timeout"`
}

// SynchronizeResponse is returned by the scheduler to a worker.
type SynchronizeResponse struct {
	// Point in time at which the worker should synchronize again,
	// if it is executing.
	NextSynchronizationAt time.Time   `json:"nextSynchronizationAt"`
	DesiredState          WorkerState `json:"desiredState"`
	// Set when DesiredState is EXECUTING.
	Task *DesiredTask `json:"task,omitempty"`
}

// Synchronizer is implemented by the scheduler to let workers report
// their state and obtain tasks to execute. It is exposed over HTTP
// through NewHTTPHandler(), and can be accessed remotely through
// NewHTTPSynchronizer().
type Synchronizer interface {
	Synchronize(ctx context.Context, request *SynchronizeRequest) (*SynchronizeResponse, error)
}
