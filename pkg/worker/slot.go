package worker

import (
	"context"
	"log"
	"sync"
	"time"

	remoteexecution "github.com/bazelbuild/remote-apis/build/bazel/remote/execution/v2"
	"github.com/buildbarn/bb-fleet/pkg/clock"
	"github.com/buildbarn/bb-fleet/pkg/program"
	"github.com/buildbarn/bb-fleet/pkg/scheduler/remoteworker"
	"github.com/buildbarn/bb-fleet/pkg/util"
	"github.com/cenkalti/backoff/v4"
	"github.com/prometheus/client_golang/prometheus"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var (
	slotPrometheusMetrics sync.Once

	slotTasksCompletedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "buildbarn",
			Subsystem: "worker",
			Name:      "slot_tasks_completed_total",
			Help:      "Number of tasks executed by worker slots, partitioned by the gRPC status code of the execution.",
		},
		[]string{"grpc_code"})
	slotSynchronizationRetriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "buildbarn",
			Subsystem: "worker",
			Name:      "slot_synchronization_retries_total",
			Help:      "Number of times synchronizing with the scheduler was retried.",
		})
)

// isPermanentSynchronizationError returns whether an error returned by
// the scheduler indicates a misconfiguration of the worker, as opposed
// to the scheduler being temporarily unreachable.
func isPermanentSynchronizationError(err error) bool {
	switch status.Code(err) {
	case codes.InvalidArgument, codes.PermissionDenied, codes.Unauthenticated, codes.Unimplemented:
		return true
	default:
		return false
	}
}

// Slot is a single execution slot of a worker. It repeatedly
// synchronizes with the scheduler to obtain tasks, executes them one at
// a time, and reports their outcome.
type Slot struct {
	synchronizer       remoteworker.Synchronizer
	buildExecutor      BuildExecutor
	clock              clock.Clock
	workerID           string
	instanceNamePrefix string
	platform           *remoteexecution.Platform
	newBackOff         func() backoff.BackOff
}

// NewSlot creates a worker execution slot. The BackOff returned by
// newBackOff determines how long to wait before retrying failed
// synchronizations.
func NewSlot(synchronizer remoteworker.Synchronizer, buildExecutor BuildExecutor, clock clock.Clock, workerID, instanceNamePrefix string, platform *remoteexecution.Platform, newBackOff func() backoff.BackOff) *Slot {
	slotPrometheusMetrics.Do(func() {
		prometheus.MustRegister(slotTasksCompletedTotal)
		prometheus.MustRegister(slotSynchronizationRetriesTotal)
	})

	return &Slot{
		synchronizer:       synchronizer,
		buildExecutor:      buildExecutor,
		clock:              clock,
		workerID:           workerID,
		instanceNamePrefix: instanceNamePrefix,
		platform:           platform,
		newBackOff:         newBackOff,
	}
}

func (s *Slot) newRequest(state remoteworker.WorkerState) *remoteworker.SynchronizeRequest {
	return &remoteworker.SynchronizeRequest{
		WorkerID:           s.workerID,
		InstanceNamePrefix: s.instanceNamePrefix,
		Platform:           remoteworker.NewMessage(s.platform),
		State:              state,
	}
}

// synchronize sends a request to the scheduler, retrying it with
// exponential backoff while the scheduler is unavailable.
func (s *Slot) synchronize(ctx context.Context, request *remoteworker.SynchronizeRequest) (*remoteworker.SynchronizeResponse, error) {
	var response *remoteworker.SynchronizeResponse
	err := backoff.RetryNotify(
		func() error {
			var err error
			response, err = s.synchronizer.Synchronize(ctx, request)
			if err != nil && (isPermanentSynchronizationError(err) || ctx.Err() != nil) {
				return backoff.Permanent(err)
			}
			return err
		},
		backoff.WithContext(s.newBackOff(), ctx),
		func(err error, wait time.Duration) {
			slotSynchronizationRetriesTotal.Inc()
			log.Printf("Worker %#v failed to synchronize with the scheduler, retrying in %s: %s", s.workerID, wait, err)
		})
	if err != nil {
		if ctx.Err() != nil {
			return nil, util.StatusFromContext(ctx)
		}
		return nil, util.StatusWrap(err, "Failed to synchronize with scheduler")
	}
	return response, nil
}

type executionResult struct {
	taskID   string
	response *remoteexecution.ExecuteResponse
}

// execute runs a task in the background, while periodically reporting
// to the scheduler that the task is still being executed. It returns
// the request that needs to be sent to the scheduler once the task
// completes, or once the scheduler no longer wants it to be executed.
func (s *Slot) execute(ctx context.Context, task *remoteworker.DesiredTask, nextSynchronizationAt time.Time) (*remoteworker.SynchronizeRequest, error) {
	executionCtx, cancelExecution := context.WithCancel(ctx)
	defer cancelExecution()
	results := make(chan executionResult, 1)
	go func() {
		results <- executionResult{
			taskID:   task.TaskID,
			response: s.buildExecutor.Execute(executionCtx, task),
		}
	}()

	for {
		timer, timerChannel := s.clock.NewTimer(nextSynchronizationAt.Sub(s.clock.Now()))
		select {
		case result := <-results:
			timer.Stop()
			slotTasksCompletedTotal.WithLabelValues(status.FromProto(result.response.Status).Code().String()).Inc()
			request := s.newRequest(remoteworker.WorkerStateCompleted)
			request.TaskID = result.taskID
			message := remoteworker.NewMessage(result.response)
			request.ExecuteResponse = &message
			return request, nil
		case <-ctx.Done():
			timer.Stop()
			<-results
			return nil, util.StatusFromContext(ctx)
		case <-timerChannel:
		}

		request := s.newRequest(remoteworker.WorkerStateExecuting)
		request.TaskID = task.TaskID
		response, err := s.synchronize(ctx, request)
		if err != nil {
			cancelExecution()
			<-results
			return nil, err
		}
		if response.DesiredState != remoteworker.WorkerStateExecuting {
			// The task got cancelled, or the scheduler lost
			// track of it. Stop executing it and discard the
			// results.
			log.Printf("Worker %#v was instructed to stop executing task %#v", s.workerID, task.TaskID)
			cancelExecution()
			<-results
			return s.newRequest(remoteworker.WorkerStateIdle), nil
		}
		nextSynchronizationAt = response.NextSynchronizationAt
	}
}

// Run the execution slot until the context is cancelled. It can be
// launched as a program routine.
func (s *Slot) Run(ctx context.Context, siblingsGroup, dependenciesGroup program.Group) error {
	request := s.newRequest(remoteworker.WorkerStateIdle)
	for {
		response, err := s.synchronize(ctx, request)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if response.DesiredState != remoteworker.WorkerStateExecuting || response.Task == nil {
			request = s.newRequest(remoteworker.WorkerStateIdle)
			continue
		}

		request, err = s.execute(ctx, response.Task, response.NextSynchronizationAt)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
}
