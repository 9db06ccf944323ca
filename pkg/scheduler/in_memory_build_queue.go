package scheduler

import (
	"context"
	"log"
	"sync"
	"time"

	"cloud.google.com/go/longrunning/autogen/longrunningpb"
	remoteexecution "github.com/bazelbuild/remote-apis/build/bazel/remote/execution/v2"
	"github.com/buildbarn/bb-fleet/pkg/auth"
	"github.com/buildbarn/bb-fleet/pkg/blobstore"
	"github.com/buildbarn/bb-fleet/pkg/builder"
	"github.com/buildbarn/bb-fleet/pkg/capabilities"
	"github.com/buildbarn/bb-fleet/pkg/clock"
	"github.com/buildbarn/bb-fleet/pkg/digest"
	"github.com/buildbarn/bb-fleet/pkg/program"
	"github.com/buildbarn/bb-fleet/pkg/scheduler/remoteworker"
	"github.com/buildbarn/bb-fleet/pkg/util"
	"github.com/cenkalti/backoff/v4"
	"github.com/cespare/xxhash/v2"
	"github.com/prometheus/client_golang/prometheus"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/anypb"
)

var (
	inMemoryBuildQueuePrometheusMetrics sync.Once

	inMemoryBuildQueueExecutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "buildbarn",
			Subsystem: "scheduler",
			Name:      "in_memory_build_queue_executions_total",
			Help:      "Number of Execute() requests that passed validation, partitioned by how they were handled.",
		},
		[]string{"outcome"})
	inMemoryBuildQueueExecutionsCacheHit     = inMemoryBuildQueueExecutionsTotal.WithLabelValues("CacheHit")
	inMemoryBuildQueueExecutionsDeduplicated = inMemoryBuildQueueExecutionsTotal.WithLabelValues("Deduplicated")
	inMemoryBuildQueueExecutionsQueued       = inMemoryBuildQueueExecutionsTotal.WithLabelValues("Queued")
	inMemoryBuildQueueExecutionsRejected     = inMemoryBuildQueueExecutionsTotal.WithLabelValues("Rejected")

	inMemoryBuildQueueTasksCompletedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "buildbarn",
			Subsystem: "scheduler",
			Name:      "in_memory_build_queue_tasks_completed_total",
			Help:      "Number of tasks that reached a terminal state, partitioned by the gRPC status code of the execution.",
		},
		[]string{"grpc_code"})
	inMemoryBuildQueueTaskRetriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "buildbarn",
			Subsystem: "scheduler",
			Name:      "in_memory_build_queue_task_retries_total",
			Help:      "Number of times a task was requeued after an infrastructure failure.",
		})
	inMemoryBuildQueueQueuedTasks = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "buildbarn",
			Subsystem: "scheduler",
			Name:      "in_memory_build_queue_queued_tasks",
			Help:      "Number of tasks waiting to be assigned to a worker.",
		})
	inMemoryBuildQueueWorkers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "buildbarn",
			Subsystem: "scheduler",
			Name:      "in_memory_build_queue_workers",
			Help:      "Number of workers that are registered with the scheduler.",
		})
)

const dedupShardCount = 64

type taskStage int

const (
	// Task is placed in the queue, or is waiting for its retry
	// backoff to elapse.
	taskStageQueued taskStage = iota
	// Task is handed to a worker, but the worker has not yet
	// reported that it started executing it.
	taskStageDispatched
	taskStageExecuting
	taskStageCompleted
)

// task is a single execution of an action. Multiple operations may
// share the same task if they were submitted while the task was in
// flight.
type task struct {
	key            string
	taskID         string
	actionDigest   digest.Digest
	action         *remoteexecution.Action
	platform       *remoteexecution.Platform
	timeout        time.Duration
	priority       int32
	sequence       uint64
	instanceName   digest.InstanceName
	digestFunction remoteexecution.DigestFunction_Value

	// Fields below are protected by InMemoryBuildQueue.lock.
	stage       taskStage
	stageChange chan struct{}
	queueIndex  int
	worker      *worker
	attempts    int
	backoff     *backoff.ExponentialBackOff
	retryCancel chan struct{}
	waiters     int
	// The worker's result is being validated and stored. The task
	// can no longer be cancelled.
	finalizing  bool
	response    *remoteexecution.ExecuteResponse
	completedAt time.Time
}

// operation is a client's handle on a task.
type operation struct {
	name        string
	task        *task
	cancel      chan struct{}
	cancelledAt time.Time
}

func (o *operation) isCancelled() bool {
	return !o.cancelledAt.IsZero()
}

func (o *operation) getCompletionTime() (time.Time, bool) {
	if o.isCancelled() {
		return o.cancelledAt, true
	}
	if o.task.stage == taskStageCompleted {
		return o.task.completedAt, true
	}
	return time.Time{}, false
}

// worker is a single execution slot of a worker process.
type worker struct {
	id                  string
	platform            *remoteexecution.Platform
	instanceNameMatcher auth.InstanceNameMatcher
	lastSeen            time.Time
	// Number of Synchronize() calls currently in progress. Workers
	// that are synchronizing are never considered expired.
	synchronizing int
	// Closed to wake up a worker waiting for a task.
	wakeup chan struct{}
	task   *task
}

func (w *worker) canExecute(t *task) bool {
	return w.instanceNameMatcher(t.instanceName) && PlatformMatches(w.platform, t.platform)
}

type dedupShard struct {
	lock  sync.Mutex
	tasks map[string]*task
}

// InMemoryBuildQueue implements a scheduler whose state is kept
// entirely in memory. Clients submit actions through Execute(). Workers
// obtain tasks and report their outcome through Synchronize().
//
// Executions of the same action that are in flight at the same time
// are deduplicated through a sharded table, so that the hot path of
// clients attaching to existing tasks does not need to verify inputs
// again. Each shard's lock must be acquired before InMemoryBuildQueue's
// main lock.
type InMemoryBuildQueue struct {
	longrunningpb.UnimplementedOperationsServer

	contentAddressableStorage blobstore.BlobAccess
	actionCache               blobstore.BlobAccess
	clock                     clock.Clock
	uuidGenerator             util.UUIDGenerator
	settings                  inMemoryBuildQueueSettings
	maximumMessageSizeBytes   int
	errorLogger               util.ErrorLogger
	capabilitiesProvider      capabilities.Provider

	dedupShards [dedupShardCount]dedupShard

	lock         sync.Mutex
	queue        taskQueue
	nextSequence uint64
	workers      map[string]*worker
	operations   map[string]*operation
	// Tasks that completed while the lock was held, which still need
	// to be removed from the deduplication table.
	completedTasks []*task
}

var (
	_ builder.BuildQueue        = (*InMemoryBuildQueue)(nil)
	_ remoteworker.Synchronizer = (*InMemoryBuildQueue)(nil)
)

// NewInMemoryBuildQueue creates a scheduler that loads actions from
// the Content Addressable Storage, stores their results in the Action
// Cache, and hands them to workers.
func NewInMemoryBuildQueue(contentAddressableStorage, actionCache blobstore.BlobAccess, clock clock.Clock, uuidGenerator util.UUIDGenerator, configuration *InMemoryBuildQueueConfiguration, maximumMessageSizeBytes int, errorLogger util.ErrorLogger) *InMemoryBuildQueue {
	inMemoryBuildQueuePrometheusMetrics.Do(func() {
		prometheus.MustRegister(inMemoryBuildQueueExecutionsTotal)
		prometheus.MustRegister(inMemoryBuildQueueTasksCompletedTotal)
		prometheus.MustRegister(inMemoryBuildQueueTaskRetriesTotal)
		prometheus.MustRegister(inMemoryBuildQueueQueuedTasks)
		prometheus.MustRegister(inMemoryBuildQueueWorkers)
	})

	bq := &InMemoryBuildQueue{
		contentAddressableStorage: contentAddressableStorage,
		actionCache:               actionCache,
		clock:                     clock,
		uuidGenerator:             uuidGenerator,
		settings:                  newInMemoryBuildQueueSettings(configuration),
		maximumMessageSizeBytes:   maximumMessageSizeBytes,
		errorLogger:               errorLogger,
		capabilitiesProvider:      capabilities.NewExecutionCapabilitiesProvider(remoteexecution.DigestFunction_SHA256),

		workers:    map[string]*worker{},
		operations: map[string]*operation{},
	}
	for i := range bq.dedupShards {
		bq.dedupShards[i].tasks = map[string]*task{}
	}
	return bq
}

func (bq *InMemoryBuildQueue) getDedupShard(key string) *dedupShard {
	return &bq.dedupShards[xxhash.Sum64String(key)%dedupShardCount]
}

// unlock releases the main lock, and removes tasks that completed in
// the meantime from the deduplication table. It may not be called
// while holding a shard lock.
func (bq *InMemoryBuildQueue) unlock() {
	completedTasks := bq.completedTasks
	bq.completedTasks = nil
	inMemoryBuildQueueQueuedTasks.Set(float64(bq.queue.Len()))
	bq.lock.Unlock()

	for _, t := range completedTasks {
		shard := bq.getDedupShard(t.key)
		shard.lock.Lock()
		if shard.tasks[t.key] == t {
			delete(shard.tasks, t.key)
		}
		shard.lock.Unlock()
	}
}

// GetCapabilities returns the execution capabilities of the scheduler.
func (bq *InMemoryBuildQueue) GetCapabilities(ctx context.Context, instanceName digest.InstanceName) (*remoteexecution.ServerCapabilities, error) {
	return bq.capabilitiesProvider.GetCapabilities(ctx, instanceName)
}

func (bq *InMemoryBuildQueue) getAction(ctx context.Context, actionDigest digest.Digest) (*remoteexecution.Action, error) {
	action, err := bq.contentAddressableStorage.Get(ctx, actionDigest).ToProto(&remoteexecution.Action{}, bq.maximumMessageSizeBytes)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, blobstore.NewMissingBlobsError([]digest.Digest{actionDigest}, "action")
		}
		return nil, util.StatusWrap(err, "Failed to obtain action")
	}
	return action.(*remoteexecution.Action), nil
}

func (bq *InMemoryBuildQueue) getCommand(ctx context.Context, commandDigest digest.Digest) (*remoteexecution.Command, error) {
	command, err := bq.contentAddressableStorage.Get(ctx, commandDigest).ToProto(&remoteexecution.Command{}, bq.maximumMessageSizeBytes)
	if err != nil {
		return nil, util.StatusWrap(err, "Failed to obtain command")
	}
	return command.(*remoteexecution.Command), nil
}

func (bq *InMemoryBuildQueue) newOperationName(instanceName digest.InstanceName) (string, error) {
	id, err := bq.uuidGenerator()
	if err != nil {
		return "", util.StatusWrapWithCode(err, codes.Internal, "Failed to generate operation name")
	}
	return builder.NewOperationName(instanceName, id.String()), nil
}

// Execute an action. The action is loaded from the Content Addressable
// Storage, after which the Action Cache is consulted. On a cache miss,
// the action is either attached to an identical task that is already
// in flight, or queued for execution by a worker.
func (bq *InMemoryBuildQueue) Execute(in *remoteexecution.ExecuteRequest, out remoteexecution.Execution_ExecuteServer) error {
	ctx := out.Context()
	instanceName, err := digest.NewInstanceName(in.InstanceName)
	if err != nil {
		return util.StatusWrapf(err, "Invalid instance name %#v", in.InstanceName)
	}
	digestFunction, err := instanceName.GetDigestFunction(in.DigestFunction, len(in.ActionDigest.GetHash()))
	if err != nil {
		return err
	}
	actionDigest, err := digestFunction.NewDigestFromProto(in.ActionDigest)
	if err != nil {
		return util.StatusWrap(err, "Failed to extract digest for action")
	}
	action, err := bq.getAction(ctx, actionDigest)
	if err != nil {
		return err
	}
	operationName, err := bq.newOperationName(instanceName)
	if err != nil {
		return err
	}

	if !in.SkipCacheLookup && !action.DoNotCache {
		cacheCheck, err := newOperationMessage(operationName, actionDigest, remoteexecution.ExecutionStage_CACHE_CHECK, nil)
		if err != nil {
			return err
		}
		if err := out.Send(cacheCheck); err != nil {
			return err
		}
		actionResult, err := bq.actionCache.Get(ctx, actionDigest).ToProto(&remoteexecution.ActionResult{}, bq.maximumMessageSizeBytes)
		if err == nil {
			inMemoryBuildQueueExecutionsCacheHit.Inc()
			t := &task{
				actionDigest: actionDigest,
				action:       action,
				stage:        taskStageCompleted,
				stageChange:  make(chan struct{}),
				queueIndex:   -1,
				response: &remoteexecution.ExecuteResponse{
					Result:       actionResult.(*remoteexecution.ActionResult),
					CachedResult: true,
				},
				completedAt: bq.clock.Now(),
			}
			bq.lock.Lock()
			o := bq.newOperationLocked(operationName, t)
			bq.unlock()
			return bq.streamOperation(ctx, o, out.Send)
		} else if status.Code(err) != codes.NotFound {
			return util.StatusWrap(err, "Failed to obtain action result")
		}
	}

	priority := in.ExecutionPolicy.GetPriority()
	key := actionDigest.GetKey(digest.KeyWithInstance)
	if o := bq.attachToInFlightTask(key, operationName, priority); o != nil {
		return bq.streamOperation(ctx, o, out.Send)
	}

	commandDigest, err := digestFunction.NewDigestFromProto(action.CommandDigest)
	if err != nil {
		return util.StatusWrap(err, "Failed to extract digest for command")
	}
	inputRootDigest, err := digestFunction.NewDigestFromProto(action.InputRootDigest)
	if err != nil {
		return util.StatusWrap(err, "Failed to extract digest for input root")
	}
	missing, err := findMissingInputs(ctx, bq.contentAddressableStorage, commandDigest, inputRootDigest, bq.maximumMessageSizeBytes)
	if err != nil {
		return err
	}
	if len(missing) > 0 {
		return blobstore.NewMissingBlobsError(missing, "action")
	}

	platform := action.Platform
	if platform == nil {
		command, err := bq.getCommand(ctx, commandDigest)
		if err != nil {
			return err
		}
		platform = command.Platform
	}

	timeout := bq.settings.defaultExecutionTimeout
	if action.Timeout != nil {
		if err := action.Timeout.CheckValid(); err != nil {
			return util.StatusWrapWithCode(err, codes.InvalidArgument, "Invalid execution timeout")
		}
		if d := action.Timeout.AsDuration(); d > 0 {
			timeout = d
		}
	}
	if timeout > bq.settings.maximumExecutionTimeout {
		return status.Errorf(codes.InvalidArgument, "Execution timeout of %s exceeds maximum permitted value of %s", timeout, bq.settings.maximumExecutionTimeout)
	}

	taskID, err := bq.uuidGenerator()
	if err != nil {
		return util.StatusWrapWithCode(err, codes.Internal, "Failed to generate task ID")
	}
	o, err := bq.enqueue(operationName, &task{
		key:            key,
		taskID:         taskID.String(),
		actionDigest:   actionDigest,
		action:         action,
		platform:       platform,
		timeout:        timeout,
		priority:       priority,
		instanceName:   instanceName,
		digestFunction: digestFunction.GetEnumValue(),

		stage:       taskStageQueued,
		stageChange: make(chan struct{}),
		queueIndex:  -1,
	})
	if err != nil {
		return err
	}
	return bq.streamOperation(ctx, o, out.Send)
}

// attachToInFlightTask creates a new operation for a task that is
// already in flight for the same action, if any.
func (bq *InMemoryBuildQueue) attachToInFlightTask(key, operationName string, priority int32) *operation {
	shard := bq.getDedupShard(key)
	shard.lock.Lock()
	defer shard.lock.Unlock()

	t, ok := shard.tasks[key]
	if !ok {
		return nil
	}
	bq.lock.Lock()
	defer bq.lock.Unlock()
	return bq.attachLocked(t, operationName, priority)
}

func (bq *InMemoryBuildQueue) attachLocked(t *task, operationName string, priority int32) *operation {
	if t.stage == taskStageCompleted {
		return nil
	}
	inMemoryBuildQueueExecutionsDeduplicated.Inc()
	if priority < t.priority && t.queueIndex >= 0 {
		t.priority = priority
		bq.queue.fix(t)
	}
	return bq.newOperationLocked(operationName, t)
}

// enqueue a newly created task, unless an identical task was queued
// while the inputs of this one were being verified.
func (bq *InMemoryBuildQueue) enqueue(operationName string, t *task) (*operation, error) {
	shard := bq.getDedupShard(t.key)
	shard.lock.Lock()
	defer shard.lock.Unlock()
	bq.lock.Lock()
	defer bq.lock.Unlock()

	if existing, ok := shard.tasks[t.key]; ok {
		if o := bq.attachLocked(existing, operationName, t.priority); o != nil {
			return o, nil
		}
	}
	if bq.queue.Len() >= bq.settings.maximumQueuedTasks {
		inMemoryBuildQueueExecutionsRejected.Inc()
		return nil, status.Errorf(codes.ResourceExhausted, "Queue has reached its maximum capacity of %d tasks", bq.settings.maximumQueuedTasks)
	}
	inMemoryBuildQueueExecutionsQueued.Inc()
	t.sequence = bq.nextSequence
	bq.nextSequence++
	shard.tasks[t.key] = t
	bq.pushLocked(t)
	return bq.newOperationLocked(operationName, t), nil
}

func (bq *InMemoryBuildQueue) newOperationLocked(operationName string, t *task) *operation {
	o := &operation{
		name:   operationName,
		task:   t,
		cancel: make(chan struct{}),
	}
	t.waiters++
	bq.operations[operationName] = o
	return o
}

// pushLocked places a task in the queue and wakes up all workers that
// are able to execute it. A woken worker may have given up waiting
// before it reacquires the lock, so waking just one of them could
// leave the task queued.
func (bq *InMemoryBuildQueue) pushLocked(t *task) {
	bq.queue.push(t)
	for _, w := range bq.workers {
		if w.wakeup != nil && w.canExecute(t) {
			close(w.wakeup)
			w.wakeup = nil
		}
	}
}

func (bq *InMemoryBuildQueue) notifyStageChangeLocked(t *task) {
	close(t.stageChange)
	t.stageChange = make(chan struct{})
}

func newOperationMessage(name string, actionDigest digest.Digest, stage remoteexecution.ExecutionStage_Value, response *remoteexecution.ExecuteResponse) (*longrunningpb.Operation, error) {
	metadata, err := anypb.New(&remoteexecution.ExecuteOperationMetadata{
		Stage:          stage,
		ActionDigest:   actionDigest.GetProto(),
		DigestFunction: actionDigest.GetDigestFunction().GetEnumValue(),
	})
	if err != nil {
		return nil, util.StatusWrapWithCode(err, codes.Internal, "Failed to marshal execute operation metadata")
	}
	operation := &longrunningpb.Operation{
		Name:     name,
		Metadata: metadata,
	}
	if response != nil {
		result, err := anypb.New(response)
		if err != nil {
			return nil, util.StatusWrapWithCode(err, codes.Internal, "Failed to marshal execute response")
		}
		operation.Done = true
		operation.Result = &longrunningpb.Operation_Response{Response: result}
	}
	return operation, nil
}

var cancelledExecuteResponse = &remoteexecution.ExecuteResponse{
	Status: status.New(codes.Canceled, "Operation was cancelled").Proto(),
}

func (bq *InMemoryBuildQueue) getOperationMessageLocked(o *operation) (*longrunningpb.Operation, error) {
	t := o.task
	if o.isCancelled() {
		return newOperationMessage(o.name, t.actionDigest, remoteexecution.ExecutionStage_COMPLETED, cancelledExecuteResponse)
	}
	switch t.stage {
	case taskStageQueued, taskStageDispatched:
		return newOperationMessage(o.name, t.actionDigest, remoteexecution.ExecutionStage_QUEUED, nil)
	case taskStageExecuting:
		return newOperationMessage(o.name, t.actionDigest, remoteexecution.ExecutionStage_EXECUTING, nil)
	default:
		return newOperationMessage(o.name, t.actionDigest, remoteexecution.ExecutionStage_COMPLETED, t.response)
	}
}

// streamOperation sends the state of an operation, followed by an
// update every time its stage changes. It returns once the operation
// is done, or when the client disconnects. The latter does not affect
// the execution of the operation.
func (bq *InMemoryBuildQueue) streamOperation(ctx context.Context, o *operation, send func(*longrunningpb.Operation) error) error {
	for {
		bq.lock.Lock()
		operation, err := bq.getOperationMessageLocked(o)
		stageChange := o.task.stageChange
		bq.lock.Unlock()
		if err != nil {
			return err
		}
		if err := send(operation); err != nil {
			return err
		}
		if operation.Done {
			return nil
		}

		select {
		case <-ctx.Done():
			return util.StatusFromContext(ctx)
		case <-stageChange:
		case <-o.cancel:
		}
	}
}

// WaitExecution streams the state of an operation that was created
// previously through Execute().
func (bq *InMemoryBuildQueue) WaitExecution(in *remoteexecution.WaitExecutionRequest, out remoteexecution.Execution_WaitExecutionServer) error {
	o, err := bq.getOperation(in.Name)
	if err != nil {
		return err
	}
	return bq.streamOperation(out.Context(), o, out.Send)
}

func (bq *InMemoryBuildQueue) getOperation(name string) (*operation, error) {
	bq.lock.Lock()
	defer bq.lock.Unlock()
	o, ok := bq.operations[name]
	if !ok {
		return nil, status.Errorf(codes.NotFound, "Operation %#v not found", name)
	}
	return o, nil
}

// cancelOperation detaches a client from the task underlying an
// operation. The task itself is only cancelled if no other clients
// are waiting for it. Queued tasks are removed from the queue, while
// workers executing a task are requested to stop the next time they
// synchronize.
func (bq *InMemoryBuildQueue) cancelOperation(name string) error {
	bq.lock.Lock()
	defer bq.unlock()

	o, ok := bq.operations[name]
	if !ok {
		return status.Errorf(codes.NotFound, "Operation %#v not found", name)
	}
	if _, done := o.getCompletionTime(); done {
		return nil
	}
	o.cancelledAt = bq.clock.Now()
	close(o.cancel)

	t := o.task
	t.waiters--
	if t.waiters == 0 && !t.finalizing {
		bq.completeTaskLocked(t, cancelledExecuteResponse)
	}
	return nil
}

// completeTaskLocked moves a task into its terminal state. Workers
// still executing the task learn about this the next time they
// synchronize, causing them to abandon it.
func (bq *InMemoryBuildQueue) completeTaskLocked(t *task, response *remoteexecution.ExecuteResponse) {
	bq.queue.remove(t)
	if t.retryCancel != nil {
		close(t.retryCancel)
		t.retryCancel = nil
	}
	t.stage = taskStageCompleted
	t.response = response
	t.completedAt = bq.clock.Now()
	t.finalizing = false
	bq.notifyStageChangeLocked(t)
	bq.completedTasks = append(bq.completedTasks, t)
	inMemoryBuildQueueTasksCompletedTotal.WithLabelValues(status.FromProto(response.Status).Code().String()).Inc()
}

func (bq *InMemoryBuildQueue) newBackOff() *backoff.ExponentialBackOff {
	b := &backoff.ExponentialBackOff{
		InitialInterval:     bq.settings.retryInitialInterval,
		RandomizationFactor: bq.settings.retryRandomizationFactor,
		Multiplier:          bq.settings.retryMultiplier,
		MaxInterval:         bq.settings.retryMaximumInterval,
		Stop:                backoff.Stop,
		Clock:               bq.clock,
	}
	b.Reset()
	return b
}

// requeueOrFailLocked is called when an attempt to execute a task
// failed due to an infrastructure error. The task is placed back in
// the queue after a backoff delay, unless it already exhausted its
// attempts.
func (bq *InMemoryBuildQueue) requeueOrFailLocked(t *task, err error) {
	t.worker = nil
	if t.attempts >= bq.settings.maximumAttempts {
		bq.completeTaskLocked(t, &remoteexecution.ExecuteResponse{
			Status: status.Convert(util.StatusWrapf(err, "Task failed after %d attempts", t.attempts)).Proto(),
		})
		return
	}

	inMemoryBuildQueueTaskRetriesTotal.Inc()
	// Dispatched tasks are already reported as being queued.
	if t.stage == taskStageExecuting {
		bq.notifyStageChangeLocked(t)
	}
	t.stage = taskStageQueued
	if t.backoff == nil {
		t.backoff = bq.newBackOff()
	}
	retryCancel := make(chan struct{})
	t.retryCancel = retryCancel
	timer, timerChannel := bq.clock.NewTimer(t.backoff.NextBackOff())
	go func() {
		select {
		case <-timerChannel:
			bq.lock.Lock()
			if t.retryCancel == retryCancel {
				t.retryCancel = nil
				bq.pushLocked(t)
			}
			bq.unlock()
		case <-retryCancel:
			timer.Stop()
		}
	}()
}

// releaseWorkerTaskLocked takes away the task that is assigned to a
// worker. If the task is not completed yet, it is requeued.
func (bq *InMemoryBuildQueue) releaseWorkerTaskLocked(w *worker, err error) {
	t := w.task
	if t == nil {
		return
	}
	w.task = nil
	if t.stage != taskStageCompleted && t.worker == w {
		bq.requeueOrFailLocked(t, err)
	}
}

// Synchronize is called by workers to report their state, and to
// obtain a task to execute. Idle workers block until a task is
// available, or until the idle synchronization timeout is reached.
func (bq *InMemoryBuildQueue) Synchronize(ctx context.Context, request *remoteworker.SynchronizeRequest) (*remoteworker.SynchronizeResponse, error) {
	if request.WorkerID == "" {
		return nil, status.Error(codes.InvalidArgument, "No worker ID provided")
	}
	instanceNamePrefix, err := digest.NewInstanceName(request.InstanceNamePrefix)
	if err != nil {
		return nil, util.StatusWrapf(err, "Invalid instance name prefix %#v", request.InstanceNamePrefix)
	}

	bq.lock.Lock()
	defer bq.unlock()

	w, ok := bq.workers[request.WorkerID]
	if !ok {
		w = &worker{id: request.WorkerID}
		bq.workers[request.WorkerID] = w
		inMemoryBuildQueueWorkers.Set(float64(len(bq.workers)))
	}
	w.platform = request.Platform.Value
	w.instanceNameMatcher = auth.NewInstanceNamePrefixMatcher([]digest.InstanceName{instanceNamePrefix})

	w.synchronizing++
	response, err := bq.synchronizeLocked(ctx, w, request)
	w.synchronizing--
	w.lastSeen = bq.clock.Now()
	return response, err
}

// synchronizeLocked processes the state reported by a worker. It may
// temporarily release the lock.
func (bq *InMemoryBuildQueue) synchronizeLocked(ctx context.Context, w *worker, request *remoteworker.SynchronizeRequest) (*remoteworker.SynchronizeResponse, error) {
	switch request.State {
	case remoteworker.WorkerStateExecuting:
		if t := w.task; t != nil && t.taskID == request.TaskID {
			if t.stage != taskStageCompleted {
				if t.stage == taskStageDispatched {
					t.stage = taskStageExecuting
					bq.notifyStageChangeLocked(t)
				}
				return &remoteworker.SynchronizeResponse{
					NextSynchronizationAt: bq.clock.Now().Add(bq.settings.executingSynchronizationInterval),
					DesiredState:          remoteworker.WorkerStateExecuting,
				}, nil
			}
			// Task got cancelled.
			w.task = nil
		}
		bq.releaseWorkerTaskLocked(w, status.Errorf(codes.Unavailable, "Worker %#v started executing a different task", w.id))
		return bq.newIdleResponse(), nil
	case remoteworker.WorkerStateCompleted:
		if t := w.task; t != nil && t.taskID == request.TaskID {
			w.task = nil
			if t.stage != taskStageCompleted {
				if request.ExecuteResponse == nil || request.ExecuteResponse.Value == nil {
					bq.requeueOrFailLocked(t, status.Errorf(codes.Internal, "Worker %#v did not provide an execute response", w.id))
				} else {
					bq.finalizeLocked(ctx, t, request.ExecuteResponse.Value)
				}
			}
		} else {
			bq.releaseWorkerTaskLocked(w, status.Errorf(codes.Unavailable, "Worker %#v completed a different task", w.id))
		}
	case remoteworker.WorkerStateIdle:
		bq.releaseWorkerTaskLocked(w, status.Errorf(codes.Unavailable, "Worker %#v is no longer executing the task", w.id))
	default:
		return nil, status.Errorf(codes.InvalidArgument, "Invalid worker state %#v", request.State)
	}

	if request.PreferBeingIdle {
		return bq.newIdleResponse(), nil
	}
	return bq.assignTaskLocked(ctx, w)
}

func (bq *InMemoryBuildQueue) newIdleResponse() *remoteworker.SynchronizeResponse {
	return &remoteworker.SynchronizeResponse{
		NextSynchronizationAt: bq.clock.Now(),
		DesiredState:          remoteworker.WorkerStateIdle,
	}
}

// finalizeLocked processes the result of an execution reported by a
// worker, retrying the task if the worker experienced an
// infrastructure failure. The lock is released while results are
// validated and stored.
func (bq *InMemoryBuildQueue) finalizeLocked(ctx context.Context, t *task, executeResponse *remoteexecution.ExecuteResponse) {
	t.worker = nil
	t.finalizing = true
	bq.unlock()
	response, err := bq.finalizeExecution(context.WithoutCancel(ctx), t, executeResponse)
	bq.lock.Lock()
	t.finalizing = false

	if err != nil {
		bq.requeueOrFailLocked(t, err)
	} else {
		bq.completeTaskLocked(t, response)
	}
}

// assignTaskLocked hands the most urgent queued task that a worker is
// able to execute to the worker. If no such task exists, it waits for
// one to be queued.
func (bq *InMemoryBuildQueue) assignTaskLocked(ctx context.Context, w *worker) (*remoteworker.SynchronizeResponse, error) {
	var timerChannel <-chan time.Time
	timedOut := false
	for {
		if t := bq.queue.popFirstMatching(w.canExecute); t != nil {
			t.stage = taskStageDispatched
			t.worker = w
			t.attempts++
			w.task = t
			return &remoteworker.SynchronizeResponse{
				NextSynchronizationAt: bq.clock.Now().Add(bq.settings.executingSynchronizationInterval),
				DesiredState:          remoteworker.WorkerStateExecuting,
				Task: &remoteworker.DesiredTask{
					TaskID:         t.taskID,
					InstanceName:   t.instanceName.String(),
					DigestFunction: t.digestFunction,
					ActionDigest:   remoteworker.NewMessage(t.actionDigest.GetProto()),
					Action:         remoteworker.NewMessage(t.action),
					Timeout:        util.Duration{Duration: t.timeout},
				},
			}, nil
		}
		if timedOut {
			return bq.newIdleResponse(), nil
		}

		if timerChannel == nil {
			var timer clock.Timer
			timer, timerChannel = bq.clock.NewTimer(bq.settings.idleSynchronizationTimeout)
			defer timer.Stop()
		}
		wakeup := make(chan struct{})
		w.wakeup = wakeup
		bq.unlock()
		select {
		case <-ctx.Done():
		case <-wakeup:
		case <-timerChannel:
			timedOut = true
		}
		bq.lock.Lock()
		if w.wakeup == wakeup {
			w.wakeup = nil
		}
		if ctx.Err() != nil {
			return nil, util.StatusFromContext(ctx)
		}
	}
}

// SweepExpiredWorkersAndOperations removes workers that have not
// synchronized within the configured worker timeout, requeueing the
// tasks they were executing. It also removes operations that completed
// longer ago than the configured retention period.
func (bq *InMemoryBuildQueue) SweepExpiredWorkersAndOperations() {
	bq.lock.Lock()
	defer bq.unlock()

	now := bq.clock.Now()
	for workerID, w := range bq.workers {
		if w.synchronizing == 0 && now.Sub(w.lastSeen) > bq.settings.workerTimeout {
			log.Printf("Removing worker %#v, as it has not synchronized since %s", workerID, w.lastSeen.Format(time.RFC3339))
			delete(bq.workers, workerID)
			bq.releaseWorkerTaskLocked(w, status.Errorf(codes.Unavailable, "Worker %#v did not synchronize within %s", workerID, bq.settings.workerTimeout))
		}
	}
	inMemoryBuildQueueWorkers.Set(float64(len(bq.workers)))

	for name, o := range bq.operations {
		if completedAt, done := o.getCompletionTime(); done && now.Sub(completedAt) >= bq.settings.operationRetention {
			delete(bq.operations, name)
		}
	}
}

// RunSweeper calls SweepExpiredWorkersAndOperations() periodically. It
// can be launched as a program routine.
func (bq *InMemoryBuildQueue) RunSweeper(ctx context.Context, siblingsGroup, dependenciesGroup program.Group) error {
	ticker, tickerChannel := bq.clock.NewTicker(bq.settings.workerTimeout / 4)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-tickerChannel:
			bq.SweepExpiredWorkersAndOperations()
		}
	}
}
