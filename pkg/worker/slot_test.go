package worker_test

import (
	"context"
	"testing"
	"time"

	remoteexecution "github.com/bazelbuild/remote-apis/build/bazel/remote/execution/v2"
	"github.com/buildbarn/bb-fleet/internal/mock"
	"github.com/buildbarn/bb-fleet/pkg/scheduler/remoteworker"
	"github.com/buildbarn/bb-fleet/pkg/testutil"
	"github.com/buildbarn/bb-fleet/pkg/util"
	"github.com/buildbarn/bb-fleet/pkg/worker"
	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/require"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"go.uber.org/mock/gomock"
)

var slotPlatform = &remoteexecution.Platform{
	Properties: []*remoteexecution.Platform_Property{
		{Name: "OSFamily", Value: "linux"},
	},
}

func newSlotTask() *remoteworker.DesiredTask {
	return &remoteworker.DesiredTask{
		TaskID:         "7f1b0e1c-4c1d-4d5e-8f3a-0a9c6d2b1e4f",
		InstanceName:   "main",
		DigestFunction: remoteexecution.DigestFunction_SHA256,
		ActionDigest: remoteworker.NewMessage(&remoteexecution.Digest{
			Hash:      "8b1a9953c4611296a827abf8c47804d7e6c49c6b8d2e3f0a1b2c3d4e5f6a7b8c",
			SizeBytes: 123,
		}),
		Action:  remoteworker.NewMessage(&remoteexecution.Action{}),
		Timeout: util.Duration{Duration: time.Minute},
	}
}

func newTestSlot(ctrl *gomock.Controller) (*mock.MockSynchronizer, *mock.MockBuildExecutor, *mock.MockClock, *worker.Slot) {
	synchronizer := mock.NewMockSynchronizer(ctrl)
	buildExecutor := mock.NewMockBuildExecutor(ctrl)
	clock := mock.NewMockClock(ctrl)
	clock.EXPECT().Now().Return(time.Unix(1000, 0)).AnyTimes()
	slot := worker.NewSlot(synchronizer, buildExecutor, clock, "worker-1", "main", slotPlatform, func() backoff.BackOff {
		return &backoff.ZeroBackOff{}
	})
	return synchronizer, buildExecutor, clock, slot
}

func requireRequest(t *testing.T, request *remoteworker.SynchronizeRequest, state remoteworker.WorkerState, taskID string) {
	t.Helper()
	require.Equal(t, "worker-1", request.WorkerID)
	require.Equal(t, "main", request.InstanceNamePrefix)
	testutil.RequireEqualProto(t, slotPlatform, request.Platform.Value)
	require.Equal(t, state, request.State)
	require.Equal(t, taskID, request.TaskID)
}

func TestSlotExecuteAndReport(t *testing.T) {
	ctrl, ctx := gomock.WithContext(context.Background(), t)
	synchronizer, buildExecutor, clock, slot := newTestSlot(ctrl)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	task := newSlotTask()
	executeResponse := &remoteexecution.ExecuteResponse{
		Result: &remoteexecution.ActionResult{ExitCode: 1},
	}
	timer := mock.NewMockTimer(ctrl)
	gomock.InOrder(
		synchronizer.EXPECT().Synchronize(gomock.Any(), gomock.Any()).DoAndReturn(
			func(ctx context.Context, request *remoteworker.SynchronizeRequest) (*remoteworker.SynchronizeResponse, error) {
				requireRequest(t, request, remoteworker.WorkerStateIdle, "")
				return &remoteworker.SynchronizeResponse{
					NextSynchronizationAt: time.Unix(1010, 0),
					DesiredState:          remoteworker.WorkerStateExecuting,
					Task:                  task,
				}, nil
			}),
		synchronizer.EXPECT().Synchronize(gomock.Any(), gomock.Any()).DoAndReturn(
			func(ctx context.Context, request *remoteworker.SynchronizeRequest) (*remoteworker.SynchronizeResponse, error) {
				requireRequest(t, request, remoteworker.WorkerStateCompleted, task.TaskID)
				require.NotNil(t, request.ExecuteResponse)
				testutil.RequireEqualProto(t, executeResponse, request.ExecuteResponse.Value)
				cancel()
				return nil, status.Error(codes.Canceled, "context canceled")
			}),
	)
	// Execution happens in the background, so it is not ordered
	// with respect to the creation of the timer.
	clock.EXPECT().NewTimer(10*time.Second).Return(timer, nil)
	buildExecutor.EXPECT().Execute(gomock.Any(), task).Return(executeResponse)
	timer.EXPECT().Stop()

	require.NoError(t, slot.Run(ctx, nil, nil))
}

func TestSlotTaskCancelledByScheduler(t *testing.T) {
	ctrl, ctx := gomock.WithContext(context.Background(), t)
	synchronizer, buildExecutor, clock, slot := newTestSlot(ctrl)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	task := newSlotTask()
	timer := mock.NewMockTimer(ctrl)
	timerChannel := make(chan time.Time, 1)
	timerChannel <- time.Unix(1010, 0)
	gomock.InOrder(
		synchronizer.EXPECT().Synchronize(gomock.Any(), gomock.Any()).Return(&remoteworker.SynchronizeResponse{
			NextSynchronizationAt: time.Unix(1010, 0),
			DesiredState:          remoteworker.WorkerStateExecuting,
			Task:                  task,
		}, nil),
		clock.EXPECT().NewTimer(10*time.Second).Return(timer, timerChannel),
		// Once the scheduler reports that the task no longer needs
		// to be executed, execution is cancelled.
		synchronizer.EXPECT().Synchronize(gomock.Any(), gomock.Any()).DoAndReturn(
			func(ctx context.Context, request *remoteworker.SynchronizeRequest) (*remoteworker.SynchronizeResponse, error) {
				requireRequest(t, request, remoteworker.WorkerStateExecuting, task.TaskID)
				return &remoteworker.SynchronizeResponse{
					NextSynchronizationAt: time.Unix(1010, 0),
					DesiredState:          remoteworker.WorkerStateIdle,
				}, nil
			}),
		synchronizer.EXPECT().Synchronize(gomock.Any(), gomock.Any()).DoAndReturn(
			func(ctx context.Context, request *remoteworker.SynchronizeRequest) (*remoteworker.SynchronizeResponse, error) {
				requireRequest(t, request, remoteworker.WorkerStateIdle, "")
				require.Nil(t, request.ExecuteResponse)
				cancel()
				return nil, status.Error(codes.Canceled, "context canceled")
			}),
	)
	buildExecutor.EXPECT().Execute(gomock.Any(), task).DoAndReturn(
		func(ctx context.Context, task *remoteworker.DesiredTask) *remoteexecution.ExecuteResponse {
			<-ctx.Done()
			return &remoteexecution.ExecuteResponse{
				Status: status.Convert(util.StatusFromContext(ctx)).Proto(),
			}
		})

	require.NoError(t, slot.Run(ctx, nil, nil))
}

func TestSlotSynchronizationRetries(t *testing.T) {
	ctrl, ctx := gomock.WithContext(context.Background(), t)
	synchronizer, _, _, slot := newTestSlot(ctrl)

	t.Run("Unavailable", func(t *testing.T) {
		// Transient failures should be retried.
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()
		gomock.InOrder(
			synchronizer.EXPECT().Synchronize(gomock.Any(), gomock.Any()).
				Return(nil, status.Error(codes.Unavailable, "Failed to contact scheduler: connection refused")).
				Times(3),
			synchronizer.EXPECT().Synchronize(gomock.Any(), gomock.Any()).DoAndReturn(
				func(ctx context.Context, request *remoteworker.SynchronizeRequest) (*remoteworker.SynchronizeResponse, error) {
					cancel()
					return nil, status.Error(codes.Canceled, "context canceled")
				}),
		)

		require.NoError(t, slot.Run(ctx, nil, nil))
	})

	t.Run("InvalidArgument", func(t *testing.T) {
		// Misconfigurations should cause the slot to terminate.
		synchronizer.EXPECT().Synchronize(gomock.Any(), gomock.Any()).
			Return(nil, status.Error(codes.InvalidArgument, "Invalid instance name prefix \"blobs\""))

		testutil.RequireEqualStatus(
			t,
			status.Error(codes.InvalidArgument, "Failed to synchronize with scheduler: Invalid instance name prefix \"blobs\""),
			slot.Run(ctx, nil, nil))
	})
}
