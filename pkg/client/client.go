package client

import (
	"context"
	"sort"
	"time"

	"cloud.google.com/go/longrunning/autogen/longrunningpb"
	remoteexecution "github.com/bazelbuild/remote-apis/build/bazel/remote/execution/v2"
	"github.com/buildbarn/bb-fleet/pkg/blobstore"
	"github.com/buildbarn/bb-fleet/pkg/blobstore/buffer"
	"github.com/buildbarn/bb-fleet/pkg/blobstore/grpcclients"
	"github.com/buildbarn/bb-fleet/pkg/digest"
	"github.com/buildbarn/bb-fleet/pkg/util"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/durationpb"
)

// Action describes a command that needs to be executed remotely.
type Action struct {
	Arguments            []string
	EnvironmentVariables map[string]string
	// Paths of outputs, relative to the working directory.
	OutputPaths      []string
	WorkingDirectory string
	Platform         *remoteexecution.Platform
	InputRoot        *InputRoot
	// Zero means that the scheduler's default timeout is used.
	Timeout    time.Duration
	DoNotCache bool
}

// ExecuteOptions controls how an action is executed.
type ExecuteOptions struct {
	SkipCacheLookup bool
	// Lower values are executed first.
	Priority int32
	// Invoked for every update of the operation that is received,
	// including the final one.
	OnOperation func(operation *longrunningpb.Operation)
}

// Client submits actions to a remote execution service and retrieves
// their results.
type Client struct {
	digestFunction            digest.Function
	contentAddressableStorage remoteexecution.ContentAddressableStorageClient
	actionCache               remoteexecution.ActionCacheClient
	execution                 remoteexecution.ExecutionClient
	byteStream                blobstore.BlobAccess
	maximumBatchSizeBytes     int64
	maximumMessageSizeBytes   int
}

// NewClient creates a Client that uses a single gRPC connection for
// all services. Blobs larger than maximumBatchSizeBytes are transferred
// through the ByteStream service, while smaller ones are uploaded in
// batches.
func NewClient(conn grpc.ClientConnInterface, digestFunction digest.Function, uuidGenerator util.UUIDGenerator, maximumBatchSizeBytes int64, maximumMessageSizeBytes int) *Client {
	return &Client{
		digestFunction:            digestFunction,
		contentAddressableStorage: remoteexecution.NewContentAddressableStorageClient(conn),
		actionCache:               remoteexecution.NewActionCacheClient(conn),
		execution:                 remoteexecution.NewExecutionClient(conn),
		byteStream:                grpcclients.NewCASBlobAccess(conn, uuidGenerator, 1<<16, false),
		maximumBatchSizeBytes:     maximumBatchSizeBytes,
		maximumMessageSizeBytes:   maximumMessageSizeBytes,
	}
}

func (c *Client) addMessage(blobs map[digest.Digest][]byte, m proto.Message) (digest.Digest, error) {
	data, err := proto.MarshalOptions{Deterministic: true}.Marshal(m)
	if err != nil {
		return digest.BadDigest, util.StatusWrapWithCode(err, codes.Internal, "Failed to marshal message")
	}
	d := c.digestFunction.Compute(data)
	blobs[d] = data
	return d, nil
}

// UploadAction stores an action, its command and its input root in the
// Content Addressable Storage. Only blobs that are absent from the
// Content Addressable Storage are uploaded. The digest of the action
// is returned.
func (c *Client) UploadAction(ctx context.Context, action *Action) (digest.Digest, error) {
	blobs := map[digest.Digest][]byte{}
	inputRootDigest := c.digestFunction.GetEmptyDigest()
	if action.InputRoot != nil {
		for d, data := range action.InputRoot.Blobs {
			blobs[d] = data
		}
		inputRootDigest = action.InputRoot.Digest
	} else {
		blobs[inputRootDigest] = nil
	}

	command := &remoteexecution.Command{
		Arguments:        action.Arguments,
		OutputPaths:      append([]string(nil), action.OutputPaths...),
		WorkingDirectory: action.WorkingDirectory,
	}
	sort.Strings(command.OutputPaths)
	for _, name := range sortedKeys(action.EnvironmentVariables) {
		command.EnvironmentVariables = append(command.EnvironmentVariables, &remoteexecution.Command_EnvironmentVariable{
			Name:  name,
			Value: action.EnvironmentVariables[name],
		})
	}
	commandDigest, err := c.addMessage(blobs, command)
	if err != nil {
		return digest.BadDigest, err
	}

	actionMessage := &remoteexecution.Action{
		CommandDigest:   commandDigest.GetProto(),
		InputRootDigest: inputRootDigest.GetProto(),
		DoNotCache:      action.DoNotCache,
		Platform:        action.Platform,
	}
	if action.Timeout > 0 {
		actionMessage.Timeout = durationpb.New(action.Timeout)
	}
	actionDigest, err := c.addMessage(blobs, actionMessage)
	if err != nil {
		return digest.BadDigest, err
	}

	if err := c.UploadBlobs(ctx, blobs); err != nil {
		return digest.BadDigest, err
	}
	return actionDigest, nil
}

// UploadBlobs stores blobs in the Content Addressable Storage, skipping
// the ones that are already present.
func (c *Client) UploadBlobs(ctx context.Context, blobs map[digest.Digest][]byte) error {
	if len(blobs) == 0 {
		return nil
	}
	digests := make([]*remoteexecution.Digest, 0, len(blobs))
	for d := range blobs {
		digests = append(digests, d.GetProto())
	}
	findMissingResponse, err := c.contentAddressableStorage.FindMissingBlobs(ctx, &remoteexecution.FindMissingBlobsRequest{
		InstanceName:   c.digestFunction.GetInstanceName().String(),
		BlobDigests:    digests,
		DigestFunction: c.digestFunction.GetEnumValue(),
	})
	if err != nil {
		return util.StatusWrap(err, "Failed to find missing blobs")
	}

	var batch []*remoteexecution.BatchUpdateBlobsRequest_Request
	var batchSizeBytes int64
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		response, err := c.contentAddressableStorage.BatchUpdateBlobs(ctx, &remoteexecution.BatchUpdateBlobsRequest{
			InstanceName:   c.digestFunction.GetInstanceName().String(),
			Requests:       batch,
			DigestFunction: c.digestFunction.GetEnumValue(),
		})
		if err != nil {
			return util.StatusWrap(err, "Failed to upload blobs")
		}
		for _, blobResponse := range response.Responses {
			if err := status.ErrorProto(blobResponse.Status); err != nil {
				return util.StatusWrapf(err, "Failed to upload blob %s-%d", blobResponse.GetDigest().GetHash(), blobResponse.GetDigest().GetSizeBytes())
			}
		}
		batch = nil
		batchSizeBytes = 0
		return nil
	}
	for _, missingDigest := range findMissingResponse.MissingBlobDigests {
		d, err := c.digestFunction.NewDigestFromProto(missingDigest)
		if err != nil {
			return util.StatusWrap(err, "Server returned an invalid digest")
		}
		data, ok := blobs[d]
		if !ok {
			return status.Errorf(codes.Internal, "Server reported blob %s as missing, even though it was not requested", d)
		}
		if sizeBytes := d.GetSizeBytes(); sizeBytes > c.maximumBatchSizeBytes {
			if err := c.byteStream.Put(ctx, d, buffer.NewCASBufferFromByteSlice(d, data, buffer.UserProvided)); err != nil {
				return util.StatusWrapf(err, "Failed to upload blob %s", d)
			}
			continue
		} else if batchSizeBytes+sizeBytes > c.maximumBatchSizeBytes {
			if err := flush(); err != nil {
				return err
			}
		}
		batch = append(batch, &remoteexecution.BatchUpdateBlobsRequest_Request{
			Digest: missingDigest,
			Data:   data,
		})
		batchSizeBytes += d.GetSizeBytes()
	}
	return flush()
}

type operationStream interface {
	Recv() (*longrunningpb.Operation, error)
}

// waitForCompletion reads operation updates from a stream until the
// operation completes.
func waitForCompletion(stream operationStream, onOperation func(*longrunningpb.Operation)) (*remoteexecution.ExecuteResponse, error) {
	for {
		operation, err := stream.Recv()
		if err != nil {
			return nil, err
		}
		if onOperation != nil {
			onOperation(operation)
		}
		if !operation.Done {
			continue
		}
		switch result := operation.Result.(type) {
		case *longrunningpb.Operation_Error:
			return nil, status.ErrorProto(result.Error)
		case *longrunningpb.Operation_Response:
			var executeResponse remoteexecution.ExecuteResponse
			if err := result.Response.UnmarshalTo(&executeResponse); err != nil {
				return nil, util.StatusWrapWithCode(err, codes.Internal, "Operation does not contain a valid execute response")
			}
			return &executeResponse, nil
		default:
			return nil, status.Error(codes.Internal, "Operation completed without a result")
		}
	}
}

// Execute an action and wait for it to complete. Errors of the
// execution itself are reported through ExecuteResponse.status.
func (c *Client) Execute(ctx context.Context, actionDigest digest.Digest, options ExecuteOptions) (*remoteexecution.ExecuteResponse, error) {
	request := &remoteexecution.ExecuteRequest{
		InstanceName:    c.digestFunction.GetInstanceName().String(),
		SkipCacheLookup: options.SkipCacheLookup,
		ActionDigest:    actionDigest.GetProto(),
		DigestFunction:  c.digestFunction.GetEnumValue(),
	}
	if options.Priority != 0 {
		request.ExecutionPolicy = &remoteexecution.ExecutionPolicy{
			Priority: options.Priority,
		}
	}
	stream, err := c.execution.Execute(ctx, request)
	if err != nil {
		return nil, util.StatusWrap(err, "Failed to execute action")
	}
	return waitForCompletion(stream, options.OnOperation)
}

// WaitExecution attaches to an operation that was created previously
// and waits for it to complete.
func (c *Client) WaitExecution(ctx context.Context, operationName string, onOperation func(*longrunningpb.Operation)) (*remoteexecution.ExecuteResponse, error) {
	stream, err := c.execution.WaitExecution(ctx, &remoteexecution.WaitExecutionRequest{
		Name: operationName,
	})
	if err != nil {
		return nil, util.StatusWrapf(err, "Failed to wait for operation %#v", operationName)
	}
	return waitForCompletion(stream, onOperation)
}

// GetActionResult looks up the result of an action in the Action
// Cache.
func (c *Client) GetActionResult(ctx context.Context, actionDigest digest.Digest) (*remoteexecution.ActionResult, error) {
	return c.actionCache.GetActionResult(ctx, &remoteexecution.GetActionResultRequest{
		InstanceName:   c.digestFunction.GetInstanceName().String(),
		ActionDigest:   actionDigest.GetProto(),
		DigestFunction: c.digestFunction.GetEnumValue(),
	})
}

// ReadBlob reads a blob from the Content Addressable Storage.
func (c *Client) ReadBlob(ctx context.Context, blobDigest *remoteexecution.Digest) ([]byte, error) {
	d, err := c.digestFunction.NewDigestFromProto(blobDigest)
	if err != nil {
		return nil, err
	}
	return c.byteStream.Get(ctx, d).ToByteSlice(c.maximumMessageSizeBytes)
}
