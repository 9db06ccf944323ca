package grpcservers

import (
	"context"

	remoteexecution "github.com/bazelbuild/remote-apis/build/bazel/remote/execution/v2"
	"github.com/buildbarn/bb-fleet/pkg/blobstore"
	"github.com/buildbarn/bb-fleet/pkg/blobstore/buffer"
	"github.com/buildbarn/bb-fleet/pkg/digest"
	"github.com/buildbarn/bb-fleet/pkg/util"
	"github.com/klauspost/compress/zstd"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Number of directories returned per GetTree() response message.
const getTreeDirectoriesPerResponse = 100

type contentAddressableStorageServer struct {
	contentAddressableStorage blobstore.BlobAccess
	maximumMessageSizeBytes   int64
	zstdDecoder               *zstd.Decoder
}

// NewContentAddressableStorageServer creates a gRPC service for serving
// the contents of the Content Addressable Storage (CAS) to build
// clients and workers.
func NewContentAddressableStorageServer(contentAddressableStorage blobstore.BlobAccess, maximumMessageSizeBytes int64) remoteexecution.ContentAddressableStorageServer {
	zstdDecoder, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1), zstd.WithDecoderMaxMemory(uint64(maximumMessageSizeBytes)))
	if err != nil {
		panic(err)
	}
	return &contentAddressableStorageServer{
		contentAddressableStorage: contentAddressableStorage,
		maximumMessageSizeBytes:   maximumMessageSizeBytes,
		zstdDecoder:               zstdDecoder,
	}
}

func getDigestFunction(instanceNameStr string, digestFunction remoteexecution.DigestFunction_Value, firstDigest *remoteexecution.Digest) (digest.Function, error) {
	instanceName, err := digest.NewInstanceName(instanceNameStr)
	if err != nil {
		return digest.Function{}, util.StatusWrapf(err, "Invalid instance name %#v", instanceNameStr)
	}
	return instanceName.GetDigestFunction(digestFunction, len(firstDigest.GetHash()))
}

func (s *contentAddressableStorageServer) FindMissingBlobs(ctx context.Context, in *remoteexecution.FindMissingBlobsRequest) (*remoteexecution.FindMissingBlobsResponse, error) {
	if len(in.BlobDigests) == 0 {
		return &remoteexecution.FindMissingBlobsResponse{}, nil
	}
	digestFunction, err := getDigestFunction(in.InstanceName, in.DigestFunction, in.BlobDigests[0])
	if err != nil {
		return nil, err
	}

	digests := digest.NewSetBuilder()
	for _, blobDigest := range in.BlobDigests {
		d, err := digestFunction.NewDigestFromProto(blobDigest)
		if err != nil {
			return nil, err
		}
		digests.Add(d)
	}
	missing, err := s.contentAddressableStorage.FindMissing(ctx, digests.Build())
	if err != nil {
		return nil, err
	}
	missingDigests := make([]*remoteexecution.Digest, 0, missing.Length())
	for _, d := range missing.Items() {
		missingDigests = append(missingDigests, d.GetProto())
	}
	return &remoteexecution.FindMissingBlobsResponse{
		MissingBlobDigests: missingDigests,
	}, nil
}

// getBatchDigestFunction obtains the digest function of a batch
// request. If the client did not provide one explicitly, it is derived
// from the first digest whose hash has a recognized length, so that a
// single malformed digest does not cause the entire batch to fail.
func getBatchDigestFunction(instanceNameStr string, digestFunction remoteexecution.DigestFunction_Value, blobDigests []*remoteexecution.Digest) (digest.Function, error) {
	instanceName, err := digest.NewInstanceName(instanceNameStr)
	if err != nil {
		return digest.Function{}, util.StatusWrapf(err, "Invalid instance name %#v", instanceNameStr)
	}
	var lastErr error
	for _, blobDigest := range blobDigests {
		f, err := instanceName.GetDigestFunction(digestFunction, len(blobDigest.GetHash()))
		if err == nil {
			return f, nil
		}
		lastErr = err
	}
	return digest.Function{}, lastErr
}

func (s *contentAddressableStorageServer) BatchReadBlobs(ctx context.Context, in *remoteexecution.BatchReadBlobsRequest) (*remoteexecution.BatchReadBlobsResponse, error) {
	if len(in.Digests) == 0 {
		return &remoteexecution.BatchReadBlobsResponse{}, nil
	}
	digestFunction, err := getBatchDigestFunction(in.InstanceName, in.DigestFunction, in.Digests)
	if err != nil {
		return nil, err
	}

	// Refuse requests whose response would not fit in a single
	// message, before reading anything. Malformed digests are
	// reported for the individual entry.
	var totalSizeBytes int64
	responses := make([]*remoteexecution.BatchReadBlobsResponse_Response, 0, len(in.Digests))
	digests := make([]digest.Digest, 0, len(in.Digests))
	for _, blobDigest := range in.Digests {
		d, err := digestFunction.NewDigestFromProto(blobDigest)
		if err != nil {
			responses = append(responses, &remoteexecution.BatchReadBlobsResponse_Response{
				Digest: blobDigest,
				Status: status.Convert(util.StatusWrap(err, "Invalid digest")).Proto(),
			})
			digests = append(digests, digest.BadDigest)
			continue
		}
		totalSizeBytes += d.GetSizeBytes()
		if totalSizeBytes > s.maximumMessageSizeBytes {
			return nil, status.Errorf(
				codes.InvalidArgument,
				"Attempted to read a total of at least %d bytes, while a maximum of %d bytes is permitted",
				totalSizeBytes,
				s.maximumMessageSizeBytes)
		}
		responses = append(responses, &remoteexecution.BatchReadBlobsResponse_Response{
			Digest: blobDigest,
		})
		digests = append(digests, d)
	}

	for i, d := range digests {
		if responses[i].Status != nil {
			continue
		}
		data, err := s.contentAddressableStorage.Get(ctx, d).ToByteSlice(int(d.GetSizeBytes()))
		responses[i].Data = data
		responses[i].Status = status.Convert(err).Proto()
	}
	return &remoteexecution.BatchReadBlobsResponse{
		Responses: responses,
	}, nil
}

func (s *contentAddressableStorageServer) decompress(data []byte, compressor remoteexecution.Compressor_Value) ([]byte, error) {
	switch compressor {
	case remoteexecution.Compressor_IDENTITY:
		return data, nil
	case remoteexecution.Compressor_ZSTD:
		decompressed, err := s.zstdDecoder.DecodeAll(data, nil)
		if err != nil {
			return nil, status.Errorf(codes.InvalidArgument, "Failed to decompress data: %s", err)
		}
		return decompressed, nil
	default:
		return nil, status.Errorf(codes.InvalidArgument, "Unsupported compressor: %s", compressor)
	}
}

func (s *contentAddressableStorageServer) BatchUpdateBlobs(ctx context.Context, in *remoteexecution.BatchUpdateBlobsRequest) (*remoteexecution.BatchUpdateBlobsResponse, error) {
	if len(in.Requests) == 0 {
		return &remoteexecution.BatchUpdateBlobsResponse{}, nil
	}
	digestFunction, err := getDigestFunction(in.InstanceName, in.DigestFunction, in.Requests[0].Digest)
	if err != nil {
		return nil, err
	}

	// Entries are processed independently. A digest that cannot be
	// parsed or data that does not match its digest only causes
	// that entry to fail.
	responses := make([]*remoteexecution.BatchUpdateBlobsResponse_Response, 0, len(in.Requests))
	for _, request := range in.Requests {
		d, err := digestFunction.NewDigestFromProto(request.Digest)
		if err == nil {
			var data []byte
			if data, err = s.decompress(request.Data, request.Compressor); err == nil {
				err = s.contentAddressableStorage.Put(
					ctx,
					d,
					buffer.NewCASBufferFromByteSlice(d, data, buffer.UserProvided))
			}
		}
		responses = append(responses, &remoteexecution.BatchUpdateBlobsResponse_Response{
			Digest: request.Digest,
			Status: status.Convert(err).Proto(),
		})
	}
	return &remoteexecution.BatchUpdateBlobsResponse{
		Responses: responses,
	}, nil
}

func (s *contentAddressableStorageServer) GetTree(in *remoteexecution.GetTreeRequest, out remoteexecution.ContentAddressableStorage_GetTreeServer) error {
	if in.PageToken != "" {
		return status.Error(codes.InvalidArgument, "This service does not support resuming directory tree traversal")
	}
	digestFunction, err := getDigestFunction(in.InstanceName, in.DigestFunction, in.RootDigest)
	if err != nil {
		return err
	}
	rootDigest, err := digestFunction.NewDigestFromProto(in.RootDigest)
	if err != nil {
		return util.StatusWrap(err, "Invalid root digest")
	}

	pageSize := getTreeDirectoriesPerResponse
	if in.PageSize > 0 && int(in.PageSize) < pageSize {
		pageSize = int(in.PageSize)
	}

	// Traverse the tree breadth first, visiting every directory once.
	ctx := out.Context()
	seen := map[digest.Digest]struct{}{rootDigest: {}}
	queue := []digest.Digest{rootDigest}
	var page []*remoteexecution.Directory
	for len(queue) > 0 {
		directoryDigest := queue[0]
		queue = queue[1:]
		m, err := s.contentAddressableStorage.Get(ctx, directoryDigest).ToProto(&remoteexecution.Directory{}, int(s.maximumMessageSizeBytes))
		if err != nil {
			return util.StatusWrapf(err, "Failed to fetch directory %#v", directoryDigest.String())
		}
		directory := m.(*remoteexecution.Directory)
		for _, child := range directory.Directories {
			childDigest, err := digestFunction.NewDigestFromProto(child.Digest)
			if err != nil {
				return util.StatusWrapf(err, "Invalid digest for directory %#v", child.Name)
			}
			if _, ok := seen[childDigest]; !ok {
				seen[childDigest] = struct{}{}
				queue = append(queue, childDigest)
			}
		}

		page = append(page, directory)
		if len(page) == pageSize {
			if err := out.Send(&remoteexecution.GetTreeResponse{Directories: page}); err != nil {
				return err
			}
			page = nil
		}
	}
	if len(page) > 0 {
		return out.Send(&remoteexecution.GetTreeResponse{Directories: page})
	}
	return nil
}

func (contentAddressableStorageServer) SpliceBlob(ctx context.Context, in *remoteexecution.SpliceBlobRequest) (*remoteexecution.SpliceBlobResponse, error) {
	return nil, status.Error(codes.Unimplemented, "This service does not support splicing blobs")
}

func (contentAddressableStorageServer) SplitBlob(ctx context.Context, in *remoteexecution.SplitBlobRequest) (*remoteexecution.SplitBlobResponse, error) {
	return nil, status.Error(codes.Unimplemented, "This service does not support splitting blobs")
}
