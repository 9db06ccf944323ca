package grpcservers_test

import (
	"context"
	"io"
	"net"
	"testing"

	remoteexecution "github.com/bazelbuild/remote-apis/build/bazel/remote/execution/v2"
	"github.com/buildbarn/bb-fleet/internal/mock"
	"github.com/buildbarn/bb-fleet/pkg/blobstore/buffer"
	"github.com/buildbarn/bb-fleet/pkg/blobstore/grpcservers"
	"github.com/buildbarn/bb-fleet/pkg/digest"
	"github.com/buildbarn/bb-fleet/pkg/testutil"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/require"

	status_pb "google.golang.org/genproto/googleapis/rpc/status"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"go.uber.org/mock/gomock"
)

func TestContentAddressableStorageServerFindMissingBlobs(t *testing.T) {
	ctrl, ctx := gomock.WithContext(context.Background(), t)

	contentAddressableStorage := mock.NewMockBlobAccess(ctrl)
	server := grpcservers.NewContentAddressableStorageServer(contentAddressableStorage, 1<<16)

	t.Run("Empty", func(t *testing.T) {
		response, err := server.FindMissingBlobs(ctx, &remoteexecution.FindMissingBlobsRequest{
			InstanceName: "main",
		})
		require.NoError(t, err)
		testutil.RequireEqualProto(t, &remoteexecution.FindMissingBlobsResponse{}, response)
	})

	t.Run("InvalidInstanceName", func(t *testing.T) {
		_, err := server.FindMissingBlobs(ctx, &remoteexecution.FindMissingBlobsRequest{
			InstanceName: "main/blobs",
			BlobDigests: []*remoteexecution.Digest{
				{Hash: "8b1a9953c4611296a827abf8c47804d7", SizeBytes: 5},
			},
		})
		testutil.RequireEqualStatus(t, status.Error(codes.InvalidArgument, "Invalid instance name \"main/blobs\": Instance name contains reserved keyword \"blobs\""), err)
	})

	t.Run("Success", func(t *testing.T) {
		digest1 := digest.MustNewDigest("main", remoteexecution.DigestFunction_MD5, "8b1a9953c4611296a827abf8c47804d7", 5)
		digest2 := digest.MustNewDigest("main", remoteexecution.DigestFunction_MD5, "6fc422233a40a75a1f028e11c3cd1140", 7)
		contentAddressableStorage.EXPECT().FindMissing(ctx, digest.NewSetBuilder().Add(digest1).Add(digest2).Build()).
			Return(digest2.ToSingletonSet(), nil)

		response, err := server.FindMissingBlobs(ctx, &remoteexecution.FindMissingBlobsRequest{
			InstanceName: "main",
			BlobDigests: []*remoteexecution.Digest{
				{Hash: "8b1a9953c4611296a827abf8c47804d7", SizeBytes: 5},
				{Hash: "6fc422233a40a75a1f028e11c3cd1140", SizeBytes: 7},
				{Hash: "8b1a9953c4611296a827abf8c47804d7", SizeBytes: 5},
			},
			DigestFunction: remoteexecution.DigestFunction_MD5,
		})
		require.NoError(t, err)
		testutil.RequireEqualProto(t, &remoteexecution.FindMissingBlobsResponse{
			MissingBlobDigests: []*remoteexecution.Digest{
				{Hash: "6fc422233a40a75a1f028e11c3cd1140", SizeBytes: 7},
			},
		}, response)
	})
}

func TestContentAddressableStorageServerBatchReadBlobs(t *testing.T) {
	ctrl, ctx := gomock.WithContext(context.Background(), t)

	contentAddressableStorage := mock.NewMockBlobAccess(ctrl)
	server := grpcservers.NewContentAddressableStorageServer(contentAddressableStorage, 500)

	request := &remoteexecution.BatchReadBlobsRequest{
		Digests: []*remoteexecution.Digest{
			{Hash: "409a7f83ac6b31dc8c77e3ec18038f209bd2f545e0f4177c2e2381aa4e067b49", SizeBytes: 123},
			{Hash: "0479688f99e8cbc70291ce272876ff8e0db71a0889daf2752884b0996056b4a0", SizeBytes: 234},
		},
		InstanceName: "ubuntu2404",
	}

	t.Run("PerEntryNotFound", func(t *testing.T) {
		// Missing blobs are reported for the individual entry,
		// as opposed to failing the request as a whole.
		data := make([]byte, 123)
		contentAddressableStorage.EXPECT().Get(ctx, digest.MustNewDigest("ubuntu2404", remoteexecution.DigestFunction_SHA256, "409a7f83ac6b31dc8c77e3ec18038f209bd2f545e0f4177c2e2381aa4e067b49", 123)).
			Return(buffer.NewValidatedBufferFromByteSlice(data))
		contentAddressableStorage.EXPECT().Get(ctx, digest.MustNewDigest("ubuntu2404", remoteexecution.DigestFunction_SHA256, "0479688f99e8cbc70291ce272876ff8e0db71a0889daf2752884b0996056b4a0", 234)).
			Return(buffer.NewBufferFromError(status.Error(codes.NotFound, "Blob not found")))

		response, err := server.BatchReadBlobs(ctx, request)
		require.NoError(t, err)
		testutil.RequireEqualProto(t, &remoteexecution.BatchReadBlobsResponse{
			Responses: []*remoteexecution.BatchReadBlobsResponse_Response{
				{
					Digest: &remoteexecution.Digest{Hash: "409a7f83ac6b31dc8c77e3ec18038f209bd2f545e0f4177c2e2381aa4e067b49", SizeBytes: 123},
					Data:   data,
				},
				{
					Digest: &remoteexecution.Digest{Hash: "0479688f99e8cbc70291ce272876ff8e0db71a0889daf2752884b0996056b4a0", SizeBytes: 234},
					Status: &status_pb.Status{
						Code:    int32(codes.NotFound),
						Message: "Blob not found",
					},
				},
			},
		}, response)
	})

	t.Run("PerEntryInvalidDigest", func(t *testing.T) {
		// A malformed digest should not prevent the other blobs
		// in the batch from being returned. The digest function
		// is taken from the request, regardless of the position
		// of the malformed digest.
		data := []byte("Hello")
		contentAddressableStorage.EXPECT().Get(ctx, digest.MustNewDigest("ubuntu2404", remoteexecution.DigestFunction_MD5, "8b1a9953c4611296a827abf8c47804d7", 5)).
			Return(buffer.NewValidatedBufferFromByteSlice(data))

		response, err := server.BatchReadBlobs(ctx, &remoteexecution.BatchReadBlobsRequest{
			InstanceName: "ubuntu2404",
			Digests: []*remoteexecution.Digest{
				{Hash: "zz", SizeBytes: 5},
				{Hash: "8b1a9953c4611296a827abf8c47804d7", SizeBytes: 5},
			},
			DigestFunction: remoteexecution.DigestFunction_MD5,
		})
		require.NoError(t, err)
		testutil.RequireEqualProto(t, &remoteexecution.BatchReadBlobsResponse{
			Responses: []*remoteexecution.BatchReadBlobsResponse_Response{
				{
					Digest: &remoteexecution.Digest{Hash: "zz", SizeBytes: 5},
					Status: &status_pb.Status{
						Code:    int32(codes.InvalidArgument),
						Message: "Invalid digest: Hash has length 2, while 32 characters were expected",
					},
				},
				{
					Digest: &remoteexecution.Digest{Hash: "8b1a9953c4611296a827abf8c47804d7", SizeBytes: 5},
					Data:   data,
				},
			},
		}, response)
	})

	t.Run("UnknownDigestFunction", func(t *testing.T) {
		// Without an explicit digest function, none of the
		// hashes has a recognizable length.
		_, err := server.BatchReadBlobs(ctx, &remoteexecution.BatchReadBlobsRequest{
			InstanceName: "ubuntu2404",
			Digests: []*remoteexecution.Digest{
				{Hash: "zz", SizeBytes: 5},
			},
		})
		testutil.RequireEqualStatus(t, status.Error(codes.InvalidArgument, "Unknown digest function"), err)
	})

	t.Run("TooLarge", func(t *testing.T) {
		smallServer := grpcservers.NewContentAddressableStorageServer(contentAddressableStorage, 200)
		_, err := smallServer.BatchReadBlobs(ctx, request)
		testutil.RequireEqualStatus(t, status.Error(codes.InvalidArgument, "Attempted to read a total of at least 357 bytes, while a maximum of 200 bytes is permitted"), err)
	})
}

func TestContentAddressableStorageServerBatchUpdateBlobs(t *testing.T) {
	ctrl, ctx := gomock.WithContext(context.Background(), t)

	contentAddressableStorage := mock.NewMockBlobAccess(ctrl)
	server := grpcservers.NewContentAddressableStorageServer(contentAddressableStorage, 1<<16)

	t.Run("PartialFailure", func(t *testing.T) {
		// The second entry does not match its digest. Only that
		// entry should fail. Storing data that is already present
		// is no different from storing it initially.
		helloDigest := digest.MustNewDigest("main", remoteexecution.DigestFunction_MD5, "5d41402abc4b2a76b9719d911017c592", 5)
		contentAddressableStorage.EXPECT().Put(ctx, helloDigest, gomock.Any()).DoAndReturn(
			func(ctx context.Context, digest digest.Digest, b buffer.Buffer) error {
				_, err := b.ToByteSlice(100)
				return err
			}).Times(2)

		response, err := server.BatchUpdateBlobs(ctx, &remoteexecution.BatchUpdateBlobsRequest{
			InstanceName: "main",
			Requests: []*remoteexecution.BatchUpdateBlobsRequest_Request{
				{
					Digest: &remoteexecution.Digest{Hash: "5d41402abc4b2a76b9719d911017c592", SizeBytes: 5},
					Data:   []byte("hello"),
				},
				{
					Digest: &remoteexecution.Digest{Hash: "5d41402abc4b2a76b9719d911017c592", SizeBytes: 5},
					Data:   []byte("jello"),
				},
				{
					Digest: &remoteexecution.Digest{Hash: "5d41402abc4b2a76b9719d911017c592", SizeBytes: -1},
					Data:   []byte("hello"),
				},
			},
		})
		require.NoError(t, err)
		require.Len(t, response.Responses, 3)
		require.Equal(t, int32(codes.OK), response.Responses[0].Status.GetCode())
		require.Equal(t, int32(codes.InvalidArgument), response.Responses[1].Status.GetCode())
		testutil.RequireEqualProto(t, &status_pb.Status{
			Code:    int32(codes.InvalidArgument),
			Message: "Invalid digest size: -1 bytes",
		}, response.Responses[2].Status)
	})

	t.Run("Zstd", func(t *testing.T) {
		encoder, err := zstd.NewWriter(nil)
		require.NoError(t, err)
		compressed := encoder.EncodeAll([]byte("hello"), nil)
		require.NoError(t, encoder.Close())

		contentAddressableStorage.EXPECT().Put(ctx, digest.MustNewDigest("main", remoteexecution.DigestFunction_MD5, "5d41402abc4b2a76b9719d911017c592", 5), gomock.Any()).DoAndReturn(
			func(ctx context.Context, digest digest.Digest, b buffer.Buffer) error {
				data, err := b.ToByteSlice(100)
				require.NoError(t, err)
				require.Equal(t, []byte("hello"), data)
				return nil
			})

		response, err := server.BatchUpdateBlobs(ctx, &remoteexecution.BatchUpdateBlobsRequest{
			InstanceName: "main",
			Requests: []*remoteexecution.BatchUpdateBlobsRequest_Request{
				{
					Digest:     &remoteexecution.Digest{Hash: "5d41402abc4b2a76b9719d911017c592", SizeBytes: 5},
					Data:       compressed,
					Compressor: remoteexecution.Compressor_ZSTD,
				},
			},
		})
		require.NoError(t, err)
		require.Equal(t, int32(codes.OK), response.Responses[0].Status.GetCode())
	})
}

func TestContentAddressableStorageServerGetTree(t *testing.T) {
	ctrl, ctx := gomock.WithContext(context.Background(), t)

	l := bufconn.Listen(1 << 20)
	server := grpc.NewServer()
	contentAddressableStorage := mock.NewMockBlobAccess(ctrl)
	remoteexecution.RegisterContentAddressableStorageServer(server, grpcservers.NewContentAddressableStorageServer(contentAddressableStorage, 1<<16))
	go server.Serve(l)
	defer server.Stop()
	conn, err := grpc.NewClient(
		"passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return l.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	defer conn.Close()
	client := remoteexecution.NewContentAddressableStorageClient(conn)

	child := &remoteexecution.Directory{
		Files: []*remoteexecution.FileNode{
			{Name: "hello.txt", Digest: &remoteexecution.Digest{Hash: "5d41402abc4b2a76b9719d911017c592", SizeBytes: 5}},
		},
	}
	childDigest := digest.MustNewFunction("main", remoteexecution.DigestFunction_MD5).Compute(mustMarshal(t, child))
	root := &remoteexecution.Directory{
		Directories: []*remoteexecution.DirectoryNode{
			{Name: "a", Digest: childDigest.GetProto()},
			{Name: "b", Digest: childDigest.GetProto()},
		},
	}
	rootDigest := digest.MustNewFunction("main", remoteexecution.DigestFunction_MD5).Compute(mustMarshal(t, root))

	t.Run("Success", func(t *testing.T) {
		// Directories that occur multiple times in the tree are
		// only returned once.
		contentAddressableStorage.EXPECT().Get(gomock.Any(), rootDigest).Return(buffer.NewProtoBufferFromProto(root, buffer.UserProvided))
		contentAddressableStorage.EXPECT().Get(gomock.Any(), childDigest).Return(buffer.NewProtoBufferFromProto(child, buffer.UserProvided))

		stream, err := client.GetTree(ctx, &remoteexecution.GetTreeRequest{
			InstanceName:   "main",
			RootDigest:     rootDigest.GetProto(),
			DigestFunction: remoteexecution.DigestFunction_MD5,
		})
		require.NoError(t, err)
		response, err := stream.Recv()
		require.NoError(t, err)
		testutil.RequireEqualProto(t, &remoteexecution.GetTreeResponse{
			Directories: []*remoteexecution.Directory{root, child},
		}, response)
		_, err = stream.Recv()
		require.Equal(t, io.EOF, err)
	})

	t.Run("MissingDirectory", func(t *testing.T) {
		contentAddressableStorage.EXPECT().Get(gomock.Any(), rootDigest).Return(buffer.NewBufferFromError(status.Error(codes.NotFound, "Blob not found")))

		stream, err := client.GetTree(ctx, &remoteexecution.GetTreeRequest{
			InstanceName:   "main",
			RootDigest:     rootDigest.GetProto(),
			DigestFunction: remoteexecution.DigestFunction_MD5,
		})
		require.NoError(t, err)
		_, err = stream.Recv()
		testutil.RequireEqualStatus(t, status.Errorf(codes.NotFound, "Failed to fetch directory %#v: Blob not found", rootDigest.String()), err)
	})
}
