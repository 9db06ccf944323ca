package grpcservers_test

import (
	"bytes"
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

	"google.golang.org/genproto/googleapis/bytestream"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"go.uber.org/mock/gomock"
)

func newByteStreamClient(t *testing.T, ctrl *gomock.Controller) (bytestream.ByteStreamClient, *mock.MockBlobAccess) {
	l := bufconn.Listen(1 << 20)
	server := grpc.NewServer()
	blobAccess := mock.NewMockBlobAccess(ctrl)
	bytestream.RegisterByteStreamServer(server, grpcservers.NewByteStreamServer(blobAccess, 10))
	go server.Serve(l)
	t.Cleanup(server.Stop)

	conn, err := grpc.NewClient(
		"passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return l.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return bytestream.NewByteStreamClient(conn), blobAccess
}

func readAll(t *testing.T, stream bytestream.ByteStream_ReadClient) ([][]byte, error) {
	var chunks [][]byte
	for {
		response, err := stream.Recv()
		if err == io.EOF {
			return chunks, nil
		}
		if err != nil {
			return chunks, err
		}
		chunks = append(chunks, response.Data)
	}
}

func TestByteStreamServerRead(t *testing.T) {
	ctrl, ctx := gomock.WithContext(context.Background(), t)
	client, blobAccess := newByteStreamClient(t, ctrl)

	t.Run("BadResourceName", func(t *testing.T) {
		stream, err := client.Read(ctx, &bytestream.ReadRequest{
			ResourceName: "This is an incorrect resource name",
		})
		require.NoError(t, err)
		_, err = readAll(t, stream)
		testutil.RequireEqualStatus(t, status.Error(codes.InvalidArgument, "Invalid resource naming scheme"), err)
	})

	t.Run("UnknownDigestFunction", func(t *testing.T) {
		stream, err := client.Read(ctx, &bytestream.ReadRequest{
			ResourceName: "blobs/cafebabe/12",
		})
		require.NoError(t, err)
		_, err = readAll(t, stream)
		testutil.RequireEqualStatus(t, status.Error(codes.InvalidArgument, "Unknown digest function"), err)
	})

	t.Run("UppercaseHash", func(t *testing.T) {
		stream, err := client.Read(ctx, &bytestream.ReadRequest{
			ResourceName: "blobs/89D5739BAABBBE65BE35CBE61C88E06D/12",
		})
		require.NoError(t, err)
		_, err = readAll(t, stream)
		testutil.RequireEqualStatus(t, status.Error(codes.InvalidArgument, "Non-hexadecimal character in digest hash: U+0044 'D'"), err)
	})

	t.Run("NegativeSize", func(t *testing.T) {
		stream, err := client.Read(ctx, &bytestream.ReadRequest{
			ResourceName: "blobs/e811818f80d9c3c22d577ba83d6196788e553bb408535bb42105cdff726a60ab/-42",
		})
		require.NoError(t, err)
		_, err = readAll(t, stream)
		testutil.RequireEqualStatus(t, status.Error(codes.InvalidArgument, "Invalid digest size: -42 bytes"), err)
	})

	t.Run("Chunked", func(t *testing.T) {
		// Blobs are returned in chunks of at most ten bytes.
		blobAccess.EXPECT().Get(
			gomock.Any(),
			digest.MustNewDigest("debian12", remoteexecution.DigestFunction_MD5, "3538d378083b9afa5ffad767f7269509", 22),
		).Return(buffer.NewValidatedBufferFromByteSlice([]byte("This is a long message")))

		stream, err := client.Read(ctx, &bytestream.ReadRequest{
			ResourceName: "debian12/blobs/3538d378083b9afa5ffad767f7269509/22",
		})
		require.NoError(t, err)
		chunks, err := readAll(t, stream)
		require.NoError(t, err)
		require.Equal(t, [][]byte{
			[]byte("This is a "),
			[]byte("long messa"),
			[]byte("ge"),
		}, chunks)
	})

	t.Run("Offset", func(t *testing.T) {
		blobAccess.EXPECT().Get(
			gomock.Any(),
			digest.MustNewDigest("ubuntu2404", remoteexecution.DigestFunction_MD5, "da39a3ee5e6b4b0d3255bfef95601890", 19),
		).Return(buffer.NewValidatedBufferFromByteSlice([]byte("This offset message")))

		stream, err := client.Read(ctx, &bytestream.ReadRequest{
			ResourceName: "ubuntu2404/blobs/da39a3ee5e6b4b0d3255bfef95601890/19",
			ReadOffset:   4,
		})
		require.NoError(t, err)
		chunks, err := readAll(t, stream)
		require.NoError(t, err)
		require.Equal(t, [][]byte{
			[]byte(" offset me"),
			[]byte("ssage"),
		}, chunks)
	})

	t.Run("NegativeOffset", func(t *testing.T) {
		blobAccess.EXPECT().Get(
			gomock.Any(),
			digest.MustNewDigest("ubuntu2404", remoteexecution.DigestFunction_MD5, "6fc422233a40a75a1f028e11c3cd1140", 7),
		).Return(buffer.NewValidatedBufferFromByteSlice([]byte("Goodbye")))

		stream, err := client.Read(ctx, &bytestream.ReadRequest{
			ResourceName: "ubuntu2404/blobs/6fc422233a40a75a1f028e11c3cd1140/7",
			ReadOffset:   -4,
		})
		require.NoError(t, err)
		_, err = readAll(t, stream)
		testutil.RequireEqualStatus(t, status.Error(codes.InvalidArgument, "Negative read offset: -4"), err)
	})

	t.Run("OffsetBeyondEnd", func(t *testing.T) {
		blobAccess.EXPECT().Get(
			gomock.Any(),
			digest.MustNewDigest("ubuntu2404", remoteexecution.DigestFunction_MD5, "ad3c8ac9eef32188da352082244b3598", 13),
		).Return(buffer.NewValidatedBufferFromByteSlice([]byte("short message")))

		stream, err := client.Read(ctx, &bytestream.ReadRequest{
			ResourceName: "ubuntu2404/blobs/ad3c8ac9eef32188da352082244b3598/13",
			ReadOffset:   100,
		})
		require.NoError(t, err)
		_, err = readAll(t, stream)
		testutil.RequireEqualStatus(t, status.Error(codes.InvalidArgument, "Buffer is 13 bytes in size, while a read at offset 100 was requested"), err)
	})

	t.Run("NotFound", func(t *testing.T) {
		blobAccess.EXPECT().Get(
			gomock.Any(),
			digest.MustNewDigest("fedora40", remoteexecution.DigestFunction_MD5, "09f34d28e9c8bb445ec996388968a9e8", 7),
		).Return(buffer.NewBufferFromError(status.Error(codes.NotFound, "Blob not found")))

		stream, err := client.Read(ctx, &bytestream.ReadRequest{
			ResourceName: "///fedora40//blobs/09f34d28e9c8bb445ec996388968a9e8/////7/",
		})
		require.NoError(t, err)
		_, err = readAll(t, stream)
		testutil.RequireEqualStatus(t, status.Error(codes.NotFound, "Blob not found"), err)
	})

	t.Run("Zstd", func(t *testing.T) {
		blobAccess.EXPECT().Get(
			gomock.Any(),
			digest.MustNewDigest("", remoteexecution.DigestFunction_MD5, "8b1a9953c4611296a827abf8c47804d7", 5),
		).Return(buffer.NewValidatedBufferFromByteSlice([]byte("Hello")))

		stream, err := client.Read(ctx, &bytestream.ReadRequest{
			ResourceName: "compressed-blobs/zstd/8b1a9953c4611296a827abf8c47804d7/5",
		})
		require.NoError(t, err)
		chunks, err := readAll(t, stream)
		require.NoError(t, err)

		decoder, err := zstd.NewReader(nil)
		require.NoError(t, err)
		defer decoder.Close()
		data, err := decoder.DecodeAll(bytes.Join(chunks, nil), nil)
		require.NoError(t, err)
		require.Equal(t, []byte("Hello"), data)
	})
}

func TestByteStreamServerWrite(t *testing.T) {
	ctrl, ctx := gomock.WithContext(context.Background(), t)
	client, blobAccess := newByteStreamClient(t, ctrl)

	t.Run("BadResourceName", func(t *testing.T) {
		stream, err := client.Write(ctx)
		require.NoError(t, err)
		require.NoError(t, stream.Send(&bytestream.WriteRequest{
			ResourceName: "This is an incorrect resource name",
			Data:         []byte("Bleep bloop!"),
		}))
		_, err = stream.CloseAndRecv()
		testutil.RequireEqualStatus(t, status.Error(codes.InvalidArgument, "Invalid resource naming scheme"), err)
	})

	t.Run("Success", func(t *testing.T) {
		written := make(chan []byte, 1)
		blobAccess.EXPECT().Put(
			gomock.Any(),
			digest.MustNewDigest("", remoteexecution.DigestFunction_MD5, "581c1053f832a1c719fb6528a588ccfd", 14),
			gomock.Any(),
		).DoAndReturn(func(ctx context.Context, digest digest.Digest, b buffer.Buffer) error {
			// Put() runs on the server's goroutine. Report the
			// data to the test instead of asserting on it here.
			data, err := b.ToByteSlice(100)
			written <- data
			return err
		})

		stream, err := client.Write(ctx)
		require.NoError(t, err)
		require.NoError(t, stream.Send(&bytestream.WriteRequest{
			ResourceName: "uploads/7de747e0-ab6b-4d83-90cb-11989f84c473/blobs/581c1053f832a1c719fb6528a588ccfd/14",
			Data:         []byte("Laputan"),
		}))
		require.NoError(t, stream.Send(&bytestream.WriteRequest{
			Data:        []byte("Machine"),
			WriteOffset: 7,
			FinishWrite: true,
		}))
		response, err := stream.CloseAndRecv()
		require.NoError(t, err)
		require.Equal(t, int64(14), response.CommittedSize)
		require.Equal(t, []byte("LaputanMachine"), <-written)
	})

	t.Run("WithoutFinish", func(t *testing.T) {
		blobAccess.EXPECT().Put(
			gomock.Any(),
			digest.MustNewDigest("", remoteexecution.DigestFunction_SHA1, "f10e562d8825ec2e17e0d9f58646f8084a658cfa", 6),
			gomock.Any(),
		).DoAndReturn(func(ctx context.Context, digest digest.Digest, b buffer.Buffer) error {
			_, err := b.ToByteSlice(100)
			return err
		})

		stream, err := client.Write(ctx)
		require.NoError(t, err)
		require.NoError(t, stream.Send(&bytestream.WriteRequest{
			ResourceName: "uploads/497a9982-9d2a-4a29-95b8-28bd971bce1d/blobs/f10e562d8825ec2e17e0d9f58646f8084a658cfa/6",
			Data:         []byte("Foo"),
		}))
		_, err = stream.CloseAndRecv()
		testutil.RequireEqualStatus(t, status.Error(codes.InvalidArgument, "Client closed stream without finishing write"), err)
	})

	t.Run("FinishTwice", func(t *testing.T) {
		blobAccess.EXPECT().Put(
			gomock.Any(),
			digest.MustNewDigest("fedora40", remoteexecution.DigestFunction_MD5, "cbd8f7984c654c25512e3d9241ae569f", 3),
			gomock.Any(),
		).DoAndReturn(func(ctx context.Context, digest digest.Digest, b buffer.Buffer) error {
			_, err := b.ToByteSlice(100)
			return err
		})

		stream, err := client.Write(ctx)
		require.NoError(t, err)
		require.NoError(t, stream.Send(&bytestream.WriteRequest{
			ResourceName: "fedora40/uploads/d834d9c2-f3c9-4f30-a698-75fd4be9470d/blobs/cbd8f7984c654c25512e3d9241ae569f/3",
			Data:         []byte("Foo"),
			FinishWrite:  true,
		}))
		require.NoError(t, stream.Send(&bytestream.WriteRequest{
			Data:        []byte("Bar"),
			WriteOffset: 3,
			FinishWrite: true,
		}))
		_, err = stream.CloseAndRecv()
		testutil.RequireEqualStatus(t, status.Error(codes.InvalidArgument, "Client closed stream twice"), err)
	})

	t.Run("BadOffset", func(t *testing.T) {
		blobAccess.EXPECT().Put(
			gomock.Any(),
			digest.MustNewDigest("windows11", remoteexecution.DigestFunction_MD5, "68e109f0f40ca72a15e05cc22786f8e6", 10),
			gomock.Any(),
		).DoAndReturn(func(ctx context.Context, digest digest.Digest, b buffer.Buffer) error {
			_, err := b.ToByteSlice(100)
			return err
		})

		stream, err := client.Write(ctx)
		require.NoError(t, err)
		require.NoError(t, stream.Send(&bytestream.WriteRequest{
			ResourceName: "windows11/uploads/d834d9c2-f3c9-4f30-a698-75fd4be9470d/blobs/68e109f0f40ca72a15e05cc22786f8e6/10",
			Data:         []byte("Hello"),
		}))
		require.NoError(t, stream.Send(&bytestream.WriteRequest{
			Data:        []byte("World"),
			WriteOffset: 4,
			FinishWrite: true,
		}))
		_, err = stream.CloseAndRecv()
		testutil.RequireEqualStatus(t, status.Error(codes.InvalidArgument, "Attempted to write at offset 4, while 5 was expected"), err)
	})

	t.Run("Zstd", func(t *testing.T) {
		encoder, err := zstd.NewWriter(nil)
		require.NoError(t, err)
		compressed := encoder.EncodeAll([]byte("Hello"), nil)
		require.NoError(t, encoder.Close())
		written := make(chan []byte, 1)

		blobAccess.EXPECT().Put(
			gomock.Any(),
			digest.MustNewDigest("", remoteexecution.DigestFunction_MD5, "8b1a9953c4611296a827abf8c47804d7", 5),
			gomock.Any(),
		).DoAndReturn(func(ctx context.Context, digest digest.Digest, b buffer.Buffer) error {
			data, err := b.ToByteSlice(100)
			written <- data
			return err
		})

		stream, err := client.Write(ctx)
		require.NoError(t, err)
		require.NoError(t, stream.Send(&bytestream.WriteRequest{
			ResourceName: "uploads/d834d9c2-f3c9-4f30-a698-75fd4be9470d/compressed-blobs/zstd/8b1a9953c4611296a827abf8c47804d7/5",
			Data:         compressed,
			FinishWrite:  true,
		}))
		response, err := stream.CloseAndRecv()
		require.NoError(t, err)
		require.Equal(t, int64(len(compressed)), response.CommittedSize)
		require.Equal(t, []byte("Hello"), <-written)
	})

	t.Run("QueryWriteStatus", func(t *testing.T) {
		_, err := client.QueryWriteStatus(ctx, &bytestream.QueryWriteStatusRequest{
			ResourceName: "windows11/uploads/d834d9c2-f3c9-4f30-a698-75fd4be9470d/blobs/68e109f0f40ca72a15e05cc22786f8e6/10",
		})
		testutil.RequireEqualStatus(t, status.Error(codes.Unimplemented, "This service does not support querying write status"), err)
	})
}
