package grpcclients_test

import (
	"context"
	"net"
	"strings"
	"testing"

	remoteexecution "github.com/bazelbuild/remote-apis/build/bazel/remote/execution/v2"
	"github.com/buildbarn/bb-fleet/pkg/auth"
	"github.com/buildbarn/bb-fleet/pkg/blobstore"
	"github.com/buildbarn/bb-fleet/pkg/blobstore/buffer"
	"github.com/buildbarn/bb-fleet/pkg/blobstore/grpcclients"
	"github.com/buildbarn/bb-fleet/pkg/blobstore/grpcservers"
	"github.com/buildbarn/bb-fleet/pkg/blobstore/local"
	"github.com/buildbarn/bb-fleet/pkg/digest"
	"github.com/buildbarn/bb-fleet/pkg/eviction"
	"github.com/buildbarn/bb-fleet/pkg/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"google.golang.org/genproto/googleapis/bytestream"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

// newStorageConnection starts CAS, ByteStream and Action Cache servers
// backed by in-memory storage, returning a client connection to them.
func newStorageConnection(t *testing.T) grpc.ClientConnInterface {
	contentAddressableStorage := local.NewLocalBlobAccess(digest.KeyWithoutInstance, blobstore.CASReadBufferFactory, 4, 1<<20, eviction.NewLRUSet[string], "grpcclients_cas")
	actionCache := local.NewLocalBlobAccess(digest.KeyWithInstance, blobstore.ACReadBufferFactory, 4, 1<<20, eviction.NewLRUSet[string], "grpcclients_ac")

	l := bufconn.Listen(1 << 20)
	server := grpc.NewServer()
	remoteexecution.RegisterContentAddressableStorageServer(server, grpcservers.NewContentAddressableStorageServer(contentAddressableStorage, 1<<16))
	bytestream.RegisterByteStreamServer(server, grpcservers.NewByteStreamServer(contentAddressableStorage, 1<<10))
	remoteexecution.RegisterActionCacheServer(server, grpcservers.NewActionCacheServer(actionCache, contentAddressableStorage, auth.NewStaticAuthorizer(func(digest.InstanceName) bool { return true }), grpcservers.TrustPolicyReject, 1<<16))
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
	return conn
}

func TestCASBlobAccess(t *testing.T) {
	ctx := context.Background()
	conn := newStorageConnection(t)
	digestFunction := digest.MustNewFunction("main", remoteexecution.DigestFunction_SHA256)

	for name, enableZSTDCompression := range map[string]bool{"Identity": false, "Zstd": true} {
		t.Run(name, func(t *testing.T) {
			blobAccess := grpcclients.NewCASBlobAccess(conn, uuid.NewRandom, 100, enableZSTDCompression)
			largeData := []byte(strings.Repeat(name, 1000))
			largeDigest := digestFunction.Compute(largeData)

			missing, err := blobAccess.FindMissing(ctx, largeDigest.ToSingletonSet())
			require.NoError(t, err)
			require.Equal(t, largeDigest.ToSingletonSet(), missing)

			require.NoError(t, blobAccess.Put(ctx, largeDigest, buffer.NewValidatedBufferFromByteSlice(largeData)))

			missing, err = blobAccess.FindMissing(ctx, largeDigest.ToSingletonSet())
			require.NoError(t, err)
			require.Equal(t, digest.EmptySet, missing)

			data, err := blobAccess.Get(ctx, largeDigest).ToByteSlice(len(largeData))
			require.NoError(t, err)
			require.Equal(t, largeData, data)

			// The server validates uploads against the digest.
			badDigest := digestFunction.Compute([]byte("Hello"))
			err = blobAccess.Put(ctx, badDigest, buffer.NewValidatedBufferFromByteSlice([]byte("World")))
			require.Equal(t, codes.InvalidArgument, status.Code(err))

			_, err = blobAccess.Get(ctx, digestFunction.Compute([]byte("Nonexistent"))).ToByteSlice(100)
			require.Error(t, err)
			if !enableZSTDCompression {
				require.Equal(t, codes.NotFound, status.Code(err))
			}
		})
	}
}

func TestACBlobAccess(t *testing.T) {
	ctx := context.Background()
	blobAccess := grpcclients.NewACBlobAccess(newStorageConnection(t), 1<<16)
	actionDigest := digest.MustNewFunction("main", remoteexecution.DigestFunction_SHA256).Compute([]byte("action"))
	actionResult := &remoteexecution.ActionResult{
		ExitCode:  1,
		StderrRaw: []byte("failure\n"),
	}

	_, err := blobAccess.Get(ctx, actionDigest).ToProto(&remoteexecution.ActionResult{}, 1<<16)
	require.Equal(t, codes.NotFound, status.Code(err))

	require.NoError(t, blobAccess.Put(ctx, actionDigest, buffer.NewProtoBufferFromProto(actionResult, buffer.UserProvided)))

	m, err := blobAccess.Get(ctx, actionDigest).ToProto(&remoteexecution.ActionResult{}, 1<<16)
	require.NoError(t, err)
	testutil.RequireEqualProto(t, actionResult, m)

	_, err = blobAccess.FindMissing(ctx, actionDigest.ToSingletonSet())
	testutil.RequireEqualStatus(t, status.Error(codes.Unimplemented, "The Action Cache does not support bulk existence checking"), err)
}
