package local_test

import (
	"context"
	"testing"

	remoteexecution "github.com/bazelbuild/remote-apis/build/bazel/remote/execution/v2"
	"github.com/buildbarn/bb-fleet/pkg/blobstore"
	"github.com/buildbarn/bb-fleet/pkg/blobstore/buffer"
	"github.com/buildbarn/bb-fleet/pkg/blobstore/local"
	"github.com/buildbarn/bb-fleet/pkg/digest"
	"github.com/buildbarn/bb-fleet/pkg/eviction"
	"github.com/buildbarn/bb-fleet/pkg/testutil"
	"github.com/stretchr/testify/require"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var digestFunction = digest.MustNewFunction("", remoteexecution.DigestFunction_SHA256)

func TestLocalBlobAccessCAS(t *testing.T) {
	ctx := context.Background()
	blobAccess := local.NewLocalBlobAccess(digest.KeyWithoutInstance, blobstore.CASReadBufferFactory, 1, 10, eviction.NewLRUSet[string], "cas_basic")

	helloDigest := digestFunction.Compute([]byte("hello"))
	worldDigest := digestFunction.Compute([]byte("world"))
	abcDigest := digestFunction.Compute([]byte("abc"))

	t.Run("NotFound", func(t *testing.T) {
		_, err := blobAccess.Get(ctx, helloDigest).ToByteSlice(100)
		require.Equal(t, codes.NotFound, status.Code(err))
	})

	t.Run("PutAndGet", func(t *testing.T) {
		require.NoError(t, blobAccess.Put(ctx, helloDigest, buffer.NewValidatedBufferFromByteSlice([]byte("hello"))))
		require.NoError(t, blobAccess.Put(ctx, worldDigest, buffer.NewValidatedBufferFromByteSlice([]byte("world"))))

		data, err := blobAccess.Get(ctx, helloDigest).ToByteSlice(100)
		require.NoError(t, err)
		require.Equal(t, []byte("hello"), data)

		missing, err := blobAccess.FindMissing(ctx, digest.NewSetBuilder().Add(helloDigest).Add(worldDigest).Add(abcDigest).Build())
		require.NoError(t, err)
		require.Equal(t, abcDigest.ToSingletonSet(), missing)
	})

	t.Run("Eviction", func(t *testing.T) {
		// "hello" was touched more recently than "world", meaning
		// that the latter is evicted to make room for "abc".
		_, err := blobAccess.Get(ctx, helloDigest).ToByteSlice(100)
		require.NoError(t, err)
		require.NoError(t, blobAccess.Put(ctx, abcDigest, buffer.NewValidatedBufferFromByteSlice([]byte("abc"))))

		missing, err := blobAccess.FindMissing(ctx, digest.NewSetBuilder().Add(helloDigest).Add(worldDigest).Add(abcDigest).Build())
		require.NoError(t, err)
		require.Equal(t, worldDigest.ToSingletonSet(), missing)
	})

	t.Run("DeleteAndReinsert", func(t *testing.T) {
		require.NoError(t, blobAccess.Delete(ctx, helloDigest))
		require.NoError(t, blobAccess.Delete(ctx, helloDigest))
		missing, err := blobAccess.FindMissing(ctx, helloDigest.ToSingletonSet())
		require.NoError(t, err)
		require.Equal(t, helloDigest.ToSingletonSet(), missing)

		require.NoError(t, blobAccess.Put(ctx, helloDigest, buffer.NewValidatedBufferFromByteSlice([]byte("hello"))))
		data, err := blobAccess.Get(ctx, helloDigest).ToByteSlice(100)
		require.NoError(t, err)
		require.Equal(t, []byte("hello"), data)
	})

	t.Run("TooLarge", func(t *testing.T) {
		largeDigest := digestFunction.Compute([]byte("hello world"))
		err := blobAccess.Put(ctx, largeDigest, buffer.NewValidatedBufferFromByteSlice([]byte("hello world")))
		testutil.RequireEqualStatus(t, status.Error(codes.InvalidArgument, "Buffer is 11 bytes in size, while a maximum of 10 bytes is permitted"), err)
	})

	t.Run("Corrupted", func(t *testing.T) {
		// Data that does not match its digest must be reported
		// as an internal error and removed from storage.
		corruptedDigest := digestFunction.Compute([]byte("xyz"))
		require.NoError(t, blobAccess.Put(ctx, corruptedDigest, buffer.NewValidatedBufferFromByteSlice([]byte("xyy"))))
		_, err := blobAccess.Get(ctx, corruptedDigest).ToByteSlice(100)
		require.Equal(t, codes.Internal, status.Code(err))

		missing, err := blobAccess.FindMissing(ctx, corruptedDigest.ToSingletonSet())
		require.NoError(t, err)
		require.Equal(t, corruptedDigest.ToSingletonSet(), missing)
	})
}

func TestLocalBlobAccessAC(t *testing.T) {
	ctx := context.Background()
	blobAccess := local.NewLocalBlobAccess(digest.KeyWithInstance, blobstore.ACReadBufferFactory, 4, 1<<20, eviction.NewFIFOSet[string], "ac_basic")

	actionDigest := digest.MustNewDigest("linux", remoteexecution.DigestFunction_SHA256, "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824", 5)
	otherInstanceDigest := digest.MustNewDigest("windows", remoteexecution.DigestFunction_SHA256, "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824", 5)
	actionResult := &remoteexecution.ActionResult{
		ExitCode:  0,
		StdoutRaw: []byte("hello\n"),
	}

	require.NoError(t, blobAccess.Put(ctx, actionDigest, buffer.NewProtoBufferFromProto(actionResult, buffer.UserProvided)))

	m, err := blobAccess.Get(ctx, actionDigest).ToProto(&remoteexecution.ActionResult{}, 1000)
	require.NoError(t, err)
	testutil.RequireEqualProto(t, actionResult, m)

	// Entries are keyed by instance name.
	_, err = blobAccess.Get(ctx, otherInstanceDigest).ToProto(&remoteexecution.ActionResult{}, 1000)
	require.Equal(t, codes.NotFound, status.Code(err))
}
