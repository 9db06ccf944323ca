package client_test

import (
	"testing"

	remoteexecution "github.com/bazelbuild/remote-apis/build/bazel/remote/execution/v2"
	"github.com/buildbarn/bb-fleet/pkg/client"
	"github.com/buildbarn/bb-fleet/pkg/digest"
	"github.com/buildbarn/bb-fleet/pkg/testutil"
	"github.com/stretchr/testify/require"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"
)

func requireDirectory(t *testing.T, inputRoot *client.InputRoot, expected *remoteexecution.Directory, directoryDigest digest.Digest) {
	t.Helper()
	data, ok := inputRoot.Blobs[directoryDigest]
	require.True(t, ok)
	var directory remoteexecution.Directory
	require.NoError(t, proto.Unmarshal(data, &directory))
	testutil.RequireEqualProto(t, expected, &directory)
}

func TestInputRootBuilder(t *testing.T) {
	t.Run("Empty", func(t *testing.T) {
		inputRoot, err := client.NewInputRootBuilder().Build(digestFunction)
		require.NoError(t, err)
		require.Equal(t, digestFunction.GetEmptyDigest(), inputRoot.Digest)
	})

	t.Run("Nested", func(t *testing.T) {
		// Entries are added out of order, while Directory
		// messages need to list them sorted by name.
		builder := client.NewInputRootBuilder()
		require.NoError(t, builder.AddFile("src/main.c", []byte("int main() {}"), false))
		require.NoError(t, builder.AddFile("build.sh", []byte("#!/bin/sh"), true))
		require.NoError(t, builder.AddSymlink("src/link", "main.c"))
		require.NoError(t, builder.AddFile("src/a.h", []byte("#pragma once"), false))
		require.NoError(t, builder.AddDirectory("out"))
		inputRoot, err := builder.Build(digestFunction)
		require.NoError(t, err)

		src := &remoteexecution.Directory{
			Files: []*remoteexecution.FileNode{
				{Name: "a.h", Digest: digestFunction.Compute([]byte("#pragma once")).GetProto()},
				{Name: "main.c", Digest: digestFunction.Compute([]byte("int main() {}")).GetProto()},
			},
			Symlinks: []*remoteexecution.SymlinkNode{
				{Name: "link", Target: "main.c"},
			},
		}
		srcData, err := proto.MarshalOptions{Deterministic: true}.Marshal(src)
		require.NoError(t, err)
		srcDigest := digestFunction.Compute(srcData)
		requireDirectory(t, inputRoot, src, srcDigest)

		root := &remoteexecution.Directory{
			Files: []*remoteexecution.FileNode{
				{Name: "build.sh", Digest: digestFunction.Compute([]byte("#!/bin/sh")).GetProto(), IsExecutable: true},
			},
			Directories: []*remoteexecution.DirectoryNode{
				{Name: "out", Digest: digestFunction.GetEmptyDigest().GetProto()},
				{Name: "src", Digest: srcDigest.GetProto()},
			},
		}
		requireDirectory(t, inputRoot, root, inputRoot.Digest)
		require.Equal(t, []byte("int main() {}"), inputRoot.Blobs[digestFunction.Compute([]byte("int main() {}"))])
	})

	t.Run("Deterministic", func(t *testing.T) {
		build := func(paths ...string) digest.Digest {
			builder := client.NewInputRootBuilder()
			for _, p := range paths {
				require.NoError(t, builder.AddFile(p, []byte(p), false))
			}
			inputRoot, err := builder.Build(digestFunction)
			require.NoError(t, err)
			return inputRoot.Digest
		}
		require.Equal(t, build("a/b", "a/c", "d"), build("d", "a/c", "a/b"))
	})

	t.Run("InvalidPaths", func(t *testing.T) {
		builder := client.NewInputRootBuilder()
		for _, p := range []string{"", ".", "..", "../escape", "/absolute"} {
			testutil.RequireEqualStatus(
				t,
				status.Errorf(codes.InvalidArgument, "Path %#v does not refer to a location inside the input root", p),
				builder.AddFile(p, nil, false))
		}
	})

	t.Run("Conflicts", func(t *testing.T) {
		builder := client.NewInputRootBuilder()
		require.NoError(t, builder.AddFile("file", []byte("Hello"), false))
		testutil.RequireEqualStatus(
			t,
			status.Error(codes.AlreadyExists, "Path \"file\" already exists in the input root"),
			builder.AddSymlink("file", "target"))
		testutil.RequireEqualStatus(
			t,
			status.Error(codes.InvalidArgument, "Path \"file/child\" traverses through a file or symbolic link"),
			builder.AddFile("file/child", []byte("Hello"), false))
	})
}
