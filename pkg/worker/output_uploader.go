package worker

import (
	"context"
	"os"
	"path"
	"strings"

	remoteexecution "github.com/bazelbuild/remote-apis/build/bazel/remote/execution/v2"
	"github.com/buildbarn/bb-fleet/pkg/cas"
	"github.com/buildbarn/bb-fleet/pkg/digest"
	"github.com/buildbarn/bb-fleet/pkg/filesystem"
	"github.com/buildbarn/bb-fleet/pkg/util"

	"golang.org/x/sync/errgroup"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"
)

// outputUploader captures the outputs of a build action and stores
// them in the Content Addressable Storage. Outputs are first digested,
// after which only the ones that are absent from the Content
// Addressable Storage are uploaded.
type outputUploader struct {
	contentAddressableStorage cas.ContentAddressableStorage
	digestFunction            digest.Function
	uploads                   map[digest.Digest]func(ctx context.Context) error
	openDirectories           []filesystem.DirectoryCloser
}

func newOutputUploader(contentAddressableStorage cas.ContentAddressableStorage, digestFunction digest.Function) *outputUploader {
	return &outputUploader{
		contentAddressableStorage: contentAddressableStorage,
		digestFunction:            digestFunction,
		uploads:                   map[digest.Digest]func(ctx context.Context) error{},
	}
}

// Close releases directory handles that were kept open to upload
// files contained in them.
func (u *outputUploader) Close() {
	for _, d := range u.openDirectories {
		d.Close()
	}
	u.openDirectories = nil
}

func (u *outputUploader) addFile(directory filesystem.Directory, name string) (digest.Digest, error) {
	fileDigest, err := u.contentAddressableStorage.DigestFile(directory, name, u.digestFunction)
	if err != nil {
		return digest.BadDigest, err
	}
	u.uploads[fileDigest] = func(ctx context.Context) error {
		return u.contentAddressableStorage.PutFile(ctx, fileDigest, directory, name)
	}
	return fileDigest, nil
}

func (u *outputUploader) addMessage(m proto.Message) (digest.Digest, error) {
	data, err := proto.MarshalOptions{Deterministic: true}.Marshal(m)
	if err != nil {
		return digest.BadDigest, util.StatusWrapWithCode(err, codes.Internal, "Failed to marshal message")
	}
	messageDigest := u.digestFunction.Compute(data)
	u.uploads[messageDigest] = func(ctx context.Context) error {
		return u.contentAddressableStorage.PutMessage(ctx, messageDigest, data)
	}
	return messageDigest, nil
}

// addDirectory converts a directory in the build directory to a
// Directory message. Its children are appended to the provided Tree.
func (u *outputUploader) addDirectory(directory filesystem.Directory, directoryPath string, tree *remoteexecution.Tree) (*remoteexecution.Directory, error) {
	entries, err := directory.ReadDir()
	if err != nil {
		return nil, util.StatusWrapf(err, "Failed to read output directory %#v", directoryPath)
	}
	var contents remoteexecution.Directory
	for _, entry := range entries {
		name := entry.Name()
		childPath := path.Join(directoryPath, name)
		switch entry.Type() {
		case filesystem.FileTypeRegularFile, filesystem.FileTypeExecutableFile:
			fileDigest, err := u.addFile(directory, name)
			if err != nil {
				return nil, util.StatusWrapf(err, "Failed to digest output file %#v", childPath)
			}
			contents.Files = append(contents.Files, &remoteexecution.FileNode{
				Name:         name,
				Digest:       fileDigest.GetProto(),
				IsExecutable: entry.Type() == filesystem.FileTypeExecutableFile,
			})
		case filesystem.FileTypeDirectory:
			childDirectory, err := directory.EnterDirectory(name)
			if err != nil {
				return nil, util.StatusWrapf(err, "Failed to enter output directory %#v", childPath)
			}
			u.openDirectories = append(u.openDirectories, childDirectory)
			child, err := u.addDirectory(childDirectory, childPath, tree)
			if err != nil {
				return nil, err
			}
			data, err := proto.MarshalOptions{Deterministic: true}.Marshal(child)
			if err != nil {
				return nil, util.StatusWrapWithCode(err, codes.Internal, "Failed to marshal directory")
			}
			tree.Children = append(tree.Children, child)
			contents.Directories = append(contents.Directories, &remoteexecution.DirectoryNode{
				Name:   name,
				Digest: u.digestFunction.Compute(data).GetProto(),
			})
		case filesystem.FileTypeSymlink:
			target, err := directory.Readlink(name)
			if err != nil {
				return nil, util.StatusWrapf(err, "Failed to read output symlink %#v", childPath)
			}
			contents.Symlinks = append(contents.Symlinks, &remoteexecution.SymlinkNode{
				Name:   name,
				Target: target,
			})
		default:
			return nil, status.Errorf(codes.InvalidArgument, "Output %#v has an unsupported file type", childPath)
		}
	}
	return &contents, nil
}

// outputLocation is the parent directory and filename of an output of
// a build action.
type outputLocation struct {
	directory filesystem.Directory
	name      string
}

// resolveOutput looks up the parent directory of an output path,
// relative to the input root. Symbolic links in parent directories are
// not followed. If the output's parent directory does not exist, no
// location is returned.
func (u *outputUploader) resolveOutput(inputRoot filesystem.Directory, workingDirectory, outputPath string) (*outputLocation, error) {
	fullPath := path.Clean(path.Join(workingDirectory, outputPath))
	if fullPath == "." || path.IsAbs(outputPath) || fullPath == ".." || strings.HasPrefix(fullPath, "../") {
		return nil, status.Errorf(codes.InvalidArgument, "Output path %#v resolves to a location outside the input root", outputPath)
	}
	components := strings.Split(fullPath, "/")
	directory := inputRoot
	for _, component := range components[:len(components)-1] {
		childDirectory, err := directory.EnterDirectory(component)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, nil
			}
			return nil, util.StatusWrapf(err, "Failed to enter parent directory of output %#v", outputPath)
		}
		u.openDirectories = append(u.openDirectories, childDirectory)
		directory = childDirectory
	}
	return &outputLocation{
		directory: directory,
		name:      components[len(components)-1],
	}, nil
}

type outputKind int

const (
	// Output declared through output_paths, which may be of any type.
	outputKindAny outputKind = iota
	outputKindFile
	outputKindDirectory
)

func (u *outputUploader) addOutput(inputRoot filesystem.Directory, workingDirectory, outputPath string, kind outputKind, actionResult *remoteexecution.ActionResult) error {
	location, err := u.resolveOutput(inputRoot, workingDirectory, outputPath)
	if err != nil || location == nil {
		return err
	}
	info, err := location.directory.Lstat(location.name)
	if err != nil {
		if os.IsNotExist(err) {
			// Outputs that are not created are omitted.
			return nil
		}
		return util.StatusWrapf(err, "Failed to inspect output %#v", outputPath)
	}

	switch fileType := info.Type(); fileType {
	case filesystem.FileTypeRegularFile, filesystem.FileTypeExecutableFile:
		if kind == outputKindDirectory {
			return status.Errorf(codes.InvalidArgument, "Output directory %#v is not a directory", outputPath)
		}
		fileDigest, err := u.addFile(location.directory, location.name)
		if err != nil {
			return util.StatusWrapf(err, "Failed to digest output file %#v", outputPath)
		}
		actionResult.OutputFiles = append(actionResult.OutputFiles, &remoteexecution.OutputFile{
			Path:         outputPath,
			Digest:       fileDigest.GetProto(),
			IsExecutable: fileType == filesystem.FileTypeExecutableFile,
		})
	case filesystem.FileTypeDirectory:
		if kind == outputKindFile {
			return status.Errorf(codes.InvalidArgument, "Output file %#v is a directory", outputPath)
		}
		directory, err := location.directory.EnterDirectory(location.name)
		if err != nil {
			return util.StatusWrapf(err, "Failed to enter output directory %#v", outputPath)
		}
		u.openDirectories = append(u.openDirectories, directory)
		tree := &remoteexecution.Tree{}
		root, err := u.addDirectory(directory, outputPath, tree)
		if err != nil {
			return err
		}
		tree.Root = root
		treeDigest, err := u.addMessage(tree)
		if err != nil {
			return err
		}
		actionResult.OutputDirectories = append(actionResult.OutputDirectories, &remoteexecution.OutputDirectory{
			Path:       outputPath,
			TreeDigest: treeDigest.GetProto(),
		})
	case filesystem.FileTypeSymlink:
		target, err := location.directory.Readlink(location.name)
		if err != nil {
			return util.StatusWrapf(err, "Failed to read output symlink %#v", outputPath)
		}
		symlink := &remoteexecution.OutputSymlink{
			Path:   outputPath,
			Target: target,
		}
		switch kind {
		case outputKindAny:
			actionResult.OutputSymlinks = append(actionResult.OutputSymlinks, symlink)
		case outputKindFile:
			actionResult.OutputFileSymlinks = append(actionResult.OutputFileSymlinks, symlink)
		case outputKindDirectory:
			actionResult.OutputDirectorySymlinks = append(actionResult.OutputDirectorySymlinks, symlink)
		}
	default:
		return status.Errorf(codes.InvalidArgument, "Output %#v has an unsupported file type", outputPath)
	}
	return nil
}

// addOutputs captures all outputs declared by a command.
func (u *outputUploader) addOutputs(inputRoot filesystem.Directory, command *remoteexecution.Command, actionResult *remoteexecution.ActionResult) error {
	if len(command.OutputPaths) > 0 {
		for _, outputPath := range command.OutputPaths {
			if err := u.addOutput(inputRoot, command.WorkingDirectory, outputPath, outputKindAny, actionResult); err != nil {
				return err
			}
		}
		return nil
	}
	for _, outputPath := range command.OutputFiles {
		if err := u.addOutput(inputRoot, command.WorkingDirectory, outputPath, outputKindFile, actionResult); err != nil {
			return err
		}
	}
	for _, outputPath := range command.OutputDirectories {
		if err := u.addOutput(inputRoot, command.WorkingDirectory, outputPath, outputKindDirectory, actionResult); err != nil {
			return err
		}
	}
	return nil
}

// upload stores all captured outputs that are missing from the Content
// Addressable Storage.
func (u *outputUploader) upload(ctx context.Context, concurrency int) error {
	digests := digest.NewSetBuilder()
	for blobDigest := range u.uploads {
		digests.Add(blobDigest)
	}
	missing, err := u.contentAddressableStorage.FindMissing(ctx, digests.Build())
	if err != nil {
		return util.StatusWrap(err, "Failed to determine existence of outputs")
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(concurrency)
	for _, blobDigest := range missing.Items() {
		upload := u.uploads[blobDigest]
		group.Go(func() error {
			if err := upload(groupCtx); err != nil {
				return util.StatusWrapf(err, "Failed to store output %#v", blobDigest.String())
			}
			return nil
		})
	}
	return group.Wait()
}
