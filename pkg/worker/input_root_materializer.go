package worker

import (
	"context"

	"github.com/buildbarn/bb-fleet/pkg/cas"
	"github.com/buildbarn/bb-fleet/pkg/digest"
	"github.com/buildbarn/bb-fleet/pkg/filesystem"
	"github.com/buildbarn/bb-fleet/pkg/util"

	"golang.org/x/sync/errgroup"
)

// inputRootMaterializer populates a build directory with the contents
// of an input root stored in the Content Addressable Storage.
// Directories are created sequentially, while files are downloaded
// concurrently.
type inputRootMaterializer struct {
	contentAddressableStorage cas.ContentAddressableStorage
	digestFunction            digest.Function
	group                     *errgroup.Group
	groupCtx                  context.Context
	openDirectories           []filesystem.DirectoryCloser
}

func materializeInputRoot(ctx context.Context, contentAddressableStorage cas.ContentAddressableStorage, inputRootDigest digest.Digest, directory filesystem.Directory, concurrency int) error {
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(concurrency)
	m := &inputRootMaterializer{
		contentAddressableStorage: contentAddressableStorage,
		digestFunction:            inputRootDigest.GetDigestFunction(),
		group:                     group,
		groupCtx:                  groupCtx,
	}
	err := m.materializeDirectory(inputRootDigest, directory, "")
	if waitErr := group.Wait(); err == nil {
		err = waitErr
	}
	// Directory handles need to remain open until all downloads
	// into them have completed.
	for _, d := range m.openDirectories {
		d.Close()
	}
	return err
}

func (m *inputRootMaterializer) materializeDirectory(directoryDigest digest.Digest, directory filesystem.Directory, path string) error {
	if directoryDigest == m.digestFunction.GetEmptyDigest() {
		return nil
	}
	contents, err := m.contentAddressableStorage.GetDirectory(m.groupCtx, directoryDigest)
	if err != nil {
		return util.StatusWrapf(err, "Failed to obtain input directory %#v", path)
	}

	for _, file := range contents.Files {
		filePath := path + file.Name
		fileDigest, err := m.digestFunction.NewDigestFromProto(file.Digest)
		if err != nil {
			return util.StatusWrapf(err, "Failed to extract digest for input file %#v", filePath)
		}
		isExecutable := file.IsExecutable
		name := file.Name
		m.group.Go(func() error {
			if err := m.contentAddressableStorage.GetFile(m.groupCtx, fileDigest, directory, name, isExecutable); err != nil {
				return util.StatusWrapf(err, "Failed to obtain input file %#v", filePath)
			}
			return nil
		})
	}
	for _, symlink := range contents.Symlinks {
		if err := directory.Symlink(symlink.Target, symlink.Name); err != nil {
			return util.StatusWrapf(err, "Failed to create input symlink %#v", path+symlink.Name)
		}
	}
	for _, child := range contents.Directories {
		childPath := path + child.Name
		childDigest, err := m.digestFunction.NewDigestFromProto(child.Digest)
		if err != nil {
			return util.StatusWrapf(err, "Failed to extract digest for input directory %#v", childPath)
		}
		if err := directory.Mkdir(child.Name, 0o777); err != nil {
			return util.StatusWrapf(err, "Failed to create input directory %#v", childPath)
		}
		childDirectory, err := directory.EnterDirectory(child.Name)
		if err != nil {
			return util.StatusWrapf(err, "Failed to enter input directory %#v", childPath)
		}
		m.openDirectories = append(m.openDirectories, childDirectory)
		if err := m.materializeDirectory(childDigest, childDirectory, childPath+"/"); err != nil {
			return err
		}
	}
	return nil
}
