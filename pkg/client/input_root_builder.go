package client

import (
	"io"
	"path"
	"sort"
	"strings"

	remoteexecution "github.com/bazelbuild/remote-apis/build/bazel/remote/execution/v2"
	"github.com/buildbarn/bb-fleet/pkg/digest"
	"github.com/buildbarn/bb-fleet/pkg/filesystem"
	"github.com/buildbarn/bb-fleet/pkg/util"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"
)

type inputFile struct {
	data         []byte
	isExecutable bool
}

type inputDirectory struct {
	files       map[string]inputFile
	directories map[string]*inputDirectory
	symlinks    map[string]string
}

func newInputDirectory() *inputDirectory {
	return &inputDirectory{
		files:       map[string]inputFile{},
		directories: map[string]*inputDirectory{},
		symlinks:    map[string]string{},
	}
}

func (d *inputDirectory) hasChild(name string) bool {
	_, isFile := d.files[name]
	_, isDirectory := d.directories[name]
	_, isSymlink := d.symlinks[name]
	return isFile || isDirectory || isSymlink
}

// InputRoot is the Merkle tree of an input root, together with the
// contents of all of the blobs it references.
type InputRoot struct {
	Digest digest.Digest
	Blobs  map[digest.Digest][]byte
}

// InputRootBuilder constructs the input root of an action from files
// that are provided in memory or read from a local directory.
type InputRootBuilder struct {
	root *inputDirectory
}

// NewInputRootBuilder creates an InputRootBuilder for an empty input
// root.
func NewInputRootBuilder() *InputRootBuilder {
	return &InputRootBuilder{
		root: newInputDirectory(),
	}
}

// lookupParent returns the parent directory of a path, creating
// intermediate directories as needed.
func (b *InputRootBuilder) lookupParent(p string) (*inputDirectory, string, error) {
	cleanPath := path.Clean(p)
	if p == "" || path.IsAbs(p) || cleanPath == "." || cleanPath == ".." || strings.HasPrefix(cleanPath, "../") {
		return nil, "", status.Errorf(codes.InvalidArgument, "Path %#v does not refer to a location inside the input root", p)
	}
	components := strings.Split(cleanPath, "/")
	d := b.root
	for _, component := range components[:len(components)-1] {
		child, ok := d.directories[component]
		if !ok {
			if d.hasChild(component) {
				return nil, "", status.Errorf(codes.InvalidArgument, "Path %#v traverses through a file or symbolic link", p)
			}
			child = newInputDirectory()
			d.directories[component] = child
		}
		d = child
	}
	name := components[len(components)-1]
	if d.hasChild(name) {
		return nil, "", status.Errorf(codes.AlreadyExists, "Path %#v already exists in the input root", p)
	}
	return d, name, nil
}

// AddFile adds a regular file to the input root.
func (b *InputRootBuilder) AddFile(p string, data []byte, isExecutable bool) error {
	d, name, err := b.lookupParent(p)
	if err != nil {
		return err
	}
	d.files[name] = inputFile{data: data, isExecutable: isExecutable}
	return nil
}

// AddSymlink adds a symbolic link to the input root.
func (b *InputRootBuilder) AddSymlink(p, target string) error {
	d, name, err := b.lookupParent(p)
	if err != nil {
		return err
	}
	d.symlinks[name] = target
	return nil
}

// AddDirectory adds an empty directory to the input root.
func (b *InputRootBuilder) AddDirectory(p string) error {
	_, err := b.addDirectory(p)
	return err
}

func (b *InputRootBuilder) addDirectory(p string) (*inputDirectory, error) {
	d, name, err := b.lookupParent(p)
	if err != nil {
		return nil, err
	}
	child := newInputDirectory()
	d.directories[name] = child
	return child, nil
}

// AddLocalDirectory recursively copies the contents of a directory on
// the local file system into the input root at a given path. An empty
// path places the contents at the root.
func (b *InputRootBuilder) AddLocalDirectory(p string, directory filesystem.Directory) error {
	d := b.root
	if p != "" {
		var err error
		if d, err = b.addDirectory(p); err != nil {
			return err
		}
	}
	return addLocalDirectory(d, directory, p)
}

func addLocalDirectory(d *inputDirectory, directory filesystem.Directory, directoryPath string) error {
	entries, err := directory.ReadDir()
	if err != nil {
		return util.StatusWrapf(err, "Failed to read directory %#v", directoryPath)
	}
	for _, entry := range entries {
		name := entry.Name()
		childPath := path.Join(directoryPath, name)
		switch entry.Type() {
		case filesystem.FileTypeRegularFile, filesystem.FileTypeExecutableFile:
			f, err := directory.OpenRead(name)
			if err != nil {
				return util.StatusWrapf(err, "Failed to open file %#v", childPath)
			}
			data, err := io.ReadAll(f)
			f.Close()
			if err != nil {
				return util.StatusWrapf(err, "Failed to read file %#v", childPath)
			}
			d.files[name] = inputFile{
				data:         data,
				isExecutable: entry.Type() == filesystem.FileTypeExecutableFile,
			}
		case filesystem.FileTypeDirectory:
			childDirectory, err := directory.EnterDirectory(name)
			if err != nil {
				return util.StatusWrapf(err, "Failed to enter directory %#v", childPath)
			}
			child := newInputDirectory()
			err = addLocalDirectory(child, childDirectory, childPath)
			childDirectory.Close()
			if err != nil {
				return err
			}
			d.directories[name] = child
		case filesystem.FileTypeSymlink:
			target, err := directory.Readlink(name)
			if err != nil {
				return util.StatusWrapf(err, "Failed to read symbolic link %#v", childPath)
			}
			d.symlinks[name] = target
		default:
			return status.Errorf(codes.InvalidArgument, "File %#v has an unsupported file type", childPath)
		}
	}
	return nil
}

func sortedKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Build computes the Merkle tree of the input root. Entries in every
// Directory message are sorted by name.
func (b *InputRootBuilder) Build(digestFunction digest.Function) (*InputRoot, error) {
	inputRoot := &InputRoot{
		Blobs: map[digest.Digest][]byte{},
	}
	rootDigest, err := buildDirectory(b.root, digestFunction, inputRoot.Blobs)
	if err != nil {
		return nil, err
	}
	inputRoot.Digest = rootDigest
	return inputRoot, nil
}

func buildDirectory(d *inputDirectory, digestFunction digest.Function, blobs map[digest.Digest][]byte) (digest.Digest, error) {
	var directory remoteexecution.Directory
	for _, name := range sortedKeys(d.files) {
		file := d.files[name]
		fileDigest := digestFunction.Compute(file.data)
		blobs[fileDigest] = file.data
		directory.Files = append(directory.Files, &remoteexecution.FileNode{
			Name:         name,
			Digest:       fileDigest.GetProto(),
			IsExecutable: file.isExecutable,
		})
	}
	for _, name := range sortedKeys(d.directories) {
		childDigest, err := buildDirectory(d.directories[name], digestFunction, blobs)
		if err != nil {
			return digest.BadDigest, err
		}
		directory.Directories = append(directory.Directories, &remoteexecution.DirectoryNode{
			Name:   name,
			Digest: childDigest.GetProto(),
		})
	}
	for _, name := range sortedKeys(d.symlinks) {
		directory.Symlinks = append(directory.Symlinks, &remoteexecution.SymlinkNode{
			Name:   name,
			Target: d.symlinks[name],
		})
	}

	data, err := proto.MarshalOptions{Deterministic: true}.Marshal(&directory)
	if err != nil {
		return digest.BadDigest, util.StatusWrapWithCode(err, codes.Internal, "Failed to marshal directory")
	}
	directoryDigest := digestFunction.Compute(data)
	blobs[directoryDigest] = data
	return directoryDigest, nil
}
