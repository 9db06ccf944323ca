package digest

import (
	"encoding/hex"
	"fmt"
	"hash"
	"strings"

	remoteexecution "github.com/bazelbuild/remote-apis/build/bazel/remote/execution/v2"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Function for computing new Digest objects. Function is a tuple of the
// REv2 instance name and hashing algorithm.
type Function struct {
	instanceName InstanceName
	bareFunction *bareFunction
}

// MustNewFunction constructs a Function similar to
// InstanceName.GetDigestFunction(), but never returns an error.
// Instead, execution will abort if the provided options are invalid.
// Useful for unit testing.
func MustNewFunction(instanceName string, digestFunction remoteexecution.DigestFunction_Value) Function {
	in, err := NewInstanceName(instanceName)
	if err != nil {
		panic(err)
	}
	f, err := in.GetDigestFunction(digestFunction, 0)
	if err != nil {
		panic(err)
	}
	return f
}

// GetInstanceName returns the instance name that Digest objects would
// use if they were created from this Function.
func (f Function) GetInstanceName() InstanceName {
	return f.instanceName
}

// GetEnumValue returns the REv2 enumeration value for the digest
// function.
func (f Function) GetEnumValue() remoteexecution.DigestFunction_Value {
	return f.bareFunction.enumValue
}

// NewDigest constructs a Digest object from a hash and size. The hash
// must be lowercase hexadecimal of the length used by the digest
// function, and the size must be non-negative.
func (f Function) NewDigest(hash string, sizeBytes int64) (Digest, error) {
	if l := f.bareFunction.hashBytesSize * 2; len(hash) != l {
		return BadDigest, status.Errorf(codes.InvalidArgument, "Hash has length %d, while %d characters were expected", len(hash), l)
	}
	for _, c := range hash {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return BadDigest, status.Errorf(codes.InvalidArgument, "Non-hexadecimal character in digest hash: %#U", c)
		}
	}
	if sizeBytes < 0 {
		return BadDigest, status.Errorf(codes.InvalidArgument, "Invalid digest size: %d bytes", sizeBytes)
	}
	return f.newDigestUnchecked(hash, sizeBytes), nil
}

// NewDigestFromProto constructs a Digest object from a digest message
// that was obtained through the REv2 protocol.
func (f Function) NewDigestFromProto(digest *remoteexecution.Digest) (Digest, error) {
	if digest == nil {
		return BadDigest, status.Error(codes.InvalidArgument, "No digest provided")
	}
	return f.NewDigest(digest.Hash, digest.SizeBytes)
}

func (f Function) newDigestUnchecked(hash string, sizeBytes int64) Digest {
	return Digest{
		value: fmt.Sprintf("%d-%s-%d-%s", f.bareFunction.enumValue, hash, sizeBytes, f.instanceName.value),
	}
}

// Compute the digest of a blob that is fully held in memory.
func (f Function) Compute(data []byte) Digest {
	g := f.NewGenerator(int64(len(data)))
	g.Write(data)
	return g.Sum()
}

// GetEmptyDigest returns the digest of the empty blob.
func (f Function) GetEmptyDigest() Digest {
	return f.Compute(nil)
}

func (f Function) String() string {
	return strings.ToLower(f.bareFunction.enumValue.String())
}

// NewGenerator creates a writer that may be used to compute digests of
// newly created files.
func (f Function) NewGenerator(expectedSizeBytes int64) *Generator {
	return &Generator{
		function:    f,
		partialHash: f.bareFunction.hasherFactory(expectedSizeBytes),
	}
}

// Generator is a writer that may be used to compute digests of newly
// created files.
type Generator struct {
	function    Function
	partialHash hash.Hash
	sizeBytes   int64
}

// Write a chunk of data from a newly created file into the state of the
// Generator.
func (dg *Generator) Write(p []byte) (int, error) {
	n, err := dg.partialHash.Write(p)
	dg.sizeBytes += int64(n)
	return n, err
}

// Sum creates a new digest based on the data written into the
// Generator.
func (dg *Generator) Sum() Digest {
	return dg.function.newDigestUnchecked(
		hex.EncodeToString(dg.partialHash.Sum(nil)),
		dg.sizeBytes)
}
