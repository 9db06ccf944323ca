package digest

import (
	"encoding/hex"
	"hash"
	"path"
	"strconv"
	"strings"

	remoteexecution "github.com/bazelbuild/remote-apis/build/bazel/remote/execution/v2"
	"github.com/buildbarn/bb-fleet/pkg/util"
	"github.com/google/uuid"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var (
	compressorEnumToMidfix = map[remoteexecution.Compressor_Value]string{
		remoteexecution.Compressor_IDENTITY: "blobs",
	}
	compressorNameToEnum = map[string]remoteexecution.Compressor_Value{}
)

func init() {
	for value, name := range remoteexecution.Compressor_Value_name {
		enum := remoteexecution.Compressor_Value(value)
		if enum != remoteexecution.Compressor_IDENTITY {
			lowerName := strings.ToLower(name)
			compressorEnumToMidfix[enum] = "compressed-blobs/" + lowerName
			compressorNameToEnum[lowerName] = enum
		}
	}
}

// Digest holds the identification of an object stored in the Content
// Addressable Storage (CAS) or Action Cache (AC). The use of this
// object is preferred over remoteexecution.Digest for a couple of
// reasons.
//
//   - Instances of these objects are guaranteed not to contain any
//     degenerate values. The hash is valid hexadecimal of the length
//     that matches the digest function. The size is non-negative.
//   - They keep track of the instance name and digest function as part
//     of the digest, which allows us to keep function signatures
//     across the codebase simple.
//   - They provide utility functions for deriving new digests from
//     them. This ensures that outputs of build actions automatically
//     use the same instance name and hashing algorithm.
//
// Because Digest objects are frequently used as keys, this
// implementation immediately constructs a string representation upon
// creation. It has the format "${function}-${hash}-${size}-${instance}",
// where ${function} is the numerical value of the REv2 digest function.
type Digest struct {
	value string
}

// BadDigest is a default instance of Digest. It can, for example, be
// used as a function return value for error cases.
var BadDigest Digest

// unpack the individual fields from the string representation stored
// inside the Digest object.
func (d Digest) unpack() (digestFunctionEnd, hashEnd int, sizeBytes int64, sizeBytesEnd int) {
	digestFunctionEnd = 0
	for d.value[digestFunctionEnd] != '-' {
		digestFunctionEnd++
	}

	hashEnd = digestFunctionEnd + 1 + shortestSupportedHashStringSize
	for d.value[hashEnd] != '-' {
		hashEnd++
	}

	sizeBytesEnd = hashEnd + 1
	for d.value[sizeBytesEnd] != '-' {
		sizeBytes = sizeBytes*10 + int64(d.value[sizeBytesEnd]-'0')
		sizeBytesEnd++
	}
	return
}

func (d Digest) getBareFunction() *bareFunction {
	digestFunctionEnd, _, _, _ := d.unpack()
	enumValue, err := strconv.ParseInt(d.value[:digestFunctionEnd], 10, 32)
	if err != nil {
		panic("Digest contains an invalid digest function, even though its contents have already been validated")
	}
	return getBareFunction(remoteexecution.DigestFunction_Value(enumValue), 0)
}

// MustNewDigest constructs a Digest similar to Function.NewDigest(),
// but never returns an error. Instead, execution will abort if the
// resulting instance would be degenerate. Useful for unit testing.
func MustNewDigest(instanceName string, digestFunction remoteexecution.DigestFunction_Value, hash string, sizeBytes int64) Digest {
	f := MustNewFunction(instanceName, digestFunction)
	d, err := f.NewDigest(hash, sizeBytes)
	if err != nil {
		panic(err)
	}
	return d
}

// NewDigestFromByteStreamReadPath creates a Digest from a string having
// one of the following formats:
//
//   - ${instanceName}/blobs/${function}/${hash}/${size}
//   - ${instanceName}/compressed-blobs/${compressor}/${function}/${hash}/${size}
//
// The ${function} component is only present for digest functions that
// cannot be inferred from the length of the hash.
//
// This notation is used to read files through the ByteStream service.
func NewDigestFromByteStreamReadPath(path string) (Digest, remoteexecution.Compressor_Value, error) {
	fields := strings.FieldsFunc(path, func(r rune) bool { return r == '/' })
	split := 0
	for split < len(fields) && fields[split] != "blobs" && fields[split] != "compressed-blobs" {
		split++
	}
	if split == len(fields) {
		return BadDigest, remoteexecution.Compressor_IDENTITY, status.Error(codes.InvalidArgument, "Invalid resource naming scheme")
	}
	d, compressor, trailer, err := newDigestFromByteStreamPathCommon(fields[:split], fields[split:])
	if err != nil {
		return BadDigest, remoteexecution.Compressor_IDENTITY, err
	}
	if len(trailer) != 0 {
		return BadDigest, remoteexecution.Compressor_IDENTITY, status.Error(codes.InvalidArgument, "Invalid resource naming scheme")
	}
	return d, compressor, nil
}

// NewDigestFromByteStreamWritePath creates a Digest from a string
// having one of the following formats:
//
//   - ${instanceName}/uploads/${uuid}/blobs/${function}/${hash}/${size}/${path}
//   - ${instanceName}/uploads/${uuid}/compressed-blobs/${compressor}/${function}/${hash}/${size}/${path}
//
// This notation is used to write files through the ByteStream service.
func NewDigestFromByteStreamWritePath(path string) (Digest, remoteexecution.Compressor_Value, error) {
	fields := strings.FieldsFunc(path, func(r rune) bool { return r == '/' })
	split := 0
	for split < len(fields) && fields[split] != "uploads" {
		split++
	}
	if len(fields)-split < 5 {
		return BadDigest, remoteexecution.Compressor_IDENTITY, status.Error(codes.InvalidArgument, "Invalid resource naming scheme")
	}
	d, compressor, _, err := newDigestFromByteStreamPathCommon(fields[:split], fields[split+2:])
	return d, compressor, err
}

func newDigestFromByteStreamPathCommon(header, trailer []string) (Digest, remoteexecution.Compressor_Value, []string, error) {
	compressor := remoteexecution.Compressor_IDENTITY
	switch trailer[0] {
	case "blobs":
		trailer = trailer[1:]
	case "compressed-blobs":
		if len(trailer) < 2 {
			return BadDigest, remoteexecution.Compressor_IDENTITY, nil, status.Error(codes.InvalidArgument, "Invalid resource naming scheme")
		}
		var ok bool
		compressor, ok = compressorNameToEnum[trailer[1]]
		if !ok {
			return BadDigest, remoteexecution.Compressor_IDENTITY, nil, status.Errorf(codes.Unimplemented, "Unsupported compression scheme %#v", trailer[1])
		}
		trailer = trailer[2:]
	default:
		return BadDigest, remoteexecution.Compressor_IDENTITY, nil, status.Error(codes.InvalidArgument, "Invalid resource naming scheme")
	}

	// Optional digest function name.
	digestFunction := remoteexecution.DigestFunction_UNKNOWN
	if len(trailer) > 0 {
		if bf := getBareFunctionByResourceName(trailer[0]); bf != nil {
			digestFunction = bf.enumValue
			trailer = trailer[1:]
		}
	}
	if len(trailer) < 2 {
		return BadDigest, remoteexecution.Compressor_IDENTITY, nil, status.Error(codes.InvalidArgument, "Invalid resource naming scheme")
	}

	sizeBytes, err := strconv.ParseInt(trailer[1], 10, 64)
	if err != nil {
		return BadDigest, remoteexecution.Compressor_IDENTITY, nil, status.Errorf(codes.InvalidArgument, "Invalid blob size %#v", trailer[1])
	}
	instanceName, err := NewInstanceNameFromComponents(header)
	if err != nil {
		return BadDigest, remoteexecution.Compressor_IDENTITY, nil, util.StatusWrapf(err, "Invalid instance name %#v", strings.Join(header, "/"))
	}
	f, err := instanceName.GetDigestFunction(digestFunction, len(trailer[0]))
	if err != nil {
		return BadDigest, remoteexecution.Compressor_IDENTITY, nil, err
	}
	d, err := f.NewDigest(trailer[0], sizeBytes)
	if err != nil {
		return BadDigest, remoteexecution.Compressor_IDENTITY, nil, err
	}
	return d, compressor, trailer[2:], nil
}

func (d Digest) getByteStreamPathTrailer(compressor remoteexecution.Compressor_Value) []string {
	digestFunctionEnd, hashEnd, sizeBytes, _ := d.unpack()
	trailer := []string{compressorEnumToMidfix[compressor]}
	if bf := d.getBareFunction(); bf.explicitInResourceNames {
		trailer = append(trailer, bf.getResourceName())
	}
	return append(trailer, d.value[digestFunctionEnd+1:hashEnd], strconv.FormatInt(sizeBytes, 10))
}

// GetByteStreamReadPath converts the Digest to a string that can be
// parsed by NewDigestFromByteStreamReadPath().
func (d Digest) GetByteStreamReadPath(compressor remoteexecution.Compressor_Value) string {
	return path.Join(append([]string{d.GetInstanceName().String()}, d.getByteStreamPathTrailer(compressor)...)...)
}

// GetByteStreamWritePath converts the Digest to a string that can be
// parsed by NewDigestFromByteStreamWritePath().
func (d Digest) GetByteStreamWritePath(uuid uuid.UUID, compressor remoteexecution.Compressor_Value) string {
	return path.Join(append([]string{d.GetInstanceName().String(), "uploads", uuid.String()}, d.getByteStreamPathTrailer(compressor)...)...)
}

// GetProto encodes the digest into the format used by the remote
// execution protocol, so that it may be stored in messages returned to
// the client.
func (d Digest) GetProto() *remoteexecution.Digest {
	digestFunctionEnd, hashEnd, sizeBytes, _ := d.unpack()
	return &remoteexecution.Digest{
		Hash:      d.value[digestFunctionEnd+1 : hashEnd],
		SizeBytes: sizeBytes,
	}
}

// GetInstanceName returns the instance name of the object.
func (d Digest) GetInstanceName() InstanceName {
	_, _, _, sizeBytesEnd := d.unpack()
	return InstanceName{
		value: d.value[sizeBytesEnd+1:],
	}
}

// GetHashBytes returns the hash of the object as a slice of bytes.
func (d Digest) GetHashBytes() []byte {
	hash, err := hex.DecodeString(d.GetHashString())
	if err != nil {
		panic("Failed to decode digest hash, even though its contents have already been validated")
	}
	return hash
}

// GetHashString returns the hash of the object as a string.
func (d Digest) GetHashString() string {
	digestFunctionEnd, hashEnd, _, _ := d.unpack()
	return d.value[digestFunctionEnd+1 : hashEnd]
}

// GetSizeBytes returns the size of the object, in bytes.
func (d Digest) GetSizeBytes() int64 {
	_, _, sizeBytes, _ := d.unpack()
	return sizeBytes
}

// KeyFormat is an enumeration type that determines the format of object
// keys returned by Digest.GetKey().
type KeyFormat int

const (
	// KeyWithoutInstance lets Digest.GetKey() return a key that
	// does not include the name of the instance; only the digest
	// function, hash and size.
	KeyWithoutInstance KeyFormat = iota
	// KeyWithInstance lets Digest.GetKey() return a key that
	// includes the digest function, hash, size and instance name.
	KeyWithInstance
)

// Combine two KeyFormats into one, picking the format that contains the
// most information.
func (kf KeyFormat) Combine(other KeyFormat) KeyFormat {
	if kf == KeyWithInstance {
		return KeyWithInstance
	}
	return other
}

// GetKey generates a string representation of the digest object that
// may be used as keys in hash tables.
func (d Digest) GetKey(format KeyFormat) string {
	switch format {
	case KeyWithoutInstance:
		_, _, _, sizeBytesEnd := d.unpack()
		return d.value[:sizeBytesEnd]
	case KeyWithInstance:
		return d.value
	default:
		panic("Invalid digest key format")
	}
}

func (d Digest) String() string {
	return d.GetKey(KeyWithInstance)
}

// ToSingletonSet creates a Set that contains a single element that
// corresponds to the Digest.
func (d Digest) ToSingletonSet() Set {
	return Set{
		digests: []Digest{d},
	}
}

// NewHasher creates a standard hash.Hash object that may be used to
// compute a checksum of data. The hash.Hash object uses the same
// algorithm as the one that was used to create the digest, making it
// possible to validate data against a digest.
func (d Digest) NewHasher() hash.Hash {
	return d.getBareFunction().hasherFactory(d.GetSizeBytes())
}

// Verify returns whether the provided data has the same hash and size
// as the Digest.
func (d Digest) Verify(data []byte) bool {
	if int64(len(data)) != d.GetSizeBytes() {
		return false
	}
	return d.GetDigestFunction().Compute(data) == d
}

// GetDigestFunction returns a Function object that can be used to
// generate new Digest objects that use the same instance name and
// hashing algorithm. This method can be used in case new digests need
// to be derived based on an existing instance. For example, to generate
// a digest of an output file of a build action, given an action digest.
func (d Digest) GetDigestFunction() Function {
	return Function{
		instanceName: d.GetInstanceName(),
		bareFunction: d.getBareFunction(),
	}
}

// UsesDigestFunction returns true iff a Digest has the same instance
// name and uses the same hashing algorithm as a provided Function
// object.
func (d Digest) UsesDigestFunction(f Function) bool {
	return d.getBareFunction() == f.bareFunction && d.GetInstanceName() == f.instanceName
}
