package digest

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"hash"
	"strings"

	remoteexecution "github.com/bazelbuild/remote-apis/build/bazel/remote/execution/v2"
	"github.com/buildbarn/go-sha256tree"
	"github.com/zeebo/blake3"
)

// SupportedDigestFunctions is the list of digest functions supported by
// digest.Digest, using the enumeration values that are part of the
// Remote Execution protocol.
var SupportedDigestFunctions = []remoteexecution.DigestFunction_Value{
	remoteexecution.DigestFunction_BLAKE3,
	remoteexecution.DigestFunction_MD5,
	remoteexecution.DigestFunction_SHA1,
	remoteexecution.DigestFunction_SHA256,
	remoteexecution.DigestFunction_SHA256TREE,
	remoteexecution.DigestFunction_SHA384,
	remoteexecution.DigestFunction_SHA512,
}

// bareFunction contains all of the properties of a REv2 digest
// function that is not bound to an instance name. Exactly one instance
// is declared for each of the digest functions that are supported by
// this implementation.
type bareFunction struct {
	enumValue     remoteexecution.DigestFunction_Value
	hasherFactory func(expectedSizeBytes int64) hash.Hash
	hashBytesSize int
	// Whether the function needs to be named explicitly in
	// ByteStream resource names, because it cannot be inferred from
	// the length of the hash.
	explicitInResourceNames bool
}

var (
	blake3BareFunction = bareFunction{
		enumValue: remoteexecution.DigestFunction_BLAKE3,
		hasherFactory: func(expectedSizeBytes int64) hash.Hash {
			return blake3.New()
		},
		hashBytesSize:           32,
		explicitInResourceNames: true,
	}
	md5BareFunction = bareFunction{
		enumValue: remoteexecution.DigestFunction_MD5,
		hasherFactory: func(expectedSizeBytes int64) hash.Hash {
			return md5.New()
		},
		hashBytesSize: md5.Size,
	}
	sha1BareFunction = bareFunction{
		enumValue: remoteexecution.DigestFunction_SHA1,
		hasherFactory: func(expectedSizeBytes int64) hash.Hash {
			return sha1.New()
		},
		hashBytesSize: sha1.Size,
	}
	sha256BareFunction = bareFunction{
		enumValue: remoteexecution.DigestFunction_SHA256,
		hasherFactory: func(expectedSizeBytes int64) hash.Hash {
			return sha256.New()
		},
		hashBytesSize: sha256.Size,
	}
	sha256treeBareFunction = bareFunction{
		enumValue:               remoteexecution.DigestFunction_SHA256TREE,
		hasherFactory:           sha256tree.New,
		hashBytesSize:           sha256tree.Size,
		explicitInResourceNames: true,
	}
	sha384BareFunction = bareFunction{
		enumValue: remoteexecution.DigestFunction_SHA384,
		hasherFactory: func(expectedSizeBytes int64) hash.Hash {
			return sha512.New384()
		},
		hashBytesSize: sha512.Size384,
	}
	sha512BareFunction = bareFunction{
		enumValue: remoteexecution.DigestFunction_SHA512,
		hasherFactory: func(expectedSizeBytes int64) hash.Hash {
			return sha512.New()
		},
		hashBytesSize: sha512.Size,
	}
)

// shortestSupportedHashStringSize is the size of the shortest string
// that may be returned by Digest.GetHashString().
const shortestSupportedHashStringSize = md5.Size * 2

// getBareFunction returns the bare digest function that corresponds to
// an REv2 digest function enumeration value. If the enumeration value
// is UNKNOWN, the digest function is inferred from the length of the
// hash, as older clients don't provide it explicitly.
func getBareFunction(digestFunction remoteexecution.DigestFunction_Value, hashStringSize int) *bareFunction {
	switch digestFunction {
	case remoteexecution.DigestFunction_UNKNOWN:
		switch hashStringSize {
		case md5.Size * 2:
			return &md5BareFunction
		case sha1.Size * 2:
			return &sha1BareFunction
		case sha256.Size * 2:
			return &sha256BareFunction
		case sha512.Size384 * 2:
			return &sha384BareFunction
		case sha512.Size * 2:
			return &sha512BareFunction
		}
	case remoteexecution.DigestFunction_BLAKE3:
		return &blake3BareFunction
	case remoteexecution.DigestFunction_MD5:
		return &md5BareFunction
	case remoteexecution.DigestFunction_SHA1:
		return &sha1BareFunction
	case remoteexecution.DigestFunction_SHA256:
		return &sha256BareFunction
	case remoteexecution.DigestFunction_SHA256TREE:
		return &sha256treeBareFunction
	case remoteexecution.DigestFunction_SHA384:
		return &sha384BareFunction
	case remoteexecution.DigestFunction_SHA512:
		return &sha512BareFunction
	}
	return nil
}

// getBareFunctionByResourceName returns the bare digest function whose
// lowercase name is used in ByteStream resource names.
func getBareFunctionByResourceName(name string) *bareFunction {
	value, ok := remoteexecution.DigestFunction_Value_value[strings.ToUpper(name)]
	if !ok || strings.ToLower(name) != name {
		return nil
	}
	return getBareFunction(remoteexecution.DigestFunction_Value(value), 0)
}

func (bf *bareFunction) getResourceName() string {
	return strings.ToLower(bf.enumValue.String())
}
