package buffer

import (
	"encoding/hex"
	"log"

	"github.com/buildbarn/bb-fleet/pkg/digest"
	"github.com/buildbarn/bb-fleet/pkg/util"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// DataIntegrityCallback is invoked whenever the contents of a Buffer
// have been checked for data integrity. Its boolean parameter indicates
// whether the contents of the buffer were valid. For the CAS, this
// indicates that the contents correspond with the digest. For the AC,
// this indicates that the contents contain a valid Protobuf message.
//
// Storage backends use this callback to discard malformed objects.
type DataIntegrityCallback func(dataIsValid bool)

// Irreparable indicates that the buffer was obtained from storage, but
// that the storage provides no method for repairing the data.
func Irreparable(blobDigest digest.Digest) DataIntegrityCallback {
	return func(dataIsValid bool) {
		if !dataIsValid {
			log.Printf("Blob %#v is corrupted, but its storage backend does not support repairing corrupted blobs", blobDigest.String())
		}
	}
}

// Source is passed to the New*Buffer() functions to specify where the
// data contained in the buffer originated. This determines the error
// code that is returned upon data corruption.
type Source struct {
	errorCode             codes.Code
	dataIntegrityCallback DataIntegrityCallback
}

// UserProvided indicates that the buffer did not come from storage, but
// is currently being uploaded by a client. Data consistency errors are
// returned as INVALID_ARGUMENT, as it is the client's fault.
var UserProvided = Source{
	errorCode:             codes.InvalidArgument,
	dataIntegrityCallback: func(dataIsValid bool) {},
}

// BackendProvided indicates that the buffer came from storage. Data
// consistency errors are returned as INTERNAL, and are reported to the
// callback so that the storage backend can repair itself.
func BackendProvided(dataIntegrityCallback DataIntegrityCallback) Source {
	return Source{
		errorCode:             codes.Internal,
		dataIntegrityCallback: dataIntegrityCallback,
	}
}

func (s Source) notifyDataValid() {
	s.dataIntegrityCallback(true)
}

func (s Source) notifyProtoUnmarshalFailure(unmarshalErr error) error {
	s.dataIntegrityCallback(false)
	return util.StatusWrapWithCode(unmarshalErr, s.errorCode, "Failed to unmarshal message")
}

func (s Source) notifyCASTooBig(sizeExpected, sizeObserved int64) error {
	s.dataIntegrityCallback(false)
	return status.Errorf(s.errorCode, "Buffer is at least %d bytes in size, while %d bytes were expected", sizeObserved, sizeExpected)
}

func (s Source) notifyCASSizeMismatch(sizeExpected, sizeObserved int64) error {
	s.dataIntegrityCallback(false)
	return status.Errorf(s.errorCode, "Buffer is %d bytes in size, while %d bytes were expected", sizeObserved, sizeExpected)
}

func (s Source) notifyCASHashMismatch(hashExpected, hashObserved []byte) error {
	s.dataIntegrityCallback(false)
	return status.Errorf(s.errorCode, "Buffer has checksum %s, while %s was expected", hex.EncodeToString(hashObserved), hex.EncodeToString(hashExpected))
}
