package blobstore

import (
	"fmt"

	"github.com/buildbarn/bb-fleet/pkg/digest"
	"github.com/buildbarn/bb-fleet/pkg/util"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// NewMissingBlobsError creates a FAILED_PRECONDITION error listing
// blobs that are absent from the Content Addressable Storage. The
// blobs are attached as a PreconditionFailure, which is the format
// that clients use to determine what to upload.
func NewMissingBlobsError(missing []digest.Digest, referencedBy string) error {
	violations := make([]*errdetails.PreconditionFailure_Violation, 0, len(missing))
	for _, blobDigest := range missing {
		violations = append(violations, &errdetails.PreconditionFailure_Violation{
			Type:    "MISSING",
			Subject: fmt.Sprintf("blobs/%s/%d", blobDigest.GetHashString(), blobDigest.GetSizeBytes()),
		})
	}
	s, err := status.New(
		codes.FailedPrecondition,
		fmt.Sprintf("%d blob(s) referenced by the %s are not present in the Content Addressable Storage", len(missing), referencedBy),
	).WithDetails(&errdetails.PreconditionFailure{Violations: violations})
	if err != nil {
		return util.StatusWrapWithCode(err, codes.Internal, "Failed to attach precondition failure details")
	}
	return s.Err()
}
