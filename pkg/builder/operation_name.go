package builder

import (
	"strings"

	"github.com/buildbarn/bb-fleet/pkg/digest"
	"github.com/buildbarn/bb-fleet/pkg/util"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// NewOperationName creates the name of an operation, having the form
// "${instanceName}/operations/${id}". As "operations" is a reserved
// keyword, the instance name can be recovered from it.
func NewOperationName(instanceName digest.InstanceName, id string) string {
	if instanceName == digest.EmptyInstanceName {
		return "operations/" + id
	}
	return instanceName.String() + "/operations/" + id
}

// GetOperationInstanceName extracts the instance name from the name of
// an operation created by NewOperationName().
func GetOperationInstanceName(operationName string) (digest.InstanceName, error) {
	var instanceName string
	id, ok := strings.CutPrefix(operationName, "operations/")
	if !ok {
		instanceName, id, ok = strings.Cut(operationName, "/operations/")
	}
	if !ok || id == "" || strings.Contains(id, "/") {
		return digest.EmptyInstanceName, status.Errorf(codes.InvalidArgument, "Operation name %#v does not have the form \"${instanceName}/operations/${id}\"", operationName)
	}
	parsed, err := digest.NewInstanceName(instanceName)
	if err != nil {
		return digest.EmptyInstanceName, util.StatusWrapf(err, "Invalid instance name in operation name %#v", operationName)
	}
	return parsed, nil
}
