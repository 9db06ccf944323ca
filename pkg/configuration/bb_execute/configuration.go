package bb_execute

import (
	bb_grpc "github.com/buildbarn/bb-fleet/pkg/grpc"
	"github.com/buildbarn/bb-fleet/pkg/util"
)

// ApplicationConfiguration is the configuration of bb_execute. The
// command to run is provided on the command line.
type ApplicationConfiguration struct {
	GrpcClient *bb_grpc.ClientConfiguration `json:"grpcClient"`

	InstanceName string `json:"instanceName"`
	// Name of the REv2 digest function, such as "SHA256". Defaults
	// to SHA256.
	DigestFunction string `json:"digestFunction"`
	// Defaults to 2 MiB.
	MaximumBatchSizeBytes   int64 `json:"maximumBatchSizeBytes"`
	MaximumMessageSizeBytes int   `json:"maximumMessageSizeBytes"`

	Platform             map[string]string `json:"platform"`
	EnvironmentVariables map[string]string `json:"environmentVariables"`
	// Local directory whose contents are used as the input root of
	// the action. Empty means an empty input root.
	InputRootPath    string        `json:"inputRootPath"`
	WorkingDirectory string        `json:"workingDirectory"`
	OutputPaths      []string      `json:"outputPaths"`
	Timeout          util.Duration `json:"timeout"`
	DoNotCache       bool          `json:"doNotCache"`
	SkipCacheLookup  bool          `json:"skipCacheLookup"`
	Priority         int32         `json:"priority"`
}
