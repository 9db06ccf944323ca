package grpc

import (
	"github.com/buildbarn/bb-fleet/pkg/util"

	"google.golang.org/grpc"
)

// ClientKeepaliveConfiguration contains the keepalive parameters of a
// gRPC client connection.
type ClientKeepaliveConfiguration struct {
	Time                util.Duration `json:"time"`
	Timeout             util.Duration `json:"timeout"`
	PermitWithoutStream bool          `json:"permitWithoutStream"`
}

// HeaderValues is a metadata header with one or more values.
type HeaderValues struct {
	Header string   `json:"header"`
	Values []string `json:"values"`
}

// ClientConfiguration contains the options of a gRPC client
// connection.
type ClientConfiguration struct {
	// Address of the server, in a form accepted by grpc.NewClient().
	Address string `json:"address"`
	// Maximum size of messages received from the server. Zero means
	// the gRPC default.
	MaximumReceivedMessageSizeBytes int `json:"maximumReceivedMessageSizeBytes"`
	// Optional keepalive parameters.
	Keepalive *ClientKeepaliveConfiguration `json:"keepalive"`
	// Incoming metadata headers of the calling context that are
	// copied into outgoing requests, such as "authorization".
	ForwardMetadata []string `json:"forwardMetadata"`
	// Metadata headers added to every outgoing request.
	AddMetadata []HeaderValues `json:"addMetadata"`
}

// ClientFactory can be used to construct gRPC clients based on options
// specified in a configuration message.
type ClientFactory interface {
	NewClientFromConfiguration(configuration *ClientConfiguration) (grpc.ClientConnInterface, error)
}
