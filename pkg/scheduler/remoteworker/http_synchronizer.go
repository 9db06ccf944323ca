package remoteworker

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	bb_http "github.com/buildbarn/bb-fleet/pkg/http"
	"github.com/buildbarn/bb-fleet/pkg/util"

	"google.golang.org/genproto/googleapis/rpc/status"
	"google.golang.org/grpc/codes"
	grpc_status "google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
)

const maximumResponseSizeBytes = 16 * 1024 * 1024

type httpSynchronizer struct {
	client *http.Client
	url    string
}

// NewHTTPSynchronizer creates a Synchronizer that forwards requests to
// a scheduler over HTTP. The URL should point to the scheduler's
// synchronization endpoint.
func NewHTTPSynchronizer(client *http.Client, url string) Synchronizer {
	return &httpSynchronizer{
		client: client,
		url:    url,
	}
}

func (s *httpSynchronizer) Synchronize(ctx context.Context, request *SynchronizeRequest) (*SynchronizeResponse, error) {
	requestBody, err := json.Marshal(request)
	if err != nil {
		return nil, util.StatusWrapWithCode(err, codes.InvalidArgument, "Failed to marshal synchronization request")
	}
	httpRequest, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(requestBody))
	if err != nil {
		return nil, util.StatusWrapWithCode(err, codes.InvalidArgument, "Failed to create HTTP request")
	}
	httpRequest.Header.Set("Content-Type", "application/json")
	httpResponse, err := s.client.Do(httpRequest)
	if err != nil {
		if ctx.Err() != nil {
			return nil, util.StatusFromContext(ctx)
		}
		return nil, util.StatusWrapWithCode(err, codes.Unavailable, "Failed to contact scheduler")
	}
	defer httpResponse.Body.Close()

	responseBody, err := io.ReadAll(io.LimitReader(httpResponse.Body, maximumResponseSizeBytes))
	if err != nil {
		return nil, util.StatusWrapWithCode(err, codes.Unavailable, "Failed to read response body")
	}
	if httpResponse.StatusCode != http.StatusOK {
		var s status.Status
		if err := protojson.Unmarshal(responseBody, &s); err != nil || s.Code == int32(codes.OK) {
			return nil, grpc_status.Errorf(bb_http.GRPCCodeFromStatusCode(httpResponse.StatusCode), "Scheduler returned HTTP status %#v", httpResponse.Status)
		}
		return nil, grpc_status.ErrorProto(&s)
	}

	var response SynchronizeResponse
	if err := json.Unmarshal(responseBody, &response); err != nil {
		return nil, util.StatusWrapWithCode(err, codes.Unavailable, "Failed to parse synchronization response")
	}
	return &response, nil
}
