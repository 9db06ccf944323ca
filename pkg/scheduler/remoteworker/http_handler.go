package remoteworker

import (
	"encoding/json"
	"net/http"

	bb_http "github.com/buildbarn/bb-fleet/pkg/http"
	"github.com/gorilla/mux"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
)

// SynchronizePath is the path of the HTTP endpoint against which
// workers synchronize.
const SynchronizePath = "/api/v1/synchronize"

type httpHandler struct {
	synchronizer Synchronizer
}

// RegisterHTTPHandler registers an HTTP endpoint on a router that
// forwards synchronization requests of workers to a Synchronizer.
// Requests and responses are JSON documents. Failures are returned as
// a google.rpc.Status message.
func RegisterHTTPHandler(router *mux.Router, synchronizer Synchronizer) {
	router.Handle(SynchronizePath, &httpHandler{
		synchronizer: synchronizer,
	}).Methods(http.MethodPost)
}

func (h *httpHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var request SynchronizeRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&request); err != nil {
		writeError(w, status.Errorf(codes.InvalidArgument, "Failed to parse synchronization request: %s", err))
		return
	}
	response, err := h.synchronizer.Synchronize(r.Context(), &request)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

func writeError(w http.ResponseWriter, err error) {
	s := status.Convert(err)
	body, marshalErr := protojson.Marshal(s.Proto())
	if marshalErr != nil {
		http.Error(w, s.Message(), bb_http.StatusCodeFromGRPCCode(s.Code()))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(bb_http.StatusCodeFromGRPCCode(s.Code()))
	w.Write(body)
}
