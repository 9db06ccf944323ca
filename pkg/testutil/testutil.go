package testutil

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"go.uber.org/mock/gomock"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
)

// RequireEqualProto asserts that the two passed protocol buffer
// messages are equal.
//
// Because maps in protocol buffers aren't serialized deterministically
// (and can be embedded into google.protobuf.Any values), this function
// falls back to doing a string comparison upon failure.
func RequireEqualProto(t *testing.T, want, got proto.Message) {
	t.Helper()
	if !proto.Equal(want, got) {
		wantStr := mustMarshalToString(t, want)
		gotStr := mustMarshalToString(t, got)
		if wantStr != gotStr {
			t.Fatalf("Not equal:\nWant:\n\n%s\n\nGot:\n\n%s", wantStr, gotStr)
		}
	}
}

// RequireEqualStatus asserts that two gRPC statuses are equal.
func RequireEqualStatus(t *testing.T, want, got error) {
	t.Helper()
	RequireEqualProto(t, status.Convert(want).Proto(), status.Convert(got).Proto())
}

// RequirePrefixedStatus asserts that two gRPC statuses are equal,
// except that the message of the latter may have trailing characters.
func RequirePrefixedStatus(t *testing.T, want, got error) {
	t.Helper()
	wantProto := status.Convert(want).Proto()
	gotProto := status.Convert(got).Proto()
	require.Truef(t, strings.HasPrefix(gotProto.GetMessage(), wantProto.GetMessage()), "Message %#v does not have prefix %#v", gotProto.GetMessage(), wantProto.GetMessage())
	gotProto.Message = wantProto.GetMessage()
	RequireEqualProto(t, wantProto, gotProto)
}

type eqProtoMatcher struct {
	t     *testing.T
	proto proto.Message
}

// EqProto is a gomock matcher for proto equality.
func EqProto(t *testing.T, proto proto.Message) gomock.Matcher {
	return &eqProtoMatcher{
		t:     t,
		proto: proto,
	}
}

func (p *eqProtoMatcher) Matches(other interface{}) bool {
	if otherProto, ok := other.(proto.Message); ok {
		return proto.Equal(p.proto, otherProto)
	}
	return false
}

func (p *eqProtoMatcher) String() string {
	return "is proto equal to " + mustMarshalToString(p.t, p.proto)
}

type eqStatusMatcher struct {
	t             *testing.T
	status        error
	statusMessage proto.Message
}

// EqStatus is a gomock matcher for gRPC status equality.
func EqStatus(t *testing.T, s error) gomock.Matcher {
	return &eqStatusMatcher{
		t:             t,
		status:        s,
		statusMessage: status.Convert(s).Proto(),
	}
}

func (s *eqStatusMatcher) Matches(got interface{}) bool {
	if gotError, ok := got.(error); ok {
		return proto.Equal(s.statusMessage, status.Convert(gotError).Proto())
	}
	return false
}

func (s *eqStatusMatcher) String() string {
	return fmt.Sprintf("is status equal to %v", s.status)
}

func mustMarshalToString(t *testing.T, proto proto.Message) string {
	s, err := protojson.MarshalOptions{
		Multiline: true,
	}.Marshal(proto)
	if err != nil {
		t.Fatal(err)
	}
	return string(s)
}
