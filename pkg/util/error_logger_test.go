package util_test

import (
	"testing"

	"github.com/buildbarn/bb-fleet/internal/mock"
	"github.com/buildbarn/bb-fleet/pkg/testutil"
	"github.com/buildbarn/bb-fleet/pkg/util"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"go.uber.org/mock/gomock"
)

func TestPrefixingErrorLogger(t *testing.T) {
	ctrl := gomock.NewController(t)

	baseErrorLogger := mock.NewMockErrorLogger(ctrl)
	errorLogger := util.NewPrefixingErrorLogger(baseErrorLogger, "Build queue")

	baseErrorLogger.EXPECT().Log(testutil.EqStatus(t, status.Error(codes.Unavailable, "Build queue: Failed to store action result")))
	errorLogger.Log(status.Error(codes.Unavailable, "Failed to store action result"))
}
