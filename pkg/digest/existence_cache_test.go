package digest_test

import (
	"testing"
	"time"

	remoteexecution "github.com/bazelbuild/remote-apis/build/bazel/remote/execution/v2"
	"github.com/buildbarn/bb-fleet/internal/mock"
	"github.com/buildbarn/bb-fleet/pkg/digest"
	"github.com/buildbarn/bb-fleet/pkg/eviction"
	"github.com/stretchr/testify/require"

	"go.uber.org/mock/gomock"
)

func TestExistenceCache(t *testing.T) {
	ctrl := gomock.NewController(t)

	clock := mock.NewMockClock(ctrl)
	existenceCache := digest.NewExistenceCache(clock, digest.KeyWithoutInstance, 2, time.Minute, eviction.NewLRUSet[string]())

	digests := []digest.Digest{
		digest.MustNewDigest("hello", remoteexecution.DigestFunction_MD5, "d41d8cd98f00b204e9800998ecf8427e", 5),
		digest.MustNewDigest("hello", remoteexecution.DigestFunction_MD5, "6fc422233a40a75a1f028e11c3cd1140", 7),
		digest.MustNewDigest("hello", remoteexecution.DigestFunction_MD5, "ebbbb099e9d2f7892d97ab3640ae8283", 9),
	}
	allDigests := digest.NewSetBuilder().
		Add(digests[0]).
		Add(digests[1]).
		Add(digests[2]).
		Build()

	// Nothing is known to exist initially.
	clock.EXPECT().Now().Return(time.Unix(1000, 0))
	require.Equal(t, allDigests, existenceCache.RemoveExisting(allDigests))

	// Mark the first two elements as existing.
	clock.EXPECT().Now().Return(time.Unix(1003, 0))
	existenceCache.Add(digest.NewSetBuilder().
		Add(digests[0]).
		Add(digests[1]).
		Build())
	clock.EXPECT().Now().Return(time.Unix(1004, 0))
	require.Equal(t, digests[2].ToSingletonSet(), existenceCache.RemoveExisting(allDigests))

	// Touching digests[1] and inserting digests[2] should cause
	// digests[0] to be evicted, as the cache only holds two entries.
	clock.EXPECT().Now().Return(time.Unix(1005, 0))
	require.Equal(t, digest.EmptySet, existenceCache.RemoveExisting(digests[1].ToSingletonSet()))
	clock.EXPECT().Now().Return(time.Unix(1006, 0))
	existenceCache.Add(digests[2].ToSingletonSet())
	clock.EXPECT().Now().Return(time.Unix(1007, 0))
	require.Equal(t, digests[0].ToSingletonSet(), existenceCache.RemoveExisting(allDigests))

	// Explicitly removed entries are reported as missing again.
	existenceCache.Remove(digests[2])
	clock.EXPECT().Now().Return(time.Unix(1008, 0))
	require.Equal(
		t,
		digest.NewSetBuilder().Add(digests[0]).Add(digests[2]).Build(),
		existenceCache.RemoveExisting(allDigests))

	// digests[1] was inserted at t = 1003, so it should disappear
	// after t = 1063.
	clock.EXPECT().Now().Return(time.Unix(1063, 1))
	require.Equal(t, allDigests, existenceCache.RemoveExisting(allDigests))
}
