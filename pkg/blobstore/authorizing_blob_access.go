package blobstore

import (
	"context"

	"github.com/buildbarn/bb-fleet/pkg/auth"
	"github.com/buildbarn/bb-fleet/pkg/blobstore/buffer"
	"github.com/buildbarn/bb-fleet/pkg/digest"
	"github.com/buildbarn/bb-fleet/pkg/util"
)

type authorizingBlobAccess struct {
	BlobAccess

	getAuthorizer         auth.Authorizer
	putAuthorizer         auth.Authorizer
	findMissingAuthorizer auth.Authorizer
}

// NewAuthorizingBlobAccess creates a new BlobAccess which guards blob
// accesses by checks with Authorizers. Deletions are only performed
// internally and are not subject to authorization.
func NewAuthorizingBlobAccess(base BlobAccess, getAuthorizer, putAuthorizer, findMissingAuthorizer auth.Authorizer) BlobAccess {
	return &authorizingBlobAccess{
		BlobAccess:            base,
		getAuthorizer:         getAuthorizer,
		putAuthorizer:         putAuthorizer,
		findMissingAuthorizer: findMissingAuthorizer,
	}
}

func (ba *authorizingBlobAccess) Get(ctx context.Context, d digest.Digest) buffer.Buffer {
	if err := auth.AuthorizeSingleInstanceName(ctx, ba.getAuthorizer, d.GetInstanceName()); err != nil {
		return buffer.NewBufferFromError(util.StatusWrap(err, "Authorization"))
	}
	return ba.BlobAccess.Get(ctx, d)
}

func (ba *authorizingBlobAccess) Put(ctx context.Context, d digest.Digest, b buffer.Buffer) error {
	if err := auth.AuthorizeSingleInstanceName(ctx, ba.putAuthorizer, d.GetInstanceName()); err != nil {
		b.Discard()
		return util.StatusWrap(err, "Authorization")
	}
	return ba.BlobAccess.Put(ctx, d, b)
}

func (ba *authorizingBlobAccess) FindMissing(ctx context.Context, digests digest.Set) (digest.Set, error) {
	instanceNamesSet := map[digest.InstanceName]struct{}{}
	var instanceNames []digest.InstanceName
	for _, d := range digests.Items() {
		instanceName := d.GetInstanceName()
		if _, ok := instanceNamesSet[instanceName]; !ok {
			instanceNamesSet[instanceName] = struct{}{}
			instanceNames = append(instanceNames, instanceName)
		}
	}
	if len(instanceNames) == 0 {
		return ba.BlobAccess.FindMissing(ctx, digests)
	}

	for i, err := range ba.findMissingAuthorizer.Authorize(ctx, instanceNames) {
		if err != nil {
			return digest.EmptySet, util.StatusWrapf(err, "Authorization of instance name %#v", instanceNames[i].String())
		}
	}
	return ba.BlobAccess.FindMissing(ctx, digests)
}
