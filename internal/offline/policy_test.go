package offline

import (
	"context"
	"testing"
	"time"

	"campaid/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPolicy(t *testing.T, remote *fakeRegistry, conn *fakeConn) (*Policy, DraftSaver) {
	t.Helper()
	store := newDraftStore(t)
	policy := NewPolicy(store, remote, conn, nil)
	policy.now = func() time.Time { return testNow }
	return policy, store
}

func TestSaveFamilyOnlineGoesRemote(t *testing.T) {
	ctx := context.Background()
	remote := &fakeRegistry{}
	policy, store := newTestPolicy(t, remote, &fakeConn{online: true})

	outcome, err := policy.SaveFamily(ctx, familyForm("camp-a", "20", "111111111", "222222222"))
	require.NoError(t, err)
	assert.Equal(t, types.SavedRemote, outcome.Destination)
	require.NotNil(t, outcome.Family)
	assert.NotEmpty(t, outcome.Family.ID)

	families, individuals := remote.counts()
	assert.Equal(t, 1, families)
	assert.Equal(t, 2, individuals)

	queued, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, queued)
}

func TestSaveFamilyOfflineQueuesDraft(t *testing.T) {
	ctx := context.Background()
	remote := &fakeRegistry{}
	policy, store := newTestPolicy(t, remote, &fakeConn{online: false})

	outcome, err := policy.SaveFamily(ctx, familyForm("camp-a", "20", "111111111"))
	require.NoError(t, err)
	assert.Equal(t, types.SavedDraft, outcome.Destination)
	require.NotNil(t, outcome.Draft)
	assert.Equal(t, types.DraftStatusPending, outcome.Draft.Status)

	families, _ := remote.counts()
	assert.Zero(t, families)

	queued, err := store.List(ctx, "camp-a")
	require.NoError(t, err)
	assert.Len(t, queued, 1)
}

func TestSaveFamilyRejectsDuplicates(t *testing.T) {
	ctx := context.Background()
	remote := &fakeRegistry{}
	remote.addFamily("camp-a", "20", false, "999999999")
	policy, _ := newTestPolicy(t, remote, &fakeConn{online: true})

	_, err := policy.SaveFamily(ctx, familyForm("camp-a", "20", "111111111"))
	var dup *types.DuplicateError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, types.DuplicateFamilyNumber, dup.Kind)

	_, err = policy.SaveFamily(ctx, familyForm("camp-a", "21", "999999999"))
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, types.DuplicateNID, dup.Kind)
	assert.Equal(t, "20", dup.HolderFamilyNumber)

	families, _ := remote.counts()
	assert.Equal(t, 1, families)
}

func TestSaveFamilyOfflineRejectsIDInQueuedDraft(t *testing.T) {
	ctx := context.Background()
	policy, _ := newTestPolicy(t, &fakeRegistry{}, &fakeConn{online: false})

	_, err := policy.SaveFamily(ctx, familyForm("camp-a", "1", "111111111"))
	require.NoError(t, err)

	_, err = policy.SaveFamily(ctx, familyForm("camp-a", "2", "111111111"))
	var dup *types.DuplicateError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, types.SourceDraft, dup.Source)
	assert.Equal(t, "national id 111111111 is already registered in the queued draft for family 1", dup.Error())
}

func TestSaveFamilyFallsBackToDraftWhenLinkDrops(t *testing.T) {
	ctx := context.Background()
	conn := &fakeConn{online: true}
	remote := &fakeRegistry{createFamilyErr: errRemoteDown}
	remote.onCreateFamily = func() { conn.set(false) }
	policy, store := newTestPolicy(t, remote, conn)

	outcome, err := policy.SaveFamily(ctx, familyForm("camp-a", "30", "111111111"))
	require.NoError(t, err)
	assert.Equal(t, types.SavedDraft, outcome.Destination)
	assert.Equal(t, 1, conn.checks)

	queued, err := store.List(ctx, "camp-a")
	require.NoError(t, err)
	require.Len(t, queued, 1)
	assert.Empty(t, queued[0].Bundle.Family.ID)
}

func TestSaveFamilyReportsRemoteFailureWhileOnline(t *testing.T) {
	ctx := context.Background()
	remote := &fakeRegistry{createFamilyErr: errRemoteDown}
	policy, store := newTestPolicy(t, remote, &fakeConn{online: true})

	_, err := policy.SaveFamily(ctx, familyForm("camp-a", "30", "111111111"))
	var remoteErr *types.RemoteOperationError
	require.ErrorAs(t, err, &remoteErr)

	queued, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, queued)
}

func TestSaveFamilyValidationStopsEverything(t *testing.T) {
	ctx := context.Background()
	remote := &fakeRegistry{}
	policy, store := newTestPolicy(t, remote, &fakeConn{online: true})

	_, err := policy.SaveFamily(ctx, familyForm("camp-a", "30", "12345678"))
	var verr *types.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "members[0].nid", verr.Field)

	families, _ := remote.counts()
	assert.Zero(t, families)
	queued, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, queued)
}
