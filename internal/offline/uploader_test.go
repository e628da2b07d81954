package offline

import (
	"context"
	"errors"
	"testing"

	"campaid/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUploadAllRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newDraftStore(t)
	remote := &fakeRegistry{}
	conn := &fakeConn{online: true}
	uploader := NewUploader(store, remote, conn, nil)

	_, err := store.Save(ctx, familyForm("camp-a", "101", "111111111", "222222222", "333333333"), testNow)
	require.NoError(t, err)

	result, err := uploader.UploadAll(ctx, "camp-a")
	require.NoError(t, err)
	assert.Equal(t, 1, result.SuccessCount)
	assert.Equal(t, 0, result.FailCount)
	require.Len(t, result.Outcomes, 1)
	assert.Equal(t, "101", result.Outcomes[0].FamilyNumber)
	assert.NotEmpty(t, result.Outcomes[0].FamilyID)

	families, individuals := remote.counts()
	assert.Equal(t, 1, families)
	assert.Equal(t, 3, individuals)
	for _, ind := range remote.individuals {
		assert.Equal(t, remote.families[0].ID, ind.FamilyID)
	}

	count, err := store.Count(ctx, "")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestUploadAllIsIdempotentUnderPersistentCollision(t *testing.T) {
	ctx := context.Background()
	store := newDraftStore(t)
	remote := &fakeRegistry{}
	remote.addFamily("camp-a", "55", false, "999999999")
	uploader := NewUploader(store, remote, &fakeConn{online: true}, nil)

	_, err := store.Save(ctx, familyForm("camp-a", "55", "111111111"), testNow)
	require.NoError(t, err)

	for range 2 {
		result, err := uploader.UploadAll(ctx, "camp-a")
		require.NoError(t, err)
		assert.Equal(t, 0, result.SuccessCount)
		assert.Equal(t, 1, result.FailCount)

		count, err := store.Count(ctx, "camp-a")
		require.NoError(t, err)
		assert.Equal(t, 1, count)

		families, individuals := remote.counts()
		assert.Equal(t, 1, families)
		assert.Equal(t, 1, individuals)
	}

	list, err := store.List(ctx, "camp-a")
	require.NoError(t, err)
	assert.Equal(t, types.DraftStatusError, list[0].Status)
	assert.Equal(t, "family number 55 already exists", list[0].Error)
}

func TestUploadAllSecondDraftWithSameNumberFails(t *testing.T) {
	ctx := context.Background()
	store := newDraftStore(t)
	remote := &fakeRegistry{}
	uploader := NewUploader(store, remote, &fakeConn{online: true}, nil)

	first, err := store.Save(ctx, familyForm("camp-a", "101", "111111111"), testNow)
	require.NoError(t, err)
	second, err := store.Save(ctx, familyForm("camp-a", "101", "222222222"), testNow)
	require.NoError(t, err)

	result, err := uploader.UploadAll(ctx, "camp-a")
	require.NoError(t, err)
	assert.Equal(t, 1, result.SuccessCount)
	assert.Equal(t, 1, result.FailCount)
	require.Len(t, result.Outcomes, 2)
	assert.Equal(t, first.ID, result.Outcomes[0].DraftID)
	assert.Empty(t, result.Outcomes[0].Error)
	assert.Equal(t, second.ID, result.Outcomes[1].DraftID)
	assert.Contains(t, result.Outcomes[1].Error, "family number 101 already exists")

	left, err := store.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, second.ID, left[0].ID)
	assert.Equal(t, types.DraftStatusError, left[0].Status)
}

func TestUploadAllRequiresConnectivity(t *testing.T) {
	ctx := context.Background()
	store := newDraftStore(t)
	remote := &fakeRegistry{}
	uploader := NewUploader(store, remote, &fakeConn{online: false}, nil)

	_, err := store.Save(ctx, familyForm("camp-a", "7", "111111111"), testNow)
	require.NoError(t, err)

	result, err := uploader.UploadAll(ctx, "camp-a")
	assert.Nil(t, result)
	assert.ErrorIs(t, err, types.ErrNoConnectivity)
	var connErr *types.ConnectivityError
	assert.ErrorAs(t, err, &connErr)

	count, err := store.Count(ctx, "camp-a")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestUploadAllRejectsNIDHeldRemotely(t *testing.T) {
	ctx := context.Background()
	store := newDraftStore(t)
	remote := &fakeRegistry{}
	remote.addFamily("camp-b", "12", false, "222222222")
	uploader := NewUploader(store, remote, &fakeConn{online: true}, nil)

	_, err := store.Save(ctx, familyForm("camp-a", "7", "111111111", "222222222"), testNow)
	require.NoError(t, err)

	result, err := uploader.UploadAll(ctx, "camp-a")
	require.NoError(t, err)
	assert.Equal(t, 1, result.FailCount)
	assert.Equal(t, "national id 222222222 is already registered in family 12", result.Outcomes[0].Error)

	families, individuals := remote.counts()
	assert.Equal(t, 1, families)
	assert.Equal(t, 1, individuals)
}

func TestUploadAllIgnoresDepartedHolders(t *testing.T) {
	ctx := context.Background()
	store := newDraftStore(t)
	remote := &fakeRegistry{}
	remote.addFamily("camp-a", "7", true, "111111111")
	uploader := NewUploader(store, remote, &fakeConn{online: true}, nil)

	_, err := store.Save(ctx, familyForm("camp-a", "7", "111111111"), testNow)
	require.NoError(t, err)

	result, err := uploader.UploadAll(ctx, "camp-a")
	require.NoError(t, err)
	assert.Equal(t, 1, result.SuccessCount)
}

func TestUploadAllKeepsDraftWhenMemberCreateFails(t *testing.T) {
	ctx := context.Background()
	store := newDraftStore(t)
	remote := &fakeRegistry{createMemberErr: errors.New("insert violates check constraint")}
	uploader := NewUploader(store, remote, &fakeConn{online: true}, nil)

	_, err := store.Save(ctx, familyForm("camp-a", "7", "111111111"), testNow)
	require.NoError(t, err)
	_, err = store.Save(ctx, familyForm("camp-a", "8", "222222222"), testNow)
	require.NoError(t, err)

	result, err := uploader.UploadAll(ctx, "camp-a")
	require.NoError(t, err)
	assert.Equal(t, 0, result.SuccessCount)
	assert.Equal(t, 2, result.FailCount)
	assert.Contains(t, result.Outcomes[0].Error, "insert violates check constraint")

	// the family rows stay behind without their members
	families, individuals := remote.counts()
	assert.Equal(t, 2, families)
	assert.Zero(t, individuals)

	list, err := store.List(ctx, "camp-a")
	require.NoError(t, err)
	require.Len(t, list, 2)
	for _, d := range list {
		assert.Equal(t, types.DraftStatusError, d.Status)
	}
}

func TestUploadAllOnlyTouchesRequestedCamp(t *testing.T) {
	ctx := context.Background()
	store := newDraftStore(t)
	remote := &fakeRegistry{}
	uploader := NewUploader(store, remote, &fakeConn{online: true}, nil)

	_, err := store.Save(ctx, familyForm("camp-a", "7", "111111111"), testNow)
	require.NoError(t, err)
	_, err = store.Save(ctx, familyForm("camp-b", "7", "222222222"), testNow)
	require.NoError(t, err)

	result, err := uploader.UploadAll(ctx, "camp-b")
	require.NoError(t, err)
	assert.Equal(t, 1, result.SuccessCount)

	left, err := store.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, "camp-a", left[0].CampID)
}

func TestAutoUploadDrainsEveryCamp(t *testing.T) {
	ctx := context.Background()
	store := newDraftStore(t)
	remote := &fakeRegistry{}
	conn := &fakeConn{online: true}
	uploader := NewUploader(store, remote, conn, nil)

	_, err := store.Save(ctx, familyForm("camp-a", "1", "111111111"), testNow)
	require.NoError(t, err)
	_, err = store.Save(ctx, familyForm("camp-b", "1", "222222222"), testNow)
	require.NoError(t, err)

	listener := uploader.AutoUpload(ctx, store)

	listener(false)
	count, err := store.Count(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	listener(true)
	count, err = store.Count(ctx, "")
	require.NoError(t, err)
	assert.Zero(t, count)

	families, _ := remote.counts()
	assert.Equal(t, 2, families)
}
