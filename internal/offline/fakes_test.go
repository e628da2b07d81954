package offline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"campaid/internal/drafts"
	"campaid/pkg/types"

	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC)

type fakeConn struct {
	mu     sync.Mutex
	online bool
	checks int
}

func (c *fakeConn) Online() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.online
}

func (c *fakeConn) Check(ctx context.Context) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks++
	return c.online
}

func (c *fakeConn) set(online bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.online = online
}

type fakeRegistry struct {
	mu          sync.Mutex
	families    []*types.Family
	individuals []*types.Individual

	createFamilyErr error
	createMemberErr error
	lookupErr       error
	onCreateFamily  func()
}

func (r *fakeRegistry) ActiveFamilyByNumber(ctx context.Context, campID, familyNumber string) (*types.Family, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.lookupErr != nil {
		return nil, r.lookupErr
	}
	for _, f := range r.families {
		if f.CampID == campID && f.FamilyNumber == familyNumber && !f.IsDeparted {
			return f, nil
		}
	}
	return nil, types.ErrFamilyNotFound
}

func (r *fakeRegistry) ActiveNIDHolder(ctx context.Context, nid string) (*types.NIDHolder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.lookupErr != nil {
		return nil, r.lookupErr
	}
	for _, i := range r.individuals {
		if i.NID == nil || *i.NID != nid {
			continue
		}
		for _, f := range r.families {
			if f.ID == i.FamilyID && !f.IsDeparted {
				return &types.NIDHolder{
					IndividualID: i.ID,
					FamilyID:     f.ID,
					FamilyNumber: f.FamilyNumber,
					CampID:       f.CampID,
					Name:         i.Name,
				}, nil
			}
		}
	}
	return nil, types.ErrIndividualNotFound
}

func (r *fakeRegistry) CreateFamily(ctx context.Context, family *types.Family) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.onCreateFamily != nil {
		r.onCreateFamily()
	}
	family.ID = fmt.Sprintf("fam-%d", len(r.families)+1)
	if r.createFamilyErr != nil {
		return r.createFamilyErr
	}
	r.families = append(r.families, family)
	return nil
}

func (r *fakeRegistry) CreateIndividual(ctx context.Context, individual *types.Individual) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createMemberErr != nil {
		return r.createMemberErr
	}
	individual.ID = fmt.Sprintf("ind-%d", len(r.individuals)+1)
	r.individuals = append(r.individuals, individual)
	return nil
}

func (r *fakeRegistry) addFamily(campID, number string, departed bool, nids ...string) *types.Family {
	r.mu.Lock()
	defer r.mu.Unlock()
	f := &types.Family{
		ID:           fmt.Sprintf("seed-%d", len(r.families)+1),
		CampID:       campID,
		FamilyNumber: number,
		IsDeparted:   departed,
	}
	r.families = append(r.families, f)
	for _, nid := range nids {
		r.individuals = append(r.individuals, &types.Individual{
			ID:       fmt.Sprintf("seed-ind-%d", len(r.individuals)+1),
			FamilyID: f.ID,
			Name:     "Existing member",
			NID:      &nid,
		})
	}
	return f
}

func (r *fakeRegistry) counts() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.families), len(r.individuals)
}

var errRemoteDown = errors.New("dial tcp 10.0.0.5:5432: connect: network is unreachable")

func newDraftStore(t *testing.T) *drafts.Store {
	t.Helper()
	store, err := drafts.Open(drafts.Config{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

// familyForm builds a valid form whose first member is the husband and the
// rest are sons.
func familyForm(campID, number string, nids ...string) *types.FamilyForm {
	form := &types.FamilyForm{
		CampID:       campID,
		FamilyNumber: number,
		Address:      "Block 4, row 2",
		Phone:        "0599123456",
		ShelterType:  "ready_tent",
	}
	for i, nid := range nids {
		member := types.MemberForm{
			Name:        fmt.Sprintf("Member %d", i+1),
			NID:         nid,
			DateOfBirth: "1980-03-15",
			Role:        "husband",
		}
		if i > 0 {
			member.Role = "son"
			member.DateOfBirth = "2010-07-01"
		}
		form.Members = append(form.Members, member)
	}
	return form
}
