package store

import (
	"campaid/pkg/types"
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Registry is the remote family register: families and their members behind
// one value, as consumed by the offline uploader and the bulk importer.
type Registry struct {
	*FamilyRepository
	*IndividualRepository

	pool *pgxpool.Pool
}

func NewRegistry(pool *pgxpool.Pool) *Registry {
	return &Registry{
		FamilyRepository:     NewFamilyRepository(pool),
		IndividualRepository: NewIndividualRepository(pool),
		pool:                 pool,
	}
}

// Ping probes the remote store; the connectivity monitor calls it.
func (r *Registry) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

type BundleWriter interface {
	CreateFamily(ctx context.Context, family *types.Family) error
	CreateIndividual(ctx context.Context, individual *types.Individual) error
}

// CreateBundle creates the family and then each member in order. A member
// failure leaves the family and the members created before it in place.
// bundle.Family.ID stays empty unless the family row was written.
func CreateBundle(ctx context.Context, w BundleWriter, bundle *types.FamilyBundle) error {
	if err := w.CreateFamily(ctx, bundle.Family); err != nil {
		bundle.Family.ID = ""
		return err
	}

	for i, member := range bundle.Members {
		member.FamilyID = bundle.Family.ID
		if err := w.CreateIndividual(ctx, member); err != nil {
			return fmt.Errorf("family %s created but member %d (%s) failed: %w", bundle.Family.FamilyNumber, i+1, member.Name, err)
		}
	}

	return nil
}
