package service

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/trustd-project/trustd/entity"
	"github.com/trustd-project/trustd/trustderr"
)

// OrganizationService resolves organizations, primarily by the CPE
// "vendor" component so CPE-keyed advisories/SBOMs can cross-reference a
// publisher identity.
type OrganizationService struct {
	pool *pgxpool.Pool
}

// NewOrganizationService constructs an OrganizationService over pool.
func NewOrganizationService(pool *pgxpool.Pool) *OrganizationService {
	return &OrganizationService{pool: pool}
}

const byCpeKeySQL = `
	SELECT id, name, cpe_key, website FROM organization WHERE cpe_key = $1`

// ByCpeKey resolves the Organization whose cpe_key matches vendor, the
// lower-cased "vendor" attribute of a CPE WFN. Returns (nil, nil) if none
// is registered under that key.
func (s *OrganizationService) ByCpeKey(ctx context.Context, vendor string) (*entity.Organization, error) {
	var org entity.Organization
	err := s.pool.QueryRow(ctx, byCpeKeySQL, vendor).Scan(&org.ID, &org.Name, &org.CPEKey, &org.Website)
	switch {
	case err == nil:
		return &org, nil
	case err == pgx.ErrNoRows:
		return nil, nil
	default:
		return nil, trustderr.Wrap(trustderr.Internal, "ByCpeKey", "query failed", err)
	}
}
