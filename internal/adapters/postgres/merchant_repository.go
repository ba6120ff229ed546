package postgres

import (
	"context"

	"github.com/google/uuid"

	"github.com/kevin07696/recon-service/internal/domain"
	"github.com/kevin07696/recon-service/internal/domain/ports"
)

const listMerchantsSQL = `
SELECT id, name, school_id, trustee_id, gateway, gateway_key, salt_secret_path, is_active
FROM merchants
WHERE is_active
	AND ($1 = '' OR upper(gateway) = upper($1))
	AND (cardinality($2::text[]) = 0 OR school_id = ANY($2::text[]))
ORDER BY name, id`

// MerchantRepository is the Postgres merchant directory
type MerchantRepository struct {
	db ports.DBTX
}

// NewMerchantRepository creates a new merchant repository
func NewMerchantRepository(db ports.DBTX) *MerchantRepository {
	return &MerchantRepository{db: db}
}

// ListForReconciliation returns the active merchants on the selection's gateway,
// narrowed to its school IDs when any are given
func (r *MerchantRepository) ListForReconciliation(ctx context.Context, selection domain.MerchantSelection) ([]*domain.Merchant, error) {
	schoolIDs := selection.SchoolIDs
	if schoolIDs == nil {
		schoolIDs = []string{}
	}

	rows, err := r.db.Query(ctx, listMerchantsSQL, selection.Gateway, schoolIDs)
	if err != nil {
		return nil, dbError("list merchants", err)
	}
	defer rows.Close()

	var merchants []*domain.Merchant
	for rows.Next() {
		var (
			id uuid.UUID
			m  domain.Merchant
		)
		if err := rows.Scan(&id, &m.Name, &m.SchoolID, &m.TrusteeID, &m.Gateway, &m.GatewayKey, &m.SaltSecretPath, &m.IsActive); err != nil {
			return nil, dbError("scan merchant", err)
		}
		m.ID = id.String()
		merchants = append(merchants, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError("list merchants", err)
	}

	return merchants, nil
}

var _ ports.MerchantRepository = (*MerchantRepository)(nil)
