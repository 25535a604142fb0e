package repository

import (
	"context"

	"github.com/opsdesk/shiftdesk/backend/internal/domain"
)

func (r *Repository) CreateBusiness(ctx context.Context, business *domain.Business) error {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.QueryTimeout())
	defer cancel()

	query := `
		INSERT INTO businesses (name)
		VALUES ($1)
		RETURNING id, created_at, version
	`

	return r.dbpool.QueryRowContext(ctx, query, business.Name).Scan(&business.ID, &business.CreatedAt, &business.Version)
}

func (r *Repository) GetBusinessByID(ctx context.Context, id int64) (*domain.Business, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.QueryTimeout())
	defer cancel()

	query := `SELECT name, created_at, version FROM businesses WHERE id = $1`

	business := &domain.Business{ID: id}
	if err := r.dbpool.QueryRowContext(ctx, query, id).Scan(&business.Name, &business.CreatedAt, &business.Version); err != nil {
		return nil, err
	}

	return business, nil
}

func (r *Repository) CreateBranch(ctx context.Context, branch *domain.Branch) error {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.QueryTimeout())
	defer cancel()

	query := `
		INSERT INTO branches (business_id, name, address)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, version
	`

	return r.dbpool.QueryRowContext(ctx, query, branch.BusinessID, branch.Name, branch.Address).Scan(&branch.ID, &branch.CreatedAt, &branch.Version)
}

func (r *Repository) GetBranchByID(ctx context.Context, id int64) (*domain.Branch, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.QueryTimeout())
	defer cancel()

	query := `SELECT business_id, name, address, created_at, version FROM branches WHERE id = $1`

	branch := &domain.Branch{ID: id}
	dst := []any{&branch.BusinessID, &branch.Name, &branch.Address, &branch.CreatedAt, &branch.Version}
	if err := r.dbpool.QueryRowContext(ctx, query, id).Scan(dst...); err != nil {
		return nil, err
	}

	return branch, nil
}

func (r *Repository) GetBranchesByBusinessID(ctx context.Context, businessID int64) ([]*domain.Branch, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.QueryTimeout())
	defer cancel()

	query := `
		SELECT id, name, address, created_at, version
		FROM branches
		WHERE business_id = $1
		ORDER BY id
	`

	rows, err := r.dbpool.QueryContext(ctx, query, businessID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	branches := make([]*domain.Branch, 0)
	for rows.Next() {
		branch := &domain.Branch{BusinessID: businessID}
		if err := rows.Scan(&branch.ID, &branch.Name, &branch.Address, &branch.CreatedAt, &branch.Version); err != nil {
			return nil, err
		}
		branches = append(branches, branch)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return branches, nil
}
