package store

import (
	"context"
	"fmt"
	"time"

	"alignlab/internal/utils"
	"alignlab/pkg/types"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgxpool"
)

const tokenTableName = "alignlab.auth_tokens"

var tokenColumns = utils.StructTagValues(types.AuthToken{})

type TokenRepository struct {
	pool *pgxpool.Pool
}

func NewTokenRepository(pool *pgxpool.Pool) *TokenRepository {
	return &TokenRepository{pool: pool}
}

func (r *TokenRepository) CreateToken(ctx context.Context, token *types.AuthToken) error {
	query, args, err := psql().Insert(tokenTableName).SetMap(utils.StructToMap(token)).ToSql()
	if err != nil {
		return fmt.Errorf("build insert token query: %w", err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	return utils.ErrorWrapOrNil(err, "create token")
}

// Token fetches a live token row. Expired rows are treated as absent.
func (r *TokenRepository) Token(ctx context.Context, tokenID string) (*types.AuthToken, error) {
	query, args, err := psql().Select(tokenColumns...).From(tokenTableName).
		Where(sq.Eq{"id": tokenID}).
		Where(sq.Gt{"expires_at": time.Now()}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build token query: %w", err)
	}

	var token = new(types.AuthToken)
	err = pgxscan.Get(ctx, r.pool, token, query, args...)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, types.ErrTokenNotFound
		}
		return nil, err
	}

	return token, nil
}

func (r *TokenRepository) TouchToken(ctx context.Context, tokenID string) error {
	query, args, err := psql().Update(tokenTableName).
		Set("last_used_at", time.Now()).
		Where(sq.Eq{"id": tokenID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build touch token query: %w", err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	return utils.ErrorWrapOrNil(err, "touch token")
}

func (r *TokenRepository) DeleteToken(ctx context.Context, tokenID string) error {
	query, args, err := psql().Delete(tokenTableName).Where(sq.Eq{"id": tokenID}).ToSql()
	if err != nil {
		return fmt.Errorf("build delete token query: %w", err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	return utils.ErrorWrapOrNil(err, "delete token")
}

func (r *TokenRepository) DeleteExpiredTokens(ctx context.Context) error {
	query, args, err := psql().Delete(tokenTableName).Where(sq.LtOrEq{"expires_at": time.Now()}).ToSql()
	if err != nil {
		return fmt.Errorf("build delete expired tokens query: %w", err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	return utils.ErrorWrapOrNil(err, "delete expired tokens")
}
