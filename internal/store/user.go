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

const userTableName = "alignlab.users"

var userColumns = utils.StructTagValues(types.User{})

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func (r *UserRepository) User(ctx context.Context, userID string) (*types.User, error) {
	return r.userWhere(ctx, sq.Eq{"id": userID})
}

func (r *UserRepository) UserByEmail(ctx context.Context, email string) (*types.User, error) {
	return r.userWhere(ctx, sq.Eq{"email": email})
}

func (r *UserRepository) userWhere(ctx context.Context, where sq.Eq) (*types.User, error) {
	query, args, err := psql().Select(userColumns...).From(userTableName).
		Where(where).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build user query: %w", err)
	}

	var user = new(types.User)
	err = pgxscan.Get(ctx, r.pool, user, query, args...)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, types.ErrUserNotFound
		}
		return nil, err
	}

	return user, nil
}

func (r *UserRepository) Users(ctx context.Context, params types.UserListParams) ([]*types.User, error) {
	page := params.Page
	if page == 0 {
		page = 1
	}
	limit := params.Limit
	if limit == 0 {
		limit = 10
	}

	builder := psql().Select(userColumns...).From(userTableName)
	if params.Email != "" {
		builder = builder.Where(sq.ILike{"email": "%" + params.Email + "%"})
	}
	if params.IsActive != nil {
		builder = builder.Where(sq.Eq{"is_active": *params.IsActive})
	}

	query, args, err := builder.
		OrderBy("created_at DESC").
		Limit(limit).
		Offset((page - 1) * limit).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build users query: %w", err)
	}

	var users = make([]*types.User, 0)
	if err := pgxscan.Select(ctx, r.pool, &users, query, args...); err != nil {
		return nil, err
	}

	return users, nil
}

func (r *UserRepository) CreateUser(ctx context.Context, user *types.User) error {
	now := time.Now()
	user.ID = utils.NanoID()
	user.CreatedAt = now
	user.UpdatedAt = now

	query, args, err := psql().Insert(userTableName).SetMap(utils.StructToMap(user)).ToSql()
	if err != nil {
		return fmt.Errorf("build insert user query: %w", err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	return utils.ErrorWrapOrNil(err, "create user")
}

func (r *UserRepository) UpdateUser(ctx context.Context, userID string, user *types.User) error {
	user.ID = userID
	user.UpdatedAt = time.Now()

	query, args, err := psql().Update(userTableName).
		SetMap(utils.StructToMap(user)).
		Where(sq.Eq{"id": userID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update user query for %s: %w", userID, err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	return utils.ErrorWrapOrNil(err, "update user")
}

// UpsertUserByEmail inserts a user or leaves an existing row alone. The seed
// command uses it so reseeding is safe.
func (r *UserRepository) UpsertUserByEmail(ctx context.Context, user *types.User) error {
	now := time.Now()
	user.ID = utils.NanoID()
	user.CreatedAt = now
	user.UpdatedAt = now

	query, args, err := psql().Insert(userTableName).
		SetMap(utils.StructToMap(user)).
		Suffix("ON CONFLICT (email) DO NOTHING").
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert user query: %w", err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	return utils.ErrorWrapOrNil(err, "upsert user")
}
