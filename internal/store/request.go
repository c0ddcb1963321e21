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

const requestTableName = "alignlab.requests"

var requestColumns = utils.StructTagValues(types.Request{})

// RequestFilter is the normalized form of the listing query parameters.
// UserID is already resolved by the caller: for non-admins it is always the
// caller's own id, whatever the request asked for.
type RequestFilter struct {
	PatientName string
	Status      string
	UserID      string
	SortBy      string
	SortOrder   string
}

// Sort fields callers may request, keyed by their API names. Anything else
// falls back to created_at.
var requestSortColumns = map[string]string{
	"createdAt":   "created_at",
	"patientName": "patient_name",
	"status":      "status",
	"patientAge":  "patient_age",
}

func normalizeSort(sortBy, sortOrder string) string {
	column, ok := requestSortColumns[sortBy]
	if !ok {
		column = "created_at"
	}

	direction := "DESC"
	if sortOrder == "asc" {
		direction = "ASC"
	}

	return column + " " + direction
}

func (f RequestFilter) apply(b sq.SelectBuilder, columnPrefix string) sq.SelectBuilder {
	if f.PatientName != "" {
		b = b.Where(sq.ILike{columnPrefix + "patient_name": "%" + f.PatientName + "%"})
	}
	if f.Status != "" {
		b = b.Where(sq.Eq{columnPrefix + "status": f.Status})
	}
	if f.UserID != "" {
		b = b.Where(sq.Eq{columnPrefix + "user_id": f.UserID})
	}
	return b.OrderBy(columnPrefix + normalizeSort(f.SortBy, f.SortOrder))
}

type RequestRepository struct {
	pool *pgxpool.Pool
}

func NewRequestRepository(pool *pgxpool.Pool) *RequestRepository {
	return &RequestRepository{pool: pool}
}

func (r *RequestRepository) Request(ctx context.Context, requestID string) (*types.Request, error) {
	query, args, err := psql().Select(requestColumns...).From(requestTableName).
		Where(sq.Eq{"id": requestID}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build request query: %w", err)
	}

	var request = new(types.Request)
	err = pgxscan.Get(ctx, r.pool, request, query, args...)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, types.ErrRequestNotFound
		}
		return nil, err
	}

	return request, nil
}

func (r *RequestRepository) Requests(ctx context.Context, filter RequestFilter) ([]*types.Request, error) {
	builder := filter.apply(psql().Select(requestColumns...).From(requestTableName), "")

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build requests query: %w", err)
	}

	var requests = make([]*types.Request, 0)
	if err := pgxscan.Select(ctx, r.pool, &requests, query, args...); err != nil {
		return nil, err
	}

	return requests, nil
}

// RequestsWithOwner is the admin listing: one JOIN against users pulls the
// owner's display name and email alongside each row.
func (r *RequestRepository) RequestsWithOwner(ctx context.Context, filter RequestFilter) ([]*types.RequestWithOwner, error) {
	columns := utils.PrefixSliceOfStrings("r", requestColumns)
	columns = append(columns, "u.full_name AS user_name", "u.email AS user_email")

	builder := psql().Select(columns...).
		From(requestTableName + " r").
		Join("alignlab.users u ON u.id = r.user_id")
	builder = filter.apply(builder, "r.")

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build admin requests query: %w", err)
	}

	var requests = make([]*types.RequestWithOwner, 0)
	if err := pgxscan.Select(ctx, r.pool, &requests, query, args...); err != nil {
		return nil, err
	}

	return requests, nil
}

func (r *RequestRepository) CreateRequest(ctx context.Context, request *types.Request) error {
	now := time.Now()
	request.ID = utils.NanoID()
	request.CreatedAt = now
	request.UpdatedAt = now

	query, args, err := psql().Insert(requestTableName).SetMap(utils.StructToMap(request)).ToSql()
	if err != nil {
		return fmt.Errorf("build insert request query: %w", err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	return utils.ErrorWrapOrNil(err, "create request")
}

func (r *RequestRepository) UpdateRequest(ctx context.Context, requestID string, request *types.Request) error {
	request.ID = requestID
	request.UpdatedAt = time.Now()

	query, args, err := psql().Update(requestTableName).
		SetMap(utils.StructToMap(request)).
		Where(sq.Eq{"id": requestID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update request query for %s: %w", requestID, err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	return utils.ErrorWrapOrNil(err, "update request")
}

func (r *RequestRepository) SetStatus(ctx context.Context, requestID string, status types.RequestStatus) error {
	query, args, err := psql().Update(requestTableName).
		Set("status", status).
		Set("updated_at", time.Now()).
		Where(sq.Eq{"id": requestID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build status update query for %s: %w", requestID, err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	return utils.ErrorWrapOrNil(err, "set request status")
}

// SetFeedback records the owner's decision: the feedback text lands in
// notes and the status moves in the same statement.
func (r *RequestRepository) SetFeedback(ctx context.Context, requestID string, status types.RequestStatus, notes string) error {
	query, args, err := psql().Update(requestTableName).
		Set("status", status).
		Set("notes", notes).
		Set("updated_at", time.Now()).
		Where(sq.Eq{"id": requestID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build feedback update query for %s: %w", requestID, err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	return utils.ErrorWrapOrNil(err, "set request feedback")
}
