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

const requestFileTableName = "alignlab.request_files"

var requestFileColumns = utils.StructTagValues(types.RequestFile{})

type RequestFileRepository struct {
	pool *pgxpool.Pool
}

func NewRequestFileRepository(pool *pgxpool.Pool) *RequestFileRepository {
	return &RequestFileRepository{pool: pool}
}

// CreateFile inserts a new file record. Files are immutable after creation;
// there is deliberately no update method here.
func (r *RequestFileRepository) CreateFile(ctx context.Context, file *types.RequestFile) error {
	now := time.Now()
	file.ID = utils.NanoID()
	file.CreatedAt = now
	file.UpdatedAt = now

	query, args, err := psql().Insert(requestFileTableName).SetMap(utils.StructToMap(file)).ToSql()
	if err != nil {
		return fmt.Errorf("build insert file query: %w", err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	return utils.ErrorWrapOrNil(err, "create request file")
}

func (r *RequestFileRepository) FilesByRequestID(ctx context.Context, requestID string) ([]types.RequestFile, error) {
	query, args, err := psql().Select(requestFileColumns...).From(requestFileTableName).
		Where(sq.Eq{"request_id": requestID}).
		OrderBy("created_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build files query: %w", err)
	}

	var files = make([]types.RequestFile, 0)
	if err := pgxscan.Select(ctx, r.pool, &files, query, args...); err != nil {
		return nil, err
	}

	return files, nil
}

// LatestFinalFile returns the most recent final deliverable for a request.
// Re-uploads after an ask_change cycle supersede older files, so newest wins.
func (r *RequestFileRepository) LatestFinalFile(ctx context.Context, requestID string) (*types.RequestFile, error) {
	query, args, err := psql().Select(requestFileColumns...).From(requestFileTableName).
		Where(sq.Eq{"request_id": requestID, "file_type": types.FileTypeFinal}).
		OrderBy("created_at DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build latest final file query: %w", err)
	}

	var file = new(types.RequestFile)
	err = pgxscan.Get(ctx, r.pool, file, query, args...)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, types.ErrFileNotFound
		}
		return nil, err
	}

	return file, nil
}
