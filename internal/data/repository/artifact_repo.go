package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"flight-booking/internal/data/entity"
	"flight-booking/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type ArtifactRepository interface {
	Find(ctx context.Context, bookingID uuid.UUID) (*entity.InvoiceArtifact, error)

	// BeginAttempt moves the artifact to IN_PROGRESS, creating the row when
	// missing. Only NOT_STARTED and FAILED rows (and READY ones when force is
	// set) are eligible; started is false when the row was left untouched.
	BeginAttempt(ctx context.Context, bookingID uuid.UUID, force bool, now time.Time) (artifact *entity.InvoiceArtifact, started bool, err error)

	MarkReady(ctx context.Context, bookingID uuid.UUID, attempt int, location, checksum string, now time.Time) (bool, error)
	MarkFailed(ctx context.Context, bookingID uuid.UUID, attempt int, reason string, now time.Time) (bool, error)

	// FindStale lists IN_PROGRESS artifacts started before the cutoff.
	FindStale(ctx context.Context, startedBefore time.Time, limit int) ([]*entity.InvoiceArtifact, error)
}

type artifactRepository struct {
	db  database.Querier
	log *zap.Logger
}

func NewArtifactRepository(db database.Querier, log *zap.Logger) ArtifactRepository {
	return &artifactRepository{
		db:  db,
		log: log.With(zap.String("repository", "artifact")),
	}
}

const artifactColumns = `booking_id, status, location, checksum, attempt, last_error, started_at, completed_at, updated_at`

func scanArtifact(row pgx.Row) (*entity.InvoiceArtifact, error) {
	var a entity.InvoiceArtifact
	err := row.Scan(
		&a.BookingID,
		&a.Status,
		&a.Location,
		&a.Checksum,
		&a.Attempt,
		&a.LastError,
		&a.StartedAt,
		&a.CompletedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *artifactRepository) Find(ctx context.Context, bookingID uuid.UUID) (*entity.InvoiceArtifact, error) {
	query := `SELECT ` + artifactColumns + ` FROM invoice_artifacts WHERE booking_id = $1`

	artifact, err := scanArtifact(r.db.QueryRow(ctx, query, bookingID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find artifact",
			zap.Error(err),
			zap.String("booking_id", bookingID.String()),
		)
		return nil, fmt.Errorf("find artifact for booking %s: %w", bookingID, err)
	}

	return artifact, nil
}

func (r *artifactRepository) BeginAttempt(ctx context.Context, bookingID uuid.UUID, force bool, now time.Time) (*entity.InvoiceArtifact, bool, error) {
	query := `
		INSERT INTO invoice_artifacts (booking_id, status, attempt, started_at, updated_at)
		VALUES ($1, 'IN_PROGRESS', 1, $2, $2)
		ON CONFLICT (booking_id) DO UPDATE
		SET status = 'IN_PROGRESS',
		    attempt = invoice_artifacts.attempt + 1,
		    last_error = NULL,
		    started_at = $2,
		    completed_at = NULL,
		    updated_at = $2
		WHERE invoice_artifacts.status IN ('NOT_STARTED', 'FAILED')
		   OR ($3 AND invoice_artifacts.status = 'READY')
		RETURNING ` + artifactColumns

	artifact, err := scanArtifact(r.db.QueryRow(ctx, query, bookingID, now, force))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		r.log.Error("Failed to begin artifact attempt",
			zap.Error(err),
			zap.String("booking_id", bookingID.String()),
			zap.Bool("force", force),
		)
		return nil, false, fmt.Errorf("begin artifact attempt for booking %s: %w", bookingID, err)
	}

	return artifact, true, nil
}

func (r *artifactRepository) MarkReady(ctx context.Context, bookingID uuid.UUID, attempt int, location, checksum string, now time.Time) (bool, error) {
	query := `
		UPDATE invoice_artifacts
		SET status = 'READY', location = $3, checksum = $4, last_error = NULL, completed_at = $5, updated_at = $5
		WHERE booking_id = $1 AND attempt = $2 AND status = 'IN_PROGRESS'
	`

	result, err := r.db.Exec(ctx, query, bookingID, attempt, location, checksum, now)
	if err != nil {
		r.log.Error("Failed to mark artifact ready",
			zap.Error(err),
			zap.String("booking_id", bookingID.String()),
			zap.Int("attempt", attempt),
		)
		return false, fmt.Errorf("mark artifact ready for booking %s: %w", bookingID, err)
	}

	return result.RowsAffected() == 1, nil
}

func (r *artifactRepository) MarkFailed(ctx context.Context, bookingID uuid.UUID, attempt int, reason string, now time.Time) (bool, error) {
	query := `
		UPDATE invoice_artifacts
		SET status = 'FAILED', last_error = $3, completed_at = $4, updated_at = $4
		WHERE booking_id = $1 AND attempt = $2 AND status = 'IN_PROGRESS'
	`

	result, err := r.db.Exec(ctx, query, bookingID, attempt, reason, now)
	if err != nil {
		r.log.Error("Failed to mark artifact failed",
			zap.Error(err),
			zap.String("booking_id", bookingID.String()),
			zap.Int("attempt", attempt),
		)
		return false, fmt.Errorf("mark artifact failed for booking %s: %w", bookingID, err)
	}

	return result.RowsAffected() == 1, nil
}

func (r *artifactRepository) FindStale(ctx context.Context, startedBefore time.Time, limit int) ([]*entity.InvoiceArtifact, error) {
	query := `
		SELECT ` + artifactColumns + `
		FROM invoice_artifacts
		WHERE status = 'IN_PROGRESS' AND started_at < $1
		ORDER BY started_at
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, startedBefore, limit)
	if err != nil {
		r.log.Error("Failed to find stale artifacts", zap.Error(err))
		return nil, fmt.Errorf("find stale artifacts: %w", err)
	}
	defer rows.Close()

	var artifacts []*entity.InvoiceArtifact
	for rows.Next() {
		artifact, err := scanArtifact(rows)
		if err != nil {
			r.log.Error("Failed to scan artifact row", zap.Error(err))
			return nil, fmt.Errorf("scan artifact row: %w", err)
		}
		artifacts = append(artifacts, artifact)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate artifact rows: %w", err)
	}

	return artifacts, nil
}
