package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/rapid-ticketing/internal/domain"
)

// AlertRepository persists derived alerts keyed by (ticket_id, kind). The
// alert scan is the sole writer; everything else only reads or acknowledges.
type AlertRepository interface {
	// Upsert creates the alert or, when the (ticket, kind) pair exists,
	// refreshes its message and timestamp in place.
	Upsert(ctx context.Context, alert *domain.Alert) error
	ListByDestination(ctx context.Context, destination string) ([]domain.AlertWithTicket, error)
	ListByTicket(ctx context.Context, ticketID string) ([]domain.Alert, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error)
	SetAcknowledged(ctx context.Context, ticketID string, kind domain.AlertKind, acknowledged bool) error
}

type alertRepository struct {
	pool *pgxpool.Pool
}

// NewAlertRepository instantiates repository.
func NewAlertRepository(pool *pgxpool.Pool) AlertRepository {
	return &alertRepository{pool: pool}
}

func (r *alertRepository) Upsert(ctx context.Context, alert *domain.Alert) error {
	const query = `
        INSERT INTO alerts (ticket_id, kind, title, message, refreshed_at)
        VALUES ($1,$2,$3,$4,$5)
        ON CONFLICT (ticket_id, kind) DO UPDATE
            SET title=EXCLUDED.title, message=EXCLUDED.message, refreshed_at=EXCLUDED.refreshed_at
        RETURNING id`
	return r.pool.QueryRow(ctx, query,
		alert.TicketID,
		alert.Kind,
		alert.Title,
		alert.Message,
		alert.RefreshedAt,
	).Scan(&alert.ID)
}

func (r *alertRepository) ListByDestination(ctx context.Context, destination string) ([]domain.AlertWithTicket, error) {
	const query = `
        SELECT a.id, a.ticket_id, a.kind, a.title, a.message, a.acknowledged, a.refreshed_at,
               t.status, t.emp_id, t.full_name, t.assigned_to, t.department, t.end_date
        FROM alerts a
        JOIN tickets t ON t.id = a.ticket_id
        WHERE t.reporting_to = $1
        ORDER BY a.acknowledged ASC, a.refreshed_at DESC`
	rows, err := r.pool.Query(ctx, query, destination)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.AlertWithTicket
	for rows.Next() {
		var item domain.AlertWithTicket
		if err := rows.Scan(
			&item.ID,
			&item.TicketID,
			&item.Kind,
			&item.Title,
			&item.Message,
			&item.Acknowledged,
			&item.RefreshedAt,
			&item.TicketStatus,
			&item.EmpID,
			&item.FullName,
			&item.AssignedTo,
			&item.Department,
			&item.EndDate,
		); err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	return result, rows.Err()
}

func (r *alertRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.Alert, error) {
	const query = `
        SELECT id, ticket_id, kind, title, message, acknowledged, refreshed_at
        FROM alerts WHERE ticket_id=$1 ORDER BY kind`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Alert
	for rows.Next() {
		var alert domain.Alert
		if err := rows.Scan(
			&alert.ID,
			&alert.TicketID,
			&alert.Kind,
			&alert.Title,
			&alert.Message,
			&alert.Acknowledged,
			&alert.RefreshedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, alert)
	}
	return result, rows.Err()
}

func (r *alertRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM alerts WHERE refreshed_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return int(cmd.RowsAffected()), nil
}

func (r *alertRepository) SetAcknowledged(ctx context.Context, ticketID string, kind domain.AlertKind, acknowledged bool) error {
	cmd, err := r.pool.Exec(ctx,
		`UPDATE alerts SET acknowledged=$1 WHERE ticket_id=$2 AND kind=$3`,
		acknowledged, ticketID, kind)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
