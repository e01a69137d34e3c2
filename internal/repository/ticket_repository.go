package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/rapid-ticketing/internal/domain"
)

const ticketColumns = `id, emp_id, username, full_name, department, reporting_to, assigned_to,
               system_ip, issue_text, remarks, status, priority, start_date, end_date,
               alert_acknowledged, created_at, updated_at`

// TicketRepository encapsulates ticket persistence. Update and UpdateFromStatus
// never touch the identity, originator, or destination columns.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	Update(ctx context.Context, ticket *domain.Ticket) error
	// UpdateFromStatus persists the ticket's mutable fields only if the stored
	// status still equals from. A false result means another writer moved the
	// status first and nothing was written.
	UpdateFromStatus(ctx context.Context, ticket *domain.Ticket, from domain.TicketStatus) (bool, error)
	ListByDestination(ctx context.Context, destination string, status *domain.TicketStatus) ([]domain.Ticket, error)
	ListByAssignee(ctx context.Context, assignee string, status *domain.TicketStatus) ([]domain.Ticket, error)
	ListByEmployee(ctx context.Context, empID string) ([]domain.Ticket, error)
	CountByDestination(ctx context.Context, destination string) (map[domain.TicketStatus]int, error)
	// ListAlertCandidates returns non-terminal tickets whose due date is on or
	// before the given calendar day.
	ListAlertCandidates(ctx context.Context, day time.Time) ([]domain.Ticket, error)
	SetAlertAcknowledged(ctx context.Context, id string, acknowledged bool) error
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (emp_id, username, full_name, department, reporting_to, assigned_to,
                             system_ip, issue_text, remarks, status, priority, start_date, end_date)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		ticket.EmpID,
		ticket.Username,
		ticket.FullName,
		ticket.Department,
		ticket.ReportingTo,
		ticket.AssignedTo,
		ticket.SystemIP,
		ticket.IssueText,
		ticket.Remarks,
		ticket.Status,
		ticket.Priority,
		ticket.StartDate,
		ticket.EndDate,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE id=$1`, ticketColumns)
	var ticket domain.Ticket
	if err := r.pool.QueryRow(ctx, query, id).Scan(ticketFields(&ticket)...); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET assigned_to=$1, remarks=$2, status=$3, priority=$4,
            start_date=$5, end_date=$6, updated_at=NOW()
        WHERE id=$7`
	cmd, err := r.pool.Exec(ctx, query,
		ticket.AssignedTo,
		ticket.Remarks,
		ticket.Status,
		ticket.Priority,
		ticket.StartDate,
		ticket.EndDate,
		ticket.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) UpdateFromStatus(ctx context.Context, ticket *domain.Ticket, from domain.TicketStatus) (bool, error) {
	const query = `
        UPDATE tickets SET assigned_to=$1, remarks=$2, status=$3, priority=$4,
            start_date=$5, end_date=$6, updated_at=NOW()
        WHERE id=$7 AND status=$8`
	cmd, err := r.pool.Exec(ctx, query,
		ticket.AssignedTo,
		ticket.Remarks,
		ticket.Status,
		ticket.Priority,
		ticket.StartDate,
		ticket.EndDate,
		ticket.ID,
		from,
	)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *ticketRepository) ListByDestination(ctx context.Context, destination string, status *domain.TicketStatus) ([]domain.Ticket, error) {
	return r.listBy(ctx, "reporting_to", destination, status)
}

func (r *ticketRepository) ListByAssignee(ctx context.Context, assignee string, status *domain.TicketStatus) ([]domain.Ticket, error) {
	return r.listBy(ctx, "assigned_to", assignee, status)
}

func (r *ticketRepository) listBy(ctx context.Context, column, value string, status *domain.TicketStatus) ([]domain.Ticket, error) {
	clauses := []string{fmt.Sprintf("%s=$1", column)}
	args := []any{value}
	if status != nil {
		args = append(args, *status)
		clauses = append(clauses, fmt.Sprintf("status=$%d", len(args)))
	}
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE %s ORDER BY created_at DESC`,
		ticketColumns, strings.Join(clauses, " AND "))
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) ListByEmployee(ctx context.Context, empID string) ([]domain.Ticket, error) {
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE emp_id=$1 ORDER BY updated_at DESC`, ticketColumns)
	rows, err := r.pool.Query(ctx, query, empID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) CountByDestination(ctx context.Context, destination string) (map[domain.TicketStatus]int, error) {
	const query = `SELECT status, COUNT(*) FROM tickets WHERE reporting_to=$1 GROUP BY status`
	rows, err := r.pool.Query(ctx, query, destination)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[domain.TicketStatus]int)
	for rows.Next() {
		var status domain.TicketStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

func (r *ticketRepository) ListAlertCandidates(ctx context.Context, day time.Time) ([]domain.Ticket, error) {
	query := fmt.Sprintf(`
        SELECT %s FROM tickets
        WHERE end_date IS NOT NULL
          AND end_date <= $1
          AND status NOT IN ($2, $3)`, ticketColumns)
	rows, err := r.pool.Query(ctx, query, domain.DateOnly(day),
		domain.TicketStatusComplete, domain.TicketStatusRejected)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) SetAlertAcknowledged(ctx context.Context, id string, acknowledged bool) error {
	cmd, err := r.pool.Exec(ctx,
		`UPDATE tickets SET alert_acknowledged=$1, updated_at=NOW() WHERE id=$2`,
		acknowledged, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func ticketFields(t *domain.Ticket) []any {
	return []any{
		&t.ID,
		&t.EmpID,
		&t.Username,
		&t.FullName,
		&t.Department,
		&t.ReportingTo,
		&t.AssignedTo,
		&t.SystemIP,
		&t.IssueText,
		&t.Remarks,
		&t.Status,
		&t.Priority,
		&t.StartDate,
		&t.EndDate,
		&t.AlertAcknowledged,
		&t.CreatedAt,
		&t.UpdatedAt,
	}
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := rows.Scan(ticketFields(&ticket)...); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}
