package relation

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/FabFari/recipex-app-engine/pkg/apperror"
)

type requestRepoPG struct{ pool *pgxpool.Pool }

func NewRequestRepoPG(pool *pgxpool.Pool) RequestRepository {
	return &requestRepoPG{pool: pool}
}

const requestCols = `id, sender_id, receiver_id, kind, role, caregiver_id, message, calendar_ref, seen, created_at`

func scanRequest(row pgx.Row) (*Request, error) {
	var r Request
	err := row.Scan(&r.ID, &r.SenderID, &r.ReceiverID, &r.Kind, &r.Role,
		&r.CaregiverID, &r.Message, &r.CalendarRef, &r.Seen, &r.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.NotFound("request not found")
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (r *requestRepoPG) Create(ctx context.Context, req *Request) error {
	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO requests (id, sender_id, receiver_id, kind, role, caregiver_id, message, calendar_ref, seen)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		req.ID, req.SenderID, req.ReceiverID, req.Kind, req.Role,
		req.CaregiverID, req.Message, req.CalendarRef, req.Seen)
	return err
}

func (r *requestRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Request, error) {
	return scanRequest(r.pool.QueryRow(ctx, `SELECT `+requestCols+` FROM requests WHERE id = $1`, id))
}

func (r *requestRepoPG) FindPending(ctx context.Context, a, b uuid.UUID, kind Kind) (*Request, error) {
	return scanRequest(r.pool.QueryRow(ctx, `
		SELECT `+requestCols+` FROM requests
		WHERE kind = $3
		  AND ((sender_id = $1 AND receiver_id = $2) OR (sender_id = $2 AND receiver_id = $1))
		LIMIT 1`, a, b, kind))
}

func (r *requestRepoPG) list(ctx context.Context, query string, args ...interface{}) ([]*Request, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, req)
	}
	return items, nil
}

func (r *requestRepoPG) ListBetween(ctx context.Context, a, b uuid.UUID) ([]*Request, error) {
	return r.list(ctx, `
		SELECT `+requestCols+` FROM requests
		WHERE (sender_id = $1 AND receiver_id = $2) OR (sender_id = $2 AND receiver_id = $1)
		ORDER BY created_at`, a, b)
}

func (r *requestRepoPG) ListByReceiver(ctx context.Context, receiverID uuid.UUID) ([]*Request, error) {
	return r.list(ctx, `SELECT `+requestCols+` FROM requests WHERE receiver_id = $1 ORDER BY created_at DESC`, receiverID)
}

func (r *requestRepoPG) ListBySender(ctx context.Context, senderID uuid.UUID) ([]*Request, error) {
	return r.list(ctx, `SELECT `+requestCols+` FROM requests WHERE sender_id = $1 ORDER BY created_at DESC`, senderID)
}

func (r *requestRepoPG) MarkSeen(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `UPDATE requests SET seen = TRUE WHERE id = $1`, id)
	return err
}

func (r *requestRepoPG) MarkAllSeen(ctx context.Context, receiverID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `UPDATE requests SET seen = TRUE WHERE receiver_id = $1 AND NOT seen`, receiverID)
	return err
}

func (r *requestRepoPG) CountUnseen(ctx context.Context, receiverID uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM requests WHERE receiver_id = $1 AND NOT seen`, receiverID).Scan(&n)
	return n, err
}

func (r *requestRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM requests WHERE id = $1`, id)
	return err
}

func (r *requestRepoPG) PurgeForUser(ctx context.Context, userID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM requests WHERE sender_id = $1 OR receiver_id = $1`, userID)
	return err
}
