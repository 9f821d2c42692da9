package message

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/FabFari/recipex-app-engine/pkg/apperror"
)

type messageRepoPG struct{ pool *pgxpool.Pool }

func NewMessageRepoPG(pool *pgxpool.Pool) MessageRepository {
	return &messageRepoPG{pool: pool}
}

const messageCols = `id, sender_id, receiver_id, body, has_read, measurement_id, created_at`

func scanMessage(row pgx.Row) (*Message, error) {
	var m Message
	err := row.Scan(&m.ID, &m.SenderID, &m.ReceiverID, &m.Body, &m.HasRead, &m.MeasurementID, &m.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.NotFound("message not found")
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *messageRepoPG) Create(ctx context.Context, m *Message) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO messages (id, sender_id, receiver_id, body, has_read, measurement_id)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		m.ID, m.SenderID, m.ReceiverID, m.Body, m.HasRead, m.MeasurementID)
	return err
}

func (r *messageRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Message, error) {
	return scanMessage(r.pool.QueryRow(ctx, `SELECT `+messageCols+` FROM messages WHERE id = $1`, id))
}

func (r *messageRepoPG) ListByReceiver(ctx context.Context, receiverID uuid.UUID, unreadOnly bool, limit, offset int) ([]*Message, int, error) {
	where := `WHERE receiver_id = $1`
	if unreadOnly {
		where += ` AND NOT has_read`
	}
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM messages `+where, receiverID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, `SELECT `+messageCols+` FROM messages `+where+` ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		receiverID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, m)
	}
	return items, total, nil
}

func (r *messageRepoPG) MarkRead(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `UPDATE messages SET has_read = TRUE WHERE id = $1`, id)
	return err
}

func (r *messageRepoPG) CountUnseen(ctx context.Context, receiverID uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM messages WHERE receiver_id = $1 AND NOT has_read`, receiverID).Scan(&n)
	return n, err
}

func (r *messageRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM messages WHERE id = $1`, id)
	return err
}

func (r *messageRepoPG) PurgeForUser(ctx context.Context, userID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM messages WHERE sender_id = $1 OR receiver_id = $1`, userID)
	return err
}
