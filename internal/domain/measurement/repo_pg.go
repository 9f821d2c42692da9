package measurement

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/FabFari/recipex-app-engine/pkg/apperror"
)

type measurementRepoPG struct{ pool *pgxpool.Pool }

func NewMeasurementRepoPG(pool *pgxpool.Pool) MeasurementRepository {
	return &measurementRepoPG{pool: pool}
}

const measurementCols = `id, user_id, taken_at, kind, note, systolic, diastolic, bpm,
	respirations, spo2, hgt, degrees, nrs, chl_level, created_at`

func scanMeasurement(row pgx.Row) (*Measurement, error) {
	var m Measurement
	err := row.Scan(&m.ID, &m.UserID, &m.TakenAt, &m.Kind, &m.Note,
		&m.Systolic, &m.Diastolic, &m.BPM, &m.Respirations,
		&m.SpO2, &m.HGT, &m.Degrees, &m.NRS, &m.ChlLevel, &m.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.NotFound("measurement not found")
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *measurementRepoPG) Create(ctx context.Context, m *Measurement) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO measurements (id, user_id, taken_at, kind, note, systolic, diastolic,
			bpm, respirations, spo2, hgt, degrees, nrs, chl_level)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		m.ID, m.UserID, m.TakenAt, m.Kind, m.Note, m.Systolic, m.Diastolic,
		m.BPM, m.Respirations, m.SpO2, m.HGT, m.Degrees, m.NRS, m.ChlLevel)
	return err
}

func (r *measurementRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Measurement, error) {
	return scanMeasurement(r.pool.QueryRow(ctx, `SELECT `+measurementCols+` FROM measurements WHERE id = $1`, id))
}

func (r *measurementRepoPG) Update(ctx context.Context, m *Measurement) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE measurements SET taken_at=$2, note=$3, systolic=$4, diastolic=$5, bpm=$6,
			respirations=$7, spo2=$8, hgt=$9, degrees=$10, nrs=$11, chl_level=$12
		WHERE id = $1`,
		m.ID, m.TakenAt, m.Note, m.Systolic, m.Diastolic, m.BPM,
		m.Respirations, m.SpO2, m.HGT, m.Degrees, m.NRS, m.ChlLevel)
	return err
}

func (r *measurementRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM measurements WHERE id = $1`, id)
	return err
}

func (r *measurementRepoPG) ListByUser(ctx context.Context, userID uuid.UUID, f ListFilter, limit, offset int) ([]*Measurement, int, error) {
	where := `WHERE user_id = $1`
	args := []interface{}{userID}
	idx := 2
	if f.Kind != "" {
		where += fmt.Sprintf(` AND kind = $%d`, idx)
		args = append(args, f.Kind)
		idx++
	}
	if !f.Since.IsZero() {
		where += fmt.Sprintf(` AND taken_at >= $%d`, idx)
		args = append(args, f.Since)
		idx++
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM measurements `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	query := fmt.Sprintf(`SELECT `+measurementCols+` FROM measurements %s ORDER BY taken_at DESC LIMIT $%d OFFSET $%d`, where, idx, idx+1)
	args = append(args, limit, offset)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Measurement
	for rows.Next() {
		m, err := scanMeasurement(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, m)
	}
	return items, total, nil
}

func (r *measurementRepoPG) PurgeForUser(ctx context.Context, userID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM measurements WHERE user_id = $1`, userID)
	return err
}
