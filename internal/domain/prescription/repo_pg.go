package prescription

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/FabFari/recipex-app-engine/pkg/apperror"
)

type ingredientRepoPG struct{ pool *pgxpool.Pool }

func NewIngredientRepoPG(pool *pgxpool.Pool) IngredientRepository {
	return &ingredientRepoPG{pool: pool}
}

func scanIngredient(row pgx.Row) (*ActiveIngredient, error) {
	var ai ActiveIngredient
	err := row.Scan(&ai.ID, &ai.Name, &ai.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.NotFound("active ingredient not found")
	}
	if err != nil {
		return nil, err
	}
	return &ai, nil
}

func (r *ingredientRepoPG) Create(ctx context.Context, ai *ActiveIngredient) error {
	if ai.ID == uuid.Nil {
		ai.ID = uuid.New()
	}
	_, err := r.pool.Exec(ctx, `INSERT INTO active_ingredients (id, name) VALUES ($1,$2)`, ai.ID, ai.Name)
	return err
}

func (r *ingredientRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*ActiveIngredient, error) {
	return scanIngredient(r.pool.QueryRow(ctx, `SELECT id, name, created_at FROM active_ingredients WHERE id = $1`, id))
}

func (r *ingredientRepoPG) GetByName(ctx context.Context, name string) (*ActiveIngredient, error) {
	return scanIngredient(r.pool.QueryRow(ctx, `SELECT id, name, created_at FROM active_ingredients WHERE name = $1`, name))
}

func (r *ingredientRepoPG) List(ctx context.Context, limit, offset int) ([]*ActiveIngredient, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM active_ingredients`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, `SELECT id, name, created_at FROM active_ingredients ORDER BY name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*ActiveIngredient
	for rows.Next() {
		ai, err := scanIngredient(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, ai)
	}
	return items, total, nil
}

func (r *ingredientRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM active_ingredients WHERE id = $1`, id)
	return err
}

type prescriptionRepoPG struct{ pool *pgxpool.Pool }

func NewPrescriptionRepoPG(pool *pgxpool.Pool) PrescriptionRepository {
	return &prescriptionRepoPG{pool: pool}
}

const prescriptionCols = `id, user_id, name, active_ingredient_id, active_ingredient_name,
	kind, dose, units, quantity, recipe, pil, caregiver_id, seen, created_at`

func scanPrescription(row pgx.Row) (*Prescription, error) {
	var p Prescription
	err := row.Scan(&p.ID, &p.UserID, &p.Name, &p.ActiveIngredientID, &p.ActiveIngredientName,
		&p.Kind, &p.Dose, &p.Units, &p.Quantity, &p.Recipe, &p.PIL, &p.CaregiverID, &p.Seen, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.NotFound("prescription not found")
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *prescriptionRepoPG) Create(ctx context.Context, p *Prescription) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO prescriptions (id, user_id, name, active_ingredient_id, active_ingredient_name,
			kind, dose, units, quantity, recipe, pil, caregiver_id, seen)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		p.ID, p.UserID, p.Name, p.ActiveIngredientID, p.ActiveIngredientName,
		p.Kind, p.Dose, p.Units, p.Quantity, p.Recipe, p.PIL, p.CaregiverID, p.Seen)
	return err
}

func (r *prescriptionRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Prescription, error) {
	return scanPrescription(r.pool.QueryRow(ctx, `SELECT `+prescriptionCols+` FROM prescriptions WHERE id = $1`, id))
}

func (r *prescriptionRepoPG) Update(ctx context.Context, p *Prescription) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE prescriptions SET name=$2, active_ingredient_id=$3, active_ingredient_name=$4,
			kind=$5, dose=$6, units=$7, quantity=$8, recipe=$9, pil=$10
		WHERE id = $1`,
		p.ID, p.Name, p.ActiveIngredientID, p.ActiveIngredientName,
		p.Kind, p.Dose, p.Units, p.Quantity, p.Recipe, p.PIL)
	return err
}

func (r *prescriptionRepoPG) MarkSeen(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `UPDATE prescriptions SET seen = TRUE WHERE id = $1`, id)
	return err
}

func (r *prescriptionRepoPG) CountUnseen(ctx context.Context, userID uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM prescriptions WHERE user_id = $1 AND NOT seen`, userID).Scan(&n)
	return n, err
}

func (r *prescriptionRepoPG) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Prescription, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM prescriptions WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, `SELECT `+prescriptionCols+` FROM prescriptions WHERE user_id = $1 ORDER BY name LIMIT $2 OFFSET $3`,
		userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Prescription
	for rows.Next() {
		p, err := scanPrescription(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, nil
}

func (r *prescriptionRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM prescriptions WHERE id = $1`, id)
	return err
}

func (r *prescriptionRepoPG) PurgeForUser(ctx context.Context, userID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM prescriptions WHERE user_id = $1`, userID)
	return err
}
