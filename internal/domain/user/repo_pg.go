package user

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/FabFari/recipex-app-engine/pkg/apperror"
)

type userRepoPG struct{ pool *pgxpool.Pool }

func NewUserRepoPG(pool *pgxpool.Pool) UserRepository {
	return &userRepoPG{pool: pool}
}

const userCols = `id, email, name, surname, birth, sex, pic, city, address, personal_num,
	calendar_id, pc_physician, visiting_nurse, relatives, caregivers, to_remove,
	version, created_at, updated_at`

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.Surname, &u.Birth, &u.Sex, &u.Pic,
		&u.City, &u.Address, &u.PersonalNum, &u.CalendarID,
		&u.PCPhysician, &u.VisitingNurse, &u.Relatives, &u.Caregivers, &u.ToRemove,
		&u.Version, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.NotFound("user not found")
	}
	if err != nil {
		return nil, err
	}
	if u.Relatives == nil {
		u.Relatives = map[uuid.UUID]uuid.UUID{}
	}
	if u.Caregivers == nil {
		u.Caregivers = map[uuid.UUID]uuid.UUID{}
	}
	return &u, nil
}

func (r *userRepoPG) Create(ctx context.Context, u *User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.Relatives == nil {
		u.Relatives = map[uuid.UUID]uuid.UUID{}
	}
	if u.Caregivers == nil {
		u.Caregivers = map[uuid.UUID]uuid.UUID{}
	}
	if u.ToRemove == nil {
		u.ToRemove = []string{}
	}
	u.Version = 1
	_, err := r.pool.Exec(ctx, `
		INSERT INTO users (id, email, name, surname, birth, sex, pic, city, address,
			personal_num, calendar_id, pc_physician, visiting_nurse, relatives, caregivers, to_remove)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`,
		u.ID, u.Email, u.Name, u.Surname, u.Birth, u.Sex, u.Pic, u.City, u.Address,
		u.PersonalNum, u.CalendarID, u.PCPhysician, u.VisitingNurse, u.Relatives, u.Caregivers, u.ToRemove)
	return err
}

func (r *userRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE id = $1`, id))
}

func (r *userRepoPG) GetByEmail(ctx context.Context, email string) (*User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE email = $1`, email))
}

func (r *userRepoPG) Update(ctx context.Context, u *User) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE users SET name=$2, surname=$3, birth=$4, sex=$5, pic=$6, city=$7,
			address=$8, personal_num=$9, calendar_id=$10, updated_at=NOW()
		WHERE id = $1`,
		u.ID, u.Name, u.Surname, u.Birth, u.Sex, u.Pic, u.City,
		u.Address, u.PersonalNum, u.CalendarID)
	return err
}

func (r *userRepoPG) UpdateRelations(ctx context.Context, u *User) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE users SET pc_physician=$2, visiting_nurse=$3, relatives=$4,
			caregivers=$5, to_remove=$6, version=version+1, updated_at=NOW()
		WHERE id = $1 AND version = $7`,
		u.ID, u.PCPhysician, u.VisitingNurse, u.Relatives, u.Caregivers, u.ToRemove, u.Version)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperror.Conflict("user %s was modified concurrently", u.ID)
	}
	u.Version++
	return nil
}

func (r *userRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	return err
}

func (r *userRepoPG) List(ctx context.Context, limit, offset int) ([]*User, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, `SELECT `+userCols+` FROM users ORDER BY surname, name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, u)
	}
	return items, total, nil
}

type caregiverRepoPG struct{ pool *pgxpool.Pool }

func NewCaregiverRepoPG(pool *pgxpool.Pool) CaregiverRepository {
	return &caregiverRepoPG{pool: pool}
}

const caregiverCols = `id, user_id, field, years_exp, place, business_num, bio, available,
	patients, version, created_at, updated_at`

func scanCaregiver(row pgx.Row) (*Caregiver, error) {
	var cg Caregiver
	err := row.Scan(&cg.ID, &cg.UserID, &cg.Field, &cg.YearsExp, &cg.Place,
		&cg.BusinessNum, &cg.Bio, &cg.Available, &cg.Patients,
		&cg.Version, &cg.CreatedAt, &cg.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.NotFound("caregiver not found")
	}
	if err != nil {
		return nil, err
	}
	if cg.Patients == nil {
		cg.Patients = map[uuid.UUID]uuid.UUID{}
	}
	return &cg, nil
}

func (r *caregiverRepoPG) Create(ctx context.Context, cg *Caregiver) error {
	if cg.ID == uuid.Nil {
		cg.ID = uuid.New()
	}
	if cg.Patients == nil {
		cg.Patients = map[uuid.UUID]uuid.UUID{}
	}
	cg.Version = 1
	_, err := r.pool.Exec(ctx, `
		INSERT INTO caregivers (id, user_id, field, years_exp, place, business_num, bio, available, patients)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		cg.ID, cg.UserID, cg.Field, cg.YearsExp, cg.Place, cg.BusinessNum, cg.Bio, cg.Available, cg.Patients)
	return err
}

func (r *caregiverRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Caregiver, error) {
	return scanCaregiver(r.pool.QueryRow(ctx, `SELECT `+caregiverCols+` FROM caregivers WHERE id = $1`, id))
}

func (r *caregiverRepoPG) GetByUserID(ctx context.Context, userID uuid.UUID) (*Caregiver, error) {
	return scanCaregiver(r.pool.QueryRow(ctx, `SELECT `+caregiverCols+` FROM caregivers WHERE user_id = $1`, userID))
}

func (r *caregiverRepoPG) Update(ctx context.Context, cg *Caregiver) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE caregivers SET field=$2, years_exp=$3, place=$4, business_num=$5,
			bio=$6, available=$7, updated_at=NOW()
		WHERE id = $1`,
		cg.ID, cg.Field, cg.YearsExp, cg.Place, cg.BusinessNum, cg.Bio, cg.Available)
	return err
}

func (r *caregiverRepoPG) UpdatePatients(ctx context.Context, cg *Caregiver) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE caregivers SET patients=$2, version=version+1, updated_at=NOW()
		WHERE id = $1 AND version = $3`,
		cg.ID, cg.Patients, cg.Version)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperror.Conflict("caregiver %s was modified concurrently", cg.ID)
	}
	cg.Version++
	return nil
}

func (r *caregiverRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM caregivers WHERE id = $1`, id)
	return err
}
