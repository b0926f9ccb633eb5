package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/regconline/afrilearn/internal/models"
)

const studentProfileColumns = `id, user_id, grade, school, subjects,
	learning_style, parent_id, created_at, updated_at`

type StudentProfileRepository struct {
	db DBTX
}

func NewStudentProfileRepository(db DBTX) *StudentProfileRepository {
	return &StudentProfileRepository{db: db}
}

func scanStudentProfile(row pgx.Row, profile *models.StudentProfile) error {
	return row.Scan(
		&profile.ID,
		&profile.UserID,
		&profile.Grade,
		&profile.School,
		&profile.Subjects,
		&profile.LearningStyle,
		&profile.ParentID,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	)
}

func (r *StudentProfileRepository) CreateEmpty(ctx context.Context, userID int64) error {
	_, err := r.db.Exec(ctx, `INSERT INTO student_profiles (user_id) VALUES ($1)`, userID)
	return err
}

func (r *StudentProfileRepository) GetByUserID(ctx context.Context, userID int64) (*models.StudentProfile, error) {
	query := fmt.Sprintf(`SELECT %s FROM student_profiles WHERE user_id = $1`, studentProfileColumns)
	var profile models.StudentProfile
	if err := scanStudentProfile(r.db.QueryRow(ctx, query, userID), &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

type UpdateStudentProfileInput struct {
	Grade         *string
	School        *string
	Subjects      []string
	LearningStyle *string
	ParentID      *int64
}

func (r *StudentProfileRepository) Update(
	ctx context.Context,
	userID int64,
	input UpdateStudentProfileInput,
) (*models.StudentProfile, error) {
	setParts := []string{"updated_at = NOW()"}
	args := []any{userID}

	addSet := func(column string, value any) {
		args = append(args, value)
		setParts = append(setParts, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if input.Grade != nil {
		addSet("grade", *input.Grade)
	}
	if input.School != nil {
		addSet("school", *input.School)
	}
	if input.Subjects != nil {
		addSet("subjects", input.Subjects)
	}
	if input.LearningStyle != nil {
		addSet("learning_style", *input.LearningStyle)
	}
	if input.ParentID != nil {
		addSet("parent_id", *input.ParentID)
	}

	query := fmt.Sprintf(`
		UPDATE student_profiles
		SET %s
		WHERE user_id = $1
		RETURNING %s
	`, strings.Join(setParts, ", "), studentProfileColumns)

	var profile models.StudentProfile
	if err := scanStudentProfile(r.db.QueryRow(ctx, query, args...), &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *StudentProfileRepository) ListByParent(ctx context.Context, parentID int64) ([]models.StudentProfile, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM student_profiles
		WHERE parent_id = $1
		ORDER BY id ASC
	`, studentProfileColumns)

	rows, err := r.db.Query(ctx, query, parentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	profiles := make([]models.StudentProfile, 0)
	for rows.Next() {
		var profile models.StudentProfile
		if err := scanStudentProfile(rows, &profile); err != nil {
			return nil, err
		}
		profiles = append(profiles, profile)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return profiles, nil
}
