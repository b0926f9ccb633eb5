package handlers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/regconline/afrilearn/internal/models"
	"github.com/regconline/afrilearn/internal/repository"
)

type ProfileHandler struct {
	tutorProfileRepo   *repository.TutorProfileRepository
	studentProfileRepo *repository.StudentProfileRepository
}

func NewProfileHandler(
	tutorProfileRepo *repository.TutorProfileRepository,
	studentProfileRepo *repository.StudentProfileRepository,
) *ProfileHandler {
	return &ProfileHandler{
		tutorProfileRepo:   tutorProfileRepo,
		studentProfileRepo: studentProfileRepo,
	}
}

type updateTutorProfileRequest struct {
	Education       *string  `json:"education"`
	Certifications  []string `json:"certifications"`
	ExperienceYears *int     `json:"experience_years" validate:"omitempty,min=0"`
	Subjects        []string `json:"subjects"`
	HourlyRate      *float64 `json:"hourly_rate" validate:"omitempty,gt=0"`
	Currency        *string  `json:"currency" validate:"omitempty,oneof=NGN KES ZAR XOF USD EUR"`
}

type updateStudentProfileRequest struct {
	Grade         *string  `json:"grade"`
	School        *string  `json:"school"`
	Subjects      []string `json:"subjects"`
	LearningStyle *string  `json:"learning_style"`
	ParentID      *int64   `json:"parent_id"`
}

func (h *ProfileHandler) GetMyProfile(c *fiber.Ctx) error {
	userID, err := authUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	switch authRole(c) {
	case models.RoleTutor:
		profile, err := h.tutorProfileRepo.GetByUserID(c.Context(), userID)
		if err != nil {
			return mapProfileError(c, err)
		}
		return c.JSON(fiber.Map{"profile": profile})
	case models.RoleStudent:
		profile, err := h.studentProfileRepo.GetByUserID(c.Context(), userID)
		if err != nil {
			return mapProfileError(c, err)
		}
		return c.JSON(fiber.Map{"profile": profile})
	default:
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "No profile for this role"})
	}
}

func (h *ProfileHandler) UpdateMyProfile(c *fiber.Ctx) error {
	userID, err := authUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	switch authRole(c) {
	case models.RoleTutor:
		var req updateTutorProfileRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}
		if err := validate.Struct(req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		profile, err := h.tutorProfileRepo.Update(c.Context(), userID, repository.UpdateTutorProfileInput{
			Education:       req.Education,
			Certifications:  req.Certifications,
			ExperienceYears: req.ExperienceYears,
			Subjects:        req.Subjects,
			HourlyRate:      req.HourlyRate,
			Currency:        req.Currency,
		})
		if err != nil {
			return mapProfileError(c, err)
		}
		return c.JSON(fiber.Map{"profile": profile})
	case models.RoleStudent:
		var req updateStudentProfileRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}
		profile, err := h.studentProfileRepo.Update(c.Context(), userID, repository.UpdateStudentProfileInput{
			Grade:         req.Grade,
			School:        req.School,
			Subjects:      req.Subjects,
			LearningStyle: req.LearningStyle,
			ParentID:      req.ParentID,
		})
		if err != nil {
			return mapProfileError(c, err)
		}
		return c.JSON(fiber.Map{"profile": profile})
	default:
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "No editable profile for this role"})
	}
}

// ListTutors is the public discovery endpoint. Results can be filtered by
// subject and minimum rating and are paginated.
func (h *ProfileHandler) ListTutors(c *fiber.Ctx) error {
	page := parsePositiveInt(c.Query("page"), 1)
	limit := parsePositiveInt(c.Query("limit"), defaultPageLimit)
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	minRating := 0.0
	if raw := c.Query("min_rating"); raw != "" {
		parsed, err := parseNonNegativeFloat(raw)
		if err != nil || parsed > 5 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "min_rating must be between 0 and 5"})
		}
		minRating = parsed
	}

	tutors, total, err := h.tutorProfileRepo.List(c.Context(), repository.TutorListFilter{
		Subject:   c.Query("subject"),
		MinRating: minRating,
		Page:      page,
		Limit:     limit,
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch tutors"})
	}
	return c.JSON(fiber.Map{
		"tutors":     tutors,
		"pagination": buildPaginationMeta(page, limit, total),
	})
}

func (h *ProfileHandler) GetTutorProfile(c *fiber.Ctx) error {
	tutorID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || tutorID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid tutor id"})
	}
	profile, err := h.tutorProfileRepo.GetByUserID(c.Context(), tutorID)
	if err != nil {
		return mapProfileError(c, err)
	}
	return c.JSON(fiber.Map{"profile": profile})
}

// ListMyStudents lets a parent see the student profiles linked to them.
func (h *ProfileHandler) ListMyStudents(c *fiber.Ctx) error {
	userID, err := authUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	if authRole(c) != models.RoleParent {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}
	students, err := h.studentProfileRepo.ListByParent(c.Context(), userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch students"})
	}
	return c.JSON(fiber.Map{"students": students})
}

func mapProfileError(c *fiber.Ctx, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Profile not found"})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to process profile request"})
}
