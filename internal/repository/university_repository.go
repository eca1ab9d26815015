package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/unipath/unipath-api/internal/models"
)

const universityColumns = `id, name, country, specialization, tuition_fees, acceptance_rate, admission_requirements, world_ranking, active, created_at, updated_at`

// UniversityRepository manages persistence for the university catalog.
type UniversityRepository struct {
	db *sqlx.DB
}

// NewUniversityRepository constructs a UniversityRepository.
func NewUniversityRepository(db *sqlx.DB) *UniversityRepository {
	return &UniversityRepository{db: db}
}

// List returns universities matching the provided filters.
func (r *UniversityRepository) List(ctx context.Context, filter models.UniversityFilter) ([]models.University, int, error) {
	base := "FROM universities"
	args := []interface{}{}
	conditions := []string{"1=1"}

	if filter.Country != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(country) = $%d", len(args)+1))
		args = append(args, strings.ToLower(filter.Country))
	}
	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(name) LIKE $%d OR LOWER(specialization) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))

	sortBy := filter.SortBy
	allowedSorts := map[string]string{
		"name":          "name",
		"country":       "country",
		"world_ranking": "world_ranking",
		"created_at":    "created_at",
	}
	if sortBy == "" {
		sortBy = "name"
	}
	column, ok := allowedSorts[sortBy]
	if !ok {
		column = "name"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", universityColumns, base, column, order, size, offset)

	var universities []models.University
	if err := r.db.SelectContext(ctx, &universities, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list universities: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count universities: %w", err)
	}
	return universities, total, nil
}

// ListActive loads the full active catalog for match generation. No
// pagination: catalog sizes stay in the low thousands.
func (r *UniversityRepository) ListActive(ctx context.Context) ([]models.University, error) {
	query := fmt.Sprintf("SELECT %s FROM universities WHERE active = true ORDER BY name ASC", universityColumns)
	var universities []models.University
	if err := r.db.SelectContext(ctx, &universities, query); err != nil {
		return nil, fmt.Errorf("list active universities: %w", err)
	}
	return universities, nil
}

// FindByID fetches a university by ID.
func (r *UniversityRepository) FindByID(ctx context.Context, id string) (*models.University, error) {
	query := fmt.Sprintf("SELECT %s FROM universities WHERE id = $1", universityColumns)
	var university models.University
	if err := r.db.GetContext(ctx, &university, query, id); err != nil {
		return nil, err
	}
	return &university, nil
}

// Create inserts a new catalog entry.
func (r *UniversityRepository) Create(ctx context.Context, university *models.University) error {
	if university.ID == "" {
		university.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if university.CreatedAt.IsZero() {
		university.CreatedAt = now
	}
	university.UpdatedAt = now
	const query = `INSERT INTO universities (id, name, country, specialization, tuition_fees, acceptance_rate, admission_requirements, world_ranking, active, created_at, updated_at)
        VALUES (:id, :name, :country, :specialization, :tuition_fees, :acceptance_rate, :admission_requirements, :world_ranking, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, university); err != nil {
		return fmt.Errorf("create university: %w", err)
	}
	return nil
}

// Update modifies an existing catalog entry.
func (r *UniversityRepository) Update(ctx context.Context, university *models.University) error {
	university.UpdatedAt = time.Now().UTC()
	const query = `UPDATE universities SET name = :name, country = :country, specialization = :specialization, tuition_fees = :tuition_fees,
        acceptance_rate = :acceptance_rate, admission_requirements = :admission_requirements, world_ranking = :world_ranking, active = :active, updated_at = :updated_at
        WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, university); err != nil {
		return fmt.Errorf("update university: %w", err)
	}
	return nil
}

// Deactivate removes a university from match generation without deleting it.
func (r *UniversityRepository) Deactivate(ctx context.Context, id string) error {
	const query = `UPDATE universities SET active = false, updated_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("deactivate university: %w", err)
	}
	return nil
}
