package storage

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"strings"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/mrfrench/backend/internal/models"
	"go.uber.org/zap"
)

//go:embed migrations.sql
var migrations embed.FS

// zoneRowID is the fixed key of the single Timmy Zone row.
const zoneRowID = "timmy"

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// PostgresStore implements TaskStore and ZoneStore on PostgreSQL.
type PostgresStore struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewPostgresStore(config DatabaseConfig, logger *zap.Logger) (*PostgresStore, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		config.Host, config.Port, config.User, config.Password, config.DBName, config.SSLMode)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("error connecting to the database: %w", err)
	}

	store := &PostgresStore{db: db, logger: logger}
	if err := store.initializeSchema(); err != nil {
		return nil, fmt.Errorf("error initializing database schema: %w", err)
	}
	return store, nil
}

func (s *PostgresStore) initializeSchema() error {
	migrationSQL, err := migrations.ReadFile("migrations.sql")
	if err != nil {
		return fmt.Errorf("error reading migrations file: %w", err)
	}
	if _, err := s.db.Exec(string(migrationSQL)); err != nil {
		return fmt.Errorf("error executing migrations: %w", err)
	}
	return nil
}

func (s *PostgresStore) Create(ctx context.Context, task *models.Task) error {
	if task.ID == "" {
		task.ID = uuid.New().String()
	}
	if task.Status == "" {
		task.Status = models.StatusPending
	}

	query := `
		INSERT INTO tasks (id, task, status, due_date, due_time, reward, recurrence, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), now())
		RETURNING updated_at`

	err := s.db.QueryRowContext(ctx, query,
		task.ID, task.Task, task.Status, task.DueDate, task.DueTime, task.Reward, task.Recurrence,
	).Scan(&task.UpdatedAt)
	if err != nil {
		return fmt.Errorf("error creating task: %w", err)
	}
	return nil
}

var updateColumns = map[string]string{
	FieldTask:       "task",
	FieldStatus:     "status",
	FieldDueDate:    "due_date",
	FieldDueTime:    "due_time",
	FieldReward:     "reward",
	FieldRecurrence: "recurrence",
}

func (s *PostgresStore) Update(ctx context.Context, id string, fields map[string]string) (*models.Task, error) {
	setClauses := make([]string, 0, len(fields)+1)
	args := make([]interface{}, 0, len(fields)+1)
	for key, value := range fields {
		column, ok := updateColumns[key]
		if !ok {
			continue
		}
		args = append(args, value)
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	setClauses = append(setClauses, "updated_at = now()")
	args = append(args, id)

	query := fmt.Sprintf(`
		UPDATE tasks SET %s
		WHERE id = $%d
		RETURNING id, task, status, due_date, due_time, reward, COALESCE(recurrence, ''), updated_at`,
		strings.Join(setClauses, ", "), len(args))

	task := &models.Task{}
	err := s.db.QueryRowContext(ctx, query, args...).Scan(
		&task.ID, &task.Task, &task.Status, &task.DueDate, &task.DueTime,
		&task.Reward, &task.Recurrence, &task.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrTaskNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error updating task: %w", err)
	}
	return task, nil
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("error deleting task: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error getting rows affected: %w", err)
	}
	if affected == 0 {
		return ErrTaskNotFound
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context, status models.TaskStatus) ([]models.Task, error) {
	query := `
		SELECT id, task, status, due_date, due_time, reward, COALESCE(recurrence, ''), updated_at
		FROM tasks`
	args := []interface{}{}
	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, status)
	}
	query += ` ORDER BY updated_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying tasks: %w", err)
	}
	defer rows.Close()
	return scanTasks(rows)
}

func (s *PostgresStore) FindByName(ctx context.Context, name string) ([]models.Task, error) {
	query := `
		SELECT id, task, status, due_date, due_time, reward, COALESCE(recurrence, ''), updated_at
		FROM tasks
		WHERE lower(btrim(task)) = lower(btrim($1))
		ORDER BY updated_at DESC`

	rows, err := s.db.QueryContext(ctx, query, name)
	if err != nil {
		return nil, fmt.Errorf("error querying tasks by name: %w", err)
	}
	defer rows.Close()
	return scanTasks(rows)
}

func scanTasks(rows *sql.Rows) ([]models.Task, error) {
	var tasks []models.Task
	for rows.Next() {
		var task models.Task
		err := rows.Scan(
			&task.ID, &task.Task, &task.Status, &task.DueDate, &task.DueTime,
			&task.Reward, &task.Recurrence, &task.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("error scanning task: %w", err)
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

func (s *PostgresStore) DeleteAll(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM tasks`); err != nil {
		return fmt.Errorf("error deleting all tasks: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetZone(ctx context.Context) (models.Zone, error) {
	var zone models.Zone
	err := s.db.QueryRowContext(ctx, `SELECT zone FROM timmy_zone WHERE id = $1`, zoneRowID).Scan(&zone)
	if err == sql.ErrNoRows {
		return models.ZoneGreen, nil
	}
	if err != nil {
		return "", fmt.Errorf("error reading zone: %w", err)
	}
	return zone, nil
}

func (s *PostgresStore) SetZone(ctx context.Context, zone models.Zone) (models.Zone, error) {
	query := `
		INSERT INTO timmy_zone (id, zone, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (id) DO UPDATE SET zone = EXCLUDED.zone, updated_at = now()`
	if _, err := s.db.ExecContext(ctx, query, zoneRowID, zone); err != nil {
		return "", fmt.Errorf("error setting zone: %w", err)
	}
	return zone, nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
