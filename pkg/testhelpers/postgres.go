package testhelpers

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"kithbook-backend/pkg/database"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const postgresImage = "postgres:16-alpine"

var (
	sharedDB     *gorm.DB
	sharedDBOnce sync.Once
	sharedDBErr  error
)

// GetTestDB returns a migrated database in a PostgreSQL container shared by
// every test of the run. Every table is emptied before it is returned.
func GetTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode (requires Docker)")
	}

	sharedDBOnce.Do(func() {
		sharedDB, sharedDBErr = setupTestDB()
	})
	if sharedDBErr != nil {
		t.Fatalf("Failed to setup test database: %v", sharedDBErr)
	}

	if err := sharedDB.Exec("TRUNCATE users, refresh_tokens, contacts, emails, email_recipients, calendar_events, event_attendees CASCADE").Error; err != nil {
		t.Fatalf("Failed to reset test database: %v", err)
	}
	return sharedDB
}

func setupTestDB() (*gorm.DB, error) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        postgresImage,
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_DB":       "kithbook_test",
			"POSTGRES_USER":     "kithbook",
			"POSTGRES_PASSWORD": "test_password",
		},
		// postgres restarts once after init; wait for the second ready line
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start test container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get container host: %w", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		return nil, fmt.Errorf("failed to get container port: %w", err)
	}

	dsn := fmt.Sprintf("postgres://kithbook:test_password@%s:%s/kithbook_test?sslmode=disable", host, port.Port())

	var db *gorm.DB
	for i := 0; i < 10; i++ {
		if db, err = database.NewPostgresConnection(dsn, 5); err == nil {
			break
		}
		time.Sleep(500 * time.Millisecond)
	}
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if err := database.RunMigrations(sqlDB, zap.NewNop()); err != nil {
		return nil, err
	}
	return db, nil
}

// CreateUser inserts a bare user row for foreign keys
func CreateUser(t *testing.T, db *gorm.DB, id, email string) {
	t.Helper()
	if err := db.Exec("INSERT INTO users (id, email) VALUES (?, ?)", id, email).Error; err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}
}
