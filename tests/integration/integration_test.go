package integration_test

import (
	"context"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/parkournet/recordsdb/internal/config"
	"github.com/parkournet/recordsdb/internal/database"
	"github.com/parkournet/recordsdb/internal/handlers"
	"github.com/parkournet/recordsdb/internal/models"
	"github.com/parkournet/recordsdb/internal/services"
	"github.com/parkournet/recordsdb/internal/types"
	"github.com/parkournet/recordsdb/tests/helpers"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/gorm"
)

func dbImage() string {
	if img := os.Getenv("DB_IMAGE"); img != "" {
		return img
	}
	return "mariadb:11"
}

// TestWithMariaDB tests the service against a real MariaDB container
func TestWithMariaDB(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()

	mariadbContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        dbImage(),
			ExposedPorts: []string{"3306/tcp"},
			Env: map[string]string{
				"MYSQL_ROOT_PASSWORD": "rootpass",
				"MYSQL_DATABASE":      "testdb",
				"MYSQL_USER":          "testuser",
				"MYSQL_PASSWORD":      "testpass",
			},
			WaitingFor: wait.ForLog("ready for connections").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err, "Failed to start MariaDB container")
	defer func() {
		if err := mariadbContainer.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate MariaDB container: %v", err)
		}
	}()

	host, err := mariadbContainer.Host(ctx)
	require.NoError(t, err)
	port, err := mariadbContainer.MappedPort(ctx, "3306")
	require.NoError(t, err)

	cfg := &config.Config{
		DBType:               "mysql",
		DBHost:               host,
		DBPort:               port.Port(),
		DBDatabase:           "testdb",
		DBAppUser:            "testuser",
		DBAppPassword:        "testpass",
		DBAppConnectionLimit: 5,
	}

	// Wait for database to be ready
	time.Sleep(5 * time.Second)

	db, err := database.Connect(cfg)
	require.NoError(t, err, "Failed to connect to database")
	defer database.Close(db)

	require.NoError(t, database.AutoMigrate(db), "Failed to run migrations")

	t.Run("BestTimeRule", func(t *testing.T) {
		testBestTimeRule(t, db)
	})

	t.Run("LinkedCodes", func(t *testing.T) {
		testLinkedCodes(t, db)
	})

	t.Run("VerificationAndVoting", func(t *testing.T) {
		testVerificationAndVoting(t, db)
	})

	t.Run("ClickDedupe", func(t *testing.T) {
		testClickDedupe(t, db)
	})

	t.Run("HTTPLeaderboard", func(t *testing.T) {
		testHTTPLeaderboard(t, db)
	})

	t.Run("HealthCheck", func(t *testing.T) {
		result := services.HealthCheck(cfg, db)
		require.Equal(t, "healthy", result.Status)
		require.Equal(t, "ok", result.Database)
	})
}

func videoInput(code string, userID uint64, tm float64) services.CompletionInput {
	return services.CompletionInput{
		Code:       code,
		UserID:     types.FlexUint64(userID),
		Time:       tm,
		Screenshot: helpers.FakeScreenshotURL(),
		Video:      videoURL(),
	}
}

func videoURL() *string {
	u := helpers.FakeVideoURL()
	return &u
}

// testBestTimeRule exercises the monotonic best-time constraint against the
// database's row locks rather than sqlite's single writer.
func testBestTimeRule(t *testing.T, db *gorm.DB) {
	helpers.CreateTestUser(t, db, 1001)
	helpers.CreateTestMap(t, db, "ITAA01", 3.0, "Medium")

	_, err := services.RecordCompletion(db, videoInput("ITAA01", 1001, 30))
	require.NoError(t, err)

	_, err = services.RecordCompletion(db, videoInput("ITAA01", 1001, 35))
	var constraint *types.ConstraintViolation
	require.ErrorAs(t, err, &constraint)
	require.Equal(t, 30.0, constraint.BestTime)

	_, err = services.RecordCompletion(db, videoInput("ITAA01", 1001, 25))
	require.NoError(t, err)
}

func testLinkedCodes(t *testing.T, db *gorm.DB) {
	helpers.CreateTestMap(t, db, "ITBB01", 3.0, "Medium")
	helpers.CreateTestMap(t, db, "ITBB02", 3.0, "Medium")
	helpers.CreateTestMap(t, db, "ITBB03", 3.0, "Medium")

	target := "ITBB02"
	require.NoError(t, services.SetLinkedCode(db, "ITBB01", &target))

	a, err := services.GetMap(db, "ITBB01")
	require.NoError(t, err)
	b, err := services.GetMap(db, "ITBB02")
	require.NoError(t, err)
	require.NotNil(t, a.LinkedCode)
	require.NotNil(t, b.LinkedCode)
	require.Equal(t, "ITBB02", *a.LinkedCode)
	require.Equal(t, "ITBB01", *b.LinkedCode)

	var conflict *types.ConflictError
	require.ErrorAs(t, services.SetLinkedCode(db, "ITBB03", &target), &conflict)

	require.NoError(t, services.SetLinkedCode(db, "ITBB01", nil))
	b, err = services.GetMap(db, "ITBB02")
	require.NoError(t, err)
	require.Nil(t, b.LinkedCode)
}

func testVerificationAndVoting(t *testing.T, db *gorm.DB) {
	helpers.CreateTestUser(t, db, 1002)
	m := helpers.CreateTestMap(t, db, "ITCC01", 3.0, "Medium")
	require.NoError(t, db.Model(m).Update("playtesting", models.PlaytestingInProgress).Error)

	_, err := services.CreatePlaytest(db, services.PlaytestCreateInput{
		ThreadID:   9001,
		Code:       "ITCC01",
		Difficulty: "Medium",
	})
	require.NoError(t, err)

	c, err := services.RecordCompletion(db, videoInput("ITCC01", 1002, 42))
	require.NoError(t, err)

	require.NoError(t, services.RateMap(db, "ITCC01", 1002, 8))

	var ineligible *types.IneligibleVoterError
	require.ErrorAs(t, services.CastVote(db, 9001, 1002, 4.0), &ineligible)

	_, err = services.VerifyCompletion(db, c.ID, services.VerificationInput{VerifiedBy: 9999})
	require.NoError(t, err)

	// Verification opens the vote gate and flips the rating.
	require.NoError(t, services.CastVote(db, 9001, 1002, 4.0))

	var rating models.MapRating
	require.NoError(t, db.Where("map_id = ? AND user_id = ?", m.ID, 1002).First(&rating).Error)
	require.True(t, rating.Verified)

	summary, err := services.Votes(db, 9001)
	require.NoError(t, err)
	require.Len(t, summary.Votes, 1)
	require.Equal(t, 4.0, summary.Average)
}

// testHTTPLeaderboard drives the leaderboard through the fiber handler.
func testHTTPLeaderboard(t *testing.T, db *gorm.DB) {
	app := fiber.New()
	mapHandler := &handlers.MapHandler{DB: db}
	app.Get("/api/maps/:code/leaderboard", mapHandler.Leaderboard)

	helpers.CreateTestUser(t, db, 1003)
	helpers.CreateTestUser(t, db, 1004)
	m := helpers.CreateTestMap(t, db, "ITEE01", 3.0, "Medium")
	helpers.CreateTestMap(t, db, "ITEE02", 3.0, "Medium")
	helpers.CreateTestCompletion(t, db, m.ID, 1003, 44.5, true)
	helpers.CreateTestCompletion(t, db, m.ID, 1004, 51.2, true)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/maps/ITEE01/leaderboard", nil))
	require.NoError(t, err)
	helpers.AssertStatus(t, resp, fiber.StatusOK)

	var entries []services.LeaderboardEntry
	helpers.ParseJSON(t, resp, &entries)
	require.Len(t, entries, 2)
	require.Equal(t, uint64(1003), entries[0].UserID)
	require.Equal(t, 1, entries[0].Rank)
	require.Equal(t, 2, entries[1].Rank)

	// A map with no runs yields 204 with an empty body.
	resp, err = app.Test(httptest.NewRequest("GET", "/api/maps/ITEE02/leaderboard", nil))
	require.NoError(t, err)
	helpers.AssertStatus(t, resp, fiber.StatusNoContent)
	helpers.AssertNoContent(t, resp)
}

// testClickDedupe relies on the real unique-index ON CONFLICT path.
func testClickDedupe(t *testing.T, db *gorm.DB) {
	helpers.CreateTestMap(t, db, "ITDD01", 3.0, "Medium")

	src := helpers.FakeSourceHash()
	ts := time.Now().UTC()

	require.NoError(t, services.RecordClick(db, "ITDD01", src, ts))

	var duplicate *types.DuplicateEventError
	require.ErrorAs(t, services.RecordClick(db, "ITDD01", src, ts), &duplicate)

	count, err := services.ClickCount(db, "ITDD01")
	require.NoError(t, err)
	require.Equal(t, int64(1), count)
}
