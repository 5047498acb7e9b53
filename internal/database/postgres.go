package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"mission-control/internal/models"

	// PostgreSQL driver
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/sirupsen/logrus"
)

const flightNumberCounter = "flight_number"

const launchColumns = `flight_number, mission, rocket, launch_date, target, customers, upcoming, success`

type postgresStore struct {
	db       *sql.DB
	database string
	log      logrus.FieldLogger
}

func newPostgres(ctx context.Context, connStr string, logger logrus.FieldLogger) (*postgresStore, error) {
	if err := migrateUp(connStr); err != nil {
		return nil, err
	}

	db, err := sql.Open("pgx", connStr)
	if err != nil {
		return nil, fmt.Errorf("opening postgres : %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to postgres : %w", err)
	}

	s := &postgresStore{
		db:       db,
		database: databaseName(connStr),
		log:      logger,
	}
	logger.WithField("database", s.database).Info("Connected to PostgreSQL")
	return s, nil
}

// Health checks the health of the database connection by pinging the database.
// It returns a map with keys indicating various health statistics.
func (s *postgresStore) Health() map[string]string {
	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	stats := make(map[string]string)

	err := s.db.PingContext(ctx)
	if err != nil {
		stats["status"] = "down"
		stats["error"] = fmt.Sprintf("db down: %v", err)
		s.log.WithError(err).Error("Database health check failed")
		return stats
	}

	stats["status"] = "up"
	stats["message"] = "It's healthy"

	dbStats := s.db.Stats()
	stats["open_connections"] = strconv.Itoa(dbStats.OpenConnections)
	stats["in_use"] = strconv.Itoa(dbStats.InUse)
	stats["idle"] = strconv.Itoa(dbStats.Idle)
	stats["wait_count"] = strconv.FormatInt(dbStats.WaitCount, 10)
	stats["wait_duration"] = dbStats.WaitDuration.String()
	stats["max_idle_closed"] = strconv.FormatInt(dbStats.MaxIdleClosed, 10)
	stats["max_lifetime_closed"] = strconv.FormatInt(dbStats.MaxLifetimeClosed, 10)

	if dbStats.OpenConnections > 100 {
		stats["message"] = "The database is experiencing heavy load."
	}

	if dbStats.WaitCount > 1000 {
		stats["message"] = "The database has a high number of wait events, indicating potential bottlenecks."
	}

	return stats
}

// Close closes the database connection.
func (s *postgresStore) Close() error {
	s.log.WithField("database", s.database).Info("Disconnected from database")
	return s.db.Close()
}

func (s *postgresStore) GetLaunch(ctx context.Context, flightNumber int) (*models.Launch, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+launchColumns+` FROM launches WHERE flight_number = $1`,
		flightNumber,
	)
	launch, err := scanLaunch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting launch %d : %w", flightNumber, err)
	}
	return launch, nil
}

// GetLaunches returns launches ordered by flight number. A limit of zero
// returns every launch after skip.
func (s *postgresStore) GetLaunches(ctx context.Context, skip, limit int) ([]models.Launch, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+launchColumns+` FROM launches ORDER BY flight_number ASC OFFSET $1 LIMIT NULLIF($2, 0)`,
		skip, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing launches : %w", err)
	}
	defer rows.Close()

	launches := []models.Launch{}
	for rows.Next() {
		launch, err := scanLaunch(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning launch : %w", err)
		}
		launches = append(launches, *launch)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating launches : %w", err)
	}
	return launches, nil
}

func (s *postgresStore) LatestFlightNumber(ctx context.Context) (int, error) {
	var latest int
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(flight_number), $1) FROM launches`,
		DefaultFlightNumber,
	).Scan(&latest)
	if err != nil {
		return 0, fmt.Errorf("getting latest flight number : %w", err)
	}
	return latest, nil
}

// NextFlightNumber bumps the flight number counter in a single statement.
// The counter row lock serializes concurrent callers, and GREATEST keeps the
// counter ahead of flight numbers written by seeding.
func (s *postgresStore) NextFlightNumber(ctx context.Context) (int, error) {
	var next int
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO counters (name, value)
		VALUES ($1, (SELECT COALESCE(MAX(flight_number), $2) FROM launches) + 1)
		ON CONFLICT (name) DO UPDATE
		SET value = GREATEST(counters.value, EXCLUDED.value - 1) + 1
		RETURNING value`,
		flightNumberCounter, DefaultFlightNumber,
	).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("reserving flight number : %w", err)
	}
	return next, nil
}

// SaveLaunch inserts the launch or overwrites the row with the same flight
// number.
func (s *postgresStore) SaveLaunch(ctx context.Context, launch *models.Launch) error {
	customers := launch.Customers
	if customers == nil {
		customers = []string{}
	}
	encoded, err := json.Marshal(customers)
	if err != nil {
		return fmt.Errorf("encoding customers : %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO launches (`+launchColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (flight_number) DO UPDATE SET
			mission = EXCLUDED.mission,
			rocket = EXCLUDED.rocket,
			launch_date = EXCLUDED.launch_date,
			target = EXCLUDED.target,
			customers = EXCLUDED.customers,
			upcoming = EXCLUDED.upcoming,
			success = EXCLUDED.success`,
		launch.FlightNumber,
		launch.Mission,
		launch.Rocket,
		launch.LaunchDate,
		launch.Target,
		string(encoded),
		launch.Upcoming,
		launch.Success,
	)
	if err != nil {
		return fmt.Errorf("saving launch %d : %w", launch.FlightNumber, err)
	}
	return nil
}

// SetLaunchStatus updates the status flags of a launch. Updating a missing
// flight number is not an error.
func (s *postgresStore) SetLaunchStatus(ctx context.Context, flightNumber int, upcoming, success bool) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE launches SET upcoming = $2, success = $3 WHERE flight_number = $1`,
		flightNumber, upcoming, success,
	)
	if err != nil {
		return fmt.Errorf("updating launch %d : %w", flightNumber, err)
	}
	return nil
}

func (s *postgresStore) FindPlanet(ctx context.Context, keplerName string) (*models.Planet, error) {
	var planet models.Planet
	err := s.db.QueryRowContext(ctx,
		`SELECT kepler_name FROM planets WHERE kepler_name = $1`,
		keplerName,
	).Scan(&planet.KeplerName)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("finding planet %q : %w", keplerName, err)
	}
	return &planet, nil
}

func (s *postgresStore) GetAllPlanets(ctx context.Context) ([]models.Planet, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT kepler_name FROM planets ORDER BY kepler_name`)
	if err != nil {
		return nil, fmt.Errorf("listing planets : %w", err)
	}
	defer rows.Close()

	planets := []models.Planet{}
	for rows.Next() {
		var planet models.Planet
		if err := rows.Scan(&planet.KeplerName); err != nil {
			return nil, fmt.Errorf("scanning planet : %w", err)
		}
		planets = append(planets, planet)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating planets : %w", err)
	}
	return planets, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLaunch(row rowScanner) (*models.Launch, error) {
	var (
		launch    models.Launch
		customers []byte
	)
	err := row.Scan(
		&launch.FlightNumber,
		&launch.Mission,
		&launch.Rocket,
		&launch.LaunchDate,
		&launch.Target,
		&customers,
		&launch.Upcoming,
		&launch.Success,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(customers, &launch.Customers); err != nil {
		return nil, fmt.Errorf("decoding customers : %w", err)
	}
	return &launch, nil
}

func databaseName(connStr string) string {
	u, err := url.Parse(connStr)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(u.Path, "/")
}
