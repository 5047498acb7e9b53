package database

import (
	"context"
	"testing"
	"time"

	"mission-control/internal/models"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func newMockMongo(t *testing.T) *mtest.T {
	t.Helper()
	return mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
}

func newMockMongoStore(mt *mtest.T) *mongoStore {
	logger, _ := test.NewNullLogger()
	return newMongoStore(mt.Client.Database("nasa"), logger)
}

func launchDoc(flightNumber int, mission, target string) bson.D {
	return bson.D{
		{Key: "flightNumber", Value: flightNumber},
		{Key: "mission", Value: mission},
		{Key: "rocket", Value: "Explorer IS1"},
		{Key: "launchDate", Value: time.Date(2030, time.December, 27, 0, 0, 0, 0, time.UTC)},
		{Key: "target", Value: target},
		{Key: "customers", Value: bson.A{"AL-Baath University", "NASA"}},
		{Key: "upcoming", Value: true},
		{Key: "success", Value: true},
	}
}

func TestMongoGetLaunch(t *testing.T) {
	mt := newMockMongo(t)

	mt.Run("found", func(mt *mtest.T) {
		s := newMockMongoStore(mt)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "nasa.launches", mtest.FirstBatch,
			launchDoc(101, "Kepler Exploration X", "Kepler-442 b")))

		launch, err := s.GetLaunch(context.Background(), 101)
		require.NoError(mt, err)
		assert.Equal(mt, 101, launch.FlightNumber)
		assert.Equal(mt, "Kepler-442 b", launch.Target)
		assert.Equal(mt, []string{"AL-Baath University", "NASA"}, launch.Customers)

		evt := mt.GetStartedEvent()
		require.NotNil(mt, evt)
		assert.Equal(mt, "find", evt.CommandName)
		assert.Equal(mt, int64(101), evt.Command.Lookup("filter", "flightNumber").AsInt64())
	})

	mt.Run("not found", func(mt *mtest.T) {
		s := newMockMongoStore(mt)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "nasa.launches", mtest.FirstBatch))

		launch, err := s.GetLaunch(context.Background(), 999)
		assert.Nil(mt, launch)
		assert.ErrorIs(mt, err, ErrNotFound)
	})

	mt.Run("command error", func(mt *mtest.T) {
		s := newMockMongoStore(mt)
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code:    2,
			Name:    "BadValue",
			Message: "bad filter",
		}))

		_, err := s.GetLaunch(context.Background(), 1)
		require.Error(mt, err)
		assert.NotErrorIs(mt, err, ErrNotFound)
		assert.ErrorContains(mt, err, "bad filter")
	})
}

func TestMongoGetLaunches(t *testing.T) {
	mt := newMockMongo(t)

	mt.Run("sorted page without ids", func(mt *mtest.T) {
		s := newMockMongoStore(mt)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "nasa.launches", mtest.FirstBatch,
			launchDoc(101, "Kepler Exploration X", "Kepler-442 b"),
			launchDoc(102, "Kepler Exploration Y", "Kepler-62 f"),
		))

		launches, err := s.GetLaunches(context.Background(), 10, 2)
		require.NoError(mt, err)
		require.Len(mt, launches, 2)
		assert.Equal(mt, 101, launches[0].FlightNumber)
		assert.Equal(mt, 102, launches[1].FlightNumber)

		evt := mt.GetStartedEvent()
		require.NotNil(mt, evt)
		assert.Equal(mt, "find", evt.CommandName)
		assert.Equal(mt, int64(0), evt.Command.Lookup("projection", "_id").AsInt64())
		assert.Equal(mt, int64(1), evt.Command.Lookup("sort", "flightNumber").AsInt64())
		assert.Equal(mt, int64(10), evt.Command.Lookup("skip").AsInt64())
		assert.Equal(mt, int64(2), evt.Command.Lookup("limit").AsInt64())
	})

	mt.Run("zero limit is unbounded", func(mt *mtest.T) {
		s := newMockMongoStore(mt)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "nasa.launches", mtest.FirstBatch))

		launches, err := s.GetLaunches(context.Background(), 0, 0)
		require.NoError(mt, err)
		assert.NotNil(mt, launches)
		assert.Empty(mt, launches)

		evt := mt.GetStartedEvent()
		require.NotNil(mt, evt)
		_, err = evt.Command.LookupErr("limit")
		assert.Error(mt, err, "no limit should be sent")
	})
}

func TestMongoLatestFlightNumber(t *testing.T) {
	mt := newMockMongo(t)

	mt.Run("empty collection", func(mt *mtest.T) {
		s := newMockMongoStore(mt)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "nasa.launches", mtest.FirstBatch))

		latest, err := s.LatestFlightNumber(context.Background())
		require.NoError(mt, err)
		assert.Equal(mt, DefaultFlightNumber, latest)
	})

	mt.Run("highest flight number", func(mt *mtest.T) {
		s := newMockMongoStore(mt)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "nasa.launches", mtest.FirstBatch,
			launchDoc(187, "Starlink", "")))

		latest, err := s.LatestFlightNumber(context.Background())
		require.NoError(mt, err)
		assert.Equal(mt, 187, latest)

		evt := mt.GetStartedEvent()
		require.NotNil(mt, evt)
		assert.Equal(mt, int64(-1), evt.Command.Lookup("sort", "flightNumber").AsInt64())
	})
}

func TestMongoNextFlightNumber(t *testing.T) {
	mt := newMockMongo(t)

	mt.Run("decodes the counter", func(mt *mtest.T) {
		s := newMockMongoStore(mt)
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, "nasa.launches", mtest.FirstBatch, launchDoc(187, "Starlink", "")),
			mtest.CreateSuccessResponse(bson.E{Key: "value", Value: bson.D{
				{Key: "_id", Value: flightNumberCounter},
				{Key: "seq", Value: 188},
			}}),
		)

		next, err := s.NextFlightNumber(context.Background())
		require.NoError(mt, err)
		assert.Equal(mt, 188, next)

		assert.Equal(mt, "find", mt.GetStartedEvent().CommandName)

		evt := mt.GetStartedEvent()
		require.NotNil(mt, evt)
		assert.Equal(mt, "findAndModify", evt.CommandName)
		assert.Equal(mt, flightNumberCounter, evt.Command.Lookup("query", "_id").StringValue())
		assert.True(mt, evt.Command.Lookup("upsert").Boolean())
		assert.True(mt, evt.Command.Lookup("new").Boolean())
	})

	mt.Run("update error", func(mt *mtest.T) {
		s := newMockMongoStore(mt)
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, "nasa.launches", mtest.FirstBatch),
			mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 11000, Name: "DuplicateKey", Message: "duplicate key"}),
		)

		_, err := s.NextFlightNumber(context.Background())
		assert.ErrorContains(mt, err, "reserving flight number")
	})
}

func TestMongoSaveLaunch(t *testing.T) {
	mt := newMockMongo(t)

	mt.Run("upserts", func(mt *mtest.T) {
		s := newMockMongoStore(mt)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}))

		err := s.SaveLaunch(context.Background(), &models.Launch{FlightNumber: 7, Mission: "RatSat", Rocket: "Falcon 1"})
		require.NoError(mt, err)

		evt := mt.GetStartedEvent()
		require.NotNil(mt, evt)
		assert.Equal(mt, "update", evt.CommandName)
	})

	mt.Run("write error", func(mt *mtest.T) {
		s := newMockMongoStore(mt)
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 2, Name: "BadValue", Message: "bad update"}))

		err := s.SaveLaunch(context.Background(), &models.Launch{FlightNumber: 7})
		assert.ErrorContains(mt, err, "saving launch 7")
	})
}

// The upsert uses the whole launch as its $set document, so an empty target
// must still be written to clear a stale one.
func TestLaunchDocumentKeepsEmptyTarget(t *testing.T) {
	raw, err := bson.Marshal(models.Launch{FlightNumber: 7, Mission: "RatSat", Rocket: "Falcon 1"})
	require.NoError(t, err)

	target, err := bson.Raw(raw).LookupErr("target")
	require.NoError(t, err)
	assert.Equal(t, "", target.StringValue())
}

func TestMongoSetLaunchStatus(t *testing.T) {
	mt := newMockMongo(t)

	mt.Run("sets both flags", func(mt *mtest.T) {
		s := newMockMongoStore(mt)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}))

		require.NoError(mt, s.SetLaunchStatus(context.Background(), 102, false, false))
		assert.Equal(mt, "update", mt.GetStartedEvent().CommandName)
	})
}

func TestMongoFindPlanet(t *testing.T) {
	mt := newMockMongo(t)

	mt.Run("found", func(mt *mtest.T) {
		s := newMockMongoStore(mt)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "nasa.planets", mtest.FirstBatch,
			bson.D{{Key: "kepler_name", Value: "Kepler-62 f"}}))

		planet, err := s.FindPlanet(context.Background(), "Kepler-62 f")
		require.NoError(mt, err)
		assert.Equal(mt, "Kepler-62 f", planet.KeplerName)
	})

	mt.Run("not found", func(mt *mtest.T) {
		s := newMockMongoStore(mt)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "nasa.planets", mtest.FirstBatch))

		_, err := s.FindPlanet(context.Background(), "Earth")
		assert.ErrorIs(mt, err, ErrNotFound)
	})
}

func TestMongoGetAllPlanets(t *testing.T) {
	mt := newMockMongo(t)

	mt.Run("lists without ids", func(mt *mtest.T) {
		s := newMockMongoStore(mt)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "nasa.planets", mtest.FirstBatch,
			bson.D{{Key: "kepler_name", Value: "Kepler-1410 b"}},
			bson.D{{Key: "kepler_name", Value: "Kepler-442 b"}},
		))

		planets, err := s.GetAllPlanets(context.Background())
		require.NoError(mt, err)
		assert.Equal(mt, []models.Planet{{KeplerName: "Kepler-1410 b"}, {KeplerName: "Kepler-442 b"}}, planets)

		evt := mt.GetStartedEvent()
		require.NotNil(mt, evt)
		assert.Equal(mt, int64(0), evt.Command.Lookup("projection", "_id").AsInt64())
	})
}

func TestMongoHealth(t *testing.T) {
	mt := newMockMongo(t)

	mt.Run("up", func(mt *mtest.T) {
		s := newMockMongoStore(mt)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		stats := s.Health()
		assert.Equal(mt, "up", stats["status"])
		assert.Equal(mt, "nasa", stats["database"])
	})

	mt.Run("down", func(mt *mtest.T) {
		s := newMockMongoStore(mt)
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 13, Name: "Unauthorized", Message: "not authorized"}))

		stats := s.Health()
		assert.Equal(mt, "down", stats["status"])
		assert.Contains(mt, stats["error"], "not authorized")
	})
}

func TestMigrationsWidenFlightNumber(t *testing.T) {
	up, err := migrationsFS.ReadFile("migrations/000003_widen_flight_number.up.sql")
	require.NoError(t, err)
	assert.Contains(t, string(up), "flight_number TYPE BIGINT")
	assert.Contains(t, string(up), "value TYPE BIGINT")
}
