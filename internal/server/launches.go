package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"mission-control/internal/launches"
	"mission-control/internal/models"

	"github.com/go-chi/chi/v5"
)

const (
	defaultPage  = 1
	defaultLimit = 0

	// maxPageParam bounds skip, page and limit so (page-1)*limit cannot
	// overflow.
	maxPageParam = math.MaxInt32

	// maxEpochMillis is the JavaScript Date range, ±100,000,000 days.
	maxEpochMillis = 8.64e15
)

var errInvalidLaunchDate = errors.New("invalid launch date")

// launchDateLayouts are tried in order. Month names match case-insensitively.
var launchDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"January 2, 2006 15:04:05",
	"January 2, 2006 15:04",
	"January 2, 2006",
	"January 2 2006",
	"Jan 2, 2006",
	"Jan 2 2006",
	"2 January 2006",
	time.RFC1123,
	time.RFC1123Z,
	"01/02/2006",
}

type launchRequest struct {
	Mission    string          `json:"mission"`
	Rocket     string          `json:"rocket"`
	Target     string          `json:"target"`
	LaunchDate json.RawMessage `json:"launchDate"`
}

func (r launchRequest) hasLaunchDate() bool {
	raw := bytes.TrimSpace(r.LaunchDate)
	return len(raw) > 0 && string(raw) != "null" && string(raw) != `""`
}

// launchDate accepts a date string or a number of milliseconds since the
// Unix epoch.
func (r launchRequest) launchDate() (time.Time, error) {
	var raw string
	if err := json.Unmarshal(r.LaunchDate, &raw); err == nil {
		return parseLaunchDate(raw)
	}

	var millis float64
	if err := json.Unmarshal(r.LaunchDate, &millis); err != nil {
		return time.Time{}, errInvalidLaunchDate
	}
	if math.Abs(millis) > maxEpochMillis {
		return time.Time{}, errInvalidLaunchDate
	}
	return time.UnixMilli(int64(millis)).UTC(), nil
}

// GetAllLaunchesHandler lists launches by ascending flight number.
func (s *Server) GetAllLaunchesHandler(w http.ResponseWriter, r *http.Request) {
	skip, limit := getPagination(r.URL.Query())

	list, err := s.launches.List(r.Context(), skip, limit)
	if err != nil {
		s.log.WithError(err).Error("Error retrieving launches")
		respondWithError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	if list == nil {
		list = []models.Launch{}
	}

	respondWithJSON(w, http.StatusOK, list)
}

// CreateLaunchHandler schedules a new launch.
func (s *Server) CreateLaunchHandler(w http.ResponseWriter, r *http.Request) {
	var req launchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.log.WithError(err).Debug("Invalid launch data")
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	if req.Mission == "" || req.Rocket == "" || req.Target == "" || !req.hasLaunchDate() {
		respondWithError(w, http.StatusBadRequest, "Missing required launch property")
		return
	}

	launchDate, err := req.launchDate()
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid launch date")
		return
	}

	launch, err := s.launches.Schedule(r.Context(), models.Launch{
		Mission:    req.Mission,
		Rocket:     req.Rocket,
		Target:     req.Target,
		LaunchDate: launchDate,
	})
	if errors.Is(err, launches.ErrPlanetNotFound) {
		respondWithError(w, http.StatusBadRequest, "No matching planet found")
		return
	}
	if err != nil {
		s.log.WithError(err).Error("Error scheduling launch")
		respondWithError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	respondWithJSON(w, http.StatusCreated, launch)
}

// AbortLaunchHandler aborts the launch named by the {id} path parameter.
func (s *Server) AbortLaunchHandler(w http.ResponseWriter, r *http.Request) {
	flightNumber, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusNotFound, "Launch not found")
		return
	}

	aborted, err := s.launches.Abort(r.Context(), flightNumber)
	if err != nil {
		s.log.WithError(err).WithField("flightNumber", flightNumber).Error("Error aborting launch")
		respondWithError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	if !aborted {
		respondWithError(w, http.StatusNotFound, "Launch not found")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// getPagination turns the skip, page and limit query parameters into an
// offset and page size. An explicit skip wins over page.
func getPagination(query url.Values) (skip, limit int) {
	limit = absParam(query.Get("limit"), defaultLimit)

	if query.Has("skip") {
		return absParam(query.Get("skip"), 0), limit
	}

	page := absParam(query.Get("page"), defaultPage)
	if page == 0 {
		page = defaultPage
	}
	return (page - 1) * limit, limit
}

// absParam parses raw as an integer and returns its absolute value, capped
// at maxPageParam. Unparseable input returns fallback.
func absParam(raw string, fallback int) int {
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return fallback
	}
	if n < 0 {
		n = -n
	}
	if n < 0 || n > maxPageParam {
		return maxPageParam
	}
	return int(n)
}

func parseLaunchDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)

	var err error
	for _, layout := range launchDateLayouts {
		var t time.Time
		if t, err = time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, err
}
