package spacex

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"mission-control/internal/models"

	"github.com/sirupsen/logrus"
)

// ErrDownloadFailed is returned when the launch query endpoint answers with
// anything other than 200 OK.
var ErrDownloadFailed = errors.New("launch data download failed")

// launchQuery asks for every launch in one page, with the rocket name and the
// payload customers populated.
var launchQuery = map[string]any{
	"query": map[string]any{},
	"options": map[string]any{
		"pagination": false,
		"populate": []map[string]any{
			{
				"path":   "rocket",
				"select": map[string]int{"name": 1},
			},
			{
				"path":   "payloads",
				"select": map[string]int{"customers": 1},
			},
		},
	},
}

type queryResponse struct {
	Docs []launchDoc `json:"docs"`
}

type launchDoc struct {
	FlightNumber int       `json:"flight_number"`
	Name         string    `json:"name"`
	DateLocal    time.Time `json:"date_local"`
	Upcoming     bool      `json:"upcoming"`
	Success      *bool     `json:"success"`
	Rocket       struct {
		Name string `json:"name"`
	} `json:"rocket"`
	Payloads []struct {
		Customers []string `json:"customers"`
	} `json:"payloads"`
}

// Client downloads historical launch records from the SpaceX API.
type Client struct {
	url  string
	http *http.Client
	log  logrus.FieldLogger
}

// NewClient returns a Client that queries url. A zero timeout leaves the
// http.Client default in place.
func NewClient(url string, timeout time.Duration, logger logrus.FieldLogger) *Client {
	return &Client{
		url:  url,
		http: &http.Client{Timeout: timeout},
		log:  logger,
	}
}

// FetchLaunches downloads every launch in a single unpaginated request.
func (c *Client) FetchLaunches(ctx context.Context) ([]models.Launch, error) {
	c.log.WithField("url", c.url).Info("Downloading launch data...")

	body, err := json.Marshal(launchQuery)
	if err != nil {
		return nil, fmt.Errorf("encoding launch query : %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building launch query : %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("querying launches : %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.log.WithField("status", resp.StatusCode).Error("Problem downloading launch data")
		return nil, fmt.Errorf("%w: status %d", ErrDownloadFailed, resp.StatusCode)
	}

	var decoded queryResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decoding launch data : %w", err)
	}

	launches := make([]models.Launch, 0, len(decoded.Docs))
	for _, doc := range decoded.Docs {
		launches = append(launches, doc.toLaunch())
	}
	c.log.WithField("count", len(launches)).Info("Downloaded launch data")
	return launches, nil
}

// toLaunch maps a provider record onto a Launch. Payload customers are
// flattened in payload order. A null success means the launch has not flown
// yet and is stored as success=true.
func (d launchDoc) toLaunch() models.Launch {
	customers := []string{}
	for _, payload := range d.Payloads {
		customers = append(customers, payload.Customers...)
	}

	success := true
	if d.Success != nil {
		success = *d.Success
	}

	return models.Launch{
		FlightNumber: d.FlightNumber,
		Mission:      d.Name,
		Rocket:       d.Rocket.Name,
		LaunchDate:   d.DateLocal,
		Customers:    customers,
		Upcoming:     d.Upcoming,
		Success:      success,
	}
}
