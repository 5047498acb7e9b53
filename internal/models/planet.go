package models

// Planet is a candidate destination identified by its Kepler catalog name.
type Planet struct {
	KeplerName string `json:"kepler_name" bson:"kepler_name"`
}
