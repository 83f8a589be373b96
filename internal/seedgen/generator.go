package seedgen

import (
	"context"
	"crypto/rand"
	"math/big"
	"strconv"
	"strings"

	"github.com/okian/relmap/pkg/logger"
)

// Constants for random number generation.
const (
	randomFloatDivisor = 1000000
	coordSpreadDegrees = 0.3
)

// Record shape distribution cases.
const (
	caseCurrentAbroad = 0
	caseCurrentNearby = 1
	casePastShort     = 2
	casePastLong      = 3
	caseInstitution   = 4
	caseMissingCoords = 5
	caseMissingYears  = 6
	caseSameSpot      = 7
	recordCaseDivisor = 8
)

type place struct {
	city    string
	region  string
	country string
	lat     float64
	lon     float64
}

var places = []place{
	{"Boston", "MA", "USA", 42.3601, -71.0589},
	{"Pittsburgh", "PA", "USA", 40.4406, -79.9959},
	{"Seattle", "WA", "USA", 47.6062, -122.3321},
	{"Ann Arbor", "MI", "USA", 42.2808, -83.7430},
	{"London", "", "UK", 51.5074, -0.1278},
	{"Zurich", "", "Switzerland", 47.3769, 8.5417},
	{"Tokyo", "", "Japan", 35.6762, 139.6503},
	{"Melbourne", "VIC", "Australia", -37.8136, 144.9631},
	{"Sao Paulo", "", "Brazil", -23.5505, -46.6333},
	{"Cape Town", "", "South Africa", -33.9249, 18.4241},
}

var firstNames = []string{
	"Ada", "Alan", "Barbara", "Carl", "Dorothy", "Emmy", "Grace",
	"John", "Katherine", "Kurt", "Mary", "Niels", "Rosalind", "Srinivasa",
}

var lastNames = []string{
	"Lovelace", "Turing", "Liskov", "Gauss", "Vaughan", "Noether",
	"Hopper", "Nash", "Johnson", "Goedel", "Somerville", "Bohr",
	"Franklin", "Ramanujan",
}

var tagPool = []string{
	"genomics", "methods", "theory", "imaging", "field work",
	"clinical", "software", "statistics",
}

// getRandomFloat returns a random float64 between 0.0 and 1.0 using crypto/rand.
func getRandomFloat() float64 {
	n, _ := rand.Int(rand.Reader, big.NewInt(randomFloatDivisor))
	return float64(n.Int64()) / float64(randomFloatDivisor)
}

// getRandomInt returns a random int in [0, n) using crypto/rand.
func getRandomInt(n int) int {
	v, _ := rand.Int(rand.Reader, big.NewInt(int64(n)))
	return int(v.Int64())
}

// generatePayloads creates the requested number of synthetic payloads.
func generatePayloads(ctx context.Context, config *Config, stats *Stats) []Payload {
	logger.Get().Info(ctx, "generating payloads",
		logger.Int("maps", config.NumMaps),
		logger.Int("recordsPerMap", config.NumRecords))

	payloads := make([]Payload, config.NumMaps)
	for i := range payloads {
		payloads[i] = generateSinglePayload(i, config.NumRecords)
		stats.RecordsGenerated += len(payloads[i].People)
	}
	stats.PayloadsGenerated = len(payloads)

	logger.Get().Info(ctx, "generated payloads successfully", logger.Int("count", len(payloads)))
	return payloads
}

// generateSinglePayload builds one payload anchored at a random home city.
func generateSinglePayload(index, numRecords int) Payload {
	home := places[getRandomInt(len(places))]
	payload := Payload{
		Home: Home{
			Lat:   home.lat,
			Lon:   home.lon,
			Label: home.city + ", " + home.country,
		},
		People: make([]Person, 0, numRecords),
	}

	for i := 0; i < numRecords; i++ {
		payload.People = append(payload.People, generateSinglePerson(index, i))
	}
	return payload
}

// generateSinglePerson creates a record with a varied shape so seeded maps
// exercise temporal filtering, clustering and the diagnostics summary.
func generateSinglePerson(mapIndex, index int) Person {
	name := firstNames[getRandomInt(len(firstNames))] + " " + lastNames[getRandomInt(len(lastNames))]
	loc := places[getRandomInt(len(places))]
	lat := loc.lat + (getRandomFloat()-0.5)*coordSpreadDegrees
	lon := loc.lon + (getRandomFloat()-0.5)*coordSpreadDegrees
	startYear := 2005 + getRandomInt(18)

	p := Person{
		Name:      name,
		Lat:       &lat,
		Lon:       &lon,
		City:      loc.city,
		Region:    loc.region,
		Country:   loc.country,
		FirstYear: startYear,
		Tags:      randomTags(),
		Link:      "people/" + strconv.Itoa(mapIndex) + "-" + strconv.Itoa(index),
		Pubs:      getRandomInt(12),
	}

	switch getRandomInt(recordCaseDivisor) {
	case caseCurrentAbroad, caseCurrentNearby:
		p.Status = "current"
		p.LastYear = "present"
	case casePastShort:
		p.Status = "past"
		p.LastYear = startYear + 1 + getRandomInt(2)
	case casePastLong:
		p.Status = "past"
		p.LastYear = startYear + 3 + getRandomInt(8)
	case caseInstitution:
		p.Name = loc.city + " Institute"
		p.Status = "current"
		p.LastYear = "present"
		p.Tags = "institution"
	case caseMissingCoords:
		p.Lat = nil
		p.Lon = nil
		p.Status = "past"
		p.LastYear = startYear + getRandomInt(5)
	case caseMissingYears:
		p.Status = "past"
		p.FirstYear = 0
	case caseSameSpot:
		// Exact home coordinates so cluster mode has something to group.
		p.Status = "current"
		p.LastYear = "present"
		lat := loc.lat
		lon := loc.lon
		p.Lat = &lat
		p.Lon = &lon
	}

	return p
}

// randomTags picks one or two tags from the pool.
func randomTags() string {
	tags := []string{tagPool[getRandomInt(len(tagPool))]}
	if getRandomFloat() > 0.5 {
		tags = append(tags, tagPool[getRandomInt(len(tagPool))])
	}
	return strings.Join(tags, "; ")
}
