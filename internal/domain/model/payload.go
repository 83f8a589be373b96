package model

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
)

// flexYear accepts a year as a JSON number, a numeric string, the literal
// "present", or an empty string. The payload authoring tools emit all four.
type flexYear struct {
	year    int
	present bool
}

func (y *flexYear) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		s = strings.ToLower(strings.TrimSpace(s))
		switch s {
		case "":
			return nil
		case "present":
			y.present = true
			return nil
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("invalid year %q", s)
		}
		y.year = n
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	y.year = int(f)
	return nil
}

// flexTags accepts tags as a delimited string or a JSON array.
type flexTags []string

func (t *flexTags) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	if b[0] == '[' {
		var list []string
		if err := json.Unmarshal(b, &list); err != nil {
			return err
		}
		*t = NormalizeTagList(list)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	*t = NormalizeTags(s)
	return nil
}

// recordWire mirrors one payload row. Both field-name generations are
// accepted: first_year/last_year (collaborators CSV) and start/end
// (trainees CSV).
type recordWire struct {
	Name        string   `json:"name"`
	Status      string   `json:"status"`
	Lat         *float64 `json:"lat"`
	Lon         *float64 `json:"lon"`
	City        string   `json:"city"`
	Region      string   `json:"region"`
	Country     string   `json:"country"`
	Institution string   `json:"institution"`
	Department  string   `json:"department"`
	FirstYear   flexYear `json:"first_year"`
	LastYear    flexYear `json:"last_year"`
	Start       flexYear `json:"start"`
	End         flexYear `json:"end"`
	Tags        flexTags `json:"tags"`
	Link        string   `json:"link"`
	Pubs        int      `json:"pubs"`
}

type institutionWire struct {
	Institution string   `json:"institution"`
	Lat         *float64 `json:"lat"`
	Lon         *float64 `json:"lon"`
	City        string   `json:"city"`
	Region      string   `json:"region"`
	Country     string   `json:"country"`
	Link        string   `json:"link"`
}

type payloadWire struct {
	Home         *Home             `json:"home"`
	People       []recordWire      `json:"people"`
	Trainees     []recordWire      `json:"trainees"`
	Institutions []institutionWire `json:"institutions"`
}

// InstitutionSite is one row of the trainee variant's institutions table.
type InstitutionSite struct {
	Name     string
	Location Coordinates
	Place    Place
	Link     string
}

// Dataset is a decoded, validated payload ready for derivation.
type Dataset struct {
	Variant      Variant
	Home         Home
	Records      []Record
	Institutions map[string]InstitutionSite // keyed by normalized name
}

// ParsePayload decodes and validates a payload for the given variant.
// Malformed JSON and a missing or invalid home anchor are fatal; per-record
// gaps are tallied into the returned Diagnostics.
func ParsePayload(data []byte, variant Variant) (*Dataset, Diagnostics, error) {
	var diags Diagnostics

	if variant != VariantCollaborators && variant != VariantTrainees {
		return nil, diags, fmt.Errorf("%w: %q", ErrUnknownVariant, variant)
	}

	var wire payloadWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, diags, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if wire.Home == nil {
		return nil, diags, ErrMissingHome
	}
	if !wire.Home.Valid() {
		return nil, diags, fmt.Errorf("%w: lat=%v lon=%v", ErrMissingHome, wire.Home.Lat, wire.Home.Lon)
	}

	ds := &Dataset{
		Variant:      variant,
		Home:         *wire.Home,
		Institutions: make(map[string]InstitutionSite),
	}

	for _, iw := range wire.Institutions {
		name := strings.TrimSpace(iw.Institution)
		if name == "" {
			continue
		}
		site := InstitutionSite{
			Name: name,
			Place: Place{
				City:        iw.City,
				Region:      iw.Region,
				Country:     iw.Country,
				Institution: name,
			},
			Link: iw.Link,
		}
		if iw.Lat != nil && iw.Lon != nil {
			site.Location = Coordinates{Lat: *iw.Lat, Lon: *iw.Lon}
		}
		ds.Institutions[normalizeKey(name)] = site
	}

	rows := wire.People
	if variant == VariantTrainees {
		rows = wire.Trainees
	}

	for _, rw := range rows {
		if strings.TrimSpace(rw.Name) == "" {
			continue
		}
		rec := buildRecord(rw)

		if rec.Location == nil && variant == VariantTrainees && rw.Institution != "" {
			// Resolve through the institutions table.
			if site, ok := ds.Institutions[normalizeKey(rw.Institution)]; ok && site.Location.Valid() && (site.Location.Lat != 0 || site.Location.Lon != 0) {
				loc := site.Location
				rec.Location = &loc
				if rec.Place.City == "" {
					rec.Place.City = site.Place.City
				}
				if rec.Place.Region == "" {
					rec.Place.Region = site.Place.Region
				}
				if rec.Place.Country == "" {
					rec.Place.Country = site.Place.Country
				}
			} else {
				diags.UnresolvedInstitutions++
			}
		}

		diags.TotalRecords++
		if !rec.Mappable() {
			diags.MissingCoordinates++
		}
		if !rec.Years.HasStart() {
			diags.MissingYears++
		}
		ds.Records = append(ds.Records, rec)
	}

	return ds, diags, nil
}

func buildRecord(rw recordWire) Record {
	rec := Record{
		Name:       strings.TrimSpace(rw.Name),
		StatusHint: parseStatusHint(rw.Status),
		Place: Place{
			City:        rw.City,
			Region:      rw.Region,
			Country:     rw.Country,
			Institution: rw.Institution,
			Department:  rw.Department,
		},
		Tags:     rw.Tags,
		Link:     strings.TrimSpace(rw.Link),
		PubCount: rw.Pubs,
	}

	if rw.Lat != nil && rw.Lon != nil {
		loc := Coordinates{Lat: *rw.Lat, Lon: *rw.Lon}
		if loc.Valid() {
			rec.Location = &loc
		}
	}

	start, end := rw.FirstYear, rw.LastYear
	if start.year == 0 && !start.present {
		start = rw.Start
	}
	if end.year == 0 && !end.present {
		end = rw.End
	}
	rec.Years = YearRange{Start: start.year, End: end.year, Present: end.present}

	return rec
}

func parseStatusHint(s string) Status {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "past":
		return StatusPast
	case "current", "active":
		return StatusCurrent
	default:
		return ""
	}
}

func normalizeKey(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}
