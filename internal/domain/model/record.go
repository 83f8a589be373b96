// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"regexp"
	"strings"
)

// Variant selects which map engine a payload feeds.
type Variant string

// Supported map variants.
const (
	VariantCollaborators Variant = "collaborators"
	VariantTrainees      Variant = "trainees"
)

// Status is the temporal status of a record.
type Status string

// Temporal statuses. Under a year-bounded query the status is recomputed
// from the record's year range, never copied from the hint.
const (
	StatusCurrent Status = "current"
	StatusPast    Status = "past"
)

// EntityType is the resolved display type of a record.
type EntityType string

// Resolved entity types.
const (
	TypeCollaborator EntityType = "collaborator"
	TypeInstitution  EntityType = "institution"
	TypeTrainee      EntityType = "trainee"
)

// InstitutionTag is the reserved tag that reclassifies a record as an
// institution marker on the collaborators variant.
const InstitutionTag = "institution"

// Coordinates is a lat/lon pair in decimal degrees.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Valid reports whether the coordinates are inside the WGS84 envelope.
func (c Coordinates) Valid() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lon >= -180 && c.Lon <= 180
}

// Place carries display-only location context for a record.
type Place struct {
	City        string `json:"city,omitempty"`
	Region      string `json:"region,omitempty"`
	Country     string `json:"country,omitempty"`
	Institution string `json:"institution,omitempty"`
	Department  string `json:"department,omitempty"`
}

// Line assembles "institution, city, region, country", skipping blanks.
func (p Place) Line() string {
	parts := make([]string, 0, 4)
	for _, s := range []string{p.Institution, p.City, p.Region, p.Country} {
		if strings.TrimSpace(s) != "" {
			parts = append(parts, strings.TrimSpace(s))
		}
	}
	return strings.Join(parts, ", ")
}

// YearRange is a record's activity window. Start == 0 means the record has
// no usable range and is excluded from year-bounded queries. Present marks
// an open range that resolves to the clock's current year at evaluation
// time.
type YearRange struct {
	Start   int  `json:"start,omitempty"`
	End     int  `json:"end,omitempty"`
	Present bool `json:"present,omitempty"`
}

// HasStart reports whether the range can participate in a year query.
func (r YearRange) HasStart() bool { return r.Start > 0 }

// Record is one row of the input payload.
type Record struct {
	Name       string       `json:"name"`
	StatusHint Status       `json:"status_hint,omitempty"`
	Location   *Coordinates `json:"location,omitempty"`
	Place      Place        `json:"place"`
	Years      YearRange    `json:"years"`
	Tags       []string     `json:"tags,omitempty"`
	Link       string       `json:"link,omitempty"`

	// PubCount is the publication count when the payload carries one.
	// Summed when records collapse into a cluster aggregate.
	PubCount int `json:"pub_count,omitempty"`
}

// Mappable reports whether the record can appear on the map at all.
func (r Record) Mappable() bool {
	return r.Location != nil && r.Location.Valid()
}

// HasTag reports whether the record carries the given normalized tag.
func (r Record) HasTag(tag string) bool {
	for _, t := range r.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Home is the anchor point connection lines originate from.
type Home struct {
	Coordinates
	Label string `json:"label"`
}

// Diagnostics tallies per-record data gaps discovered while loading or
// deriving a payload. Gaps are non-fatal; the affected records are excluded
// from the visual but stay visible through the summary line.
type Diagnostics struct {
	TotalRecords           int `json:"total_records"`
	MissingCoordinates     int `json:"missing_coordinates"`
	MissingYears           int `json:"missing_years"`
	UnresolvedInstitutions int `json:"unresolved_institutions"`
}

// Summary renders the one-line data-gap summary shown next to the map.
// MissingCoordinates includes records whose institution reference could not
// be resolved; the two clauses below split them apart for the reader.
func (d Diagnostics) Summary(label string) string {
	mapped := d.TotalRecords - d.MissingCoordinates
	s := fmt.Sprintf("%s: %d/%d with coordinates", label, mapped, d.TotalRecords)
	if plain := d.MissingCoordinates - d.UnresolvedInstitutions; plain > 0 {
		s += fmt.Sprintf(" … %d missing coordinates", plain)
	}
	if d.MissingYears > 0 {
		s += fmt.Sprintf(" … %d missing year range", d.MissingYears)
	}
	if d.UnresolvedInstitutions > 0 {
		s += fmt.Sprintf(" … %d missing institution coordinates", d.UnresolvedInstitutions)
	}
	return s
}

var tagSplitRE = regexp.MustCompile(`[,;]+`)

// NormalizeTags splits a raw tag string on commas/semicolons, trims,
// lowercases and deduplicates while preserving first-seen order. This
// mirrors how the payload authoring tools write the tags column.
func NormalizeTags(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	seen := make(map[string]struct{})
	var tags []string
	for _, part := range tagSplitRE.Split(raw, -1) {
		t := strings.ToLower(strings.TrimSpace(part))
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		tags = append(tags, t)
	}
	return tags
}

// NormalizeTagList normalizes an already-split tag list with the same
// rules as NormalizeTags.
func NormalizeTagList(raw []string) []string {
	return NormalizeTags(strings.Join(raw, ";"))
}
