package model_test

import (
	"testing"

	"github.com/okian/relmap/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestParsePayloadCollaborators(t *testing.T) {
	Convey("Given a collaborators payload", t, func() {
		data := []byte(`{
			"home": {"lat": 39.745, "lon": -104.84, "label": "Home"},
			"people": [
				{"name": "A", "status": "current", "lat": 10, "lon": 10, "tags": "Collaborator; Imaging", "first_year": 2019, "last_year": "present", "link": "/people/a"},
				{"name": "B", "status": "past", "lat": 10, "lon": 10, "tags": ["collaborator"], "first_year": "2015", "last_year": 2021},
				{"name": "C", "tags": "collaborator"},
				{"name": "", "lat": 1, "lon": 1}
			]
		}`)

		Convey("When parsing for the collaborators variant", func() {
			ds, diags, err := model.ParsePayload(data, model.VariantCollaborators)

			Convey("Then it should decode the home anchor and records", func() {
				So(err, ShouldBeNil)
				So(ds.Home.Label, ShouldEqual, "Home")
				So(ds.Home.Lat, ShouldAlmostEqual, 39.745, 0.001)
				So(len(ds.Records), ShouldEqual, 3) // blank name dropped
			})

			Convey("Then tags should be normalized and deduplicated", func() {
				So(err, ShouldBeNil)
				So(ds.Records[0].Tags, ShouldResemble, []string{"collaborator", "imaging"})
			})

			Convey("Then year fields should accept numbers, strings and present", func() {
				So(err, ShouldBeNil)
				So(ds.Records[0].Years.Start, ShouldEqual, 2019)
				So(ds.Records[0].Years.Present, ShouldBeTrue)
				So(ds.Records[1].Years.Start, ShouldEqual, 2015)
				So(ds.Records[1].Years.End, ShouldEqual, 2021)
			})

			Convey("Then diagnostics should count the gaps", func() {
				So(err, ShouldBeNil)
				So(diags.TotalRecords, ShouldEqual, 3)
				So(diags.MissingCoordinates, ShouldEqual, 1) // C
				So(diags.MissingYears, ShouldEqual, 1)       // C
			})
		})
	})
}

func TestParsePayloadTrainees(t *testing.T) {
	Convey("Given a trainees payload with an institutions table", t, func() {
		data := []byte(`{
			"home": {"lat": 39.745, "lon": -104.84, "label": "Lab"},
			"trainees": [
				{"name": "T1", "institution": "State University", "start": 2020, "end": 2022},
				{"name": "T2", "institution": "Unknown College", "start": 2021},
				{"name": "T3", "lat": 45, "lon": -100, "start": 2019, "end": "present"}
			],
			"institutions": [
				{"institution": "State University", "lat": 40.0, "lon": -105.0, "city": "Boulder", "country": "USA"}
			]
		}`)

		Convey("When parsing for the trainees variant", func() {
			ds, diags, err := model.ParsePayload(data, model.VariantTrainees)

			Convey("Then institution references should resolve to coordinates", func() {
				So(err, ShouldBeNil)
				So(ds.Records[0].Mappable(), ShouldBeTrue)
				So(ds.Records[0].Location.Lat, ShouldAlmostEqual, 40.0, 0.001)
				So(ds.Records[0].Place.City, ShouldEqual, "Boulder")
			})

			Convey("Then unresolvable references should be counted, not fatal", func() {
				So(err, ShouldBeNil)
				So(diags.UnresolvedInstitutions, ShouldEqual, 1)
				So(diags.MissingCoordinates, ShouldEqual, 1)
				So(ds.Records[1].Mappable(), ShouldBeFalse)
			})

			Convey("Then the summary line should split the gap reasons", func() {
				So(err, ShouldBeNil)
				So(diags.Summary("Trainees"), ShouldEqual, "Trainees: 2/3 with coordinates … 1 missing institution coordinates")
			})
		})
	})
}

func TestParsePayloadFatalErrors(t *testing.T) {
	Convey("Given malformed or incomplete payloads", t, func() {
		Convey("When the JSON does not parse", func() {
			_, _, err := model.ParsePayload([]byte(`{"home":`), model.VariantCollaborators)

			Convey("Then it should report a malformed payload", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "malformed payload")
			})
		})

		Convey("When the home anchor is missing", func() {
			_, _, err := model.ParsePayload([]byte(`{"people": []}`), model.VariantCollaborators)

			Convey("Then it should report the missing home", func() {
				So(err, ShouldEqual, model.ErrMissingHome)
			})
		})

		Convey("When the home anchor is out of range", func() {
			_, _, err := model.ParsePayload([]byte(`{"home": {"lat": 120, "lon": 0}}`), model.VariantCollaborators)

			Convey("Then it should be rejected", func() {
				So(err, ShouldNotBeNil)
			})
		})

		Convey("When the variant is unknown", func() {
			_, _, err := model.ParsePayload([]byte(`{"home": {"lat": 0, "lon": 0}}`), model.Variant("satellites"))

			Convey("Then it should be rejected", func() {
				So(err, ShouldNotBeNil)
			})
		})

		Convey("When the home is at the null island test anchor", func() {
			_, _, err := model.ParsePayload([]byte(`{"home": {"lat": 0, "lon": 0}, "people": []}`), model.VariantCollaborators)

			Convey("Then it should still be accepted", func() {
				So(err, ShouldBeNil)
			})
		})
	})
}

func TestNormalizeTags(t *testing.T) {
	Convey("Given raw tag strings", t, func() {
		Convey("When splitting on commas and semicolons", func() {
			So(model.NormalizeTags("Imaging; tendon,IMAGING ;"), ShouldResemble, []string{"imaging", "tendon"})
		})

		Convey("When the string is blank", func() {
			So(model.NormalizeTags("  "), ShouldBeNil)
		})

		Convey("When normalizing a list", func() {
			So(model.NormalizeTagList([]string{"A", "b", "a"}), ShouldResemble, []string{"a", "b"})
		})
	})
}

func TestPlaceLine(t *testing.T) {
	Convey("Given places with blank fields", t, func() {
		p := model.Place{Institution: "State University", City: "", Region: "CO", Country: "USA"}

		Convey("Then the line should skip blanks", func() {
			So(p.Line(), ShouldEqual, "State University, CO, USA")
		})
	})
}
