package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	repository "github.com/okian/relmap/internal/adapters/repository"
	service "github.com/okian/relmap/internal/app"
	"github.com/okian/relmap/internal/domain/model"
	"github.com/okian/relmap/internal/domain/temporal"
	"github.com/okian/relmap/internal/domain/types"
	"github.com/okian/relmap/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

const collaboratorsPayload = `{
	"home": {"lat": 42.36, "lon": -71.09, "label": "Cambridge, MA"},
	"people": [
		{"name": "Ada Lovelace", "status": "current", "lat": 51.5074, "lon": -0.1278,
		 "city": "London", "country": "UK", "first_year": 2019, "last_year": "present",
		 "tags": "genomics; methods", "link": "people/ada", "pubs": 4},
		{"name": "Carl Gauss", "status": "past", "lat": 51.5074, "lon": -0.1278,
		 "city": "London", "country": "UK", "first_year": 2012, "last_year": 2016,
		 "tags": "methods"},
		{"name": "Emmy Noether", "status": "current", "lat": 40.4406, "lon": -79.9959,
		 "city": "Pittsburgh", "region": "PA", "country": "USA",
		 "first_year": 2021, "last_year": "present", "tags": ["theory"]}
	]
}`

func startService(t *testing.T, opts ...service.Option) *service.Service {
	t.Helper()
	if err := logger.Init(); err != nil {
		t.Fatalf("init logger: %v", err)
	}

	base := []service.Option{
		service.WithClock(temporal.FixedClock{T: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)}),
		service.WithTickInterval(2 * time.Millisecond),
	}
	svc := service.New(append(base, opts...)...)
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("start service: %v", err)
	}
	t.Cleanup(svc.Stop)
	return svc
}

func TestServiceLifecycle(t *testing.T) {
	Convey("Given a started service", t, func() {
		svc := startService(t)
		ctx := context.Background()

		Convey("creating a map returns its initial state", func() {
			info, err := svc.CreateMap(ctx, "collaborators", []byte(collaboratorsPayload), false, 1280)
			So(err, ShouldBeNil)
			So(info.ID, ShouldNotBeEmpty)
			So(info.Variant, ShouldEqual, "collaborators")
			So(info.State.AllTime, ShouldBeTrue)
			So(info.State.ShowCurrent, ShouldBeTrue)
			So(info.State.ShowPast, ShouldBeTrue)
			So(info.State.ShowLabels, ShouldBeTrue)
			So(info.State.Playback, ShouldEqual, types.PlaybackStopped)
			So(info.MinYear, ShouldEqual, 2012)
			So(info.MaxYear, ShouldEqual, 2024)
			So(info.AvailableTags, ShouldResemble, []string{"genomics", "methods", "theory"})
			So(info.Diagnostics.TotalRecords, ShouldEqual, 3)

			Convey("and the instance is retrievable", func() {
				inst, err := svc.Instance(ctx, info.ID)
				So(err, ShouldBeNil)
				So(inst.ID(), ShouldEqual, info.ID)
			})

			Convey("and deleting it removes the instance", func() {
				So(svc.DeleteMap(ctx, info.ID), ShouldBeNil)
				_, err := svc.Instance(ctx, info.ID)
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			})
		})

		Convey("an unknown variant is rejected", func() {
			_, err := svc.CreateMap(ctx, "mentors", []byte(collaboratorsPayload), false, 0)
			So(errors.Is(err, model.ErrUnknownVariant), ShouldBeTrue)
		})

		Convey("a malformed payload is rejected", func() {
			_, err := svc.CreateMap(ctx, "collaborators", []byte(`{"home":`), false, 0)
			So(errors.Is(err, model.ErrMalformedPayload), ShouldBeTrue)
		})

		Convey("a payload without a home anchor is rejected", func() {
			_, err := svc.CreateMap(ctx, "collaborators", []byte(`{"people": []}`), false, 0)
			So(errors.Is(err, model.ErrMissingHome), ShouldBeTrue)
		})

		Convey("unknown instance ids return not found", func() {
			_, err := svc.Instance(ctx, "nope")
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			So(errors.Is(svc.DeleteMap(ctx, "nope"), repository.ErrNotFound), ShouldBeTrue)
		})

		Convey("stats expose instance counts", func() {
			_, err := svc.CreateMap(ctx, "collaborators", []byte(collaboratorsPayload), false, 0)
			So(err, ShouldBeNil)
			stats := svc.GetStats()
			So(stats["started"], ShouldBeTrue)
			So(stats["instances"], ShouldEqual, 1)
			So(stats["storedDatasets"], ShouldEqual, 1)
		})
	})

	Convey("Given an unstarted service", t, func() {
		svc := service.New()
		_, err := svc.CreateMap(context.Background(), "collaborators", []byte(collaboratorsPayload), false, 0)
		So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
	})
}

func TestServiceInstanceCap(t *testing.T) {
	Convey("Given a service capped at one instance", t, func() {
		svc := startService(t, service.WithMaxInstances(1))
		ctx := context.Background()

		_, err := svc.CreateMap(ctx, "collaborators", []byte(collaboratorsPayload), false, 0)
		So(err, ShouldBeNil)

		Convey("a second map is refused", func() {
			_, err := svc.CreateMap(ctx, "collaborators", []byte(collaboratorsPayload), false, 0)
			So(errors.Is(err, repository.ErrStoreFull), ShouldBeTrue)
		})
	})
}
