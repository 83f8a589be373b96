package repository_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/okian/relmap/internal/adapters/repository"
	"github.com/okian/relmap/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func snap(variant model.Variant) repository.Snapshot {
	return repository.Snapshot{
		Dataset: &model.Dataset{Variant: variant},
		Diagnostics: model.Diagnostics{
			TotalRecords: 3,
		},
	}
}

func TestMemoryStore(t *testing.T) {
	Convey("Given an empty memory store", t, func() {
		s := repository.NewMemoryStore()
		ctx := context.Background()

		Convey("When storing and fetching a dataset", func() {
			So(s.Put(ctx, "map-1", snap(model.VariantCollaborators)), ShouldBeNil)
			got, err := s.Get(ctx, "map-1")

			Convey("Then the snapshot round-trips", func() {
				So(err, ShouldBeNil)
				So(got.Dataset.Variant, ShouldEqual, model.VariantCollaborators)
				So(got.Diagnostics.TotalRecords, ShouldEqual, 3)
				So(s.Count(ctx), ShouldEqual, 1)
			})
		})

		Convey("When fetching an unknown id", func() {
			_, err := s.Get(ctx, "nope")

			Convey("Then it reports not found", func() {
				So(err, ShouldEqual, repository.ErrNotFound)
			})
		})

		Convey("When deleting", func() {
			So(s.Put(ctx, "map-1", snap(model.VariantCollaborators)), ShouldBeNil)
			So(s.Put(ctx, "map-2", snap(model.VariantTrainees)), ShouldBeNil)
			s.Delete(ctx, "map-1")

			Convey("Then only the deleted id disappears", func() {
				So(s.Count(ctx), ShouldEqual, 1)
				So(s.IDs(ctx), ShouldResemble, []string{"map-2"})
			})

			Convey("Then deleting an unknown id is a no-op", func() {
				s.Delete(ctx, "ghost")
				So(s.Count(ctx), ShouldEqual, 1)
			})
		})
	})

	Convey("Given a store with a small cap", t, func() {
		s := repository.NewMemoryStore(repository.WithMaxDatasets(2))
		ctx := context.Background()

		Convey("When exceeding the cap", func() {
			So(s.Put(ctx, "a", snap(model.VariantCollaborators)), ShouldBeNil)
			So(s.Put(ctx, "b", snap(model.VariantCollaborators)), ShouldBeNil)
			err := s.Put(ctx, "c", snap(model.VariantCollaborators))

			Convey("Then the store rejects new ids but allows updates", func() {
				So(err, ShouldEqual, repository.ErrStoreFull)
				So(s.Put(ctx, "a", snap(model.VariantTrainees)), ShouldBeNil)
			})
		})
	})
}

func TestMemoryStoreOrder(t *testing.T) {
	Convey("Given several stored datasets", t, func() {
		s := repository.NewMemoryStore()
		ctx := context.Background()
		for i := 0; i < 5; i++ {
			So(s.Put(ctx, fmt.Sprintf("m%d", i), snap(model.VariantCollaborators)), ShouldBeNil)
		}

		Convey("Then IDs preserves insertion order", func() {
			So(s.IDs(ctx), ShouldResemble, []string{"m0", "m1", "m2", "m3", "m4"})
		})
	})
}
