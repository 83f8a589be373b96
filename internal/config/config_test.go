package config_test

import (
	"testing"

	"github.com/okian/relmap/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.ClusterPrecision, convey.ShouldEqual, 4)
			convey.So(cfg.JitterRadius, convey.ShouldEqual, 0.12)
			convey.So(cfg.RegionScope, convey.ShouldEqual, "usa")
			convey.So(cfg.RegionThreshold, convey.ShouldEqual, 0.65)
			convey.So(cfg.PlaybackTickMS, convey.ShouldEqual, 1200)
			convey.So(cfg.RendererWaitMS, convey.ShouldEqual, 6000)
			convey.So(cfg.MaxInstances, convey.ShouldEqual, 64)
			convey.So(cfg.LabelBreakpointPX, convey.ShouldEqual, 768)
		})
	})
}
