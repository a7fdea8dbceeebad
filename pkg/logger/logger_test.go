package logger

import (
	"context"
	"log/slog"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestInitAndGet(t *testing.T) {
	Convey("Given an initialized logger", t, func() {
		So(Init(), ShouldBeNil)

		Convey("Then Get returns a usable logger", func() {
			l := Get()
			So(l, ShouldNotBeNil)
			So(func() {
				l.Info(context.Background(), "hello", String("k", "v"), Int("n", 1))
			}, ShouldNotPanic)
		})

		Convey("Then Named returns a grouped logger", func() {
			So(Named("store"), ShouldNotBeNil)
		})
	})
}

func TestSetLevelString(t *testing.T) {
	Convey("Given level strings", t, func() {
		So(Init(), ShouldBeNil)

		Convey("Then valid levels are accepted", func() {
			for _, lvl := range []string{"debug", "info", "warn", "warning", "error", "", "  INFO "} {
				So(SetLevelString(lvl), ShouldBeNil)
			}
		})

		Convey("Then an unknown level is rejected", func() {
			So(SetLevelString("loud"), ShouldNotBeNil)
		})

		Convey("Then debug enables debug output", func() {
			So(SetLevelString("debug"), ShouldBeNil)
			So(levelVar.Level(), ShouldEqual, slog.LevelDebug)
		})
	})
}

func TestFieldConstructors(t *testing.T) {
	Convey("Given the field constructors", t, func() {
		So(String("a", "b").Key, ShouldEqual, "a")
		So(Int("n", 3).Value, ShouldEqual, 3)
		So(Float64("f", 1.5).Value, ShouldEqual, 1.5)
		So(Bool("ok", true).Value, ShouldEqual, true)
		So(Error(nil).Key, ShouldEqual, "error")
	})
}
