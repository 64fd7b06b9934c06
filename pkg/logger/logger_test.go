package logger

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestLoggerInit(t *testing.T) {
	Convey("Given the default initializer", t, func() {
		err := Init()

		Convey("Then a global logger should be available", func() {
			So(err, ShouldBeNil)
			So(Get(), ShouldNotBeNil)
			So(Sync(), ShouldBeNil)
		})
	})

	Convey("Given an unknown output format", t, func() {
		var buf bytes.Buffer
		err := InitWith(&buf, "xml")

		Convey("Then initialization should fail", func() {
			So(err, ShouldNotBeNil)
		})
	})
}

func TestLoggerOutput(t *testing.T) {
	Convey("Given a JSON logger writing to a buffer", t, func() {
		var buf bytes.Buffer
		So(InitWith(&buf, FormatJSON), ShouldBeNil)
		defer func() { _ = Init() }()
		ctx := context.Background()

		Convey("When logging with fields from a named logger", func() {
			Named("queue").Info(ctx, "participant joined",
				String("id", "p1"),
				Int("rating", 1200),
				Duration("wait", 2*time.Second),
				Error(errors.New("boom")),
			)

			Convey("Then the record should carry the component, fields and source", func() {
				out := buf.String()
				So(out, ShouldContainSubstring, `"msg":"participant joined"`)
				So(out, ShouldContainSubstring, `"component":"queue"`)
				So(out, ShouldContainSubstring, `"id":"p1"`)
				So(out, ShouldContainSubstring, `"rating":1200`)
				So(out, ShouldContainSubstring, `"source":"logger_test.go`)
			})
		})

		Convey("When the level is raised above debug", func() {
			So(SetLevelString("warn"), ShouldBeNil)
			Get().Debug(ctx, "hidden")
			Get().Warn(ctx, "shown")

			Convey("Then only the warning should be written", func() {
				So(buf.String(), ShouldNotContainSubstring, "hidden")
				So(buf.String(), ShouldContainSubstring, "shown")
			})
		})
	})
}

func TestSetLevelString(t *testing.T) {
	Convey("Given level strings", t, func() {
		So(Init(), ShouldBeNil)

		Convey("Then known levels should be accepted", func() {
			for _, lvl := range []string{"debug", "INFO", "", "warning", "error"} {
				So(SetLevelString(lvl), ShouldBeNil)
			}
		})

		Convey("Then unknown levels should be rejected", func() {
			So(SetLevelString("chatty"), ShouldNotBeNil)
		})
	})
}
