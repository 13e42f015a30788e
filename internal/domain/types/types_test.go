package types_test

import (
	"testing"
	"time"

	types "github.com/okian/beatpage/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func TestCreatedAtLayout(t *testing.T) {
	Convey("Given a UTC timestamp", t, func() {
		ts := time.Date(2024, 3, 9, 14, 5, 7, 123_456_789, time.UTC)

		Convey("When formatting with the createdAt layout", func() {
			out := ts.Format(types.CreatedAtLayout)

			Convey("Then it should match the ISO-8601 millisecond form", func() {
				So(out, ShouldEqual, "2024-03-09T14:05:07.123Z")
			})
		})
	})
}

func TestViewStates(t *testing.T) {
	Convey("Given the page states", t, func() {
		Convey("Then they should be distinct", func() {
			So(types.ViewLoading, ShouldNotEqual, types.ViewError)
			So(types.ViewError, ShouldNotEqual, types.ViewContent)
			So(types.ViewLoading, ShouldNotEqual, types.ViewContent)
		})
	})
}
