package domain

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestTargetLogicalName(t *testing.T) {
	Convey("Given site targets", t, func() {
		wd, err := os.Getwd()
		So(err, ShouldBeNil)

		Convey("A trailing slash should not change the name", func() {
			So(SiteTarget("/var/www/example.com/", nil).LogicalName(), ShouldEqual, "example.com")
		})

		Convey("A relative directory should be named after its absolute path", func() {
			So(SiteTarget(".", nil).LogicalName(), ShouldEqual, filepath.Base(wd))
			So(SiteTarget("./", nil).ValidateName(), ShouldBeNil)
		})

		Convey("The filesystem root should be rejected", func() {
			err := SiteTarget("/", nil).ValidateName()
			So(errors.Is(err, ErrInvalidTarget), ShouldBeTrue)
		})
	})

	Convey("Given database targets", t, func() {
		So(DatabaseTarget("app").LogicalName(), ShouldEqual, "app")
		So(DatabaseTarget("app").ValidateName(), ShouldBeNil)
		So(errors.Is(DatabaseTarget("").ValidateName(), ErrInvalidTarget), ShouldBeTrue)
	})
}
