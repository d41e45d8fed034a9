package log

import (
	"path/filepath"
	"testing"

	"github.com/reelscout/reelscout/filesystem"
	"github.com/reelscout/reelscout/key"
	logrus "github.com/sirupsen/logrus"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/spf13/viper"
)

func TestSetup(t *testing.T) {
	Convey("Given logging is disabled", t, func() {
		filesystem.SetMemMapFs()
		viper.Set(key.LogsWrite, false)

		So(Setup(), ShouldBeNil)

		Convey("WithFields should return a usable entry", func() {
			entry := WithFields(logrus.Fields{"tier": "direct"})
			So(entry, ShouldNotBeNil)
			So(entry.Data["tier"], ShouldEqual, "direct")
			So(func() { entry.Info("ignored") }, ShouldNotPanic)
		})
	})

	Convey("Given logging is enabled", t, func() {
		filesystem.SetMemMapFs()
		viper.Set(key.LogsWrite, true)
		viper.Set(key.LogsLevel, "debug")
		defer func() {
			viper.Set(key.LogsWrite, false)
			_ = Setup()
		}()

		So(Setup(), ShouldBeNil)
		So(logger.GetLevel(), ShouldEqual, logrus.DebugLevel)
	})
}

func TestPrune(t *testing.T) {
	Convey("Given a directory with daily log files", t, func() {
		filesystem.SetMemMapFs()
		dir := "/logs"
		So(filesystem.API().MkdirAll(dir, 0755), ShouldBeNil)
		for _, name := range []string{"2026-01-01.log", "2026-01-02.log", "2026-01-03.log", "notes.log", "2026-01-04.txt"} {
			So(filesystem.API().WriteFile(filepath.Join(dir, name), []byte("x"), 0644), ShouldBeNil)
		}

		Convey("Only the newest files are kept", func() {
			So(Prune(dir, 2), ShouldEqual, 1)

			exists, _ := filesystem.API().Exists(filepath.Join(dir, "2026-01-01.log"))
			So(exists, ShouldBeFalse)
			exists, _ = filesystem.API().Exists(filepath.Join(dir, "2026-01-03.log"))
			So(exists, ShouldBeTrue)
			exists, _ = filesystem.API().Exists(filepath.Join(dir, "notes.log"))
			So(exists, ShouldBeTrue)
		})

		Convey("Nothing is removed within the limit", func() {
			So(Prune(dir, 5), ShouldEqual, 0)
		})
	})
}
