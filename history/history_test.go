package history

import (
	"testing"

	"github.com/reelscout/reelscout/content"
	"github.com/reelscout/reelscout/filesystem"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	filesystem.SetMemMapFs()
}

func sampleRun(source string) *content.Run {
	run := content.NewRun(source, 3, 2, 5)
	run.Add(content.Record{ID: "a", Title: "A", SourceURL: "https://x/a", Provenance: content.Scraped})
	run.Add(content.Record{ID: "b", Title: "B", SourceURL: "https://x/b", Provenance: content.Synthetic})
	run.Padded = 1
	run.PagesFetched = 2
	run.Tiers = []string{"direct", "proxy"}
	run.Freeze()
	return run
}

func TestHistory(t *testing.T) {
	Convey("Given a finished run", t, func() {
		So(Clear(), ShouldBeNil)
		run := sampleRun("dramacool")

		Convey("Summarize digests it", func() {
			s := Summarize(run)
			So(s.RunID, ShouldEqual, run.ID)
			So(s.Records, ShouldEqual, 2)
			So(s.Scraped, ShouldEqual, 1)
			So(s.Padded, ShouldEqual, 1)
			So(s.Tiers, ShouldResemble, map[string]int{"direct": 1, "proxy": 1})
		})

		Convey("When saving it", func() {
			So(Save(run, sampleRun("asianc")), ShouldBeNil)

			Convey("Then it can be read back", func() {
				saved, err := Get()
				So(err, ShouldBeNil)
				So(saved, ShouldHaveLength, 2)
				So(saved[0].Source, ShouldEqual, "dramacool")

				only, err := Of("asianc")
				So(err, ShouldBeNil)
				So(only, ShouldHaveLength, 1)
			})

			Convey("Then Clear empties it", func() {
				So(Clear(), ShouldBeNil)
				saved, err := Get()
				So(err, ShouldBeNil)
				So(saved, ShouldBeEmpty)
			})
		})

		Convey("Old entries are dropped", func() {
			runs := make([]*content.Run, MaxEntries+5)
			for i := range runs {
				runs[i] = sampleRun("bulk")
			}
			So(Save(runs...), ShouldBeNil)

			saved, err := Get()
			So(err, ShouldBeNil)
			So(saved, ShouldHaveLength, MaxEntries)
			So(saved[len(saved)-1].RunID, ShouldEqual, runs[len(runs)-1].ID)
		})
	})
}
