package synthetic

import (
	"testing"

	"github.com/reelscout/reelscout/content"
	. "github.com/smartystreets/goconvey/convey"
)

func TestGenerate(t *testing.T) {
	Convey("Given a generator", t, func() {
		g := New("dramacool", "https://dramacool.example/", "drama")

		Convey("It numbers records after the offset", func() {
			records := g.Generate(3, 2)
			So(records, ShouldHaveLength, 3)
			So(records[0].ID, ShouldEqual, "synthetic:dramacool:3")
			So(records[2].SourceURL, ShouldEqual, "https://dramacool.example/placeholder/5")
			So(records[0].Title, ShouldEqual, "Dramacool Placeholder Drama #3")
		})

		Convey("Every record is tagged and valid", func() {
			for _, r := range g.Generate(5, 0) {
				So(r.Provenance, ShouldEqual, content.Synthetic)
				So(r.Valid(), ShouldBeTrue)
				So(r.Rating.IsAbsent(), ShouldBeTrue)
			}
		})

		Convey("It is deterministic", func() {
			So(g.Generate(4, 1), ShouldResemble, g.Generate(4, 1))
		})

		Convey("It produces nothing for non-positive counts", func() {
			So(g.Generate(0, 0), ShouldBeEmpty)
			So(g.Generate(-1, 0), ShouldBeEmpty)
		})

		Convey("It invents a host when the source has none", func() {
			r := New("My Source", "", "movie").Generate(1, 0)[0]
			So(r.SourceURL, ShouldEqual, "https://my-source.invalid/placeholder/1")
		})
	})
}
