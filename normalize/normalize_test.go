package normalize

import (
	"testing"

	"github.com/reelscout/reelscout/content"
	"github.com/samber/mo"
	. "github.com/smartystreets/goconvey/convey"
)

func TestNew(t *testing.T) {
	Convey("New requires an absolute base url", t, func() {
		_, err := New("example.com/path", "src", "drama")
		So(err, ShouldNotBeNil)

		n, err := New("https://example.com/list?page=3", "src", "drama")
		So(err, ShouldBeNil)
		So(n.origin.String(), ShouldEqual, "https://example.com/")
	})
}

func TestNormalize(t *testing.T) {
	Convey("Given a normalizer", t, func() {
		n, err := New("https://dramacool.example", "dramacool", "drama")
		So(err, ShouldBeNil)

		Convey("It cleans and resolves a candidate", func() {
			r := n.Normalize(content.Candidate{
				Title:      "  My \n  Drama\t ",
				LinkRaw:    "/drama/my-drama.html",
				ImageRaw:   "//img.example/p.jpg",
				RatingText: mo.Some("8.5/10"),
				Text:       "My Drama (2019) Korean",
			})
			So(r, ShouldNotBeNil)
			So(r.Title, ShouldEqual, "My Drama")
			So(r.SourceURL, ShouldEqual, "https://dramacool.example/drama/my-drama.html")
			So(r.Poster, ShouldEqual, "https://img.example/p.jpg")
			So(r.Rating.MustGet(), ShouldEqual, 8.5)
			So(r.Year.MustGet(), ShouldEqual, 2019)
			So(r.ID, ShouldEqual, "dramacool:drama-my-drama")
			So(r.Source, ShouldEqual, "dramacool")
			So(r.ContentType, ShouldEqual, "drama")
			So(r.Provenance, ShouldEqual, content.Scraped)
		})

		Convey("Items told apart by their query keep distinct ids", func() {
			a := n.Normalize(content.Candidate{Title: "A", LinkRaw: "/detail.php?id=1"})
			b := n.Normalize(content.Candidate{Title: "B", LinkRaw: "/detail.php?id=2"})
			So(a.ID, ShouldEqual, "dramacool:detail-id-1")
			So(b.ID, ShouldEqual, "dramacool:detail-id-2")
			So(a.Key(), ShouldNotEqual, b.Key())

			q := n.Normalize(content.Candidate{Title: "Q", LinkRaw: "/?s=drama"})
			So(q.ID, ShouldEqual, "dramacool:s-drama")
		})

		Convey("It never double prefixes absolute urls", func() {
			r := n.Normalize(content.Candidate{
				Title:    "T",
				LinkRaw:  "https://other.example/x",
				ImageRaw: "https://cdn.example/a.jpg",
			})
			So(r.SourceURL, ShouldEqual, "https://other.example/x")
			So(r.Poster, ShouldEqual, "https://cdn.example/a.jpg")
			So(n.Link(r.SourceURL), ShouldEqual, r.SourceURL)
			So(n.Image(r.Poster), ShouldEqual, r.Poster)
		})

		Convey("It fixes relative images", func() {
			So(n.Image("/img/a.jpg"), ShouldEqual, "https://dramacool.example/img/a.jpg")
			So(n.Image("cdn.example/a.jpg"), ShouldEqual, "https://cdn.example/a.jpg")
			So(n.Image(""), ShouldBeEmpty)
		})

		Convey("It drops candidates without title or link", func() {
			So(n.Normalize(content.Candidate{Title: "  ", LinkRaw: "/x"}), ShouldBeNil)
			So(n.Normalize(content.Candidate{Title: "T"}), ShouldBeNil)
			So(n.Normalize(content.Candidate{Title: "T", LinkRaw: "javascript:void(0)"}), ShouldBeNil)
		})

		Convey("Missing rating and year stay unset", func() {
			r := n.Normalize(content.Candidate{Title: "T", LinkRaw: "/t", Text: "no numbers"})
			So(r.Rating.IsAbsent(), ShouldBeTrue)
			So(r.Year.IsAbsent(), ShouldBeTrue)
		})

		Convey("The dedicated year field wins over the text", func() {
			So(Year("2004", "aired 1999").MustGet(), ShouldEqual, 2004)
			So(Year("", "aired 1999").MustGet(), ShouldEqual, 1999)
			So(Year("12345").IsAbsent(), ShouldBeTrue)
		})

		Convey("Integer ratings parse", func() {
			So(Rating("Score: 9").MustGet(), ShouldEqual, 9.0)
		})
	})
}
