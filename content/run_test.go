package content

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func record(id, title, url string) Record {
	return Record{ID: id, Title: title, SourceURL: url, Provenance: Scraped}
}

func TestRun(t *testing.T) {
	Convey("Given an open run", t, func() {
		run := NewRun("dramacool", 5, 3, 10)
		So(run.ID, ShouldNotBeEmpty)

		Convey("Add should accept new records", func() {
			So(run.Add(record("a", "Alpha", "https://x/a")), ShouldBeTrue)
			So(run.Add(record("b", "Beta", "https://x/b")), ShouldBeTrue)
			So(run.Unique(), ShouldEqual, 2)
		})

		Convey("Add should skip a repeated id", func() {
			run.Add(record("a", "Alpha", "https://x/a"))
			So(run.Add(record("a", "Alpha again", "https://x/a2")), ShouldBeFalse)
			So(run.Unique(), ShouldEqual, 1)
		})

		Convey("Add should skip a repeated title under a different id", func() {
			run.Add(record("a", "Alpha", "https://x/a"))
			So(run.Add(record("z", "Alpha", "https://x/z")), ShouldBeFalse)
			So(len(run.Records), ShouldEqual, 1)
		})

		Convey("Adding the same page twice never doubles the count", func() {
			page := []Record{record("a", "A", "https://x/a"), record("b", "B", "https://x/b")}
			for i := 0; i < 2; i++ {
				for _, r := range page {
					run.Add(r)
				}
			}
			So(run.Unique(), ShouldEqual, 2)
		})

		Convey("Freeze should reject later additions", func() {
			run.Freeze()
			So(run.Frozen(), ShouldBeTrue)
			So(run.FinishedAt.IsZero(), ShouldBeFalse)
			So(run.Add(record("c", "C", "https://x/c")), ShouldBeFalse)
		})

		Convey("Replace should reset dedup state", func() {
			run.Add(record("a", "A", "https://x/a"))
			run.Replace([]Record{{ID: "s1", Title: "S1", SourceURL: "u", Provenance: Synthetic}})
			So(run.Unique(), ShouldEqual, 1)
			So(run.HasTitle("A"), ShouldBeFalse)
			So(run.Scraped(), ShouldEqual, 0)
		})
	})
}

func TestRecordKey(t *testing.T) {
	Convey("Record.Key prefers id, then url, then title", t, func() {
		So((&Record{ID: "1", SourceURL: "u", Title: "t"}).Key(), ShouldEqual, "id:1")
		So((&Record{SourceURL: "u", Title: "t"}).Key(), ShouldEqual, "url:u")
		So((&Record{Title: "t"}).Key(), ShouldEqual, "title:t")
	})
}
