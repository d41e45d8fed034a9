package cache

import (
	"testing"
	"time"

	"github.com/reelscout/reelscout/filesystem"
	. "github.com/smartystreets/goconvey/convey"
)

func TestStore(t *testing.T) {
	Convey("Given a store with a one hour ttl", t, func() {
		filesystem.SetMemMapFs()
		store := New("/cache/rendered", time.Hour)
		key := Key("https://example.com/list?page=1")

		Convey("Key should ignore case and padding", func() {
			So(Key(" HTTPS://Example.com/list?page=1 "), ShouldEqual, key)
			So(Key("a", "b"), ShouldNotEqual, Key("ab"))
		})

		Convey("A missing entry is a miss", func() {
			_, ok := store.Get(key)
			So(ok, ShouldBeFalse)
		})

		Convey("A fresh entry is returned", func() {
			So(store.Put(key, []byte("<html></html>")), ShouldBeNil)
			data, ok := store.Get(key)
			So(ok, ShouldBeTrue)
			So(string(data), ShouldEqual, "<html></html>")
		})

		Convey("An expired entry is a miss and gets pruned", func() {
			So(store.Put(key, []byte("old")), ShouldBeNil)
			store.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

			_, ok := store.Get(key)
			So(ok, ShouldBeFalse)
			So(store.Prune(), ShouldEqual, 1)
		})

		Convey("A zero ttl disables caching", func() {
			off := New("/cache/off", 0)
			So(off.Put(key, []byte("x")), ShouldBeNil)
			_, ok := off.Get(key)
			So(ok, ShouldBeFalse)
		})
	})
}
