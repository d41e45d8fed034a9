package headless

import (
	"testing"
	"time"

	"github.com/reelscout/reelscout/proxy"
	"github.com/samber/mo"
	. "github.com/smartystreets/goconvey/convey"
)

func TestOptions(t *testing.T) {
	Convey("withDefaults fills the timeouts", t, func() {
		o := Options{ScrollSteps: -3}.withDefaults()
		So(o.NavTimeout, ShouldEqual, 30*time.Second)
		So(o.WaitFallback, ShouldEqual, 3*time.Second)
		So(o.ScrollSteps, ShouldEqual, 0)

		kept := Options{NavTimeout: time.Second}.withDefaults()
		So(kept.NavTimeout, ShouldEqual, time.Second)
	})
}

func TestScreenshotName(t *testing.T) {
	Convey("ScreenshotName is safe and time ordered", t, func() {
		at := time.Date(2026, 3, 1, 12, 30, 5, 0, time.UTC)
		So(ScreenshotName("kiss asian/list", at), ShouldEqual, "kiss_asian_list-20260301-123005.png")
		So(ScreenshotName("", at), ShouldEqual, "page-20260301-123005.png")
	})
}

func TestSessionClose(t *testing.T) {
	Convey("Closing an unopened session is a no-op", t, func() {
		s := &Session{}
		So(s.Close(), ShouldBeNil)
		So(s.Close(), ShouldBeNil)
	})
}

func TestBlockList(t *testing.T) {
	Convey("The listing block list covers heavy resources", t, func() {
		So(PageBlockList, ShouldContain, "*.woff2")
		So(PageBlockList, ShouldContain, "*.css")
		So(PageBlockList, ShouldContain, "*googletagmanager*")
	})
}

func TestSessionProxy(t *testing.T) {
	Convey("Given a session routed through a pooled proxy", t, func() {
		ep := proxy.Endpoint{Scheme: "socks5", Address: "10.0.0.9", Port: 1080, Username: "u", Password: "p"}
		pool := proxy.NewPool([]proxy.Endpoint{ep})

		Convey("The launcher flag carries no credentials", func() {
			So(ProxyServer(ep), ShouldEqual, "socks5://10.0.0.9:1080")
			So(ProxyServer(proxy.Endpoint{Address: "h", Port: 8080}), ShouldEqual, "http://h:8080")
		})

		Convey("Outcomes are reported back to the pool", func() {
			s := &Session{opts: Options{Proxies: pool}, proxy: mo.Some(ep)}
			s.report(false)
			s.report(true)

			stats := pool.Stats()
			So(stats, ShouldHaveLength, 1)
			So(stats[0].FailureCount, ShouldEqual, 1)
			So(stats[0].SuccessCount, ShouldEqual, 1)
		})

		Convey("A session without a proxy reports nothing", func() {
			s := &Session{opts: Options{Proxies: pool}}
			s.report(false)
			So(pool.Stats()[0].FailureCount, ShouldEqual, 0)
		})
	})
}
