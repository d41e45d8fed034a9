package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/reelscout/reelscout/filesystem"
	"github.com/reelscout/reelscout/where"
	. "github.com/smartystreets/goconvey/convey"
)

func valid(name string) *Profile {
	return &Profile{
		Name:       name,
		Domains:    []string{"example.com/"},
		Pagination: "{base}/list?page={page}",
		Strategies: []Selectors{{Item: ".item"}},
	}
}

func TestProfile(t *testing.T) {
	Convey("Given a prepared profile", t, func() {
		p := valid("Example")
		p.prepare()

		Convey("prepare should canonicalize name, domains and content type", func() {
			So(p.Name, ShouldEqual, "example")
			So(p.Domains[0], ShouldEqual, "https://example.com")
			So(p.ContentType, ShouldEqual, DefaultContentType)
			So(p.Validate(), ShouldBeNil)
		})

		Convey("PageURL should expand placeholders", func() {
			So(p.PageURL(p.BaseURL(), 3), ShouldEqual, "https://example.com/list?page=3")
		})

		Convey("FirstPage should be used for page 1 only", func() {
			p.FirstPage = "{base}/list"
			So(p.PageURL(p.BaseURL(), 1), ShouldEqual, "https://example.com/list")
			So(p.PageURL(p.BaseURL(), 2), ShouldEqual, "https://example.com/list?page=2")
		})

		Convey("PageURLs should cover every domain in order", func() {
			p.Domains = append(p.Domains, "https://mirror.example")
			So(p.PageURLs(1), ShouldResemble, []string{
				"https://example.com/list?page=1",
				"https://mirror.example/list?page=1",
			})
		})
	})

	Convey("Validate should reject malformed profiles", t, func() {
		for name, mutate := range map[string]func(*Profile){
			"no domains":       func(p *Profile) { p.Domains = nil },
			"bad domain":       func(p *Profile) { p.Domains = []string{"ftp://x"} },
			"no page marker":   func(p *Profile) { p.Pagination = "{base}/list" },
			"no strategies":    func(p *Profile) { p.Strategies = nil },
			"empty item":       func(p *Profile) { p.Strategies = []Selectors{{Title: "h3"}} },
			"bad name":         func(p *Profile) { p.Name = "has space" },
			"negative expiry":  func(p *Profile) { p.Stream.ExpiryHours = -1 },
			"unknown referrer": func(p *Profile) { p.Stream.ReferrerPolicy = "everything" },
		} {
			Convey(name, func() {
				p := valid("x")
				mutate(p)
				p.prepare()
				So(p.Validate(), ShouldNotBeNil)
			})
		}
	})
}

func TestRegistry(t *testing.T) {
	Convey("Given the builtin registry", t, func() {
		r, err := NewRegistry(Builtins()...)
		So(err, ShouldBeNil)
		So(r.Len(), ShouldEqual, len(Builtins()))

		Convey("Lookup should be case insensitive", func() {
			p, ok := r.Lookup(" DramaCool ")
			So(ok, ShouldBeTrue)
			So(p.Name, ShouldEqual, "dramacool")
		})

		Convey("Get should suggest a close name", func() {
			_, err := r.Get("dramacol")
			var unknown *UnknownSourceError
			So(errors.As(err, &unknown), ShouldBeTrue)
			So(unknown.Suggestion, ShouldEqual, "dramacool")
			So(err.Error(), ShouldContainSubstring, "did you mean")
		})

		Convey("Get should not suggest unrelated names", func() {
			_, err := r.Get("netflix")
			So(err.(*UnknownSourceError).Suggestion, ShouldBeEmpty)
		})

		Convey("Names should be sorted", func() {
			names := r.Names()
			So(names[0], ShouldEqual, "asianc")
			So(len(r.All()), ShouldEqual, len(names))
		})
	})

	Convey("NewRegistry should reject duplicates and invalid entries together", t, func() {
		broken := valid("b")
		broken.Strategies = nil
		_, err := NewRegistry(valid("a"), valid("a"), broken, nil)
		So(err, ShouldNotBeNil)
		So(err.Error(), ShouldContainSubstring, "duplicate")
		So(err.Error(), ShouldContainSubstring, "strategy")
	})
}

const customYAML = `
name: dramacool
domains: [https://dramacool.custom]
pagination: "{base}/p/{page}"
strategies:
  - item: li.card
    title: h2
`

const catalogYAML = `
profiles:
  - name: alpha
    domains: [alpha.example]
    pagination: "{base}/?p={page}"
    strategies: [{item: .a}]
  - name: beta
    domains: [beta.example]
    pagination: "{base}/?p={page}"
    strategies: [{item: .b}]
`

func TestCustoms(t *testing.T) {
	Convey("Given custom profiles on disk", t, func() {
		filesystem.SetMemMapFs()
		fs := filesystem.API()
		So(fs.WriteFile(filepath.Join(where.Sources(), "dramacool.yaml"), []byte(customYAML), 0644), ShouldBeNil)
		So(fs.WriteFile(filepath.Join(where.Sources(), "notes.txt"), []byte("ignored"), 0644), ShouldBeNil)

		Convey("Load should let customs replace builtins", func() {
			r, err := Load()
			So(err, ShouldBeNil)

			p, ok := r.Lookup("dramacool")
			So(ok, ShouldBeTrue)
			So(p.BaseURL(), ShouldEqual, "https://dramacool.custom")
			So(r.Len(), ShouldEqual, len(Builtins()))
		})

		Convey("A profile without a name is named after its file", func() {
			unnamed := "domains: [https://myflix.example]\npagination: \"{base}/p/{page}\"\nstrategies:\n  - item: li.card\n"
			So(fs.WriteFile(filepath.Join(where.Sources(), "myflix.yaml"), []byte(unnamed), 0644), ShouldBeNil)

			r, err := Load()
			So(err, ShouldBeNil)

			p, ok := r.Lookup("myflix")
			So(ok, ShouldBeTrue)
			So(p.BaseURL(), ShouldEqual, "https://myflix.example")
			So(r.Len(), ShouldEqual, len(Builtins())+1)
		})

		Convey("Decode should accept catalogs", func() {
			profiles, err := Decode([]byte(catalogYAML))
			So(err, ShouldBeNil)
			So(len(profiles), ShouldEqual, 2)
		})

		Convey("A malformed custom file fails the load", func() {
			So(fs.WriteFile(filepath.Join(where.Sources(), "bad.yaml"), []byte("name: [oops"), 0644), ShouldBeNil)
			_, err := Load()
			So(err, ShouldNotBeNil)
		})
	})
}

func TestUpdateCatalog(t *testing.T) {
	Convey("Given a catalog server", t, func() {
		filesystem.SetMemMapFs()
		body := catalogYAML
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(body))
		}))
		defer server.Close()

		Convey("The first update writes and the second is a no-op", func() {
			changed, err := UpdateCatalog(context.Background(), server.Client(), server.URL)
			So(err, ShouldBeNil)
			So(changed, ShouldBeTrue)

			changed, err = UpdateCatalog(context.Background(), server.Client(), server.URL)
			So(err, ShouldBeNil)
			So(changed, ShouldBeFalse)
		})

		Convey("An invalid catalog is never written", func() {
			body = "profiles:\n  - name: broken\n"
			changed, err := UpdateCatalog(context.Background(), server.Client(), server.URL)
			So(err, ShouldNotBeNil)
			So(changed, ShouldBeFalse)

			exists, _ := filesystem.API().Exists(filepath.Join(where.Sources(), CatalogFile))
			So(exists, ShouldBeFalse)
		})
	})
}

func TestSchema(t *testing.T) {
	Convey("Schema should describe the required fields", t, func() {
		data, err := json.Marshal(Schema())
		So(err, ShouldBeNil)
		So(string(data), ShouldContainSubstring, `"pagination"`)
		So(string(data), ShouldContainSubstring, `"required"`)
	})
}
