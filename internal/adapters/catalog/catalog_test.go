package catalog_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/okian/unirank/internal/adapters/catalog"
	. "github.com/smartystreets/goconvey/convey"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestItemsJSON(t *testing.T) {
	Convey("Given a deeply nested JSON catalog", t, func() {
		doc := `{
			"categories": {
				"food": {
					"items": ["img/pizza.jpg", "img/sushi.jpg"],
					"sub": {"items": ["img/ramen.jpg"]}
				},
				"places": [
					{"items": ["img/beach.jpg"]},
					{"deeper": {"items": ["img/city.jpg", "img/pizza.jpg"]}}
				]
			}
		}`
		src := catalog.New(writeTemp(t, "catalog.json", doc))

		Convey("When loading items", func() {
			ids, err := src.Items(context.Background())

			Convey("Then every leaf list is discovered regardless of depth", func() {
				So(err, ShouldBeNil)
				So(ids, ShouldResemble, []string{"beach.jpg", "city.jpg", "pizza.jpg", "ramen.jpg", "sushi.jpg"})
			})
		})
	})
}

func TestItemsYAML(t *testing.T) {
	Convey("Given a YAML catalog", t, func() {
		doc := "gallery:\n  nature:\n    items:\n      - photos/tree.png\n      - photos/lake.png\n  misc:\n    - photos/door.png\n"
		src := catalog.New(writeTemp(t, "catalog.yaml", doc))

		Convey("When loading items", func() {
			ids, err := src.Items(context.Background())

			So(err, ShouldBeNil)
			So(ids, ShouldResemble, []string{"door.png", "lake.png", "tree.png"})
		})
	})
}

func TestItemsErrors(t *testing.T) {
	Convey("Given a missing catalog file", t, func() {
		src := catalog.New(filepath.Join(t.TempDir(), "absent.json"))
		_, err := src.Items(context.Background())

		Convey("Then loading fails loudly", func() {
			So(err, ShouldNotBeNil)
			So(errors.Is(err, catalog.ErrLoad), ShouldBeTrue)
		})
	})

	Convey("Given a malformed catalog file", t, func() {
		src := catalog.New(writeTemp(t, "broken.json", "{not json"))
		_, err := src.Items(context.Background())

		So(errors.Is(err, catalog.ErrParse), ShouldBeTrue)
	})

	Convey("Given a catalog without any item lists", t, func() {
		src := catalog.New(writeTemp(t, "empty.json", `{"meta": {"version": 3}}`))
		_, err := src.Items(context.Background())

		So(errors.Is(err, catalog.ErrEmpty), ShouldBeTrue)
	})
}
