package repository_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/okian/unirank/internal/adapters/repository"
	"github.com/okian/unirank/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

type fakeCatalog struct {
	ids []string
	err error
}

func (f fakeCatalog) Items(_ context.Context) ([]string, error) {
	return f.ids, f.err
}

func TestFileStoreInitialization(t *testing.T) {
	Convey("Given a store with no backing file yet", t, func() {
		path := filepath.Join(t.TempDir(), "ledger.json")
		store := repository.NewFileStore(path, fakeCatalog{ids: []string{"a.jpg", "b.jpg"}})

		Convey("When taking a snapshot", func() {
			ledger, err := store.Snapshot(context.Background())

			Convey("Then an initialized ledger is returned without persisting", func() {
				So(err, ShouldBeNil)
				So(ledger.Items, ShouldHaveLength, 2)
				So(ledger.TotalStats.TotalItemNumber, ShouldEqual, 2)
				_, statErr := os.Stat(path)
				So(os.IsNotExist(statErr), ShouldBeTrue)
			})
		})

		Convey("When running an update", func() {
			err := store.Update(context.Background(), func(l *model.Ledger) error {
				l.Items["a.jpg"].GlobalAverage = 7.6
				l.Items["a.jpg"].Sums = []int{8}
				return nil
			})

			Convey("Then the document is persisted with recomputed stats", func() {
				So(err, ShouldBeNil)
				raw, readErr := os.ReadFile(path)
				So(readErr, ShouldBeNil)

				var ledger model.Ledger
				So(json.Unmarshal(raw, &ledger), ShouldBeNil)
				So(ledger.Items["a.jpg"].GlobalAverage, ShouldEqual, 7.6)
				So(ledger.TotalStats.TotalRatedItemNumber, ShouldEqual, 1)
				So(ledger.TotalStats.TotalSumNumber, ShouldEqual, 1)
			})
		})
	})

	Convey("Given a corrupt backing file", t, func() {
		path := filepath.Join(t.TempDir(), "ledger.json")
		So(os.WriteFile(path, []byte("{broken"), 0o600), ShouldBeNil)
		store := repository.NewFileStore(path, fakeCatalog{ids: []string{"a.jpg"}})

		Convey("When taking a snapshot", func() {
			ledger, err := store.Snapshot(context.Background())

			Convey("Then the store reinitializes from the catalog", func() {
				So(err, ShouldBeNil)
				So(ledger.Items, ShouldHaveLength, 1)
				So(ledger.Items["a.jpg"].Rated(), ShouldBeFalse)
			})
		})
	})

	Convey("Given an unreadable catalog", t, func() {
		path := filepath.Join(t.TempDir(), "ledger.json")
		catErr := errors.New("catalog gone")
		store := repository.NewFileStore(path, fakeCatalog{err: catErr})

		Convey("Then updates fail instead of producing an empty store", func() {
			err := store.Update(context.Background(), func(*model.Ledger) error { return nil })
			So(errors.Is(err, catErr), ShouldBeTrue)
		})
	})
}

func TestFileStoreCatalogSync(t *testing.T) {
	Convey("Given a persisted ledger and a grown catalog", t, func() {
		path := filepath.Join(t.TempDir(), "ledger.json")
		store := repository.NewFileStore(path, fakeCatalog{ids: []string{"a.jpg"}})
		So(store.Update(context.Background(), func(l *model.Ledger) error {
			l.Items["a.jpg"].GlobalAverage = 7.6
			l.Items["a.jpg"].Sums = []int{8}
			return nil
		}), ShouldBeNil)

		grown := repository.NewFileStore(path, fakeCatalog{ids: []string{"a.jpg", "b.jpg"}})

		Convey("When the grown catalog is loaded", func() {
			ledger, err := grown.Snapshot(context.Background())

			Convey("Then new ids are added and existing records survive", func() {
				So(err, ShouldBeNil)
				So(ledger.Items, ShouldHaveLength, 2)
				So(ledger.Items["a.jpg"].GlobalAverage, ShouldEqual, 7.6)
				So(ledger.Items["a.jpg"].Sums, ShouldResemble, []int{8})
				So(ledger.Items["b.jpg"].Rated(), ShouldBeFalse)
			})
		})

		Convey("When syncing repeatedly against an unchanged catalog", func() {
			for i := 0; i < 3; i++ {
				So(store.Update(context.Background(), func(*model.Ledger) error { return nil }), ShouldBeNil)
			}
			ledger, err := store.Snapshot(context.Background())
			So(err, ShouldBeNil)
			So(ledger.Items["a.jpg"].GlobalAverage, ShouldEqual, 7.6)
			So(ledger.Items["a.jpg"].Sums, ShouldResemble, []int{8})
		})
	})
}

func TestFileStoreAllOrNothing(t *testing.T) {
	Convey("Given a persisted ledger", t, func() {
		path := filepath.Join(t.TempDir(), "ledger.json")
		store := repository.NewFileStore(path, fakeCatalog{ids: []string{"a.jpg"}})
		So(store.Update(context.Background(), func(l *model.Ledger) error {
			l.Items["a.jpg"].GlobalAverage = 7.6
			return nil
		}), ShouldBeNil)
		before, err := os.ReadFile(path)
		So(err, ShouldBeNil)

		Convey("When a batch fails mid-mutation", func() {
			boom := errors.New("boom")
			updateErr := store.Update(context.Background(), func(l *model.Ledger) error {
				l.Items["a.jpg"].GlobalAverage = 1.1
				return boom
			})

			Convey("Then the backing file is byte-identical to before", func() {
				So(errors.Is(updateErr, boom), ShouldBeTrue)
				after, readErr := os.ReadFile(path)
				So(readErr, ShouldBeNil)
				So(string(after), ShouldEqual, string(before))
			})
		})
	})
}

func TestFileStoreLocking(t *testing.T) {
	Convey("Given a store whose lock is held by a slow update", t, func() {
		path := filepath.Join(t.TempDir(), "ledger.json")
		store := repository.NewFileStore(path, fakeCatalog{ids: []string{"a.jpg"}},
			repository.WithLockTimeout(50*time.Millisecond),
		)

		release := make(chan struct{})
		started := make(chan struct{})
		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = store.Update(context.Background(), func(*model.Ledger) error {
				close(started)
				<-release
				return nil
			})
		}()
		<-started

		Convey("When a second update exceeds the bounded wait", func() {
			err := store.Update(context.Background(), func(*model.Ledger) error { return nil })

			Convey("Then it fails with the lock timeout kind", func() {
				So(errors.Is(err, repository.ErrLockTimeout), ShouldBeTrue)
			})
		})

		close(release)
		wg.Wait()
	})

	Convey("Given many concurrent updates", t, func() {
		path := filepath.Join(t.TempDir(), "ledger.json")
		store := repository.NewFileStore(path, fakeCatalog{ids: []string{"a.jpg"}},
			repository.WithLockTimeout(5*time.Second),
		)

		Convey("When they all append to the same history", func() {
			var wg sync.WaitGroup
			for i := 0; i < 20; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_ = store.Update(context.Background(), func(l *model.Ledger) error {
						l.Items["a.jpg"].Sums = append(l.Items["a.jpg"].Sums, 5)
						return nil
					})
				}()
			}
			wg.Wait()

			Convey("Then every append is serialized and none are lost", func() {
				ledger, err := store.Snapshot(context.Background())
				So(err, ShouldBeNil)
				So(ledger.Items["a.jpg"].Sums, ShouldHaveLength, 20)
				So(ledger.TotalStats.TotalSumNumber, ShouldEqual, 20)
			})
		})
	})
}
