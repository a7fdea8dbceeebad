package service_test

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"testing"

	service "github.com/okian/unirank/internal/app"
	"github.com/okian/unirank/internal/domain/model"
	"github.com/okian/unirank/internal/domain/scorespace"
	"github.com/okian/unirank/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func newService(t *testing.T, items int) *service.Service {
	t.Helper()
	if err := logger.Init(); err != nil {
		t.Fatal(err)
	}

	ids := make([]string, items)
	for i := range ids {
		ids[i] = fmt.Sprintf("%q", fmt.Sprintf("img-%03d.jpg", i))
	}
	doc := fmt.Sprintf(`{"items": [%s]}`, join(ids))

	dir := t.TempDir()
	catalogPath := filepath.Join(dir, "catalog.json")
	if err := os.WriteFile(catalogPath, []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}

	svc := service.New(
		service.WithCatalogFile(catalogPath),
		service.WithDataFile(filepath.Join(dir, "ledger.json")),
		service.WithRand(rand.New(rand.NewSource(1))),
	)
	if err := svc.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(svc.Stop)
	return svc
}

func join(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += ","
		}
		out += p
	}
	return out
}

func TestApplyBatchFirstRating(t *testing.T) {
	Convey("Given a fresh service", t, func() {
		svc := newService(t, 3)
		ctx := context.Background()

		Convey("When an item receives its first rating", func() {
			res, err := svc.ApplyBatch(ctx, []model.Rating{{Index: 9, Image: "img-000.jpg"}})

			Convey("Then the unique score equals the rating itself", func() {
				So(err, ShouldBeNil)
				So(res, ShouldResemble, service.BatchResult{Applied: 1})

				ledger, err := svc.Scores(ctx)
				So(err, ShouldBeNil)
				item := ledger.Items["img-000.jpg"]
				So(item.GlobalAverage, ShouldEqual, 9.0)
				So(item.ClassicalAverage, ShouldEqual, 9.0)
				So(item.CurrentIndex, ShouldEqual, 9)
				So(item.Sums, ShouldResemble, []int{9})
				So(item.Deviation, ShouldEqual, 0.0)
				So(math.Signbit(item.Deviation), ShouldBeFalse)
			})
		})
	})
}

func TestApplyBatchWeightedUpdate(t *testing.T) {
	Convey("Given an item with history [7 8 6 9]", t, func() {
		svc := newService(t, 2)
		ctx := context.Background()
		for _, r := range []float64{7, 8, 6, 9} {
			_, err := svc.ApplyBatch(ctx, []model.Rating{{Index: r, Image: "img-000.jpg"}})
			So(err, ShouldBeNil)
		}

		Convey("When it receives an 8", func() {
			_, err := svc.ApplyBatch(ctx, []model.Rating{{Index: 8, Image: "img-000.jpg"}})
			So(err, ShouldBeNil)

			Convey("Then the weighted target 7.6 becomes the unique score", func() {
				ledger, err := svc.Scores(ctx)
				So(err, ShouldBeNil)
				item := ledger.Items["img-000.jpg"]
				So(item.ClassicalAverage, ShouldEqual, 7.6)
				So(item.GlobalAverage, ShouldEqual, 7.6)
				So(item.Deviation, ShouldEqual, 0.0)
				So(item.Sums, ShouldResemble, []int{7, 8, 6, 9, 8})
			})
		})
	})
}

func TestApplyBatchSkipsInvalidEntries(t *testing.T) {
	Convey("Given a service with two items", t, func() {
		svc := newService(t, 2)
		ctx := context.Background()

		Convey("When a batch mixes valid and invalid entries", func() {
			res, err := svc.ApplyBatch(ctx, []model.Rating{
				{Index: 7, Image: "img-000.jpg"},
				{Index: 7.5, Image: "img-001.jpg"}, // fractional
				{Index: 0, Image: "img-001.jpg"},   // below range
				{Index: 11, Image: "img-001.jpg"},  // above range
				{Index: 5, Image: "nope.jpg"},      // unknown item
				{Index: 3, Image: "img-001.jpg"},
			})

			Convey("Then invalid entries are skipped and the rest applied", func() {
				So(err, ShouldBeNil)
				So(res.Applied, ShouldEqual, 2)
				So(res.Skipped, ShouldEqual, 4)

				ledger, err := svc.Scores(ctx)
				So(err, ShouldBeNil)
				So(ledger.Items["img-000.jpg"].Sums, ShouldResemble, []int{7})
				So(ledger.Items["img-001.jpg"].Sums, ShouldResemble, []int{3})
				So(ledger.TotalStats.TotalSumNumber, ShouldEqual, 2)
			})
		})
	})
}

func TestUniquenessUnderCollisions(t *testing.T) {
	Convey("Given fifty items all rated identically", t, func() {
		svc := newService(t, 50)
		ctx := context.Background()

		batch := make([]model.Rating, 50)
		for i := range batch {
			batch[i] = model.Rating{Index: 8, Image: fmt.Sprintf("img-%03d.jpg", i)}
		}

		Convey("When the batch is applied", func() {
			res, err := svc.ApplyBatch(ctx, batch)

			Convey("Then every assigned score is pairwise distinct", func() {
				So(err, ShouldBeNil)
				So(res.Applied, ShouldEqual, 50)

				ledger, err := svc.Scores(ctx)
				So(err, ShouldBeNil)
				seen := scorespace.NewSet()
				for _, item := range ledger.Items {
					So(item.Rated(), ShouldBeTrue)
					So(seen.Has(item.GlobalAverage), ShouldBeFalse)
					So(scorespace.InDomain(item.GlobalAverage), ShouldBeTrue)
					seen.Add(item.GlobalAverage)
				}
				So(ledger.TotalStats.TotalRatedItemNumber, ShouldEqual, 50)
			})
		})
	})
}

func TestReRatingFreesOldSlot(t *testing.T) {
	Convey("Given two items contending for the same score", t, func() {
		svc := newService(t, 2)
		ctx := context.Background()

		_, err := svc.ApplyBatch(ctx, []model.Rating{{Index: 8, Image: "img-000.jpg"}})
		So(err, ShouldBeNil)
		_, err = svc.ApplyBatch(ctx, []model.Rating{{Index: 8, Image: "img-001.jpg"}})
		So(err, ShouldBeNil)

		Convey("When the first item is re-rated", func() {
			_, err := svc.ApplyBatch(ctx, []model.Rating{{Index: 2, Image: "img-000.jpg"}})
			So(err, ShouldBeNil)

			Convey("Then its old slot is freed and uniqueness holds", func() {
				ledger, err := svc.Scores(ctx)
				So(err, ShouldBeNil)
				a := ledger.Items["img-000.jpg"]
				b := ledger.Items["img-001.jpg"]
				So(a.GlobalAverage, ShouldNotEqual, b.GlobalAverage)
				// prior mean 8.0, 8*0.8 + 2*0.2 = 6.8
				So(a.GlobalAverage, ShouldAlmostEqual, 6.8, 0.5)
			})
		})
	})
}

func TestConcurrentBatches(t *testing.T) {
	Convey("Given two batches over overlapping items submitted concurrently", t, func() {
		svc := newService(t, 10)
		ctx := context.Background()

		batchA := make([]model.Rating, 10)
		batchB := make([]model.Rating, 10)
		for i := 0; i < 10; i++ {
			batchA[i] = model.Rating{Index: 7, Image: fmt.Sprintf("img-%03d.jpg", i)}
			batchB[i] = model.Rating{Index: 7, Image: fmt.Sprintf("img-%03d.jpg", i)}
		}

		Convey("When both run to completion", func() {
			var wg sync.WaitGroup
			for _, batch := range [][]model.Rating{batchA, batchB} {
				wg.Add(1)
				go func(b []model.Rating) {
					defer wg.Done()
					_, err := svc.ApplyBatch(ctx, b)
					if err != nil {
						t.Error(err)
					}
				}(batch)
			}
			wg.Wait()

			Convey("Then uniqueness and the rating total both hold", func() {
				ledger, err := svc.Scores(ctx)
				So(err, ShouldBeNil)
				So(ledger.TotalStats.TotalSumNumber, ShouldEqual, 20)

				seen := scorespace.NewSet()
				for _, item := range ledger.Items {
					So(seen.Has(item.GlobalAverage), ShouldBeFalse)
					seen.Add(item.GlobalAverage)
				}
			})
		})
	})
}

func TestRankingViews(t *testing.T) {
	Convey("Given rated and unrated items", t, func() {
		svc := newService(t, 4)
		ctx := context.Background()
		_, err := svc.ApplyBatch(ctx, []model.Rating{
			{Index: 9, Image: "img-000.jpg"},
			{Index: 5, Image: "img-001.jpg"},
			{Index: 7, Image: "img-002.jpg"},
		})
		So(err, ShouldBeNil)

		Convey("When asking for the top two", func() {
			top, err := svc.TopN(ctx, 2)

			Convey("Then they come back strictly ordered", func() {
				So(err, ShouldBeNil)
				So(top, ShouldHaveLength, 2)
				So(top[0].Image, ShouldEqual, "img-000.jpg")
				So(top[0].Rank, ShouldEqual, 1)
				So(top[1].Image, ShouldEqual, "img-002.jpg")
				So(top[0].GlobalAverage, ShouldBeGreaterThan, top[1].GlobalAverage)
			})
		})

		Convey("When asking for more than exist", func() {
			top, err := svc.TopN(ctx, 50)
			So(err, ShouldBeNil)
			So(top, ShouldHaveLength, 3)
		})

		Convey("When ranking a single item", func() {
			entry, err := svc.Rank(ctx, "img-001.jpg")
			So(err, ShouldBeNil)
			So(entry.Rank, ShouldEqual, 3)
			So(entry.Ratings, ShouldEqual, 1)
		})

		Convey("When ranking an unrated item", func() {
			_, err := svc.Rank(ctx, "img-003.jpg")
			So(errors.Is(err, service.ErrUnknownItem), ShouldBeTrue)
		})
	})
}

func TestPresence(t *testing.T) {
	Convey("Given a started service", t, func() {
		svc := newService(t, 1)

		Convey("When sessions ping and leave", func() {
			So(svc.PresencePing("s1"), ShouldEqual, 1)
			So(svc.PresencePing("s2"), ShouldEqual, 2)
			So(svc.PresenceCount(), ShouldEqual, 2)
			So(svc.PresenceLeave("s1"), ShouldEqual, 1)
		})
	})
}

func TestGetStats(t *testing.T) {
	Convey("Given a started service with one rating", t, func() {
		svc := newService(t, 3)
		_, err := svc.ApplyBatch(context.Background(), []model.Rating{{Index: 6, Image: "img-000.jpg"}})
		So(err, ShouldBeNil)

		Convey("When collecting stats", func() {
			stats := svc.GetStats()

			So(stats["started"], ShouldEqual, true)
			So(stats["totalItems"], ShouldEqual, 3)
			So(stats["ratedItems"], ShouldEqual, 1)
			So(stats["totalRatings"], ShouldEqual, 1)
		})
	})
}
