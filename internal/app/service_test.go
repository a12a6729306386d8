package service_test

import (
	"context"
	"errors"
	"io"
	"math"
	"os"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	service "github.com/okian/standings/internal/app"
	"github.com/okian/standings/internal/domain/filter"
	"github.com/okian/standings/internal/domain/leaderboard"
	"github.com/okian/standings/internal/domain/model"
	"github.com/okian/standings/pkg/logger"
)

func TestMain(m *testing.M) {
	if err := logger.Init(logger.WithWriter(io.Discard)); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func user(id, name string, solved, rating, streak float64) model.Entity {
	return model.Entity{
		ID:          id,
		Kind:        model.KindUser,
		DisplayName: name,
		Metrics: model.Metrics{
			model.CategoryProblemsSolved: solved,
			model.CategoryRating:         rating,
			model.CategoryCurrentStreak:  streak,
		},
	}
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func TestService_New(t *testing.T) {
	Convey("Given a new service with default options", t, func() {
		svc := service.New()

		Convey("Then it should report the default page sizes", func() {
			def, maxSize := svc.PageSizes()
			So(def, ShouldEqual, 50)
			So(maxSize, ShouldEqual, 200)
		})

		Convey("And it should not be started", func() {
			So(svc.GetStats()["started"], ShouldEqual, false)
			So(svc.Size(), ShouldEqual, 0)
		})
	})

	Convey("Given a new service with custom options", t, func() {
		svc := service.New(
			service.WithWorkerCount(8),
			service.WithQueueSize(1000),
			service.WithDedupeSize(500),
			service.WithPageSizes(20, 100),
			service.WithCategories("rating", "streak"),
		)

		Convey("Then the options should be applied", func() {
			def, maxSize := svc.PageSizes()
			So(def, ShouldEqual, 20)
			So(maxSize, ShouldEqual, 100)
			stats := svc.GetStats()
			So(stats["workerCount"], ShouldEqual, 8)
			So(stats["queueSize"], ShouldEqual, 1000)
		})
	})
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a new service", t, func() {
		ctx := context.Background()
		svc := service.New(service.WithWorkerCount(2), service.WithQueueSize(10))

		Convey("When calls arrive before Start", func() {
			_, err := svc.Leaderboard(ctx, leaderboard.Query{Category: model.CategoryRating, Page: 1, PageSize: 10})
			_, enqErr := svc.Enqueue(ctx, model.Update{Entity: user("u1", "Ada", 1, 1, 1)})
			_, rollErr := svc.Rollover(ctx)

			Convey("Then they should fail with ErrNotStarted", func() {
				So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
				So(errors.Is(enqErr, service.ErrNotStarted), ShouldBeTrue)
				So(errors.Is(rollErr, service.ErrNotStarted), ShouldBeTrue)
			})
		})

		Convey("When starting and stopping it", func() {
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.Start(ctx), ShouldBeNil)
			started := svc.GetStats()["started"]
			So(svc.Stop(ctx), ShouldBeNil)

			Convey("Then it should report each state", func() {
				So(started, ShouldEqual, true)
				So(svc.GetStats()["started"], ShouldEqual, false)
			})

			Convey("And stopping again should be a no-op", func() {
				So(svc.Stop(ctx), ShouldBeNil)
			})
		})
	})
}

func TestService_Enqueue(t *testing.T) {
	Convey("Given a started service", t, func() {
		ctx := context.Background()
		svc := service.New(
			service.WithWorkerCount(2),
			service.WithQueueSize(100),
			service.WithSnapshotInterval(5*time.Millisecond),
		)
		So(svc.Start(ctx), ShouldBeNil)
		Reset(func() { _ = svc.Stop(ctx) })

		Convey("When the same update id is sent twice", func() {
			u := model.Update{UpdateID: "sync-1", Entity: user("u1", "Ada", 10, 1500, 3)}
			dup1, err1 := svc.Enqueue(ctx, u)
			dup2, err2 := svc.Enqueue(ctx, u)

			Convey("Then only the first should be accepted", func() {
				So(err1, ShouldBeNil)
				So(err2, ShouldBeNil)
				So(dup1, ShouldBeFalse)
				So(dup2, ShouldBeTrue)
				So(svc.Size(), ShouldEqual, 1)
			})
		})

		Convey("When an update has no id", func() {
			e := user("u1", "Ada", 10, 1500, 3)
			dup1, _ := svc.Enqueue(ctx, model.Update{Entity: e})
			dup2, _ := svc.Enqueue(ctx, model.Update{Entity: e})

			Convey("Then each copy should get its own id", func() {
				So(dup1, ShouldBeFalse)
				So(dup2, ShouldBeFalse)
				So(svc.Size(), ShouldEqual, 2)
			})
		})

		Convey("When an update carries an invalid entity", func() {
			_, err := svc.Enqueue(ctx, model.Update{UpdateID: "bad", Entity: model.Entity{Kind: model.KindUser}})

			Convey("Then it should be refused before it is recorded", func() {
				So(errors.Is(err, model.ErrInvalidEntity), ShouldBeTrue)
				So(svc.Size(), ShouldEqual, 0)
			})
		})

		Convey("When an update lacks a metric that cannot be derived", func() {
			e := model.Entity{
				ID: "u3", Kind: model.KindUser, DisplayName: "Cy",
				Metrics: model.Metrics{
					model.CategoryOverallScore:   50,
					model.CategoryProblemsSolved: 3,
					model.CategoryCurrentStreak:  1,
				},
			}
			_, err := svc.Enqueue(ctx, model.Update{UpdateID: "sync-3", Entity: e})

			Convey("Then it should be refused before it is recorded", func() {
				So(errors.Is(err, model.ErrInvalidEntity), ShouldBeTrue)
				So(errors.Is(err, model.ErrMissingMetric), ShouldBeTrue)
				So(svc.Size(), ShouldEqual, 0)
			})

			Convey("And a corrected resend with the same id should be applied", func() {
				e.Metrics[model.CategoryRating] = 1400
				dup, err := svc.Enqueue(ctx, model.Update{UpdateID: "sync-3", Entity: e})
				So(err, ShouldBeNil)
				So(dup, ShouldBeFalse)
				So(waitFor(func() bool {
					_, err := svc.Entity(ctx, "u3")
					return err == nil
				}), ShouldBeTrue)
			})
		})

		Convey("When an update carries an infinite metric", func() {
			e := user("u4", "Di", 1, 1, 1)
			e.Metrics[model.CategoryOverallScore] = math.Inf(1)
			_, err := svc.Enqueue(ctx, model.Update{UpdateID: "sync-4", Entity: e})

			Convey("Then it should be refused as an invalid entity", func() {
				So(errors.Is(err, model.ErrInvalidEntity), ShouldBeTrue)
				So(errors.Is(err, model.ErrInvalidMetric), ShouldBeTrue)
				So(svc.Size(), ShouldEqual, 0)
			})
		})

		Convey("When an accepted update is applied", func() {
			_, err := svc.Enqueue(ctx, model.Update{UpdateID: "sync-2", Entity: user("u2", "Bob", 10, 1000, 5)})
			So(err, ShouldBeNil)

			Convey("Then the entity should be ranked with a derived overall score", func() {
				q := leaderboard.Query{Category: model.CategoryOverallScore, Scope: filter.Global(), Page: 1, PageSize: 10}
				So(waitFor(func() bool {
					res, err := svc.Leaderboard(ctx, q)
					return err == nil && res.TotalCount == 1
				}), ShouldBeTrue)

				res, err := svc.Leaderboard(ctx, q)
				So(err, ShouldBeNil)
				So(res.Items[0].ID, ShouldEqual, "u2")
				So(res.Items[0].Value, ShouldAlmostEqual, 10+100+10)
				So(res.Items[0].IsNew(), ShouldBeTrue)

				stored, err := svc.Entity(ctx, "u2")
				So(err, ShouldBeNil)
				So(stored.Metrics[model.CategoryOverallScore], ShouldAlmostEqual, 120)
			})
		})
	})
}

func TestService_OverallWeights(t *testing.T) {
	ctx := context.Background()

	Convey("Given weights on a category that is not configured", t, func() {
		svc := service.New(
			service.WithWorkerCount(1),
			service.WithCategories("overallScore", "problemsSolved"),
			service.WithOverallWeights(map[string]float64{"rating": 1}),
		)

		Convey("Then Start should fail", func() {
			err := svc.Start(ctx)
			So(errors.Is(err, service.ErrInvalidWeight), ShouldBeTrue)
			So(svc.GetStats()["started"], ShouldEqual, false)
		})
	})

	Convey("Given a negative weight", t, func() {
		svc := service.New(
			service.WithWorkerCount(1),
			service.WithOverallWeights(map[string]float64{"rating": -1}),
		)
		So(errors.Is(svc.Start(ctx), service.ErrInvalidWeight), ShouldBeTrue)
	})

	Convey("Given fewer categories and the built-in weights", t, func() {
		svc := service.New(
			service.WithWorkerCount(1),
			service.WithSnapshotInterval(5*time.Millisecond),
			service.WithCategories("overallScore", "problemsSolved"),
		)
		So(svc.Start(ctx), ShouldBeNil)
		Reset(func() { _ = svc.Stop(ctx) })

		Convey("When an update carries only the configured component", func() {
			e := model.Entity{ID: "u1", Kind: model.KindUser, Metrics: model.Metrics{model.CategoryProblemsSolved: 7}}
			_, err := svc.Enqueue(ctx, model.Update{UpdateID: "w-1", Entity: e})
			So(err, ShouldBeNil)

			Convey("Then overallScore should be derived from it alone", func() {
				So(waitFor(func() bool {
					_, err := svc.Entity(ctx, "u1")
					return err == nil
				}), ShouldBeTrue)
				stored, err := svc.Entity(ctx, "u1")
				So(err, ShouldBeNil)
				So(stored.Metrics[model.CategoryOverallScore], ShouldEqual, 7.0)
			})
		})
	})

	Convey("Given overallScore as the only category", t, func() {
		svc := service.New(service.WithWorkerCount(1), service.WithCategories("overallScore"))
		So(svc.Start(ctx), ShouldBeNil)
		Reset(func() { _ = svc.Stop(ctx) })

		Convey("Then an update without it should be refused", func() {
			e := model.Entity{ID: "u1", Kind: model.KindUser, Metrics: model.Metrics{model.CategoryRating: 1}}
			_, err := svc.Enqueue(ctx, model.Update{UpdateID: "w-2", Entity: e})
			So(errors.Is(err, model.ErrMissingMetric), ShouldBeTrue)
		})
	})
}

func TestService_Backpressure(t *testing.T) {
	Convey("Given a stopped service", t, func() {
		ctx := context.Background()
		svc := service.New(service.WithWorkerCount(1), service.WithQueueSize(1))
		So(svc.Start(ctx), ShouldBeNil)
		So(svc.Stop(ctx), ShouldBeNil)

		Convey("When an update arrives", func() {
			_, err := svc.Enqueue(ctx, model.Update{UpdateID: "late", Entity: user("u1", "Ada", 1, 1, 1)})

			Convey("Then it should be refused without recording the id", func() {
				So(err, ShouldNotBeNil)
				So(svc.Size(), ShouldEqual, 0)
			})
		})
	})
}

func TestService_Queries(t *testing.T) {
	Convey("Given a service with an unknown category query", t, func() {
		ctx := context.Background()
		svc := service.New(service.WithWorkerCount(1))
		So(svc.Start(ctx), ShouldBeNil)
		Reset(func() { _ = svc.Stop(ctx) })

		Convey("When querying the leaderboard", func() {
			_, err := svc.Leaderboard(ctx, leaderboard.Query{Category: "karma", Page: 1, PageSize: 10})

			Convey("Then ErrUnknownCategory should surface", func() {
				So(errors.Is(err, leaderboard.ErrUnknownCategory), ShouldBeTrue)
			})
		})

		Convey("When looking up an entity nobody synced", func() {
			_, err := svc.Position(ctx, leaderboard.Query{Category: model.CategoryRating, PageSize: 10}, "ghost")

			Convey("Then ErrNotRanked should surface", func() {
				So(errors.Is(err, leaderboard.ErrNotRanked), ShouldBeTrue)
			})
		})

		Convey("When asking for categories", func() {
			Convey("Then the defaults should be listed", func() {
				So(svc.Categories(), ShouldResemble, model.DefaultCategories())
			})
		})
	})
}
