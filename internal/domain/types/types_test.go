package types_test

import (
	"encoding/json"
	"testing"

	"github.com/okian/standings/internal/domain/filter"
	"github.com/okian/standings/internal/domain/leaderboard"
	"github.com/okian/standings/internal/domain/model"
	"github.com/okian/standings/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func TestEntityPayload(t *testing.T) {
	Convey("Given a sync payload without a kind", t, func() {
		p := types.EntityPayload{
			ID:          " u1 ",
			DisplayName: "Ada",
			Metrics:     map[string]float64{"rating": 1900},
		}

		Convey("When it is converted to the model", func() {
			e := p.ToModel()

			Convey("Then defaults and typed categories are applied", func() {
				So(e.ID, ShouldEqual, "u1")
				So(e.Kind, ShouldEqual, model.KindUser)
				So(e.Metrics[model.CategoryRating], ShouldEqual, 1900)
				So(e.PriorMetrics, ShouldBeNil)
			})

			Convey("And converting back keeps the metrics", func() {
				back := types.FromModel(e)
				So(back.Metrics, ShouldResemble, p.Metrics)
				So(back.PriorMetrics, ShouldBeNil)
			})
		})
	})
}

func TestNewPage(t *testing.T) {
	Convey("Given a leaderboard result with a new entrant", t, func() {
		engine := leaderboard.New()
		snap := &model.Snapshot{ID: "s1", Version: 2, Entities: []model.Entity{
			{ID: "a", Kind: model.KindUser, DisplayName: "A", Metrics: model.Metrics{model.CategoryRating: 2}},
		}}
		res, err := engine.Query(snap, leaderboard.Query{Scope: filter.Global(), Category: model.CategoryRating, Page: 1, PageSize: 10})
		So(err, ShouldBeNil)

		page := types.NewPage(res)

		Convey("Then the response echoes the query and marks the delta null", func() {
			So(page.Category, ShouldEqual, "rating")
			So(page.Scope, ShouldEqual, "global")
			So(page.Page, ShouldEqual, 1)
			So(page.PageSize, ShouldEqual, 10)
			So(page.SnapshotVersion, ShouldEqual, 2)
			So(page.Items, ShouldHaveLength, 1)

			raw, err := json.Marshal(page.Items[0])
			So(err, ShouldBeNil)
			So(string(raw), ShouldContainSubstring, `"rank_delta":null`)
			So(string(raw), ShouldContainSubstring, `"direction":"new"`)
		})
	})
}
