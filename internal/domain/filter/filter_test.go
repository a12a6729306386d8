package filter_test

import (
	"errors"
	"testing"
	"time"

	"github.com/okian/standings/internal/domain/filter"
	"github.com/okian/standings/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func population() []model.Entity {
	return []model.Entity{
		{ID: "1", Kind: model.KindUser, DisplayName: "Alice", Handle: "alice_codes",
			Attributes: map[string]string{"country": "IN", "college": "MIT", "platform": "leetcode"}},
		{ID: "2", Kind: model.KindUser, DisplayName: "Bob", Handle: "bobby",
			Attributes: map[string]string{"country": "US", "college": "MIT", "platform": "codeforces"}},
		{ID: "3", Kind: model.KindUser, DisplayName: "Ölaf Ünal", Handle: "OLAF",
			Attributes: map[string]string{"country": "DE", "college": "TUM"}},
		{ID: "t1", Kind: model.KindTeam, DisplayName: "Byte Bandits", Handle: "bandits",
			Attributes: map[string]string{"college": "MIT"}},
	}
}

func ids(es []model.Entity) []string {
	out := make([]string, 0, len(es))
	for _, e := range es {
		out = append(out, e.ID)
	}
	return out
}

func TestScopeFilter_Apply(t *testing.T) {
	Convey("Given a scope filter and a mixed population", t, func() {
		f := filter.NewScopeFilter()
		pop := population()

		Convey("When the scope is global", func() {
			got, err := f.Apply(pop, filter.Global())

			Convey("Then every entity is returned", func() {
				So(err, ShouldBeNil)
				So(ids(got), ShouldResemble, ids(pop))
			})
		})

		Convey("When scoped to a college", func() {
			got, err := f.Apply(pop, filter.College("MIT"))

			Convey("Then only members of that college remain", func() {
				So(err, ShouldBeNil)
				So(ids(got), ShouldResemble, []string{"1", "2", "t1"})
			})
		})

		Convey("When scoped to a country", func() {
			got, err := f.Apply(pop, filter.Country("IN"))

			Convey("Then entities without a country attribute are excluded", func() {
				So(err, ShouldBeNil)
				So(ids(got), ShouldResemble, []string{"1"})
			})
		})

		Convey("When scoped to friends", func() {
			got, err := f.Apply(pop, filter.Friends("3", "1"))

			Convey("Then the viewer is always included", func() {
				So(err, ShouldBeNil)
				So(ids(got), ShouldResemble, []string{"1", "3"})
			})
		})

		Convey("When scoped to friends with no friends", func() {
			got, err := f.Apply(pop, filter.Friends("2"))
			So(err, ShouldBeNil)
			So(ids(got), ShouldResemble, []string{"2"})
		})

		Convey("When the dimension is not recognized", func() {
			_, err := f.Apply(pop, filter.ByAttribute("platform", "leetcode"))

			Convey("Then it fails with ErrUnsupportedDimension", func() {
				So(errors.Is(err, filter.ErrUnsupportedDimension), ShouldBeTrue)
			})
		})

		Convey("When the filter recognizes custom dimensions", func() {
			custom := filter.NewScopeFilter(filter.WithDimensions("platform"))
			got, err := custom.Apply(pop, filter.ByAttribute("platform", "leetcode"))
			So(err, ShouldBeNil)
			So(ids(got), ShouldResemble, []string{"1"})

			_, err = custom.Apply(pop, filter.College("MIT"))
			So(errors.Is(err, filter.ErrUnsupportedDimension), ShouldBeTrue)
		})
	})
}

func TestParseScope(t *testing.T) {
	Convey("Given textual scopes", t, func() {
		s, err := filter.ParseScope("", "", nil)
		So(err, ShouldBeNil)
		So(s.Kind, ShouldEqual, filter.ScopeGlobal)

		s, err = filter.ParseScope("college:MIT", "", nil)
		So(err, ShouldBeNil)
		So(s, ShouldResemble, filter.College("MIT"))

		s, err = filter.ParseScope("team: t1 ", "", nil)
		So(err, ShouldBeNil)
		So(s, ShouldResemble, filter.Team("t1"))
		So(s.String(), ShouldEqual, "teamId:t1")

		s, err = filter.ParseScope("Friends", "u1", []string{"u2"})
		So(err, ShouldBeNil)
		So(s.ViewerID, ShouldEqual, "u1")
		So(s.FriendIDs, ShouldResemble, []string{"u2"})

		_, err = filter.ParseScope("friends", "", nil)
		So(errors.Is(err, filter.ErrInvalidScope), ShouldBeTrue)

		_, err = filter.ParseScope("galaxy", "", nil)
		So(errors.Is(err, filter.ErrUnsupportedDimension), ShouldBeTrue)

		_, err = filter.ParseScope("college:", "", nil)
		So(errors.Is(err, filter.ErrInvalidScope), ShouldBeTrue)
	})
}

func TestSearch(t *testing.T) {
	Convey("Given a population", t, func() {
		pop := population()

		Convey("When searching with empty or blank text", func() {
			Convey("Then the input is returned unchanged", func() {
				So(ids(filter.Search(pop, "")), ShouldResemble, ids(pop))
				So(ids(filter.Search(pop, "   \t")), ShouldResemble, ids(pop))
				So(len(filter.Search(pop, "")), ShouldEqual, len(pop))
			})
		})

		Convey("When searching by display name in another case", func() {
			So(ids(filter.Search(pop, "ALI")), ShouldResemble, []string{"1"})
		})

		Convey("When searching by handle", func() {
			So(ids(filter.Search(pop, "bobby")), ShouldResemble, []string{"2"})
		})

		Convey("When searching with non-ASCII case differences", func() {
			So(ids(filter.Search(pop, "ölaf")), ShouldResemble, []string{"3"})
			So(ids(filter.Search(pop, "ÜNAL")), ShouldResemble, []string{"3"})
		})

		Convey("When matching on substrings shared by several entities", func() {
			So(ids(filter.Search(pop, "b")), ShouldResemble, []string{"2", "t1"})
		})

		Convey("When nothing matches", func() {
			So(filter.Search(pop, "zzz"), ShouldBeEmpty)
		})
	})
}

func TestAttributeFilters(t *testing.T) {
	Convey("Given a population", t, func() {
		pop := population()
		now := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
		pop[0].LastActive = now.Add(-48 * time.Hour)
		pop[1].LastActive = now
		pop[2].LastActive = now.Add(48 * time.Hour)

		Convey("Then attribute filters match exactly", func() {
			So(ids(filter.Attributes(pop, map[string]string{"platform": "codeforces"})), ShouldResemble, []string{"2"})
			So(ids(filter.Attributes(pop, map[string]string{"college": "MIT", "country": "US"})), ShouldResemble, []string{"2"})
			So(ids(filter.Attributes(pop, nil)), ShouldResemble, ids(pop))
		})

		Convey("Then date ranges are inclusive and open at zero bounds", func() {
			So(ids(filter.ActiveBetween(pop, now, now)), ShouldResemble, []string{"2"})
			So(ids(filter.ActiveBetween(pop, now, time.Time{})), ShouldResemble, []string{"2", "3"})
			So(ids(filter.ActiveBetween(pop, time.Time{}, time.Time{})), ShouldResemble, ids(pop))
		})

		Convey("Then kind filtering keeps one kind", func() {
			So(ids(filter.OfKind(pop, model.KindTeam)), ShouldResemble, []string{"t1"})
			So(len(filter.OfKind(pop, "")), ShouldEqual, len(pop))
		})
	})
}
