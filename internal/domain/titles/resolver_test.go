package titles_test

import (
	"math"
	"sync"
	"testing"

	"github.com/okian/academy/internal/domain/model"
	"github.com/okian/academy/internal/domain/titles"
	. "github.com/smartystreets/goconvey/convey"
)

func ids(defs []titles.Definition) []string {
	out := make([]string, 0, len(defs))
	for _, d := range defs {
		out = append(out, d.ID)
	}
	return out
}

func TestResolverScenarios(t *testing.T) {
	Convey("Given a resolver over the default catalog", t, func() {
		r := titles.NewResolver()

		Convey("When the player has no stats at all", func() {
			s := model.StatRecord{}

			Convey("Then only the rookie title is earned and it is primary", func() {
				So(ids(r.Earned(s)), ShouldResemble, []string{"rookie-trainer"})
				So(r.Primary(s).ID, ShouldEqual, "rookie-trainer")
				So(r.Secondary(s, 3), ShouldBeEmpty)
			})
		})

		Convey("When the player has exactly 500 captures", func() {
			s := model.StatRecord{TotalCaptures: 500}

			Convey("Then collector is earned and primary", func() {
				So(ids(r.Earned(s)), ShouldResemble, []string{"collector", "rookie-trainer"})
				So(r.Primary(s).ID, ShouldEqual, "collector")
				So(r.Secondary(s, 3), ShouldBeEmpty)
			})
		})

		Convey("When the player meets every threshold", func() {
			s := model.StatRecord{TotalCaptures: 1000, ShinyCount: 50, BattlesWon: 100, PokedexCompletion: 80}

			Convey("Then all titles are earned and priority breaks the Legendary tie", func() {
				So(len(r.Earned(s)), ShouldEqual, 9)
				So(r.Primary(s).ID, ShouldEqual, "pokedex-master")
				So(ids(r.Secondary(s, 3)), ShouldResemble, []string{"masuda-master", "league-champion", "elite-collector"})
				So(ids(r.Secondary(s, 10)), ShouldResemble, []string{
					"masuda-master", "league-champion", "elite-collector",
					"shiny-hunter", "professor", "battle-elite", "collector",
				})
			})
		})

		Convey("When the player is one short of every Epic and Legendary threshold", func() {
			s := model.StatRecord{TotalCaptures: 999, ShinyCount: 49, BattlesWon: 99, PokedexCompletion: 79.9}

			Convey("Then the highest-priority Rare title wins", func() {
				So(ids(r.Earned(s)), ShouldResemble, []string{"shiny-hunter", "professor", "battle-elite", "collector", "rookie-trainer"})
				So(r.Primary(s).ID, ShouldEqual, "shiny-hunter")
				So(ids(r.Secondary(s, 3)), ShouldResemble, []string{"professor", "battle-elite", "collector"})
				So(ids(r.Secondary(s, 1)), ShouldResemble, []string{"professor"})
			})
		})

		Convey("When asking for shiny-hunter progress at 5 shinies", func() {
			p, ok := r.ProgressFor(model.StatRecord{ShinyCount: 5}, "shiny-hunter")

			Convey("Then the player is halfway", func() {
				So(ok, ShouldBeTrue)
				So(p, ShouldResemble, titles.Progress{Current: 5, Target: 10, Pct: 50})
			})
		})

		Convey("When asking for progress on a percentage title", func() {
			p, ok := r.ProgressFor(model.StatRecord{PokedexCompletion: 41.27}, "professor")

			Convey("Then current is rounded while pct uses the raw value", func() {
				So(ok, ShouldBeTrue)
				So(p.Current, ShouldEqual, 41.0)
				So(p.Target, ShouldEqual, 50.0)
				So(p.Pct, ShouldAlmostEqual, 82.54, 0.0001)
			})
		})

		Convey("When asking for progress on an unknown title", func() {
			_, ok := r.ProgressFor(model.StatRecord{}, "gym-leader")

			Convey("Then not found is reported as a value", func() {
				So(ok, ShouldBeFalse)
			})
		})

		Convey("When the secondary limit is zero or negative", func() {
			s := model.StatRecord{TotalCaptures: 1000, ShinyCount: 50, BattlesWon: 100, PokedexCompletion: 80}

			Convey("Then no secondary titles are returned", func() {
				So(r.Secondary(s, 0), ShouldBeEmpty)
				So(r.Secondary(s, -2), ShouldBeEmpty)
				So(r.Evaluate(s, 0).Secondary, ShouldBeEmpty)
			})
		})
	})
}

func TestResolverEvaluate(t *testing.T) {
	Convey("Given a resolver", t, func() {
		r := titles.NewResolver()
		s := model.StatRecord{TotalCaptures: 620, ShinyCount: 14, BattlesWon: 3, PokedexCompletion: 12}

		Convey("When evaluating a player in one pass", func() {
			sum := r.Evaluate(s, 3)

			Convey("Then it agrees with the individual operations", func() {
				So(sum.Primary.ID, ShouldEqual, r.Primary(s).ID)
				So(ids(sum.Secondary), ShouldResemble, ids(r.Secondary(s, 3)))
				So(ids(sum.Earned), ShouldResemble, ids(r.Earned(s)))
			})

			Convey("And the earned count leaves out the baseline", func() {
				So(ids(sum.Earned), ShouldResemble, []string{"shiny-hunter", "collector", "rookie-trainer"})
				So(sum.EarnedCount, ShouldEqual, 2)
				So(sum.Total, ShouldEqual, 8)
			})
		})

		Convey("When building the gallery", func() {
			cards := r.Gallery(s)

			Convey("Then every title has a card with its state, earned titles first", func() {
				So(len(cards), ShouldEqual, titles.Default().Len())
				order := make([]string, len(cards))
				for i, c := range cards {
					order[i] = c.ID
				}
				So(order, ShouldResemble, []string{
					"shiny-hunter", "collector", "rookie-trainer",
					"pokedex-master", "masuda-master", "league-champion",
					"elite-collector", "professor", "battle-elite",
				})
				So(cards[0].Unlocked, ShouldBeTrue)
				So(cards[0].Status.Pct, ShouldEqual, 100.0)
				So(cards[3].Unlocked, ShouldBeFalse)
				So(cards[3].Status.Pct, ShouldAlmostEqual, 15, 0.0001)
			})

			Convey("Then earned cards never follow locked ones", func() {
				for i := 1; i < len(cards); i++ {
					So(cards[i-1].Unlocked || !cards[i].Unlocked, ShouldBeTrue)
				}
			})
		})
	})
}

func TestCompare(t *testing.T) {
	Convey("Given titles of different rarity and priority", t, func() {
		cat := titles.Default()
		get := func(id string) titles.Definition {
			d, _ := cat.Find(id)
			return d
		}

		Convey("Then rarity dominates priority", func() {
			So(titles.Compare(get("elite-collector"), get("shiny-hunter")), ShouldBeLessThan, 0)
			So(titles.Compare(get("collector"), get("league-champion")), ShouldBeGreaterThan, 0)
		})

		Convey("Then priority breaks ties within a rarity", func() {
			So(titles.Compare(get("pokedex-master"), get("masuda-master")), ShouldBeLessThan, 0)
			So(titles.Compare(get("battle-elite"), get("professor")), ShouldBeGreaterThan, 0)
		})

		Convey("Then a title compares equal to itself", func() {
			So(titles.Compare(get("professor"), get("professor")), ShouldEqual, 0)
		})
	})
}

// statGrid covers every threshold boundary plus out-of-range input.
func statGrid() []model.StatRecord {
	captures := []int{-3, 0, 1, 499, 500, 999, 1000, 5000}
	shinies := []int{-1, 0, 9, 10, 49, 50}
	battles := []int{0, 49, 50, 99, 100}
	completion := []float64{-5, 0, 49.99, 50, 79.9, 80, 100, 120, math.NaN(), math.Inf(1)}
	var out []model.StatRecord
	for _, c := range captures {
		for _, s := range shinies {
			for _, b := range battles {
				for _, p := range completion {
					out = append(out, model.StatRecord{TotalCaptures: c, ShinyCount: s, BattlesWon: b, PokedexCompletion: p})
				}
			}
		}
	}
	return out
}

func TestResolverProperties(t *testing.T) {
	Convey("Given every combination of boundary stat values", t, func() {
		r := titles.NewResolver()
		grid := statGrid()
		baseline := titles.Default().Baseline()

		Convey("Then the resolver invariants hold for all of them", func() {
			var (
				emptyEarned, primaryNotEarned, baselineShadowing int
				earnedNotFull, lockedFull, pctOutOfRange         int
				badSecondary, nonDeterministic                   int
			)
			for _, s := range grid {
				earned := r.Earned(s)
				primary := r.Primary(s)
				if len(earned) == 0 {
					emptyEarned++
				}
				earnedIDs := map[string]bool{}
				for _, d := range earned {
					earnedIDs[d.ID] = true
				}
				if !earnedIDs[primary.ID] {
					primaryNotEarned++
				}
				if len(earned) > 1 && primary.ID == baseline.ID {
					baselineShadowing++
				}
				for _, d := range titles.Default().All() {
					p, ok := r.ProgressFor(s, d.ID)
					if !ok {
						continue
					}
					if p.Pct < 0 || p.Pct > 100 || math.IsNaN(p.Pct) {
						pctOutOfRange++
					}
					if earnedIDs[d.ID] && p.Pct != 100 {
						earnedNotFull++
					}
					if !earnedIDs[d.ID] && p.Pct >= 100 {
						lockedFull++
					}
				}
				for _, limit := range []int{0, 1, 3, 20} {
					sec := r.Secondary(s, limit)
					if len(sec) > limit {
						badSecondary++
					}
					for _, d := range sec {
						if d.ID == primary.ID || d.ID == baseline.ID {
							badSecondary++
						}
					}
				}
				if r.Primary(s).ID != primary.ID || len(r.Earned(s)) != len(earned) {
					nonDeterministic++
				}
			}
			So(emptyEarned, ShouldEqual, 0)
			So(primaryNotEarned, ShouldEqual, 0)
			So(baselineShadowing, ShouldEqual, 0)
			So(earnedNotFull, ShouldEqual, 0)
			So(lockedFull, ShouldEqual, 0)
			So(pctOutOfRange, ShouldEqual, 0)
			So(badSecondary, ShouldEqual, 0)
			So(nonDeterministic, ShouldEqual, 0)
		})
	})
}

func TestResolverMonotonicity(t *testing.T) {
	Convey("Given a stat record whose fields grow one at a time", t, func() {
		r := titles.NewResolver()
		bump := []func(model.StatRecord, int) model.StatRecord{
			func(s model.StatRecord, n int) model.StatRecord { s.TotalCaptures += n * 37; return s },
			func(s model.StatRecord, n int) model.StatRecord { s.ShinyCount += n * 3; return s },
			func(s model.StatRecord, n int) model.StatRecord { s.BattlesWon += n * 7; return s },
			func(s model.StatRecord, n int) model.StatRecord { s.PokedexCompletion += float64(n) * 4.5; return s },
		}

		Convey("Then progress never drops and earned titles are never lost", func() {
			regressions := 0
			for _, f := range bump {
				prev := model.StatRecord{}
				for step := 1; step <= 30; step++ {
					next := f(prev, 1)
					for _, d := range titles.Default().All() {
						if d.Progress(next).Pct < d.Progress(prev).Pct {
							regressions++
						}
						if d.Earned(prev) && !d.Earned(next) {
							regressions++
						}
					}
					prev = next
				}
			}
			So(regressions, ShouldEqual, 0)
		})
	})
}

func TestResolverConcurrentUse(t *testing.T) {
	Convey("Given many goroutines evaluating the same records", t, func() {
		r := titles.NewResolver()
		s := model.StatRecord{TotalCaptures: 1000, ShinyCount: 12, BattlesWon: 60, PokedexCompletion: 55}
		want := r.Evaluate(s, 3)

		var wg sync.WaitGroup
		results := make([]string, 64)
		for i := range results {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				results[i] = r.Evaluate(s, 3).Primary.ID
			}(i)
		}
		wg.Wait()

		Convey("Then every caller sees the same primary title", func() {
			for _, id := range results {
				So(id, ShouldEqual, want.Primary.ID)
			}
			So(want.Primary.ID, ShouldEqual, "elite-collector")
		})
	})
}

func TestResolverWithCustomCatalog(t *testing.T) {
	Convey("Given a catalog with two equally ranked titles", t, func() {
		always := func(model.StatRecord) bool { return true }
		full := func(model.StatRecord) titles.Progress { return titles.Progress{Current: 1, Target: 1, Pct: 100} }
		cat, err := titles.NewCatalog(
			titles.Definition{ID: "zeta", Rarity: titles.Rare, Priority: 5, Earned: always, Progress: full},
			titles.Definition{ID: "alpha", Rarity: titles.Rare, Priority: 5, Earned: always, Progress: full},
			titles.Definition{ID: "base", Baseline: true, Earned: always, Progress: full},
		)
		So(err, ShouldBeNil)
		r := titles.NewResolver(titles.WithCatalog(cat))

		Convey("Then the id breaks the tie deterministically", func() {
			So(r.Primary(model.StatRecord{}).ID, ShouldEqual, "alpha")
			So(ids(r.Secondary(model.StatRecord{}, 5)), ShouldResemble, []string{"zeta"})
			So(r.Catalog(), ShouldPointTo, cat)
		})
	})
}
