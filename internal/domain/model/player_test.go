package model_test

import (
	"testing"

	model "github.com/okian/academy/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestPlayerStatRecord(t *testing.T) {
	convey.Convey("Given a player with advancement data and pokedex stats", t, func() {
		p := model.Player{
			UUID:     "069a79f4-44e9-4726-a5be-fca90e38aaf5",
			Username: "Notch",
			Advancement: model.Advancement{
				TotalCaptureCount:       640,
				TotalShinyCaptureCount:  12,
				TotalBattleVictoryCount: 77,
				TotalEggsHatched:        5,
			},
			Pokedex: model.PokedexStats{CompletionPercentage: 41.27},
		}

		convey.Convey("When flattening into a stat record", func() {
			rec := p.StatRecord()

			convey.Convey("Then the title inputs are copied from the nested data", func() {
				convey.So(rec, convey.ShouldResemble, model.StatRecord{
					TotalCaptures:     640,
					ShinyCount:        12,
					BattlesWon:        77,
					PokedexCompletion: 41.27,
				})
			})
		})

		convey.Convey("When the player is zero valued", func() {
			rec := model.Player{}.StatRecord()

			convey.Convey("Then the record is the zero record", func() {
				convey.So(rec, convey.ShouldResemble, model.StatRecord{})
			})
		})
	})
}

func TestPlayerDisplayName(t *testing.T) {
	convey.Convey("Given players with and without usernames", t, func() {
		convey.So(model.Player{Username: "Steve"}.DisplayName(), convey.ShouldEqual, "Steve")
		convey.So(model.Player{}.DisplayName(), convey.ShouldEqual, model.UnknownTrainer)
		convey.So(model.Player{Username: "   "}.DisplayName(), convey.ShouldEqual, model.UnknownTrainer)
	})
}

func TestSnapshotOwnedSpecies(t *testing.T) {
	convey.Convey("Given a snapshot with species in every source", t, func() {
		box := 0
		s := model.Snapshot{
			Species: []string{"Mew"},
			Party:   []model.Pokemon{{Species: "Pikachu", Slot: 0}},
			PC:      []model.Pokemon{{Species: "pikachu", Box: &box}, {Species: "Onix", Box: &box, Slot: 1}},
		}

		convey.Convey("Then every name is listed once per source entry", func() {
			convey.So(s.OwnedSpecies(), convey.ShouldResemble, []string{"Mew", "Pikachu", "pikachu", "Onix"})
		})

		convey.Convey("Then an empty snapshot lists nothing", func() {
			convey.So(model.Snapshot{}.OwnedSpecies(), convey.ShouldBeEmpty)
		})
	})
}
