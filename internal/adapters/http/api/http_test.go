package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/okian/academy/internal/adapters/http/api"
	"github.com/okian/academy/internal/adapters/repository"
	service "github.com/okian/academy/internal/app"
	"github.com/okian/academy/internal/domain/model"
	"github.com/okian/academy/internal/domain/roster"
	"github.com/okian/academy/internal/domain/scoring"
	"github.com/okian/academy/internal/domain/titles"
	"github.com/okian/academy/internal/domain/types"
	"github.com/okian/academy/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

const playerUUID = "069a79f4-44e9-4726-a5be-fca90e38aaf5"

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

type submitCall struct {
	snap model.Snapshot
}

// mockDeps implements api.Dependencies with canned answers.
type mockDeps struct {
	submitted []submitCall
	seen      map[string]bool
	submitErr error

	entries      []types.Entry
	leaderboards []string
	limits       []int

	rank     types.Entry
	rankCats []string

	page      service.Page
	pageCalls [][2]int
	query     string

	summary service.PlayerSummary
	dex     model.PokedexStats

	party    []model.Pokemon
	pc       []model.Pokemon
	pcFilter roster.Filter
	pcCalls  [][2]int

	titleLimit int
	resolver   *titles.Resolver
	stat       model.StatRecord

	readErr error
}

func newMockDeps() *mockDeps {
	return &mockDeps{
		seen:       map[string]bool{},
		resolver:   titles.NewResolver(),
		titleLimit: -100,
		stat:       model.StatRecord{TotalCaptures: 640, ShinyCount: 12, BattlesWon: 77, PokedexCompletion: 41.27},
	}
}

func (m *mockDeps) Submit(_ context.Context, snap model.Snapshot) (bool, error) {
	if m.submitErr != nil {
		return false, m.submitErr
	}
	if m.seen[snap.SnapshotID] {
		return true, nil
	}
	m.seen[snap.SnapshotID] = true
	m.submitted = append(m.submitted, submitCall{snap: snap})
	return false, nil
}

func (m *mockDeps) Leaderboard(_ context.Context, category string, limit int) ([]types.Entry, error) {
	m.leaderboards = append(m.leaderboards, category)
	m.limits = append(m.limits, limit)
	if _, err := scoring.ParseCategory(category); err != nil {
		return nil, err
	}
	if m.readErr != nil {
		return nil, m.readErr
	}
	return m.entries[:min(limit, len(m.entries))], nil
}

func (m *mockDeps) Rank(_ context.Context, uuid, category string) (types.Entry, error) {
	m.rankCats = append(m.rankCats, category)
	if m.readErr != nil {
		return types.Entry{}, m.readErr
	}
	e := m.rank
	e.UUID = uuid
	return e, nil
}

func (m *mockDeps) Players(_ context.Context, query string, page, limit int) (service.Page, error) {
	m.query = query
	m.pageCalls = append(m.pageCalls, [2]int{page, limit})
	if m.readErr != nil {
		return service.Page{}, m.readErr
	}
	p := m.page
	p.Page, p.Limit = page, limit
	return p, nil
}

func (m *mockDeps) Summary(_ context.Context, uuid string) (service.PlayerSummary, error) {
	if m.readErr != nil {
		return service.PlayerSummary{}, m.readErr
	}
	s := m.summary
	s.UUID = uuid
	return s, nil
}

func (m *mockDeps) Pokedex(context.Context, string) (model.PokedexStats, error) {
	if m.readErr != nil {
		return model.PokedexStats{}, m.readErr
	}
	return m.dex, nil
}

func (m *mockDeps) Party(context.Context, string) ([]model.Pokemon, error) {
	if m.readErr != nil {
		return nil, m.readErr
	}
	return roster.Party(m.party), nil
}

func (m *mockDeps) PC(_ context.Context, _ string, f roster.Filter, page, limit int) (roster.Page, error) {
	m.pcFilter = f
	m.pcCalls = append(m.pcCalls, [2]int{page, limit})
	if m.readErr != nil {
		return roster.Page{}, m.readErr
	}
	return roster.Paginate(roster.Storage(m.pc), f, page, limit)
}

func (m *mockDeps) Catalog() []titles.Definition { return m.resolver.Catalog().All() }

func (m *mockDeps) Titles(_ context.Context, _ string, limit int) (titles.Summary, error) {
	m.titleLimit = limit
	if m.readErr != nil {
		return titles.Summary{}, m.readErr
	}
	if limit < 0 {
		limit = 3
	}
	return m.resolver.Evaluate(m.stat, limit), nil
}

func (m *mockDeps) TitleGallery(context.Context, string) ([]titles.Card, error) {
	if m.readErr != nil {
		return nil, m.readErr
	}
	return m.resolver.Gallery(m.stat), nil
}

func (m *mockDeps) TitleProgress(_ context.Context, _, id string) (titles.Progress, error) {
	if m.readErr != nil {
		return titles.Progress{}, m.readErr
	}
	p, ok := m.resolver.ProgressFor(m.stat, id)
	if !ok {
		return titles.Progress{}, fmt.Errorf("%w: %q", service.ErrTitleNotFound, id)
	}
	return p, nil
}

type mockStatsProvider struct {
	stats map[string]any
}

func (m *mockStatsProvider) GetStats() map[string]any { return m.stats }

func newTestMux(deps *mockDeps, opts ...api.Option) http.Handler {
	server := api.NewServer(deps, &mockStatsProvider{stats: map[string]any{"started": true, "totalPlayers": 3}}, opts...)
	mux := http.NewServeMux()
	server.Register(mux)
	return server.Handler(mux)
}

func do(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeError(w *httptest.ResponseRecorder) map[string]string {
	var out map[string]string
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return out
}

func TestServer_Register(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		deps := newMockDeps()
		h := newTestMux(deps)

		Convey("Then the health endpoint serves Prometheus metrics", func() {
			w := do(h, http.MethodGet, "/healthz", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "academy_tracker_queue_capacity")
		})

		Convey("Then the stats endpoint returns provider stats", func() {
			w := do(h, http.MethodGet, "/stats", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			var stats map[string]any
			So(json.Unmarshal(w.Body.Bytes(), &stats), ShouldBeNil)
			So(stats["started"], ShouldEqual, true)
			So(stats["totalPlayers"], ShouldEqual, 3.0)
			So(stats["generatedAt"], ShouldNotBeEmpty)
			So(w.Header().Get("Cache-Control"), ShouldEqual, "no-store")
		})

		Convey("Then stats without a provider are unavailable", func() {
			server := api.NewServer(deps, nil)
			mux := http.NewServeMux()
			server.Register(mux)
			w := do(mux, http.MethodGet, "/stats", "")
			So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
			So(decodeError(w)["code"], ShouldEqual, "unavailable")
		})

		Convey("Then the title catalog is served", func() {
			w := do(h, http.MethodGet, "/titles", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			var defs []map[string]any
			So(json.Unmarshal(w.Body.Bytes(), &defs), ShouldBeNil)
			So(len(defs), ShouldEqual, 9)
			So(defs[0]["id"], ShouldEqual, titles.PokedexMaster)
			So(defs[0]["rarity"], ShouldEqual, "Legendary")
		})

		Convey("Then a wrong method is rejected", func() {
			w := do(h, http.MethodPost, "/leaderboards/shiny", "")
			So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
		})

		Convey("Then browser origins receive CORS headers", func() {
			req := httptest.NewRequest(http.MethodGet, "/titles", nil)
			req.Header.Set("Origin", "http://dashboard.local")
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Header().Get("Access-Control-Allow-Origin"), ShouldEqual, "*")
		})
	})

	Convey("Given a server restricted to one origin", t, func() {
		h := newTestMux(newMockDeps(), api.WithCORSOrigins("http://academy.example"))

		Convey("When a foreign origin calls", func() {
			req := httptest.NewRequest(http.MethodGet, "/titles", nil)
			req.Header.Set("Origin", "http://evil.example")
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			Convey("Then no CORS grant is returned", func() {
				So(w.Header().Get("Access-Control-Allow-Origin"), ShouldBeEmpty)
			})
		})
	})
}

func TestSnapshotsHandler(t *testing.T) {
	Convey("Given a snapshots endpoint", t, func() {
		deps := newMockDeps()
		h := newTestMux(deps)
		body := `{"snapshot_id":"s-1","username":"Notch","advancement":{"totalCaptureCount":640,"totalShinyCaptureCount":12},"species":["Pikachu"],"ts":"2025-06-01T12:00:00Z"}`

		Convey("When posting a valid snapshot", func() {
			w := do(h, http.MethodPost, "/players/"+strings.ToUpper(playerUUID)+"/snapshots", body)

			Convey("Then it is accepted with a canonical uuid", func() {
				So(w.Code, ShouldEqual, http.StatusAccepted)
				var ack map[string]any
				So(json.Unmarshal(w.Body.Bytes(), &ack), ShouldBeNil)
				So(ack["status"], ShouldEqual, "accepted")
				So(ack["duplicate"], ShouldEqual, false)
				So(len(deps.submitted), ShouldEqual, 1)
				snap := deps.submitted[0].snap
				So(snap.UUID, ShouldEqual, playerUUID)
				So(snap.Username, ShouldEqual, "Notch")
				So(snap.Advancement.TotalShinyCaptureCount, ShouldEqual, 12)
				So(snap.TS.Equal(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)), ShouldBeTrue)
			})
		})

		Convey("When posting the same snapshot twice", func() {
			do(h, http.MethodPost, "/players/"+playerUUID+"/snapshots", body)
			w := do(h, http.MethodPost, "/players/"+playerUUID+"/snapshots", body)

			Convey("Then the duplicate is acknowledged", func() {
				So(w.Code, ShouldEqual, http.StatusAccepted)
				So(w.Body.String(), ShouldContainSubstring, `"duplicate":true`)
				So(len(deps.submitted), ShouldEqual, 1)
			})
		})

		Convey("When the uuid is malformed", func() {
			w := do(h, http.MethodPost, "/players/not-a-uuid/snapshots", body)

			Convey("Then 400 is returned", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decodeError(w)["code"], ShouldEqual, "invalid_uuid")
			})
		})

		Convey("When the body is not JSON", func() {
			w := do(h, http.MethodPost, "/players/"+playerUUID+"/snapshots", "{")

			Convey("Then 400 is returned", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decodeError(w)["code"], ShouldEqual, "bad_request")
			})
		})

		Convey("When posting a party and PC", func() {
			withRoster := `{"snapshot_id":"s-2","party":[{"species":"Pikachu","level":42,"slotIndex":0}],"pc":[{"species":"Onix","boxIndex":3,"slotIndex":7}]}`
			w := do(h, http.MethodPost, "/players/"+playerUUID+"/snapshots", withRoster)

			Convey("Then both are forwarded", func() {
				So(w.Code, ShouldEqual, http.StatusAccepted)
				snap := deps.submitted[0].snap
				So(snap.Party[0].Species, ShouldEqual, "Pikachu")
				So(snap.Party[0].Level, ShouldEqual, 42)
				So(*snap.PC[0].Box, ShouldEqual, 3)
				So(snap.PC[0].Slot, ShouldEqual, 7)
			})
		})

		Convey("When a roster entry is malformed", func() {
			for _, bad := range []string{
				`{"party":[{"species":"Mew","slotIndex":6}]}`,
				`{"party":[{"species":"","slotIndex":0}]}`,
				`{"party":[{"species":"Mew","level":-1,"slotIndex":0}]}`,
				`{"pc":[{"species":"Mew","slotIndex":0}]}`,
				`{"pc":[{"species":"Mew","boxIndex":-1,"slotIndex":0}]}`,
			} {
				w := do(h, http.MethodPost, "/players/"+playerUUID+"/snapshots", bad)
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			}
			So(deps.submitted, ShouldBeEmpty)
		})

		Convey("When the timestamp is not RFC3339", func() {
			w := do(h, http.MethodPost, "/players/"+playerUUID+"/snapshots", `{"ts":"yesterday"}`)

			Convey("Then 400 is returned", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decodeError(w)["message"], ShouldContainSubstring, "RFC3339")
			})
		})

		Convey("When a counter is negative", func() {
			w := do(h, http.MethodPost, "/players/"+playerUUID+"/snapshots", `{"advancement":{"totalCaptureCount":-1}}`)

			Convey("Then 400 is returned", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decodeError(w)["message"], ShouldContainSubstring, "totalCaptureCount")
			})
		})

		Convey("When the pipeline is saturated", func() {
			deps.submitErr = fmt.Errorf("%w: queue full", service.ErrBackpressure)
			w := do(h, http.MethodPost, "/players/"+playerUUID+"/snapshots", body)

			Convey("Then 429 is returned", func() {
				So(w.Code, ShouldEqual, http.StatusTooManyRequests)
				So(decodeError(w)["code"], ShouldEqual, "backpressure")
			})
		})

		Convey("When the service is not running", func() {
			deps.submitErr = service.ErrNotStarted
			w := do(h, http.MethodPost, "/players/"+playerUUID+"/snapshots", body)

			Convey("Then 503 is returned", func() {
				So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
			})
		})
	})
}

func TestLeaderboardHandler(t *testing.T) {
	Convey("Given a leaderboard endpoint", t, func() {
		deps := newMockDeps()
		for i := 0; i < 30; i++ {
			deps.entries = append(deps.entries, types.Entry{Rank: i + 1, UUID: fmt.Sprintf("u-%d", i), Username: "T", Value: float64(100 - i)})
		}
		h := newTestMux(deps, api.WithLeaderboardLimits(5, 20))

		Convey("When requesting without a limit", func() {
			w := do(h, http.MethodGet, "/leaderboards/shiny", "")

			Convey("Then the default limit applies", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var entries []types.Entry
				So(json.Unmarshal(w.Body.Bytes(), &entries), ShouldBeNil)
				So(len(entries), ShouldEqual, 5)
				So(entries[0].Value, ShouldEqual, 100.0)
				So(deps.leaderboards, ShouldResemble, []string{"shiny"})
			})
		})

		Convey("When requesting an explicit limit", func() {
			w := do(h, http.MethodGet, "/leaderboards/captures?limit=12", "")

			Convey("Then that many entries are returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.limits, ShouldResemble, []int{12})
			})
		})

		Convey("When the limit is invalid or too large", func() {
			bad := do(h, http.MethodGet, "/leaderboards/shiny?limit=zero", "")
			neg := do(h, http.MethodGet, "/leaderboards/shiny?limit=-3", "")
			big := do(h, http.MethodGet, "/leaderboards/shiny?limit=21", "")

			Convey("Then 400 is returned", func() {
				So(bad.Code, ShouldEqual, http.StatusBadRequest)
				So(neg.Code, ShouldEqual, http.StatusBadRequest)
				So(big.Code, ShouldEqual, http.StatusBadRequest)
				So(decodeError(big)["code"], ShouldEqual, "limit_exceeded")
			})
		})

		Convey("When the category is unknown", func() {
			w := do(h, http.MethodGet, "/leaderboards/fishing", "")

			Convey("Then 400 is returned", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decodeError(w)["code"], ShouldEqual, "unknown_category")
			})
		})

		Convey("When the store fails", func() {
			deps.readErr = errors.New("disk on fire")
			w := do(h, http.MethodGet, "/leaderboards/shiny", "")

			Convey("Then 500 is returned without the cause", func() {
				So(w.Code, ShouldEqual, http.StatusInternalServerError)
				So(w.Body.String(), ShouldNotContainSubstring, "disk on fire")
			})
		})
	})
}

func TestRankHandler(t *testing.T) {
	Convey("Given a rank endpoint", t, func() {
		deps := newMockDeps()
		deps.rank = types.Entry{Rank: 4, Username: "Notch", Value: 12}
		h := newTestMux(deps)

		Convey("When requesting a rank with a category", func() {
			w := do(h, http.MethodGet, "/players/"+playerUUID+"/rank?category=shiny", "")

			Convey("Then the entry is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var e types.Entry
				So(json.Unmarshal(w.Body.Bytes(), &e), ShouldBeNil)
				So(e.Rank, ShouldEqual, 4)
				So(e.UUID, ShouldEqual, playerUUID)
				So(deps.rankCats, ShouldResemble, []string{"shiny"})
			})
		})

		Convey("When no category is given", func() {
			do(h, http.MethodGet, "/players/"+playerUUID+"/rank", "")

			Convey("Then captures is used", func() {
				So(deps.rankCats, ShouldResemble, []string{"captures"})
			})
		})

		Convey("When the player is unknown", func() {
			deps.readErr = fmt.Errorf("rank: %w", repository.ErrNotFound)
			w := do(h, http.MethodGet, "/players/"+playerUUID+"/rank", "")

			Convey("Then 404 is returned", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
			})
		})
	})
}

func TestRosterHandlers(t *testing.T) {
	Convey("Given a player with a party and PC", t, func() {
		deps := newMockDeps()
		box := func(n int) *int { return &n }
		deps.party = []model.Pokemon{
			{Species: "Snorlax", Level: 50, Slot: 5},
			{Species: "Pikachu", Level: 42, Shiny: true, Slot: 0},
			{Species: "Eevee", Level: 20, Slot: 2},
		}
		deps.pc = []model.Pokemon{
			{Species: "Raichu", Shiny: true, Box: box(1), Slot: 0},
			{Species: "Pichu", Box: box(0), Slot: 3},
			{Species: "Pikachu", Box: box(0), Slot: 1},
			{Species: "Onix", Shiny: true, Box: box(2), Slot: 4},
		}
		h := newTestMux(deps, api.WithMaxPageSize(50))

		Convey("When reading the party", func() {
			w := do(h, http.MethodGet, "/players/"+playerUUID+"/party", "")

			Convey("Then members are returned in slot order", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var party []map[string]any
				So(json.Unmarshal(w.Body.Bytes(), &party), ShouldBeNil)
				So(len(party), ShouldEqual, 3)
				So(party[0]["species"], ShouldEqual, "Pikachu")
				So(party[0]["slotIndex"], ShouldEqual, 0.0)
				So(party[1]["species"], ShouldEqual, "Eevee")
				So(party[2]["slotIndex"], ShouldEqual, 5.0)
				_, hasBox := party[0]["boxIndex"]
				So(hasBox, ShouldBeFalse)
			})
		})

		Convey("When listing the PC with defaults", func() {
			w := do(h, http.MethodGet, "/players/"+playerUUID+"/pc", "")

			Convey("Then the first page is ordered by box and slot", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.pcCalls, ShouldResemble, [][2]int{{1, 50}})
				var page roster.Page
				So(json.Unmarshal(w.Body.Bytes(), &page), ShouldBeNil)
				So(page.Total, ShouldEqual, 4)
				So(page.Pokemon[0].Species, ShouldEqual, "Pikachu")
				So(page.Pokemon[1].Species, ShouldEqual, "Pichu")
				So(*page.Pokemon[2].Box, ShouldEqual, 1)
				So(page.Pokemon[3].Species, ShouldEqual, "Onix")
			})
		})

		Convey("When filtering the PC by shiny", func() {
			w := do(h, http.MethodGet, "/players/"+playerUUID+"/pc?shiny=true", "")

			Convey("Then only shiny entries are listed", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var page roster.Page
				So(json.Unmarshal(w.Body.Bytes(), &page), ShouldBeNil)
				So(page.Total, ShouldEqual, 2)
				So(page.Pokemon[0].Species, ShouldEqual, "Raichu")
				So(page.Pokemon[1].Species, ShouldEqual, "Onix")
			})
		})

		Convey("When filtering the PC by species", func() {
			w := do(h, http.MethodGet, "/players/"+playerUUID+"/pc?species=%20CHU%20&shiny=false", "")

			Convey("Then the species is trimmed and matched case-insensitively", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.pcFilter.Species, ShouldEqual, "CHU")
				So(*deps.pcFilter.Shiny, ShouldBeFalse)
				var page roster.Page
				So(json.Unmarshal(w.Body.Bytes(), &page), ShouldBeNil)
				So(page.Total, ShouldEqual, 2)
				So(page.Pokemon[0].Species, ShouldEqual, "Pikachu")
				So(page.Pokemon[1].Species, ShouldEqual, "Pichu")
			})
		})

		Convey("When paging the PC", func() {
			w := do(h, http.MethodGet, "/players/"+playerUUID+"/pc?page=2&limit=3", "")
			far := do(h, http.MethodGet, "/players/"+playerUUID+"/pc?page=9&limit=500", "")

			Convey("Then later and out-of-range pages keep the total", func() {
				var page roster.Page
				So(json.Unmarshal(w.Body.Bytes(), &page), ShouldBeNil)
				So(len(page.Pokemon), ShouldEqual, 1)
				So(page.Pokemon[0].Species, ShouldEqual, "Onix")

				So(far.Code, ShouldEqual, http.StatusOK)
				So(far.Body.String(), ShouldContainSubstring, `"pokemon":[]`)
				So(far.Body.String(), ShouldContainSubstring, `"total":4`)
				So(deps.pcCalls[1], ShouldResemble, [2]int{9, 50})
			})
		})

		Convey("When the PC query is invalid", func() {
			badShiny := do(h, http.MethodGet, "/players/"+playerUUID+"/pc?shiny=maybe", "")
			badPage := do(h, http.MethodGet, "/players/"+playerUUID+"/pc?page=0", "")

			Convey("Then 400 is returned without a read", func() {
				So(badShiny.Code, ShouldEqual, http.StatusBadRequest)
				So(badPage.Code, ShouldEqual, http.StatusBadRequest)
				So(deps.pcCalls, ShouldBeEmpty)
			})
		})

		Convey("When the player is unknown", func() {
			deps.readErr = repository.ErrNotFound
			party := do(h, http.MethodGet, "/players/"+playerUUID+"/party", "")
			pc := do(h, http.MethodGet, "/players/"+playerUUID+"/pc", "")

			Convey("Then both routes return 404", func() {
				So(party.Code, ShouldEqual, http.StatusNotFound)
				So(pc.Code, ShouldEqual, http.StatusNotFound)
			})
		})

		Convey("When the uuid is malformed", func() {
			w := do(h, http.MethodGet, "/players/abc/party", "")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(decodeError(w)["code"], ShouldEqual, "invalid_uuid")
		})
	})
}

func TestPlayersHandler(t *testing.T) {
	Convey("Given the player endpoints", t, func() {
		deps := newMockDeps()
		deps.page = service.Page{Total: 1, Players: []service.PlayerCard{{UUID: playerUUID, Username: "Notch"}}}
		deps.summary = service.PlayerSummary{Username: "Notch", Advancement: model.Advancement{TotalCaptureCount: 640}}
		deps.dex = model.PokedexStats{TotalCaught: 298, TotalSpecies: 722, CompletionPercentage: 41.27}
		h := newTestMux(deps, api.WithMaxPageSize(50))

		Convey("When listing players", func() {
			w := do(h, http.MethodGet, "/players?q=%20not%20&page=2&limit=500", "")

			Convey("Then the query is trimmed and the page size capped", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.query, ShouldEqual, "not")
				So(deps.pageCalls, ShouldResemble, [][2]int{{2, 50}})
				var page service.Page
				So(json.Unmarshal(w.Body.Bytes(), &page), ShouldBeNil)
				So(page.Total, ShouldEqual, 1)
				So(page.Players[0].Username, ShouldEqual, "Notch")
			})
		})

		Convey("When listing with defaults", func() {
			do(h, http.MethodGet, "/players", "")

			Convey("Then the first page of the default size is read", func() {
				So(deps.pageCalls, ShouldResemble, [][2]int{{1, 20}})
			})
		})

		Convey("When the page is invalid", func() {
			w := do(h, http.MethodGet, "/players?page=0", "")

			Convey("Then 400 is returned", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When reading a summary", func() {
			w := do(h, http.MethodGet, "/players/"+playerUUID+"/summary", "")

			Convey("Then the advancement counters are flattened", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var sum map[string]any
				So(json.Unmarshal(w.Body.Bytes(), &sum), ShouldBeNil)
				So(sum["uuid"], ShouldEqual, playerUUID)
				So(sum["totalCaptureCount"], ShouldEqual, 640.0)
				_, nested := sum["Advancement"]
				So(nested, ShouldBeFalse)
			})
		})

		Convey("When reading the pokedex", func() {
			w := do(h, http.MethodGet, "/players/"+playerUUID+"/pokedex", "")

			Convey("Then the completion is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"completion_percentage":41.27`)
			})
		})

		Convey("When the player is unknown", func() {
			deps.readErr = repository.ErrNotFound
			w := do(h, http.MethodGet, "/players/"+playerUUID+"/summary", "")

			Convey("Then 404 is returned", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
				So(decodeError(w)["code"], ShouldEqual, "not_found")
			})
		})

		Convey("When the uuid is malformed", func() {
			w := do(h, http.MethodGet, "/players/abc/pokedex", "")

			Convey("Then 400 is returned", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})
	})
}

func TestTitlesHandler(t *testing.T) {
	Convey("Given the title endpoints for a player with two titles", t, func() {
		deps := newMockDeps()
		h := newTestMux(deps)

		Convey("When reading titles without a limit", func() {
			w := do(h, http.MethodGet, "/players/"+playerUUID+"/titles", "")

			Convey("Then the service default is requested", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.titleLimit, ShouldEqual, -1)
				var sum map[string]any
				So(json.Unmarshal(w.Body.Bytes(), &sum), ShouldBeNil)
				primary := sum["primary"].(map[string]any)
				So(primary["id"], ShouldEqual, titles.ShinyHunter)
				So(sum["earnedCount"], ShouldEqual, 2.0)
			})
		})

		Convey("When reading titles with limit zero", func() {
			w := do(h, http.MethodGet, "/players/"+playerUUID+"/titles?limit=0", "")

			Convey("Then only the primary is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.titleLimit, ShouldEqual, 0)
				So(w.Body.String(), ShouldContainSubstring, `"secondary":[]`)
			})
		})

		Convey("When the limit is negative", func() {
			w := do(h, http.MethodGet, "/players/"+playerUUID+"/titles?limit=-1", "")

			Convey("Then 400 is returned", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When reading the gallery", func() {
			w := do(h, http.MethodGet, "/players/"+playerUUID+"/titles/gallery", "")

			Convey("Then every title is listed", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var cards []map[string]any
				So(json.Unmarshal(w.Body.Bytes(), &cards), ShouldBeNil)
				So(len(cards), ShouldEqual, 9)
				So(cards[0]["id"], ShouldEqual, titles.ShinyHunter)
				So(cards[0]["earned"], ShouldEqual, true)
				So(cards[3]["id"], ShouldEqual, titles.RookieTrainer)
				So(cards[4]["id"], ShouldEqual, titles.PokedexMaster)
				So(cards[4]["earned"], ShouldEqual, false)
			})
		})

		Convey("When reading progress toward a title", func() {
			w := do(h, http.MethodGet, "/players/"+playerUUID+"/titles/league-champion/progress", "")

			Convey("Then current, target and percentage are returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var prog map[string]any
				So(json.Unmarshal(w.Body.Bytes(), &prog), ShouldBeNil)
				So(prog["titleId"], ShouldEqual, titles.LeagueChampion)
				So(prog["current"], ShouldEqual, 77.0)
				So(prog["target"], ShouldEqual, 100.0)
				So(prog["earned"], ShouldEqual, false)
			})
		})

		Convey("When reading progress toward an unknown title", func() {
			w := do(h, http.MethodGet, "/players/"+playerUUID+"/titles/gym-leader/progress", "")

			Convey("Then 404 is returned", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
				So(decodeError(w)["code"], ShouldEqual, "title_not_found")
			})
		})
	})
}

func TestErrorHelpers(t *testing.T) {
	Convey("Given operation errors", t, func() {
		cause := errors.New("boom")

		Convey("Then kinds and causes are both visible", func() {
			err := api.WrapKind("api.op", api.ErrBadRequest, cause)
			So(errors.Is(err, api.ErrBadRequest), ShouldBeTrue)
			So(errors.Is(err, cause), ShouldBeTrue)
			So(err.Error(), ShouldEqual, "api.op: bad request: boom")

			So(api.NewKind("api.op", api.ErrBackpressure).Error(), ShouldEqual, "api.op: backpressure")
			So(api.Wrap("api.op", cause).Error(), ShouldEqual, "api.op: boom")
			So(api.Wrap("api.op", nil), ShouldBeNil)
		})
	})
}
