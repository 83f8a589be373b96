package api_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	json "github.com/goccy/go-json"

	"github.com/okian/relmap/internal/adapters/http/api"
	"github.com/okian/relmap/internal/adapters/repository"
	service "github.com/okian/relmap/internal/app"
	"github.com/okian/relmap/internal/domain/model"
	"github.com/okian/relmap/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

// fakeEngine implements api.Dependencies with canned instances.
type fakeEngine struct {
	infos   map[string]types.InstanceInfo
	figures map[string][]byte
	playErr error
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		infos:   make(map[string]types.InstanceInfo),
		figures: make(map[string][]byte),
	}
}

func (f *fakeEngine) CreateMap(_ context.Context, variant string, payload []byte, reducedMotion bool, viewportWidth int) (types.InstanceInfo, error) {
	if variant != "collaborators" && variant != "trainees" {
		return types.InstanceInfo{}, fmt.Errorf("%w: %q", model.ErrUnknownVariant, variant)
	}
	if !json.Valid(payload) {
		return types.InstanceInfo{}, model.ErrMalformedPayload
	}
	id := fmt.Sprintf("map-%d", len(f.infos)+1)
	info := types.InstanceInfo{
		ID:      id,
		Variant: variant,
		State: types.ViewState{
			View:          "world",
			ShowCurrent:   true,
			ShowPast:      true,
			AllTime:       true,
			YearMode:      "active",
			Playback:      types.PlaybackStopped,
			ViewportWidth: viewportWidth,
			ReducedMotion: reducedMotion,
		},
	}
	f.infos[id] = info
	f.figures[id] = []byte(`{"data":[],"layout":{}}`)
	return info, nil
}

func (f *fakeEngine) GetMap(_ context.Context, id string) (types.InstanceInfo, error) {
	info, ok := f.infos[id]
	if !ok {
		return types.InstanceInfo{}, repository.ErrNotFound
	}
	return info, nil
}

func (f *fakeEngine) UpdateMapState(_ context.Context, id string, patch types.StatePatch) (types.InstanceInfo, error) {
	info, ok := f.infos[id]
	if !ok {
		return types.InstanceInfo{}, repository.ErrNotFound
	}
	if patch.View != nil {
		if *patch.View != "world" && *patch.View != "region" {
			return types.InstanceInfo{}, fmt.Errorf("%w: view %q", service.ErrInvalidState, *patch.View)
		}
		info.State.View = *patch.View
	}
	if patch.ShowPast != nil {
		info.State.ShowPast = *patch.ShowPast
	}
	f.infos[id] = info
	return info, nil
}

func (f *fakeEngine) PlayMap(_ context.Context, id string) (types.InstanceInfo, error) {
	info, ok := f.infos[id]
	if !ok {
		return types.InstanceInfo{}, repository.ErrNotFound
	}
	if f.playErr != nil {
		return types.InstanceInfo{}, f.playErr
	}
	info.State.Playback = types.PlaybackPlaying
	f.infos[id] = info
	return info, nil
}

func (f *fakeEngine) PauseMap(_ context.Context, id string) (types.InstanceInfo, error) {
	info, ok := f.infos[id]
	if !ok {
		return types.InstanceInfo{}, repository.ErrNotFound
	}
	info.State.Playback = types.PlaybackStopped
	f.infos[id] = info
	return info, nil
}

func (f *fakeEngine) ResetMap(_ context.Context, id string) (types.InstanceInfo, error) {
	return f.GetMap(context.Background(), id)
}

func (f *fakeEngine) MapTraces(_ context.Context, id string) ([]byte, error) {
	figure, ok := f.figures[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return figure, nil
}

func (f *fakeEngine) DeleteMap(_ context.Context, id string) error {
	if _, ok := f.infos[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.infos, id)
	delete(f.figures, id)
	return nil
}

func (f *fakeEngine) GetStats() map[string]interface{} {
	return map[string]interface{}{"started": true, "instances": len(f.infos)}
}

func newTestServer(engine *fakeEngine) *httptest.Server {
	mux := http.NewServeMux()
	api.NewServer(engine, engine, 1<<20).Register(context.Background(), mux)
	return httptest.NewServer(mux)
}

func createTestMap(t *testing.T, srv *httptest.Server) types.InstanceInfo {
	t.Helper()
	body := `{"variant":"collaborators","payload":{"home":{"lat":0,"lon":0},"people":[]}}`
	res, err := http.Post(srv.URL+"/api/maps", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("create map: %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create map: status %d", res.StatusCode)
	}
	var info types.InstanceInfo
	if err := json.NewDecoder(res.Body).Decode(&info); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	return info
}

func TestMapsEndpoints(t *testing.T) {
	Convey("Given an API server", t, func() {
		engine := newFakeEngine()
		srv := newTestServer(engine)
		defer srv.Close()

		Convey("POST /api/maps creates an instance", func() {
			info := createTestMap(t, srv)
			So(info.ID, ShouldNotBeEmpty)
			So(info.State.AllTime, ShouldBeTrue)
		})

		Convey("POST /api/maps rejects malformed bodies", func() {
			res, err := http.Post(srv.URL+"/api/maps", "application/json", strings.NewReader(`{"variant":`))
			So(err, ShouldBeNil)
			defer res.Body.Close()
			So(res.StatusCode, ShouldEqual, http.StatusBadRequest)
		})

		Convey("POST /api/maps rejects a missing variant", func() {
			res, err := http.Post(srv.URL+"/api/maps", "application/json", strings.NewReader(`{"payload":{}}`))
			So(err, ShouldBeNil)
			defer res.Body.Close()
			So(res.StatusCode, ShouldEqual, http.StatusBadRequest)
		})

		Convey("POST /api/maps rejects an unknown variant", func() {
			res, err := http.Post(srv.URL+"/api/maps", "application/json",
				strings.NewReader(`{"variant":"mentors","payload":{}}`))
			So(err, ShouldBeNil)
			defer res.Body.Close()
			So(res.StatusCode, ShouldEqual, http.StatusBadRequest)

			var body map[string]string
			So(json.NewDecoder(res.Body).Decode(&body), ShouldBeNil)
			So(body["code"], ShouldEqual, "bad_request")
		})

		Convey("GET /api/maps/{id} returns the instance", func() {
			info := createTestMap(t, srv)
			res, err := http.Get(srv.URL + "/api/maps/" + info.ID)
			So(err, ShouldBeNil)
			defer res.Body.Close()
			So(res.StatusCode, ShouldEqual, http.StatusOK)

			var got types.InstanceInfo
			So(json.NewDecoder(res.Body).Decode(&got), ShouldBeNil)
			So(got.ID, ShouldEqual, info.ID)
		})

		Convey("GET /api/maps/{id} returns 404 for unknown ids", func() {
			res, err := http.Get(srv.URL + "/api/maps/ghost")
			So(err, ShouldBeNil)
			defer res.Body.Close()
			So(res.StatusCode, ShouldEqual, http.StatusNotFound)
		})

		Convey("POST /api/maps/{id}/state patches the view state", func() {
			info := createTestMap(t, srv)
			res, err := http.Post(srv.URL+"/api/maps/"+info.ID+"/state", "application/json",
				strings.NewReader(`{"show_past": false}`))
			So(err, ShouldBeNil)
			defer res.Body.Close()
			So(res.StatusCode, ShouldEqual, http.StatusOK)

			var got types.InstanceInfo
			So(json.NewDecoder(res.Body).Decode(&got), ShouldBeNil)
			So(got.State.ShowPast, ShouldBeFalse)
		})

		Convey("POST /api/maps/{id}/state rejects invalid values", func() {
			info := createTestMap(t, srv)
			res, err := http.Post(srv.URL+"/api/maps/"+info.ID+"/state", "application/json",
				strings.NewReader(`{"view": "galaxy"}`))
			So(err, ShouldBeNil)
			defer res.Body.Close()
			So(res.StatusCode, ShouldEqual, http.StatusBadRequest)
		})

		Convey("play and pause drive the playback state", func() {
			info := createTestMap(t, srv)

			res, err := http.Post(srv.URL+"/api/maps/"+info.ID+"/play", "application/json", nil)
			So(err, ShouldBeNil)
			defer res.Body.Close()
			So(res.StatusCode, ShouldEqual, http.StatusOK)

			var got types.InstanceInfo
			So(json.NewDecoder(res.Body).Decode(&got), ShouldBeNil)
			So(got.State.Playback, ShouldEqual, types.PlaybackPlaying)

			res2, err := http.Post(srv.URL+"/api/maps/"+info.ID+"/pause", "application/json", nil)
			So(err, ShouldBeNil)
			defer res2.Body.Close()
			So(res2.StatusCode, ShouldEqual, http.StatusOK)
		})

		Convey("a rejected play maps to 409", func() {
			engine.playErr = service.ErrReducedMotion
			info := createTestMap(t, srv)

			res, err := http.Post(srv.URL+"/api/maps/"+info.ID+"/play", "application/json", nil)
			So(err, ShouldBeNil)
			defer res.Body.Close()
			So(res.StatusCode, ShouldEqual, http.StatusConflict)
		})

		Convey("GET /api/maps/{id}/traces serves the rendered figure", func() {
			info := createTestMap(t, srv)
			res, err := http.Get(srv.URL + "/api/maps/" + info.ID + "/traces")
			So(err, ShouldBeNil)
			defer res.Body.Close()
			So(res.StatusCode, ShouldEqual, http.StatusOK)
			So(res.Header.Get("Content-Type"), ShouldContainSubstring, "application/json")

			var figure map[string]any
			So(json.NewDecoder(res.Body).Decode(&figure), ShouldBeNil)
			So(figure, ShouldContainKey, "data")
		})

		Convey("DELETE /api/maps/{id} removes the instance", func() {
			info := createTestMap(t, srv)
			req, err := http.NewRequest(http.MethodDelete, srv.URL+"/api/maps/"+info.ID, nil)
			So(err, ShouldBeNil)
			res, err := http.DefaultClient.Do(req)
			So(err, ShouldBeNil)
			defer res.Body.Close()
			So(res.StatusCode, ShouldEqual, http.StatusNoContent)

			res2, err := http.Get(srv.URL + "/api/maps/" + info.ID)
			So(err, ShouldBeNil)
			defer res2.Body.Close()
			So(res2.StatusCode, ShouldEqual, http.StatusNotFound)
		})

		Convey("unknown sub-resources return 404", func() {
			info := createTestMap(t, srv)
			res, err := http.Get(srv.URL + "/api/maps/" + info.ID + "/zoom")
			So(err, ShouldBeNil)
			defer res.Body.Close()
			So(res.StatusCode, ShouldEqual, http.StatusNotFound)
		})

		Convey("GET /api/maps is not a collection endpoint", func() {
			res, err := http.Get(srv.URL + "/api/maps")
			So(err, ShouldBeNil)
			defer res.Body.Close()
			So(res.StatusCode, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestOperationalEndpoints(t *testing.T) {
	Convey("Given an API server", t, func() {
		engine := newFakeEngine()
		srv := newTestServer(engine)
		defer srv.Close()

		Convey("GET /stats returns service statistics", func() {
			res, err := http.Get(srv.URL + "/stats")
			So(err, ShouldBeNil)
			defer res.Body.Close()
			So(res.StatusCode, ShouldEqual, http.StatusOK)

			var stats map[string]any
			So(json.NewDecoder(res.Body).Decode(&stats), ShouldBeNil)
			So(stats["started"], ShouldEqual, true)
		})

		Convey("GET /healthz serves Prometheus metrics", func() {
			res, err := http.Get(srv.URL + "/healthz")
			So(err, ShouldBeNil)
			defer res.Body.Close()
			So(res.StatusCode, ShouldEqual, http.StatusOK)
		})

		Convey("GET /dashboard serves the metrics dashboard", func() {
			res, err := http.Get(srv.URL + "/dashboard")
			So(err, ShouldBeNil)
			defer res.Body.Close()
			So(res.StatusCode, ShouldEqual, http.StatusOK)
			So(res.Header.Get("Content-Type"), ShouldContainSubstring, "text/html")
		})
	})
}
