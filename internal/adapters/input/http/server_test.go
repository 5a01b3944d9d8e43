package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/amimof/huego"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lpd8806-bridge/internal/domain/model"
)

// fakeLight is a LightPort answering every set immediately.
type fakeLight struct {
	mu          sync.Mutex
	state       model.DeviceState
	setErr      error
	refreshErr  error
	unconfirmed []model.Field
	reads       int
	sets        []model.Field
}

func done[T any](v T, err error) <-chan model.Result[T] {
	ch := make(chan model.Result[T], 1)
	ch <- model.Result[T]{Value: v, Err: err}
	close(ch)
	return ch
}

func (f *fakeLight) Current() model.DeviceState {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	return f.state
}

func (f *fakeLight) On() bool            { return f.Current().On }
func (f *fakeLight) Hue() float64        { return f.Current().Hue }
func (f *fakeLight) Saturation() float64 { return f.Current().Saturation }
func (f *fakeLight) Brightness() float64 { return f.Current().Brightness }

func (f *fakeLight) record(field model.Field, apply func(*model.DeviceState)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	apply(&f.state)
	f.sets = append(f.sets, field)
	return f.setErr
}

func (f *fakeLight) SetOn(ctx context.Context, on bool) <-chan model.Result[bool] {
	return done(on, f.record(model.FieldOn, func(st *model.DeviceState) { st.On = on }))
}

func (f *fakeLight) SetHue(ctx context.Context, hue float64) <-chan model.Result[float64] {
	return done(hue, f.record(model.FieldHue, func(st *model.DeviceState) { st.Hue = hue }))
}

func (f *fakeLight) SetSaturation(ctx context.Context, saturation float64) <-chan model.Result[float64] {
	return done(saturation, f.record(model.FieldSaturation, func(st *model.DeviceState) { st.Saturation = saturation }))
}

func (f *fakeLight) SetBrightness(ctx context.Context, brightness float64) <-chan model.Result[float64] {
	return done(brightness, f.record(model.FieldBrightness, func(st *model.DeviceState) { st.Brightness = brightness }))
}

func (f *fakeLight) Refresh(ctx context.Context) error { return f.refreshErr }

func (f *fakeLight) Subscribe(fn func(model.DeviceState)) func() { return func() {} }

func (f *fakeLight) Unconfirmed() []model.Field { return f.unconfirmed }

func newTestServer(light *fakeLight) *httptest.Server {
	return httptest.NewServer(NewServer(light, "10.0.0.2", 80, "1", "Desk Strip").Handler())
}

func TestServer_Register(t *testing.T) {
	srv := newTestServer(&fakeLight{})
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api", "application/json", strings.NewReader(`{"devicetype":"echo"}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	var body []map[string]map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "admin", body[0]["success"]["username"])
}

func TestServer_GetLight(t *testing.T) {
	light := &fakeLight{state: model.DeviceState{On: true, Hue: 120, Saturation: 50, Brightness: 100}}
	srv := newTestServer(light)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/admin/lights/1")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var l huego.Light
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&l))
	assert.Equal(t, "Desk Strip", l.Name)
	assert.Equal(t, "Extended color light", l.Type)
	require.NotNil(t, l.State)
	assert.True(t, l.State.On)
	assert.Equal(t, uint8(254), l.State.Bri)
	assert.Equal(t, uint16(21845), l.State.Hue)
	assert.Equal(t, uint8(127), l.State.Sat)
	assert.Equal(t, 1, light.reads)
}

func TestServer_GetLights(t *testing.T) {
	srv := newTestServer(&fakeLight{})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/admin/lights")
	require.NoError(t, err)
	defer resp.Body.Close()

	var lights map[string]huego.Light
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&lights))
	assert.Len(t, lights, 1)
	assert.Contains(t, lights, "1")
}

func TestServer_UnknownLight(t *testing.T) {
	srv := newTestServer(&fakeLight{})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/admin/lights/7")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_FullState(t *testing.T) {
	srv := newTestServer(&fakeLight{})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/admin")
	require.NoError(t, err)
	defer resp.Body.Close()

	var state map[string]json.RawMessage
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&state))
	assert.Contains(t, state, "lights")
	assert.Contains(t, state, "config")
}

func putState(t *testing.T, url, body string) []map[string]map[string]interface{} {
	t.Helper()
	req, err := http.NewRequest(http.MethodPut, url, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out []map[string]map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestServer_SetLightState(t *testing.T) {
	light := &fakeLight{}
	srv := newTestServer(light)
	defer srv.Close()

	out := putState(t, srv.URL+"/api/admin/lights/1/state", `{"on":true,"bri":127}`)

	require.Len(t, out, 2)
	assert.Equal(t, true, out[0]["success"]["/lights/1/state/on"])
	assert.Equal(t, 127.0, out[1]["success"]["/lights/1/state/bri"])

	assert.Equal(t, []model.Field{model.FieldOn, model.FieldBrightness}, light.sets)
	assert.True(t, light.state.On)
	assert.Equal(t, 50.0, light.state.Brightness)
}

func TestServer_SetLightStateFailure(t *testing.T) {
	light := &fakeLight{setErr: errors.New("device unreachable")}
	srv := newTestServer(light)
	defer srv.Close()

	out := putState(t, srv.URL+"/api/admin/lights/1/state", `{"hue":0,"sat":254}`)

	require.Len(t, out, 2)
	assert.Equal(t, "/lights/1/state/hue", out[0]["error"]["address"])
	assert.Equal(t, "device unreachable", out[0]["error"]["description"])
	assert.Equal(t, "/lights/1/state/sat", out[1]["error"]["address"])
}

func TestServer_SetLightStateMethod(t *testing.T) {
	srv := newTestServer(&fakeLight{})
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/admin/lights/1/state", "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestServer_AdminState(t *testing.T) {
	light := &fakeLight{
		state:       model.DeviceState{Hue: 42},
		unconfirmed: []model.Field{model.FieldHue},
	}
	srv := newTestServer(light)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/admin/state")
	require.NoError(t, err)
	defer resp.Body.Close()

	var st adminState
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&st))
	assert.Equal(t, 42.0, st.State.Hue)
	assert.Equal(t, []model.Field{model.FieldHue}, st.Unconfirmed)
}

func TestServer_AdminRefresh(t *testing.T) {
	light := &fakeLight{refreshErr: errors.New("device unreachable")}
	srv := newTestServer(light)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/admin/refresh", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)

	light.refreshErr = nil
	resp, err = http.Post(srv.URL+"/admin/refresh", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServer_Description(t *testing.T) {
	srv := newTestServer(&fakeLight{})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/description.xml")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/xml", resp.Header.Get("Content-Type"))
}
