package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/amimof/huego"
	"github.com/rs/zerolog/log"

	"lpd8806-bridge/internal/domain/model"
	"lpd8806-bridge/internal/domain/translator"
	"lpd8806-bridge/internal/ports"
)

const shutdownTimeout = 5 * time.Second

// Server emulates the subset of a Hue bridge v1 API that local voice assistants
// use, exposing the strip as a single extended color light.
type Server struct {
	light      ports.LightPort
	translator translator.Translator
	ip         string
	port       int
	lightID    string
	name       string
}

func NewServer(light ports.LightPort, ip string, port int, lightID, name string) *Server {
	return &Server{
		light:      light,
		translator: translator.NewLightStrategy(),
		ip:         ip,
		port:       port,
		lightID:    lightID,
		name:       name,
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/description.xml", s.handleDescription)
	mux.HandleFunc("/api", s.handleAPI)
	mux.HandleFunc("/api/", s.handleAPI)
	mux.HandleFunc("/admin/state", s.handleAdminState)
	mux.HandleFunc("/admin/refresh", s.handleAdminRefresh)
	return mux
}

// Run serves until ctx is done.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Handler()}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("Hue API server shutdown")
		}
	}()

	log.Info().Str("addr", addr).Msg("Hue API server listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleDescription(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/xml")
	fmt.Fprintf(w, `<?xml version="1.0" encoding="UTF-8" ?>
<root xmlns="urn:schemas-upnp-org:device-1-0">
<specVersion>
<major>1</major>
<minor>0</minor>
</specVersion>
<URLBase>http://%s:%d/</URLBase>
<device>
<deviceType>urn:schemas-upnp-org:device:Basic:1</deviceType>
<friendlyName>Philips hue (%s)</friendlyName>
<manufacturer>Royal Philips Electronics</manufacturer>
<manufacturerURL>http://www.philips.com</manufacturerURL>
<modelDescription>Philips hue Personal Wireless Lighting</modelDescription>
<modelName>Philips hue bridge 2012</modelName>
<modelNumber>929000226503</modelNumber>
<modelURL>http://www.meethue.com</modelURL>
<serialNumber>001788102201</serialNumber>
<UDN>uuid:2f402f80-da50-11e1-9b23-001788102201</UDN>
</device>
</root>`, s.ip, s.port, s.ip)
}

func (s *Server) handleAPI(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api")
	parts := strings.Split(strings.Trim(path, "/"), "/")

	if r.Method == http.MethodPost && (path == "" || path == "/") {
		s.handleRegister(w, r)
		return
	}

	if len(parts) < 1 || parts[0] == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	subPath := parts[1:]
	if len(subPath) == 0 {
		s.handleFullState(w, r)
		return
	}

	switch subPath[0] {
	case "lights":
		switch {
		case len(subPath) == 1:
			s.handleGetLights(w, r)
		case len(subPath) == 2:
			s.handleGetLight(w, r, subPath[1])
		case len(subPath) == 3 && subPath[2] == "state":
			s.handleSetLightState(w, r, subPath[1])
		default:
			http.NotFound(w, r)
		}
	case "groups":
		writeJSON(w, map[string]interface{}{})
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprint(w, `[{"success":{"username": "admin"}}]`)
}

func (s *Server) currentLight() *huego.Light {
	meta := s.translator.GetMetadata()
	return &huego.Light{
		Name:             s.name,
		Type:             meta.Type,
		State:            s.translator.ToHue(s.light.Current()),
		ModelID:          meta.ModelID,
		UniqueID:         s.lightID,
		ManufacturerName: meta.ManufacturerName,
	}
}

func (s *Server) handleFullState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]interface{}{
		"lights": map[string]*huego.Light{s.lightID: s.currentLight()},
		"groups": make(map[string]interface{}),
		"config": map[string]interface{}{
			"name":       "Philips hue",
			"swversion":  "01003542",
			"apiversion": "1.11.0",
			"mac":        "00:17:88:10:22:01",
			"bridgeid":   "001788FFFE102201",
			"modelid":    "BSB001",
			"ipaddress":  s.ip,
		},
	})
}

func (s *Server) handleGetLights(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]*huego.Light{s.lightID: s.currentLight()})
}

func (s *Server) handleGetLight(w http.ResponseWriter, r *http.Request, id string) {
	if id != s.lightID {
		http.Error(w, fmt.Sprintf("light %s not found", id), http.StatusNotFound)
		return
	}
	writeJSON(w, s.currentLight())
}

// fieldWait is one pending set started by a state PUT.
type fieldWait struct {
	key  string
	wait func(ctx context.Context) error
}

func await[T any](ctx context.Context, done <-chan model.Result[T]) error {
	select {
	case res := <-done:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Server) handleSetLightState(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPut {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if id != s.lightID {
		http.Error(w, fmt.Sprintf("light %s not found", id), http.StatusNotFound)
		return
	}

	var stateUpdate map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&stateUpdate); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	u := s.translator.FromHue(stateUpdate)

	var waits []fieldWait
	if u.On != nil {
		done := s.light.SetOn(ctx, *u.On)
		waits = append(waits, fieldWait{"on", func(ctx context.Context) error { return await(ctx, done) }})
	}
	if u.Hue != nil {
		done := s.light.SetHue(ctx, *u.Hue)
		waits = append(waits, fieldWait{"hue", func(ctx context.Context) error { return await(ctx, done) }})
	}
	if u.Saturation != nil {
		done := s.light.SetSaturation(ctx, *u.Saturation)
		waits = append(waits, fieldWait{"sat", func(ctx context.Context) error { return await(ctx, done) }})
	}
	if u.Brightness != nil {
		done := s.light.SetBrightness(ctx, *u.Brightness)
		waits = append(waits, fieldWait{"bri", func(ctx context.Context) error { return await(ctx, done) }})
	}

	resp := []map[string]interface{}{}
	for _, fw := range waits {
		address := fmt.Sprintf("/lights/%s/state/%s", id, fw.key)
		if err := fw.wait(ctx); err != nil {
			resp = append(resp, map[string]interface{}{
				"error": map[string]interface{}{
					"type":        901,
					"address":     address,
					"description": err.Error(),
				},
			})
			continue
		}
		resp = append(resp, map[string]interface{}{
			"success": map[string]interface{}{address: stateUpdate[fw.key]},
		})
	}

	writeJSON(w, resp)
}

type adminState struct {
	State       model.DeviceState `json:"state"`
	Unconfirmed []model.Field     `json:"unconfirmed"`
}

func (s *Server) handleAdminState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, adminState{State: s.light.Current(), Unconfirmed: nonNil(s.light.Unconfirmed())})
}

func (s *Server) handleAdminRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := s.light.Refresh(r.Context()); err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, adminState{State: s.light.Current(), Unconfirmed: nonNil(s.light.Unconfirmed())})
}

func nonNil(fields []model.Field) []model.Field {
	if fields == nil {
		return []model.Field{}
	}
	return fields
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("Failed to write response")
	}
}
