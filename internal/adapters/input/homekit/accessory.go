package homekit

import (
	"context"
	"math"

	"github.com/brutella/hc"
	"github.com/brutella/hc/accessory"
	"github.com/brutella/hc/characteristic"
	"github.com/brutella/hc/service"
	"github.com/rs/zerolog/log"

	"lpd8806-bridge/internal/domain/model"
	"lpd8806-bridge/internal/ports"
)

type lightbulbService struct {
	*service.Service

	On         *characteristic.On
	Brightness *characteristic.Brightness
	Hue        *characteristic.Hue
	Saturation *characteristic.Saturation
}

func newLightbulbService() *lightbulbService {
	svc := lightbulbService{}
	svc.Service = service.New(service.TypeLightbulb)

	svc.On = characteristic.NewOn()
	svc.AddCharacteristic(svc.On.Characteristic)

	svc.Brightness = characteristic.NewBrightness()
	svc.AddCharacteristic(svc.Brightness.Characteristic)

	svc.Hue = characteristic.NewHue()
	svc.AddCharacteristic(svc.Hue.Characteristic)

	svc.Saturation = characteristic.NewSaturation()
	svc.AddCharacteristic(svc.Saturation.Characteristic)

	return &svc
}

// Accessory exposes the strip as a HomeKit lightbulb. Reads from the hub are
// answered by the LightPort getters, writes go to its setters, and every state
// published by the LightPort is pushed back to the characteristics.
type Accessory struct {
	*accessory.Accessory
	Lightbulb *lightbulbService

	light       ports.LightPort
	unsubscribe func()
}

func NewAccessory(light ports.LightPort, cfg model.HomeKitConfig) *Accessory {
	info := accessory.Info{
		Name:         cfg.Name,
		Manufacturer: cfg.Manufacturer,
		Model:        cfg.Model,
		SerialNumber: cfg.SerialNumber,
	}

	acc := Accessory{light: light}
	acc.Accessory = accessory.New(info, accessory.TypeLightbulb)
	acc.Lightbulb = newLightbulbService()
	acc.AddService(acc.Lightbulb.Service)

	lb := acc.Lightbulb
	lb.On.OnValueRemoteGet(acc.getOn)
	lb.On.OnValueRemoteUpdate(acc.setOn)
	lb.Brightness.OnValueRemoteGet(acc.getBrightness)
	lb.Brightness.OnValueRemoteUpdate(acc.setBrightness)
	lb.Hue.OnValueRemoteGet(acc.getHue)
	lb.Hue.OnValueRemoteUpdate(acc.setHue)
	lb.Saturation.OnValueRemoteGet(acc.getSaturation)
	lb.Saturation.OnValueRemoteUpdate(acc.setSaturation)

	acc.unsubscribe = light.Subscribe(acc.publish)

	return &acc
}

// Run serves the accessory over HAP until ctx is done.
func (a *Accessory) Run(ctx context.Context, cfg model.HomeKitConfig) error {
	t, err := hc.NewIPTransport(hc.Config{Pin: cfg.Pin, StoragePath: cfg.StoragePath}, a.Accessory)
	if err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		<-t.Stop()
	}()

	log.Info().Str("name", cfg.Name).Msg("HomeKit accessory published")
	t.Start()
	return nil
}

// Close stops pushing state to the characteristics.
func (a *Accessory) Close() {
	if a.unsubscribe != nil {
		a.unsubscribe()
	}
}

func (a *Accessory) publish(st model.DeviceState) {
	a.Lightbulb.On.SetValue(st.On)
	a.Lightbulb.Brightness.SetValue(int(math.Round(st.Brightness)))
	a.Lightbulb.Hue.SetValue(st.Hue)
	a.Lightbulb.Saturation.SetValue(st.Saturation)
}

// Getters store the value they answer with locally first. hc compares the
// returned value against the characteristic and would otherwise treat a
// difference as a remote write.

func (a *Accessory) getOn() bool {
	on := a.light.On()
	a.Lightbulb.On.SetValue(on)
	return on
}

func (a *Accessory) getBrightness() int {
	brightness := int(math.Round(a.light.Brightness()))
	a.Lightbulb.Brightness.SetValue(brightness)
	return brightness
}

func (a *Accessory) getHue() float64 {
	hue := a.light.Hue()
	a.Lightbulb.Hue.SetValue(hue)
	return hue
}

func (a *Accessory) getSaturation() float64 {
	saturation := a.light.Saturation()
	a.Lightbulb.Saturation.SetValue(saturation)
	return saturation
}

// HAP update callbacks cannot fail, so outcomes are only logged.

func (a *Accessory) setOn(on bool) {
	report(model.FieldOn, a.light.SetOn(context.Background(), on))
}

func (a *Accessory) setBrightness(brightness int) {
	report(model.FieldBrightness, a.light.SetBrightness(context.Background(), float64(brightness)))
}

func (a *Accessory) setHue(hue float64) {
	report(model.FieldHue, a.light.SetHue(context.Background(), hue))
}

func (a *Accessory) setSaturation(saturation float64) {
	report(model.FieldSaturation, a.light.SetSaturation(context.Background(), saturation))
}

func report[T any](field model.Field, done <-chan model.Result[T]) {
	go func() {
		res := <-done
		if res.Err != nil {
			log.Warn().Err(res.Err).Str("field", string(field)).Msg("HomeKit update not applied by device")
			return
		}
		log.Debug().Str("field", string(field)).Interface("value", res.Value).Msg("HomeKit update applied")
	}()
}
