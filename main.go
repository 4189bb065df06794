package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	prom "github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/matt-g-everett/ledmotion/api"
	"github.com/matt-g-everett/ledmotion/playback"
	"github.com/matt-g-everett/ledmotion/player"
	"github.com/matt-g-everett/ledmotion/scene"
	"github.com/matt-g-everett/ledmotion/scenes"
	"github.com/matt-g-everett/ledmotion/stream"
	"github.com/matt-g-everett/ledmotion/util"
)

type app struct {
	Config   stream.Config
	Logger   util.Logger
	Client   mqtt.Client
	Streamer *stream.Streamer
	Manager  *playback.Manager
	Metrics  *player.Metrics
	Registry *prom.Registry

	ctx       context.Context
	presenter *player.Presenter
}

func newApp(ctx context.Context, configPath string) (*app, error) {
	a := new(app)
	a.ctx = ctx

	config, err := stream.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	a.Config = config
	a.Logger = util.NewDefaultLogger(config.Debug)

	a.Registry = prom.NewRegistry()
	if a.Metrics, err = player.NewMetrics("ledmotion", a.Registry); err != nil {
		return nil, err
	}

	a.Manager = playback.NewManager(config.Playback.FPS, a.Logger)
	a.Manager.OnSceneChanged(func(s scene.Scene) {
		a.Logger.Info("Scene", util.F("name", s.Name()))
	})
	a.Manager.OnSlideChanged(func(s *playback.Slide) {
		a.Logger.Info("Slide", util.F("id", s.ID), util.F("frame", s.Time))
	})

	show, err := scenes.Show(a.Manager, a.Logger, scenes.Options{
		Pixels: config.Pixels,
		Seed:   config.Seed,
		Timing: config.Playback.Timing,
	})
	if err != nil {
		return nil, err
	}
	if err := a.Manager.Setup(show); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *app) handleOnConnect(client mqtt.Client) {
	a.Logger.Info("Connected")
	if a.presenter == nil {
		return
	}
	if err := a.Streamer.Subscribe(a.ctx, a.handleControl); err != nil {
		a.Logger.Error("Failed to subscribe", util.F("error", err))
	}
}

func (a *app) handleControl(msg stream.ControlMessage) {
	if err := a.presenter.Handle(a.ctx, msg); err != nil {
		a.Logger.Error("Control command failed", util.F("type", msg.Type), util.F("error", err))
	}
}

func (a *app) setupClient() {
	options := mqtt.NewClientOptions().
		AddBroker(a.Config.Mqtt.URL).
		SetClientID(a.Config.Mqtt.ClientID).
		SetUsername(a.Config.Mqtt.Username).
		SetPassword(a.Config.Mqtt.Password).
		SetKeepAlive(30 * time.Second).
		SetPingTimeout(5 * time.Second).
		SetOnConnectHandler(a.handleOnConnect)
	a.Client = mqtt.NewClient(options)
	a.Streamer = stream.NewStreamer(a.Config, a.Client, a.Logger)
	a.Streamer.SetRetryPolicy(util.DefaultRetryPolicy())
}

func (a *app) connect() error {
	if token := a.Client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	return nil
}

func (a *app) options() player.Options {
	return player.Options{Pixels: a.Config.Pixels, Metrics: a.Metrics, Logger: a.Logger}
}

// serve runs the driver next to the HTTP api until the driver returns.
func (a *app) serve(run func(ctx context.Context) error, server *api.Api) error {
	g, ctx := errgroup.WithContext(a.ctx)
	ctx, cancel := context.WithCancel(ctx)
	g.Go(func() error {
		return server.Serve(ctx, a.Config.API.Listen)
	})
	g.Go(func() error {
		defer cancel()
		return run(ctx)
	})
	return g.Wait()
}

func (a *app) play() error {
	a.setupClient()
	if err := a.connect(); err != nil {
		return err
	}
	defer a.Client.Disconnect(250)

	p := player.NewPlayer(a.Manager, player.NewMQTTExporter(a.Streamer, a.Config.Pixels),
		player.SettingsFromConfig(a.Config.Playback), a.options())
	server := api.NewApi(p, nil, a.Registry, a.Logger)
	server.SetPlayback(p)
	return a.serve(p.Run, server)
}

func (a *app) present() error {
	a.setupClient()
	a.presenter = player.NewPresenter(a.Manager, player.NewMQTTExporter(a.Streamer, a.Config.Pixels), a.options())
	if err := a.connect(); err != nil {
		return err
	}
	defer a.Client.Disconnect(250)

	return a.serve(a.presenter.Run, api.NewApi(a.presenter, a.presenter, a.Registry, a.Logger))
}

func (a *app) render() error {
	exporter := player.NewPNGExporter(a.Config.Render.Output, a.Config.Render.Scale)
	r := player.NewRenderer(a.Manager, exporter, a.Config.Render.Workers, a.options())
	frames, err := r.Render(a.ctx, a.Config.Playback.Start, a.Config.Playback.End)
	if err != nil {
		return err
	}
	a.Logger.Info("Rendered", util.F("frames", frames), util.F("output", a.Config.Render.Output))

	if path := a.Config.Render.Timeline; path != "" {
		if err := a.Manager.WriteTimeline(path); err != nil {
			return fmt.Errorf("writing timeline: %w", err)
		}
	}
	return nil
}

func main() {
	// mqtt.DEBUG = log.New(os.Stdout, "", 0)
	mqtt.ERROR = log.New(os.Stdout, "", 0)

	// Parse command line parameters
	configPath := flag.String("config", "config.yaml", "YAML config file.")
	mode := flag.String("mode", "play", "One of play, render or present.")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, *configPath)
	if err != nil {
		log.Fatal(err)
	}

	switch *mode {
	case "play":
		err = a.play()
	case "render":
		err = a.render()
	case "present":
		err = a.present()
	default:
		err = fmt.Errorf("unknown mode %q", *mode)
	}
	a.Manager.Close()
	if err != nil {
		log.Fatal(err)
	}
}
