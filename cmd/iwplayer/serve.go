package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"

	"github.com/iwplayer/shell/pkg/engine"
	"github.com/iwplayer/shell/pkg/input"
	"github.com/iwplayer/shell/pkg/launcher"

	"github.com/rs/zerolog/log"
)

func serveCommand(configs []string) error {
	ctx := context.Background()

	publisher := engine.NewPublisher()
	shell, err := setup(ctx, configs, publisher)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to start iwplayer, check the configuration files or IWPLAYER_ environment variables")
	}
	defer shell.Close()

	settings := shell.Config
	state := shell.Manager.State()
	log.Info().
		Str("tier", state.Tier().String()).
		Bool("custom", state.IsCustom()).
		Bool("complete", state.IsComplete()).
		Str("store", string(settings.Store.Type)).
		Msg("launcher ready")

	failures := shell.Manager.Failures()
	defer failures.Done()
	go func() {
		for failure := range failures.Recv() {
			log.Warn().Err(failure).Msg("uploaded files may not survive a restart")
		}
	}()

	ingress := input.NewIngress(
		settings.Input.Surface,
		settings.Input.Delay(),
		settings.Input.MessagesPerSecond,
	)

	errc := make(chan error, 1)
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/api/", launcher.NewAPI(shell.Launcher))
		mux.Handle("/loader/", NoStore(http.StripPrefix("/loader", publisher)))
		mux.Handle("/ws/input", ingress)

		errc <- http.ListenAndServe(
			fmt.Sprintf("0.0.0.0:%d", settings.Web.Port),
			mux,
		)
	}()

	log.Info().Int("port", settings.Web.Port).Msg("listening")

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt)

	select {
	case err := <-errc:
		log.Printf("failed to serve: %v", err)
	case sig := <-sigs:
		log.Printf("terminating: %v", sig)
	}

	return nil
}
