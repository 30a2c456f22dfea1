package main

import (
	"fmt"
	"os"
	"time"

	"github.com/iwplayer/shell/pkg/config"
	"github.com/iwplayer/shell/pkg/version"

	"github.com/alecthomas/kong"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var CLI struct {
	Version bool     `help:"Print version information and exit." short:"v"`
	Debug   bool     `help:"Whether to enable debug logging."`
	Configs []string `help:"Configuration files to use for commands other than serve." name:"config-file" short:"c" type:"file"`

	Serve struct {
		Configs []string `arg:"" optional:"" name:"configs" help:"Configuration files for the launcher." type:"file"`
	} `cmd:"" help:"Restore uploaded files and serve the launcher API, game data and input bridge."`

	Upload struct {
		Files []string `arg:"" name:"files" help:"Game data files to upload, e.g. VSWAP.WL6." type:"existingfile"`
	} `cmd:"" help:"Add game data files to the stored set."`

	Status struct {
		Yaml bool   `help:"Print the status as YAML."`
		Tier string `help:"Fail unless the stored files are of this tier (shareware, episode-3, full, or 1, 3, 6)."`
	} `cmd:"" help:"Show which game data files are stored."`

	Reset struct {
		Yes bool `help:"Confirm that every uploaded file should be forgotten."`
	} `cmd:"" help:"Forget every uploaded file."`

	Stage struct {
		Dir string `arg:"" optional:"" name:"dir" help:"Directory to write the game data to. Defaults to engine.output." type:"path"`
	} `cmd:"" help:"Write a complete set of game data to a directory."`

	Keys struct {
		Keys    []string `arg:"" optional:"" name:"keys" help:"Toolkit key names to press and release in one frame, e.g. Up Space."`
		Control bool     `help:"Also tap Control the way the page reports it."`
	} `cmd:"" help:"Print the keyboard events the input bridge dispatches to the engine surface."`

	Config struct {
	} `cmd:"" help:"Write the default configuration to standard output."`
}

func writeError(err error) {
	fmt.Fprintf(os.Stderr, "%s\n", err)
	os.Exit(1)
}

func main() {
	consoleWriter := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log.Logger = log.Output(consoleWriter)

	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	if len(os.Args) == 1 {
		err := serveCommand([]string{})
		if err != nil {
			writeError(err)
		}
		return
	}

	ctx := kong.Parse(&CLI,
		kong.Name("iwplayer"),
		kong.Description("a launcher for Wolfenstein 3-D engine ports"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
			Summary: true,
		}))

	if CLI.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		log.Warn().Msg("debug logging enabled")
	}

	if CLI.Version {
		fmt.Printf(
			"iwplayer %s (commit %s)\n",
			version.Version,
			version.GitCommit,
		)
		fmt.Printf(
			"built %s\n",
			version.BuildTime,
		)
		os.Exit(0)
	}

	var err error
	switch ctx.Command() {
	case "serve":
		fallthrough
	case "serve <configs>":
		err = serveCommand(CLI.Serve.Configs)
	case "upload <files>":
		err = uploadCommand(CLI.Configs, CLI.Upload.Files)
	case "status":
		err = statusCommand(CLI.Configs, CLI.Status.Yaml, CLI.Status.Tier)
	case "reset":
		err = resetCommand(CLI.Configs, CLI.Reset.Yes)
	case "stage":
		fallthrough
	case "stage <dir>":
		err = stageCommand(CLI.Configs, CLI.Stage.Dir)
	case "keys":
		fallthrough
	case "keys <keys>":
		err = keysCommand(CLI.Configs, CLI.Keys.Keys, CLI.Keys.Control)
	case "config":
		os.Stdout.Write(config.DEFAULT)
	}

	if err != nil {
		writeError(err)
	}
}
