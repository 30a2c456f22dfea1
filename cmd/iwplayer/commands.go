package main

import (
	"context"
	"fmt"
	"os"

	"github.com/iwplayer/shell/pkg/assets"
	"github.com/iwplayer/shell/pkg/engine"
	"github.com/iwplayer/shell/pkg/launcher"

	"gopkg.in/yaml.v3"
)

// persist waits for the store to catch up and fails if any write did not
// make it.
func persist(shell *Shell, failures <-chan assets.Failure) error {
	shell.Manager.Flush()

	select {
	case failure := <-failures:
		return failure
	default:
		return nil
	}
}

func uploadCommand(configs []string, files []string) error {
	ctx := context.Background()
	shell, err := setup(ctx, configs, engine.NewPublisher())
	if err != nil {
		return err
	}
	defer shell.Close()

	failures := shell.Manager.Failures()
	defer failures.Done()

	state, err := shell.Launcher.Upload(ctx, assets.PathPicker(files))
	if err != nil {
		return err
	}

	err = persist(shell, failures.Recv())
	if err != nil {
		return err
	}

	if !state.IsCustom() {
		return fmt.Errorf("none of the files are game data")
	}

	printStatus(shell.Launcher.Status())
	return nil
}

func printStatus(status launcher.Status) {
	fmt.Printf("tier: %s\n", status.Tier)
	if !status.Custom {
		fmt.Println("no uploaded files, playing the shareware episode")
		return
	}

	for _, file := range status.Files {
		if !file.Present {
			fmt.Printf("  %-14s missing\n", file.Name)
			continue
		}
		fmt.Printf("  %-14s %9d %s\n", file.Name, file.Size, file.Checksum)
	}

	if status.Complete {
		fmt.Println("complete")
	} else {
		fmt.Println("incomplete, missing files will come from the shareware episode")
	}
}

func statusCommand(configs []string, asYaml bool, tier string) error {
	var want assets.Tier
	if tier != "" {
		parsed, err := assets.ParseTier(tier)
		if err != nil {
			return err
		}
		want = parsed
	}

	shell, err := setup(context.Background(), configs, engine.NewPublisher())
	if err != nil {
		return err
	}
	defer shell.Close()

	status := shell.Launcher.Status()
	if asYaml {
		encoder := yaml.NewEncoder(os.Stdout)
		encoder.SetIndent(2)
		err = encoder.Encode(status)
		encoder.Close()
		if err != nil {
			return err
		}
	} else {
		printStatus(status)
	}

	if want != 0 && want.String() != status.Tier {
		return fmt.Errorf("stored files are %s, not %s", status.Tier, want)
	}

	return nil
}

func resetCommand(configs []string, yes bool) error {
	if !yes {
		return fmt.Errorf("refusing to forget uploaded files without --yes")
	}

	ctx := context.Background()
	shell, err := setup(ctx, configs, engine.NewPublisher())
	if err != nil {
		return err
	}
	defer shell.Close()

	failures := shell.Manager.Failures()
	defer failures.Done()

	shell.Launcher.RequestReset()
	err = shell.Launcher.ConfirmReset(ctx)
	if err != nil {
		return err
	}

	return persist(shell, failures.Recv())
}

func stageCommand(configs []string, dir string) error {
	ctx := context.Background()
	exporter := &engine.Exporter{}
	shell, err := setup(ctx, configs, exporter)
	if err != nil {
		return err
	}
	defer shell.Close()

	if dir == "" {
		dir = shell.Config.Engine.Output
	}
	if dir == "" {
		return fmt.Errorf("no output directory given and engine.output is not set")
	}
	exporter.Directory = dir

	return shell.Launcher.Play(ctx)
}
