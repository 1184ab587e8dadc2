// Command edithistory runs a runtime level editor session with undo/redo
// history against the in-memory reference scene.
//
// Usage:
//
//	edithistory [flags] demo
//	edithistory [flags] save <name>
//	edithistory [flags] load <name>
//	edithistory [flags] list
//	edithistory [flags] delete <name>
//	edithistory [flags] script [file]
//	edithistory [flags] backups
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/runtimeeditor/history/internal/config"
	"github.com/runtimeeditor/history/internal/database"
)

// module defs - BuildDate can be set at build time via ldflags
var (
	CurrentVersion string = "0.0.1"
	BuildDate      string = "unknown"
)

const appName = "edithistory"

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := pflag.NewFlagSet(appName, pflag.ContinueOnError)
	fs.SetOutput(stderr)
	configDir := fs.String("config-dir", ".", "directory containing "+config.FileName)
	fs.String("log-level", "", "log level (debug, info, warn, error)")
	fs.String("logs-dir", "", "directory for log files and local database dumps")
	fs.String("storage", "", "storage backend (memory, sqlite, postgres, database)")
	fs.String("output-dir", "", "directory for memory backend save files")
	version := fs.Bool("version", false, "print version and exit")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *version {
		fmt.Fprintf(stdout, "%s %s (%s)\n", appName, CurrentVersion, BuildDate)
		return 0
	}

	if err := config.Load(*configDir); err != nil {
		fmt.Fprintf(stderr, "Failed to load config, using defaults: %v\n", err)
	}
	bindFlags(fs)

	rest := fs.Args()
	cmd := "demo"
	if len(rest) > 0 {
		cmd = strings.ToLower(rest[0])
		rest = rest[1:]
	}

	if cmd == "backups" {
		return listBackups(stdout, stderr)
	}

	ctx := context.Background()
	a, err := newApp(ctx, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to start: %v\n", err)
		return 1
	}
	defer a.Close()

	switch cmd {
	case "demo":
		err = a.runDemo(stdout)
	case "save":
		err = withName(rest, func(name string) error {
			if err := a.seedWorld(); err != nil {
				return err
			}
			if err := a.ctrl.Save(name); err != nil {
				return err
			}
			fmt.Fprintf(stdout, "saved %q\n", name)
			return nil
		})
	case "load":
		err = withName(rest, func(name string) error {
			if err := a.ctrl.Load(name); err != nil {
				return err
			}
			fmt.Fprintf(stdout, "loaded %q: %d tiles, %d objects\n", name, len(a.world.TileHandles()), len(a.world.ObjectHandles()))
			return nil
		})
	case "list":
		var names []string
		names, err = a.ctrl.List()
		for _, name := range names {
			fmt.Fprintln(stdout, name)
		}
	case "delete":
		err = withName(rest, a.backend.DeleteMap)
	case "script":
		in := stdin
		if len(rest) > 0 {
			f, openErr := os.Open(rest[0])
			if openErr != nil {
				err = openErr
				break
			}
			defer f.Close()
			in = f
		}
		if err = a.seedWorld(); err == nil {
			err = a.runScript(in, stdout)
		}
	default:
		err = fmt.Errorf("unknown command %q", cmd)
	}

	if err != nil {
		a.logger.Error("Command failed", "command", cmd, "error", err)
		fmt.Fprintf(stderr, "%s: %v\n", cmd, err)
		return 1
	}
	return 0
}

// bindFlags lets flags that were set explicitly override the config file.
func bindFlags(fs *pflag.FlagSet) {
	for flag, key := range map[string]string{
		"log-level":  "logLevel",
		"logs-dir":   "logsDir",
		"storage":    "storage.type",
		"output-dir": "storage.memory.outputDir",
	} {
		if f := fs.Lookup(flag); f != nil && f.Changed {
			_ = viper.BindPFlag(key, f)
		}
	}
}

func withName(args []string, fn func(string) error) error {
	if len(args) == 0 || args[0] == "" {
		return errors.New("missing map name")
	}
	return fn(args[0])
}

func listBackups(stdout, stderr io.Writer) int {
	paths, err := database.GetBackupDBPaths(config.GetString("logsDir"))
	if err != nil {
		fmt.Fprintf(stderr, "backups: %v\n", err)
		return 1
	}
	for _, p := range paths {
		fmt.Fprintln(stdout, p)
	}
	return 0
}

func printJSON(w io.Writer, label string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		fmt.Fprintf(w, "%s: %v\n", label, v)
		return
	}
	fmt.Fprintf(w, "%s: %s\n", label, data)
}
