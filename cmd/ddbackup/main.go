package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"ddbackup/internal/app"
	"ddbackup/internal/config"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and creates an App. The caller must defer closeApp.
// operation identifies the CLI command being run (e.g. "sync", "add").
func newApp(operation string) (*app.App, error) {
	cfg, err := app.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	a, err := app.New(cfg, operation)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, nil
}

// closeApp closes a and reports a failed final save unless the command
// already failed.
func closeApp(a *app.App, err *error) {
	if cerr := a.Close(); cerr != nil && *err == nil {
		*err = fmt.Errorf("saving state: %w", cerr)
	}
}

func parseIndex(arg string) (int, error) {
	i, err := strconv.Atoi(arg)
	if err != nil || i < 0 {
		return 0, fmt.Errorf("invalid file index %q", arg)
	}
	return i, nil
}

func stdoutIsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

var rootCmd = &cobra.Command{
	Use:          "ddbackup",
	Short:        "Keep timestamped backups of tracked files",
	SilenceUsage: true,
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(defaults["base_dir"])
		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Base Dir:   %s\n", cfg.BaseDir)
		fmt.Printf("State File: %s\n", cfg.StatePath)
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.Load(defaults["config_path"], defaults["base_dir"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		printConfig(os.Stdout, cfg)
		return nil
	},
}

// open command
var openCmd = &cobra.Command{
	Use:   "open DIR",
	Short: "Make DIR the current directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		a, err := newApp("open")
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		if err := a.ChangeCurrentDirectory(args[0]); err != nil {
			return err
		}

		d, ok := a.Current()
		if !ok {
			fmt.Printf("%s is not a directory; nothing is tracked there\n", a.CurrentDirectory())
			return nil
		}
		printStatus(os.Stdout, d, stdoutIsTerminal())
		return nil
	},
}

// backup-dir command
var backupDirCmd = &cobra.Command{
	Use:   "backup-dir DIR",
	Short: "Set the backup directory of the current directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		a, err := newApp("backup-dir")
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		if err := a.SetBackupDirectory(args[0]); err != nil {
			return err
		}

		d, _ := a.Current()
		printStatus(os.Stdout, d, stdoutIsTerminal())
		return nil
	},
}

// add command
var addCmd = &cobra.Command{
	Use:   "add FILE...",
	Short: "Track files",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		a, err := newApp("add")
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		var failed int
		for _, path := range args {
			if err := a.AddFile(path); err != nil {
				fmt.Fprintf(os.Stderr, "skipping %s: %v\n", path, err)
				failed++
				continue
			}
		}

		fmt.Printf("Added %d file(s)\n", len(args)-failed)
		if failed > 0 {
			return fmt.Errorf("%d file(s) not added", failed)
		}
		return nil
	},
}

// export command
var exportCmd = &cobra.Command{
	Use:   "export INDEX [PATH]",
	Short: "Set or clear the export path of a file",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		i, err := parseIndex(args[0])
		if err != nil {
			return err
		}
		var path string
		if len(args) == 2 {
			path = args[1]
		}

		a, err := newApp("export")
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		if err := a.SetExportPath(i, path); err != nil {
			return err
		}

		d, _ := a.Current()
		f := d.Files[i]
		switch {
		case f.ExportPath == "":
			fmt.Printf("Export cleared for %s\n", f.Name)
		case f.ExportValid:
			fmt.Printf("%s exports to %s\n", f.Name, f.ExportPath)
		default:
			fmt.Printf("%s exports to %s (invalid: parent directory does not exist)\n", f.Name, f.ExportPath)
		}
		return nil
	},
}

// remove command
var removeCmd = &cobra.Command{
	Use:   "remove INDEX",
	Short: "Stop tracking a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		confirm, _ := cmd.Flags().GetBool("confirm")
		i, err := parseIndex(args[0])
		if err != nil {
			return err
		}

		a, err := newApp("remove")
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		if err := a.SetRemoveAllowed(i, confirm); err != nil {
			return err
		}

		d, _ := a.Current()
		name := d.Files[i].Name
		if err := a.RemoveFile(i); err != nil {
			if errors.Is(err, app.ErrRemoveNotAllowed) {
				return fmt.Errorf("%w (pass --confirm)", err)
			}
			return err
		}

		fmt.Printf("No longer tracking %s\n", name)
		return nil
	},
}

// sync command
var syncCmd = &cobra.Command{
	Use:   "sync [INDEX]",
	Short: "Copy files to their backup and export destinations",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		all, _ := cmd.Flags().GetBool("all")
		if all == (len(args) == 1) {
			return fmt.Errorf("give either INDEX or --all")
		}

		a, err := newApp("sync")
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		if !all {
			i, err := parseIndex(args[0])
			if err != nil {
				return err
			}
			res, err := a.SyncFile(i)
			if err != nil {
				return err
			}
			printSyncResult(os.Stdout, res)
			return syncFailures(res)
		}

		results, err := a.SyncAll()
		if err != nil {
			return err
		}
		if len(results) == 0 {
			fmt.Println("No files tracked in the current directory.")
			return nil
		}
		for _, res := range results {
			printSyncResult(os.Stdout, res)
		}
		return syncFailures(results...)
	},
}

// status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "View the current directory",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		a, err := newApp("status")
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		d, ok := a.Current()
		if !ok {
			if a.CurrentDirectory() == "" {
				fmt.Println("No current directory. Use 'ddbackup open DIR' or 'ddbackup add FILE'.")
			} else {
				fmt.Printf("Current directory %s is not tracked.\n", a.CurrentDirectory())
			}
			return nil
		}
		printStatus(os.Stdout, d, stdoutIsTerminal())
		return nil
	},
}

// dirs command
var dirsCmd = &cobra.Command{
	Use:   "dirs",
	Short: "List tracked directories",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		a, err := newApp("dirs")
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		dirs := a.Directories()
		if len(dirs) == 0 {
			fmt.Println("No directories tracked.")
			return nil
		}
		printDirectories(os.Stdout, dirs, a.CurrentDirectory())
		return nil
	},
}

// history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View sync history",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp("history")
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		entries, err := a.History(limit)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println("No syncs recorded.")
			return nil
		}
		printEntries(os.Stdout, entries, time.Now(), true)
		return nil
	},
}

// log command
var logCmd = &cobra.Command{
	Use:   "log INDEX",
	Short: "View sync history of a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		limit, _ := cmd.Flags().GetInt("limit")
		i, err := parseIndex(args[0])
		if err != nil {
			return err
		}

		a, err := newApp("log")
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		entries, err := a.FileHistory(i, limit)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println("No sync history.")
			return nil
		}
		printEntries(os.Stdout, entries, time.Now(), false)
		return nil
	},
}

func init() {
	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(openCmd)
	rootCmd.AddCommand(backupDirCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(removeCmd)
	removeCmd.Flags().Bool("confirm", false, "Confirm removal")
	rootCmd.AddCommand(syncCmd)
	syncCmd.Flags().BoolP("all", "a", false, "Sync every file in the current directory")
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(dirsCmd)
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntP("limit", "n", 50, "Maximum number of syncs to show")
	rootCmd.AddCommand(logCmd)
	logCmd.Flags().IntP("limit", "n", 20, "Maximum number of syncs to show")
}
