package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/outofforest/eelog/config"
	"github.com/outofforest/eelog/console"
	"github.com/outofforest/eelog/journal"
	"github.com/outofforest/eelog/machine"
	"github.com/outofforest/eelog/medium"
	"github.com/outofforest/eelog/pkg/filedev"
	"github.com/outofforest/eelog/pkg/logger"
	"github.com/outofforest/eelog/slot"
)

const (
	flagConfig    = "config"
	flagDevice    = "device"
	flagLogLevel  = "log-level"
	flagLogFormat = "log-format"
)

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "eelog",
		Short:        "Append-only log stored in EEPROM image",
		Long:         "eelog keeps short text entries in fixed-size checksummed slots of a 2 KiB EEPROM image.",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().String(flagConfig, os.Getenv("EELOG_CONFIG"), "Path to YAML config file")
	rootCmd.PersistentFlags().String(flagDevice, "", "Path to EEPROM image, created if it does not exist")
	rootCmd.PersistentFlags().String(flagLogLevel, "", "Log level: debug|info|warn|error")
	rootCmd.PersistentFlags().String(flagLogFormat, "", "Log format: text|json")

	rootCmd.AddCommand(
		newRunCommand(),
		newAppendCommand(),
		newReadCommand(),
		newEraseCommand(),
		newInspectCommand(),
	)
	return rootCmd
}

func newRunCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Scan the log on boot and accept erase/write/read commands interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			in := cmd.InOrStdin()
			out := cmd.OutOrStdout()
			logOut := cmd.ErrOrStderr()

			if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
				state, err := term.MakeRaw(int(f.Fd()))
				if err != nil {
					return errors.WithStack(err)
				}
				defer func() {
					_ = term.Restore(int(f.Fd()), state)
				}()
				out = console.NewCRLFWriter(out)
				logOut = console.NewCRLFWriter(logOut)
			}

			a, err := openApp(cmd, logOut)
			if err != nil {
				return err
			}
			defer a.Close()

			stepDelay, err := a.cfg.StepDelay()
			if err != nil {
				return err
			}

			m := machine.New(a.j, console.NewLineReader(in, out, console.DefaultMaxLen), out,
				machine.WithLogger(a.log.With("component", "machine")),
				machine.WithStepDelay(stepDelay),
			)
			if err := m.Run(cmd.Context()); err != nil && cmd.Context().Err() == nil {
				return err
			}
			return nil
		},
	}
}

func newAppendCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "append <text>...",
		Short: "Recover the cursor and append one entry",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			outcome, err := a.j.BootScan()
			if err != nil {
				return err
			}
			if outcome.Kind == journal.Full {
				return errors.Errorf("log is full, run %q first", "eelog erase")
			}

			offset, err := a.j.Append(strings.Join(args, " "))
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Entry written. Memory address: 0X%02X\n", uint32(offset))
			return errors.WithStack(err)
		},
	}
}

func newReadCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "read",
		Short: "Print every valid entry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			entries, err := a.j.Entries().All()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, e := range entries {
				if _, err := fmt.Fprintln(out, machine.FormatEntry(e)); err != nil {
					return errors.WithStack(err)
				}
			}
			_, err = fmt.Fprintln(out, machine.MsgNoEntries)
			return errors.WithStack(err)
		},
	}
}

func newEraseCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "erase",
		Short: "Invalidate every slot, creating the image if needed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.j.EraseAll(); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Erased %d slots.\n", slot.Slots)
			return errors.WithStack(err)
		},
	}
}

func newInspectCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect",
		Short: "Print the state of every slot, including entries hidden behind invalid slots",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			report, err := a.j.Inspect()
			if err != nil {
				return err
			}
			return printReport(cmd.OutOrStdout(), report)
		},
	}
}

func printReport(w io.Writer, report journal.Report) error {
	for _, s := range report.Slots {
		state := "invalid"
		switch {
		case s.Trusted:
			state = "valid"
		case s.Valid:
			state = "orphan"
		}
		if _, err := fmt.Fprintf(w, "0X%04X %-7s %s\n", uint32(s.Offset), state, s.Payload); err != nil {
			return errors.WithStack(err)
		}
	}
	_, err := fmt.Fprintf(w, "orphans: %d\nfingerprint: %016x\n", len(report.Orphans()), report.Fingerprint)
	return errors.WithStack(err)
}

type app struct {
	cfg config.Config
	log *slog.Logger
	dev *filedev.FileDev
	j   *journal.Journal
}

func openApp(cmd *cobra.Command, logOut io.Writer) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	log, err := logger.NewWithWriter(logOut, cfg.Log)
	if err != nil {
		return nil, err
	}

	retryDelay, err := cfg.RetryDelay()
	if err != nil {
		return nil, err
	}

	dev, err := filedev.Open(cfg.Device.Path, slot.Capacity)
	if err != nil {
		return nil, err
	}

	ch, err := medium.New(dev,
		medium.WithAttempts(cfg.Channel.Attempts),
		medium.WithRetryDelay(retryDelay),
		medium.WithLogger(log.With("component", "medium")),
	)
	if err != nil {
		_ = dev.Close()
		return nil, err
	}

	log.Debug("device opened", "path", cfg.Device.Path, "size", dev.Size())
	return &app{
		cfg: cfg,
		log: log,
		dev: dev,
		j:   journal.New(ch, log.With("component", "journal")),
	}, nil
}

func (a *app) Close() {
	if err := a.dev.Close(); err != nil {
		a.log.Error("closing device failed", "error", err)
	}
}

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	flags := cmd.Flags()
	path, _ := flags.GetString(flagConfig)

	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}
	config.FromEnv(&cfg)

	if v, _ := flags.GetString(flagDevice); v != "" {
		cfg.Device.Path = v
	}
	if v, _ := flags.GetString(flagLogLevel); v != "" {
		cfg.Log.Level = v
	}
	if v, _ := flags.GetString(flagLogFormat); v != "" {
		cfg.Log.Format = v
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}
