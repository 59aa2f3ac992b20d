package main

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gitlab.com/gomidi/midi/v2"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
)

var (
	configPath string
	logLevel   string
	cfg        *Config
)

var rootCmd = &cobra.Command{
	Use:   "ewimcp",
	Short: "Edit, store and transfer EWI USB configurations",
	Long: `ewimcp reads and writes the EWI USB's SysEx configuration, as .syx files,
as JSON/TOML presets, over USB MIDI or a serial MIDI link, and as an MCP tool server.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := LoadConfig(configPath)
		if err != nil {
			return err
		}
		if logLevel != "" {
			c.Log.Level = logLevel
		}
		cfg = c
		initLogger(cfg.Log)
		return nil
	},
}

var (
	defaultsOut  string
	setOut       string
	importOut    string
	receiveOut   string
	presetFormat string
	basePath     string
)

var defaultsCmd = &cobra.Command{
	Use:   "defaults",
	Short: "Write the factory default configuration as a .syx file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return SaveSysExFile(defaultsOut, NewTable())
	},
}

var showCmd = &cobra.Command{
	Use:   "show FILE",
	Short: "Print the configuration stored in a .syx file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := loadTable(args[0])
		if err != nil {
			return err
		}
		return printTable(cmd, t)
	},
}

var setCmd = &cobra.Command{
	Use:   "set FILE NAME=VALUE...",
	Short: "Change parameters in a .syx file",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := loadTable(args[0])
		if err != nil {
			return err
		}
		for _, arg := range args[1:] {
			if err := applyAssignment(t, arg); err != nil {
				return err
			}
		}
		dst := setOut
		if dst == "" {
			dst = args[0]
		}
		return SaveSysExFile(dst, t)
	},
}

var exportCmd = &cobra.Command{
	Use:   "export FILE",
	Short: "Print a .syx file as a JSON or TOML preset",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := ParsePresetFormat(presetFormat)
		if err != nil {
			return err
		}
		t, err := loadTable(args[0])
		if err != nil {
			return err
		}
		return ExportPreset(cmd.OutOrStdout(), t, format)
	},
}

var importCmd = &cobra.Command{
	Use:   "import PRESET",
	Short: "Convert a JSON or TOML preset to a .syx file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := ParsePresetFormat(presetFormat)
		if err != nil {
			return err
		}
		t, err := loadTable(basePath)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("%w: %w", ErrIO, err)
		}
		if err := ImportPreset(bytes.NewReader(data), t, format); err != nil {
			return err
		}
		return SaveSysExFile(importOut, t)
	},
}

var sendCmd = &cobra.Command{
	Use:   "send FILE",
	Short: "Send a .syx configuration to the instrument",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := loadTable(args[0])
		if err != nil {
			return err
		}
		link, closer, err := openLink(cfg)
		if err != nil {
			return err
		}
		defer closer()
		return link.SendConfig(t)
	},
}

var receiveCmd = &cobra.Command{
	Use:   "receive",
	Short: "Receive the instrument's configuration and save it as a .syx file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		link, closer, err := openLink(cfg)
		if err != nil {
			return err
		}
		defer closer()

		ctx, cancel := context.WithTimeout(cmd.Context(), cfg.MIDI.ReceiveTimeout)
		defer cancel()

		t := NewTable()
		r := NewReceiver(t)
		if err := link.ReceiveConfig(ctx, r); err != nil {
			return err
		}
		if err := printTable(cmd, t); err != nil {
			return err
		}
		if receiveOut == "" {
			return nil
		}
		return SaveSysExFile(receiveOut, t)
	},
}

var monitorCmd = &cobra.Command{
	Use:   "monitor [FILE]",
	Short: "Log what the instrument plays, naming breath and bite controllers from FILE",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := ""
		if len(args) == 1 {
			path = args[0]
		}
		t, err := loadTable(path)
		if err != nil {
			return err
		}
		in, err := findInPort(cfg.MIDI.PortHint)
		if err != nil {
			return fmt.Errorf("could not find EWI MIDI in port: %w", err)
		}
		return Monitor(cmd.Context(), in, t)
	},
}

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List MIDI ports",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		w := cmd.OutOrStdout()
		fmt.Fprintln(w, "Inputs:")
		fmt.Fprint(w, midi.GetInPorts().String())
		fmt.Fprintln(w, "Outputs:")
		fmt.Fprint(w, midi.GetOutPorts().String())
		return nil
	},
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the configuration tools over MCP on stdio",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := loadTable(basePath)
		if err != nil {
			return err
		}
		ts := &toolset{session: NewReceiver(t), timeout: cfg.MIDI.ReceiveTimeout}

		link, closer, err := openLink(cfg)
		if err != nil {
			slog.Warn("mcp: no instrument, device tools disabled", "err", err)
		} else {
			defer closer()
			ts.link = link
		}
		return runMCP(ts)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ./ewimcp.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")

	defaultsCmd.Flags().StringVarP(&defaultsOut, "output", "o", "ewi_defaults.syx", "output .syx file")
	setCmd.Flags().StringVarP(&setOut, "output", "o", "", "output .syx file (default: overwrite FILE)")
	exportCmd.Flags().StringVarP(&presetFormat, "format", "f", "json", "preset format: json or toml")
	importCmd.Flags().StringVarP(&presetFormat, "format", "f", "json", "preset format: json or toml")
	importCmd.Flags().StringVarP(&importOut, "output", "o", "preset.syx", "output .syx file")
	importCmd.Flags().StringVar(&basePath, "base", "", ".syx file supplying values the preset leaves out (default: factory defaults)")
	receiveCmd.Flags().StringVarP(&receiveOut, "output", "o", "", "save the received configuration to this .syx file")
	mcpCmd.Flags().StringVar(&basePath, "file", "", ".syx file to start from (default: factory defaults)")

	rootCmd.AddCommand(defaultsCmd, showCmd, setCmd, exportCmd, importCmd,
		sendCmd, receiveCmd, monitorCmd, portsCmd, mcpCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// loadTable returns the factory defaults overlaid with path, if given.
func loadTable(path string) (*Table, error) {
	t := NewTable()
	if path == "" {
		return t, nil
	}
	n, err := LoadSysExFile(path, t)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		slog.Warn("syx: no EWI frames found, using defaults", "path", path)
	}
	return t, nil
}

// applyAssignment applies one NAME=VALUE argument. Unlike
// Table.SetByName, an unknown name is an error here.
func applyAssignment(t *Table, arg string) error {
	name, raw, ok := strings.Cut(arg, "=")
	if !ok {
		return fmt.Errorf("expected NAME=VALUE, got %q", arg)
	}
	name = strings.TrimSpace(name)
	if _, found := t.Lookup(name); !found {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", name, err)
	}
	return t.SetByName(name, v)
}

func printTable(cmd *cobra.Command, t *Table) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "BANK\tOFFSET\tNAME\tVALUE\tRANGE\tDEFAULT")
	for _, p := range t.Params() {
		fmt.Fprintf(w, "%d\t%d\t%s\t%d\t%d-%d\t%d\n", p.Bank, p.Offset, p.Name, p.Value, p.Min, p.Max, p.Default)
	}
	return w.Flush()
}

// openLink connects to the instrument: over the serial device when one
// is configured, otherwise over the USB MIDI ports matching the port hint.
func openLink(cfg *Config) (configLink, func(), error) {
	if cfg.Serial.Device != "" {
		s, err := OpenSerial(cfg.Serial.Device, cfg.Serial.Baud)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil
	}

	portIdx, err := findOutPort(cfg.MIDI.PortHint)
	if err != nil {
		return nil, nil, fmt.Errorf("could not find EWI MIDI out port: %w", err)
	}
	in, err := findInPort(cfg.MIDI.PortHint)
	if err != nil {
		return nil, nil, fmt.Errorf("could not find EWI MIDI in port: %w", err)
	}

	dev, closer, err := OpenEWI(portIdx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open EWI output: %w", err)
	}
	return &usbLink{dev: dev, in: in, bufSize: cfg.MIDI.SysExBuffer}, closer, nil
}
