package main

import (
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/tidwall/pretty"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/move-binary-format/abi"
	"github.com/wippyai/move-binary-format/config"
	"github.com/wippyai/move-binary-format/format"
	"github.com/wippyai/move-binary-format/release"
)

type options struct {
	file        string
	dir         string
	configPath  string
	format      string
	script      bool
	abi         bool
	disasm      bool
	order       bool
	interactive bool
	verbose     bool
}

func main() {
	var opts options
	flag.StringVar(&opts.file, "file", "", "Path to a compiled module or script blob")
	flag.StringVar(&opts.dir, "dir", "", "Release directory of *.mv module blobs")
	flag.StringVar(&opts.configPath, "config", "", "Path to a movedump.toml configuration file")
	flag.StringVar(&opts.format, "format", "json", "ABI output format: json, yaml or cbor")
	flag.BoolVar(&opts.script, "script", false, "Treat -file as a script blob")
	flag.BoolVar(&opts.abi, "abi", false, "Print the module ABI")
	flag.BoolVar(&opts.disasm, "disasm", false, "Print a disassembly listing")
	flag.BoolVar(&opts.order, "order", false, "Sort -dir modules in dependency order")
	flag.BoolVar(&opts.interactive, "i", false, "Interactive mode with TUI")
	flag.BoolVar(&opts.verbose, "v", false, "Debug logging")
	flag.Parse()

	if opts.file == "" && opts.dir == "" {
		fmt.Fprintln(os.Stderr, "Usage: movedump -file <module.mv> [-disasm] [-abi [-format json|yaml|cbor]]")
		fmt.Fprintln(os.Stderr, "       movedump -file <script.mv> -script [-disasm]")
		fmt.Fprintln(os.Stderr, "       movedump -dir <release dir> [-order] [-disasm] [-abi]")
		fmt.Fprintln(os.Stderr, "       movedump -file <module.mv> -i  (interactive mode)")
		os.Exit(1)
	}

	cfg, logger, err := setup(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if opts.interactive {
		if err := runInteractive(opts.file, cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	color := term.IsTerminal(int(os.Stdout.Fd()))
	if err := run(context.Background(), opts, cfg, os.Stdout, color); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// setup loads the configuration and installs its logger in every package
// that logs.
func setup(opts options) (*config.Config, *zap.Logger, error) {
	cfg := config.Default()
	if opts.configPath != "" {
		var err error
		if cfg, err = config.Load(opts.configPath); err != nil {
			return nil, nil, err
		}
	}
	if opts.verbose {
		cfg.Log.Level = "debug"
	}
	logger, err := cfg.Log.Logger()
	if err != nil {
		return nil, nil, err
	}
	format.SetLogger(logger)
	release.SetLogger(logger)
	return cfg, logger, nil
}

func run(ctx context.Context, opts options, cfg *config.Config, w io.Writer, color bool) error {
	f, err := abi.ParseFormat(opts.format)
	if err != nil {
		return err
	}
	p := &printer{w: w, color: color, format: f}

	if opts.script {
		if opts.file == "" {
			return fmt.Errorf("-script requires -file")
		}
		if opts.abi {
			return fmt.Errorf("-abi requires a module")
		}
		return p.script(opts.file, cfg.DeserializerConfig(), opts.disasm)
	}

	cache, err := release.NewCache(cfg.Cache.Size, cfg.DeserializerConfig())
	if err != nil {
		return err
	}
	loader := release.NewLoader(cfg.DeserializerConfig(), release.WithCache(cache))

	var mods []*release.Module
	if opts.file != "" {
		m, err := loader.LoadFile(opts.file)
		if err != nil {
			return err
		}
		mods = append(mods, m)
	}
	if opts.dir != "" {
		loaded, err := loader.LoadDir(ctx, opts.dir)
		if err != nil {
			return err
		}
		mods = append(mods, loaded...)
	}
	if opts.order {
		if mods, err = release.DependencyOrder(mods); err != nil {
			return err
		}
	}

	for i, m := range mods {
		switch {
		case opts.abi:
			err = p.abi(m, i)
		case opts.disasm:
			err = p.disasm(m, i)
		default:
			err = p.summary(m)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

var (
	idStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#98FB98"))
	fileStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#87CEEB"))
	dimStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#666666"))
)

type printer struct {
	w      io.Writer
	format abi.Format
	color  bool
}

func (p *printer) style(s lipgloss.Style, text string) string {
	if !p.color {
		return text
	}
	return s.Render(text)
}

func (p *printer) summary(m *release.Module) error {
	cm := m.Module
	_, err := fmt.Fprintf(p.w, "%s %s %s\n    version %d, %d structs, %d functions, %d dependencies, %d friends\n",
		p.style(idStyle, m.ID().String()),
		p.style(fileStyle, m.File),
		p.style(dimStyle, fmt.Sprintf("%d bytes sha3:%s", m.Size, m.Hash.String()[:16])),
		cm.Version(), cm.StructDefs().Len(), cm.FunctionDefs().Len(),
		len(cm.ImmediateDependencies()), len(cm.FriendDecls()))
	return err
}

func (p *printer) disasm(m *release.Module, i int) error {
	if i > 0 {
		if _, err := io.WriteString(p.w, "\n"); err != nil {
			return err
		}
	}
	return format.Disassemble(p.w, m.Module)
}

func (p *printer) abi(m *release.Module, i int) error {
	a, err := abi.FromModule(m.Module)
	if err != nil {
		return err
	}
	data, err := abi.Marshal(a, p.format)
	if err != nil {
		return err
	}
	switch p.format {
	case abi.FormatJSON:
		data = pretty.Pretty(data)
		if p.color {
			data = pretty.Color(data, nil)
		}
	case abi.FormatYAML:
		if i > 0 {
			data = append([]byte("---\n"), data...)
		}
	case abi.FormatCBOR:
		if p.color {
			data = []byte(hex.Dump(data))
		}
	}
	_, err = p.w.Write(data)
	return err
}

func (p *printer) script(path string, cfg format.DeserializerConfig, disasm bool) error {
	blob, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}
	s, err := format.DeserializeScriptWithConfig(blob, cfg)
	if err != nil {
		return err
	}
	if disasm {
		return format.DisassembleScript(p.w, s)
	}
	code := s.Code()
	_, err = fmt.Fprintf(p.w, "%s %s\n    version %d, %d type parameters, parameters %s, %d instructions, %d dependencies\n",
		p.style(idStyle, "script"),
		p.style(fileStyle, path),
		s.Version(), len(s.TypeParameters()), s.FormatSignature(s.SignatureAt(s.Parameters())),
		len(code.Code), len(s.ImmediateDependencies()))
	return err
}
