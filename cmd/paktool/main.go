// Package main provides a command-line tool for inspecting and extracting
// encrypted content archives.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"

	"github.com/hexweld/uesavekit/internal/config"
	"github.com/hexweld/uesavekit/pkg/pak"
)

var (
	mode       string
	configPath string
	pakPath    string
	keyHex     string
	pattern    string
	outputDir  string
	flatten    bool
)

func init() {
	flag.StringVar(&mode, "mode", "", "Operation mode: info, list, search, extract")
	flag.StringVar(&configPath, "config", "", "Path to a YAML config file")
	flag.StringVar(&pakPath, "pak", "", "Path to the archive (overrides config)")
	flag.StringVar(&keyHex, "key", "", "AES-256 key as hex (overrides config)")
	flag.StringVar(&pattern, "pattern", "", "Path regex for search/extract modes")
	flag.StringVar(&outputDir, "output", "", "Output directory for extract mode")
	flag.BoolVar(&flatten, "flatten", false, "Write extracted files under their base names only")
}

var heading = color.New(color.FgCyan, color.Bold)

func main() {
	flag.Parse()

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if err := validateFlags(); err != nil {
		flag.Usage()
		return err
	}

	path, key, err := resolveArchive()
	if err != nil {
		return err
	}

	a, err := pak.Open(path, key)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer a.Close()

	switch mode {
	case "info":
		return runInfo(a)
	case "list":
		return runList(a, a.Entries)
	case "search":
		return runSearch(a)
	case "extract":
		return runExtract(a)
	default:
		return fmt.Errorf("unknown mode: %s", mode)
	}
}

func validateFlags() error {
	if mode == "" {
		return fmt.Errorf("mode is required")
	}
	if configPath == "" && (pakPath == "" || keyHex == "") {
		return fmt.Errorf("provide -config, or both -pak and -key")
	}
	switch mode {
	case "info", "list":
	case "search":
		if pattern == "" {
			return fmt.Errorf("search mode requires -pattern")
		}
	case "extract":
		if outputDir == "" {
			return fmt.Errorf("extract mode requires -output")
		}
	default:
		return fmt.Errorf("mode must be 'info', 'list', 'search' or 'extract'")
	}
	return nil
}

func resolveArchive() (string, []byte, error) {
	cfg := &config.Config{PakPath: pakPath, AESKeyHex: keyHex}
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return "", nil, err
		}
		if pakPath == "" {
			cfg.PakPath = loaded.PakPath
		}
		if keyHex == "" {
			cfg.AESKeyHex = loaded.AESKeyHex
		}
	}
	if cfg.PakPath == "" {
		return "", nil, fmt.Errorf("no archive path in flags or config")
	}
	key, err := cfg.Key()
	if err != nil {
		return "", nil, err
	}
	return cfg.PakPath, key, nil
}

func runInfo(a *pak.Archive) error {
	heading.Println("Archive info")
	fmt.Printf("  Version:          %d\n", a.Footer.Version)
	fmt.Printf("  Index offset:     %d\n", a.Footer.IndexOffset)
	fmt.Printf("  Index size:       %d\n", a.Footer.IndexSize)
	fmt.Printf("  Encrypted index:  %v\n", a.Footer.EncryptedIndex)
	fmt.Printf("  Mount point:      %s\n", a.Index.MountPoint)
	fmt.Printf("  Entries:          %d\n", len(a.Entries))

	if len(a.Footer.CompressionMethods) > 0 {
		fmt.Printf("  Compression:      %v\n", a.Footer.CompressionMethods)
	} else {
		fmt.Printf("  Compression:      none registered\n")
	}

	corrupt := 0
	for _, e := range a.Entries {
		if e.Corrupt != nil {
			corrupt++
		}
	}
	if corrupt > 0 {
		color.Yellow("  Corrupt entries:  %d", corrupt)
	}
	return nil
}

func runList(a *pak.Archive, entries []*pak.Entry) error {
	for _, e := range entries {
		name := e.Path
		if name == "" {
			name = fmt.Sprintf("<unnamed @%d>", e.EncodedOffset)
		}
		line := fmt.Sprintf("%12d  %s", e.Size, name)
		switch {
		case e.Corrupt != nil:
			color.Red("%s  [corrupt]", line)
		case e.CompressionMethod != 0:
			color.Yellow("%s  [%s]", line, a.Footer.MethodName(e.CompressionMethod))
		default:
			fmt.Println(line)
		}
	}
	fmt.Printf("%d entries\n", len(entries))
	return nil
}

func runSearch(a *pak.Archive) error {
	hits, err := a.Search(pattern)
	if err != nil {
		return err
	}
	return runList(a, hits)
}

func runExtract(a *pak.Archive) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	entries := a.Entries
	if pattern != "" {
		var err error
		if entries, err = a.Search(pattern); err != nil {
			return err
		}
	}

	written, skipped := 0, 0
	for _, e := range entries {
		if e.Corrupt != nil || e.Path == "" {
			skipped++
			continue
		}
		data, err := a.Extract(e)
		if err != nil {
			return err
		}

		dest := filepath.Join(outputDir, filepath.FromSlash(e.Path))
		if flatten {
			dest = filepath.Join(outputDir, filepath.Base(e.Path))
		}
		if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
			return fmt.Errorf("entry %q: %w", e.Path, err)
		}
		if err := os.WriteFile(dest, data, 0644); err != nil {
			return fmt.Errorf("entry %q: %w", e.Path, err)
		}
		written++
	}

	fmt.Printf("Extracted %d file(s) to %s", written, outputDir)
	if skipped > 0 {
		fmt.Printf(" (%d skipped)", skipped)
	}
	fmt.Println()
	return nil
}
