// worldtool is a CLI utility for inspecting IMG resource archives and
// building the resolved world from a game data manifest.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/Faultbox/liberty3/internal/config"
	"github.com/Faultbox/liberty3/internal/logger"
	"github.com/Faultbox/liberty3/internal/world"
	"github.com/Faultbox/liberty3/pkg/formats"
	"github.com/Faultbox/liberty3/pkg/img"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "info":
		cmdInfo(args)
	case "list", "ls":
		cmdList(args)
	case "extract", "x":
		cmdExtract(args)
	case "build":
		cmdBuild(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`worldtool - game resource archive and world build utility

Usage:
  worldtool <command> [options]

Commands:
  info <file.img>                    Show archive information
  list <file.img> [pattern]          List entries (optional glob pattern)
  extract <file.img> <name> [output] Extract entry/entries to directory
  build [options]                    Build the world from the data manifest

Examples:
  worldtool info models/gta3.img
  worldtool list models/gta3.img "*.dff"
  worldtool extract models/gta3.img kb_planter+bush2.dff ./output
  worldtool build -datadir ~/games/gta3 -debug`)
}

func cmdInfo(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: worldtool info <file.img>")
		os.Exit(1)
	}

	archive, err := img.Open(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer archive.Close()

	names := archive.List()

	// Count entries and payload bytes by extension.
	extCount := make(map[string]int)
	var totalSize int
	for _, name := range names {
		ext := strings.ToLower(filepath.Ext(name))
		if ext == "" {
			ext = "(no ext)"
		}
		extCount[ext]++
		if entry, err := archive.Stat(name); err == nil {
			totalSize += entry.Size()
		}
	}

	fmt.Printf("Archive: %s\n", args[0])
	fmt.Printf("Entries: %d\n", len(names))
	fmt.Printf("Size:    %.2f MB\n", float64(totalSize)/(1024*1024))
	fmt.Println()
	fmt.Println("Entries by type:")

	type extStat struct {
		ext   string
		count int
	}
	var stats []extStat
	for ext, count := range extCount {
		stats = append(stats, extStat{ext, count})
	}
	sort.Slice(stats, func(i, j int) bool {
		return stats[i].count > stats[j].count
	})

	for _, s := range stats {
		fmt.Printf("  %-10s %d\n", s.ext, s.count)
	}
}

func cmdList(args []string) {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	limit := fs.Int("n", 0, "Limit output to N entries (0 = all)")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: worldtool list <file.img> [pattern]")
		os.Exit(1)
	}

	archive, err := img.Open(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer archive.Close()

	names := archive.List()
	sort.Strings(names)

	pattern := ""
	if fs.NArg() > 1 {
		pattern = strings.ToLower(fs.Arg(1))
	}

	count := 0
	for _, name := range names {
		if pattern != "" {
			matched, _ := filepath.Match(pattern, strings.ToLower(name))
			if !matched && !strings.Contains(strings.ToLower(name), pattern) {
				continue
			}
		}
		fmt.Println(name)
		count++
		if *limit > 0 && count >= *limit {
			break
		}
	}

	if pattern != "" {
		fmt.Fprintf(os.Stderr, "\n(%d entries matched)\n", count)
	}
}

func cmdExtract(args []string) {
	fs := flag.NewFlagSet("extract", flag.ExitOnError)
	fs.Parse(args)

	if fs.NArg() < 2 {
		fmt.Fprintln(os.Stderr, "Usage: worldtool extract <file.img> <name> [output_dir]")
		os.Exit(1)
	}

	imgPath := fs.Arg(0)
	entryName := fs.Arg(1)
	outputDir := "."
	if fs.NArg() > 2 {
		outputDir = fs.Arg(2)
	}

	archive, err := img.Open(imgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer archive.Close()

	if strings.Contains(entryName, "*") {
		extractPattern(archive, entryName, outputDir)
		return
	}

	if !archive.Contains(entryName) {
		fmt.Fprintf(os.Stderr, "Entry not found: %s\n", entryName)
		os.Exit(1)
	}

	data, err := archive.Read(entryName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading entry: %v\n", err)
		os.Exit(1)
	}

	outputPath := filepath.Join(outputDir, filepath.Base(entryName))
	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating directory: %v\n", err)
		os.Exit(1)
	}

	if err := os.WriteFile(outputPath, data, 0644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing file: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Extracted: %s (%d bytes)\n", outputPath, len(data))
}

func extractPattern(archive *img.Archive, pattern, outputDir string) {
	names := archive.List()
	pattern = strings.ToLower(pattern)

	extracted := 0
	for _, name := range names {
		matched, _ := filepath.Match(pattern, strings.ToLower(name))
		if !matched {
			continue
		}

		data, err := archive.Read(name)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading %s: %v\n", name, err)
			continue
		}

		outputPath := filepath.Join(outputDir, name)
		if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
			fmt.Fprintf(os.Stderr, "Error creating directory: %v\n", err)
			continue
		}

		if err := os.WriteFile(outputPath, data, 0644); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", outputPath, err)
			continue
		}

		fmt.Printf("Extracted: %s\n", outputPath)
		extracted++
	}

	fmt.Fprintf(os.Stderr, "\nExtracted %d entries\n", extracted)
}

func cmdBuild(args []string) {
	// Config flags live on the global flag set; feed it the
	// subcommand's remaining arguments.
	flag.CommandLine.Parse(args)

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := runBuild(cfg); err != nil {
		logger.Error("world build failed", zap.Error(err))
		os.Exit(1)
	}
}

func runBuild(cfg *config.Config) error {
	ctx := context.Background()

	manifestPath := filepath.Join(cfg.Data.DataDir, cfg.Data.Manifest)
	manifest, err := formats.ParseManifestFile(manifestPath)
	if err != nil {
		return err
	}
	logger.Info("manifest loaded",
		zap.String("path", manifestPath),
		zap.Int("entries", len(manifest.Entries)))

	workers := cfg.Loader.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	pipe := world.NewPipeline(logger.Named("pipeline"), workers)

	inputs, archives, err := collectInputs(cfg, manifest)
	if err != nil {
		return err
	}
	defer func() {
		for _, a := range archives {
			a.Close()
		}
	}()

	if err := pipe.LoadAll(ctx, inputs); err != nil {
		return err
	}
	logger.Info("load phase finished",
		zap.Int("inputs", len(inputs)),
		zap.Int("models", pipe.Registry().Len(world.KindModel)),
		zap.Int("texture_dicts", pipe.Registry().Len(world.KindTextureDict)),
		zap.Int("collisions", pipe.Registry().Len(world.KindCollision)),
		zap.Int("definitions", pipe.Registry().Len(world.KindDefinition)),
		zap.Int("placements", pipe.PlacementCount()),
		zap.Int("decode_errors", len(pipe.Errors())))

	entities, diags, err := pipe.Resolve(ctx, cfg.Loader.LODCutoff)
	if err != nil {
		return err
	}

	w, err := world.Build(entities, cfg.Loader.RequireNonEmpty)
	if err != nil {
		return err
	}

	printSummary(w, diags, pipe.Errors())
	return nil
}

// collectInputs gathers every raw resource the manifest points at:
// definition and placement text files from disk, collision archives
// from disk, and model/texture data from the IMG archives. Archives
// listed in the config come first, manifest-declared ones after, so
// later archives override earlier ones in the registry.
func collectInputs(cfg *config.Config, manifest *formats.Manifest) ([]world.Input, []*img.Archive, error) {
	var inputs []world.Input

	readFile := func(rel string) ([]byte, error) {
		return os.ReadFile(filepath.Join(cfg.Data.DataDir, filepath.FromSlash(strings.ReplaceAll(rel, "\\", "/"))))
	}

	imgPaths := append([]string{}, cfg.Data.ImgPaths...)
	for _, entry := range manifest.ByKind(formats.ManifestImg) {
		imgPaths = append(imgPaths, entry.Path)
	}

	var archives []*img.Archive
	for _, p := range imgPaths {
		archive, err := img.Open(filepath.Join(cfg.Data.DataDir, filepath.FromSlash(strings.ReplaceAll(p, "\\", "/"))))
		if err != nil {
			closeAll(archives)
			return nil, nil, err
		}
		archives = append(archives, archive)

		for _, name := range archive.List() {
			kind, ok := world.KindForPath(name)
			if !ok {
				continue
			}
			data, err := archive.Read(name)
			if err != nil {
				closeAll(archives)
				return nil, nil, err
			}
			inputs = append(inputs, world.Input{Name: name, Kind: kind, Data: data})
		}
	}

	for _, entry := range manifest.Entries {
		var kind world.InputKind
		switch entry.Kind {
		case formats.ManifestIDE:
			kind = world.InputDefinition
		case formats.ManifestIPL, formats.ManifestMapZone:
			kind = world.InputPlacement
		case formats.ManifestCol:
			kind = world.InputCollision
		default:
			continue
		}

		data, err := readFile(entry.Path)
		if err != nil {
			closeAll(archives)
			return nil, nil, err
		}
		inputs = append(inputs, world.Input{Name: entry.Path, Kind: kind, Data: data})
	}

	return inputs, archives, nil
}

func closeAll(archives []*img.Archive) {
	for _, a := range archives {
		a.Close()
	}
}

func printSummary(w *world.World, diags []world.Diagnostic, fileErrors []world.FileError) {
	fmt.Printf("World: %d entities across %d interiors\n", w.EntityCount(), len(w.Interiors()))
	for _, interior := range w.Interiors() {
		label := fmt.Sprintf("interior %d", interior)
		if interior == 0 {
			label = "outside"
		}
		fmt.Printf("  %-12s %d\n", label, w.CountIn(interior))
	}

	if len(fileErrors) > 0 {
		fmt.Printf("\nDecode errors: %d\n", len(fileErrors))
		for _, fe := range fileErrors {
			fmt.Printf("  %v\n", fe)
		}
	}

	if len(diags) > 0 {
		byKind := make(map[world.FailureKind]int)
		for _, d := range diags {
			byKind[d.Kind]++
		}
		fmt.Printf("\nResolution diagnostics: %d\n", len(diags))
		for kind, count := range byKind {
			fmt.Printf("  %-22s %d\n", kind, count)
		}
	}
}
