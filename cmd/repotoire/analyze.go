package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/repotoire-go/repotoire/internal/builder"
	"github.com/repotoire-go/repotoire/internal/config"
	"github.com/repotoire-go/repotoire/internal/detect"
	"github.com/repotoire-go/repotoire/internal/detectors"
	"github.com/repotoire-go/repotoire/internal/fileprovider"
	"github.com/repotoire-go/repotoire/internal/graphmodel"
	"github.com/repotoire-go/repotoire/internal/graphstore"
	"github.com/repotoire-go/repotoire/internal/incache"
	"github.com/repotoire-go/repotoire/internal/parseradapter"
	"github.com/repotoire-go/repotoire/internal/parserapi"
	"github.com/repotoire-go/repotoire/internal/postprocess"
	"github.com/repotoire-go/repotoire/internal/report"
	"github.com/repotoire-go/repotoire/internal/rlog"
	"github.com/repotoire-go/repotoire/internal/scorer"
	"github.com/repotoire-go/repotoire/internal/voting"
)

// analyzeCommand wires the "analyze" command spec.md §6 names: path,
// format, severity filter, pagination, --skip-detector, --workers,
// --fail-on, --incremental, --skip-graph, --max-files, --no-git,
// --no-emoji, --verify. --since shells out to `git diff --name-only` (see
// sinceFiles in since.go) and is ignored when --no-git or the config's
// defaults.no_git is set.
func analyzeCommand() *cli.Command {
	return &cli.Command{
		Name:  "analyze",
		Usage: "Analyze a repository and report findings and a health score",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "format", Value: "text", Usage: "Output format: text, json, sarif, html, markdown"},
			&cli.StringFlag{Name: "severity", Value: "info", Usage: "Minimum severity to report: info, low, medium, high, critical"},
			&cli.IntFlag{Name: "page", Value: 0, Usage: "Page number for paginated output (0 = all)"},
			&cli.IntFlag{Name: "per-page", Value: 50, Usage: "Findings per page"},
			&cli.StringSliceFlag{Name: "skip-detector", Usage: "Detector name(s) to disable"},
			&cli.IntFlag{Name: "workers", Value: 0, Usage: "Worker pool size (0 = hardware parallelism)"},
			&cli.StringFlag{Name: "fail-on", Value: "high", Usage: "Minimum severity that causes a non-zero exit code"},
			&cli.BoolFlag{Name: "incremental", Usage: "Reuse cached findings for unchanged files"},
			&cli.StringFlag{Name: "since", Usage: "Only analyze files changed since this git ref"},
			&cli.BoolFlag{Name: "skip-graph", Usage: "Skip graph-based detectors (circular deps, dead code, cohesion)"},
			&cli.IntFlag{Name: "max-files", Value: 0, Usage: "Analyze at most N of the discovered files and keep only findings in them (0 = unlimited)"},
			&cli.BoolFlag{Name: "no-git", Usage: "Never shell out to git, even for --since"},
			&cli.BoolFlag{Name: "no-emoji", Usage: "Disable emoji in text output"},
			&cli.BoolFlag{Name: "verify", Usage: "Attempt LLM-backed verification of findings (requires discoverable backend credentials)"},
			&cli.BoolFlag{Name: "compact", Usage: "Use the interned-string compact graph representation (lower memory on large repos)"},
			&cli.BoolFlag{Name: "watch", Usage: "Re-run analysis whenever a source file changes, instead of exiting after one pass"},
		},
		Action: runAnalyze,
	}
}

func runAnalyze(c *cli.Context) error {
	if err := analyzeOnce(c); err != nil {
		if !c.Bool("watch") {
			return err
		}
		fmt.Fprintln(os.Stderr, err)
	}
	if !c.Bool("watch") {
		return nil
	}
	return watchAndReanalyze(c)
}

// watchAndReanalyze re-runs analyzeOnce every time a debounced batch of
// file-system events arrives, until the process is interrupted.
func watchAndReanalyze(c *cli.Context) error {
	root := c.Args().First()
	if root == "" {
		root = "."
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return invalidArgs("resolve root %q: %v", root, err)
	}

	w, err := builder.NewWatcher(absRoot, 300*time.Millisecond)
	if err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	defer w.Close()

	return w.Run(context.Background(), func(batch builder.ChangeBatch) {
		rlog.Infof("watch: %d changed, %d removed, re-analyzing", len(batch.Changed), len(batch.Removed))
		if err := analyzeOnce(c); err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
	})
}

func analyzeOnce(c *cli.Context) error {
	root := c.Args().First()
	if root == "" {
		root = "."
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return invalidArgs("resolve root %q: %v", root, err)
	}
	info, err := os.Stat(absRoot)
	if err != nil || !info.IsDir() {
		return invalidArgs("root %q is not a directory", root)
	}

	cfg, err := config.Load(absRoot)
	if err != nil {
		return invalidArgs("load config: %v", err)
	}
	applyFlagOverrides(&cfg, c)

	var warnings []string

	excludes := config.ResolveExcludePatterns(absRoot, cfg.Exclude)
	files, err := discoverFiles(absRoot, excludes)
	if err != nil {
		return invalidArgs("walk %q: %v", root, err)
	}
	if since := c.String("since"); since != "" && !c.Bool("no-git") && !cfg.Defaults.NoGit {
		changed, err := sinceFiles(absRoot, since)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("--since %s: %v", since, err))
		} else {
			files = intersectPaths(files, changed)
		}
	}
	if n := c.Int("max-files"); n > 0 && len(files) > n {
		files = files[:n]
	}

	relFiles := make([]string, len(files))
	for i, f := range files {
		rel, err := filepath.Rel(absRoot, f)
		if err != nil {
			rel = f
		}
		relFiles[i] = filepath.ToSlash(rel)
	}

	fileProvider := fileprovider.NewDiskProvider(absRoot, relFiles)

	goAdapter, err := parseradapter.NewGoAdapter()
	if err != nil {
		return invalidArgs("initialize go parser: %v", err)
	}

	var cache *incache.Cache
	incremental := c.Bool("incremental")
	cachePath := filepath.Join(absRoot, ".repotoire", "cache.json")
	if _, err := os.Stat(cachePath); err == nil {
		incremental = true // warm cache present auto-enables incremental mode
	}
	if incremental {
		cache = incache.New(cachePath)
		if err := cache.Load(); err != nil {
			warnings = append(warnings, fmt.Sprintf("incremental cache: %v", err))
			cache = incache.New(cachePath)
		}
	}

	var parsed []parserapi.ParsedFile
	for _, rel := range relFiles {
		if !goAdapter.CanParse(rel) {
			continue
		}
		content, ok := fileProvider.Content(rel)
		if !ok {
			continue
		}
		pf, err := goAdapter.Parse(rel, []byte(content))
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("parse %s: %v", rel, err))
			rlog.Warnf("parse failed for %s: %v", rel, err)
			continue
		}
		parsed = append(parsed, pf)
	}

	var store *graphstore.MemStore
	if c.Bool("compact") {
		store = graphstore.NewCompactMemStore()
	} else {
		store = graphstore.NewMemStore()
	}
	b := builder.New(store, c.Int("workers"))

	ctx := context.Background()
	if _, err := b.BuildWholeRepo(ctx, parsed); err != nil {
		return fmt.Errorf("build graph: %w", err)
	}

	mult := config.MultiplierFor(cfg.ProjectType)
	detectorList := selectDetectors(mult, c.Bool("skip-graph"), c.StringSlice("skip-detector"))

	engine := detect.NewBatchEngine(c.Int("workers"))
	results := engine.Run(ctx, store, fileProvider, detectorList)

	var findings []graphmodel.Finding
	for _, r := range results {
		findings = append(findings, r.Findings...)
		if r.Err != nil {
			warnings = append(warnings, fmt.Sprintf("%s: %v", r.Detector, r.Err))
		}
	}

	votingEngine := voting.NewEngine(voting.DefaultConfig())
	findings, _ = votingEngine.Consolidate(findings)

	postCfg := postprocess.Config{
		DetectorOverrides: cfg.ToPostprocessOverrides(),
		ExcludePaths:      excludes,
		MaxFiles:          c.Int("max-files"),
		AllFiles:          relFiles,
		Incremental:       incremental,
		FilesToParse:      relFiles,
		Cache:             cache,
		Files:             fileProvider,
		Verify:            c.Bool("verify"),
	}
	findings, _ = postprocess.Run(findings, postCfg)

	if cache != nil {
		if err := cache.Flush(); err != nil {
			warnings = append(warnings, err.Error())
		}
	}

	sc := scorer.New(store, cfg.Scoring)
	breakdown := sc.Calculate(findings)

	out, err := report.Render(report.Result{
		RepoPath: root,
		Findings: findings,
		Score:    breakdown,
	}, report.Options{
		Format:      report.Format(c.String("format")),
		MinSeverity: graphmodel.ParseSeverity(c.String("severity")),
		Page:        c.Int("page"),
		PerPage:     c.Int("per-page"),
		NoEmoji:     c.Bool("no-emoji") || cfg.Defaults.NoEmoji,
		Warnings:    warnings,
	})
	if err != nil {
		return invalidArgs("render report: %v", err)
	}
	fmt.Fprintln(c.App.Writer, out)

	failOn := graphmodel.ParseSeverity(c.String("fail-on"))
	for _, f := range findings {
		if f.Severity >= failOn {
			return cli.Exit("", 1)
		}
	}
	return nil
}

// applyFlagOverrides layers explicitly-set CLI flags over the loaded
// project config, the same override order loadConfigWithOverrides uses in
// the teacher's cmd/lci/main.go (flags win over file, file wins over
// built-in defaults).
func applyFlagOverrides(cfg *config.ProjectConfig, c *cli.Context) {
	if c.IsSet("no-git") {
		cfg.Defaults.NoGit = c.Bool("no-git")
	}
	if c.IsSet("no-emoji") {
		cfg.Defaults.NoEmoji = c.Bool("no-emoji")
	}
	if c.IsSet("workers") {
		cfg.Defaults.Workers = c.Int("workers")
	}
}

// selectDetectors builds the engine's detector list from the project-type
// multiplier table, dropping graph-based detectors under --skip-graph and
// anything named in skip.
func selectDetectors(mult config.Multiplier, skipGraph bool, skip []string) []detect.Detector {
	skipSet := make(map[string]bool, len(skip))
	for _, s := range skip {
		skipSet[s] = true
	}

	graphDetectorNames := map[string]bool{
		"CircularDependencyDetector": true,
		"ModuleCohesionDetector":     true,
		"DeadCodeDetector":           true,
	}

	all := detectors.BuildAll(detectors.SizeMultiplier{
		Complexity:  mult.Complexity,
		LenientDead: mult.LenientDead,
	})

	out := make([]detect.Detector, 0, len(all))
	for _, d := range all {
		if skipGraph && graphDetectorNames[d.Name()] {
			continue
		}
		if skipSet[d.Name()] {
			continue
		}
		out = append(out, d)
	}
	return out
}

func intersectPaths(all, subset []string) []string {
	set := make(map[string]bool, len(subset))
	for _, s := range subset {
		set[filepath.Clean(s)] = true
	}
	var out []string
	for _, f := range all {
		if set[filepath.Clean(f)] {
			out = append(out, f)
		}
	}
	return out
}
