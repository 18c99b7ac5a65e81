package config

// DefaultExcludePatterns are the built-in doublestar glob patterns the
// post-processor's exclude-path step always applies unless
// exclude.skip_defaults is set, per spec.md §4.6 step 4.
var DefaultExcludePatterns = []string{
	"**/vendor/**",
	"**/node_modules/**",
	"**/dist/**",
	"**/build/**",
	"**/target/**",
	"**/.git/**",
	"**/*.min.js",
	"**/*.min.css",
	"**/*.generated.go",
	"**/__pycache__/**",
}

// ResolveExcludePatterns combines the project config's exclude.paths with
// the built-in defaults (unless skipped), the repo's own .gitignore (best
// effort — a missing .gitignore contributes nothing), and the build
// artifact directories BuildArtifactDetector infers from package.json,
// Cargo.toml, and friends. This is the single place the CLI calls to
// produce the glob list internal/postprocess.Config.ExcludePaths wants.
func ResolveExcludePatterns(root string, cfg ExcludeConfig) []string {
	var patterns []string
	patterns = append(patterns, cfg.Paths...)

	if !cfg.SkipDefaults {
		patterns = append(patterns, DefaultExcludePatterns...)
	}

	gi := NewGitignoreParser()
	_ = gi.LoadGitignore(root) // absent .gitignore is not an error
	patterns = append(patterns, gi.GetExclusionPatterns()...)

	bad := NewBuildArtifactDetector(root)
	patterns = append(patterns, bad.DetectOutputDirectories()...)

	return DeduplicatePatterns(patterns)
}
