package detectors

import (
	"regexp"
	"strings"

	"github.com/repotoire-go/repotoire/internal/detect"
	"github.com/repotoire-go/repotoire/internal/fileprovider"
	"github.com/repotoire-go/repotoire/internal/graphmodel"
)

var webExtensions = []string{".py", ".js", ".ts", ".jsx", ".tsx", ".rb", ".php", ".java", ".go"}

func webFiles(files fileprovider.Provider) []string { return files.FilesWithExtensions(webExtensions) }

func hasUserInputMarker(line string) bool {
	for _, marker := range []string{"req.", "request.", "props.", "params", "query", "input", "ctx.request", "ctx.body"} {
		if strings.Contains(line, marker) {
			return true
		}
	}
	return false
}

// scanRegexFinding runs re over every line of every file in paths and
// builds a finding per match via buildFn, skipping suppressed lines.
func scanRegexFinding(detName string, category graphmodel.Category, files fileprovider.Provider, paths []string, re *regexp.Regexp, buildFn func(path string, lineNo int, line string) *graphmodel.Finding) []graphmodel.Finding {
	var findings []graphmodel.Finding
	for _, path := range paths {
		content, ok := files.MaskedContent(path)
		if !ok {
			continue
		}
		for i, line := range splitLines(content) {
			if !re.MatchString(line) {
				continue
			}
			lineNo := i + 1
			if detect.IsSuppressed(content, lineNo, detName) {
				continue
			}
			if f := buildFn(path, lineNo, line); f != nil {
				findings = append(findings, *f)
			}
		}
	}
	return findings
}

// SQLInjectionDetector flags string-built SQL queries concatenated with a
// variable rather than passed through a parameterized API. No sql_injection.rs
// survived the original_source/ distillation (only nosql_injection.rs did);
// this detector is original synthesis following the same
// regex-plus-user-input-correlation shape nosql_injection.rs and ssrf.rs use.
type SQLInjectionDetector struct{}

func NewSQLInjectionDetector() *SQLInjectionDetector { return &SQLInjectionDetector{} }
func (d *SQLInjectionDetector) Name() string          { return "SQLInjectionDetector" }
func (d *SQLInjectionDetector) Category() graphmodel.Category {
	return graphmodel.CategorySecurity
}

var sqlQueryPattern = regexp.MustCompile(`(?i)(SELECT\s.+FROM|INSERT\s+INTO|UPDATE\s+\w+\s+SET|DELETE\s+FROM)`)
var sqlConcatPattern = regexp.MustCompile(`(\+\s*\w+\s*\+|\$\{|%s|\.format\(|f"|f')`)
var sqlExecPattern = regexp.MustCompile(`(?i)(execute|query|exec)\s*\(`)

func (d *SQLInjectionDetector) Detect(graph detect.GraphQuery, files fileprovider.Provider) ([]graphmodel.Finding, error) {
	return scanRegexFinding(d.Name(), d.Category(), files, webFiles(files), sqlQueryPattern, func(path string, lineNo int, line string) *graphmodel.Finding {
		if !sqlConcatPattern.MatchString(line) || !sqlExecPattern.MatchString(line) {
			return nil
		}
		severity := graphmodel.SeverityHigh
		if hasUserInputMarker(line) {
			severity = graphmodel.SeverityCritical
		}
		f := newFinding(d.Name(), d.Category(), severity,
			"Potential SQL injection vulnerability",
			"SQL query built via string concatenation/formatting instead of parameterized placeholders.",
			[]string{path}, lineNo, lineNo)
		f.CWEID = "CWE-89"
		f.Description += " " + "Use parameterized queries or an ORM's query builder instead of string concatenation."
		return &f
	}), nil
}

// NoSQLInjectionDetector flags MongoDB-style query operators built from
// unsanitized input, grounded on
// original_source/repotoire-cli/src/detectors/nosql_injection.rs (dangerous
// operator set: $where/$regex/$expr/$function/$accumulator; query method
// set: find/findOne/findById/updateOne/updateMany/deleteOne/deleteMany/
// aggregate/countDocuments).
type NoSQLInjectionDetector struct{}

func NewNoSQLInjectionDetector() *NoSQLInjectionDetector { return &NoSQLInjectionDetector{} }
func (d *NoSQLInjectionDetector) Name() string            { return "NoSQLInjectionDetector" }
func (d *NoSQLInjectionDetector) Category() graphmodel.Category {
	return graphmodel.CategorySecurity
}

var nosqlQueryPattern = regexp.MustCompile(`(?i)(\.find\(|\.findOne\(|\.findById\(|\.updateOne\(|\.updateMany\(|\.deleteOne\(|\.deleteMany\(|\.aggregate\(|\.countDocuments\(|db\.\w+\.)`)
var nosqlDangerousOps = regexp.MustCompile(`(\$where|\$regex|\$expr|\$function|\$accumulator)`)
var nosqlArrayMarkers = []string{"items.find(", "list.find(", "array.find(", "results.find(", "data.find(", "options.find(", "elements.find(", "entries.find("}

func (d *NoSQLInjectionDetector) Detect(graph detect.GraphQuery, files fileprovider.Provider) ([]graphmodel.Finding, error) {
	return scanRegexFinding(d.Name(), d.Category(), files, webFiles(files), nosqlQueryPattern, func(path string, lineNo int, line string) *graphmodel.Finding {
		for _, marker := range nosqlArrayMarkers {
			if strings.Contains(line, marker) {
				return nil
			}
		}
		severity := graphmodel.SeverityMedium
		title := "Potential NoSQL query injection"
		if nosqlDangerousOps.MatchString(line) {
			severity = graphmodel.SeverityCritical
			title = "Dangerous MongoDB operator in query"
		} else if hasUserInputMarker(line) {
			severity = graphmodel.SeverityHigh
		}
		f := newFinding(d.Name(), d.Category(), severity, title,
			"MongoDB-style query uses a dangerous operator or unsanitized input.",
			[]string{path}, lineNo, lineNo)
		f.CWEID = "CWE-943"
		f.Description += " " + "Validate and sanitize input before passing into query operators; reject raw operator keys from user input."
		return &f
	}), nil
}

// SSRFDetector flags outbound HTTP calls whose URL appears built from
// request-derived data, grounded on
// original_source/repotoire-cli/src/detectors/ssrf.rs.
type SSRFDetector struct{}

func NewSSRFDetector() *SSRFDetector                        { return &SSRFDetector{} }
func (d *SSRFDetector) Name() string                         { return "SSRFDetector" }
func (d *SSRFDetector) Category() graphmodel.Category        { return graphmodel.CategorySecurity }

var ssrfHTTPClientPattern = regexp.MustCompile(`(?i)(requests\.(get|post|put|delete)|fetch\(|axios\.|http\.get|urllib|urlopen|HttpClient|curl)`)

func (d *SSRFDetector) Detect(graph detect.GraphQuery, files fileprovider.Provider) ([]graphmodel.Finding, error) {
	return scanRegexFinding(d.Name(), d.Category(), files, webFiles(files), ssrfHTTPClientPattern, func(path string, lineNo int, line string) *graphmodel.Finding {
		if !hasUserInputMarker(line) {
			return nil
		}
		f := newFinding(d.Name(), d.Category(), graphmodel.SeverityHigh,
			"Potential SSRF vulnerability",
			"HTTP request with a user-controlled URL.",
			[]string{path}, lineNo, lineNo)
		f.CWEID = "CWE-918"
		f.Description += " " + "Validate the URL against an allowlist and block requests to internal/link-local addresses."
		return &f
	}), nil
}

// PathTraversalDetector flags file operations combined with path-join
// calls that could carry a user-controlled `../` segment, grounded on
// original_source/repotoire-cli/src/detectors/path_traversal.rs.
type PathTraversalDetector struct{}

func NewPathTraversalDetector() *PathTraversalDetector { return &PathTraversalDetector{} }
func (d *PathTraversalDetector) Name() string           { return "PathTraversalDetector" }
func (d *PathTraversalDetector) Category() graphmodel.Category {
	return graphmodel.CategorySecurity
}

var pathTraversalFileOp = regexp.MustCompile(`(?i)(open|read|write|readFile|writeFile|readFileSync|writeFileSync|appendFile|createReadStream|createWriteStream|unlink|unlinkSync|remove|rmdir|mkdir|stat|statSync|access|accessSync|copyFile|rename)\s*\(`)
var pathTraversalJoin = regexp.MustCompile(`(?i)(os\.path\.join|path\.join|path\.resolve|filepath\.Join|filepath\.Clean|Path\s*\()`)
var pathTraversalSendFile = regexp.MustCompile(`(?i)(sendFile|download|serveStatic|send_file|serve_file)\s*\(`)

func (d *PathTraversalDetector) Detect(graph detect.GraphQuery, files fileprovider.Provider) ([]graphmodel.Finding, error) {
	paths := webFiles(files)
	var findings []graphmodel.Finding
	build := func(path string, lineNo int, line string) *graphmodel.Finding {
		if !hasUserInputMarker(line) {
			return nil
		}
		f := newFinding(d.Name(), d.Category(), graphmodel.SeverityHigh,
			"Potential path traversal vulnerability",
			"File path built from user-controlled input without validation.",
			[]string{path}, lineNo, lineNo)
		f.CWEID = "CWE-22"
		f.Description += " " + "Resolve the path and verify it stays within the intended base directory before using it."
		return &f
	}
	findings = append(findings, scanRegexFinding(d.Name(), d.Category(), files, paths, pathTraversalFileOp, build)...)
	findings = append(findings, scanRegexFinding(d.Name(), d.Category(), files, paths, pathTraversalJoin, build)...)
	findings = append(findings, scanRegexFinding(d.Name(), d.Category(), files, paths, pathTraversalSendFile, build)...)
	return findings, nil
}

// XSSDetector flags direct HTML-injection sinks, grounded on
// original_source/repotoire-cli/src/detectors/xss.rs.
type XSSDetector struct{}

func NewXSSDetector() *XSSDetector                 { return &XSSDetector{} }
func (d *XSSDetector) Name() string                 { return "XSSDetector" }
func (d *XSSDetector) Category() graphmodel.Category { return graphmodel.CategorySecurity }

var xssExtensions = []string{".js", ".ts", ".jsx", ".tsx", ".vue", ".html", ".php"}
var xssPattern = regexp.MustCompile(`(?i)(innerHTML|outerHTML|document\.write|dangerouslySetInnerHTML|v-html|ng-bind-html|\[innerHTML\])`)

func (d *XSSDetector) Detect(graph detect.GraphQuery, files fileprovider.Provider) ([]graphmodel.Finding, error) {
	var paths []string
	for _, p := range files.FilesWithExtensions(xssExtensions) {
		if !pathIsTestLike(p) {
			paths = append(paths, p)
		}
	}
	return scanRegexFinding(d.Name(), d.Category(), files, paths, xssPattern, func(path string, lineNo int, line string) *graphmodel.Finding {
		severity := graphmodel.SeverityMedium
		if hasUserInputMarker(line) {
			severity = graphmodel.SeverityCritical
		}
		f := newFinding(d.Name(), d.Category(), severity,
			"Potential XSS vulnerability",
			"Direct HTML injection can lead to cross-site scripting.",
			[]string{path}, lineNo, lineNo)
		f.CWEID = "CWE-79"
		f.Description += " " + "Sanitize input or use textContent instead of direct HTML injection."
		return &f
	}), nil
}

func pathIsTestLike(path string) bool {
	lower := strings.ToLower(path)
	return strings.Contains(lower, "test") || strings.Contains(lower, "spec") || strings.Contains(lower, "__tests__")
}

// EvalDetector flags dynamic code evaluation of input that is not a fixed
// literal — no eval.rs survived the original_source/ distillation (the
// closest relative is insecure_deserialize.rs, which treats eval() as one
// of several dangerous deserialization sinks); this detector narrows that
// same DESERIALIZE_PATTERN family to the eval-specific subset and promotes
// it to its own detector per spec.md §4.4's explicit "Eval" entry.
type EvalDetector struct{}

func NewEvalDetector() *EvalDetector                 { return &EvalDetector{} }
func (d *EvalDetector) Name() string                  { return "EvalDetector" }
func (d *EvalDetector) Category() graphmodel.Category { return graphmodel.CategorySecurity }

var evalPattern = regexp.MustCompile(`(?i)\b(eval|exec|new Function)\s*\(`)
var evalLiteralArg = regexp.MustCompile(`\(\s*["'` + "`" + `]`)

func (d *EvalDetector) Detect(graph detect.GraphQuery, files fileprovider.Provider) ([]graphmodel.Finding, error) {
	return scanRegexFinding(d.Name(), d.Category(), files, webFiles(files), evalPattern, func(path string, lineNo int, line string) *graphmodel.Finding {
		if evalLiteralArg.MatchString(line) && !hasUserInputMarker(line) {
			return nil
		}
		severity := graphmodel.SeverityHigh
		if hasUserInputMarker(line) {
			severity = graphmodel.SeverityCritical
		}
		f := newFinding(d.Name(), d.Category(), severity,
			"Dynamic code evaluation",
			"eval()/exec()/new Function() executes a string as code; if that string carries untrusted input, this is arbitrary code execution.",
			[]string{path}, lineNo, lineNo)
		f.CWEID = "CWE-95"
		f.Description += " " + "Replace dynamic evaluation with an explicit parser or a fixed set of allowed operations."
		return &f
	}), nil
}

// CommandInjectionDetector flags shell/process-spawning calls built from
// untrusted input. No command_injection.rs survived the original_source/
// distillation; grounded on the same shell-out patterns referenced in
// lazy_class.rs and jscpd.rs's own use of std::process::Command, applying
// the established user-input-correlation shape from ssrf.rs/xss.rs.
type CommandInjectionDetector struct{}

func NewCommandInjectionDetector() *CommandInjectionDetector { return &CommandInjectionDetector{} }
func (d *CommandInjectionDetector) Name() string              { return "CommandInjectionDetector" }
func (d *CommandInjectionDetector) Category() graphmodel.Category {
	return graphmodel.CategorySecurity
}

var commandExecPattern = regexp.MustCompile(`(?i)(os\.system|subprocess\.(call|run|Popen)|child_process\.(exec|spawn)|Runtime\.getRuntime\(\)\.exec|exec\.Command|shell_exec|proc_open|popen)\s*\(`)

func (d *CommandInjectionDetector) Detect(graph detect.GraphQuery, files fileprovider.Provider) ([]graphmodel.Finding, error) {
	return scanRegexFinding(d.Name(), d.Category(), files, webFiles(files), commandExecPattern, func(path string, lineNo int, line string) *graphmodel.Finding {
		if !hasUserInputMarker(line) && !strings.Contains(line, "+") {
			return nil
		}
		severity := graphmodel.SeverityHigh
		if hasUserInputMarker(line) {
			severity = graphmodel.SeverityCritical
		}
		f := newFinding(d.Name(), d.Category(), severity,
			"Potential command injection",
			"Shell/process command built from concatenated or user-controlled input.",
			[]string{path}, lineNo, lineNo)
		f.CWEID = "CWE-78"
		f.Description += " " + "Pass arguments as an array/argv vector instead of a shell string, avoiding shell interpolation."
		return &f
	}), nil
}

// InsecureRandomDetector flags non-cryptographic random-number generators
// used where the call context suggests a security purpose (token, secret,
// password, session), grounded on
// original_source/repotoire-cli/src/detectors/insecure_random.rs.
type InsecureRandomDetector struct{}

func NewInsecureRandomDetector() *InsecureRandomDetector { return &InsecureRandomDetector{} }
func (d *InsecureRandomDetector) Name() string            { return "InsecureRandomDetector" }
func (d *InsecureRandomDetector) Category() graphmodel.Category {
	return graphmodel.CategorySecurity
}

var insecureRandomPattern = regexp.MustCompile(`(?i)(Math\.random\(\)|random\.random\(\)|random\.randint|rand\(\)|srand\(|mt_rand|lcg_value|uniqid)`)
var securityContextMarkers = []string{"token", "secret", "password", "session", "key", "auth", "csrf", "nonce"}

func (d *InsecureRandomDetector) Detect(graph detect.GraphQuery, files fileprovider.Provider) ([]graphmodel.Finding, error) {
	return scanRegexFinding(d.Name(), d.Category(), files, webFiles(files), insecureRandomPattern, func(path string, lineNo int, line string) *graphmodel.Finding {
		lower := strings.ToLower(line)
		inSecurityContext := false
		for _, m := range securityContextMarkers {
			if strings.Contains(lower, m) {
				inSecurityContext = true
				break
			}
		}
		if !inSecurityContext {
			return nil
		}
		f := newFinding(d.Name(), d.Category(), graphmodel.SeverityHigh,
			"Insecure random number generator used in security context",
			"Non-cryptographic RNG used to derive a token/secret/session value; it is predictable.",
			[]string{path}, lineNo, lineNo)
		f.CWEID = "CWE-338"
		f.Description += " " + "Use a cryptographically secure RNG (crypto/rand, secrets module, crypto.randomBytes)."
		return &f
	}), nil
}

// InsecureCookieDetector flags cookie-setting calls missing Secure/HttpOnly
// attributes, grounded on
// original_source/repotoire-cli/src/detectors/insecure_cookie.rs.
type InsecureCookieDetector struct{}

func NewInsecureCookieDetector() *InsecureCookieDetector { return &InsecureCookieDetector{} }
func (d *InsecureCookieDetector) Name() string            { return "InsecureCookieDetector" }
func (d *InsecureCookieDetector) Category() graphmodel.Category {
	return graphmodel.CategorySecurity
}

var insecureCookiePattern = regexp.MustCompile(`(?i)(set.cookie|cookie\s*=|res\.cookie|response\.set_cookie|setcookie|\.cookies\[)`)
var cookieSessionMarkers = []string{"session", "auth", "token", "jwt"}

func (d *InsecureCookieDetector) Detect(graph detect.GraphQuery, files fileprovider.Provider) ([]graphmodel.Finding, error) {
	return scanRegexFinding(d.Name(), d.Category(), files, webFiles(files), insecureCookiePattern, func(path string, lineNo int, line string) *graphmodel.Finding {
		lower := strings.ToLower(line)
		if strings.Contains(lower, "httponly") && strings.Contains(lower, "secure") {
			return nil
		}
		severity := graphmodel.SeverityMedium
		for _, m := range cookieSessionMarkers {
			if strings.Contains(lower, m) {
				severity = graphmodel.SeverityHigh
				break
			}
		}
		f := newFinding(d.Name(), d.Category(), severity,
			"Cookie set without Secure/HttpOnly attributes",
			"Cookie is missing Secure and/or HttpOnly flags, making it readable by scripts or sendable over plain HTTP.",
			[]string{path}, lineNo, lineNo)
		f.CWEID = "CWE-614"
		f.Description += " " + "Set Secure, HttpOnly, and SameSite=Strict/Lax on session and auth cookies."
		return &f
	}), nil
}

// InsecureDeserializeDetector flags deserialization of untyped/untrusted
// data via unsafe sinks, grounded on
// original_source/repotoire-cli/src/detectors/insecure_deserialize.rs.
type InsecureDeserializeDetector struct{}

func NewInsecureDeserializeDetector() *InsecureDeserializeDetector {
	return &InsecureDeserializeDetector{}
}
func (d *InsecureDeserializeDetector) Name() string { return "InsecureDeserializeDetector" }
func (d *InsecureDeserializeDetector) Category() graphmodel.Category {
	return graphmodel.CategorySecurity
}

var insecureDeserializePattern = regexp.MustCompile(`(?i)(JSON\.parse|yaml\.load|yaml\.unsafe_load|unserialize|ObjectInputStream|Marshal\.load|pickle\.loads)`)

func (d *InsecureDeserializeDetector) Detect(graph detect.GraphQuery, files fileprovider.Provider) ([]graphmodel.Finding, error) {
	return scanRegexFinding(d.Name(), d.Category(), files, webFiles(files), insecureDeserializePattern, func(path string, lineNo int, line string) *graphmodel.Finding {
		severity := graphmodel.SeverityMedium
		if hasUserInputMarker(line) {
			severity = graphmodel.SeverityHigh
		}
		f := newFinding(d.Name(), d.Category(), severity,
			"Insecure deserialization",
			"Untrusted data deserialized via a sink that can construct arbitrary objects or execute code.",
			[]string{path}, lineNo, lineNo)
		f.CWEID = "CWE-502"
		f.Description += " " + "Use a safe-load variant (yaml.safe_load, a typed JSON schema) and never deserialize untrusted byte streams directly into live objects."
		return &f
	}), nil
}
