package analyzer

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/oxhq/clicov/core"
	"github.com/oxhq/clicov/coverage"
	"github.com/oxhq/clicov/discover"
	"github.com/oxhq/clicov/parser"
	"github.com/oxhq/clicov/report"
)

// Config carries every knob of one analysis run.
type Config struct {
	CLIPath         string
	TestDir         string
	IncludePatterns []string
	ExcludePatterns []string

	MaxFileSize     int64
	CacheTTL        time.Duration
	CacheMaxEntries int
	CacheDisabled   bool

	RunnerNames []string
	FailFast    bool
	Workers     int

	Logger *log.Logger
}

// Analyzer runs the full pipeline: structure discovery, test pattern
// discovery, coverage mapping and report assembly. Parse results flow
// through one cache owned by the analyzer; a fresh analyzer starts with an
// empty cache and nothing is persisted across processes.
type Analyzer struct {
	cfg    Config
	reader *core.Reader
	cache  *parser.Cache
	parser *parser.Parser
	log    *log.Logger
}

// New builds an analyzer from cfg, applying defaults for anything unset.
func New(cfg Config) *Analyzer {
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	var cache *parser.Cache
	if cfg.CacheDisabled {
		cache = parser.NewDisabledCache()
	} else {
		cache = parser.NewCache(cfg.CacheTTL, cfg.CacheMaxEntries)
	}

	return &Analyzer{
		cfg:    cfg,
		reader: core.NewReader(cfg.MaxFileSize),
		cache:  cache,
		parser: parser.New(cache),
		log:    logger,
	}
}

// Cache exposes the analyzer's parse cache for stats reporting and tests.
func (a *Analyzer) Cache() *parser.Cache { return a.cache }

// DiscoverStructure builds the CLI command tree without touching the test
// suite.
func (a *Analyzer) DiscoverStructure() (*core.CommandNode, []core.Warning, error) {
	d := discover.NewDiscoverer(a.reader, a.parser, a.log)
	return d.Discover(a.cfg.CLIPath)
}

// Analyze runs the complete analysis and assembles the report. Operational
// failures (entry file unreadable or unparseable, test dir missing) return
// an error and no report; recoverable anomalies end up in the report's
// warnings.
func (a *Analyzer) Analyze(ctx context.Context) (*report.Report, *coverage.Result, error) {
	root, warnings, err := a.DiscoverStructure()
	if err != nil {
		return nil, nil, err
	}

	td := discover.NewTestDiscoverer(a.reader, a.parser, a.log)
	if len(a.cfg.RunnerNames) > 0 {
		td.RunnerNames = a.cfg.RunnerNames
	}
	td.FailFast = a.cfg.FailFast
	td.Workers = a.cfg.Workers

	patterns, testWarnings, err := td.Discover(ctx, a.cfg.TestDir, a.cfg.IncludePatterns, a.cfg.ExcludePatterns, root)
	if err != nil {
		return nil, nil, err
	}
	warnings = append(warnings, testWarnings...)

	result := coverage.Compute(root, patterns)
	a.log.Debug("coverage computed",
		"patterns", len(patterns),
		"orphans", len(result.Orphans),
		"overall", result.Summary[coverage.CategoryOverall].Percentage)

	rep := report.Build(result, warnings, report.Metadata{
		AnalyzedAt: time.Now().UTC(),
		CLIPath:    a.cfg.CLIPath,
		TestDir:    a.cfg.TestDir,
	})
	return rep, result, nil
}
