package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/input-output-hk/catalyst-forge-libs/reposync/apply"
	"github.com/input-output-hk/catalyst-forge-libs/reposync/config"
	"github.com/input-output-hk/catalyst-forge-libs/reposync/domain"
	"github.com/input-output-hk/catalyst-forge-libs/reposync/errors"
	"github.com/input-output-hk/catalyst-forge-libs/reposync/git"
	"github.com/input-output-hk/catalyst-forge-libs/reposync/report"
	"github.com/input-output-hk/catalyst-forge-libs/reposync/workflow"
)

const usage = `Usage:
  reposync [run] [--config PATH] [--repo PATH]... [--pull-only|--push]
                 [--include-untracked|--tracked-only] [--side-channel|--no-side-channel]
                 [--output text|json|yaml] [--verbose]
  reposync apply [--config PATH] [--repo PATH] [--method merge|cherry-pick|squash]
                 [--output text|json|yaml] [--verbose]
`

// repoList collects repeated --repo flags.
type repoList []string

func (r *repoList) String() string { return strings.Join(*r, ",") }

func (r *repoList) Set(v string) error {
	*r = append(*r, v)
	return nil
}

// common holds the flags shared by every subcommand.
type common struct {
	configPath string
	output     string
	verbose    bool
}

func (c *common) register(fs *flag.FlagSet) {
	fs.StringVar(&c.configPath, "config", "", "configuration file (default "+config.DefaultPath()+")")
	fs.StringVar(&c.output, "output", string(report.FormatText), "output format: text, json or yaml")
	fs.BoolVar(&c.verbose, "verbose", false, "log every git invocation")
}

func (c *common) logger(stderr io.Writer) zerolog.Logger {
	level := zerolog.InfoLevel
	if c.verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: stderr}).
		Level(level).
		With().
		Timestamp().
		Str("run", uuid.NewString()).
		Logger()
}

// execute runs the command line args and returns the process exit status.
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := "run"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		cmd, args = args[0], args[1:]
	}

	switch cmd {
	case "run":
		return runCommand(ctx, args, stdout, stderr)
	case "apply":
		return applyCommand(ctx, args, stdout, stderr)
	case "help":
		fmt.Fprint(stdout, usage)
		return report.ExitClean
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", cmd, usage)
		return report.ExitUsage
	}
}

func newFlagSet(name string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { fmt.Fprint(stderr, usage) }
	return fs
}

func runCommand(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	var (
		opts      common
		repos     repoList
		overrides config.Overrides
	)

	fs := newFlagSet("run", stderr)
	opts.register(fs)
	fs.Var(&repos, "repo", "repository to process (repeatable, default: configured repositories)")
	fs.BoolVar(&overrides.PullOnly, "pull-only", false, "pull without committing or pushing")
	fs.BoolVar(&overrides.Push, "push", false, "commit and push even when default_mode is pull_only")
	fs.BoolVar(&overrides.IncludeUntracked, "include-untracked", false, "stage untracked files")
	fs.BoolVar(&overrides.TrackedOnly, "tracked-only", false, "stage tracked files only")
	fs.BoolVar(&overrides.SideChannel, "side-channel", false, "publish through the side channel")
	fs.BoolVar(&overrides.NoSideChannel, "no-side-channel", false, "commit directly on the current branch")
	if err := fs.Parse(args); err != nil {
		return usageStatus(err)
	}
	if fs.NArg() > 0 {
		return usageError(stderr, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " ")))
	}

	format, err := report.ParseFormat(opts.output)
	if err != nil {
		return usageError(stderr, err)
	}
	if err := overrides.Validate(); err != nil {
		return usageError(stderr, err)
	}

	file, err := config.LoadOrDefault(opts.configPath)
	if err != nil {
		return usageError(stderr, err)
	}

	paths := []string(repos)
	if len(paths) == 0 {
		paths = file.EnabledPaths()
	}
	if len(paths) == 0 {
		return usageError(stderr, errors.New(errors.CodeInvalidInput,
			"no repositories: pass --repo or list repositories in the configuration"))
	}

	logger := opts.logger(stderr)
	ctx = logger.WithContext(ctx)

	targets, invalid, total := openTargets(paths)
	cfgs, err := config.Resolve(file, overrides, targets)
	if err != nil {
		return usageError(stderr, err)
	}

	orch := workflow.New(git.NewCLI(git.WithLogger(logger)), workflow.WithLogger(logger))
	outcomes := merge(total, invalid, orch.Run(ctx, cfgs))

	run := report.Aggregate(outcomes)
	if err := report.Write(stdout, run, format); err != nil {
		logger.Error().Err(err).Msg("failed to write report")
		return report.ExitFailed
	}
	return report.ExitStatus(run)
}

func applyCommand(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	var (
		opts   common
		repo   string
		method string
	)

	fs := newFlagSet("apply", stderr)
	opts.register(fs)
	fs.StringVar(&repo, "repo", "", "repository to apply into (default: current directory)")
	fs.StringVar(&method, "method", string(domain.MethodMerge), "merge, cherry-pick or squash")
	if err := fs.Parse(args); err != nil {
		return usageStatus(err)
	}
	if fs.NArg() > 0 {
		return usageError(stderr, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " ")))
	}

	format, err := report.ParseFormat(opts.output)
	if err != nil {
		return usageError(stderr, err)
	}
	m, err := domain.ParseApplyMethod(method)
	if err != nil {
		return usageError(stderr, err)
	}

	file, err := config.LoadOrDefault(opts.configPath)
	if err != nil {
		return usageError(stderr, err)
	}

	if repo == "" {
		if repo, err = os.Getwd(); err != nil {
			return usageError(stderr, err)
		}
	}
	target, err := git.OpenTarget(repo)
	if err != nil {
		return usageError(stderr, err)
	}

	logger := opts.logger(stderr)
	ctx = logger.With().Str("repo", target.Path).Logger().WithContext(ctx)

	engine := apply.NewEngine(git.NewCLI(git.WithLogger(logger)))
	out := engine.Apply(ctx, domain.ApplyRequest{
		Target: target,
		Method: m,
		Ref:    config.ApplySideChannel(file, target).Ref(),
	})

	if err := writeApply(stdout, out, format); err != nil {
		logger.Error().Err(err).Msg("failed to write report")
		return report.ExitFailed
	}
	if out.Failed() {
		return report.ExitFailed
	}
	return report.ExitClean
}

// openTargets canonicalizes paths and drops repeated targets, keeping the
// first occurrence. Paths that are not working copies are returned as failed
// outcomes keyed by their position; total counts the remaining entries.
func openTargets(paths []string) (targets []domain.RepositoryTarget, invalid map[int]domain.RepoOutcome, total int) {
	invalid = make(map[int]domain.RepoOutcome)
	seen := make(map[string]bool, len(paths))
	for _, p := range paths {
		target, err := git.OpenTarget(p)
		if err != nil {
			key := p
			if abs, absErr := filepath.Abs(p); absErr == nil {
				key = abs
			}
			if seen[key] {
				continue
			}
			seen[key] = true
			invalid[total] = domain.RepoOutcome{
				Target:  domain.RepositoryTarget{Path: p},
				Status:  domain.StatusFailed,
				Kind:    errors.CodeInvalidInput,
				Detail:  err.Error(),
				Message: "not a git working copy",
			}
			total++
			continue
		}
		if seen[target.Path] {
			continue
		}
		seen[target.Path] = true
		targets = append(targets, target)
		total++
	}
	return targets, invalid, total
}

// merge interleaves invalid-target outcomes with workflow outcomes in input order.
func merge(total int, invalid map[int]domain.RepoOutcome, outcomes []domain.RepoOutcome) []domain.RepoOutcome {
	merged := make([]domain.RepoOutcome, 0, total)
	next := 0
	for i := 0; i < total; i++ {
		if o, ok := invalid[i]; ok {
			merged = append(merged, o)
			continue
		}
		if next < len(outcomes) {
			merged = append(merged, outcomes[next])
			next++
		}
	}
	return merged
}

func writeApply(w io.Writer, out domain.ApplyOutcome, format report.Format) error {
	switch format {
	case report.FormatJSON, report.FormatYAML:
		return report.WriteApplyStructured(w, out, format)
	default:
		return report.WriteApply(w, out)
	}
}

func usageStatus(err error) int {
	if err == flag.ErrHelp {
		return report.ExitClean
	}
	return report.ExitUsage
}

func usageError(stderr io.Writer, err error) int {
	fmt.Fprintf(stderr, "reposync: %v\n", err)
	return report.ExitUsage
}
