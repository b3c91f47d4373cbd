package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/l3aro/divergence-lint/internal/config"
	"github.com/l3aro/divergence-lint/internal/diag"
	"github.com/l3aro/divergence-lint/internal/log"
	"github.com/l3aro/divergence-lint/internal/scanner"
	"github.com/l3aro/divergence-lint/pkg/dirty"
	"github.com/l3aro/divergence-lint/pkg/linter"
)

var lintCmd = &cobra.Command{
	Use:   "lint <in_file>",
	Short: "Lint a module for derivatives under non-uniform control flow",
	Long: `Lints a binary shader IR module and reports, for every function, any
derivative-taking instruction that executes under non-uniform control
flow, along with the chain of reasoning that makes it non-uniform.

With --dir, in_file is instead a directory: every *.dlmod file under it
is linted, and modules whose content hasn't changed since the last run
are skipped.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
			log.Default().SetLevel(log.DebugLevel)
		}
		dir, _ := cmd.Flags().GetBool("dir")
		if dir {
			return runLintDir(args[0])
		}
		return runLint(args[0])
	},
}

func init() {
	lintCmd.Flags().Bool("verbose", false, "Trace internal progress on stderr")
	lintCmd.Flags().Bool("dir", false, "Treat in_file as a directory and lint every module under it")
}

// lintDiagnostic mirrors the original tool's stderr consumer: error-level
// messages get an "error: " prefix, everything else is printed as-is.
func lintDiagnostic(level diag.Level, source string, position diag.Position, message string) {
	if level == diag.LevelError {
		fmt.Fprint(os.Stderr, "error: ")
	}
	fmt.Fprintln(os.Stderr, message)
}

func runLint(inFile string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := log.Default()
	if cfg.Verbose {
		logger.SetLevel(log.DebugLevel)
	}

	words, hash, err := readWordsAndHash(inFile)
	if err != nil {
		lintDiagnostic(diag.LevelError, "", diag.Position{}, err.Error())
		os.Exit(1)
	}
	logger.Debug("decoded module", "words", len(words))

	verdicts := loadVerdictCache()
	if v, found := lookupVerdict(verdicts, hash); found {
		logger.Debug("reusing cached lint verdict", "hash", hash)
		replayVerdict(v, lintDiagnostic)
		if !v.OK {
			os.Exit(1)
		}
		return nil
	}

	var buf diag.Buffer
	l := linter.New()
	l.SetConfig(cfg)
	l.SetMessageConsumer(func(level diag.Level, source string, position diag.Position, message string) {
		buf.Consume(level, source, position, message)
		lintDiagnostic(level, source, position, message)
	})

	ok := l.Run(words)
	storeVerdict(verdicts, hash, cachedVerdict{OK: ok, Messages: buf.Messages})
	if err := saveVerdictCache(verdicts); err != nil {
		logger.Debug("could not persist lint verdict cache", "error", err.Error())
	}
	if !ok {
		os.Exit(1)
	}
	return nil
}

// runLintDir lints every module file found under root, skipping ones
// whose content hasn't changed since the tracker last saw them.
func runLintDir(root string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := log.Default()
	if cfg.Verbose {
		logger.SetLevel(log.DebugLevel)
	}

	files, err := scanner.Scan(root)
	if err != nil {
		return fmt.Errorf("scanning %s: %w", root, err)
	}

	tracker, err := dirty.NewFromCache()
	if err != nil {
		tracker = dirty.New()
	}
	verdicts := loadVerdictCache()

	ok := true
	for _, f := range files {
		changed, err := tracker.CheckAndMark(f.FullPath)
		if err != nil {
			lintDiagnostic(diag.LevelError, "", diag.Position{}, err.Error())
			ok = false
			continue
		}
		if !changed {
			logger.Debug("skipping unchanged module", "path", f.Path)
			continue
		}

		words, hash, err := readWordsAndHash(f.FullPath)
		if err != nil {
			lintDiagnostic(diag.LevelError, "", diag.Position{}, fmt.Sprintf("%s: %s", f.Path, err))
			ok = false
			continue
		}

		if v, found := lookupVerdict(verdicts, hash); found {
			logger.Debug("reusing cached lint verdict", "path", f.Path, "hash", hash)
			replayVerdict(v, lintDiagnostic)
			if !v.OK {
				ok = false
			}
			continue
		}

		var buf diag.Buffer
		l := linter.New()
		l.SetConfig(cfg)
		l.SetMessageConsumer(func(level diag.Level, source string, position diag.Position, message string) {
			buf.Consume(level, source, position, message)
			lintDiagnostic(level, source, position, message)
		})
		fileOK := l.Run(words)
		storeVerdict(verdicts, hash, cachedVerdict{OK: fileOK, Messages: buf.Messages})
		if !fileOK {
			ok = false
		}
	}

	if err := tracker.Save(); err != nil {
		logger.Debug("could not persist dirty tracker state", "error", err.Error())
	}
	if err := saveVerdictCache(verdicts); err != nil {
		logger.Debug("could not persist lint verdict cache", "error", err.Error())
	}

	if !ok {
		os.Exit(1)
	}
	return nil
}
