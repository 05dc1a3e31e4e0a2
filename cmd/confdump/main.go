// Command confdump builds a configuration from the sources named on the
// command line and prints the merged tree as JSON.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/dymexjs/config/config"
	"github.com/dymexjs/config/logger"
	"github.com/dymexjs/config/resolvers"
	"github.com/spf13/cobra"
)

type options struct {
	sources   []string
	secretsID string
	noExpand  bool
	noCoerce  bool
	section   string
	resolve   bool
	verbose   bool
}

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "confdump",
		Short: "Print a layered configuration as JSON",
		Long: `confdump builds a configuration from the sources given with --source,
in order, and prints the result. Later sources win on conflicting keys.

Source kinds:
  env:PREFIX         environment variables starting with PREFIX
  nestedenv:PREFIX   PREFIX_A__B=v becomes {"a": {"b": "v"}}
  json:PATH          JSON file
  file:PATH          JSON, YAML or TOML file, by extension
  envfile:PATH       KEY=value file
  secrets:ID         user secrets file for ID`,
		Example:      `  confdump --source json:config.json --source envfile:.env --source env:APP_`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), out, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringArrayVarP(&opts.sources, "source", "s", nil, "source as kind:arg, repeatable")
	flags.StringVar(&opts.secretsID, "secrets-id", "", "add the user secrets source for this id last")
	flags.BoolVar(&opts.noExpand, "no-expand", false, "disable ${VAR} expansion")
	flags.BoolVar(&opts.noCoerce, "no-coerce", false, "keep expanded values as strings")
	flags.StringVar(&opts.section, "section", "", "print only the section at this path")
	flags.BoolVar(&opts.resolve, "resolve", false, "resolve @file:// style references and {{ }} expressions")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "log build progress to stderr")

	return cmd
}

func run(ctx context.Context, out io.Writer, opts *options) error {
	if ctx == nil {
		ctx = context.Background()
	}

	b := config.NewBuilder()
	if opts.verbose {
		b.WithLogger(logger.NewDefaultLogger("confdump"))
	}
	if opts.resolve {
		b.WithResolvers(
			resolvers.NewURIResolver("@", "://"),
			resolvers.NewExpressionResolver("", ""),
		)
	}

	srcOpts := []config.SourceOption{
		config.WithExpansion(!opts.noExpand),
		config.WithCoercion(!opts.noCoerce),
	}

	for _, entry := range opts.sources {
		if err := addSource(b, entry, srcOpts); err != nil {
			return err
		}
	}
	if opts.secretsID != "" {
		if err := addSource(b, "secrets:"+opts.secretsID, srcOpts); err != nil {
			return err
		}
	}

	cfg, err := b.Build(ctx)
	if err != nil {
		return err
	}
	if opts.section != "" {
		cfg, err = cfg.RequiredSection(opts.section)
		if err != nil {
			return err
		}
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(cfg.Plain())
}

func addSource(b *config.Builder, entry string, opts []config.SourceOption) error {
	kind, arg, _ := strings.Cut(entry, ":")

	switch config.SourceType(kind) {
	case config.SourceTypeEnv:
		var prefixes []string
		if arg != "" {
			prefixes = strings.Split(arg, ",")
		}
		return config.WithEnvVariables(b, prefixes, opts...)
	case config.SourceTypeNestedEnv:
		return config.WithNestedEnv(b, arg, "", opts...)
	case config.SourceTypeJSONFile:
		return config.WithJSONFile(b, arg, opts...)
	case config.SourceTypeFile:
		return config.WithFile(b, arg, opts...)
	case config.SourceTypeEnvFile:
		return config.WithEnvFile(b, arg, opts...)
	case config.SourceTypeSecrets:
		return config.WithUserSecrets(b, arg, "", opts...)
	}
	return fmt.Errorf("unknown source kind %q in %q", kind, entry)
}
