package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"bennypowers.dev/lesstheme/internal/cache"
	"bennypowers.dev/lesstheme/internal/compiler"
	"bennypowers.dev/lesstheme/internal/config"
	"bennypowers.dev/lesstheme/internal/log"
	"bennypowers.dev/lesstheme/internal/theme"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"
)

// EnvPrefix prefixes environment overrides, e.g. LESSTHEME_OUTPUTPATH
const EnvPrefix = "LESSTHEME"

// app holds what the commands share
type app struct {
	stdout io.Writer
	// compiler replaces lessc when set
	compiler compiler.Compiler
	// cache replaces the process-wide theme cache when set
	cache   *cache.Slot[*theme.Document]
	viper   *viper.Viper
	logFile *lumberjack.Logger
}

// configFlags maps flag names to config keys
var configFlags = map[string]string{
	"library-dir":    "librarySourceDir",
	"secondary-dir":  "secondarySourceDir",
	"own-styles-dir": "ownStylesDir",
	"variable-file":  "variableFile",
	"output":         "outputPath",
	"scoped-name":    "scopedNamePattern",
	"strict":         "strictColorOnlyMode",
	"token-file":     "tokenFiles",
	"token-prefix":   "tokenPrefix",
	"lessc":          "lessBinary",
	"primary-family": "primaryFamilies",
	"primary-var":    "primaryVariable",
}

func newRootCmd(a *app) *cobra.Command {
	a.viper = viper.New()

	cmd := &cobra.Command{
		Use:           "less-theme",
		Short:         "Extract a color-only LESS theme from a component library",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setupLogging()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logFile != nil {
				_ = a.logFile.Close()
			}
		},
	}
	cmd.SetOut(a.stdout)

	flags := cmd.PersistentFlags()
	flags.StringP("config", "c", "", "config file (.json, .jsonc, .yaml or package.json)")
	flags.String("log-level", "info", "debug, info, warn or error")
	flags.String("log-file", "", "also write logs to this rotating file")

	flags.String("library-dir", "", "component library root, e.g. node_modules/antd/lib")
	flags.String("secondary-dir", "", "optional second component library root")
	flags.String("own-styles-dir", "", "directory of the project's own stylesheets")
	flags.String("variable-file", "", "theme variable file (default <library-dir>/style/themes/default.less)")
	flags.StringP("output", "o", "", "write the theme to this file")
	flags.String("scoped-name", "", "CSS module class name pattern, e.g. [name]__[local]___[hash]")
	flags.Bool("strict", false, "keep only declarations holding a theme color")
	flags.StringSlice("token-file", nil, "design token file to overlay on the variables")
	flags.String("token-prefix", "", "prefix for design token variable names")
	flags.String("lessc", "", "LESS compiler binary")
	flags.StringSlice("primary-family", nil, "shade prefixes derived from the primary color")
	flags.String("primary-var", "", "primary color variable")

	for _, name := range []string{"config", "log-level", "log-file"} {
		_ = a.viper.BindPFlag(name, flags.Lookup(name))
	}
	for flag, key := range configFlags {
		_ = a.viper.BindPFlag(key, flags.Lookup(flag))
	}
	a.viper.SetEnvPrefix(EnvPrefix)
	a.viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.viper.AutomaticEnv()

	cmd.AddCommand(
		newGenerateCmd(a),
		newWatchCmd(a),
		newServeCmd(a),
		newVarsCmd(a),
		newRandomColorCmd(a),
		newVersionCmd(a),
	)
	return cmd
}

func (a *app) setupLogging() error {
	level, err := log.ParseLevel(a.viper.GetString("log-level"))
	if err != nil {
		return err
	}
	log.SetLevel(level)

	if path := a.viper.GetString("log-file"); path != "" {
		a.logFile = &lumberjack.Logger{
			Filename:   path,
			MaxSize:    10,
			MaxBackups: 5,
			MaxAge:     28,
		}
		log.SetOutput(io.MultiWriter(os.Stderr, a.logFile))
	}
	return nil
}

// loadConfig layers flags and environment over the config file. Without
// --config the lessTheme field of ./package.json is used when present.
func (a *app) loadConfig() (*config.Config, error) {
	base, err := a.baseConfig()
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(base)
	if err != nil {
		return nil, err
	}
	var layer map[string]any
	if err := json.Unmarshal(data, &layer); err != nil {
		return nil, err
	}
	if err := a.viper.MergeConfigMap(layer); err != nil {
		return nil, fmt.Errorf("failed to merge config: %w", err)
	}

	cfg := &config.Config{}
	if err := a.viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (a *app) baseConfig() (*config.Config, error) {
	if path := a.viper.GetString("config"); path != "" {
		return config.Load(path)
	}
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	c, err := config.LoadPackageJSON(wd)
	if err != nil {
		return nil, err
	}
	if c == nil {
		c = config.Default()
	}
	return c, nil
}

func (a *app) generator(cfg *config.Config, observer theme.Observer) *theme.Generator {
	return theme.New(cfg, theme.Options{
		Compiler: a.compiler,
		Cache:    a.cache,
		Observer: observer,
	})
}
