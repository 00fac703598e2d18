package main

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/bitfantasy/nimo-pdm/internal/pdm/apiclient"
	"github.com/bitfantasy/nimo-pdm/internal/pdm/selection"
)

var (
	cliConfig = viper.New()

	rootCmd = &cobra.Command{
		Use:           "pdmctl",
		Short:         "Command line client for the nimo-pdm service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("server", "http://localhost:8080", "service base URL (env PDM_SERVER)")
	flags.String("token", "", "bearer token (env PDM_TOKEN)")
	flags.Bool("verbose", false, "debug logging")
	flags.Duration("timeout", 5*time.Minute, "request timeout, covers uploads and downloads (env PDM_TIMEOUT)")
	flags.Bool("sorted", false, "order sibling assemblies by name (env PDM_SORTED)")
	flags.Int("page-size", selection.TreePageSize, "tree list page size (env PDM_PAGE_SIZE)")
	flags.Int("project-page-size", selection.ProjectPageSize, "project list page size (env PDM_PROJECT_PAGE_SIZE)")
	_ = cliConfig.BindPFlags(flags)
	cliConfig.SetEnvPrefix("PDM")
	cliConfig.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	cliConfig.AutomaticEnv()

	rootCmd.AddCommand(
		newProjectsCmd(),
		newProjectCmd(),
		newTreeCmd(),
		newDocsCmd(),
		newDownloadCmd(),
		newDeleteCmd(),
		newDeleteDocCmd(),
		newAssemblyCmd(),
		newPartCmd(),
		newSelectProjectCmd(),
		newTokenCmd(),
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newLogger() *zap.Logger {
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	if cliConfig.GetBool("verbose") {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// pageConfig 命令行/环境变量中的分页大小
func pageConfig() selection.Config {
	return selection.Config{
		TreePageSize:    cliConfig.GetInt("page-size"),
		ProjectPageSize: cliConfig.GetInt("project-page-size"),
	}
}

func newClient(logger *zap.Logger) *apiclient.Client {
	return apiclient.New(strings.TrimRight(cliConfig.GetString("server"), "/"),
		apiclient.WithToken(cliConfig.GetString("token")),
		apiclient.WithHTTPClient(&http.Client{Timeout: cliConfig.GetDuration("timeout")}),
		apiclient.WithLogger(logger))
}
