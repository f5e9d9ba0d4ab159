// @title           Todo API
// @version         1.0
// @description     Todo list backend: create, list, search, update, finish and delete todos.
// @host            localhost:8080
// @BasePath        /
package main

import (
	"os"

	_ "Todo/docs"

	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

var configPath string

var rootCmd = &cobra.Command{
	Use:          "todo-api",
	Short:        "Todo list HTTP backend",
	SilenceUsage: true,
	RunE:         runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (toml, yaml or json)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
