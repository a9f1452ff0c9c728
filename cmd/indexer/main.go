package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	var root = &cobra.Command{
		Use:   "indexer",
		Short: "Build and inspect the knowledge base",
	}

	root.AddCommand(rebuildCMD(), statsCMD(), clearCMD(), listCMD(), showCMD(), searchCMD(), triggerCMD())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
