package cmd

import (
	"fmt"
	"log"
	"os"

	"pinyinhub/server"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "pinyinhub",
	Short: "PinyinHub is a bilingual Chinese song lyrics catalog.",
	Run: func(cmd *cobra.Command, args []string) {
		log.Println("Starting PinyinHub server...")
		server.Start()
	},
}

// Execute executes the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
