package cmd

import (
	"pinyinhub/server"

	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "启动PinyinHub服务器",
	Long:  `启动PinyinHub歌词目录的HTTP服务器，提供API服务和静态歌词页面`,
	Run: func(cmd *cobra.Command, args []string) {
		server.Start()
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
