package cmd

import (
	"context"
	"log"

	"github.com/spf13/cobra"

	"pinyinhub/config"
	"pinyinhub/core/enrich"
	"pinyinhub/core/mirror"
	"pinyinhub/db"
	"pinyinhub/repository"
	"pinyinhub/storage"
)

// mirrorCmd 离线重新生成所有静态歌词页面，无需启动HTTP服务器
var mirrorCmd = &cobra.Command{
	Use:   "mirror",
	Short: "重新生成静态歌词页面",
	Long:  `扫描歌曲目录并为每首歌重写静态HTML页面，适合部署后批量刷新`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Load()

		if err := storage.InitMinio(cfg); err != nil {
			log.Fatalf("Failed to initialize MinIO: %v", err)
		}

		if err := db.ConnectDB(cfg); err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.DB.Close()

		songRepo := repository.NewMySQLSongRepository(db.DB)
		mirrorGen := mirror.NewGenerator(cfg.SongsDir, cfg.SiteBaseURL, cfg.MinioBucket)
		pipeline := enrich.NewPipeline(songRepo, nil, mirrorGen, cfg.TranslateTimeout)

		count, err := pipeline.RegenerateAllMirrors(context.Background())
		if err != nil {
			log.Fatalf("Failed to regenerate mirrors: %v", err)
		}
		log.Printf("Regenerated %d static pages under %s", count, cfg.SongsDir)
	},
}

func init() {
	rootCmd.AddCommand(mirrorCmd)
}
