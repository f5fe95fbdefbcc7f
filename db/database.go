package db

import (
	"database/sql"
	"fmt"
	"log"

	"pinyinhub/config"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
)

var DB *sql.DB

// ConnectDB establishes a connection to the database.
func ConnectDB(cfg *config.Config) error {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true",
		cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName)

	var err error
	DB, err = sql.Open("mysql", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database connection: %w", err)
	}

	if err = DB.Ping(); err != nil {
		DB.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	log.Println("Successfully connected to the database.")
	return nil
}

// InitDB initializes the database schema, creating tables if they don't
// exist. The users table is migrated separately through GORM.
func InitDB() error {
	if err := createSongsTable(); err != nil {
		return err
	}
	log.Println("Database initialization completed.")
	return nil
}

// songsTableDDL declares the songs table. id and user_id are BIGINT so
// the foreign key lines up with users.id, which GORM migrates from an
// int64 field as bigint; MySQL rejects foreign keys between integer
// columns of different sizes.
const songsTableDDL = `
	CREATE TABLE IF NOT EXISTS songs (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		user_id BIGINT NOT NULL,
		title VARCHAR(255) NOT NULL,
		title_chinese VARCHAR(255),
		artist VARCHAR(255) NOT NULL,
		artist_chinese VARCHAR(255),
		lyrics TEXT NOT NULL,
		simplified_lyrics TEXT,
		pinyin_lyrics JSON,
		english_lyrics JSON,
		genre VARCHAR(32),
		youtube_link VARCHAR(512),
		spotify_link VARCHAR(512),
		views INT NOT NULL DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		CONSTRAINT fk_user_songs FOREIGN KEY (user_id) REFERENCES users(id),
		INDEX idx_songs_created_at (created_at),
		INDEX idx_songs_artist (artist),
		INDEX idx_songs_views (views)
	) CHARACTER SET utf8mb4;
	`

func createSongsTable() error {
	if _, err := DB.Exec(songsTableDDL); err != nil {
		return fmt.Errorf("failed to create songs table: %w", err)
	}
	log.Println("Songs table initialized successfully (or already exists).")
	return nil
}
