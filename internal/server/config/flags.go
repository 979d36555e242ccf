package config

import (
	"flag"
	"os"
	"strings"
	"time"

	"github.com/dmitrijs2005/accountkeeper/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-t string   Telegram bot token
//	-i int      admin chat id
//	-k string   store backend ("file" or "postgres")
//	-f string   snapshot file path (file backend)
//	-d string   PostgreSQL DSN
//	-x string   comma-separated /exec allow-list
//	-u string   S3 root user
//	-p string   S3 root password
//	-b string   S3 bucket name
//	-g string   S3 region
//	-e string   S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//	-n int      backup interval, minutes
//
// Notes:
//   - The function first filters os.Args to only the flags it recognizes using
//     flagx.FilterArgs, avoiding collisions with other components.
//   - The backup interval is accepted as an integer in minutes and then
//     converted to a time.Duration value.
func parseFlags(config *Config) {
	// Filter args to include only the flags handled here.
	args := flagx.FilterArgs(os.Args[1:], []string{"-t", "-i", "-k", "-f", "-d", "-x", "-u", "-p", "-b", "-g", "-e", "-n"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.BotToken, "t", config.BotToken, "telegram bot token")
	fs.Int64Var(&config.AdminChatID, "i", config.AdminChatID, "admin chat id")
	fs.StringVar(&config.StoreBackend, "k", config.StoreBackend, "store backend (file or postgres)")
	fs.StringVar(&config.StorePath, "f", config.StorePath, "snapshot file path")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")

	execAllowList := fs.String("x", strings.Join(config.ExecAllowList, ","), "comma-separated exec allow-list")
	backupInterval := fs.Int("n", int(config.BackupInterval.Minutes()), "backup_interval (in minutes)")

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 root bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 root region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	if *execAllowList != "" {
		config.ExecAllowList = strings.Split(*execAllowList, ",")
	} else {
		config.ExecAllowList = nil
	}
	config.BackupInterval = time.Duration(*backupInterval) * time.Minute
}
