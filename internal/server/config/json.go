package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/accountkeeper/internal/flagx"
	"github.com/dmitrijs2005/accountkeeper/internal/timex"
)

// JsonConfig defines a configuration structure tailored for JSON unmarshalling.
// It uses timex.Duration for interval fields, which allows parsing both
// string values such as "5s" and integer nanoseconds.
//
// This struct is an intermediate DTO used only for reading JSON configuration
// files. After unmarshalling, its fields are copied into the runtime Config
// struct which uses time.Duration.
type JsonConfig struct {
	BotToken         string         `json:"bot_token"`
	AdminChatID      int64          `json:"admin_chat_id"`
	StoreBackend     string         `json:"store_backend"`
	StorePath        string         `json:"store_path"`
	DatabaseDSN      string         `json:"database_dsn"`
	AuthorityTimeout timex.Duration `json:"authority_timeout"`
	ExecTimeout      timex.Duration `json:"exec_timeout"`
	ExecAllowList    []string       `json:"exec_allow_list"`
	S3RootUser       string         `json:"s3_root_user"`
	S3RootPassword   string         `json:"s3_root_password"`
	S3Bucket         string         `json:"s3_bucket"`
	S3Region         string         `json:"s3_region"`
	S3BaseEndpoint   string         `json:"s3_base_endpoint"`
	BackupInterval   timex.Duration `json:"backup_interval"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance.
//
// The lookup order for the JSON file path is:
//
//	The -c or -config command-line flags.
//	If it is not set, no JSON file is loaded.
//
// If the file path is found, parseJson attempts to read and unmarshal it
// into a JsonConfig. The resulting values are copied into the target Config.
// If the file cannot be read or contains invalid JSON, the function panics.
func parseJson(config *Config) {

	// try flags
	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	err = json.Unmarshal(file, c)
	if err != nil {
		panic(err)
	}

	config.BotToken = c.BotToken
	config.AdminChatID = c.AdminChatID
	config.StoreBackend = c.StoreBackend
	config.StorePath = c.StorePath
	config.DatabaseDSN = c.DatabaseDSN
	config.AuthorityTimeout = time.Duration(c.AuthorityTimeout.Duration)
	config.ExecTimeout = time.Duration(c.ExecTimeout.Duration)
	config.ExecAllowList = c.ExecAllowList
	config.S3RootUser = c.S3RootUser
	config.S3RootPassword = c.S3RootPassword
	config.S3Bucket = c.S3Bucket
	config.S3Region = c.S3Region
	config.S3BaseEndpoint = c.S3BaseEndpoint
	config.BackupInterval = time.Duration(c.BackupInterval.Duration)
}
