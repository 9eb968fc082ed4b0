/*
 *    Copyright 2023 iFood
 *
 *    Licensed under the Apache License, Version 2.0 (the "License");
 *    you may not use this file except in compliance with the License.
 *    You may obtain a copy of the License at
 *
 *      http://www.apache.org/licenses/LICENSE-2.0
 *
 *    Unless required by applicable law or agreed to in writing, software
 *    distributed under the License is distributed on an "AS IS" BASIS,
 *    WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 *    See the License for the specific language governing permissions and
 *    limitations under the License.
 */

package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	defaultPort               = 3000
	defaultMaxRequestSize     = 1048576
	defaultMaxBytes           = 4000000000
	defaultWorkers            = 1
	defaultRefreshInterval    = time.Hour
	defaultMirrorSyncInterval = 3 * time.Hour
	defaultMirrorHourlyLimit  = 2
	defaultAWSMaxConnections  = 64
	defaultAWSMaxRetries      = 3
)

type AppConfig struct {
	Aws          AWS
	Workspace    Workspace
	Scanner      Scanner
	Definitions  Definitions
	Redis        Redis
	Notification Notification
	HTTPServer   HTTPServer
}

type HTTPServer struct {
	AuthorizationKeys []string
	Profiler          bool
	Metrics           bool
	MaxRequestSize    int `validate:"gt=0"`
	Port              int `validate:"gt=0,lte=65535"`
}

type AWS struct {
	Queue       string
	Region      string `validate:"required"`
	Resolver    string
	ResultTopic string
	// Connections per AWS host shared by the S3 downloader, tagging calls, SQS and SNS.
	MaxConnections int `validate:"gte=1"`
	MaxRetries     int `validate:"gte=0"`
}

type Workspace struct {
	MountPath string `validate:"required"`
	// Relative to MountPath.
	DefinitionsPath string `validate:"required"`
}

type Scanner struct {
	MaxBytes        int64  `validate:"gt=0"`
	ScanCommand     string `validate:"required"`
	ExtractCommand  string `validate:"required"`
	UpdateCommand   string `validate:"required"`
	FreshclamConfig string `validate:"required"`
	// User the update tool drops privileges to. Empty keeps the current user.
	RunAs    string
	Workers  int `validate:"gte=1"`
	DebugLog bool
}

type Definitions struct {
	MirrorURL       string `validate:"required"`
	RefreshInterval time.Duration

	// The mirror sync only runs when a bucket is set.
	MirrorBucket       string
	MirrorPrefix       string
	MirrorScratchDir   string
	MirrorSyncInterval time.Duration
	MirrorHourlyLimit  int
}

type Redis struct {
	URL      string
	Password string
	UseTLS   bool
}

type Notification struct {
	Slack Slack
}

type Slack struct {
	ChannelID string
	Webhook   string
}

func NewConfig() *AppConfig {
	return &AppConfig{
		Aws: AWS{
			Region:         "us-east-1",
			MaxConnections: defaultAWSMaxConnections,
			MaxRetries:     defaultAWSMaxRetries,
		},
		Workspace: Workspace{
			MountPath:       "/mnt/scan",
			DefinitionsPath: "defs",
		},
		Scanner: Scanner{
			MaxBytes:        defaultMaxBytes,
			ScanCommand:     "clamscan",
			ExtractCommand:  "7za",
			UpdateCommand:   "freshclam",
			FreshclamConfig: "/tmp/freshclam.conf",
			Workers:         defaultWorkers,
		},
		Definitions: Definitions{
			RefreshInterval:    defaultRefreshInterval,
			MirrorScratchDir:   "/tmp/definitions-mirror",
			MirrorSyncInterval: defaultMirrorSyncInterval,
			MirrorHourlyLimit:  defaultMirrorHourlyLimit,
		},
		HTTPServer: HTTPServer{
			Port:           defaultPort,
			MaxRequestSize: defaultMaxRequestSize,
		},
	}
}

// DefinitionsDir is where the scan engine reads its definitions from.
func (c AppConfig) DefinitionsDir() string {
	return filepath.Join(c.Workspace.MountPath, c.Workspace.DefinitionsPath)
}

func validateConfig(config AppConfig) error {
	if err := validator.New().Struct(config); err != nil {
		return fmt.Errorf("invalid configuration. %w", err)
	}

	if !filepath.IsAbs(config.Workspace.MountPath) {
		return fmt.Errorf("workspace mount path %s must be absolute", config.Workspace.MountPath)
	}

	if filepath.IsAbs(config.Workspace.DefinitionsPath) || strings.HasPrefix(filepath.Clean(config.Workspace.DefinitionsPath), "..") {
		return fmt.Errorf("definitions path %s must be relative to the mount path", config.Workspace.DefinitionsPath)
	}

	if config.Definitions.MirrorBucket != "" && config.Redis.URL == "" {
		return errors.New("no Redis URL specified, it is required to sync the definitions mirror")
	}

	if config.Definitions.MirrorBucket != "" && config.Definitions.MirrorSyncInterval <= 0 {
		return errors.New("definitions mirror sync interval must be positive")
	}

	return nil
}

// see supershal approach https://github.com/spf13/viper/issues/188
func LoadConfig() (AppConfig, error) {
	const keyDelimiter = "/"
	v := viper.NewWithOptions(viper.KeyDelimiter(keyDelimiter))

	// set default values in viper.
	// Viper needs to know if a key exists in order to override it.
	// https://github.com/spf13/viper/issues/188
	b, err := yaml.Marshal(NewConfig())
	if err != nil {
		return AppConfig{}, err
	}

	defaultConfig := bytes.NewReader(b)

	v.AddConfigPath(os.Getenv("CONFIG_DIR"))
	v.AddConfigPath("../resources/")
	v.AddConfigPath(".")
	v.AddConfigPath("/app/config/")
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	if err := v.MergeConfig(defaultConfig); err != nil {
		return AppConfig{}, err
	}

	// If file not found, return error
	if err := v.MergeInConfig(); err != nil {
		return AppConfig{}, err
	}

	// tell viper to overwrite env variables
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(keyDelimiter, "_"))
	// refresh configuration with all merged values
	config := AppConfig{}
	err = v.Unmarshal(&config)

	if err != nil {
		return AppConfig{}, err
	}

	err = validateConfig(config)
	if err != nil {
		return AppConfig{}, err
	}

	return config, nil
}
