// Package config loads kinboard settings from defaults, an optional
// .kinboard.yaml, KINBOARD_* environment variables and command-line flags,
// in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/dukerupert/kinboard/internal/camera"
	"github.com/dukerupert/kinboard/internal/storage"
)

const (
	KeyDBPath        = "db_path"
	KeyTokenDir      = "token_dir"
	KeyLogLevel      = "log_level"
	KeyAddr          = "addr"
	KeySecret        = "secret"
	KeyManifestURL   = "manifest_url"
	KeyVersion       = "version"
	KeyCameraPath    = "camera_path"
	KeyDebounce      = "debounce"
	KeyFailurePolicy = "failure_policy"
	KeyS3Endpoint    = "s3.endpoint"
	KeyS3Bucket      = "s3.bucket"
	KeyS3Region      = "s3.region"
	KeyS3AccessKey   = "s3.access_key"
	KeyS3SecretKey   = "s3.secret_key"
	KeyS3PublicURL   = "s3.public_url"
)

// ErrNoSecret is returned when no token signing secret is configured.
var ErrNoSecret = errors.New("config: secret must be set")

type Config struct {
	DBPath        string
	TokenDir      string
	LogLevel      string
	Addr          string
	Secret        string
	ManifestURL   string
	Version       string
	CameraPath    string
	Debounce      time.Duration
	FailurePolicy storage.FailurePolicy
	S3            camera.S3Config
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(KeyDBPath, "~/.kinboard/kinboard.db")
	v.SetDefault(KeyTokenDir, "~/.kinboard/token")
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyAddr, "localhost:8080")
	v.SetDefault(KeyVersion, "dev")
	v.SetDefault(KeyDebounce, "500ms")
	v.SetDefault(KeyFailurePolicy, "retain")
	v.SetDefault(KeyS3Region, "auto")
}

// Load reads the configuration. Files are looked up in dir (if set), the
// working directory and the home directory. A missing file is not an
// error. flags, when non-nil, override everything else.
func Load(dir string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigName(".kinboard")
	v.SetEnvPrefix("KINBOARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if dir != "" {
		v.AddConfigPath(dir)
	}
	v.AddConfigPath("./")
	if home, err := homedir.Dir(); err == nil {
		v.AddConfigPath(home)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	if flags != nil {
		if err := bindFlags(v, flags); err != nil {
			return nil, err
		}
	}
	return fromViper(v)
}

// bindFlags binds every flag whose name, with dashes as underscores,
// matches a configuration key.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	var err error
	flags.VisitAll(func(f *pflag.Flag) {
		if err != nil {
			return
		}
		key := strings.ReplaceAll(f.Name, "-", "_")
		if bindErr := v.BindPFlag(key, f); bindErr != nil {
			err = fmt.Errorf("bind flag %s: %w", f.Name, bindErr)
		}
	})
	return err
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		LogLevel:    v.GetString(KeyLogLevel),
		Addr:        v.GetString(KeyAddr),
		Secret:      v.GetString(KeySecret),
		ManifestURL: v.GetString(KeyManifestURL),
		Version:     v.GetString(KeyVersion),
		S3: camera.S3Config{
			Endpoint:  v.GetString(KeyS3Endpoint),
			Bucket:    v.GetString(KeyS3Bucket),
			Region:    v.GetString(KeyS3Region),
			AccessKey: v.GetString(KeyS3AccessKey),
			SecretKey: v.GetString(KeyS3SecretKey),
			PublicURL: v.GetString(KeyS3PublicURL),
		},
	}

	var err error
	for key, dst := range map[string]*string{
		KeyDBPath:     &cfg.DBPath,
		KeyTokenDir:   &cfg.TokenDir,
		KeyCameraPath: &cfg.CameraPath,
	} {
		if *dst, err = expand(v.GetString(key)); err != nil {
			return nil, fmt.Errorf("expand %s: %w", key, err)
		}
	}

	cfg.Debounce, err = time.ParseDuration(v.GetString(KeyDebounce))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", KeyDebounce, err)
	}
	cfg.FailurePolicy, err = storage.ParseFailurePolicy(v.GetString(KeyFailurePolicy))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", KeyFailurePolicy, err)
	}
	return cfg, nil
}

func expand(path string) (string, error) {
	if path == "" || path == ":memory:" {
		return path, nil
	}
	return homedir.Expand(path)
}

// Validate checks the settings needed to sign users in.
func (c *Config) Validate() error {
	if c.Secret == "" {
		return ErrNoSecret
	}
	return nil
}

// EnsureDirs creates the directories the database and token cache live in.
func (c *Config) EnsureDirs() error {
	dirs := []string{c.TokenDir}
	if c.DBPath != "" && c.DBPath != ":memory:" {
		dirs = append(dirs, filepath.Dir(c.DBPath))
	}
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}
