package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/roach88/ftsq/internal/arbiter"
)

// EnvPrefix prefixes environment overrides, e.g. FTSQ_DB.
const EnvPrefix = "FTSQ"

// Setting keys; each is also a CLI flag of the same name.
const (
	KeyDB            = "db"
	KeyIndex         = "index"
	KeyDefinition    = "def"
	KeyFormat        = "format"
	KeyVerbose       = "verbose"
	KeyWriterTimeout = "writer-timeout"
	KeyCapacity      = "capacity"
	KeyConfig        = "config"
)

// Settings are the resolved CLI settings.
type Settings struct {
	DB            string `validate:"required"`
	Index         string `validate:"required,identifier"`
	Definition    string
	Format        string `validate:"oneof=text json"`
	Verbose       bool
	WriterTimeout time.Duration `validate:"gt=0"`
	Capacity      int           `validate:"gte=1"`
}

// SetDefaults registers the default of every setting on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyDB, "ftsq.db")
	v.SetDefault(KeyIndex, "documents")
	v.SetDefault(KeyFormat, "text")
	v.SetDefault(KeyWriterTimeout, arbiter.DefaultTimeout)
	v.SetDefault(KeyCapacity, arbiter.DefaultCapacity)
}

// Bind wires flags, FTSQ_* environment variables and the optional config
// file into v. Flags win over the environment, which wins over the file.
func Bind(v *viper.Viper, flags *pflag.FlagSet) error {
	SetDefaults(v)
	if err := v.BindPFlags(flags); err != nil {
		return fmt.Errorf("bind flags: %w", err)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if path := strings.TrimSpace(v.GetString(KeyConfig)); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("ftsq")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || v.GetString(KeyConfig) != "" {
			return fmt.Errorf("read config: %w", err)
		}
	}
	return nil
}

// Load resolves and validates the settings held by v.
func Load(v *viper.Viper) (Settings, error) {
	s := Settings{
		DB:            v.GetString(KeyDB),
		Index:         v.GetString(KeyIndex),
		Definition:    v.GetString(KeyDefinition),
		Format:        strings.ToLower(v.GetString(KeyFormat)),
		Verbose:       v.GetBool(KeyVerbose),
		WriterTimeout: v.GetDuration(KeyWriterTimeout),
		Capacity:      v.GetInt(KeyCapacity),
	}
	if err := validate.Struct(s); err != nil {
		return Settings{}, fmt.Errorf("invalid settings: %w", err)
	}
	return s, nil
}
