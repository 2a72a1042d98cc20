package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("APP")
	v.AutomaticEnv()

	// Bind the secret-bearing keys explicitly so they can arrive via env
	// even when the YAML omits the keys entirely. APP_POSTGRES_DB is the
	// canonical name for the database, hence the extra alias.
	_ = v.BindEnv("postgres.user", "APP_POSTGRES_USER")
	_ = v.BindEnv("postgres.password", "APP_POSTGRES_PASSWORD")
	_ = v.BindEnv("postgres.dbname", "APP_POSTGRES_DBNAME", "APP_POSTGRES_DB")

	var config Config
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config file not found: %w", err)
	}
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := config.validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// validate rejects configs that cannot possibly reach the database.
// Secrets usually arrive via APP_POSTGRES_* env rather than the YAML file.
func (c *Config) validate() error {
	if c.Postgres.User == "" || c.Postgres.Password == "" || c.Postgres.DBName == "" {
		return errors.New("postgres user, password and dbname are required (set APP_POSTGRES_USER / APP_POSTGRES_PASSWORD / APP_POSTGRES_DB)")
	}
	return nil
}
