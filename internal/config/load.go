package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/afero"
	"github.com/spf13/viper"

	"github.com/satishbabariya/dbexec/pkg/dberr"
)

// AppFs is the filesystem configuration and dotenv files are read from.
var AppFs = afero.NewOsFs()

const (
	configName = ".dbexec"
	envPrefix  = "DBEXEC"
	configPath = "config"
)

// Load reads backend configurations. When file is empty the config is
// searched for in the working directory, $HOME and $HOME/.config/dbexec;
// a missing file there is not an error, but an empty registry is.
//
// Every key can be overridden from the environment, e.g.
// DBEXEC_DATABASES_MAIN_HOST or DBEXEC_DEFAULT. Backend names are
// case-insensitive.
func Load(file string) (*Registry, error) {
	if err := loadDotenv(); err != nil {
		return nil, dberr.Wrap(dberr.KindConfiguration, configPath, err)
	}

	v := viper.New()
	v.SetFs(AppFs)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			return nil, dberr.Wrap(dberr.KindConfiguration, configPath, err)
		}
		v.SetConfigName(configName)
		v.AddConfigPath(".")
		v.AddConfigPath(home)
		v.AddConfigPath(filepath.Join(home, ".config", "dbexec"))
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, dberr.Wrap(dberr.KindConfiguration, configPath, err)
		}
	}

	return registryFrom(v)
}

func registryFrom(v *viper.Viper) (*Registry, error) {
	section := v.GetStringMap("databases")
	if len(section) == 0 {
		return nil, dberr.New(dberr.KindConfiguration, configPath, "no databases configured")
	}

	backends := make([]Backend, 0, len(section))
	for name := range section {
		key := "databases." + name + "."

		// An unknown dialect is kept as written and rejected when the
		// backend is used, so one bad entry does not disable the others.
		raw := v.GetString(key + "dialect")
		dialect, err := ParseDialect(raw)
		if err != nil {
			dialect = Dialect(strings.ToLower(raw))
		}

		backends = append(backends, Backend{
			Name:     name,
			Dialect:  dialect,
			Host:     v.GetString(key + "host"),
			Port:     v.GetInt(key + "port"),
			Database: v.GetString(key + "database"),
			User:     v.GetString(key + "user"),
			Password: v.GetString(key + "pass"),
			Encoding: v.GetString(key + "encoding"),
			Options:  v.GetStringMapString(key + "options"),
		})
	}

	def := strings.ToLower(v.GetString("default"))
	if def != "" {
		if _, ok := section[def]; !ok {
			return nil, dberr.Newf(dberr.KindConfiguration, configPath, "default backend %q is not configured", def)
		}
	}
	return NewRegistry(def, backends...), nil
}

// loadDotenv applies .env and then .env.local from AppFs. Variables already
// in the environment win over .env; .env.local overrides both.
func loadDotenv() error {
	if err := applyDotenv(".env", false); err != nil {
		return err
	}
	return applyDotenv(".env.local", true)
}

func applyDotenv(name string, override bool) error {
	f, err := AppFs.Open(name)
	if err != nil {
		return nil
	}
	defer f.Close()

	vars, err := godotenv.Parse(f)
	if err != nil {
		return fmt.Errorf("parse %s: %w", name, err)
	}
	for k, val := range vars {
		if _, set := os.LookupEnv(k); set && !override {
			continue
		}
		if err := os.Setenv(k, val); err != nil {
			return err
		}
	}
	return nil
}
