package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTPAddr   string `env:"HTTP_ADDR" envDefault:":8080"`
	HealthAddr string `env:"HEALTH_ADDR" envDefault:":8081"`

	AppName  string `env:"APP_NAME" envDefault:"form-builder"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	LogFile  string `env:"LOG_FILE" envDefault:"app.log"`

	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"5s"`

	Storage struct {
		Driver        string `env:"STORAGE_DRIVER" envDefault:"memory"` // memory, sqlite, mysql or mongo
		DSN           string `env:"STORAGE_DSN" envDefault:"forms.db"`
		MongoDatabase string `env:"MONGO_DATABASE" envDefault:"forms"`
	}

	Cache struct {
		TTL time.Duration `env:"CACHE_TTL" envDefault:"10m"`
	}

	Export struct {
		Timezone string `env:"EXPORT_TIMEZONE" envDefault:"Local"`
	}

	Reqs struct {
		SaveRequestType       string `yaml:"save_req_type" env:"SAVE_REQ_TYPE" envDefault:"form.save"`
		SubmitRequestType     string `yaml:"submit_req_type" env:"SUBMIT_REQ_TYPE" envDefault:"response.submit"`
		DeleteFormRequestType string `yaml:"delete_form_req_type" env:"DELETE_FORM_REQ_TYPE" envDefault:"form.delete"`
	} `yaml:"reqs"`
	Urls struct {
		Redis    string `yaml:"redis" env:"REDIS_URL"`
		Rabbitmq string `yaml:"rabbitmq" env:"RABBITMQ_URL"`
	} `yaml:"urls"`
	Exchange struct {
		Request string `yaml:"request" env:"REQUEST_EXCHANGE" envDefault:"forms.request"`
		Output  string `yaml:"output" env:"OUTPUT_EXCHANGE" envDefault:"forms.events"`
	} `yaml:"exchange"`
	Queue struct {
		Request string `yaml:"request" env:"REQUEST_QUEUE" envDefault:"forms.request"`
		Output  string `yaml:"output" env:"OUTPUT_QUEUE" envDefault:"forms.events"`
	} `yaml:"queue"`
}

// Init reads the environment, loading envPath first when it exists, and
// then overlays the event routing found in the yaml file at yamlPath.
// Either path may be empty.
func Init(envPath, yamlPath string) (*Config, error) {
	if envPath != "" {
		if err := godotenv.Load(envPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("error load env file: %v", err)
		}
	}

	var cfg Config

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("error parse env: %v", err)
	}

	if yamlPath == "" {
		return &cfg, nil
	}

	file, err := os.Open(yamlPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &cfg, nil
		}
		return nil, fmt.Errorf("error open file: %v", err)
	}

	defer file.Close()

	if err = yaml.NewDecoder(file).Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode error: %v", err)
	}

	return &cfg, nil
}
