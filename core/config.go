package core

import (
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Conf is the process wide configuration, loaded once at start up.
var Conf *Config

func init() {
	Conf = NewConfig()
}

type (
	ServerConfig struct {
		Host                      string
		Port                      int
		DebugHost                 string
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
		PasswordResetTimeoutDelta time.Duration
	}

	DatabaseConfig struct {
		Engine        string
		Host          string
		Port          int
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	RedisConfig struct {
		Addr          string // empty disables caching
		Password      string
		DB            int
		PredictionTTL time.Duration
	}

	MLConfig struct {
		ModelDir  string
		ModelName string
	}

	SchoolConfig struct {
		Name    string
		Phone   string
		Email   string
		Address string
	}

	AlertsConfig struct {
		DaysToAnalyze        int
		MinAbsences          int
		ConsecutiveThreshold int
		MinRecords           int
		TardinessThreshold   float64 // percent
		AbsenceDedupeDays    int
		StreakDedupeDays     int
		TardinessDedupeDays  int
	}

	Config struct {
		Env             string // DEV (default), TEST, QA, PROD
		Build           string
		AppName         string
		Debug           bool
		TestMode        bool
		SecretKey       string
		WorkDir         string
		FrontendBaseURL string
		SendgridApiKey  string
		RollbarToken    string

		Server   ServerConfig
		Database DatabaseConfig
		Redis    RedisConfig
		ML       MLConfig
		School   SchoolConfig
		Alerts   AlertsConfig

		defaultFromEmail string
	}
)

// Address returns the "host:port" of the database server.
func (c DatabaseConfig) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Address returns the "host:port" the API listens on.
func (c ServerConfig) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func (c *Config) DefaultFromEmail() mail.Address {
	if addr, err := mail.ParseAddress(c.defaultFromEmail); err == nil {
		return *addr
	}
	return mail.Address{Name: c.AppName, Address: c.defaultFromEmail}
}

func setDefaults(v *viper.Viper) {
	v.SetTypeByDefaultValue(true)

	v.SetDefault("build", "dev")
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("appName", "Attendance")
	v.SetDefault("secretKey", "poq5-wer)enb$+57=dz&uoxh2(h!x)#*c2(#yg4h^$cegm2emy")
	v.SetDefault("defaultFromEmail", "Attendance <noreply@localhost>")
	v.SetDefault("frontendBaseURL", "http://localhost:3000")
	v.SetDefault("sendgridApiKey", "")
	v.SetDefault("rollbarToken", "")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.debugHost", "0.0.0.0:4000")
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("server.jwtRefreshExpirationDelta", 4*time.Hour)
	v.SetDefault("server.passwordResetTimeoutDelta", 3*24*time.Hour)

	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "attendance")
	v.SetDefault("database.user", "attendance")
	v.SetDefault("database.password", "attendance")
	v.SetDefault("database.adminUser", "postgres")
	v.SetDefault("database.adminPassword", "")
	v.SetDefault("database.disableTLS", true)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.predictionTTL", time.Hour)

	v.SetDefault("ml.modelDir", "ml_models")
	v.SetDefault("ml.modelName", "absence_predictor.json")

	v.SetDefault("school.name", "School")
	v.SetDefault("school.phone", "")
	v.SetDefault("school.email", "")
	v.SetDefault("school.address", "")

	v.SetDefault("alerts.daysToAnalyze", 14)
	v.SetDefault("alerts.minAbsences", 3)
	v.SetDefault("alerts.consecutiveThreshold", 3)
	v.SetDefault("alerts.minRecords", 5)
	v.SetDefault("alerts.tardinessThreshold", 25.0)
	v.SetDefault("alerts.absenceDedupeDays", 7)
	v.SetDefault("alerts.streakDedupeDays", 5)
	v.SetDefault("alerts.tardinessDedupeDays", 14)
}

// NewConfig loads the configuration from defaults, an optional `config/.env.<env>` file
// and the environment, in increasing order of precedence.
// Environment keys are prefixed with the env name, e.g. `PROD_DATABASE_HOST`.
func NewConfig() *Config {
	v := viper.New()
	setDefaults(v)

	env := strings.ToUpper(os.Getenv("ENV"))
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	wd := getwd()
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	return &Config{
		Env:             env,
		Build:           v.GetString("build"),
		AppName:         v.GetString("appName"),
		Debug:           v.GetBool("debug"),
		TestMode:        v.GetBool("testMode"),
		SecretKey:       v.GetString("secretKey"),
		WorkDir:         wd,
		FrontendBaseURL: v.GetString("frontendBaseURL"),
		SendgridApiKey:  v.GetString("sendgridApiKey"),
		RollbarToken:    v.GetString("rollbarToken"),
		Server: ServerConfig{
			Host:                      v.GetString("server.host"),
			Port:                      v.GetInt("server.port"),
			DebugHost:                 v.GetString("server.debugHost"),
			ShutdownTimeout:           v.GetDuration("server.shutdownTimeout"),
			JWTExpirationDelta:        v.GetDuration("server.jwtExpirationDelta"),
			JWTRefreshExpirationDelta: v.GetDuration("server.jwtRefreshExpirationDelta"),
			PasswordResetTimeoutDelta: v.GetDuration("server.passwordResetTimeoutDelta"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("database.engine"),
			Host:          v.GetString("database.host"),
			Port:          v.GetInt("database.port"),
			Name:          v.GetString("database.name"),
			User:          v.GetString("database.user"),
			Password:      v.GetString("database.password"),
			AdminUser:     v.GetString("database.adminUser"),
			AdminPassword: v.GetString("database.adminPassword"),
			DisableTLS:    v.GetBool("database.disableTLS"),
		},
		Redis: RedisConfig{
			Addr:          v.GetString("redis.addr"),
			Password:      v.GetString("redis.password"),
			DB:            v.GetInt("redis.db"),
			PredictionTTL: v.GetDuration("redis.predictionTTL"),
		},
		ML: MLConfig{
			ModelDir:  v.GetString("ml.modelDir"),
			ModelName: v.GetString("ml.modelName"),
		},
		School: SchoolConfig{
			Name:    v.GetString("school.name"),
			Phone:   v.GetString("school.phone"),
			Email:   v.GetString("school.email"),
			Address: v.GetString("school.address"),
		},
		Alerts: AlertsConfig{
			DaysToAnalyze:        v.GetInt("alerts.daysToAnalyze"),
			MinAbsences:          v.GetInt("alerts.minAbsences"),
			ConsecutiveThreshold: v.GetInt("alerts.consecutiveThreshold"),
			MinRecords:           v.GetInt("alerts.minRecords"),
			TardinessThreshold:   v.GetFloat64("alerts.tardinessThreshold"),
			AbsenceDedupeDays:    v.GetInt("alerts.absenceDedupeDays"),
			StreakDedupeDays:     v.GetInt("alerts.streakDedupeDays"),
			TardinessDedupeDays:  v.GetInt("alerts.tardinessDedupeDays"),
		},
		defaultFromEmail: v.GetString("defaultFromEmail"),
	}
}
