package file

import (
	"os"
	"strconv"
	"time"

	"github.com/custodia-labs/taskbridge/internal/core/domain"
	"github.com/custodia-labs/taskbridge/internal/core/ports/driven"
)

// LoadSettings builds typed settings from the config store, then applies
// TASKBRIDGE_* environment overrides. Environment wins over file so deploys
// can inject secrets without writing them to disk.
func LoadSettings(store driven.ConfigStore) domain.Settings {
	settings := domain.DefaultSettings()

	applyConfig(&settings, store)
	applyEnv(&settings)

	return settings
}

func applyConfig(settings *domain.Settings, store driven.ConfigStore) {
	setString(&settings.Lark.AppID, store.GetString("lark.app_id"))
	setString(&settings.Lark.AppSecret, store.GetString("lark.app_secret"))
	setString(&settings.Lark.BaseURL, store.GetString("lark.base_url"))

	setString(&settings.Broker.URL, store.GetString("broker.url"))
	setString(&settings.Broker.Username, store.GetString("broker.username"))
	setString(&settings.Broker.Password, store.GetString("broker.password"))
	setString(&settings.Broker.BaseTopic, store.GetString("broker.base_topic"))
	setString(&settings.Broker.CAFile, store.GetString("broker.ca_file"))

	setString(&settings.Bootstrap.AccessToken, store.GetString("bootstrap.access_token"))
	setString(&settings.Bootstrap.RefreshToken, store.GetString("bootstrap.refresh_token"))
	if secs := store.GetInt("bootstrap.refresh_expires_in"); secs > 0 {
		settings.Bootstrap.RefreshExpiresIn = time.Duration(secs) * time.Second
	}

	if secs := store.GetInt("sync.interval_seconds"); secs > 0 {
		settings.Sync.Interval = time.Duration(secs) * time.Second
	}

	setString(&settings.HTTP.Addr, store.GetString("http.addr"))
	setString(&settings.DataDir, store.GetString("data_dir"))
}

func applyEnv(settings *domain.Settings) {
	setEnvString(&settings.Lark.AppID, "TASKBRIDGE_APP_ID")
	setEnvString(&settings.Lark.AppSecret, "TASKBRIDGE_APP_SECRET")
	setEnvString(&settings.Lark.BaseURL, "TASKBRIDGE_LARK_BASE_URL")

	setEnvString(&settings.Broker.URL, "TASKBRIDGE_MQTT_URL")
	setEnvString(&settings.Broker.Username, "TASKBRIDGE_MQTT_USERNAME")
	setEnvString(&settings.Broker.Password, "TASKBRIDGE_MQTT_PASSWORD")
	setEnvString(&settings.Broker.BaseTopic, "TASKBRIDGE_BASE_TOPIC")
	setEnvString(&settings.Broker.CAFile, "TASKBRIDGE_MQTT_CA_FILE")

	setEnvString(&settings.Bootstrap.AccessToken, "TASKBRIDGE_ACCESS_TOKEN")
	setEnvString(&settings.Bootstrap.RefreshToken, "TASKBRIDGE_REFRESH_TOKEN")
	if secs := envInt("TASKBRIDGE_REFRESH_EXPIRES_IN"); secs > 0 {
		settings.Bootstrap.RefreshExpiresIn = time.Duration(secs) * time.Second
	}

	if secs := envInt("TASKBRIDGE_SYNC_INTERVAL"); secs > 0 {
		settings.Sync.Interval = time.Duration(secs) * time.Second
	}

	setEnvString(&settings.HTTP.Addr, "TASKBRIDGE_HTTP_ADDR")
	setEnvString(&settings.DataDir, "TASKBRIDGE_DATA_DIR")
}

func setString(dst *string, val string) {
	if val != "" {
		*dst = val
	}
}

func setEnvString(dst *string, key string) {
	setString(dst, os.Getenv(key))
}

// envInt reads an integer environment variable, 0 when unset or malformed.
func envInt(key string) int {
	val := os.Getenv(key)
	if val == "" {
		return 0
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0
	}
	return n
}
