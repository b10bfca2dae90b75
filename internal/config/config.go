package config

import (
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// AppConfig アプリケーション設定
type AppConfig struct {
	Server   ServerConfig   `toml:"server"`
	Data     DataConfig     `toml:"data"`
	Hospital HospitalConfig `toml:"hospital"`
	Forecast ForecastConfig `toml:"forecast"`
	Report   ReportConfig   `toml:"report"`
}

// ServerConfig サーバー設定
type ServerConfig struct {
	Port    int  `toml:"port"`
	DevMode bool `toml:"dev_mode"`
}

// DataConfig データ保存設定
type DataConfig struct {
	DataDir    string `toml:"data_dir"`
	AutoBackup bool   `toml:"auto_backup"`
	MaxBackups int    `toml:"max_backups"`
}

// HospitalConfig 病院運用設定
type HospitalConfig struct {
	TotalBeds         int      `toml:"total_beds"`
	MonthlyTargetDays float64  `toml:"monthly_target_patient_days"`
	RevenuePerDay     float64  `toml:"revenue_per_patient_day"`
	ExcludedWards     []string `toml:"excluded_wards"`
	TargetCSVPath     string   `toml:"target_csv_path"`
}

// ForecastConfig 予測設定
type ForecastConfig struct {
	DefaultModel   string `toml:"default_model"`
	SeasonalPeriod int    `toml:"seasonal_period"`
	SMAWindow      int    `toml:"sma_window"`
	HorizonDays    int    `toml:"horizon_days"`
}

// ReportConfig 帳票出力設定
type ReportConfig struct {
	FontPath      string `toml:"font_path"`
	FontName      string `toml:"font_name"`
	ExportWorkers int    `toml:"export_workers"`
	JobTimeoutSec int    `toml:"job_timeout_sec"`
}

// LoadConfigInfo 設定読み込みのメタ情報
type LoadConfigInfo struct {
	PortSpecified bool
}

// DefaultConfig 既定の設定
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:    20470,
			DevMode: false,
		},
		Data: DataConfig{
			DataDir:    "data",
			AutoBackup: true,
			MaxBackups: 5,
		},
		Hospital: HospitalConfig{
			TotalBeds:         612,
			MonthlyTargetDays: 17000,
			RevenuePerDay:     55000,
			ExcludedWards:     []string{"03B"},
		},
		Forecast: ForecastConfig{
			DefaultModel:   "holt_winters",
			SeasonalPeriod: 7,
			SMAWindow:      7,
			HorizonDays:    90,
		},
		Report: ReportConfig{
			FontPath:      "",
			FontName:      "ipaexg",
			ExportWorkers: 0,
			JobTimeoutSec: 120,
		},
	}
}

func isPortSpecifiedInToml(data []byte) bool {
	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return false
	}

	serverAny, ok := raw["server"]
	if !ok {
		return false
	}

	serverMap, ok := serverAny.(map[string]any)
	if !ok {
		return false
	}

	_, ok = serverMap["port"]
	return ok
}

// GetExeDir 実行ファイルのあるディレクトリを取得
func GetExeDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	return filepath.Dir(exe), nil
}

// LoadConfigWithInfo config.toml から設定を読み込み、メタ情報も返す
func LoadConfigWithInfo() (*AppConfig, LoadConfigInfo, error) {
	info := LoadConfigInfo{}
	config := DefaultConfig()

	exeDir, err := GetExeDir()
	if err != nil {
		// 実行ファイルのディレクトリが取れない場合はカレントディレクトリ
		exeDir = "."
	}

	configPath := filepath.Join(exeDir, "config.toml")

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			// 設定ファイルが無ければ既定値のまま
			return config, info, nil
		}
		return nil, info, err
	}

	info.PortSpecified = isPortSpecifiedInToml(data)

	if err := toml.Unmarshal(data, config); err != nil {
		return nil, info, err
	}

	// 環境変数による上書き（E2E / ローカル実行向け）
	if v := os.Getenv("WARDBOARD_FONT_PATH"); v != "" {
		config.Report.FontPath = v
	}
	if v := os.Getenv("WARDBOARD_TARGET_CSV"); v != "" {
		config.Hospital.TargetCSVPath = v
	}

	return config, info, nil
}

// LoadConfig config.toml から設定を読み込む
// 設定ファイルは実行ファイルと同じディレクトリに置く
func LoadConfig() (*AppConfig, error) {
	config, _, err := LoadConfigWithInfo()
	return config, err
}

// SaveConfig 設定を config.toml に保存
func SaveConfig(config *AppConfig) error {
	exeDir, err := GetExeDir()
	if err != nil {
		exeDir = "."
	}

	configPath := filepath.Join(exeDir, "config.toml")

	data, err := toml.Marshal(config)
	if err != nil {
		return err
	}

	return os.WriteFile(configPath, data, 0644)
}

// EnsureDataDir データディレクトリを作成して返す
// データディレクトリは実行ファイルと同じディレクトリに置く
func EnsureDataDir(config *AppConfig) (string, error) {
	exeDir, err := GetExeDir()
	if err != nil {
		exeDir = "."
	}

	dataDir := filepath.Join(exeDir, config.Data.DataDir)

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return "", err
	}

	// サブディレクトリを作成
	subdirs := []string{"uploads", "exports", "backups"}
	for _, subdir := range subdirs {
		path := filepath.Join(dataDir, subdir)
		if err := os.MkdirAll(path, 0755); err != nil {
			return "", err
		}
	}

	return dataDir, nil
}

// GetDataPath データファイルのパスを取得
func GetDataPath(config *AppConfig, subdir, filename string) string {
	exeDir, _ := GetExeDir()
	if exeDir == "" {
		exeDir = "."
	}
	return filepath.Join(exeDir, config.Data.DataDir, subdir, filename)
}
