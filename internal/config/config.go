package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	appLog "github.com/k-negishi/team-scheduler/internal/log"
)

// ストアの種類
const (
	BackendMemory   = "memory"
	BackendSupabase = "supabase"
	BackendPostgres = "postgres"
	BackendGoogle   = "google"
)

// SSMParameterGetter Parameter Storeからパラメータを取得するクライアント
type SSMParameterGetter interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// Config アプリケーション設定構造体
type Config struct {
	// ストア設定
	StoreBackend string `yaml:"store_backend"`
	SupabaseURL  string `yaml:"supabase_url"`
	SupabaseKey  string `yaml:"supabase_key"`
	DatabaseDSN  string `yaml:"database_dsn"`

	// Google Calendar設定
	GoogleCredentials string `yaml:"google_credentials"`
	CalendarID        string `yaml:"calendar_id"`

	// LINE API設定
	LineChannelAccessToken string `yaml:"line_channel_access_token"`
	LineUserID             string `yaml:"line_user_id"` // カンマ区切りで複数指定可

	// HTTPサーバー・通知設定
	ListenAddr string `yaml:"listen_addr"`
	DigestCron string `yaml:"digest_cron"`

	// その他設定
	LogLevel string `yaml:"log_level"`
	Timezone string `yaml:"timezone"`

	// AWS関連（本番環境でのみ使用）
	ssmClient SSMParameterGetter `yaml:"-"`
}

// defaultConfig 既定値
func defaultConfig() *Config {
	return &Config{
		StoreBackend: BackendSupabase,
		CalendarID:   "primary",
		ListenAddr:   "127.0.0.1:8080",
		DigestCron:   "0 8 * * *",
		LogLevel:     "INFO",
		Timezone:     "Asia/Tokyo",
	}
}

// Load 環境に応じて設定を読み込み
func Load() (*Config, error) {
	// AWS Lambda環境かどうか判定
	if os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != "" {
		return loadAWSConfig()
	}
	return loadLocalConfig()
}

// loadLocalConfig ローカル開発環境用の設定読み込み
func loadLocalConfig() (*Config, error) {
	// .envファイルを読み込み（存在する場合のみ）
	if err := godotenv.Load(); err != nil {
		appLog.Debug(".envファイルが見つかりません", "err", err)
	}

	cfg, err := loadFile(getEnvOrDefault("CONFIG_FILE", ""))
	if err != nil {
		return nil, err
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadAWSConfig AWS Lambda環境用の設定読み込み
func loadAWSConfig() (*Config, error) {
	// AWS設定を初期化
	awsConfig, err := config.LoadDefaultConfig(context.TODO())
	if err != nil {
		return nil, fmt.Errorf("AWS設定の読み込みに失敗しました: %w", err)
	}

	cfg := defaultConfig()
	cfg.applyEnv()
	cfg.ssmClient = ssm.NewFromConfig(awsConfig)

	// Parameter Storeから機密情報を取得
	if err := cfg.loadFromParameterStore(context.TODO()); err != nil {
		return nil, fmt.Errorf("Parameter Storeからの設定読み込みに失敗しました: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFile YAML設定ファイルを既定値の上に読み込む（パスが空・ファイルなしなら既定値のみ）
func loadFile(path string) (*Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			appLog.Info("設定ファイルが見つからないため既定値を使用します", "path", path)
			return cfg, nil
		}
		return nil, fmt.Errorf("設定ファイルの読み込みに失敗しました: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("設定ファイルの解析に失敗しました: %w", err)
	}
	return cfg, nil
}

// applyEnv 環境変数が設定されている項目を上書き
func (c *Config) applyEnv() {
	c.StoreBackend = strings.ToLower(getEnvOrDefault("STORE_BACKEND", c.StoreBackend))
	c.SupabaseURL = getEnvOrDefault("SUPABASE_URL", c.SupabaseURL)
	c.SupabaseKey = getEnvOrDefault("SUPABASE_KEY", c.SupabaseKey)
	c.DatabaseDSN = getEnvOrDefault("DATABASE_DSN", c.DatabaseDSN)
	c.GoogleCredentials = getEnvOrDefault("GOOGLE_CREDENTIALS", c.GoogleCredentials)
	c.CalendarID = getEnvOrDefault("CALENDAR_ID", c.CalendarID)
	c.LineChannelAccessToken = getEnvOrDefault("LINE_CHANNEL_ACCESS_TOKEN", c.LineChannelAccessToken)
	c.LineUserID = getEnvOrDefault("LINE_USER_ID", c.LineUserID)
	c.ListenAddr = getEnvOrDefault("LISTEN_ADDR", c.ListenAddr)
	c.DigestCron = getEnvOrDefault("DIGEST_CRON", c.DigestCron)
	c.LogLevel = getEnvOrDefault("LOG_LEVEL", c.LogLevel)
	c.Timezone = getEnvOrDefault("TIMEZONE", c.Timezone)
}

// Validate ストアごとの必須設定項目を確認
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case BackendMemory:
	case BackendSupabase:
		if c.SupabaseURL == "" {
			return fmt.Errorf("SUPABASE_URL環境変数が設定されていません")
		}
		if c.SupabaseKey == "" {
			return fmt.Errorf("SUPABASE_KEY環境変数が設定されていません")
		}
	case BackendPostgres:
		if c.DatabaseDSN == "" {
			return fmt.Errorf("DATABASE_DSN環境変数が設定されていません")
		}
	case BackendGoogle:
		if c.GoogleCredentials == "" {
			return fmt.Errorf("GOOGLE_CREDENTIALS環境変数が設定されていません")
		}
	default:
		return fmt.Errorf("STORE_BACKENDの値が不正です: %q", c.StoreBackend)
	}

	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("TIMEZONEの値が不正です: %q: %w", c.Timezone, err)
	}
	return nil
}

// GetGoogleCredentialsJSON Google認証情報をJSONとして検証して返す
func (c *Config) GetGoogleCredentialsJSON() ([]byte, error) {
	raw := []byte(c.GoogleCredentials)
	var creds map[string]interface{}
	if err := json.Unmarshal(raw, &creds); err != nil {
		return nil, fmt.Errorf("Google認証情報のJSON解析に失敗しました: %w", err)
	}
	return raw, nil
}

// LineEnabled LINE通知の設定がそろっているか
func (c *Config) LineEnabled() bool {
	return c.LineChannelAccessToken != "" && len(c.LineRecipients()) > 0
}

// LineRecipients LINE_USER_ID をカンマ区切りで分割した通知先
func (c *Config) LineRecipients() []string {
	var recipients []string
	for _, id := range strings.Split(c.LineUserID, ",") {
		if id = strings.TrimSpace(id); id != "" {
			recipients = append(recipients, id)
		}
	}
	return recipients
}

// Location 表示・通知に使うタイムゾーン
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// ssmParam Parameter Storeから読み込む項目
type ssmParam struct {
	envKey  string // パラメータ名を上書きする環境変数
	defName string
	label   string
	target  *string
}

// loadFromParameterStore Parameter Storeから機密情報を読み込み
func (c *Config) loadFromParameterStore(ctx context.Context) error {
	params := []ssmParam{
		{"SSM_LINE_TOKEN_PARAM", "/team-scheduler/line-channel-access-token", "LINE Channel Access Token", &c.LineChannelAccessToken},
		{"SSM_LINE_USER_ID_PARAM", "/team-scheduler/line-user-id", "LINE User ID", &c.LineUserID},
	}

	// ストアごとの秘密情報
	switch c.StoreBackend {
	case BackendSupabase:
		params = append(params, ssmParam{"SSM_SUPABASE_KEY_PARAM", "/team-scheduler/supabase-key", "Supabaseキー", &c.SupabaseKey})
	case BackendPostgres:
		params = append(params, ssmParam{"SSM_DATABASE_DSN_PARAM", "/team-scheduler/database-dsn", "データベース接続文字列", &c.DatabaseDSN})
	case BackendGoogle:
		params = append(params, ssmParam{"SSM_GOOGLE_CREDS_PARAM", "/team-scheduler/google-creds", "Google認証情報", &c.GoogleCredentials})
	}

	for _, p := range params {
		value, err := c.getParameter(ctx, getEnvOrDefault(p.envKey, p.defName), true)
		if err != nil {
			return fmt.Errorf("%sの取得に失敗しました: %w", p.label, err)
		}
		*p.target = value
	}
	return nil
}

// getParameter Parameter Storeから指定されたパラメータを取得
func (c *Config) getParameter(ctx context.Context, paramName string, withDecryption bool) (string, error) {
	input := &ssm.GetParameterInput{
		Name:           aws.String(paramName),
		WithDecryption: aws.Bool(withDecryption),
	}

	result, err := c.ssmClient.GetParameter(ctx, input)
	if err != nil {
		return "", fmt.Errorf("パラメータ %s の取得に失敗しました: %w", paramName, err)
	}

	if result.Parameter == nil || result.Parameter.Value == nil || *result.Parameter.Value == "" {
		return "", fmt.Errorf("パラメータ %s が空の値です", paramName)
	}

	return *result.Parameter.Value, nil
}

// getEnvOrDefault 環境変数を取得し、存在しない場合はデフォルト値を返す
func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}
