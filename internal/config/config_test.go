package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockSSMClient は SSMParameterGetter のテスト用モック
type MockSSMClient struct {
	mock.Mock
}

func (m *MockSSMClient) GetParameter(ctx context.Context, params *ssm.GetParameterInput, _ ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ssm.GetParameterOutput), args.Error(1)
}

// clearEnv 設定に関係する環境変数をテスト中だけ空にする
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"STORE_BACKEND", "SUPABASE_URL", "SUPABASE_KEY", "DATABASE_DSN",
		"GOOGLE_CREDENTIALS", "CALENDAR_ID", "LINE_CHANNEL_ACCESS_TOKEN", "LINE_USER_ID",
		"LISTEN_ADDR", "DIGEST_CRON", "LOG_LEVEL", "TIMEZONE", "CONFIG_FILE",
		"SSM_LINE_TOKEN_PARAM", "SSM_LINE_USER_ID_PARAM", "SSM_SUPABASE_KEY_PARAM",
		"SSM_DATABASE_DSN_PARAM", "SSM_GOOGLE_CREDS_PARAM",
	} {
		t.Setenv(key, "")
	}
}

func ssmValue(v string) *ssm.GetParameterOutput {
	return &ssm.GetParameterOutput{Parameter: &types.Parameter{Value: aws.String(v)}}
}

func paramNamed(name string) interface{} {
	return mock.MatchedBy(func(input *ssm.GetParameterInput) bool {
		return *input.Name == name
	})
}

// --- getEnvOrDefault テスト ---

func TestGetEnvOrDefault_WithValue(t *testing.T) {
	t.Setenv("TEST_ENV_KEY", "test-value")
	result := getEnvOrDefault("TEST_ENV_KEY", "default")
	assert.Equal(t, "test-value", result)
}

func TestGetEnvOrDefault_WithDefault(t *testing.T) {
	result := getEnvOrDefault("NONEXISTENT_KEY_FOR_TEST_12345", "default-value")
	assert.Equal(t, "default-value", result)
}

func TestGetEnvOrDefault_TrimsWhitespace(t *testing.T) {
	t.Setenv("TEST_ENV_WHITESPACE", "  trimmed  ")
	result := getEnvOrDefault("TEST_ENV_WHITESPACE", "default")
	assert.Equal(t, "trimmed", result)
}

// --- GetGoogleCredentialsJSON テスト ---

func TestGetGoogleCredentialsJSON_Valid(t *testing.T) {
	cfg := &Config{GoogleCredentials: `{"type": "service_account", "project_id": "test"}`}
	result, err := cfg.GetGoogleCredentialsJSON()
	require.NoError(t, err)
	assert.JSONEq(t, cfg.GoogleCredentials, string(result))
}

func TestGetGoogleCredentialsJSON_Invalid(t *testing.T) {
	cfg := &Config{GoogleCredentials: "not valid json"}
	_, err := cfg.GetGoogleCredentialsJSON()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "Google認証情報のJSON解析に失敗しました")
}

// --- loadLocalConfig テスト ---

func TestLoadLocalConfig_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("STORE_BACKEND", "memory")

	cfg, err := loadLocalConfig()
	require.NoError(t, err)
	assert.Equal(t, BackendMemory, cfg.StoreBackend)
	assert.Equal(t, "127.0.0.1:8080", cfg.ListenAddr)
	assert.Equal(t, "0 8 * * *", cfg.DigestCron)
	assert.Equal(t, "Asia/Tokyo", cfg.Location().String())
	assert.False(t, cfg.LineEnabled())
}

func TestLoadLocalConfig_MissingRequired(t *testing.T) {
	// 既定のSupabaseストアで接続情報が未設定
	clearEnv(t)

	_, err := loadLocalConfig()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "SUPABASE_URL環境変数が設定されていません")
}

func TestLoadLocalConfig_YAMLFileWithEnvOverride(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := "store_backend: postgres\n" +
		"database_dsn: postgres://file\n" +
		"listen_addr: 0.0.0.0:9000\n" +
		"line_channel_access_token: file-token\n" +
		"line_user_id: file-user\n" +
		"timezone: UTC\n"
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("DATABASE_DSN", "postgres://env")

	cfg, err := loadLocalConfig()
	require.NoError(t, err)
	assert.Equal(t, BackendPostgres, cfg.StoreBackend)
	assert.Equal(t, "postgres://env", cfg.DatabaseDSN)
	assert.Equal(t, "0.0.0.0:9000", cfg.ListenAddr)
	assert.Equal(t, "UTC", cfg.Timezone)
	assert.True(t, cfg.LineEnabled())
}

func TestLoadLocalConfig_MissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("STORE_BACKEND", "MEMORY")

	cfg, err := loadLocalConfig()
	require.NoError(t, err)
	assert.Equal(t, BackendMemory, cfg.StoreBackend)
}

func TestLoadLocalConfig_BrokenYAML(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("store_backend: [unclosed"), 0o600))
	t.Setenv("CONFIG_FILE", path)

	_, err := loadLocalConfig()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "設定ファイルの解析に失敗しました")
}

func TestLineRecipients(t *testing.T) {
	cfg := &Config{LineChannelAccessToken: "token", LineUserID: " U1 ,U2,, "}
	assert.Equal(t, []string{"U1", "U2"}, cfg.LineRecipients())
	assert.True(t, cfg.LineEnabled())

	cfg.LineUserID = " , "
	assert.Empty(t, cfg.LineRecipients())
	assert.False(t, cfg.LineEnabled())
}

// --- Validate テスト ---

func TestValidate(t *testing.T) {
	tests := []struct {
		name          string
		cfg           Config
		expectedError string
	}{
		{name: "memory", cfg: Config{StoreBackend: BackendMemory, Timezone: "UTC"}},
		{name: "supabase", cfg: Config{StoreBackend: BackendSupabase, SupabaseURL: "https://x.supabase.co", SupabaseKey: "k", Timezone: "UTC"}},
		{name: "supabaseキーなし", cfg: Config{StoreBackend: BackendSupabase, SupabaseURL: "https://x.supabase.co", Timezone: "UTC"}, expectedError: "SUPABASE_KEY"},
		{name: "postgres DSNなし", cfg: Config{StoreBackend: BackendPostgres, Timezone: "UTC"}, expectedError: "DATABASE_DSN"},
		{name: "google 認証情報なし", cfg: Config{StoreBackend: BackendGoogle, Timezone: "UTC"}, expectedError: "GOOGLE_CREDENTIALS"},
		{name: "不明なストア", cfg: Config{StoreBackend: "redis", Timezone: "UTC"}, expectedError: "STORE_BACKENDの値が不正です"},
		{name: "不正なタイムゾーン", cfg: Config{StoreBackend: BackendMemory, Timezone: "Mars/Olympus"}, expectedError: "TIMEZONEの値が不正です"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.expectedError == "" {
				assert.NoError(t, err)
				return
			}
			assert.Error(t, err)
			assert.Contains(t, err.Error(), tt.expectedError)
		})
	}
}

// --- getParameter テスト（モック使用） ---

func TestGetParameter_Success(t *testing.T) {
	mockSSM := new(MockSSMClient)
	cfg := &Config{ssmClient: mockSSM}

	mockSSM.On("GetParameter", mock.Anything, mock.MatchedBy(func(input *ssm.GetParameterInput) bool {
		return *input.Name == "/test/param" && *input.WithDecryption
	})).Return(ssmValue("test-value"), nil)

	result, err := cfg.getParameter(context.Background(), "/test/param", true)
	require.NoError(t, err)
	assert.Equal(t, "test-value", result)
	mockSSM.AssertExpectations(t)
}

func TestGetParameter_EmptyValue(t *testing.T) {
	mockSSM := new(MockSSMClient)
	cfg := &Config{ssmClient: mockSSM}

	mockSSM.On("GetParameter", mock.Anything, mock.Anything).Return(ssmValue(""), nil)

	_, err := cfg.getParameter(context.Background(), "/test/param", true)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "空の値です")
}

func TestGetParameter_APIError(t *testing.T) {
	mockSSM := new(MockSSMClient)
	cfg := &Config{ssmClient: mockSSM}

	mockSSM.On("GetParameter", mock.Anything, mock.Anything).Return(nil, errors.New("SSM API error"))

	_, err := cfg.getParameter(context.Background(), "/test/param", true)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "パラメータ /test/param の取得に失敗しました")
	mockSSM.AssertExpectations(t)
}

func TestLoadFromParameterStore_Supabase(t *testing.T) {
	clearEnv(t)
	mockSSM := new(MockSSMClient)
	cfg := &Config{StoreBackend: BackendSupabase, ssmClient: mockSSM}

	mockSSM.On("GetParameter", mock.Anything, paramNamed("/team-scheduler/line-channel-access-token")).Return(ssmValue("line-token-value"), nil)
	mockSSM.On("GetParameter", mock.Anything, paramNamed("/team-scheduler/line-user-id")).Return(ssmValue("line-user-id-value"), nil)
	mockSSM.On("GetParameter", mock.Anything, paramNamed("/team-scheduler/supabase-key")).Return(ssmValue("supabase-key-value"), nil)

	err := cfg.loadFromParameterStore(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "line-token-value", cfg.LineChannelAccessToken)
	assert.Equal(t, "line-user-id-value", cfg.LineUserID)
	assert.Equal(t, "supabase-key-value", cfg.SupabaseKey)
	mockSSM.AssertExpectations(t)
}

func TestLoadFromParameterStore_CustomParamName(t *testing.T) {
	clearEnv(t)
	t.Setenv("SSM_DATABASE_DSN_PARAM", "/custom/dsn")
	mockSSM := new(MockSSMClient)
	cfg := &Config{StoreBackend: BackendPostgres, ssmClient: mockSSM}

	mockSSM.On("GetParameter", mock.Anything, paramNamed("/team-scheduler/line-channel-access-token")).Return(ssmValue("t"), nil)
	mockSSM.On("GetParameter", mock.Anything, paramNamed("/team-scheduler/line-user-id")).Return(ssmValue("u"), nil)
	mockSSM.On("GetParameter", mock.Anything, paramNamed("/custom/dsn")).Return(ssmValue("postgres://ssm"), nil)

	require.NoError(t, cfg.loadFromParameterStore(context.Background()))
	assert.Equal(t, "postgres://ssm", cfg.DatabaseDSN)
	mockSSM.AssertExpectations(t)
}

func TestLoadFromParameterStore_Error(t *testing.T) {
	clearEnv(t)
	mockSSM := new(MockSSMClient)
	cfg := &Config{StoreBackend: BackendMemory, ssmClient: mockSSM}

	mockSSM.On("GetParameter", mock.Anything, mock.Anything).Return(nil, errors.New("denied"))

	err := cfg.loadFromParameterStore(context.Background())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "LINE Channel Access Tokenの取得に失敗しました")
}
