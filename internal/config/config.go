package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultFeedName はフィード名が未指定の場合の名前
	DefaultFeedName = "Multisource"

	// DefaultInterval は画像切り替えのデフォルト間隔
	DefaultInterval = 300 * time.Second

	// DefaultSelection はデフォルトの選択方式
	DefaultSelection = "random"

	// EnvConfigPath は設定ファイルのパスを上書きする環境変数
	EnvConfigPath = "MULTISOURCE_CONFIG"
)

// Config はアプリケーション全体の設定を保持する構造体
type Config struct {
	Fetch          FetchConfig  `yaml:"fetch"`
	ReloadInterval Duration     `yaml:"reload_interval"` // 0の場合は明示的な再読み込みのみ
	LogFile        string       `yaml:"log_file"`        // watch 実行時のログ出力先
	Feeds          []FeedConfig `yaml:"feeds" validate:"required,min=1,unique=Name,dive"`
}

// FetchConfig はURLソースの取得設定
type FetchConfig struct {
	Timeout     Duration `yaml:"timeout"`                      // 1件あたりの上限時間
	MaxBytes    int64    `yaml:"max_bytes" validate:"gte=0"`   // 1件あたりの最大サイズ
	Concurrency int      `yaml:"concurrency" validate:"gte=0"` // 同時解決数
	UserAgent   string   `yaml:"user_agent"`
}

// FeedConfig は個別フィードの設定
type FeedConfig struct {
	Name      string     `yaml:"name" validate:"required"`
	Interval  Duration   `yaml:"interval"`
	Selection string     `yaml:"selection" validate:"oneof=random round_robin"`
	Images    StringList `yaml:"images" validate:"required,min=1,dive,required"`
}

// UnmarshalYAML は未指定の項目にデフォルト値を入れてから読み込む
// interval: 0 の明示指定と未指定を区別するため
func (f *FeedConfig) UnmarshalYAML(value *yaml.Node) error {
	type plain FeedConfig
	p := plain{
		Interval:  Duration{DefaultInterval},
		Selection: DefaultSelection,
	}
	if err := value.Decode(&p); err != nil {
		return err
	}
	*f = FeedConfig(p)
	return nil
}

// StringList は単一の文字列、または文字列のリストを読み込む
type StringList []string

func (l *StringList) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		var s string
		if err := value.Decode(&s); err != nil {
			return err
		}
		*l = StringList{s}
		return nil
	}

	var list []string
	if err := value.Decode(&list); err != nil {
		return err
	}
	*l = list
	return nil
}

// Duration は "15s" のような文字列、または秒数の整数をYAMLから読み込む
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var seconds int64
	if err := value.Decode(&seconds); err == nil {
		d.Duration = time.Duration(seconds) * time.Second
		return nil
	}

	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("無効な時間指定 %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return d.Duration.String(), nil
}

// Defaults はフィードを含まないデフォルト設定を返す
func Defaults() Config {
	return Config{
		Fetch: FetchConfig{
			Timeout:     Duration{10 * time.Second},
			MaxBytes:    32 << 20,
			Concurrency: 4,
			UserAgent:   "multisource",
		},
	}
}

// Load は設定ファイルを読み込む
// パスは環境変数 MULTISOURCE_CONFIG、なければXDGの設定ディレクトリから決める
func Load() (*Config, error) {
	return LoadFrom(Path())
}

// LoadFrom は指定したパスから設定を読み込む
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("設定ファイルが見つかりません: %s", path)
		}
		return nil, fmt.Errorf("設定ファイルの読み込みに失敗: %w", err)
	}

	return Parse(data)
}

// Parse はYAMLを解析し、デフォルト値を補って検証する
func Parse(data []byte) (*Config, error) {
	cfg := Defaults()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("設定の解析に失敗: %w", err)
	}

	cfg.applyFeedDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("設定の検証に失敗: %w", err)
	}

	return &cfg, nil
}

// applyFeedDefaults は名前のないフィードに名前を付ける
func (c *Config) applyFeedDefaults() {
	for i := range c.Feeds {
		feed := &c.Feeds[i]
		if feed.Name == "" {
			feed.Name = DefaultFeedName
			if len(c.Feeds) > 1 {
				feed.Name = fmt.Sprintf("%s %d", DefaultFeedName, i+1)
			}
		}
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate は設定の妥当性を検証する
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return describe(verrs)
		}
		return err
	}

	if c.Fetch.Timeout.Duration <= 0 {
		return fmt.Errorf("fetch.timeout は正の値である必要があります: %s", c.Fetch.Timeout)
	}
	if c.ReloadInterval.Duration < 0 {
		return fmt.Errorf("reload_interval は0以上である必要があります: %s", c.ReloadInterval)
	}
	for _, feed := range c.Feeds {
		if feed.Interval.Duration < 0 {
			return fmt.Errorf("フィード %s の interval は0以上である必要があります: %s", feed.Name, feed.Interval)
		}
		for _, image := range feed.Images {
			if strings.TrimSpace(image) == "" {
				return fmt.Errorf("フィード %s に空の画像ソースがあります", feed.Name)
			}
		}
	}

	return nil
}

// describe は検証エラーを読みやすい形に変換する
func describe(verrs validator.ValidationErrors) error {
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required", "min":
			msgs = append(msgs, fmt.Sprintf("%s は必須です", fe.Namespace()))
		case "unique":
			msgs = append(msgs, fmt.Sprintf("%s の名前が重複しています", fe.Namespace()))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s は %s のいずれかである必要があります: %v", fe.Namespace(), fe.Param(), fe.Value()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s が無効です (%s)", fe.Namespace(), fe.Tag()))
		}
	}
	return errors.New(strings.Join(msgs, "; "))
}

// Path は設定ファイルのパスを返す
func Path() string {
	if path := os.Getenv(EnvConfigPath); path != "" {
		return path
	}

	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "config.yml"
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "multisource", "config.yml")
}
