// internal/service/config.go
package service

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// InstanceConfig 一个实时分析实例：一个交易对 + 若干 K 线周期
type InstanceConfig struct {
	Symbol    string   `mapstructure:"Symbol" validate:"required"`
	Intervals []string `mapstructure:"Intervals" validate:"required,min=1,dive,required"`
}

type Config struct {
	Exchange  ExchangeConfig            `mapstructure:"Exchange"`
	Instances map[string]InstanceConfig `mapstructure:"Instances" validate:"dive"`
	Analysis  AnalysisConfig            `mapstructure:"Analysis"`
	Log       LogConfig                 `mapstructure:"Log"`
	Output    OutputConfig              `mapstructure:"Output"`
}

// ExchangeConfig 定义了交易所的连接信息 (只读行情，不需要密钥)
type ExchangeConfig struct {
	Name  string `mapstructure:"Name" default:"okx"`
	WSURL string `mapstructure:"WSURL" default:"wss://ws.okx.com:8443/ws/v5/public" validate:"required,url"`
}

// AnalysisConfig 检测器参数以及实时窗口大小
type AnalysisConfig struct {
	SwingLength     int     `mapstructure:"SwingLength" default:"50" validate:"gte=1"`
	CloseBreak      bool    `mapstructure:"CloseBreak" default:"true"`
	CloseMitigation bool    `mapstructure:"CloseMitigation" default:"false"`
	RangePercent    float64 `mapstructure:"RangePercent" default:"0.01" validate:"gte=0,lte=1"`
	MinHistory      int     `mapstructure:"MinHistory" default:"10" validate:"gte=3"`
	MaxHistory      int     `mapstructure:"MaxHistory" default:"500" validate:"gtefield=MinHistory"`
}

// LogConfig 日志级别以及可选的滚动日志文件
type LogConfig struct {
	Level      string `mapstructure:"Level" default:"info" validate:"oneof=debug info warn error"`
	File       string `mapstructure:"File"` // 为空时只输出到 stdout
	MaxSizeMB  int    `mapstructure:"MaxSizeMB" default:"100" validate:"gte=1"`
	MaxBackups int    `mapstructure:"MaxBackups" default:"5" validate:"gte=0"`
	MaxAgeDays int    `mapstructure:"MaxAgeDays" default:"30" validate:"gte=0"`
	Compress   bool   `mapstructure:"Compress" default:"true"`
}

// OutputConfig 批量模式的输入输出
// Input 为空时进入实时模式；Path 为空时写 stdout；Interval 仅用于报告标注
type OutputConfig struct {
	Input    string `mapstructure:"Input"`
	Path     string `mapstructure:"Path"`
	Format   string `mapstructure:"Format" default:"csv" validate:"oneof=csv json yaml"`
	Interval string `mapstructure:"Interval" default:"1h"`
}

// GlobalConfig 存储加载后的全局配置
var GlobalConfig Config

var validate = validator.New()

// BindFlags 注册命令行参数
func BindFlags(fs *pflag.FlagSet) {
	fs.String("config", "config", "directory containing config.yaml")
	fs.String("input", "", "CSV candle file; batch mode when set")
	fs.String("output", "", "report path; stdout when empty")
	fs.String("format", "csv", "report format: csv, json or yaml")
	fs.String("interval", "1h", "interval label for the report")
}

// LoadConfig 读取并解析配置：默认值 -> config.yaml -> .env/环境变量 -> 命令行参数
func LoadConfig(fs *pflag.FlagSet) (*Config, error) {
	// .env 不存在不算错误
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config") // 文件名是 config
	v.SetConfigType("yaml")   // 文件类型是 yaml
	v.SetEnvPrefix("SMC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	configPath := "config"
	if fs != nil {
		if p, err := fs.GetString("config"); err == nil && p != "" {
			configPath = p
		}
		flagKeys := map[string]string{
			"input":    "Output.Input",
			"output":   "Output.Path",
			"format":   "Output.Format",
			"interval": "Output.Interval",
		}
		for name, key := range flagKeys {
			if f := fs.Lookup(name); f != nil && f.Changed {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}
	v.AddConfigPath(configPath)

	// 查找并读取配置文件；批量模式下没有配置文件也可以运行
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := Config{}
	if err := defaults.Set(&cfg); err != nil {
		return nil, fmt.Errorf("apply config defaults: %w", err)
	}
	// AutomaticEnv 只对 viper 已知的键生效，没有配置文件时环境变量也要能覆盖
	registerDefaults(v, "", reflect.ValueOf(cfg))
	// 将配置绑定到结构体，未出现的键保留默认值
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := ValidateConfig(&cfg); err != nil {
		return nil, err
	}

	GlobalConfig = cfg
	return &GlobalConfig, nil
}

// registerDefaults 按 mapstructure 标签把结构体的默认值逐键注册到 viper
// map 类型 (Instances) 只能来自配置文件，跳过
func registerDefaults(v *viper.Viper, prefix string, rv reflect.Value) {
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		tag := field.Tag.Get("mapstructure")
		if tag == "" {
			continue
		}
		fv := rv.Field(i)
		switch fv.Kind() {
		case reflect.Struct:
			registerDefaults(v, prefix+tag+".", fv)
		case reflect.Map:
		default:
			v.SetDefault(prefix+tag, fv.Interface())
		}
	}
}

// ValidateConfig 校验配置并把 validator 的错误整理成可读的信息
func ValidateConfig(cfg *Config) error {
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("validate config: %w", err)
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Namespace()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min", "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "gtefield":
		return fmt.Sprintf("%s must not be less than %s", field, fe.Param())
	case "url":
		return fmt.Sprintf("%s must be a valid URL", field)
	default:
		return fmt.Sprintf("%s failed validation: %s", field, fe.Tag())
	}
}
