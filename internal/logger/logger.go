package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New は環境に合わせたロガーを返す。
// production以外は人が読みやすい形式でdebugから出す
func New(env string) (*zap.SugaredLogger, error) {
	var cfg zap.Config
	if env == "production" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	l, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return l.Sugar().With("service", "chefchain"), nil
}

// テストやイベント無効時など、出力不要のとき
func Nop() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}
