package logger

import (
	"fmt"
	"io"

	"gopkg.in/natefinch/lumberjack.v2"
)

// FileConfig はローテーション付きログファイルの設定。
type FileConfig struct {
	Path       string // 空または"-"でファイル出力を無効化
	MaxSizeMB  int
	MaxBackups int
}

// Enabled はファイル出力が有効かを返す。
func (c FileConfig) Enabled() bool {
	return c.Path != "" && c.Path != "-"
}

// NewRotatingWriter はサイズ上限と世代数の上限を持つログファイルwriterを生成する。
// ファイルは最初の書き込み時に開かれる。
func NewRotatingWriter(cfg FileConfig) io.WriteCloser {
	return &lumberjack.Logger{
		Filename:   cfg.Path,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
	}
}

// Output は標準出力とログファイルの両方に書き込むwriterを返す。
// 返されたio.Closerはアプリケーション終了時に閉じること。
// ファイル出力が無効な場合はstdoutのみを返す。
// ファイルを開けない場合は起動時に検出できるようエラーを返す。
func Output(stdout io.Writer, cfg FileConfig) (io.Writer, io.Closer, error) {
	if !cfg.Enabled() {
		return stdout, io.NopCloser(nil), nil
	}
	file := NewRotatingWriter(cfg)
	// 空書き込みでファイルを開く
	if _, err := file.Write(nil); err != nil {
		return nil, nil, fmt.Errorf("failed to open log file %s: %w", cfg.Path, err)
	}
	if stdout == nil {
		return file, file, nil
	}
	return io.MultiWriter(stdout, file), file, nil
}
