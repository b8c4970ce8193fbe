package app

// Command はアプリケーションの起動モードを表す。
type Command string

const (
	// CommandRun はキャンセルされるまでポーリングを繰り返すことを示す。
	CommandRun Command = "run"
	// CommandOnce はポーリングを1サイクルだけ実行して終了することを示す。
	CommandOnce Command = "once"
	// CommandHealthcheck はヘルスチェックを実行することを示す。
	// distroless環境でのDockerヘルスチェック用。
	CommandHealthcheck Command = "healthcheck"
)

// ParseCommand はコマンドライン引数からサブコマンドを解析する。
// 引数が空またはサポート外のコマンドの場合はCommandRunを返す。
func ParseCommand(args []string) Command {
	if len(args) == 0 {
		return CommandRun
	}

	switch args[0] {
	case "run":
		return CommandRun
	case "once":
		return CommandOnce
	case "healthcheck":
		return CommandHealthcheck
	default:
		return CommandRun
	}
}
