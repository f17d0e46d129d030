package app

import "strings"

// Command はinternhubの起動モードを表す。
type Command string

const (
	// CommandServe はBFFサーバーモードで起動することを示す。
	CommandServe Command = "serve"
	// CommandWorker は期限切れブラウザストレージのクリーンアップワーカーを起動することを示す。
	CommandWorker Command = "worker"
	// CommandMigrate はbrowser_storageのマイグレーションを実行することを示す。
	CommandMigrate Command = "migrate"
	// CommandHealthcheck はヘルスチェックを実行することを示す。
	// distroless環境でのDockerヘルスチェック用。
	CommandHealthcheck Command = "healthcheck"
)

var commands = map[string]Command{
	string(CommandServe):       CommandServe,
	string(CommandWorker):      CommandWorker,
	string(CommandMigrate):     CommandMigrate,
	string(CommandHealthcheck): CommandHealthcheck,
}

// ParseCommand はコマンドライン引数の先頭からサブコマンドを解析する。
// 大文字小文字と先頭のハイフン（--worker など）は無視する。
// 引数が空またはサポート外のコマンドの場合はCommandServeを返す。
func ParseCommand(args []string) Command {
	cmd, _ := lookupCommand(args)
	return cmd
}

// lookupCommand はParseCommandと同じ解析を行い、引数が既知のコマンドだったかを併せて返す。
func lookupCommand(args []string) (Command, bool) {
	if len(args) == 0 {
		return CommandServe, true
	}
	name := strings.ToLower(strings.TrimLeft(strings.TrimSpace(args[0]), "-"))
	if cmd, ok := commands[name]; ok {
		return cmd, true
	}
	return CommandServe, false
}
