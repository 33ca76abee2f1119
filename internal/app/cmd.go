package app

// Command はアプリケーションの起動モードを表す。
type Command string

const (
	// CommandServe はAPIサーバーモードで起動することを示す。デフォルト。
	CommandServe Command = "serve"
	// CommandWorker はフェッチログ保持期限クリーンアップのワーカーモードで起動することを示す。
	CommandWorker Command = "worker"
	// CommandMigrate はデータベースマイグレーションを実行することを示す。
	CommandMigrate Command = "migrate"
	// CommandHealthcheck はヘルスチェックを実行することを示す。
	// シェルを持たないdistrolessコンテナのHEALTHCHECK用。
	CommandHealthcheck Command = "healthcheck"
)

// ParseCommand は先頭のコマンドライン引数をサブコマンドとして解釈する。
// 引数なし・未知のコマンドはいずれもCommandServeにフォールバックする。
func ParseCommand(args []string) Command {
	if len(args) == 0 {
		return CommandServe
	}

	switch Command(args[0]) {
	case CommandWorker, CommandMigrate, CommandHealthcheck:
		return Command(args[0])
	default:
		return CommandServe
	}
}
