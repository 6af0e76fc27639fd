package app

// Command はnestfeedバイナリのサブコマンド。
type Command string

const (
	// CommandServe はAPIサーバーを起動する。引数なしの場合もこれになる。
	CommandServe Command = "serve"
	// CommandWorker は期限切れセッションと孤立したTimeの定期削除を行う。
	CommandWorker Command = "worker"
	// CommandMigrate はSTORAGE_DRIVERに応じてスキーマまたはインデックスを作成する。
	CommandMigrate Command = "migrate"
	// CommandHealthcheck は起動中のサーバーの /health を叩いて終了コードで結果を返す。
	// distrolessイメージにはcurlがないため、DockerのHEALTHCHECKから呼ぶ。
	CommandHealthcheck Command = "healthcheck"
)

var commands = map[string]Command{
	string(CommandServe):       CommandServe,
	string(CommandWorker):      CommandWorker,
	string(CommandMigrate):     CommandMigrate,
	string(CommandHealthcheck): CommandHealthcheck,
}

// ParseCommand は先頭の引数をサブコマンドとして解釈する。
// 引数がない場合や未知の値はCommandServeとして扱い、2番目以降の引数は無視する。
func ParseCommand(args []string) Command {
	if len(args) == 0 {
		return CommandServe
	}
	if cmd, ok := commands[args[0]]; ok {
		return cmd
	}
	return CommandServe
}
