// Package ctl はnestfeed APIのコマンドラインクライアントnestctlを実装する。
//
// 実行ごとに状態ファイルからストアを復元し、セッションCookieは状態ファイルの隣に保存する。
package ctl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/docopt/docopt-go"

	"github.com/hitoshi/nestfeed/internal/client"
	"github.com/hitoshi/nestfeed/internal/logger"
	"github.com/hitoshi/nestfeed/internal/store"
)

// Version はnestctlのバージョン。
const Version = "0.1.0"

const usage = `nestctl: nestfeed command line client.

Usage:
  nestctl register <username> <password> [options]
  nestctl login <username> <password> [options]
  nestctl logout [options]
  nestctl refresh [options]
  nestctl feed [--author=<username>] [--all] [options]
  nestctl nests [options]
  nestctl nest create <name> [options]
  nestctl nest delete <name> [options]
  nestctl nest member (add|remove) <name> <username> [options]
  nestctl nest post (add|remove) <name> <freet_id> [options]
  nestctl friends [options]
  nestctl friend (add|remove) <username> [options]
  nestctl mutual <username> [options]
  nestctl suggested <username> [options]
  nestctl times [options]
  nestctl time create <name> <start> <end> [options]
  nestctl time set <time_id> (--start=<hh:mm> | --end=<hh:mm>) [options]
  nestctl freet post <content> [options]
  nestctl -h | --help
  nestctl --version

Options:
  --api=<url>      API base URL [default: http://localhost:8080].
  --state=<file>   Store snapshot file [default: nestctl.json].
  --legacy-clock   Compare hours and minutes separately when checking nest windows.
  -h --help        Show this screen.
  --version        Show version.`

// now はフィード判定に使う現在時刻。テストで差し替える。
var now = time.Now

// Run はargsを解析してコマンドを実行する。結果はstdoutに書き出す。
func Run(ctx context.Context, stdout io.Writer, args []string) error {
	var parseErr error
	helped := false
	parser := &docopt.Parser{
		HelpHandler: func(err error, text string) {
			if err != nil {
				parseErr = err
				return
			}
			helped = true
			fmt.Fprintln(stdout, text)
		},
	}

	opts, err := parser.ParseArgs(usage, args, Version)
	if parseErr != nil || err != nil {
		return fmt.Errorf("引数が不正です\n\n%s", usage)
	}
	if helped {
		return nil
	}

	apiURL, _ := opts.String("--api")
	statePath, _ := opts.String("--state")
	legacy, _ := opts.Bool("--legacy-clock")

	sess, err := openSession(apiURL, statePath, legacy, newLogger())
	if err != nil {
		return err
	}

	cmd := dispatch(opts)
	if cmd == nil {
		return fmt.Errorf("不明なコマンドです\n\n%s", usage)
	}

	runErr := cmd(ctx, sess, opts, stdout)
	if apiErr, ok := client.AsError(runErr); ok {
		sess.store.Alert(apiErr.Message(), "error")
	}
	if err := sess.saveCookies(); err != nil {
		return errors.Join(runErr, err)
	}
	return runErr
}

func newLogger() *slog.Logger {
	level := slog.LevelWarn
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		level = logger.ParseLevel(v)
	}
	return logger.Setup(os.Stderr, level)
}

type command func(ctx context.Context, s *session, opts docopt.Opts, w io.Writer) error

// dispatch はoptsで選ばれたコマンドを返す。
func dispatch(opts docopt.Opts) command {
	is := func(key string) bool {
		v, _ := opts.Bool(key)
		return v
	}

	switch {
	case is("register"):
		return runRegister
	case is("login"):
		return runLogin
	case is("logout"):
		return runLogout
	case is("refresh"):
		return runRefresh
	case is("feed"):
		return runFeed
	case is("nests"):
		return runNests
	case is("nest") && is("create"):
		return runNestCreate
	case is("nest") && is("delete"):
		return runNestDelete
	case is("nest") && is("member"):
		return runNestMember
	case is("nest") && is("post"):
		return runNestPost
	case is("friends"):
		return runFriends
	case is("friend"):
		return runFriend
	case is("mutual"):
		return runMutual
	case is("suggested"):
		return runSuggested
	case is("times"):
		return runTimes
	case is("time") && is("create"):
		return runTimeCreate
	case is("time") && is("set"):
		return runTimeSet
	case is("freet") && is("post"):
		return runFreetPost
	}
	return nil
}

// operation はadd|removeの選択をAPIの操作名に変換する。
func operation(opts docopt.Opts) string {
	if add, _ := opts.Bool("add"); add {
		return client.OpAdd
	}
	return client.OpRemove
}

// session は1回の実行で使うクライアントとストア。
type session struct {
	api        *client.Client
	store      *store.Store
	cookiePath string
}
