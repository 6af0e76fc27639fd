package ctl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/docopt/docopt-go"

	"github.com/hitoshi/nestfeed/internal/view"
)

func arg(opts docopt.Opts, key string) string {
	v, _ := opts.String(key)
	return v
}

// success は成功メッセージをアラートとして記録して表示する。
func success(s *session, w io.Writer, format string, a ...any) {
	msg := fmt.Sprintf(format, a...)
	s.store.Alert(msg, "success")
	fmt.Fprintln(w, msg)
}

// refreshAll はログイン中のユーザーに関する状態をすべて取得し直す。
// Nest一覧を先に取得し、その結果を元にメンバー・投稿・時間帯を取得する。
func refreshAll(ctx context.Context, s *session) error {
	if err := s.store.RefreshNests(ctx); err != nil {
		return err
	}
	return errors.Join(
		s.store.RefreshFreets(ctx),
		s.store.RefreshFriends(ctx),
		s.store.RefreshNestMembers(ctx),
		s.store.RefreshNestPosts(ctx),
		s.store.RefreshNestTimes(ctx),
	)
}

// findNest は名前からNestを探す。手元になければNest一覧を取得し直す。
func findNest(ctx context.Context, s *session, name string) (view.NestView, error) {
	lookup := func() (view.NestView, bool) {
		for _, n := range s.store.Snapshot().Nests {
			if n.Name == name {
				return n, true
			}
		}
		return view.NestView{}, false
	}

	if n, ok := lookup(); ok {
		return n, nil
	}
	if err := s.store.RefreshNests(ctx); err != nil {
		return view.NestView{}, err
	}
	if n, ok := lookup(); ok {
		return n, nil
	}
	return view.NestView{}, fmt.Errorf("Nest %q が見つかりません", name)
}

func runRegister(ctx context.Context, s *session, opts docopt.Opts, w io.Writer) error {
	u, err := s.api.Register(ctx, arg(opts, "<username>"), arg(opts, "<password>"))
	if err != nil {
		return err
	}
	s.store.SetUsername(u.Username)
	success(s, w, "%s として登録しました", u.Username)
	return nil
}

func runLogin(ctx context.Context, s *session, opts docopt.Opts, w io.Writer) error {
	u, err := s.api.Login(ctx, arg(opts, "<username>"), arg(opts, "<password>"))
	if err != nil {
		return err
	}
	s.store.SetUsername(u.Username)
	success(s, w, "%s としてログインしました", u.Username)
	return refreshAll(ctx, s)
}

func runLogout(ctx context.Context, s *session, _ docopt.Opts, w io.Writer) error {
	if err := s.api.Logout(ctx); err != nil {
		return err
	}
	s.store.SetUsername("")
	s.store.UpdateFilter("")
	success(s, w, "ログアウトしました")
	return nil
}

func runRefresh(ctx context.Context, s *session, _ docopt.Opts, w io.Writer) error {
	if err := refreshAll(ctx, s); err != nil {
		return err
	}
	snap := s.store.Snapshot()
	fmt.Fprintf(w, "freets=%d nests=%d friends=%d times=%d\n",
		len(snap.Freets), len(snap.Nests), len(snap.Friends), len(snap.Times))
	return nil
}

// runFeed はフィードを表示する。--allがなければ自分のFreetと、
// 現在時刻が時間帯に含まれるNestのメンバーのFreetだけを表示する。
func runFeed(ctx context.Context, s *session, opts docopt.Opts, w io.Writer) error {
	s.store.UpdateFilter(arg(opts, "--author"))
	if err := s.store.RefreshFreets(ctx); err != nil {
		return err
	}
	all, _ := opts.Bool("--all")
	snap := s.store.Snapshot()
	if !all && snap.Username != "" {
		if err := s.store.RefreshNests(ctx); err != nil {
			return err
		}
		if err := errors.Join(s.store.RefreshNestMembers(ctx), s.store.RefreshNestTimes(ctx)); err != nil {
			return err
		}
	}

	t := now()
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, f := range s.store.Snapshot().Freets {
		if !all && f.Author != snap.Username && !s.store.IsOnFeed(f.Author, t) {
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", f.ID, f.Author, f.DateCreated, oneLine(f.Content))
	}
	return tw.Flush()
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func runNests(ctx context.Context, s *session, _ docopt.Opts, w io.Writer) error {
	if err := s.store.RefreshNests(ctx); err != nil {
		return err
	}
	if err := errors.Join(s.store.RefreshNestMembers(ctx), s.store.RefreshNestPosts(ctx), s.store.RefreshNestTimes(ctx)); err != nil {
		return err
	}

	snap := s.store.Snapshot()
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, n := range snap.Nests {
		members := make([]string, 0, len(snap.NestToMembers[n.ID]))
		for _, m := range s.store.NestMembers(n.ID) {
			members = append(members, m.Username)
		}
		windows := make([]string, 0, len(snap.NestToTimes[n.Name]))
		for _, t := range snap.NestToTimes[n.Name] {
			windows = append(windows, t.StartTime+"-"+t.EndTime)
		}
		fmt.Fprintf(tw, "%s\t%s\tmembers=%s\tposts=%d\ttimes=%s\n",
			n.ID, n.Name, strings.Join(members, ","), len(snap.NestToPosts[n.ID]), strings.Join(windows, ","))
	}
	return tw.Flush()
}

func runNestCreate(ctx context.Context, s *session, opts docopt.Opts, w io.Writer) error {
	n, err := s.api.CreateNest(ctx, arg(opts, "<name>"))
	if err != nil {
		return err
	}
	s.store.AddNest(*n)
	success(s, w, "Nest %s を作成しました (%s)", n.Name, n.ID)
	return s.store.RefreshNestTimes(ctx)
}

func runNestDelete(ctx context.Context, s *session, opts docopt.Opts, w io.Writer) error {
	n, err := findNest(ctx, s, arg(opts, "<name>"))
	if err != nil {
		return err
	}
	if err := s.api.DeleteNest(ctx, n.ID); err != nil {
		return err
	}
	success(s, w, "Nest %s を削除しました", n.Name)
	return errors.Join(s.store.RefreshNests(ctx), s.store.RefreshNestTimes(ctx))
}

func runNestMember(ctx context.Context, s *session, opts docopt.Opts, w io.Writer) error {
	n, err := findNest(ctx, s, arg(opts, "<name>"))
	if err != nil {
		return err
	}
	username := arg(opts, "<username>")
	op := operation(opts)
	if _, err := s.api.UpdateNestMembers(ctx, n.ID, username, op); err != nil {
		return err
	}
	if err := s.store.RefreshNestMembers(ctx); err != nil {
		return err
	}
	success(s, w, "Nest %s のメンバーを更新しました (%s %s)", n.Name, op, username)
	return nil
}

func runNestPost(ctx context.Context, s *session, opts docopt.Opts, w io.Writer) error {
	n, err := findNest(ctx, s, arg(opts, "<name>"))
	if err != nil {
		return err
	}
	freetID := arg(opts, "<freet_id>")
	op := operation(opts)
	if _, err := s.api.UpdateNestPosts(ctx, n.ID, freetID, op); err != nil {
		return err
	}
	if err := s.store.RefreshNestPosts(ctx); err != nil {
		return err
	}
	success(s, w, "Nest %s の投稿を更新しました (%s %s)", n.Name, op, freetID)
	return nil
}

func printUsers(w io.Writer, users []view.UserView) {
	for _, u := range users {
		fmt.Fprintln(w, u.Username)
	}
}

func runFriends(ctx context.Context, s *session, _ docopt.Opts, w io.Writer) error {
	if err := s.store.RefreshFriends(ctx); err != nil {
		return err
	}
	printUsers(w, s.store.Snapshot().Friends)
	return nil
}

func runFriend(ctx context.Context, s *session, opts docopt.Opts, w io.Writer) error {
	username := arg(opts, "<username>")
	if add, _ := opts.Bool("add"); add {
		if _, err := s.api.AddFriend(ctx, username); err != nil {
			return err
		}
		success(s, w, "%s をフレンドに追加しました", username)
	} else {
		if _, err := s.api.RemoveFriend(ctx, username); err != nil {
			return err
		}
		success(s, w, "%s をフレンドから外しました", username)
	}
	return s.store.RefreshFriends(ctx)
}

func runMutual(ctx context.Context, s *session, opts docopt.Opts, w io.Writer) error {
	if err := s.store.RefreshMutual(ctx, arg(opts, "<username>")); err != nil {
		return err
	}
	printUsers(w, s.store.Snapshot().Mutual)
	return nil
}

func runSuggested(ctx context.Context, s *session, opts docopt.Opts, w io.Writer) error {
	if err := s.store.RefreshSuggested(ctx, arg(opts, "<username>")); err != nil {
		return err
	}
	printUsers(w, s.store.Snapshot().Suggested)
	return nil
}

func runTimes(ctx context.Context, s *session, _ docopt.Opts, w io.Writer) error {
	if err := s.store.RefreshNestTimes(ctx); err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, t := range s.store.Snapshot().Times {
		fmt.Fprintf(tw, "%s\t%s\t%s-%s\n", t.ID, t.GroupID, t.StartTime, t.EndTime)
	}
	return tw.Flush()
}

func runTimeCreate(ctx context.Context, s *session, opts docopt.Opts, w io.Writer) error {
	n, err := findNest(ctx, s, arg(opts, "<name>"))
	if err != nil {
		return err
	}
	t, err := s.api.CreateTime(ctx, n.ID, arg(opts, "<start>"), arg(opts, "<end>"))
	if err != nil {
		return err
	}
	success(s, w, "Nest %s に時間帯 %s-%s を追加しました (%s)", n.Name, t.StartTime, t.EndTime, t.ID)
	return s.store.RefreshNestTimes(ctx)
}

func runTimeSet(ctx context.Context, s *session, opts docopt.Opts, w io.Writer) error {
	id := arg(opts, "<time_id>")
	var (
		t   *view.TimeView
		err error
	)
	if start := arg(opts, "--start"); start != "" {
		t, err = s.api.SetStartTime(ctx, id, start)
	} else {
		t, err = s.api.SetEndTime(ctx, id, arg(opts, "--end"))
	}
	if err != nil {
		return err
	}
	success(s, w, "時間帯を %s-%s に変更しました", t.StartTime, t.EndTime)
	return s.store.RefreshNestTimes(ctx)
}

func runFreetPost(ctx context.Context, s *session, opts docopt.Opts, w io.Writer) error {
	f, err := s.api.PostFreet(ctx, arg(opts, "<content>"))
	if err != nil {
		return err
	}
	fmt.Fprintln(w, f.ID)
	return s.store.RefreshFreets(ctx)
}
