package model

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

var clockPattern = regexp.MustCompile(`^([0-9]{2}):([0-9]{2})$`)

// Clock は1日の中の時刻（時・分）を表す。
type Clock struct {
	Hour   int
	Minute int
}

// ParseClock は"HH:MM"形式の文字列を解析する。
// 時は00-23、分は00-59の範囲のみ受け付ける。
func ParseClock(s string) (Clock, error) {
	m := clockPattern.FindStringSubmatch(s)
	if m == nil {
		return Clock{}, fmt.Errorf("invalid clock format: %q", s)
	}
	h, _ := strconv.Atoi(m[1])
	mi, _ := strconv.Atoi(m[2])
	if h > 23 || mi > 59 {
		return Clock{}, fmt.Errorf("clock out of range: %q", s)
	}
	return Clock{Hour: h, Minute: mi}, nil
}

// ClockOf はtの壁時計時刻を返す。
func ClockOf(t time.Time) Clock {
	return Clock{Hour: t.Hour(), Minute: t.Minute()}
}

// MinuteOfDay は0時からの経過分を返す。
func (c Clock) MinuteOfDay() int {
	return c.Hour*60 + c.Minute
}

// String は"HH:MM"形式を返す。
func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// ClockWindow は開始・終了時刻の組。両端を含む。
type ClockWindow struct {
	Start Clock
	End   Clock
}

// ParseClockWindow はTimeのstart/end文字列からClockWindowを生成する。
func ParseClockWindow(start, end string) (ClockWindow, error) {
	s, err := ParseClock(start)
	if err != nil {
		return ClockWindow{}, err
	}
	e, err := ParseClock(end)
	if err != nil {
		return ClockWindow{}, err
	}
	return ClockWindow{Start: s, End: e}, nil
}

// Contains はtが時間帯に含まれるかを分単位の通算値で判定する。
// 開始が終了より後の時間帯は日付をまたぐものとして扱う。
func (w ClockWindow) Contains(t time.Time) bool {
	now := ClockOf(t).MinuteOfDay()
	start := w.Start.MinuteOfDay()
	end := w.End.MinuteOfDay()
	if start <= end {
		return start <= now && now <= end
	}
	return now >= start || now <= end
}

// ContainsLegacy は時と分を独立に比較する旧来の判定を再現する。
// 例えば09:30-10:15の時間帯は09:45には一致しない（45 > 15）。
func (w ClockWindow) ContainsLegacy(t time.Time) bool {
	now := ClockOf(t)
	return w.Start.Hour <= now.Hour && w.Start.Minute <= now.Minute &&
		w.End.Hour >= now.Hour && w.End.Minute >= now.Minute
}
