package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/gabriel-vasile/mimetype"

	"multisource/internal/camera"
)

const (
	colName     = 24
	colStatus   = 12
	colImages   = 8
	colIndex    = 7
	colSelect   = 13
	colFrame    = 24
	minWidth    = 80
	minHeight   = 12
	headerLines = 4 // header + subheader + column header + separator
	footerLines = 2 // notification bar + status bar

	// DefaultTick は表示更新（GetImage の呼び出し）の間隔
	DefaultTick = time.Second
)

// FeedSource はダッシュボードが表示するフィードの提供元
// camera.Manager が実装する
type FeedSource interface {
	GetFeeds() []*camera.Feed
	Reload(ctx context.Context, names ...string) error
}

// メッセージ

type tickMsg time.Time

type reloadDoneMsg struct {
	target string
	err    error
}

// row は1フィード分の表示内容
type row struct {
	info  camera.FeedInfo
	frame string // 現在のフレームの種類とサイズ
}

// Dashboard はフィード一覧を表示するBubble Teaモデル
// 各ティックで全フィードの GetImage を呼び、ホストの表示サイクルとして振る舞う
type Dashboard struct {
	ctx       context.Context
	feeds     FeedSource
	rows      []row
	cursor    int
	width     int
	height    int
	tick      time.Duration
	reloading int
	lastMsg   string // 通知バーに表示する一時メッセージ
}

// Option はDashboardの設定を変更する
type Option func(*Dashboard)

// WithTick は表示更新の間隔を設定する
func WithTick(d time.Duration) Option {
	return func(db *Dashboard) {
		if d > 0 {
			db.tick = d
		}
	}
}

// WithContext は再読み込みに使うコンテキストを設定する
func WithContext(ctx context.Context) Option {
	return func(db *Dashboard) { db.ctx = ctx }
}

// NewDashboard は新しいダッシュボードを作成する
func NewDashboard(feeds FeedSource, opts ...Option) Dashboard {
	d := Dashboard{
		ctx:   context.Background(),
		feeds: feeds,
		tick:  DefaultTick,
	}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}

// Init は最初の表示更新を行う
func (d Dashboard) Init() tea.Cmd {
	return func() tea.Msg { return tickMsg(time.Now()) }
}

func (d Dashboard) scheduleTick() tea.Cmd {
	return tea.Tick(d.tick, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (d Dashboard) reload(target string, names ...string) tea.Cmd {
	return func() tea.Msg {
		err := d.feeds.Reload(d.ctx, names...)
		return reloadDoneMsg{target: target, err: err}
	}
}

// Update はメッセージを処理する
func (d Dashboard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.KeyMsg:
		return d.handleKey(msg)

	case tea.WindowSizeMsg:
		d.width = msg.Width
		d.height = msg.Height
		return d, nil

	case tickMsg:
		d.refresh()
		return d, d.scheduleTick()

	case reloadDoneMsg:
		if d.reloading > 0 {
			d.reloading--
		}
		if msg.err != nil {
			d.lastMsg = fmt.Sprintf("Reload %s failed: %s", msg.target, firstLine(msg.err.Error()))
		} else {
			d.lastMsg = fmt.Sprintf("Reloaded %s", msg.target)
		}
		d.refresh()
		return d, nil
	}

	return d, nil
}

func (d Dashboard) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return d, tea.Quit

	case "j", "down":
		if d.cursor < len(d.rows)-1 {
			d.cursor++
		}
		return d, nil

	case "k", "up":
		if d.cursor > 0 {
			d.cursor--
		}
		return d, nil

	case "r":
		if len(d.rows) == 0 {
			return d, nil
		}
		name := d.rows[d.cursor].info.Name
		d.reloading++
		d.lastMsg = fmt.Sprintf("Reloading %s...", name)
		return d, d.reload(name, name)

	case "R":
		d.reloading++
		d.lastMsg = "Reloading all feeds..."
		return d, d.reload("all feeds")

	case "G":
		if len(d.rows) > 0 {
			d.cursor = len(d.rows) - 1
		}
		return d, nil

	case "g":
		d.cursor = 0
		return d, nil
	}

	return d, nil
}

// refresh は全フィードから現在の画像を取得して表示内容を更新する
func (d *Dashboard) refresh() {
	feeds := d.feeds.GetFeeds()
	rows := make([]row, 0, len(feeds))
	for _, feed := range feeds {
		img := feed.GetImage()
		rows = append(rows, row{info: feed.Info(), frame: describeFrame(img)})
	}
	d.rows = rows

	if d.cursor >= len(d.rows) {
		d.cursor = max(0, len(d.rows)-1)
	}
}

// View はダッシュボードを描画する
func (d Dashboard) View() string {
	if d.width < minWidth || d.height < minHeight {
		return fmt.Sprintf("\n  Terminal too small (need %dx%d, got %dx%d)\n", minWidth, minHeight, d.width, d.height)
	}

	var b strings.Builder

	b.WriteString(d.renderHeader())
	b.WriteString("\n")
	b.WriteString(d.renderSubheader())
	b.WriteString("\n")
	b.WriteString(d.renderColumnHeaders())
	b.WriteString("\n")
	b.WriteString(d.renderSeparator())
	b.WriteString("\n")

	listHeight := d.height - headerLines - footerLines
	b.WriteString(d.renderFeedList(listHeight))

	b.WriteString(d.renderNotificationBar())
	b.WriteString("\n")
	b.WriteString(d.renderStatusBar())

	return b.String()
}

func (d Dashboard) renderHeader() string {
	title := headerStyle.Render("Multisource")

	invalid := 0
	for _, r := range d.rows {
		if r.info.Status == camera.StatusInvalid || r.info.LastError != nil {
			invalid++
		}
	}

	right := ""
	if invalid > 0 {
		right = badgeStyle.Render(fmt.Sprintf("[%d need attention]", invalid))
	}

	gap := d.width - lipgloss.Width(title) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}

	return title + strings.Repeat(" ", gap) + right
}

func (d Dashboard) renderSubheader() string {
	images := 0
	for _, r := range d.rows {
		images += r.info.PoolSize
	}
	status := fmt.Sprintf("%d feeds, %d images", len(d.rows), images)
	if d.reloading > 0 {
		status += " · reloading..."
	}
	return subheaderStyle.Render(status)
}

func (d Dashboard) renderColumnHeaders() string {
	header := padRight("NAME", colName) +
		padRight("STATUS", colStatus) +
		padRight("IMAGES", colImages) +
		padRight("INDEX", colIndex) +
		padRight("SELECTION", colSelect) +
		padRight("FRAME", colFrame)
	if d.width >= 100 {
		header += "CHANGED"
	}
	return columnHeaderStyle.Render(header)
}

func (d Dashboard) renderSeparator() string {
	sep := ""
	for _, w := range []int{colName, colStatus, colImages, colIndex, colSelect, colFrame} {
		sep += padRight(strings.Repeat("─", w-1), w)
	}
	if d.width >= 100 {
		sep += strings.Repeat("─", 10)
	}
	return subheaderStyle.Render(sep)
}

func (d Dashboard) renderFeedList(height int) string {
	if len(d.rows) == 0 {
		return padLines("  No feeds configured.\n", height)
	}

	start := 0
	if d.cursor >= height {
		start = d.cursor - height + 1
	}
	end := start + height
	if end > len(d.rows) {
		end = len(d.rows)
	}

	var b strings.Builder
	for i := start; i < end; i++ {
		info := d.rows[i].info

		prefix := "  "
		if i == d.cursor {
			prefix = cursorStyle.Render("▸ ")
		}

		name := padRight(truncate(info.Name, colName-3), colName-2)
		status := statusStyle(info.Status).Render(padRight(statusLabel(info), colStatus))

		index := "-"
		if info.Cursor >= 0 {
			index = fmt.Sprintf("%d", info.Cursor+1)
		}

		line := prefix + name + status +
			padRight(fmt.Sprintf("%d", info.PoolSize), colImages) +
			padRight(index, colIndex) +
			padRight(string(info.Selection), colSelect) +
			padRight(truncate(d.rows[i].frame, colFrame-1), colFrame)
		if d.width >= 100 {
			line += lipgloss.NewStyle().Foreground(colorMuted).Render(since(info.LastRefresh))
		}

		b.WriteString(line)
		b.WriteString("\n")
	}

	for i := end - start; i < height; i++ {
		b.WriteString("\n")
	}

	return b.String()
}

func (d Dashboard) renderNotificationBar() string {
	return notificationBarStyle.Render("  " + truncate(d.lastMsg, d.width-4))
}

func (d Dashboard) renderStatusBar() string {
	return statusBarStyle.Render("  j/k:navigate  r:reload  R:reload all  q:quit")
}

// ヘルパー関数

// describeFrame はフレームの種類とサイズを表す文字列を返す
// 画像の検証は行わず、表示用に先頭バイトから種類を推定するだけ
func describeFrame(img []byte) string {
	if img == nil {
		return "-"
	}
	return fmt.Sprintf("%s %s", mimetype.Detect(img).String(), formatBytes(len(img)))
}

func formatBytes(n int) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1fMB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1fKB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%dB", n)
	}
}

func since(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return time.Since(t).Truncate(time.Second).String() + " ago"
}

// padRight は表示幅を基準に右側を空白で埋める
func padRight(s string, width int) string {
	w := lipgloss.Width(s)
	if w >= width {
		return s
	}
	return s + strings.Repeat(" ", width-w)
}

func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 1 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-1]) + "…"
}

func padLines(content string, height int) string {
	lines := strings.Count(content, "\n")
	if padding := height - lines; padding > 0 {
		content += strings.Repeat("\n", padding)
	}
	return content
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
