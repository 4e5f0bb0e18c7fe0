package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/enjoysite/friendmap/internal/presence/domain"
)

var tabTitles = []string{
	"우리 친구들, 지금 어디 있나요? 🌙",
	"친구 위치 지도에서 보기 🗺️",
	"친구 목록 실시간 현황 👀",
	"내 설정 프로필 꾸미기 ⚙️",
}

func (m Model) View() string {
	if m.quitting {
		return "안녕! 👋\n"
	}
	if !m.verified {
		return m.viewPrompt()
	}

	var b strings.Builder
	b.WriteString(HeaderStyle.Render(tabTitles[m.tab]) + "\n\n")
	b.WriteString(m.viewTabs() + "\n\n")

	switch m.tab {
	case tabHome:
		b.WriteString(m.viewHome())
	case tabMap:
		b.WriteString(m.viewMap())
	case tabFriends:
		b.WriteString(m.viewFriends())
	case tabSettings:
		b.WriteString(m.viewSettings())
	}

	if m.alert != "" {
		b.WriteString("\n" + ErrorTextStyle.Render("⚠ "+m.alert))
	}
	if m.errMsg != "" {
		b.WriteString("\n" + ErrorTextStyle.Render("✘ "+m.errMsg))
	}
	if m.deps.Feed.Err() != nil {
		b.WriteString("\n" + ErrorTextStyle.Render(msgFeedDown))
	}

	b.WriteString("\n" + FooterStyle.Render(m.footer()))
	return b.String()
}

func (m Model) viewPrompt() string {
	var content string
	if m.restoring {
		content = MutedStyle.Render("저장된 이름 확인 중...")
	} else {
		content = SectionTitleStyle.Render("누구신가요?") + "\n\n" + m.nameInput.View()
		if m.errMsg != "" {
			content += "\n\n" + ErrorTextStyle.Render("✘ "+m.errMsg)
		}
	}

	return HeaderStyle.Render("friendmap") + "\n\n" +
		CardStyle.Render(content) + "\n" +
		FooterStyle.Render("Enter: 입장 • Ctrl+C: 종료")
}

func (m Model) viewTabs() string {
	tabs := make([]string, len(tabNames))
	for i, name := range tabNames {
		label := fmt.Sprintf("%d %s", i+1, name)
		if tab(i) == m.tab {
			tabs[i] = ActiveTabStyle.Render(label)
		} else {
			tabs[i] = TabStyle.Render(label)
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (m Model) viewHome() string {
	action := "p 키로 내 위치 알리기"
	if m.publishing || m.deps.Publisher.Loading() {
		action = "위치 확인 중..."
	}
	share := SectionTitleStyle.Render("📍 내 위치 공유하기") + "\n" + MutedStyle.Render(action)
	if m.lastPublish != nil && m.lastPublish.Timestamp != nil {
		share += "\n" + MutedStyle.Render("마지막 공유 "+formatTime(m.lastPublish))
	}

	status := m.deps.Publisher.Status()
	statusLine := MutedStyle.Render(orDefault(status, "친구들에게 남길 말..."))
	if m.editingStatus {
		statusLine = m.statusInput.View()
	}
	statusCard := SectionTitleStyle.Render("💚 상태 메시지") + "\n" + statusLine

	live := LiveStyle.Render("LIVE") + " " +
		SectionTitleStyle.Render(fmt.Sprintf("현재 접속중인 친구 %d명 보기", len(m.records)))

	return lipgloss.JoinVertical(lipgloss.Left,
		CardStyle.Render(share),
		CardStyle.Render(statusCard),
		CardStyle.Render(live),
	)
}

func (m Model) viewMap() string {
	if m.deps.Board == nil {
		return MutedStyle.Render("지도를 사용할 수 없습니다.")
	}

	cols := (m.width - 6) / 2
	rows := m.height - 14
	if cols < 10 {
		cols = 10
	}
	if rows < 5 {
		rows = 5
	}

	lines, offscreen := m.deps.Board.Plot(cols, rows)
	center, zoom := m.deps.Board.View()

	var legend []string
	for _, mk := range m.deps.Board.Markers() {
		legend = append(legend, mk.Icon.Emoji+" "+mk.Icon.Label)
	}

	out := CardStyle.Render(strings.Join(lines, "\n")) + "\n"
	out += MutedStyle.Render(fmt.Sprintf("  중심 %.4f, %.4f · 줌 %d", center.Lat, center.Lng, zoom)) + "\n"
	if len(legend) > 0 {
		out += "  " + strings.Join(legend, "   ") + "\n"
	}
	if len(offscreen) > 0 {
		out += MutedStyle.Render(fmt.Sprintf("  화면 밖 %d명", len(offscreen)))
	}
	return out
}

func (m Model) viewFriends() string {
	title := SectionTitleStyle.Render(fmt.Sprintf("친구 목록 (%d)", len(m.records)))
	if len(m.records) == 0 {
		return title + "\n\n" + CardStyle.Render(MutedStyle.Render("아직 위치를 공유한 친구가 없어요 🥲"))
	}

	me := ""
	if ident, ok := m.deps.Session.Current(); ok {
		me = ident.UID
	}

	cards := make([]string, 0, len(m.records))
	for _, rec := range m.records {
		head := rec.AvatarEmoji() + "  " + SectionTitleStyle.Render(rec.DisplayName)
		if rec.UID == me {
			head += " " + BadgeStyle.Render("ME")
		}
		body := MutedStyle.Render(rec.StatusMessage)
		if t := formatTime(&rec); t != "" {
			body += "\n" + MutedStyle.Render(t)
		}
		cards = append(cards, CardStyle.Render(head+"\n"+body))
	}
	return title + "\n" + lipgloss.JoinVertical(lipgloss.Left, cards...)
}

func (m Model) viewSettings() string {
	name := ""
	if ident, ok := m.deps.Session.Current(); ok {
		name = ident.DisplayName
	}

	palette := make([]string, len(domain.Palette))
	for i, e := range domain.Palette {
		if i == m.emojiIdx {
			palette[i] = SelectedStyle.Render(e)
		} else {
			palette[i] = UnselectedStyle.Render(e)
		}
	}

	content := MutedStyle.Render("내 이름 (변경 불가)") + "\n" + name + "\n\n" +
		MutedStyle.Render("이모지 (나를 표현해요)") + "\n" + strings.Join(palette, "") + "\n\n" +
		MutedStyle.Render("Enter: 저장하고 위치 업데이트 • x: 로그아웃 (이름 다시 입력하기)")
	return CardStyle.Render(content)
}

func (m Model) footer() string {
	if m.editingStatus {
		return "Enter: 저장 • Esc: 취소"
	}
	keys := "Tab/1-4: 탭 • p: 위치 공유 • s: 상태 메시지 • q: 종료"
	if m.tab == tabSettings {
		keys = "←/→: 이모지 • " + keys
	}
	return keys
}

func formatTime(rec *domain.Record) string {
	if rec == nil || rec.Timestamp == nil || rec.Timestamp.IsZero() {
		return ""
	}
	return rec.Timestamp.Local().Format("15:04")
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
