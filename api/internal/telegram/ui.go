package telegram

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/Surihub/handmath/api/internal/history"
)

const maxMessage = 3900

const (
	msgWelcome = "손글씨 수학 튜터입니다.\n" +
		"풀이를 종이에 쓰고 사진을 보내면 피드백을 드립니다.\n\n" +
		"/practice 연습 모드\n/recognize 수식 인식 모드\n/problem 현재 문제\n/new 새 문제\n" +
		"/hint 힌트\n/history 풀이 기록\n/delete <번호> 기록 삭제\n/clear_history 기록 전체 삭제"
	msgRecognitionMode = "수식 인식 모드입니다. 수식 사진을 보내면 LaTeX로 바꿔 드립니다."
	msgSolveOnPaper    = "풀이를 종이에 쓰고 사진으로 보내주세요."
	msgNoProblem       = "현재 문제가 없습니다. /practice 로 연습 모드를 시작하세요."
	msgSendPhoto       = "사진을 보내주세요. 명령어는 /start 에서 볼 수 있습니다."
	msgUnknownCommand  = "알 수 없는 명령어입니다. /start 를 참고하세요."
	msgHistoryCleared  = "풀이 기록을 모두 삭제했습니다."
	msgHistoryEmpty    = "아직 풀이 기록이 없습니다."
	msgEntryGone       = "이미 삭제된 기록입니다."
	msgSessionFailed   = "세션을 불러오지 못했습니다. 잠시 후 다시 시도해주세요."
	msgPhotoFailed     = "사진을 불러오지 못했습니다. 다시 보내주세요."
)

func formatHistory(entries []history.Entry) string {
	if len(entries) == 0 {
		return msgHistoryEmpty
	}
	var b strings.Builder
	b.WriteString("🗂 풀이 기록\n")
	for i, e := range entries {
		fmt.Fprintf(&b, "\n%d. %s\n%s\n", i+1, e.Timestamp, excerpt(e.Feedback, 120))
	}
	return b.String()
}

func excerpt(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "…"
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
