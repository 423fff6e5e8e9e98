package services

import (
	"fmt"
	"strings"

	"github.com/sooahkim/childcenter-chat/internal/domain/entities"
)

const (
	// maxCharsPerDoc bounds each excerpt so one long passage cannot crowd
	// out the rest of the prompt.
	maxCharsPerDoc = 900
	// maxEvidenceChars bounds the whole block.
	maxEvidenceChars = 4000

	emptyEvidenceBlock = `- (근거 없음) 관련 근거가 검색되지 않았습니다. 필요한 부분은 "추가 확인 필요"로 표기하세요.`
)

// FormatEvidenceBlock renders retrieved passages as a prompt block of
// numbered evidence entries. Truncation counts runes, not bytes.
func FormatEvidenceBlock(docs []entities.EvidenceDoc) string {
	if len(docs) == 0 {
		return emptyEvidenceBlock
	}

	var b strings.Builder
	total := 0
	for i, doc := range docs {
		excerpt := truncateRunes(strings.TrimSpace(doc.Text), maxCharsPerDoc)
		entry := fmt.Sprintf("- 근거ID: G%d\n  문서: %s\n  발행: %s, %s\n  발췌: %s",
			i+1, doc.Title, doc.Org, doc.Year, excerpt)

		entryLen := len([]rune(entry))
		if total > 0 && total+entryLen > maxEvidenceChars {
			break
		}
		if total > 0 {
			b.WriteString("\n")
		}
		b.WriteString(entry)
		total += entryLen
	}

	if b.Len() == 0 {
		return emptyEvidenceBlock
	}
	return b.String()
}

func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
