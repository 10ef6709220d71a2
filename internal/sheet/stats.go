package sheet

import (
	"sort"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"sheetfill/internal/model"
)

const (
	longTextLen  = 100
	shortTextLen = 20

	likelyQuestionLongRatio  = 0.3
	likelyAnswerShortRatio   = 0.3
	likelyAnswerFilledRatio  = 0.1
	fallbackAnswerColumnSpan = 4
)

// AnalyzeColumnPatterns computes per-column statistics over the sample
// rows. Column keys are letters; columns are indexed positionally against
// the samples, independent of header presence.
func AnalyzeColumnPatterns(samples [][]string) map[string]model.ColumnStats {
	cols := 0
	for _, row := range samples {
		if len(row) > cols {
			cols = len(row)
		}
	}
	if cols == 0 || len(samples) == 0 {
		return nil
	}

	stats := make(map[string]model.ColumnStats, cols)
	for c := range cols {
		var filled, long, short, numeric, totalLen int
		for _, row := range samples {
			var v string
			if c < len(row) {
				v = strings.TrimSpace(row[c])
			}
			if v == "" {
				continue
			}
			filled++
			totalLen += len(v)
			switch {
			case len(v) > longTextLen:
				long++
			case len(v) < shortTextLen:
				short++
			}
			if _, err := strconv.ParseFloat(v, 64); err == nil {
				numeric++
			}
		}

		n := float64(len(samples))
		cs := model.ColumnStats{
			FilledRatio:    float64(filled) / n,
			LongTextRatio:  float64(long) / n,
			ShortTextRatio: float64(short) / n,
			NumericRatio:   float64(numeric) / n,
		}
		if filled > 0 {
			cs.AvgTextLength = float64(totalLen) / float64(filled)
		}
		cs.LikelyQuestion = cs.LongTextRatio >= likelyQuestionLongRatio
		cs.LikelyAnswer = cs.ShortTextRatio >= likelyAnswerShortRatio &&
			cs.FilledRatio >= likelyAnswerFilledRatio

		letter, err := excelize.ColumnNumberToName(c + 1)
		if err != nil {
			continue
		}
		stats[letter] = cs
	}
	return stats
}

// StatisticalColumnFallback derives a column layout from statistics alone,
// for when no model-based detection is available. The question column is
// the likely-question column with the highest long-text ratio; failing
// that, the column with the longest average text. Answer columns are the
// likely-answer columns after it, or the next few columns when statistics
// identify none.
func StatisticalColumnFallback(stats map[string]model.ColumnStats) *model.ColumnDetection {
	question := ""
	bestLong := -1.0
	for letter, cs := range stats {
		if !cs.LikelyQuestion {
			continue
		}
		if cs.LongTextRatio > bestLong || (cs.LongTextRatio == bestLong && letter < question) {
			question = letter
			bestLong = cs.LongTextRatio
		}
	}
	if question == "" {
		bestAvg := -1.0
		for letter, cs := range stats {
			if cs.AvgTextLength > bestAvg || (cs.AvgTextLength == bestAvg && letter < question) {
				question = letter
				bestAvg = cs.AvgTextLength
			}
		}
	}
	if question == "" {
		question = "A"
	}

	qNum, err := excelize.ColumnNameToNumber(question)
	if err != nil {
		qNum = 1
		question = "A"
	}

	var answers []string
	for letter, cs := range stats {
		n, err := excelize.ColumnNameToNumber(letter)
		if err != nil || n <= qNum {
			continue
		}
		if cs.LikelyAnswer {
			answers = append(answers, letter)
		}
	}
	if len(answers) == 0 {
		for i := 1; i <= fallbackAnswerColumnSpan; i++ {
			letter, err := excelize.ColumnNumberToName(qNum + i)
			if err != nil {
				break
			}
			answers = append(answers, letter)
		}
	}
	sortColumns(answers)

	purposes := make(map[string]string, len(answers)+1)
	purposes[question] = "question"
	for _, a := range answers {
		purposes[a] = "answer"
	}

	return &model.ColumnDetection{
		QuestionColumn: question,
		AnswerColumns:  answers,
		ColumnPurposes: purposes,
		StartRow:       2,
		Confidence:     "low",
	}
}

// sortColumns orders column letters by their numeric position.
func sortColumns(letters []string) {
	sort.Slice(letters, func(i, j int) bool {
		a, _ := excelize.ColumnNameToNumber(letters[i])
		b, _ := excelize.ColumnNameToNumber(letters[j])
		return a < b
	})
}
