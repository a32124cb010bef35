// Package insight asks a hosted language model for a written summary of the
// ledger. The call is advisory: any failure is replaced by a fixed message.
package insight

import (
	"context"
	"encoding/json"
	"fmt"

	"quy/internal/core"
)

// FallbackMessage is shown whenever the analysis cannot be produced.
const FallbackMessage = "Rất tiếc, AI không thể phân tích dữ liệu vào lúc này. Vui lòng thử lại sau."

// Analyzer turns a ledger into Markdown prose.
type Analyzer interface {
	Analyze(ctx context.Context, ledger []core.Transaction) (string, error)
}

// AnalyzerFunc adapts a function to Analyzer.
type AnalyzerFunc func(ctx context.Context, ledger []core.Transaction) (string, error)

func (f AnalyzerFunc) Analyze(ctx context.Context, ledger []core.Transaction) (string, error) {
	return f(ctx, ledger)
}

// record is the reduced view sent to the model; ids and people stay local.
type record struct {
	Date   string     `json:"date"`
	Fund   core.Fund  `json:"fund"`
	Type   core.Kind  `json:"type"`
	Amount core.Money `json:"amount"`
	Desc   string     `json:"desc"`
}

const promptTemplate = `
Dưới đây là danh sách các giao dịch tài chính (Công đoàn, Đảng phí, Văn phòng):
%s

Hãy phân tích dữ liệu này và cung cấp:
1. Tóm tắt ngắn gọn tình hình thu chi của từng quỹ.
2. Cảnh báo nếu có chi tiêu bất thường hoặc vượt ngân sách (nếu có thể suy luận).
3. Đưa ra 3 lời khuyên tối ưu hóa ngân sách cho đơn vị.
4. Dự báo xu hướng tháng tới.

Trả lời bằng tiếng Việt, định dạng Markdown chuyên nghiệp.
`

// BuildPrompt renders the Vietnamese analysis request for ledger.
func BuildPrompt(ledger []core.Transaction) (string, error) {
	records := make([]record, 0, len(ledger))
	for _, t := range ledger {
		records = append(records, record{
			Date:   t.Date,
			Fund:   t.Fund,
			Type:   t.Kind,
			Amount: t.Amount,
			Desc:   t.Description,
		})
	}
	data, err := json.Marshal(records)
	if err != nil {
		return "", fmt.Errorf("encode ledger summary: %w", err)
	}
	return fmt.Sprintf(promptTemplate, data), nil
}
