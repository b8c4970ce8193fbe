// Package status は宿題のレビューステータスを通知文に変換する。
package status

import (
	"fmt"

	"github.com/hitoshi/hwnotify/internal/model"
)

// messageFormat は通知文のフォーマット。宿題名と判定文言を埋め込む。
const messageFormat = `Изменился статус проверки работы "%s". %s`

// Parse は宿題1件から通知文を生成する。
// hwがnil（宿題なし）またはstatusが空の場合は空文字列を返し、通知不要を示す。
// 未知のステータスはUnknownStatusError、homework_nameが無い場合はMissingFieldErrorを返す。
// 副作用を持たないため、同じ入力には常に同じ結果を返す。
func Parse(hw *model.Homework) (string, error) {
	if hw == nil || hw.Status == "" {
		return "", nil
	}

	verdict, ok := model.ReviewStatus(hw.Status).Verdict()
	if !ok {
		return "", model.NewUnknownStatusError(hw.Status)
	}

	if hw.Name == "" {
		return "", model.NewMissingFieldError("homework_name")
	}

	return fmt.Sprintf(messageFormat, hw.Name, verdict), nil
}
