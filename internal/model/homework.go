package model

// ReviewStatus は宿題のレビューステータスを表す。
type ReviewStatus string

// レビューステータスの定数。
const (
	StatusApproved  ReviewStatus = "approved"
	StatusReviewing ReviewStatus = "reviewing"
	StatusRejected  ReviewStatus = "rejected"
)

// verdicts はステータスごとの通知文言。
var verdicts = map[ReviewStatus]string{
	StatusApproved:  "Работа проверена: ревьюеру всё понравилось. Ура!",
	StatusReviewing: "Работа взята на проверку ревьюером.",
	StatusRejected:  "Работа проверена: у ревьюера есть замечания.",
}

// Verdict はステータスに対応する通知文言を返す。
// 未知のステータスの場合はokがfalseになる。
func (s ReviewStatus) Verdict() (string, bool) {
	v, ok := verdicts[s]
	return v, ok
}

// Homework はレビューAPIが返す宿題1件を表す。
// 1回のポーリングサイクルの間だけ存在する。
// 通知に使うフィールドのみをデコードし、それ以外のキーは型を問わず無視する。
type Homework struct {
	Name   string `json:"homework_name"`
	Status string `json:"status"`
}

// StatusResponse は homework_statuses エンドポイントのレスポンスを表す。
// 検証済みの値のみがこの型に入る。
type StatusResponse struct {
	Homeworks   []Homework
	CurrentDate int64
}

// First は先頭の宿題を返す。宿題が無い場合はnilを返す。
func (r *StatusResponse) First() *Homework {
	if r == nil || len(r.Homeworks) == 0 {
		return nil
	}
	return &r.Homeworks[0]
}
