package model

import "time"

// Failure はバッチ内で失敗したMACアドレス1件分の情報。
type Failure struct {
	MAC    string `json:"mac"`
	Kind   string `json:"kind"` // validation, policy, conflict, directory, timeout
	Reason string `json:"reason"`
}

// BatchReport は1回のバッチ照合の集計結果を表す。
// Valkeyキー: vmam:report:last
type BatchReport struct {
	BatchID     string    `json:"batch_id"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
	Aborted     bool      `json:"aborted"`
	AbortReason string    `json:"abort_reason,omitempty"`

	Total     int `json:"total"`
	Created   int `json:"created"`
	Updated   int `json:"updated"`
	Disabled  int `json:"disabled"`
	Deleted   int `json:"deleted"`
	NoOp      int `json:"noop"`
	Failed    int `json:"failed"`
	Conflicts int `json:"conflicts"`
	Skipped   int `json:"skipped"`

	Failures []Failure `json:"failures,omitempty"`
}

// Mutations はディレクトリに変更を加えた件数を返す。
func (r *BatchReport) Mutations() int {
	return r.Created + r.Updated + r.Disabled + r.Deleted
}

// Duration はバッチの所要時間を返す。
func (r *BatchReport) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
