package calculator

import "errors"

// 集計系の判別可能なエラー
// 「データなし」はゼロ値とは区別して呼び出し側へ伝える
var (
	ErrNoData        = errors.New("指定期間にデータがありません")
	ErrInvalidPeriod = errors.New("期間の指定が不正です（開始日が終了日より後）")
	ErrUnknownPreset = errors.New("未知の期間プリセットです")
)
