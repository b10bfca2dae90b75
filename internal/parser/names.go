package parser

import (
	"fmt"
	"strconv"
	"strings"
)

// WardDisplayName 病棟コードから表示名を生成する
// 例: "02A" → "2階A病棟"。変換できないコードはそのまま返す
func WardDisplayName(code string) string {
	code = strings.TrimSpace(code)
	if len(code) < 3 {
		return code
	}

	floor, err := strconv.Atoi(code[:2])
	if err != nil {
		return code
	}

	return fmt.Sprintf("%d階%s病棟", floor, code[2:])
}
