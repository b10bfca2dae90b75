package forecast

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Model 予測モデルの共通インターフェース
// 履歴系列を学習して horizon 日分の予測値を返す
type Model interface {
	Name() string
	Forecast(history []float64, horizon int) ([]float64, error)
}

// SMA 単純移動平均モデル
// 直近 Window 日の平均を先へ複製する
type SMA struct {
	Window int
}

// Name モデル名
func (m SMA) Name() string { return "移動平均" }

// Forecast 直近 Window 日の平均を horizon 日分並べる
func (m SMA) Forecast(history []float64, horizon int) ([]float64, error) {
	w := m.Window
	if w <= 0 {
		w = 7
	}
	if len(history) < w {
		return nil, fmt.Errorf("履歴が %d 日未満です", w)
	}

	mean := stat.Mean(history[len(history)-w:], nil)
	out := make([]float64, horizon)
	for i := range out {
		out[i] = mean
	}
	return out, nil
}

// HoltWinters 加法的ホルト・ウィンターズ（週周期）
type HoltWinters struct {
	Period int
	Alpha  float64
	Beta   float64
	Gamma  float64
}

// NewHoltWinters 週周期・既定の平滑化係数でモデルを作る
func NewHoltWinters(period int) HoltWinters {
	return HoltWinters{Period: period, Alpha: 0.3, Beta: 0.05, Gamma: 0.3}
}

// Name モデル名
func (m HoltWinters) Name() string { return "指数平滑（週周期）" }

// Forecast 三重指数平滑で horizon 日分を予測する
// 学習には2周期以上の履歴が要る
func (m HoltWinters) Forecast(history []float64, horizon int) ([]float64, error) {
	p := m.Period
	if p <= 0 {
		p = 7
	}
	if len(history) < 2*p {
		return nil, fmt.Errorf("履歴が %d 日未満です", 2*p)
	}

	// 初期値: 水準は第1周期平均、傾きは周期平均の差、季節は第1周期の偏差
	level := stat.Mean(history[:p], nil)
	next := stat.Mean(history[p:2*p], nil)
	trend := (next - level) / float64(p)

	seasonal := make([]float64, p)
	for i := 0; i < p; i++ {
		seasonal[i] = history[i] - level
	}

	for t := p; t < len(history); t++ {
		s := t % p
		prevLevel := level
		level = m.Alpha*(history[t]-seasonal[s]) + (1-m.Alpha)*(level+trend)
		trend = m.Beta*(level-prevLevel) + (1-m.Beta)*trend
		seasonal[s] = m.Gamma*(history[t]-level) + (1-m.Gamma)*seasonal[s]
	}

	out := make([]float64, horizon)
	for h := 1; h <= horizon; h++ {
		s := (len(history) + h - 1) % p
		v := level + float64(h)*trend + seasonal[s]
		if v < 0 {
			v = 0
		}
		out[h-1] = v
	}
	return out, nil
}

// SeasonalAR 週周期付き自己回帰モデル
// y_t = c + a*y_{t-1} + b*y_{t-period} を最小二乗で解く
type SeasonalAR struct {
	Period int
}

// Name モデル名
func (m SeasonalAR) Name() string { return "季節自己回帰" }

// Forecast 学習済み係数で horizon 日分を逐次予測する
func (m SeasonalAR) Forecast(history []float64, horizon int) ([]float64, error) {
	p := m.Period
	if p <= 0 {
		p = 7
	}
	n := len(history)
	if n < 3*p {
		return nil, fmt.Errorf("履歴が %d 日未満です", 3*p)
	}

	rows := n - p
	X := mat.NewDense(rows, 3, nil)
	y := mat.NewVecDense(rows, nil)
	for i := 0; i < rows; i++ {
		t := i + p
		X.Set(i, 0, 1)
		X.Set(i, 1, history[t-1])
		X.Set(i, 2, history[t-p])
		y.SetVec(i, history[t])
	}

	var coef mat.VecDense
	if err := coef.SolveVec(X, y); err != nil {
		return nil, fmt.Errorf("最小二乗解が得られません: %w", err)
	}

	c, a, b := coef.AtVec(0), coef.AtVec(1), coef.AtVec(2)

	// 予測は逐次: 直近値と1周期前の値を参照する
	extended := append(append([]float64{}, history...), make([]float64, horizon)...)
	for h := 0; h < horizon; h++ {
		t := n + h
		v := c + a*extended[t-1] + b*extended[t-p]
		if v < 0 {
			v = 0
		}
		extended[t] = v
	}
	return extended[n:], nil
}
