package classifier

import "math"

// LogisticRegression 用批量梯度下降拟合带 L2 正则的逻辑回归。
type LogisticRegression struct {
	LearningRate float64
	Iterations   int
	L2           float64
}

// NewLogisticRegression 返回一组适合少量 0/1 特征的默认参数。
func NewLogisticRegression() *LogisticRegression {
	return &LogisticRegression{
		LearningRate: 0.5,
		Iterations:   500,
		L2:           0.01,
	}
}

// LogisticModel 是训练结果：每列一个权重加一个截距。
type LogisticModel struct {
	Weights []float64
	Bias    float64
}

// Fit 拟合模型。训练过程是确定性的，相同输入得到相同权重。
func (lr *LogisticRegression) Fit(X [][]float64, y []int) (Model, error) {
	dims, err := validate(X, y)
	if err != nil {
		return nil, err
	}

	m := &LogisticModel{Weights: make([]float64, dims)}
	n := float64(len(X))
	grad := make([]float64, dims)
	for iter := 0; iter < lr.Iterations; iter++ {
		for j := range grad {
			grad[j] = 0
		}
		var gradBias float64
		for i, row := range X {
			diff := m.PredictProba(row) - float64(y[i])
			for j, v := range row {
				grad[j] += diff * v
			}
			gradBias += diff
		}
		for j := range m.Weights {
			m.Weights[j] -= lr.LearningRate * (grad[j]/n + lr.L2*m.Weights[j])
		}
		m.Bias -= lr.LearningRate * gradBias / n
	}
	return m, nil
}

// PredictProba 返回 sigmoid(w·x + b)。x 比权重短时缺失的列按 0 处理。
func (m *LogisticModel) PredictProba(x []float64) float64 {
	z := m.Bias
	for j, w := range m.Weights {
		if j < len(x) {
			z += w * x[j]
		}
	}
	return sigmoid(z)
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}
