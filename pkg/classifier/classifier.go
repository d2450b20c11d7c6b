// Package classifier 定义二分类模型的能力接口，并提供一个逻辑回归实现。
package classifier

import "errors"

var (
	// ErrEmptyDataset 表示训练集为空。
	ErrEmptyDataset = errors.New("classifier: empty training set")
	// ErrSingleClass 表示训练标签只有一个类别，无法拟合二分类模型。
	ErrSingleClass = errors.New("classifier: training labels contain a single class")
)

// Model 是训练好的二分类模型。
type Model interface {
	// PredictProba 返回样本属于标签 1 的概率。
	PredictProba(x []float64) float64
}

// Trainer 从特征矩阵和 0/1 标签拟合一个 Model。
type Trainer interface {
	Fit(X [][]float64, y []int) (Model, error)
}

func validate(X [][]float64, y []int) (int, error) {
	if len(X) == 0 {
		return 0, ErrEmptyDataset
	}
	if len(X) != len(y) {
		return 0, errors.New("classifier: feature and label counts differ")
	}
	dims := len(X[0])
	seen := [2]bool{}
	for i, row := range X {
		if len(row) != dims {
			return 0, errors.New("classifier: ragged feature matrix")
		}
		if y[i] != 0 && y[i] != 1 {
			return 0, errors.New("classifier: labels must be 0 or 1")
		}
		seen[y[i]] = true
	}
	if !seen[0] || !seen[1] {
		return 0, ErrSingleClass
	}
	return dims, nil
}
