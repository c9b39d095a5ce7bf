package embed

import (
	"context"
	"math"
)

// Embedder 文本向量化接口
type Embedder interface {
	// Embed 对单个文本生成向量
	Embed(ctx context.Context, text string) ([]float32, error)
	// EmbedBatch 对多个文本批量生成向量
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	// Close 释放底层连接
	Close() error
}

// Cosine 计算两个向量的余弦相似度
// 任一向量为零向量或维度不一致时返回 0
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
