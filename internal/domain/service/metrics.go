package service

// Outcome labels reported through TokenMetrics.
const (
	OutcomeValid           = "valid"
	OutcomeExpired         = "expired"
	OutcomeInvalid         = "invalid"
	OutcomeSubjectMismatch = "subject_mismatch"
	OutcomeWrongType       = "wrong_type"
	OutcomeSuccess         = "success"
)

// TokenMetrics defines the interface for collecting token lifecycle metrics.
// This abstraction keeps the domain independent of the monitoring backend (e.g., Prometheus).
// TokenMetrics 定义了收集令牌生命周期指标的接口。
type TokenMetrics interface {
	// RecordTokenIssued records a token being signed.
	// RecordTokenIssued 记录一次令牌签发。
	RecordTokenIssued(tokenType string)

	// RecordTokenValidation records the outcome of a validity check.
	// RecordTokenValidation 记录一次有效性检查的结果。
	RecordTokenValidation(outcome string)

	// RecordTokenRefresh records the outcome of a refresh exchange.
	// RecordTokenRefresh 记录一次刷新交换的结果。
	RecordTokenRefresh(outcome string)
}

type noopTokenMetrics struct{}

// NewNoopTokenMetrics returns a TokenMetrics that records nothing.
func NewNoopTokenMetrics() TokenMetrics {
	return noopTokenMetrics{}
}

func (noopTokenMetrics) RecordTokenIssued(string)     {}
func (noopTokenMetrics) RecordTokenValidation(string) {}
func (noopTokenMetrics) RecordTokenRefresh(string)    {}
