// internal/service/quote/domain/state.go
package domain

// SubmissionStatus 定义了订单提交流程的状态
type SubmissionStatus string

const (
	SubmissionIdle       SubmissionStatus = "idle"       // 尚未提交
	SubmissionSubmitting SubmissionStatus = "submitting" // 请求进行中，禁止重复提交
	SubmissionSucceeded  SubmissionStatus = "succeeded"  // 接单成功，购物篮已清空
	SubmissionFailed     SubmissionStatus = "failed"     // 失败，Message 说明原因
)

// Submission 由提交流程独占；只有进入 Succeeded 时才会清空购物篮。
type Submission struct {
	Status  SubmissionStatus `json:"state"`
	Message string           `json:"message,omitempty"`
}

// CanSubmit 检查当前状态下是否允许发起一次新的提交
func (s *Submission) CanSubmit() error {
	switch s.Status {
	case SubmissionSubmitting:
		return ErrSubmissionInFlight
	case SubmissionSucceeded:
		return ErrInvalidTransition
	}
	return nil
}

// Begin 进入 Submitting；从 Failed 重新提交时会清除上一次的错误信息。
func (s *Submission) Begin() error {
	if err := s.CanSubmit(); err != nil {
		return err
	}
	s.Status = SubmissionSubmitting
	s.Message = ""
	return nil
}

func (s *Submission) Succeed() {
	s.Status = SubmissionSucceeded
	s.Message = ""
}

func (s *Submission) Fail(message string) {
	s.Status = SubmissionFailed
	s.Message = message
}

// Reset 对应“再下一单”，回到 Idle。进行中的提交不能被重置。
func (s *Submission) Reset() error {
	if s.Status == SubmissionSubmitting {
		return ErrSubmissionInFlight
	}
	s.Status = SubmissionIdle
	s.Message = ""
	return nil
}
