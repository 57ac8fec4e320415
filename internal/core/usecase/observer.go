package usecase

import (
	"time"

	"github.com/kirillkom/scholarship-pipeline/internal/core/domain"
	"github.com/kirillkom/scholarship-pipeline/internal/core/ports"
)

type noopObserver struct{}

func (noopObserver) DocumentProcessed(domain.Category, domain.GradedBy, time.Duration) {}
func (noopObserver) DocumentFailed(string) {}
func (noopObserver) OracleFallback(string) {}
func (noopObserver) SubmissionFinished(domain.SubmissionStatus, time.Duration) {}

func observerOrNoop(observer ports.PipelineObserver) ports.PipelineObserver {
	if observer == nil {
		return noopObserver{}
	}
	return observer
}
