package service

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/Aashish23092/payslip-verification/dto"
	"github.com/Aashish23092/payslip-verification/metrics"
)

// FraudScorer runs every registered detector against one document.
type FraudScorer struct {
	detectors []Detector
	logger    *zap.Logger
	metrics   *metrics.Metrics
}

func NewFraudScorer(detectors []Detector, logger *zap.Logger, m *metrics.Metrics) *FraudScorer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FraudScorer{detectors: detectors, logger: logger, metrics: m}
}

// Score returns the signals of every detector in registration order. A detector that errors
// or panics contributes a zero-severity detector_error signal instead; the rest still run.
func (s *FraudScorer) Score(doc dto.ExtractedDocument, today dto.Date) []dto.FraudSignal {
	signals := []dto.FraudSignal{}
	for _, d := range s.detectors {
		found, err := runDetector(d, doc, today)
		if err != nil {
			s.logger.Warn("fraud detector failed",
				zap.String("detector", string(d.Kind())),
				zap.Error(err),
			)
			s.metrics.IncrementDetectorError(string(d.Kind()))
			signals = append(signals, dto.FraudSignal{
				Kind:        dto.SignalDetectorError,
				Severity:    0,
				Evidence:    fmt.Sprintf("detector %s failed: %v", d.Kind(), err),
				SourceField: string(d.Kind()),
			})
			continue
		}
		signals = append(signals, found...)
	}
	return signals
}

func runDetector(d Detector, doc dto.ExtractedDocument, today dto.Date) (signals []dto.FraudSignal, err error) {
	defer func() {
		if r := recover(); r != nil {
			signals = nil
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return d.Detect(doc, today)
}
