package service

import (
	"math"

	"github.com/Aashish23092/payslip-verification/dto"
)

// ExtractionConfidence is the mean of every confidence the extraction layer supplied, with
// ocr_quality counted as one more. With none present it is 0, never an assumed 1.
func ExtractionConfidence(doc dto.ExtractedDocument) float64 {
	var sum float64
	n := 0
	add := func(c *float64) {
		if c != nil && !math.IsNaN(*c) {
			sum += clamp01(*c)
			n++
		}
	}
	add(doc.Employee.Confidence)
	add(doc.Employer.Confidence)
	for i := range doc.IncomeItems {
		add(doc.IncomeItems[i].Confidence)
	}
	add(doc.OCRQuality)
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// OverallConfidence scales extraction confidence by the fraud penalty
// 0.5*mean(severity) + 0.5*max(severity) over the signals with a non-zero severity.
// Zero-severity signals (detector_error) carry no evidence and never dilute the mean, so adding
// one can not raise the result. The result is always within [0,1].
func OverallConfidence(extraction float64, signals []dto.FraudSignal) float64 {
	if math.IsNaN(extraction) {
		extraction = 0
	}
	extraction = clamp01(extraction)

	var sum, peak float64
	n := 0
	for _, s := range signals {
		sev := s.Severity
		if math.IsNaN(sev) {
			sev = 1
		}
		sev = clamp01(sev)
		if sev == 0 {
			continue
		}
		sum += sev
		peak = math.Max(peak, sev)
		n++
	}
	if n == 0 {
		return extraction
	}
	penalty := 0.5*sum/float64(n) + 0.5*peak
	return clamp01(extraction * (1 - penalty))
}

// BatchConfidence is the mean of the per-document confidences.
func BatchConfidence(docs []dto.DocumentReport) float64 {
	if len(docs) == 0 {
		return 0
	}
	var sum float64
	for _, d := range docs {
		sum += d.OverallConfidence
	}
	return clamp01(sum / float64(len(docs)))
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return 0
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
