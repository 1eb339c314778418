package service

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/Aashish23092/payslip-verification/config"
	"github.com/Aashish23092/payslip-verification/dto"
	"github.com/Aashish23092/payslip-verification/utils"
)

// BatchAnalyzer holds the cross-document checks for one claimant's documents.
type BatchAnalyzer struct {
	cfg config.BatchConfig
}

func NewBatchAnalyzer(cfg config.BatchConfig) *BatchAnalyzer {
	return &BatchAnalyzer{cfg: cfg}
}

// BatchContext is the read-only sequence view computed before per-document verification.
type BatchContext struct {
	runLength map[int]int
	excluded  map[int]string
	undated   []int
	gaps      []dto.SequenceGap
	longest   int
}

// RunLength is the number of consecutive distinct periods in the run containing document i.
// It is 0 for undated or unsequenced documents.
func (c *BatchContext) RunLength(i int) int {
	if c == nil {
		return 0
	}
	return c.runLength[i]
}

// Exclusion explains why document i has no place in any sequence, or "" if it has one.
func (c *BatchContext) Exclusion(i int) string {
	if c == nil {
		return "no batch context"
	}
	return c.excluded[i]
}

// Valid reports an unbroken sequence: no gaps, no undated documents and at least minPeriods
// consecutive periods.
func (c *BatchContext) Valid(minPeriods int) bool {
	return c != nil && len(c.gaps) == 0 && len(c.undated) == 0 && c.longest >= minPeriods
}

type sequencedDoc struct {
	index int
	date  dto.Date
	freq  dto.PayFrequency
}

// Sequence orders each document type by period and chains consecutive periods into runs.
// Documents of the same period share a slot. Type "other" is never sequenced.
func (a *BatchAnalyzer) Sequence(docs []dto.ExtractedDocument) *BatchContext {
	ctx := &BatchContext{
		runLength: make(map[int]int, len(docs)),
		excluded:  make(map[int]string),
	}

	groups := make(map[dto.DocumentType][]sequencedDoc)
	var order []dto.DocumentType
	for i, doc := range docs {
		if doc.DocumentType == dto.DocTypeOther {
			ctx.excluded[i] = "document type other is not part of a pay sequence"
			continue
		}
		date, ok := doc.PeriodDate()
		if !ok {
			ctx.excluded[i] = "period date missing"
			ctx.undated = append(ctx.undated, i)
			continue
		}
		if _, seen := groups[doc.DocumentType]; !seen {
			order = append(order, doc.DocumentType)
		}
		groups[doc.DocumentType] = append(groups[doc.DocumentType], sequencedDoc{index: i, date: date, freq: doc.Frequency()})
	}

	for _, t := range order {
		a.sequenceGroup(ctx, groups[t])
	}
	sort.Slice(ctx.gaps, func(i, j int) bool { return ctx.gaps[i].AfterIndex < ctx.gaps[j].AfterIndex })
	return ctx
}

func (a *BatchAnalyzer) sequenceGroup(ctx *BatchContext, group []sequencedDoc) {
	sort.SliceStable(group, func(i, j int) bool {
		if group[i].date.Equal(group[j].date.Time) {
			return group[i].index < group[j].index
		}
		return group[i].date.Before(group[j].date.Time)
	})

	var slots [][]sequencedDoc
	for _, d := range group {
		if len(slots) == 0 {
			slots = append(slots, []sequencedDoc{d})
			continue
		}
		last := slots[len(slots)-1]
		if steps, regular := a.periodSteps(last[0].date, d.date, d.freq); steps == 0 && regular {
			slots[len(slots)-1] = append(last, d)
			continue
		}
		slots = append(slots, []sequencedDoc{d})
	}

	runStart := 0
	closeRun := func(end int) {
		length := end - runStart
		for _, slot := range slots[runStart:end] {
			for _, d := range slot {
				ctx.runLength[d.index] = length
			}
		}
		if length > ctx.longest {
			ctx.longest = length
		}
		runStart = end
	}
	for s := 1; s < len(slots); s++ {
		prev, cur := slots[s-1][0], slots[s][0]
		steps, regular := a.periodSteps(prev.date, cur.date, cur.freq)
		if steps == 1 && regular {
			continue
		}
		missing := steps - 1
		if missing < 0 {
			missing = 0
		}
		ctx.gaps = append(ctx.gaps, dto.SequenceGap{
			AfterIndex:     prev.index,
			BeforeIndex:    cur.index,
			MissingPeriods: missing,
		})
		closeRun(s)
	}
	if len(slots) > 0 {
		closeRun(len(slots))
	}
}

// periodSteps counts whole pay periods between two period dates. regular is false when
// day-based frequencies land outside the configured tolerance.
func (a *BatchAnalyzer) periodSteps(from, to dto.Date, freq dto.PayFrequency) (int, bool) {
	switch freq {
	case dto.FrequencyAnnual:
		return to.Year() - from.Year(), true
	case dto.FrequencyWeekly, dto.FrequencyFortnightly, dto.FrequencyFourWeekly:
		step := map[dto.PayFrequency]int{
			dto.FrequencyWeekly:      7,
			dto.FrequencyFortnightly: 14,
			dto.FrequencyFourWeekly:  28,
		}[freq]
		days := int(math.Round(to.Sub(from.Time).Hours() / 24))
		steps := (days + step/2) / step
		off := days - steps*step
		if off < 0 {
			off = -off
		}
		return steps, off <= a.cfg.WeeklyToleranceDays
	default:
		return monthIndex(to) - monthIndex(from), true
	}
}

func monthIndex(d dto.Date) int {
	return d.Year()*12 + int(d.Month()) - 1
}

// Analyze runs the cross-document checks and folds in the precomputed sequence.
func (a *BatchAnalyzer) Analyze(docs []dto.ExtractedDocument, seq *BatchContext, minPeriods int) dto.BatchReport {
	report := dto.BatchReport{
		TemplateReusePairs: []dto.DocumentPair{},
		DuplicatePairs:     []dto.DocumentPair{},
		IncomeOutliers:     []int{},
		SequenceGaps:       []dto.SequenceGap{},
		UndatedDocuments:   []int{},
		IdentityMismatches: []int{},
		OutlierCategory:    dto.NormalizeIncomeCategory(a.cfg.OutlierCategory),
	}

	if seq != nil {
		report.ConsecutiveSequenceValid = seq.Valid(minPeriods)
		report.SequenceGaps = append(report.SequenceGaps, seq.gaps...)
		report.UndatedDocuments = append(report.UndatedDocuments, seq.undated...)
	}

	if err := a.templateReuse(docs, &report); err != nil {
		report.TemplateReuseSkipped = "skipped: " + err.Error()
	}
	report.IncomeOutliers, report.IncomeMedianMinorUnits = a.incomeOutliers(docs, report.OutlierCategory)
	report.IdentityMismatches = identityMismatches(docs)
	return report
}

// templateReuse compares every pair of raw texts. A pair is reported when its similarity
// exceeds the threshold: near-identical pairs whose figures also match are duplicates, pairs
// whose figures differ are template reuse. Edit distance shares one cell budget across the
// batch; pairs beyond it are scored by token overlap and counted in the report.
func (a *BatchAnalyzer) templateReuse(docs []dto.ExtractedDocument, report *dto.BatchReport) error {
	if len(docs) > a.cfg.MaxTemplateBatchSize {
		return fmt.Errorf("%w: %d documents exceed the cap of %d",
			dto.ErrBatchTooLarge, len(docs), a.cfg.MaxTemplateBatchSize)
	}
	cmp := utils.NewTextComparer(a.cfg.MaxEditDistanceChars, a.cfg.MaxEditDistanceCells)
	for i := 0; i < len(docs); i++ {
		if strings.TrimSpace(docs[i].RawText) == "" {
			continue
		}
		for j := i + 1; j < len(docs); j++ {
			if strings.TrimSpace(docs[j].RawText) == "" {
				continue
			}
			sim := cmp.Similarity(docs[i].RawText, docs[j].RawText)
			if sim <= a.cfg.SimilarityThreshold {
				continue
			}
			pair := dto.DocumentPair{First: i, Second: j, Similarity: math.Round(sim*10000) / 10000}
			if sameFigures(docs[i], docs[j]) {
				report.DuplicatePairs = append(report.DuplicatePairs, pair)
			} else {
				report.TemplateReusePairs = append(report.TemplateReusePairs, pair)
			}
		}
	}
	report.TokenOverlapPairs = cmp.Fallbacks()
	return nil
}

func sameFigures(a, b dto.ExtractedDocument) bool {
	if !sameInt(a.DeclaredTotalMinorUnits, b.DeclaredTotalMinorUnits) ||
		!sameDate(a.PeriodStart, b.PeriodStart) ||
		!sameDate(a.PeriodEnd, b.PeriodEnd) ||
		!sameDate(a.PayDate, b.PayDate) ||
		len(a.IncomeItems) != len(b.IncomeItems) {
		return false
	}
	for i := range a.IncomeItems {
		if !sameInt(a.IncomeItems[i].AmountMinorUnits, b.IncomeItems[i].AmountMinorUnits) {
			return false
		}
	}
	return true
}

func sameInt(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func sameDate(a, b *dto.Date) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(b.Time)
}

// incomeOutliers flags documents whose category total deviates from the batch median by more
// than the configured percentage. Documents without a parsed amount in the category are ignored.
func (a *BatchAnalyzer) incomeOutliers(docs []dto.ExtractedDocument, category dto.IncomeCategory) ([]int, int64) {
	totals := categoryTotals(docs, category)
	outliers := []int{}
	if len(totals) < a.cfg.OutlierMinSamples || len(totals) == 0 {
		return outliers, 0
	}

	values := make([]int64, 0, len(totals))
	for _, t := range totals {
		values = append(values, t.total)
	}
	median := medianOf(values)
	if median <= 0 {
		return outliers, 0
	}

	limit := median * a.cfg.OutlierPercent / 100
	for _, t := range totals {
		if math.Abs(float64(t.total)-median) > limit {
			outliers = append(outliers, t.index)
		}
	}
	return outliers, int64(math.Round(median))
}

type categoryTotal struct {
	index int
	total int64
}

func categoryTotals(docs []dto.ExtractedDocument, category dto.IncomeCategory) []categoryTotal {
	var out []categoryTotal
	for i, doc := range docs {
		if sum, ok := categoryTotalOf(doc, category); ok {
			out = append(out, categoryTotal{index: i, total: sum})
		}
	}
	return out
}

// categoryTotalOf sums the parsed amounts of one category. ok is false when the document has
// no such amount or the sum overflows.
func categoryTotalOf(doc dto.ExtractedDocument, category dto.IncomeCategory) (int64, bool) {
	var amounts []int64
	for _, item := range doc.IncomeItems {
		if item.Category == category && item.AmountMinorUnits != nil {
			amounts = append(amounts, *item.AmountMinorUnits)
		}
	}
	if len(amounts) == 0 {
		return 0, false
	}
	sum, err := utils.SumMinorUnits(amounts...)
	return sum, err == nil
}

func medianOf(values []int64) float64 {
	sorted := append([]int64(nil), values...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	n := len(sorted)
	if n%2 == 1 {
		return float64(sorted[n/2])
	}
	return (float64(sorted[n/2-1]) + float64(sorted[n/2])) / 2
}

// identityMismatches compares each document's employee against the batch's dominant name and
// NI number. Fields absent on a document are not compared.
func identityMismatches(docs []dto.ExtractedDocument) []int {
	out := []int{}
	names := make([]string, len(docs))
	nis := make([]string, len(docs))
	for i, doc := range docs {
		names[i] = utils.NormalizeText(doc.Employee.Name)
		nis[i] = strings.ToUpper(strings.Join(strings.Fields(doc.Employee.NINumber), ""))
	}
	domName, nameCount := dominant(names)
	domNI, niCount := dominant(nis)
	if nameCount+niCount == 0 {
		return out
	}

	for i := range docs {
		mismatch := false
		if names[i] != "" && domName != "" && !utils.CompareNames(names[i], domName) {
			mismatch = true
		}
		if nis[i] != "" && domNI != "" && nis[i] != domNI {
			mismatch = true
		}
		if mismatch {
			out = append(out, i)
		}
	}
	return out
}

// dominant returns the most frequent non-empty value, earliest first on ties.
func dominant(values []string) (string, int) {
	counts := make(map[string]int)
	best, bestCount := "", 0
	for _, v := range values {
		if v == "" {
			continue
		}
		counts[v]++
	}
	for _, v := range values {
		if v != "" && counts[v] > bestCount {
			best, bestCount = v, counts[v]
		}
	}
	return best, bestCount
}
