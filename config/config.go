package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/spf13/viper"
)

var ErrConfigurationInvalid = errors.New("configuration invalid")

type Config struct {
	Server         ServerConfig         `mapstructure:"server"`
	Processing     ProcessingConfig     `mapstructure:"processing"`
	Verification   VerificationConfig   `mapstructure:"verification"`
	FraudDetection FraudDetectionConfig `mapstructure:"fraud_detection"`
	Batch          BatchConfig          `mapstructure:"batch"`
}

type ServerConfig struct {
	Port              string `mapstructure:"port"`
	Environment       string `mapstructure:"environment"`
	MaxBatchDocuments int    `mapstructure:"max_batch_documents"`
}

type ProcessingConfig struct {
	Workers int `mapstructure:"workers"`
}

type VerificationConfig struct {
	MaxAgeMonths                        int  `mapstructure:"max_age_months"`
	MinConsecutivePeriods               int  `mapstructure:"min_consecutive_periods"`
	RequireQualifiedAccountantSignature bool `mapstructure:"require_qualified_accountant_signature"`
}

type FraudDetectionConfig struct {
	ConfidenceThreshold        float64  `mapstructure:"confidence_threshold"`
	FontConsistencyCheck       bool     `mapstructure:"font_consistency_check"`
	TotalValidation            bool     `mapstructure:"total_validation"`
	OCRQualityThreshold        float64  `mapstructure:"ocr_quality_threshold"`
	DisabledDetectors          []string `mapstructure:"disabled_detectors"`
	TolerancePence             int64    `mapstructure:"tolerance_pence"`
	UnrealisticAmountPence     int64    `mapstructure:"unrealistic_amount_pence"`
	MixedAlphanumericThreshold int      `mapstructure:"mixed_alphanumeric_threshold"`
	WhitespaceRunThreshold     int      `mapstructure:"whitespace_run_threshold"`
	EmployerSuffixes           []string `mapstructure:"employer_suffixes"`
	EmployerBlacklist          []string `mapstructure:"employer_blacklist"`
	NIFakePatterns             []string `mapstructure:"ni_fake_patterns"`
	NIStrictPrefixes           bool     `mapstructure:"ni_strict_prefixes"`
	RoundAmountCheck           bool     `mapstructure:"round_amount_check"`
	RoundAmountMinPence        int64    `mapstructure:"round_amount_min_pence"`
	RoundAmountStepPence       int64    `mapstructure:"round_amount_step_pence"`
}

// DetectorEnabled reports whether the named detector is not listed in disabled_detectors.
func (c FraudDetectionConfig) DetectorEnabled(kind string) bool {
	for _, d := range c.DisabledDetectors {
		if strings.EqualFold(strings.TrimSpace(d), kind) {
			return false
		}
	}
	return true
}

type BatchConfig struct {
	SimilarityThreshold  float64 `mapstructure:"similarity_threshold"`
	MaxTemplateBatchSize int     `mapstructure:"max_template_batch_size"`
	MaxEditDistanceChars int     `mapstructure:"max_edit_distance_chars"`
	MaxEditDistanceCells int64   `mapstructure:"max_edit_distance_cells"`
	OutlierPercent       float64 `mapstructure:"outlier_percent"`
	OutlierCategory      string  `mapstructure:"outlier_category"`
	OutlierMinSamples    int     `mapstructure:"outlier_min_samples"`
	WeeklyToleranceDays  int     `mapstructure:"weekly_tolerance_days"`
}

// DetectorNames lists every detector that may appear in fraud_detection.disabled_detectors.
var DetectorNames = []string{
	"mixed_alphanumeric_pattern",
	"font_inconsistency",
	"excessive_whitespace",
	"ocr_artifact_tokens",
	"suspicious_unicode_characters",
	"employer_legitimacy",
	"ni_number_format",
	"amount_unparseable",
	"amount_plausibility",
	"suspicious_round_amount",
	"total_mismatch",
	"date_anomaly",
	"pay_date_before_period_end",
	"ocr_quality_low",
}

var (
	DefaultEmployerSuffixes = []string{
		"ltd", "limited", "plc", "llp", "lp", "inc", "incorporated",
		"corp", "corporation", "llc", "partnership", "co",
	}
	DefaultEmployerBlacklist = []string{
		"cash", "money", "payment", "payments", "temp", "temps", "agency", "staffing", "casual",
	}
	DefaultNIFakePatterns = []string{
		`^AA000000A$`,
		`^[A-Z]{2}(000000|111111|222222|333333|444444|555555|666666|777777|888888|999999)[A-Z]$`,
	}
)

// Default returns the configuration used when no file or environment override is present.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var c Config
	_ = v.Unmarshal(&c)
	return &c
}

// LoadConfig reads config.toml (or the file named by PAYSLIP_CONFIG) and environment
// overrides prefixed with PAYSLIP_, e.g. PAYSLIP_VERIFICATION_MAX_AGE_MONTHS.
func LoadConfig() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigType("toml")
	if path := os.Getenv("PAYSLIP_CONFIG"); path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("PAYSLIP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("server.port", "PAYSLIP_SERVER_PORT", "SERVER_PORT")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.max_batch_documents", 200)

	v.SetDefault("processing.workers", 4)

	v.SetDefault("verification.max_age_months", 6)
	v.SetDefault("verification.min_consecutive_periods", 3)
	v.SetDefault("verification.require_qualified_accountant_signature", false)

	v.SetDefault("fraud_detection.confidence_threshold", 0.7)
	v.SetDefault("fraud_detection.font_consistency_check", true)
	v.SetDefault("fraud_detection.total_validation", true)
	v.SetDefault("fraud_detection.ocr_quality_threshold", 0.6)
	v.SetDefault("fraud_detection.disabled_detectors", []string{})
	v.SetDefault("fraud_detection.tolerance_pence", 2)
	v.SetDefault("fraud_detection.unrealistic_amount_pence", 5_000_000)
	v.SetDefault("fraud_detection.mixed_alphanumeric_threshold", 3)
	v.SetDefault("fraud_detection.whitespace_run_threshold", 10)
	v.SetDefault("fraud_detection.employer_suffixes", DefaultEmployerSuffixes)
	v.SetDefault("fraud_detection.employer_blacklist", DefaultEmployerBlacklist)
	v.SetDefault("fraud_detection.ni_fake_patterns", DefaultNIFakePatterns)
	v.SetDefault("fraud_detection.ni_strict_prefixes", true)
	v.SetDefault("fraud_detection.round_amount_check", false)
	v.SetDefault("fraud_detection.round_amount_min_pence", 100_000)
	v.SetDefault("fraud_detection.round_amount_step_pence", 10_000)

	v.SetDefault("batch.similarity_threshold", 0.90)
	v.SetDefault("batch.max_template_batch_size", 50)
	v.SetDefault("batch.max_edit_distance_chars", 1000)
	v.SetDefault("batch.max_edit_distance_cells", 50_000_000)
	v.SetDefault("batch.outlier_percent", 20.0)
	v.SetDefault("batch.outlier_category", "salary")
	v.SetDefault("batch.outlier_min_samples", 3)
	v.SetDefault("batch.weekly_tolerance_days", 3)
}

// Validate rejects out-of-range thresholds. Every failure wraps ErrConfigurationInvalid.
func (c *Config) Validate() error {
	var problems []string
	check := func(ok bool, format string, args ...interface{}) {
		if !ok {
			problems = append(problems, fmt.Sprintf(format, args...))
		}
	}

	check(c.Server.Port != "", "server.port must be set")
	check(c.Server.MaxBatchDocuments > 0, "server.max_batch_documents must be positive")
	check(c.Processing.Workers > 0, "processing.workers must be positive")

	check(c.Verification.MaxAgeMonths > 0, "verification.max_age_months must be positive")
	check(c.Verification.MinConsecutivePeriods > 0, "verification.min_consecutive_periods must be positive")

	fd := c.FraudDetection
	check(inUnitRange(fd.ConfidenceThreshold), "fraud_detection.confidence_threshold must be within [0,1]")
	check(inUnitRange(fd.OCRQualityThreshold), "fraud_detection.ocr_quality_threshold must be within [0,1]")
	check(fd.TolerancePence >= 0, "fraud_detection.tolerance_pence must not be negative")
	check(fd.UnrealisticAmountPence > 0, "fraud_detection.unrealistic_amount_pence must be positive")
	check(fd.MixedAlphanumericThreshold >= 0, "fraud_detection.mixed_alphanumeric_threshold must not be negative")
	check(fd.WhitespaceRunThreshold >= 0, "fraud_detection.whitespace_run_threshold must not be negative")
	check(fd.RoundAmountMinPence >= 0, "fraud_detection.round_amount_min_pence must not be negative")
	check(fd.RoundAmountStepPence > 0, "fraud_detection.round_amount_step_pence must be positive")
	for _, name := range fd.DisabledDetectors {
		check(knownDetector(name), "fraud_detection.disabled_detectors: unknown detector %q", name)
	}
	for _, p := range fd.NIFakePatterns {
		_, err := regexp.Compile(p)
		check(err == nil, "fraud_detection.ni_fake_patterns: %q does not compile", p)
	}

	b := c.Batch
	check(b.SimilarityThreshold > 0 && b.SimilarityThreshold < 1, "batch.similarity_threshold must be within (0,1)")
	check(b.MaxTemplateBatchSize > 1, "batch.max_template_batch_size must be at least 2")
	check(b.MaxEditDistanceChars >= 0, "batch.max_edit_distance_chars must not be negative")
	check(b.MaxEditDistanceCells >= 0, "batch.max_edit_distance_cells must not be negative")
	check(b.OutlierPercent > 0, "batch.outlier_percent must be positive")
	check(b.OutlierMinSamples >= 2, "batch.outlier_min_samples must be at least 2")
	check(b.WeeklyToleranceDays >= 0 && b.WeeklyToleranceDays < 7, "batch.weekly_tolerance_days must be within [0,6]")
	check(validCategory(b.OutlierCategory), "batch.outlier_category %q is not an income category", b.OutlierCategory)

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrConfigurationInvalid, strings.Join(problems, "; "))
	}
	return nil
}

func inUnitRange(f float64) bool {
	return f >= 0 && f <= 1
}

func knownDetector(name string) bool {
	for _, d := range DetectorNames {
		if strings.EqualFold(strings.TrimSpace(name), d) {
			return true
		}
	}
	return false
}

func validCategory(c string) bool {
	switch c {
	case "salary", "bonus", "commission", "benefit", "overtime", "other":
		return true
	}
	return false
}
