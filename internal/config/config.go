// =============================================================================
// Estoque Analítico - Configuration Module
// =============================================================================
//
// This module is responsible for loading and managing the application
// configuration. The configuration is assembled in layers:
//
//   1. Built-in defaults (applyMainConfigDefaults)
//   2. The YAML configuration file (config.yaml by default)
//   3. Environment variables with the ESTOQUE_ prefix
//
// Later layers win. The merged result is validated before it is handed out.
//
// ENVIRONMENT EXAMPLES:
//   ESTOQUE_INPUT_DIR=/data/in
//   ESTOQUE_PARSER_ENCODING=windows-1252
//   ESTOQUE_WORKBOOK_ADJUSTMENT_DIRECTION=total_minus_survey
//   ESTOQUE_SERVER_ADDR=:9090
//
// =============================================================================

package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of every environment override.
const EnvPrefix = "ESTOQUE"

// DefaultConfigFile is the configuration path used when --config is not given.
const DefaultConfigFile = "config.yaml"

// =============================================================================
// MAIN CONFIGURATION STRUCTURE
// =============================================================================

// MainConfig holds the global application configuration.
type MainConfig struct {
	// =========================================================================
	// DIRECTORY SETTINGS
	// =========================================================================

	// InputDir is the directory scanned by the process command.
	// Default: "./input"
	InputDir string `yaml:"input_dir" envconfig:"INPUT_DIR" validate:"required"`

	// OutputDir is the directory where generated workbooks are placed.
	// Default: "./output"
	OutputDir string `yaml:"output_dir" envconfig:"OUTPUT_DIR" validate:"required"`

	// InputArchiveDir receives input files after successful processing.
	// Only used when ArchiveInputs is true.
	// Default: "./input_archive"
	InputArchiveDir string `yaml:"input_archive_dir" envconfig:"INPUT_ARCHIVE_DIR"`

	// OutputArchiveDir receives a copy of every generated workbook.
	// Only used when ArchiveInputs is true.
	// Default: "./output_archive"
	OutputArchiveDir string `yaml:"output_archive_dir" envconfig:"OUTPUT_ARCHIVE_DIR"`

	// InputPattern is the glob used to discover input files.
	// Default: "*.txt"
	InputPattern string `yaml:"input_pattern" envconfig:"INPUT_PATTERN"`

	// =========================================================================
	// OUTPUT SETTINGS
	// =========================================================================

	// OutputNameFormat defines the name of generated workbooks.
	// Placeholders:
	//   {uuid}      - A random UUID
	//   {timestamp} - Current timestamp (YYYYMMDD_HHMMSS)
	//   {date}      - Current date (YYYYMMDD)
	//   {time}      - Current time (HHMMSS)
	//   {original}  - Input file name without extension
	// Default: "{original}_{timestamp}.xlsx"
	OutputNameFormat string `yaml:"output_name_format" envconfig:"OUTPUT_NAME_FORMAT"`

	// ExportCSV also writes the normalized table as CSV next to the workbook.
	ExportCSV bool `yaml:"export_csv" envconfig:"EXPORT_CSV"`

	// =========================================================================
	// PROCESSING SETTINGS
	// =========================================================================

	// MaxConcurrency is the maximum number of files processed at once.
	// Default: 4
	MaxConcurrency int `yaml:"max_concurrency" envconfig:"MAX_CONCURRENCY" validate:"min=1"`

	// ContinueOnError keeps processing the remaining files when one fails.
	// Default: true (see applyMainConfigDefaults)
	ContinueOnError *bool `yaml:"continue_on_error" envconfig:"CONTINUE_ON_ERROR"`

	// ArchiveInputs moves processed inputs to InputArchiveDir and copies
	// outputs to OutputArchiveDir.
	ArchiveInputs bool `yaml:"archive_inputs" envconfig:"ARCHIVE_INPUTS"`

	// =========================================================================
	// COMPONENT SETTINGS
	// =========================================================================

	Logging  LoggingSettings  `yaml:"logging" envconfig:"LOGGING"`
	Parser   ParserSettings   `yaml:"parser" envconfig:"PARSER"`
	Workbook WorkbookSettings `yaml:"workbook" envconfig:"WORKBOOK"`
	Server   ServerSettings   `yaml:"server" envconfig:"SERVER"`
}

// =============================================================================
// LOGGING SETTINGS
// =============================================================================

// LoggingSettings controls the slog logger built by the logging package.
type LoggingSettings struct {
	// Level is one of "debug", "info", "warn", "error".
	Level string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn error"`

	// Format is "text" or "json".
	Format string `yaml:"format" envconfig:"FORMAT" validate:"oneof=text json"`

	// Output is "console", "file" or "both".
	Output string `yaml:"output" envconfig:"OUTPUT" validate:"oneof=console file both"`

	// FilePath is the log file used by the "file" and "both" outputs.
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// =============================================================================
// PARSER SETTINGS
// =============================================================================

// ParserSettings describes the layout of the inventory text export.
type ParserSettings struct {
	// Encoding of the input bytes.
	// Valid values: "utf-8", "windows-1252", "iso-8859-1"
	// Default: "utf-8" (invalid byte sequences are a fatal error)
	Encoding string `yaml:"encoding" envconfig:"ENCODING" validate:"oneof=utf-8 windows-1252 iso-8859-1"`

	// Delimiter is the field separator sentinel. Exactly one character.
	// Default: "§"
	Delimiter string `yaml:"delimiter" envconfig:"DELIMITER" validate:"len=1"`

	// HeaderMarker is the literal that starts every warehouse header line.
	// Default: "Almoxarifado:"
	HeaderMarker string `yaml:"header_marker" envconfig:"HEADER_MARKER" validate:"required"`
}

// =============================================================================
// WORKBOOK SETTINGS
// =============================================================================

// Adjustment formula directions.
const (
	AdjustSurveyMinusTotal = "survey_minus_total"
	AdjustTotalMinusSurvey = "total_minus_survey"
)

// Sheet title collision policies.
const (
	CollisionOverwrite = "overwrite"
	CollisionSuffix    = "suffix"
)

// WorkbookSettings controls the generated spreadsheet.
type WorkbookSettings struct {
	// AdjustmentDirection selects the operands of the adjustment formula.
	// Default: "survey_minus_total" (=J2-F2)
	AdjustmentDirection string `yaml:"adjustment_direction" envconfig:"ADJUSTMENT_DIRECTION" validate:"oneof=survey_minus_total total_minus_survey"`

	// SheetNameCollision decides what happens when two groups map to the
	// same 31-character sheet title.
	//   - "overwrite": the later group replaces the earlier sheet
	//   - "suffix"   : the later group gets a "~N" suffixed title
	// Default: "overwrite"
	SheetNameCollision string `yaml:"sheet_name_collision" envconfig:"SHEET_NAME_COLLISION" validate:"oneof=overwrite suffix"`

	// Colours are RGB hex strings without "#".
	HeaderFill string `yaml:"header_fill" envconfig:"HEADER_FILL" validate:"len=6,hexadecimal"`
	HeaderFont string `yaml:"header_font" envconfig:"HEADER_FONT" validate:"len=6,hexadecimal"`
	BandFill   string `yaml:"band_fill" envconfig:"BAND_FILL" validate:"len=6,hexadecimal"`
	PlainFill  string `yaml:"plain_fill" envconfig:"PLAIN_FILL" validate:"len=6,hexadecimal"`
	ManualFill string `yaml:"manual_fill" envconfig:"MANUAL_FILL" validate:"len=6,hexadecimal"`

	// ColumnPadding is added to the longest cell text of a column.
	// Default: 2
	ColumnPadding int `yaml:"column_padding" envconfig:"COLUMN_PADDING" validate:"min=0"`

	// MaxColumnWidth caps the auto-sized column width.
	// Default: 50
	MaxColumnWidth int `yaml:"max_column_width" envconfig:"MAX_COLUMN_WIDTH" validate:"min=1,max=255"`
}

// =============================================================================
// SERVER SETTINGS
// =============================================================================

// ServerSettings configures the HTTP upload shell started by "serve".
type ServerSettings struct {
	// Addr is the listen address. Default: ":8080"
	Addr string `yaml:"addr" envconfig:"ADDR" validate:"required"`

	// MaxUploadBytes limits the accepted upload size. Default: 32 MiB
	MaxUploadBytes int64 `yaml:"max_upload_bytes" envconfig:"MAX_UPLOAD_BYTES" validate:"min=1"`

	// ReadTimeout and WriteTimeout bound a single request.
	ReadTimeout  time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT"`
	WriteTimeout time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT"`
}

// =============================================================================
// CONFIGURATION LOADING FUNCTIONS
// =============================================================================

// LoadMainConfig loads the configuration from a YAML file and the environment.
//
// PARAMETERS:
//   - configPath: The path to the configuration file. A missing file is only
//     accepted for DefaultConfigFile, in which case defaults are used.
//
// RETURNS:
//   - A pointer to the MainConfig struct.
//   - An error if the file cannot be read or parsed, or validation fails.
func LoadMainConfig(configPath string) (*MainConfig, error) {
	var config MainConfig

	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	case errors.Is(err, os.ErrNotExist) && configPath == DefaultConfigFile:
		// No file: defaults plus environment.
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Environment variables override the file.
	if err := envconfig.Process(EnvPrefix, &config); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	applyMainConfigDefaults(&config)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Default returns a validated configuration made of built-in defaults only.
func Default() *MainConfig {
	var config MainConfig
	applyMainConfigDefaults(&config)
	return &config
}

// applyMainConfigDefaults sets default values for any unset configuration options.
func applyMainConfigDefaults(config *MainConfig) {
	if config.InputDir == "" {
		config.InputDir = "./input"
	}
	if config.OutputDir == "" {
		config.OutputDir = "./output"
	}
	if config.InputArchiveDir == "" {
		config.InputArchiveDir = "./input_archive"
	}
	if config.OutputArchiveDir == "" {
		config.OutputArchiveDir = "./output_archive"
	}
	if config.InputPattern == "" {
		config.InputPattern = "*.txt"
	}
	if config.OutputNameFormat == "" {
		config.OutputNameFormat = "{original}_{timestamp}.xlsx"
	}
	if config.MaxConcurrency == 0 {
		config.MaxConcurrency = 4
	}
	if config.ContinueOnError == nil {
		continueOnError := true
		config.ContinueOnError = &continueOnError
	}

	applyLoggingDefaults(&config.Logging)
	config.Parser = withParserDefaults(config.Parser)
	config.Workbook = withWorkbookDefaults(config.Workbook)
	applyServerDefaults(&config.Server)
}

func applyLoggingDefaults(s *LoggingSettings) {
	if s.Level == "" {
		s.Level = "info"
	}
	if s.Format == "" {
		s.Format = "text"
	}
	if s.Output == "" {
		s.Output = "console"
	}
	if s.FilePath == "" {
		s.FilePath = "./logs/estoque.log"
	}
}

func withParserDefaults(s ParserSettings) ParserSettings {
	if s.Encoding == "" {
		s.Encoding = "utf-8"
	}
	if s.Delimiter == "" {
		s.Delimiter = "§"
	}
	if s.HeaderMarker == "" {
		s.HeaderMarker = "Almoxarifado:"
	}
	return s
}

func withWorkbookDefaults(s WorkbookSettings) WorkbookSettings {
	if s.AdjustmentDirection == "" {
		s.AdjustmentDirection = AdjustSurveyMinusTotal
	}
	if s.SheetNameCollision == "" {
		s.SheetNameCollision = CollisionOverwrite
	}
	if s.HeaderFill == "" {
		s.HeaderFill = "006400"
	}
	if s.HeaderFont == "" {
		s.HeaderFont = "FFFFFF"
	}
	if s.BandFill == "" {
		s.BandFill = "DAF2D0"
	}
	if s.PlainFill == "" {
		s.PlainFill = "FFFFFF"
	}
	if s.ManualFill == "" {
		s.ManualFill = "D3D3D3"
	}
	if s.ColumnPadding == 0 {
		s.ColumnPadding = 2
	}
	if s.MaxColumnWidth == 0 {
		s.MaxColumnWidth = 50
	}
	return s
}

func applyServerDefaults(s *ServerSettings) {
	if s.Addr == "" {
		s.Addr = ":8080"
	}
	if s.MaxUploadBytes == 0 {
		s.MaxUploadBytes = 32 << 20
	}
	if s.ReadTimeout == 0 {
		s.ReadTimeout = 30 * time.Second
	}
	if s.WriteTimeout == 0 {
		s.WriteTimeout = 60 * time.Second
	}
}

// DefaultParserSettings returns the parser settings used when none are configured.
func DefaultParserSettings() ParserSettings {
	return withParserDefaults(ParserSettings{})
}

// DefaultWorkbookSettings returns the workbook settings used when none are configured.
func DefaultWorkbookSettings() WorkbookSettings {
	return withWorkbookDefaults(WorkbookSettings{})
}

// =============================================================================
// VALIDATION
// =============================================================================

// Validate checks every field against its validate tag.
func (c *MainConfig) Validate() error {
	return validator.New().Struct(c)
}

// ShouldContinueOnError reports the effective continue_on_error setting.
func (c *MainConfig) ShouldContinueOnError() bool {
	return c.ContinueOnError == nil || *c.ContinueOnError
}

// EnsureDirectories creates the directories used by batch processing.
func (c *MainConfig) EnsureDirectories() error {
	dirs := []string{c.InputDir, c.OutputDir}
	if c.ArchiveInputs {
		dirs = append(dirs, c.InputArchiveDir, c.OutputArchiveDir)
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}
