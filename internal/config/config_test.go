package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/spf13/cobra"
)

// TestConfig represents a test configuration structure.
type TestConfig struct {
	Config string `doc:"Config file path"`

	// Basic types
	StringField string   `toml:"test.string_field" env:"STRING_FIELD"`
	BoolField   bool     `toml:"test.bool_field" env:"BOOL_FIELD"`
	IntField    int      `toml:"test.int_field" env:"INT_FIELD"`
	FloatField  float64  `toml:"test.float_field" env:"FLOAT_FIELD"`
	SliceField  []string `toml:"test.slice_field" env:"SLICE_FIELD"`

	// Nested config
	NestedString string `toml:"nested.value" env:"NESTED_VALUE"`
}

func TestLoadConfigFromTOML(t *testing.T) {
	// Create a temporary TOML file
	tomlContent := `
[test]
string_field = "hello world"
bool_field = true
int_field = 42
float_field = 1.5
slice_field = ["item1", "item2", "item3"]

[nested]
value = "nested value"
`

	tmpFile, err := os.CreateTemp("", "test_config_*.toml")
	if err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}
	defer os.Remove(tmpFile.Name())

	if _, writeErr := tmpFile.WriteString(tomlContent); writeErr != nil {
		t.Fatalf("Failed to write to temp file: %v", writeErr)
	}
	tmpFile.Close()

	// Test loading config
	config := &TestConfig{
		Config: tmpFile.Name(),
	}

	err = LoadConfig(config, nil)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	// Verify values
	if config.StringField != "hello world" {
		t.Errorf("Expected StringField to be 'hello world', got '%s'", config.StringField)
	}

	if !config.BoolField {
		t.Errorf("Expected BoolField to be true, got %v", config.BoolField)
	}

	if config.IntField != 42 {
		t.Errorf("Expected IntField to be 42, got %d", config.IntField)
	}

	if config.FloatField != 1.5 {
		t.Errorf("Expected FloatField to be 1.5, got %v", config.FloatField)
	}

	expectedSlice := []string{"item1", "item2", "item3"}
	if !reflect.DeepEqual(config.SliceField, expectedSlice) {
		t.Errorf("Expected SliceField to be %v, got %v", expectedSlice, config.SliceField)
	}

	if config.NestedString != "nested value" {
		t.Errorf("Expected NestedString to be 'nested value', got '%s'", config.NestedString)
	}
}

func TestLoadConfigFromEnvVars(t *testing.T) {
	// Set environment variables
	os.Setenv("QASPAR_STRING_FIELD", "env string")
	os.Setenv("QASPAR_BOOL_FIELD", "false")
	os.Setenv("QASPAR_INT_FIELD", "123")
	os.Setenv("QASPAR_SLICE_FIELD", "a,b,c")
	os.Setenv("QASPAR_NESTED_VALUE", "env nested")

	defer func() {
		os.Unsetenv("QASPAR_STRING_FIELD")
		os.Unsetenv("QASPAR_BOOL_FIELD")
		os.Unsetenv("QASPAR_INT_FIELD")
		os.Unsetenv("QASPAR_SLICE_FIELD")
		os.Unsetenv("QASPAR_NESTED_VALUE")
	}()

	config := &TestConfig{}

	err := LoadConfig(config, nil)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	// Verify values
	if config.StringField != "env string" {
		t.Errorf("Expected StringField to be 'env string', got '%s'", config.StringField)
	}

	if config.BoolField {
		t.Errorf("Expected BoolField to be false, got %v", config.BoolField)
	}

	if config.IntField != 123 {
		t.Errorf("Expected IntField to be 123, got %d", config.IntField)
	}

	expectedSlice := []string{"a", "b", "c"}
	if !reflect.DeepEqual(config.SliceField, expectedSlice) {
		t.Errorf("Expected SliceField to be %v, got %v", expectedSlice, config.SliceField)
	}

	if config.NestedString != "env nested" {
		t.Errorf("Expected NestedString to be 'env nested', got '%s'", config.NestedString)
	}
}

func TestLoadConfigEnvOverridesToml(t *testing.T) {
	// Create a temporary TOML file
	tomlContent := `
[test]
string_field = "toml value"
bool_field = true
int_field = 100
slice_field = ["toml1", "toml2"]
`

	tmpFile, err := os.CreateTemp("", "test_config_*.toml")
	if err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}
	defer os.Remove(tmpFile.Name())

	if _, writeErr := tmpFile.WriteString(tomlContent); writeErr != nil {
		t.Fatalf("Failed to write to temp file: %v", writeErr)
	}
	tmpFile.Close()

	// Set environment variables that should override TOML
	os.Setenv("QASPAR_STRING_FIELD", "env override")
	os.Setenv("QASPAR_BOOL_FIELD", "false")

	defer func() {
		os.Unsetenv("QASPAR_STRING_FIELD")
		os.Unsetenv("QASPAR_BOOL_FIELD")
	}()

	config := &TestConfig{
		Config: tmpFile.Name(),
	}

	err = LoadConfig(config, nil)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	// Verify env vars override TOML values
	if config.StringField != "env override" {
		t.Errorf("Expected StringField to be 'env override', got '%s'", config.StringField)
	}

	if config.BoolField {
		t.Errorf("Expected BoolField to be false (env override), got %v", config.BoolField)
	}

	// Verify TOML values are used when no env override
	if config.IntField != 100 {
		t.Errorf("Expected IntField to be 100 (from TOML), got %d", config.IntField)
	}

	expectedSlice := []string{"toml1", "toml2"}
	if !reflect.DeepEqual(config.SliceField, expectedSlice) {
		t.Errorf("Expected SliceField to be %v (from TOML), got %v", expectedSlice, config.SliceField)
	}
}

func TestGetNestedValue(t *testing.T) {
	data := map[string]any{
		"level1": map[string]any{
			"level2": map[string]any{
				"value": "nested_value",
			},
			"simple": "simple_value",
		},
		"root": "root_value",
	}

	tests := []struct {
		path     string
		expected any
	}{
		{"root", "root_value"},
		{"level1.simple", "simple_value"},
		{"level1.level2.value", "nested_value"},
		{"nonexistent", nil},
		{"level1.nonexistent", nil},
	}

	for _, test := range tests {
		result := getNestedValue(data, test.path)
		if result != test.expected {
			t.Errorf("getNestedValue(%q) = %v, expected %v", test.path, result, test.expected)
		}
	}
}

func TestSetFieldValue(t *testing.T) {
	type TestStruct struct {
		StringField string
		BoolField   bool
		IntField    int
		FloatField  float64
		SliceField  []string
	}

	s := &TestStruct{}
	v := reflect.ValueOf(s).Elem()

	// Test string field
	setFieldValue(v.FieldByName("StringField"), "test string")
	if s.StringField != "test string" {
		t.Errorf("Expected StringField to be 'test string', got '%s'", s.StringField)
	}

	// Test bool field
	setFieldValue(v.FieldByName("BoolField"), true)
	if !s.BoolField {
		t.Errorf("Expected BoolField to be true, got %v", s.BoolField)
	}

	// Test int field
	setFieldValue(v.FieldByName("IntField"), int64(42))
	if s.IntField != 42 {
		t.Errorf("Expected IntField to be 42, got %d", s.IntField)
	}

	// Test float field
	setFieldValue(v.FieldByName("FloatField"), 2.5)
	if s.FloatField != 2.5 {
		t.Errorf("Expected FloatField to be 2.5, got %v", s.FloatField)
	}
	setFieldValue(v.FieldByName("FloatField"), int64(3))
	if s.FloatField != 3 {
		t.Errorf("Expected FloatField to be 3, got %v", s.FloatField)
	}

	// Test slice field
	sliceValue := []any{"a", "b", "c"}
	setFieldValue(v.FieldByName("SliceField"), sliceValue)
	expectedSlice := []string{"a", "b", "c"}
	if !reflect.DeepEqual(s.SliceField, expectedSlice) {
		t.Errorf("Expected SliceField to be %v, got %v", expectedSlice, s.SliceField)
	}
}

func TestSetFieldValueFromString(t *testing.T) {
	type TestStruct struct {
		StringField string
		BoolField   bool
		IntField    int
		FloatField  float64
		SliceField  []string
	}

	s := &TestStruct{}
	v := reflect.ValueOf(s).Elem()

	// Test string field
	setFieldValueFromString(v.FieldByName("StringField"), "test string")
	if s.StringField != "test string" {
		t.Errorf("Expected StringField to be 'test string', got '%s'", s.StringField)
	}

	// Test bool field
	setFieldValueFromString(v.FieldByName("BoolField"), "true")
	if !s.BoolField {
		t.Errorf("Expected BoolField to be true, got %v", s.BoolField)
	}

	// Test int field
	setFieldValueFromString(v.FieldByName("IntField"), "123")
	if s.IntField != 123 {
		t.Errorf("Expected IntField to be 123, got %d", s.IntField)
	}

	// Test float field
	setFieldValueFromString(v.FieldByName("FloatField"), "0.5")
	if s.FloatField != 0.5 {
		t.Errorf("Expected FloatField to be 0.5, got %v", s.FloatField)
	}

	// Test slice field (comma-separated)
	setFieldValueFromString(v.FieldByName("SliceField"), "x,y,z")
	expectedSlice := []string{"x", "y", "z"}
	if !reflect.DeepEqual(s.SliceField, expectedSlice) {
		t.Errorf("Expected SliceField to be %v, got %v", expectedSlice, s.SliceField)
	}

	// Test slice field with spaces
	setFieldValueFromString(v.FieldByName("SliceField"), " a , b , c ")
	expectedSliceWithSpaces := []string{"a", "b", "c"}
	if !reflect.DeepEqual(s.SliceField, expectedSliceWithSpaces) {
		t.Errorf("Expected SliceField to be %v, got %v", expectedSliceWithSpaces, s.SliceField)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	config := &TestConfig{
		Config: "nonexistent_file.toml",
	}

	// Should not fail when file doesn't exist
	err := LoadConfig(config, nil)
	if err != nil {
		t.Fatalf("LoadConfig should not fail for missing file: %v", err)
	}
}

// StoreConfig matches the store and logging fields in main.go Options struct.
type StoreConfig struct {
	Config         string `doc:"Config file path"`
	StoreKeep      int    `toml:"store.keep_days" env:"STORE_KEEP_DAYS"`
	StoreSplitTime int    `toml:"store.split_time" env:"STORE_SPLIT_TIME"`
	NoAutoDelete   bool   `toml:"store.no_auto_delete" env:"STORE_NO_AUTO_DELETE"`
	StatusURL      string `toml:"api.status_url" env:"API_STATUS_URL"`
	LoggingLevel   string `toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingArchive string `toml:"logging.archive" env:"LOGGING_ARCHIVE"`
}

func TestLoadStoreAndLoggingLevels(t *testing.T) {
	tomlContent := `
[store]
keep_days = 7
split_time = 1800.0
no_auto_delete = true

[logging]
level = "info"
archive = "debug"
`

	path := filepath.Join(t.TempDir(), "qaspar.toml")
	if err := os.WriteFile(path, []byte(tomlContent), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	config := &StoreConfig{
		Config:         path,
		StoreKeep:      30, // defaults
		StoreSplitTime: 3600,
		LoggingLevel:   "info",
		LoggingArchive: "info",
	}

	if err := LoadConfig(config, nil); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if config.StoreKeep != 7 {
		t.Errorf("StoreKeep = %d, want 7", config.StoreKeep)
	}
	// Whole floats are accepted for int fields
	if config.StoreSplitTime != 1800 {
		t.Errorf("StoreSplitTime = %d, want 1800", config.StoreSplitTime)
	}
	if !config.NoAutoDelete {
		t.Error("NoAutoDelete should be true")
	}
	if config.LoggingArchive != "debug" {
		t.Errorf("LoggingArchive = %q, want %q", config.LoggingArchive, "debug")
	}
}

func TestLoadConfigSkipsChangedFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "qaspar.toml")
	content := "[store]\nkeep_days = 7\nsplit_time = 600\n\n[api]\nstatus_url = \"toml\"\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().Int("store-keep", 30, "")
	cmd.Flags().Int("store-split-time", 3600, "")
	cmd.Flags().String("status-url", "", "")
	if err := cmd.Flags().Parse([]string{"--store-keep=3", "--status-url=cli"}); err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	config := &StoreConfig{Config: path, StoreKeep: 3, StoreSplitTime: 3600, StatusURL: "cli"}
	if err := LoadConfig(config, cmd); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if config.StoreKeep != 3 {
		t.Errorf("StoreKeep = %d, want CLI value 3", config.StoreKeep)
	}
	if config.StatusURL != "cli" {
		t.Errorf("StatusURL = %q, want CLI value", config.StatusURL)
	}
	if config.StoreSplitTime != 600 {
		t.Errorf("StoreSplitTime = %d, want TOML value 600", config.StoreSplitTime)
	}
}

func TestFieldNameToFlag(t *testing.T) {
	tests := []struct {
		field string
		want  string
	}{
		{"Port", "port"},
		{"LoggingLevel", "logging-level"},
		{"StoreSplitTime", "store-split-time"},
		{"NoPlay", "no-play"},
		{"URL", "url"},
		{"StatusURL", "status-url"},
		{"URLPath", "url-path"},
	}

	for _, tt := range tests {
		if got := fieldNameToFlag(tt.field); got != tt.want {
			t.Errorf("fieldNameToFlag(%q) = %q, want %q", tt.field, got, tt.want)
		}
	}
}

func TestFlagNameTag(t *testing.T) {
	type tagged struct {
		Verbose bool `name:"debug-output"`
		Plain   bool
	}
	typ := reflect.TypeOf(tagged{})
	if got := flagName(typ.Field(0)); got != "debug-output" {
		t.Errorf("flagName = %q, want name tag", got)
	}
	if got := flagName(typ.Field(1)); got != "plain" {
		t.Errorf("flagName = %q, want %q", got, "plain")
	}
}

func TestLoadConfigInvalidTOML(t *testing.T) {
	// Create a temporary file with invalid TOML
	invalidToml := `
[test
invalid toml syntax
`

	tmpFile, err := os.CreateTemp("", "invalid_config_*.toml")
	if err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}
	defer os.Remove(tmpFile.Name())

	if _, writeErr := tmpFile.WriteString(invalidToml); writeErr != nil {
		t.Fatalf("Failed to write to temp file: %v", writeErr)
	}
	tmpFile.Close()

	config := &TestConfig{
		Config: tmpFile.Name(),
	}

	// Should fail with invalid TOML
	err = LoadConfig(config, nil)
	if err == nil {
		t.Fatalf("LoadConfig should fail for invalid TOML")
	}
}
