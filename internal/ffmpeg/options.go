package ffmpeg

import (
	"fmt"
	"strings"
)

// OptionType represents a strongly typed FFmpeg input option
type OptionType string

// FFmpeg option constants
const (
	OptionReconnect    OptionType = "reconnect"
	OptionRWTimeout    OptionType = "rw_timeout"
	OptionGeneratePTS  OptionType = "genpts"
	OptionIgnoreErrors OptionType = "ignore_err"
	OptionLowLatency   OptionType = "low_latency"
)

// OptionCategory represents option categories
type OptionCategory string

const (
	CategoryNetwork     OptionCategory = "Network"
	CategoryTiming      OptionCategory = "Timing"
	CategoryErrorHandle OptionCategory = "Error Handling"
	CategoryPerformance OptionCategory = "Performance"
)

// ExclusiveGroup represents a group of mutually exclusive options
type ExclusiveGroup string

const (
	// GroupFormatFlags options all set -fflags, so only one may be used.
	GroupFormatFlags ExclusiveGroup = "fflags"
)

// Option represents available FFmpeg input flags with metadata
type Option struct {
	Key            OptionType      `json:"key"`
	Name           string          `json:"name"`
	Description    string          `json:"description"`
	Category       OptionCategory  `json:"category"`
	Args           []string        `json:"args"`
	ExclusiveGroup *ExclusiveGroup `json:"exclusive_group,omitempty"`
}

func group(g ExclusiveGroup) *ExclusiveGroup { return &g }

// AllOptions contains all available FFmpeg input flags
var AllOptions = []Option{
	{
		Key:         OptionReconnect,
		Name:        "Reconnect",
		Description: "Let ffmpeg reopen an HTTP stream that dropped, for up to 5 seconds",
		Category:    CategoryNetwork,
		Args:        []string{"-reconnect", "1", "-reconnect_streamed", "1", "-reconnect_delay_max", "5"},
	},
	{
		Key:         OptionRWTimeout,
		Name:        "Read Timeout",
		Description: "Fail a network read after 10 seconds instead of waiting forever",
		Category:    CategoryNetwork,
		Args:        []string{"-rw_timeout", "10000000"},
	},
	{
		Key:            OptionGeneratePTS,
		Name:           "Generate PTS",
		Description:    "Generate missing presentation timestamps",
		Category:       CategoryTiming,
		Args:           []string{"-fflags", "+genpts"},
		ExclusiveGroup: group(GroupFormatFlags),
	},
	{
		Key:         OptionIgnoreErrors,
		Name:        "Ignore Errors",
		Description: "Continue processing despite stream errors",
		Category:    CategoryErrorHandle,
		Args:        []string{"-err_detect", "ignore_err"},
	},
	{
		Key:            OptionLowLatency,
		Name:           "Low Latency Mode",
		Description:    "Do not buffer input, for minimal playback delay",
		Category:       CategoryPerformance,
		Args:           []string{"-fflags", "nobuffer", "-flags", "low_delay"},
		ExclusiveGroup: group(GroupFormatFlags),
	},
}

// GetOptionByKey returns an option by its key
func GetOptionByKey(key OptionType) *Option {
	for i := range AllOptions {
		if AllOptions[i].Key == key {
			return &AllOptions[i]
		}
	}
	return nil
}

// ParseOptions converts option names, as found in configuration, to option
// types and validates the selection.
func ParseOptions(names []string) ([]OptionType, error) {
	options := make([]OptionType, 0, len(names))
	for _, name := range names {
		key := OptionType(strings.TrimSpace(name))
		if GetOptionByKey(key) == nil {
			return nil, fmt.Errorf("unknown ffmpeg option %q", name)
		}
		options = append(options, key)
	}
	if err := ValidateOptions(options); err != nil {
		return nil, err
	}
	return options, nil
}

// ValidateOptions checks for exclusive group violations
func ValidateOptions(selectedOptions []OptionType) error {
	exclusiveGroups := make(map[ExclusiveGroup][]string)

	for _, optionKey := range selectedOptions {
		option := GetOptionByKey(optionKey)
		if option == nil || option.ExclusiveGroup == nil {
			continue
		}
		exclusiveGroups[*option.ExclusiveGroup] = append(exclusiveGroups[*option.ExclusiveGroup], option.Name)
	}

	for group, names := range exclusiveGroups {
		if len(names) > 1 {
			return fmt.Errorf("multiple options from exclusive group '%s' selected: %s", group, strings.Join(names, ", "))
		}
	}

	return nil
}

// ApplyOptions returns the input arguments of the selected options in order.
// Unknown options are skipped.
func ApplyOptions(selectedOptions []OptionType) []string {
	var args []string
	for _, key := range selectedOptions {
		if option := GetOptionByKey(key); option != nil {
			args = append(args, option.Args...)
		}
	}
	return args
}
