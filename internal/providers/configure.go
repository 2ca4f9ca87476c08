package providers

import (
	"fmt"
	"strings"

	"github.com/systmms/secretsrc/pkg/provider"
)

func missingOption(providerKey, field, msg string) error {
	return provider.ConfigurationError{
		Provider: providerKey,
		Code:     provider.CodeMissingOption,
		Field:    field,
		Message:  msg,
	}
}

func invalidOption(providerKey, field, msg string) error {
	return provider.ConfigurationError{
		Provider: providerKey,
		Code:     provider.CodeInvalidOption,
		Field:    field,
		Message:  msg,
	}
}

func conflictingOptions(providerKey string, fields ...string) error {
	return provider.ConfigurationError{
		Provider: providerKey,
		Code:     provider.CodeConflictingOptions,
		Field:    fields[0],
		Message:  fmt.Sprintf("options %s cannot be combined", strings.Join(fields, " and ")),
	}
}

var caseSensitiveOption = provider.OptionDescriptor{
	Name:             "case-sensitive",
	Type:             provider.OptionBoolean,
	ShortDescription: "Compare keys exactly",
	LongDescription:  "When false, keys match regardless of case and the first case variant found wins.",
	DefaultValue:     "false",
}
