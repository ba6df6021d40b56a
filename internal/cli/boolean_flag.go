package cli

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const (
	booleanFlagTypeName        = "bool"
	booleanFlagTrueLiteral     = "true"
	booleanFlagAcceptedValues  = "true, false, yes, no, on, off, 1, 0"
	booleanFlagInvalidValueFmt = "invalid boolean value %q for --%s; accepted values: %s"
	longFlagPrefix             = "--"
	flagValueSeparator         = "="
)

// booleanFlagLiterals omits single-letter forms so a directory named "y" or
// "n" after a boolean flag stays a positional path.
var booleanFlagLiterals = map[string]bool{
	"true":  true,
	"1":     true,
	"yes":   true,
	"on":    true,
	"false": false,
	"0":     false,
	"no":    false,
	"off":   false,
}

// pathExists reports whether an argument names something on disk. An existing
// path after a boolean flag is the start path, never the flag's value.
func pathExists(argument string) bool {
	_, statError := os.Stat(argument)
	return statError == nil
}

func parseBooleanLiteral(input string) (bool, bool) {
	normalized := strings.ToLower(strings.TrimSpace(input))
	if normalized == "" {
		return true, true
	}
	parsed, known := booleanFlagLiterals[normalized]
	return parsed, known
}

// switchFlag is a pflag.Value for flags such as --watch that also accept an
// explicit literal: --watch, --watch=off, --watch no.
type switchFlag struct {
	target *bool
	name   string
}

func (flag *switchFlag) Set(input string) error {
	parsed, known := parseBooleanLiteral(input)
	if !known {
		return fmt.Errorf(booleanFlagInvalidValueFmt, input, flag.name, booleanFlagAcceptedValues)
	}
	*flag.target = parsed
	return nil
}

func (flag *switchFlag) String() string {
	if flag == nil || flag.target == nil {
		return strconv.FormatBool(false)
	}
	return strconv.FormatBool(*flag.target)
}

func (flag *switchFlag) Type() string {
	return booleanFlagTypeName
}

// registerBooleanFlag adds a switchFlag to flagSet with the given default.
func registerBooleanFlag(flagSet *pflag.FlagSet, target *bool, name string, defaultValue bool, usage string) {
	*target = defaultValue
	flagSet.Var(&switchFlag{target: target, name: name}, name, usage)
	registered := flagSet.Lookup(name)
	registered.DefValue = strconv.FormatBool(defaultValue)
	registered.NoOptDefVal = booleanFlagTrueLiteral
}

// normalizeBooleanFlagArguments joins "--flag literal" into "--flag=literal"
// for switch flags so pflag does not treat the literal as the start path.
// The literal is left alone when it names an existing path.
func normalizeBooleanFlagArguments(command *cobra.Command, arguments []string) []string {
	switchNames := switchFlagNames(command)
	if len(switchNames) == 0 {
		return arguments
	}
	normalized := make([]string, 0, len(arguments))
	for index := 0; index < len(arguments); index++ {
		currentArgument := arguments[index]
		if currentArgument == longFlagPrefix {
			return append(normalized, arguments[index:]...)
		}
		normalized = append(normalized, currentArgument)

		flagName, isLongFlag := strings.CutPrefix(currentArgument, longFlagPrefix)
		if !isLongFlag || strings.Contains(flagName, flagValueSeparator) || !switchNames[flagName] {
			continue
		}
		if index+1 >= len(arguments) {
			continue
		}
		nextArgument := arguments[index+1]
		if _, known := parseBooleanLiteral(nextArgument); !known || nextArgument == "" || pathExists(nextArgument) {
			continue
		}
		normalized[len(normalized)-1] = currentArgument + flagValueSeparator + nextArgument
		index++
	}
	return normalized
}

// switchFlagNames lists the flags registered with registerBooleanFlag. Plain
// pflag booleans such as --version never take a separate value.
func switchFlagNames(command *cobra.Command) map[string]bool {
	names := map[string]bool{}
	command.Flags().VisitAll(func(flag *pflag.Flag) {
		if _, isSwitch := flag.Value.(*switchFlag); isSwitch {
			names[flag.Name] = true
		}
	})
	return names
}
