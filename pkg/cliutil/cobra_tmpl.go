// Copyright (C) 2021-2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

package cliutil

import (
	"fmt"
	"sort"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

// EnvAnnotation is the cobra.Command.Annotations key that HelpTemplate reads the "Environment:"
// section from.  Use SetEnvHelp to populate it.
const EnvAnnotation = "cliutil.env"

func init() {
	cobra.AddTemplateFunc("getTerminalWidth", GetTerminalWidth)
	cobra.AddTemplateFunc("wrap", Wrap)
	cobra.AddTemplateFunc("wrapIndent", WrapIndent)
	cobra.AddTemplateFunc("add", func(args ...int) int {
		ret := 0
		for _, arg := range args {
			ret += arg
		}
		return ret
	})
	cobra.AddTemplateFunc("envHelp", func(width int, cmd *cobra.Command) string {
		return renderEnvHelp(width, cmd.Annotations[EnvAnnotation])
	})
}

// SetEnvHelp documents the environment variables that cmd consults, as a table in the same layout
// as the flags table.
func SetEnvHelp(cmd *cobra.Command, vars map[string]string) {
	names := lo.Keys(vars)
	sort.Strings(names)
	pad := 0
	for _, name := range names {
		if len(name) > pad {
			pad = len(name)
		}
	}
	if cmd.Annotations == nil {
		cmd.Annotations = make(map[string]string)
	}
	var table strings.Builder
	for _, name := range names {
		// The description gets wrapped at render time; mark where it starts with a tab.
		fmt.Fprintf(&table, "  %-*s   \t%s\n", pad, name, vars[name])
	}
	cmd.Annotations[EnvAnnotation] = table.String()
}

// renderEnvHelp wraps the descriptions in a SetEnvHelp table.
func renderEnvHelp(width int, table string) string {
	var ret strings.Builder
	for _, row := range strings.Split(strings.TrimSuffix(table, "\n"), "\n") {
		name, desc, _ := strings.Cut(row, "\t")
		ret.WriteString(name)
		ret.WriteString(WrapIndent(len(name), width, desc))
		ret.WriteString("\n")
	}
	return ret.String()
}

const HelpTemplate = `Usage: {{ .UseLine }}

{{- /* Short help text ---------------------------------------------------- */}}
{{- if .Short }}
{{ .Short }}
{{- end }}

{{- /* Long help text ----------------------------------------------------- */}}
{{- if .Long }}

{{ .Long | wrap getTerminalWidth | trimTrailingWhitespaces }}
{{- end }}

{{- /* Aliases ------------------------------------------------------------ */}}
{{- if .Aliases }}

Aliases:
  {{ .NameAndAliases }}
{{- end }}

{{- /* Aliases ------------------------------------------------------------ */}}
{{- if .HasExample }}

Examples:
{{ .Example }}
{{- end }}

{{- /* Subcommands -------------------------------------------------------- */}}
{{- if .HasAvailableSubCommands }}

Available Commands:
{{- range .Commands}}
  {{- if (or .IsAvailableCommand (eq .Name "help")) }}
    {{- "\n" }}  {{ rpad .Name .NamePadding }}   {{ .Short | wrapIndent (add .NamePadding 5) getTerminalWidth }}
  {{- end }}
{{- end }}
{{- end }}

{{- /* Local Flags -------------------------------------------------------- */}}
{{- if .HasAvailableLocalFlags }}

Flags:
{{ getTerminalWidth | .LocalFlags.FlagUsagesWrapped | trimTrailingWhitespaces }}
{{- end }}

{{- /* Global flags ------------------------------------------------------- */}}
{{- if .HasAvailableInheritedFlags }}

Global Flags:
{{ getTerminalWidth | .InheritedFlags.FlagUsagesWrapped | trimTrailingWhitespaces }}
{{- end }}

{{- /* Environment -------------------------------------------------------- */}}
{{- if index .Annotations "cliutil.env" }}

Environment:
{{ envHelp getTerminalWidth . | trimTrailingWhitespaces }}
{{- end }}

{{- /* Help topics -------------------------------------------------------- */}}
{{- if .HasHelpSubCommands }}

Additional help topics:
{{- range .Commands }}
  {{- if .IsAdditionalHelpTopicCommand }}
    {{- "\n" }}  {{ rpad .CommandPath .CommandPathPadding }}   {{ .Short | wrapIndent (add .NamePadding 5) getTerminalWidth }}
  {{- end }}
{{- end }}
{{- end }}

{{- /* Help footer -------------------------------------------------------- */}}
{{- if .HasAvailableSubCommands }}

Use "{{ .CommandPath }} [command] --help" for more information about a command.
{{- end}}
`
