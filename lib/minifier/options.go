package minifier

import (
	"strings"
)

type OutputFormat string

const (
	FormatText       OutputFormat = "text"
	FormatIndented   OutputFormat = "indented"
	FormatCVariables OutputFormat = "c-variables"
	FormatJavaScript OutputFormat = "js"
	FormatNasm       OutputFormat = "nasm"
	FormatRust       OutputFormat = "rust"
)

type SwizzleType string

const (
	SwizzleRGBA SwizzleType = "rgba"
	SwizzleXYZW SwizzleType = "xyzw"
	SwizzleSTPQ SwizzleType = "stpq"
)

// Options are the minifier command line switches. The zero value uses the defaults.
type Options struct {
	Verbose            bool         `yaml:"verbose"`
	HLSL               bool         `yaml:"hlsl"`
	Format             OutputFormat `yaml:"format"`
	FieldNames         SwizzleType  `yaml:"field-names"`
	PreserveExternals  bool         `yaml:"preserve-externals"`
	PreserveGlobals    bool         `yaml:"preserve-globals"`
	NoInlining         bool         `yaml:"no-inlining"`
	AggressiveInlining bool         `yaml:"aggressive-inlining"`
	NoRenaming         bool         `yaml:"no-renaming"`
	NoRenamingList     []string     `yaml:"no-renaming-list"`
	NoSequence         bool         `yaml:"no-sequence"`
	Smoothstep         bool         `yaml:"smoothstep"`
	NoRemoveUnused     bool         `yaml:"no-remove-unused"`
	MoveDeclarations   bool         `yaml:"move-declarations"`
	Preprocess         bool         `yaml:"preprocess"`
}

func (o *Options) Args(output, input string) []string {
	format := o.Format
	if format == "" {
		format = FormatIndented
	}
	fieldNames := o.FieldNames
	if fieldNames == "" {
		fieldNames = SwizzleRGBA
	}

	args := []string{"-o", output}

	flag := func(enabled bool, name string) {
		if enabled {
			args = append(args, name)
		}
	}

	flag(o.Verbose, "-v")
	flag(o.HLSL, "--hlsl")
	args = append(args, "--format", string(format))
	args = append(args, "--field-names", string(fieldNames))
	flag(o.PreserveExternals, "--preserve-externals")
	flag(o.PreserveGlobals, "--preserve-all-globals")
	flag(o.NoInlining, "--no-inlining")
	flag(o.AggressiveInlining, "--aggressive-inlining")
	flag(o.NoRenaming, "--no-renaming")
	if len(o.NoRenamingList) > 0 {
		args = append(args, "--no-renaming-list", strings.Join(o.NoRenamingList, ","))
	}
	flag(o.NoSequence, "--no-sequence")
	flag(o.Smoothstep, "--smoothstep")
	flag(o.NoRemoveUnused, "--no-remove-unused")
	flag(o.MoveDeclarations, "--move-declarations")
	flag(o.Preprocess, "--preprocess")

	return append(args, input)
}
