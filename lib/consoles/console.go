package consoles

type Console interface {
	Printf(format string, a ...any)
	Debugf(format string, a ...any)

	// Prepare returns the line header (time and prefixes) followed by the formatted text.
	Prepare(format string, a ...any) string

	PushPrefix(format string, a ...any)
	PopPrefix()

	// WithPrefix returns a console that shares the output but has its own prefixes.
	WithPrefix(format string, a ...any) Console
}
