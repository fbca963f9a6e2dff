package consoles

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

type output struct {
	mutex sync.Mutex
	w     io.Writer
	debug bool
}

type stdoutConsole struct {
	out      *output
	mutex    sync.Mutex
	prefixes []string
}

func NewStdOutConsole(debug bool) Console {
	return NewConsole(os.Stdout, debug)
}

func NewConsole(w io.Writer, debug bool) Console {
	return &stdoutConsole{
		out: &output{w: w, debug: debug},
	}
}

func (o *stdoutConsole) Printf(format string, a ...any) {
	line := o.Prepare(format, a...)

	o.out.mutex.Lock()
	defer o.out.mutex.Unlock()

	_, _ = io.WriteString(o.out.w, line)
}

func (o *stdoutConsole) Debugf(format string, a ...any) {
	if !o.out.debug {
		return
	}

	o.Printf("[debug] "+format, a...)
}

func (o *stdoutConsole) Prepare(format string, a ...any) string {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	builder := strings.Builder{}
	builder.WriteString("[")
	builder.WriteString(time.Now().Format("15:04:05"))
	builder.WriteString("] ")
	for _, prefix := range o.prefixes {
		builder.WriteString(prefix)
	}
	builder.WriteString(fmt.Sprintf(format, a...))
	return builder.String()
}

func (o *stdoutConsole) PushPrefix(format string, a ...any) {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	o.prefixes = append(o.prefixes, fmt.Sprintf(format, a...))
}

func (o *stdoutConsole) PopPrefix() {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	if len(o.prefixes) == 0 {
		return
	}
	o.prefixes = o.prefixes[:len(o.prefixes)-1]
}

func (o *stdoutConsole) WithPrefix(format string, a ...any) Console {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	prefixes := make([]string, len(o.prefixes), len(o.prefixes)+1)
	copy(prefixes, o.prefixes)

	return &stdoutConsole{
		out:      o.out,
		prefixes: append(prefixes, fmt.Sprintf(format, a...)),
	}
}
