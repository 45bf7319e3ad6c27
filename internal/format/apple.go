package format

import (
	"context"
	"fmt"
	"strings"

	"github.com/kadirbelkuyu/crashmon/internal/domain"
)

const appleReportVersion = 104

// AppleFormatter renders reports in the layout of Apple crash logs using
// the symbol names already present in the report. It does no symbol lookup
// of its own.
type AppleFormatter struct {
	Style Style
}

func NewAppleFormatter(style Style) *AppleFormatter {
	return &AppleFormatter{Style: style}
}

func (f *AppleFormatter) Format(ctx context.Context, raw domain.RawReport) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	crash, ok := mapField(raw, "crash")
	if !ok {
		return "", fmt.Errorf("%w: missing crash section", ErrMalformedReport)
	}
	system, _ := mapField(raw, "system")
	threads := sliceField(crash, "threads")

	if f.Style == StyleSymbolicated && !hasSymbols(threads) {
		return "", ErrSymbolicationUnavailable
	}

	var b strings.Builder
	f.writeHeader(&b, raw, system)
	f.writeException(&b, crash)
	f.writeThreads(&b, threads, executableName(system))
	f.writeBinaryImages(&b, sliceField(raw, "binary_images"))
	return b.String(), nil
}

func (f *AppleFormatter) writeHeader(b *strings.Builder, raw domain.RawReport, system map[string]any) {
	info := Summarize(raw)
	if info == nil {
		info = &domain.Info{}
	}

	writeField(b, "Incident Identifier:", deref(info.ReportID))
	writeField(b, "CrashReporter Key:", str(system, "device_app_hash"))
	writeField(b, "Hardware Model:", str(system, "machine"))

	process := deref(info.ProcessName)
	if pid, ok := intField(system, "process_id"); ok {
		process = fmt.Sprintf("%s [%d]", process, pid)
	}
	writeField(b, "Process:", process)
	writeField(b, "Path:", str(system, "CFBundleExecutablePath"))
	writeField(b, "Identifier:", str(system, "CFBundleIdentifier"))
	writeField(b, "Version:", fmt.Sprintf("%s (%s)", str(system, "CFBundleShortVersionString"), str(system, "CFBundleVersion")))
	writeField(b, "Code Type:", str(system, "cpu_arch"))

	parent := str(system, "parent_process_name")
	if ppid, ok := intField(system, "parent_process_id"); ok {
		parent = fmt.Sprintf("%s [%d]", parent, ppid)
	}
	writeField(b, "Parent Process:", parent)
	b.WriteString("\n")

	date := deref(info.Timestamp)
	if t := CrashDate(info); t != nil {
		date = t.UTC().Format("2006-01-02 15:04:05.000 -0700")
	}
	writeField(b, "Date/Time:", date)
	writeField(b, "OS Version:", fmt.Sprintf("%s %s (%s)", str(system, "system_name"), str(system, "system_version"), str(system, "os_version")))
	writeField(b, "Report Version:", fmt.Sprint(appleReportVersion))
	b.WriteString("\n")
}

func (f *AppleFormatter) writeException(b *strings.Builder, crash map[string]any) {
	errSection, _ := mapField(crash, "error")
	mach, _ := mapField(errSection, "mach")
	signal, _ := mapField(errSection, "signal")

	excType := str(mach, "exception_name")
	if name := str(signal, "name"); name != "" {
		if excType == "" {
			excType = name
		} else {
			excType = fmt.Sprintf("%s (%s)", excType, name)
		}
	}
	if excType == "" {
		excType = str(errSection, "type")
	}
	fmt.Fprintf(b, "Exception Type:  %s\n", excType)

	codes := str(mach, "code_name")
	if codes == "" {
		codes = str(signal, "code_name")
	}
	if addr, ok := uintField(errSection, "address"); ok {
		codes = strings.TrimSpace(fmt.Sprintf("%s at 0x%016x", codes, addr))
	}
	fmt.Fprintf(b, "Exception Codes: %s\n", codes)

	if idx, ok := crashedThread(sliceField(crash, "threads")); ok {
		fmt.Fprintf(b, "Crashed Thread:  %d\n", idx)
	}
	b.WriteString("\n")

	if ns, ok := mapField(errSection, "nsexception"); ok {
		b.WriteString("Application Specific Information:\n")
		fmt.Fprintf(b, "*** Terminating app due to uncaught exception '%s', reason: '%s'\n\n",
			str(ns, "name"), str(errSection, "reason"))
	} else if reason := str(errSection, "reason"); reason != "" {
		b.WriteString("Application Specific Information:\n")
		b.WriteString(reason)
		b.WriteString("\n\n")
	}
}

func (f *AppleFormatter) writeThreads(b *strings.Builder, threads []any, executable string) {
	for i, t := range threads {
		thread, ok := t.(map[string]any)
		if !ok {
			continue
		}
		idx, ok := intField(thread, "index")
		if !ok {
			idx = int64(i)
		}

		if name := str(thread, "name"); name != "" {
			fmt.Fprintf(b, "Thread %d name:  %s\n", idx, name)
		} else if queue := str(thread, "dispatch_queue"); queue != "" {
			fmt.Fprintf(b, "Thread %d name:  Dispatch queue: %s\n", idx, queue)
		}
		if boolField(thread, "crashed") {
			fmt.Fprintf(b, "Thread %d Crashed:\n", idx)
		} else {
			fmt.Fprintf(b, "Thread %d:\n", idx)
		}

		backtrace, _ := mapField(thread, "backtrace")
		for n, fr := range sliceField(backtrace, "contents") {
			frame, ok := fr.(map[string]any)
			if !ok {
				continue
			}
			b.WriteString(f.frameLine(n, frame, executable))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
}

func (f *AppleFormatter) frameLine(n int, frame map[string]any, executable string) string {
	object := str(frame, "object_name")
	if object == "" {
		object = "???"
	}
	instr, _ := uintField(frame, "instruction_addr")
	objAddr, _ := uintField(frame, "object_addr")
	symAddr, hasSymAddr := uintField(frame, "symbol_addr")
	symbol := str(frame, "symbol_name")
	hasSymbol := symbol != "" && hasSymAddr

	prefix := fmt.Sprintf("%-4d%-31s 0x%016x", n, object, instr)
	unsym := fmt.Sprintf("0x%x + %d", objAddr, instr-objAddr)
	sym := fmt.Sprintf("%s + %d", symbol, instr-symAddr)

	switch f.Style {
	case StyleUnsymbolicated:
		return prefix + " " + unsym
	case StyleSymbolicated:
		if hasSymbol {
			return prefix + " " + sym
		}
		return prefix + " " + unsym
	case StylePartial:
		if hasSymbol && object != executable {
			return prefix + " " + sym
		}
		return prefix + " " + unsym
	default:
		if hasSymbol {
			return fmt.Sprintf("%s %s (%s)", prefix, unsym, sym)
		}
		return prefix + " " + unsym
	}
}

func (f *AppleFormatter) writeBinaryImages(b *strings.Builder, images []any) {
	if len(images) == 0 {
		return
	}
	b.WriteString("Binary Images:\n")
	for _, im := range images {
		image, ok := im.(map[string]any)
		if !ok {
			continue
		}
		addr, _ := uintField(image, "image_addr")
		size, _ := uintField(image, "image_size")
		end := addr
		if size > 0 {
			end = addr + size - 1
		}
		path := str(image, "name")
		name := path
		if i := strings.LastIndex(path, "/"); i >= 0 {
			name = path[i+1:]
		}
		uuid := strings.ToLower(strings.ReplaceAll(str(image, "uuid"), "-", ""))
		fmt.Fprintf(b, "%#18x - %#18x %s <%s> %s\n", addr, end, name, uuid, path)
	}
}

func hasSymbols(threads []any) bool {
	for _, t := range threads {
		thread, ok := t.(map[string]any)
		if !ok {
			continue
		}
		backtrace, _ := mapField(thread, "backtrace")
		for _, fr := range sliceField(backtrace, "contents") {
			if frame, ok := fr.(map[string]any); ok && str(frame, "symbol_name") != "" {
				return true
			}
		}
	}
	return false
}

func crashedThread(threads []any) (int64, bool) {
	for i, t := range threads {
		thread, ok := t.(map[string]any)
		if !ok || !boolField(thread, "crashed") {
			continue
		}
		if idx, ok := intField(thread, "index"); ok {
			return idx, true
		}
		return int64(i), true
	}
	return 0, false
}

func executableName(system map[string]any) string {
	return str(system, "CFBundleExecutable")
}

func writeField(b *strings.Builder, label, value string) {
	fmt.Fprintf(b, "%-21s%s\n", label, value)
}

func str(m map[string]any, key string) string {
	s, _ := stringField(m, key)
	return s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

var _ Formatter = (*AppleFormatter)(nil)
