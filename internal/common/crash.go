// -----------------------------------------------------------------------
// Crash reports for panics that escape the worker pool
// -----------------------------------------------------------------------

package common

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

// CrashLogDir is where crash reports are written
var CrashLogDir = "./logs"

// InstallCrashHandler sets the crash report directory and makes sure it exists.
// Pair it with a deferred RecoverWithCrashFile at the top of main.
func InstallCrashHandler(logDir string) {
	if logDir != "" {
		CrashLogDir = logDir
	}
	if err := os.MkdirAll(CrashLogDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "CRASH: failed to create log directory: %v\n", err)
	}
}

// BuildCrashReport renders a panic value, its stack and all goroutine stacks
func BuildCrashReport(panicVal any, stackTrace string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "=== PRICING WORKER CRASH REPORT ===\n")
	fmt.Fprintf(&b, "Time: %s\n", time.Now().Format(time.RFC3339))
	fmt.Fprintf(&b, "Version: %s\n", GetFullVersion())
	fmt.Fprintf(&b, "SafeGo goroutines started: %d\n\n", GetGoroutineCount())

	fmt.Fprintf(&b, "=== PANIC ===\n%v\n\n", panicVal)
	fmt.Fprintf(&b, "=== STACK ===\n%s\n\n", stackTrace)
	fmt.Fprintf(&b, "=== ALL GOROUTINES (%d) ===\n%s\n", runtime.NumGoroutine(), allGoroutineStacks())

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	fmt.Fprintf(&b, "=== RUNTIME ===\nGOOS/GOARCH: %s/%s\nAlloc: %d MB\nSys: %d MB\nNumGC: %d\n",
		runtime.GOOS, runtime.GOARCH, mem.Alloc/1024/1024, mem.Sys/1024/1024, mem.NumGC)

	return b.String()
}

// WriteCrashFile writes a crash report into CrashLogDir and returns its path.
// The report goes to stderr when the file cannot be written.
func WriteCrashFile(panicVal any, stackTrace string) string {
	report := BuildCrashReport(panicVal, stackTrace)
	crashPath := filepath.Join(CrashLogDir, fmt.Sprintf("crash-%s.log", time.Now().Format("2006-01-02T15-04-05")))

	if err := os.WriteFile(crashPath, []byte(report), 0644); err != nil {
		fmt.Fprintf(os.Stderr, "CRASH: failed to write crash file: %v\n%s", err, report)
		return ""
	}

	fmt.Fprintf(os.Stderr, "\n!!! FATAL CRASH - report saved to %s !!!\npanic: %v\n", crashPath, panicVal)
	return crashPath
}

// RecoverWithCrashFile writes a crash report and exits on panic.
// Usage: defer common.RecoverWithCrashFile()
func RecoverWithCrashFile() {
	if r := recover(); r != nil {
		buf := make([]byte, 8192)
		n := runtime.Stack(buf, false)
		WriteCrashFile(r, string(buf[:n]))
		os.Exit(1)
	}
}

func allGoroutineStacks() string {
	buf := make([]byte, 64*1024)
	for {
		n := runtime.Stack(buf, true)
		if n < len(buf) || len(buf) >= 16*1024*1024 {
			return string(buf[:n])
		}
		buf = make([]byte, len(buf)*2)
	}
}
