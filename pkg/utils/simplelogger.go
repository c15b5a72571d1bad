// Package utils предоставляет простой файловый логгер для CLI утилит каталога.
//
// Логгер создаёт .log файл в текущей директории с timestamp в имени.
// Thread-safe через sync.Mutex: воркеры синхронизации картинок пишут параллельно.
package utils

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

var (
	logFile     *os.File
	logEcho     io.Writer
	logMutex    sync.Mutex
	initialized bool
)

// InitLogger создает/открывает .log файл в текущей директории.
//
// Имя файла: <prefix>-YYYY-MM-DD-HH-MM.log (например, catalog-clean-2025-12-27-15-30.log).
// Пустой prefix даёт "catalog".
func InitLogger(prefix string) error {
	logMutex.Lock()
	defer logMutex.Unlock()

	if initialized {
		return nil
	}

	if prefix == "" {
		prefix = "catalog"
	}
	filename := fmt.Sprintf("%s-%s.log", prefix, time.Now().Format("2006-01-02-15-04"))

	var err error
	logFile, err = os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	initialized = true
	// Мьютекс уже захвачен, поэтому пишем напрямую
	writeLine(formatLine(time.Now(), "INFO", "Logger initialized", "file", filename))

	return nil
}

// SetEcho дублирует все строки лога в w (например os.Stderr для -verbose).
// nil отключает дублирование.
func SetEcho(w io.Writer) {
	logMutex.Lock()
	defer logMutex.Unlock()
	logEcho = w
}

// Info - информационное сообщение.
func Info(msg string, keyvals ...any) {
	log("INFO", msg, keyvals...)
}

// Error - сообщение об ошибке.
func Error(msg string, keyvals ...any) {
	log("ERROR", msg, keyvals...)
}

// Debug - отладочное сообщение.
func Debug(msg string, keyvals ...any) {
	log("DEBUG", msg, keyvals...)
}

// Warn - предупреждение.
func Warn(msg string, keyvals ...any) {
	log("WARN", msg, keyvals...)
}

func log(level, msg string, keyvals ...any) {
	logMutex.Lock()
	defer logMutex.Unlock()

	if logFile == nil && logEcho == nil {
		return
	}
	writeLine(formatLine(time.Now(), level, msg, keyvals...))
}

// formatLine собирает строку "[YYYY-MM-DD HH:MM:SS] LEVEL: message k1=v1 k2=v2".
// Непарный последний ключ отбрасывается.
func formatLine(ts time.Time, level, msg string, keyvals ...any) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s: %s", ts.Format("2006-01-02 15:04:05"), level, msg)
	for i := 0; i+1 < len(keyvals); i += 2 {
		fmt.Fprintf(&b, " %v=%v", keyvals[i], keyvals[i+1])
	}
	b.WriteByte('\n')
	return b.String()
}

// writeLine вызывается под logMutex. При ошибке файла — fallback на stderr.
func writeLine(line string) {
	if logEcho != nil {
		io.WriteString(logEcho, line)
	}
	if logFile == nil {
		return
	}
	if _, err := logFile.WriteString(line); err != nil {
		fmt.Fprint(os.Stderr, line)
		fmt.Fprintf(os.Stderr, "[LOGGER ERROR: WriteString failed: %v]\n", err)
		return
	}
	if err := logFile.Sync(); err != nil {
		fmt.Fprintf(os.Stderr, "[LOGGER WARNING: Sync failed: %v]\n", err)
	}
}

// Close закрывает лог-файл.
//
// Вызывается через defer в main().
func Close() {
	logMutex.Lock()
	defer logMutex.Unlock()

	if logFile != nil {
		if err := logFile.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "[LOGGER WARNING: Close failed: %v]\n", err)
		}
		logFile = nil
	}
	initialized = false
}
