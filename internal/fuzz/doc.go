
// Package fuzztests houses Go fuzz harnesses for the declaration front end
// (source -> lexer -> cdef parser -> layout). Its goal is to smoke test
// robustness and guard against panics, hangs and broken spans on arbitrary
// inputs.
//
// Назначение: запускать fuzz-обработчики, которые загружают байты в FileSet и
// прогоняют их через лексер/парсер объявлений.
//
// Не делает: генерацию корпусов, запись файлов, нативные вызовы.
//
// Зависимости: internal/source, internal/lexer, internal/cparse, internal/diag,
// internal/ctype, internal/layout, internal/testkit.
package fuzztests
