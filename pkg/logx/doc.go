// Package logx is a thin structured-logging facade over zerolog.
//
// It exists so the rest of the codebase never imports zerolog directly:
// components take a logx.Logger, derive scoped loggers with With(), and
// remain trivially silenceable in tests via Nop().
package logx
