// Package logger records what happened in shell sessions as newline delimited
// JSON so sessions can be summarized later.
package logger
