//go:build mixindebug

package vm

const strictDefault = true
